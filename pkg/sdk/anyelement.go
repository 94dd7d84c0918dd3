// SPDX-License-Identifier: Apache-2.0
/*
Copyright (C) 2024 The Falco Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package sdk

import (
	"github.com/lib/pq/oid"
)

// AnyElement is a value of the polymorphic anyelement type. It holds the
// raw Datum together with its actual type, without interpreting it: the
// typed conversion happens later through AnyElementInto.
type AnyElement struct {
	datum Datum
	typ   Oid
}

// NewAnyElement wraps d, a Datum of type typ.
func NewAnyElement(d Datum, typ Oid) AnyElement {
	return AnyElement{datum: d, typ: typ}
}

// Datum returns the raw Datum.
func (a AnyElement) Datum() Datum {
	return a.datum
}

// TypeOid returns the actual type of the value, or InvalidOid if the
// database did not provide it.
func (a AnyElement) TypeOid() Oid {
	return a.typ
}

// AnyElementInto converts a into a typed value with c. It fails with
// ErrTypeMismatch if c does not accept the actual type of a. When the
// actual type is unknown, the conversion is attempted as requested.
func AnyElementInto[T any](a AnyElement, c Converter[T]) (T, error) {
	if a.typ != InvalidOid {
		if err := checkAccepts(c, a.typ); err != nil {
			var zero T
			return zero, err
		}
	}
	v, _ := c.FromDatum(a.datum, false, a.typ)
	return v, nil
}

type anyConverter struct{}

func (anyConverter) TypeOid() Oid {
	return oid.T_anyelement
}

func (anyConverter) Accepts(Oid) bool {
	return true
}

func (anyConverter) FromDatum(d Datum, isNull bool, typ Oid) (AnyElement, bool) {
	if isNull {
		return AnyElement{}, false
	}
	return AnyElement{datum: d, typ: typ}, true
}

func (anyConverter) IntoDatum(v AnyElement) (Datum, bool) {
	return v.datum, true
}

// Any converts values of any type into AnyElement.
var Any Converter[AnyElement] = anyConverter{}
