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
	"fmt"
	"strings"

	"github.com/lib/pq/oid"
)

// Converter converts between Datums of one or more SQL types and values
// of the Go type T.
//
// FromDatum and IntoDatum are the trusted boundary of the SDK: FromDatum
// assumes that d really is a value of type typ, that typ is accepted by
// the converter, and that any memory d points to is valid for the current
// call. Breaking these preconditions has undefined results. The row access
// layer and the argument helpers check types before calling them.
type Converter[T any] interface {
	// TypeOid returns the type this converter produces, as used when
	// registering function signatures.
	TypeOid() Oid
	//
	// Accepts returns true if values of type typ can be converted to T.
	Accepts(typ Oid) bool
	//
	// FromDatum converts d, of type typ, into a Go value. The second return
	// value is false when isNull is true, regardless of the bits of d.
	FromDatum(d Datum, isNull bool, typ Oid) (T, bool)
	//
	// IntoDatum converts v into a Datum. The second return value is false
	// when v represents SQL NULL. Pass-by-reference results are allocated
	// in the current memory context of the host.
	IntoDatum(v T) (Datum, bool)
}

// FromDatum converts d, assumed to be of the converter's own type.
func FromDatum[T any](c Converter[T], d Datum, isNull bool) (T, bool) {
	return c.FromDatum(d, isNull, c.TypeOid())
}

// IntoDatum converts v into a Datum with the given converter.
func IntoDatum[T any](c Converter[T], v T) (Datum, bool) {
	return c.IntoDatum(v)
}

// TypeName returns a human readable name for typ.
func TypeName(typ Oid) string {
	if name, ok := oid.TypeName[typ]; ok {
		return strings.ToLower(name)
	}
	return fmt.Sprintf("oid %d", typ)
}

func checkAccepts[T any](c Converter[T], typ Oid) error {
	if !c.Accepts(typ) {
		return fmt.Errorf("%w: %s cannot be converted to %s", ErrTypeMismatch, TypeName(typ), TypeName(c.TypeOid()))
	}
	return nil
}

func acceptsAny(typ Oid, accepted ...Oid) bool {
	for _, a := range accepted {
		if a == typ {
			return true
		}
	}
	return false
}
