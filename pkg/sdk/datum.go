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
	"unsafe"

	"github.com/lib/pq/oid"
)

// Datum is the database's representation of a single SQL value. It is a
// machine word that either holds a pass-by-value scalar directly, or points
// to memory allocated by the database in one of its memory contexts.
//
// A Datum is never owned by the extension: it is only valid for the
// duration of the current call, and only meaningful together with its null
// flag and its type OID.
type Datum uintptr

// Oid identifies an object of the database catalog. In the context of this
// package it is mostly used to identify SQL types.
type Oid = oid.Oid

// InvalidOid is the zero Oid, used when a type is unknown.
const InvalidOid Oid = 0

// NullableDatum pairs a Datum with its null flag, like the elements of the
// argument array of a function call.
type NullableDatum struct {
	Value  Datum
	IsNull bool
}

// PointerDatum returns a Datum pointing to p.
func PointerDatum(p unsafe.Pointer) Datum {
	return Datum(uintptr(p))
}

// Pointer returns the memory location a pass-by-reference Datum points to.
func (d Datum) Pointer() unsafe.Pointer {
	return unsafe.Pointer(uintptr(d))
}

// CopyDatum returns a copy of d, allocated in the current memory context,
// that is independent from the memory d points to. Pass-by-value datums
// are returned as they are.
func CopyDatum(d Datum, attr *Attribute) Datum {
	if attr.ByVal || d == 0 {
		return d
	}
	switch {
	case attr.Len == -1:
		return newVarlena(varlenaBytes(d))
	case attr.Len == -2:
		return newCString(cStringBytes(d))
	default:
		return newFixedLen(d.Pointer(), int(attr.Len))
	}
}
