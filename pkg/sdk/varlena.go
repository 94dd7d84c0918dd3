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
	"encoding/binary"
	"unsafe"

	"github.com/pgext/extension-sdk-go/pkg/ptr"
)

// Varlena header layouts, as of postgres.h on little-endian machines.
const (
	varHdrSz          = 4
	varHdrSzShort     = 1
	varHdrSzExternal  = 2
	varSizeMask       = 0x3FFFFFFF
	varTag1BExternal  = 0x01
	varFlag1B         = 0x01
	varFlagMask4B     = 0x03
	varFlag4BCompress = 0x02
)

// varlenaBytes returns the payload of the varlena value d points to,
// aliasing host memory whenever the value is stored in-line and
// uncompressed.
func varlenaBytes(d Datum) []byte {
	if d == 0 {
		violation("unexpected NULL pointer for a varlena datum")
	}
	p := d.Pointer()
	b0 := *(*byte)(p)
	switch {
	case b0 == varTag1BExternal:
		return varlena4BBytes(currentHost.Detoast(d))
	case b0&varFlag1B == varFlag1B:
		size := int(b0>>1) & 0x7F
		return ptr.Bytes(unsafe.Add(p, varHdrSzShort), size-varHdrSzShort)
	case b0&varFlagMask4B == varFlag4BCompress:
		return varlena4BBytes(currentHost.Detoast(d))
	default:
		return varlena4BBytes(p)
	}
}

func varlena4BBytes(p unsafe.Pointer) []byte {
	size := int((*(*uint32)(p) >> 2) & varSizeMask)
	return ptr.Bytes(unsafe.Add(p, varHdrSz), size-varHdrSz)
}

// newVarlena allocates a 4-byte header varlena holding payload in the
// current memory context.
func newVarlena(payload []byte) Datum {
	size := len(payload) + varHdrSz
	p := currentHost.Alloc(size)
	brw, err := ptr.NewBytesReadWriter(p, 0, int64(size))
	if err != nil {
		violation(err.Error())
	}
	if err := binary.Write(brw, binary.LittleEndian, uint32(size)<<2); err != nil {
		violation("writing varlena header: " + err.Error())
	}
	if _, err := brw.Write(payload); err != nil {
		violation("writing varlena payload: " + err.Error())
	}
	return PointerDatum(p)
}

func newVarlenaString(s string) Datum {
	return newVarlena(unsafe.Slice(unsafe.StringData(s), len(s)))
}

func cStringBytes(d Datum) []byte {
	if d == 0 {
		violation("unexpected NULL pointer for a cstring datum")
	}
	s := ptr.GoString(d.Pointer())
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func newCString(b []byte) Datum {
	p := currentHost.Alloc(len(b) + 1)
	copy(ptr.Bytes(p, len(b)), b)
	return PointerDatum(p)
}

func newFixedLen(src unsafe.Pointer, size int) Datum {
	p := currentHost.Alloc(size)
	copy(ptr.Bytes(p, size), ptr.Bytes(src, size))
	return PointerDatum(p)
}
