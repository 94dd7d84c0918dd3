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

package pgtest

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/pgext/extension-sdk-go/pkg/ptr"
	"github.com/pgext/extension-sdk-go/pkg/sdk"
)

const (
	heapTupleMagic   = 0x50554854 // "THUP"
	heapTupleHdrSize = 8

	// external varlena: 1-byte header, tag, and a pointer to the
	// detoasted value
	varTag1BExternal = 0x01
	varTagOnDisk     = 18
	externalSize     = 2 + int(unsafe.Sizeof(uintptr(0)))
)

// Arena emulates a memory context of the database. Memory is allocated on
// the Go heap, and is kept alive until the Arena is reset or collected.
// An Arena implements sdk.Host.
type Arena struct {
	blocks [][]uint64
	size   int
}

// NewArena returns an empty Arena.
func NewArena() *Arena {
	return &Arena{}
}

// Alloc returns size bytes of zeroed memory, aligned to 8 bytes.
func (a *Arena) Alloc(size int) unsafe.Pointer {
	if size < 0 {
		panic(fmt.Sprintf("pgext-sdk-go/pgtest: invalid allocation size %d", size))
	}
	words := (size + 7) / 8
	if words == 0 {
		words = 1
	}
	block := make([]uint64, words)
	a.blocks = append(a.blocks, block)
	a.size += words * 8
	return unsafe.Pointer(&block[0])
}

// Allocated returns the number of bytes allocated since the last Reset.
func (a *Arena) Allocated() int {
	return a.size
}

// Reset releases all the memory of the Arena. Datums pointing to it must
// not be used afterwards.
func (a *Arena) Reset() {
	a.blocks = nil
	a.size = 0
}

// Toast returns an out-of-line varlena Datum whose detoasted value is the
// given payload, as found in rows read from disk.
func (a *Arena) Toast(payload []byte) sdk.Datum {
	inline := a.varlena(payload)
	p := a.Alloc(externalSize)
	b := ptr.Bytes(p, externalSize)
	b[0] = varTag1BExternal
	b[1] = varTagOnDisk
	binary.LittleEndian.PutUint64(b[2:], uint64(uintptr(inline)))
	return sdk.PointerDatum(p)
}

// Short returns a varlena Datum with a 1-byte header, as used by the
// database for values shorter than 127 bytes.
func (a *Arena) Short(payload []byte) sdk.Datum {
	if len(payload)+1 > 0x7F {
		panic("pgext-sdk-go/pgtest: payload too large for a short varlena")
	}
	p := a.Alloc(len(payload) + 1)
	b := ptr.Bytes(p, len(payload)+1)
	b[0] = byte((len(payload)+1)<<1) | 0x01
	copy(b[1:], payload)
	return sdk.PointerDatum(p)
}

func (a *Arena) varlena(payload []byte) unsafe.Pointer {
	size := len(payload) + 4
	p := a.Alloc(size)
	b := ptr.Bytes(p, size)
	binary.LittleEndian.PutUint32(b, uint32(size)<<2)
	copy(b[4:], payload)
	return p
}

// Detoast returns the in-line copy of an out-of-line value created by Toast.
func (a *Arena) Detoast(d sdk.Datum) unsafe.Pointer {
	b := ptr.Bytes(d.Pointer(), 2)
	if b[0] != varTag1BExternal || b[1] != varTagOnDisk {
		panic(fmt.Sprintf("pgext-sdk-go/pgtest: unsupported toasted value (header %#x, tag %d)", b[0], b[1]))
	}
	addr := binary.LittleEndian.Uint64(ptr.Bytes(unsafe.Add(d.Pointer(), 2), 8))
	return unsafe.Pointer(uintptr(addr))
}

// FormTuple builds a heap tuple in the memory of the Arena. Pass-by-reference
// values are copied into the Arena, so that the tuple does not depend on
// the memory of values.
func (a *Arena) FormTuple(desc *sdk.TupleDesc, values []sdk.Datum, nulls []bool) sdk.HeapTuple {
	n := desc.NumAttrs()
	if len(values) != n || len(nulls) != n {
		panic("pgext-sdk-go/pgtest: values and nulls must match the number of attributes")
	}
	prev := sdk.SetHost(a)
	defer sdk.SetHost(prev)

	datumSize := int(unsafe.Sizeof(sdk.Datum(0)))
	p := a.Alloc(heapTupleHdrSize + n*datumSize + n)
	hdr := ptr.Bytes(p, heapTupleHdrSize)
	binary.LittleEndian.PutUint32(hdr[0:], heapTupleMagic)
	binary.LittleEndian.PutUint32(hdr[4:], uint32(n))
	t := heapTuple{p: p}
	for i := 0; i < n; i++ {
		isNull := nulls[i] || desc.Attrs[i].Dropped
		var d sdk.Datum
		if !isNull {
			d = sdk.CopyDatum(values[i], &desc.Attrs[i])
		}
		*t.value(i) = d
		*t.null(i) = isNull
	}
	return t
}

// TupleAt returns the heap tuple d points to, typically the result of a
// trigger function.
func TupleAt(d sdk.Datum) (sdk.HeapTuple, error) {
	if d == 0 {
		return nil, fmt.Errorf("pgext-sdk-go/pgtest: NULL tuple pointer")
	}
	hdr := ptr.Bytes(d.Pointer(), heapTupleHdrSize)
	if binary.LittleEndian.Uint32(hdr) != heapTupleMagic {
		return nil, fmt.Errorf("pgext-sdk-go/pgtest: datum %#x does not point to a heap tuple", uintptr(d))
	}
	return heapTuple{p: d.Pointer()}, nil
}

// heapTuple is laid out as a header (magic, number of attributes), the
// array of values and the array of null flags.
type heapTuple struct {
	p unsafe.Pointer
}

func (t heapTuple) natts() int {
	return int(binary.LittleEndian.Uint32(ptr.Bytes(unsafe.Add(t.p, 4), 4)))
}

func (t heapTuple) value(i int) *sdk.Datum {
	return (*sdk.Datum)(unsafe.Add(t.p, heapTupleHdrSize+i*int(unsafe.Sizeof(sdk.Datum(0)))))
}

func (t heapTuple) null(i int) *bool {
	n := t.natts()
	return (*bool)(unsafe.Add(t.p, heapTupleHdrSize+n*int(unsafe.Sizeof(sdk.Datum(0)))+i))
}

func (t heapTuple) Datum() sdk.Datum {
	return sdk.PointerDatum(t.p)
}

// Attr returns NULL for attribute numbers past the end of the tuple, as
// heap_getattr does for columns added after the row was written.
func (t heapTuple) Attr(attno int) (sdk.Datum, bool) {
	if attno < 1 || attno > t.natts() {
		return 0, true
	}
	if *t.null(attno - 1) {
		return 0, true
	}
	return *t.value(attno - 1), false
}
