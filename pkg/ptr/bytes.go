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

package ptr

import (
	"fmt"
	"io"
	"math"
	"unsafe"
)

const (
	offsetErrorFmt   = "invalid offset value %d"
	lengthErrorFmt   = "invalid length value %d"
	capacityErrorFmt = "invalid capacity value %d"
	whenceErrorFmt   = "invalid whence value %d"
)

// BytesReadWriter is an opaque wrapper for fixed-capacity memory buffers
// allocated by the host (e.g. with palloc), that can safely be accessed in
// a Go-friendly way. Reads and writes never go past the buffer capacity,
// and the io.ReadWriteSeeker interface provides random access over it.
type BytesReadWriter interface {
	io.ReadWriteSeeker
	//
	// BufferPtr returns an unsafe.Pointer to the underlying memory buffer.
	BufferPtr() unsafe.Pointer
	//
	// Len returns the number of readable bytes in the buffer.
	Len() int64
	//
	// SetLen sets the number of readable bytes in the buffer. The value
	// is bounded between 0 and the buffer capacity.
	SetLen(len int64)
	//
	// Offset returns the current cursor position relatively to the start
	// of the buffer. By definition, we have that 0 <= Offset() <= Len().
	Offset() int64
}

// NewBytesReadWriter wraps a memory buffer of the given capacity, of
// which the first length bytes are considered readable.
func NewBytesReadWriter(buffer unsafe.Pointer, length, capacity int64) (BytesReadWriter, error) {
	if buffer == nil {
		return nil, fmt.Errorf("invalid nil buffer")
	}
	if capacity < 0 || capacity > math.MaxInt {
		return nil, fmt.Errorf(capacityErrorFmt, capacity)
	}
	if length < 0 || length > capacity {
		return nil, fmt.Errorf(lengthErrorFmt, length)
	}
	return &bytesReadWriter{
		buffer:     buffer,
		bytesAlias: unsafe.Slice((*byte)(buffer), int(capacity)),
		len:        length,
		capacity:   capacity,
	}, nil
}

type bytesReadWriter struct {
	offset     int64
	len        int64
	capacity   int64
	buffer     unsafe.Pointer
	bytesAlias []byte
}

func (b *bytesReadWriter) Read(p []byte) (n int, err error) {
	if b.offset >= b.len {
		return 0, io.EOF
	}
	n = copy(p, b.bytesAlias[b.offset:b.len])
	b.offset += int64(n)
	return
}

func (b *bytesReadWriter) Write(p []byte) (n int, err error) {
	n = copy(b.bytesAlias[b.offset:b.capacity], p)
	b.offset += int64(n)
	if b.offset > b.len {
		b.len = b.offset
	}
	if n < len(p) {
		err = io.ErrShortWrite
	}
	return
}

func (b *bytesReadWriter) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = b.offset + offset
	case io.SeekEnd:
		pos = b.len - offset
	default:
		return b.offset, fmt.Errorf(whenceErrorFmt, whence)
	}
	if offset < 0 || pos < 0 || pos > b.len {
		return b.offset, fmt.Errorf(offsetErrorFmt, offset)
	}
	b.offset = pos
	return b.offset, nil
}

func (b *bytesReadWriter) BufferPtr() unsafe.Pointer {
	return b.buffer
}

func (b *bytesReadWriter) Len() int64 {
	return b.len
}

func (b *bytesReadWriter) SetLen(len int64) {
	if len < 0 {
		len = 0
	}
	if len > b.capacity {
		len = b.capacity
	}
	b.len = len
	if b.offset > len {
		b.offset = len
	}
}

func (b *bytesReadWriter) Offset() int64 {
	return b.offset
}
