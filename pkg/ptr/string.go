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
	"unsafe"
)

const cStringNullTerminator = byte(0)

// GoString returns a Go string that aliases the NUL-terminated C string
// pointed to by charPtr. No memory is copied: the returned string is only
// valid as long as the underlying buffer is, which for host-owned memory
// means until the current call returns.
func GoString(charPtr unsafe.Pointer) string {
	if charPtr == nil {
		return ""
	}
	len := 0
	for *(*byte)(unsafe.Add(charPtr, len)) != cStringNullTerminator {
		len++
	}
	return unsafe.String((*byte)(charPtr), len)
}

// String returns a Go string that aliases length bytes starting at p.
// As for GoString, no memory is copied.
func String(p unsafe.Pointer, length int) string {
	if p == nil || length <= 0 {
		return ""
	}
	return unsafe.String((*byte)(p), length)
}

// Bytes returns a byte slice that aliases length bytes starting at p.
// Writing into the slice writes into the underlying memory.
func Bytes(p unsafe.Pointer, length int) []byte {
	if p == nil || length <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p), length)
}

// CopyBytes returns a Go-owned copy of length bytes starting at p.
func CopyBytes(p unsafe.Pointer, length int) []byte {
	if p == nil || length <= 0 {
		return []byte{}
	}
	res := make([]byte, length)
	copy(res, Bytes(p, length))
	return res
}
