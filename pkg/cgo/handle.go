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

// Package cgo provides the handles the host binding uses to keep Go values
// across calls, in fields of the database structures that can only hold a
// pointer, such as the fn_extra field of FmgrInfo.
package cgo

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Handle is a compact alternative to runtime/cgo.Handle. It allows storing
// values that contain Go pointers in the memory of the database without
// breaking the cgo pointer passing rules. A Handle fits in a pointer-sized
// field, and its zero value is never valid, so that a NULL fn_extra means
// that no value has been stored yet.
//
// Handles are backed by a fixed-size table, so the number of simultaneously
// valid handles is capped (see MaxHandle). The host binding allocates one
// handle per call site storing a value, and releases it when the memory
// context of the call site is reset at the end of the query.
type Handle uintptr

const (
	// MaxHandle is the largest value that an Handle can hold
	MaxHandle = 4096 - 1

	// max number of times we iterate over the table looking for a free
	// slot before giving up
	maxNewHandleRounds = 20
)

var (
	handles  [MaxHandle + 1]unsafe.Pointer // [int]*interface{}
	noHandle unsafe.Pointer                = nil
	live     atomic.Int64
)

func init() {
	resetHandles()
}

// NewHandle returns a handle for a given value.
//
// The handle is valid until Delete is called on it, and the caller must
// make sure that no copy of it is used afterwards.
//
// This function panics if there are no more handles available.
func NewHandle(v interface{}) Handle {
	rounds := 0
	for h := uintptr(1); ; h++ {
		// slots 1..MaxHandle (included) are usable
		if atomic.CompareAndSwapPointer(&handles[h], noHandle, (unsafe.Pointer)(&v)) {
			live.Add(1)
			return Handle(h)
		}

		if h < MaxHandle {
			continue
		}

		// start over from the beginning of the table
		h = uintptr(0)
		if rounds < maxNewHandleRounds {
			rounds++
			continue
		}

		panic(fmt.Sprintf("pgext-sdk-go/cgo: could not obtain a new handle after round #%d", rounds))
	}
}

// Value returns the associated Go value for a valid handle.
//
// The method panics if the handle is invalid.
func (h Handle) Value() interface{} {
	if h > MaxHandle || atomic.LoadPointer(&handles[h]) == noHandle {
		panic(fmt.Sprintf("pgext-sdk-go/cgo: misuse (value) of an invalid Handle %d", h))
	}
	return *(*interface{})(atomic.LoadPointer(&handles[h]))
}

// Set replaces the value associated with a valid handle.
//
// The method panics if the handle is invalid.
func (h Handle) Set(v interface{}) {
	if h > MaxHandle || atomic.LoadPointer(&handles[h]) == noHandle {
		panic(fmt.Sprintf("pgext-sdk-go/cgo: misuse (set) of an invalid Handle %d", h))
	}
	atomic.StorePointer(&handles[h], (unsafe.Pointer)(&v))
}

// Delete invalidates a handle.
//
// The method panics if the handle is invalid.
func (h Handle) Delete() {
	if h > MaxHandle || atomic.LoadPointer(&handles[h]) == noHandle {
		panic(fmt.Sprintf("pgext-sdk-go/cgo: misuse (delete) of an invalid Handle %d", h))
	}
	atomic.StorePointer(&handles[h], noHandle)
	live.Add(-1)
}

// Live returns the number of valid handles.
func Live() int {
	return int(live.Load())
}

func resetHandles() {
	for i := 0; i <= MaxHandle; i++ {
		atomic.StorePointer(&handles[i], noHandle)
	}
	live.Store(0)
}
