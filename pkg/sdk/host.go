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
)

// Host represents the services of the database process that the conversion
// and row access layers rely on. Implementations are provided by the host
// package, which binds to a running database backend, and by the pgtest
// package, which emulates one in-process.
//
// A Host is only used from the goroutine serving the current call.
type Host interface {
	// Alloc returns size bytes of zeroed memory allocated in the current
	// memory context of the database (as palloc0 does). The memory stays
	// valid after the current call returns, until the context is reset.
	Alloc(size int) unsafe.Pointer
	//
	// Detoast returns a pointer to a plain in-line copy of a compressed or
	// out-of-line varlena value.
	Detoast(d Datum) unsafe.Pointer
	//
	// Output renders d as text with the output function of type typ.
	Output(typ Oid, d Datum) string
	//
	// Input parses text with the input function of type typ.
	Input(typ Oid, text string, typmod int32) Datum
	//
	// FormTuple builds a new heap tuple from values and nulls laid out
	// according to desc, in the current memory context.
	FormTuple(desc *TupleDesc, values []Datum, nulls []bool) HeapTuple
}

var currentHost Host = unboundHost{}

// SetHost binds the host used by the conversion and row access layers and
// returns the previously bound one. This is meant to be called by the host
// package at load time, and by the pgtest package around each call.
func SetHost(h Host) Host {
	if h == nil {
		panic("pgext-sdk-go/sdk.SetHost: h must not be nil")
	}
	prev := currentHost
	currentHost = h
	return prev
}

// CurrentHost returns the currently bound host.
func CurrentHost() Host {
	return currentHost
}

type unboundHost struct{}

const unboundHostMsg = "pgext-sdk-go/sdk: no host is bound, was the extension loaded by the database?"

func (unboundHost) Alloc(int) unsafe.Pointer {
	panic(unboundHostMsg)
}

func (unboundHost) Detoast(Datum) unsafe.Pointer {
	panic(unboundHostMsg)
}

func (unboundHost) Output(Oid, Datum) string {
	panic(unboundHostMsg)
}

func (unboundHost) Input(Oid, string, int32) Datum {
	panic(unboundHostMsg)
}

func (unboundHost) FormTuple(*TupleDesc, []Datum, []bool) HeapTuple {
	panic(unboundHostMsg)
}
