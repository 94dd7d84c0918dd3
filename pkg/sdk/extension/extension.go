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

// Package extension registers a Go extension and its functions, so that the
// host binding can initialize it and dispatch calls to it.
//
// An extension registers itself and its functions from an init function:
//
//	func init() {
//		extension.Register(&myExtension{})
//		extension.Func("my_trigger", myTrigger, extension.Signature{Returns: oid.T_trigger})
//	}
//
// and exports each function to the database with the PGEXT_FUNCTION macro
// of the host binding.
package extension

import (
	"github.com/pgext/extension-sdk-go/pkg/sdk"
)

// Info describes an extension, as in its control file.
type Info struct {
	Name        string
	Version     string
	Description string
	Requires    []string
	Schema      string
	Relocatable bool
	Trusted     bool
}

// Extension is implemented by all extensions.
type Extension interface {
	Info() *Info
	// Init is called once per backend when the library is loaded, with the
	// JSON configuration set in the <name>.config setting.
	Init(config string) error
}

// SchemaInfo describes the configuration accepted by an extension.
type SchemaInfo struct {
	// Schema is a JSON Schema document.
	Schema string
}

// InitSchema is an optional interface that extensions can implement to
// have their configuration validated before Init is called.
type InitSchema interface {
	InitSchema() *SchemaInfo
}

// Volatility is the volatility category of a function.
type Volatility string

const (
	Volatile  Volatility = "volatile"
	Stable    Volatility = "stable"
	Immutable Volatility = "immutable"
)

// Signature describes the SQL signature of a function.
type Signature struct {
	Args    []sdk.Oid
	Returns sdk.Oid
	// Strict functions are not called when any argument is NULL, and
	// return NULL instead.
	Strict     bool
	Volatility Volatility
}

// Function is a registered extension function.
type Function struct {
	Name      string
	Fn        sdk.Func
	Signature Signature
}
