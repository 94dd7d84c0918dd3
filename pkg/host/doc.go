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

// Package host binds the SDK to a running database backend through cgo.
//
// The package is only built with the "pgext" build tag, and must be
// compiled against the server headers:
//
//	CGO_CFLAGS="-I$(pg_config --includedir-server)" go build -tags pgext -buildmode=c-shared -o my_ext.so .
//
// An extension library imports this package for its side effects, and
// declares its functions in a C file of its main package:
//
//	#include "pgext.h"
//
//	PGEXT_MODULE();
//	PGEXT_FUNCTION(my_trigger);
//
// Each call of my_trigger is dispatched to the Go function registered
// with extension.Func("my_trigger", ...). Errors raised by Go code are
// reported with ereport(ERROR) once the Go call has returned, and errors
// raised by the database while serving the SDK are turned into aborts of
// the Go call, so that no longjmp ever crosses Go frames.
//
// The Go runtime starts when the library is loaded. Libraries must be
// loaded by each backend, and never through shared_preload_libraries,
// as the runtime does not survive the fork of the postmaster.
package host
