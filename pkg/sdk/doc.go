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

// Package sdk provides definitions and constructs for developers that
// would like to write PostgreSQL extensions (https://www.postgresql.org/docs/current/xfunc-c.html)
// in Go.
//
// The package is divided in two cooperating layers. The Datum conversion
// layer (Datum, Converter and the built-in converters such as Int8, Text
// and JSONB) translates the untyped, nullable values owned by the database
// into typed Go values and back. The row access layer (TriggerData, Tuple
// and OwnedTuple) is built on top of it and exposes trigger invocations and
// their row images with field access by ordinal or by column name.
//
// Every raw reinterpretation of Datum bits happens in the conversion layer.
// The rest of the SDK, and extension code, only go through the typed entry
// points.
//
// Extension functions are plain Go functions of type Func. They are bound
// to the C calling convention of the database by the host package, and can
// be unit tested in-process with the pgtest package.
package sdk
