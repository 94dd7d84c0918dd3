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

// Package pgtest emulates the database host in-process, so that extension
// functions can be tested with "go test" without a running server.
//
// The emulation covers what the SDK needs from the host: a memory context
// (Arena), a heap tuple format, type I/O for the built-in types, trigger
// contexts, function call infos with fn_extra, and the log facility. A
// typical test looks like:
//
//	env := pgtest.New(t)
//	rel := pgtest.NewRelation("test", pgtest.Col("id", oid.T_int8))
//	row := env.Row(rel.Desc, pgtest.Value(sdk.Int8, 1))
//	td := pgtest.NewTriggerData(sdk.TriggerEventBefore|sdk.TriggerEventInsert|sdk.TriggerEventRow, rel, row, nil)
//	res, isNull, err := pgtest.Call(myTrigger, pgtest.NewCall().WithTrigger(td))
package pgtest

import (
	"testing"

	"github.com/pgext/extension-sdk-go/pkg/sdk"
	"github.com/pgext/extension-sdk-go/pkg/sdk/elog"
)

// Env is an emulated backend, bound as the host of the SDK for the
// duration of a test.
type Env struct {
	Arena *Arena
	Log   *elog.Recorder

	prevHost sdk.Host
	prevLog  *elog.Logger
}

// New creates an Env and binds it as the host and the log sink of the SDK.
// The previous bindings are restored when the test ends. Tests using an
// Env must not run in parallel.
func New(t testing.TB) *Env {
	e := &Env{Arena: NewArena(), Log: &elog.Recorder{}}
	e.prevHost = sdk.SetHost(e.Arena)
	e.prevLog = elog.Setup(e.Log, true)
	t.Cleanup(e.Close)
	return e
}

// Close restores the host and the log sink that were bound before New.
func (e *Env) Close() {
	if e.prevHost == nil {
		return
	}
	sdk.SetHost(e.prevHost)
	elog.SetDefault(e.prevLog)
	e.prevHost = nil
	e.prevLog = nil
}

// Row forms a heap tuple laid out as desc. Values are positional, and
// dropped columns must be given as Null.
func (e *Env) Row(desc *sdk.TupleDesc, values ...sdk.NullableDatum) sdk.HeapTuple {
	if len(values) != desc.NumAttrs() {
		panic("pgext-sdk-go/pgtest: the number of values does not match the row layout")
	}
	datums := make([]sdk.Datum, len(values))
	nulls := make([]bool, len(values))
	for i, v := range values {
		datums[i] = v.Value
		nulls[i] = v.IsNull
	}
	return e.Arena.FormTuple(desc, datums, nulls)
}

// Value converts v with c, in the memory of the bound host.
func Value[T any](c sdk.Converter[T], v T) sdk.NullableDatum {
	d, ok := c.IntoDatum(v)
	return sdk.NullableDatum{Value: d, IsNull: !ok}
}

// Null is the SQL NULL value.
var Null = sdk.NullableDatum{IsNull: true}
