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
	"github.com/pgext/extension-sdk-go/pkg/cgo"
	"github.com/pgext/extension-sdk-go/pkg/sdk"
)

// Argument is an argument of an emulated function call.
type Argument struct {
	sdk.NullableDatum
	Type sdk.Oid
}

// Arg converts v with c into an argument of type c.TypeOid().
func Arg[T any](c sdk.Converter[T], v T) Argument {
	return Argument{NullableDatum: Value(c, v), Type: c.TypeOid()}
}

// NullArg returns a NULL argument of type typ.
func NullArg(typ sdk.Oid) Argument {
	return Argument{NullableDatum: Null, Type: typ}
}

// CallSite emulates the FmgrInfo of a function call in a query, that
// persists across the calls made while the query runs.
type CallSite struct {
	extra cgo.Handle
}

// Reset releases the value stored in fn_extra, as happens when the memory
// context of the query is reset.
func (s *CallSite) Reset() {
	if s.extra != 0 {
		s.extra.Delete()
		s.extra = 0
	}
}

// CallInfo emulates the FunctionCallInfo of a call. It implements
// sdk.FunctionCallInfo.
type CallInfo struct {
	args    []Argument
	trigger sdk.TriggerData
	site    *CallSite
	isNull  bool
}

// NewCall returns the call info of a call with the given arguments, made
// from a new call site.
func NewCall(args ...Argument) *CallInfo {
	return &CallInfo{args: args, site: &CallSite{}}
}

// WithTrigger makes the call a trigger call with the given context.
func (c *CallInfo) WithTrigger(td sdk.TriggerData) *CallInfo {
	c.trigger = td
	return c
}

// WithCallSite makes the call share fn_extra with other calls from site.
func (c *CallInfo) WithCallSite(site *CallSite) *CallInfo {
	c.site = site
	return c
}

func (c *CallInfo) NArgs() int {
	return len(c.args)
}

func (c *CallInfo) Arg(i int) (sdk.Datum, bool) {
	return c.args[i].Value, c.args[i].IsNull
}

func (c *CallInfo) ArgType(i int) sdk.Oid {
	if i < 0 || i >= len(c.args) {
		return sdk.InvalidOid
	}
	return c.args[i].Type
}

func (c *CallInfo) CalledAsTrigger() bool {
	return c.trigger != nil
}

func (c *CallInfo) TriggerContext() sdk.TriggerData {
	return c.trigger
}

func (c *CallInfo) SetReturnNull() {
	c.isNull = true
}

// IsNull returns true if the function marked its result as NULL.
func (c *CallInfo) IsNull() bool {
	return c.isNull
}

func (c *CallInfo) Extra() interface{} {
	if c.site.extra == 0 {
		return nil
	}
	return c.site.extra.Value()
}

func (c *CallInfo) SetExtra(v interface{}) {
	if c.site.extra == 0 {
		c.site.extra = cgo.NewHandle(v)
		return
	}
	c.site.extra.Set(v)
}

// Call invokes fn as the database would, and returns its result and
// null flag. Aborted calls return an *sdk.AbortError.
func Call(fn sdk.Func, fcinfo *CallInfo) (sdk.Datum, bool, error) {
	fcinfo.isNull = false
	res, err := sdk.Invoke(fn, fcinfo)
	if err != nil {
		return 0, false, err
	}
	return res, fcinfo.isNull, nil
}
