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
	"fmt"
)

// FunctionCallInfo is an high-level abstraction over the call information
// the database passes to every extension function (FunctionCallInfo in
// fmgr.h), providing methods for accessing it in a Go-friendly way.
type FunctionCallInfo interface {
	// NArgs returns the number of arguments actually passed.
	NArgs() int
	//
	// Arg returns the raw value of the i-th argument (0-based) and its
	// null flag.
	Arg(i int) (Datum, bool)
	//
	// ArgType returns the actual type of the i-th argument, as resolved
	// by the planner, or InvalidOid if it is not known.
	ArgType(i int) Oid
	//
	// CalledAsTrigger returns true if the function has been invoked by
	// the trigger manager.
	CalledAsTrigger() bool
	//
	// TriggerContext returns the trigger data of the call. It returns nil
	// unless CalledAsTrigger is true. Extension code should use
	// TriggerDataOf or MustTriggerData instead.
	TriggerContext() TriggerData
	//
	// SetReturnNull marks the result of the call as SQL NULL.
	SetReturnNull()
	//
	// Extra returns the value stored with SetExtra by a previous call of
	// the same function at the same call site, or nil.
	Extra() interface{}
	//
	// SetExtra stores a value that survives across calls at the same
	// call site (fn_extra), until the end of the query.
	SetExtra(v interface{})
}

// Arg returns the i-th argument (0-based) converted with c. The second
// return value is false if the argument is NULL.
func Arg[T any](fcinfo FunctionCallInfo, i int, c Converter[T]) (T, bool, error) {
	var zero T
	if i < 0 || i >= fcinfo.NArgs() {
		return zero, false, fmt.Errorf("%w: %d", ErrNoSuchArgument, i)
	}
	typ := fcinfo.ArgType(i)
	if typ == InvalidOid {
		typ = c.TypeOid()
	} else if err := checkAccepts(c, typ); err != nil {
		return zero, false, fmt.Errorf("argument %d: %w", i, err)
	}
	d, isNull := fcinfo.Arg(i)
	v, ok := c.FromDatum(d, isNull, typ)
	return v, ok, nil
}

// MustArg is like Arg, but aborts the current call on failure.
func MustArg[T any](fcinfo FunctionCallInfo, i int, c Converter[T]) (T, bool) {
	v, ok, err := Arg(fcinfo, i, c)
	if err != nil {
		Abort(err)
	}
	return v, ok
}

// ReturnNull marks the result of the call as SQL NULL.
func ReturnNull(fcinfo FunctionCallInfo) Datum {
	fcinfo.SetReturnNull()
	return 0
}

// Return converts v with c and returns it as the result of the call,
// marking the result as SQL NULL if v represents NULL.
func Return[T any](fcinfo FunctionCallInfo, c Converter[T], v T) Datum {
	d, ok := c.IntoDatum(v)
	if !ok {
		return ReturnNull(fcinfo)
	}
	return d
}
