//go:build pgext

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

package host

/*
#include "pgext.h"
*/
import "C"
import (
	"github.com/pgext/extension-sdk-go/pkg/cgo"
	"github.com/pgext/extension-sdk-go/pkg/sdk"
)

// callInfo wraps the FunctionCallInfo of a call, and implements
// sdk.FunctionCallInfo.
type callInfo struct {
	fcinfo  C.FunctionCallInfo
	backend *backend
	isNull  bool
	trigger sdk.TriggerData
}

func (c *callInfo) NArgs() int {
	return int(c.fcinfo.nargs)
}

func (c *callInfo) Arg(i int) (sdk.Datum, bool) {
	var isNull C.bool
	d := C.pgext_arg(c.fcinfo, C.int(i), &isNull)
	return sdk.Datum(d), bool(isNull)
}

func (c *callInfo) ArgType(i int) sdk.Oid {
	return sdk.Oid(C.pgext_arg_type(c.fcinfo, C.int(i)))
}

func (c *callInfo) CalledAsTrigger() bool {
	return bool(C.pgext_called_as_trigger(c.fcinfo))
}

func (c *callInfo) TriggerContext() sdk.TriggerData {
	if !c.CalledAsTrigger() {
		return nil
	}
	if c.trigger == nil {
		c.trigger = newTriggerData(c.backend, C.pgext_trigger_data(c.fcinfo))
	}
	return c.trigger
}

func (c *callInfo) SetReturnNull() {
	c.isNull = true
}

func (c *callInfo) Extra() interface{} {
	h := cgo.Handle(C.pgext_get_extra(c.fcinfo))
	if h == 0 {
		return nil
	}
	return h.Value()
}

func (c *callInfo) SetExtra(v interface{}) {
	if h := cgo.Handle(C.pgext_get_extra(c.fcinfo)); h != 0 {
		h.Set(v)
		return
	}
	h := cgo.NewHandle(v)
	var err C.PgextError
	C.pgext_set_extra(c.fcinfo, C.uintptr_t(h), &err)
	if err.sqlerrcode != 0 {
		h.Delete()
		check(&err)
	}
}
