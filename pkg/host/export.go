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
	"errors"
	"fmt"
	"unsafe"

	"github.com/pgext/extension-sdk-go/pkg/cgo"
	"github.com/pgext/extension-sdk-go/pkg/ptr"
	"github.com/pgext/extension-sdk-go/pkg/sdk"
	"github.com/pgext/extension-sdk-go/pkg/sdk/elog"
	"github.com/pgext/extension-sdk-go/pkg/sdk/extension"
	"github.com/pgext/extension-sdk-go/pkg/sdk/magic"
)

var (
	current = newBackend()
	// names caches the Go copies of the function names, that are
	// string literals of the C shims.
	names = map[*C.char]string{}
)

//export pgext_extension_name
func pgext_extension_name() *C.char {
	e := extension.Registered()
	if e == nil {
		return nil
	}
	return pstrdup(e.Info().Name)
}

//export pgext_init
func pgext_init(m *C.PgextMagic, config *C.char, err *C.PgextError) {
	sdk.SetHost(current)
	elog.Setup(elogSink{}, bool(C.pgext_debug_enabled()))

	magic.Set(magic.Block{
		Version:      int(m.version),
		FuncMaxArgs:  int(m.funcmaxargs),
		IndexMaxKeys: int(m.indexmaxkeys),
		NameDataLen:  int(m.namedatalen),
		Float8ByVal:  bool(m.float8byval),
		DatumSize:    int(m.datumsize),
		ABIExtra:     ptr.GoString(unsafe.Pointer(m.abi_extra)),
	})
	if e := extension.Load(C.GoString(config)); e != nil {
		toPgError(&sdk.AbortError{
			Code:    sdk.CodeObjectNotInPrereqState,
			Message: fmt.Sprintf("could not initialize extension: %s", e),
		}, err)
	}
}

//export pgext_call
func pgext_call(name *C.char, fcinfo C.FunctionCallInfo, res *C.PgextResult) {
	defer current.endCall()

	fn, ok := names[name]
	if !ok {
		fn = C.GoString(name)
		names[name] = fn
	}
	c := &callInfo{fcinfo: fcinfo, backend: current}
	d, err := extension.Call(fn, c)
	if err != nil {
		var abortErr *sdk.AbortError
		if !errors.As(err, &abortErr) {
			abortErr = &sdk.AbortError{Code: sdk.CodeInternalError, Message: err.Error()}
		}
		toPgError(abortErr, &res.error)
		return
	}
	res.value = C.Datum(d)
	res.isnull = C.bool(c.isNull)
}

//export pgext_release_extra
func pgext_release_extra(h C.uintptr_t) {
	if h != 0 {
		cgo.Handle(h).Delete()
	}
}
