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
#cgo linux LDFLAGS: -Wl,--unresolved-symbols=ignore-all
#cgo darwin LDFLAGS: -Wl,-undefined,dynamic_lookup
#include <stdlib.h>
#include "pgext.h"
*/
import "C"
import (
	"unsafe"

	"github.com/lib/pq"

	"github.com/pgext/extension-sdk-go/pkg/sdk"
)

// backend implements sdk.Host on top of the memory contexts and the type
// system of the running backend.
type backend struct {
	// descs maps the row layouts handed to Go during the current call to
	// the ones of the database.
	descs map[*sdk.TupleDesc]C.TupleDesc
}

func newBackend() *backend {
	return &backend{descs: make(map[*sdk.TupleDesc]C.TupleDesc)}
}

// endCall forgets the state of the current call.
func (b *backend) endCall() {
	clear(b.descs)
}

func (b *backend) Alloc(size int) unsafe.Pointer {
	var err C.PgextError
	p := C.pgext_alloc(C.Size(size), &err)
	check(&err)
	return p
}

func (b *backend) Detoast(d sdk.Datum) unsafe.Pointer {
	var err C.PgextError
	p := C.pgext_detoast(C.Datum(d), &err)
	check(&err)
	return p
}

func (b *backend) Output(typ sdk.Oid, d sdk.Datum) string {
	var err C.PgextError
	s := C.pgext_output(C.Oid(typ), C.Datum(d), &err)
	check(&err)
	return C.GoString(s)
}

func (b *backend) Input(typ sdk.Oid, text string, typmod int32) sdk.Datum {
	var err C.PgextError
	cs := C.CString(text)
	defer C.free(unsafe.Pointer(cs))
	d := C.pgext_input(C.Oid(typ), cs, C.int32(typmod), &err)
	check(&err)
	return sdk.Datum(d)
}

func (b *backend) FormTuple(desc *sdk.TupleDesc, values []sdk.Datum, nulls []bool) sdk.HeapTuple {
	cdesc, ok := b.descs[desc]
	if !ok {
		sdk.Abortf(sdk.CodeInternalError, "pgext-sdk-go/host: unknown row layout")
	}
	var vp *C.Datum
	var np *C.bool
	if len(values) > 0 {
		vp = (*C.Datum)(unsafe.Pointer(&values[0]))
		np = (*C.bool)(unsafe.Pointer(&nulls[0]))
	}
	var err C.PgextError
	t := C.pgext_form_tuple(cdesc, vp, np, &err)
	check(&err)
	return &heapTuple{tuple: t, desc: cdesc}
}

// tupleDesc converts a row layout of the database, and remembers it for
// FormTuple.
func (b *backend) tupleDesc(cdesc C.TupleDesc) *sdk.TupleDesc {
	for d, c := range b.descs {
		if c == cdesc {
			return d
		}
	}
	n := int(cdesc.natts)
	desc := &sdk.TupleDesc{TypeOid: sdk.Oid(cdesc.tdtypeid), Attrs: make([]sdk.Attribute, n)}
	for i := 0; i < n; i++ {
		attr := C.pgext_tupdesc_attr(cdesc, C.int(i))
		desc.Attrs[i] = sdk.Attribute{
			Name:    C.GoString(&attr.attname.data[0]),
			TypeOid: sdk.Oid(attr.atttypid),
			TypMod:  int32(attr.atttypmod),
			Len:     int16(attr.attlen),
			ByVal:   bool(attr.attbyval),
			NotNull: bool(attr.attnotnull),
			Dropped: bool(attr.attisdropped),
		}
	}
	b.descs[desc] = cdesc
	return desc
}

type heapTuple struct {
	tuple C.HeapTuple
	desc  C.TupleDesc
}

func (t *heapTuple) Datum() sdk.Datum {
	return sdk.PointerDatum(unsafe.Pointer(t.tuple))
}

func (t *heapTuple) Attr(attno int) (sdk.Datum, bool) {
	var isNull C.bool
	d := C.pgext_getattr(t.tuple, C.int(attno), t.desc, &isNull)
	return sdk.Datum(d), bool(isNull)
}

// check aborts the current call if err holds an error raised by the
// database.
func check(err *C.PgextError) {
	if err.sqlerrcode == 0 {
		return
	}
	panic(fromPgError(err))
}

func fromPgError(err *C.PgextError) *sdk.AbortError {
	res := &sdk.AbortError{
		Code:    pq.ErrorCode(C.GoString(C.pgext_unpack_sql_state(err.sqlerrcode))),
		Message: C.GoString(err.message),
	}
	if err.detail != nil {
		res.Detail = C.GoString(err.detail)
	}
	if err.hint != nil {
		res.Hint = C.GoString(err.hint)
	}
	return res
}

// toPgError fills err with a copy of e allocated in the current memory
// context.
func toPgError(e *sdk.AbortError, err *C.PgextError) {
	code := []byte(e.Code)
	if len(code) != 5 {
		code = []byte(sdk.CodeInternalError)
	}
	// MAKE_SQLSTATE
	var sqlerrcode C.int
	for i, ch := range code {
		sqlerrcode |= C.int((ch-'0')&0x3F) << (6 * i)
	}
	err.sqlerrcode = sqlerrcode
	err.message = pstrdup(e.Message)
	if e.Detail != "" {
		err.detail = pstrdup(e.Detail)
	}
	if e.Hint != "" {
		err.hint = pstrdup(e.Hint)
	}
}

func pstrdup(s string) *C.char {
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	return C.pgext_pstrdup(cs)
}
