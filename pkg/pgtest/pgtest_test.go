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
	"testing"

	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgext/extension-sdk-go/pkg/sdk"
	"github.com/pgext/extension-sdk-go/pkg/sdk/elog"
)

func TestArena(t *testing.T) {
	a := NewArena()
	for _, size := range []int{0, 1, 7, 8, 13} {
		p := a.Alloc(size)
		assert.Zero(t, uintptr(p)%8, "allocation of %d bytes is not aligned", size)
	}
	assert.Equal(t, 8+8+8+8+16, a.Allocated())
	a.Reset()
	assert.Zero(t, a.Allocated())
	assert.Panics(t, func() { a.Alloc(-1) })
}

func TestEnvBindsHost(t *testing.T) {
	prev := sdk.CurrentHost()
	env := New(t)
	assert.Same(t, env.Arena, sdk.CurrentHost())
	elog.Warnf("hello %s", "world")
	assert.Equal(t, []string{"hello world"}, env.Log.Messages(elog.Warning))

	env.Close()
	assert.Equal(t, prev, sdk.CurrentHost())
	env.Close()
}

func TestRowAndTupleAt(t *testing.T) {
	env := New(t)
	rel := NewRelation("r", Col("a", oid.T_int4), Col("b", oid.T_text))
	row := env.Row(rel.Desc, Value(sdk.Int4, 5), Null)

	d, isNull := row.Attr(1)
	assert.False(t, isNull)
	v, _ := sdk.FromDatum(sdk.Int4, d, isNull)
	assert.Equal(t, int32(5), v)

	_, isNull = row.Attr(2)
	assert.True(t, isNull)
	_, isNull = row.Attr(3)
	assert.True(t, isNull)

	ht, err := TupleAt(row.Datum())
	require.NoError(t, err)
	assert.Equal(t, row.Datum(), ht.Datum())

	_, err = TupleAt(0)
	assert.Error(t, err)
	other, _ := sdk.IntoDatum(sdk.Text, "not a tuple")
	_, err = TupleAt(other)
	assert.Error(t, err)

	assert.Panics(t, func() { env.Row(rel.Desc, Null) })
}

func TestFormTupleCopiesValues(t *testing.T) {
	env := New(t)
	rel := NewRelation("r", Col("b", oid.T_text))
	src, _ := sdk.IntoDatum(sdk.Text, "value")
	row := env.Row(rel.Desc, sdk.NullableDatum{Value: src})

	d, _ := row.Attr(1)
	assert.NotEqual(t, src, d)
	v, _ := sdk.FromDatum(sdk.Text, d, false)
	assert.Equal(t, "value", v)
}

func TestTypeIO(t *testing.T) {
	env := New(t)
	a := env.Arena

	tests := []struct {
		typ sdk.Oid
		in  string
		out string
	}{
		{oid.T_bool, "true", "t"},
		{oid.T_int2, "-12", "-12"},
		{oid.T_int4, " 42", "42"},
		{oid.T_int8, "9007199254740993", "9007199254740993"},
		{oid.T_float8, "1.5", "1.5"},
		{oid.T_oid, "16384", "16384"},
		{oid.T_text, "some text", "some text"},
		{oid.T_json, `{"b":1, "a":2}`, `{"b":1, "a":2}`},
		{oid.T_jsonb, `{"b":1, "a":2}`, `{"a": 2, "b": 1}`},
		{oid.T_uuid, "A0EEBC99-9C0B-4EF8-BB6D-6BB9BD380A11", "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"},
	}
	for _, tt := range tests {
		t.Run(sdk.TypeName(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.out, a.Output(tt.typ, a.Input(tt.typ, tt.in, -1)))
		})
	}

	d, _ := sdk.IntoDatum(sdk.Bytea, []byte{0xde, 0xad})
	assert.Equal(t, `\xdead`, a.Output(oid.T_bytea, d))

	assert.Panics(t, func() { a.Output(oid.T_point, 0) })
}

func TestTypeInputErrors(t *testing.T) {
	env := New(t)

	for _, tt := range []struct {
		typ sdk.Oid
		in  string
	}{
		{oid.T_int2, "70000"},
		{oid.T_int4, "abc"},
		{oid.T_bool, "maybe"},
		{oid.T_jsonb, `{"a":`},
		{oid.T_jsonb, `{} {}`},
		{oid.T_uuid, "nope"},
	} {
		func() {
			defer func() {
				r := recover()
				abortErr, ok := r.(*sdk.AbortError)
				if !ok {
					t.Errorf("expected *sdk.AbortError, but found %T", r)
					return
				}
				assert.Equal(t, sdk.CodeInvalidTextRepr, abortErr.Code)
			}()
			env.Arena.Input(tt.typ, tt.in, -1)
		}()
	}
}

func TestNormalizeJSONB(t *testing.T) {
	tests := map[string]string{
		`{"aaa":1,"b":2,"aa":3}`:     `{"b": 2, "aa": 3, "aaa": 1}`,
		`[1,{"x":[]},"<&>"]`:         `[1, {"x": []}, "<&>"]`,
		` 12.50 `:                    `12.50`,
		`{"k":{"z":null,"y":false}}`: `{"k": {"y": false, "z": null}}`,
	}
	for in, out := range tests {
		res, err := NormalizeJSONB(in)
		assert.NoError(t, err)
		assert.Equal(t, out, res)
	}
	_, err := NormalizeJSONB("")
	assert.Error(t, err)
}

func TestToast(t *testing.T) {
	a := NewArena()
	prev := sdk.SetHost(a)
	defer sdk.SetHost(prev)

	d := a.Toast([]byte("payload"))
	assert.Equal(t, byte(varTag1BExternal), *(*byte)(d.Pointer()))
	v, ok := sdk.FromDatum(sdk.Text, d, false)
	assert.True(t, ok)
	assert.Equal(t, "payload", v)

	assert.Panics(t, func() { a.Detoast(a.Short([]byte("x"))) })
	assert.Panics(t, func() { a.Short(make([]byte, 200)) })
}

func TestRelation(t *testing.T) {
	rel := NewRelation("r", Col("a", oid.T_int8), DroppedCol(oid.T_uuid), Column{Name: "c", Type: oid.T_text, NotNull: true})
	assert.Equal(t, "public", rel.Namespace)
	require.Len(t, rel.Desc.Attrs, 3)
	assert.Equal(t, sdk.Attribute{Name: "a", TypeOid: oid.T_int8, TypMod: -1, Len: 8, ByVal: true}, rel.Desc.Attrs[0])
	assert.True(t, rel.Desc.Attrs[1].Dropped)
	assert.Equal(t, "........pg.dropped.2........", rel.Desc.Attrs[1].Name)
	assert.Equal(t, int16(-1), rel.Desc.Attrs[2].Len)
	assert.True(t, rel.Desc.Attrs[2].NotNull)
	assert.NotEqual(t, rel.Oid, NewRelation("r").Oid)
	assert.Panics(t, func() { NewRelation("bad", Col("p", oid.T_point)) })
}
