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
	"encoding/json"
	"unsafe"

	"github.com/google/uuid"
	"github.com/lib/pq/oid"

	"github.com/pgext/extension-sdk-go/pkg/ptr"
)

type textConverter struct {
	alias bool
}

func (t *textConverter) TypeOid() Oid {
	return oid.T_text
}

func (t *textConverter) Accepts(typ Oid) bool {
	return acceptsAny(typ, oid.T_text, oid.T_varchar, oid.T_bpchar)
}

func (t *textConverter) FromDatum(d Datum, isNull bool, typ Oid) (string, bool) {
	if isNull {
		return "", false
	}
	b := varlenaBytes(d)
	if t.alias {
		return unsafe.String(unsafe.SliceData(b), len(b)), true
	}
	return string(b), true
}

func (t *textConverter) IntoDatum(v string) (Datum, bool) {
	return newVarlenaString(v), true
}

type byteaConverter struct{}

func (byteaConverter) TypeOid() Oid {
	return oid.T_bytea
}

func (byteaConverter) Accepts(typ Oid) bool {
	return typ == oid.T_bytea
}

func (byteaConverter) FromDatum(d Datum, isNull bool, typ Oid) ([]byte, bool) {
	if isNull {
		return nil, false
	}
	b := varlenaBytes(d)
	res := make([]byte, len(b))
	copy(res, b)
	return res, true
}

func (byteaConverter) IntoDatum(v []byte) (Datum, bool) {
	if v == nil {
		return 0, false
	}
	return newVarlena(v), true
}

type jsonConverter struct{}

func (jsonConverter) TypeOid() Oid {
	return oid.T_json
}

func (jsonConverter) Accepts(typ Oid) bool {
	return typ == oid.T_json
}

func (jsonConverter) FromDatum(d Datum, isNull bool, typ Oid) (json.RawMessage, bool) {
	if isNull {
		return nil, false
	}
	b := varlenaBytes(d)
	res := make(json.RawMessage, len(b))
	copy(res, b)
	return res, true
}

func (jsonConverter) IntoDatum(v json.RawMessage) (Datum, bool) {
	if v == nil {
		return 0, false
	}
	if !json.Valid(v) {
		Abortf(CodeInvalidTextRepr, "invalid input syntax for type json")
	}
	return newVarlena(v), true
}

// jsonbConverter goes through the type I/O functions of the host, as the
// binary layout of jsonb is private to the database.
type jsonbConverter struct{}

func (jsonbConverter) TypeOid() Oid {
	return oid.T_jsonb
}

func (jsonbConverter) Accepts(typ Oid) bool {
	return typ == oid.T_jsonb
}

func (jsonbConverter) FromDatum(d Datum, isNull bool, typ Oid) (json.RawMessage, bool) {
	if isNull {
		return nil, false
	}
	return json.RawMessage(currentHost.Output(oid.T_jsonb, d)), true
}

func (jsonbConverter) IntoDatum(v json.RawMessage) (Datum, bool) {
	if v == nil {
		return 0, false
	}
	if !json.Valid(v) {
		Abortf(CodeInvalidTextRepr, "invalid input syntax for type jsonb")
	}
	return currentHost.Input(oid.T_jsonb, string(v), -1), true
}

type uuidConverter struct{}

func (uuidConverter) TypeOid() Oid {
	return oid.T_uuid
}

func (uuidConverter) Accepts(typ Oid) bool {
	return typ == oid.T_uuid
}

func (uuidConverter) FromDatum(d Datum, isNull bool, typ Oid) (uuid.UUID, bool) {
	if isNull {
		return uuid.Nil, false
	}
	if d == 0 {
		violation("unexpected NULL pointer for a uuid datum")
	}
	var res uuid.UUID
	copy(res[:], ptr.Bytes(d.Pointer(), len(res)))
	return res, true
}

func (uuidConverter) IntoDatum(v uuid.UUID) (Datum, bool) {
	return newFixedLen(unsafe.Pointer(&v[0]), len(v)), true
}

var (
	// Text converts text, varchar and char values into Go-owned strings.
	Text Converter[string] = &textConverter{}

	// TextRef converts text, varchar and char values into strings that
	// alias the memory of the database. No data is copied, and the returned
	// strings must not be retained after the current call returns.
	TextRef Converter[string] = &textConverter{alias: true}

	// Bytea converts bytea values. A nil slice converts to SQL NULL.
	Bytea Converter[[]byte] = byteaConverter{}

	// JSON converts json values. A nil message converts to SQL NULL.
	JSON Converter[json.RawMessage] = jsonConverter{}

	// JSONB converts jsonb values. A nil message converts to SQL NULL.
	JSONB Converter[json.RawMessage] = jsonbConverter{}

	// UUID converts uuid values.
	UUID Converter[uuid.UUID] = uuidConverter{}
)
