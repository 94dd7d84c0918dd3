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
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq/oid"

	"github.com/pgext/extension-sdk-go/pkg/sdk"
)

// typeInfo is the storage information of a type (typlen and typbyval of
// pg_type).
type typeInfo struct {
	len   int16
	byVal bool
}

var types = map[sdk.Oid]typeInfo{
	oid.T_bool:        {1, true},
	oid.T_char:        {1, true},
	oid.T_int2:        {2, true},
	oid.T_int4:        {4, true},
	oid.T_int8:        {8, true},
	oid.T_float4:      {4, true},
	oid.T_float8:      {8, true},
	oid.T_oid:         {4, true},
	oid.T_regclass:    {4, true},
	oid.T_regproc:     {4, true},
	oid.T_regtype:     {4, true},
	oid.T_date:        {4, true},
	oid.T_timestamp:   {8, true},
	oid.T_timestamptz: {8, true},
	oid.T_uuid:        {16, false},
	oid.T_name:        {64, false},
	oid.T_cstring:     {-2, false},
	oid.T_text:        {-1, false},
	oid.T_varchar:     {-1, false},
	oid.T_bpchar:      {-1, false},
	oid.T_bytea:       {-1, false},
	oid.T_json:        {-1, false},
	oid.T_jsonb:       {-1, false},
	oid.T_numeric:     {-1, false},
}

func lookupType(typ sdk.Oid) typeInfo {
	info, ok := types[typ]
	if !ok {
		panic(fmt.Sprintf("pgext-sdk-go/pgtest: type %s is not supported", sdk.TypeName(typ)))
	}
	return info
}

// Output renders d with the text output function of typ.
func (a *Arena) Output(typ sdk.Oid, d sdk.Datum) string {
	prev := sdk.SetHost(a)
	defer sdk.SetHost(prev)

	switch typ {
	case oid.T_bool:
		if v, _ := sdk.FromDatum(sdk.Bool, d, false); v {
			return "t"
		}
		return "f"
	case oid.T_int2:
		v, _ := sdk.FromDatum(sdk.Int2, d, false)
		return strconv.FormatInt(int64(v), 10)
	case oid.T_int4:
		v, _ := sdk.FromDatum(sdk.Int4, d, false)
		return strconv.FormatInt(int64(v), 10)
	case oid.T_int8:
		v, _ := sdk.FromDatum(sdk.Int8, d, false)
		return strconv.FormatInt(v, 10)
	case oid.T_float4:
		v, _ := sdk.FromDatum(sdk.Float4, d, false)
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case oid.T_float8:
		v, _ := sdk.FromDatum(sdk.Float8, d, false)
		return strconv.FormatFloat(v, 'g', -1, 64)
	case oid.T_oid:
		v, _ := sdk.FromDatum(sdk.ObjectID, d, false)
		return strconv.FormatUint(uint64(v), 10)
	case oid.T_text, oid.T_varchar, oid.T_bpchar, oid.T_json, oid.T_jsonb:
		return string(payload(d))
	case oid.T_bytea:
		return `\x` + hex.EncodeToString(payload(d))
	case oid.T_uuid:
		v, _ := sdk.FromDatum(sdk.UUID, d, false)
		return v.String()
	case oid.T_date:
		v, _ := sdk.FromDatum(sdk.Date, d, false)
		return v.Format("2006-01-02")
	case oid.T_timestamp:
		v, _ := sdk.FromDatum(sdk.Timestamp, d, false)
		return v.Format("2006-01-02 15:04:05.999999")
	case oid.T_timestamptz:
		v, _ := sdk.FromDatum(sdk.TimestampTZ, d, false)
		return v.Format("2006-01-02 15:04:05.999999-07")
	default:
		panic(fmt.Sprintf("pgext-sdk-go/pgtest: no output function for type %s", sdk.TypeName(typ)))
	}
}

// Input parses text with the text input function of typ. Values of type
// jsonb are stored as normalized JSON text.
func (a *Arena) Input(typ sdk.Oid, text string, typmod int32) sdk.Datum {
	prev := sdk.SetHost(a)
	defer sdk.SetHost(prev)

	invalid := func() {
		sdk.Abortf(sdk.CodeInvalidTextRepr, "invalid input syntax for type %s: %q", sdk.TypeName(typ), text)
	}
	var d sdk.Datum
	switch typ {
	case oid.T_bool:
		v, err := strconv.ParseBool(text)
		if err != nil {
			invalid()
		}
		d, _ = sdk.IntoDatum(sdk.Bool, v)
	case oid.T_int2, oid.T_int4, oid.T_int8:
		bits := int(lookupType(typ).len) * 8
		v, err := strconv.ParseInt(strings.TrimSpace(text), 10, bits)
		if err != nil {
			invalid()
		}
		d = sdk.Datum(v)
	case oid.T_float8:
		v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			invalid()
		}
		d, _ = sdk.IntoDatum(sdk.Float8, v)
	case oid.T_oid:
		v, err := strconv.ParseUint(strings.TrimSpace(text), 10, 32)
		if err != nil {
			invalid()
		}
		d, _ = sdk.IntoDatum(sdk.ObjectID, sdk.Oid(v))
	case oid.T_text, oid.T_varchar, oid.T_bpchar:
		d, _ = sdk.IntoDatum(sdk.Text, text)
	case oid.T_json:
		if !json.Valid([]byte(text)) {
			invalid()
		}
		d, _ = sdk.IntoDatum(sdk.Bytea, []byte(text))
	case oid.T_jsonb:
		norm, err := NormalizeJSONB(text)
		if err != nil {
			invalid()
		}
		d, _ = sdk.IntoDatum(sdk.Bytea, []byte(norm))
	case oid.T_uuid:
		v, err := uuid.Parse(text)
		if err != nil {
			invalid()
		}
		d, _ = sdk.IntoDatum(sdk.UUID, v)
	default:
		panic(fmt.Sprintf("pgext-sdk-go/pgtest: no input function for type %s", sdk.TypeName(typ)))
	}
	return d
}

// payload returns a copy of the data of a varlena value.
func payload(d sdk.Datum) []byte {
	b, _ := sdk.Bytea.FromDatum(d, false, oid.T_bytea)
	return b
}

// NormalizeJSONB renders a JSON document the way the database prints jsonb
// values: object keys sorted by length and then bytewise, the last of
// duplicate keys kept, and a single space after commas and colons.
func NormalizeJSONB(text string) (string, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	if _, err := dec.Token(); err != io.EOF {
		return "", fmt.Errorf("unexpected data after the JSON document")
	}
	var b bytes.Buffer
	writeJSONB(&b, v)
	return b.String(), nil
}

func writeJSONB(b *bytes.Buffer, v interface{}) {
	switch v := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if len(keys[i]) != len(keys[j]) {
				return len(keys[i]) < len(keys[j])
			}
			return keys[i] < keys[j]
		})
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			writeJSONB(b, k)
			b.WriteString(": ")
			writeJSONB(b, v[k])
		}
		b.WriteByte('}')
	case []interface{}:
		b.WriteByte('[')
		for i, e := range v {
			if i > 0 {
				b.WriteString(", ")
			}
			writeJSONB(b, e)
		}
		b.WriteByte(']')
	case json.Number:
		b.WriteString(v.String())
	default:
		var enc bytes.Buffer
		e := json.NewEncoder(&enc)
		e.SetEscapeHTML(false)
		_ = e.Encode(v)
		b.Write(bytes.TrimRight(enc.Bytes(), "\n"))
	}
}
