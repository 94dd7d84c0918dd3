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

package sdk_test

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgext/extension-sdk-go/pkg/pgtest"
	"github.com/pgext/extension-sdk-go/pkg/ptr"
	"github.com/pgext/extension-sdk-go/pkg/sdk"
)

func roundTrip[T any](t *testing.T, c sdk.Converter[T], v T) T {
	t.Helper()
	d, ok := sdk.IntoDatum(c, v)
	require.True(t, ok, "IntoDatum returned NULL for %v", v)
	res, ok := sdk.FromDatum(c, d, false)
	require.True(t, ok, "FromDatum returned NULL for %v", v)
	return res
}

func TestRoundTripByValue(t *testing.T) {
	pgtest.New(t)

	for _, v := range []bool{true, false} {
		assert.Equal(t, v, roundTrip(t, sdk.Bool, v))
	}
	for _, v := range []int16{0, 1, -1, math.MinInt16, math.MaxInt16} {
		assert.Equal(t, v, roundTrip(t, sdk.Int2, v))
	}
	for _, v := range []int32{0, 42, -42, math.MinInt32, math.MaxInt32} {
		assert.Equal(t, v, roundTrip(t, sdk.Int4, v))
	}
	for _, v := range []int64{0, 1 << 40, -(1 << 40), math.MinInt64, math.MaxInt64} {
		assert.Equal(t, v, roundTrip(t, sdk.Int8, v))
	}
	for _, v := range []float32{0, 1.5, -3.25, math.MaxFloat32, float32(math.Inf(-1))} {
		assert.Equal(t, v, roundTrip(t, sdk.Float4, v))
	}
	for _, v := range []float64{0, math.Pi, -1e300, math.SmallestNonzeroFloat64} {
		assert.Equal(t, v, roundTrip(t, sdk.Float8, v))
	}
	assert.True(t, math.IsNaN(roundTrip(t, sdk.Float8, math.NaN())))
	for _, v := range []sdk.Oid{0, oid.T_text, math.MaxUint32} {
		assert.Equal(t, v, roundTrip(t, sdk.ObjectID, v))
	}
}

func TestRoundTripTime(t *testing.T) {
	pgtest.New(t)

	for _, v := range []time.Time{
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC),
	} {
		res := roundTrip(t, sdk.Date, v)
		assert.True(t, v.Equal(res), "expected %s, but found %s", v, res)
	}

	// dates drop the time of day
	res := roundTrip(t, sdk.Date, time.Date(2024, 5, 17, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), res)

	for _, c := range []sdk.Converter[time.Time]{sdk.Timestamp, sdk.TimestampTZ} {
		for _, v := range []time.Time{
			time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 5, 17, 10, 30, 15, 123456000, time.UTC),
			time.Date(1969, 7, 20, 20, 17, 40, 0, time.UTC),
		} {
			res := roundTrip(t, c, v)
			assert.True(t, v.Equal(res), "expected %s, but found %s", v, res)
		}
	}

	// the epoch of the database is 2000-01-01
	d, _ := sdk.IntoDatum(sdk.Timestamp, time.Date(2000, 1, 1, 0, 0, 1, 0, time.UTC))
	assert.Equal(t, sdk.Datum(1000000), d)
	d, _ = sdk.IntoDatum(sdk.Date, time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, sdk.Datum(1), d)
}

func TestRoundTripVarlena(t *testing.T) {
	pgtest.New(t)

	for _, v := range []string{"", "hello", "unicode: àèìòù", string(make([]byte, 4096))} {
		assert.Equal(t, v, roundTrip(t, sdk.Text, v))
		assert.Equal(t, v, roundTrip(t, sdk.TextRef, v))
	}
	for _, v := range [][]byte{{}, {0, 1, 2, 255}} {
		assert.Equal(t, v, roundTrip(t, sdk.Bytea, v))
	}
	for _, v := range []json.RawMessage{json.RawMessage(`{"a":1}`), json.RawMessage(`[1, 2,3]`), json.RawMessage(`null`)} {
		assert.Equal(t, v, roundTrip(t, sdk.JSON, v))
	}
	id := uuid.MustParse("2f1e3c4d-5a6b-4c7d-8e9f-0a1b2c3d4e5f")
	assert.Equal(t, id, roundTrip(t, sdk.UUID, id))
}

func TestJSONBIsNormalized(t *testing.T) {
	pgtest.New(t)

	res := roundTrip(t, sdk.JSONB, json.RawMessage(`{"bb":1,"a":[true,null,"x"],"bb":2}`))
	assert.Equal(t, json.RawMessage(`{"a": [true, null, "x"], "bb": 2}`), res)
}

func TestInvalidJSON(t *testing.T) {
	pgtest.New(t)

	for _, c := range []sdk.Converter[json.RawMessage]{sdk.JSON, sdk.JSONB} {
		err := abortOf(t, func() { sdk.IntoDatum(c, json.RawMessage(`{"a":`)) })
		assert.Equal(t, sdk.CodeInvalidTextRepr, err.Code)
	}
}

func TestNilIsNull(t *testing.T) {
	pgtest.New(t)

	_, ok := sdk.IntoDatum(sdk.Bytea, nil)
	assert.False(t, ok)
	_, ok = sdk.IntoDatum(sdk.JSON, nil)
	assert.False(t, ok)
	_, ok = sdk.IntoDatum(sdk.JSONB, nil)
	assert.False(t, ok)
}

func assertNull[T any](t *testing.T, c sdk.Converter[T]) {
	t.Helper()
	var zero T
	for _, d := range []sdk.Datum{0, 1, 0xdeadbeef, ^sdk.Datum(0)} {
		v, ok := sdk.FromDatum(c, d, true)
		assert.False(t, ok)
		assert.Equal(t, zero, v)
	}
}

func TestNullShortCircuit(t *testing.T) {
	// no host is needed, as no memory is ever accessed
	assertNull(t, sdk.Bool)
	assertNull(t, sdk.Int2)
	assertNull(t, sdk.Int4)
	assertNull(t, sdk.Int8)
	assertNull(t, sdk.Float4)
	assertNull(t, sdk.Float8)
	assertNull(t, sdk.ObjectID)
	assertNull(t, sdk.Date)
	assertNull(t, sdk.Timestamp)
	assertNull(t, sdk.TimestampTZ)
	assertNull(t, sdk.Text)
	assertNull(t, sdk.TextRef)
	assertNull(t, sdk.Bytea)
	assertNull(t, sdk.JSON)
	assertNull(t, sdk.JSONB)
	assertNull(t, sdk.UUID)
	assertNull(t, sdk.Any)
}

func TestVarlenaHeaders(t *testing.T) {
	env := pgtest.New(t)

	short := env.Arena.Short([]byte("short"))
	v, ok := sdk.FromDatum(sdk.Text, short, false)
	assert.True(t, ok)
	assert.Equal(t, "short", v)

	toasted := env.Arena.Toast([]byte("out of line"))
	v, ok = sdk.FromDatum(sdk.Text, toasted, false)
	assert.True(t, ok)
	assert.Equal(t, "out of line", v)

	b, ok := sdk.FromDatum(sdk.Bytea, env.Arena.Short(nil), false)
	assert.True(t, ok)
	assert.Empty(t, b)
}

func TestVarlenaLayout(t *testing.T) {
	pgtest.New(t)

	for _, payload := range []string{"", "a description", string(make([]byte, 300))} {
		d, ok := sdk.IntoDatum(sdk.Text, payload)
		require.True(t, ok)
		raw := ptr.Bytes(d.Pointer(), 4+len(payload))
		assert.Equal(t, uint32(4+len(payload))<<2, binary.LittleEndian.Uint32(raw))
		assert.Equal(t, payload, string(raw[4:]))
	}
}

func TestAccepts(t *testing.T) {
	assert.True(t, sdk.Text.Accepts(oid.T_varchar))
	assert.True(t, sdk.Text.Accepts(oid.T_bpchar))
	assert.False(t, sdk.Text.Accepts(oid.T_int4))
	assert.True(t, sdk.ObjectID.Accepts(oid.T_regclass))
	assert.False(t, sdk.Int8.Accepts(oid.T_int4))
	assert.True(t, sdk.Any.Accepts(oid.T_jsonb))
	assert.Equal(t, oid.T_anyelement, sdk.Any.TypeOid())
	assert.Equal(t, "varchar", sdk.TypeName(oid.T_varchar))
	assert.Equal(t, "oid 999999", sdk.TypeName(999999))
}
