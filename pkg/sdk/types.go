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
	"math"
	"time"

	"github.com/lib/pq/oid"
)

// byValue converts SQL types whose values fit in a Datum.
type byValue[T any] struct {
	typ    Oid
	accept []Oid
	from   func(Datum) T
	into   func(T) Datum
}

func (b *byValue[T]) TypeOid() Oid {
	return b.typ
}

func (b *byValue[T]) Accepts(typ Oid) bool {
	return typ == b.typ || acceptsAny(typ, b.accept...)
}

func (b *byValue[T]) FromDatum(d Datum, isNull bool, typ Oid) (T, bool) {
	if isNull {
		var zero T
		return zero, false
	}
	return b.from(d), true
}

func (b *byValue[T]) IntoDatum(v T) (Datum, bool) {
	return b.into(v), true
}

// Microseconds between the Unix epoch and the PostgreSQL epoch (2000-01-01).
const (
	postgresEpochUnixMicros = 946684800000000
	postgresEpochUnixDays   = 10957
)

var (
	// Bool converts boolean values.
	Bool Converter[bool] = &byValue[bool]{
		typ:  oid.T_bool,
		from: func(d Datum) bool { return d != 0 },
		into: func(v bool) Datum {
			if v {
				return 1
			}
			return 0
		},
	}

	// Int2 converts smallint values.
	Int2 Converter[int16] = &byValue[int16]{
		typ:  oid.T_int2,
		from: func(d Datum) int16 { return int16(d) },
		into: func(v int16) Datum { return Datum(int64(v)) },
	}

	// Int4 converts integer values.
	Int4 Converter[int32] = &byValue[int32]{
		typ:  oid.T_int4,
		from: func(d Datum) int32 { return int32(d) },
		into: func(v int32) Datum { return Datum(int64(v)) },
	}

	// Int8 converts bigint values. Datums are 8 bytes wide, so bigint
	// is always passed by value (see the magic package).
	Int8 Converter[int64] = &byValue[int64]{
		typ:  oid.T_int8,
		from: func(d Datum) int64 { return int64(d) },
		into: func(v int64) Datum { return Datum(v) },
	}

	// Float4 converts real values.
	Float4 Converter[float32] = &byValue[float32]{
		typ:  oid.T_float4,
		from: func(d Datum) float32 { return math.Float32frombits(uint32(d)) },
		into: func(v float32) Datum { return Datum(math.Float32bits(v)) },
	}

	// Float8 converts double precision values.
	Float8 Converter[float64] = &byValue[float64]{
		typ:  oid.T_float8,
		from: func(d Datum) float64 { return math.Float64frombits(uint64(d)) },
		into: func(v float64) Datum { return Datum(math.Float64bits(v)) },
	}

	// ObjectID converts values of type oid and of its alias types.
	ObjectID Converter[Oid] = &byValue[Oid]{
		typ:    oid.T_oid,
		accept: []Oid{oid.T_regclass, oid.T_regproc, oid.T_regprocedure, oid.T_regtype},
		from:   func(d Datum) Oid { return Oid(uint32(d)) },
		into:   func(v Oid) Datum { return Datum(uint32(v)) },
	}

	// Date converts date values into midnight UTC of the same day.
	Date Converter[time.Time] = &byValue[time.Time]{
		typ: oid.T_date,
		from: func(d Datum) time.Time {
			return time.Unix((int64(int32(d))+postgresEpochUnixDays)*86400, 0).UTC()
		},
		into: func(v time.Time) Datum {
			y, m, day := v.Date()
			days := time.Date(y, m, day, 0, 0, 0, 0, time.UTC).Unix()/86400 - postgresEpochUnixDays
			return Datum(int64(int32(days)))
		},
	}

	// Timestamp converts timestamp without time zone values. The
	// values are interpreted as UTC.
	Timestamp Converter[time.Time] = &byValue[time.Time]{
		typ:  oid.T_timestamp,
		from: func(d Datum) time.Time { return timeFromMicros(int64(d)) },
		into: func(v time.Time) Datum { return Datum(microsFromTime(v)) },
	}

	// TimestampTZ converts timestamp with time zone values.
	TimestampTZ Converter[time.Time] = &byValue[time.Time]{
		typ:  oid.T_timestamptz,
		from: func(d Datum) time.Time { return timeFromMicros(int64(d)) },
		into: func(v time.Time) Datum { return Datum(microsFromTime(v)) },
	}
)

func timeFromMicros(us int64) time.Time {
	return time.UnixMicro(us + postgresEpochUnixMicros).UTC()
}

func microsFromTime(t time.Time) int64 {
	return t.UnixMicro() - postgresEpochUnixMicros
}
