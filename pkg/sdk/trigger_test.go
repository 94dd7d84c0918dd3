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
	"testing"

	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgext/extension-sdk-go/pkg/pgtest"
	"github.com/pgext/extension-sdk-go/pkg/sdk"
)

func TestTriggerEvent(t *testing.T) {
	tests := []struct {
		event     sdk.TriggerEvent
		str       string
		insert    bool
		update    bool
		delete    bool
		truncate  bool
		row       bool
		before    bool
		after     bool
		insteadOf bool
	}{
		{sdk.TriggerEventBefore | sdk.TriggerEventInsert | sdk.TriggerEventRow, "BEFORE INSERT FOR EACH ROW", true, false, false, false, true, true, false, false},
		{sdk.TriggerEventAfter | sdk.TriggerEventUpdate, "AFTER UPDATE FOR EACH STATEMENT", false, true, false, false, false, false, true, false},
		{sdk.TriggerEventInstead | sdk.TriggerEventDelete | sdk.TriggerEventRow, "INSTEAD OF DELETE FOR EACH ROW", false, false, true, false, true, false, false, true},
		{sdk.TriggerEventBefore | sdk.TriggerEventTruncate, "BEFORE TRUNCATE FOR EACH STATEMENT", false, false, false, true, false, true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			e := tt.event
			assert.Equal(t, tt.str, e.String())
			assert.Equal(t, tt.insert, e.FiredByInsert())
			assert.Equal(t, tt.update, e.FiredByUpdate())
			assert.Equal(t, tt.delete, e.FiredByDelete())
			assert.Equal(t, tt.truncate, e.FiredByTruncate())
			assert.Equal(t, tt.row, e.FiredForRow())
			assert.Equal(t, !tt.row, e.FiredForStatement())
			assert.Equal(t, tt.before, e.FiredBefore())
			assert.Equal(t, tt.after, e.FiredAfter())
			assert.Equal(t, tt.insteadOf, e.FiredInsteadOf())
		})
	}
}

func TestTriggerDataOf(t *testing.T) {
	pgtest.New(t)

	_, err := sdk.TriggerDataOf(pgtest.NewCall())
	assert.ErrorIs(t, err, sdk.ErrNotTrigger)

	rel := testRelation()
	td := pgtest.NewTriggerData(sdk.TriggerEventAfter|sdk.TriggerEventTruncate, rel, nil, nil, "arg1")
	res, err := sdk.TriggerDataOf(pgtest.NewCall().WithTrigger(td))
	require.NoError(t, err)
	assert.Equal(t, "test", res.Relation().Name)
	assert.Equal(t, []string{"arg1"}, res.Trigger().Args)
}

func TestTriggerAccessorWithoutTrigger(t *testing.T) {
	pgtest.New(t)

	fn := func(fcinfo sdk.FunctionCallInfo) sdk.Datum {
		td := sdk.MustTriggerData(fcinfo)
		tup := sdk.Must(sdk.TupleFromTriggerData(td, sdk.TriggerTupleNew))
		res, _ := tup.IntoDatum()
		return res
	}
	res, _, err := pgtest.Call(fn, pgtest.NewCall(pgtest.Arg(sdk.Int4, 1)))
	require.Error(t, err)
	assert.Equal(t, sdk.Datum(0), res)
	var abortErr *sdk.AbortError
	require.ErrorAs(t, err, &abortErr)
	assert.Equal(t, sdk.CodeTriggerProtocolViolated, abortErr.Code)
	assert.ErrorIs(t, err, sdk.ErrNotTrigger)
}

func TestTupleSelection(t *testing.T) {
	env := pgtest.New(t)
	rel := pgtest.NewRelation("sel", pgtest.Col("v", oid.T_int4))
	oldRow := env.Row(rel.Desc, pgtest.Value(sdk.Int4, 1))
	newRow := env.Row(rel.Desc, pgtest.Value(sdk.Int4, 2))

	valueOf := func(td sdk.TriggerData, which sdk.TriggerTuple) (int32, error) {
		tup, err := sdk.TupleFromTriggerData(td, which)
		if err != nil {
			return 0, err
		}
		v, _, err := sdk.GetByIndex(tup, 1, sdk.Int4)
		return v, err
	}

	row := sdk.TriggerEventRow | sdk.TriggerEventBefore

	insert := pgtest.NewTriggerData(row|sdk.TriggerEventInsert, rel, newRow, nil)
	v, err := valueOf(insert, sdk.TriggerTupleNew)
	assert.NoError(t, err)
	assert.Equal(t, int32(2), v)
	v, err = valueOf(insert, sdk.TriggerTupleCurrent)
	assert.NoError(t, err)
	assert.Equal(t, int32(2), v)
	_, err = valueOf(insert, sdk.TriggerTupleOld)
	assert.ErrorIs(t, err, sdk.ErrNoTuple)

	update := pgtest.NewTriggerData(row|sdk.TriggerEventUpdate, rel, oldRow, newRow)
	v, err = valueOf(update, sdk.TriggerTupleNew)
	assert.NoError(t, err)
	assert.Equal(t, int32(2), v)
	v, err = valueOf(update, sdk.TriggerTupleOld)
	assert.NoError(t, err)
	assert.Equal(t, int32(1), v)
	v, err = valueOf(update, sdk.TriggerTupleCurrent)
	assert.NoError(t, err)
	assert.Equal(t, int32(1), v)

	del := pgtest.NewTriggerData(row|sdk.TriggerEventDelete, rel, oldRow, nil)
	v, err = valueOf(del, sdk.TriggerTupleOld)
	assert.NoError(t, err)
	assert.Equal(t, int32(1), v)
	_, err = valueOf(del, sdk.TriggerTupleNew)
	assert.ErrorIs(t, err, sdk.ErrNoTuple)

	stmt := pgtest.NewTriggerData(sdk.TriggerEventAfter|sdk.TriggerEventInsert, rel, nil, nil)
	for _, which := range []sdk.TriggerTuple{sdk.TriggerTupleCurrent, sdk.TriggerTupleNew, sdk.TriggerTupleOld} {
		_, err = valueOf(stmt, which)
		assert.ErrorIs(t, err, sdk.ErrNoTuple)
	}
}

func TestOldOnInsertAborts(t *testing.T) {
	env := pgtest.New(t)
	rel := testRelation()
	row := env.Row(rel.Desc, pgtest.Value(sdk.Int8, 1), pgtest.Null, pgtest.Null, pgtest.Null)
	td := pgtest.NewTriggerData(sdk.TriggerEventAfter|sdk.TriggerEventInsert|sdk.TriggerEventRow, rel, row, nil)

	fn := func(fcinfo sdk.FunctionCallInfo) sdk.Datum {
		sdk.Must(sdk.TupleFromTriggerData(sdk.MustTriggerData(fcinfo), sdk.TriggerTupleOld))
		return 0
	}
	_, _, err := pgtest.Call(fn, pgtest.NewCall().WithTrigger(td))
	var abortErr *sdk.AbortError
	require.ErrorAs(t, err, &abortErr)
	assert.Equal(t, sdk.CodeObjectNotInPrereqState, abortErr.Code)
	assert.Contains(t, abortErr.Message, "no old tuple for AFTER INSERT FOR EACH ROW")
}

func TestRequireEvent(t *testing.T) {
	pgtest.New(t)
	rel := testRelation()
	want := sdk.TriggerEventBefore | sdk.TriggerEventInsert | sdk.TriggerEventRow

	td := pgtest.NewTriggerData(want, rel, nil, nil)
	assert.NotPanics(t, func() { sdk.RequireEvent(td, want) })

	td = pgtest.NewTriggerData(sdk.TriggerEventAfter|sdk.TriggerEventInsert|sdk.TriggerEventRow, rel, nil, nil)
	err := abortOf(t, func() { sdk.RequireEvent(td, want) })
	assert.Equal(t, sdk.CodeTriggerProtocolViolated, err.Code)
	assert.Equal(t, `trigger "test_trigger" must be fired BEFORE INSERT FOR EACH ROW, but was fired AFTER INSERT FOR EACH ROW`, err.Message)
}

func TestTriggerTupleString(t *testing.T) {
	assert.Equal(t, "current", sdk.TriggerTupleCurrent.String())
	assert.Equal(t, "new", sdk.TriggerTupleNew.String())
	assert.Equal(t, "old", sdk.TriggerTupleOld.String())
	assert.Equal(t, "TriggerTuple(9)", sdk.TriggerTuple(9).String())
}
