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
	"strings"
)

// TriggerEvent is the bitmask describing why a trigger fired, as of
// the tg_event field of TriggerData in commands/trigger.h.
type TriggerEvent uint32

const (
	TriggerEventInsert     TriggerEvent = 0x00
	TriggerEventDelete     TriggerEvent = 0x01
	TriggerEventUpdate     TriggerEvent = 0x02
	TriggerEventTruncate   TriggerEvent = 0x03
	TriggerEventOpMask     TriggerEvent = 0x03
	TriggerEventRow        TriggerEvent = 0x04
	TriggerEventBefore     TriggerEvent = 0x08
	TriggerEventAfter      TriggerEvent = 0x00
	TriggerEventInstead    TriggerEvent = 0x10
	TriggerEventTimingMask TriggerEvent = 0x18
)

// FiredByInsert mirrors TRIGGER_FIRED_BY_INSERT.
func (e TriggerEvent) FiredByInsert() bool {
	return e&TriggerEventOpMask == TriggerEventInsert
}

// FiredByDelete mirrors TRIGGER_FIRED_BY_DELETE.
func (e TriggerEvent) FiredByDelete() bool {
	return e&TriggerEventOpMask == TriggerEventDelete
}

// FiredByUpdate mirrors TRIGGER_FIRED_BY_UPDATE.
func (e TriggerEvent) FiredByUpdate() bool {
	return e&TriggerEventOpMask == TriggerEventUpdate
}

// FiredByTruncate mirrors TRIGGER_FIRED_BY_TRUNCATE.
func (e TriggerEvent) FiredByTruncate() bool {
	return e&TriggerEventOpMask == TriggerEventTruncate
}

// FiredForRow mirrors TRIGGER_FIRED_FOR_ROW.
func (e TriggerEvent) FiredForRow() bool {
	return e&TriggerEventRow != 0
}

// FiredForStatement mirrors TRIGGER_FIRED_FOR_STATEMENT.
func (e TriggerEvent) FiredForStatement() bool {
	return !e.FiredForRow()
}

// FiredBefore mirrors TRIGGER_FIRED_BEFORE.
func (e TriggerEvent) FiredBefore() bool {
	return e&TriggerEventTimingMask == TriggerEventBefore
}

// FiredAfter mirrors TRIGGER_FIRED_AFTER.
func (e TriggerEvent) FiredAfter() bool {
	return e&TriggerEventTimingMask == TriggerEventAfter
}

// FiredInsteadOf mirrors TRIGGER_FIRED_INSTEAD.
func (e TriggerEvent) FiredInsteadOf() bool {
	return e&TriggerEventTimingMask == TriggerEventInstead
}

// String returns the event in SQL syntax, e.g. "BEFORE INSERT FOR EACH ROW".
func (e TriggerEvent) String() string {
	var b strings.Builder
	switch {
	case e.FiredBefore():
		b.WriteString("BEFORE ")
	case e.FiredInsteadOf():
		b.WriteString("INSTEAD OF ")
	case e.FiredAfter():
		b.WriteString("AFTER ")
	default:
		b.WriteString("UNKNOWN ")
	}
	switch {
	case e.FiredByInsert():
		b.WriteString("INSERT")
	case e.FiredByUpdate():
		b.WriteString("UPDATE")
	case e.FiredByDelete():
		b.WriteString("DELETE")
	default:
		b.WriteString("TRUNCATE")
	}
	if e.FiredForRow() {
		b.WriteString(" FOR EACH ROW")
	} else {
		b.WriteString(" FOR EACH STATEMENT")
	}
	return b.String()
}

// Relation describes the table a trigger fired on.
type Relation struct {
	Oid       Oid
	Name      string
	Namespace string
	Desc      *TupleDesc
}

// TriggerDef describes the trigger being fired.
type TriggerDef struct {
	Oid  Oid
	Name string
	Args []string
}

// TriggerData represents an high-level abstraction over the context of a
// trigger call (TriggerData in commands/trigger.h). Instances are only
// valid for the duration of the call, and can only be obtained through
// TriggerDataOf or MustTriggerData.
type TriggerData interface {
	// Event returns the bitmask describing the firing event.
	Event() TriggerEvent
	//
	// Relation returns the table the trigger fired on.
	Relation() *Relation
	//
	// Trigger returns the definition of the trigger being fired.
	Trigger() *TriggerDef
	//
	// TriggerTuple returns the row for which the trigger fired (tg_trigtuple),
	// or nil for statement-level triggers.
	TriggerTuple() HeapTuple
	//
	// NewTuple returns the new version of the row for UPDATE events
	// (tg_newtuple), or nil otherwise.
	NewTuple() HeapTuple
}

// TriggerDataOf validates that fcinfo is a trigger call, and returns its
// trigger data. It returns ErrNotTrigger otherwise.
func TriggerDataOf(fcinfo FunctionCallInfo) (TriggerData, error) {
	if !fcinfo.CalledAsTrigger() {
		return nil, ErrNotTrigger
	}
	td := fcinfo.TriggerContext()
	if td == nil {
		return nil, ErrNotTrigger
	}
	return td, nil
}

// MustTriggerData is like TriggerDataOf, but aborts the current call if
// fcinfo is not a trigger call.
func MustTriggerData(fcinfo FunctionCallInfo) TriggerData {
	return Must(TriggerDataOf(fcinfo))
}

// RequireEvent aborts the current call unless the trigger fired for
// exactly the given timing, operation and granularity, e.g.
// TriggerEventBefore|TriggerEventInsert|TriggerEventRow.
func RequireEvent(td TriggerData, want TriggerEvent) {
	got := td.Event() & (TriggerEventTimingMask | TriggerEventOpMask | TriggerEventRow)
	if got != want {
		Abortf(CodeTriggerProtocolViolated, "trigger %q must be fired %s, but was fired %s", td.Trigger().Name, want, got)
	}
}

// TriggerTuple selects one of the row images of a trigger call.
type TriggerTuple int

const (
	// TriggerTupleCurrent is the row for which the trigger fired
	// (tg_trigtuple): the inserted row for INSERT, the old row for
	// UPDATE and DELETE.
	TriggerTupleCurrent TriggerTuple = iota
	//
	// TriggerTupleNew is the row after the operation: the inserted row
	// for INSERT, the new row for UPDATE.
	TriggerTupleNew
	//
	// TriggerTupleOld is the row before the operation, for UPDATE and
	// DELETE.
	TriggerTupleOld
)

func (t TriggerTuple) String() string {
	switch t {
	case TriggerTupleCurrent:
		return "current"
	case TriggerTupleNew:
		return "new"
	case TriggerTupleOld:
		return "old"
	default:
		return fmt.Sprintf("TriggerTuple(%d)", int(t))
	}
}

func selectTriggerTuple(td TriggerData, which TriggerTuple) HeapTuple {
	ev := td.Event()
	switch which {
	case TriggerTupleCurrent:
		return td.TriggerTuple()
	case TriggerTupleNew:
		switch {
		case ev.FiredByInsert():
			return td.TriggerTuple()
		case ev.FiredByUpdate():
			return td.NewTuple()
		}
	case TriggerTupleOld:
		if ev.FiredByUpdate() || ev.FiredByDelete() {
			return td.TriggerTuple()
		}
	}
	return nil
}

// TupleFromTriggerData returns a borrowed view over the requested row image
// of a trigger call. It fails with ErrNoTuple if the image does not exist
// for the firing event, e.g. TriggerTupleOld on INSERT.
func TupleFromTriggerData(td TriggerData, which TriggerTuple) (*Tuple, error) {
	if td.Event().FiredForRow() {
		if ht := selectTriggerTuple(td, which); ht != nil {
			return &Tuple{desc: td.Relation().Desc, tuple: ht}, nil
		}
	}
	return nil, fmt.Errorf("%w: no %s tuple for %s", ErrNoTuple, which, td.Event())
}
