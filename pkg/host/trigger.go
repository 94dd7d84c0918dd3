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
	"unsafe"

	"github.com/pgext/extension-sdk-go/pkg/sdk"
)

// triggerData wraps the TriggerData of a trigger call, and implements
// sdk.TriggerData.
type triggerData struct {
	td      *C.TriggerData
	desc    C.TupleDesc
	rel     *sdk.Relation
	def     *sdk.TriggerDef
	backend *backend
}

func newTriggerData(b *backend, td *C.TriggerData) *triggerData {
	return &triggerData{td: td, desc: td.tg_relation.rd_att, backend: b}
}

func (t *triggerData) Event() sdk.TriggerEvent {
	return sdk.TriggerEvent(t.td.tg_event)
}

func (t *triggerData) Relation() *sdk.Relation {
	if t.rel == nil {
		rel := t.td.tg_relation
		var err C.PgextError
		ns := C.pgext_relation_namespace(rel, &err)
		check(&err)
		t.rel = &sdk.Relation{
			Oid:       sdk.Oid(rel.rd_id),
			Name:      C.GoString(C.pgext_relation_name(rel)),
			Namespace: C.GoString(ns),
			Desc:      t.backend.tupleDesc(t.desc),
		}
	}
	return t.rel
}

func (t *triggerData) Trigger() *sdk.TriggerDef {
	if t.def == nil {
		trig := t.td.tg_trigger
		def := &sdk.TriggerDef{
			Oid:  sdk.Oid(trig.tgoid),
			Name: C.GoString(trig.tgname),
		}
		if n := int(trig.tgnargs); n > 0 {
			for _, arg := range unsafe.Slice(trig.tgargs, n) {
				def.Args = append(def.Args, C.GoString(arg))
			}
		}
		t.def = def
	}
	return t.def
}

func (t *triggerData) TriggerTuple() sdk.HeapTuple {
	if t.td.tg_trigtuple == nil {
		return nil
	}
	return &heapTuple{tuple: t.td.tg_trigtuple, desc: t.desc}
}

func (t *triggerData) NewTuple() sdk.HeapTuple {
	if t.td.tg_newtuple == nil {
		return nil
	}
	return &heapTuple{tuple: t.td.tg_newtuple, desc: t.desc}
}
