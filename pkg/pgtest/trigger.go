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
	"github.com/pgext/extension-sdk-go/pkg/sdk"
)

type triggerData struct {
	event   sdk.TriggerEvent
	rel     *sdk.Relation
	def     *sdk.TriggerDef
	trigTup sdk.HeapTuple
	newTup  sdk.HeapTuple
}

// NewTriggerData returns the context of a trigger fired on rel. For
// row-level events, trigTuple is the inserted row for INSERT, and the old
// row for UPDATE and DELETE; newTuple is the new row for UPDATE, and nil
// otherwise. Both are nil for statement-level events.
func NewTriggerData(event sdk.TriggerEvent, rel *sdk.Relation, trigTuple, newTuple sdk.HeapTuple, args ...string) sdk.TriggerData {
	return &triggerData{
		event:   event,
		rel:     rel,
		def:     &sdk.TriggerDef{Oid: newOid(), Name: rel.Name + "_trigger", Args: args},
		trigTup: trigTuple,
		newTup:  newTuple,
	}
}

func (t *triggerData) Event() sdk.TriggerEvent {
	return t.event
}

func (t *triggerData) Relation() *sdk.Relation {
	return t.rel
}

func (t *triggerData) Trigger() *sdk.TriggerDef {
	return t.def
}

func (t *triggerData) TriggerTuple() sdk.HeapTuple {
	return t.trigTup
}

func (t *triggerData) NewTuple() sdk.HeapTuple {
	return t.newTup
}
