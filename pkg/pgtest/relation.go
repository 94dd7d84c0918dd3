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
	"strconv"
	"sync/atomic"

	"github.com/pgext/extension-sdk-go/pkg/sdk"
)

// Column describes a column of an emulated table.
type Column struct {
	Name    string
	Type    sdk.Oid
	TypMod  int32
	NotNull bool
	Dropped bool
}

// Col returns a nullable column of the given type.
func Col(name string, typ sdk.Oid) Column {
	return Column{Name: name, Type: typ, TypMod: -1}
}

// DroppedCol returns a column that has been dropped from the table.
func DroppedCol(typ sdk.Oid) Column {
	return Column{Type: typ, TypMod: -1, Dropped: true}
}

// first oid assigned to user objects (FirstNormalObjectId)
var nextOid atomic.Uint32

func init() {
	nextOid.Store(16384)
}

func newOid() sdk.Oid {
	return sdk.Oid(nextOid.Add(1))
}

// NewRelation describes a table in the public schema.
func NewRelation(name string, cols ...Column) *sdk.Relation {
	desc := &sdk.TupleDesc{TypeOid: newOid(), Attrs: make([]sdk.Attribute, len(cols))}
	for i, c := range cols {
		info := lookupType(c.Type)
		attName := c.Name
		if c.Dropped {
			attName = "........pg.dropped." + strconv.Itoa(i+1) + "........"
		}
		desc.Attrs[i] = sdk.Attribute{
			Name:    attName,
			TypeOid: c.Type,
			TypMod:  c.TypMod,
			Len:     info.len,
			ByVal:   info.byVal,
			NotNull: c.NotNull,
			Dropped: c.Dropped,
		}
	}
	return &sdk.Relation{
		Oid:       newOid(),
		Name:      name,
		Namespace: "public",
		Desc:      desc,
	}
}
