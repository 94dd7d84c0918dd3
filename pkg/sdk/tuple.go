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
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"github.com/lib/pq/oid"
)

// Attribute describes one column of a row type (FormData_pg_attribute).
type Attribute struct {
	Name    string
	TypeOid Oid
	TypMod  int32
	// Len is the storage length of the type: positive for fixed-length
	// types, -1 for varlena types, -2 for NUL-terminated strings.
	Len     int16
	ByVal   bool
	NotNull bool
	Dropped bool
}

// TupleDesc describes the layout of a row.
type TupleDesc struct {
	TypeOid Oid
	Attrs   []Attribute
}

// NumAttrs returns the number of attributes, dropped ones included.
func (d *TupleDesc) NumAttrs() int {
	return len(d.Attrs)
}

// Attr returns the attribute with the given 1-based number.
func (d *TupleDesc) Attr(attno int) (*Attribute, error) {
	if attno < 1 || attno > len(d.Attrs) {
		return nil, fmt.Errorf("%w: %d (row has %d attributes)", ErrIndexOutOfRange, attno, len(d.Attrs))
	}
	attr := &d.Attrs[attno-1]
	if attr.Dropped {
		return nil, fmt.Errorf("%w: attribute %d", ErrDroppedColumn, attno)
	}
	return attr, nil
}

// AttNum returns the 1-based number of the column with the given name.
func (d *TupleDesc) AttNum(name string) (int, error) {
	for i := range d.Attrs {
		if !d.Attrs[i].Dropped && d.Attrs[i].Name == name {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrNoSuchColumn, name)
}

// HeapTuple represents a row stored in memory of the database (a
// HeapTuple in access/htup.h).
type HeapTuple interface {
	// Datum returns a Datum pointing to the tuple, as returned by
	// trigger functions.
	Datum() Datum
	//
	// Attr returns the raw value of the attribute with the given 1-based
	// number, and its null flag (heap_getattr).
	Attr(attno int) (Datum, bool)
}

// Row is implemented by both borrowed and owned tuples, and gives access
// to their raw attribute values.
type Row interface {
	// Desc returns the layout of the row.
	Desc() *TupleDesc
	//
	// Datum returns the raw value of the attribute with the given 1-based
	// number, and its null flag.
	Datum(attno int) (Datum, bool, error)
}

// GetByIndex returns the attribute with the given 1-based number converted
// with c. The second return value is false if the attribute is NULL.
func GetByIndex[T any](r Row, attno int, c Converter[T]) (T, bool, error) {
	var zero T
	attr, err := r.Desc().Attr(attno)
	if err != nil {
		return zero, false, err
	}
	if err := checkAccepts(c, attr.TypeOid); err != nil {
		return zero, false, fmt.Errorf("column %q: %w", attr.Name, err)
	}
	d, isNull, err := r.Datum(attno)
	if err != nil {
		return zero, false, err
	}
	v, ok := c.FromDatum(d, isNull, attr.TypeOid)
	return v, ok, nil
}

// GetByName returns the named column converted with c. The second return
// value is false if the column is NULL.
func GetByName[T any](r Row, name string, c Converter[T]) (T, bool, error) {
	attno, err := r.Desc().AttNum(name)
	if err != nil {
		var zero T
		return zero, false, err
	}
	return GetByIndex(r, attno, c)
}

// MustGetByIndex is like GetByIndex, but aborts the current call on failure.
func MustGetByIndex[T any](r Row, attno int, c Converter[T]) (T, bool) {
	v, ok, err := GetByIndex(r, attno, c)
	if err != nil {
		Abort(err)
	}
	return v, ok
}

// MustGetByName is like GetByName, but aborts the current call on failure.
func MustGetByName[T any](r Row, name string, c Converter[T]) (T, bool) {
	v, ok, err := GetByName(r, name, c)
	if err != nil {
		Abort(err)
	}
	return v, ok
}

// Tuple is a read-only view over a row owned by the database. It borrows
// the row memory, and must not be used after the current call returns.
type Tuple struct {
	desc  *TupleDesc
	tuple HeapTuple
}

// NewTuple wraps a row owned by the database, laid out as desc.
func NewTuple(desc *TupleDesc, tuple HeapTuple) *Tuple {
	return &Tuple{desc: desc, tuple: tuple}
}

func (t *Tuple) Desc() *TupleDesc {
	return t.desc
}

func (t *Tuple) Datum(attno int) (Datum, bool, error) {
	if _, err := t.desc.Attr(attno); err != nil {
		return 0, false, err
	}
	d, isNull := t.tuple.Attr(attno)
	return d, isNull, nil
}

// Len returns the number of attributes of the row, dropped ones included.
func (t *Tuple) Len() int {
	return t.desc.NumAttrs()
}

// IntoDatum returns the unchanged row, e.g. to let a BEFORE trigger
// proceed with the original operation.
func (t *Tuple) IntoDatum() (Datum, bool) {
	return t.tuple.Datum(), true
}

// IntoOwned copies the row into the current memory context, and returns
// a mutable tuple that is independent from the original one.
func (t *Tuple) IntoOwned() *OwnedTuple {
	n := t.desc.NumAttrs()
	o := &OwnedTuple{
		desc:   t.desc,
		values: make([]Datum, n),
		nulls:  make([]bool, n),
	}
	for i := 0; i < n; i++ {
		attr := &t.desc.Attrs[i]
		if attr.Dropped {
			o.nulls[i] = true
			continue
		}
		d, isNull := t.tuple.Attr(i + 1)
		o.nulls[i] = isNull
		if !isNull {
			o.values[i] = CopyDatum(d, attr)
		}
	}
	o.reform()
	return o
}

// OwnedTuple is a mutable row, independent from the memory of the row
// it was copied from. Every modification re-forms the whole row, that
// must be converted back with IntoDatum before being returned to the
// database.
type OwnedTuple struct {
	desc   *TupleDesc
	values []Datum
	nulls  []bool
	tuple  HeapTuple
}

func (o *OwnedTuple) Desc() *TupleDesc {
	return o.desc
}

func (o *OwnedTuple) Datum(attno int) (Datum, bool, error) {
	if _, err := o.desc.Attr(attno); err != nil {
		return 0, false, err
	}
	return o.values[attno-1], o.nulls[attno-1], nil
}

// Len returns the number of attributes of the row, dropped ones included.
func (o *OwnedTuple) Len() int {
	return o.desc.NumAttrs()
}

// HeapTuple returns the current heap representation of the row.
func (o *OwnedTuple) HeapTuple() HeapTuple {
	return o.tuple
}

// IntoDatum serializes the row for the database.
func (o *OwnedTuple) IntoDatum() (Datum, bool) {
	return o.tuple.Datum(), true
}

// SetNullByName sets the named column to NULL.
func (o *OwnedTuple) SetNullByName(name string) error {
	return o.SetMany(SetNull(name))
}

// Setter modifies one column of an OwnedTuple without re-forming it.
type Setter func(o *OwnedTuple) error

// Set returns a Setter for the named column.
func Set[T any](name string, c Converter[T], v T) Setter {
	return func(o *OwnedTuple) error {
		attno, err := o.desc.AttNum(name)
		if err != nil {
			return err
		}
		return setAttr(o, attno, c, v)
	}
}

// SetIndex returns a Setter for the column with the given 1-based number.
func SetIndex[T any](attno int, c Converter[T], v T) Setter {
	return func(o *OwnedTuple) error {
		return setAttr(o, attno, c, v)
	}
}

// SetNull returns a Setter that sets the named column to NULL.
func SetNull(name string) Setter {
	return func(o *OwnedTuple) error {
		attno, err := o.desc.AttNum(name)
		if err != nil {
			return err
		}
		o.values[attno-1] = 0
		o.nulls[attno-1] = true
		return nil
	}
}

// SetMany runs all the setters and re-forms the row once. Columns whose
// setter fails are left untouched, and all the failures are returned.
func (o *OwnedTuple) SetMany(setters ...Setter) error {
	var errs *multierror.Error
	changed := false
	for _, s := range setters {
		if err := s(o); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		changed = true
	}
	if changed {
		o.reform()
	}
	return errs.ErrorOrNil()
}

// SetByName replaces the value of the named column. Values longer than
// the limit of a varchar(n) or char(n) column fail with ErrValueTooLong.
func SetByName[T any](o *OwnedTuple, name string, c Converter[T], v T) error {
	return o.SetMany(Set(name, c, v))
}

// SetByIndex replaces the value of the column with the given 1-based number.
func SetByIndex[T any](o *OwnedTuple, attno int, c Converter[T], v T) error {
	return o.SetMany(SetIndex(attno, c, v))
}

func setAttr[T any](o *OwnedTuple, attno int, c Converter[T], v T) error {
	attr, err := o.desc.Attr(attno)
	if err != nil {
		return err
	}
	if err := checkAccepts(c, attr.TypeOid); err != nil {
		return fmt.Errorf("column %q: %w", attr.Name, err)
	}
	if a, ok := any(v).(AnyElement); ok && a.typ != InvalidOid && a.typ != attr.TypeOid {
		return fmt.Errorf("column %q: %w: %s cannot be stored as %s", attr.Name, ErrTypeMismatch, TypeName(a.typ), TypeName(attr.TypeOid))
	}
	d, ok := c.IntoDatum(v)
	if ok {
		if d, err = checkLength(attr, d); err != nil {
			return err
		}
	}
	o.values[attno-1] = d
	o.nulls[attno-1] = !ok
	return nil
}

// checkLength enforces the length of varchar(n) and char(n) columns, that
// the database does not check again on rows returned by triggers. Like the
// SQL cast, trailing spaces beyond the limit are cut.
func checkLength(attr *Attribute, d Datum) (Datum, error) {
	var typ string
	switch attr.TypeOid {
	case oid.T_varchar:
		typ = "character varying"
	case oid.T_bpchar:
		typ = "character"
	default:
		return d, nil
	}
	if attr.TypMod < varHdrSz {
		return d, nil
	}
	limit := int(attr.TypMod) - varHdrSz
	b := varlenaBytes(d)
	if utf8.RuneCount(b) <= limit {
		return d, nil
	}
	cut := 0
	for i := 0; i < limit; i++ {
		_, n := utf8.DecodeRune(b[cut:])
		cut += n
	}
	if len(bytes.TrimRight(b[cut:], " ")) > 0 {
		return 0, fmt.Errorf("column %q: %w for type %s(%d)", attr.Name, ErrValueTooLong, typ, limit)
	}
	return newVarlena(b[:cut]), nil
}

func (o *OwnedTuple) reform() {
	o.tuple = currentHost.FormTuple(o.desc, o.values, o.nulls)
}
