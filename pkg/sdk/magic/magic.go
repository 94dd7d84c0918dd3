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

// Package magic describes the ABI compatibility block of the database
// (Pg_magic_struct in fmgr.h) that the datum conversion layer is built
// for, and verifies it against the one of the running server.
package magic

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/hashicorp/go-multierror"
)

// Block is the ABI compatibility block of a server.
type Block struct {
	// Version is the major version of the server, as PG_VERSION_NUM / 100.
	Version      int
	FuncMaxArgs  int
	IndexMaxKeys int
	NameDataLen  int
	Float8ByVal  bool
	DatumSize    int
	ABIExtra     string
}

func (b Block) String() string {
	return fmt.Sprintf("version=%d funcmaxargs=%d indexmaxkeys=%d namedatalen=%d float8byval=%v datumsize=%d abi=%q",
		b.Version, b.FuncMaxArgs, b.IndexMaxKeys, b.NameDataLen, b.Float8ByVal, b.DatumSize, b.ABIExtra)
}

// Expected is the block the SDK is built for. Any server version is
// accepted.
var Expected = Block{
	FuncMaxArgs:  100,
	IndexMaxKeys: 32,
	NameDataLen:  64,
	Float8ByVal:  true,
	DatumSize:    int(unsafe.Sizeof(uintptr(0))),
	ABIExtra:     "PostgreSQL",
}

// Verify returns an error listing every field of b that differs from
// Expected.
func Verify(b Block) error {
	var errs *multierror.Error
	check := func(name string, want, got interface{}) {
		if want != got {
			errs = multierror.Append(errs, fmt.Errorf("%s: expected %v, but found %v", name, want, got))
		}
	}
	if Expected.Version != 0 {
		check("version", Expected.Version, b.Version)
	}
	check("funcmaxargs", Expected.FuncMaxArgs, b.FuncMaxArgs)
	check("indexmaxkeys", Expected.IndexMaxKeys, b.IndexMaxKeys)
	check("namedatalen", Expected.NameDataLen, b.NameDataLen)
	check("float8byval", Expected.Float8ByVal, b.Float8ByVal)
	check("datumsize", Expected.DatumSize, b.DatumSize)
	check("abi_extra", Expected.ABIExtra, b.ABIExtra)
	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("incompatible server ABI: %w", err)
	}
	return nil
}

var (
	mu     sync.Mutex
	loaded *Block
)

// Set records the block of the running server. It panics if called
// more than once.
func Set(b Block) {
	mu.Lock()
	defer mu.Unlock()
	if loaded != nil {
		panic("pgext-sdk-go/sdk/magic.Set: the server block can be set only once")
	}
	loaded = &b
}

// Get returns the block of the running server, and false if it has not
// been set yet.
func Get() (Block, bool) {
	mu.Lock()
	defer mu.Unlock()
	if loaded == nil {
		return Block{}, false
	}
	return *loaded, true
}

// reset is used by tests.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	loaded = nil
}
