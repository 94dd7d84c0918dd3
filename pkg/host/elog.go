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
#include <stdlib.h>
#include "pgext.h"
*/
import "C"
import (
	"strings"
	"unsafe"

	"github.com/pgext/extension-sdk-go/pkg/sdk/elog"
)

// elogSink reports messages with elog(). Messages are never reported at
// ERROR level, so elog() never longjmps.
type elogSink struct{}

func (elogSink) Emit(level elog.Level, msg string) {
	cs := C.CString(strings.ReplaceAll(msg, "\x00", ""))
	defer C.free(unsafe.Pointer(cs))
	C.pgext_elog(C.int(level), cs)
}
