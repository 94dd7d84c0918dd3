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

	"github.com/pgext/extension-sdk-go/pkg/sdk"
)

// abortOf runs fn and returns the error it aborted with.
func abortOf(t *testing.T, fn func()) (res *sdk.AbortError) {
	t.Helper()
	func() {
		defer func() {
			r := recover()
			if r == nil {
				t.Fatalf("expected abort")
			}
			abortErr, ok := r.(*sdk.AbortError)
			if !ok {
				t.Fatalf("expected *sdk.AbortError, but found %T: %v", r, r)
			}
			res = abortErr
		}()
		fn()
	}()
	return res
}
