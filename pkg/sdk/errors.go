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
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/lib/pq"

	"github.com/pgext/extension-sdk-go/pkg/sdk/elog"
)

var (
	ErrNotTrigger      = errors.New("function was not called by trigger manager")
	ErrNoTuple         = errors.New("tuple is not available for this trigger event")
	ErrNoSuchColumn    = errors.New("no such column")
	ErrIndexOutOfRange = errors.New("attribute number out of range")
	ErrDroppedColumn   = errors.New("column has been dropped")
	ErrTypeMismatch    = errors.New("incompatible types")
	ErrNoSuchArgument  = errors.New("no such argument")
	ErrValueTooLong    = errors.New("value too long")
)

// SQLSTATE codes used by the SDK, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	CodeInternalError           pq.ErrorCode = "XX000"
	CodeTriggerProtocolViolated pq.ErrorCode = "39P01"
	CodeUndefinedColumn         pq.ErrorCode = "42703"
	CodeDatatypeMismatch        pq.ErrorCode = "42804"
	CodeInvalidParameterValue   pq.ErrorCode = "22023"
	CodeInvalidTextRepr         pq.ErrorCode = "22P02"
	CodeStringDataRightTrunc    pq.ErrorCode = "22001"
	CodeObjectNotInPrereqState  pq.ErrorCode = "55000"
	CodeRaiseException          pq.ErrorCode = "P0001"
)

// AbortError describes the failure of an extension function call. Once
// returned to the database it is raised with ereport(ERROR), which aborts
// the current statement.
type AbortError struct {
	Code    pq.ErrorCode
	Message string
	Detail  string
	Hint    string
	Err     error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("%s (SQLSTATE %s %s)", e.Message, e.Code, e.Code.Name())
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// Abort aborts the current call with err. It never returns: the
// function call is unwound up to Invoke, which reports the error to
// the database. The SQLSTATE is derived from err when it wraps one
// of the errors of this package.
func Abort(err error) {
	var abortErr *AbortError
	if errors.As(err, &abortErr) {
		panic(abortErr)
	}
	panic(&AbortError{Code: codeOf(err), Message: err.Error(), Err: err})
}

// Abortf aborts the current call with a formatted message and
// the given SQLSTATE. See Abort.
func Abortf(code pq.ErrorCode, format string, args ...interface{}) {
	panic(&AbortError{Code: code, Message: fmt.Sprintf(format, args...)})
}

// Must returns v, or aborts the current call if err is not nil.
func Must[T any](v T, err error) T {
	if err != nil {
		Abort(err)
	}
	return v
}

// violation aborts the current call on a broken precondition of
// the conversion layer.
func violation(msg string) {
	panic(&AbortError{Code: CodeInternalError, Message: "pgext-sdk-go/sdk: " + msg})
}

func codeOf(err error) pq.ErrorCode {
	switch {
	case errors.Is(err, ErrNotTrigger):
		return CodeTriggerProtocolViolated
	case errors.Is(err, ErrNoSuchColumn), errors.Is(err, ErrDroppedColumn):
		return CodeUndefinedColumn
	case errors.Is(err, ErrTypeMismatch):
		return CodeDatatypeMismatch
	case errors.Is(err, ErrIndexOutOfRange), errors.Is(err, ErrNoSuchArgument):
		return CodeInvalidParameterValue
	case errors.Is(err, ErrValueTooLong):
		return CodeStringDataRightTrunc
	case errors.Is(err, ErrNoTuple):
		return CodeObjectNotInPrereqState
	default:
		return CodeRaiseException
	}
}

// Func is the signature of an extension function. The returned Datum
// is ignored if the function marks its result as NULL.
type Func func(fcinfo FunctionCallInfo) Datum

// Invoke calls fn and converts any panic raised during the call into
// an error, so that no Datum is ever returned for an aborted call.
// Panics that are not raised by Abort are reported as internal errors.
func Invoke(fn Func, fcinfo FunctionCallInfo) (res Datum, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = 0
			err = recoveredError(r)
		}
	}()
	return fn(fcinfo), nil
}

func recoveredError(r interface{}) error {
	switch v := r.(type) {
	case *AbortError:
		return v
	case error:
		elog.Debugf("recovered from panic: %v\n%s", v, debug.Stack())
		return &AbortError{Code: CodeInternalError, Message: v.Error(), Err: v}
	default:
		elog.Debugf("recovered from panic: %v\n%s", v, debug.Stack())
		return &AbortError{Code: CodeInternalError, Message: fmt.Sprint(v)}
	}
}
