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

package extension

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/lib/pq"
	"github.com/lib/pq/oid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/pgext/extension-sdk-go/pkg/sdk"
	"github.com/pgext/extension-sdk-go/pkg/sdk/elog"
	"github.com/pgext/extension-sdk-go/pkg/sdk/magic"
	"github.com/pgext/extension-sdk-go/pkg/sdk/metrics"
)

// MetricsFunction is the name of the built-in function returning the
// metrics of the extension in the Prometheus text format.
const MetricsFunction = "pgext_metrics"

const codeUndefinedFunction pq.ErrorCode = "42883"

var (
	registered Extension
	registry   *metrics.Registry
	functions  = map[string]*Function{}

	loadOnce sync.Once
	loadErr  error
)

// Register registers the extension. It panics if called more than once.
func Register(e Extension) {
	if registered != nil {
		panic("pgext-sdk-go/sdk/extension: register can be called only once")
	}
	if e == nil {
		panic("pgext-sdk-go/sdk/extension.Register: e must not be nil")
	}
	registered = e
	registry = metrics.NewRegistry(e.Info().Name)
	Func(MetricsFunction, metricsFunc, Signature{Returns: oid.T_text, Volatility: Volatile})
}

// Registered returns the registered extension, or nil.
func Registered() Extension {
	return registered
}

// Metrics returns the metrics registry of the registered extension, for
// extensions to define their own metrics. It panics if no extension has
// been registered.
func Metrics() *metrics.Registry {
	if registry == nil {
		panic("pgext-sdk-go/sdk/extension.Metrics: no extension has been registered")
	}
	return registry
}

// Func registers fn as the implementation of the SQL function name. The
// name must match the one passed to the PGEXT_FUNCTION macro. It panics if
// a function with the same name has already been registered.
func Func(name string, fn sdk.Func, sig Signature) {
	if fn == nil {
		panic("pgext-sdk-go/sdk/extension.Func: fn must not be nil")
	}
	if name == "" {
		panic("pgext-sdk-go/sdk/extension.Func: name must not be empty")
	}
	if _, ok := functions[name]; ok {
		panic(fmt.Sprintf("pgext-sdk-go/sdk/extension.Func: function %q is already registered", name))
	}
	if sig.Volatility == "" {
		sig.Volatility = Volatile
	}
	functions[name] = &Function{Name: name, Fn: fn, Signature: sig}
}

// Lookup returns the registered function with the given name.
func Lookup(name string) (*Function, bool) {
	f, ok := functions[name]
	return f, ok
}

// Functions returns all the registered functions, sorted by name.
func Functions() []*Function {
	res := make([]*Function, 0, len(functions))
	for _, f := range functions {
		res = append(res, f)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// Load initializes the registered extension with config. Only the first
// call has effect, and later calls return its result. The ABI block of the
// server is verified if it has been set, then config is validated against
// the schema of the extension, if any.
func Load(config string) error {
	loadOnce.Do(func() {
		loadErr = load(config)
		if loadErr != nil {
			elog.Errorf("extension initialization failed: %s", loadErr)
		}
	})
	return loadErr
}

func load(config string) error {
	if registered == nil {
		return errors.New("no extension has been registered")
	}
	if b, ok := magic.Get(); ok {
		if err := magic.Verify(b); err != nil {
			return err
		}
	}
	config, err := validateConfig(registered, config)
	if err != nil {
		return err
	}
	info := registered.Info()
	elog.Debugf("initializing extension %s %s", info.Name, info.Version)
	if err := registered.Init(config); err != nil {
		return fmt.Errorf("initializing extension %q: %w", info.Name, err)
	}
	return nil
}

func validateConfig(e Extension, config string) (string, error) {
	if len(config) == 0 {
		config = "{}"
	}
	s, ok := e.(InitSchema)
	if !ok || s.InitSchema() == nil {
		return config, nil
	}
	schema := gojsonschema.NewStringLoader(s.InitSchema().Schema)
	document := gojsonschema.NewStringLoader(config)
	result, err := gojsonschema.Validate(schema, document)
	if err != nil {
		return "", fmt.Errorf("validating configuration: %w", err)
	}
	if !result.Valid() {
		var errs *multierror.Error
		for _, desc := range result.Errors() {
			errs = multierror.Append(errs, errors.New(desc.String()))
		}
		return "", fmt.Errorf("invalid configuration: %w", errs)
	}
	return config, nil
}

// Call dispatches a call of the SQL function name. Failures, including
// panics raised by the function, are returned as *sdk.AbortError.
func Call(name string, fcinfo sdk.FunctionCallInfo) (sdk.Datum, error) {
	f, ok := functions[name]
	if !ok {
		return 0, &sdk.AbortError{
			Code:    codeUndefinedFunction,
			Message: fmt.Sprintf("function %q is not registered by the extension", name),
			Hint:    "Register the function with extension.Func in the Go library.",
		}
	}
	if registered != nil {
		if err := Load(""); err != nil {
			return 0, &sdk.AbortError{
				Code:    sdk.CodeObjectNotInPrereqState,
				Message: fmt.Sprintf("extension %q failed to initialize", registered.Info().Name),
				Detail:  err.Error(),
				Err:     err,
			}
		}
	}

	start := time.Now()
	res, err := sdk.Invoke(f.Fn, fcinfo)
	if registry != nil {
		code := ""
		var abortErr *sdk.AbortError
		if errors.As(err, &abortErr) {
			code = string(abortErr.Code)
		}
		registry.Observe(name, time.Since(start), code)
	}
	if err != nil {
		elog.Debugf("function %s aborted: %s", name, err)
	}
	return res, err
}

func metricsFunc(fcinfo sdk.FunctionCallInfo) sdk.Datum {
	text, err := Metrics().Text()
	if err != nil {
		sdk.Abort(err)
	}
	return sdk.Return(fcinfo, sdk.Text, text)
}

// reset is used by tests.
func reset() {
	registered = nil
	registry = nil
	functions = map[string]*Function{}
	loadOnce = sync.Once{}
	loadErr = nil
}
