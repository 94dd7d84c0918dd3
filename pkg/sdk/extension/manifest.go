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
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/pgext/extension-sdk-go/pkg/sdk"
)

// Manifest describes the SQL objects of an extension, and the content of
// its control file.
type Manifest struct {
	Name        string        `yaml:"name" toml:"name"`
	Version     string        `yaml:"version" toml:"version"`
	Comment     string        `yaml:"comment,omitempty" toml:"comment,omitempty"`
	Module      string        `yaml:"module,omitempty" toml:"module,omitempty"`
	Requires    []string      `yaml:"requires,omitempty" toml:"requires,omitempty"`
	Schema      string        `yaml:"schema,omitempty" toml:"schema,omitempty"`
	Relocatable bool          `yaml:"relocatable,omitempty" toml:"relocatable,omitempty"`
	Trusted     bool          `yaml:"trusted,omitempty" toml:"trusted,omitempty"`
	Functions   []FunctionDef `yaml:"functions" toml:"functions"`
	// SQL holds statements appended to the install script, in order.
	SQL []string `yaml:"sql,omitempty" toml:"sql,omitempty"`
}

// FunctionDef describes a function in a Manifest. Types are SQL type names.
type FunctionDef struct {
	Name       string     `yaml:"name" toml:"name"`
	Args       []string   `yaml:"args,omitempty" toml:"args,omitempty"`
	Returns    string     `yaml:"returns" toml:"returns"`
	Strict     bool       `yaml:"strict,omitempty" toml:"strict,omitempty"`
	Volatility Volatility `yaml:"volatility,omitempty" toml:"volatility,omitempty"`
	// Symbol is the name of the C symbol, if different from Name.
	Symbol string `yaml:"symbol,omitempty" toml:"symbol,omitempty"`
}

var identRx = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ReadManifest parses a YAML manifest and validates it.
func ReadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ReadManifestTOML is like ReadManifest, but parses a TOML manifest.
func ReadManifestTOML(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ReadManifestFile is like ReadManifest, but reads from a file. Files
// with the .toml extension are parsed as TOML, others as YAML.
func ReadManifestFile(path string) (*Manifest, error) {
	f, err := os.Open(path) //nolint:gosec // path is provided by the user
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if strings.HasSuffix(path, ".toml") {
		return ReadManifestTOML(f)
	}
	return ReadManifest(f)
}

// WriteYAML renders the manifest in YAML.
func (m *Manifest) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}

// Validate returns all the problems found in the manifest.
func (m *Manifest) Validate() error {
	var errs *multierror.Error
	if !identRx.MatchString(m.Name) {
		errs = multierror.Append(errs, fmt.Errorf("invalid extension name %q", m.Name))
	}
	if m.Version == "" {
		errs = multierror.Append(errs, fmt.Errorf("missing extension version"))
	}
	if m.Module != "" && !identRx.MatchString(m.Module) {
		errs = multierror.Append(errs, fmt.Errorf("invalid module name %q", m.Module))
	}
	seen := map[string]bool{}
	for i, f := range m.Functions {
		if !identRx.MatchString(f.Name) {
			errs = multierror.Append(errs, fmt.Errorf("function #%d: invalid name %q", i, f.Name))
		}
		if seen[f.Name] {
			errs = multierror.Append(errs, fmt.Errorf("function #%d: duplicate name %q", i, f.Name))
		}
		seen[f.Name] = true
		if f.Returns == "" {
			errs = multierror.Append(errs, fmt.Errorf("function %q: missing return type", f.Name))
		}
		switch f.Volatility {
		case "", Volatile, Stable, Immutable:
		default:
			errs = multierror.Append(errs, fmt.Errorf("function %q: invalid volatility %q", f.Name, f.Volatility))
		}
	}
	return errs.ErrorOrNil()
}

// ManifestOf returns the manifest of the registered extension and of its
// functions, with the given statements appended to the install script.
func ManifestOf(sql ...string) (*Manifest, error) {
	if registered == nil {
		return nil, fmt.Errorf("no extension has been registered")
	}
	info := registered.Info()
	m := &Manifest{
		Name:        info.Name,
		Version:     info.Version,
		Comment:     info.Description,
		Requires:    info.Requires,
		Schema:      info.Schema,
		Relocatable: info.Relocatable,
		Trusted:     info.Trusted,
		SQL:         sql,
	}
	for _, f := range Functions() {
		def := FunctionDef{
			Name:       f.Name,
			Returns:    sdk.TypeName(f.Signature.Returns),
			Strict:     f.Signature.Strict,
			Volatility: f.Signature.Volatility,
		}
		for _, arg := range f.Signature.Args {
			def.Args = append(def.Args, sdk.TypeName(arg))
		}
		m.Functions = append(m.Functions, def)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
