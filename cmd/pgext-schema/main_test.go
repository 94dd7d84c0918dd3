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

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-pkgz/lgr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `name: hello
version: "1.0"
comment: Says hello
functions:
  - name: hello
    args: [text]
    returns: text
    strict: true
    volatility: immutable
`

func writeManifest(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "hello.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunCommand(t *testing.T) {
	manifest := writeManifest(t, testManifest)
	out := filepath.Join(t.TempDir(), "share")

	var buf bytes.Buffer
	os.Args = []string{"pgext-schema", "--manifest", manifest, "--out", out, "--dbg"}
	defer setupLog(false)

	require.NoError(t, runCommand(lgr.Out(&buf), lgr.Err(io.Discard)))
	assert.Contains(t, buf.String(), "[DEBUG]")
	assert.Contains(t, buf.String(), "written "+filepath.Join(out, "hello.control"))

	control, err := os.ReadFile(filepath.Join(out, "hello.control"))
	require.NoError(t, err)
	assert.Equal(t, "# hello extension\n"+
		"comment = 'Says hello'\n"+
		"default_version = '1.0'\n"+
		"module_pathname = '$libdir/hello'\n"+
		"relocatable = false\n", string(control))

	script, err := os.ReadFile(filepath.Join(out, "hello--1.0.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(script), "CREATE FUNCTION \"hello\"(text) RETURNS text\nLANGUAGE c IMMUTABLE STRICT\nAS 'MODULE_PATHNAME', 'hello';\n")
}

func TestRunErrors(t *testing.T) {
	err := run(options{Manifest: filepath.Join(t.TempDir(), "missing.yml"), Out: t.TempDir()})
	assert.ErrorContains(t, err, "can't read manifest")

	manifest := writeManifest(t, "name: Hello\nversion: \"1.0\"\nfunctions: []\n")
	err = run(options{Manifest: manifest, Out: t.TempDir()})
	assert.ErrorContains(t, err, "invalid extension name \"Hello\"")

	manifest = writeManifest(t, "name: hello\nversion: \"1.0\"\nunknown: true\nfunctions: []\n")
	err = run(options{Manifest: manifest, Out: t.TempDir()})
	assert.ErrorContains(t, err, "parsing manifest")
}

func TestRunPrint(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, run(options{Manifest: writeManifest(t, testManifest), Out: out, Print: true}))
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunTOML(t *testing.T) {
	manifest := filepath.Join(t.TempDir(), "hello.toml")
	require.NoError(t, os.WriteFile(manifest, []byte("name = \"hello\"\nversion = \"2.0\"\nfunctions = []\n"), 0o600))
	out := t.TempDir()
	require.NoError(t, run(options{Manifest: manifest, Out: out}))
	assert.FileExists(t, filepath.Join(out, "hello.control"))
	assert.FileExists(t, filepath.Join(out, "hello--2.0.sql"))
}
