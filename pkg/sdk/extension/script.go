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
	"strings"

	"github.com/lib/pq"
)

// InstallScript renders the SQL script run by CREATE EXTENSION.
func InstallScript(m *Manifest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- complain if script is sourced in psql, rather than via CREATE EXTENSION\n")
	fmt.Fprintf(&b, "\\echo Use \"CREATE EXTENSION %s\" to load this file. \\quit\n", m.Name)
	for _, f := range m.Functions {
		symbol := f.Symbol
		if symbol == "" {
			symbol = f.Name
		}
		volatility := f.Volatility
		if volatility == "" {
			volatility = Volatile
		}
		fmt.Fprintf(&b, "\nCREATE FUNCTION %s(%s) RETURNS %s\n", pq.QuoteIdentifier(f.Name), strings.Join(f.Args, ", "), f.Returns)
		fmt.Fprintf(&b, "LANGUAGE c %s", strings.ToUpper(string(volatility)))
		if f.Strict {
			b.WriteString(" STRICT")
		}
		fmt.Fprintf(&b, "\nAS 'MODULE_PATHNAME', %s;\n", pq.QuoteLiteral(symbol))
	}
	for _, stmt := range m.SQL {
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(stmt, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// ControlFile renders the control file of the extension.
func ControlFile(m *Manifest) string {
	module := m.Module
	if module == "" {
		module = m.Name
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s extension\n", m.Name)
	if m.Comment != "" {
		fmt.Fprintf(&b, "comment = %s\n", pq.QuoteLiteral(m.Comment))
	}
	fmt.Fprintf(&b, "default_version = %s\n", pq.QuoteLiteral(m.Version))
	fmt.Fprintf(&b, "module_pathname = %s\n", pq.QuoteLiteral("$libdir/"+module))
	fmt.Fprintf(&b, "relocatable = %t\n", m.Relocatable)
	if m.Trusted {
		b.WriteString("trusted = true\n")
	}
	if m.Schema != "" {
		fmt.Fprintf(&b, "schema = %s\n", m.Schema)
	}
	if len(m.Requires) > 0 {
		fmt.Fprintf(&b, "requires = %s\n", pq.QuoteLiteral(strings.Join(m.Requires, ", ")))
	}
	return b.String()
}

// ScriptFileName returns the name of the install script of m.
func ScriptFileName(m *Manifest) string {
	return fmt.Sprintf("%s--%s.sql", m.Name, m.Version)
}

// ControlFileName returns the name of the control file of m.
func ControlFileName(m *Manifest) string {
	return m.Name + ".control"
}
