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

// pgext-schema renders the control file and the install script of an
// extension from its YAML manifest.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/pgext/extension-sdk-go/pkg/sdk/extension"
)

type options struct {
	Manifest string `short:"m" long:"manifest" env:"PGEXT_MANIFEST" required:"true" description:"path of the extension manifest"`
	Out      string `short:"o" long:"out" env:"PGEXT_OUT" default:"." description:"directory where the files are written"`
	Print    bool   `short:"p" long:"print" description:"print the files instead of writing them"`
	Dbg      bool   `long:"dbg" description:"debug mode"`
}

var revision = "latest"

var exitFunc = os.Exit

func main() {
	fmt.Printf("pgext-schema %s\n", revision)
	if err := runCommand(); err != nil {
		log.Printf("[ERROR] %v", err)
		exitFunc(1)
	}
}

func runCommand(logOpts ...lgr.Option) error {
	var opts options
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash|flags.HelpFlag)
	if _, err := p.Parse(); err != nil {
		return err
	}
	setupLog(opts.Dbg, logOpts...)
	return run(opts)
}

func run(opts options) error {
	m, err := extension.ReadManifestFile(opts.Manifest)
	if err != nil {
		return fmt.Errorf("can't read manifest %s: %w", opts.Manifest, err)
	}
	log.Printf("[DEBUG] manifest %s: extension %s %s, %d functions", opts.Manifest, m.Name, m.Version, len(m.Functions))

	files := []struct {
		name, content string
	}{
		{extension.ControlFileName(m), extension.ControlFile(m)},
		{extension.ScriptFileName(m), extension.InstallScript(m)},
	}

	if opts.Print {
		for _, f := range files {
			fmt.Printf("-- %s\n%s", f.name, f.content)
		}
		return nil
	}

	if err := os.MkdirAll(opts.Out, 0o750); err != nil {
		return fmt.Errorf("can't create output directory: %w", err)
	}
	for _, f := range files {
		path := filepath.Join(opts.Out, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0o644); err != nil { //nolint:gosec // installed files are world readable
			return fmt.Errorf("can't write %s: %w", path, err)
		}
		log.Printf("[INFO] written %s", path)
	}
	return nil
}

// setupLog configures lgr and the standard logger, extra options are
// applied last.
func setupLog(dbg bool, extra ...lgr.Option) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	logOpts = append(logOpts, extra...)

	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
