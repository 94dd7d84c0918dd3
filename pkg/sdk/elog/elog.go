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

// Package elog forwards the log output of extensions to the logging
// facility of the database (elog in utils/elog.h).
//
// Messages are formatted by an lgr logger, and must start with a level
// prefix as usual with lgr, such as "[WARN] ". The package-level functions
// add the prefix by themselves. Levels are mapped to the database ones as
// follows: DEBUG to DEBUG1, INFO to NOTICE, WARN to WARNING, and ERROR to
// LOG. Note that ERROR never aborts the current statement: use sdk.Abort
// for that.
package elog

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/go-pkgz/lgr"
)

// Level is a message severity, with the same values as the elevels of
// the database.
type Level int

const (
	Debug1  Level = 14
	Log     Level = 15
	Info    Level = 17
	Notice  Level = 18
	Warning Level = 19
)

func (l Level) String() string {
	switch l {
	case Debug1:
		return "DEBUG1"
	case Log:
		return "LOG"
	case Info:
		return "INFO"
	case Notice:
		return "NOTICE"
	case Warning:
		return "WARNING"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Sink receives the messages to be reported to the database.
type Sink interface {
	Emit(level Level, msg string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(level Level, msg string)

func (f SinkFunc) Emit(level Level, msg string) {
	f(level, msg)
}

// lgr pads the level to five characters, e.g. "[INFO]  msg"
var lineRx = regexp.MustCompile(`(?s)\[(TRACE|DEBUG|INFO|WARN|ERROR|PANIC|FATAL)\]\s+(.*)`)

// sinkWriter receives the lines formatted by lgr, one per Write.
type sinkWriter struct {
	sink Sink
}

func (w *sinkWriter) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")
	m := lineRx.FindStringSubmatch(line)
	if m == nil {
		w.sink.Emit(Log, line)
		return len(p), nil
	}
	w.sink.Emit(levelOf(m[1]), m[2])
	return len(p), nil
}

func levelOf(s string) Level {
	switch s {
	case "TRACE", "DEBUG":
		return Debug1
	case "INFO":
		return Notice
	case "WARN":
		return Warning
	default:
		return Log
	}
}

// Logger is an lgr logger writing to a Sink.
type Logger struct {
	*lgr.Logger
	sink Sink
}

// New creates a Logger writing to sink. Debug messages are discarded
// unless debug is true.
func New(sink Sink, debug bool) *Logger {
	opts := []lgr.Option{lgr.Out(&sinkWriter{sink: sink}), lgr.Err(io.Discard), lgr.LevelBraces}
	if debug {
		opts = append(opts, lgr.Debug)
	}
	return &Logger{Logger: lgr.New(opts...), sink: sink}
}

// Sink returns the sink of the logger.
func (l *Logger) Sink() Sink {
	return l.sink
}

var (
	mu  sync.RWMutex
	std = New(StderrSink(os.Stderr), false)
)

// Setup replaces the default logger with one writing to sink, and
// returns the previous one.
func Setup(sink Sink, debug bool) *Logger {
	return SetDefault(New(sink, debug))
}

// SetDefault replaces the default logger and returns the previous one.
func SetDefault(l *Logger) *Logger {
	mu.Lock()
	defer mu.Unlock()
	prev := std
	std = l
	return prev
}

// Default returns the default logger.
func Default() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

func Debugf(format string, args ...interface{}) {
	Default().Logf("[DEBUG] "+format, args...)
}

func Infof(format string, args ...interface{}) {
	Default().Logf("[INFO] "+format, args...)
}

func Warnf(format string, args ...interface{}) {
	Default().Logf("[WARN] "+format, args...)
}

func Errorf(format string, args ...interface{}) {
	Default().Logf("[ERROR] "+format, args...)
}

// StderrSink returns a sink writing one line per message to w, in the
// format of the server log.
func StderrSink(w io.Writer) Sink {
	var mu sync.Mutex
	return SinkFunc(func(level Level, msg string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "%s:  %s\n", level, msg)
	})
}

// Entry is a message stored by a Recorder.
type Entry struct {
	Level   Level
	Message string
}

// Recorder is a Sink that stores all messages in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) Emit(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Message: msg})
}

// Entries returns a copy of the stored messages.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]Entry, len(r.entries))
	copy(res, r.entries)
	return res
}

// Messages returns the text of the stored messages with the given level.
func (r *Recorder) Messages(level Level) []string {
	var res []string
	for _, e := range r.Entries() {
		if e.Level == level {
			res = append(res, e.Message)
		}
	}
	return res
}

// Reset discards the stored messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}
