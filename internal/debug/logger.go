/*
 * Copyright 2025 SREDiag Authors
 * Copyright 2023 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package debug holds the leveled diagnostic logger shared by plugin-qshm packages.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/valyala/bytebufferpool"
)

// Logger writes leveled, colored diagnostic lines tagged with the caller location.
type Logger struct {
	name      string
	out       io.Writer
	callDepth int
}

var (
	level atomic.Int32

	magenta = string([]byte{27, 91, 57, 53, 109}) // Trace
	green   = string([]byte{27, 91, 57, 50, 109}) // Debug
	blue    = string([]byte{27, 91, 57, 52, 109}) // Info
	yellow  = string([]byte{27, 91, 57, 51, 109}) // Warn
	red     = string([]byte{27, 91, 57, 49, 109}) // Error
	reset   = string([]byte{27, 91, 48, 109})

	colors = []string{
		magenta,
		green,
		blue,
		yellow,
		red,
	}

	levelName = []string{
		"Trace",
		"Debug",
		"Info",
		"Warn",
		"Error",
	}
)

const (
	LevelTrace = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelNoPrint
)

// EnvLogLevel names the process env that overrides the default level.
const EnvLogLevel = "QSHM_LOG_LEVEL"

func init() {
	level.Store(LevelWarn)
	if v := os.Getenv(EnvLogLevel); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= LevelTrace && n <= LevelNoPrint {
			level.Store(int32(n))
		}
	}
}

// SetLogLevel changes the level of every Logger. The default level is Warn,
// the process env QSHM_LOG_LEVEL also could set it.
func SetLogLevel(l int) {
	if l >= LevelTrace && l <= LevelNoPrint {
		level.Store(int32(l))
	}
}

// LogLevel returns the current level.
func LogLevel() int {
	return int(level.Load())
}

// NewLogger returns a Logger writing to out, or to os.Stderr when out is nil.
func NewLogger(name string, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}
	return &Logger{
		name:      name,
		out:       out,
		callDepth: 3,
	}
}

func (l *Logger) enabled(lv int) bool {
	return int(level.Load()) <= lv
}

func (l *Logger) printf(lv int, format string, a ...interface{}) {
	if _, err := fmt.Fprintf(l.out, l.prefix(lv, 1)+format+reset+"\n", a...); err != nil {
		fmt.Fprintf(os.Stderr, "logger %s failed: %v\n", levelName[lv], err)
	}
}

func (l *Logger) Errorf(format string, a ...interface{}) {
	if !l.enabled(LevelError) {
		return
	}
	l.printf(LevelError, format, a...)
}

func (l *Logger) Error(v interface{}) {
	if !l.enabled(LevelError) {
		return
	}
	if _, err := fmt.Fprintln(l.out, l.prefix(LevelError, 0), v, reset); err != nil {
		fmt.Fprintf(os.Stderr, "logger error failed: %v\n", err)
	}
}

func (l *Logger) Warnf(format string, a ...interface{}) {
	if !l.enabled(LevelWarn) {
		return
	}
	l.printf(LevelWarn, format, a...)
}

func (l *Logger) Infof(format string, a ...interface{}) {
	if !l.enabled(LevelInfo) {
		return
	}
	l.printf(LevelInfo, format, a...)
}

func (l *Logger) Info(v interface{}) {
	if !l.enabled(LevelInfo) {
		return
	}
	if _, err := fmt.Fprintln(l.out, l.prefix(LevelInfo, 0), v, reset); err != nil {
		fmt.Fprintf(os.Stderr, "logger info failed: %v\n", err)
	}
}

func (l *Logger) Debugf(format string, a ...interface{}) {
	if !l.enabled(LevelDebug) {
		return
	}
	l.printf(LevelDebug, format, a...)
}

func (l *Logger) Tracef(format string, a ...interface{}) {
	if !l.enabled(LevelTrace) {
		return
	}
	l.printf(LevelTrace, format, a...)
}

// prefix renders the line header; skip counts extra frames between the
// exported method and prefix.
func (l *Logger) prefix(lv, skip int) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	_, _ = buf.WriteString(colors[lv])
	_, _ = buf.WriteString(levelName[lv])
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(time.Now().Format("2006-01-02 15:04:05.999999"))
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(l.location(skip))
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(l.name)
	_ = buf.WriteByte(' ')
	return buf.String()
}

func (l *Logger) location(skip int) string {
	_, file, line, ok := runtime.Caller(l.callDepth + skip)
	if !ok {
		file = "???"
		line = 0
	}
	file = filepath.Base(file)
	return file + ":" + strconv.Itoa(line)
}
