/*
 * Copyright 2025 usb-serial-for-android authors
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

// Package logging is the library's internal leveled logger. The level
// defaults to Warn and is process-wide, as is the debug-trace toggle
// gating verbose per-receive output.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

const (
	LevelTrace = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelNoPrint
)

type Logger struct {
	name      string
	out       io.Writer
	callDepth int
}

var (
	level     int32
	debugMode atomic.Bool

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

func init() {
	level = LevelWarn
	if os.Getenv("USBSERIAL_LOG_LEVEL") != "" {
		if n, err := strconv.Atoi(os.Getenv("USBSERIAL_LOG_LEVEL")); err == nil {
			if n <= LevelNoPrint {
				level = int32(n)
			}
		}
	}

	if os.Getenv("USBSERIAL_DEBUG_MODE") != "" {
		debugMode.Store(true)
	}
}

// SetLevel changes the process-wide log level; the default is Warn.
// The process env `USBSERIAL_LOG_LEVEL` also sets it.
func SetLevel(l int) {
	if l <= LevelNoPrint {
		atomic.StoreInt32(&level, int32(l))
	}
}

// SetDebug toggles verbose per-receive tracing, off by default. The
// process env `USBSERIAL_DEBUG_MODE` also enables it.
func SetDebug(enabled bool) {
	debugMode.Store(enabled)
}

// DebugEnabled reports whether per-receive tracing is on.
func DebugEnabled() bool {
	return debugMode.Load()
}

func currentLevel() int {
	return int(atomic.LoadInt32(&level))
}

// New returns a named logger writing to out, or stdout when out is nil.
func New(name string, out io.Writer) *Logger {
	if out == nil {
		out = os.Stdout
	}
	return &Logger{
		name:      name,
		out:       out,
		callDepth: 3,
	}
}

func (l *Logger) Errorf(format string, a ...interface{}) {
	if currentLevel() > LevelError {
		return
	}
	fmt.Fprintf(l.out, l.prefix(LevelError)+format+reset+"\n", a...)
}

func (l *Logger) Warnf(format string, a ...interface{}) {
	if currentLevel() > LevelWarn {
		return
	}
	fmt.Fprintf(l.out, l.prefix(LevelWarn)+format+reset+"\n", a...)
}

func (l *Logger) Infof(format string, a ...interface{}) {
	if currentLevel() > LevelInfo {
		return
	}
	fmt.Fprintf(l.out, l.prefix(LevelInfo)+format+reset+"\n", a...)
}

func (l *Logger) Debugf(format string, a ...interface{}) {
	if currentLevel() > LevelDebug {
		return
	}
	fmt.Fprintf(l.out, l.prefix(LevelDebug)+format+reset+"\n", a...)
}

func (l *Logger) Tracef(format string, a ...interface{}) {
	if currentLevel() > LevelTrace {
		return
	}
	fmt.Fprintf(l.out, l.prefix(LevelTrace)+format+reset+"\n", a...)
}

func (l *Logger) prefix(level int) string {
	var buffer [64]byte
	buf := bytes.NewBuffer(buffer[:0])
	_, _ = buf.WriteString(colors[level])
	_, _ = buf.WriteString(levelName[level])
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(time.Now().Format("2006-01-02 15:04:05.999999"))
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(l.location())
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(l.name)
	_ = buf.WriteByte(' ')
	return buf.String()
}

func (l *Logger) location() string {
	_, file, line, ok := runtime.Caller(l.callDepth)
	if !ok {
		file = "???"
		line = 0
	}
	file = filepath.Base(file)
	return file + ":" + strconv.Itoa(line)
}
