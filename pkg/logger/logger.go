// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

var defaultLogger *slog.Logger

const modulePackagePrefix = "orchestr8/taskflow"

// ParseLevel converts a string log level to slog.Level. Valid levels are
// debug, info, warn (or warning), and error; anything else falls back to
// warn rather than erroring, since a misconfigured level shouldn't block
// startup.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, nil
	}
}

// moduleOnlyHandler drops records whose call frame lies outside this
// module once the configured level is above debug, so a noisy dependency
// (chromem-go's own logging, a SQL driver, etc.) doesn't flood non-debug
// output. At debug level every record passes through.
type moduleOnlyHandler struct {
	next     slog.Handler
	minLevel slog.Level
}

func (h *moduleOnlyHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel && h.next.Enabled(ctx, level)
}

func (h *moduleOnlyHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.minLevel <= slog.LevelDebug || originatesInModule(record.PC) {
		return h.next.Handle(ctx, record)
	}
	return nil
}

func (h *moduleOnlyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &moduleOnlyHandler{next: h.next.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *moduleOnlyHandler) WithGroup(name string) slog.Handler {
	return &moduleOnlyHandler{next: h.next.WithGroup(name), minLevel: h.minLevel}
}

func originatesInModule(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return false
	}
	file, _ := fn.FileLine(pc)
	return strings.Contains(fn.Name(), modulePackagePrefix) || strings.Contains(file, modulePackagePrefix+"/")
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "\033[31m"
	case level >= slog.LevelWarn:
		return "\033[33m"
	case level >= slog.LevelInfo:
		return "\033[36m"
	default:
		return "\033[90m"
	}
}

func normalizedLevel(level slog.Level) string {
	s := strings.ToUpper(level.String())
	if s == "WARNING" {
		return "WARN"
	}
	return s
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// lineHandler renders one log line per record: LEVEL message key=value...,
// optionally colored and optionally timestamped. Init selects between
// these two knobs instead of maintaining a separate handler type per
// format/color combination.
type lineHandler struct {
	writer   io.Writer
	useColor bool
	withTime bool
}

func (h *lineHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *lineHandler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder

	if h.withTime && !record.Time.IsZero() {
		b.WriteString(record.Time.Format("2006/01/02 15:04:05 "))
	}

	level := normalizedLevel(record.Level)
	if h.useColor {
		b.WriteString(levelColor(record.Level))
		b.WriteString(level)
		b.WriteString("\033[0m")
	} else {
		b.WriteString(level)
	}
	b.WriteByte(' ')
	b.WriteString(record.Message)

	record.Attrs(func(a slog.Attr) bool {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteByte('=')
		b.WriteString(a.Value.String())
		return true
	})
	b.WriteByte('\n')

	_, err := h.writer.Write([]byte(b.String()))
	return err
}

func (h *lineHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *lineHandler) WithGroup(string) slog.Handler      { return h }

// Init installs the process-wide default slog logger at level, writing to
// output in the requested format:
//
//   - "simple" (or ""): LEVEL message key=value...
//   - "verbose": timestamp prepended to the simple format
//   - anything else: slog's standard text handler, unchanged
//
// Color is applied automatically when output is a terminal. Regardless of
// format, records from outside this module are suppressed unless level is
// debug.
func Init(level slog.Level, output *os.File, format string) {
	var handler slog.Handler
	switch format {
	case "simple", "":
		handler = &lineHandler{writer: output, useColor: isTerminal(output)}
	case "verbose":
		handler = &lineHandler{writer: output, useColor: isTerminal(output), withTime: true}
	default:
		handler = slog.NewTextHandler(output, &slog.HandlerOptions{Level: level})
	}

	defaultLogger = slog.New(&moduleOnlyHandler{next: handler, minLevel: level})
	slog.SetDefault(defaultLogger)
}

// OpenLogFile opens (creating if necessary) path for append-only writing,
// returning the handle and a cleanup function that closes it.
func OpenLogFile(path string) (*os.File, func(), error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return file, func() { file.Close() }, nil
}

// GetLogger returns the process-wide default logger, initializing it with
// info-level simple output to stderr on first use if Init was never called.
func GetLogger() *slog.Logger {
	if defaultLogger == nil {
		Init(slog.LevelInfo, os.Stderr, "simple")
	}
	return defaultLogger
}
