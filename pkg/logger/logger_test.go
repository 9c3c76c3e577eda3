package logger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelWarn,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestInit_SimpleFormatWritesLevelAndMessage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	Init(slog.LevelInfo, file, "simple")
	logger := GetLogger()
	logger.Info("hello world", "key", "value")

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "INFO hello world key=value")
}

func TestInit_VerboseFormatIncludesTimestamp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	Init(slog.LevelInfo, file, "verbose")
	GetLogger().Warn("careful")

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(contents)
	assert.Contains(t, line, "WARN careful")
	assert.Regexp(t, `^\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2} `, line)
}

func TestModuleOnlyHandler_DropsUnattributableRecordsAboveDebug(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	inner := &lineHandler{writer: file, useColor: false}
	record := slog.NewRecord(time.Time{}, slog.LevelInfo, "from outside the module", 0)

	// PC 0 simulates a caller the runtime can't attribute to this module
	// (e.g. a record forwarded from a dependency's own logger).
	infoHandler := &moduleOnlyHandler{next: inner, minLevel: slog.LevelInfo}
	require.NoError(t, infoHandler.Handle(context.Background(), record))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(string(contents)))

	debugHandler := &moduleOnlyHandler{next: inner, minLevel: slog.LevelDebug}
	require.NoError(t, debugHandler.Handle(context.Background(), record))

	contents, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "from outside the module")
}

func TestOpenLogFile_CreatesAndAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	file, cleanup, err := OpenLogFile(path)
	require.NoError(t, err)
	_, err = file.WriteString("line one\n")
	require.NoError(t, err)
	cleanup()

	file2, cleanup2, err := OpenLogFile(path)
	require.NoError(t, err)
	_, err = file2.WriteString("line two\n")
	require.NoError(t, err)
	cleanup2()

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", string(contents))
}
