// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.level.String())
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelInfo, ParseLevel("info"))
	assert.Equal(t, LevelWarn, ParseLevel("warn"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestLevel_ToSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LevelDebug.toSlogLevel())
	assert.Equal(t, slog.LevelInfo, LevelInfo.toSlogLevel())
	assert.Equal(t, slog.LevelWarn, LevelWarn.toSlogLevel())
	assert.Equal(t, slog.LevelError, LevelError.toSlogLevel())
}

func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		Level:   LevelDebug,
		LogDir:  dir,
		Service: "testsvc",
		Quiet:   true,
	})

	logger.Info("hello", "key", "value")
	logger.Debug("dbg")
	require.NoError(t, logger.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "testsvc_"))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "testsvc", entry["service"])
}

func TestNew_LevelFilters(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		Level:   LevelWarn,
		LogDir:  dir,
		Service: "testsvc",
		Quiet:   true,
	})

	logger.Info("filtered out")
	logger.Warn("kept")
	require.NoError(t, logger.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
	assert.Contains(t, string(data), "kept")
}

func TestWith_ChildCarriesAttrs(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Service: "testsvc", Quiet: true})

	child := logger.With("provider", "eslint")
	child.Info("committed")
	require.NoError(t, logger.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"provider":"eslint"`)
}

func TestClose_NoFileIsNoop(t *testing.T) {
	logger := New(Config{Quiet: true})
	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.Close())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".lintmux"), expandPath("~/.lintmux"))
	assert.Equal(t, "/var/log", expandPath("/var/log"))
	assert.Equal(t, "relative", expandPath("relative"))
}
