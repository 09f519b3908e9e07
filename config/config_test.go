// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.LintOnChange)
	assert.True(t, cfg.LintOnOpen)
	assert.Equal(t, 300*time.Millisecond, cfg.ChangeInterval())
	assert.False(t, cfg.LintPreviewTabs)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lintmux.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
lint_on_change: false
change_interval_ms: 1500
lint_preview_tabs: true
disabled_providers: [eslint, golangci]
server:
  addr: ":9999"
log:
  level: debug
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.LintOnChange)
	assert.Equal(t, 1500*time.Millisecond, cfg.ChangeInterval())
	assert.True(t, cfg.LintPreviewTabs)
	assert.Equal(t, []string{"eslint", "golangci"}, cfg.DisabledProviders)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Untouched fields keep their defaults.
	assert.True(t, cfg.LintOnOpen)
	assert.True(t, cfg.RespectVCSIgnore)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lint_on_change: [not a bool"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative interval", func(c *Config) { c.ChangeIntervalMS = -1 }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"missing server addr", func(c *Config) { c.Server.Addr = "" }},
		{"malformed ignore glob", func(c *Config) { c.IgnoreGlob = "a{b" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
