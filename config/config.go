// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and validates the lintmux configuration.
//
// The configuration surface covers trigger behavior (lint on open, on
// change, the change debounce interval), eligibility gates (ignore glob,
// VCS ignore, preview tabs, disabled providers), and the ambient daemon
// settings (server address, logging, telemetry). The per-provider timeout
// is a fixed constant, deliberately not user-configurable.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/lintmux/telemetry"
)

// ErrInvalidConfig indicates the configuration failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// cfgValidate is the validator instance for configuration files.
var cfgValidate = validator.New()

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	// Addr is the listen address for the daemon API.
	Addr string `yaml:"addr" validate:"required"`
}

// LogConfig configures pkg/logging.
type LogConfig struct {
	// Level is the minimum log level.
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Dir enables file logging when set.
	Dir string `yaml:"dir"`

	// JSON forces JSON stderr output.
	JSON bool `yaml:"json"`

	// Quiet disables stderr output.
	Quiet bool `yaml:"quiet"`
}

// Config is the full lintmux configuration.
type Config struct {
	// LintOnOpen triggers one lint when a document is first opened.
	LintOnOpen bool `yaml:"lint_on_open"`

	// LintOnChange enables change-triggered lints at all.
	LintOnChange bool `yaml:"lint_on_change"`

	// ChangeIntervalMS is the trailing debounce interval for
	// change-triggered lints, in milliseconds.
	ChangeIntervalMS int `yaml:"change_interval_ms" validate:"gte=0"`

	// LintPreviewTabs includes documents open only as preview tabs.
	LintPreviewTabs bool `yaml:"lint_preview_tabs"`

	// IgnoreGlob excludes matching documents from linting entirely.
	// Doublestar syntax, matched against the absolute path.
	IgnoreGlob string `yaml:"ignore_glob"`

	// RespectVCSIgnore also excludes documents matched by the VCS ignore
	// rules of the workspace root.
	RespectVCSIgnore bool `yaml:"respect_vcs_ignore"`

	// DisabledProviders are administratively disabled provider names.
	DisabledProviders []string `yaml:"disabled_providers"`

	Server    ServerConfig     `yaml:"server"`
	Log       LogConfig        `yaml:"log"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LintOnOpen:       true,
		LintOnChange:     true,
		ChangeIntervalMS: 300,
		LintPreviewTabs:  false,
		IgnoreGlob:       "**/*.min.{js,css}",
		RespectVCSIgnore: true,
		Server:           ServerConfig{Addr: ":8787"},
		Log:              LogConfig{Level: "info"},
		Telemetry:        telemetry.DefaultConfig(),
	}
}

// Load reads a YAML configuration file over the defaults.
//
// # Inputs
//
//   - path: File to read. Empty returns Default() validated.
//
// # Outputs
//
//   - Config: The merged configuration.
//   - error: Non-nil on read, parse, or validation failure.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration beyond what YAML parsing enforces.
func (c Config) Validate() error {
	if err := cfgValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.IgnoreGlob != "" && !doublestar.ValidatePattern(c.IgnoreGlob) {
		return fmt.Errorf("%w: bad ignore_glob %q", ErrInvalidConfig, c.IgnoreGlob)
	}
	return nil
}

// ChangeInterval returns the change debounce interval as a duration.
func (c Config) ChangeInterval() time.Duration {
	return time.Duration(c.ChangeIntervalMS) * time.Millisecond
}
