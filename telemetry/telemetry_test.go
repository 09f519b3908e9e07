// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_NilContext(t *testing.T) {
	_, err := Init(nil, DefaultConfig()) //nolint:staticcheck // testing nil guard
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestInit_UnknownExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = "bogus"
	cfg.MetricExporter = "none"

	_, err := Init(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnknownExporter)
}

func TestInit_StdoutExporters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = "stdout"
	cfg.MetricExporter = "stdout"

	shutdown, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewMetrics_CountersWork(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RequestsTotal.WithLabelValues("eslint", "change").Inc()
	m.RequestsTotal.WithLabelValues("eslint", "change").Inc()
	m.StaleDiscardsTotal.WithLabelValues("eslint").Inc()
	m.MessagesCurrent.Set(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("eslint", "change")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleDiscardsTotal.WithLabelValues("eslint")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.MessagesCurrent))
}

func TestLoggerWithTrace_NoSpanReturnsOriginal(t *testing.T) {
	logger := slog.Default()
	assert.Same(t, logger, LoggerWithTrace(context.Background(), logger))
	assert.NotNil(t, LoggerWithTrace(nil, nil)) //nolint:staticcheck // testing nil guards
}
