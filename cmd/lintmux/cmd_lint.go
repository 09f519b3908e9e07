// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/lintmux/builtin"
	"github.com/AleutianAI/lintmux/config"
	"github.com/AleutianAI/lintmux/dispatch"
	"github.com/AleutianAI/lintmux/document"
	"github.com/AleutianAI/lintmux/message"
	"github.com/AleutianAI/lintmux/notify"
	"github.com/AleutianAI/lintmux/pkg/logging"
	"github.com/AleutianAI/lintmux/registry"
	"github.com/AleutianAI/lintmux/store"
	"github.com/AleutianAI/lintmux/telemetry"
)

// busyTracker counts in-flight invocations and signals when the last one
// settles.
type busyTracker struct {
	outstanding atomic.Int32
	settled     chan struct{}
}

func (b *busyTracker) DidBeginLinting(string, string) {
	b.outstanding.Add(1)
}

func (b *busyTracker) DidFinishLinting(string, string) {
	if b.outstanding.Add(-1) == 0 {
		select {
		case b.settled <- struct{}{}:
		default:
		}
	}
}

func runLint(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level: logging.ParseLevel(cfg.Log.Level),
		Quiet: true,
	})

	st := store.New(store.Options{
		Debounce: 5 * time.Millisecond,
		Logger:   logger,
		Metrics:  telemetry.NewMetrics(prometheus.NewRegistry()),
	})
	defer st.Dispose()

	reg := registry.New(st.ClearProvider)
	reg.SetDisabled(cfg.DisabledProviders)
	if err := reg.Register(builtin.TodoProvider()); err != nil {
		return err
	}
	if err := reg.Register(builtin.JSONSyntaxProvider()); err != nil {
		return err
	}

	notifier := notify.New(&notify.LogSink{Logger: logger}, logger)
	coord, err := dispatch.New(dispatch.Options{
		Registry: reg,
		Store:    st,
		Notifier: notifier,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	tracker := &busyTracker{settled: make(chan struct{}, 1)}
	coord.SubscribeBusy(tracker)

	for _, arg := range args {
		path, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", arg, err)
		}
		doc := document.New(path, false)
		if strings.EqualFold(filepath.Ext(path), ".json") {
			doc.SetScopes([]string{"source.json"})
		}
		coord.Lint(cmd.Context(), doc, false)
	}

	// Wait for every invocation to settle, then one more debounce window so
	// the final reconciliation pass runs.
	deadline := time.After(dispatch.Timeout + time.Second)
	for tracker.outstanding.Load() > 0 {
		select {
		case <-tracker.settled:
		case <-deadline:
			return fmt.Errorf("timed out waiting for providers")
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		}
	}
	time.Sleep(50 * time.Millisecond)

	msgs := st.Messages()
	sort.Slice(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		if a.Location.File != b.Location.File {
			return a.Location.File < b.Location.File
		}
		if a.Location.Position.Start.Row != b.Location.Position.Start.Row {
			return a.Location.Position.Start.Row < b.Location.Position.Start.Row
		}
		return a.Location.Position.Start.Col < b.Location.Position.Start.Col
	})

	errorCount := 0
	out := cmd.OutOrStdout()
	for _, m := range msgs {
		if m.Severity == message.SeverityError {
			errorCount++
		}
		fmt.Fprintf(out, "%s:%d:%d: %s: %s [%s]\n",
			m.Location.File,
			m.Location.Position.Start.Row+1,
			m.Location.Position.Start.Col+1,
			m.Severity,
			m.Excerpt,
			m.LinterName,
		)
	}
	fmt.Fprintf(out, "%d message(s), %d error(s)\n", len(msgs), errorCount)

	if errorCount > 0 {
		return fmt.Errorf("%d error(s) found", errorCount)
	}
	return nil
}
