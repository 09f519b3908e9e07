// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/lintmux/builtin"
	"github.com/AleutianAI/lintmux/config"
	"github.com/AleutianAI/lintmux/dispatch"
	"github.com/AleutianAI/lintmux/document"
	"github.com/AleutianAI/lintmux/notify"
	"github.com/AleutianAI/lintmux/pkg/logging"
	"github.com/AleutianAI/lintmux/registry"
	"github.com/AleutianAI/lintmux/server"
	"github.com/AleutianAI/lintmux/store"
	"github.com/AleutianAI/lintmux/telemetry"
	"github.com/AleutianAI/lintmux/trigger"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addrFlag != "" {
		cfg.Server.Addr = addrFlag
	}

	root, err := filepath.Abs(rootDir)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Log.Level),
		LogDir:  cfg.Log.Dir,
		Service: "lintmux",
		JSON:    cfg.Log.JSON,
		Quiet:   cfg.Log.Quiet,
	})
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryShutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", "error", err.Error())
		}
	}()

	metrics := telemetry.DefaultMetrics()

	st := store.New(store.Options{Logger: logger, Metrics: metrics})
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

	filter, err := dispatch.NewIgnoreFilter(root, cfg.IgnoreGlob, cfg.RespectVCSIgnore)
	if err != nil {
		return fmt.Errorf("build ignore filter: %w", err)
	}

	coord, err := dispatch.New(dispatch.Options{
		Registry:        reg,
		Store:           st,
		Notifier:        notifier,
		Filter:          filter,
		LintPreviewTabs: cfg.LintPreviewTabs,
		Logger:          logger,
		Metrics:         metrics,
	})
	if err != nil {
		return err
	}

	onOpen := documentHook(ctx, cfg, coord, st, logger)

	ws, err := document.NewWorkspace(root, onOpen, &document.WorkspaceOptions{Logger: logger})
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	if err := ws.Start(ctx); err != nil {
		return fmt.Errorf("start workspace: %w", err)
	}
	defer ws.Stop()

	srv, err := server.New(server.Options{
		Registry:    reg,
		Store:       st,
		Coordinator: coord,
		Notifier:    notifier,
		Workspace:   ws,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	logger.Info("daemon starting", "root", root, "addr", cfg.Server.Addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx, cfg.Server.Addr)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("daemon stopped")
	return nil
}

// documentHook builds the workspace onOpen callback that wires each opened
// document into the daemon: a debounce controller for its change and save
// events, an optional immediate lint, and retraction of its messages when
// the document is destroyed.
//
// The destroy subscription fires only when the last handle is released, so
// a document still shared by another holder keeps its messages. Project
// scope results live under the empty subject and are untouched by the
// retraction.
func documentHook(ctx context.Context, cfg config.Config, coord *dispatch.Coordinator, st *store.Store, logger *logging.Logger) func(*document.Document) {
	return func(doc *document.Document) {
		d := doc
		handler := func(onChange bool) {
			if onChange && !cfg.LintOnChange {
				return
			}
			coord.Lint(ctx, d, onChange)
		}
		trigger.NewController(d, cfg.ChangeInterval(), handler, logger)
		d.OnDidDestroy(func() {
			st.ClearSubject(d.Path())
		})
		if cfg.LintOnOpen {
			coord.Lint(ctx, d, false)
		}
	}
}
