// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package server exposes the daemon HTTP surface: health and metrics,
// read access to the reconciled message set and the provider registry,
// manual lint triggers, notification dismissal, and a websocket stream of
// reconciliation batches.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/lintmux/dispatch"
	"github.com/AleutianAI/lintmux/document"
	"github.com/AleutianAI/lintmux/notify"
	"github.com/AleutianAI/lintmux/pkg/logging"
	"github.com/AleutianAI/lintmux/registry"
	"github.com/AleutianAI/lintmux/store"
	"github.com/AleutianAI/lintmux/telemetry"
)

// ErrMissingDependency indicates the server was constructed without a
// required collaborator.
var ErrMissingDependency = errors.New("missing dependency")

// ErrorResponse is the JSON error envelope for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ProviderInfo is one registry entry as reported by GET /v1/providers.
type ProviderInfo struct {
	Name          string   `json:"name"`
	Scope         string   `json:"scope"`
	LintsOnChange bool     `json:"lints_on_change"`
	GrammarScopes []string `json:"grammar_scopes,omitempty"`
	Disabled      bool     `json:"disabled"`
}

// LintRequest is the POST /v1/lint payload.
type LintRequest struct {
	// Path is the absolute path of an open document.
	Path string `json:"path" binding:"required"`

	// OnChange dispatches as a change trigger instead of a save trigger.
	OnChange bool `json:"on_change"`
}

// Options configures a Server.
type Options struct {
	// Registry backs GET /v1/providers. Required.
	Registry *registry.Registry

	// Store backs GET /v1/messages and the batch stream. Required.
	Store *store.Store

	// Coordinator executes POST /v1/lint triggers. Required.
	Coordinator *dispatch.Coordinator

	// Notifier backs the notification endpoints. Required.
	Notifier *notify.Notifier

	// Workspace resolves lint request paths to open documents. Required.
	Workspace *document.Workspace

	// Logger defaults to logging.Default().
	Logger *logging.Logger
}

// Server is the daemon HTTP API.
//
// # Thread Safety
//
// Safe for concurrent use once constructed.
type Server struct {
	registry    *registry.Registry
	store       *store.Store
	coordinator *dispatch.Coordinator
	notifier    *notify.Notifier
	workspace   *document.Workspace
	logger      *logging.Logger

	router *gin.Engine
	hub    *streamHub
}

// New creates a Server and registers all routes.
func New(opts Options) (*Server, error) {
	if opts.Registry == nil || opts.Store == nil || opts.Coordinator == nil ||
		opts.Notifier == nil || opts.Workspace == nil {
		return nil, ErrMissingDependency
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.With("component", "server")

	s := &Server{
		registry:    opts.Registry,
		store:       opts.Store,
		coordinator: opts.Coordinator,
		notifier:    opts.Notifier,
		workspace:   opts.Workspace,
		logger:      logger,
		hub:         newStreamHub(logger),
	}

	// The hub consumes every reconciliation batch for as long as the
	// server lives.
	opts.Store.Subscribe(s.hub)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(metricsHandler()))

	v1 := router.Group("/v1")
	{
		v1.GET("/messages", s.handleMessages)
		v1.GET("/providers", s.handleProviders)
		v1.POST("/lint", s.handleLint)
		v1.GET("/notifications", s.handleNotifications)
		v1.DELETE("/notifications/:id", s.handleDismiss)
		v1.GET("/stream", s.handleStream)
	}

	s.router = router
	return s, nil
}

// Handler returns the root HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves the API until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("api listening", "addr", addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	s.hub.close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// metricsHandler prefers the telemetry-managed Prometheus handler and falls
// back to the default registry when telemetry was not initialized.
func metricsHandler() http.Handler {
	if h := telemetry.MetricsHandler(); h != nil {
		return h
	}
	return promhttp.Handler()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleMessages(c *gin.Context) {
	msgs := s.store.Messages()
	c.JSON(http.StatusOK, gin.H{
		"messages": msgs,
		"count":    len(msgs),
	})
}

func (s *Server) handleProviders(c *gin.Context) {
	providers := s.registry.Providers()
	out := make([]ProviderInfo, 0, len(providers))
	for _, p := range providers {
		out = append(out, ProviderInfo{
			Name:          p.Name(),
			Scope:         string(p.Scope()),
			LintsOnChange: p.LintsOnChange(),
			GrammarScopes: p.GrammarScopes(),
			Disabled:      s.registry.IsDisabled(p.Name()),
		})
	}
	c.JSON(http.StatusOK, gin.H{"providers": out})
}

func (s *Server) handleLint(c *gin.Context) {
	var req LintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	doc, ok := s.workspace.Get(req.Path)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: fmt.Sprintf("no open document at %q", req.Path),
		})
		return
	}

	s.coordinator.Lint(c.Request.Context(), doc, req.OnChange)
	c.JSON(http.StatusAccepted, gin.H{"status": "dispatched", "path": req.Path})
}

func (s *Server) handleNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": s.notifier.Outstanding()})
}

func (s *Server) handleDismiss(c *gin.Context) {
	s.notifier.DismissID(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStream(c *gin.Context) {
	s.hub.serve(c.Writer, c.Request)
}
