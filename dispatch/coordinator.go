// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package dispatch fans lint triggers out to eligible providers and commits
// their results safely under concurrency and failure.
//
// Each provider invocation gets a monotonically increasing per-provider
// request number and races a fixed timeout. Commits are freshest-request-
// wins: a slow request that settles after a newer request has already
// committed is discarded on arrival. There is no true cancellation of an
// in-flight provider call; staleness is decided at commit time.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/lintmux/document"
	"github.com/AleutianAI/lintmux/message"
	"github.com/AleutianAI/lintmux/notify"
	"github.com/AleutianAI/lintmux/pkg/logging"
	"github.com/AleutianAI/lintmux/registry"
	"github.com/AleutianAI/lintmux/store"
	"github.com/AleutianAI/lintmux/telemetry"
)

// Timeout is the fixed per-invocation deadline. It is deliberately not
// user-configurable.
const Timeout = 30 * time.Second

// BusyListener observes provider activity, for busy indicators. Events are
// informational only and never gate correctness.
type BusyListener interface {
	DidBeginLinting(provider, subjectPath string)
	DidFinishLinting(provider, subjectPath string)
}

// requestCounter tracks the freshest-request-wins gate for one provider.
//
// latestIssued only grows. lastCommitted advances to the request number of
// every accepted commit; a settling request older than lastCommitted is
// stale and discarded. The mutex also serializes the commit itself, so an
// older result can never land in the store after a newer one.
type requestCounter struct {
	mu            sync.Mutex
	latestIssued  uint64
	lastCommitted uint64
}

// Options configures a Coordinator.
type Options struct {
	// Registry is the provider set consulted on every trigger. Required.
	Registry *registry.Registry

	// Store receives committed results. Required.
	Store *store.Store

	// Notifier surfaces timeouts and failures to the user. Required.
	Notifier *notify.Notifier

	// Filter excludes documents from linting. May be nil.
	Filter *IgnoreFilter

	// LintPreviewTabs includes documents open only as preview tabs.
	LintPreviewTabs bool

	// Logger defaults to logging.Default().
	Logger *logging.Logger

	// Metrics defaults to telemetry.DefaultMetrics().
	Metrics *telemetry.Metrics
}

// Coordinator owns per-provider request counters and the fan-out path from
// a trigger to independent per-provider commits.
//
// # Thread Safety
//
// Safe for concurrent use. Provider invocations run on their own
// goroutines; one misbehaving provider never blocks another.
type Coordinator struct {
	registry *registry.Registry
	store    *store.Store
	notifier *notify.Notifier
	filter   *IgnoreFilter
	logger   *logging.Logger
	metrics  *telemetry.Metrics
	tracer   trace.Tracer

	lintPreviewTabs bool
	timeout         time.Duration

	mu       sync.Mutex
	counters map[string]*requestCounter
	nextSub  int
	busySubs map[int]BusyListener
}

// New creates a Coordinator.
//
// # Outputs
//
//   - *Coordinator: The coordinator. Nil on error.
//   - error: ErrMissingDependency if a required collaborator is nil.
func New(opts Options) (*Coordinator, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("%w: registry", ErrMissingDependency)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: store", ErrMissingDependency)
	}
	if opts.Notifier == nil {
		return nil, fmt.Errorf("%w: notifier", ErrMissingDependency)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.DefaultMetrics()
	}

	return &Coordinator{
		registry:        opts.Registry,
		store:           opts.Store,
		notifier:        opts.Notifier,
		filter:          opts.Filter,
		logger:          logger.With("component", "dispatch"),
		metrics:         metrics,
		tracer:          otel.Tracer("lintmux/dispatch"),
		lintPreviewTabs: opts.LintPreviewTabs,
		timeout:         Timeout,
		counters:        make(map[string]*requestCounter),
		busySubs:        make(map[int]BusyListener),
	}, nil
}

// SubscribeBusy registers a busy-indicator listener. The returned function
// removes it.
func (c *Coordinator) SubscribeBusy(l BusyListener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.busySubs[id] = l

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.busySubs, id)
	}
}

// Lint fans the trigger out to every eligible provider for the document.
//
// # Description
//
// Lint returns once every eligible invocation has been issued; it does not
// wait for results. Each provider's result or error commits independently
// as it settles, in any order.
//
// # Inputs
//
//   - ctx: Propagated to provider invocations.
//   - doc: The triggered document. Closed or nil documents are ignored.
//   - onChange: True for change-triggered lints, which only reach providers
//     that declare change support.
func (c *Coordinator) Lint(ctx context.Context, doc *document.Document, onChange bool) {
	if doc == nil || !doc.IsOpen() {
		return
	}
	if doc.IsPreview() && !c.lintPreviewTabs {
		return
	}
	if c.filter != nil && c.filter.Ignored(doc.Path()) {
		c.logger.Debug("document ignored", "path", doc.Path())
		return
	}

	trigger := "save"
	if onChange {
		trigger = "change"
	}
	ctx, span := c.tracer.Start(ctx, "dispatch.lint", trace.WithAttributes(
		attribute.String("document.path", doc.Path()),
		attribute.String("trigger", trigger),
	))
	defer span.End()

	scopes := doc.ScopeSet()
	for _, p := range c.registry.Providers() {
		if !c.eligible(p, onChange, scopes) {
			continue
		}
		c.invoke(ctx, p, doc, trigger)
	}
}

// eligible applies the per-provider gates for one trigger.
func (c *Coordinator) eligible(p registry.Provider, onChange bool, scopes []string) bool {
	if c.registry.IsDisabled(p.Name()) {
		return false
	}
	if onChange && !p.LintsOnChange() {
		return false
	}
	return scopesIntersect(p.GrammarScopes(), scopes)
}

// scopesIntersect reports whether the provider's grammar filter applies to
// the document. An empty filter applies to everything; the document's scope
// set always contains the wildcard, so a wildcard filter entry also always
// applies.
func scopesIntersect(filter, scopes []string) bool {
	if len(filter) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		set[s] = struct{}{}
	}
	for _, f := range filter {
		if f == document.WildcardScope {
			return true
		}
		if _, ok := set[f]; ok {
			return true
		}
	}
	return false
}

// invoke issues one request number and runs the provider on its own
// goroutine, racing the fixed timeout.
func (c *Coordinator) invoke(ctx context.Context, p registry.Provider, doc *document.Document, trigger string) {
	name := p.Name()
	counter := c.counter(name)

	counter.mu.Lock()
	counter.latestIssued++
	request := counter.latestIssued
	counter.mu.Unlock()

	subject := ""
	if p.Scope() == registry.ScopeFile {
		subject = doc.Path()
	}

	c.metrics.RequestsTotal.WithLabelValues(name, trigger).Inc()
	c.publishBusy(name, subject, true)

	go func() {
		ctx, span := c.tracer.Start(ctx, "dispatch.invoke", trace.WithAttributes(
			attribute.String("provider", name),
			attribute.Int64("request", int64(request)),
		))
		defer span.End()
		defer c.publishBusy(name, subject, false)

		start := time.Now()
		msgs, err := c.race(ctx, p, doc)
		c.metrics.RequestDurationSeconds.WithLabelValues(name).Observe(time.Since(start).Seconds())

		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			c.settleFailure(name, err)
			return
		}
		c.settleSuccess(p, doc, counter, request, subject, msgs)
	}()
}

// race runs the provider against the fixed timeout. Whichever settles first
// wins; the loser's eventual settlement is ignored.
func (c *Coordinator) race(ctx context.Context, p registry.Provider, doc *document.Document) ([]message.Message, error) {
	type result struct {
		msgs []message.Message
		err  error
	}
	settled := make(chan result, 1)
	go func() {
		msgs, err := p.Lint(ctx, doc)
		settled <- result{msgs: msgs, err: err}
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case r := <-settled:
		if r.err != nil {
			return nil, &ProviderError{
				Provider: p.Name(),
				Err:      fmt.Errorf("%w: %v", ErrProviderFailure, r.err),
			}
		}
		return r.msgs, nil
	case <-timer.C:
		return nil, &ProviderError{
			Provider: p.Name(),
			Err:      fmt.Errorf("%w after %s", ErrProviderTimeout, c.timeout),
		}
	case <-ctx.Done():
		return nil, &ProviderError{
			Provider: p.Name(),
			Err:      fmt.Errorf("%w: %v", ErrProviderFailure, ctx.Err()),
		}
	}
}

// settleSuccess validates, gates, and commits one successful result.
func (c *Coordinator) settleSuccess(p registry.Provider, doc *document.Document, counter *requestCounter, request uint64, subject string, msgs []message.Message) {
	name := p.Name()

	if err := message.Validate(name, msgs); err != nil {
		// Dropped whole and logged, not notified, to avoid noise during
		// normal editing.
		c.metrics.InvalidPayloadsTotal.WithLabelValues(name).Inc()
		c.logger.Warn("invalid payload dropped",
			"provider", name,
			"request", request,
			"error", fmt.Errorf("%w: %v", ErrProviderInvalidOutput, err).Error(),
		)
		return
	}
	normalized := message.Normalize(name, msgs)

	counter.mu.Lock()
	defer counter.mu.Unlock()

	if request < counter.lastCommitted {
		c.metrics.StaleDiscardsTotal.WithLabelValues(name).Inc()
		c.logger.Debug("stale result discarded",
			"provider", name, "request", request, "last_committed", counter.lastCommitted)
		return
	}
	// Liveness: a provider deregistered mid-flight, or a file-scope document
	// closed mid-flight, rejects the commit the same way staleness does.
	if !c.registry.IsRegistered(name) {
		c.metrics.StaleDiscardsTotal.WithLabelValues(name).Inc()
		c.logger.Debug("result from deregistered provider discarded", "provider", name, "request", request)
		return
	}
	if p.Scope() == registry.ScopeFile && !doc.IsOpen() {
		c.metrics.StaleDiscardsTotal.WithLabelValues(name).Inc()
		c.logger.Debug("result for closed document discarded",
			"provider", name, "request", request, "path", doc.Path())
		return
	}

	counter.lastCommitted = request
	// The store call stays under the counter lock so commits for one
	// provider reach the store in request order.
	c.store.Set(subject, name, normalized)
}

// settleFailure skips the commit and raises a deduplicated notification.
func (c *Coordinator) settleFailure(name string, err error) {
	kind := notify.KindFailure
	if errors.Is(err, ErrProviderTimeout) {
		kind = notify.KindTimeout
		c.metrics.TimeoutsTotal.WithLabelValues(name).Inc()
	} else {
		c.metrics.FailuresTotal.WithLabelValues(name).Inc()
	}
	c.logger.Error("provider invocation failed", "provider", name, "kind", string(kind), "error", err.Error())
	c.notifier.Notify(name, kind, err.Error())
}

// counter returns the request counter for the provider, creating it on
// first use. Counters survive deregistration so a re-registered provider
// cannot be overtaken by its own pre-deregistration results.
func (c *Coordinator) counter(name string) *requestCounter {
	c.mu.Lock()
	defer c.mu.Unlock()

	counter, ok := c.counters[name]
	if !ok {
		counter = &requestCounter{}
		c.counters[name] = counter
	}
	return counter
}

// publishBusy fans one begin or finish event out to listeners.
func (c *Coordinator) publishBusy(provider, subject string, begin bool) {
	c.mu.Lock()
	listeners := make([]BusyListener, 0, len(c.busySubs))
	for _, l := range c.busySubs {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		if begin {
			l.DidBeginLinting(provider, subject)
		} else {
			l.DidFinishLinting(provider, subject)
		}
	}
}
