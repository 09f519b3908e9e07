// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package trigger converts a document's raw edit and save event storm into
// two semantically distinct lint triggers.
//
// Changes are debounced on a trailing edge with a runtime-reconfigurable
// interval; saves use a short leading-edge debounce so the first save in a
// burst fires immediately instead of starving behind the change debounce.
package trigger

import (
	"sync"
	"time"

	"github.com/AleutianAI/lintmux/document"
	"github.com/AleutianAI/lintmux/pkg/logging"
)

// saveDebounce is the quiet window for the leading-edge save trigger.
// Saves arriving inside the window after a fired save are swallowed.
const saveDebounce = 100 * time.Millisecond

// Handler receives lint triggers. onChange is true for change-triggered
// lints and false for save/manual ones.
type Handler func(onChange bool)

// Controller is the per-document change debounce controller.
//
// # Thread Safety
//
// Safe for concurrent use. The handler is invoked without the controller
// lock held and may call back into the controller.
type Controller struct {
	doc     *document.Document
	handler Handler
	logger  *logging.Logger

	mu       sync.Mutex
	interval time.Duration
	disposed bool

	// gen invalidates pending timer callbacks when the interval is
	// reconfigured or the controller is disposed.
	gen int

	changeTimer   *time.Timer
	lastSaveFired time.Time

	changeDispose  document.Disposer
	saveDispose    document.Disposer
	destroyDispose document.Disposer
}

// NewController attaches a controller to doc.
//
// # Inputs
//
//   - doc: The document to observe. The controller disposes itself when
//     the document is destroyed.
//   - interval: Trailing debounce interval for change-triggered lints.
//   - handler: Receives every trigger. Must not be nil.
//   - logger: Diagnostics. Nil uses logging.Default().
func NewController(doc *document.Document, interval time.Duration, handler Handler, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Default()
	}

	c := &Controller{
		doc:      doc,
		handler:  handler,
		logger:   logger.With("component", "trigger", "path", doc.Path()),
		interval: interval,
	}

	c.mu.Lock()
	c.subscribeChangeLocked()
	c.saveDispose = doc.OnDidSave(c.onSave)
	c.mu.Unlock()

	// Registered outside the lock: a destroyed document fires the
	// callback synchronously.
	c.destroyDispose = doc.OnDidDestroy(c.Dispose)
	return c
}

// SetInterval reconfigures the change debounce interval at runtime.
//
// Any pending invocation of the old handler is cancelled and the change
// subscription is replaced, so two change listeners are never active at
// the same time.
func (c *Controller) SetInterval(interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed || interval == c.interval {
		return
	}

	c.gen++
	if c.changeTimer != nil {
		c.changeTimer.Stop()
		c.changeTimer = nil
	}
	c.interval = interval
	c.subscribeChangeLocked()
	c.logger.Debug("change interval reconfigured", "interval_ms", interval.Milliseconds())
}

// Lint forces an immediate trigger, bypassing both debounces. Used for
// manual re-lint commands and lint-on-open.
func (c *Controller) Lint(onChange bool) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.handler(onChange)
}

// Dispose cancels pending debounced invocations and releases the document
// subscriptions. Safe to call mid-flight and more than once.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.gen++
	if c.changeTimer != nil {
		c.changeTimer.Stop()
		c.changeTimer = nil
	}
	disposers := []document.Disposer{c.changeDispose, c.saveDispose, c.destroyDispose}
	c.mu.Unlock()

	for _, dispose := range disposers {
		if dispose != nil {
			dispose()
		}
	}
}

// subscribeChangeLocked replaces the change subscription with one bound to
// the current interval. Caller holds c.mu.
func (c *Controller) subscribeChangeLocked() {
	if c.changeDispose != nil {
		c.changeDispose()
	}
	c.changeDispose = c.doc.OnDidChange(c.onChange)
}

// onChange restarts the trailing debounce timer.
func (c *Controller) onChange() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}
	if c.changeTimer != nil {
		c.changeTimer.Stop()
	}

	gen := c.gen
	var timer *time.Timer
	timer = time.AfterFunc(c.interval, func() {
		c.mu.Lock()
		// A callback that lost the race to a replacement timer (a new
		// change re-armed the debounce while this one was parked on the
		// lock) must neither fire nor clear the replacement's handle.
		stale := c.disposed || gen != c.gen || c.changeTimer != timer
		if !stale {
			c.changeTimer = nil
		}
		c.mu.Unlock()

		if !stale {
			c.handler(true)
		}
	})
	c.changeTimer = timer
}

// onSave fires on the leading edge of a save burst.
func (c *Controller) onSave() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	now := time.Now()
	if now.Sub(c.lastSaveFired) < saveDebounce {
		c.mu.Unlock()
		return
	}
	c.lastSaveFired = now
	c.mu.Unlock()

	c.handler(false)
}
