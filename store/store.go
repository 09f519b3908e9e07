// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store reconciles many independent (subject, provider) result
// buckets into consistent, minimal-delta batches.
//
// Every mutation schedules a debounced reconciliation pass. A pass visits
// every bucket, diffs the changed ones by message key, folds deleted buckets
// into removals, and emits one batch covering everything that moved since
// the previous pass. Passes never run concurrently: scheduling is an
// explicit three-state machine (idle, running, pending-rerun) rather than a
// mutex, because all the invariants live in the transitions.
package store

import (
	"sync"
	"time"

	"github.com/AleutianAI/lintmux/message"
	"github.com/AleutianAI/lintmux/pkg/logging"
	"github.com/AleutianAI/lintmux/telemetry"
)

// DefaultDebounce is the quiet window between a mutation and the pass it
// schedules. Many rapid mutations across many buckets collapse into one pass.
const DefaultDebounce = 100 * time.Millisecond

// Batch is one reconciled delta pushed to consumers.
type Batch struct {
	// Added are messages that appeared since the previous batch.
	Added []message.Message `json:"added"`

	// Removed are messages that disappeared since the previous batch.
	Removed []message.Message `json:"removed"`

	// Messages is the full currently-valid set across all buckets.
	Messages []message.Message `json:"messages"`
}

// Consumer receives every emitted batch.
type Consumer interface {
	Render(b Batch)
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(b Batch)

// Render implements Consumer.
func (f ConsumerFunc) Render(b Batch) { f(b) }

// schedulerState is the explicit pass scheduler state machine.
type schedulerState int

const (
	// stateIdle: no pass running; a mutation may arm the debounce timer.
	stateIdle schedulerState = iota

	// stateRunning: a pass is executing; new requests park as pending.
	stateRunning

	// statePendingRerun: a mutation arrived mid-pass; when the pass
	// completes the store re-enters scheduling through the debounce.
	statePendingRerun
)

// bucketKey identifies one (subject, provider) accumulator. Subject is the
// document path for file-scope providers and "" for project-scope ones.
type bucketKey struct {
	subject  string
	provider string
}

// bucket accumulates the most recent result for one key.
type bucket struct {
	// current is the latest committed list, not yet reconciled when
	// changed is set.
	current []message.Message

	// accepted is what consumers last saw for this bucket.
	accepted []message.Message

	changed bool

	// deleted buckets report accepted as removed on the next pass, then
	// drop. Deletion is deferred so removal is never silently lost.
	deleted bool
}

// Options configures a Store.
type Options struct {
	// Debounce is the pass scheduling quiet window. Zero uses
	// DefaultDebounce; negative means no delay (tests).
	Debounce time.Duration

	// Logger receives store diagnostics. Nil uses logging.Default().
	Logger *logging.Logger

	// Metrics receives pass/batch counters. Nil disables.
	Metrics *telemetry.Metrics
}

// Store is the reconciliation store.
//
// # Thread Safety
//
// Safe for concurrent use. Buckets are owned exclusively by the store; the
// dispatch coordinator only hands it normalized input. Consumers are invoked
// without the store lock held, from the pass goroutine.
type Store struct {
	debounce time.Duration
	logger   *logging.Logger
	metrics  *telemetry.Metrics

	mu        sync.Mutex
	buckets   map[bucketKey]*bucket
	state     schedulerState
	timer     *time.Timer
	disposed  bool
	consumers map[int]Consumer
	nextSub   int
}

// New creates a Store.
func New(opts Options) *Store {
	debounce := opts.Debounce
	if debounce == 0 {
		debounce = DefaultDebounce
	}
	if debounce < 0 {
		debounce = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Store{
		debounce:  debounce,
		logger:    logger.With("component", "store"),
		metrics:   opts.Metrics,
		buckets:   make(map[bucketKey]*bucket),
		consumers: make(map[int]Consumer),
	}
}

// Subscribe registers a consumer for every future batch. The returned
// function unsubscribes; it is safe to call more than once.
func (s *Store) Subscribe(c Consumer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.consumers[id] = c

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.consumers, id)
	}
}

// Set replaces the bucket for (subject, provider) with msgs and schedules a
// pass. Messages must already be normalized; subject is "" for
// project-scope providers.
func (s *Store) Set(subject, provider string, msgs []message.Message) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	key := bucketKey{subject: subject, provider: provider}
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{}
		s.buckets[key] = b
	}
	b.current = msgs
	b.changed = true
	b.deleted = false
	s.mu.Unlock()

	s.requestPass()
}

// ClearSubject marks every bucket for the subject deleted and schedules a
// pass; their messages are reported as removed, then the buckets drop.
func (s *Store) ClearSubject(subject string) {
	s.clearMatching(func(key bucketKey) bool { return key.subject == subject })
}

// ClearProvider marks every bucket for the provider deleted, across all
// subjects, and schedules a pass.
func (s *Store) ClearProvider(provider string) {
	s.clearMatching(func(key bucketKey) bool { return key.provider == provider })
}

// ClearAll marks every bucket deleted and schedules a pass.
func (s *Store) ClearAll() {
	s.clearMatching(func(bucketKey) bool { return true })
}

// clearMatching implements the clear operations. Clears are not
// special-cased synchronous removals; they flow through the same pass.
func (s *Store) clearMatching(match func(bucketKey) bool) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	touched := false
	for key, b := range s.buckets {
		if match(key) {
			b.deleted = true
			touched = true
		}
	}
	s.mu.Unlock()

	if touched {
		s.requestPass()
	}
}

// Messages returns a snapshot of the full currently-valid message set.
func (s *Store) Messages() []message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]message.Message, 0)
	for _, b := range s.buckets {
		if b.deleted {
			continue
		}
		if b.changed {
			out = append(out, b.current...)
		} else {
			out = append(out, b.accepted...)
		}
	}
	return out
}

// Dispose cancels the pending pass and drops all consumers and buckets.
func (s *Store) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disposed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.buckets = make(map[bucketKey]*bucket)
	s.consumers = make(map[int]Consumer)
}

// requestPass is the single entry point of the scheduler state machine.
func (s *Store) requestPass() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return
	}

	switch s.state {
	case stateRunning:
		// A pass is executing; park the request instead of starting a
		// second pass. The finishing pass re-enters scheduling.
		s.state = statePendingRerun

	case statePendingRerun:
		// Already parked.

	case stateIdle:
		if s.timer == nil {
			s.timer = time.AfterFunc(s.debounce, s.runPass)
		}
	}
}

// runPass executes one reconciliation pass. Only the debounce timer invokes
// it, and the timer is armed only in the idle state, so passes never overlap.
func (s *Store) runPass() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.state = stateRunning

	batch, emit := s.collectLocked()
	consumers := make([]Consumer, 0, len(s.consumers))
	for _, c := range s.consumers {
		consumers = append(consumers, c)
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.PassesTotal.Inc()
	}

	if emit {
		s.logger.Debug("batch emitted",
			"added", len(batch.Added),
			"removed", len(batch.Removed),
			"total", len(batch.Messages),
		)
		if s.metrics != nil {
			s.metrics.BatchesEmittedTotal.Inc()
			s.metrics.MessagesCurrent.Set(float64(len(batch.Messages)))
		}
		for _, c := range consumers {
			c.Render(batch)
		}
	}

	s.mu.Lock()
	rerun := s.state == statePendingRerun
	s.state = stateIdle
	s.mu.Unlock()

	if rerun {
		// Re-enter through the debounce rather than looping synchronously,
		// so a mutation storm cannot starve the scheduler.
		s.requestPass()
	}
}

// collectLocked coalesces all bucket deltas into one batch. Caller holds
// s.mu. Returns the batch and whether it should be emitted.
func (s *Store) collectLocked() (Batch, bool) {
	batch := Batch{
		Added:    make([]message.Message, 0),
		Removed:  make([]message.Message, 0),
		Messages: make([]message.Message, 0),
	}

	for key, b := range s.buckets {
		switch {
		case b.deleted:
			// The entire previously-reported list leaves the visible set.
			batch.Removed = append(batch.Removed, b.accepted...)
			delete(s.buckets, key)

		case b.changed:
			res := message.Diff(b.accepted, b.current)
			batch.Added = append(batch.Added, res.Added...)
			batch.Removed = append(batch.Removed, res.Removed...)
			b.accepted = b.current
			b.changed = false
			batch.Messages = append(batch.Messages, b.accepted...)

		default:
			// Unchanged buckets contribute without re-diffing.
			batch.Messages = append(batch.Messages, b.accepted...)
		}
	}

	return batch, len(batch.Added) > 0 || len(batch.Removed) > 0
}
