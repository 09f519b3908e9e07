// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/lintmux/message"
)

// collector records every emitted batch.
type collector struct {
	mu      sync.Mutex
	batches []Batch
}

func (c *collector) Render(b Batch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, b)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func (c *collector) batch(i int) Batch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches[i]
}

// newTestStore returns a store with a short debounce and a subscribed
// collector.
func newTestStore(t *testing.T) (*Store, *collector) {
	t.Helper()
	s := New(Options{Debounce: 5 * time.Millisecond})
	t.Cleanup(s.Dispose)

	c := &collector{}
	s.Subscribe(c)
	return s, c
}

// msg builds one normalized message.
func msg(t *testing.T, provider, file, excerpt string) message.Message {
	t.Helper()
	out := message.Normalize(provider, []message.Message{{
		Severity: message.SeverityError,
		Location: message.Location{
			File:     file,
			Position: message.Range{End: message.Point{Row: 0, Col: 5}},
		},
		Excerpt: excerpt,
	}})
	require.Len(t, out, 1)
	return out[0]
}

func keysOf(msgs []message.Message) []string {
	keys := make([]string, 0, len(msgs))
	for _, m := range msgs {
		keys = append(keys, m.Key)
	}
	return keys
}

func waitBatches(t *testing.T, c *collector, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return c.count() >= n },
		2*time.Second, time.Millisecond, "expected %d batches, have %d", n, c.count())
}

func TestStore_ScenarioA_ErrorAppearsThenFixed(t *testing.T) {
	s, c := newTestStore(t)
	e1 := msg(t, "p1", "/p/foo.js", "E1")

	// First lint finds one error.
	s.Set("/p/foo.js", "p1", []message.Message{e1})
	waitBatches(t, c, 1)

	first := c.batch(0)
	assert.Equal(t, []string{e1.Key}, keysOf(first.Added))
	assert.Empty(t, first.Removed)
	assert.Equal(t, []string{e1.Key}, keysOf(first.Messages))

	// Next edit fixes it; the provider returns an empty list.
	s.Set("/p/foo.js", "p1", nil)
	waitBatches(t, c, 2)

	second := c.batch(1)
	assert.Empty(t, second.Added)
	assert.Equal(t, []string{e1.Key}, keysOf(second.Removed))
	assert.Empty(t, second.Messages)
}

func TestStore_IdempotentRecommit(t *testing.T) {
	s, c := newTestStore(t)
	e1 := msg(t, "p1", "/p/foo.js", "E1")

	s.Set("/p/foo.js", "p1", []message.Message{e1})
	waitBatches(t, c, 1)

	// Committing a semantically identical fresh list must not emit.
	s.Set("/p/foo.js", "p1", []message.Message{msg(t, "p1", "/p/foo.js", "E1")})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, c.count())

	// The full set is intact.
	assert.Equal(t, []string{e1.Key}, keysOf(s.Messages()))
}

func TestStore_CoalescesManyBucketsIntoOneBatch(t *testing.T) {
	s, c := newTestStore(t)

	const n = 8
	wantKeys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		subject := fmt.Sprintf("/p/file%d.js", i)
		m := msg(t, "p1", subject, "boom")
		wantKeys = append(wantKeys, m.Key)
		s.Set(subject, "p1", []message.Message{m})
	}

	waitBatches(t, c, 1)
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, 1, c.count(), "mutations inside one debounce window must yield one batch")
	batch := c.batch(0)
	assert.ElementsMatch(t, wantKeys, keysOf(batch.Added))
	assert.ElementsMatch(t, wantKeys, keysOf(batch.Messages))
}

func TestStore_ScenarioC_ClearSubjectRemovesAll(t *testing.T) {
	s, c := newTestStore(t)
	e1 := msg(t, "p1", "/p/foo.js", "E1")
	e2 := msg(t, "p1", "/p/foo.js", "E2")
	other := msg(t, "p1", "/p/bar.js", "other")

	s.Set("/p/foo.js", "p1", []message.Message{e1, e2})
	s.Set("/p/bar.js", "p1", []message.Message{other})
	waitBatches(t, c, 1)

	// Document closed: its buckets are marked deleted and reported as
	// removed on the next pass.
	s.ClearSubject("/p/foo.js")
	waitBatches(t, c, 2)

	batch := c.batch(1)
	assert.Empty(t, batch.Added)
	assert.ElementsMatch(t, []string{e1.Key, e2.Key}, keysOf(batch.Removed))
	assert.Equal(t, []string{other.Key}, keysOf(batch.Messages))

	// The bucket is physically gone afterwards.
	assert.Equal(t, []string{other.Key}, keysOf(s.Messages()))
}

func TestStore_ClearProviderSpansSubjects(t *testing.T) {
	s, c := newTestStore(t)
	a := msg(t, "p1", "/p/a.js", "a")
	b := msg(t, "p1", "/p/b.js", "b")
	keep := msg(t, "p2", "/p/a.js", "keep")

	s.Set("/p/a.js", "p1", []message.Message{a})
	s.Set("/p/b.js", "p1", []message.Message{b})
	s.Set("/p/a.js", "p2", []message.Message{keep})
	waitBatches(t, c, 1)

	s.ClearProvider("p1")
	waitBatches(t, c, 2)

	batch := c.batch(1)
	assert.ElementsMatch(t, []string{a.Key, b.Key}, keysOf(batch.Removed))
	assert.Equal(t, []string{keep.Key}, keysOf(batch.Messages))
}

func TestStore_ClearAll(t *testing.T) {
	s, c := newTestStore(t)
	a := msg(t, "p1", "/p/a.js", "a")
	b := msg(t, "p2", "", "project-wide")

	s.Set("/p/a.js", "p1", []message.Message{a})
	s.Set("", "p2", []message.Message{b})
	waitBatches(t, c, 1)

	s.ClearAll()
	waitBatches(t, c, 2)

	batch := c.batch(1)
	assert.ElementsMatch(t, []string{a.Key, b.Key}, keysOf(batch.Removed))
	assert.Empty(t, batch.Messages)
}

func TestStore_ClearEmptyStoreEmitsNothing(t *testing.T) {
	s, c := newTestStore(t)

	s.ClearAll()
	s.ClearSubject("/p/none.js")
	s.ClearProvider("p1")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, c.count())
}

func TestStore_DeletedBeforeFirstPassEmitsNothing(t *testing.T) {
	s, c := newTestStore(t)
	e1 := msg(t, "p1", "/p/foo.js", "E1")

	// Committed and retracted inside one debounce window: consumers never
	// saw the message, so neither added nor removed may mention it.
	s.Set("/p/foo.js", "p1", []message.Message{e1})
	s.ClearSubject("/p/foo.js")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, c.count())
}

func TestStore_MutationDuringPassIsNotLost(t *testing.T) {
	s := New(Options{Debounce: 5 * time.Millisecond})
	defer s.Dispose()

	late := msg(t, "p1", "/p/late.js", "late")
	c := &collector{}

	var once sync.Once
	s.Subscribe(ConsumerFunc(func(b Batch) {
		c.Render(b)
		// A consumer reacting to the first batch mutates the store while
		// the pass is still running; the scheduler must park and rerun.
		once.Do(func() {
			s.Set("/p/late.js", "p1", []message.Message{late})
		})
	}))

	s.Set("/p/first.js", "p1", []message.Message{msg(t, "p1", "/p/first.js", "first")})

	waitBatches(t, c, 2)
	assert.Equal(t, []string{late.Key}, keysOf(c.batch(1).Added))
}

func TestStore_SubscribeDispose(t *testing.T) {
	s, _ := newTestStore(t)

	c2 := &collector{}
	unsubscribe := s.Subscribe(c2)
	unsubscribe()

	s.Set("/p/a.js", "p1", []message.Message{msg(t, "p1", "/p/a.js", "a")})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, c2.count())
}

func TestStore_DisposedIgnoresMutations(t *testing.T) {
	s, c := newTestStore(t)
	s.Dispose()

	s.Set("/p/a.js", "p1", []message.Message{msg(t, "p1", "/p/a.js", "a")})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, c.count())
	assert.Empty(t, s.Messages())
}
