// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package document models the subjects lint results attach to.
//
// A Document is one open file in the session. It publishes three event
// streams (change, save, destroy) that the trigger controller subscribes
// to, and tracks how many handles (editors, watchers) hold it open: the
// document is destroyed only when the last handle is released, so closing
// one of several views never tears down shared lint state.
package document

import (
	"os"
	"sync"
)

// WildcardScope is present in every document's scope set. A provider whose
// grammar filter contains it applies to all documents.
const WildcardScope = "*"

// Disposer releases one event subscription. Safe to call more than once.
type Disposer func()

// Document is one open file identified by its absolute path.
//
// # Thread Safety
//
// Safe for concurrent use. Event callbacks are invoked without the document
// lock held, so subscribers may call back into the document.
type Document struct {
	path    string
	preview bool

	mu      sync.Mutex
	scopes  []string
	handles int
	open    bool
	text    *string

	nextSub     int
	changeSubs  map[int]func()
	saveSubs    map[int]func()
	destroySubs map[int]func()
}

// New creates an open document with one handle.
//
// # Inputs
//
//   - path: Absolute path of the file.
//   - preview: Whether the document is open only as a non-persistent
//     preview tab.
func New(path string, preview bool) *Document {
	return &Document{
		path:        path,
		preview:     preview,
		scopes:      []string{WildcardScope},
		handles:     1,
		open:        true,
		changeSubs:  make(map[int]func()),
		saveSubs:    make(map[int]func()),
		destroySubs: make(map[int]func()),
	}
}

// Path returns the document's absolute path.
func (d *Document) Path() string { return d.path }

// IsPreview reports whether the document is a non-persistent preview tab.
func (d *Document) IsPreview() bool { return d.preview }

// IsOpen reports whether at least one handle still holds the document.
func (d *Document) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// ScopeSet returns the document's current lexical scope set.
//
// The set is the union over all cursors' scopes and always includes the
// wildcard scope, so an unfiltered provider is always eligible.
func (d *Document) ScopeSet() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.scopes))
	copy(out, d.scopes)
	return out
}

// SetScopes replaces the cursor-derived scopes. The wildcard scope is
// re-added if absent.
func (d *Document) SetScopes(scopes []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	hasWildcard := false
	next := make([]string, 0, len(scopes)+1)
	for _, s := range scopes {
		if s == WildcardScope {
			hasWildcard = true
		}
		next = append(next, s)
	}
	if !hasWildcard {
		next = append(next, WildcardScope)
	}
	d.scopes = next
}

// SetText installs an in-memory buffer, shadowing the on-disk content.
func (d *Document) SetText(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = &text
}

// Text returns the document content: the in-memory buffer when one is set,
// otherwise the current on-disk content.
func (d *Document) Text() (string, error) {
	d.mu.Lock()
	if d.text != nil {
		t := *d.text
		d.mu.Unlock()
		return t, nil
	}
	d.mu.Unlock()

	data, err := os.ReadFile(d.path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// AddHandle records another holder of the document (a second editor pane,
// a watcher). Returns false if the document is already destroyed.
func (d *Document) AddHandle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return false
	}
	d.handles++
	return true
}

// ReleaseHandle drops one holder. When the last handle is released the
// document is destroyed: destroy subscribers fire once and all
// subscriptions are dropped.
func (d *Document) ReleaseHandle() {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return
	}
	d.handles--
	if d.handles > 0 {
		d.mu.Unlock()
		return
	}
	d.open = false
	subs := collect(d.destroySubs)
	d.changeSubs = make(map[int]func())
	d.saveSubs = make(map[int]func())
	d.destroySubs = make(map[int]func())
	d.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// OnDidChange subscribes to edit events.
func (d *Document) OnDidChange(fn func()) Disposer {
	return d.subscribe(&d.changeSubs, fn)
}

// OnDidSave subscribes to persist events.
func (d *Document) OnDidSave(fn func()) Disposer {
	return d.subscribe(&d.saveSubs, fn)
}

// OnDidDestroy subscribes to the destroy event. If the document is already
// destroyed the callback fires immediately.
func (d *Document) OnDidDestroy(fn func()) Disposer {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		fn()
		return func() {}
	}
	d.mu.Unlock()
	return d.subscribe(&d.destroySubs, fn)
}

// Change publishes one edit event to subscribers.
func (d *Document) Change() {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return
	}
	subs := collect(d.changeSubs)
	d.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// Save publishes one persist event to subscribers.
func (d *Document) Save() {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return
	}
	subs := collect(d.saveSubs)
	d.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// subscribe registers fn in the given subscriber map.
func (d *Document) subscribe(m *map[int]func(), fn func()) Disposer {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return func() {}
	}
	id := d.nextSub
	d.nextSub++
	(*m)[id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(*m, id)
	}
}

// collect snapshots a subscriber map so callbacks run without the lock.
func collect(m map[int]func()) []func() {
	out := make([]func(), 0, len(m))
	for _, fn := range m {
		out = append(out, fn)
	}
	return out
}
