// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/lintmux/pkg/logging"
)

// WorkspaceOptions configures a Workspace.
type WorkspaceOptions struct {
	// IgnorePatterns are doublestar globs matched against the base name or
	// the root-relative path; matching files are never opened.
	// Default: [".git", "node_modules", "*.swp", "*.tmp"]
	IgnorePatterns []string

	// Extensions restricts which files are opened ("" entries match files
	// without an extension). Empty means every regular file.
	Extensions []string

	// Logger receives watcher diagnostics. Default: logging.Default().
	Logger *logging.Logger
}

// DefaultWorkspaceOptions returns the defaults described on each field.
func DefaultWorkspaceOptions() WorkspaceOptions {
	return WorkspaceOptions{
		IgnorePatterns: []string{".git", "node_modules", "*.swp", "*.tmp"},
	}
}

// Workspace tracks the open documents under a root directory.
//
// # Description
//
// Workspace is the daemon-mode substitute for an editor: every regular file
// under the root becomes an open Document, and filesystem writes are
// translated into the document's change and save events (a write to disk is
// by definition a persist). Removes and renames release the workspace's
// handle, destroying the document unless another holder keeps it open.
//
// # Thread Safety
//
// Safe for concurrent use. Document events fire on the watcher goroutine.
type Workspace struct {
	root    string
	watcher *fsnotify.Watcher
	opts    WorkspaceOptions
	logger  *logging.Logger

	// onOpen is invoked for every document the workspace opens, before
	// any event for that document fires.
	onOpen func(*Document)

	mu   sync.Mutex
	docs map[string]*Document

	done     chan struct{}
	stopOnce sync.Once
}

// NewWorkspace creates a workspace rooted at root.
//
// # Inputs
//
//   - root: Absolute path of the directory to track.
//   - onOpen: Called for each opened document. Must not be nil; this is
//     where the caller attaches its trigger controller.
//   - opts: Optional configuration (nil uses defaults).
func NewWorkspace(root string, onOpen func(*Document), opts *WorkspaceOptions) (*Workspace, error) {
	if opts == nil {
		defaults := DefaultWorkspaceOptions()
		opts = &defaults
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Workspace{
		root:    root,
		watcher: watcher,
		opts:    *opts,
		logger:  logger.With("component", "workspace"),
		onOpen:  onOpen,
		docs:    make(map[string]*Document),
		done:    make(chan struct{}),
	}, nil
}

// Start opens documents for existing files and begins watching.
//
// The event goroutine exits when Stop is called or ctx is canceled.
func (w *Workspace) Start(ctx context.Context) error {
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if w.shouldIgnore(path) {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		if !w.shouldIgnore(path) && w.wantsExtension(path) {
			w.openDocument(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	go w.processEvents(ctx)
	return nil
}

// Stop stops watching and destroys every document the workspace holds.
func (w *Workspace) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn("closing watcher", "error", err)
		}

		w.mu.Lock()
		docs := make([]*Document, 0, len(w.docs))
		for _, doc := range w.docs {
			docs = append(docs, doc)
		}
		w.docs = make(map[string]*Document)
		w.mu.Unlock()

		for _, doc := range docs {
			doc.ReleaseHandle()
		}
	})
}

// Documents returns a snapshot of the currently open documents.
func (w *Workspace) Documents() []*Document {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]*Document, 0, len(w.docs))
	for _, doc := range w.docs {
		out = append(out, doc)
	}
	return out
}

// Get returns the open document for path, if any.
func (w *Workspace) Get(path string) (*Document, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc, ok := w.docs[path]
	return doc, ok
}

// openDocument creates and announces a document for path once.
func (w *Workspace) openDocument(path string) *Document {
	w.mu.Lock()
	if doc, ok := w.docs[path]; ok {
		w.mu.Unlock()
		return doc
	}
	doc := New(path, false)
	w.docs[path] = doc
	w.mu.Unlock()

	w.logger.Debug("document opened", "path", path)
	w.onOpen(doc)
	return doc
}

// closeDocument releases the workspace handle for path.
func (w *Workspace) closeDocument(path string) {
	w.mu.Lock()
	doc, ok := w.docs[path]
	if ok {
		delete(w.docs, path)
	}
	w.mu.Unlock()

	if ok {
		w.logger.Debug("document closed", "path", path)
		doc.ReleaseHandle()
	}
}

// processEvents translates fsnotify events into document events.
func (w *Workspace) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Workspace) handleEvent(event fsnotify.Event) {
	if w.shouldIgnore(event.Name) {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		if isDir(event.Name) {
			if err := w.watcher.Add(event.Name); err != nil {
				w.logger.Warn("watching new directory", "path", event.Name, "error", err)
			}
			return
		}
		if w.wantsExtension(event.Name) {
			doc := w.openDocument(event.Name)
			doc.Change()
		}

	case event.Has(fsnotify.Write):
		if !w.wantsExtension(event.Name) {
			return
		}
		doc := w.openDocument(event.Name)
		// A write that reached the disk is both an edit and a persist.
		doc.Change()
		doc.Save()

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.closeDocument(event.Name)
	}
}

// shouldIgnore checks a path against the ignore patterns.
func (w *Workspace) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}

	for _, pattern := range w.opts.IgnorePatterns {
		if matched, _ := doublestar.Match(pattern, base); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, filepath.ToSlash(rel)); matched {
			return true
		}
	}
	return false
}

// wantsExtension applies the extension filter.
func (w *Workspace) wantsExtension(path string) bool {
	if len(w.opts.Extensions) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, want := range w.opts.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
