// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace_OpensExistingFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.js"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.tmp"), []byte("x"), 0o600))

	var mu sync.Mutex
	var opened []string
	ws, err := NewWorkspace(root, func(doc *Document) {
		mu.Lock()
		opened = append(opened, filepath.Base(doc.Path()))
		mu.Unlock()
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, ws.Start(ctx))
	defer ws.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a.js"}, opened, "ignored patterns must not open documents")
}

func TestWorkspace_WriteFiresChangeAndSave(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.js")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	var mu sync.Mutex
	changes, saves := 0, 0
	ws, err := NewWorkspace(root, func(doc *Document) {
		doc.OnDidChange(func() { mu.Lock(); changes++; mu.Unlock() })
		doc.OnDidSave(func() { mu.Lock(); saves++; mu.Unlock() })
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, ws.Start(ctx))
	defer ws.Stop()

	require.NoError(t, os.WriteFile(path, []byte("xy"), 0o600))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return changes >= 1 && saves >= 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWorkspace_RemoveDestroysDocument(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.js")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	destroyed := make(chan struct{})
	ws, err := NewWorkspace(root, func(doc *Document) {
		doc.OnDidDestroy(func() { close(destroyed) })
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, ws.Start(ctx))
	defer ws.Stop()

	require.NoError(t, os.Remove(path))

	select {
	case <-destroyed:
	case <-time.After(5 * time.Second):
		t.Fatal("document was not destroyed after file removal")
	}

	_, ok := ws.Get(path)
	assert.False(t, ok)
}

func TestWorkspace_StopReleasesDocuments(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.js"), []byte("x"), 0o600))

	var doc *Document
	ws, err := NewWorkspace(root, func(d *Document) { doc = d }, nil)
	require.NoError(t, err)

	require.NoError(t, ws.Start(context.Background()))
	require.NotNil(t, doc)
	assert.True(t, doc.IsOpen())

	ws.Stop()
	assert.False(t, doc.IsOpen())

	// Stop is idempotent.
	ws.Stop()
}
