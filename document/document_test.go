// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocument_Events(t *testing.T) {
	doc := New("/p/foo.js", false)

	var changes, saves int
	doc.OnDidChange(func() { changes++ })
	doc.OnDidSave(func() { saves++ })

	doc.Change()
	doc.Change()
	doc.Save()

	assert.Equal(t, 2, changes)
	assert.Equal(t, 1, saves)
}

func TestDocument_DisposeStopsDelivery(t *testing.T) {
	doc := New("/p/foo.js", false)

	var changes int
	dispose := doc.OnDidChange(func() { changes++ })

	doc.Change()
	dispose()
	doc.Change()

	assert.Equal(t, 1, changes)

	// Disposing twice is harmless.
	dispose()
}

func TestDocument_SharedHandles(t *testing.T) {
	doc := New("/p/foo.js", false)
	assert.True(t, doc.AddHandle(), "second editor opens the same document")

	var destroyed int
	doc.OnDidDestroy(func() { destroyed++ })

	// Closing one of two editors must not destroy the document.
	doc.ReleaseHandle()
	assert.True(t, doc.IsOpen())
	assert.Equal(t, 0, destroyed)

	// Closing the last editor destroys it exactly once.
	doc.ReleaseHandle()
	assert.False(t, doc.IsOpen())
	assert.Equal(t, 1, destroyed)

	doc.ReleaseHandle()
	assert.Equal(t, 1, destroyed)
	assert.False(t, doc.AddHandle(), "destroyed documents cannot be reopened")
}

func TestDocument_DestroySilencesEvents(t *testing.T) {
	doc := New("/p/foo.js", false)

	var changes int
	doc.OnDidChange(func() { changes++ })
	doc.ReleaseHandle()

	doc.Change()
	doc.Save()
	assert.Equal(t, 0, changes)
}

func TestDocument_OnDidDestroyAfterDestroyFiresImmediately(t *testing.T) {
	doc := New("/p/foo.js", false)
	doc.ReleaseHandle()

	fired := false
	doc.OnDidDestroy(func() { fired = true })
	assert.True(t, fired)
}

func TestDocument_ScopeSetAlwaysHasWildcard(t *testing.T) {
	doc := New("/p/foo.js", false)
	assert.Contains(t, doc.ScopeSet(), WildcardScope)

	doc.SetScopes([]string{"source.js"})
	scopes := doc.ScopeSet()
	assert.Contains(t, scopes, "source.js")
	assert.Contains(t, scopes, WildcardScope)
}

func TestDocument_TextPrefersBuffer(t *testing.T) {
	doc := New("/does/not/exist", false)

	_, err := doc.Text()
	assert.Error(t, err, "no buffer and no file on disk")

	doc.SetText("buffered content")
	text, err := doc.Text()
	assert.NoError(t, err)
	assert.Equal(t, "buffered content", text)
}
