// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/lintmux/document"
	"github.com/AleutianAI/lintmux/message"
)

// doc builds an open document with an in-memory buffer.
func doc(t *testing.T, path, text string) *document.Document {
	t.Helper()
	d := document.New(path, false)
	d.SetText(text)
	t.Cleanup(d.ReleaseHandle)
	return d
}

func TestTodoProvider_FindsMarkers(t *testing.T) {
	p := TodoProvider()
	d := doc(t, "/p/main.go", "package main\n// TODO wire retries\nfunc main() {} // FIXME\n")

	msgs, err := p.Lint(context.Background(), d)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "TODO marker", msgs[0].Excerpt)
	assert.Equal(t, message.Point{Row: 1, Col: 3}, msgs[0].Location.Position.Start)
	assert.Equal(t, message.Point{Row: 1, Col: 7}, msgs[0].Location.Position.End)
	assert.Equal(t, message.SeverityInfo, msgs[0].Severity)

	assert.Equal(t, "FIXME marker", msgs[1].Excerpt)
	assert.Equal(t, 2, msgs[1].Location.Position.Start.Row)
}

func TestTodoProvider_CleanFile(t *testing.T) {
	p := TodoProvider()
	d := doc(t, "/p/main.go", "package main\n")

	msgs, err := p.Lint(context.Background(), d)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestTodoProvider_NoSubstringMatches(t *testing.T) {
	p := TodoProvider()
	d := doc(t, "/p/main.go", "mastodon := 1 // TODOS is plural\n")

	msgs, err := p.Lint(context.Background(), d)
	require.NoError(t, err)
	assert.Empty(t, msgs, "markers inside larger words must not match")
}

func TestJSONSyntaxProvider_ValidAndEmpty(t *testing.T) {
	p := JSONSyntaxProvider()

	for _, text := range []string{`{"a": [1, 2, 3]}`, "", "  \n "} {
		msgs, err := p.Lint(context.Background(), doc(t, "/p/ok.json", text))
		require.NoError(t, err)
		assert.Empty(t, msgs)
	}
}

func TestJSONSyntaxProvider_ReportsPosition(t *testing.T) {
	p := JSONSyntaxProvider()
	d := doc(t, "/p/bad.json", "{\n  \"a\": 1,\n}\n")

	msgs, err := p.Lint(context.Background(), d)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	assert.Equal(t, message.SeverityError, msgs[0].Severity)
	assert.Equal(t, "/p/bad.json", msgs[0].Location.File)
	assert.Equal(t, 2, msgs[0].Location.Position.Start.Row, "error is on the closing brace line")
	assert.NotEmpty(t, msgs[0].Excerpt)
}

func TestJSONSyntaxProvider_GrammarScoped(t *testing.T) {
	p := JSONSyntaxProvider()
	assert.Equal(t, []string{"source.json"}, p.GrammarScopes())
	assert.True(t, p.LintsOnChange())
}
