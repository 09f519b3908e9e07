// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/AleutianAI/lintmux/document"
	"github.com/AleutianAI/lintmux/message"
	"github.com/AleutianAI/lintmux/registry"
)

// JSONSyntaxProvider reports JSON syntax errors for documents whose scope
// set includes source.json.
func JSONSyntaxProvider() registry.Provider {
	return &registry.Spec{
		ProviderName:  "json-syntax",
		ProviderScope: registry.ScopeFile,
		OnChange:      true,
		Grammar:       []string{"source.json"},
		LintFunc:      lintJSON,
	}
}

func lintJSON(_ context.Context, doc *document.Document) ([]message.Message, error) {
	text, err := doc.Text()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var v any
	err = json.Unmarshal([]byte(text), &v)
	if err == nil {
		return nil, nil
	}

	// Unmarshal into any only fails on malformed input, so any error here
	// is positional.
	var offset int64
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		offset = syntaxErr.Offset
	}
	point := offsetToPoint(text, offset)

	return []message.Message{{
		Severity: message.SeverityError,
		Location: message.Location{
			File:     doc.Path(),
			Position: message.Range{Start: point, End: point},
		},
		Excerpt: err.Error(),
	}}, nil
}

// offsetToPoint converts a byte offset into a zero-based row/column.
func offsetToPoint(text string, offset int64) message.Point {
	if offset > int64(len(text)) {
		offset = int64(len(text))
	}
	prefix := text[:offset]
	row := strings.Count(prefix, "\n")
	col := len(prefix)
	if idx := strings.LastIndexByte(prefix, '\n'); idx >= 0 {
		col = len(prefix) - idx - 1
	}
	return message.Point{Row: row, Col: col}
}
