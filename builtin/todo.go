// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package builtin ships the providers bundled with the daemon. They are
// small and synchronous, and double as end-to-end exercises of the provider
// contract.
package builtin

import (
	"context"
	"regexp"
	"strings"

	"github.com/AleutianAI/lintmux/document"
	"github.com/AleutianAI/lintmux/message"
	"github.com/AleutianAI/lintmux/registry"
)

var todoPattern = regexp.MustCompile(`\b(TODO|FIXME|XXX)\b`)

// TodoProvider flags TODO, FIXME and XXX markers in any document.
func TodoProvider() registry.Provider {
	return &registry.Spec{
		ProviderName:  "todo",
		ProviderScope: registry.ScopeFile,
		OnChange:      true,
		LintFunc:      lintTodos,
	}
}

func lintTodos(ctx context.Context, doc *document.Document) ([]message.Message, error) {
	text, err := doc.Text()
	if err != nil {
		return nil, err
	}

	var out []message.Message
	for row, line := range strings.Split(text, "\n") {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, loc := range todoPattern.FindAllStringIndex(line, -1) {
			marker := line[loc[0]:loc[1]]
			out = append(out, message.Message{
				Severity: message.SeverityInfo,
				Location: message.Location{
					File: doc.Path(),
					Position: message.Range{
						Start: message.Point{Row: row, Col: loc[0]},
						End:   message.Point{Row: row, Col: loc[1]},
					},
				},
				Excerpt:     marker + " marker",
				Description: strings.TrimSpace(line),
			})
		}
	}
	return out, nil
}
