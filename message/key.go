// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package message

import (
	"fmt"

	"github.com/mitchellh/hashstructure/v2"
)

// keyFields is the exact set of fields that participate in message identity.
//
// Solutions are deliberately excluded: two results differing only in the
// offered fixes are the same finding, and re-rendering them would flicker.
type keyFields struct {
	LinterName  string
	File        string
	Position    Range
	Reference   *Reference
	Excerpt     string
	Severity    Severity
	Icon        string
	URL         string
	Description string
}

// ComputeKey derives the content identity for m.
//
// # Description
//
// The key is a deterministic hash over (linterName, location, reference,
// excerpt, severity, icon, url, description). Two messages with equal keys
// are the same finding regardless of which result list they arrived in.
//
// # Outputs
//
//   - string: Hex-encoded 64-bit hash, stable across processes.
func ComputeKey(m Message) string {
	h, err := hashstructure.Hash(keyFields{
		LinterName:  m.LinterName,
		File:        m.Location.File,
		Position:    m.Location.Position,
		Reference:   m.Reference,
		Excerpt:     m.Excerpt,
		Severity:    m.Severity,
		Icon:        m.Icon,
		URL:         m.URL,
		Description: m.Description,
	}, hashstructure.FormatV2, nil)
	if err != nil {
		// Hashing a struct of plain values cannot fail at runtime; fall
		// back to a printf identity so a key is never empty.
		return fmt.Sprintf("%s|%s|%v|%s", m.LinterName, m.Location.File, m.Location.Position, m.Excerpt)
	}
	return fmt.Sprintf("%016x", h)
}
