// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package message defines the diagnostic message data model shared by the
// dispatch coordinator and the reconciliation store.
//
// A Message is immutable once normalized: range values are realized, the
// linter name is defaulted, the schema version is stamped, and a
// content-derived Key is computed. Key equality (never pointer equality) is
// the sole identity used for diffing, because providers routinely return
// brand-new lists that are semantically identical to the previous result.
package message

import "fmt"

// SchemaVersion is stamped onto every normalized message. Consumers use it
// to reject payloads produced by incompatible builds.
const SchemaVersion = 2

// Severity classifies a diagnostic message.
type Severity string

// Supported severities, ordered from most to least severe.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Valid reports whether s is one of the supported severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// Point is a zero-based row/column position inside a document.
type Point struct {
	Row int `json:"row" validate:"gte=0"`
	Col int `json:"col" validate:"gte=0"`
}

// String returns the point as "row:col".
func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Col)
}

// Before reports whether p is strictly before other in document order.
func (p Point) Before(other Point) bool {
	if p.Row != other.Row {
		return p.Row < other.Row
	}
	return p.Col < other.Col
}

// Range is a half-open [Start, End) span inside a document.
type Range struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

// String returns the range as "startRow:startCol-endRow:endCol".
func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// Location pins a message to a position inside a file.
type Location struct {
	// File is the absolute path of the subject document.
	File string `json:"file" validate:"required"`

	// Position is the span the message applies to.
	Position Range `json:"position"`
}

// Reference points at a related position, typically the definition a
// diagnostic refers back to.
type Reference struct {
	File  string `json:"file" validate:"required"`
	Point Point  `json:"point"`
}

// Solution describes one automatic fix a provider offers for a message.
type Solution struct {
	// Title is the human-readable label shown for the fix.
	Title string `json:"title,omitempty"`

	// Position is the span the fix rewrites.
	Position Range `json:"position"`

	// CurrentText optionally guards the fix: it is applied only if the
	// document still contains this text at Position.
	CurrentText string `json:"current_text,omitempty"`

	// ReplaceWith is the replacement text.
	ReplaceWith string `json:"replace_with"`
}

// Message is one diagnostic finding produced by a provider.
//
// Messages are plain values. After Normalize they must be treated as
// immutable; the store and all consumers share them without copying.
type Message struct {
	// Key is the content-derived identity, computed by Normalize.
	Key string `json:"key"`

	// Version is the message schema version, stamped by Normalize.
	Version int `json:"version"`

	// Severity classifies the finding.
	Severity Severity `json:"severity" validate:"required"`

	// LinterName identifies the provider that produced the message.
	// Normalize defaults it to the provider's registered name.
	LinterName string `json:"linter_name"`

	// Location is where the finding applies.
	Location Location `json:"location" validate:"required"`

	// Excerpt is the short one-line summary of the finding.
	Excerpt string `json:"excerpt" validate:"required"`

	// Reference optionally points at a related position.
	Reference *Reference `json:"reference,omitempty"`

	// Solutions are optional automatic fixes.
	Solutions []Solution `json:"solutions,omitempty"`

	// Icon optionally overrides the icon shown next to the message.
	Icon string `json:"icon,omitempty"`

	// URL optionally links to documentation for the finding.
	URL string `json:"url,omitempty"`

	// Description is an optional long-form explanation.
	Description string `json:"description,omitempty"`
}
