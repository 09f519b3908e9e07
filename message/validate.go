// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package message

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// msgValidate is the validator instance for message payloads.
// Initialized in init() with custom validators.
var msgValidate *validator.Validate

func init() {
	msgValidate = validator.New()

	// Severity is a string alias, so oneof can't be used via tag on the
	// alias type; register a struct-level check instead.
	msgValidate.RegisterStructValidation(validateMessageStruct, Message{})
}

// validateMessageStruct enforces the invariants the tag grammar can't express:
// a known severity value and a complete reference. Range sanity is checked
// separately in Validate so the failure carries its own sentinel.
func validateMessageStruct(sl validator.StructLevel) {
	m := sl.Current().Interface().(Message)

	if !m.Severity.Valid() {
		sl.ReportError(m.Severity, "Severity", "severity", "severity", "")
	}
	if m.Reference != nil && m.Reference.File == "" {
		sl.ReportError(m.Reference, "Reference", "reference", "required", "")
	}
}

// validRange reports whether a range carries no negative positions.
// Inverted ranges are legal here; Normalize collapses them.
func validRange(r Range) bool {
	return r.Start.Row >= 0 && r.Start.Col >= 0 && r.End.Row >= 0 && r.End.Col >= 0
}

// Validate structurally validates a full provider result.
//
// # Description
//
// Every message must carry a known severity, a non-empty excerpt, a file
// location, and a sane range. Validation is all-or-nothing: the first
// invalid message fails the whole payload, so a commit is never partially
// applied.
//
// The observed upstream behavior skipped validation outside development
// profiles as a cost optimization. Here validation is unconditional; the
// payloads are small and the skip was never part of the contract.
//
// # Inputs
//
//   - providerName: Used only for error context.
//   - msgs: The payload to validate. A nil or empty slice is valid.
//
// # Outputs
//
//   - error: Non-nil if any message is malformed, wrapping ErrInvalidMessage.
//     Negative positions additionally wrap ErrInvalidRange.
func Validate(providerName string, msgs []Message) error {
	for i, m := range msgs {
		if !validRange(m.Location.Position) {
			return fmt.Errorf("%w: provider %q message %d: negative position", ErrInvalidRange, providerName, i)
		}
		if err := msgValidate.Struct(m); err != nil {
			return fmt.Errorf("%w: provider %q message %d: %v", ErrInvalidMessage, providerName, i, err)
		}
	}
	return nil
}
