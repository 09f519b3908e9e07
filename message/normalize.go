// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package message

// Normalize prepares raw provider output for the reconciliation store.
//
// # Description
//
// For each message: defaults LinterName to providerName when unset, realizes
// degenerate ranges (an inverted span collapses to its start point), stamps
// the schema version, and computes the content Key. The input slice is not
// mutated; normalized copies are returned. After normalization a message
// must never be modified again.
//
// # Inputs
//
//   - providerName: Registered name of the provider that produced msgs.
//   - msgs: Raw provider output. May be nil.
//
// # Outputs
//
//   - []Message: Normalized copies, never nil.
func Normalize(providerName string, msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.LinterName == "" {
			m.LinterName = providerName
		}
		if m.Location.Position.End.Before(m.Location.Position.Start) {
			m.Location.Position.End = m.Location.Position.Start
		}
		m.Version = SchemaVersion
		m.Key = ComputeKey(m)
		out = append(out, m)
	}
	return out
}
