// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package message

// DiffResult partitions a full-list replacement into the minimal delta
// against the previously accepted list.
//
// Kept ∪ Added is exactly the new list; Removed is exactly the subset of the
// previous list whose keys no longer appear. The partition is loss-free:
// applying Added/Removed to the previous list reproduces the new list.
type DiffResult struct {
	Added   []Message
	Kept    []Message
	Removed []Message
}

// Diff computes the key-identity delta between two result lists.
//
// # Description
//
// A single pass using key lookups, independent of list order:
//
//   - previous empty: everything in current is added.
//   - current empty: everything in previous is removed.
//   - otherwise: current partitions into kept (key present in previous) and
//     added (key absent); removed is every previous message whose key is not
//     among the kept keys.
//
// Messages must already be normalized (non-empty keys); Diff never inspects
// anything but Key.
//
// # Inputs
//
//   - previous: The last accepted list. May be nil.
//   - current: The replacement list. May be nil.
//
// # Outputs
//
//   - DiffResult: The partition. Slices are never nil.
func Diff(previous, current []Message) DiffResult {
	res := DiffResult{
		Added:   make([]Message, 0, len(current)),
		Kept:    make([]Message, 0, len(current)),
		Removed: make([]Message, 0),
	}

	if len(previous) == 0 {
		res.Added = append(res.Added, current...)
		return res
	}
	if len(current) == 0 {
		res.Removed = append(res.Removed, previous...)
		return res
	}

	prevByKey := make(map[string]Message, len(previous))
	for _, m := range previous {
		prevByKey[m.Key] = m
	}

	keptKeys := make(map[string]struct{}, len(current))
	for _, m := range current {
		if _, ok := prevByKey[m.Key]; ok {
			res.Kept = append(res.Kept, m)
			keptKeys[m.Key] = struct{}{}
		} else {
			res.Added = append(res.Added, m)
		}
	}

	for _, m := range previous {
		if _, ok := keptKeys[m.Key]; !ok {
			res.Removed = append(res.Removed, m)
		}
	}

	return res
}
