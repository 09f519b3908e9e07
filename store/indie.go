// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"fmt"

	"github.com/AleutianAI/lintmux/message"
)

// IndieDelegate is the push contract for providers that publish results on
// their own schedule instead of being pulled by the dispatch coordinator.
//
// All pushes funnel through the same buckets and reconciliation passes as
// pulled results; an indie provider gets the identical flicker-free diffing.
//
// # Thread Safety
//
// Safe for concurrent use.
type IndieDelegate struct {
	name  string
	store *Store
}

// Indie returns the push delegate for the named provider.
func (s *Store) Indie(name string) *IndieDelegate {
	return &IndieDelegate{name: name, store: s}
}

// Name returns the delegate's provider name.
func (d *IndieDelegate) Name() string { return d.name }

// SetMessages replaces the delegate's messages for one subject.
//
// The payload is validated and normalized exactly like a pulled result;
// invalid payloads are dropped whole.
func (d *IndieDelegate) SetMessages(subjectPath string, msgs []message.Message) error {
	if err := message.Validate(d.name, msgs); err != nil {
		return err
	}
	normalized := message.Normalize(d.name, msgs)
	for i := range normalized {
		if normalized[i].Location.File != subjectPath {
			return fmt.Errorf("%w: message %d targets %q, not %q",
				message.ErrInvalidMessage, i, normalized[i].Location.File, subjectPath)
		}
	}
	d.store.Set(subjectPath, d.name, normalized)
	return nil
}

// SetAllMessages replaces the delegate's messages across every subject.
//
// Messages are grouped by their location file; subjects the delegate
// previously reported that are absent from msgs are cleared.
func (d *IndieDelegate) SetAllMessages(msgs []message.Message) error {
	if err := message.Validate(d.name, msgs); err != nil {
		return err
	}
	normalized := message.Normalize(d.name, msgs)

	bySubject := make(map[string][]message.Message)
	for _, m := range normalized {
		bySubject[m.Location.File] = append(bySubject[m.Location.File], m)
	}

	s := d.store
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	// Subjects not re-reported are retired.
	for key, b := range s.buckets {
		if key.provider != d.name {
			continue
		}
		if _, still := bySubject[key.subject]; !still {
			b.deleted = true
		}
	}
	for subject, subjectMsgs := range bySubject {
		key := bucketKey{subject: subject, provider: d.name}
		b, ok := s.buckets[key]
		if !ok {
			b = &bucket{}
			s.buckets[key] = b
		}
		b.current = subjectMsgs
		b.changed = true
		b.deleted = false
	}
	s.mu.Unlock()

	s.requestPass()
	return nil
}

// ClearMessages removes everything the delegate has reported.
func (d *IndieDelegate) ClearMessages() {
	d.store.ClearProvider(d.name)
}

// Dispose is an alias for ClearMessages, matching the lifetime contract of
// registered providers.
func (d *IndieDelegate) Dispose() {
	d.ClearMessages()
}
