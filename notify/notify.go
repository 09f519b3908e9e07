// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package notify surfaces provider failures to the user as dismissible
// notifications, deduplicated per provider name: while one notification for
// a provider is outstanding, further failures of the same provider are
// suppressed. A new notification is allowed once the previous is dismissed.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/lintmux/pkg/logging"
)

// Kind classifies what went wrong with the provider.
type Kind string

const (
	// KindTimeout means the invocation exceeded the fixed timeout.
	KindTimeout Kind = "timeout"

	// KindFailure means the invocation returned an error.
	KindFailure Kind = "failure"
)

// Notification is one dismissible user-facing notice.
type Notification struct {
	// ID uniquely identifies the notification for dismissal plumbing.
	ID string `json:"id"`

	// Provider is the name of the misbehaving provider.
	Provider string `json:"provider"`

	// Kind classifies the failure.
	Kind Kind `json:"kind"`

	// Detail is the human-readable failure description.
	Detail string `json:"detail"`

	// CreatedAt is when the notification was raised.
	CreatedAt time.Time `json:"created_at"`
}

// Sink renders notifications. Implementations must not block; rendering
// happens on the dispatch path.
type Sink interface {
	Show(n Notification)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(n Notification)

// Show implements Sink.
func (f SinkFunc) Show(n Notification) { f(n) }

// LogSink renders notifications into the structured log. It is the default
// sink for headless daemon mode, where there is no notification UI.
type LogSink struct {
	Logger *logging.Logger
}

// Show implements Sink.
func (s *LogSink) Show(n Notification) {
	logger := s.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger.Error("provider error",
		"notification_id", n.ID,
		"provider", n.Provider,
		"kind", string(n.Kind),
		"detail", n.Detail,
	)
}

// Notifier deduplicates and rate-limits notifications before a Sink.
//
// # Thread Safety
//
// Safe for concurrent use.
type Notifier struct {
	sink    Sink
	limiter *rate.Limiter
	logger  *logging.Logger

	mu          sync.Mutex
	outstanding map[string]Notification
}

// New creates a Notifier in front of sink.
//
// The limiter caps the overall notification rate; a provider failing on
// every keystroke must not flood the sink even across dismissals.
func New(sink Sink, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &Notifier{
		sink:        sink,
		limiter:     rate.NewLimiter(rate.Every(time.Second), 5),
		logger:      logger.With("component", "notify"),
		outstanding: make(map[string]Notification),
	}
}

// Notify raises a notification for the provider unless one is already
// outstanding for that name.
//
// # Outputs
//
//   - bool: True if the notification was shown, false if suppressed (by
//     dedup or by rate limiting; both outcomes are logged with full detail).
func (n *Notifier) Notify(provider string, kind Kind, detail string) bool {
	n.mu.Lock()
	if _, open := n.outstanding[provider]; open {
		n.mu.Unlock()
		n.logger.Debug("notification suppressed, one outstanding", "provider", provider, "kind", string(kind))
		return false
	}
	if !n.limiter.Allow() {
		n.mu.Unlock()
		n.logger.Warn("notification rate limited", "provider", provider, "kind", string(kind), "detail", detail)
		return false
	}

	notification := Notification{
		ID:        uuid.NewString(),
		Provider:  provider,
		Kind:      kind,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	n.outstanding[provider] = notification
	n.mu.Unlock()

	n.sink.Show(notification)
	return true
}

// Dismiss closes the outstanding notification for the provider, allowing
// the next failure to raise a new one.
func (n *Notifier) Dismiss(provider string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.outstanding, provider)
}

// DismissID closes the outstanding notification with the given ID.
func (n *Notifier) DismissID(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for provider, notification := range n.outstanding {
		if notification.ID == id {
			delete(n.outstanding, provider)
			return
		}
	}
}

// Outstanding returns a snapshot of the currently open notifications.
func (n *Notifier) Outstanding() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]Notification, 0, len(n.outstanding))
	for _, notification := range n.outstanding {
		out = append(out, notification)
	}
	return out
}
