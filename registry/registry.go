// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package registry

import (
	"fmt"
	"sync"
)

// Registry is the explicitly-owned provider set.
//
// # Description
//
// Registry tracks which providers exist and which are administratively
// disabled. It is constructed once per session and passed by handle to the
// dispatch coordinator; there is no ambient singleton.
//
// # Thread Safety
//
// Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	disabled  map[string]struct{}

	// onDeregister is invoked after a provider leaves the set, so the
	// owner can clear that provider's buckets from the store.
	onDeregister func(name string)
}

// New creates an empty Registry.
//
// # Inputs
//
//   - onDeregister: Called with the provider name after every successful
//     Deregister. May be nil.
func New(onDeregister func(name string)) *Registry {
	return &Registry{
		providers:    make(map[string]Provider),
		disabled:     make(map[string]struct{}),
		onDeregister: onDeregister,
	}
}

// Register adds a provider to the set.
//
// # Outputs
//
//   - error: ErrInvalidProvider if the provider is malformed,
//     ErrDuplicateProvider if the name is already registered.
func (r *Registry) Register(p Provider) error {
	if p == nil || p.Name() == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidProvider)
	}
	if !p.Scope().Valid() {
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidProvider, p.Scope())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[p.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, p.Name())
	}
	r.providers[p.Name()] = p
	return nil
}

// Deregister removes a provider from the set.
//
// After Deregister returns, any in-flight result from the provider fails the
// commit liveness check, and the onDeregister hook has been invoked so the
// store can report the provider's messages as removed.
func (r *Registry) Deregister(name string) error {
	r.mu.Lock()
	if _, ok := r.providers[name]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	delete(r.providers, name)
	hook := r.onDeregister
	r.mu.Unlock()

	if hook != nil {
		hook(name)
	}
	return nil
}

// Get returns the provider with the given name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// IsRegistered reports whether a provider with the given name exists.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// Providers returns a snapshot of the current provider set.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	return out
}

// SetDisabled replaces the administratively disabled name set.
//
// Names that are not currently registered are accepted; disabling is a
// configuration concern and config may load before providers register.
func (r *Registry) SetDisabled(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.disabled = make(map[string]struct{}, len(names))
	for _, n := range names {
		r.disabled[n] = struct{}{}
	}
}

// Disable marks one provider name as administratively disabled.
func (r *Registry) Disable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled[name] = struct{}{}
}

// Enable clears the disabled mark for one provider name.
func (r *Registry) Enable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.disabled, name)
}

// IsDisabled reports whether the provider name is administratively disabled.
func (r *Registry) IsDisabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.disabled[name]
	return ok
}
