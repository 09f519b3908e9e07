// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package registry owns the set of registered lint providers.
//
// A provider is an external analyzer treated as a black-box async function:
// it receives a document and returns a list of messages or fails. The
// registry tracks registration lifetime and administrative disabling; the
// dispatch coordinator consults it on every trigger, so deregistering a
// provider also invalidates that provider's in-flight commits.
package registry

import (
	"context"

	"github.com/AleutianAI/lintmux/document"
	"github.com/AleutianAI/lintmux/message"
)

// Scope declares what a provider's output is tied to.
type Scope string

const (
	// ScopeFile providers produce messages for one document; their results
	// are keyed by document and dropped when the document closes.
	ScopeFile Scope = "file"

	// ScopeProject providers produce messages for the whole project; their
	// results are not tied to any single document.
	ScopeProject Scope = "project"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeFile || s == ScopeProject
}

// Provider is the capability interface every analyzer implements.
//
// Implementations must be safe for concurrent use: the coordinator may have
// several Lint calls in flight at once, including several for the same
// provider when a newer request overtakes a slower one.
type Provider interface {
	// Name returns the unique provider name. It doubles as the dedup key
	// for error notifications and the handle for administrative disabling.
	Name() string

	// Scope reports whether results are per-file or project-wide.
	Scope() Scope

	// LintsOnChange reports whether the provider wants change-triggered
	// lints. Providers that only make sense on save return false.
	LintsOnChange() bool

	// GrammarScopes returns the lexical scopes the provider applies to.
	// An empty slice means the provider applies to every document.
	GrammarScopes() []string

	// Lint analyzes the document and returns raw (un-normalized) messages.
	// A nil slice is a valid empty result. The call may outlive the
	// request that issued it; the coordinator discards stale results.
	Lint(ctx context.Context, doc *document.Document) ([]message.Message, error)
}

// Spec is a concrete Provider built from plain values and a lint function.
//
// It is the registration vehicle for in-process providers and test doubles:
//
//	reg.Register(&registry.Spec{
//	    ProviderName:  "todo",
//	    ProviderScope: registry.ScopeFile,
//	    OnChange:      true,
//	    LintFunc:      findTodos,
//	})
type Spec struct {
	ProviderName  string
	ProviderScope Scope
	OnChange      bool
	Grammar       []string
	LintFunc      func(ctx context.Context, doc *document.Document) ([]message.Message, error)
}

// Name implements Provider.
func (s *Spec) Name() string { return s.ProviderName }

// Scope implements Provider.
func (s *Spec) Scope() Scope { return s.ProviderScope }

// LintsOnChange implements Provider.
func (s *Spec) LintsOnChange() bool { return s.OnChange }

// GrammarScopes implements Provider.
func (s *Spec) GrammarScopes() []string { return s.Grammar }

// Lint implements Provider.
func (s *Spec) Lint(ctx context.Context, doc *document.Document) ([]message.Message, error) {
	return s.LintFunc(ctx, doc)
}

var _ Provider = (*Spec)(nil)
