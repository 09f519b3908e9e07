// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/lintmux/document"
	"github.com/AleutianAI/lintmux/message"
)

func spec(name string) *Spec {
	return &Spec{
		ProviderName:  name,
		ProviderScope: ScopeFile,
		OnChange:      true,
		LintFunc: func(context.Context, *document.Document) ([]message.Message, error) {
			return nil, nil
		},
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := New(nil)

	require.NoError(t, r.Register(spec("p1")))
	assert.True(t, r.IsRegistered("p1"))

	p, ok := r.Get("p1")
	require.True(t, ok)
	assert.Equal(t, "p1", p.Name())

	assert.Len(t, r.Providers(), 1)
}

func TestRegistry_RejectsInvalid(t *testing.T) {
	r := New(nil)

	err := r.Register(&Spec{ProviderScope: ScopeFile})
	assert.ErrorIs(t, err, ErrInvalidProvider)

	err = r.Register(&Spec{ProviderName: "p1", ProviderScope: "galaxy"})
	assert.ErrorIs(t, err, ErrInvalidProvider)
}

func TestRegistry_RejectsDuplicateName(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Register(spec("p1")))

	err := r.Register(spec("p1"))
	assert.ErrorIs(t, err, ErrDuplicateProvider)
}

func TestRegistry_DeregisterInvokesHook(t *testing.T) {
	var cleared []string
	r := New(func(name string) { cleared = append(cleared, name) })
	require.NoError(t, r.Register(spec("p1")))

	require.NoError(t, r.Deregister("p1"))
	assert.False(t, r.IsRegistered("p1"))
	assert.Equal(t, []string{"p1"}, cleared)

	err := r.Deregister("p1")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Len(t, cleared, 1, "hook must not fire for a failed deregister")
}

func TestRegistry_Disabling(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Register(spec("p1")))

	// Disabling an unregistered name is allowed; config can load first.
	r.SetDisabled([]string{"p1", "not-yet-registered"})
	assert.True(t, r.IsDisabled("p1"))
	assert.True(t, r.IsDisabled("not-yet-registered"))

	r.Enable("p1")
	assert.False(t, r.IsDisabled("p1"))

	r.Disable("p1")
	assert.True(t, r.IsDisabled("p1"))

	// Disabled providers stay registered.
	assert.True(t, r.IsRegistered("p1"))
}
