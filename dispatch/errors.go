// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingDependency indicates the coordinator was constructed
	// without a required collaborator.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrProviderTimeout indicates the invocation exceeded the fixed
	// timeout. The underlying call is abandoned, not killed.
	ErrProviderTimeout = errors.New("provider timed out")

	// ErrProviderFailure indicates the invocation returned an error.
	ErrProviderFailure = errors.New("provider failed")

	// ErrProviderInvalidOutput indicates the result failed structural
	// validation. The whole payload is dropped, never partially applied.
	ErrProviderInvalidOutput = errors.New("provider returned invalid output")
)

// ProviderError wraps a failure with the provider it came from.
//
// A stale result discarded by the freshest-request gate is not an error and
// is never wrapped in one; it is an internal no-op outcome.
type ProviderError struct {
	// Provider is the name of the provider that failed.
	Provider string

	// Err is the underlying cause, wrapping one of the package sentinels.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %q: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.Err }
