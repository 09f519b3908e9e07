// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package registry

import "errors"

// Sentinel errors for the registry package.
var (
	// ErrInvalidProvider indicates a provider with a missing name or scope.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrDuplicateProvider indicates the provider name is already taken.
	ErrDuplicateProvider = errors.New("provider already registered")

	// ErrUnknownProvider indicates no provider with that name is registered.
	ErrUnknownProvider = errors.New("unknown provider")
)
