// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package message

import (
	"errors"
	"fmt"
)

// Sentinel errors for the message package.
var (
	// ErrInvalidMessage indicates a message failed structural validation.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInvalidRange indicates a message carries a negative position.
	// Wraps ErrInvalidMessage, so errors.Is on either sentinel matches.
	ErrInvalidRange = fmt.Errorf("%w: invalid range", ErrInvalidMessage)
)
