// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command lintmux runs the lint orchestration daemon and its one-shot CLI.
//
// Usage:
//
//	# Watch a workspace and serve the API
//	lintmux serve --root /path/to/project
//
//	# One-shot lint of a file, exit non-zero on errors
//	lintmux lint /path/to/project/main.go
//
// Example requests against a running daemon:
//
//	curl http://localhost:8787/healthz
//	curl http://localhost:8787/v1/messages | jq
//	curl -X POST http://localhost:8787/v1/lint \
//	  -H "Content-Type: application/json" \
//	  -d '{"path": "/path/to/project/main.go"}'
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
