// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath string
	rootDir    string
	addrFlag   string

	rootCmd = &cobra.Command{
		Use:   "lintmux",
		Short: "A lint orchestration daemon that multiplexes providers over watched documents",
		Long: `lintmux watches a workspace, debounces document changes, fans lints
out to registered providers, and reconciles their results into
flicker-free message batches served over an HTTP and websocket API.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Watch a workspace and serve the message API",
		RunE:  runServe, // Defined in cmd_serve.go
	}

	lintCmd = &cobra.Command{
		Use:   "lint [path...]",
		Short: "Lint the given files once and print the messages",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runLint, // Defined in cmd_lint.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a lintmux YAML config file")

	serveCmd.Flags().StringVar(&rootDir, "root", ".", "Workspace root to watch")
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(lintCmd)
}
