// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dispatch

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreFilter excludes documents from linting entirely, by a configured
// glob and optionally by the VCS ignore rules of the workspace root.
//
// # Thread Safety
//
// Immutable after construction; safe for concurrent use.
type IgnoreFilter struct {
	root string
	glob string
	vcs  []vcsPattern
}

// vcsPattern is one parsed .gitignore line.
type vcsPattern struct {
	pattern  string
	negate   bool
	anchored bool
}

// NewIgnoreFilter builds a filter rooted at the workspace root.
//
// # Inputs
//
//   - root: Workspace root; relative document paths are resolved against it.
//   - glob: Doublestar glob matched against the absolute path. Empty
//     disables the glob gate.
//   - respectVCS: When true, .gitignore at the root is parsed and applied.
//     A missing .gitignore is not an error.
func NewIgnoreFilter(root, glob string, respectVCS bool) (*IgnoreFilter, error) {
	f := &IgnoreFilter{root: root, glob: glob}
	if !respectVCS {
		return f, nil
	}

	file, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p := vcsPattern{}
		if strings.HasPrefix(line, "!") {
			p.negate = true
			line = line[1:]
		}
		if strings.HasPrefix(line, "/") {
			p.anchored = true
			line = line[1:]
		} else if strings.Contains(strings.TrimSuffix(line, "/"), "/") {
			// A slash anywhere but the end anchors the pattern to the root.
			p.anchored = true
		}
		p.pattern = strings.TrimSuffix(line, "/")
		if p.pattern != "" {
			f.vcs = append(f.vcs, p)
		}
	}
	return f, scanner.Err()
}

// Ignored reports whether the document at path must never be linted.
func (f *IgnoreFilter) Ignored(path string) bool {
	if f.glob != "" {
		if ok, _ := doublestar.Match(f.glob, filepath.ToSlash(path)); ok {
			return true
		}
	}
	if len(f.vcs) == 0 {
		return false
	}

	rel, err := filepath.Rel(f.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)

	// Last matching pattern wins, as in git.
	ignored := false
	for _, p := range f.vcs {
		if p.matches(rel) {
			ignored = !p.negate
		}
	}
	return ignored
}

// matches reports whether the pattern covers rel or any of its parents.
func (p vcsPattern) matches(rel string) bool {
	candidates := []string{p.pattern, p.pattern + "/**"}
	if !p.anchored {
		candidates = append(candidates, "**/"+p.pattern, "**/"+p.pattern+"/**")
	}
	for _, c := range candidates {
		if ok, _ := doublestar.Match(c, rel); ok {
			return true
		}
	}
	return false
}
