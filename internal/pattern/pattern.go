// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pattern implements the glob-based file enumeration used by the
// store and yara actions: cross-platform separator handling, a
// doublestar grammar (*, **, ?, [...]), optional case-insensitive
// matching, and symlink-following directory traversal.
package pattern

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

var foldCaser = cases.Fold()

// foldForMatch normalizes width (fullwidth/halfwidth forms collected from
// non-English filesystems) before case-folding, so e.g. a fullwidth "Ａ"
// collected on a CJK system still matches a halfwidth "a" in the pattern.
func foldForMatch(s string) string {
	return foldCaser.String(width.Fold.String(s))
}

// Match enumerates the paths of every regular file matched by any of
// patterns, de-duplicated; paths are absolute when the pattern is. Patterns are evaluated against the
// real filesystem; both "/" and "\" are accepted as separators and
// normalized to the platform separator before matching.
func Match(patterns []string, caseInsensitive bool) ([]string, error) {
	seen := make(map[string]bool)
	var results []string

	for _, raw := range patterns {
		matches, err := matchOne(normalizeSeparators(raw), caseInsensitive)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				results = append(results, m)
			}
		}
	}
	return results, nil
}

func normalizeSeparators(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return filepath.FromSlash(p)
}

func matchOne(pattern string, caseInsensitive bool) ([]string, error) {
	// A pattern with no glob metacharacters resolving to an existing
	// directory enumerates every regular-file descendant; resolving to a
	// file matches just that file.
	if !hasMeta(pattern) {
		info, err := os.Stat(pattern)
		if err != nil {
			if os.IsNotExist(err) && caseInsensitive {
				// Only the final segment is folded; the parent directory
				// is resolved exactly, like a glob's static prefix.
				dir, name := filepath.Split(pattern)
				if dir == "" {
					dir = "."
				}
				entries, _ := os.ReadDir(dir)
				for _, e := range entries {
					if e.Type().IsRegular() && foldForMatch(e.Name()) == foldForMatch(name) {
						return []string{filepath.Join(dir, e.Name())}, nil
					}
				}
				return nil, nil
			}
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, err
		}
		if info.IsDir() {
			return walkAllFiles(pattern)
		}
		return []string{pattern}, nil
	}

	base, rest := splitStaticPrefix(filepath.ToSlash(pattern))
	base = filepath.FromSlash(base)

	baseInfo, err := os.Stat(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !baseInfo.IsDir() {
		return nil, nil
	}

	var results []string
	err = walk(base, base, map[string]bool{}, func(relPath, absPath string, isDir bool) error {
		if isDir {
			return nil
		}
		candidate := filepath.ToSlash(relPath)
		matched, matchErr := matchPattern(rest, candidate, caseInsensitive)
		if matchErr != nil {
			return matchErr
		}
		if matched {
			results = append(results, absPath)
		}
		return nil
	})
	return results, err
}

// splitStaticPrefix separates a slash-normalized glob pattern into the
// longest metacharacter-free leading directory and the remaining glob
// expression, so traversal can start from a real directory instead of
// walking from the filesystem root. A pattern with no static prefix
// (e.g. "*.log") splits to (".", "*.log").
func splitStaticPrefix(pattern string) (base, rest string) {
	segments := strings.Split(pattern, "/")
	i := 0
	for i < len(segments) && !hasMeta(segments[i]) {
		i++
	}
	if i == 0 {
		return ".", pattern
	}
	if i == len(segments) {
		// No metacharacters at all; the whole pattern is the base and
		// matches itself exactly.
		return pattern, ""
	}
	return strings.Join(segments[:i], "/"), strings.Join(segments[i:], "/")
}

func matchPattern(pattern, candidate string, caseInsensitive bool) (bool, error) {
	if caseInsensitive {
		return doublestar.Match(foldForMatch(pattern), foldForMatch(candidate))
	}
	return doublestar.Match(pattern, candidate)
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[")
}

func walkAllFiles(dir string) ([]string, error) {
	var results []string
	err := walk(dir, dir, map[string]bool{}, func(_ string, absPath string, isDir bool) error {
		if !isDir {
			results = append(results, absPath)
		}
		return nil
	})
	return results, err
}

// walk recursively visits base, following symlinked directories (guarded
// against cycles by the real-path visited set) so store/yara patterns can
// reach evidence that lives behind a symlinked mount point. fn is called
// for every entry with its path relative to root and its path joined
// under dir (symlinks in it are not resolved).
func walk(root, dir string, visitedRealDirs map[string]bool, fn func(relPath, absPath string, isDir bool) error) error {
	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		realDir = dir
	}
	if visitedRealDirs[realDir] {
		return nil
	}
	visitedRealDirs[realDir] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil // unreadable directory: skip, not fatal to the whole match
	}

	for _, entry := range entries {
		absPath := filepath.Join(dir, entry.Name())
		relPath, relErr := filepath.Rel(root, absPath)
		if relErr != nil {
			relPath = absPath
		}

		info, statErr := os.Stat(absPath) // follows symlinks
		if statErr != nil {
			continue
		}

		if info.IsDir() {
			if err := fn(relPath, absPath, true); err != nil {
				return err
			}
			if err := walk(root, absPath, visitedRealDirs, fn); err != nil {
				return err
			}
			continue
		}

		if info.Mode().IsRegular() {
			if err := fn(relPath, absPath, false); err != nil {
				return err
			}
		}
	}
	return nil
}
