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

package pattern_test

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/tombee/casefile/internal/pattern"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestMatch_SingleSegmentWildcard(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.log"), "x")
	writeFile(t, filepath.Join(dir, "b.log"), "x")
	writeFile(t, filepath.Join(dir, "c.txt"), "x")

	got, err := pattern.Match([]string{filepath.Join(dir, "*.log")}, false)
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(got)
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2: %v", len(got), got)
	}
}

func TestMatch_RecursiveWildcard(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", "deep", "evidence.bin"), "x")
	writeFile(t, filepath.Join(dir, "top.bin"), "x")

	got, err := pattern.Match([]string{filepath.Join(dir, "**", "*.bin")}, false)
	if err != nil {
		t.Fatal(err)
	}
	// "**" matches zero or more directories, so both the nested file and
	// the top-level one are included.
	if len(got) != 2 {
		t.Fatalf("got %d matches for **, want 2: %v", len(got), got)
	}
}

func TestMatch_DirectoryEnumeratesDescendants(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "x")
	writeFile(t, filepath.Join(dir, "nested", "b.txt"), "x")

	got, err := pattern.Match([]string{dir}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2: %v", len(got), got)
	}
}

func TestMatch_CaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "README.TXT"), "x")

	got, err := pattern.Match([]string{filepath.Join(dir, "readme.txt")}, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d matches for case-insensitive match, want 1: %v", len(got), got)
	}
}

func TestMatch_DeduplicatesAcrossPatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "shared.log"), "x")

	got, err := pattern.Match([]string{
		filepath.Join(dir, "*.log"),
		filepath.Join(dir, "shared.*"),
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected de-duplication to one match, got %d: %v", len(got), got)
	}
}

func TestMatch_BackslashSeparatorAccepted(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("separator normalization is exercised directly on POSIX where \\ is not a path separator")
	}
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", "f.txt"), "x")

	winStylePattern := dir + `\sub\*.txt`
	got, err := pattern.Match([]string{winStylePattern}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected backslash-separated pattern to match, got %d: %v", len(got), got)
	}
}

func TestMatch_NoMatchesReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	got, err := pattern.Match([]string{filepath.Join(dir, "*.nonexistent")}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %v", got)
	}
}

func TestMatch_SymlinkedDirectoryIsFollowed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires elevated privilege on Windows")
	}
	dir := t.TempDir()
	realDir := filepath.Join(dir, "real")
	writeFile(t, filepath.Join(realDir, "evidence.dat"), "x")

	linkDir := filepath.Join(dir, "link")
	if err := os.Symlink(realDir, linkDir); err != nil {
		t.Fatal(err)
	}

	got, err := pattern.Match([]string{filepath.Join(dir, "link", "*.dat")}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected symlinked directory to be traversed, got %d: %v", len(got), got)
	}
}
