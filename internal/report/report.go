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

// Package report implements the reporter (§4.7): after a workflow run
// completes, assemble the report directory's fixed layout into
// report.zip (size-gated per-file compression) and, when requested,
// seal it under the crypto core.
package report

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	caseerrors "github.com/tombee/casefile/pkg/errors"
	"github.com/tombee/casefile/pkg/workflow"
)

// layoutEntries names the fixed set of report-root entries the reporter
// archives, in a stable order so report.zip's member order is
// deterministic across runs of the same content.
var layoutEntries = []string{"action_output", "loot_files", "store_files", "metadata.csv"}

// Root describes one run's report directory.
type Root struct {
	Path string
}

// ActionOutputDir is where command/binary stdout+stderr and terminal
// transcripts are written.
func (r Root) ActionOutputDir() string { return filepath.Join(r.Path, "action_output") }

// LootDir is where ad-hoc operator-facing outputs live; the workflow
// document's ${LOOT_DIR} binding resolves here.
func (r Root) LootDir() string { return filepath.Join(r.Path, "loot_files") }

// StoreFilesDir is the capture pipeline's content-addressed store.
func (r Root) StoreFilesDir() string { return filepath.Join(r.Path, "store_files") }

// MetadataPath is the capture pipeline's CSV journal.
func (r Root) MetadataPath() string { return filepath.Join(r.Path, "metadata.csv") }

// DedupDBPath is the capture pipeline's run-scoped accelerator; it never
// appears in the archived report.
func (r Root) DedupDBPath() string { return filepath.Join(r.Path, ".dedup.sqlite") }

// ArchivePath is where the zip archive is assembled.
func (r Root) ArchivePath() string { return filepath.Join(r.Path, "report.zip") }

// Prepare creates the report root and its fixed subdirectories.
func Prepare(path string) (Root, error) {
	root := Root{Path: path}
	for _, dir := range []string{root.ActionOutputDir(), root.LootDir(), root.StoreFilesDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Root{}, &caseerrors.ReportError{Stage: "mkdir", Cause: err}
		}
	}
	return root, nil
}

// Archive assembles report.zip from the layout entries and removes the
// originals, per policy.ZipArchiveEnabled()/CompressionSizeLimit(). If
// archival is disabled it is a no-op: the loose directory tree is the
// final report.
func Archive(root Root, policy workflow.ReportingPolicy) error {
	if !policy.ZipArchiveEnabled() {
		return nil
	}

	sizeLimit := policy.CompressionSizeLimit()

	zf, err := os.Create(root.ArchivePath())
	if err != nil {
		return &caseerrors.ReportError{Stage: "archive", Cause: err}
	}
	defer zf.Close()

	zw := zip.NewWriter(zf)
	for _, entry := range layoutEntries {
		entryPath := filepath.Join(root.Path, entry)
		info, statErr := os.Stat(entryPath)
		if statErr != nil {
			if os.IsNotExist(statErr) {
				continue
			}
			zw.Close()
			return &caseerrors.ReportError{Stage: "archive", Cause: statErr}
		}
		if info.IsDir() {
			if err := addDir(zw, root.Path, entryPath, sizeLimit); err != nil {
				zw.Close()
				return &caseerrors.ReportError{Stage: "archive", Cause: err}
			}
			continue
		}
		if err := addFile(zw, root.Path, entryPath, info, sizeLimit); err != nil {
			zw.Close()
			return &caseerrors.ReportError{Stage: "archive", Cause: err}
		}
	}
	if err := zw.Close(); err != nil {
		return &caseerrors.ReportError{Stage: "archive", Cause: err}
	}

	for _, entry := range layoutEntries {
		if err := os.RemoveAll(filepath.Join(root.Path, entry)); err != nil {
			return &caseerrors.ReportError{Stage: "cleanup", Cause: err}
		}
	}
	return nil
}

func addDir(zw *zip.Writer, root, dir string, sizeLimit int64) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		return addFile(zw, root, path, info, sizeLimit)
	})
}

// addFile writes one archive member. Files whose size exceeds sizeLimit
// are stored without deflate, per the compression policy; a negative
// sizeLimit (unlimited) always deflates.
func addFile(zw *zip.Writer, root, path string, info os.FileInfo, sizeLimit int64) error {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.ToSlash(rel)
	if sizeLimit >= 0 && info.Size() > sizeLimit {
		header.Method = zip.Store
	} else {
		header.Method = zip.Deflate
	}

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
