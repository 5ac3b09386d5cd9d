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

// Package capture implements the content-addressed acquisition
// pipeline: stream a source file's bytes through SHA-256 while copying
// it into store_files/, preserve its MAC times, and journal one CSV
// row per captured (or skipped) source path.
package capture

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	caseerrors "github.com/tombee/casefile/pkg/errors"
	"github.com/tombee/casefile/pkg/workflow"
)

// macReadRateLimit bounds how many per-file MAC-time stats the pipeline
// issues per second. Parallel store/yara actions can call Capture
// concurrently; without a pace limit a workflow with a broad pattern set
// can starve the rest of the run's I/O with a burst of stats on a single
// volume.
const macReadRateLimit = 500

// Pipeline is the capture pipeline for one workflow run: it owns the
// store_files/ directory, the dedup index, and the metadata.csv writer.
type Pipeline struct {
	storeDir string
	metadata *metadataWriter
	dedup    *dedupIndex
	pace     *rate.Limiter
}

// Config selects the report-scoped paths and policy a Pipeline is
// built against.
type Config struct {
	StoreDir     string // <REPORT_ROOT>/store_files
	MetadataPath string // <REPORT_ROOT>/metadata.csv
	DedupDBPath  string // run-scoped sqlite accelerator, deleted before archival
	Flags        workflow.MetadataFlags
	Location     *time.Location
}

// New opens a Pipeline, creating store_files/ and metadata.csv.
func New(cfg Config) (*Pipeline, error) {
	if err := os.MkdirAll(cfg.StoreDir, 0o755); err != nil {
		return nil, caseerrors.Wrapf(err, "creating store directory %s", cfg.StoreDir)
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	mw, err := newMetadataWriter(cfg.MetadataPath, cfg.Flags, loc)
	if err != nil {
		return nil, err
	}

	dedup, err := openDedupIndex(cfg.DedupDBPath)
	if err != nil {
		mw.Close()
		return nil, err
	}

	pace := rate.NewLimiter(rate.Limit(macReadRateLimit), macReadRateLimit/10)
	return &Pipeline{storeDir: cfg.StoreDir, metadata: mw, dedup: dedup, pace: pace}, nil
}

// Outcome is the per-file result of a single Capture call.
type Outcome struct {
	SHA256   string
	DestPath string
	Skipped  bool
	Reason   string
}

// Capture streams src once: SHA-256 over the raw bytes while copying
// to a temp file under storeDir, then renames to store_files/<hex>. If
// that destination already exists (identical content, this run or a
// prior claim), the copy is discarded and the existing entry reused.
// Any I/O error produces a skipped metadata row rather than a returned
// error, per the "continue on per-file I/O error" rule; Capture itself
// only returns an error for failures in the metadata/dedup bookkeeping
// that make the whole pipeline unusable.
func (p *Pipeline) Capture(src string) (Outcome, error) {
	_ = p.pace.Wait(context.Background())

	mac, statErr := readMACTimes(src)
	if statErr != nil {
		return p.skip(src, "", fmt.Sprintf("stat: %v", statErr))
	}

	in, err := os.Open(src)
	if err != nil {
		return p.skip(src, "", fmt.Sprintf("open: %v", err))
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return p.skip(src, "", fmt.Sprintf("stat after open: %v", err))
	}

	tmp, err := os.CreateTemp(p.storeDir, "capture-*.tmp")
	if err != nil {
		return p.skip(src, "", fmt.Sprintf("create temp: %v", err))
	}
	tmpPath := tmp.Name()
	removeTmp := true
	defer func() {
		if removeTmp {
			os.Remove(tmpPath)
		}
	}()

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), in); err != nil {
		tmp.Close()
		return p.skip(src, "", fmt.Sprintf("copy: %v", err))
	}
	if err := tmp.Close(); err != nil {
		return p.skip(src, "", fmt.Sprintf("close temp: %v", err))
	}

	hash := hex.EncodeToString(hasher.Sum(nil))
	destPath := filepath.Join(p.storeDir, hash)

	if _, found, err := p.dedup.lookup(hash); err != nil {
		return Outcome{}, err
	} else if found {
		return p.record(hash, destPath, src, info.Size(), mac, "")
	}

	if _, err := os.Stat(destPath); err == nil {
		// Destination exists from a source outside this run's dedup
		// index (e.g. a prior interrupted run reusing the same
		// report directory); treat as already-captured.
		if recErr := p.dedup.record(hash, destPath); recErr != nil {
			return Outcome{}, recErr
		}
		return p.record(hash, destPath, src, info.Size(), mac, "")
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return p.skip(src, "", fmt.Sprintf("rename into store: %v", err))
	}
	removeTmp = false

	if err := p.dedup.record(hash, destPath); err != nil {
		return Outcome{}, err
	}
	return p.record(hash, destPath, src, info.Size(), mac, "")
}

func (p *Pipeline) record(hash, destPath, src string, size int64, mac MACTimes, extraAttrs string) (Outcome, error) {
	row := Row{
		SHA256:     hash,
		SourcePath: src,
		SizeBytes:  size,
		MAC:        mac,
		ExtraAttrs: extraAttrs,
	}
	if err := p.metadata.Append(row); err != nil {
		return Outcome{}, err
	}
	return Outcome{SHA256: hash, DestPath: destPath}, nil
}

// SkipWarn records a metadata row for src without capturing it — used
// by callers that deliberately decline to store a matched file (e.g.
// an action's size_limit) and still need the skip on the record.
func (p *Pipeline) SkipWarn(src, reason string) error {
	_, err := p.skip(src, "", reason)
	return err
}

func (p *Pipeline) skip(src, hash, reason string) (Outcome, error) {
	row := Row{SHA256: hash, SourcePath: src, Err: reason}
	if err := p.metadata.Append(row); err != nil {
		return Outcome{}, err
	}
	return Outcome{Skipped: true, Reason: reason}, nil
}

// Close flushes and closes the metadata writer and dedup index. It
// does not remove store_files/; the reporter owns that directory's
// lifecycle.
func (p *Pipeline) Close() error {
	dedupErr := p.dedup.Close()
	metaErr := p.metadata.Close()
	if metaErr != nil {
		return metaErr
	}
	return dedupErr
}
