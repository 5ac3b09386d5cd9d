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

package yaralite

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	caseerrors "github.com/tombee/casefile/pkg/errors"
)

// filesPerWorkerPerSecond bounds how often each worker may open a new
// scan target, on top of the numThreads concurrency cap: num_threads
// alone limits how many files are open at once, not how fast a worker
// churns through a directory of many small files.
const filesPerWorkerPerSecond = 50

// Compile reads and parses every rules file in paths into one combined
// RuleSet.
func Compile(paths []string) (*RuleSet, error) {
	combined := &RuleSet{}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, caseerrors.Wrapf(err, "reading rules file %s", p)
		}
		rs, err := ParseFile(string(data))
		if err != nil {
			return nil, caseerrors.Wrapf(err, "compiling rules file %s", p)
		}
		combined.Rules = append(combined.Rules, rs.Rules...)
	}
	return combined, nil
}

// FileResult is the scan outcome for one target file.
type FileResult struct {
	Path     string
	Matched  []string // rule names that matched
	TimedOut bool
	Err      error
}

func scanOne(ctx context.Context, rs *RuleSet, path string, perFileTimeout time.Duration, pace *rate.Limiter) FileResult {
	_ = pace.Wait(ctx)

	fileCtx, cancel := context.WithTimeout(ctx, perFileTimeout)
	defer cancel()

	type outcome struct {
		matched []string
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		data, err := os.ReadFile(path)
		if err != nil {
			done <- outcome{err: caseerrors.Wrapf(err, "reading scan target %s", path)}
			return
		}
		done <- outcome{matched: rs.Scan(data)}
	}()

	select {
	case o := <-done:
		return FileResult{Path: path, Matched: o.matched, Err: o.err}
	case <-fileCtx.Done():
		return FileResult{Path: path, TimedOut: true}
	}
}

// ScanFiles scans every path in files with rs, bounded to numThreads
// concurrent workers and perFileTimeout per file. A per-file timeout is
// recorded on the result (TimedOut=true) rather than aborting the whole
// scan, matching the yara action's "timeout produces a warning, not
// action failure" outcome.
func ScanFiles(ctx context.Context, rs *RuleSet, files []string, numThreads int, perFileTimeout time.Duration) ([]FileResult, error) {
	if numThreads < 1 {
		numThreads = 1
	}

	pace := rate.NewLimiter(rate.Limit(numThreads*filesPerWorkerPerSecond), numThreads*filesPerWorkerPerSecond)

	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numThreads)

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			results[i] = scanOne(gctx, rs, f, perFileTimeout, pace)
			return nil // per-file errors are recorded on the result, not propagated
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
