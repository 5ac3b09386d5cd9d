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

package action

import (
	"context"
	"fmt"
	"time"

	"github.com/tombee/casefile/internal/humanize"
	"github.com/tombee/casefile/internal/pattern"
	"github.com/tombee/casefile/internal/yaralite"
	"github.com/tombee/casefile/pkg/workflow"
)

const defaultScanTimeout = 60 * time.Second

// runYaraAction compiles ya.RulesPaths (globbed, case-sensitive: rule
// files are named deliberately) and scans ya.FilesToScan against them.
// A per-file scan timeout produces a warning, never an action failure;
// only rule compilation failure does.
func runYaraAction(ctx context.Context, step string, ya *workflow.YaraAction, env Env) Outcome {
	start := time.Now()

	ruleFiles, err := pattern.Match(ya.RulesPaths, false)
	if err != nil {
		return Outcome{Status: StatusFailed, Duration: time.Since(start), Err: err}
	}
	rs, err := yaralite.Compile(ruleFiles)
	if err != nil {
		return Outcome{Status: StatusFailed, Duration: time.Since(start), Err: err}
	}

	targets, err := pattern.Match(ya.FilesToScan, false)
	if err != nil {
		return Outcome{Status: StatusFailed, Duration: time.Since(start), Err: err}
	}

	numThreads := ya.NumThreads
	if numThreads < 1 {
		numThreads = 1
	}
	scanTimeout := defaultScanTimeout
	if ya.ScanTimeout != "" {
		if d, err := humanize.ParseDuration(ya.ScanTimeout); err == nil {
			scanTimeout = d
		}
	}

	results, err := yaralite.ScanFiles(ctx, rs, targets, numThreads, scanTimeout)
	if err != nil {
		return Outcome{Status: StatusFailed, Duration: time.Since(start), Err: err}
	}

	storeOnMatch := boolOr(ya.StoreOnMatch, true)

	var artifacts []string
	for _, r := range results {
		switch {
		case r.TimedOut:
			env.logger().Warn("yara scan timed out", "step", step, "path", r.Path)
			if err := env.Capture.SkipWarn(r.Path, fmt.Sprintf("yara scan timed out after %s", scanTimeout)); err != nil {
				return Outcome{Status: StatusFailed, Duration: time.Since(start), Err: err}
			}
		case r.Err != nil:
			env.logger().Warn("yara scan error", "step", step, "path", r.Path, "error", r.Err)
			if err := env.Capture.SkipWarn(r.Path, fmt.Sprintf("yara scan error: %v", r.Err)); err != nil {
				return Outcome{Status: StatusFailed, Duration: time.Since(start), Err: err}
			}
		case len(r.Matched) > 0 && storeOnMatch:
			outcome, err := env.Capture.Capture(r.Path)
			if err != nil {
				return Outcome{Status: StatusFailed, Duration: time.Since(start), Err: err}
			}
			if !outcome.Skipped {
				artifacts = append(artifacts, outcome.DestPath)
			}
		}
	}

	return Outcome{Status: StatusOK, Duration: time.Since(start), Artifacts: artifacts}
}
