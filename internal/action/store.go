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
	"fmt"
	"os"
	"time"

	"github.com/tombee/casefile/internal/humanize"
	"github.com/tombee/casefile/internal/pattern"
	"github.com/tombee/casefile/pkg/workflow"
)

// runStoreAction enumerates sa.Patterns and hands each matched regular
// file to the capture pipeline, enforcing a running total against
// sa.SizeLimit. Files that would breach the limit are recorded as a
// skipped metadata row rather than silently dropped.
func runStoreAction(step string, sa *workflow.StoreAction, env Env) Outcome {
	start := time.Now()

	var limit int64 = -1
	if sa.SizeLimit != "" {
		n, _, err := humanize.ParseSize(sa.SizeLimit)
		if err != nil {
			return Outcome{Status: StatusFailed, Duration: time.Since(start), Err: err}
		}
		limit = n
	}

	files, err := pattern.Match(sa.Patterns, sa.CaseInsensitive)
	if err != nil {
		return Outcome{Status: StatusFailed, Duration: time.Since(start), Err: err}
	}

	var artifacts []string
	var running int64
	for _, f := range files {
		info, statErr := os.Stat(f)
		if statErr != nil {
			// Let the capture pipeline's own open/stat attempt produce
			// the skipped metadata row with the authoritative error.
			if _, err := env.Capture.Capture(f); err != nil {
				return Outcome{Status: StatusFailed, Duration: time.Since(start), Err: err}
			}
			continue
		}

		if limit >= 0 && running+info.Size() > limit {
			reason := fmt.Sprintf("size_limit exceeded: file is %d bytes, action total would reach %d with a %d-byte limit", info.Size(), running+info.Size(), limit)
			env.logger().Warn("store action: file exceeds size_limit, skipping", "step", step, "path", f)
			if err := env.Capture.SkipWarn(f, reason); err != nil {
				return Outcome{Status: StatusFailed, Duration: time.Since(start), Err: err}
			}
			continue
		}

		outcome, err := env.Capture.Capture(f)
		if err != nil {
			return Outcome{Status: StatusFailed, Duration: time.Since(start), Err: err}
		}
		if !outcome.Skipped {
			running += info.Size()
			artifacts = append(artifacts, outcome.DestPath)
		}
	}

	return Outcome{Status: StatusOK, Duration: time.Since(start), Artifacts: artifacts}
}
