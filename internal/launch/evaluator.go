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

// Package launch implements the per-workflow eligibility check: whether
// a workflow document should run at all on the current target, evaluated
// before the variable resolver or the runner ever see it.
package launch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"time"

	"github.com/tombee/casefile/internal/util"
	"github.com/tombee/casefile/pkg/platform"
	"github.com/tombee/casefile/pkg/workflow"
)

// probeCommandTimeout is the fixed hard cap on launch_conditions.custom_command,
// independent of any step timeout — the document has not been validated
// for step timeouts yet at the point eligibility is decided.
const probeCommandTimeout = 30 * time.Second

// Result is the outcome of evaluating one workflow's launch conditions.
type Result struct {
	Eligible bool
	Reason   string // populated when Eligible is false
}

func ineligible(reason string) Result { return Result{Eligible: false, Reason: reason} }

// Evaluate runs every launch condition in order, short-circuiting on the
// first failing one.
func Evaluate(ctx context.Context, lc workflow.LaunchConditions, probe platform.Probe) Result {
	if !lc.LaunchEnabled() {
		return ineligible("enabled=false")
	}

	if len(lc.OS) > 0 && !util.Contains(lc.OS, probe.OS()) {
		return ineligible(fmt.Sprintf("current OS %q not in %v", probe.OS(), lc.OS))
	}

	if len(lc.Arch) > 0 && !util.Contains(lc.Arch, probe.Arch()) {
		return ineligible(fmt.Sprintf("current arch %q not in %v", probe.Arch(), lc.Arch))
	}

	if lc.IsElevated && !probe.IsElevated() {
		return ineligible("workflow requires an elevated process")
	}

	if lc.CustomCommand != nil {
		ok, reason, err := evaluateCustomCommand(ctx, lc.CustomCommand)
		if err != nil {
			return ineligible(fmt.Sprintf("custom_command probe failed: %v", err))
		}
		if !ok {
			return ineligible(reason)
		}
	}

	return Result{Eligible: true}
}

func evaluateCustomCommand(ctx context.Context, cc *workflow.CustomCommandCondition) (ok bool, reason string, err error) {
	probeCtx, cancel := context.WithTimeout(ctx, probeCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, cc.Command, cc.Args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	// The predicate is defined purely over captured stdout (§4.2 step 5);
	// a non-zero exit is common for forensic one-liners and is not itself
	// a reason to mark the workflow ineligible. Only a failure to spawn
	// or run the probe at all (including the timeout firing) is an error.
	if runErr := cmd.Run(); runErr != nil {
		if probeCtx.Err() != nil {
			return false, "", fmt.Errorf("running probe command: %w", probeCtx.Err())
		}
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return false, "", fmt.Errorf("running probe command: %w", runErr)
		}
	}
	output := out.String()

	if len(cc.ContainsAny) > 0 {
		matched := false
		for _, s := range cc.ContainsAny {
			if bytes.Contains(out.Bytes(), []byte(s)) {
				matched = true
				break
			}
		}
		if !matched {
			return false, fmt.Sprintf("probe output matched none of contains_any %v", cc.ContainsAny), nil
		}
	}

	if len(cc.ContainsAll) > 0 {
		for _, s := range cc.ContainsAll {
			if !bytes.Contains(out.Bytes(), []byte(s)) {
				return false, fmt.Sprintf("probe output missing required contains_all entry %q", s), nil
			}
		}
	}

	if cc.ContainsRegex != "" {
		re, reErr := regexp.Compile(cc.ContainsRegex)
		if reErr != nil {
			return false, "", fmt.Errorf("compiling contains_regex: %w", reErr)
		}
		if !re.MatchString(output) {
			return false, fmt.Sprintf("probe output did not match contains_regex %q", cc.ContainsRegex), nil
		}
	}

	return true, "", nil
}
