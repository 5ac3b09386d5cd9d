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
	"path/filepath"
	"time"

	"github.com/tombee/casefile/pkg/workflow"
)

// terminalRequest is the platform-neutral description of one terminal
// action invocation; each platform's openTerminal interprets it against
// its own native terminal launch mechanism.
type terminalRequest struct {
	SeparateWindow bool
	Wait           bool
	TranscriptPath string // empty when enable_transcript is false
}

// runTerminalAction opens an interactive session per the platform's
// openTerminal implementation. Load-time validation already rejected
// wait=true without separate_window and enable_transcript without
// wait, so req's combination is always one openTerminal can honor.
func runTerminalAction(ctx context.Context, step string, ta *workflow.TerminalAction, env Env) Outcome {
	start := time.Now()

	req := terminalRequest{SeparateWindow: ta.SeparateWindow, Wait: ta.Wait}
	if ta.EnableTranscript {
		req.TranscriptPath = filepath.Join(env.ActionOutputDir, step+".transcript")
	}

	if err := openTerminal(ctx, req); err != nil {
		return Outcome{Status: StatusFailed, Duration: time.Since(start), Err: err}
	}

	var artifacts []string
	if req.TranscriptPath != "" {
		artifacts = append(artifacts, req.TranscriptPath)
	}
	return Outcome{Status: StatusOK, Duration: time.Since(start), Artifacts: artifacts}
}
