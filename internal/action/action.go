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

// Package action implements the uniform action kernel: every action
// kind (command, binary, store, yara, terminal) reduces to one
// (Action, Env) -> Outcome call, so the workflow runner never needs
// kind-specific branching of its own.
package action

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tombee/casefile/internal/capture"
	"github.com/tombee/casefile/pkg/workflow"
)

// Status is an action's terminal outcome classification.
type Status string

const (
	StatusOK        Status = "ok"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
	StatusCancelled Status = "cancelled"
)

// Outcome is the uniform result of running one action to completion.
type Outcome struct {
	Status    Status
	ExitCode  *int // only set for command/binary
	Duration  time.Duration
	Artifacts []string // paths produced by this action (store_files entries, transcripts, ...)
	Err       error
}

// Env is the shared, read-only context every action executes against.
type Env struct {
	ActionOutputDir string // <REPORT_ROOT>/action_output
	CustomFilesDir  string
	Capture         *capture.Pipeline
	Logger          *slog.Logger
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Execute dispatches def to its kind-specific runner. timeout is the
// resolved step timeout (zero means no timeout); it overrides any
// action-kind default (yara's scan_timeout is a separate, per-file
// concern and is unaffected by this value).
func Execute(ctx context.Context, step string, def workflow.ActionDefinition, timeout time.Duration, env Env) Outcome {
	switch def.Kind {
	case workflow.ActionCommand:
		return runCommandAction(ctx, step, def.Command, timeout, env)
	case workflow.ActionBinary:
		return runBinaryAction(ctx, step, def.Binary, timeout, env)
	case workflow.ActionStore:
		return runStoreAction(step, def.Store, env)
	case workflow.ActionYara:
		return runYaraAction(ctx, step, def.Yara, env)
	case workflow.ActionTerminal:
		return runTerminalAction(ctx, step, def.Terminal, env)
	default:
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("unrecognized action kind %q", def.Kind)}
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
