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

// Package runner executes a validated workflow document: a cursor over
// its ordered step list, advancing sequentially, branching on_error, and
// spawning parallel-eligible steps as background tasks joined at the end
// of the run.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tombee/casefile/internal/action"
	caselog "github.com/tombee/casefile/internal/log"
	"github.com/tombee/casefile/internal/tracing"
	"github.com/tombee/casefile/internal/variables"
	"github.com/tombee/casefile/pkg/workflow"
)

// defaultJoinTimeout is how long Run waits for background (parallel)
// tasks after the cursor exhausts the step list or abort is set.
const defaultJoinTimeout = 10 * time.Minute

// abandonedJoinGrace is how much longer Run waits for background tasks
// to exit after requesting cancellation once the join timeout itself
// has already elapsed.
const abandonedJoinGrace = 10 * time.Second

// TraceEvent is one record in the run's totally ordered execution trace,
// independent of the log stream: callers (the reporter, tests) can
// assert ordering and outcomes directly instead of parsing logs.
type TraceEvent struct {
	StepIndex int
	Action    string
	Status    action.Status
	StartedAt time.Time
	Duration  time.Duration
	ExitCode  *int
	Err       error
	Parallel  bool
}

// Result is the runner's terminal state after a run completes.
type Result struct {
	RunID   string
	Trace   []TraceEvent
	Aborted bool
}

// Runner executes one validated workflow.Definition to completion. A
// Runner is single-use: construct a new one per run.
type Runner struct {
	def      *workflow.Definition
	env      action.Env
	bindings variables.Bindings
	logger   *slog.Logger
	tracer   *tracing.Provider

	joinTimeout time.Duration
}

// New builds a Runner for def. def must already be validated — the
// runner assumes every step's action reference resolves and every goto
// target exists and is forward-only. A nil tracer runs with tracing
// disabled rather than panicking.
func New(def *workflow.Definition, env action.Env, bindings variables.Bindings, logger *slog.Logger, tracer *tracing.Provider) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer, _ = tracing.NewProvider(tracing.DefaultConfig())
	}
	return &Runner{
		def:         def,
		env:         env,
		bindings:    bindings,
		logger:      logger,
		tracer:      tracer,
		joinTimeout: defaultJoinTimeout,
	}
}

// Run executes the workflow from its first step. Sequential steps run to
// completion (or their own timeout) before the cursor advances; steps
// with parallel=true are spawned as background tasks and the cursor
// advances immediately with an implicit ok. The cursor stops when it
// exhausts the step list or on_error=abort is triggered; either way, Run
// then awaits every in-flight background task before returning.
func (r *Runner) Run(ctx context.Context) Result {
	runID := uuid.NewString()
	logger := caselog.WithRunContext(r.logger, runID, r.def.Properties.Title)

	runCtx, rootSpan := r.tracer.StartRun(ctx, runID, r.def.Properties.Title)
	defer rootSpan.End()

	nameToIndex := make(map[string]int, len(r.def.Workflow))
	for i, step := range r.def.Workflow {
		nameToIndex[step.Action] = i
	}

	bgCtx, cancelBG := context.WithCancel(runCtx)
	defer cancelBG()
	g, gctx := errgroup.WithContext(bgCtx)

	var mu sync.Mutex
	var trace []TraceEvent
	record := func(ev TraceEvent) {
		mu.Lock()
		trace = append(trace, ev)
		mu.Unlock()
	}

	aborted := false
	cursor := 0
	for cursor < len(r.def.Workflow) {
		step := r.def.Workflow[cursor]
		actionDef, ok := r.def.Actions[step.Action]
		if !ok {
			// Unreachable for a validated document; treat defensively as
			// an abort rather than panicking mid-run.
			logger.Error("step references an undefined action, aborting run", "action", step.Action)
			aborted = true
			break
		}
		expanded := r.expand(actionDef)

		if step.Parallel {
			idx := cursor
			name := step.Action
			timeout := step.ResolvedTimeout
			g.Go(func() error {
				stepCtx, stepSpan := r.tracer.StartStep(gctx, fmt.Sprintf("%s#%d", name, idx), name, true)
				start := time.Now()
				outcome := action.Execute(stepCtx, name, expanded, timeout, r.env)
				tracing.EndStep(stepSpan, string(outcome.Status), exitCodeOrDefault(outcome.ExitCode), outcome.Err)
				record(TraceEvent{
					StepIndex: idx,
					Action:    name,
					Status:    outcome.Status,
					StartedAt: start,
					Duration:  outcome.Duration,
					ExitCode:  outcome.ExitCode,
					Err:       outcome.Err,
					Parallel:  true,
				})
				// Background task outcomes are recorded but never
				// re-trigger on_error.
				return nil
			})
			cursor++
			continue
		}

		stepCtx, stepSpan := r.tracer.StartStep(runCtx, fmt.Sprintf("%s#%d", step.Action, cursor), step.Action, false)
		start := time.Now()
		outcome := action.Execute(stepCtx, step.Action, expanded, step.ResolvedTimeout, r.env)
		tracing.EndStep(stepSpan, string(outcome.Status), exitCodeOrDefault(outcome.ExitCode), outcome.Err)
		record(TraceEvent{
			StepIndex: cursor,
			Action:    step.Action,
			Status:    outcome.Status,
			StartedAt: start,
			Duration:  outcome.Duration,
			ExitCode:  outcome.ExitCode,
			Err:       outcome.Err,
		})

		if outcome.Status == action.StatusOK {
			cursor++
			continue
		}

		switch step.OnError.Policy {
		case workflow.OnErrorAbort:
			logger.Warn("step failed, aborting run", "action", step.Action, "status", outcome.Status)
			aborted = true
		case workflow.OnErrorGoto:
			logger.Warn("step failed, jumping to on_error target", "action", step.Action, "status", outcome.Status, "target", step.OnError.Target)
			cursor = nameToIndex[step.OnError.Target]
			continue
		default: // OnErrorContinue, or unset (defaults to continue)
			logger.Warn("step failed, continuing to next step", "action", step.Action, "status", outcome.Status)
			cursor++
		}
		if aborted {
			break
		}
	}

	r.awaitBackground(g, cancelBG, logger)

	return Result{RunID: runID, Trace: trace, Aborted: aborted}
}

// awaitBackground waits for every background task spawned during Run,
// bounded by joinTimeout. If that bound elapses it requests cooperative
// cancellation (each process/terminal background action observes ctx
// and tears itself down through its own graceful-terminate path) and
// gives the group one more short grace period before giving up and
// returning regardless — a hung background task cannot block the report
// from being written.
func (r *Runner) awaitBackground(g *errgroup.Group, cancel context.CancelFunc, logger *slog.Logger) {
	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(r.joinTimeout):
	}

	logger.Warn("background tasks exceeded join timeout, requesting cancellation", "join_timeout", r.joinTimeout)
	cancel()

	select {
	case <-done:
	case <-time.After(abandonedJoinGrace):
		logger.Error("background tasks did not exit after cancellation; abandoning join")
	}
}

// expand returns a copy of ad with every ${NAME} token in its string
// fields substituted per r.bindings. ad itself (and the *Action value it
// points at) is never mutated, since the same ActionDefinition may be
// referenced by more than one step.
func (r *Runner) expand(ad workflow.ActionDefinition) workflow.ActionDefinition {
	switch ad.Kind {
	case workflow.ActionCommand:
		c := *ad.Command
		c.Cmd = variables.Expand(r.logger, c.Cmd, r.bindings)
		c.Args = variables.ExpandAll(r.logger, c.Args, r.bindings)
		c.Cwd = variables.Expand(r.logger, c.Cwd, r.bindings)
		ad.Command = &c
	case workflow.ActionBinary:
		b := *ad.Binary
		b.Path = variables.Expand(r.logger, b.Path, r.bindings)
		b.Args = variables.ExpandAll(r.logger, b.Args, r.bindings)
		b.Cwd = variables.Expand(r.logger, b.Cwd, r.bindings)
		ad.Binary = &b
	case workflow.ActionStore:
		s := *ad.Store
		s.Patterns = variables.ExpandAll(r.logger, s.Patterns, r.bindings)
		ad.Store = &s
	case workflow.ActionYara:
		y := *ad.Yara
		y.RulesPaths = variables.ExpandAll(r.logger, y.RulesPaths, r.bindings)
		y.FilesToScan = variables.ExpandAll(r.logger, y.FilesToScan, r.bindings)
		ad.Yara = &y
	case workflow.ActionTerminal:
		// No string fields reference bindings.
	}
	return ad
}

func exitCodeOrDefault(code *int) int {
	if code == nil {
		return -1
	}
	return *code
}
