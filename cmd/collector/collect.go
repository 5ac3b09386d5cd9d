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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tombee/casefile/internal/action"
	"github.com/tombee/casefile/internal/capture"
	"github.com/tombee/casefile/internal/cliux"
	"github.com/tombee/casefile/internal/config"
	"github.com/tombee/casefile/internal/launch"
	caselog "github.com/tombee/casefile/internal/log"
	"github.com/tombee/casefile/internal/ntp"
	"github.com/tombee/casefile/internal/report"
	"github.com/tombee/casefile/internal/runner"
	"github.com/tombee/casefile/internal/tracing"
	"github.com/tombee/casefile/internal/variables"
	"github.com/tombee/casefile/pkg/platform"
	"github.com/tombee/casefile/pkg/workflow"
)

const workflowGlob = "workflows/**/*.yaml"

func runCollect(ctx context.Context) error {
	probe := platform.RealProbe{}

	cfg, err := config.Load("config.yaml")
	if err != nil {
		return &exitError{Code: 2, Message: err.Error()}
	}

	if err := config.EnsureElevated(cfg, probe); err != nil {
		return &exitError{Code: 2, Message: fmt.Sprintf("elevation required: %v", err)}
	}

	logger, logFile, err := newRunLogger()
	if err != nil {
		return &exitError{Code: 4, Message: err.Error()}
	}
	if logFile != nil {
		defer logFile.Close()
	}

	if cfg.Time.NTPEnabled && cfg.Time.NTPTimeout > 0 {
		result := ntp.Check(ctx, cfg.Time.NTPServers, time.Duration(cfg.Time.NTPTimeout)*time.Second)
		if result.Err != nil {
			logger.Warn("NTP clock check failed", "error", result.Err)
		} else {
			logger.Info("NTP clock check", "server", result.Server, "offset", result.Offset.String())
		}
	}

	paths, err := discoverWorkflows(".")
	if err != nil {
		return &exitError{Code: 2, Message: err.Error()}
	}

	var results []cliux.WorkflowResult
	var reportFatal int
	for _, path := range paths {
		res := runOneWorkflow(ctx, path, cfg, probe, logger)
		results = append(results, res)
		if res.Eligible && res.Err != nil {
			reportFatal++
		}
	}

	cliux.PrintSummary(os.Stdout, results)

	eligibleCount := 0
	for _, r := range results {
		if r.Eligible {
			eligibleCount++
		}
	}
	if eligibleCount == 0 {
		return &exitError{Code: 3, Message: "no workflow was eligible to run"}
	}
	if reportFatal == eligibleCount {
		return &exitError{Code: 4, Message: "every eligible workflow failed during reporting"}
	}
	return nil
}

func newRunLogger() (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll("reports", 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating reports directory: %w", err)
	}
	logPath := filepath.Join("reports", "collector.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	cfg := caselog.DefaultConfig()
	cfg.Output = f
	return caselog.New(cfg), f, nil
}

func discoverWorkflows(root string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(root), workflowGlob)
	if err != nil {
		return nil, fmt.Errorf("discovering workflows: %w", err)
	}
	for i, m := range matches {
		matches[i] = filepath.Join(root, filepath.FromSlash(m))
	}
	return matches, nil
}

func runOneWorkflow(ctx context.Context, path string, cfg *config.Config, probe platform.Probe, logger *slog.Logger) cliux.WorkflowResult {
	def, err := workflow.Load(path)
	if err != nil {
		return cliux.WorkflowResult{Path: path, Err: &exitError{Code: 2, Message: err.Error()}}
	}

	evalResult := launch.Evaluate(ctx, def.LaunchConditions, probe)
	if !evalResult.Eligible {
		logger.Info("workflow skipped", "path", path, "reason", evalResult.Reason)
		return cliux.WorkflowResult{Path: path, Title: def.Properties.Title, Eligible: false, SkipReason: evalResult.Reason}
	}

	deviceName := probe.DeviceName()
	timestamp := time.Now().In(cfg.Location()).Format("20060102T150405")
	reportPath := filepath.Join("reports", fmt.Sprintf("%s_%s_%s", deviceName, sanitize(def.Properties.Title), timestamp))

	root, err := report.Prepare(reportPath)
	if err != nil {
		return cliux.WorkflowResult{Path: path, Title: def.Properties.Title, Eligible: true, Err: err}
	}

	userHome, _ := probe.UserHome()
	bindings := variables.NewBindings(reportPath, deviceName, userHome, probe.UserName(), root.LootDir(), "custom_files", probe.OS(), probe.Arch())

	pipeline, err := capture.New(capture.Config{
		StoreDir:     root.StoreFilesDir(),
		MetadataPath: root.MetadataPath(),
		DedupDBPath:  root.DedupDBPath(),
		Flags:        def.Reporting.Metadata,
		Location:     cfg.Location(),
	})
	if err != nil {
		return cliux.WorkflowResult{Path: path, Title: def.Properties.Title, Eligible: true, Err: err}
	}

	env := action.Env{
		ActionOutputDir: root.ActionOutputDir(),
		CustomFilesDir:  "custom_files",
		Capture:         pipeline,
		Logger:          logger,
	}

	tracer, _ := tracing.NewProvider(tracing.DefaultConfig())
	run := runner.New(def, env, bindings, logger, tracer)
	result := run.Run(ctx)

	if err := pipeline.Close(); err != nil {
		return cliux.WorkflowResult{Path: path, Title: def.Properties.Title, Eligible: true, Err: err}
	}
	os.Remove(root.DedupDBPath())

	if err := report.Archive(root, def.Reporting); err != nil {
		return cliux.WorkflowResult{Path: path, Title: def.Properties.Title, Eligible: true, Err: err}
	}
	if err := report.Seal(root, def.Reporting.Encryption); err != nil {
		return cliux.WorkflowResult{Path: path, Title: def.Properties.Title, Eligible: true, Err: err}
	}

	failed := 0
	for _, ev := range result.Trace {
		if ev.Status != action.StatusOK {
			failed++
		}
	}

	return cliux.WorkflowResult{
		Path:       path,
		Title:      def.Properties.Title,
		Eligible:   true,
		Failed:     failed,
		Total:      len(result.Trace),
		ReportPath: reportPath,
	}
}

func sanitize(title string) string {
	if title == "" {
		return "workflow"
	}
	out := make([]rune, 0, len(title))
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		case r == ' ':
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "workflow"
	}
	return string(out)
}
