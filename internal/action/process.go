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
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	caseerrors "github.com/tombee/casefile/pkg/errors"
	"github.com/tombee/casefile/pkg/workflow"
)

const terminationGrace = 2 * time.Second

func runCommandAction(ctx context.Context, step string, ca *workflow.CommandAction, timeout time.Duration, env Env) Outcome {
	stdout, stderr, closeSinks, err := openOutputSinks(env.ActionOutputDir, step, boolOr(ca.LogToFile, true))
	if err != nil {
		return Outcome{Status: StatusFailed, Err: err}
	}
	defer closeSinks()

	return runProcess(ctx, ca.Cmd, ca.Args, ca.Cwd, timeout, stdout, stderr)
}

func runBinaryAction(ctx context.Context, step string, ba *workflow.BinaryAction, timeout time.Duration, env Env) Outcome {
	path := ba.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(env.CustomFilesDir, path)
	}

	stdout, stderr, closeSinks, err := openOutputSinks(env.ActionOutputDir, step, boolOr(ba.LogToFile, true))
	if err != nil {
		return Outcome{Status: StatusFailed, Err: err}
	}
	defer closeSinks()

	return runProcess(ctx, path, ba.Args, ba.Cwd, timeout, stdout, stderr)
}

// openOutputSinks opens action_output/<step>.stdout and .stderr when
// logToFile is set, or returns io.Discard writers otherwise.
func openOutputSinks(dir, step string, logToFile bool) (stdout, stderr io.Writer, closeFn func(), err error) {
	if !logToFile {
		return io.Discard, io.Discard, func() {}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, nil, caseerrors.Wrapf(err, "creating action output directory %s", dir)
	}

	outFile, err := os.Create(filepath.Join(dir, step+".stdout"))
	if err != nil {
		return nil, nil, nil, caseerrors.Wrapf(err, "creating stdout sink for step %s", step)
	}
	errFile, err := os.Create(filepath.Join(dir, step+".stderr"))
	if err != nil {
		outFile.Close()
		return nil, nil, nil, caseerrors.Wrapf(err, "creating stderr sink for step %s", step)
	}

	return outFile, errFile, func() {
		outFile.Close()
		errFile.Close()
	}, nil
}

// runProcess spawns name+args with the environment inherited, capturing
// exit status. On timeout or parent cancellation it sends a graceful
// termination signal, waits terminationGrace for the process to exit,
// then force-kills it.
func runProcess(ctx context.Context, name string, args []string, cwd string, timeout time.Duration, stdout, stderr io.Writer) Outcome {
	start := time.Now()

	cmd := exec.Command(name, args...)
	cmd.Dir = cwd
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return Outcome{Status: StatusFailed, Duration: time.Since(start), Err: caseerrors.Wrapf(err, "starting %s", name)}
	}

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case err := <-waitDone:
		return outcomeFromWait(err, time.Since(start))
	case <-timeoutCh:
		terminateGracefully(cmd, waitDone)
		return Outcome{Status: StatusTimedOut, Duration: time.Since(start)}
	case <-ctx.Done():
		terminateGracefully(cmd, waitDone)
		return Outcome{Status: StatusCancelled, Duration: time.Since(start)}
	}
}

// terminateGracefully sends the platform's graceful-termination signal,
// then waits terminationGrace for the process to exit on its own before
// force-killing it. waitDone is drained exactly once regardless of
// which branch fires.
func terminateGracefully(cmd *exec.Cmd, waitDone <-chan error) {
	if cmd.Process == nil {
		return
	}
	sendGracefulSignal(cmd.Process)

	select {
	case <-waitDone:
	case <-time.After(terminationGrace):
		cmd.Process.Kill()
		<-waitDone
	}
}

func outcomeFromWait(waitErr error, duration time.Duration) Outcome {
	if waitErr == nil {
		zero := 0
		return Outcome{Status: StatusOK, ExitCode: &zero, Duration: duration}
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		code := exitErr.ExitCode()
		return Outcome{Status: StatusFailed, ExitCode: &code, Duration: duration, Err: waitErr}
	}
	return Outcome{Status: StatusFailed, Duration: duration, Err: waitErr}
}
