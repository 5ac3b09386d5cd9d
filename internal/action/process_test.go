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
	"bytes"
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunProcess_SuccessCapturesStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	var stdout, stderr bytes.Buffer
	outcome := runProcess(context.Background(), "/bin/sh", []string{"-c", "echo hello"}, "", 0, &stdout, &stderr)

	require.Equal(t, StatusOK, outcome.Status)
	require.NotNil(t, outcome.ExitCode)
	require.Equal(t, 0, *outcome.ExitCode)
	require.Equal(t, "hello\n", stdout.String())
}

func TestRunProcess_NonZeroExitIsFailed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	var stdout, stderr bytes.Buffer
	outcome := runProcess(context.Background(), "/bin/sh", []string{"-c", "exit 3"}, "", 0, &stdout, &stderr)

	require.Equal(t, StatusFailed, outcome.Status)
	require.NotNil(t, outcome.ExitCode)
	require.Equal(t, 3, *outcome.ExitCode)
}

func TestRunProcess_TimeoutTerminatesAndReportsTimedOut(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	var stdout, stderr bytes.Buffer
	start := time.Now()
	outcome := runProcess(context.Background(), "/bin/sh", []string{"-c", "trap 'exit 0' TERM; sleep 30"}, "", 200*time.Millisecond, &stdout, &stderr)

	require.Equal(t, StatusTimedOut, outcome.Status)
	require.Less(t, time.Since(start), terminationGrace+5*time.Second)
}

func TestRunProcess_ContextCancellationReportsCancelled(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	var stdout, stderr bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	outcome := runProcess(ctx, "/bin/sh", []string{"-c", "sleep 30"}, "", 0, &stdout, &stderr)

	require.Equal(t, StatusCancelled, outcome.Status)
}

func TestRunProcess_StartFailureIsFailed(t *testing.T) {
	var stdout, stderr bytes.Buffer
	outcome := runProcess(context.Background(), "/no/such/binary-casefile-test", nil, "", 0, &stdout, &stderr)

	require.Equal(t, StatusFailed, outcome.Status)
	require.Error(t, outcome.Err)
}
