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

//go:build linux

package action

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/term"
)

// knownLinuxTerminals is checked in order; the first one found on PATH
// is used to host a separate-window session.
var knownLinuxTerminals = []string{"gnome-terminal", "konsole", "xfce4-terminal", "xterm"}

func openTerminal(ctx context.Context, req terminalRequest) error {
	if req.SeparateWindow {
		for _, name := range knownLinuxTerminals {
			path, err := exec.LookPath(name)
			if err != nil {
				continue
			}
			return spawnSeparateWindow(ctx, path, req)
		}
		// No known terminal emulator found: fall back to an in-process
		// interactive shell, ignoring separate_window, per spec.
	}
	return runInProcessShell(ctx, req)
}

func spawnSeparateWindow(ctx context.Context, termPath string, req terminalRequest) error {
	shell := shellCommand(req)
	cmd := exec.CommandContext(ctx, termPath, "-e", shell)
	if req.Wait {
		return cmd.Run()
	}
	return cmd.Start()
}

func runInProcessShell(ctx context.Context, req terminalRequest) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("no known terminal emulator is installed and stdin is not an interactive terminal: cannot open a terminal session")
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", shellCommand(req))
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if req.Wait {
		return cmd.Run()
	}
	return cmd.Start()
}

func shellCommand(req terminalRequest) string {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	if req.TranscriptPath == "" {
		return shell
	}
	return fmt.Sprintf("script -q -c %q %q", shell, req.TranscriptPath)
}
