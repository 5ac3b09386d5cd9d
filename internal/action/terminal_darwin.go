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

//go:build darwin

package action

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// openTerminal always uses Terminal.app via osascript; macOS has no
// "no known terminal" fallback path since Terminal.app ships with the OS.
func openTerminal(ctx context.Context, req terminalRequest) error {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	script := shell
	if req.TranscriptPath != "" {
		script = fmt.Sprintf("script -q %q %s; exit", req.TranscriptPath, shell)
	}

	osascript := fmt.Sprintf(`tell application "Terminal" to do script %q`, script)
	cmd := exec.CommandContext(ctx, "osascript", "-e", osascript)
	if req.Wait {
		return cmd.Run()
	}
	return cmd.Start()
}
