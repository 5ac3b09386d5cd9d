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

//go:build windows

package action

import (
	"context"
	"fmt"
	"os/exec"
)

// openTerminal hosts a fresh cmd.exe inside conhost. Transcripts are
// captured through PowerShell's Start-Transcript/Stop-Transcript rather
// than the POSIX script(1) wrapping used on Linux and macOS.
func openTerminal(ctx context.Context, req terminalRequest) error {
	var args []string
	if req.TranscriptPath != "" {
		psCmd := fmt.Sprintf("Start-Transcript -Path %q; cmd.exe; Stop-Transcript", req.TranscriptPath)
		args = []string{"conhost.exe", "powershell.exe", "-NoLogo", "-Command", psCmd}
	} else {
		args = []string{"conhost.exe", "cmd.exe"}
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if req.Wait {
		return cmd.Run()
	}
	return cmd.Start()
}
