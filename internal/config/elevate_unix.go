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

//go:build !windows

package config

import (
	"fmt"
	"os"
	"os/exec"

	caseerrors "github.com/tombee/casefile/pkg/errors"
)

// relaunchElevated re-execs the current binary under "sudo -n" (never
// prompting interactively — a collector has no terminal to prompt on in
// most field deployments) and exits with the child's status. -n causes
// sudo to fail immediately rather than hang if a password would be
// required; that refusal is a non-zero sudo exit and, like any other
// non-zero exit, becomes this process's exit status. Only a failure to
// run sudo at all is returned as an error.
func relaunchElevated() error {
	exe, err := os.Executable()
	if err != nil {
		return &caseerrors.ConfigError{Key: "elevate", Reason: "resolving own executable path", Cause: err}
	}

	args := append([]string{"-n", exe}, os.Args[1:]...)
	cmd := exec.Command("sudo", args...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		return &caseerrors.ConfigError{Key: "elevate", Reason: "sudo -n denied or unavailable", Cause: err}
	}
	os.Exit(0)
	return fmt.Errorf("unreachable")
}
