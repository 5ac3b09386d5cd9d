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

package config

import (
	"os"
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	caseerrors "github.com/tombee/casefile/pkg/errors"
)

// relaunchElevated re-launches the current binary with the "runas" verb,
// which triggers the UAC consent prompt, then exits this (unprivileged)
// process. The elevated child runs independently rather than being
// waited on — Windows does not let a non-elevated parent inherit a
// meaningful exit code from a UAC-elevated child started this way.
func relaunchElevated() error {
	exe, err := os.Executable()
	if err != nil {
		return &caseerrors.ConfigError{Key: "elevate", Reason: "resolving own executable path", Cause: err}
	}

	verb, _ := syscall.UTF16PtrFromString("runas")
	file, _ := syscall.UTF16PtrFromString(exe)
	args, _ := syscall.UTF16PtrFromString(strings.Join(os.Args[1:], " "))
	cwd, _ := syscall.UTF16PtrFromString("")

	shell32 := windows.NewLazySystemDLL("shell32.dll")
	shellExecute := shell32.NewProc("ShellExecuteW")

	const swNormal = 1
	ret, _, _ := shellExecute.Call(
		0,
		uintptr(unsafe.Pointer(verb)),
		uintptr(unsafe.Pointer(file)),
		uintptr(unsafe.Pointer(args)),
		uintptr(unsafe.Pointer(cwd)),
		swNormal,
	)
	// ShellExecute returns a value > 32 on success.
	if ret <= 32 {
		return &caseerrors.ConfigError{Key: "elevate", Reason: "UAC elevation was denied or failed"}
	}
	os.Exit(0)
	return nil
}
