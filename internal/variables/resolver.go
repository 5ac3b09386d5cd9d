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

// Package variables implements the workflow document's ${NAME} token
// substitution. The runner applies it to a copy of each action's path,
// command, argument, working-directory and pattern strings as the step
// runs, so action execution only ever observes fully bound strings.
// launch_conditions.custom_command is not expanded.
package variables

import (
	"log/slog"
	"regexp"
)

// Recognized binding names. A workflow document may only reference these;
// anything else expands to the empty string with a logged warning.
const (
	BasePath       = "BASE_PATH"
	DeviceName     = "DEVICE_NAME"
	UserHome       = "USER_HOME"
	UserName       = "USER_NAME"
	LootDir        = "LOOT_DIR"
	CustomFilesDir = "CUSTOM_FILES_DIR"
	OS             = "OS"
	Arch           = "ARCH"
)

var tokenPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_]+)\}`)

// Bindings holds the values substituted for each recognized name.
type Bindings map[string]string

// NewBindings constructs the standard binding set for one workflow run.
func NewBindings(basePath, deviceName, userHome, userName, lootDir, customFilesDir, os, arch string) Bindings {
	return Bindings{
		BasePath:       basePath,
		DeviceName:     deviceName,
		UserHome:       userHome,
		UserName:       userName,
		LootDir:        lootDir,
		CustomFilesDir: customFilesDir,
		OS:             os,
		Arch:           arch,
	}
}

// Expand replaces every ${NAME} token in s with its bound value. Unknown
// names are replaced with the empty string and logged as a non-fatal
// warning; no action ever fails because of an unresolved token.
func Expand(logger *slog.Logger, s string, bindings Bindings) string {
	return tokenPattern.ReplaceAllStringFunc(s, func(token string) string {
		name := tokenPattern.FindStringSubmatch(token)[1]
		val, ok := bindings[name]
		if !ok {
			if logger != nil {
				logger.Warn("unknown variable reference", "name", name)
			}
			return ""
		}
		return val
	})
}

// ExpandAll expands every string in a slice in place order, returning a new
// slice (the input is never mutated).
func ExpandAll(logger *slog.Logger, ss []string, bindings Bindings) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = Expand(logger, s, bindings)
	}
	return out
}
