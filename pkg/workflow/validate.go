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

package workflow

import (
	"fmt"

	"github.com/tombee/casefile/internal/humanize"
	caseerrors "github.com/tombee/casefile/pkg/errors"
)

var validOS = map[string]bool{"windows": true, "linux": true, "macos": true}
var validArch = map[string]bool{"x86": true, "x86_64": true, "aarch64": true, "arm": true}

// Validate checks every load-time invariant named in the document schema
// and resolves derived fields (step timeouts) for the runner. A non-nil
// error is always a *caseerrors.ValidationError.
func (d *Definition) Validate() error {
	if d.Properties.Title == "" {
		return fieldErr("properties.title", "title is required")
	}
	if d.Properties.Version == "" {
		return fieldErr("properties.version", "version is required")
	}

	if err := d.validateLaunchConditions(); err != nil {
		return err
	}
	if err := d.validateActions(); err != nil {
		return err
	}
	if err := d.validateSteps(); err != nil {
		return err
	}
	if err := d.validateReporting(); err != nil {
		return err
	}
	return nil
}

func (d *Definition) validateLaunchConditions() error {
	for _, os := range d.LaunchConditions.OS {
		if !validOS[os] {
			return fieldErr("launch_conditions.os", fmt.Sprintf("unrecognized OS %q: must be one of windows, linux, macos", os))
		}
	}
	for _, arch := range d.LaunchConditions.Arch {
		if !validArch[arch] {
			return fieldErr("launch_conditions.arch", fmt.Sprintf("unrecognized arch %q: must be one of x86, x86_64, aarch64, arm", arch))
		}
	}

	cc := d.LaunchConditions.CustomCommand
	if cc == nil {
		return nil
	}
	if cc.Command == "" {
		return fieldErr("launch_conditions.custom_command.command", "command is required when custom_command is present")
	}
	if len(cc.ContainsAny) == 0 && len(cc.ContainsAll) == 0 && cc.ContainsRegex == "" {
		return fieldErr("launch_conditions.custom_command", "at least one of contains_any, contains_all, or contains_regex must be specified")
	}

	// The "terminal cannot appear in launch_conditions.custom_command"
	// invariant is satisfied structurally: CustomCommandCondition has no
	// field through which an action (of any kind, including terminal)
	// could be referenced — the probe command is always a standalone
	// executable path, never an action name. Nothing further to check
	// here; see DESIGN.md for this decision.

	return nil
}

func (d *Definition) validateActions() error {
	for name, action := range d.Actions {
		if name == "" {
			return fieldErr("actions", "action name must not be empty")
		}
		if err := action.validate(name); err != nil {
			return err
		}
	}
	return nil
}

func (a ActionDefinition) validate(name string) error {
	switch a.Kind {
	case ActionCommand:
		if a.Command == nil || a.Command.Cmd == "" {
			return fieldErr(fmt.Sprintf("actions.%s.cmd", name), "cmd is required for a command action")
		}
	case ActionBinary:
		if a.Binary == nil || a.Binary.Path == "" {
			return fieldErr(fmt.Sprintf("actions.%s.path", name), "path is required for a binary action")
		}
	case ActionStore:
		if a.Store == nil || len(a.Store.Patterns) == 0 {
			return fieldErr(fmt.Sprintf("actions.%s.patterns", name), "at least one pattern is required for a store action")
		}
		if a.Store.SizeLimit != "" {
			if _, _, err := humanize.ParseSize(a.Store.SizeLimit); err != nil {
				return fieldErr(fmt.Sprintf("actions.%s.size_limit", name), err.Error())
			}
		}
	case ActionYara:
		if a.Yara == nil || len(a.Yara.RulesPaths) == 0 {
			return fieldErr(fmt.Sprintf("actions.%s.rules_paths", name), "at least one rules path is required for a yara action")
		}
		if len(a.Yara.FilesToScan) == 0 {
			return fieldErr(fmt.Sprintf("actions.%s.files_to_scan", name), "at least one file pattern is required for a yara action")
		}
		if a.Yara.ScanTimeout != "" {
			if _, err := humanize.ParseDuration(a.Yara.ScanTimeout); err != nil {
				return fieldErr(fmt.Sprintf("actions.%s.scan_timeout", name), err.Error())
			}
		}
	case ActionTerminal:
		t := a.Terminal
		if t == nil {
			return fieldErr(fmt.Sprintf("actions.%s", name), "terminal action missing its attribute block")
		}
		if t.Wait && !t.SeparateWindow {
			return fieldErr(fmt.Sprintf("actions.%s", name), "wait=true requires separate_window=true")
		}
		if !t.Wait && t.EnableTranscript {
			return fieldErr(fmt.Sprintf("actions.%s", name), "wait=false requires enable_transcript=false")
		}
	default:
		return fieldErr(fmt.Sprintf("actions.%s.type", name), fmt.Sprintf("unrecognized action kind %q", a.Kind))
	}
	return nil
}

func (d *Definition) validateSteps() error {
	if len(d.Workflow) == 0 {
		return fieldErr("workflow", "at least one step is required")
	}

	nameToIndex := make(map[string]int, len(d.Workflow))
	for i, step := range d.Workflow {
		nameToIndex[step.Action] = i
	}

	for i := range d.Workflow {
		step := &d.Workflow[i]

		action, ok := d.Actions[step.Action]
		if !ok {
			return fieldErr(fmt.Sprintf("workflow[%d].action", i), fmt.Sprintf("action %q is not defined", step.Action))
		}

		if step.Parallel {
			switch action.Kind {
			case ActionCommand, ActionBinary, ActionTerminal:
			default:
				return fieldErr(fmt.Sprintf("workflow[%d].parallel", i), fmt.Sprintf("parallel is not valid for %s actions", action.Kind))
			}
		}

		if step.Timeout != "" {
			d, err := humanize.ParseDuration(step.Timeout)
			if err != nil {
				return fieldErr(fmt.Sprintf("workflow[%d].timeout", i), err.Error())
			}
			step.ResolvedTimeout = d
		}

		if step.OnError.Policy == OnErrorGoto {
			targetIdx, ok := nameToIndex[step.OnError.Target]
			if !ok {
				return fieldErr(fmt.Sprintf("workflow[%d].on_error.goto", i), fmt.Sprintf("target step %q does not exist", step.OnError.Target))
			}
			if targetIdx <= i {
				return fieldErr(fmt.Sprintf("workflow[%d].on_error.goto", i), "goto must target a later step; backward jumps are rejected to guarantee termination")
			}
		}
	}
	return nil
}

func (d *Definition) validateReporting() error {
	if limit := d.Reporting.Compression.SizeLimit; limit != "" {
		if _, _, err := humanize.ParseSize(limit); err != nil {
			return fieldErr("reporting.compression.size_limit", err.Error())
		}
	}

	enc := d.Reporting.Encryption
	if enc.Enabled {
		switch enc.Algorithm {
		case "AES-128-GCM", "CHACHA20-POLY1305":
		case "":
			return fieldErr("reporting.encryption.algorithm", "algorithm is required when encryption is enabled")
		default:
			return fieldErr("reporting.encryption.algorithm", fmt.Sprintf("unrecognized algorithm %q", enc.Algorithm))
		}
		if enc.PublicKeyPath == "" {
			return fieldErr("reporting.encryption.public_key_path", "public_key_path is required when encryption is enabled")
		}
	}
	return nil
}

func fieldErr(field, message string) error {
	return &caseerrors.ValidationError{Field: field, Message: message}
}

// CompressionSizeLimit returns the resolved compression threshold in
// bytes, applying the 100MB default when unset.
func (r ReportingPolicy) CompressionSizeLimit() int64 {
	if r.Compression.SizeLimit == "" {
		return 100 * 1000 * 1000
	}
	n, _, _ := humanize.ParseSize(r.Compression.SizeLimit)
	return n
}

// ZipArchiveEnabled returns whether archival is enabled, defaulting true.
func (r ReportingPolicy) ZipArchiveEnabled() bool {
	if r.ZipArchive.Enabled == nil {
		return true
	}
	return *r.ZipArchive.Enabled
}

// LaunchEnabled returns whether the document is enabled at all, defaulting
// true.
func (l LaunchConditions) LaunchEnabled() bool {
	if l.Enabled == nil {
		return true
	}
	return *l.Enabled
}
