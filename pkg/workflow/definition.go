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
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	caseerrors "github.com/tombee/casefile/pkg/errors"
)

// Load reads, parses, and validates a workflow document from path. Unknown
// keys at any recognized mapping level are rejected, per §6's "unknown
// keys at recognized levels are rejected" rule — the one exception is
// Properties.Extra, which intentionally swallows unrecognized string
// properties.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, caseerrors.Wrapf(err, "reading workflow document %s", path)
	}

	def, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// Parse decodes a workflow document from raw YAML without validating it.
// Exposed separately from Load so tests and the "validate" CLI subcommand
// can inspect a malformed-but-parseable document.
func Parse(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, &caseerrors.ValidationError{
			Field:      "<document>",
			Message:    fmt.Sprintf("invalid workflow document: %v", err),
			Suggestion: "check for unknown keys or a structurally invalid YAML document",
		}
	}
	return &def, nil
}

// rawActionDefinition mirrors ActionDefinition's YAML shape: a "type" tag
// plus whichever attribute block matches it. Decoding into this
// intermediate struct first, then dispatching on Type, keeps the tagged
// variant out of yaml.v3's more awkward custom-unmarshal machinery.
type rawActionDefinition struct {
	Type string `yaml:"type"`

	Cmd             string   `yaml:"cmd,omitempty"`
	Path            string   `yaml:"path,omitempty"`
	Args            []string `yaml:"args,omitempty"`
	Cwd             string   `yaml:"cwd,omitempty"`
	LogToFile       *bool    `yaml:"log_to_file,omitempty"`

	Patterns        []string `yaml:"patterns,omitempty"`
	CaseInsensitive bool     `yaml:"case_insensitive,omitempty"`
	SizeLimit       string   `yaml:"size_limit,omitempty"`

	RulesPaths   []string `yaml:"rules_paths,omitempty"`
	FilesToScan  []string `yaml:"files_to_scan,omitempty"`
	NumThreads   int      `yaml:"num_threads,omitempty"`
	ScanTimeout  string   `yaml:"scan_timeout,omitempty"`
	StoreOnMatch *bool    `yaml:"store_on_match,omitempty"`

	SeparateWindow   bool `yaml:"separate_window,omitempty"`
	Wait             bool `yaml:"wait,omitempty"`
	EnableTranscript bool `yaml:"enable_transcript,omitempty"`
}

// UnmarshalYAML implements the tagged-variant dispatch for ActionDefinition.
func (a *ActionDefinition) UnmarshalYAML(value *yaml.Node) error {
	var raw rawActionDefinition
	if err := value.Decode(&raw); err != nil {
		return err
	}

	switch ActionKind(raw.Type) {
	case ActionCommand:
		a.Kind = ActionCommand
		a.Command = &CommandAction{Cmd: raw.Cmd, Args: raw.Args, Cwd: raw.Cwd, LogToFile: raw.LogToFile}
	case ActionBinary:
		a.Kind = ActionBinary
		a.Binary = &BinaryAction{Path: raw.Path, Args: raw.Args, Cwd: raw.Cwd, LogToFile: raw.LogToFile}
	case ActionStore:
		a.Kind = ActionStore
		a.Store = &StoreAction{Patterns: raw.Patterns, CaseInsensitive: raw.CaseInsensitive, SizeLimit: raw.SizeLimit}
	case ActionYara:
		a.Kind = ActionYara
		a.Yara = &YaraAction{
			RulesPaths:   raw.RulesPaths,
			FilesToScan:  raw.FilesToScan,
			NumThreads:   raw.NumThreads,
			ScanTimeout:  raw.ScanTimeout,
			StoreOnMatch: raw.StoreOnMatch,
		}
	case ActionTerminal:
		a.Kind = ActionTerminal
		a.Terminal = &TerminalAction{
			SeparateWindow:   raw.SeparateWindow,
			Wait:             raw.Wait,
			EnableTranscript: raw.EnableTranscript,
		}
	default:
		return &caseerrors.ValidationError{
			Field:      "actions[].type",
			Message:    fmt.Sprintf("unrecognized action type %q", raw.Type),
			Suggestion: "type must be one of command, binary, store, yara, terminal",
		}
	}
	return nil
}

// MarshalYAML flattens the tagged variant back into the single-mapping
// shape UnmarshalYAML expects, so a loaded document can round-trip (used
// by the "validate" subcommand's diagnostic dump).
func (a ActionDefinition) MarshalYAML() (interface{}, error) {
	raw := rawActionDefinition{Type: string(a.Kind)}
	switch a.Kind {
	case ActionCommand:
		raw.Cmd, raw.Args, raw.Cwd, raw.LogToFile = a.Command.Cmd, a.Command.Args, a.Command.Cwd, a.Command.LogToFile
	case ActionBinary:
		raw.Path, raw.Args, raw.Cwd, raw.LogToFile = a.Binary.Path, a.Binary.Args, a.Binary.Cwd, a.Binary.LogToFile
	case ActionStore:
		raw.Patterns, raw.CaseInsensitive, raw.SizeLimit = a.Store.Patterns, a.Store.CaseInsensitive, a.Store.SizeLimit
	case ActionYara:
		raw.RulesPaths = a.Yara.RulesPaths
		raw.FilesToScan = a.Yara.FilesToScan
		raw.NumThreads = a.Yara.NumThreads
		raw.ScanTimeout = a.Yara.ScanTimeout
		raw.StoreOnMatch = a.Yara.StoreOnMatch
	case ActionTerminal:
		raw.SeparateWindow = a.Terminal.SeparateWindow
		raw.Wait = a.Terminal.Wait
		raw.EnableTranscript = a.Terminal.EnableTranscript
	}
	return raw, nil
}

// UnmarshalYAML accepts either the bare scalar "continue"/"abort" or the
// mapping form {goto: step-name}.
func (o *OnError) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		switch OnErrorPolicy(value.Value) {
		case OnErrorContinue, OnErrorAbort:
			o.Policy = OnErrorPolicy(value.Value)
			return nil
		default:
			return &caseerrors.ValidationError{
				Field:      "on_error",
				Message:    fmt.Sprintf("unrecognized on_error value %q", value.Value),
				Suggestion: `use "continue", "abort", or {goto: step-name}`,
			}
		}
	}

	var m struct {
		Goto string `yaml:"goto"`
	}
	if err := value.Decode(&m); err != nil {
		return err
	}
	if m.Goto == "" {
		return &caseerrors.ValidationError{
			Field:      "on_error.goto",
			Message:    "goto form of on_error requires a non-empty target step name",
			Suggestion: "set on_error.goto to the name of a later step",
		}
	}
	o.Policy = OnErrorGoto
	o.Target = m.Goto
	return nil
}

// MarshalYAML renders OnError back to its document form.
func (o OnError) MarshalYAML() (interface{}, error) {
	if o.Policy == OnErrorGoto {
		return struct {
			Goto string `yaml:"goto"`
		}{Goto: o.Target}, nil
	}
	if o.Policy == "" {
		return string(OnErrorContinue), nil
	}
	return string(o.Policy), nil
}
