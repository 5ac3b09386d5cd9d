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

// Package workflow defines the workflow document data model: the YAML
// shape an operator authors (properties, launch conditions, named action
// definitions, an ordered step list, reporting policy) and the in-memory
// representation the runner consumes. Loading and validating a document
// are deliberately kept separate from executing it — nothing in this
// package spawns a process or touches the filesystem beyond reading the
// document itself.
package workflow

import "time"

// Definition is the parsed, as-yet-unvalidated form of one workflow
// document.
type Definition struct {
	Properties      Properties      `yaml:"properties"`
	LaunchConditions LaunchConditions `yaml:"launch_conditions"`
	Actions         map[string]ActionDefinition `yaml:"actions"`
	Workflow        []WorkflowStep  `yaml:"workflow"`
	Reporting       ReportingPolicy `yaml:"reporting"`
}

// Properties carries the document's descriptive metadata. Extra is the
// catch-all for additional string properties the author wants carried
// into the report; unlike actions, properties are never subject to
// ${NAME} expansion.
type Properties struct {
	Title       string            `yaml:"title"`
	Version     string            `yaml:"version"`
	Description string            `yaml:"description,omitempty"`
	Author      string            `yaml:"author,omitempty"`
	Extra       map[string]string `yaml:",inline"`
}

// LaunchConditions gates whether a workflow is eligible to run on the
// current target at all.
type LaunchConditions struct {
	Enabled       *bool                 `yaml:"enabled,omitempty"`
	OS            []string              `yaml:"os,omitempty"`
	Arch          []string              `yaml:"arch,omitempty"`
	IsElevated    bool                  `yaml:"is_elevated,omitempty"`
	CustomCommand *CustomCommandCondition `yaml:"custom_command,omitempty"`
}

// CustomCommandCondition probes the target with an external command and
// tests its captured stdout. At least one of ContainsAny, ContainsAll, or
// ContainsRegex must be set; the composite of whichever are present is
// their logical AND.
type CustomCommandCondition struct {
	Command       string   `yaml:"command"`
	Args          []string `yaml:"args,omitempty"`
	ContainsAny   []string `yaml:"contains_any,omitempty"`
	ContainsAll   []string `yaml:"contains_all,omitempty"`
	ContainsRegex string   `yaml:"contains_regex,omitempty"`
}

// ActionKind names one of the five action variants. The tag drives
// UnmarshalYAML's dispatch in definition.go.
type ActionKind string

const (
	ActionCommand  ActionKind = "command"
	ActionBinary   ActionKind = "binary"
	ActionStore    ActionKind = "store"
	ActionYara     ActionKind = "yara"
	ActionTerminal ActionKind = "terminal"
)

// ActionDefinition is a tagged variant: exactly one of the Command/Binary/
// Store/Yara/Terminal fields is populated, selected by Kind. Modeling it
// this way (rather than an interface with five implementations) keeps the
// YAML round-trip and the kernel's dispatch switch in one place each,
// instead of scattering type assertions through the runner.
type ActionDefinition struct {
	Kind     ActionKind
	Command  *CommandAction
	Binary   *BinaryAction
	Store    *StoreAction
	Yara     *YaraAction
	Terminal *TerminalAction
}

// CommandAction spawns cmd with args resolved against the inherited PATH.
type CommandAction struct {
	Cmd        string   `yaml:"cmd"`
	Args       []string `yaml:"args,omitempty"`
	Cwd        string   `yaml:"cwd,omitempty"`
	LogToFile  *bool    `yaml:"log_to_file,omitempty"`
}

// BinaryAction spawns a binary shipped alongside the collector, resolved
// under CUSTOM_FILES_DIR unless Path is already absolute.
type BinaryAction struct {
	Path      string   `yaml:"path"`
	Args      []string `yaml:"args,omitempty"`
	Cwd       string   `yaml:"cwd,omitempty"`
	LogToFile *bool    `yaml:"log_to_file,omitempty"`
}

// StoreAction enumerates files via the pattern engine and hands matches to
// the capture pipeline.
type StoreAction struct {
	Patterns        []string `yaml:"patterns"`
	CaseInsensitive bool     `yaml:"case_insensitive,omitempty"`
	SizeLimit       string   `yaml:"size_limit,omitempty"`
}

// YaraAction scans a file set against a reduced rule grammar and captures
// matches.
type YaraAction struct {
	RulesPaths   []string `yaml:"rules_paths"`
	FilesToScan  []string `yaml:"files_to_scan"`
	NumThreads   int      `yaml:"num_threads,omitempty"`
	ScanTimeout  string   `yaml:"scan_timeout,omitempty"`
	StoreOnMatch *bool    `yaml:"store_on_match,omitempty"`
}

// TerminalAction opens an interactive session, optionally in a separate
// window and optionally transcribed.
type TerminalAction struct {
	SeparateWindow   bool `yaml:"separate_window,omitempty"`
	Wait             bool `yaml:"wait,omitempty"`
	EnableTranscript bool `yaml:"enable_transcript,omitempty"`
}

// OnErrorPolicy names what the runner does after an action-fatal outcome.
type OnErrorPolicy string

const (
	OnErrorContinue OnErrorPolicy = "continue"
	OnErrorAbort    OnErrorPolicy = "abort"
	OnErrorGoto     OnErrorPolicy = "goto"
)

// OnError is parsed from either the bare string "continue"/"abort" or the
// mapping form {goto: step-name}; see definition.go's UnmarshalYAML.
type OnError struct {
	Policy OnErrorPolicy
	Target string // only set when Policy == OnErrorGoto
}

// WorkflowStep references one action by name and carries its per-step
// execution policy.
type WorkflowStep struct {
	Action   string        `yaml:"action"`
	Timeout  string        `yaml:"timeout,omitempty"`
	OnError  OnError       `yaml:"on_error,omitempty"`
	Parallel bool          `yaml:"parallel,omitempty"`

	// ResolvedTimeout is populated by Validate from the Timeout string;
	// zero means no timeout was configured.
	ResolvedTimeout time.Duration `yaml:"-"`
}

// ReportingPolicy controls metadata columns and the archival/encryption
// stage run by the reporter after the workflow completes.
type ReportingPolicy struct {
	Metadata    MetadataFlags    `yaml:"metadata,omitempty"`
	ZipArchive  ZipArchiveConfig `yaml:"zip_archive,omitempty"`
	Compression CompressionConfig `yaml:"compression,omitempty"`
	Encryption  EncryptionConfig `yaml:"encryption,omitempty"`
}

// MetadataFlags controls which optional columns appear in metadata.csv.
// The header is fixed for the whole run regardless of whether any row
// populates an optional column.
type MetadataFlags struct {
	ModifiedTime *bool `yaml:"modified_time,omitempty"`
	AccessedTime *bool `yaml:"accessed_time,omitempty"`
	CreatedTime  *bool `yaml:"created_time,omitempty"`
	ExtraAttrs   *bool `yaml:"extra_attrs,omitempty"`
}

// ZipArchiveConfig controls whether the reporter bundles the report
// directory into report.zip. Enabled defaults to true.
type ZipArchiveConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
}

// CompressionConfig controls the per-file deflate/store threshold within
// report.zip. SizeLimit defaults to 100MB when empty.
type CompressionConfig struct {
	SizeLimit string `yaml:"size_limit,omitempty"`
}

// EncryptionConfig controls whether report.zip is sealed under a hybrid
// RSA-OAEP + AEAD scheme after archival.
type EncryptionConfig struct {
	Enabled         bool   `yaml:"enabled,omitempty"`
	Algorithm       string `yaml:"algorithm,omitempty"`
	PublicKeyPath   string `yaml:"public_key_path,omitempty"`
}
