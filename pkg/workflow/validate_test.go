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

package workflow_test

import (
	"testing"
	"time"

	"github.com/tombee/casefile/pkg/workflow"
)

func baseDefinition() *workflow.Definition {
	return &workflow.Definition{
		Properties: workflow.Properties{Title: "T", Version: "1.0"},
		Actions: map[string]workflow.ActionDefinition{
			"a": {Kind: workflow.ActionCommand, Command: &workflow.CommandAction{Cmd: "echo"}},
		},
		Workflow: []workflow.WorkflowStep{
			{Action: "a"},
		},
	}
}

func TestValidate_RequiresTitleAndVersion(t *testing.T) {
	def := baseDefinition()
	def.Properties.Title = ""
	if err := def.Validate(); err == nil {
		t.Fatal("expected error for missing title")
	}

	def = baseDefinition()
	def.Properties.Version = ""
	if err := def.Validate(); err == nil {
		t.Fatal("expected error for missing version")
	}
}

func TestValidate_RequiresAtLeastOneStep(t *testing.T) {
	def := baseDefinition()
	def.Workflow = nil
	if err := def.Validate(); err == nil {
		t.Fatal("expected error for empty workflow")
	}
}

func TestValidate_UnresolvedActionReference(t *testing.T) {
	def := baseDefinition()
	def.Workflow[0].Action = "does_not_exist"
	if err := def.Validate(); err == nil {
		t.Fatal("expected error for unresolved action reference")
	}
}

func TestValidate_ParallelRejectedForStoreAction(t *testing.T) {
	def := baseDefinition()
	def.Actions["a"] = workflow.ActionDefinition{
		Kind:  workflow.ActionStore,
		Store: &workflow.StoreAction{Patterns: []string{"*.log"}},
	}
	def.Workflow[0].Parallel = true
	if err := def.Validate(); err == nil {
		t.Fatal("expected error: parallel is not valid for store actions")
	}
}

func TestValidate_TimeoutResolved(t *testing.T) {
	def := baseDefinition()
	def.Workflow[0].Timeout = "2m"
	if err := def.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Workflow[0].ResolvedTimeout != 2*time.Minute {
		t.Fatalf("ResolvedTimeout = %v, want 2m", def.Workflow[0].ResolvedTimeout)
	}
}

func TestValidate_GotoForwardOnly(t *testing.T) {
	def := baseDefinition()
	def.Actions["b"] = workflow.ActionDefinition{Kind: workflow.ActionCommand, Command: &workflow.CommandAction{Cmd: "echo"}}
	def.Workflow = []workflow.WorkflowStep{
		{Action: "a", OnError: workflow.OnError{Policy: workflow.OnErrorGoto, Target: "b"}},
		{Action: "b"},
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("forward goto should be valid: %v", err)
	}

	def.Workflow = []workflow.WorkflowStep{
		{Action: "a"},
		{Action: "b", OnError: workflow.OnError{Policy: workflow.OnErrorGoto, Target: "a"}},
	}
	if err := def.Validate(); err == nil {
		t.Fatal("expected error for backward goto")
	}

	def.Workflow = []workflow.WorkflowStep{
		{Action: "a", OnError: workflow.OnError{Policy: workflow.OnErrorGoto, Target: "a"}},
	}
	if err := def.Validate(); err == nil {
		t.Fatal("expected error for self-targeting goto")
	}
}

func TestValidate_TerminalRequiresSeparateWindowWhenWaiting(t *testing.T) {
	def := baseDefinition()
	def.Actions["a"] = workflow.ActionDefinition{
		Kind:     workflow.ActionTerminal,
		Terminal: &workflow.TerminalAction{Wait: true, SeparateWindow: false},
	}
	if err := def.Validate(); err == nil {
		t.Fatal("expected error: wait=true requires separate_window=true")
	}
}

func TestValidate_TerminalRejectsTranscriptWithoutWait(t *testing.T) {
	def := baseDefinition()
	def.Actions["a"] = workflow.ActionDefinition{
		Kind:     workflow.ActionTerminal,
		Terminal: &workflow.TerminalAction{Wait: false, EnableTranscript: true},
	}
	if err := def.Validate(); err == nil {
		t.Fatal("expected error: wait=false requires enable_transcript=false")
	}
}

func TestValidate_CustomCommandRequiresAtLeastOneMatcher(t *testing.T) {
	def := baseDefinition()
	def.LaunchConditions.CustomCommand = &workflow.CustomCommandCondition{Command: "probe.sh"}
	if err := def.Validate(); err == nil {
		t.Fatal("expected error: custom_command requires contains_any/contains_all/contains_regex")
	}

	def.LaunchConditions.CustomCommand.ContainsAny = []string{"ok"}
	if err := def.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_RejectsUnrecognizedOSAndArch(t *testing.T) {
	def := baseDefinition()
	def.LaunchConditions.OS = []string{"amiga"}
	if err := def.Validate(); err == nil {
		t.Fatal("expected error for unrecognized OS")
	}

	def = baseDefinition()
	def.LaunchConditions.Arch = []string{"risc-v"}
	if err := def.Validate(); err == nil {
		t.Fatal("expected error for unrecognized arch")
	}
}

func TestValidate_EncryptionRequiresAlgorithmAndKey(t *testing.T) {
	def := baseDefinition()
	def.Reporting.Encryption.Enabled = true
	if err := def.Validate(); err == nil {
		t.Fatal("expected error: algorithm required")
	}

	def.Reporting.Encryption.Algorithm = "AES-128-GCM"
	if err := def.Validate(); err == nil {
		t.Fatal("expected error: public_key_path required")
	}

	def.Reporting.Encryption.PublicKeyPath = "recipient.pub"
	if err := def.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReportingPolicy_Defaults(t *testing.T) {
	var r workflow.ReportingPolicy
	if got := r.CompressionSizeLimit(); got != 100*1000*1000 {
		t.Errorf("CompressionSizeLimit default = %d, want 100MB", got)
	}
	if !r.ZipArchiveEnabled() {
		t.Error("ZipArchiveEnabled default should be true")
	}
}

func TestLaunchConditions_EnabledDefault(t *testing.T) {
	var l workflow.LaunchConditions
	if !l.LaunchEnabled() {
		t.Error("LaunchEnabled default should be true")
	}
	disabled := false
	l.Enabled = &disabled
	if l.LaunchEnabled() {
		t.Error("LaunchEnabled should respect explicit false")
	}
}
