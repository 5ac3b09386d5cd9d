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

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tombee/casefile/pkg/workflow"
)

func TestLoad_ValidBasic(t *testing.T) {
	def, err := workflow.Load("testdata/valid_basic.yaml")
	require.NoError(t, err)

	require.Equal(t, "Basic Triage", def.Properties.Title)
	require.Len(t, def.Actions, 2)

	listProcesses, ok := def.Actions["list_processes"]
	require.True(t, ok)
	require.Equal(t, workflow.ActionCommand, listProcesses.Kind)
	require.Equal(t, "ps", listProcesses.Command.Cmd)

	collect, ok := def.Actions["collect_bash_history"]
	require.True(t, ok)
	require.Equal(t, workflow.ActionStore, collect.Kind)
	require.Equal(t, "10MB", collect.Store.SizeLimit)

	require.Len(t, def.Workflow, 2)
	require.Equal(t, "list_processes", def.Workflow[0].Action)
}

func TestLoad_ValidGoto(t *testing.T) {
	def, err := workflow.Load("testdata/valid_goto.yaml")
	require.NoError(t, err)

	step := def.Workflow[0]
	require.Equal(t, workflow.OnErrorGoto, step.OnError.Policy)
	require.Equal(t, "step_d", step.OnError.Target)
}

func TestLoad_InvalidBackwardGoto(t *testing.T) {
	_, err := workflow.Load("testdata/invalid_backward_goto.yaml")
	require.Error(t, err)
	require.Contains(t, err.Error(), "backward jumps are rejected")
}

func TestLoad_InvalidUnknownAction(t *testing.T) {
	_, err := workflow.Load("testdata/invalid_unknown_action.yaml")
	require.Error(t, err)
	require.Contains(t, err.Error(), "is not defined")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := workflow.Load("testdata/does_not_exist.yaml")
	require.Error(t, err)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	doc := []byte(`
properties:
  title: X
  version: "1.0"
actions: {}
workflow: []
unexpected_top_level_key: true
`)
	_, err := workflow.Parse(doc)
	require.Error(t, err)
}

func TestActionDefinition_RoundTrip(t *testing.T) {
	def, err := workflow.Load("testdata/valid_basic.yaml")
	require.NoError(t, err)

	out, err := yaml.Marshal(def)
	require.NoError(t, err)

	reparsed, err := workflow.Parse(out)
	require.NoError(t, err)
	require.Equal(t, def.Actions["list_processes"].Command.Cmd, reparsed.Actions["list_processes"].Command.Cmd)
}
