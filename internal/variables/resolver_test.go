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

package variables_test

import (
	"testing"

	"github.com/tombee/casefile/internal/variables"
)

func testBindings() variables.Bindings {
	return variables.NewBindings(
		"/cases/2026-001",
		"HOST-A1",
		"/home/analyst",
		"analyst",
		"/cases/2026-001/loot_files",
		"/opt/casefile/custom",
		"linux",
		"amd64",
	)
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no tokens", "plain string", "plain string"},
		{"single token", "${BASE_PATH}/evidence", "/cases/2026-001/evidence"},
		{"multiple tokens", "${DEVICE_NAME}-${OS}-${ARCH}", "HOST-A1-linux-amd64"},
		{"repeated token", "${USER_HOME} ${USER_HOME}", "/home/analyst /home/analyst"},
		{"unknown token", "${NOT_A_THING}/x", "/x"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := variables.Expand(nil, tt.in, testBindings())
			if got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpandAll(t *testing.T) {
	in := []string{"${LOOT_DIR}/a", "${CUSTOM_FILES_DIR}/b", "literal"}
	want := []string{
		"/cases/2026-001/loot_files/a",
		"/opt/casefile/custom/b",
		"literal",
	}

	got := variables.ExpandAll(nil, in, testBindings())
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ExpandAll()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	in[0] = "mutated"
	if got[0] == "mutated" {
		t.Error("ExpandAll must not alias the input slice's elements")
	}
}
