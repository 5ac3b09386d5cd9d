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

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/casefile/internal/launch"
	"github.com/tombee/casefile/pkg/platform"
	"github.com/tombee/casefile/pkg/workflow"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "validate",
		Short:         "Load and validate every workflow under ./workflows, without acquiring anything",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd)
		},
	}
	return cmd
}

func runValidate(cmd *cobra.Command) error {
	paths, err := discoverWorkflows(".")
	if err != nil {
		return &exitError{Code: 2, Message: err.Error()}
	}
	if len(paths) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no workflow documents found under ./workflows")
		return &exitError{Code: 3, Message: "no workflow documents found"}
	}

	probe := platform.RealProbe{}
	invalid := 0
	for _, path := range paths {
		def, err := workflow.Load(path)
		if err != nil {
			invalid++
			fmt.Fprintf(cmd.OutOrStdout(), "%s: INVALID: %v\n", path, err)
			continue
		}
		result := launch.Evaluate(cmd.Context(), def.LaunchConditions, probe)
		if result.Eligible {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid, eligible\n", path)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid, ineligible (%s)\n", path, result.Reason)
		}
	}

	if invalid > 0 {
		return &exitError{Code: 2, Message: fmt.Sprintf("%d of %d workflow documents failed validation", invalid, len(paths))}
	}
	return nil
}
