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
	"os"

	"github.com/spf13/cobra"
)

// version is injected via -ldflags at build time.
var version = "dev"

func main() {
	root := newRootCommand()
	root.AddCommand(newValidateCommand())

	if err := root.Execute(); err != nil {
		var exitErr *exitError
		if asExitError(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Error())
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collector",
		Short:   "Portable incident-response and digital-forensic collector",
		Version: version,
		Long: `collector discovers workflow documents under ./workflows, evaluates
each one's eligibility on the current target, runs the eligible ones, and
writes a report under ./reports/<device>_<workflow>_<timestamp>/.

No flags are required for normal use.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd.Context())
		},
	}
	return cmd
}

// exitError carries a process exit code alongside a human message, per
// the collector's documented exit-code contract.
type exitError struct {
	Code    int
	Message string
}

func (e *exitError) Error() string { return e.Message }

func asExitError(err error, target **exitError) bool {
	if e, ok := err.(*exitError); ok {
		*target = e
		return true
	}
	return false
}
