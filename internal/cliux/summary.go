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

// Package cliux renders the collector's end-of-run console summary. The
// collector has no interactive UI — this is a non-interactive, styled
// text report printed once after every discovered workflow has been
// evaluated and (if eligible) run.
package cliux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	statusOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statusWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	statusError = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	muted       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	header      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
)

const (
	symbolOK    = "✓"
	symbolWarn  = "⚠"
	symbolError = "✗"
)

// WorkflowResult is one workflow document's outcome for the summary.
type WorkflowResult struct {
	Path       string
	Title      string
	Eligible   bool
	SkipReason string
	Failed     int // steps whose outcome was not ok
	Total      int // steps attempted
	ReportPath string
	Err        error // report-fatal or crypto-fatal error, or the document's load error (Eligible false), if any
}

// PrintSummary renders one block per workflow followed by a totals line.
func PrintSummary(w io.Writer, results []WorkflowResult) {
	fmt.Fprintln(w, header.Render("collector run summary"))

	var eligible, skipped, failed int
	for _, r := range results {
		switch {
		case !r.Eligible:
			skipped++
			fmt.Fprintf(w, "%s %s %s\n", statusWarn.Render(symbolWarn), r.Path, muted.Render("skipped: "+r.SkipReason))
		case r.Err != nil:
			failed++
			fmt.Fprintf(w, "%s %s %s\n", statusError.Render(symbolError), r.Path, muted.Render(r.Err.Error()))
		case r.Failed > 0:
			eligible++
			fmt.Fprintf(w, "%s %s %s\n", statusWarn.Render(symbolWarn), r.Title,
				muted.Render(fmt.Sprintf("%d/%d steps failed, report: %s", r.Failed, r.Total, r.ReportPath)))
		default:
			eligible++
			fmt.Fprintf(w, "%s %s %s\n", statusOK.Render(symbolOK), r.Title,
				muted.Render("report: "+r.ReportPath))
		}
	}

	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "%s eligible=%d skipped=%d failed=%d\n", header.Render("totals:"), eligible, skipped, failed)
}
