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

package shared

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/tombee/flowsmith/pkg/workflow/lint"
)

// CLI styles
var (
	StatusOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // green
	StatusWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange
	StatusError = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red
	StatusInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))  // blue
	Muted       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	Bold        = lipgloss.NewStyle().Bold(true)
	Header      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
)

// Symbols for status indicators
const (
	SymbolOK    = "✓"
	SymbolWarn  = "⚠"
	SymbolError = "✗"
	SymbolInfo  = "•"
)

// ColorEnabled reports whether stdout is a color-capable terminal.
func ColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if t := os.Getenv("TERM"); t == "dumb" || t == "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// RenderOK renders a success message with green checkmark
func RenderOK(msg string) string {
	return StatusOK.Render(SymbolOK) + " " + msg
}

// RenderWarn renders a warning message with orange symbol
func RenderWarn(msg string) string {
	return StatusWarn.Render(SymbolWarn) + " " + msg
}

// RenderError renders an error message with red X
func RenderError(msg string) string {
	return StatusError.Render(SymbolError) + " " + msg
}

// RenderLabel renders a dim label (for key: value pairs)
func RenderLabel(label string) string {
	return Muted.Render(label)
}

// RenderIssue renders one lint finding on a single line.
func RenderIssue(issue lint.Issue) string {
	var symbol string
	switch issue.Severity {
	case lint.SeverityError:
		symbol = StatusError.Render(SymbolError)
	case lint.SeverityWarn:
		symbol = StatusWarn.Render(SymbolWarn)
	default:
		symbol = StatusInfo.Render(SymbolInfo)
	}
	line := fmt.Sprintf("%s %s %s", symbol, issue.Message, Muted.Render("("+issue.RuleID+")"))
	if issue.NodeID != "" {
		line += Muted.Render(" node " + issue.NodeID)
	}
	return line
}

// PrintIssues writes issues followed by a per-severity count.
func PrintIssues(w io.Writer, issues []lint.Issue) {
	if len(issues) == 0 {
		fmt.Fprintln(w, RenderOK("No lint issues"))
		return
	}
	for _, issue := range issues {
		fmt.Fprintln(w, "  "+RenderIssue(issue))
	}
	counts := lint.Count(issues)
	fmt.Fprintf(w, "\n%d error(s), %d warning(s), %d info\n",
		counts[lint.SeverityError], counts[lint.SeverityWarn], counts[lint.SeverityInfo])
}
