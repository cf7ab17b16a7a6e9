package parser

import (
	"fmt"

	"aicode/internal/action"
)

const (
	SourceTags     = "tags"
	SourceToolCall = "tool_call"
	SourceRecord   = "record"
	SourceDispatch = "dispatch"
)

const snippetLimit = 80

// Diagnostic describes input that was skipped instead of becoming an action.
type Diagnostic struct {
	Source  string `json:"source"`
	Message string `json:"message"`
	Snippet string `json:"snippet,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Snippet == "" {
		return fmt.Sprintf("%s: %s", d.Source, d.Message)
	}
	return fmt.Sprintf("%s: %s (%q)", d.Source, d.Message, d.Snippet)
}

func newDiagnostic(source, snippet, format string, args ...any) Diagnostic {
	return Diagnostic{
		Source:  source,
		Message: fmt.Sprintf(format, args...),
		Snippet: truncate(snippet),
	}
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= snippetLimit {
		return s
	}
	return string(r[:snippetLimit]) + "..."
}

// Result is the outcome of parsing one response.
type Result struct {
	Actions     []action.Action `json:"actions"`
	Diagnostics []Diagnostic    `json:"diagnostics,omitempty"`
}

func (r *Result) merge(actions []action.Action, diags []Diagnostic) {
	r.Actions = append(r.Actions, actions...)
	r.Diagnostics = append(r.Diagnostics, diags...)
}
