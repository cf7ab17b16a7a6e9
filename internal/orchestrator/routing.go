package orchestrator

import (
	"fmt"
	"regexp"

	"aicode/internal/action"
	"aicode/internal/executor"
)

type PolicyMode string

const (
	PolicyDefault  PolicyMode = "default"
	PolicyReadOnly PolicyMode = "readonly"
	PolicyAll      PolicyMode = "all"
)

func ParsePolicyMode(s string) (PolicyMode, error) {
	switch PolicyMode(s) {
	case "":
		return PolicyDefault, nil
	case PolicyDefault, PolicyReadOnly, PolicyAll:
		return PolicyMode(s), nil
	}
	return "", fmt.Errorf("unknown policy mode %q", s)
}

type Route string

const (
	RouteExecute       Route = "execute"
	RouteNeedsApproval Route = "needs_approval"
	RouteSkip          Route = "skip"
)

type RoutingDecision struct {
	Route    Route
	Reason   string
	Priority int // Higher priority takes precedence
}

type RoutingRule struct {
	Mode      PolicyMode
	Condition func(action.Action) bool
	Route     Route
	Reason    string
	Priority  int
}

type ErrorPattern struct {
	Pattern     *regexp.Regexp
	Category    string
	Severity    int // 1=low, 2=medium, 3=high, 4=critical
	Suggestions []string
}

type ErrorContext struct {
	Category      string   `json:"category"`
	Severity      int      `json:"severity"`
	Suggestions   []string `json:"suggestions"`
	IsRecoverable bool     `json:"is_recoverable"`
}

// RoutingEngine decides what happens to each action under a policy mode
// and classifies failed results.
type RoutingEngine struct {
	mode          PolicyMode
	rules         []RoutingRule
	errorPatterns []ErrorPattern
}

func NewRoutingEngine(mode PolicyMode) *RoutingEngine {
	if mode == "" {
		mode = PolicyDefault
	}
	re := &RoutingEngine{mode: mode}
	re.initializeErrorPatterns()
	re.initializeRules()
	return re
}

func (re *RoutingEngine) Mode() PolicyMode {
	return re.mode
}

func (re *RoutingEngine) initializeRules() {
	always := func(action.Action) bool { return true }

	re.rules = []RoutingRule{
		// Default: confirmation flag decides
		{
			Mode:      PolicyDefault,
			Condition: func(a action.Action) bool { return a.RequiresConfirmation() },
			Route:     RouteNeedsApproval,
			Reason:    "action requires confirmation",
			Priority:  20,
		},
		{
			Mode:      PolicyDefault,
			Condition: always,
			Route:     RouteExecute,
			Reason:    "action is safe",
			Priority:  10,
		},

		// Read-only: only reads go through
		{
			Mode:      PolicyReadOnly,
			Condition: func(a action.Action) bool { return a.Kind() == action.KindFileRead },
			Route:     RouteExecute,
			Reason:    "reads are allowed in readonly mode",
			Priority:  20,
		},
		{
			Mode:      PolicyReadOnly,
			Condition: always,
			Route:     RouteSkip,
			Reason:    "readonly mode blocks changes",
			Priority:  10,
		},

		// All: nothing is gated
		{
			Mode:      PolicyAll,
			Condition: always,
			Route:     RouteExecute,
			Reason:    "all actions allowed",
			Priority:  10,
		},
	}
}

func (re *RoutingEngine) RouteAction(a action.Action) (RoutingDecision, error) {
	var bestDecision *RoutingDecision

	for _, rule := range re.rules {
		if rule.Mode == re.mode && rule.Condition(a) {
			decision := &RoutingDecision{
				Route:    rule.Route,
				Reason:   rule.Reason,
				Priority: rule.Priority,
			}

			if bestDecision == nil || decision.Priority > bestDecision.Priority {
				bestDecision = decision
			}
		}
	}

	if bestDecision == nil {
		return RoutingDecision{}, fmt.Errorf("no routing rule matched for %s in %s mode", a.Kind(), re.mode)
	}

	return *bestDecision, nil
}

func (re *RoutingEngine) initializeErrorPatterns() {
	re.errorPatterns = []ErrorPattern{
		{
			Pattern:  regexp.MustCompile(`(?i)(command timed out)`),
			Category: "timeout",
			Severity: 3,
			Suggestions: []string{
				"Raise the command timeout",
				"Split the command into smaller steps",
			},
		},
		{
			Pattern:  regexp.MustCompile(`(?i)(command not found|sh: \d+: \S+: not found|executable file not found|not recognized as an internal or external command)`),
			Category: "missing_command",
			Severity: 3,
			Suggestions: []string{
				"Install the missing tool",
				"Check PATH for the command",
			},
		},
		{
			Pattern:  regexp.MustCompile(`(?i)(file not found|no such file or directory)`),
			Category: "missing_file",
			Severity: 2,
			Suggestions: []string{
				"Check the path relative to the working directory",
				"Create the file before reading it",
			},
		},
		{
			Pattern:  regexp.MustCompile(`(?i)(permission denied|access denied|operation not permitted)`),
			Category: "permission_error",
			Severity: 3,
			Suggestions: []string{
				"Check file permissions",
				"Verify write access to target directory",
			},
		},
		{
			Pattern:  regexp.MustCompile(`(?i)(syntax error|unexpected \w+|expected \w+)`),
			Category: "syntax_error",
			Severity: 4,
			Suggestions: []string{
				"Check brackets, braces, and parentheses",
				"Verify function signatures",
			},
		},
		{
			Pattern:  regexp.MustCompile(`(?i)(test failed|assertion failed|FAIL\b|failed \d+ tests?)`),
			Category: "test_failure",
			Severity: 2,
			Suggestions: []string{
				"Review test logic and assertions",
				"Check test data and setup",
			},
		},
		{
			Pattern:  regexp.MustCompile(`(?i)(panic:|runtime error|nil pointer dereference|index out of range|traceback)`),
			Category: "runtime_error",
			Severity: 4,
			Suggestions: []string{
				"Add nil checks",
				"Add error handling",
			},
		},
		{
			Pattern:  regexp.MustCompile(`(?i)(connection refused|no route to host|dial tcp.*refused|could not resolve host)`),
			Category: "network_error",
			Severity: 2,
			Suggestions: []string{
				"Check service availability",
				"Verify network connectivity",
			},
		},
		{
			Pattern:  regexp.MustCompile(`(?i)(fatal: not a git repository|merge conflict)`),
			Category: "git_error",
			Severity: 2,
			Suggestions: []string{
				"Initialize git repository if needed",
				"Resolve merge conflicts",
			},
		},
		{
			Pattern:  regexp.MustCompile(`(?i)(unknown edit type|not valid utf-8)`),
			Category: "invalid_action",
			Severity: 1,
			Suggestions: []string{
				"Regenerate the action with supported values",
			},
		},
	}
}

// AnalyzeFailure picks the most severe known pattern in a failed result.
func (re *RoutingEngine) AnalyzeFailure(res executor.Result) ErrorContext {
	errorText := res.Error + " " + res.Output

	var bestMatch *ErrorPattern
	for i := range re.errorPatterns {
		pattern := &re.errorPatterns[i]
		if pattern.Pattern.MatchString(errorText) {
			if bestMatch == nil || pattern.Severity > bestMatch.Severity {
				bestMatch = pattern
			}
		}
	}

	if bestMatch == nil {
		return ErrorContext{
			Category:      "unknown",
			Severity:      2,
			Suggestions:   []string{"Review the command output"},
			IsRecoverable: true,
		}
	}

	return ErrorContext{
		Category:      bestMatch.Category,
		Severity:      bestMatch.Severity,
		Suggestions:   bestMatch.Suggestions,
		IsRecoverable: bestMatch.Severity <= 3,
	}
}
