package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"time"
)

type dangerRule struct {
	name   string
	re     *regexp.Regexp
	unless *regexp.Regexp
}

// Built-in rules, checked in order. Pseudo devices such as /dev/null are
// not treated as device writes.
var builtinRules = []dangerRule{
	{name: "recursive delete of root", re: regexp.MustCompile(`(?i)rm\s+-rf\s+/`)},
	{name: "recursive delete of wildcard", re: regexp.MustCompile(`(?i)rm\s+-rf\s+\*`)},
	{name: "privileged delete", re: regexp.MustCompile(`(?i)sudo\s+rm`)},
	{
		name:   "write to device file",
		re:     regexp.MustCompile(`(?i)>>?\s*/dev/`),
		unless: regexp.MustCompile(`(?i)^>>?\s*/dev/(null|zero|stdout|stderr|stdin|tty|fd/\d+)\b`),
	},
	{name: "raw disk imaging", re: regexp.MustCompile(`(?i)dd\s+if=`)},
	{name: "filesystem formatting", re: regexp.MustCompile(`(?i)mkfs`)},
	{name: "disk partitioning", re: regexp.MustCompile(`(?i)fdisk`)},
	{name: "fork bomb", re: regexp.MustCompile(`(?i):\(\)\s*\{.*\|\s*:`)},
	{name: "recursive world-writable chmod", re: regexp.MustCompile(`(?i)chmod\s+-R\s+777`)},
}

// CommandClassifier flags shell commands that must be confirmed before they
// run. It holds no state beyond its rule list.
type CommandClassifier struct {
	rules []dangerRule
}

var defaultClassifier = &CommandClassifier{rules: builtinRules}

// DefaultClassifier returns the classifier with the built-in rules only.
func DefaultClassifier() *CommandClassifier {
	return defaultClassifier
}

// NewCommandClassifier appends extra patterns after the built-in rules.
// Patterns are compiled case-insensitively.
func NewCommandClassifier(extraPatterns []string) (*CommandClassifier, error) {
	rules := make([]dangerRule, len(builtinRules), len(builtinRules)+len(extraPatterns))
	copy(rules, builtinRules)

	for _, pattern := range extraPatterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid dangerous pattern %q: %w", pattern, err)
		}
		rules = append(rules, dangerRule{name: pattern, re: re})
	}

	return &CommandClassifier{rules: rules}, nil
}

// Match reports the first rule the command trips.
func (c *CommandClassifier) Match(command string) (string, bool) {
	for _, rule := range c.rules {
		loc := rule.re.FindStringIndex(command)
		if loc == nil {
			continue
		}
		if rule.unless != nil && !dangerousOccurrence(rule, command) {
			continue
		}
		return rule.name, true
	}
	return "", false
}

// dangerousOccurrence checks every occurrence of the rule, skipping those the
// exception covers.
func dangerousOccurrence(rule dangerRule, command string) bool {
	for _, loc := range rule.re.FindAllStringIndex(command, -1) {
		if !rule.unless.MatchString(command[loc[0]:]) {
			return true
		}
	}
	return false
}

func (c *CommandClassifier) IsDangerous(command string) bool {
	_, dangerous := c.Match(command)
	return dangerous
}

// IsDangerous classifies a command with the built-in rules.
func IsDangerous(command string) bool {
	return defaultClassifier.IsDangerous(command)
}

// ErrCommandTimeout marks a shell command killed because its deadline passed.
var ErrCommandTimeout = errors.New("command timed out")

type ShellResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// ShellRunner runs commands through the platform shell.
type ShellRunner struct {
	// WaitDelay bounds how long Run waits for output pipes once the shell
	// has exited or the process group has been killed.
	WaitDelay time.Duration
}

func NewShellRunner() *ShellRunner {
	return &ShellRunner{WaitDelay: 2 * time.Second}
}

// Run executes command in dir. On timeout the whole process group is killed
// and the returned error wraps ErrCommandTimeout. A non-zero exit is not an
// error; it is reported through ShellResult.ExitCode.
func (r *ShellRunner) Run(ctx context.Context, command, dir string, timeout time.Duration) (ShellResult, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(execCtx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(execCtx, "sh", "-c", command)
	}
	cmd.Dir = dir
	configureCommandProcess(cmd)
	cmd.Cancel = func() error {
		terminateCommandProcess(cmd)
		return nil
	}
	cmd.WaitDelay = r.WaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	// Background children may outlive the shell; reap the whole group.
	terminateCommandProcess(cmd)
	result := ShellResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctxErr := execCtx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) && ctx.Err() == nil {
			return result, fmt.Errorf("%w after %s", ErrCommandTimeout, timeout)
		}
		return result, fmt.Errorf("command canceled: %w", ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return result, nil
		}
		// The shell exited cleanly but a child kept the output pipes open.
		if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success() {
			return result, nil
		}
		return result, fmt.Errorf("failed to run command: %w", err)
	}

	return result, nil
}
