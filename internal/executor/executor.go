// Package executor carries out actions against a working directory.
//
// Execute never returns an error: every failure, including a panic inside
// an action, becomes a Result with Success set to false. Confirmation flags
// are not consulted here; callers gate actions before handing them over.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"aicode/internal/action"
	"aicode/internal/tools"
)

type Result struct {
	Success  bool   `json:"success"`
	Output   string `json:"output"`
	Error    string `json:"error"`
	ExitCode *int   `json:"exit_code,omitempty"`
}

func succeeded(output string) Result {
	return Result{Success: true, Output: output}
}

func failed(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

type Executor struct {
	tools          *tools.ToolSet
	defaultTimeout time.Duration
	logger         *zap.Logger
	tracer         trace.Tracer
}

type Option func(*Executor)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDefaultTimeout applies to Bash actions that carry no positive timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.defaultTimeout = d
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithClassifier sets the rules reported by ToolSet().IsDangerous.
func WithClassifier(c *tools.CommandClassifier) Option {
	return func(e *Executor) {
		if c != nil {
			e.tools = tools.NewToolSet(e.tools.WorkingDir(), c)
		}
	}
}

// New returns an executor bound to workingDir ("" means the current
// directory).
func New(workingDir string, opts ...Option) *Executor {
	e := &Executor{
		tools:          tools.NewToolSet(workingDir, nil),
		defaultTimeout: action.DefaultTimeoutSeconds * time.Second,
		logger:         zap.NewNop(),
		tracer:         otel.Tracer("aicode/executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) WorkingDir() string {
	return e.tools.WorkingDir()
}

func (e *Executor) ToolSet() *tools.ToolSet {
	return e.tools
}

// Execute performs one action and reports its outcome.
func (e *Executor) Execute(ctx context.Context, a action.Action) (res Result) {
	if a == nil {
		return failed("Unknown action type: <nil>")
	}

	ctx, span := e.startActionSpan(ctx, a)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res = failed("panic while executing %s: %v", a.Kind(), r)
		}
		e.endActionSpan(span, res)

		fields := []zap.Field{
			zap.String("kind", string(a.Kind())),
			zap.Bool("success", res.Success),
			zap.Duration("duration", time.Since(start)),
		}
		if res.Success {
			e.logger.Debug("Action finished", fields...)
		} else {
			e.logger.Warn("Action failed", append(fields, zap.String("error", res.Error))...)
		}
	}()

	e.logger.Info("Executing action",
		zap.String("kind", string(a.Kind())),
		zap.String("description", a.Description()))

	switch v := a.(type) {
	case action.CodeEdit:
		return e.executeCodeEdit(v)
	case action.Bash:
		return e.executeBash(ctx, v)
	case action.FileRead:
		return e.executeFileRead(v)
	case action.FileWrite:
		return e.executeFileWrite(v)
	}

	return failed("Unknown action type: %s", a.Kind())
}

// ExecuteAll runs actions in order. A failure does not stop the batch and
// earlier effects are never rolled back.
func (e *Executor) ExecuteAll(ctx context.Context, actions []action.Action) []Result {
	results := make([]Result, 0, len(actions))
	for _, a := range actions {
		results = append(results, e.Execute(ctx, a))
	}
	return results
}

func (e *Executor) executeCodeEdit(a action.CodeEdit) Result {
	path := a.FilePath()

	switch a.EditType() {
	case action.EditDelete:
		if !e.tools.Exists(path) {
			return failed("File not found: %s", path)
		}
		if err := e.tools.DeleteFile(path); err != nil {
			return failed("%v", err)
		}
		return succeeded(fmt.Sprintf("Deleted %s", path))

	case action.EditCreate, action.EditModify:
		n, err := e.tools.WriteFile(path, a.Content())
		if err != nil {
			return failed("%v", err)
		}
		verb := "Modified"
		if a.EditType() == action.EditCreate {
			verb = "Created"
		}
		return succeeded(fmt.Sprintf("%s %s (%d bytes)", verb, path, n))
	}

	return failed("Unknown edit type: %s", a.EditType())
}

func (e *Executor) executeBash(ctx context.Context, a action.Bash) Result {
	timeout := time.Duration(a.TimeoutSeconds()) * time.Second
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	out, err := e.tools.ExecuteCommand(ctx, a.Command(), a.WorkingDir(), timeout)
	if errors.Is(err, tools.ErrCommandTimeout) {
		return failed("Command timed out after %d seconds", int(timeout/time.Second))
	}
	if err != nil {
		return failed("%v", err)
	}

	exitCode := out.ExitCode
	res := Result{
		Success:  exitCode == 0,
		Output:   out.Stdout,
		ExitCode: &exitCode,
	}
	if res.Output == "" {
		res.Output = out.Stderr
	}
	if !res.Success {
		res.Error = out.Stderr
		if res.Error == "" {
			res.Error = fmt.Sprintf("command exited with code %d", exitCode)
		}
	}
	return res
}

func (e *Executor) executeFileRead(a action.FileRead) Result {
	path := a.FilePath()
	if !e.tools.Exists(path) {
		return failed("File not found: %s", path)
	}

	content, err := e.tools.ReadFile(path)
	if err != nil {
		cause := errors.Unwrap(err)
		if cause == nil {
			cause = err
		}
		return failed("Failed to read file: %v", cause)
	}
	if !utf8.Valid(content) {
		return failed("Failed to read file: %s is not valid UTF-8", path)
	}

	return succeeded(string(content))
}

func (e *Executor) executeFileWrite(a action.FileWrite) Result {
	n, err := e.tools.WriteFile(a.FilePath(), a.Content())
	if err != nil {
		return failed("%v", err)
	}
	return succeeded(fmt.Sprintf("Wrote %d bytes to %s", n, a.FilePath()))
}
