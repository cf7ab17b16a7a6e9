package orchestrator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"aicode/internal/action"
	"aicode/internal/debug"
	"aicode/internal/executor"
)

// Approver is asked about every action the routing engine marks as
// needing approval.
type Approver interface {
	Approve(ctx context.Context, index int, a action.Action) (bool, error)
}

type ApproverFunc func(ctx context.Context, index int, a action.Action) (bool, error)

func (f ApproverFunc) Approve(ctx context.Context, index int, a action.Action) (bool, error) {
	return f(ctx, index, a)
}

var (
	AutoApprove Approver = ApproverFunc(func(context.Context, int, action.Action) (bool, error) { return true, nil })
	DenyAll     Approver = ApproverFunc(func(context.Context, int, action.Action) (bool, error) { return false, nil })
)

// ApproveIndices approves exactly the listed positions of the batch.
func ApproveIndices(indices []int) Approver {
	set := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		set[i] = struct{}{}
	}
	return ApproverFunc(func(_ context.Context, index int, _ action.Action) (bool, error) {
		_, ok := set[index]
		return ok, nil
	})
}

// PromptApprover asks on out and reads a y/N answer from in.
type PromptApprover struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPromptApprover(in io.Reader, out io.Writer) *PromptApprover {
	return &PromptApprover{in: bufio.NewReader(in), out: out}
}

func (p *PromptApprover) Approve(_ context.Context, index int, a action.Action) (bool, error) {
	fmt.Fprintf(p.out, "\n[%d] %s: %s\n", index+1, a.Kind(), a.Description())
	switch v := a.(type) {
	case action.Bash:
		fmt.Fprintf(p.out, "    $ %s\n", v.Command())
	case action.CodeEdit:
		fmt.Fprintf(p.out, "    %s %s\n", v.EditType(), v.FilePath())
	case action.FileWrite:
		fmt.Fprintf(p.out, "    write %s (%d bytes)\n", v.FilePath(), len(v.Content()))
	}
	fmt.Fprint(p.out, "Apply? [y/N] ")

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return false, nil
		}
		return false, fmt.Errorf("failed to read approval: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

type Decision string

const (
	DecisionExecuted Decision = "executed"
	DecisionDenied   Decision = "denied"
	DecisionSkipped  Decision = "skipped"
)

// Outcome is what happened to one action of a batch. Result is set only
// when the action ran; Failure only when it ran and failed.
type Outcome struct {
	Index    int              `json:"index"`
	Action   action.Action    `json:"action"`
	Decision Decision         `json:"decision"`
	Reason   string           `json:"reason,omitempty"`
	Result   *executor.Result `json:"result,omitempty"`
	Failure  *ErrorContext    `json:"failure,omitempty"`
}

// Runner gates a batch through the routing engine and approver, then
// executes what passes strictly in order. Nothing is rolled back.
type Runner struct {
	executor *executor.Executor
	routing  *RoutingEngine
	approver Approver
	logger   *zap.Logger
	debug    *debug.DebugLogger
}

type RunnerOption func(*Runner)

func WithLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithDebugLogger(dl *debug.DebugLogger) RunnerOption {
	return func(r *Runner) {
		r.debug = dl
	}
}

func NewRunner(exec *executor.Executor, routing *RoutingEngine, approver Approver, opts ...RunnerOption) *Runner {
	if routing == nil {
		routing = NewRoutingEngine(PolicyDefault)
	}
	if approver == nil {
		approver = DenyAll
	}
	r := &Runner{
		executor: exec,
		routing:  routing,
		approver: approver,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Run(ctx context.Context, actions []action.Action) []Outcome {
	outcomes := make([]Outcome, 0, len(actions))

	for i, a := range actions {
		outcome := r.runOne(ctx, i, a)
		if a != nil {
			_ = r.debug.LogDecision(i, a, string(outcome.Decision), outcome.Reason)
			if outcome.Result != nil {
				_ = r.debug.LogAction(i, a, outcome.Result.Success, outcome.Result.Output, outcome.Result.Error)
			}
		}
		outcomes = append(outcomes, outcome)
	}

	summary := Summarize(outcomes)
	r.logger.Info("Batch finished",
		zap.String("policy", string(r.routing.Mode())),
		zap.Int("executed", summary.Executed),
		zap.Int("failed", summary.Failed),
		zap.Int("denied", summary.Denied),
		zap.Int("skipped", summary.Skipped))

	return outcomes
}

func (r *Runner) runOne(ctx context.Context, index int, a action.Action) Outcome {
	outcome := Outcome{Index: index, Action: a}

	if a == nil {
		outcome.Decision = DecisionSkipped
		outcome.Reason = "nil action"
		return outcome
	}

	if err := ctx.Err(); err != nil {
		outcome.Decision = DecisionSkipped
		outcome.Reason = err.Error()
		return outcome
	}

	decision, err := r.routing.RouteAction(a)
	if err != nil {
		outcome.Decision = DecisionSkipped
		outcome.Reason = err.Error()
		return outcome
	}

	switch decision.Route {
	case RouteSkip:
		outcome.Decision = DecisionSkipped
		outcome.Reason = decision.Reason
		return outcome

	case RouteNeedsApproval:
		approved, err := r.approver.Approve(ctx, index, a)
		if err != nil {
			outcome.Decision = DecisionDenied
			outcome.Reason = err.Error()
			return outcome
		}
		if !approved {
			outcome.Decision = DecisionDenied
			outcome.Reason = "not approved"
			return outcome
		}
		outcome.Reason = "approved"

	default:
		outcome.Reason = decision.Reason
	}

	res := r.executor.Execute(ctx, a)
	outcome.Decision = DecisionExecuted
	outcome.Result = &res
	if !res.Success {
		failure := r.routing.AnalyzeFailure(res)
		outcome.Failure = &failure
	}
	return outcome
}

type Summary struct {
	Executed int `json:"executed"`
	Failed   int `json:"failed"`
	Denied   int `json:"denied"`
	Skipped  int `json:"skipped"`
}

func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch o.Decision {
		case DecisionExecuted:
			s.Executed++
			if o.Result != nil && !o.Result.Success {
				s.Failed++
			}
		case DecisionDenied:
			s.Denied++
		case DecisionSkipped:
			s.Skipped++
		}
	}
	return s
}
