package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aicode/internal/action"
	"aicode/internal/orchestrator"
	"aicode/internal/parser"
	"aicode/internal/tools"
)

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type parseOutput struct {
	Actions     []action.Record     `json:"actions"`
	Diagnostics []parser.Diagnostic `json:"diagnostics"`
}

func newParseOutput(res parser.Result) parseOutput {
	out := parseOutput{Actions: action.Records(res.Actions), Diagnostics: res.Diagnostics}
	if out.Diagnostics == nil {
		out.Diagnostics = []parser.Diagnostic{}
	}
	return out
}

func (a *app) parseResponse(cmd *cobra.Command, args []string) (parser.Result, error) {
	text, err := readInput(cmd, args)
	if err != nil {
		return parser.Result{}, err
	}
	res := a.dispatcher().Parse(text)

	diags := make([]string, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		diags = append(diags, d.String())
	}
	_ = a.debug.LogResponse(text, res.Actions, diags)
	return res, nil
}

func (a *app) parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [file]",
		Short: "Extract actions from a response without executing them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.parseResponse(cmd, args)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), newParseOutput(res))
		},
	}
}

func (a *app) runCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Extract actions from a response and execute them",
		Long: `Parses the response, then executes its actions in order under the
configured policy. Actions that need confirmation are prompted for on the
terminal unless --yes is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.parseResponse(cmd, args)
			if err != nil {
				return err
			}

			mode, err := orchestrator.ParsePolicyMode(a.cfg.Policy.Mode)
			if err != nil {
				return err
			}

			approver, closeApprover := a.approver(cmd, args, yes)
			defer closeApprover()

			runner := orchestrator.NewRunner(a.executor(), orchestrator.NewRoutingEngine(mode), approver,
				orchestrator.WithLogger(a.logger),
				orchestrator.WithDebugLogger(a.debug))
			outcomes := runner.Run(cmd.Context(), res.Actions)

			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"outcomes":    outcomes,
				"summary":     orchestrator.Summarize(outcomes),
				"diagnostics": newParseOutput(res).Diagnostics,
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Approve every action that needs confirmation")
	return cmd
}

// approver prompts on the controlling terminal. When the response itself
// came from stdin and no terminal is available, nothing is approved.
func (a *app) approver(cmd *cobra.Command, args []string, yes bool) (orchestrator.Approver, func()) {
	if yes {
		return orchestrator.AutoApprove, func() {}
	}

	if len(args) > 0 && args[0] != "-" {
		return orchestrator.NewPromptApprover(cmd.InOrStdin(), cmd.ErrOrStderr()), func() {}
	}

	tty, err := os.Open("/dev/tty")
	if err != nil {
		a.logger.Warn("No terminal for approval prompts; gated actions will be denied", zap.Error(err))
		return orchestrator.DenyAll, func() {}
	}
	return orchestrator.NewPromptApprover(tty, cmd.ErrOrStderr()), func() { _ = tty.Close() }
}

func (a *app) checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <command...>",
		Short: "Report whether a shell command needs confirmation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := strings.Join(args, " ")
			rule, dangerous := a.classifier.Match(command)

			out := map[string]any{"command": command, "dangerous": dangerous}
			if dangerous {
				out["rule"] = rule
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	// Everything after the first word belongs to the checked command, so
	// "check rm -rf /" must not parse -rf as a flag.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func (a *app) cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [file]",
		Short: "Strip reasoning blocks from a response",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), parser.Clean(text))
			return err
		},
	}
}

func (a *app) toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tool definitions offered to models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), tools.DefaultRegistry().Definitions())
		},
	}
}
