package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aicode/internal/config"
	"aicode/internal/debug"
	"aicode/internal/executor"
	"aicode/internal/logging"
	"aicode/internal/orchestrator"
	"aicode/internal/parser"
	"aicode/internal/tools"
)

// app carries state shared by every subcommand once the root has run.
type app struct {
	configPath string
	workDir    string
	policy     string
	logLevel   string

	cfg        *config.Config
	logger     *zap.Logger
	classifier *tools.CommandClassifier
	debug      *debug.DebugLogger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "aicode",
		Short: "Extract, classify and execute actions from LLM responses",
		Long: `aicode turns model responses into file edits, shell commands, reads
and writes, flags dangerous commands and executes approved actions in a
working directory.

Responses are read from a file argument or stdin. Output is JSON.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.debug != nil {
				_ = a.debug.Close()
			}
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "aicode.toml", "Config file (.toml, .yaml or .yml)")
	rootCmd.PersistentFlags().StringVarP(&a.workDir, "workdir", "w", "", "Working directory for actions (default: config or current)")
	rootCmd.PersistentFlags().StringVar(&a.policy, "policy", "", "Approval policy: default, readonly or all")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		a.parseCmd(),
		a.runCmd(),
		a.checkCmd(),
		a.cleanCmd(),
		a.toolsCmd(),
	)

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.workDir != "" {
		cfg.Executor.WorkingDir = a.workDir
	}
	if a.policy != "" {
		cfg.Policy.Mode = a.policy
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if _, err := orchestrator.ParsePolicyMode(cfg.Policy.Mode); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.JSON)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	classifier, err := tools.NewCommandClassifier(cfg.Safety.ExtraPatterns)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.classifier = classifier
	a.debug = debug.NewDebugLogger(cfg.Debug.Enabled, cfg.Debug.LogDir)
	if err := a.debug.StartNewSession(""); err != nil {
		logger.Warn("Failed to start debug session", zap.Error(err))
	}
	return nil
}

func (a *app) dispatcher() *parser.Dispatcher {
	return parser.NewDispatcher(parser.WithClassifier(a.classifier), parser.WithLogger(a.logger))
}

func (a *app) executor() *executor.Executor {
	return executor.New(a.cfg.Executor.WorkingDir,
		executor.WithClassifier(a.classifier),
		executor.WithLogger(a.logger),
		executor.WithDefaultTimeout(time.Duration(a.cfg.Executor.BashTimeoutSeconds)*time.Second))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
