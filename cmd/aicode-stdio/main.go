package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aicode/internal/config"
	"aicode/internal/debug"
	"aicode/internal/logging"
	"aicode/internal/rpc"
)

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "aicode-stdio",
		Short: "Serve the aicode JSON-RPC API over stdin and stdout",
		Long: `aicode-stdio reads one JSON-RPC 2.0 request per line from stdin and
writes one response per line to stdout. Logs go to stderr.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, configPath)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "aicode.toml", "Config file (.toml, .yaml or .yml)")

	return rootCmd
}

func serve(cmd *cobra.Command, configPath string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	// Logs go to stderr so they don't interfere with the stdio stream
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.JSON)
	if err != nil {
		return err
	}
	defer logger.Sync()

	debugLogger := debug.NewDebugLogger(cfg.Debug.Enabled, cfg.Debug.LogDir)
	defer debugLogger.Close()

	handler, err := rpc.NewHandler(cfg, rpc.WithLogger(logger), rpc.WithDebugLogger(debugLogger))
	if err != nil {
		return err
	}

	logger.Info("RPC server started in stdio mode",
		zap.String("working_dir", cfg.Executor.WorkingDir),
		zap.String("policy", cfg.Policy.Mode))

	ctx := cmd.Context()
	if err := rpc.ServeStdio(ctx, handler, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil && ctx.Err() == nil {
		return err
	}

	logger.Info("RPC server stopped")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
