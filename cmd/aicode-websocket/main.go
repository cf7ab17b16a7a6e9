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
	"aicode/internal/logging"
	"aicode/internal/rpc"
)

type options struct {
	configPath string
	addr       string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "aicode-websocket",
		Short: "Serve the aicode JSON-RPC API over WebSocket",
		Long: `aicode-websocket accepts WebSocket clients on /ws, one JSON-RPC 2.0
session per connection, and reports status on /health.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "aicode.toml", "Config file (.toml, .yaml or .yml)")
	rootCmd.PersistentFlags().StringVar(&opts.addr, "addr", "", "Listen address (default: server.ws_addr)")

	return rootCmd
}

func serve(ctx context.Context, opts *options) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Server.WSAddr = opts.addr
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.JSON)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("WebSocket RPC server starting",
		zap.String("addr", cfg.Server.WSAddr),
		zap.String("working_dir", cfg.Executor.WorkingDir),
		zap.String("policy", cfg.Policy.Mode),
		zap.String("endpoint", "/ws"))

	if err := rpc.NewWebSocketServer(cfg, logger).Run(ctx, cfg.Server.WSAddr); err != nil {
		return fmt.Errorf("websocket server failed: %w", err)
	}

	logger.Info("WebSocket RPC server stopped")
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
