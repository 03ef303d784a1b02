package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/dcm-project/hpc-marketplace/internal/executor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var executorCmd = &cobra.Command{
	Use:   "executor",
	Short: "Run an execution worker that compiles and runs scheduled jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		runner := executor.NewCompilerRunner(cfg.Executor.WorkDir, cfg.Executor.Compiler, cfg.Executor.RunTimeout)
		agent := executor.NewAgent(executor.AgentConfig{
			ServerURL:    cfg.Executor.ServerURL,
			PollInterval: cfg.Executor.PollInterval,
		}, runner)

		zap.S().Infow("Starting executor", "server", cfg.Executor.ServerURL)
		if err := agent.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	executorCmd.Flags().String("server-url", "", "marketplace base URL (overrides EXECUTOR_SERVER_URL)")
}
