package main

import (
	"fmt"

	"github.com/dcm-project/hpc-marketplace/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "hpc-marketplace",
	Short:         "Competitive-bidding marketplace for HPC compute jobs",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(serveCmd, executorCmd)
}

// loadConfig reads the environment and applies any flag that was set explicitly.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	overrides := map[string]*string{
		"address":    &cfg.Service.Address,
		"db-type":    &cfg.Database.Type,
		"db-dsn":     &cfg.Database.DSN,
		"server-url": &cfg.Executor.ServerURL,
	}
	for name, dest := range overrides {
		if flag := flags.Lookup(name); flag != nil && flag.Changed {
			*dest = flag.Value.String()
		}
	}

	if err := setLogLevel(cfg.Service.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setLogLevel(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = lvl
	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return nil
}
