package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/campus-nfc/card-service/internal/config"
	"github.com/campus-nfc/card-service/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:           "cardctl",
	Short:         "Operational commands for the campus card service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// bootstrap loads configuration and builds the logger shared by subcommands.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
