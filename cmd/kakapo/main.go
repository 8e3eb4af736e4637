package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kakapo-ai/kakapo/pkg/config"
	"github.com/kakapo-ai/kakapo/pkg/logging"
	"github.com/spf13/cobra"
)

var version = "dev"

// cli carries the flags and configuration shared by every subcommand.
type cli struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:          "kakapo",
		Short:        "Kakapo expert chatbot API",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(c.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if c.logLevel != "" {
				cfg.Log.Level = c.logLevel
			}
			logging.Setup(cfg.Log.Level, cfg.Log.Pretty)
			c.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "kakapo.yaml", "path to config file (optional)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(c),
		newAskCmd(c),
		newModelsCmd(c),
		newCacheCmd(c),
		newAuditCmd(c),
		newBudgetCmd(c),
		newMCPCmd(c),
	)
	return root
}
