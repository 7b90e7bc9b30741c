package main

import (
	"fmt"
	"os"

	"github.com/OussamaEt-taghy/soficosmos/internal/config"
	"github.com/OussamaEt-taghy/soficosmos/internal/infra/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type cli struct {
	configPath string
	cfg        config.Config
	logger     *zap.Logger
}

func run(args []string) int {
	c := &cli{}
	root := c.rootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func (c *cli) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cosmos",
		Short:         "Multi-tenant reference data service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (yaml, json or toml); env vars override it")
	cmd.AddCommand(c.serveCmd(), c.schemasCmd())
	return cmd
}

func (c *cli) init() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logger
	return nil
}
