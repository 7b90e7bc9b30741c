package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OussamaEt-taghy/soficosmos/internal/infra/db"
	httpinfra "github.com/OussamaEt-taghy/soficosmos/internal/infra/http"
	"github.com/OussamaEt-taghy/soficosmos/internal/infra/tracing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tp, err := tracing.NewProvider(c.cfg, os.Stdout)
			if err != nil {
				return err
			}
			shutdownTracing := tracing.Install(tp)
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTracing(flushCtx); err != nil {
					c.logger.Warn("flush traces", zap.Error(err))
				}
			}()

			store, err := db.NewStore(ctx, c.cfg, c.logger)
			if err != nil {
				return fmt.Errorf("init store: %w", err)
			}
			defer store.Close()
			if !store.Available() {
				c.logger.Warn("no postgres dsn configured, tenant routes will answer 503")
			}

			srv := httpinfra.NewServer(ctx, c.cfg, store, c.logger)
			if err := srv.Run(ctx); err != nil {
				return fmt.Errorf("server exited: %w", err)
			}
			c.logger.Info("server stopped", zap.String("addr", c.cfg.HTTPAddr))
			return nil
		},
	}
}
