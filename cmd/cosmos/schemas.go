package main

import (
	"errors"
	"fmt"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"
	"github.com/OussamaEt-taghy/soficosmos/internal/infra/db"

	"github.com/spf13/cobra"
)

func (c *cli) schemasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "Inspect tenant schemas",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List tenant schemas",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.withCatalog(cmd, func(catalog *db.SchemaCatalog) error {
					schemas, err := catalog.List(cmd.Context())
					if err != nil {
						return err
					}
					for _, name := range schemas {
						fmt.Fprintln(cmd.OutOrStdout(), name)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "check <tenant>",
			Short: "Check that a tenant schema exists",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withCatalog(cmd, func(catalog *db.SchemaCatalog) error {
					tenant, ok, err := catalog.Check(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if !ok {
						return &domain.SchemaNotFoundError{Schema: tenant.String()}
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", tenant)
					return nil
				})
			},
		},
	)
	return cmd
}

func (c *cli) withCatalog(cmd *cobra.Command, fn func(*db.SchemaCatalog) error) error {
	store, err := db.NewStore(cmd.Context(), c.cfg, c.logger)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()
	if !store.Available() {
		return errors.New("schemas: postgres_dsn is not configured")
	}
	router := db.NewSchemaRouter(store.SQL, db.WithRouterLogger(c.logger))
	return fn(db.NewSchemaCatalog(router))
}
