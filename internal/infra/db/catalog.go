package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func schemaExists(ctx context.Context, q queryer, schema string) (bool, error) {
	query, args, err := psql.Select("1").
		From("information_schema.schemata").
		Where(sq.Eq{"schema_name": schema}).
		ToSql()
	if err != nil {
		return false, err
	}
	var one int
	err = q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SchemaCatalog answers questions about tenant schemas over an admin connection.
type SchemaCatalog struct {
	router *SchemaRouter
}

func NewSchemaCatalog(router *SchemaRouter) *SchemaCatalog {
	return &SchemaCatalog{router: router}
}

// List returns the user schemas, excluding Postgres internals.
func (c *SchemaCatalog) List(ctx context.Context) ([]string, error) {
	conn, err := c.router.AcquireAdminConnection(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query, args, err := psql.Select("schema_name").
		From("information_schema.schemata").
		Where(sq.NotEq{"schema_name": "information_schema"}).
		Where(sq.Expr("schema_name NOT LIKE ?", "pg\\_%")).
		OrderBy("schema_name").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		schemas = append(schemas, name)
	}
	return schemas, rows.Err()
}

// Check reports whether a tenant schema exists, normalizing the name first.
func (c *SchemaCatalog) Check(ctx context.Context, raw string) (domain.TenantID, bool, error) {
	tenant, err := domain.NormalizeTenantID(raw)
	if err != nil {
		return "", false, err
	}
	conn, err := c.router.AcquireAdminConnection(ctx)
	if err != nil {
		return tenant, false, err
	}
	defer conn.Close()
	ok, err := schemaExists(ctx, conn, tenant.String())
	if err != nil {
		return tenant, false, fmt.Errorf("check schema: %w", err)
	}
	return tenant, ok, nil
}
