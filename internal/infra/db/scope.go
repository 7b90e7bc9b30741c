package db

import (
	"context"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"
)

// TenantScope hands out repositories bound to the current tenant's schema for
// the duration of one callback.
type TenantScope struct {
	router *SchemaRouter
	store  *Store
}

func NewTenantScope(router *SchemaRouter, store *Store) *TenantScope {
	return &TenantScope{router: router, store: store}
}

func (s *TenantScope) Countries(ctx context.Context, fn func(ctx context.Context, repo domain.CountryRepository) error) error {
	if !s.store.Available() {
		return domain.ErrDBUnavailable
	}
	return s.router.WithTenantConn(ctx, func(ctx context.Context, conn *TenantConn) error {
		session, err := s.store.Session(ctx, conn)
		if err != nil {
			return err
		}
		return fn(ctx, NewCountryRepository(session))
	})
}

// CurrentSchema reports the schema the routed connection is bound to.
func (s *TenantScope) CurrentSchema(ctx context.Context) (string, error) {
	if !s.store.Available() {
		return "", domain.ErrDBUnavailable
	}
	var schema string
	err := s.router.WithTenantConn(ctx, func(ctx context.Context, conn *TenantConn) error {
		raw, err := conn.Raw()
		if err != nil {
			return err
		}
		return raw.QueryRowContext(ctx, "SELECT current_schema()").Scan(&schema)
	})
	return schema, err
}
