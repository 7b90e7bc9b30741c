package db

import (
	"context"
	"testing"
	"time"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"
	"github.com/OussamaEt-taghy/soficosmos/internal/tenancy"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newScope(t *testing.T) (*TenantScope, sqlmock.Sqlmock, context.Context) {
	t.Helper()
	sqlDB, mock := newMock(t)
	store, err := NewStoreFromDB(sqlDB, zaptest.NewLogger(t))
	require.NoError(t, err)
	scope := NewTenantScope(NewSchemaRouter(sqlDB), store)

	ctx, release := tenancy.Scope(context.Background())
	t.Cleanup(release)
	tenancy.FromContext(ctx).Set("acme")
	return scope, mock, ctx
}

func TestScopeCurrentSchema(t *testing.T) {
	scope, mock, ctx := newScope(t)
	expectBind(mock, "acme")
	mock.ExpectQuery(`SELECT current_schema\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"current_schema"}).AddRow("acme"))
	expectRelease(mock)

	schema, err := scope.CurrentSchema(ctx)
	require.NoError(t, err)
	require.Equal(t, "acme", schema)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScopeCountriesList(t *testing.T) {
	scope, mock, ctx := newScope(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	expectBind(mock, "acme")
	mock.ExpectQuery(`SELECT \* FROM "country" ORDER BY code`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "description", "created_at", "created_by", "updated_at", "updated_by"}).
			AddRow("8d7f0f8e-8a43-4a57-9d0e-6a8f7a1b2c3d", "MA", "Maroc", "", now, "alice", nil, ""))
	expectRelease(mock)

	var got []domain.Country
	err := scope.Countries(ctx, func(ctx context.Context, repo domain.CountryRepository) error {
		var err error
		got, err = repo.List(ctx)
		return err
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "MA", got[0].Code)
	require.Equal(t, "alice", got[0].CreatedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScopeCountriesGetNotFound(t *testing.T) {
	scope, mock, ctx := newScope(t)
	expectBind(mock, "acme")
	mock.ExpectQuery(`SELECT \* FROM "country" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	expectRelease(mock)

	err := scope.Countries(ctx, func(ctx context.Context, repo domain.CountryRepository) error {
		_, err := repo.Get(ctx, "missing")
		return err
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScopeCountriesExistsByCode(t *testing.T) {
	scope, mock, ctx := newScope(t)
	expectBind(mock, "acme")
	mock.ExpectQuery(`SELECT count\(\*\) FROM "country" WHERE code = \$1 AND id <> \$2`).
		WithArgs("MA", "self").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	expectRelease(mock)

	var exists bool
	err := scope.Countries(ctx, func(ctx context.Context, repo domain.CountryRepository) error {
		var err error
		exists, err = repo.ExistsByCode(ctx, "MA", "self")
		return err
	})
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScopeWithoutStore(t *testing.T) {
	scope := NewTenantScope(NewSchemaRouter(nil), &Store{})
	err := scope.Countries(context.Background(), func(context.Context, domain.CountryRepository) error { return nil })
	require.ErrorIs(t, err, domain.ErrDBUnavailable)
	_, err = scope.CurrentSchema(context.Background())
	require.ErrorIs(t, err, domain.ErrDBUnavailable)
}
