package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/OussamaEt-taghy/soficosmos/internal/config"
	"github.com/OussamaEt-taghy/soficosmos/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Store owns the shared connection pool. Pool is nil when the store wraps a
// caller-provided *sql.DB.
type Store struct {
	Pool *pgxpool.Pool
	SQL  *sql.DB
	DB   *gorm.DB
}

func NewStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		logger.Warn("POSTGRES_DSN not set; starting in no-db mode, tenant routes will answer 503")
		return &Store{}, nil
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	poolCfg.MinConns = int32(cfg.DBMinConns)
	if lifetime := cfg.DBConnMaxLifetime(); lifetime > 0 {
		poolCfg.MaxConnLifetime = lifetime
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.DBConnectTimeout())
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store, err := NewStoreFromDB(stdlib.OpenDBFromPool(pool), logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	store.Pool = pool
	return store, nil
}

// NewStoreFromDB wraps an existing pool, e.g. one opened by another driver.
func NewStoreFromDB(sqlDB *sql.DB, logger *zap.Logger) (*Store, error) {
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 NewGormLogger(logger),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return &Store{SQL: sqlDB, DB: gdb}, nil
}

func (s *Store) Available() bool {
	return s != nil && s.SQL != nil
}

// Session returns a gorm handle whose statements all run on conn.
func (s *Store) Session(ctx context.Context, conn *TenantConn) (*gorm.DB, error) {
	if !s.Available() || s.DB == nil {
		return nil, domain.ErrDBUnavailable
	}
	raw, err := conn.Raw()
	if err != nil {
		return nil, err
	}
	tx := s.DB.Session(&gorm.Session{Context: ctx, NewDB: true})
	tx.Statement.ConnPool = raw
	return tx, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if !s.Available() {
		return domain.ErrDBUnavailable
	}
	return s.SQL.PingContext(ctx)
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.SQL != nil {
		err = s.SQL.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
	return err
}
