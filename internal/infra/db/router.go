package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"
	"github.com/OussamaEt-taghy/soficosmos/internal/infra/metrics"
	"github.com/OussamaEt-taghy/soficosmos/internal/tenancy"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type ConnState int

const (
	StatePooled ConnState = iota
	StateSchemaValidated
	StateSchemaBound
	StateInUse
	StateReleased
	StateRejected
)

func (s ConnState) String() string {
	switch s {
	case StatePooled:
		return "pooled"
	case StateSchemaValidated:
		return "schema_validated"
	case StateSchemaBound:
		return "schema_bound"
	case StateInUse:
		return "in_use"
	case StateReleased:
		return "released"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

const tracerName = "github.com/OussamaEt-taghy/soficosmos/internal/infra/db"

var errConnReleased = errors.New("tenant connection already released")

// TenantConn is a pooled connection whose search_path points at one tenant.
type TenantConn struct {
	mu     sync.Mutex
	conn   *sql.Conn
	tenant domain.TenantID
	state  ConnState
}

func (c *TenantConn) Tenant() domain.TenantID {
	return c.tenant
}

func (c *TenantConn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Raw hands out the bound connection. It fails once the connection is released.
func (c *TenantConn) Raw() (*sql.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateSchemaBound:
		c.state = StateInUse
	case StateInUse:
	default:
		return nil, errConnReleased
	}
	return c.conn, nil
}

type SchemaRouter struct {
	db       *sql.DB
	fallback domain.TenantID
	metrics  *metrics.Collectors
	logger   *zap.Logger
	tracer   trace.Tracer
}

type RouterOption func(*SchemaRouter)

func WithRouterMetrics(c *metrics.Collectors) RouterOption {
	return func(r *SchemaRouter) { r.metrics = c }
}

func WithRouterLogger(logger *zap.Logger) RouterOption {
	return func(r *SchemaRouter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRouterTracer records routing spans on tp instead of the global provider.
func WithRouterTracer(tp trace.TracerProvider) RouterOption {
	return func(r *SchemaRouter) {
		if tp != nil {
			r.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithDefaultTenant sets the schema used outside any request.
func WithDefaultTenant(tenant domain.TenantID) RouterOption {
	return func(r *SchemaRouter) {
		if !tenant.IsZero() {
			r.fallback = tenant
		}
	}
}

func NewSchemaRouter(db *sql.DB, opts ...RouterOption) *SchemaRouter {
	r := &SchemaRouter{
		db:       db,
		fallback: domain.DefaultTenant,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *SchemaRouter) DefaultTenant() domain.TenantID {
	return r.fallback
}

// AcquireConnection checks out a connection, verifies the tenant schema exists
// and binds the search_path to it. A missing schema returns the connection to
// the pool before failing.
func (r *SchemaRouter) AcquireConnection(ctx context.Context, tenant domain.TenantID) (_ *TenantConn, err error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "tenancy.AcquireConnection")
	defer func() {
		outcome := routingOutcome(err)
		r.metrics.Routed(outcome, time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	if tenant.IsZero() {
		return nil, domain.ErrTenantNotResolved
	}
	tenant, err = domain.NormalizeTenantID(tenant.String())
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("tenant", tenant.String()))
	if r.db == nil {
		return nil, domain.ErrDBUnavailable
	}
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDBUnavailable, err)
	}
	tc := &TenantConn{conn: conn, tenant: tenant, state: StatePooled}

	ok, err := schemaExists(ctx, conn, tenant.String())
	if err != nil {
		tc.reject()
		return nil, fmt.Errorf("%w: schema lookup: %v", domain.ErrDBUnavailable, err)
	}
	if !ok {
		tc.reject()
		r.logger.Warn("tenant schema not found", zap.String("tenant", tenant.String()))
		return nil, &domain.SchemaNotFoundError{Schema: tenant.String()}
	}
	tc.state = StateSchemaValidated

	if _, err := conn.ExecContext(ctx, "SET search_path TO "+pgx.Identifier{tenant.String()}.Sanitize()); err != nil {
		tc.reject()
		return nil, fmt.Errorf("%w: set search_path: %v", domain.ErrDBUnavailable, err)
	}
	tc.state = StateSchemaBound
	r.logger.Debug("tenant connection bound", zap.String("tenant", tenant.String()))
	return tc, nil
}

// AcquireCurrent routes to the tenant of the request carried by ctx, or to the
// default tenant when ctx belongs to no request.
func (r *SchemaRouter) AcquireCurrent(ctx context.Context) (*TenantConn, error) {
	tenant, err := tenancy.Current(ctx, r.fallback)
	if err != nil {
		r.metrics.Routed(metrics.LabelUnresolved, 0)
		return nil, err
	}
	return r.AcquireConnection(ctx, tenant)
}

// ReleaseConnection resets the search_path and returns the connection to the
// pool. It is safe to call more than once. When the reset fails the physical
// connection is discarded so no other tenant can inherit the binding.
func (r *SchemaRouter) ReleaseConnection(tc *TenantConn) error {
	if tc == nil {
		return nil
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.state == StateReleased || tc.state == StateRejected {
		return nil
	}
	tc.state = StateReleased

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctx, span := r.tracer.Start(ctx, "tenancy.ReleaseConnection",
		trace.WithAttributes(attribute.String("tenant", tc.tenant.String())))
	defer span.End()
	var errs error
	if _, err := tc.conn.ExecContext(ctx, "RESET search_path"); err != nil {
		r.logger.Warn("reset search_path failed; discarding connection",
			zap.String("tenant", tc.tenant.String()), zap.Error(err))
		errs = multierr.Append(errs, fmt.Errorf("reset search_path: %w", err))
		_ = tc.conn.Raw(func(any) error { return driver.ErrBadConn })
	}
	if err := tc.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		errs = multierr.Append(errs, fmt.Errorf("close connection: %w", err))
	}
	if errs != nil {
		span.RecordError(errs)
		span.SetStatus(codes.Error, "release failed")
	}
	return errs
}

// AcquireAdminConnection returns an unbound connection for catalog work.
func (r *SchemaRouter) AcquireAdminConnection(ctx context.Context) (*sql.Conn, error) {
	if r.db == nil {
		return nil, domain.ErrDBUnavailable
	}
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDBUnavailable, err)
	}
	return conn, nil
}

// WithTenantConn acquires a connection for the current tenant, runs fn and
// always releases the connection, including when fn panics.
func (r *SchemaRouter) WithTenantConn(ctx context.Context, fn func(ctx context.Context, conn *TenantConn) error) (err error) {
	conn, err := r.AcquireCurrent(ctx)
	if err != nil {
		return err
	}
	defer func() {
		multierr.AppendInto(&err, r.ReleaseConnection(conn))
	}()
	return fn(ctx, conn)
}

func (c *TenantConn) reject() {
	c.state = StateRejected
	_ = c.conn.Close()
}

func routingOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.LabelBound
	case errors.Is(err, domain.ErrSchemaNotFound):
		return metrics.LabelSchemaNotFound
	case errors.Is(err, domain.ErrTenantNotResolved):
		return metrics.LabelUnresolved
	case errors.Is(err, domain.ErrInvalidTenant):
		return metrics.LabelInvalid
	default:
		return metrics.LabelUnavailable
	}
}
