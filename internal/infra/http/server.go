package http

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/OussamaEt-taghy/soficosmos/internal/config"
	"github.com/OussamaEt-taghy/soficosmos/internal/domain"
	"github.com/OussamaEt-taghy/soficosmos/internal/infra/auth/claims"
	"github.com/OussamaEt-taghy/soficosmos/internal/infra/auth/guard"
	"github.com/OussamaEt-taghy/soficosmos/internal/infra/auth/rbac"
	"github.com/OussamaEt-taghy/soficosmos/internal/infra/db"
	"github.com/OussamaEt-taghy/soficosmos/internal/infra/metrics"
	"github.com/OussamaEt-taghy/soficosmos/internal/infra/policyopa"
	"github.com/OussamaEt-taghy/soficosmos/internal/infra/ratelimit"
	"github.com/OussamaEt-taghy/soficosmos/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type TenantInfo interface {
	CurrentSchema(ctx context.Context) (string, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	cfg    config.Config
	store  *db.Store
	r      *gin.Engine
	logger *zap.Logger
	now    func() time.Time

	decoder    *claims.Decoder
	extractor  *claims.Extractor
	guard      *guard.Interceptor
	countries  *usecase.CountryService
	tenantInfo TenantInfo
	health     HealthChecker

	metrics  *metrics.Collectors
	gatherer prometheus.Gatherer
	tracer   trace.Tracer

	rateLimiter          domain.RateLimiter
	rateLimitRequests    int
	rateLimitWindow      time.Duration
	rateLimitWithSubject bool
	rateLimitFailClosed  bool

	initErr error
}

// NewServer wires the server against a store. A store without a pool starts
// in no-db mode: tenant routes answer 503.
func NewServer(ctx context.Context, cfg config.Config, store *db.Store, logger *zap.Logger) *Server {
	s := &Server{cfg: cfg, store: store}
	s.initDeps(ctx, logger)
	s.routes()
	return s
}

type ServerDeps struct {
	Logger      *zap.Logger
	Countries   *usecase.CountryService
	TenantInfo  TenantInfo
	Health      HealthChecker
	Decider     domain.Decider
	RateLimiter domain.RateLimiter
	Registerer  prometheus.Registerer
	Gatherer    prometheus.Gatherer
	Tracer      trace.TracerProvider
	Now         func() time.Time
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	s := &Server{
		cfg:        cfg,
		logger:     deps.Logger,
		now:        deps.Now,
		countries:  deps.Countries,
		tenantInfo: deps.TenantInfo,
		health:     deps.Health,
		gatherer:   deps.Gatherer,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.metrics = metrics.New(deps.Registerer)
	s.tracer = newTracer(deps.Tracer)
	decider := deps.Decider
	if decider == nil {
		decider = rbac.NewEngine()
	}
	s.initAuth(decider, engineName(cfg))
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initDeps(ctx context.Context, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s.logger = logger
	s.now = time.Now

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = metrics.New(reg)
	s.gatherer = reg
	s.tracer = newTracer(nil)

	sqlDB := s.storeSQL()
	router := db.NewSchemaRouter(sqlDB,
		db.WithDefaultTenant(domain.TenantID(s.cfg.DefaultTenant)),
		db.WithRouterMetrics(s.metrics),
		db.WithRouterLogger(logger),
	)
	scope := db.NewTenantScope(router, s.store)
	s.countries = usecase.NewCountryService(scope)
	s.tenantInfo = scope
	if s.store.Available() {
		s.health = s.store
	}

	decider, err := newDecider(ctx, s.cfg)
	if err != nil {
		s.initErr = err
		decider = rbac.NewEngine()
	}
	s.initAuth(decider, engineName(s.cfg))

	limiter, err := ratelimit.FromConfig(s.cfg)
	if err != nil {
		s.initErr = errors.Join(s.initErr, err)
	}
	s.initRateLimit(limiter)
}

func newTracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer("github.com/OussamaEt-taghy/soficosmos/internal/infra/http")
}

func (s *Server) storeSQL() *sql.DB {
	if !s.store.Available() {
		return nil
	}
	return s.store.SQL
}

func newDecider(ctx context.Context, cfg config.Config) (domain.Decider, error) {
	switch cfg.AuthzEngine {
	case "", config.AuthzEngineNative:
		return rbac.NewEngine(), nil
	case config.AuthzEngineOPA:
		engine, err := policyopa.NewEngine(ctx)
		if err != nil {
			return nil, fmt.Errorf("init opa engine: %w", err)
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("unsupported authz engine %q", cfg.AuthzEngine)
	}
}

func engineName(cfg config.Config) string {
	if cfg.AuthzEngine == "" {
		return config.AuthzEngineNative
	}
	return cfg.AuthzEngine
}

func (s *Server) initAuth(decider domain.Decider, engine string) {
	s.decoder = claims.NewDecoder()
	s.extractor = claims.NewExtractor(
		claims.WithTenantClaim(s.cfg.TenantClaim),
		claims.WithPermissionsClaim(s.cfg.PermissionsClaim),
		claims.WithGroupsClaim(s.cfg.GroupsClaim),
	)
	interceptor, err := guard.NewInterceptor(Permissions(), decider, s.extractor,
		guard.WithEngineName(engine),
		guard.WithMetrics(s.metrics),
		guard.WithLogger(s.logger),
	)
	if err != nil {
		s.initErr = errors.Join(s.initErr, err)
		return
	}
	s.guard = interceptor
}

func (s *Server) initRateLimit(limiter domain.RateLimiter) {
	s.rateLimiter = limiter
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = s.cfg.RateLimitWindow()
	s.rateLimitWithSubject = s.cfg.RateLimitIncludeSubject
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	r := gin.New()
	r.Use(s.recovery(), s.accessLog())
	s.r = r

	r.GET("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("", s.tenantScope(), s.tenantResolution())
	api.GET("/v1/tenant", s.rateLimit("tenant:get"), s.handleTenant)

	countries := api.Group("/loc-apis/country")
	s.handle(countries, http.MethodGet, "", opCountryList, s.handleListCountries)
	s.handle(countries, http.MethodGet, "/:id", opCountryGet, s.handleGetCountry)
	s.handle(countries, http.MethodPost, "", opCountryCreate, s.handleCreateCountry)
	s.handle(countries, http.MethodPut, "/:id", opCountryUpdate, s.handleUpdateCountry)
	s.handle(countries, http.MethodDelete, "/:id", opCountryDelete, s.handleDeleteCountry)

	r.NoRoute(func(c *gin.Context) {
		s.writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
}

func (s *Server) handle(g *gin.RouterGroup, method, path string, op guard.Operation, h gin.HandlerFunc) {
	g.Handle(method, path, s.rateLimit(op.String()), s.guarded(op), h)
}

func (s *Server) Handler() http.Handler {
	return s.r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	if s.initErr != nil {
		return s.initErr
	}
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
