package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"
	"github.com/OussamaEt-taghy/soficosmos/internal/infra/auth/claims"
	"github.com/OussamaEt-taghy/soficosmos/internal/infra/metrics"

	"go.uber.org/zap"
)

type Interceptor struct {
	registry  *Registry
	decider   domain.Decider
	extractor *claims.Extractor
	engine    string
	metrics   *metrics.Collectors
	logger    *zap.Logger
}

type Option func(*Interceptor)

func WithMetrics(c *metrics.Collectors) Option {
	return func(i *Interceptor) { i.metrics = c }
}

func WithLogger(logger *zap.Logger) Option {
	return func(i *Interceptor) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithEngineName labels decisions in metrics and logs.
func WithEngineName(name string) Option {
	return func(i *Interceptor) { i.engine = name }
}

var ErrNoDecider = errors.New("guard: decider is required")

// NewInterceptor fails without a decider. A nil registry guards nothing and a
// nil extractor reads the default claim names.
func NewInterceptor(registry *Registry, decider domain.Decider, extractor *claims.Extractor, opts ...Option) (*Interceptor, error) {
	if decider == nil {
		return nil, ErrNoDecider
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if extractor == nil {
		extractor = claims.NewExtractor()
	}
	i := &Interceptor{
		registry:  registry,
		decider:   decider,
		extractor: extractor,
		engine:    "native",
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Check lets op proceed or returns ErrAuthenticationRequired, a
// *domain.PermissionDeniedError, or a decider failure.
func (i *Interceptor) Check(ctx context.Context, op Operation) error {
	req, ok := i.registry.Lookup(op)
	if !ok {
		return nil
	}
	principal, _ := domain.PrincipalFromContext(ctx)
	if !principal.Authenticated() {
		i.logger.Debug("anonymous caller on guarded operation", zap.Stringer("operation", op))
		return domain.ErrAuthenticationRequired
	}

	input := domain.DecisionInput{
		Permissions: i.extractor.Permissions(principal.RawClaims),
		Groups:      i.extractor.Groups(principal.RawClaims),
		Requirement: req,
	}
	decision, err := i.decider.Decide(ctx, input)
	if err != nil {
		i.metrics.Decision(i.engine, metrics.LabelError)
		i.logger.Error("authorization decision failed",
			zap.Stringer("operation", op),
			zap.String("engine", i.engine),
			zap.Error(err))
		return fmt.Errorf("authorize %s: %w", op, err)
	}
	if !decision.Allowed {
		i.metrics.Decision(i.engine, metrics.LabelDenied)
		i.logger.Info("permission denied",
			zap.Stringer("operation", op),
			zap.String("subject", principal.Subject),
			zap.Strings("groups", req.NormalizedGroups()),
			zap.String("operator", string(req.Operator)))
		return domain.NewPermissionDenied(req)
	}
	i.metrics.Decision(i.engine, metrics.LabelAllowed)
	i.logger.Debug("permission granted",
		zap.Stringer("operation", op),
		zap.String("subject", principal.Subject),
		zap.String("group", decision.Group))
	return nil
}

// Invoke runs fn only when the caller may perform op.
func Invoke[T any](ctx context.Context, i *Interceptor, op Operation, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := i.Check(ctx, op); err != nil {
		return zero, err
	}
	return fn(ctx)
}
