package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"
	"github.com/OussamaEt-taghy/soficosmos/internal/infra/auth/rbac"
	"github.com/OussamaEt-taghy/soficosmos/internal/infra/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	opList   = Op("country", "list")
	opCreate = Op("country", "create")
	opHealth = Op("health", "get")
)

func newInterceptor(t *testing.T, decider domain.Decider, c *metrics.Collectors) *Interceptor {
	t.Helper()
	registry := NewRegistry().
		Resource("country", domain.Require(domain.OperatorOr, "show_country")).
		Method(opCreate, domain.Require(domain.OperatorAnd, "manage_country"))
	i, err := NewInterceptor(registry, decider, nil, WithLogger(zaptest.NewLogger(t)), WithMetrics(c))
	require.NoError(t, err)
	return i
}

func callerCtx(subject string, perms []any) context.Context {
	return domain.WithPrincipal(context.Background(), domain.Principal{
		Subject: subject,
		RawClaims: map[string]any{
			"sub":          subject,
			"organization": "acme",
			"autorisation": perms,
			"group_permissions": map[string]any{
				"show_country":   []any{"read_country"},
				"manage_country": []any{"read_country", "write_country"},
			},
		},
	})
}

func TestRegistryMethodOverridesResource(t *testing.T) {
	registry := NewRegistry().
		Resource("country", domain.Require(domain.OperatorOr, "show_country")).
		Method(opCreate, domain.Require(domain.OperatorAnd, "manage_country"))

	req, ok := registry.Lookup(opList)
	require.True(t, ok)
	require.Equal(t, []string{"show_country"}, req.Groups)

	req, ok = registry.Lookup(opCreate)
	require.True(t, ok)
	require.Equal(t, domain.OperatorAnd, req.Operator)

	_, ok = registry.Lookup(opHealth)
	require.False(t, ok)
}

func TestCheck(t *testing.T) {
	ic := newInterceptor(t, rbac.NewEngine(), nil)

	require.NoError(t, ic.Check(callerCtx("u1", []any{"read_country"}), opList))

	err := ic.Check(callerCtx("u1", []any{"read_country"}), opCreate)
	denied, ok := domain.IsPermissionDenied(err)
	require.True(t, ok)
	require.Equal(t, []string{"manage_country"}, denied.Groups)
	require.Equal(t, domain.OperatorAnd, denied.Operator)
	require.NotContains(t, err.Error(), "read_country")

	require.NoError(t, ic.Check(callerCtx("u1", []any{"read_country", "write_country"}), opCreate))
}

func TestCheckAnonymous(t *testing.T) {
	ic := newInterceptor(t, rbac.NewEngine(), nil)

	err := ic.Check(context.Background(), opList)
	require.ErrorIs(t, err, domain.ErrAuthenticationRequired)

	err = ic.Check(callerCtx("", []any{"read_country"}), opList)
	require.ErrorIs(t, err, domain.ErrAuthenticationRequired)

	// Unguarded operations never look at the caller.
	require.NoError(t, ic.Check(context.Background(), opHealth))
}

type failingDecider struct{}

func (failingDecider) Decide(context.Context, domain.DecisionInput) (domain.AuthorizationDecision, error) {
	return domain.AuthorizationDecision{}, errors.New("policy unavailable")
}

func TestCheckDeciderFailure(t *testing.T) {
	c := metrics.New(prometheus.NewRegistry())
	ic := newInterceptor(t, failingDecider{}, c)

	err := ic.Check(callerCtx("u1", []any{"read_country"}), opList)
	require.Error(t, err)
	_, denied := domain.IsPermissionDenied(err)
	require.False(t, denied)
	require.Equal(t, 1.0, testutil.ToFloat64(c.Decisions.WithLabelValues("native", metrics.LabelError)))
}

func TestInvoke(t *testing.T) {
	ic := newInterceptor(t, rbac.NewEngine(), nil)
	called := false
	fn := func(context.Context) (string, error) {
		called = true
		return "ok", nil
	}

	_, err := Invoke(callerCtx("u1", nil), ic, opList, fn)
	require.ErrorIs(t, err, domain.ErrPermissionDenied)
	require.False(t, called)

	got, err := Invoke(callerCtx("u1", []any{"read_country"}), ic, opList, fn)
	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.True(t, called)
}

func TestNewInterceptorRequiresDecider(t *testing.T) {
	i, err := NewInterceptor(NewRegistry(), nil, nil)
	require.ErrorIs(t, err, ErrNoDecider)
	require.Nil(t, i)

	i, err = NewInterceptor(nil, rbac.NewEngine(), nil)
	require.NoError(t, err)
	require.NoError(t, i.Check(context.Background(), opList), "a nil registry guards nothing")
}
