package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectorsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.Decision("native", LabelAllowed)
	c.Decision("native", LabelAllowed)
	c.Decision("opa", LabelDenied)
	c.Routed(LabelBound, 0.001)
	c.Limited("country:list")

	require.Equal(t, 2.0, testutil.ToFloat64(c.Decisions.WithLabelValues("native", LabelAllowed)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.Decisions.WithLabelValues("opa", LabelDenied)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.Routing.WithLabelValues(LabelBound)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.RateLimited.WithLabelValues("country:list")))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestNilCollectorsAreNoop(t *testing.T) {
	var c *Collectors
	c.Decision("native", LabelAllowed)
	c.Routed(LabelBound, 0)
	c.Limited("x")
}
