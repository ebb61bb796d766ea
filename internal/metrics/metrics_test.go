package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/weasl/internal/metrics"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))
	require.NoError(t, metrics.Register(reg))
}

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(metrics.TokensIssued.WithLabelValues("sms"))
	metrics.TokensIssued.WithLabelValues("sms").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(metrics.TokensIssued.WithLabelValues("sms")))
}
