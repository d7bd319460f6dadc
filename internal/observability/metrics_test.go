package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetricsRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := InitMetrics(reg)
	require.NoError(t, err)
	require.NotNil(t, m)

	m.BatchesTotal.WithLabelValues("ok").Inc()
	m.ItemsTotal.WithLabelValues("uploaded").Add(3)
	m.BytesTotal.Add(1024)
	m.BatchDuration.Observe(0.25)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)
}

func TestInitMetricsTolerateDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := InitMetrics(reg)
	require.NoError(t, err)

	m, err := InitMetrics(reg)
	require.NoError(t, err)
	assert.NotNil(t, m)
}
