package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector("test")

	c.MatchRequests.Inc()
	c.MatchRequests.Inc()
	c.CacheHits.Inc()
	c.ActiveConversations.Inc()
	c.ActiveConversations.Dec()
	c.Executions.WithLabelValues("success").Inc()
	c.Executions.WithLabelValues("error").Inc()
	c.Executions.WithLabelValues("success").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.MatchRequests))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheHits))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.ActiveConversations))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Executions.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Executions.WithLabelValues("error")))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("test")
	b := NewCollector("test")

	a.MatchRequests.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.MatchRequests))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.MatchRequests))
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestRegistryGathersAllInstruments(t *testing.T) {
	c := NewCollector("test")
	c.MatchRequests.Inc()

	families, err := c.Registry().Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_match_requests_total")
}
