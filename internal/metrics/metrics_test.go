package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Counters(t *testing.T) {
	m := NewLoader()
	m.ObserveRequest("city", OutcomeSucceeded, 20*time.Millisecond)
	m.ObserveRequest("city", OutcomeFailed, time.Millisecond)
	m.ObserveRequest("city", OutcomeFailed, time.Millisecond)
	m.Deduplicated("all_cities")
	m.StaleCompletion("city_places")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("city", OutcomeSucceeded)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("city", OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deduplicated.WithLabelValues("all_cities")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stale.WithLabelValues("city_places")))
}

func TestLoader_NilIsNoop(t *testing.T) {
	var m *Loader
	assert.NotPanics(t, func() {
		m.ObserveRequest("city", OutcomeSucceeded, time.Second)
		m.Deduplicated("city")
		m.StaleCompletion("city")
	})
	assert.Nil(t, m.Registry())
}

func TestLoader_Handler(t *testing.T) {
	m := NewLoader()
	m.Deduplicated("all_cities")

	srv := httptest.NewServer(m.Handler())
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `cityguide_loader_deduplicated_total{query="all_cities"} 1`)
}
