package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"membership_renewal_service/internal/app"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepMetrics_ObserveSweep(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSweepMetrics(reg)
	start := time.Date(2026, 5, 4, 6, 0, 0, 0, time.UTC)

	m.ObserveSweep(&app.SweepReport{
		StartedAt:        start,
		FinishedAt:       start.Add(2 * time.Second),
		RemindersSent:    3,
		ReminderFailures: 1,
		SkippedDedup:     4,
		Expired:          2,
	}, nil)
	m.ObserveSweep(&app.SweepReport{StartedAt: start, FinishedAt: start}, errors.New("pass failed"))
	m.ObserveSkipped()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepsSkipped))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RemindersTotal.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemindersTotal.WithLabelValues("failed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RemindersTotal.WithLabelValues("skipped_dedup")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ExpirationsTotal.WithLabelValues("expired")))
	assert.Equal(t, float64(start.Unix()), testutil.ToFloat64(m.LastSweepTimestamp))
}

func TestSweepMetrics_Endpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSweepMetrics(reg)
	m.ObserveSkipped()

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "gym_renewal_sweeps_skipped_total 1")
}

var _ app.SweepRecorder = (*SweepMetrics)(nil)
