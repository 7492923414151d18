// internal/infra/metrics/metrics.go
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"membership_renewal_service/internal/app"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "gym_renewal"

// SweepMetrics records sweep outcomes as Prometheus series.
type SweepMetrics struct {
	SweepsTotal        *prometheus.CounterVec
	SweepsSkipped      prometheus.Counter
	SweepDuration      prometheus.Histogram
	RemindersTotal     *prometheus.CounterVec
	ExpirationsTotal   *prometheus.CounterVec
	LastSweepTimestamp prometheus.Gauge
}

func NewSweepMetrics(reg prometheus.Registerer) *SweepMetrics {
	m := &SweepMetrics{
		SweepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Renewal sweeps executed, by result.",
		}, []string{"result"}),
		SweepsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_skipped_total",
			Help:      "Sweep triggers skipped because another sweep held the guard.",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall-clock duration of renewal sweeps.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800},
		}),
		RemindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_total",
			Help:      "Renewal reminders by outcome.",
		}, []string{"outcome"}),
		ExpirationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expirations_total",
			Help:      "Membership expiry transitions by outcome.",
		}, []string{"outcome"}),
		LastSweepTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sweep_timestamp_seconds",
			Help:      "Unix time the last sweep finished.",
		}),
	}
	reg.MustRegister(m.SweepsTotal, m.SweepsSkipped, m.SweepDuration, m.RemindersTotal, m.ExpirationsTotal, m.LastSweepTimestamp)
	return m
}

// ObserveSweep implements app.SweepRecorder.
func (m *SweepMetrics) ObserveSweep(report *app.SweepReport, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.SweepsTotal.WithLabelValues(result).Inc()
	if report == nil {
		return
	}

	m.SweepDuration.Observe(report.Duration().Seconds())
	m.LastSweepTimestamp.Set(float64(report.FinishedAt.Unix()))

	m.RemindersTotal.WithLabelValues("sent").Add(float64(report.RemindersSent))
	m.RemindersTotal.WithLabelValues("failed").Add(float64(report.ReminderFailures))
	m.RemindersTotal.WithLabelValues("skipped_dedup").Add(float64(report.SkippedDedup))
	m.RemindersTotal.WithLabelValues("skipped_invalid").Add(float64(report.SkippedInvalid))
	m.RemindersTotal.WithLabelValues("not_recorded").Add(float64(report.NotifiedNotRecorded))

	m.ExpirationsTotal.WithLabelValues("expired").Add(float64(report.Expired))
	m.ExpirationsTotal.WithLabelValues("failed").Add(float64(report.ExpireFailures))
	m.ExpirationsTotal.WithLabelValues("already_inactive").Add(float64(report.AlreadyInactive))
}

// ObserveSkipped counts a trigger that found another sweep in progress.
func (m *SweepMetrics) ObserveSkipped() {
	m.SweepsSkipped.Inc()
}

// Server exposes /metrics over HTTP.
type Server struct {
	srv    *http.Server
	logger *logrus.Entry
}

func NewServer(addr string, gatherer prometheus.Gatherer, logger *logrus.Entry) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
	}
}

// Start serves in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.WithField("addr", s.srv.Addr).Info("Metrics server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Metrics server stopped unexpectedly")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
