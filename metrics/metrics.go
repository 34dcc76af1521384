package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Dosada05/court-scheduler/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	AttrOperation  = "operation"
	AttrOutcome    = "outcome"
	AttrTournament = "tournament_id"
	AttrBracket    = "bracket_id"

	OutcomeOK = "ok"
)

// Recorder exposes scheduler and realtime metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	operations  *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	queued      *prometheus.GaugeVec
	connections prometheus.Gauge
	dropped     prometheus.Counter
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "court_scheduler",
			Name:      "operations_total",
			Help:      "Scheduler operations by outcome.",
		}, []string{AttrOperation, AttrOutcome}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "court_scheduler",
			Name:      "operation_duration_seconds",
			Help:      "Time spent in scheduler operations, including the bracket lock.",
			Buckets:   prometheus.DefBuckets,
		}, []string{AttrOperation}),
		queued: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "court_scheduler",
			Name:      "queued_matches",
			Help:      "Matches waiting in the queue per bracket.",
		}, []string{AttrTournament, AttrBracket}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "court_scheduler",
			Name:      "realtime_connections",
			Help:      "Open realtime connections.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "court_scheduler",
			Name:      "realtime_dropped_messages_total",
			Help:      "Messages dropped because a viewer could not keep up.",
		}),
	}
	reg.MustRegister(
		r.operations, r.durations, r.queued, r.connections, r.dropped,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveOperation records one scheduler operation. outcome is "ok" or an
// error code.
func (r *Recorder) ObserveOperation(op, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(op, outcome).Inc()
	r.durations.WithLabelValues(op).Observe(d.Seconds())
}

func (r *Recorder) ObserveQueue(key models.BracketKey, queued int) {
	if r == nil {
		return
	}
	r.queued.WithLabelValues(strconv.Itoa(key.TournamentID), strconv.Itoa(key.BracketID)).Set(float64(queued))
}

func (r *Recorder) ConnectionOpened() {
	if r == nil {
		return
	}
	r.connections.Inc()
}

func (r *Recorder) ConnectionClosed() {
	if r == nil {
		return
	}
	r.connections.Dec()
}

func (r *Recorder) MessageDropped(string) {
	if r == nil {
		return
	}
	r.dropped.Inc()
}
