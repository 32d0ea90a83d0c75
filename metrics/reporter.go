// Package metrics reports routing quality: how often the requested agent type
// matched the agent that handled the request. Counts are kept in atomics,
// exported as Prometheus collectors and published periodically by a
// background ticker with an explicit Start/Stop lifecycle.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/logging"
)

// DefaultInterval is the default publish period.
const DefaultInterval = 60 * time.Second

// Snapshot is a point-in-time view of the routing counters.
type Snapshot struct {
	Total     uint64  `json:"total"`
	Matched   uint64  `json:"matched"`
	Fallback  uint64  `json:"fallback"`
	MatchRate float64 `json:"match_rate"`
}

// Publisher receives a snapshot on every tick and once more on Stop.
type Publisher interface {
	Publish(s Snapshot)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(s Snapshot)

// Publish implements Publisher.
func (f PublisherFunc) Publish(s Snapshot) { f(s) }

// LogPublisher writes snapshots to a logger.
type LogPublisher struct {
	Logger logging.Logger
}

// Publish implements Publisher.
func (p LogPublisher) Publish(s Snapshot) {
	logging.OrNoOp(p.Logger).Info("metrics.routing",
		"total", s.Total,
		"matched", s.Matched,
		"fallback", s.Fallback,
		"match_rate", s.MatchRate,
	)
}

// Options configure a Reporter.
type Options struct {
	Interval  time.Duration
	Logger    logging.Logger
	Publisher Publisher
	// Registry receives the collectors; a fresh registry is created when nil.
	Registry *prometheus.Registry
	// Namespace prefixes metric names.
	Namespace string
}

// Reporter counts routing outcomes and request results.
type Reporter struct {
	interval  time.Duration
	logger    logging.Logger
	publisher Publisher
	registry  *prometheus.Registry

	total   atomic.Uint64
	matched atomic.Uint64

	routing  *prometheus.CounterVec
	requests *prometheus.CounterVec
	latency  prometheus.Histogram

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
	stopped sync.Once
}

var _ core.RoutingRecorder = (*Reporter)(nil)

// NewReporter creates a reporter and registers its collectors.
func NewReporter(optFns ...func(o *Options)) (*Reporter, error) {
	opts := Options{
		Interval:  DefaultInterval,
		Logger:    logging.NoOpLogger{},
		Namespace: "agentrouter",
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Publisher == nil {
		opts.Publisher = LogPublisher{Logger: opts.Logger}
	}

	r := &Reporter{
		interval:  opts.Interval,
		logger:    logging.OrNoOp(opts.Logger),
		publisher: opts.Publisher,
		registry:  opts.Registry,
		routing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "routing_total",
			Help:      "Routed requests by whether the requested agent type matched.",
		}, []string{"matched"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "requests_total",
			Help:      "Processed requests by outcome.",
		}, []string{"status"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "request_duration_seconds",
			Help:      "End-to-end request processing latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	for _, c := range []prometheus.Collector{r.routing, r.requests, r.latency} {
		if err := r.registry.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// RecordRouting implements core.RoutingRecorder. It never blocks.
func (r *Reporter) RecordRouting(matched bool) {
	r.total.Add(1)
	if matched {
		r.matched.Add(1)
	}
	r.routing.WithLabelValues(strconv.FormatBool(matched)).Inc()
}

// ObserveRequest records the outcome and latency of one processed request.
func (r *Reporter) ObserveRequest(ok bool, d time.Duration) {
	status := "ok"
	if !ok {
		status = "error"
	}
	r.requests.WithLabelValues(status).Inc()
	r.latency.Observe(d.Seconds())
}

// Snapshot returns the current counters.
func (r *Reporter) Snapshot() Snapshot {
	total := r.total.Load()
	matched := r.matched.Load()
	if matched > total { // counters are read separately
		total = matched
	}

	s := Snapshot{Total: total, Matched: matched, Fallback: total - matched}
	if total > 0 {
		s.MatchRate = float64(matched) / float64(total)
	}
	return s
}

// Start launches the background publisher. It returns immediately; calling
// it more than once has no effect. The ticker ends on Stop or when ctx is done.
func (r *Reporter) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return
	}
	r.started = true

	go r.loop(ctx)
}

func (r *Reporter) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Debug("metrics.reporter.started", "interval", r.interval.String())

	for {
		select {
		case <-ticker.C:
			r.publish()
		case <-ctx.Done():
			r.publish()
			return
		case <-r.stop:
			r.publish()
			return
		}
	}
}

// Stop ends the background publisher after a final flush. It is safe to call
// multiple times and without a prior Start.
func (r *Reporter) Stop() {
	r.stopped.Do(func() {
		r.mu.Lock()
		started := r.started
		r.started = true // a later Start must not launch the loop
		r.mu.Unlock()

		close(r.stop)
		if started {
			<-r.done
		} else {
			r.publish()
		}

		r.logger.Debug("metrics.reporter.stopped")
	})
}

func (r *Reporter) publish() {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("metrics.publish.panic", "panic", rec)
		}
	}()
	r.publisher.Publish(r.Snapshot())
}

// Registry returns the Prometheus registry holding the collectors.
func (r *Reporter) Registry() *prometheus.Registry { return r.registry }

// Handler returns an HTTP handler exposing the registry in the Prometheus
// text format.
func (r *Reporter) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
