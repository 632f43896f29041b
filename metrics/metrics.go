// Package metrics instruments snapshot pipelines with Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jettison/panopticon/engine"
	"github.com/jettison/panopticon/libdiff"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "panopticon"

// snapshot results
const (
	ResultOK      = "ok"
	ResultPartial = "partial"
	ResultStale   = "stale"
	ResultFatal   = "fatal"
)

// Pipeline holds the metrics of a snapshot pipeline.
type Pipeline struct {
	Snapshots    *prometheus.CounterVec
	Dropped      prometheus.Counter
	Patches      *prometheus.CounterVec
	Missing      prometheus.Gauge
	Process      prometheus.Histogram
	Synchronized prometheus.Gauge
	Reloads      *prometheus.CounterVec
}

// New registers the pipeline metrics with reg.  A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Pipeline {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Pipeline{
		Snapshots: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Snapshots processed, by result",
		}, []string{"result"}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_dropped_total",
			Help:      "Snapshots superseded before they could be processed",
		}),
		Patches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patches_total",
			Help:      "Patches emitted, by operation",
		}, []string{"op"}),
		Missing: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "missing_fields",
			Help:      "Fields missing from the last snapshot",
		}),
		Process: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_seconds",
			Help:      "Time to decode, format and diff one snapshot",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		Synchronized: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "engine_synchronized",
			Help:      "1 when the displayed tree reflects the last good snapshot",
		}),
		Reloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_reloads_total",
			Help:      "Schema reloads, by result",
		}, []string{"result"}),
	}
}

// ObserveBatch records a processed batch.
func (p *Pipeline) ObserveBatch(b *engine.Batch, d time.Duration) {
	result := ResultOK
	if len(b.Missing) != 0 {
		result = ResultPartial
	}
	p.Snapshots.WithLabelValues(result).Inc()
	p.Process.Observe(d.Seconds())
	p.Missing.Set(float64(len(b.Missing)))
	var sets, builds, states int
	for i := range b.Patches {
		switch b.Patches[i].Op {
		case libdiff.SetValue:
			sets++
		case libdiff.Build:
			builds++
		case libdiff.SetState:
			states++
		}
	}
	p.Patches.WithLabelValues(libdiff.SetValue.String()).Add(float64(sets))
	p.Patches.WithLabelValues(libdiff.Build.String()).Add(float64(builds))
	p.Patches.WithLabelValues(libdiff.SetState.String()).Add(float64(states))
}

// ObserveRejected records a snapshot the engine refused; result is
// ResultStale or ResultFatal.
func (p *Pipeline) ObserveRejected(result string) {
	p.Snapshots.WithLabelValues(result).Inc()
}

func (p *Pipeline) ObserveDropped(n int) {
	p.Dropped.Add(float64(n))
}

func (p *Pipeline) ObserveState(s engine.State) {
	if s == engine.Synchronized {
		p.Synchronized.Set(1)
	} else {
		p.Synchronized.Set(0)
	}
}

func (p *Pipeline) ObserveReload(err error) {
	if err != nil {
		p.Reloads.WithLabelValues("error").Inc()
		return
	}
	p.Reloads.WithLabelValues("ok").Inc()
}

// Serve exposes the metrics gathered by g on addr under /metrics until
// ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	stop := context.AfterFunc(ctx, func() {
		sctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(sctx)
	})
	defer stop()
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
