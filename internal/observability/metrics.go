// Package observability exposes render loop metrics to Prometheus.
package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// RenderCollector bundles Prometheus metrics for the render loop. A nil
// collector is valid and records nothing.
type RenderCollector struct {
	gatherer prometheus.Gatherer

	Ticks        prometheus.Counter
	Passes       *prometheus.CounterVec
	PassDuration prometheus.Histogram
	Entities     *prometheus.GaugeVec
	Issues       *prometheus.CounterVec
	Clicks       *prometheus.CounterVec
}

// NewRenderCollector registers render metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewRenderCollector(reg prometheus.Registerer) (*RenderCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netvis_engine_ticks_total",
		Help: "Total number of engine ticks driven by the render loop.",
	}), "netvis_engine_ticks_total")
	if err != nil {
		return nil, err
	}

	passes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netvis_render_passes_total",
		Help: "Total number of render passes, labeled by result.",
	}, []string{"result"}), "netvis_render_passes_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "netvis_render_pass_duration_seconds",
		Help:    "Duration of a decode and paint pass in seconds.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033, 0.1},
	}), "netvis_render_pass_duration_seconds")
	if err != nil {
		return nil, err
	}

	entities, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "netvis_catalog_entities",
		Help: "Drawable entities in the latest catalog, labeled by kind.",
	}, []string{"kind"}), "netvis_catalog_entities")
	if err != nil {
		return nil, err
	}

	issues, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netvis_catalog_issues_total",
		Help: "Records replaced or dropped while building catalogs, labeled by kind and reason.",
	}, []string{"kind", "reason"}), "netvis_catalog_issues_total")
	if err != nil {
		return nil, err
	}

	clicks, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netvis_clicks_total",
		Help: "Pointer clicks, labeled by the kind of entity hit or \"none\".",
	}, []string{"kind"}), "netvis_clicks_total")
	if err != nil {
		return nil, err
	}

	return &RenderCollector{
		gatherer:     gatherer,
		Ticks:        ticks,
		Passes:       passes,
		PassDuration: duration,
		Entities:     entities,
		Issues:       issues,
		Clicks:       clicks,
	}, nil
}

// ObserveTick counts one engine tick.
func (c *RenderCollector) ObserveTick() {
	if c == nil {
		return
	}
	c.Ticks.Inc()
}

// ObservePass records a finished pass. Failed passes record no duration.
func (c *RenderCollector) ObservePass(d time.Duration, ok bool) {
	if c == nil {
		return
	}
	if !ok {
		c.Passes.WithLabelValues("failed").Inc()
		return
	}
	c.Passes.WithLabelValues("ok").Inc()
	c.PassDuration.Observe(d.Seconds())
}

// SetEntityCount sets the drawable count of one kind.
func (c *RenderCollector) SetEntityCount(kind string, n int) {
	if c == nil {
		return
	}
	c.Entities.WithLabelValues(kind).Set(float64(n))
}

// ObserveIssue counts one catalog issue.
func (c *RenderCollector) ObserveIssue(kind, reason string) {
	if c == nil {
		return
	}
	c.Issues.WithLabelValues(kind, reason).Inc()
}

// ObserveClick counts a click; kind is empty on a miss.
func (c *RenderCollector) ObserveClick(kind string) {
	if c == nil {
		return
	}
	if kind == "" {
		kind = "none"
	}
	c.Clicks.WithLabelValues(kind).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *RenderCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Serve exposes the handler at path on addr until ctx is cancelled.
func (c *RenderCollector) Serve(ctx context.Context, addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Metrics server shutdown failed")
		}
	}()

	log.WithFields(log.Fields{"addr": addr, "path": path}).Info("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server on %s: %w", addr, err)
	}
	return nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
