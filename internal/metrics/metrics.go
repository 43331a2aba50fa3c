// Package metrics exposes agent lifecycle events as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ShayCichocki/wkagent/internal/events"
	"github.com/ShayCichocki/wkagent/internal/logging"
)

const namespace = "wkagent"

// Collector turns registry events into counters and histograms.
type Collector struct {
	registry *prometheus.Registry

	events       *prometheus.CounterVec
	tasks        *prometheus.CounterVec
	taskDuration prometheus.Histogram
	subTasks     *prometheus.CounterVec
	compressions prometheus.Counter
	listenerFail prometheus.GaugeFunc
}

// NewCollector creates a collector with its own Prometheus registry. faults,
// when non-nil, is exported as the number of recovered listener panics.
func NewCollector(faults func() uint64) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Lifecycle events emitted, by name.",
		}, []string{"event"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Top-level turns, by outcome.",
		}, []string{"outcome"}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of completed turns.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		subTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subtasks_total",
			Help:      "Sub-tasks executed, by outcome.",
		}, []string{"outcome"}),
		compressions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_compressions_total",
			Help:      "Short-term memory compressions.",
		}),
	}
	c.registry.MustRegister(c.events, c.tasks, c.taskDuration, c.subTasks, c.compressions)

	if faults != nil {
		c.listenerFail = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listener_faults",
			Help:      "Event listener panics recovered so far.",
		}, func() float64 { return float64(faults()) })
		c.registry.MustRegister(c.listenerFail)
	}
	return c
}

// Attach subscribes the collector to every event of r.
func (c *Collector) Attach(r *events.Registry) {
	r.OnAll(c.Observe)
}

// Observe records one event.
func (c *Collector) Observe(e events.Event) {
	c.events.WithLabelValues(string(e.Name)).Inc()

	switch e.Name {
	case events.TaskComplete:
		c.tasks.WithLabelValues("success").Inc()
		if e.Duration > 0 {
			c.taskDuration.Observe(e.Duration.Seconds())
		}
	case events.TaskError:
		c.tasks.WithLabelValues("error").Inc()
	case events.SerialTaskComplete:
		c.subTasks.WithLabelValues("success").Inc()
	case events.SerialTaskFailed:
		c.subTasks.WithLabelValues("failed").Inc()
	case events.MemoryCompress:
		c.compressions.Inc()
	}
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collected metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string, log logging.Logger) error {
	if log == nil {
		log = logging.Nop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	log.Info("serving metrics", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
