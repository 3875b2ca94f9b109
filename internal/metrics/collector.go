// Package metrics exposes Prometheus instrumentation for the filesystem
// service: per-operation counters and latency histograms plus gauges for
// live archive handles and sessions.
package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PreciousTrainer/citra/pkg/fserr"
)

// Config represents metrics configuration.
type Config struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// Collector records service metrics. A nil *Collector is valid and
// records nothing, so call sites never need to branch.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	openArchives      prometheus.Gauge
	openSessions      *prometheus.GaugeVec
	errorCounter      *prometheus.CounterVec

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
}

// NewCollector creates a collector with its own registry.
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = &Config{
			Enabled:   true,
			Port:      8080,
			Path:      "/metrics",
			Namespace: "citrafs",
		}
	}
	if !config.Enabled {
		return nil, nil
	}

	c := &Collector{
		config:   config,
		registry: prometheus.NewRegistry(),
	}

	c.operationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "operations_total",
		Help:      "Total archive and session operations by result code",
	}, []string{"operation", "code"})

	c.operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: config.Namespace,
		Name:      "operation_duration_seconds",
		Help:      "Operation latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	c.openArchives = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: config.Namespace,
		Name:      "open_archives",
		Help:      "Archives currently held in the handle table",
	})

	c.openSessions = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: config.Namespace,
		Name:      "open_sessions",
		Help:      "Live file and directory sessions",
	}, []string{"kind"})

	c.errorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "errors_total",
		Help:      "Failed operations by error category",
	}, []string{"operation", "category"})

	for _, col := range []prometheus.Collector{
		c.operationCounter, c.operationDuration, c.openArchives, c.openSessions, c.errorCounter,
	} {
		if err := c.registry.Register(col); err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}
	return c, nil
}

// Start serves the metrics endpoint until the context is canceled. The
// listener is bound before Start blocks, so Addr reports the endpoint
// as soon as Start has been entered successfully.
func (c *Collector) Start(ctx context.Context) error {
	if c == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle(c.config.Path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", c.config.Port))
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}

	c.mu.Lock()
	c.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	c.addr = ln.Addr()
	server := c.server
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Addr reports the bound listen address, or "" before Start has opened
// the listener.
func (c *Collector) Addr() string {
	if c == nil {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.addr == nil {
		return ""
	}
	return c.addr.String()
}

// RecordOperation records one completed operation with its outcome.
func (c *Collector) RecordOperation(operation string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	code := "OK"
	if err != nil {
		code = string(fserr.CodeOf(err))
		c.errorCounter.WithLabelValues(operation, string(fserr.CategoryOf(fserr.CodeOf(err)))).Inc()
	}
	c.operationCounter.WithLabelValues(operation, code).Inc()
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetOpenArchives updates the handle-table gauge.
func (c *Collector) SetOpenArchives(n int) {
	if c == nil {
		return
	}
	c.openArchives.Set(float64(n))
}

// SessionOpened bumps the live-session gauge for "file" or "directory".
func (c *Collector) SessionOpened(kind string) {
	if c == nil {
		return
	}
	c.openSessions.WithLabelValues(kind).Inc()
}

// SessionClosed decrements the live-session gauge.
func (c *Collector) SessionClosed(kind string) {
	if c == nil {
		return
	}
	c.openSessions.WithLabelValues(kind).Dec()
}
