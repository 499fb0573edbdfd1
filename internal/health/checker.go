package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Overall statuses reported by CheckAll.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// checkOK is the per-dependency value for a successful probe.
const checkOK = "ok"

// Config holds health check configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int
	Concurrency   int
}

// PingFunc checks one dependency and returns nil when it is reachable.
type PingFunc func(ctx context.Context) error

// MetricsRecordFunc is an optional callback for recording health check results.
type MetricsRecordFunc func(success bool)

// Report is the result of one CheckAll run.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Healthy reports whether every critical dependency answered.
func (r Report) Healthy() bool { return r.Status != StatusUnhealthy }

type probe struct {
	name     string
	ping     PingFunc
	critical bool
}

// HealthChecker probes the service's dependencies (database, cache) on
// demand and, when started, on a fixed interval.
type HealthChecker struct {
	probes     []probe
	failCounts map[string]int
	mu         sync.Mutex
	cfg        Config
	onMetrics  MetricsRecordFunc
	logger     *zap.Logger
}

// New creates a new HealthChecker.
func New(cfg Config, logger *zap.Logger) *HealthChecker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 2 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 4
	}

	return &HealthChecker{
		failCounts: make(map[string]int),
		cfg:        cfg,
		logger:     logger,
	}
}

// Add registers a dependency. A failing critical dependency makes the service
// unhealthy; a failing non-critical one only degrades it.
func (h *HealthChecker) Add(name string, ping PingFunc, critical bool) {
	h.probes = append(h.probes, probe{name: name, ping: ping, critical: critical})
}

// SetMetricsRecord configures the metrics recording callback.
func (h *HealthChecker) SetMetricsRecord(fn MetricsRecordFunc) {
	h.onMetrics = fn
}

// Start runs the health check loop until ctx is cancelled.
func (h *HealthChecker) Start(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, h.cfg.CheckInterval)
			h.CheckAll(runCtx)
			cancel()
		case <-ctx.Done():
			return
		}
	}
}

// CheckAll probes every registered dependency with bounded concurrency.
func (h *HealthChecker) CheckAll(ctx context.Context) Report {
	report := Report{Status: StatusHealthy, Checks: make(map[string]string, len(h.probes))}

	sem := make(chan struct{}, h.cfg.Concurrency)
	var (
		wg       sync.WaitGroup
		resultMu sync.Mutex
	)

	for _, p := range h.probes {
		wg.Add(1)
		go func(p probe) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			pctx, cancel := context.WithTimeout(ctx, h.cfg.ProbeTimeout)
			err := p.ping(pctx)
			cancel()
			success := err == nil

			if h.onMetrics != nil {
				h.onMetrics(success)
			}
			h.track(p.name, err)

			resultMu.Lock()
			defer resultMu.Unlock()
			if success {
				report.Checks[p.name] = checkOK
				return
			}
			report.Checks[p.name] = err.Error()
			if p.critical {
				report.Status = StatusUnhealthy
			} else if report.Status == StatusHealthy {
				report.Status = StatusDegraded
			}
		}(p)
	}

	wg.Wait()
	return report
}

// track counts consecutive failures per dependency and logs transitions.
func (h *HealthChecker) track(name string, err error) {
	h.mu.Lock()
	prevCount := h.failCounts[name]
	if err == nil {
		h.failCounts[name] = 0
	} else {
		h.failCounts[name]++
	}
	count := h.failCounts[name]
	h.mu.Unlock()

	switch {
	case err == nil && prevCount >= h.cfg.FailThreshold:
		h.logger.Info("health: recovered", zap.String("dependency", name))
	case err != nil && count == h.cfg.FailThreshold:
		h.logger.Warn("health: degraded",
			zap.String("dependency", name),
			zap.Int("fail_count", count),
			zap.Error(err),
		)
	}
}
