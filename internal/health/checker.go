package health

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/SungwookYoon/searchdeposit6-web/internal/config"
)

// Status represents the health status of a checked dependency.
type Status int

const (
	StatusUnknown Status = iota
	StatusHealthy
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "healthy":
		*s = StatusHealthy
	case "unhealthy":
		*s = StatusUnhealthy
	default:
		*s = StatusUnknown
	}
	return nil
}

// Probe checks one dependency and returns nil when it is usable.
type Probe func(ctx context.Context) error

// Recorder receives check results for metrics.
type Recorder interface {
	HealthCheckCompleted(target string, d time.Duration, healthy bool)
}

// TargetHealth holds health information for a target.
type TargetHealth struct {
	Status              Status    `json:"status"`
	LastCheck           time.Time `json:"last_check"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastError           string    `json:"last_error,omitempty"`
}

// Checker runs registered probes periodically. A target turns unhealthy after
// FailureThreshold consecutive failures and healthy again on the first success.
type Checker struct {
	mu      sync.RWMutex
	targets map[string]*TargetHealth
	probes  map[string]Probe
	metrics Recorder
	logger  *slog.Logger

	interval         time.Duration
	failureThreshold int
	timeout          time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewChecker creates a new health checker with configurable parameters.
// m and logger may be nil.
func NewChecker(hcCfg config.HealthCheckConfig, m Recorder, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	threshold := hcCfg.FailureThreshold
	if threshold < 1 {
		threshold = 1
	}
	interval := hcCfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Checker{
		targets:          make(map[string]*TargetHealth),
		probes:           make(map[string]Probe),
		metrics:          m,
		logger:           logger,
		interval:         interval,
		failureThreshold: threshold,
		timeout:          hcCfg.Timeout,
		stopCh:           make(chan struct{}),
	}
}

// Register adds a probe for target. The target reports unknown until first checked.
func (c *Checker) Register(target string, p Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[target] = p
	c.getOrCreate(target)
}

// Start begins periodic health checking.
func (c *Checker) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run()
	}()
	c.logger.Info("health checker started", "interval", c.interval, "threshold", c.failureThreshold)
}

// Stop stops the health checker. Safe to call multiple times.
func (c *Checker) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	c.wg.Wait()
	c.logger.Info("health checker stopped")
}

func (c *Checker) run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Run immediately on start
	c.CheckAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CheckAll(ctx)
		case <-c.stopCh:
			return
		}
	}
}

// CheckAll runs every probe once, in parallel.
func (c *Checker) CheckAll(ctx context.Context) {
	c.mu.RLock()
	probes := maps.Clone(c.probes)
	c.mu.RUnlock()

	var wg sync.WaitGroup
	for target, probe := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.check(ctx, target, probe)
		}()
	}
	wg.Wait()
}

func (c *Checker) check(ctx context.Context, target string, probe Probe) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	err := probe(ctx)
	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.HealthCheckCompleted(target, elapsed, err == nil)
	}
	c.updateStatus(target, err)
}

func (c *Checker) updateStatus(target string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	th := c.getOrCreate(target)
	th.LastCheck = time.Now()

	if err == nil {
		if th.ConsecutiveFailures > 0 {
			c.logger.Info("target recovered", "target", target, "failures", th.ConsecutiveFailures)
		}
		th.Status = StatusHealthy
		th.ConsecutiveFailures = 0
		th.LastError = ""
		return
	}

	th.LastError = err.Error()
	th.ConsecutiveFailures++
	if th.ConsecutiveFailures >= c.failureThreshold {
		if th.Status != StatusUnhealthy {
			c.logger.Warn("target marked unhealthy", "target", target, "failures", th.ConsecutiveFailures, "error", th.LastError)
		}
		th.Status = StatusUnhealthy
	}
}

func (c *Checker) getOrCreate(target string) *TargetHealth {
	th, ok := c.targets[target]
	if !ok {
		th = &TargetHealth{Status: StatusUnknown}
		c.targets[target] = th
	}
	return th
}

// IsHealthy returns whether a target is healthy (or unknown, which is treated as healthy).
func (c *Checker) IsHealthy(target string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	th, ok := c.targets[target]
	if !ok {
		return true
	}
	return th.Status != StatusUnhealthy
}

// GetStatus returns the health status for a target.
func (c *Checker) GetStatus(target string) TargetHealth {
	c.mu.RLock()
	defer c.mu.RUnlock()

	th, ok := c.targets[target]
	if !ok {
		return TargetHealth{Status: StatusUnknown}
	}
	return *th
}

// GetAllStatuses returns health statuses for all registered targets.
func (c *Checker) GetAllStatuses() map[string]TargetHealth {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]TargetHealth, len(c.targets))
	for id, th := range c.targets {
		result[id] = *th
	}
	return result
}

// Targets returns the registered target names in sorted order.
func (c *Checker) Targets() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.probes))
}

// OverallHealthy returns true if no target is unhealthy.
func (c *Checker) OverallHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, th := range c.targets {
		if th.Status == StatusUnhealthy {
			return false
		}
	}
	return true
}
