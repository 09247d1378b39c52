package health

import (
	"context"
	"sync"
	"time"
)

// Check probes one component. A nil return means healthy.
type Check func(ctx context.Context) error

// Result is the outcome of one component probe.
type Result struct {
	// Status is "ok" or "unhealthy".
	Status string `json:"status"`

	// Message carries the failure detail for unhealthy components.
	Message string `json:"message,omitempty"`

	// Duration is how long the probe took.
	Duration time.Duration `json:"duration_ms,omitempty"`
}

// Snapshot aggregates the probe results at one point in time.
type Snapshot struct {
	// Status is "ok", "ready", or "degraded".
	Status string `json:"status"`

	// Components holds per-component results for readiness.
	Components map[string]Result `json:"components,omitempty"`

	// Timestamp is when the probes ran.
	Timestamp time.Time `json:"timestamp"`
}

// DefaultProbeTimeout bounds one component probe.
const DefaultProbeTimeout = 5 * time.Second

// Checker runs registered component probes for liveness and readiness
// endpoints. Safe for concurrent use.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]Check

	probeTimeout time.Duration
}

// New returns a Checker. A non-positive timeout falls back to
// DefaultProbeTimeout.
func New(probeTimeout time.Duration) *Checker {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	return &Checker{
		checks:       make(map[string]Check),
		probeTimeout: probeTimeout,
	}
}

// Register adds or replaces the probe for a named component.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Unregister removes the probe for a named component.
func (c *Checker) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Liveness reports that the process is up. It never probes components;
// point liveness probes here so a degraded store does not restart the
// service.
func (c *Checker) Liveness(ctx context.Context) Snapshot {
	return Snapshot{Status: "ok", Timestamp: time.Now()}
}

// Readiness runs every registered probe concurrently and aggregates the
// results. Any unhealthy component degrades the overall status.
func (c *Checker) Readiness(ctx context.Context) Snapshot {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	snap := Snapshot{
		Status:     "ready",
		Components: make(map[string]Result, len(checks)),
		Timestamp:  time.Now(),
	}
	if len(checks) == 0 {
		return snap
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check Check) {
			defer wg.Done()
			result := c.probe(ctx, check)

			mu.Lock()
			snap.Components[name] = result
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	for _, result := range snap.Components {
		if result.Status == "unhealthy" {
			snap.Status = "degraded"
		}
	}
	return snap
}

func (c *Checker) probe(ctx context.Context, check Check) Result {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	start := time.Now()
	errChan := make(chan error, 1)
	go func() {
		errChan <- check(probeCtx)
	}()

	select {
	case err := <-errChan:
		elapsed := time.Since(start)
		if err != nil {
			return Result{Status: "unhealthy", Message: err.Error(), Duration: elapsed}
		}
		return Result{Status: "ok", Duration: elapsed}
	case <-probeCtx.Done():
		return Result{Status: "unhealthy", Message: "probe timed out", Duration: time.Since(start)}
	}
}
