// Package health serves liveness and readiness probes.
//
// Every registered check runs on its own ticker. A check flips to unhealthy
// only after failureThreshold consecutive failures and back to healthy after
// successThreshold consecutive passes, so a single slow query does not take
// the instance out of rotation.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Probe selects the endpoint a check contributes to.
type Probe int

const (
	Liveness Probe = iota
	Readiness
)

// CheckOption tunes a single check.
type CheckOption func(*check)

// WithTimeout bounds a single run of the check.
func WithTimeout(d time.Duration) CheckOption {
	return func(c *check) { c.timeout = d }
}

// WithThresholds sets how many consecutive failures mark the check unhealthy
// and how many consecutive passes mark it healthy again.
func WithThresholds(failures, successes int) CheckOption {
	return func(c *check) {
		if failures > 0 {
			c.failureThreshold = failures
		}
		if successes > 0 {
			c.successThreshold = successes
		}
	}
}

// check is run from a single goroutine; healthy and lastErr are read
// concurrently by the endpoints.
type check struct {
	name             string
	fn               CheckFunc
	timeout          time.Duration
	failureThreshold int
	successThreshold int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails  int
	passes int
}

func (c *check) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(ctx)
	c.lastErr.Store(&err)

	if err != nil {
		c.passes = 0
		c.fails++
		if c.fails >= c.failureThreshold {
			c.healthy.Store(false)
		}
		return
	}
	c.fails = 0
	c.passes++
	if c.passes >= c.successThreshold {
		c.healthy.Store(true)
	}
}

func (c *check) failure() (string, bool) {
	if c.healthy.Load() {
		return "", false
	}
	if p := c.lastErr.Load(); p != nil && *p != nil {
		return (*p).Error(), true
	}
	return "check is unhealthy", true
}

// Health tracks registered checks and the manual readiness flag.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	checks map[Probe][]*check
	cancel context.CancelFunc
}

// New returns a Health that reports not ready until SetReady(true).
func New() *Health {
	return &Health{checks: make(map[Probe][]*check)}
}

// Register adds a check to the given probe. Checks start healthy.
func (h *Health) Register(probe Probe, name string, fn CheckFunc, opts ...CheckOption) {
	c := &check{
		name:             name,
		fn:               fn,
		timeout:          time.Second,
		failureThreshold: 3,
		successThreshold: 1,
	}
	for _, o := range opts {
		o(c)
	}
	c.healthy.Store(true)

	h.mu.Lock()
	h.checks[probe] = append(h.checks[probe], c)
	h.mu.Unlock()
}

func (h *Health) snapshot(probe Probe) []*check {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.checks[probe])
}

// Start runs every registered check immediately and then on each interval
// until Stop or ctx cancellation.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	var all []*check
	for _, cs := range h.checks {
		all = append(all, cs...)
	}
	h.mu.Unlock()

	for _, c := range all {
		go loop(ctx, c, interval)
	}
}

func loop(ctx context.Context, c *check, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	c.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.run(ctx)
		}
	}
}

// Stop cancels the background checks. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness flag.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the manual flag combined with all readiness checks.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(failures(h.snapshot(Readiness))) == 0
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	write(w, failures(h.snapshot(Liveness)))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	f := failures(h.snapshot(Readiness))
	if !h.ready.Load() {
		f = append(f, failed{name: "_readiness", reason: "service is not ready"})
	}
	write(w, f)
}

type failed struct {
	name   string
	reason string
}

func failures(checks []*check) []failed {
	var out []failed
	for _, c := range checks {
		if reason, bad := c.failure(); bad {
			out = append(out, failed{name: c.name, reason: reason})
		}
	}
	return out
}

func write(w http.ResponseWriter, f []failed) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	status := http.StatusOK
	if len(f) == 0 {
		e.Str("ok")
	} else {
		status = http.StatusServiceUnavailable
		e.Str("unhealthy")
		e.FieldStart("checks")
		e.ObjStart()
		for _, x := range f {
			e.FieldStart(x.name)
			e.Str(x.reason)
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
