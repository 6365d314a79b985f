package search

import (
	"sync"
	"time"
)

// engineHealth tracks consecutive failures of one engine.
type engineHealth struct {
	failures     int
	demotedUntil time.Time
}

// healthTable is the per-process engine health score. It is the only state
// the orchestrator keeps between calls.
type healthTable struct {
	mu        sync.Mutex
	engines   map[string]*engineHealth
	threshold int
	base      time.Duration
	max       time.Duration
}

func newHealthTable(threshold int, base, max time.Duration) *healthTable {
	return &healthTable{
		engines:   make(map[string]*engineHealth),
		threshold: threshold,
		base:      base,
		max:       max,
	}
}

func (h *healthTable) get(name string) *engineHealth {
	eh, ok := h.engines[name]
	if !ok {
		eh = &engineHealth{}
		h.engines[name] = eh
	}
	return eh
}

// recordSuccess clears the failure streak and any demotion.
func (h *healthTable) recordSuccess(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	eh := h.get(name)
	eh.failures = 0
	eh.demotedUntil = time.Time{}
}

// recordFailure extends the failure streak and returns true when the engine
// is now demoted. Demotion lasts base * 2^(failures-threshold), capped at max.
func (h *healthTable) recordFailure(name string, now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	eh := h.get(name)
	eh.failures++
	if eh.failures < h.threshold {
		return false
	}
	backoff := h.base
	for i := h.threshold; i < eh.failures && backoff < h.max; i++ {
		backoff *= 2
	}
	if backoff > h.max {
		backoff = h.max
	}
	eh.demotedUntil = now.Add(backoff)
	return true
}

// demoted reports whether name is inside its backoff window.
func (h *healthTable) demoted(name string, now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	eh, ok := h.engines[name]
	return ok && now.Before(eh.demotedUntil)
}

// failures returns the current failure streak of name.
func (h *healthTable) failures(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if eh, ok := h.engines[name]; ok {
		return eh.failures
	}
	return 0
}
