package watcher

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// DefaultEventsPerSecond and DefaultBurst bound how fast coalesced
// filesystem events are admitted to the single processing worker during a
// storm (e.g. a large directory copy or a git checkout touching thousands
// of files). Adapted from the teacher's per-connection BandwidthManager
// token bucket, here keyed by a filesystem location instead of by client.
const (
	DefaultEventsPerSecond = 2000
	DefaultBurst           = 500
)

// AdmissionLimiter paces event admission using an independent token bucket
// for each key passed to Wait. The watcher passes each event's parent
// directory, so buckets are per directory, not per watched root: a storm in
// one directory never starves events in another, and a storm spread over
// many directories under one root is not paced as a whole.
type AdmissionLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewAdmissionLimiter builds a limiter admitting up to rps events per
// second per root, with burst headroom for short spikes.
func NewAdmissionLimiter(rps float64, burst int) *AdmissionLimiter {
	return &AdmissionLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

// Wait blocks until an event under root may be admitted, or until ctx is
// cancelled.
func (al *AdmissionLimiter) Wait(ctx context.Context, root string) error {
	return al.limiterFor(root).Wait(ctx)
}

func (al *AdmissionLimiter) limiterFor(root string) *rate.Limiter {
	al.mu.Lock()
	defer al.mu.Unlock()
	l, ok := al.limiters[root]
	if !ok {
		l = rate.NewLimiter(rate.Limit(al.rps), al.burst)
		al.limiters[root] = l
	}
	return l
}
