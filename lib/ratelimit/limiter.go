package ratelimit

import (
	"context"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("ratelimit")

const (
	// DefaultLimit is the number of requests admitted per identity and window
	DefaultLimit = 10
	// DefaultWindow is the length of the sliding window
	DefaultWindow = 60 * time.Second
)

// Limiter is a per-identity sliding window rate limiter.
// For every identity it keeps the timestamps of the admitted requests that are
// still inside the window. The check-then-record sequence of Admit runs
// atomically per identity, and the map itself is safe for concurrent use
// across identities.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time
	hits   *xsync.MapOf[string, []time.Time]
}

// New creates a limiter admitting limit requests per window and identity.
// Non-positive arguments fall back to DefaultLimit and DefaultWindow.
func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   xsync.NewMapOf[string, []time.Time](),
	}
}

// SetClock overrides the time source. It must be called before the limiter is shared.
func (l *Limiter) SetClock(fn func() time.Time) {
	l.now = fn
}

// Limit returns the number of requests admitted per window.
func (l *Limiter) Limit() int { return l.limit }

// Window returns the length of the sliding window.
func (l *Limiter) Window() time.Duration { return l.window }

// Admit decides whether a request of id is allowed.
// Timestamps that fell out of the window are pruned first. If the remaining
// count already reached the limit the request is rejected and not recorded,
// otherwise the current time is recorded and the request is admitted.
func (l *Limiter) Admit(id string) bool {
	admitted := false
	l.hits.Compute(id, func(old []time.Time, _ bool) ([]time.Time, bool) {
		now := l.now()
		recent := prune(old, now, l.window)
		if len(recent) >= l.limit {
			return recent, false
		}
		admitted = true
		return append(recent, now), false
	})
	return admitted
}

// Sweep removes identities without any timestamp inside the window and
// returns how many were removed. Forgetting such an identity does not change
// any future decision, it only bounds the memory used by the limiter.
func (l *Limiter) Sweep() int {
	removed := 0
	l.hits.Range(func(id string, _ []time.Time) bool {
		l.hits.Compute(id, func(old []time.Time, loaded bool) ([]time.Time, bool) {
			if !loaded {
				return nil, true
			}
			recent := prune(old, l.now(), l.window)
			if len(recent) == 0 {
				removed++
				return nil, true
			}
			return recent, false
		})
		return true
	})
	return removed
}

// Run sweeps the limiter every interval until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				Logger.Debugf("swept %d idle identities, %d still tracked", n, l.Len())
			}
		}
	}
}

// Len returns the number of tracked identities.
func (l *Limiter) Len() int {
	return l.hits.Size()
}

// prune drops the leading timestamps that are at least window old.
// Timestamps are appended in order, so the slice stays sorted.
func prune(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(ts) && now.Sub(ts[i]) >= window {
		i++
	}
	if i == 0 {
		return ts
	}
	recent := make([]time.Time, len(ts)-i, len(ts)-i+1)
	copy(recent, ts[i:])
	return recent
}
