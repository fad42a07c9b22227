package sefaz

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultPageDelay is the politeness interval between successive pages
// within one sync session. Distinct from the session cooldown: the
// cooldown spaces independent sessions, this spaces queries inside one.
const DefaultPageDelay = 1200 * time.Millisecond

// PageLimiter paces successive distribution queries within a session.
type PageLimiter struct {
	bucket *rate.Limiter
}

// NewPageLimiter creates a limiter that releases one query per delay.
// The bucket starts full, so the first query is never delayed.
func NewPageLimiter(delay time.Duration) *PageLimiter {
	if delay <= 0 {
		delay = DefaultPageDelay
	}
	return &PageLimiter{
		bucket: rate.NewLimiter(rate.Every(delay), 1),
	}
}

// Wait blocks until the next query may be issued or ctx is done.
func (l *PageLimiter) Wait(ctx context.Context) error {
	return l.bucket.Wait(ctx)
}
