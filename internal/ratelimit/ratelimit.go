package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrBudgetExhausted is returned once the daily request budget is spent.
var ErrBudgetExhausted = errors.New("daily request budget exhausted")

// Limiter paces calls to one external API. It combines a token bucket for
// request spacing with an optional daily budget that resets every 24h.
type Limiter struct {
	name   string
	bucket *rate.Limiter

	mu        sync.Mutex
	maxDaily  int
	used      int
	denied    int
	resetTime time.Time
	now       func() time.Time
}

// New creates a limiter allowing one request every interval with the given
// burst. interval <= 0 disables pacing, maxDaily <= 0 disables the budget.
func New(name string, interval time.Duration, burst, maxDaily int) *Limiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if burst < 1 {
		burst = 1
	}
	l := &Limiter{
		name:     name,
		bucket:   rate.NewLimiter(limit, burst),
		maxDaily: maxDaily,
		now:      time.Now,
	}
	l.resetTime = l.now().Add(24 * time.Hour)
	return l
}

// Unlimited returns a limiter that never waits and has no budget.
func Unlimited(name string) *Limiter {
	return New(name, 0, 1, 0)
}

// Name returns the API name the limiter guards.
func (l *Limiter) Name() string { return l.name }

// Wait reserves one request from the budget and blocks until the bucket
// allows it or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.take(); err != nil {
		return err
	}
	if err := l.bucket.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limit wait: %w", l.name, err)
	}
	return nil
}

func (l *Limiter) take() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.checkReset()
	if l.maxDaily > 0 && l.used >= l.maxDaily {
		l.denied++
		return fmt.Errorf("%s: %w (%d/%d)", l.name, ErrBudgetExhausted, l.used, l.maxDaily)
	}
	l.used++
	return nil
}

// checkReset resets counters once the reset time has passed. Callers hold mu.
func (l *Limiter) checkReset() {
	now := l.now()
	if now.After(l.resetTime) {
		l.used = 0
		l.denied = 0
		l.resetTime = now.Add(24 * time.Hour)
	}
}

// Stats is a point-in-time view of a limiter.
type Stats struct {
	Name      string
	Used      int
	Limit     int
	Denied    int
	ResetTime time.Time
}

// Stats returns current usage.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		Name:      l.name,
		Used:      l.used,
		Limit:     l.maxDaily,
		Denied:    l.denied,
		ResetTime: l.resetTime,
	}
}

// LogStats writes usage to the logger.
func (l *Limiter) LogStats(log *slog.Logger) {
	s := l.Stats()
	log.Info("rate limiter usage",
		"api", s.Name,
		"used", s.Used,
		"limit", s.Limit,
		"denied", s.Denied,
		"reset_time", s.ResetTime.Format(time.RFC3339),
	)
}
