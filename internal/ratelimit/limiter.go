// Package ratelimit throttles outbound API calls per model against a
// sliding 60-second window and a calendar-day quota, and keeps persisted
// per-day usage statistics of confirmed-successful calls.
//
// The in-memory window and daily counter are a cache of the persisted
// truth: the process can be torn down between any two calls, so the daily
// counter is seeded from today's persisted stats at startup and counts
// reservations, not successes. Over-counting is the safe direction.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leads-cli/internal/store"
	"github.com/sells-group/leads-cli/pkg/gemini"
)

const (
	window       = 60 * time.Second
	windowBuffer = 100 * time.Millisecond
	dayFormat    = "2006-01-02"

	// statsRetention controls how far back persisted usage stats are kept.
	statsRetention = 7 * 24 * time.Hour

	usageStatsKey = "apiUsageStats"
)

// Quota is a per-model request budget.
type Quota struct {
	PerMinute int
	PerDay    int
}

// DefaultQuotas returns the fixed free-tier budgets per model.
func DefaultQuotas() map[string]Quota {
	return map[string]Quota{
		gemini.ModelFlash:     {PerMinute: 10, PerDay: 250},
		gemini.ModelFlashLite: {PerMinute: 15, PerDay: 1000},
		gemini.ModelPro:       {PerMinute: 5, PerDay: 100},
	}
}

// DailyQuotaError means the model's calendar-day budget is spent. Fatal for
// that model in this run; callers decide whether another model is worth
// trying.
type DailyQuotaError struct {
	Model string
	Limit int
}

func (e *DailyQuotaError) Error() string {
	return fmt.Sprintf("daily limit reached for %s (%d requests/day)", e.Model, e.Limit)
}

// UsageStats maps day string -> model -> confirmed-successful call count.
type UsageStats map[string]map[string]int

type modelState struct {
	requests   []time.Time
	dailyCount int
	lastReset  string
}

// Limiter tracks per-model request windows and persists usage stats.
type Limiter struct {
	mu     sync.Mutex
	states map[string]*modelState
	quotas map[string]Quota

	statsMu Mutex
	store   store.Store

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Limiter persisting usage stats in s.
func New(s store.Store) *Limiter {
	return &Limiter{
		states: make(map[string]*modelState),
		quotas: DefaultQuotas(),
		store:  s,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (l *Limiter) state(model string) *modelState {
	st, ok := l.states[model]
	if !ok {
		st = &modelState{lastReset: l.now().Format(dayFormat)}
		l.states[model] = st
	}
	return st
}

// SyncFromStats seeds today's in-memory daily counters from the persisted
// usage stats, so a restarted process does not forget quota already spent.
func (l *Limiter) SyncFromStats(ctx context.Context) {
	var stats UsageStats
	ok, err := l.store.Get(ctx, usageStatsKey, &stats)
	if err != nil || !ok {
		return
	}
	today := l.now().Format(dayFormat)
	counts, ok := stats[today]
	if !ok {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for model, n := range counts {
		st := l.state(model)
		if n > st.dailyCount {
			st.dailyCount = n
		}
	}
	zap.L().Debug("synchronized usage stats from store", zap.Any("today", counts))
}

// AcquireSlot reserves one request slot for model, suspending the caller
// while the per-minute window is full. The reservation is recorded before
// the call is made and regardless of its outcome.
func (l *Limiter) AcquireSlot(ctx context.Context, model string) error {
	l.mu.Lock()
	st := l.state(model)

	today := l.now().Format(dayFormat)
	if st.lastReset != today {
		st.dailyCount = 0
		st.lastReset = today
	}

	quota, ok := l.quotas[model]
	if !ok {
		quota = l.quotas[gemini.ModelFlash]
	}

	if st.dailyCount >= quota.PerDay {
		l.mu.Unlock()
		return &DailyQuotaError{Model: model, Limit: quota.PerDay}
	}

	now := l.now()
	st.requests = pruneWindow(st.requests, now)

	if len(st.requests) >= quota.PerMinute {
		oldest := st.requests[0]
		wait := window - now.Sub(oldest) + windowBuffer
		l.mu.Unlock()

		zap.L().Info("per-minute limit reached, waiting",
			zap.String("model", model),
			zap.Duration("wait", wait),
		)
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}

		l.mu.Lock()
		st = l.state(model)
		now = l.now()
		st.requests = pruneWindow(st.requests, now)
	}

	st.requests = append(st.requests, now)
	st.dailyCount++
	l.mu.Unlock()
	return nil
}

func pruneWindow(requests []time.Time, now time.Time) []time.Time {
	kept := requests[:0]
	for _, ts := range requests {
		if now.Sub(ts) < window {
			kept = append(kept, ts)
		}
	}
	return kept
}

// RecordSuccess increments today's persisted success count for model and
// prunes stats older than the retention window. The read-modify-write cycle
// runs under the FIFO mutex so concurrent chunk completions cannot lose
// updates.
func (l *Limiter) RecordSuccess(ctx context.Context, model string) error {
	if err := l.statsMu.Acquire(ctx); err != nil {
		return err
	}
	defer l.statsMu.Release()

	var stats UsageStats
	if ok, err := l.store.Get(ctx, usageStatsKey, &stats); err != nil || !ok || stats == nil {
		stats = UsageStats{}
	}

	today := l.now().Format(dayFormat)
	if stats[today] == nil {
		stats[today] = make(map[string]int)
	}
	stats[today][model]++

	cutoff := l.now().Add(-statsRetention)
	for day := range stats {
		if t, err := time.ParseInLocation(dayFormat, day, time.Local); err == nil && t.Before(cutoff) {
			delete(stats, day)
		}
	}

	return l.store.Set(ctx, usageStatsKey, stats)
}

// Stats returns the persisted usage statistics. A read failure yields an
// empty map.
func (l *Limiter) Stats(ctx context.Context) UsageStats {
	var stats UsageStats
	if ok, err := l.store.Get(ctx, usageStatsKey, &stats); err != nil || !ok || stats == nil {
		return UsageStats{}
	}
	return stats
}
