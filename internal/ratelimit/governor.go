// Package ratelimit paces classification batches against the provider's limits.
//
// A Governor runs in one of two mutually exclusive modes:
//
//   - Throughput: at most R batches in flight, dispatches spaced at least 60s/R apart.
//   - Spacing: one batch at a time, each starting at least W after the previous one finished.
//
// With neither configured, batches are admitted immediately with no concurrency bound.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrConflictingModes is returned when both throughput and spacing limits are set
var ErrConflictingModes = errors.New("requests per minute and minimum wait between batches are mutually exclusive")

// Mode identifies the pacing policy
type Mode string

const (
	ModeUnlimited  Mode = "unlimited"
	ModeThroughput Mode = "throughput"
	ModeSpacing    Mode = "spacing"
)

// Config holds the pacing settings. Zero values disable a limit.
type Config struct {
	RequestsPerMinute     int           `yaml:"requests_per_minute"`
	MinWaitBetweenBatches time.Duration `yaml:"min_wait_between_batches"`
}

// Validate checks the configuration for consistency
func (c Config) Validate() error {
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests per minute must be non-negative, got %d", c.RequestsPerMinute)
	}
	if c.MinWaitBetweenBatches < 0 {
		return fmt.Errorf("minimum wait between batches must be non-negative, got %v", c.MinWaitBetweenBatches)
	}
	if c.RequestsPerMinute > 0 && c.MinWaitBetweenBatches > 0 {
		return ErrConflictingModes
	}
	return nil
}

// Mode returns the pacing policy this config selects
func (c Config) Mode() Mode {
	switch {
	case c.RequestsPerMinute > 0:
		return ModeThroughput
	case c.MinWaitBetweenBatches > 0:
		return ModeSpacing
	default:
		return ModeUnlimited
	}
}

// Governor admits batches according to a pacing policy.
// It never drops work; it only delays it.
type Governor struct {
	mode        Mode
	concurrency int

	sem     *semaphore.Weighted // nil in unlimited mode
	limiter *rate.Limiter       // throughput mode only

	minWait        time.Duration // spacing mode only
	mu             sync.Mutex
	lastCompletion time.Time
}

// New creates a Governor for the given config
func New(cfg Config) (*Governor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Mode() {
	case ModeThroughput:
		return newThroughput(cfg.RequestsPerMinute, time.Minute/time.Duration(cfg.RequestsPerMinute)), nil
	case ModeSpacing:
		return &Governor{
			mode:        ModeSpacing,
			concurrency: 1,
			sem:         semaphore.NewWeighted(1),
			minWait:     cfg.MinWaitBetweenBatches,
		}, nil
	default:
		return &Governor{mode: ModeUnlimited}, nil
	}
}

func newThroughput(limit int, interval time.Duration) *Governor {
	return &Governor{
		mode:        ModeThroughput,
		concurrency: limit,
		sem:         semaphore.NewWeighted(int64(limit)),
		limiter:     rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Mode returns the active pacing policy
func (g *Governor) Mode() Mode {
	return g.mode
}

// Concurrency returns the maximum number of batches in flight (0 = unbounded)
func (g *Governor) Concurrency() int {
	return g.concurrency
}

// Acquire blocks until a batch may start. The returned release func must be
// called exactly once when the batch finishes; extra calls are ignored.
func (g *Governor) Acquire(ctx context.Context) (func(), error) {
	switch g.mode {
	case ModeThroughput:
		if err := g.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		if err := g.limiter.Wait(ctx); err != nil {
			g.sem.Release(1)
			return nil, err
		}
		return once(func() { g.sem.Release(1) }), nil

	case ModeSpacing:
		if err := g.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		if err := g.waitSpacing(ctx); err != nil {
			g.sem.Release(1)
			return nil, err
		}
		return once(func() {
			g.mu.Lock()
			g.lastCompletion = time.Now()
			g.mu.Unlock()
			g.sem.Release(1)
		}), nil

	default:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return func() {}, nil
	}
}

// Admit runs task under the pacing policy. It returns a context error if the
// wait was cancelled, otherwise whatever task returns.
func (g *Governor) Admit(ctx context.Context, task func(context.Context) error) error {
	release, err := g.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return task(ctx)
}

// waitSpacing sleeps until minWait has passed since the last completion
func (g *Governor) waitSpacing(ctx context.Context) error {
	g.mu.Lock()
	last := g.lastCompletion
	g.mu.Unlock()

	if last.IsZero() {
		return nil
	}
	wait := time.Until(last.Add(g.minWait))
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func once(fn func()) func() {
	var o sync.Once
	return func() { o.Do(fn) }
}
