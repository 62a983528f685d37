// Package workerutil runs long-lived background goroutines that survive panics.
package workerutil

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	// defaultInitialBackoff is the delay before the first restart after a
	// panic. It doubles on each later attempt up to defaultMaxBackoff. 100ms
	// restarts a hotkey listener before the user notices while still keeping
	// a crash loop off the CPU.
	defaultInitialBackoff = 100 * time.Millisecond

	// defaultMaxBackoff caps the exponential backoff between restarts.
	defaultMaxBackoff = 5 * time.Second

	// defaultMaxRetries bounds the restarts before a worker stops for good.
	// With the backoff above, 10 attempts span roughly 30 seconds, long enough
	// for a transient OS failure to clear.
	defaultMaxRetries = 10
)

// RecoveryOptions tunes RunWithPanicRecovery.
//
// Zero-value semantics for numeric fields:
//   - 0 or a negative value means "use the default"; normalized() replaces it.
//   - MaxRetries 1 disables restarts: the worker runs once and a panic goes
//     straight to OnFatal.
//   - There is no unlimited mode. MaxRetries is always a positive bound.
//
// Nil callbacks are skipped.
type RecoveryOptions struct {
	// InitialBackoff is the delay before the first restart.
	// 0 means defaultInitialBackoff.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between restarts. 0 means defaultMaxBackoff.
	// A value below InitialBackoff is raised to it.
	MaxBackoff time.Duration

	// MaxRetries is the number of runs allowed to panic before giving up.
	// 0 means defaultMaxRetries. 1 means run once and never restart.
	MaxRetries int

	// OnPanic fires after each recovered panic, before the backoff wait,
	// with a 1-based attempt number.
	OnPanic func(worker string, attempt int)

	// OnFatal fires once when MaxRetries panics have been recovered and the
	// worker is stopped for good.
	OnFatal func(worker string, maxRetries int)

	// IsShutdown reports that the host is tearing down. When it returns true
	// the loop exits without restarting and OnPanic is not called, so no
	// worker comes back after the Wails context is gone.
	IsShutdown func() bool
}

// normalized returns a copy of opts with defaults applied, leaving the
// caller's value untouched.
func (opts RecoveryOptions) normalized() RecoveryOptions {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		slog.Warn("[WARN-WORKER] MaxBackoff below InitialBackoff, clamping",
			"initialBackoff", opts.InitialBackoff, "maxBackoff", opts.MaxBackoff)
		opts.MaxBackoff = opts.InitialBackoff
	}
	return opts
}

// RunWithPanicRecovery starts fn on a goroutine tracked by wg. A normal
// return or a cancelled ctx ends the worker. A panic is logged with its
// stack and fn is restarted after an exponential backoff, up to
// opts.MaxRetries times.
func RunWithPanicRecovery(
	ctx context.Context,
	name string,
	wg *sync.WaitGroup,
	fn func(ctx context.Context),
	opts RecoveryOptions,
) {
	opts = opts.normalized()
	wg.Go(func() {
		supervise(ctx, name, fn, opts)
	})
}

// runOnce reports whether fn panicked.
func runOnce(ctx context.Context, name string, fn func(ctx context.Context)) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[ERROR-WORKER] recovered panic",
				"worker", name, "panic", r, "stack", string(debug.Stack()))
			panicked = true
		}
	}()
	fn(ctx)
	return false
}

func supervise(ctx context.Context, name string, fn func(ctx context.Context), opts RecoveryOptions) {
	delay := opts.InitialBackoff
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		if !runOnce(ctx, name, fn) || ctx.Err() != nil {
			return
		}
		if opts.IsShutdown != nil && opts.IsShutdown() {
			slog.Info("[DEBUG-WORKER] shutting down, not restarting", "worker", name)
			return
		}
		if opts.OnPanic != nil {
			opts.OnPanic(name, attempt)
		}
		if attempt == opts.MaxRetries {
			break
		}

		slog.Warn("[WARN-WORKER] restarting after panic", "worker", name, "attempt", attempt, "delay", delay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay = nextBackoff(delay, opts.MaxBackoff)
	}

	slog.Error("[ERROR-WORKER] giving up after repeated panics", "worker", name, "maxRetries", opts.MaxRetries)
	if opts.OnFatal != nil {
		opts.OnFatal(name, opts.MaxRetries)
	}
}

// nextBackoff doubles current up to limit. Overflow saturates at limit.
func nextBackoff(current, limit time.Duration) time.Duration {
	if current <= 0 {
		return defaultInitialBackoff
	}
	next := current * 2
	if next > limit || next < current {
		return limit
	}
	return next
}
