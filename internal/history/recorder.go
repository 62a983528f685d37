package history

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"keybridge/internal/hotkeys"
	"keybridge/internal/workerutil"
)

const (
	recordQueueSize = 128
	// pruneEvery bounds how often Prune runs relative to inserts.
	pruneEvery   = 25
	writeTimeout = 5 * time.Second
)

type activationWriter interface {
	Insert(ctx context.Context, a Activation) (Activation, error)
	Prune(ctx context.Context, keep int) (int64, error)
}

// Recorder turns hotkey press/release events into stored activations.
//
// Emit is called from hotkey listener goroutines and never blocks on the
// database: completed cycles are queued and written by a background worker.
// The shortcut label comes from SetShortcut rather than from the hotkey
// manager, so Emit never takes the manager's lock.
type Recorder struct {
	store activationWriter
	now   func() time.Time

	mu        sync.Mutex
	shortcut  string
	pressed   bool
	pressedAt time.Time

	maxEntries atomic.Int64
	queue      chan Activation
	inserted   int

	cancel context.CancelFunc
	wg     sync.WaitGroup
	// OnPanic is forwarded to the writer's recovery options.
	OnPanic func(worker string, attempt int)
}

// NewRecorder creates a recorder that keeps at most maxEntries rows.
func NewRecorder(store activationWriter, maxEntries int) *Recorder {
	r := &Recorder{
		store: store,
		now:   time.Now,
		queue: make(chan Activation, recordQueueSize),
	}
	r.SetMaxEntries(maxEntries)
	return r
}

// SetShortcut sets the label stored with subsequent activations. An empty
// string discards any half-finished cycle.
func (r *Recorder) SetShortcut(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if text != r.shortcut {
		r.pressed = false
	}
	r.shortcut = text
}

// SetMaxEntries changes the retention limit. Values <= 0 disable pruning.
func (r *Recorder) SetMaxEntries(n int) {
	r.maxEntries.Store(int64(n))
}

// Emit consumes application events. Names other than the hotkey events
// are ignored.
func (r *Recorder) Emit(name string) {
	switch name {
	case hotkeys.EventPressed:
		r.mu.Lock()
		r.pressed = true
		r.pressedAt = r.now()
		r.mu.Unlock()
	case hotkeys.EventReleased:
		r.mu.Lock()
		if !r.pressed {
			r.mu.Unlock()
			slog.Debug("[DEBUG-HISTORY] release without press ignored")
			return
		}
		a := Activation{
			Shortcut:   r.shortcut,
			PressedAt:  r.pressedAt,
			ReleasedAt: r.now(),
		}
		r.pressed = false
		r.mu.Unlock()

		select {
		case r.queue <- a:
		default:
			slog.Warn("[WARN-HISTORY] record queue full, dropping activation", "shortcut", a.Shortcut)
		}
	}
}

// Start launches the writer. Stop must be called to flush and release it.
func (r *Recorder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	workerutil.RunWithPanicRecovery(ctx, "history-writer", &r.wg, r.writeLoop, workerutil.RecoveryOptions{
		MaxRetries: 3,
		OnPanic:    r.OnPanic,
	})
}

// Stop writes any queued activations and waits for the writer to exit.
func (r *Recorder) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
	r.drain()
}

func (r *Recorder) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-r.queue:
			r.write(a)
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case a := <-r.queue:
			r.write(a)
		default:
			return
		}
	}
}

func (r *Recorder) write(a Activation) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	stored, err := r.store.Insert(ctx, a)
	if err != nil {
		slog.Warn("[WARN-HISTORY] failed to store activation", "error", err)
		return
	}
	slog.Debug("[DEBUG-HISTORY] activation stored", "id", stored.ID, "durationMs", stored.DurationMs)

	r.inserted++
	keep := int(r.maxEntries.Load())
	if keep > 0 && r.inserted%pruneEvery == 0 {
		if _, err := r.store.Prune(ctx, keep); err != nil {
			slog.Warn("[WARN-HISTORY] prune failed", "error", err)
		}
	}
}
