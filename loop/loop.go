// File: loop/loop.go
// Package loop implements the single-threaded dispatch engine.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Loop owns a table of native watcher resources, pulls raw occurrences
// from a platform Source, and fans each occurrence out to every resource
// armed for it, in attach order. One goroutine drives one Loop; handle
// operations and callback invocations all happen on that goroutine.

package loop

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/eapache/queue"
	"go.uber.org/zap"

	"github.com/momentics/hioload-signals/api"
	"github.com/momentics/hioload-signals/control"
)

const defaultBudget = 128

// Loop is a dispatch-loop context. Create with New; drive with Step or Run.
type Loop struct {
	resources map[uint64]*Resource
	order     []uint64 // attach order, fan-out order
	nextID    uint64

	watchRefs map[int]int // signum -> armed resource count
	pending   *queue.Queue

	src     Source
	log     *zap.Logger
	metrics *control.MetricsRegistry
	budget  int

	closed bool
}

// New creates a Loop. Without WithSource the platform default source is
// used (signalfd on Linux, the portable notify source elsewhere).
func New(opts ...Option) (*Loop, error) {
	l := &Loop{
		resources: make(map[uint64]*Resource),
		watchRefs: make(map[int]int),
		pending:   queue.New(),
		log:       zap.NewNop(),
		metrics:   control.NewMetricsRegistry(),
		budget:    defaultBudget,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.src == nil {
		src, err := newPlatformSource()
		if err != nil {
			return nil, fmt.Errorf("loop source init: %w", err)
		}
		l.src = src
	}
	return l, nil
}

// Logger returns the loop's logger, never nil.
func (l *Loop) Logger() *zap.Logger { return l.log }

// Attach allocates a fresh native resource slot bound to this loop. The
// caller owns the slot exclusively until Release.
func (l *Loop) Attach() (*Resource, error) {
	if l.closed {
		return nil, api.ErrLoopClosed
	}
	l.nextID++
	r := &Resource{id: l.nextID, lp: l}
	l.resources[r.id] = r
	l.order = append(l.order, r.id)
	return r, nil
}

// Post enqueues one occurrence for delivery on the next Step, bypassing
// the source. Used by tests and in-process producers.
func (l *Loop) Post(signum int) {
	l.pending.Add(signum)
}

// watch bumps the per-signum arm count, engaging the source on 0 -> 1.
func (l *Loop) watch(signum int) error {
	if l.closed {
		return api.ErrLoopClosed
	}
	if l.watchRefs[signum] == 0 {
		if err := l.src.Watch(signum); err != nil {
			return fmt.Errorf("source watch: %w", err)
		}
	}
	l.watchRefs[signum]++
	return nil
}

// unwatch drops the per-signum arm count, releasing the source on 1 -> 0.
func (l *Loop) unwatch(signum int) error {
	n := l.watchRefs[signum]
	if n <= 1 {
		delete(l.watchRefs, signum)
		if n == 1 {
			if err := l.src.Unwatch(signum); err != nil {
				return fmt.Errorf("source unwatch: %w", err)
			}
		}
		return nil
	}
	l.watchRefs[signum] = n - 1
	return nil
}

func (l *Loop) detach(id uint64) {
	delete(l.resources, id)
	for i, rid := range l.order {
		if rid == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// Step performs one dispatch pass: pull up to the budget of occurrences
// from the source (waiting at most timeout for the first), then deliver
// everything pending. Returns the number of callback deliveries made.
func (l *Loop) Step(timeout time.Duration) (int, error) {
	if l.closed {
		return 0, api.ErrLoopClosed
	}
	sigs, err := l.src.Pull(l.budget, timeout)
	if err != nil {
		return 0, fmt.Errorf("source pull: %w", err)
	}
	for _, s := range sigs {
		l.pending.Add(s)
	}

	delivered := 0
	for l.pending.Length() > 0 {
		signum := l.pending.Remove().(int)
		delivered += l.dispatch(signum)
	}
	return delivered, nil
}

// Run drives Step until ctx is done or the loop is closed. Returns nil on
// context termination, the first engine error otherwise. The goroutine is
// pinned to its OS thread for the duration: the signalfd source relies on
// a per-thread sigmask.
func (l *Loop) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	const pollInterval = 50 * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if l.closed {
			return nil
		}
		if _, err := l.Step(pollInterval); err != nil {
			if l.closed {
				return nil
			}
			return err
		}
	}
}

// dispatch fans one occurrence out to every armed matching resource, in
// attach order, isolating callback panics so one failing callback cannot
// take the loop down.
func (l *Loop) dispatch(signum int) int {
	snapshot := make([]uint64, len(l.order))
	copy(snapshot, l.order)

	delivered := 0
	for _, id := range snapshot {
		r, ok := l.resources[id]
		if !ok || !r.armed || r.signum != signum || r.cb == nil {
			continue
		}
		l.safeInvoke(r, signum)
		delivered++
	}
	if delivered == 0 {
		l.metrics.Add("dropped", 1)
		l.log.Debug("occurrence with no armed watcher", zap.Int("signum", signum))
		return 0
	}
	l.metrics.Add("dispatched", int64(delivered))
	return delivered
}

func (l *Loop) safeInvoke(r *Resource, signum int) {
	defer func() {
		if rec := recover(); rec != nil {
			l.metrics.Add("callback_panics", 1)
			l.log.Error("native callback panic",
				zap.Int("signum", signum), zap.Any("recovered", rec))
		}
	}()
	r.cb(r, signum)
}

// Stats returns a snapshot of dispatch counters plus current table sizes.
func (l *Loop) Stats() map[string]any {
	out := l.metrics.GetSnapshot()
	out["resources"] = len(l.resources)
	out["pending"] = l.pending.Length()
	return out
}

// Alive reports whether the loop can still attach and dispatch.
func (l *Loop) Alive() bool { return !l.closed }

// Close releases every attached resource and the source. Terminal;
// idempotent.
func (l *Loop) Close() error {
	if l.closed {
		return nil
	}
	ids := make([]uint64, len(l.order))
	copy(ids, l.order)
	for _, id := range ids {
		if r, ok := l.resources[id]; ok {
			if err := r.Release(); err != nil {
				l.log.Warn("resource release on loop close",
					zap.Uint64("id", id), zap.Error(err))
			}
		}
	}
	l.closed = true
	if err := l.src.Close(); err != nil {
		return fmt.Errorf("source close: %w", err)
	}
	return nil
}
