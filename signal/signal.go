// File: signal/signal.go
// Package signal binds the generic handle base to OS signal watching.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Handle arms the dispatch loop for one signal number at a time and
// publishes an Event per delivery. It is the reference specialization of
// handle.Base: other resource kinds follow the same shape — a typed event,
// a constructor installing the back-pointer owner, domain operations built
// on Arm/Disarm, and a package-private callback bridge.

package signal

import (
	"github.com/momentics/hioload-signals/api"
	"github.com/momentics/hioload-signals/emitter"
	"github.com/momentics/hioload-signals/handle"
	"github.com/momentics/hioload-signals/loop"
)

// Event is published once per signal delivery. Immutable value; its only
// payload is the signal number that occurred.
type Event struct {
	signum int
}

// Signal returns the delivered signal number.
func (e Event) Signal() int { return e.signum }

// Handle watches one signal number on a dispatch loop.
type Handle struct {
	handle.Base
	signum int
}

var _ api.Watcher = (*Handle)(nil)

// New creates a signal handle bound to lp. This is the only construction
// path: the handle's back-pointer is installed at Init and keeps the
// instance reachable while engine callbacks may still fire, independent of
// the creator's own reference.
func New(lp *loop.Loop) *Handle {
	h := &Handle{}
	h.Base = handle.Make(lp, h)
	return h
}

// startCallback is the untyped-to-typed bridge. The loop hands it only the
// native resource and the raw signal number; the owning Handle is
// recovered solely from the back-pointer stored in the resource. A stale
// invocation after close finds no back-pointer and is ignored.
func startCallback(res *loop.Resource, signum int) {
	owner, ok := res.Data().(*Handle)
	if !ok || owner == nil {
		return
	}
	emitter.Publish(owner.Emitter(), Event{signum: signum})
}

// Init allocates the native watcher on the loop. Valid exactly once.
func (h *Handle) Init() error {
	return h.Base.Init("signal_init")
}

// Start arms the handle for signum; Event is published on each delivery.
// Starting while already Active re-arms for the new number without an
// intervening Stop: last start wins.
func (h *Handle) Start(signum int) error {
	err := h.Arm("signal_start", func(res *loop.Resource) error {
		return res.Arm(signum, startCallback)
	})
	if err != nil {
		return err
	}
	h.signum = signum
	return nil
}

// Stop disarms the handle, keeping the native watcher allocated.
// Idempotent.
func (h *Handle) Stop() error {
	return h.Disarm("signal_stop", func(res *loop.Resource) error {
		return res.Disarm()
	})
}

// Signal returns the last signal number passed to Start, valid even while
// Stopped. Zero before the first Start.
func (h *Handle) Signal() int { return h.signum }
