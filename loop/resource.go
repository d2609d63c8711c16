// File: loop/resource.go
// Package loop defines the native watcher resource slot.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package loop

import (
	"go.uber.org/zap"

	"github.com/momentics/hioload-signals/api"
)

// Callback is the native-level callback invoked by the dispatch loop when
// an occurrence matches an armed resource. It receives only the native
// resource and the raw condition identifier; recovering the typed owner is
// the bridge's job, via Data.
type Callback func(res *Resource, signum int)

// Resource is one native watcher slot. It is allocated by Loop.Attach,
// exclusively owned by a single handle, and mutated only through its own
// methods on the dispatch goroutine.
type Resource struct {
	id     uint64
	lp     *Loop
	signum int
	cb     Callback
	data   any
	armed  bool
	closed bool
}

// SetData installs the opaque back-pointer to the owning handle. Set once
// at allocation; cleared automatically on Release.
func (r *Resource) SetData(data any) { r.data = data }

// Data returns the back-pointer to the owning handle, or nil after Release.
func (r *Resource) Data() any { return r.data }

// Signum returns the currently armed condition identifier, zero when
// disarmed or never armed.
func (r *Resource) Signum() int { return r.signum }

// Armed reports whether the loop may invoke this resource's callback.
func (r *Resource) Armed() bool { return r.armed }

// Arm registers cb for signum. Re-arming while already armed switches the
// watched identifier without an intervening Disarm: last arm wins.
func (r *Resource) Arm(signum int, cb Callback) error {
	if r.closed {
		return api.ErrResourceReleased
	}
	if r.armed && r.signum == signum {
		r.cb = cb
		return nil
	}
	if err := r.lp.watch(signum); err != nil {
		return err
	}
	if r.armed {
		// Best effort: the new watch is already established.
		if err := r.lp.unwatch(r.signum); err != nil {
			r.lp.log.Warn("unwatch during re-arm failed",
				zap.Int("signum", r.signum), zap.Error(err))
		}
	}
	r.signum = signum
	r.cb = cb
	r.armed = true
	return nil
}

// Disarm cancels the watch, keeping the slot allocated. No-op when not
// armed.
func (r *Resource) Disarm() error {
	if r.closed {
		return api.ErrResourceReleased
	}
	if !r.armed {
		return nil
	}
	if err := r.lp.unwatch(r.signum); err != nil {
		return err
	}
	r.armed = false
	r.cb = nil
	return nil
}

// Release disarms if needed, clears the back-pointer and detaches the slot
// from the loop. Idempotent. After Release the loop can never route an
// occurrence to this resource again.
func (r *Resource) Release() error {
	if r.closed {
		return nil
	}
	err := r.Disarm()
	r.closed = true
	r.data = nil
	r.cb = nil
	r.lp.detach(r.id)
	return err
}
