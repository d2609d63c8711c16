// File: handle/base.go
// Package handle implements the generic resource-handle base.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Base owns one native resource slot for the handle's whole lifetime and
// carries the lifecycle state machine, the call-and-check primitive every
// domain operation funnels through, and the handle's listener registry.
// Specializations embed Base, supply their own arming operations and
// callback bridge, and never touch raw loop entry points directly.

package handle

import (
	"go.uber.org/zap"

	"github.com/momentics/hioload-signals/api"
	"github.com/momentics/hioload-signals/emitter"
	"github.com/momentics/hioload-signals/loop"
)

// Base is the generic resource handle. Zero value is not usable; build
// one with Make inside a specialization's constructor.
type Base struct {
	em    *emitter.Emitter
	lp    *loop.Loop
	owner any
	res   *loop.Resource
	st    api.State
}

// Make builds a Base bound to lp, owned by owner. The owner reference
// becomes the native back-pointer at Init time: it is what the callback
// bridge recovers inside engine dispatch, and it keeps the specialization
// reachable for as long as the native layer may still invoke callbacks.
func Make(lp *loop.Loop, owner any) Base {
	em := emitter.New()
	em.SetReporter(func(err error) {
		lp.Logger().Error("listener failure unreported", zap.Error(err))
	})
	return Base{em: em, lp: lp, owner: owner, st: api.Uninitialized}
}

// Emitter exposes the handle's listener registry.
func (b *Base) Emitter() *emitter.Emitter { return b.em }

// Loop returns the dispatch loop this handle is bound to.
func (b *Base) Loop() *loop.Loop { return b.lp }

// State returns the current lifecycle state.
func (b *Base) State() api.State { return b.st }

// Active reports whether the handle is armed.
func (b *Base) Active() bool { return b.st == api.Active }

// Resource exposes the native resource to specializations. External code
// must manipulate the resource only through typed operations.
func (b *Base) Resource() *loop.Resource { return b.res }

// Init allocates the native resource and installs the back-pointer,
// transitioning Uninitialized -> Initialized. Valid exactly once; on a
// native failure no partial allocation remains visible.
func (b *Base) Init(op string) error {
	switch b.st {
	case api.Closed:
		return api.Usage(op, api.ErrClosed)
	case api.Uninitialized:
	default:
		return api.Usage(op, api.ErrAlreadyInitialized)
	}
	res, err := b.lp.Attach()
	if err != nil {
		nerr := api.Native(op, err)
		emitter.Publish(b.em, ErrorEvent{Op: op, Err: nerr})
		return nerr
	}
	res.SetData(b.owner)
	b.res = res
	b.st = api.Initialized
	return nil
}

// Invoke is the generic perform-a-native-call primitive: it gates on
// lifecycle state, runs fn against the owned resource, and translates a
// failure into a native api.Error carrying op's identity. Failures are
// additionally published as ErrorEvent.
func (b *Base) Invoke(op string, fn func(res *loop.Resource) error) error {
	switch b.st {
	case api.Closed:
		return api.Usage(op, api.ErrClosed)
	case api.Uninitialized:
		return api.Usage(op, api.ErrNotInitialized)
	}
	if err := fn(b.res); err != nil {
		nerr := api.Native(op, err)
		emitter.Publish(b.em, ErrorEvent{Op: op, Err: nerr})
		return nerr
	}
	return nil
}

// Arm runs a native arming operation and transitions to Active. Re-arming
// while already Active is permitted: last arm wins.
func (b *Base) Arm(op string, fn func(res *loop.Resource) error) error {
	if err := b.Invoke(op, fn); err != nil {
		return err
	}
	b.st = api.Active
	return nil
}

// Disarm runs a native disarming operation and transitions Active ->
// Stopped. Idempotent: disarming a Stopped handle succeeds and stays
// Stopped; disarming before any arm is a no-op in Initialized.
func (b *Base) Disarm(op string, fn func(res *loop.Resource) error) error {
	switch b.st {
	case api.Closed:
		return api.Usage(op, api.ErrClosed)
	case api.Uninitialized:
		return api.Usage(op, api.ErrNotInitialized)
	case api.Initialized:
		return nil
	}
	if err := b.Invoke(op, fn); err != nil {
		return err
	}
	b.st = api.Stopped
	return nil
}

// Close releases the native resource and enters the terminal state from
// any prior one, disarming first if Active. CloseEvent is delivered to
// listeners before the registry is cleared. Idempotent.
func (b *Base) Close() error {
	if b.st == api.Closed {
		return nil
	}
	var err error
	if b.res != nil {
		if rerr := b.res.Release(); rerr != nil {
			err = api.Native("handle_close", rerr)
		}
		b.res = nil
	}
	b.st = api.Closed
	emitter.Publish(b.em, CloseEvent{})
	b.em.Clear()
	return err
}
