// File: emitter/emitter.go
// Package emitter implements the typed listener registry.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Event kinds are Go types: a listener registered with On[T] only ever
// observes values of T, so routing is fixed at compile time rather than by
// runtime tags. Dispatch is synchronous and runs on the publisher's
// goroutine. The registry takes no locks: all subscribe/publish traffic is
// expected on the single dispatch goroutine, per the module's concurrency
// contract. Callers needing cross-goroutine access must serialize
// externally.

package emitter

import (
	"fmt"
	"reflect"
)

// Handler consumes one published event of kind T.
type Handler[T any] func(evt T)

// ListenerError is published on the same emitter when a listener panics.
// Listeners for ListenerError that themselves panic are routed to the
// emitter's fallback reporter instead, so dispatch never recurses.
type ListenerError struct {
	Kind      reflect.Type // event kind whose listener failed
	Recovered any          // value recovered from the panic
}

type entry struct {
	fn   func(any)
	once bool
	live bool
}

// Conn is a subscription token. Closing it removes exactly the listener it
// was returned for; closing twice, or during a dispatch that includes the
// listener, is safe.
type Conn struct {
	em   *Emitter
	kind reflect.Type
	e    *entry
}

// Close unsubscribes the listener. No-op if already removed.
func (c *Conn) Close() {
	if c == nil || c.e == nil || !c.e.live {
		return
	}
	c.e.live = false
	c.em.compact(c.kind)
}

// Emitter routes published events to listeners registered per event kind.
// Insertion order is invocation order; duplicate registrations of the same
// handler are kept and invoked once each.
type Emitter struct {
	handlers map[reflect.Type][]*entry
	report   func(error)
}

// New creates an empty Emitter. The fallback reporter discards; owners that
// want last-resort visibility install one with SetReporter.
func New() *Emitter {
	return &Emitter{
		handlers: make(map[reflect.Type][]*entry),
		report:   func(error) {},
	}
}

// SetReporter installs the fallback failure reporter used when a
// ListenerError listener itself panics.
func (e *Emitter) SetReporter(fn func(error)) {
	if fn != nil {
		e.report = fn
	}
}

// Clear drops every listener of every kind. In-flight dispatches observe
// the removal and skip the dropped listeners.
func (e *Emitter) Clear() {
	for _, list := range e.handlers {
		for _, en := range list {
			en.live = false
		}
	}
	e.handlers = make(map[reflect.Type][]*entry)
}

// Empty reports whether no listener of any kind remains.
func (e *Emitter) Empty() bool {
	for _, list := range e.handlers {
		for _, en := range list {
			if en.live {
				return false
			}
		}
	}
	return true
}

// compact rebuilds one kind's list keeping live entries only.
func (e *Emitter) compact(kind reflect.Type) {
	list := e.handlers[kind]
	out := list[:0]
	for _, en := range list {
		if en.live {
			out = append(out, en)
		}
	}
	if len(out) == 0 {
		delete(e.handlers, kind)
		return
	}
	e.handlers[kind] = out
}

func kindOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// On registers h for events of kind T. Never fails; returns the
// subscription token.
func On[T any](e *Emitter, h Handler[T]) *Conn {
	return attach(e, h, false)
}

// Once registers h for a single delivery of kind T: the listener is
// removed before its first invocation runs.
func Once[T any](e *Emitter, h Handler[T]) *Conn {
	return attach(e, h, true)
}

func attach[T any](e *Emitter, h Handler[T], once bool) *Conn {
	kind := kindOf[T]()
	en := &entry{
		fn:   func(v any) { h(v.(T)) },
		once: once,
		live: true,
	}
	e.handlers[kind] = append(e.handlers[kind], en)
	return &Conn{em: e, kind: kind, e: en}
}

// Count returns the number of live listeners for kind T.
func Count[T any](e *Emitter) int {
	n := 0
	for _, en := range e.handlers[kindOf[T]()] {
		if en.live {
			n++
		}
	}
	return n
}

// Publish delivers evt to every currently-subscribed listener for T, in
// subscription order, synchronously. All listeners run before Publish
// returns. A panicking listener does not prevent later listeners from
// running; each recovered panic is re-published as a ListenerError after
// the faulting dispatch completes.
func Publish[T any](e *Emitter, evt T) {
	kind := kindOf[T]()
	list := e.handlers[kind]
	if len(list) == 0 {
		return
	}

	// Snapshot so listener bodies may subscribe/unsubscribe freely;
	// the live flag covers removals made mid-dispatch.
	snapshot := make([]*entry, len(list))
	copy(snapshot, list)

	var failures []any
	for _, en := range snapshot {
		if !en.live {
			continue
		}
		if en.once {
			en.live = false
		}
		if rec := guarded(en, evt); rec != nil {
			failures = append(failures, rec)
		}
	}
	e.compact(kind)

	for _, rec := range failures {
		if kind == kindOf[ListenerError]() {
			e.report(fmt.Errorf("listener error handler panic: %v", rec))
			continue
		}
		Publish(e, ListenerError{Kind: kind, Recovered: rec})
	}
}

// guarded invokes one listener, converting a panic into a non-nil result.
func guarded[T any](en *entry, evt T) (rec any) {
	defer func() { rec = recover() }()
	en.fn(evt)
	return nil
}
