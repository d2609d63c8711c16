// File: api/states.go
// Package api defines the handle lifecycle state machine.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// State is the lifecycle state of a resource handle.
//
// Transitions: Uninitialized -> Initialized -> Active <-> Stopped -> Closed.
// Closed is terminal; the Active/Stopped cycle may repeat any number of
// times. A handle enters Initialized at most once.
type State uint8

const (
	// Uninitialized is the state immediately after construction.
	// No native resource exists yet.
	Uninitialized State = iota

	// Initialized means the native resource is allocated and bound to a
	// dispatch loop, with the back-pointer installed. Entered exactly once.
	Initialized

	// Active means the resource is armed and the loop may invoke its
	// native callback.
	Active

	// Stopped means the watch is disarmed but the resource is retained.
	Stopped

	// Closed is terminal: the native resource is released and the
	// back-pointer cleared. Every operation afterwards is a usage error.
	Closed
)

// String returns a short form suitable for logs and error contexts.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Active:
		return "active"
	case Stopped:
		return "stopped"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
