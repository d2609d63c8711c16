// File: handle/events.go
// Package handle defines the event kinds shared by every handle.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package handle

// CloseEvent is published exactly once, when a handle reaches its terminal
// state, before the handle's listeners are cleared.
type CloseEvent struct{}

// ErrorEvent is published when a native operation performed through the
// handle fails. The same failure is also returned to the caller; the event
// channel exists for listeners that cannot observe the synchronous return,
// such as code reacting to failures raised from engine dispatch.
type ErrorEvent struct {
	Op  string
	Err error
}
