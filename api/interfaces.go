// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package api

// Watcher is the capability interface every resource-handle specialization
// satisfies. Arming (start) is kind-specific and therefore not part of the
// shared surface: each specialization exposes its own typed Start.
type Watcher interface {
	// Init allocates the native resource and binds it to the dispatch
	// loop. Valid exactly once per handle.
	Init() error

	// Stop disarms the watch, retaining the native resource. Idempotent.
	Stop() error

	// Close releases the native resource. Terminal.
	Close() error

	// State returns the current lifecycle state.
	State() State
}
