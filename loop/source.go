// File: loop/source.go
// Package loop defines the occurrence-source contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package loop

import "time"

// Source feeds raw condition occurrences (signal numbers) into a Loop.
// Platform implementations translate OS delivery into Pull results; tests
// substitute scripted sources. All methods are called from the dispatch
// goroutine only.
type Source interface {
	// Watch asks the source to begin observing signum. Called on the
	// first resource armed for signum.
	Watch(signum int) error

	// Unwatch stops observing signum. Called when the last resource
	// armed for signum disarms.
	Unwatch(signum int) error

	// Pull returns up to max pending occurrences. A zero timeout is a
	// non-blocking probe; a positive timeout bounds the wait for the
	// first occurrence.
	Pull(max int, timeout time.Duration) ([]int, error)

	// Close releases any OS state held by the source.
	Close() error
}
