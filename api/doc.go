// Package api
// Author: momentics <momentics@gmail.com>
//
// Core contracts of hioload-signals: handle lifecycle states, the watcher
// capability interface implemented by every resource-handle specialization,
// and the structured error taxonomy separating caller misuse from native
// engine failures.
//
// This package carries no implementation and no dependencies beyond the
// standard library; every other package in the module builds on it.
package api
