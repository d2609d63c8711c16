// File: loop/options.go
// Package loop defines functional options for Loop construction.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package loop

import "go.uber.org/zap"

// Option customizes Loop initialization.
type Option func(*Loop)

// WithSource substitutes the occurrence source. Tests pass fakes here.
func WithSource(src Source) Option {
	return func(l *Loop) {
		l.src = src
	}
}

// WithLogger sets the structured logger used for dispatch diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(l *Loop) {
		if log != nil {
			l.log = log
		}
	}
}

// WithDispatchBudget overrides the maximum occurrences pulled per Step.
func WithDispatchBudget(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.budget = n
		}
	}
}
