// loop/source_stub.go
//go:build !linux
// +build !linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Portable occurrence source for platforms without signalfd. Delivery goes
// through the runtime's signal channel; granularity and coalescing follow
// os/signal semantics.

package loop

import (
	"os"
	"os/signal"
	"syscall"
	"time"
)

func newPlatformSource() (Source, error) { return newNotifySource(), nil }

type notifySource struct {
	ch      chan os.Signal
	watched map[int]struct{}
}

func newNotifySource() *notifySource {
	return &notifySource{
		ch:      make(chan os.Signal, 128),
		watched: make(map[int]struct{}),
	}
}

func (s *notifySource) Watch(signum int) error {
	s.watched[signum] = struct{}{}
	signal.Notify(s.ch, syscall.Signal(signum))
	return nil
}

func (s *notifySource) Unwatch(signum int) error {
	delete(s.watched, signum)
	signal.Reset(syscall.Signal(signum))
	return nil
}

func (s *notifySource) Pull(max int, timeout time.Duration) ([]int, error) {
	if max <= 0 {
		max = 1
	}
	var out []int
	for len(out) < max {
		select {
		case sig := <-s.ch:
			if n, ok := sig.(syscall.Signal); ok {
				out = append(out, int(n))
			}
		default:
			if len(out) > 0 || timeout <= 0 {
				return out, nil
			}
			select {
			case sig := <-s.ch:
				if n, ok := sig.(syscall.Signal); ok {
					out = append(out, int(n))
				}
			case <-time.After(timeout):
				return out, nil
			}
			timeout = 0
		}
	}
	return out, nil
}

func (s *notifySource) Close() error {
	signal.Stop(s.ch)
	return nil
}
