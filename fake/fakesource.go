// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"time"

	"github.com/momentics/hioload-signals/loop"
)

// Source is a scripted occurrence source for tests. Inject queues
// occurrences that the next Pull hands to the loop; Watch/Unwatch calls
// are recorded and can be made to fail.
type Source struct {
	queued    []int
	watched   map[int]int
	FailWatch error // returned by Watch when non-nil
	Closed    bool
}

var _ loop.Source = (*Source)(nil)

func NewSource() *Source {
	return &Source{watched: make(map[int]int)}
}

// Inject queues one occurrence for the next Pull.
func (s *Source) Inject(signum int) { s.queued = append(s.queued, signum) }

func (s *Source) Watch(signum int) error {
	if s.FailWatch != nil {
		return s.FailWatch
	}
	s.watched[signum]++
	return nil
}

func (s *Source) Unwatch(signum int) error {
	s.watched[signum]--
	return nil
}

// Watching reports whether signum is currently watched.
func (s *Source) Watching(signum int) bool { return s.watched[signum] > 0 }

func (s *Source) Pull(max int, _ time.Duration) ([]int, error) {
	if max <= 0 || max > len(s.queued) {
		max = len(s.queued)
	}
	out := s.queued[:max]
	s.queued = s.queued[max:]
	return out, nil
}

func (s *Source) Close() error {
	s.Closed = true
	return nil
}
