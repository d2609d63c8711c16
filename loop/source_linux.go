// loop/source_linux.go
//go:build linux
// +build linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux occurrence source backed by signalfd(2). Watched signals are
// blocked on the dispatch thread and consumed through the descriptor, so
// delivery becomes an ordinary non-blocking read instead of an async
// handler. The goroutine driving the loop must stay on one OS thread for
// the sigmask to hold; Loop.Run locks itself accordingly.

package loop

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

func newPlatformSource() (Source, error) { return newSignalfdSource() }

type signalfdSource struct {
	fd   int
	mask unix.Sigset_t
}

func newSignalfdSource() (*signalfdSource, error) {
	s := &signalfdSource{}
	fd, err := unix.Signalfd(-1, &s.mask, unix.SFD_NONBLOCK|unix.SFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("signalfd create: %w", err)
	}
	s.fd = fd
	return s, nil
}

func sigaddset(set *unix.Sigset_t, sig int) {
	bits := uint(unsafe.Sizeof(set.Val[0])) * 8
	set.Val[uint(sig-1)/bits] |= 1 << (uint(sig-1) % bits)
}

func sigdelset(set *unix.Sigset_t, sig int) {
	bits := uint(unsafe.Sizeof(set.Val[0])) * 8
	set.Val[uint(sig-1)/bits] &^= 1 << (uint(sig-1) % bits)
}

// Watch blocks signum for normal delivery and adds it to the descriptor's
// mask.
func (s *signalfdSource) Watch(signum int) error {
	sigaddset(&s.mask, signum)
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &s.mask, nil); err != nil {
		return fmt.Errorf("sigmask block: %w", err)
	}
	if _, err := unix.Signalfd(s.fd, &s.mask, unix.SFD_NONBLOCK|unix.SFD_CLOEXEC); err != nil {
		return fmt.Errorf("signalfd update: %w", err)
	}
	return nil
}

// Unwatch removes signum from the mask and restores normal delivery.
func (s *signalfdSource) Unwatch(signum int) error {
	sigdelset(&s.mask, signum)
	if _, err := unix.Signalfd(s.fd, &s.mask, unix.SFD_NONBLOCK|unix.SFD_CLOEXEC); err != nil {
		return fmt.Errorf("signalfd update: %w", err)
	}
	var one unix.Sigset_t
	sigaddset(&one, signum)
	if err := unix.PthreadSigmask(unix.SIG_UNBLOCK, &one, nil); err != nil {
		return fmt.Errorf("sigmask unblock: %w", err)
	}
	return nil
}

// Pull reads queued siginfo records. With no occurrence pending and a
// positive timeout it polls the descriptor once for readability.
func (s *signalfdSource) Pull(max int, timeout time.Duration) ([]int, error) {
	if max <= 0 {
		max = 1
	}
	recordLen := int(unsafe.Sizeof(unix.SignalfdSiginfo{}))
	buf := make([]byte, recordLen)

	var out []int
	for len(out) < max {
		n, err := unix.Read(s.fd, buf)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN || err == unix.EWOULDBLOCK:
			if len(out) > 0 || timeout <= 0 {
				return out, nil
			}
			pfd := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
			if _, perr := unix.Poll(pfd, int(timeout/time.Millisecond)); perr != nil {
				if perr == unix.EINTR {
					return out, nil
				}
				return out, fmt.Errorf("signalfd poll: %w", perr)
			}
			timeout = 0
		case err != nil:
			return out, fmt.Errorf("signalfd read: %w", err)
		case n < recordLen:
			return out, fmt.Errorf("signalfd short read: %d bytes", n)
		default:
			info := (*unix.SignalfdSiginfo)(unsafe.Pointer(&buf[0]))
			out = append(out, int(info.Signo))
		}
	}
	return out, nil
}

// Close releases the descriptor and unblocks everything still masked.
func (s *signalfdSource) Close() error {
	if err := unix.PthreadSigmask(unix.SIG_UNBLOCK, &s.mask, nil); err != nil {
		return fmt.Errorf("sigmask unblock: %w", err)
	}
	return unix.Close(s.fd)
}
