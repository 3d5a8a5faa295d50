//go:build linux

package eventloop

import (
	"time"

	"golang.org/x/sys/unix"
)

// pollOnce blocks up to timeout waiting for any registered socket (or
// stdin) to become readable. Transports with no real fd (Fd() == -1,
// e.g. the in-memory Fake) are left out of the poll set; when nothing
// real remains it sleeps out the timeout. Step then does a non-blocking
// Recv on every socket regardless.
func (l *Loop) pollOnce(timeout time.Duration) error {
	var fds []unix.PollFd
	hasRealFd := false
	for _, s := range l.sockets {
		fd := s.t.Fd()
		if fd < 0 {
			continue
		}
		hasRealFd = true
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	}
	if l.stdin != nil {
		hasRealFd = true
		fds = append(fds, unix.PollFd{Fd: 0, Events: unix.POLLIN})
	}
	if !hasRealFd {
		// Nothing real to wait on (e.g. an all-Fake test loop): sleep
		// out the computed timeout instead of spinning.
		time.Sleep(timeout)
		return nil
	}

	ms := int(timeout / time.Millisecond)
	_, err := unix.Poll(fds, ms)
	if err == unix.EINTR {
		return nil
	}
	return err
}
