//go:build !linux

package eventloop

import "time"

// pollOnce on non-Linux builds has no real kernel transport to wait on
// (spec §1: SocketCAN is Linux-only); it just sleeps out the computed
// timeout so Step's Fake-backed sockets get polled at the same cadence
// a real loop would wake at.
func (l *Loop) pollOnce(timeout time.Duration) error {
	time.Sleep(timeout)
	return nil
}
