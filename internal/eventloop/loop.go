// Package eventloop implements the single-threaded, cooperative
// readiness loop from spec §4.3: one readiness primitive multiplexes
// every socket plus (optionally) standard input, parameterized with a
// timeout of max(0, next_wakeup-now), and on every wake it drains ready
// sockets, sweeps expired timers, then runs periodic tasks.
package eventloop

import (
	"time"

	"github.com/isobusfs/isobusfs/internal/isolog"
	"github.com/isobusfs/isobusfs/internal/transport"
)

// socketEntry pairs a transport with the dispatcher that consumes its
// datagrams.
type socketEntry struct {
	t  transport.Transport
	on func(transport.Datagram)
}

// Loop owns every socket and timer for one process (client or server).
// Nothing outside Step/Run touches its fields, matching the "no locks,
// nothing accessed off-loop" invariant of spec §5.
type Loop struct {
	log     *isolog.Logger
	sockets []*socketEntry
	timers  *timerWheel
	stdin   func() // polled every wake when non-nil; handles whatever input is ready
	stopped bool
	now     func() time.Time
}

// New builds an empty Loop. nowFn lets tests inject a fake clock; pass
// nil to use time.Now.
func New(log *isolog.Logger, nowFn func() time.Time) *Loop {
	if log == nil {
		log = isolog.Nop()
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Loop{log: log, timers: newTimerWheel(), now: nowFn}
}

// RegisterSocket adds t to the readiness set; on returns each datagram
// received from it as soon as it's ready.
func (l *Loop) RegisterSocket(t transport.Transport, on func(transport.Datagram)) {
	l.sockets = append(l.sockets, &socketEntry{t: t, on: on})
}

// RegisterStdin wires a non-blocking "a line may be ready" poll
// function, used by the interactive REPL (spec §4.3 "standard input
// (optional)").
func (l *Loop) RegisterStdin(poll func()) {
	l.stdin = poll
}

// After, AtDeadline and Every schedule timer callbacks; see timer.go.
func (l *Loop) After(d time.Duration, fn func(now time.Time)) TimerID {
	return l.timers.After(l.now(), d, fn)
}
func (l *Loop) AtDeadline(deadline time.Time, fn func(now time.Time)) TimerID {
	return l.timers.AtDeadline(deadline, fn)
}
func (l *Loop) Every(d time.Duration, fn func(now time.Time)) TimerID {
	return l.timers.Every(l.now(), d, fn)
}
func (l *Loop) Cancel(id TimerID) { l.timers.Cancel(id) }

// Stop requests Run to return after the current wake.
func (l *Loop) Stop() { l.stopped = true }

// NextTimeout computes max(0, next_wakeup-now) per spec §4.3. A zero
// duration with ok=false means no timer is pending; Run then waits up
// to defaultIdleTimeout for socket readiness.
func (l *Loop) NextTimeout(now time.Time) (time.Duration, bool) {
	at, ok := l.timers.next()
	if !ok {
		return 0, false
	}
	d := at.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}

// Step drains every ready socket, fires expired timers, and polls
// stdin once. It's the unit test seam: tests call Step directly with a
// controlled clock instead of going through Run's real poll.
func (l *Loop) Step(now time.Time) {
	for _, s := range l.sockets {
		for {
			d, ok, err := s.t.Recv()
			if err != nil {
				l.log.Warnf("eventloop: recv error: %v", err)
				break
			}
			if !ok {
				break
			}
			s.on(d)
		}
	}
	if l.stdin != nil {
		l.stdin()
	}
	l.timers.fire(now)
}

// Run polls every registered socket's fd (and stdin, fd 0, if
// registered) for readiness, blocking up to the computed timeout, then
// calls Step. It returns when Stop is called or pollOnce returns a
// fatal error (spec §7 "transport fatal ... abort process").
func (l *Loop) Run() error {
	for !l.stopped {
		now := l.now()
		timeout, hasDeadline := l.NextTimeout(now)
		if !hasDeadline {
			timeout = defaultIdleTimeout
		}
		if err := l.pollOnce(timeout); err != nil {
			return err
		}
		l.Step(l.now())
	}
	return nil
}

// defaultIdleTimeout bounds how long Run blocks when no timer is
// pending, so a newly registered timer from another goroutine's signal
// (there are none in steady state, but Stop() needs a wake) is noticed
// promptly.
const defaultIdleTimeout = 1 * time.Second
