package server

import (
	"math/rand"
	"time"

	"github.com/isobusfs/isobusfs/internal/eventloop"
	"github.com/isobusfs/isobusfs/internal/wire"
)

// Beacon cadences (spec §4.9): "2000 ms while idle, 200 ms while busy;
// on every status-byte change the next five messages are sent at the
// busy cadence regardless of the true state". A +-5ms jitter window is
// accepted around the scheduled time.
const (
	idleCadence  = 2000 * time.Millisecond
	busyCadence  = 200 * time.Millisecond
	jitterWindow = 5 * time.Millisecond
	flipBurst    = 5
)

// Beacon drives the periodic File Server Status broadcast.
type Beacon struct {
	loop      *eventloop.Loop
	send      func(wire.FSStatus)
	lastByte  byte
	burstLeft int
	id        eventloop.TimerID
	openCount func() byte
}

// NewBeacon wires a Beacon that calls send with a freshly computed
// FSStatus on every tick. openCount reports the current open-handle
// count (spec §4.9 "the count of open files").
func NewBeacon(loop *eventloop.Loop, send func(wire.FSStatus), openCount func() byte) *Beacon {
	return &Beacon{loop: loop, send: send, openCount: openCount}
}

// Start schedules the first tick; call once at server startup.
func (b *Beacon) Start(now time.Time, status byte) {
	b.lastByte = status
	b.schedule(now, idleCadence)
}

func (b *Beacon) schedule(now time.Time, cadence time.Duration) {
	jitter := time.Duration(rand.Int63n(int64(2*jitterWindow))) - jitterWindow
	b.id = b.loop.After(cadence+jitter, b.tick)
}

// tick fires on schedule; Notify must be called by the dispatcher
// beforehand (or concurrently) to keep lastByte current, so tick itself
// only reads it.
func (b *Beacon) tick(now time.Time) {
	var open byte
	if b.openCount != nil {
		open = b.openCount()
	}
	status := wire.FSStatus{Status: b.lastByte, OpenCount: open}
	b.send(status)

	cadence := idleCadence
	if b.lastByte&(wire.FSStatusReading|wire.FSStatusWriting) != 0 {
		cadence = busyCadence
	}
	if b.burstLeft > 0 {
		b.burstLeft--
		cadence = busyCadence
	}
	b.schedule(now, cadence)
}

// Notify tells the beacon the current status bitfield; a change from
// the previous value arms a five-message busy-cadence burst (spec
// §4.9), regardless of whether the new status itself is "busy".
func (b *Beacon) Notify(status byte) {
	if status != b.lastByte {
		b.burstLeft = flipBurst
	}
	b.lastByte = status
}

// Stop cancels the pending tick, for clean shutdown in tests.
func (b *Beacon) Stop() {
	b.loop.Cancel(b.id)
}
