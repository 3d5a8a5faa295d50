package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isobusfs/isobusfs/internal/eventloop"
	"github.com/isobusfs/isobusfs/internal/wire"
)

func TestBeaconIdleCadence(t *testing.T) {
	now := time.Now()
	clock := now
	loop := eventloop.New(nil, func() time.Time { return clock })

	var sent []wire.FSStatus
	b := NewBeacon(loop, func(s wire.FSStatus) { sent = append(sent, s) }, func() byte { return 0 })
	b.Start(now, 0)

	clock = clock.Add(idleCadence + time.Second)
	loop.Step(clock)

	require.Len(t, sent, 1)
	assert.Equal(t, byte(0), sent[0].Status)
}

// TestBeaconFlipBackToIdleStillBurstsAtBusyCadence exercises spec §4.9's
// "on every status-byte change the next five messages are sent at the
// busy cadence regardless of the true state": a brief busy excursion
// that settles back to idle still gets five fast beacons before cadence
// relaxes.
func TestBeaconFlipBackToIdleStillBurstsAtBusyCadence(t *testing.T) {
	now := time.Now()
	clock := now
	loop := eventloop.New(nil, func() time.Time { return clock })

	var sent []wire.FSStatus
	b := NewBeacon(loop, func(s wire.FSStatus) { sent = append(sent, s) }, func() byte { return 0 })
	b.Start(now, 0)

	b.Notify(wire.FSStatusReading)
	b.Notify(0) // settles back to idle before the next tick fires

	// The first pending tick was scheduled at idleCadence by Start,
	// coincidentally, before the flip. Every tick after it, while the
	// armed burst lasts, reschedules its successor at busyCadence; the
	// burst covers the next flipBurst ticks after this first one.
	clock = clock.Add(idleCadence + time.Second)
	loop.Step(clock)
	for i := 0; i < flipBurst; i++ {
		clock = clock.Add(busyCadence + 10*time.Millisecond)
		loop.Step(clock)
	}
	require.Len(t, sent, flipBurst+1)
	for _, s := range sent {
		assert.Equal(t, byte(0), s.Status)
	}

	clock = clock.Add(busyCadence + 10*time.Millisecond)
	loop.Step(clock) // burst exhausted, next cadence is idle: no beacon yet
	assert.Len(t, sent, flipBurst+1)

	clock = clock.Add(idleCadence + time.Second)
	loop.Step(clock)
	assert.Len(t, sent, flipBurst+2)
}
