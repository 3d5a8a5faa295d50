package eventloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isobusfs/isobusfs/internal/transport"
)

func TestStepDeliversDatagram(t *testing.T) {
	p := transport.NewPipe()
	require.NoError(t, p.A.Open(transport.RoleClientMain))
	require.NoError(t, p.B.Open(transport.RoleServerReply))
	require.NoError(t, p.A.Bind(transport.Address{Addr: 1}))
	require.NoError(t, p.B.Bind(transport.Address{Addr: 2}))
	require.NoError(t, p.A.Connect(transport.Address{Addr: 2}))
	require.NoError(t, p.A.Send([]byte{0xAA}))

	l := New(nil, nil)
	var got []transport.Datagram
	l.RegisterSocket(p.B, func(d transport.Datagram) { got = append(got, d) })

	l.Step(time.Now())
	require.Len(t, got, 1)
	assert.Equal(t, []byte{0xAA}, got[0].Data)
}

func TestTimerFiresAtDeadline(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }
	l := New(nil, clock)

	fired := false
	l.AtDeadline(now.Add(1*time.Second), func(time.Time) { fired = true })

	l.Step(now)
	assert.False(t, fired, "timer must not fire before its deadline")

	l.Step(now.Add(1 * time.Second))
	assert.True(t, fired)
}

func TestNextTimeoutComputesRemainder(t *testing.T) {
	now := time.Unix(2000, 0)
	l := New(nil, func() time.Time { return now })
	l.AtDeadline(now.Add(500*time.Millisecond), func(time.Time) {})

	d, ok := l.NextTimeout(now)
	require.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, d)

	d, ok = l.NextTimeout(now.Add(900 * time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), d, "elapsed deadlines clamp to zero, never negative")
}

func TestEveryReschedules(t *testing.T) {
	now := time.Unix(3000, 0)
	clock := func() time.Time { return now }
	l := New(nil, clock)

	count := 0
	l.Every(10*time.Millisecond, func(time.Time) { count++ })

	now = now.Add(10 * time.Millisecond)
	l.Step(now)
	now = now.Add(10 * time.Millisecond)
	l.Step(now)

	assert.Equal(t, 2, count)
}

func TestCancelPreventsFire(t *testing.T) {
	now := time.Unix(4000, 0)
	l := New(nil, func() time.Time { return now })

	fired := false
	id := l.AtDeadline(now, func(time.Time) { fired = true })
	l.Cancel(id)

	l.Step(now)
	assert.False(t, fired)
}
