package selftest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isobusfs/isobusfs/internal/client"
	"github.com/isobusfs/isobusfs/internal/eventloop"
	"github.com/isobusfs/isobusfs/internal/isoerrors"
	"github.com/isobusfs/isobusfs/internal/transport"
	"github.com/isobusfs/isobusfs/internal/wire"
)

// fakeServer answers every GetFSPropertiesReq with success, standing in
// for a real file server the way the selftest harness would normally
// run against one over SocketCAN.
func fakeServer(t *testing.T, peer *transport.Fake, stop <-chan struct{}) {
	t.Helper()
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			d, ok, err := peer.Recv()
			if err != nil || !ok {
				time.Sleep(time.Millisecond)
				continue
			}
			if len(d.Data) < 2 {
				continue
			}
			req := wire.DecodeGetFSPropertiesReq(wire.NewReader(d.Data[1:]))
			resp := wire.GetFSPropertiesResp{TAN: req.TAN, Code: isoerrors.CodeSuccess, VersionNumber: 3}
			_ = peer.SendTo(d.Peer, resp.Encode())
		}
	}()
}

func TestHarnessGetPropertiesCasePasses(t *testing.T) {
	p := transport.NewPipe()
	require.NoError(t, p.A.Open(transport.RoleClientMain))
	require.NoError(t, p.B.Open(transport.RoleServerReply))
	require.NoError(t, p.A.Bind(transport.Address{Addr: 1}))
	require.NoError(t, p.A.Connect(transport.Address{Addr: 2}))

	stop := make(chan struct{})
	defer close(stop)
	fakeServer(t, p.B, stop)

	e := client.NewEngine(nil, p.A, 0)
	loop := eventloop.New(nil, nil)
	loop.RegisterSocket(p.A, func(d transport.Datagram) { e.Dispatch(d.Data) })
	loop.Every(50*time.Millisecond, e.Sweep)

	h := New(nil, e, loop, nil, Config{DefaultVolume: "vol1"})
	err := h.runWithWatchdog((*Harness).caseGetProperties)
	assert.NoError(t, err)
}

func TestHarnessWatchdogTimesOutWithNoServer(t *testing.T) {
	p := transport.NewFake()
	require.NoError(t, p.Open(transport.RoleClientMain))
	require.NoError(t, p.Connect(transport.Address{Addr: 2}))

	e := client.NewEngine(nil, p, 0)
	loop := eventloop.New(nil, nil)
	loop.RegisterSocket(p, func(d transport.Datagram) { e.Dispatch(d.Data) })
	loop.Every(50*time.Millisecond, e.Sweep)

	h := New(nil, e, loop, nil, Config{DefaultVolume: "vol1"})
	// client.DefaultTimeout (1s) fires well inside CaseTimeout (5s), so
	// the pending-request sweep reports TIMED_OUT before the watchdog
	// would ever need to.
	err := h.runWithWatchdog((*Harness).caseGetProperties)
	assert.ErrorIs(t, err, isoerrors.ErrTimedOut)
}
