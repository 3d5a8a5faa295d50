package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isobusfs/isobusfs/internal/isoerrors"
	"github.com/isobusfs/isobusfs/internal/transport"
	"github.com/isobusfs/isobusfs/internal/wire"
)

func TestSendAndRegisterRoundTrip(t *testing.T) {
	p := transport.NewPipe()
	require.NoError(t, p.A.Open(transport.RoleClientMain))
	require.NoError(t, p.B.Open(transport.RoleServerReply))
	require.NoError(t, p.A.Bind(transport.Address{Addr: 1}))
	require.NoError(t, p.A.Connect(transport.Address{Addr: 2}))

	e := NewEngine(nil, p.A, 0)
	now := time.Unix(1000, 0)

	var got wire.GetFSPropertiesResp
	var gotErr error
	require.NoError(t, e.GetPropertiesReq(now, func(resp wire.GetFSPropertiesResp, err error) {
		got, gotErr = resp, err
	}))
	assert.Equal(t, KindWaiting, e.State().Kind)
	assert.Equal(t, OpGetProperties, e.State().Op)

	d, ok, err := p.B.Recv()
	require.NoError(t, err)
	require.True(t, ok)

	req := wire.DecodeGetFSPropertiesReq(wire.NewReader(d.Data[1:]))
	resp := wire.GetFSPropertiesResp{TAN: req.TAN, Code: isoerrors.CodeSuccess, VersionNumber: 3, MaxOpenHandles: 10}
	require.NoError(t, p.B.SendTo(transport.Address{Addr: 1}, resp.Encode()))

	rd, ok, err := p.A.Recv()
	require.NoError(t, err)
	require.True(t, ok)

	e.Dispatch(rd.Data)
	require.NoError(t, gotErr)
	assert.Equal(t, byte(3), got.VersionNumber)
	assert.Equal(t, 0, e.PendingCount())
}

func TestDispatchRejectsTanMismatch(t *testing.T) {
	p := transport.NewPipe()
	require.NoError(t, p.A.Open(transport.RoleClientMain))
	require.NoError(t, p.A.Bind(transport.Address{Addr: 1}))
	require.NoError(t, p.A.Connect(transport.Address{Addr: 2}))

	e := NewEngine(nil, p.A, 0)
	now := time.Unix(1000, 0)

	var gotErr error
	require.NoError(t, e.GetPropertiesReq(now, func(resp wire.GetFSPropertiesResp, err error) {
		gotErr = err
	}))

	bad := wire.GetFSPropertiesResp{TAN: e.ExpectedTan() + 1, Code: isoerrors.CodeSuccess}
	e.Dispatch(bad.Encode())

	require.Error(t, gotErr)
	assert.Equal(t, isoerrors.CodeTANError, isoerrors.CodeOf(gotErr))
}

func TestTanAllocationWraps(t *testing.T) {
	p := transport.NewFake()
	require.NoError(t, p.Open(transport.RoleClientMain))
	require.NoError(t, p.Connect(transport.Address{Addr: 2}))
	e := NewEngine(nil, p, 0)

	for i := 0; i < 256; i++ {
		tan := e.allocateTan()
		assert.Equal(t, byte(i), tan)
	}
	assert.Equal(t, byte(255), e.ExpectedTan())
	// the 257th allocation wraps TAN back to 0 (spec §8 scenario 7).
	assert.Equal(t, byte(0), e.allocateTan())
	assert.Equal(t, byte(0), e.ExpectedTan())
}

func TestPendingSweepFiresTimeout(t *testing.T) {
	p := transport.NewFake()
	require.NoError(t, p.Open(transport.RoleClientMain))
	require.NoError(t, p.Connect(transport.Address{Addr: 2}))
	e := NewEngine(nil, p, 0)

	now := time.Unix(2000, 0)
	var gotErr error
	require.NoError(t, e.GetPropertiesReq(now, func(resp wire.GetFSPropertiesResp, err error) {
		gotErr = err
	}))

	e.Sweep(now)
	assert.NoError(t, gotErr, "must not fire before the deadline")

	e.Sweep(now.Add(DefaultTimeout))
	assert.ErrorIs(t, gotErr, isoerrors.ErrTimedOut)
	assert.Equal(t, 0, e.PendingCount())
}

func TestUnmatchedFileHandlingFrameIsNacked(t *testing.T) {
	p := transport.NewPipe()
	require.NoError(t, p.A.Open(transport.RoleClientMain))
	require.NoError(t, p.B.Open(transport.RoleServerReply))
	require.NoError(t, p.A.Bind(transport.Address{Addr: 1}))
	require.NoError(t, p.A.Connect(transport.Address{Addr: 2}))

	e := NewEngine(nil, p.A, 0)
	unsolicited := []byte{wire.EncodeHeader(wire.CGFileHandling, 0), 0, 0, 0, 0, 0, 0, 0}
	e.Dispatch(unsolicited)

	d, ok, err := p.B.Recv()
	require.NoError(t, err)
	require.True(t, ok)
	nack, ok := wire.DecodeNACK(d.Data)
	require.True(t, ok)
	assert.Equal(t, unsolicited[0], nack.OffendingHeader)
	assert.Equal(t, KindNacked, e.State().Kind)
}
