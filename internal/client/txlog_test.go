package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isobusfs/isobusfs/internal/transport"
	"github.com/isobusfs/isobusfs/internal/wire"
)

func TestTXLogWrapsAtCapacity(t *testing.T) {
	p := transport.NewFake()
	require.NoError(t, p.Open(transport.RoleClientMain))
	require.NoError(t, p.Connect(transport.Address{Addr: 2}))
	e := NewEngine(nil, p, 0)

	now := time.Unix(5000, 0)
	for i := 0; i < TXLogSize+3; i++ {
		// A second GetPropertiesReq would be refused while the first is
		// still pending on the same (socket, function), so drive Sweep
		// past the deadline after each send to clear the entry.
		require.NoError(t, e.GetPropertiesReq(now, func(resp wire.GetFSPropertiesResp, err error) {}))
		e.Sweep(now.Add(DefaultTimeout))
		now = now.Add(time.Second)
	}

	log := e.TXLog()
	assert.Len(t, log, TXLogSize)
	// entries are oldest-first and strictly increasing in time.
	for i := 1; i < len(log); i++ {
		assert.True(t, log[i].At.After(log[i-1].At))
	}
}

func TestRXLogRecordsDispatchedFrames(t *testing.T) {
	p := transport.NewFake()
	require.NoError(t, p.Open(transport.RoleClientMain))
	require.NoError(t, p.Connect(transport.Address{Addr: 2}))
	e := NewEngine(nil, p, 0)

	var got wire.GetFSPropertiesResp
	require.NoError(t, e.GetPropertiesReq(time.Now(), func(resp wire.GetFSPropertiesResp, err error) {
		got = resp
	}))

	resp := wire.GetFSPropertiesResp{TAN: e.ExpectedTan(), VersionNumber: 3}
	e.Dispatch(resp.Encode())

	assert.Equal(t, byte(3), got.VersionNumber)
	rx := e.RXLog()
	require.Len(t, rx, 1)
	assert.Equal(t, resp.Encode(), rx[0].Data)
}
