package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isobusfs/isobusfs/internal/transport"
)

func fakeTransportFactory() NewTransportFunc {
	return func() (transport.Transport, error) { return transport.NewFake(), nil }
}

func TestSessionTableAdmitsAndReuses(t *testing.T) {
	st := NewSessionTable(nil, transport.Address{Addr: 0x20}, fakeTransportFactory(), nil, nil)
	now := time.Now()

	s1, err := st.Lookup(now, transport.Address{Addr: 5})
	require.NoError(t, err)
	require.NotNil(t, s1)
	assert.Equal(t, 1, st.Len())

	s2, err := st.Lookup(now.Add(time.Second), transport.Address{Addr: 5})
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, st.Len())
}

func TestSessionTableEvictsIdleClients(t *testing.T) {
	handles := NewHandleTable()
	st := NewSessionTable(nil, transport.Address{Addr: 0x20}, fakeTransportFactory(), handles, nil)
	now := time.Now()

	_, err := st.Lookup(now, transport.Address{Addr: 5})
	require.NoError(t, err)

	st.Sweep(now.Add(ClientTimeout - time.Second))
	assert.Equal(t, 1, st.Len())

	st.Sweep(now.Add(ClientTimeout + time.Second))
	assert.Equal(t, 0, st.Len())
}

func TestSessionTableEvictReleasesHandles(t *testing.T) {
	handles := NewHandleTable()
	volumes := NewVolumeTable(testVolumes(t))
	st := NewSessionTable(nil, transport.Address{Addr: 0x20}, fakeTransportFactory(), handles, volumes)
	now := time.Now()

	sess, err := st.Lookup(now, transport.Address{Addr: 5})
	require.NoError(t, err)

	h, err := handles.Open(sess.ID, testVolumes(t), `\\vol1\a.txt`, 0)
	require.NoError(t, err)
	_, _ = volumes.Status(sess.ID, 0, "vol1")

	st.Evict(5)
	assert.Equal(t, 0, handles.RefCount(h))
	assert.Equal(t, 0, volumes.RefCount("vol1"))
	assert.Equal(t, 0, st.Len())
}

func TestSessionAllocateTANWraps(t *testing.T) {
	s := &Session{}
	for i := 0; i < 255; i++ {
		s.AllocateTAN()
	}
	last := s.AllocateTAN()
	assert.Equal(t, byte(255), last)
	wrapped := s.AllocateTAN()
	assert.Equal(t, byte(0), wrapped)
}
