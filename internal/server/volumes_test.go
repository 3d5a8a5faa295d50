package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isobusfs/isobusfs/internal/isoerrors"
	"github.com/isobusfs/isobusfs/internal/pathfs"
	"github.com/isobusfs/isobusfs/internal/wire"
)

func TestVolumeStatusQueryJoinsRefcount(t *testing.T) {
	vt := NewVolumeTable([]pathfs.Volume{{Name: "vol1", HostRoot: "/srv/vol1"}})

	resp, err := vt.Status(1, wire.VolumeStatusQuery, "vol1")
	require.NoError(t, err)
	assert.Equal(t, isoerrors.CodeSuccess, resp.Code)
	assert.Equal(t, 1, vt.RefCount("vol1"))

	_, err = vt.Status(1, wire.VolumeStatusQuery, "vol1")
	require.NoError(t, err)
	assert.Equal(t, 1, vt.RefCount("vol1"), "repeat query from same client must not double-count")
}

func TestVolumeStatusPrepareToDisconnectLeavesRefcount(t *testing.T) {
	vt := NewVolumeTable([]pathfs.Volume{{Name: "vol1", HostRoot: "/srv/vol1"}})
	_, err := vt.Status(1, wire.VolumeStatusQuery, "vol1")
	require.NoError(t, err)
	_, err = vt.Status(2, wire.VolumeStatusQuery, "vol1")
	require.NoError(t, err)
	assert.Equal(t, 2, vt.RefCount("vol1"))

	_, err = vt.Status(1, wire.VolumeStatusPrepareToDisconnect, "vol1")
	require.NoError(t, err)
	assert.Equal(t, 1, vt.RefCount("vol1"))
}

func TestVolumeStatusUnknownVolume(t *testing.T) {
	vt := NewVolumeTable([]pathfs.Volume{{Name: "vol1", HostRoot: "/srv/vol1"}})
	_, err := vt.Status(1, wire.VolumeStatusQuery, "nope")
	require.Error(t, err)
	assert.Equal(t, isoerrors.CodeVolumeNotInitialized, isoerrors.CodeOf(err))
}

func TestVolumeStatusWritableBit(t *testing.T) {
	vt := NewVolumeTable([]pathfs.Volume{{Name: "vol1", HostRoot: "/srv/vol1", ReadOnly: false}})
	resp, err := vt.Status(1, wire.VolumeStatusQuery, "vol1")
	require.NoError(t, err)
	assert.NotZero(t, resp.Status&statusWritable)
}

func TestVolumeReleaseAllForClient(t *testing.T) {
	vt := NewVolumeTable([]pathfs.Volume{
		{Name: "vol1", HostRoot: "/srv/vol1"},
		{Name: "vol2", HostRoot: "/srv/vol2"},
	})
	_, _ = vt.Status(1, wire.VolumeStatusQuery, "vol1")
	_, _ = vt.Status(1, wire.VolumeStatusQuery, "vol2")

	vt.ReleaseAllForClient(1)
	assert.Equal(t, 0, vt.RefCount("vol1"))
	assert.Equal(t, 0, vt.RefCount("vol2"))
}
