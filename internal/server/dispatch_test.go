package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isobusfs/isobusfs/internal/isoerrors"
	"github.com/isobusfs/isobusfs/internal/pathfs"
	"github.com/isobusfs/isobusfs/internal/transport"
	"github.com/isobusfs/isobusfs/internal/wire"
)

func testVolumesIn(dir string) []pathfs.Volume {
	return []pathfs.Volume{{Name: "vol1", HostRoot: dir}}
}

func TestDispatchGetFSProperties(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Volumes: testVolumesIn(dir), DefaultVolume: "vol1", MFSDir: "MFSDIR"}
	handles := NewHandleTable()
	volumes := NewVolumeTable(cfg.Volumes)

	var reply *transport.Fake
	st := NewSessionTable(nil, transport.Address{Addr: 0x20}, func() (transport.Transport, error) {
		reply = transport.NewFake()
		return reply, nil
	}, handles, volumes)
	d := NewDispatcher(nil, cfg, st, handles, volumes, nil)

	peer := transport.Address{Addr: 7}
	now := time.Now()
	req := wire.GetFSPropertiesReq{TAN: 3}.Encode()
	d.Dispatch(now, peer, req)

	require.Len(t, reply.Sent(), 1)
	resp := wire.DecodeGetFSPropertiesResp(wire.NewReader(reply.Sent()[0][1:]))
	assert.Equal(t, byte(3), resp.TAN)
	assert.Equal(t, isoerrors.CodeSuccess, resp.Code)
}

func TestDispatchOpenReadCloseRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello world"), 0o644))
	cfg := &Config{Volumes: testVolumesIn(dir), DefaultVolume: "vol1", MFSDir: "MFSDIR"}
	handles := NewHandleTable()
	volumes := NewVolumeTable(cfg.Volumes)

	var reply *transport.Fake
	st := NewSessionTable(nil, transport.Address{Addr: 0x20}, func() (transport.Transport, error) {
		reply = transport.NewFake()
		return reply, nil
	}, handles, volumes)
	d := NewDispatcher(nil, cfg, st, handles, volumes, nil)
	peer := transport.Address{Addr: 7}
	now := time.Now()

	d.Dispatch(now, peer, wire.OpenFileReq{TAN: 1, Path: `\vol1\a.txt`, Flags: wire.OpenAccessReadOnly}.Encode())
	openResp := wire.DecodeOpenFileResp(wire.NewReader(reply.Sent()[len(reply.Sent())-1][1:]))
	require.Equal(t, isoerrors.CodeFileOrPathNotFound, openResp.Code, "single-backslash path resolves relative to current dir, not a new volume")

	d.Dispatch(now, peer, wire.OpenFileReq{TAN: 2, Path: `\\vol1\a.txt`, Flags: wire.OpenAccessReadOnly}.Encode())
	openResp = wire.DecodeOpenFileResp(wire.NewReader(reply.Sent()[len(reply.Sent())-1][1:]))
	require.Equal(t, isoerrors.CodeSuccess, openResp.Code)

	d.Dispatch(now, peer, wire.ReadFileReq{TAN: 4, Handle: openResp.Handle, Count: 5}.Encode())
	readResp := wire.DecodeReadFileResp(wire.NewReader(reply.Sent()[len(reply.Sent())-1][1:]))
	assert.Equal(t, "hello", string(readResp.Data))

	d.Dispatch(now, peer, wire.CloseFileReq{TAN: 5, Handle: openResp.Handle}.Encode())
	closeResp := wire.DecodeCloseFileResp(wire.NewReader(reply.Sent()[len(reply.Sent())-1][1:]))
	assert.Equal(t, isoerrors.CodeSuccess, closeResp.Code)
	assert.Equal(t, 0, handles.OpenCount())
}

func TestDispatchChangeAndGetCurrentDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	cfg := &Config{Volumes: testVolumesIn(dir), DefaultVolume: "vol1", MFSDir: "MFSDIR"}
	handles := NewHandleTable()
	volumes := NewVolumeTable(cfg.Volumes)

	var reply *transport.Fake
	st := NewSessionTable(nil, transport.Address{Addr: 0x20}, func() (transport.Transport, error) {
		reply = transport.NewFake()
		return reply, nil
	}, handles, volumes)
	d := NewDispatcher(nil, cfg, st, handles, volumes, nil)
	peer := transport.Address{Addr: 7}
	now := time.Now()

	d.Dispatch(now, peer, wire.ChangeCurrentDirReq{TAN: 1, Path: `\\vol1\sub`}.Encode())
	cdResp := wire.DecodeChangeCurrentDirResp(wire.NewReader(reply.Sent()[len(reply.Sent())-1][1:]))
	require.Equal(t, isoerrors.CodeSuccess, cdResp.Code)

	d.Dispatch(now, peer, wire.GetCurrentDirReq{TAN: 2}.Encode())
	pwdResp := wire.DecodeGetCurrentDirResp(wire.NewReader(reply.Sent()[len(reply.Sent())-1][1:]))
	assert.Equal(t, `\\vol1\sub`, pwdResp.Path)
}

func TestDispatchNacksFileHandlingAndVolumeAccess(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Volumes: testVolumesIn(dir), DefaultVolume: "vol1", MFSDir: "MFSDIR"}
	handles := NewHandleTable()
	volumes := NewVolumeTable(cfg.Volumes)

	var reply *transport.Fake
	st := NewSessionTable(nil, transport.Address{Addr: 0x20}, func() (transport.Transport, error) {
		reply = transport.NewFake()
		return reply, nil
	}, handles, volumes)
	d := NewDispatcher(nil, cfg, st, handles, volumes, nil)
	peer := transport.Address{Addr: 7}
	now := time.Now()

	d.Dispatch(now, peer, []byte{wire.EncodeHeader(wire.CGFileHandling, 0), 0, 0, 0, 0, 0, 0, 0})
	nack, ok := wire.DecodeNACK(reply.Sent()[len(reply.Sent())-1])
	require.True(t, ok)
	assert.Equal(t, wire.EncodeHeader(wire.CGFileHandling, 0), nack.OffendingHeader)

	d.Dispatch(now, peer, []byte{wire.EncodeHeader(wire.CGVolumeHandling, 0), 0, 0, 0, 0, 0, 0, 0})
	nack, ok = wire.DecodeNACK(reply.Sent()[len(reply.Sent())-1])
	require.True(t, ok)
}

func TestDispatchVolumeStatusQuery(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Volumes: testVolumesIn(dir), DefaultVolume: "vol1", MFSDir: "MFSDIR"}
	handles := NewHandleTable()
	volumes := NewVolumeTable(cfg.Volumes)

	var reply *transport.Fake
	st := NewSessionTable(nil, transport.Address{Addr: 0x20}, func() (transport.Transport, error) {
		reply = transport.NewFake()
		return reply, nil
	}, handles, volumes)
	d := NewDispatcher(nil, cfg, st, handles, volumes, nil)
	peer := transport.Address{Addr: 7}
	now := time.Now()

	d.Dispatch(now, peer, wire.VolumeStatusReq{TAN: 9, Mode: wire.VolumeStatusQuery, VolumeName: "vol1"}.Encode())
	resp := wire.DecodeVolumeStatusResp(wire.NewReader(reply.Sent()[len(reply.Sent())-1][1:]))
	assert.Equal(t, isoerrors.CodeSuccess, resp.Code)
	assert.Equal(t, 1, volumes.RefCount("vol1"))
}
