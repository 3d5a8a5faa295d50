package client

import (
	"time"

	"github.com/isobusfs/isobusfs/internal/isoerrors"
	"github.com/isobusfs/isobusfs/internal/wire"
)

// RespCallback is what a command pipeline supplies: the decoded error
// code plus whatever the specific operation returns, or a non-nil err
// for TIMED_OUT / TAN mismatch / a malformed response. A transport
// failure on send is returned by the request method, not passed to cb.
type RespCallback[T any] func(resp T, err error)

// GetPropertiesReq sends GetFSPropertiesReq and registers for its
// response (spec §4.5).
func (e *Engine) GetPropertiesReq(now time.Time, cb RespCallback[wire.GetFSPropertiesResp]) error {
	return e.SendAndRegister(now, OpGetProperties, wire.FnGetFSPropertiesResp,
		func(tan byte) []byte { return wire.GetFSPropertiesReq{TAN: tan}.Encode() },
		wrapDecode(cb, decodeGetPropertiesResp))
}

// VolumeStatusReq sends VolumeStatusReq for name in mode (spec §4.5,
// §4.8 "volume status").
func (e *Engine) VolumeStatusReq(now time.Time, mode wire.VolumeStatusMode, name string, cb RespCallback[wire.VolumeStatusResp]) error {
	return e.SendAndRegister(now, OpVolumeStatus, wire.FnVolumeStatusResp,
		func(tan byte) []byte {
			return wire.VolumeStatusReq{TAN: tan, Mode: mode, VolumeName: name}.Encode()
		},
		wrapDecode(cb, decodeVolumeStatusResp))
}

// ChangeDirReq sends ChangeCurrentDirReq for path (spec §4.6 "cd").
func (e *Engine) ChangeDirReq(now time.Time, path string, cb RespCallback[wire.ChangeCurrentDirResp]) error {
	return e.SendAndRegister(now, OpChangeDir, wire.FnChangeCurrentDirResp,
		func(tan byte) []byte { return wire.ChangeCurrentDirReq{TAN: tan, Path: path}.Encode() },
		wrapDecode(cb, decodeChangeDirResp))
}

// GetCurrentDirReq sends GetCurrentDirReq (spec §4.6 "pwd").
func (e *Engine) GetCurrentDirReq(now time.Time, cb RespCallback[wire.GetCurrentDirResp]) error {
	return e.SendAndRegister(now, OpGetCurrentDir, wire.FnGetCurrentDirResp,
		func(tan byte) []byte { return wire.GetCurrentDirReq{TAN: tan}.Encode() },
		wrapDecode(cb, decodeGetCurrentDirResp))
}

// OpenFileReq sends OpenFileReq for path with the given flags (spec
// §4.6 "ls"/"get" open step, §4.8).
func (e *Engine) OpenFileReq(now time.Time, path string, flags byte, cb RespCallback[wire.OpenFileResp]) error {
	return e.SendAndRegister(now, OpOpenFile, wire.FnOpenFileResp,
		func(tan byte) []byte { return wire.OpenFileReq{TAN: tan, Path: path, Flags: flags}.Encode() },
		wrapDecode(cb, decodeOpenFileResp))
}

// SeekFileReq sends SeekFileReq (spec §4.6/§4.8 seek step).
func (e *Engine) SeekFileReq(now time.Time, handle byte, mode wire.SeekMode, offset int32, cb RespCallback[wire.SeekFileResp]) error {
	return e.SendAndRegister(now, OpSeekFile, wire.FnSeekFileResp,
		func(tan byte) []byte {
			return wire.SeekFileReq{TAN: tan, Handle: handle, Mode: mode, Offset: offset}.Encode()
		},
		wrapDecode(cb, decodeSeekFileResp))
}

// ReadFileReq sends ReadFileReq (spec §4.6/§4.8 read step).
func (e *Engine) ReadFileReq(now time.Time, handle byte, count uint16, cb RespCallback[wire.ReadFileResp]) error {
	return e.SendAndRegister(now, OpReadFile, wire.FnReadFileResp,
		func(tan byte) []byte { return wire.ReadFileReq{TAN: tan, Handle: handle, Count: count}.Encode() },
		wrapDecode(cb, decodeReadFileResp))
}

// CloseFileReq sends CloseFileReq. Pipelines also fire this
// best-effort with a nil-equivalent callback on cleanup (spec §4.6);
// pass a no-op cb for that case.
func (e *Engine) CloseFileReq(now time.Time, handle byte, cb RespCallback[wire.CloseFileResp]) error {
	return e.SendAndRegister(now, OpCloseFile, wire.FnCloseFileResp,
		func(tan byte) []byte { return wire.CloseFileReq{TAN: tan, Handle: handle}.Encode() },
		wrapDecode(cb, decodeCloseFileResp))
}

// wrapDecode adapts a typed RespCallback into the raw Callback the
// pending table stores, decoding the frame (skipping the 1-byte
// header) with decode, and translating decode failure into
// CodeMalformed (spec §7).
func wrapDecode[T any](cb RespCallback[T], decode func(*wire.Reader) T) Callback {
	return func(payload []byte, err error) {
		if err != nil {
			var zero T
			cb(zero, err)
			return
		}
		r := wire.NewReader(payload[1:])
		resp := decode(r)
		if r.Err() != nil {
			var zero T
			cb(zero, isoerrors.New(isoerrors.KindProtocol, isoerrors.CodeMalformed, "malformed response frame"))
			return
		}
		cb(resp, nil)
	}
}

func decodeGetPropertiesResp(r *wire.Reader) wire.GetFSPropertiesResp { return wire.DecodeGetFSPropertiesResp(r) }
func decodeVolumeStatusResp(r *wire.Reader) wire.VolumeStatusResp    { return wire.DecodeVolumeStatusResp(r) }
func decodeChangeDirResp(r *wire.Reader) wire.ChangeCurrentDirResp   { return wire.DecodeChangeCurrentDirResp(r) }
func decodeGetCurrentDirResp(r *wire.Reader) wire.GetCurrentDirResp  { return wire.DecodeGetCurrentDirResp(r) }
func decodeOpenFileResp(r *wire.Reader) wire.OpenFileResp            { return wire.DecodeOpenFileResp(r) }
func decodeSeekFileResp(r *wire.Reader) wire.SeekFileResp            { return wire.DecodeSeekFileResp(r) }
func decodeReadFileResp(r *wire.Reader) wire.ReadFileResp            { return wire.DecodeReadFileResp(r) }
func decodeCloseFileResp(r *wire.Reader) wire.CloseFileResp          { return wire.DecodeCloseFileResp(r) }
