package wire

import "github.com/isobusfs/isobusfs/internal/isoerrors"

// Every request/response struct below corresponds to one CG/function
// pair from functions.go. Encode always returns a §8-padded frame;
// Decode never panics on short input, instead leaving r.Err() set,
// which callers surface as CodeMalformed (spec §7).

// --- Connection Management (CG0) ---

type GetFSPropertiesReq struct{ TAN byte }

func (m GetFSPropertiesReq) Encode() []byte {
	w := NewBuffer(MinFrameLen)
	w.Byte(EncodeHeader(CGConnectionManagement, FnGetFSPropertiesReq))
	w.Byte(m.TAN)
	return w.Finish()
}

func DecodeGetFSPropertiesReq(r *Reader) GetFSPropertiesReq {
	return GetFSPropertiesReq{TAN: r.Byte()}
}

type GetFSPropertiesResp struct {
	TAN          byte
	Code         isoerrors.Code
	VersionNumber byte
	MaxOpenHandles byte
	Capabilities byte // bit0: read, bit1: write (always 0 here)
}

func (m GetFSPropertiesResp) Encode() []byte {
	w := NewBuffer(MinFrameLen)
	w.Byte(EncodeHeader(CGConnectionManagement, FnGetFSPropertiesResp))
	w.Byte(m.TAN)
	w.Byte(byte(m.Code))
	w.Byte(m.VersionNumber)
	w.Byte(m.MaxOpenHandles)
	w.Byte(m.Capabilities)
	return w.Finish()
}

func DecodeGetFSPropertiesResp(r *Reader) GetFSPropertiesResp {
	return GetFSPropertiesResp{
		TAN:            r.Byte(),
		Code:           isoerrors.Code(r.Byte()),
		VersionNumber:  r.Byte(),
		MaxOpenHandles: r.Byte(),
		Capabilities:   r.Byte(),
	}
}

type VolumeStatusReq struct {
	TAN        byte
	Mode       VolumeStatusMode
	VolumeName string
}

func (m VolumeStatusReq) Encode() []byte {
	w := NewBuffer(MinFrameLen)
	w.Byte(EncodeHeader(CGConnectionManagement, FnVolumeStatusReq))
	w.Byte(m.TAN)
	w.Byte(byte(m.Mode))
	EncodePath(w, m.VolumeName)
	return w.Finish()
}

func DecodeVolumeStatusReq(r *Reader) VolumeStatusReq {
	tan := r.Byte()
	mode := VolumeStatusMode(r.Byte())
	name := DecodePath(r)
	return VolumeStatusReq{TAN: tan, Mode: mode, VolumeName: name}
}

type VolumeStatusResp struct {
	TAN         byte
	Code        isoerrors.Code
	Status      byte // bit0: present, bit1: writable, bit2: removable
	MaxOpenHandles byte
	VolumeName  string
}

func (m VolumeStatusResp) Encode() []byte {
	w := NewBuffer(MinFrameLen)
	w.Byte(EncodeHeader(CGConnectionManagement, FnVolumeStatusResp))
	w.Byte(m.TAN)
	w.Byte(byte(m.Code))
	w.Byte(m.Status)
	w.Byte(m.MaxOpenHandles)
	EncodePath(w, m.VolumeName)
	return w.Finish()
}

func DecodeVolumeStatusResp(r *Reader) VolumeStatusResp {
	return VolumeStatusResp{
		TAN:            r.Byte(),
		Code:           isoerrors.Code(r.Byte()),
		Status:         r.Byte(),
		MaxOpenHandles: r.Byte(),
		VolumeName:     DecodePath(r),
	}
}

// FSStatus is the periodic broadcast from §4.9: a 1-byte status
// bitfield (bit0 reading, bit1 writing) and the count of open handles.
type FSStatus struct {
	Status    byte
	OpenCount byte
}

func (m FSStatus) Encode() []byte {
	w := NewBuffer(MinFrameLen)
	w.Byte(EncodeHeader(CGConnectionManagement, FnFSStatus))
	w.Byte(m.Status)
	w.Byte(m.OpenCount)
	return w.Finish()
}

func DecodeFSStatus(r *Reader) FSStatus {
	return FSStatus{Status: r.Byte(), OpenCount: r.Byte()}
}

const (
	FSStatusReading byte = 0x01
	FSStatusWriting byte = 0x02
)

// --- Directory Handling (CG1) ---

type ChangeCurrentDirReq struct {
	TAN  byte
	Path string
}

func (m ChangeCurrentDirReq) Encode() []byte {
	w := NewBuffer(16)
	w.Byte(EncodeHeader(CGDirectoryHandling, FnChangeCurrentDirReq))
	w.Byte(m.TAN)
	EncodePath(w, m.Path)
	return w.Finish()
}

func DecodeChangeCurrentDirReq(r *Reader) ChangeCurrentDirReq {
	tan := r.Byte()
	return ChangeCurrentDirReq{TAN: tan, Path: DecodePath(r)}
}

type ChangeCurrentDirResp struct {
	TAN  byte
	Code isoerrors.Code
}

func (m ChangeCurrentDirResp) Encode() []byte {
	w := NewBuffer(MinFrameLen)
	w.Byte(EncodeHeader(CGDirectoryHandling, FnChangeCurrentDirResp))
	w.Byte(m.TAN)
	w.Byte(byte(m.Code))
	return w.Finish()
}

func DecodeChangeCurrentDirResp(r *Reader) ChangeCurrentDirResp {
	return ChangeCurrentDirResp{TAN: r.Byte(), Code: isoerrors.Code(r.Byte())}
}

type GetCurrentDirReq struct{ TAN byte }

func (m GetCurrentDirReq) Encode() []byte {
	w := NewBuffer(MinFrameLen)
	w.Byte(EncodeHeader(CGDirectoryHandling, FnGetCurrentDirReq))
	w.Byte(m.TAN)
	return w.Finish()
}

func DecodeGetCurrentDirReq(r *Reader) GetCurrentDirReq {
	return GetCurrentDirReq{TAN: r.Byte()}
}

type GetCurrentDirResp struct {
	TAN  byte
	Code isoerrors.Code
	Path string
}

func (m GetCurrentDirResp) Encode() []byte {
	w := NewBuffer(16)
	w.Byte(EncodeHeader(CGDirectoryHandling, FnGetCurrentDirResp))
	w.Byte(m.TAN)
	w.Byte(byte(m.Code))
	EncodePath(w, m.Path)
	return w.Finish()
}

func DecodeGetCurrentDirResp(r *Reader) GetCurrentDirResp {
	tan := r.Byte()
	code := isoerrors.Code(r.Byte())
	return GetCurrentDirResp{TAN: tan, Code: code, Path: DecodePath(r)}
}

// --- File Access (CG2), shared between files and directories ---

type OpenFileReq struct {
	TAN   byte
	Path  string
	Flags byte
}

func (m OpenFileReq) Encode() []byte {
	w := NewBuffer(16)
	w.Byte(EncodeHeader(CGFileAccess, FnOpenFileReq))
	w.Byte(m.TAN)
	w.Byte(m.Flags)
	EncodePath(w, m.Path)
	return w.Finish()
}

func DecodeOpenFileReq(r *Reader) OpenFileReq {
	tan := r.Byte()
	flags := r.Byte()
	return OpenFileReq{TAN: tan, Flags: flags, Path: DecodePath(r)}
}

type OpenFileResp struct {
	TAN    byte
	Code   isoerrors.Code
	Handle byte
}

func (m OpenFileResp) Encode() []byte {
	w := NewBuffer(MinFrameLen)
	w.Byte(EncodeHeader(CGFileAccess, FnOpenFileResp))
	w.Byte(m.TAN)
	w.Byte(byte(m.Code))
	w.Byte(m.Handle)
	return w.Finish()
}

func DecodeOpenFileResp(r *Reader) OpenFileResp {
	return OpenFileResp{TAN: r.Byte(), Code: isoerrors.Code(r.Byte()), Handle: r.Byte()}
}

type SeekFileReq struct {
	TAN    byte
	Handle byte
	Mode   SeekMode
	Offset int32
}

func (m SeekFileReq) Encode() []byte {
	w := NewBuffer(MinFrameLen)
	w.Byte(EncodeHeader(CGFileAccess, FnSeekFileReq))
	w.Byte(m.TAN)
	w.Byte(m.Handle)
	w.Byte(byte(m.Mode))
	w.Int32(m.Offset)
	return w.Finish()
}

func DecodeSeekFileReq(r *Reader) SeekFileReq {
	return SeekFileReq{
		TAN:    r.Byte(),
		Handle: r.Byte(),
		Mode:   SeekMode(r.Byte()),
		Offset: r.Int32(),
	}
}

type SeekFileResp struct {
	TAN      byte
	Code     isoerrors.Code
	Handle   byte
	Position uint32
}

func (m SeekFileResp) Encode() []byte {
	w := NewBuffer(MinFrameLen)
	w.Byte(EncodeHeader(CGFileAccess, FnSeekFileResp))
	w.Byte(m.TAN)
	w.Byte(byte(m.Code))
	w.Byte(m.Handle)
	w.Uint32(m.Position)
	return w.Finish()
}

func DecodeSeekFileResp(r *Reader) SeekFileResp {
	return SeekFileResp{
		TAN:      r.Byte(),
		Code:     isoerrors.Code(r.Byte()),
		Handle:   r.Byte(),
		Position: r.Uint32(),
	}
}

type ReadFileReq struct {
	TAN    byte
	Handle byte
	Count  uint16
}

func (m ReadFileReq) Encode() []byte {
	w := NewBuffer(MinFrameLen)
	w.Byte(EncodeHeader(CGFileAccess, FnReadFileReq))
	w.Byte(m.TAN)
	w.Byte(m.Handle)
	w.Uint16(m.Count)
	return w.Finish()
}

func DecodeReadFileReq(r *Reader) ReadFileReq {
	return ReadFileReq{TAN: r.Byte(), Handle: r.Byte(), Count: r.Uint16()}
}

type ReadFileResp struct {
	TAN    byte
	Code   isoerrors.Code
	Handle byte
	Count  uint16
	Data   []byte
}

func (m ReadFileResp) Encode() []byte {
	w := NewBuffer(8 + len(m.Data))
	w.Byte(EncodeHeader(CGFileAccess, FnReadFileResp))
	w.Byte(m.TAN)
	w.Byte(byte(m.Code))
	w.Byte(m.Handle)
	w.Uint16(m.Count)
	w.Bytes(m.Data)
	return w.Finish()
}

func DecodeReadFileResp(r *Reader) ReadFileResp {
	tan := r.Byte()
	code := isoerrors.Code(r.Byte())
	handle := r.Byte()
	count := r.Uint16()
	data := r.Bytes(int(count))
	if r.Err() != nil {
		return ReadFileResp{}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return ReadFileResp{TAN: tan, Code: code, Handle: handle, Count: count, Data: out}
}

type CloseFileReq struct {
	TAN    byte
	Handle byte
}

func (m CloseFileReq) Encode() []byte {
	w := NewBuffer(MinFrameLen)
	w.Byte(EncodeHeader(CGFileAccess, FnCloseFileReq))
	w.Byte(m.TAN)
	w.Byte(m.Handle)
	return w.Finish()
}

func DecodeCloseFileReq(r *Reader) CloseFileReq {
	return CloseFileReq{TAN: r.Byte(), Handle: r.Byte()}
}

type CloseFileResp struct {
	TAN    byte
	Code   isoerrors.Code
	Handle byte
}

func (m CloseFileResp) Encode() []byte {
	w := NewBuffer(MinFrameLen)
	w.Byte(EncodeHeader(CGFileAccess, FnCloseFileResp))
	w.Byte(m.TAN)
	w.Byte(byte(m.Code))
	w.Byte(m.Handle)
	return w.Finish()
}

func DecodeCloseFileResp(r *Reader) CloseFileResp {
	return CloseFileResp{TAN: r.Byte(), Code: isoerrors.Code(r.Byte()), Handle: r.Byte()}
}

// WriteFileReq/Resp: the wire layout exists because it must be parsed
// and NACKed/rejected cleanly, but the server never performs the write
// (spec §1 Non-goals).

type WriteFileReq struct {
	TAN    byte
	Handle byte
	Data   []byte
}

func (m WriteFileReq) Encode() []byte {
	w := NewBuffer(8 + len(m.Data))
	w.Byte(EncodeHeader(CGFileAccess, FnWriteFileReq))
	w.Byte(m.TAN)
	w.Byte(m.Handle)
	w.Uint16(uint16(len(m.Data)))
	w.Bytes(m.Data)
	return w.Finish()
}

func DecodeWriteFileReq(r *Reader) WriteFileReq {
	tan := r.Byte()
	handle := r.Byte()
	n := r.Uint16()
	data := r.Bytes(int(n))
	return WriteFileReq{TAN: tan, Handle: handle, Data: append([]byte(nil), data...)}
}

type WriteFileResp struct {
	TAN    byte
	Code   isoerrors.Code
	Handle byte
	Count  uint16
}

func (m WriteFileResp) Encode() []byte {
	w := NewBuffer(MinFrameLen)
	w.Byte(EncodeHeader(CGFileAccess, FnWriteFileResp))
	w.Byte(m.TAN)
	w.Byte(byte(m.Code))
	w.Byte(m.Handle)
	w.Uint16(m.Count)
	return w.Finish()
}

func DecodeWriteFileResp(r *Reader) WriteFileResp {
	return WriteFileResp{TAN: r.Byte(), Code: isoerrors.Code(r.Byte()), Handle: r.Byte(), Count: r.Uint16()}
}
