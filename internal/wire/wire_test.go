package wire

import (
	"testing"
	"time"

	"github.com/isobusfs/isobusfs/internal/isoerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	b := EncodeHeader(CGFileAccess, FnReadFileReq)
	h := DecodeHeader(b)
	assert.Equal(t, CGFileAccess, h.Group)
	assert.Equal(t, FnReadFileReq, h.Function)
}

func TestPaddingLaw(t *testing.T) {
	// Every outgoing frame shorter than 8 bytes is right-padded with 0xFF
	// (spec §8 "Padding law").
	req := GetCurrentDirReq{TAN: 5}
	frame := req.Encode()
	require.Len(t, frame, MinFrameLen)
	for i := 2; i < MinFrameLen; i++ {
		assert.Equal(t, byte(PadByte), frame[i])
	}
}

func TestNoPaddingWhenLongEnough(t *testing.T) {
	req := OpenFileReq{TAN: 1, Path: "\\vol1\\a\\b\\longenoughname", Flags: 0}
	frame := req.Encode()
	assert.GreaterOrEqual(t, len(frame), MinFrameLen)
	r := NewReader(frame[1:])
	got := DecodeOpenFileReq(r)
	require.NoError(t, r.Err())
	assert.Equal(t, req.Path, got.Path)
	assert.Equal(t, req.TAN, got.TAN)
}

func TestReadFileRespRoundTrip(t *testing.T) {
	data := []byte{0xde, 0xad, 0xbe, 0xef, 1, 2, 3}
	resp := ReadFileResp{TAN: 200, Code: isoerrors.CodeSuccess, Handle: 3, Count: uint16(len(data)), Data: data}
	frame := resp.Encode()
	h := DecodeHeader(frame[0])
	assert.Equal(t, CGFileAccess, h.Group)
	assert.Equal(t, FnReadFileResp, h.Function)
	got := DecodeReadFileResp(NewReader(frame[1:]))
	assert.Equal(t, resp.TAN, got.TAN)
	assert.Equal(t, resp.Data, got.Data)
}

func TestDirEntryRoundTrip(t *testing.T) {
	mt := time.Date(2024, 3, 17, 13, 45, 32, 0, time.UTC)
	e := DirEntry{Name: "FOO.TXT", Attr: AttrReadOnly, MTime: mt, Size: 1234}
	w := NewBuffer(32)
	EncodeDirEntry(w, e)
	got := DecodeDirEntry(NewReader(w.Raw()))
	assert.Equal(t, e.Name, got.Name)
	assert.Equal(t, e.Attr, got.Attr)
	assert.Equal(t, e.Size, got.Size)
	// FAT resolution is 2 seconds and has no sub-day offset beyond day
	// granularity assumptions; check a round-trippable value.
	assert.Equal(t, mt.Year(), got.MTime.Year())
	assert.Equal(t, mt.Month(), got.MTime.Month())
	assert.Equal(t, mt.Day(), got.MTime.Day())
	assert.Equal(t, mt.Hour(), got.MTime.Hour())
	assert.Equal(t, mt.Minute(), got.MTime.Minute())
}

func TestNACKRoundTrip(t *testing.T) {
	n := NACK{OffendingHeader: EncodeHeader(CGVolumeHandling, 3), OriginatingPGN: PGNClientToFS}
	frame := EncodeNACK(n)
	got, ok := DecodeNACK(frame)
	require.True(t, ok)
	assert.Equal(t, n, got)
}

func TestMaxDataLen(t *testing.T) {
	assert.Equal(t, 65530, MaxDataLen)
}
