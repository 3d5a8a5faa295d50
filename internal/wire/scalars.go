package wire

import (
	"encoding/binary"
	"fmt"
)

// Buffer is a small growable byte-writer used by every Encode method in
// this package; it intentionally never returns an error, matching the
// fixed-layout, pre-sized nature of ISOBUS FS wire structs.
type Buffer struct {
	b []byte
}

// NewBuffer returns an empty Buffer with capacity hinted by size.
func NewBuffer(size int) *Buffer {
	return &Buffer{b: make([]byte, 0, size)}
}

func (w *Buffer) Byte(v byte) *Buffer {
	w.b = append(w.b, v)
	return w
}

func (w *Buffer) Uint16(v uint16) *Buffer {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	w.b = append(w.b, tmp[:]...)
	return w
}

func (w *Buffer) Uint32(v uint32) *Buffer {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.b = append(w.b, tmp[:]...)
	return w
}

func (w *Buffer) Bytes(v []byte) *Buffer {
	w.b = append(w.b, v...)
	return w
}

func (w *Buffer) Int32(v int32) *Buffer {
	return w.Uint32(uint32(v))
}

// Finish returns the accumulated buffer, padded per the §4.1/§8 padding
// law for frames shorter than MinFrameLen.
func (w *Buffer) Finish() []byte {
	return Pad(w.b)
}

// Raw returns the unpadded accumulated bytes (used for fields nested
// inside a larger frame, e.g. a directory-entry record).
func (w *Buffer) Raw() []byte {
	return w.b
}

// Reader walks a decode buffer, tracking the read offset and the first
// error encountered so callers can chain calls and check err once.
type Reader struct {
	b   []byte
	off int
	err error
}

func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

func (r *Reader) Err() error { return r.err }

func (r *Reader) fail(need int) {
	if r.err == nil {
		r.err = fmt.Errorf("wire: short read: need %d bytes at offset %d, have %d", need, r.off, len(r.b)-r.off)
	}
}

func (r *Reader) Byte() byte {
	if r.err != nil {
		return 0
	}
	if r.off+1 > len(r.b) {
		r.fail(1)
		return 0
	}
	v := r.b[r.off]
	r.off++
	return v
}

func (r *Reader) Uint16() uint16 {
	if r.err != nil {
		return 0
	}
	if r.off+2 > len(r.b) {
		r.fail(2)
		return 0
	}
	v := binary.LittleEndian.Uint16(r.b[r.off:])
	r.off += 2
	return v
}

func (r *Reader) Int32() int32 {
	return int32(r.Uint32())
}

func (r *Reader) Uint32() uint32 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.b) {
		r.fail(4)
		return 0
	}
	v := binary.LittleEndian.Uint32(r.b[r.off:])
	r.off += 4
	return v
}

func (r *Reader) Bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.b) {
		r.fail(n)
		return nil
	}
	v := r.b[r.off : r.off+n]
	r.off += n
	return v
}

// Remaining returns every byte not yet consumed.
func (r *Reader) Remaining() []byte {
	if r.off >= len(r.b) {
		return nil
	}
	return r.b[r.off:]
}

// Len reports how many bytes remain.
func (r *Reader) Len() int {
	if r.off >= len(r.b) {
		return 0
	}
	return len(r.b) - r.off
}
