package server

import (
	"errors"
	"io"
	"os"
	"sort"

	"github.com/isobusfs/isobusfs/internal/isoerrors"
	"github.com/isobusfs/isobusfs/internal/pathfs"
	"github.com/isobusfs/isobusfs/internal/wire"
)

// mapHostErr wraps a host OS error with the Annex B.9 code FromHostError
// derives for it (spec §4.8).
func mapHostErr(err error) error {
	return isoerrors.Wrap(err, isoerrors.KindHostOS, isoerrors.FromHostError(err), "host operation failed")
}

// ClientID identifies a session in HandleTable's client lists; the
// session manager uses the J1939 source address (spec §4.7).
type ClientID uint8

// handle is spec §3's "Open handle (server)": host path, descriptor or
// directory cursor, refcount (via len(clients)), and the per-kind
// cursor/offset.
type handle struct {
	hostPath string
	isDir    bool
	clients  []ClientID

	file   *os.File
	offset int64

	dirEntries []os.FileInfo
	cursor     int
}

// HandleTable is the reference-counted open-file/open-dir table shared
// across clients (spec §4.8, §9 "replace with a reference-counted
// record whose member list is a small vector of client ids").
type HandleTable struct {
	byIndex map[byte]*handle
	byPath  map[string]byte
}

func NewHandleTable() *HandleTable {
	return &HandleTable{byIndex: make(map[byte]*handle), byPath: make(map[string]byte)}
}

func mapOpenFlags(flags byte) int {
	switch flags & wire.OpenAccessMask {
	case wire.OpenAccessWriteOnly:
		return os.O_WRONLY
	case wire.OpenAccessReadWrite:
		return os.O_RDWR
	default:
		return os.O_RDONLY
	}
}

// Open implements spec §4.8 open_file: translate path, validate access
// bits, open or join an existing handle, and return its index.
func (t *HandleTable) Open(client ClientID, volumes []pathfs.Volume, isobusPath string, flags byte) (byte, error) {
	if flags&wire.OpenAccessMask == wire.OpenAccessReserved {
		return wire.NoHandle, isoerrors.New(isoerrors.KindSession, isoerrors.CodeInvalidAccess, "reserved access mode")
	}

	hostPath, err := pathfs.ToHost(isobusPath, volumes)
	if err != nil {
		return wire.NoHandle, err
	}

	if idx, ok := t.byPath[hostPath]; ok {
		h := t.byIndex[idx]
		h.addClient(client)
		return idx, nil
	}

	isDir := flags&wire.OpenFlagDirectory != 0
	var h *handle
	if isDir {
		entries, err := readDirSorted(hostPath)
		if err != nil {
			return wire.NoHandle, mapHostErr(err)
		}
		h = &handle{hostPath: hostPath, isDir: true, dirEntries: entries}
	} else {
		osFlags := mapOpenFlags(flags)
		if flags&wire.OpenFlagAppend != 0 {
			osFlags |= os.O_APPEND
		} else if flags&wire.OpenAccessMask == wire.OpenAccessReadWrite {
			osFlags |= os.O_TRUNC
		}
		f, err := os.OpenFile(hostPath, osFlags, 0o644)
		if err != nil {
			return wire.NoHandle, mapHostErr(err)
		}
		if info, serr := f.Stat(); serr == nil && info.IsDir() {
			_ = f.Close()
			return wire.NoHandle, isoerrors.New(isoerrors.KindSession, isoerrors.CodeInvalidAccess, "directory opened without the directory flag")
		}
		h = &handle{hostPath: hostPath, file: f}
	}

	idx, err := t.allocIndex()
	if err != nil {
		if h.file != nil {
			_ = h.file.Close()
		}
		return wire.NoHandle, err
	}
	h.addClient(client)
	t.byIndex[idx] = h
	t.byPath[hostPath] = idx
	return idx, nil
}

func readDirSorted(hostPath string) ([]os.FileInfo, error) {
	f, err := os.Open(hostPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	infos, err := f.Readdir(-1)
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	return infos, nil
}

func (h *handle) addClient(c ClientID) {
	for _, e := range h.clients {
		if e == c {
			return
		}
	}
	h.clients = append(h.clients, c)
}

func (t *HandleTable) allocIndex() (byte, error) {
	for i := 0; i < 255; i++ {
		idx := byte(i)
		if idx == wire.NoHandle {
			continue
		}
		if _, used := t.byIndex[idx]; !used {
			return idx, nil
		}
	}
	return wire.NoHandle, isoerrors.New(isoerrors.KindSession, isoerrors.CodeTooManyFilesOpen, "no free handle slots")
}

// Read implements spec §4.8 read(): cap count at MaxDataLen, file read
// or directory-entry pagination.
func (t *HandleTable) Read(idx byte, count uint16) ([]byte, isoerrors.Code, error) {
	if count > wire.MaxDataLen {
		count = wire.MaxDataLen
	}
	h, ok := t.byIndex[idx]
	if !ok {
		return nil, isoerrors.CodeInvalidHandle, isoerrors.ErrNoHandle
	}
	if h.isDir {
		return t.readDir(h, count)
	}
	buf := make([]byte, count)
	n, err := h.file.ReadAt(buf, h.offset)
	if err != nil && n == 0 {
		if isEOF(err) {
			return nil, isoerrors.CodeEndOfFile, nil
		}
		return nil, 0, mapHostErr(err)
	}
	h.offset += int64(n)
	return buf[:n], isoerrors.CodeSuccess, nil
}

func (t *HandleTable) readDir(h *handle, count uint16) ([]byte, isoerrors.Code, error) {
	w := wire.NewBuffer(int(count))
	emitted := 0
	for h.cursor < len(h.dirEntries) {
		info := h.dirEntries[h.cursor]
		entry := wire.DirEntry{
			Name:  info.Name(),
			Attr:  attrFromInfo(info),
			MTime: info.ModTime(),
			Size:  uint32(info.Size()),
		}
		if emitted > 0 && len(w.Raw())+wire.DirEntrySize(entry) > int(count) {
			break
		}
		wire.EncodeDirEntry(w, entry)
		h.cursor++
		emitted++
	}
	if emitted == 0 {
		return nil, isoerrors.CodeEndOfFile, nil
	}
	return w.Raw(), isoerrors.CodeSuccess, nil
}

func attrFromInfo(info os.FileInfo) byte {
	var a byte
	if info.IsDir() {
		a |= wire.AttrDirectory
	}
	if info.Mode().Perm()&0o200 == 0 {
		a |= wire.AttrReadOnly
	}
	return a
}

// Seek implements spec §4.8 seek(): SET|CUR|END for files with sign
// constraints, SET-only rewind-and-advance for directories.
func (t *HandleTable) Seek(idx byte, mode wire.SeekMode, offset int32) (uint32, error) {
	h, ok := t.byIndex[idx]
	if !ok {
		return 0, isoerrors.ErrNoHandle
	}
	if h.isDir {
		if mode != wire.SeekSet {
			return 0, isoerrors.New(isoerrors.KindSession, isoerrors.CodeInvalidAccess, "directories support SET only")
		}
		if offset < 0 {
			return 0, isoerrors.New(isoerrors.KindSession, isoerrors.CodeInvalidAccess, "negative directory seek")
		}
		h.cursor = int(offset)
		if h.cursor > len(h.dirEntries) {
			h.cursor = len(h.dirEntries)
		}
		return uint32(h.cursor), nil
	}

	info, err := h.file.Stat()
	if err != nil {
		return 0, mapHostErr(err)
	}
	var newOff int64
	switch mode {
	case wire.SeekSet:
		if offset < 0 {
			return 0, isoerrors.New(isoerrors.KindSession, isoerrors.CodeInvalidAccess, "SET requires non-negative offset")
		}
		newOff = int64(offset)
	case wire.SeekCur:
		newOff = h.offset + int64(offset)
		if newOff < 0 {
			return 0, isoerrors.New(isoerrors.KindSession, isoerrors.CodeInvalidAccess, "CUR would go negative")
		}
	case wire.SeekEnd:
		if offset > 0 {
			return 0, isoerrors.New(isoerrors.KindSession, isoerrors.CodeInvalidAccess, "END requires offset <= 0")
		}
		newOff = info.Size() + int64(offset)
		if newOff < 0 {
			newOff = 0
		}
	default:
		return 0, isoerrors.New(isoerrors.KindSession, isoerrors.CodeInvalidAccess, "unknown seek mode")
	}
	h.offset = newOff
	return uint32(h.offset), nil
}

// Close implements spec §4.8 close(): drop client from the handle's
// list; free the slot once the list empties.
func (t *HandleTable) Close(idx byte, client ClientID) error {
	h, ok := t.byIndex[idx]
	if !ok {
		return isoerrors.ErrNoHandle
	}
	for i, c := range h.clients {
		if c == client {
			h.clients = append(h.clients[:i], h.clients[i+1:]...)
			break
		}
	}
	if len(h.clients) == 0 {
		if h.file != nil {
			_ = h.file.Close()
		}
		delete(t.byIndex, idx)
		delete(t.byPath, h.hostPath)
	}
	return nil
}

// CloseAllForClient releases every handle referencing client (spec
// §4.7 "eviction ... releases every server-side handle and volume ref
// held by that client").
func (t *HandleTable) CloseAllForClient(client ClientID) {
	for idx := range t.byIndex {
		_ = t.Close(idx, client)
	}
}

// RefCount reports how many clients reference idx, for tests (spec §8
// "handle sharing" invariant).
func (t *HandleTable) RefCount(idx byte) int {
	h, ok := t.byIndex[idx]
	if !ok {
		return 0
	}
	return len(h.clients)
}

// OpenCount reports how many handles are currently open, for the
// status beacon's open-file count (spec §4.9).
func (t *HandleTable) OpenCount() int {
	return len(t.byIndex)
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
