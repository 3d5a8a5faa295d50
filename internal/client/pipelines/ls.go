package pipelines

import (
	"time"

	"github.com/isobusfs/isobusfs/internal/client"
	"github.com/isobusfs/isobusfs/internal/isoerrors"
	"github.com/isobusfs/isobusfs/internal/wire"
)

// lsSubstate is the pipeline's private substate (spec §4.6: "substate
// enum START -> OPEN_DIR_SENT -> SEEK_DIR_SENT -> READ_DIR_SENT ->
// (CLOSE_DIR_SENT | back to SEEK_DIR_SENT)").
type lsSubstate int

const (
	lsStart lsSubstate = iota
	lsOpenDirSent
	lsSeekDirSent
	lsReadDirSent
	lsCloseDirSent
)

type lsPipeline struct {
	e          *client.Engine
	path       string
	handle     byte
	entries    []wire.DirEntry
	entryCount int
	done       func([]wire.DirEntry, error)
}

// ListDir opens path as a directory and reads every entry, paginating
// with seek/read round trips until a read returns no further entries,
// then closes the handle (spec §4.6 "ls", §8 "directory read cursor"
// invariant: concatenating entries across reads yields the full,
// duplicate-free, omission-free set).
//
// The spec's prose for this substate ("if count == 0, re-seek ... and
// read again; otherwise decode entries ... and close") would terminate
// after the first non-empty batch, which cannot satisfy the pagination
// invariant for a directory whose entries don't fit in one frame; this
// implementation instead treats an empty read as the end-of-directory
// signal (the read() response carries the same semantics the file path
// uses for END_OF_FILE, per §4.8) and loops on a non-empty one. See
// DESIGN.md.
func ListDir(e *client.Engine, path string, done func([]wire.DirEntry, error)) error {
	p := &lsPipeline{e: e, path: path, done: done}
	return p.openDir()
}

func (p *lsPipeline) openDir() error {
	p.e.SetState(client.Active(client.OpOpenFile, int(lsOpenDirSent)))
	return p.e.OpenFileReq(time.Now(), p.path, wire.OpenFlagDirectory|wire.OpenAccessReadOnly, func(resp wire.OpenFileResp, err error) {
		if err != nil {
			p.fail(err)
			return
		}
		if cerr := codeErr(resp.Code, "open_file(dir)"); cerr != nil {
			p.fail(cerr)
			return
		}
		p.handle = resp.Handle
		p.seek()
	})
}

func (p *lsPipeline) seek() {
	p.e.SetState(client.Active(client.OpSeekFile, int(lsSeekDirSent)))
	err := p.e.SeekFileReq(time.Now(), p.handle, wire.SeekSet, int32(p.entryCount), func(resp wire.SeekFileResp, err error) {
		if err != nil {
			p.failOpen(err)
			return
		}
		if cerr := codeErr(resp.Code, "seek_file(dir)"); cerr != nil {
			p.failOpen(cerr)
			return
		}
		p.read()
	})
	if err != nil {
		p.failOpen(err)
	}
}

func (p *lsPipeline) read() {
	p.e.SetState(client.Active(client.OpReadFile, int(lsReadDirSent)))
	err := p.e.ReadFileReq(time.Now(), p.handle, wire.MaxDataLen, func(resp wire.ReadFileResp, err error) {
		if err != nil {
			p.failOpen(err)
			return
		}
		if resp.Code == isoerrors.CodeEndOfFile || resp.Count == 0 {
			p.close(nil)
			return
		}
		if cerr := codeErr(resp.Code, "read_file(dir)"); cerr != nil {
			p.failOpen(cerr)
			return
		}
		r := wire.NewReader(resp.Data)
		n := 0
		for r.Len() > 0 {
			p.entries = append(p.entries, wire.DecodeDirEntry(r))
			if r.Err() != nil {
				break
			}
			n++
		}
		p.entryCount += n
		p.seek()
	})
	if err != nil {
		p.failOpen(err)
	}
}

func (p *lsPipeline) close(closeErr error) {
	p.e.SetState(client.Active(client.OpCloseFile, int(lsCloseDirSent)))
	_ = p.e.CloseFileReq(time.Now(), p.handle, func(wire.CloseFileResp, error) {})
	if closeErr != nil {
		p.e.SetState(client.Failed(client.OpReadFile, closeErr))
		p.done(nil, closeErr)
		return
	}
	p.e.SetState(client.Done(client.OpReadFile))
	p.done(p.entries, nil)
}

// failOpen best-effort closes the open handle before reporting err
// (spec §4.6 "on error at any step, best-effort fire a close-file
// request (with no callback) and terminate").
func (p *lsPipeline) failOpen(err error) {
	_ = p.e.CloseFileReq(time.Now(), p.handle, func(wire.CloseFileResp, error) {})
	p.fail(err)
}

func (p *lsPipeline) fail(err error) {
	p.e.SetState(client.Failed(client.OpOpenFile, err))
	p.done(nil, err)
}
