package pipelines

import (
	"os"
	"time"

	"github.com/isobusfs/isobusfs/internal/client"
	"github.com/isobusfs/isobusfs/internal/isoerrors"
	"github.com/isobusfs/isobusfs/internal/wire"
)

// getSubstate mirrors spec §4.6: "START -> OPEN_FILE_SENT ->
// SEEK_FILE_SENT -> READ_FILE_SENT -> (CLOSE_FILE_SENT | back to
// SEEK_FILE_SENT)".
type getSubstate int

const (
	getStart getSubstate = iota
	getOpenFileSent
	getSeekFileSent
	getReadFileSent
	getCloseFileSent
)

type getPipeline struct {
	e       *client.Engine
	remote  string
	handle  byte
	offset  int64
	local   *os.File
	done    func(error)
}

// Get downloads remote to the local path byte-for-byte (spec §4.6
// "get"). Each read response writes the returned bytes to local and
// re-seeks to offset+bytes_written; END_OF_FILE closes the pipeline.
func Get(e *client.Engine, remote, local string, done func(error)) error {
	f, err := os.Create(local)
	if err != nil {
		return isoerrors.Wrap(err, isoerrors.KindHostOS, isoerrors.CodeWriteFailure, "create local file")
	}
	p := &getPipeline{e: e, remote: remote, local: f, done: done}
	return p.open()
}

func (p *getPipeline) open() error {
	p.e.SetState(client.Active(client.OpOpenFile, int(getOpenFileSent)))
	return p.e.OpenFileReq(time.Now(), p.remote, wire.OpenAccessReadOnly, func(resp wire.OpenFileResp, err error) {
		if err != nil {
			p.fail(err)
			return
		}
		if cerr := codeErr(resp.Code, "open_file"); cerr != nil {
			p.fail(cerr)
			return
		}
		p.handle = resp.Handle
		p.seek()
	})
}

func (p *getPipeline) seek() {
	p.e.SetState(client.Active(client.OpSeekFile, int(getSeekFileSent)))
	err := p.e.SeekFileReq(time.Now(), p.handle, wire.SeekSet, int32(p.offset), func(resp wire.SeekFileResp, err error) {
		if err != nil {
			p.failOpen(err)
			return
		}
		if cerr := codeErr(resp.Code, "seek_file"); cerr != nil {
			p.failOpen(cerr)
			return
		}
		p.read()
	})
	if err != nil {
		p.failOpen(err)
	}
}

func (p *getPipeline) read() {
	p.e.SetState(client.Active(client.OpReadFile, int(getReadFileSent)))
	err := p.e.ReadFileReq(time.Now(), p.handle, wire.MaxDataLen, func(resp wire.ReadFileResp, err error) {
		if err != nil {
			p.failOpen(err)
			return
		}
		if resp.Code == isoerrors.CodeEndOfFile {
			p.close(nil)
			return
		}
		if cerr := codeErr(resp.Code, "read_file"); cerr != nil {
			p.failOpen(cerr)
			return
		}
		n, werr := p.local.WriteAt(resp.Data, p.offset)
		if werr != nil {
			p.failOpen(isoerrors.Wrap(werr, isoerrors.KindHostOS, isoerrors.CodeWriteFailure, "write local file"))
			return
		}
		p.offset += int64(n)
		p.seek()
	})
	if err != nil {
		p.failOpen(err)
	}
}

func (p *getPipeline) close(closeErr error) {
	p.e.SetState(client.Active(client.OpCloseFile, int(getCloseFileSent)))
	_ = p.e.CloseFileReq(time.Now(), p.handle, func(wire.CloseFileResp, error) {})
	_ = p.local.Close()
	if closeErr != nil {
		p.e.SetState(client.Failed(client.OpReadFile, closeErr))
		p.done(closeErr)
		return
	}
	p.e.SetState(client.Done(client.OpReadFile))
	p.done(nil)
}

func (p *getPipeline) failOpen(err error) {
	_ = p.e.CloseFileReq(time.Now(), p.handle, func(wire.CloseFileResp, error) {})
	_ = p.local.Close()
	p.fail(err)
}

func (p *getPipeline) fail(err error) {
	p.e.SetState(client.Failed(client.OpOpenFile, err))
	_ = p.local.Close()
	p.done(err)
}
