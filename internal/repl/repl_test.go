package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isobusfs/isobusfs/internal/client"
	"github.com/isobusfs/isobusfs/internal/isoerrors"
	"github.com/isobusfs/isobusfs/internal/transport"
	"github.com/isobusfs/isobusfs/internal/wire"
)

func newPipeEngine(t *testing.T) (*client.Engine, *transport.Pipe) {
	t.Helper()
	p := transport.NewPipe()
	require.NoError(t, p.A.Open(transport.RoleClientMain))
	require.NoError(t, p.B.Open(transport.RoleServerReply))
	require.NoError(t, p.A.Bind(transport.Address{Addr: 1}))
	require.NoError(t, p.A.Connect(transport.Address{Addr: 2}))
	return client.NewEngine(nil, p.A, 0), p
}

func recvReq(t *testing.T, p *transport.Pipe) []byte {
	t.Helper()
	d, ok, err := p.B.Recv()
	require.NoError(t, err)
	require.True(t, ok)
	return d.Data
}

func deliver(t *testing.T, e *client.Engine, p *transport.Pipe, resp []byte) {
	t.Helper()
	require.NoError(t, p.B.SendTo(transport.Address{Addr: 1}, resp))
	d, ok, err := p.A.Recv()
	require.NoError(t, err)
	require.True(t, ok)
	e.Dispatch(d.Data)
}

func TestHandleLineUnknownCommand(t *testing.T) {
	e, _ := newPipeEngine(t)
	var out bytes.Buffer
	r := New(nil, e, &out, nil, nil)

	r.HandleLine("frobnicate")

	assert.Contains(t, out.String(), `unknown command "frobnicate"`)
}

func TestHandleLineHelp(t *testing.T) {
	e, _ := newPipeEngine(t)
	var out bytes.Buffer
	r := New(nil, e, &out, nil, nil)

	r.HandleLine("help")

	assert.Contains(t, out.String(), "get <remote> [local]")
}

func TestHandleLineExitCallsStop(t *testing.T) {
	e, _ := newPipeEngine(t)
	var out bytes.Buffer
	stopped := false
	r := New(nil, e, &out, func() { stopped = true }, nil)

	r.HandleLine("quit")

	assert.True(t, stopped)
}

func TestHandleLinePwdRoundTrip(t *testing.T) {
	e, p := newPipeEngine(t)
	var out bytes.Buffer
	r := New(nil, e, &out, nil, nil)

	r.HandleLine("pwd")

	req := recvReq(t, p)
	deliver(t, e, p, wire.GetCurrentDirResp{TAN: req[1], Code: isoerrors.CodeSuccess, Path: `\\vol1\dir1`}.Encode())

	assert.Contains(t, out.String(), `\\vol1\dir1`)
}

func TestHandleLineCdFailurePrintsErrorCode(t *testing.T) {
	e, p := newPipeEngine(t)
	var out bytes.Buffer
	r := New(nil, e, &out, nil, nil)

	r.HandleLine(`cd \\vol1\nope`)

	req := recvReq(t, p)
	deliver(t, e, p, wire.ChangeCurrentDirResp{TAN: req[1], Code: isoerrors.CodeInvalidAccess}.Encode())

	assert.Contains(t, out.String(), "Error: cd")
	assert.Contains(t, out.String(), "error code:")
}

func TestHandleLineBusyRejectsSecondCommand(t *testing.T) {
	e, _ := newPipeEngine(t)
	var out bytes.Buffer
	r := New(nil, e, &out, nil, nil)

	r.HandleLine("pwd")
	out.Reset()
	r.HandleLine("pwd")

	assert.Contains(t, out.String(), "busy")
}

func TestHandleLineLsLong(t *testing.T) {
	e, p := newPipeEngine(t)
	var out bytes.Buffer
	r := New(nil, e, &out, nil, nil)

	r.HandleLine("ll")

	// open_file(dir)
	req := recvReq(t, p)
	deliver(t, e, p, wire.OpenFileResp{TAN: req[1], Code: isoerrors.CodeSuccess, Handle: 7}.Encode())

	// seek_file(dir)
	req = recvReq(t, p)
	deliver(t, e, p, wire.SeekFileResp{TAN: req[1], Code: isoerrors.CodeSuccess, Handle: 7}.Encode())

	// read_file(dir): one batch with two entries
	req = recvReq(t, p)
	buf := wire.NewBuffer(0)
	wire.EncodeDirEntry(buf, wire.DirEntry{Name: "README.TXT", Size: 42})
	wire.EncodeDirEntry(buf, wire.DirEntry{Name: "SUBDIR", Attr: wire.AttrDirectory})
	data := buf.Raw()
	deliver(t, e, p, wire.ReadFileResp{TAN: req[1], Code: isoerrors.CodeSuccess, Handle: 7, Count: uint16(len(data)), Data: data}.Encode())

	// seek_file(dir) again before the terminating empty read
	req = recvReq(t, p)
	deliver(t, e, p, wire.SeekFileResp{TAN: req[1], Code: isoerrors.CodeSuccess, Handle: 7}.Encode())

	// read_file(dir): empty batch signals end of directory
	req = recvReq(t, p)
	deliver(t, e, p, wire.ReadFileResp{TAN: req[1], Code: isoerrors.CodeEndOfFile, Handle: 7}.Encode())

	// close_file(dir): best-effort, no callback wired
	_ = recvReq(t, p)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Contains(t, out.String(), "README.TXT")
	assert.Contains(t, out.String(), "d ")
}

func TestDmesgEmptyLog(t *testing.T) {
	e, _ := newPipeEngine(t)
	var out bytes.Buffer
	r := New(nil, e, &out, nil, nil)

	r.HandleLine("dmesg")

	assert.Contains(t, out.String(), "log is empty")
}

func TestSelftestUnavailable(t *testing.T) {
	e, _ := newPipeEngine(t)
	var out bytes.Buffer
	r := New(nil, e, &out, nil, nil)

	r.HandleLine("selftest")

	assert.Contains(t, out.String(), "not available")
}
