package server

import (
	"time"

	"github.com/isobusfs/isobusfs/internal/isoerrors"
	"github.com/isobusfs/isobusfs/internal/isolog"
	"github.com/isobusfs/isobusfs/internal/pathfs"
	"github.com/isobusfs/isobusfs/internal/transport"
	"github.com/isobusfs/isobusfs/internal/wire"
)

// Dispatcher ties the path engine, handle table, volume table and
// session manager to the wire codec, implementing the command-group
// switch of spec §4.1/§4.5-§4.8: Connection Management, Directory
// Handling and File Access are interpreted; File Handling and Volume
// Access are NACK-only (see DESIGN.md, "VolumeStatus in CG0").
type Dispatcher struct {
	log      *isolog.Logger
	cfg      *Config
	sessions *SessionTable
	handles  *HandleTable
	volumes  *VolumeTable
	beacon   *Beacon
}

func NewDispatcher(log *isolog.Logger, cfg *Config, sessions *SessionTable, handles *HandleTable, volumes *VolumeTable, beacon *Beacon) *Dispatcher {
	if log == nil {
		log = isolog.Nop()
	}
	return &Dispatcher{log: log, cfg: cfg, sessions: sessions, handles: handles, volumes: volumes, beacon: beacon}
}

// Dispatch handles one inbound datagram from peer (spec §4.3 step 1 /
// §4.7). It is registered as the event loop's socket callback for the
// server's main receive socket.
func (d *Dispatcher) Dispatch(now time.Time, peer transport.Address, data []byte) {
	if len(data) < 2 {
		return
	}
	sess, err := d.sessions.Lookup(now, peer)
	if err != nil {
		d.log.Warnf("server: failed to admit client %d: %v", peer.Addr, err)
		return
	}
	if sess == nil {
		d.log.Warnf("server: client table full, dropping datagram from %d", peer.Addr)
		return
	}
	if sess.CurrentDir == "" {
		sess.CurrentDir = string(pathfs.Separator) + string(pathfs.Separator) + d.cfg.DefaultVolume
	}
	if len(data) < wire.MinFrameLen {
		d.nack(sess, data[0])
		return
	}

	hdr := wire.DecodeHeader(data[0])
	r := wire.NewReader(data)
	r.Byte() // header already decoded

	switch hdr.Group {
	case wire.CGConnectionManagement:
		d.dispatchConnectionManagement(sess, hdr.Function, r)
	case wire.CGDirectoryHandling:
		d.dispatchDirectoryHandling(sess, hdr.Function, r)
	case wire.CGFileAccess:
		d.dispatchFileAccess(sess, hdr.Function, r)
	default: // CGFileHandling, CGVolumeHandling: NACK-only (spec §4.1)
		d.nack(sess, data[0])
	}
}

func (d *Dispatcher) send(sess *Session, frame []byte) {
	if err := sess.Reply.Send(frame); err != nil {
		d.log.Warnf("server: send to client %d failed: %v", sess.Peer.Addr, err)
	}
}

func (d *Dispatcher) nack(sess *Session, offendingHeader byte) {
	d.send(sess, wire.EncodeNACK(wire.NACK{OffendingHeader: offendingHeader, OriginatingPGN: wire.PGNClientToFS}))
}

func (d *Dispatcher) dispatchConnectionManagement(sess *Session, fn byte, r *wire.Reader) {
	switch fn {
	case wire.FnGetFSPropertiesReq:
		req := wire.DecodeGetFSPropertiesReq(r)
		d.send(sess, wire.GetFSPropertiesResp{
			TAN:            req.TAN,
			Code:           isoerrors.CodeSuccess,
			VersionNumber:  3, // ISO 11783-13:2021, edition 3
			MaxOpenHandles: 255,
			Capabilities:   wire.FSStatusReading, // read-only server (spec §1 Non-goals: no write support)
		}.Encode())
	case wire.FnVolumeStatusReq:
		req := wire.DecodeVolumeStatusReq(r)
		resp, err := d.volumes.Status(sess.ID, req.Mode, req.VolumeName)
		if err != nil {
			d.send(sess, wire.VolumeStatusResp{TAN: req.TAN, Code: isoerrors.CodeOf(err), VolumeName: req.VolumeName}.Encode())
			return
		}
		resp.TAN = req.TAN
		d.send(sess, resp.Encode())
	default:
		d.nack(sess, wire.EncodeHeader(wire.CGConnectionManagement, fn))
	}
}

func (d *Dispatcher) dispatchDirectoryHandling(sess *Session, fn byte, r *wire.Reader) {
	switch fn {
	case wire.FnChangeCurrentDirReq:
		req := wire.DecodeChangeCurrentDirReq(r)
		resolved, err := pathfs.Normalize(sess.CurrentDir, req.Path, d.cfg.MFSDir)
		if err != nil {
			d.send(sess, wire.ChangeCurrentDirResp{TAN: req.TAN, Code: isoerrors.CodeOf(err)}.Encode())
			return
		}
		if _, err := pathfs.ToHost(resolved, d.cfg.Volumes); err != nil {
			d.send(sess, wire.ChangeCurrentDirResp{TAN: req.TAN, Code: isoerrors.CodeOf(err)}.Encode())
			return
		}
		sess.CurrentDir = resolved
		d.send(sess, wire.ChangeCurrentDirResp{TAN: req.TAN, Code: isoerrors.CodeSuccess}.Encode())
	case wire.FnGetCurrentDirReq:
		req := wire.DecodeGetCurrentDirReq(r)
		d.send(sess, wire.GetCurrentDirResp{TAN: req.TAN, Code: isoerrors.CodeSuccess, Path: sess.CurrentDir}.Encode())
	default:
		d.nack(sess, wire.EncodeHeader(wire.CGDirectoryHandling, fn))
	}
}

func (d *Dispatcher) dispatchFileAccess(sess *Session, fn byte, r *wire.Reader) {
	switch fn {
	case wire.FnOpenFileReq:
		req := wire.DecodeOpenFileReq(r)
		resolved, err := pathfs.Normalize(sess.CurrentDir, req.Path, d.cfg.MFSDir)
		if err != nil {
			d.send(sess, wire.OpenFileResp{TAN: req.TAN, Code: isoerrors.CodeOf(err), Handle: wire.NoHandle}.Encode())
			return
		}
		handle, err := d.handles.Open(sess.ID, d.cfg.Volumes, resolved, req.Flags)
		if err != nil {
			d.send(sess, wire.OpenFileResp{TAN: req.TAN, Code: isoerrors.CodeOf(err), Handle: wire.NoHandle}.Encode())
			return
		}
		d.send(sess, wire.OpenFileResp{TAN: req.TAN, Code: isoerrors.CodeSuccess, Handle: handle}.Encode())
		if d.beacon != nil {
			d.beacon.Notify(d.statusByte())
		}

	case wire.FnSeekFileReq:
		req := wire.DecodeSeekFileReq(r)
		pos, err := d.handles.Seek(req.Handle, req.Mode, req.Offset)
		if err != nil {
			d.send(sess, wire.SeekFileResp{TAN: req.TAN, Code: isoerrors.CodeOf(err), Handle: req.Handle}.Encode())
			return
		}
		d.send(sess, wire.SeekFileResp{TAN: req.TAN, Code: isoerrors.CodeSuccess, Handle: req.Handle, Position: pos}.Encode())

	case wire.FnReadFileReq:
		req := wire.DecodeReadFileReq(r)
		data, code, err := d.handles.Read(req.Handle, req.Count)
		if err != nil {
			d.send(sess, wire.ReadFileResp{TAN: req.TAN, Code: isoerrors.CodeOf(err), Handle: req.Handle}.Encode())
			return
		}
		d.send(sess, wire.ReadFileResp{TAN: req.TAN, Code: code, Handle: req.Handle, Count: uint16(len(data)), Data: data}.Encode())

	case wire.FnCloseFileReq:
		req := wire.DecodeCloseFileReq(r)
		if err := d.handles.Close(req.Handle, sess.ID); err != nil {
			d.send(sess, wire.CloseFileResp{TAN: req.TAN, Code: isoerrors.CodeOf(err), Handle: req.Handle}.Encode())
			return
		}
		d.send(sess, wire.CloseFileResp{TAN: req.TAN, Code: isoerrors.CodeSuccess, Handle: req.Handle}.Encode())
		if d.beacon != nil {
			d.beacon.Notify(d.statusByte())
		}

	case wire.FnWriteFileReq:
		req := wire.DecodeWriteFileReq(r)
		d.send(sess, wire.WriteFileResp{TAN: req.TAN, Code: isoerrors.CodeUnsupported, Handle: req.Handle}.Encode())

	default:
		d.nack(sess, wire.EncodeHeader(wire.CGFileAccess, fn))
	}
}

// statusByte computes the FS status bitfield for the beacon (spec
// §4.9): this server never writes, so bit1 is always clear.
func (d *Dispatcher) statusByte() byte {
	if d.handles.OpenCount() > 0 {
		return wire.FSStatusReading
	}
	return 0
}

// Sweep runs the periodic idle-eviction task (spec §4.3 step 3).
func (d *Dispatcher) Sweep(now time.Time) {
	d.sessions.Sweep(now)
}
