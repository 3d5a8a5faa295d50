package server

import (
	"github.com/isobusfs/isobusfs/internal/isoerrors"
	"github.com/isobusfs/isobusfs/internal/pathfs"
	"github.com/isobusfs/isobusfs/internal/wire"
)

// Status bits of VolumeStatusResp.Status (spec §4.1 comment: "bit0:
// present, bit1: writable, bit2: removable").
const (
	statusPresent  byte = 1 << 0
	statusWritable byte = 1 << 1
	statusRemovable byte = 1 << 2
)

// volumeEntry is spec §3's "Volume (server)": the static config plus
// the per-client refcount list.
type volumeEntry struct {
	vol     pathfs.Volume
	clients []ClientID
}

// VolumeTable tracks which clients currently reference each configured
// volume (spec §3, mutated by volume_status_req and by releasing an
// evicted client's references).
type VolumeTable struct {
	byName map[string]*volumeEntry
	order  []string
}

func NewVolumeTable(volumes []pathfs.Volume) *VolumeTable {
	t := &VolumeTable{byName: make(map[string]*volumeEntry, len(volumes))}
	for _, v := range volumes {
		t.byName[v.Name] = &volumeEntry{vol: v}
		t.order = append(t.order, v.Name)
	}
	return t
}

// Status implements volume_status_req (spec §4.5/§4.8). The spec names
// two modes, QUERY and PREPARE_TO_DISCONNECT, but is silent on exactly
// how each mutates the refcount/client list named in §3's volume entity.
// This reading treats the two modes the same way open_file/close treat
// a handle's client list: QUERY is the client declaring "I am using
// this volume" (join the list, refcount goes up at most once per
// client), and PREPARE_TO_DISCONNECT is the client declaring "I am
// done" (leave the list) ahead of removable-media ejection — mirroring
// the open/close symmetry already established for file handles rather
// than inventing an unrelated bookkeeping rule.
func (t *VolumeTable) Status(client ClientID, mode wire.VolumeStatusMode, name string) (wire.VolumeStatusResp, error) {
	e, ok := t.byName[name]
	if !ok {
		return wire.VolumeStatusResp{}, isoerrors.New(isoerrors.KindSession, isoerrors.CodeVolumeNotInitialized, "unknown volume")
	}

	switch mode {
	case wire.VolumeStatusQuery:
		e.addClient(client)
	case wire.VolumeStatusPrepareToDisconnect:
		e.removeClient(client)
	default:
		return wire.VolumeStatusResp{}, isoerrors.New(isoerrors.KindSession, isoerrors.CodeInvalidAccess, "unknown volume status mode")
	}

	status := statusPresent
	if !e.vol.ReadOnly {
		status |= statusWritable
	}
	if e.vol.Removable {
		status |= statusRemovable
	}
	return wire.VolumeStatusResp{
		Code:           isoerrors.CodeSuccess,
		Status:         status,
		MaxOpenHandles: 255,
		VolumeName:     e.vol.Name,
	}, nil
}

// ReleaseAllForClient drops client from every volume's referencing
// list, mirroring HandleTable.CloseAllForClient (spec §4.7 eviction).
func (t *VolumeTable) ReleaseAllForClient(client ClientID) {
	for _, name := range t.order {
		t.byName[name].removeClient(client)
	}
}

// RefCount reports how many clients currently reference the named
// volume, for tests.
func (t *VolumeTable) RefCount(name string) int {
	e, ok := t.byName[name]
	if !ok {
		return 0
	}
	return len(e.clients)
}

func (e *volumeEntry) addClient(c ClientID) {
	for _, existing := range e.clients {
		if existing == c {
			return
		}
	}
	e.clients = append(e.clients, c)
}

func (e *volumeEntry) removeClient(c ClientID) {
	for i, existing := range e.clients {
		if existing == c {
			e.clients = append(e.clients[:i], e.clients[i+1:]...)
			return
		}
	}
}
