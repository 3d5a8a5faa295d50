package server

import (
	"time"

	"github.com/google/uuid"

	"github.com/isobusfs/isobusfs/internal/isolog"
	"github.com/isobusfs/isobusfs/internal/transport"
)

// ClientTimeout is the idle-eviction deadline (spec §4.7: "evict any
// client with now - last_received > CLIENT_TIMEOUT").
const ClientTimeout = 6 * time.Second

// MaxClients bounds the session table the same way the pending-request
// table is bounded elsewhere in this module.
const MaxClients = 32

// Session is one connected client: its dedicated reply socket, its
// current directory, and its liveness timestamp. The volumes it has
// referenced are tracked by VolumeTable, keyed by the session's ID.
type Session struct {
	ID         ClientID
	Peer       transport.Address
	Reply      transport.Transport
	NextTAN    byte
	LastSeen   time.Time
	CurrentDir string // always absolute; set lazily to \\<default_volume> (spec §3)

	// DebugTag identifies this session's reply socket in log lines only
	// (not a protocol identifier; the wire identity remains the J1939
	// source address in Peer).
	DebugTag string
}

// NewTransportFunc constructs a fresh Transport for a newly admitted
// client's dedicated reply socket (spec §4.7, §9 "per-client reply
// socket"). Production wiring passes a closure over transport.NewSocketCAN;
// tests pass one that hands out transport.Fake/Pipe halves.
type NewTransportFunc func() (transport.Transport, error)

// SessionTable is the server's per-client session manager.
type SessionTable struct {
	log       *isolog.Logger
	newT      NewTransportFunc
	localAddr transport.Address
	byAddr    map[uint8]*Session
	handles   *HandleTable
	volumes   *VolumeTable
}

func NewSessionTable(log *isolog.Logger, local transport.Address, newT NewTransportFunc, handles *HandleTable, volumes *VolumeTable) *SessionTable {
	return &SessionTable{
		log:       log,
		newT:      newT,
		localAddr: local,
		byAddr:    make(map[uint8]*Session),
		handles:   handles,
		volumes:   volumes,
	}
}

// Lookup finds or admits the session for peer, per §4.7: "On every
// inbound datagram, lookup a client by source address; if absent and
// table not full, allocate a new entry, open a dedicated reply socket
// connected to that peer."
func (t *SessionTable) Lookup(now time.Time, peer transport.Address) (*Session, error) {
	if s, ok := t.byAddr[peer.Addr]; ok {
		s.LastSeen = now
		return s, nil
	}
	if len(t.byAddr) >= MaxClients {
		return nil, nil
	}

	reply, err := t.newT()
	if err != nil {
		return nil, err
	}
	if err := reply.Open(transport.RoleServerReply); err != nil {
		_ = reply.Close()
		return nil, err
	}
	if err := reply.Bind(t.localAddr); err != nil {
		_ = reply.Close()
		return nil, err
	}
	if err := reply.Connect(peer); err != nil {
		_ = reply.Close()
		return nil, err
	}

	s := &Session{
		ID:       ClientID(peer.Addr),
		Peer:     peer,
		Reply:    reply,
		LastSeen: now,
		DebugTag: uuid.NewString(),
	}
	t.byAddr[peer.Addr] = s
	if t.log != nil {
		t.log.Infof("server: admitted client %d (reply socket %s)", peer.Addr, s.DebugTag)
	}
	return s, nil
}

// Sweep evicts every session idle longer than ClientTimeout, releasing
// its handles and volume refs and closing its reply socket (spec §4.7).
func (t *SessionTable) Sweep(now time.Time) {
	for addr, s := range t.byAddr {
		if now.Sub(s.LastSeen) <= ClientTimeout {
			continue
		}
		t.evict(addr, s)
	}
}

// Evict drops a session immediately (also used when a client actively
// disconnects, not just on timeout).
func (t *SessionTable) Evict(addr uint8) {
	if s, ok := t.byAddr[addr]; ok {
		t.evict(addr, s)
	}
}

func (t *SessionTable) evict(addr uint8, s *Session) {
	if t.handles != nil {
		t.handles.CloseAllForClient(s.ID)
	}
	if t.volumes != nil {
		t.volumes.ReleaseAllForClient(s.ID)
	}
	_ = s.Reply.Close()
	delete(t.byAddr, addr)
	if t.log != nil {
		t.log.Infof("server: evicted client %d (idle, reply socket %s)", addr, s.DebugTag)
	}
}

// Len reports the number of currently admitted sessions.
func (t *SessionTable) Len() int {
	return len(t.byAddr)
}

// Get returns the session for addr, if any.
func (t *SessionTable) Get(addr uint8) (*Session, bool) {
	s, ok := t.byAddr[addr]
	return s, ok
}

// AllocateTAN returns the next TAN for s's command stream, wrapping
// through the byte range exactly like the client side (spec §3).
func (s *Session) AllocateTAN() byte {
	tan := s.NextTAN
	s.NextTAN++
	return tan
}
