//go:build linux

package transport

import (
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// j1939Proto/solCANJ1939/canJ1939* mirror <linux/can/j1939.h>.
// These constants are not yet exported by every pinned golang.org/x/sys
// release, so they are reproduced here the way most small Go J1939
// tools do pending upstream coverage.
const (
	j1939Proto          = 7  // CAN_J1939
	solCANJ1939         = 101 // SOL_CAN_J1939
	canJ1939FilterPGN   = 3
	canJ1939ErrQueue    = 4
	canJ1939SendPrio    = 5
	canJ1939Broadcast   = 1 << 0
	j1939NoName  uint64 = 0
	j1939IdleAddr uint8 = 0xFE
)

// pgnFor returns the J1939 PGN filter applied for role (spec §4.2:
// "Roles differ only in which PGN filter and broadcast flag are
// applied").
func pgnFor(role Role) uint32 {
	switch role {
	case RoleClientMain, RoleServerReply, RoleServerReceive:
		return 0 // bound to NAME/addr; both PGNs flow through one connected socket
	case RoleClientBroadcastRecv, RoleServerBroadcast:
		return 0x0AB00
	case RoleClientNACK:
		return 0x0E800
	default:
		return 0
	}
}

// SocketCAN is the real J1939 transport, used in production. The CAN
// interface (e.g. "can0") is resolved once at construction; everything
// else is driven through the Transport trait (spec §9).
type SocketCAN struct {
	ifname string
	ifidx  int
	role   Role

	mu       sync.Mutex
	fd       int
	peer     *Address
	local    Address
	errQueue bool
}

// NewSocketCAN returns a transport bound to the named CAN interface.
// The socket itself is not opened until Open is called.
func NewSocketCAN(ifname string) (*SocketCAN, error) {
	idx, err := ifIndexByName(ifname)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve interface %q: %w", ifname, err)
	}
	return &SocketCAN{ifname: ifname, ifidx: idx, fd: -1}, nil
}

func (s *SocketCAN) Open(role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_DGRAM, j1939Proto)
	if err != nil {
		return fmt.Errorf("transport: socket: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return fmt.Errorf("transport: set nonblock: %w", err)
	}
	s.fd = fd
	s.role = role
	if pgn := pgnFor(role); pgn != 0 {
		// Best-effort PGN filter; a failure here degrades to
		// receiving unfiltered traffic rather than aborting startup.
		_ = unix.SetsockoptInt(fd, solCANJ1939, canJ1939FilterPGN, int(pgn))
	}
	return nil
}

func (s *SocketCAN) Bind(local Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fd < 0 {
		return fmt.Errorf("transport: bind before open")
	}
	s.local = local
	sa := &unix.SockaddrCANJ1939{
		Ifindex: s.ifidx,
		Name:    local.Name,
		PGN:     0,
		Addr:    local.Addr,
	}
	if err := unix.Bind(s.fd, sa); err != nil {
		return fmt.Errorf("transport: bind %s addr=%d: %w", s.ifname, local.Addr, err)
	}
	return nil
}

func (s *SocketCAN) Connect(peer Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fd < 0 {
		return fmt.Errorf("transport: connect before open")
	}
	sa := &unix.SockaddrCANJ1939{
		Ifindex: s.ifidx,
		Name:    peer.Name,
		PGN:     0,
		Addr:    peer.Addr,
	}
	if err := unix.Connect(s.fd, sa); err != nil {
		return fmt.Errorf("transport: connect to addr=%d: %w", peer.Addr, err)
	}
	p := peer
	s.peer = &p
	return nil
}

func (s *SocketCAN) SetPriority(prio uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unix.SetsockoptInt(s.fd, solCANJ1939, canJ1939SendPrio, int(prio))
}

func (s *SocketCAN) SetBroadcast(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := 0
	if on {
		v = 1
	}
	return unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_BROADCAST, v)
}

func (s *SocketCAN) EnableErrorQueue(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := 0
	if on {
		v = 1
	}
	err := unix.SetsockoptInt(s.fd, solCANJ1939, canJ1939ErrQueue, v)
	if err == nil {
		s.errQueue = on
	}
	return err
}

func (s *SocketCAN) Send(data []byte) error {
	s.mu.Lock()
	fd := s.fd
	s.mu.Unlock()
	return unix.Send(fd, data, unix.MSG_DONTWAIT)
}

func (s *SocketCAN) SendTo(peer Address, data []byte) error {
	s.mu.Lock()
	fd, idx := s.fd, s.ifidx
	s.mu.Unlock()
	sa := &unix.SockaddrCANJ1939{Ifindex: idx, Name: peer.Name, PGN: 0, Addr: peer.Addr}
	return unix.Sendto(fd, data, unix.MSG_DONTWAIT, sa)
}

func (s *SocketCAN) Recv() (Datagram, bool, error) {
	s.mu.Lock()
	fd := s.fd
	s.mu.Unlock()
	buf := make([]byte, 65536)
	n, from, err := unix.Recvfrom(fd, buf, unix.MSG_DONTWAIT)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return Datagram{}, false, nil
		}
		return Datagram{}, false, err
	}
	peer := Address{}
	if sa, ok := from.(*unix.SockaddrCANJ1939); ok {
		peer = Address{Name: sa.Name, Addr: sa.Addr}
	}
	return Datagram{Peer: peer, Data: buf[:n]}, true, nil
}

func (s *SocketCAN) DrainErrorQueue() ([]ErrorQueueEntry, error) {
	s.mu.Lock()
	fd, enabled := s.fd, s.errQueue
	s.mu.Unlock()
	if !enabled {
		return nil, nil
	}
	var out []ErrorQueueEntry
	buf := make([]byte, 256)
	oob := make([]byte, 256)
	for {
		_, oobn, _, _, err := unix.Recvmsg(fd, buf, oob, unix.MSG_ERRQUEUE|unix.MSG_DONTWAIT)
		if err != nil {
			break
		}
		scms, err := unix.ParseSocketControlMessage(oob[:oobn])
		if err != nil || len(scms) == 0 {
			continue
		}
		out = append(out, ErrorQueueEntry{Event: EventAborted, Abort: AbortUnexpected, At: now()})
	}
	return out, nil
}

func (s *SocketCAN) Fd() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fd
}

func (s *SocketCAN) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}

func ifIndexByName(name string) (int, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return 0, err
	}
	return iface.Index, nil
}

func now() time.Time { return time.Now() }
