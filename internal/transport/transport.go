// Package transport defines the narrow trait the rest of isobusfs
// depends on instead of concrete J1939 sockets (spec §4.2, §9 "Per-client
// reply socket plus a NACK-only socket plus a broadcast socket"). The
// actual CAN/J1939 kernel transport — opening datagram sockets, PGN
// filters, TP/ETP fragmentation/reassembly, error-queue timestamping —
// is an external collaborator per spec §1; this package only assumes a
// datagram API delivering whole ISOBUS FS messages.
package transport

import (
	"time"
)

// Role selects which PGN filter and broadcast flag a socket is opened
// with (spec §4.2). The client keeps one socket per role; the server
// keeps a broadcast-FSS socket plus one dedicated reply socket per
// client (spec §4.7, §5).
type Role int

const (
	RoleClientMain          Role = iota // client -> FS requests, FS -> client responses
	RoleClientErrorQueue                // local send-status notifications
	RoleClientNACK                      // receives NACKs addressed to us
	RoleClientBroadcastRecv             // FS Status broadcasts
	RoleServerReply                     // server: one per client, connected
	RoleServerBroadcast                 // server: FS Status broadcast
	RoleServerReceive                   // server: unconnected listen socket admitting new clients (spec §4.7)
)

// Address is a J1939 network endpoint: a 64-bit ISO NAME (used for
// address-claim lookups, optional) and the 1-byte source address
// actually seen on the wire. AddrUnset (0xFF) parallels the wire
// package's NoHandle sentinel: it is never a routable peer address.
type Address struct {
	Name uint64
	Addr uint8
}

const AddrUnset uint8 = 0xFF

// SessionEvent is a locally observed transmit-session lifecycle event,
// yielded one per record by the error queue (spec §4.2, §9).
type SessionEvent int

const (
	EventScheduled SessionEvent = iota
	EventSent
	EventAcked
	EventAborted
)

func (e SessionEvent) String() string {
	switch e {
	case EventScheduled:
		return "scheduled"
	case EventSent:
		return "sent"
	case EventAcked:
		return "acked"
	case EventAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// AbortKind is the local classification of a J1939 abort code (spec
// §4.2: "Abort converts a J1939 abort code to a local error kind").
type AbortKind int

const (
	AbortNone AbortKind = iota
	AbortTimeout
	AbortBusy
	AbortResourcesUnavailable
	AbortUnexpected
)

// ErrorQueueEntry is one record drained from a session's error queue.
type ErrorQueueEntry struct {
	Origin     Address
	Info       string
	SessionKey uint32
	Event      SessionEvent
	Abort      AbortKind
	Errno      int
	At         time.Time
}

// Datagram is one received ISOBUS FS payload plus its sender (spec §3,
// "Transport message").
type Datagram struct {
	Peer Address
	Data []byte
}

// Transport is the trait every consumer in this module programs
// against (spec §9, "an implementation detail of the host transport").
// A single Transport value owns exactly one underlying socket/FD.
type Transport interface {
	// Open prepares the transport for role, applying its PGN filter and
	// default broadcast flag.
	Open(role Role) error

	// Bind assigns the local address (source address / NAME) this
	// transport will send from and, for receive-only roles, listen on.
	Bind(local Address) error

	// Connect restricts sends/receives to a single peer (used for the
	// per-client reply socket on the server, spec §4.7).
	Connect(peer Address) error

	// SetPriority sets the J1939 priority used for subsequent sends.
	SetPriority(prio uint8) error

	// SetBroadcast toggles whether sends target the broadcast address.
	SetBroadcast(on bool) error

	// EnableErrorQueue turns on local transmit-status notifications,
	// consumed later via DrainErrorQueue.
	EnableErrorQueue(on bool) error

	// Send transmits to the connected peer (Connect must have been
	// called). It never blocks (spec §5 "don't-wait flag").
	Send(data []byte) error

	// SendTo transmits to an explicit peer without requiring Connect.
	SendTo(peer Address, data []byte) error

	// Recv reads one datagram if one is ready, without blocking. A
	// (nil, false, nil) return means nothing was ready.
	Recv() (Datagram, bool, error)

	// DrainErrorQueue returns every error-queue record observed since
	// the last call.
	DrainErrorQueue() ([]ErrorQueueEntry, error)

	// Fd returns the underlying file descriptor for readiness
	// multiplexing by the event loop (spec §4.3). Transports with no
	// real FD (e.g. the in-memory fake) return -1; the loop polls them
	// unconditionally instead.
	Fd() int

	// Close releases the underlying socket.
	Close() error
}
