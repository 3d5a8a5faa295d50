package transport

import (
	"errors"
	"sync"
)

var errNotConnected = errors.New("transport: fake not connected, call Connect first")

// Fake is an in-memory Transport used by tests and by anything driving
// the event loop without a real CAN interface. Two Fakes wired together
// with Pipe behave like a connected pair of J1939 sockets with no
// kernel involvement, which is what the selftest harness and the unit
// tests in internal/eventloop and internal/client exercise against.
type Fake struct {
	mu        sync.Mutex
	role      Role
	local     Address
	peer      *Address
	inbox     []Datagram
	errQueue  []ErrorQueueEntry
	sent      [][]byte
	open      bool
	peerInbox *[]Datagram
	peerMu    *sync.Mutex
}

// NewFake returns an unopened Fake transport.
func NewFake() *Fake {
	return &Fake{}
}

// Pipe cross-delivers whatever a and b send to each other, the way two
// ends of a connected J1939 session exchange frames.
type Pipe struct {
	A, B *Fake
}

// NewPipe wires two Fakes so sends on one arrive in the other's inbox.
func NewPipe() *Pipe {
	a, b := NewFake(), NewFake()
	a.peerInbox = &b.inbox
	a.peerMu = &b.mu
	b.peerInbox = &a.inbox
	b.peerMu = &a.mu
	return &Pipe{A: a, B: b}
}

func (f *Fake) Open(role Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.role = role
	f.open = true
	return nil
}

func (f *Fake) Bind(local Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.local = local
	return nil
}

func (f *Fake) Connect(peer Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := peer
	f.peer = &p
	return nil
}

func (f *Fake) SetPriority(prio uint8) error { return nil }
func (f *Fake) SetBroadcast(on bool) error   { return nil }
func (f *Fake) EnableErrorQueue(on bool) error {
	return nil
}

func (f *Fake) Send(data []byte) error {
	f.mu.Lock()
	peer := f.peer
	f.mu.Unlock()
	if peer == nil {
		return errNotConnected
	}
	return f.SendTo(*peer, data)
}

func (f *Fake) SendTo(peer Address, data []byte) error {
	f.mu.Lock()
	local := f.local
	sent := append([]byte(nil), data...)
	f.sent = append(f.sent, sent)
	inbox := f.peerInbox
	mu := f.peerMu
	f.mu.Unlock()
	if inbox == nil {
		return nil // no pipe attached: sends are recorded but go nowhere
	}
	mu.Lock()
	*inbox = append(*inbox, Datagram{Peer: local, Data: sent})
	mu.Unlock()
	return nil
}

func (f *Fake) Recv() (Datagram, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inbox) == 0 {
		return Datagram{}, false, nil
	}
	d := f.inbox[0]
	f.inbox = f.inbox[1:]
	return d, true, nil
}

func (f *Fake) DrainErrorQueue() ([]ErrorQueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.errQueue
	f.errQueue = nil
	return out, nil
}

// InjectErrorQueue lets a test simulate a session event (e.g. an abort)
// the way the kernel would report it.
func (f *Fake) InjectErrorQueue(e ErrorQueueEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errQueue = append(f.errQueue, e)
}

// Sent returns every frame handed to Send/SendTo so far, for assertions
// in tests (mirrors the TX log ring's debug purpose, spec §3).
func (f *Fake) Sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *Fake) Fd() int { return -1 }

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	return nil
}
