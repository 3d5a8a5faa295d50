package client

import (
	"time"

	"github.com/isobusfs/isobusfs/internal/isoerrors"
	"github.com/isobusfs/isobusfs/internal/isolog"
	"github.com/isobusfs/isobusfs/internal/transport"
	"github.com/isobusfs/isobusfs/internal/wire"
)

// DefaultTimeout is the default pending-request deadline (spec §4.5,
// §5: "absolute deadline (default 1 s)").
const DefaultTimeout = 1 * time.Second

// Engine is the client-side request/response engine of spec §4.5: TAN
// allocation and wraparound validation, a bounded pending-request
// table, and the top-level client State.
type Engine struct {
	log      *isolog.Logger
	t        transport.Transport
	socketID int

	nextTan    byte
	lastIssued byte

	pending *pendingTable
	state   State
	tx      txLog
	rx      txLog
	now     func() time.Time
}

// NewEngine wires an Engine to a connected client-main transport.
// socketID is an opaque id used only to key pending requests; callers
// that own more than one socket (the real client has main/NACK/error-
// queue/broadcast sockets, spec §4.2) pass a distinct id per socket.
func NewEngine(log *isolog.Logger, t transport.Transport, socketID int) *Engine {
	if log == nil {
		log = isolog.Nop()
	}
	return &Engine{log: log, t: t, socketID: socketID, pending: newPendingTable(), state: Connecting(), now: time.Now}
}

// State returns the current top-level state.
func (e *Engine) State() State { return e.state }

// SetState lets a command pipeline's callback move the top-level state
// on completion or failure (spec §9: "pipelines own their substate;
// the global top-level state is only observed by the selftest").
func (e *Engine) SetState(s State) { e.state = s }

// allocateTan returns the next TAN and records it as last-issued. The
// byte wraps naturally at 256 (spec §3 "uniqueness must survive wrap").
func (e *Engine) allocateTan() byte {
	tan := e.nextTan
	e.lastIssued = tan
	e.nextTan++
	return tan
}

// ExpectedTan reproduces spec §3's wraparound formula exactly
// (`expected = next_tan == 0 ? 255 : next_tan - 1`) for tests and
// documentation; once a TAN has been issued it agrees with e.lastIssued.
func (e *Engine) ExpectedTan() byte {
	if e.nextTan == 0 {
		return 255
	}
	return e.nextTan - 1
}

// SendAndRegister builds a frame with a freshly allocated TAN, sends
// it, registers a pending request awaiting respFunction, and moves the
// top-level state to Waiting(op) (spec §4.5
// "send_and_register_X_event").
func (e *Engine) SendAndRegister(now time.Time, op Op, respFunction byte, encode func(tan byte) []byte, cb Callback) error {
	tan := e.allocateTan()
	frame := encode(tan)
	e.tx.push(now, frame)
	if err := e.t.Send(frame); err != nil {
		return isoerrors.Wrap(err, isoerrors.KindTransportTransient, isoerrors.CodeOther, "send failed")
	}
	if err := e.pending.Register(e.socketID, respFunction, tan, now.Add(DefaultTimeout), cb); err != nil {
		return err
	}
	e.state = Waiting(op)
	return nil
}

// Sweep expires overdue pending requests (spec §4.3 step 2).
func (e *Engine) Sweep(now time.Time) { e.pending.Sweep(now) }

// PendingCount reports outstanding pending requests, for tests.
func (e *Engine) PendingCount() int { return e.pending.Len() }

// Dispatch handles one received ISOBUS FS frame (spec §4.5: "searches
// pending requests for a matching (socket, response_function)"). Frames
// shorter than wire.MinFrameLen are answered with a NACK and otherwise
// ignored (spec §4.3 step 1).
func (e *Engine) Dispatch(data []byte) {
	if len(data) < wire.MinFrameLen {
		if len(data) > 0 {
			e.sendNack(data[0])
		}
		return
	}
	e.rx.push(e.now(), data)
	hdr := wire.DecodeHeader(data[0])
	tan := data[1]

	req, ok := e.pending.Match(e.socketID, hdr.Function)
	if !ok {
		if hdr.Group == wire.CGFileHandling || hdr.Group == wire.CGVolumeHandling {
			e.sendNack(data[0])
		}
		return
	}
	if tan != e.lastIssued {
		req.cb(nil, isoerrors.New(isoerrors.KindProtocol, isoerrors.CodeTANError, "response TAN does not match last issued TAN"))
		return
	}
	req.cb(data, nil)
}

func (e *Engine) sendNack(offendingHeader byte) {
	frame := wire.EncodeNACK(wire.NACK{OffendingHeader: offendingHeader, OriginatingPGN: wire.PGNFSToClient})
	e.tx.push(time.Now(), frame)
	if err := e.t.Send(frame); err != nil {
		e.log.Warnf("client: failed to send NACK: %v", err)
	}
	e.state = Nacked()
}
