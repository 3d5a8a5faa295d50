package client

import (
	"time"

	"github.com/isobusfs/isobusfs/internal/isoerrors"
)

// MaxPending is the cap on outstanding pending requests (spec §3:
// "cap ≈ 10 outstanding").
const MaxPending = 10

// Callback is invoked exactly once per pending request, either with a
// matched response payload and nil error, or with err set (TIMED_OUT
// or a TAN mismatch) and payload nil.
type Callback func(payload []byte, err error)

// pendingRequest is one entry of spec §3's "Pending request (client)"
// entity: socket id, awaited fs_function, absolute deadline, callback,
// one-shot flag (always true here; nothing in this core re-arms).
type pendingRequest struct {
	socket     int
	fsFunction byte
	deadline   time.Time
	tan        byte
	cb         Callback
}

// pendingTable is the "pending-event array with pointer-based
// membership test" from §9, redesigned as a bounded slice scanned
// O(n) by (socket, fs_function) — small enough that a map buys nothing.
type pendingTable struct {
	entries []*pendingRequest
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make([]*pendingRequest, 0, MaxPending)}
}

var errPendingTableFull = isoerrors.New(isoerrors.KindSession, isoerrors.CodeOther, "pending request table full")

// Register adds a pending request. It is a programmer error (spec §3)
// to register a second one for the same (socket, fsFunction) while the
// first is still outstanding; Register returns an error instead of
// silently overwriting it.
func (t *pendingTable) Register(socket int, fsFunction byte, tan byte, deadline time.Time, cb Callback) error {
	for _, e := range t.entries {
		if e.socket == socket && e.fsFunction == fsFunction {
			return isoerrors.New(isoerrors.KindSession, isoerrors.CodeOther, "duplicate pending request for socket/function")
		}
	}
	if len(t.entries) >= MaxPending {
		return errPendingTableFull
	}
	t.entries = append(t.entries, &pendingRequest{
		socket: socket, fsFunction: fsFunction, tan: tan, deadline: deadline, cb: cb,
	})
	return nil
}

// Match finds and removes the pending request for (socket, fsFunction),
// if any (spec §4.5: "searches pending requests for a matching
// (socket, response_function); if found, the callback runs ... and the
// entry is removed if one-shot").
func (t *pendingTable) Match(socket int, fsFunction byte) (*pendingRequest, bool) {
	for i, e := range t.entries {
		if e.socket == socket && e.fsFunction == fsFunction {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return e, true
		}
	}
	return nil, false
}

// Sweep fires TIMED_OUT on every entry whose deadline has elapsed and
// removes it (spec §4.3 step 2).
func (t *pendingTable) Sweep(now time.Time) {
	var kept []*pendingRequest
	for _, e := range t.entries {
		if !now.Before(e.deadline) {
			e.cb(nil, isoerrors.ErrTimedOut)
			continue
		}
		kept = append(kept, e)
	}
	t.entries = kept
}

// Len reports the number of outstanding pending requests.
func (t *pendingTable) Len() int { return len(t.entries) }
