// Package client implements the asynchronous request/response engine of
// spec §4.5: TAN allocation and wraparound validation, a bounded
// pending-request table keyed by (socket, fs_function), and the
// top-level client state. Command pipelines (cd/pwd/ls/get) build on
// top of this package; see internal/client/pipelines.
package client

// Op identifies which request/response pair a State or PendingRequest
// concerns (spec §4.5's "per-response event registration").
type Op int

const (
	OpNone Op = iota
	OpGetProperties
	OpVolumeStatus
	OpChangeDir
	OpGetCurrentDir
	OpOpenFile
	OpSeekFile
	OpReadFile
	OpCloseFile
)

func (o Op) String() string {
	switch o {
	case OpGetProperties:
		return "get_properties"
	case OpVolumeStatus:
		return "volume_status"
	case OpChangeDir:
		return "change_dir"
	case OpGetCurrentDir:
		return "get_current_dir"
	case OpOpenFile:
		return "open_file"
	case OpSeekFile:
		return "seek_file"
	case OpReadFile:
		return "read_file"
	case OpCloseFile:
		return "close_file"
	default:
		return "none"
	}
}

// Kind is the tag of the State sum type (spec §9: "encode as a sum type
// ... rather than a single integer"). Connecting/Idle/Nacked/Selftest
// are process-lifetime bands observed only by the selftest harness;
// Waiting/Done/Failed/Active carry the per-operation payload.
type Kind int

const (
	KindConnecting Kind = iota
	KindIdle
	KindNacked
	KindSelftest
	KindWaiting
	KindDone
	KindFailed
	KindActive
)

func (k Kind) String() string {
	switch k {
	case KindConnecting:
		return "CONNECTING"
	case KindIdle:
		return "IDLE"
	case KindNacked:
		return "NACKED"
	case KindSelftest:
		return "SELFTEST"
	case KindWaiting:
		return "WAITING"
	case KindDone:
		return "DONE"
	case KindFailed:
		return "FAILED"
	case KindActive:
		return "ACTIVE"
	default:
		return "?"
	}
}

// State is the top-level client state (spec §4.5 "flat enum, banded for
// clarity" redesigned per §9 into tagged variants). Only the fields
// relevant to Kind are meaningful; Waiting/Active/Failed/Done act as the
// sum type's constructors below.
type State struct {
	Kind     Kind
	Op       Op
	Substate int
	Err      error
}

func Connecting() State          { return State{Kind: KindConnecting} }
func Idle() State                { return State{Kind: KindIdle} }
func Nacked() State               { return State{Kind: KindNacked} }
func Selftest() State             { return State{Kind: KindSelftest} }
func Waiting(op Op) State         { return State{Kind: KindWaiting, Op: op} }
func Done(op Op) State            { return State{Kind: KindDone, Op: op} }
func Failed(op Op, err error) State {
	return State{Kind: KindFailed, Op: op, Err: err}
}
func Active(op Op, substate int) State {
	return State{Kind: KindActive, Op: op, Substate: substate}
}
