//go:build !linux

package transport

import "errors"

// SocketCAN is unavailable outside Linux; non-Linux builds (development
// on macOS, CI) use the Fake transport instead (spec §1: the CAN/J1939
// kernel transport is Linux-only and out of this core's scope).
type SocketCAN struct{}

var errNoSocketCAN = errors.New("transport: SocketCAN is only available on linux")

func NewSocketCAN(ifname string) (*SocketCAN, error) { return nil, errNoSocketCAN }

func (s *SocketCAN) Open(role Role) error                         { return errNoSocketCAN }
func (s *SocketCAN) Bind(local Address) error                      { return errNoSocketCAN }
func (s *SocketCAN) Connect(peer Address) error                    { return errNoSocketCAN }
func (s *SocketCAN) SetPriority(prio uint8) error                  { return errNoSocketCAN }
func (s *SocketCAN) SetBroadcast(on bool) error                     { return errNoSocketCAN }
func (s *SocketCAN) EnableErrorQueue(on bool) error                 { return errNoSocketCAN }
func (s *SocketCAN) Send(data []byte) error                        { return errNoSocketCAN }
func (s *SocketCAN) SendTo(peer Address, data []byte) error        { return errNoSocketCAN }
func (s *SocketCAN) Recv() (Datagram, bool, error)                 { return Datagram{}, false, errNoSocketCAN }
func (s *SocketCAN) DrainErrorQueue() ([]ErrorQueueEntry, error)    { return nil, errNoSocketCAN }
func (s *SocketCAN) Fd() int                                        { return -1 }
func (s *SocketCAN) Close() error                                   { return nil }
