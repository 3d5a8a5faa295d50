package main

import (
	"bytes"
	"strings"

	"golang.org/x/sys/unix"
)

// stdinReader turns fd 0 into a poll-friendly line source for
// eventloop.Loop.RegisterStdin (spec §4.3 "standard input (optional)").
// It sets stdin non-blocking once (mirroring how transport.SocketCAN
// sets its own fd non-blocking) and assembles whatever bytes are ready
// into complete lines on each poll.
type stdinReader struct {
	buf    bytes.Buffer
	onLine func(string)
}

func newStdinReader(onLine func(string)) (*stdinReader, error) {
	if err := unix.SetNonblock(unix.Stdin, true); err != nil {
		return nil, err
	}
	return &stdinReader{onLine: onLine}, nil
}

// poll drains whatever is currently available on fd 0 without blocking
// and dispatches every complete line found.
func (s *stdinReader) poll() {
	var tmp [4096]byte
	for {
		n, err := unix.Read(unix.Stdin, tmp[:])
		if n > 0 {
			s.buf.Write(tmp[:n])
		}
		if n <= 0 || err != nil {
			break
		}
	}
	for {
		data := s.buf.Bytes()
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSuffix(string(data[:i]), "\r")
		s.buf.Next(i + 1)
		s.onLine(line)
	}
}
