package main

import (
	"fmt"

	"github.com/isobusfs/isobusfs/internal/isolog"
	"github.com/isobusfs/isobusfs/internal/transport"
)

// serverFlags is the server binary's flag surface: a CAN interface, a
// local address/name pair (mutually exclusive, mirroring the client's
// §6.2 rule), the log level, and the volume config file path of §6.3.
type serverFlags struct {
	iface      string
	localAddr  string
	localName  string
	logLevel   int
	configPath string
}

func resolveAddress(addrHex, nameHex string) (transport.Address, error) {
	if addrHex != "" && nameHex != "" {
		return transport.Address{}, fmt.Errorf("--local-address and --local-name are mutually exclusive")
	}
	if addrHex != "" {
		var addr uint8
		if _, err := fmt.Sscanf(addrHex, "%x", &addr); err != nil {
			return transport.Address{}, fmt.Errorf("invalid local address %q: %w", addrHex, err)
		}
		return transport.Address{Addr: addr}, nil
	}
	if nameHex != "" {
		var name uint64
		if _, err := fmt.Sscanf(nameHex, "%x", &name); err != nil {
			return transport.Address{}, fmt.Errorf("invalid local name %q: %w", nameHex, err)
		}
		return transport.Address{Name: name, Addr: transport.AddrUnset}, nil
	}
	return transport.Address{}, fmt.Errorf("one of --local-address or --local-name is required")
}

func (f serverFlags) level() isolog.Level {
	switch {
	case f.logLevel <= 0:
		return isolog.LevelError
	case f.logLevel >= 4:
		return isolog.LevelTrace
	default:
		return isolog.Level(f.logLevel)
	}
}
