package main

import (
	"fmt"

	"github.com/isobusfs/isobusfs/internal/isolog"
	"github.com/isobusfs/isobusfs/internal/transport"
)

// clientFlags mirrors spec §6.2's CLI surface exactly: interactive mode,
// the CAN interface name, a local/remote address pair each expressed as
// either a raw source address or a 64-bit NAME, and the log level.
type clientFlags struct {
	interactive bool
	iface       string
	localAddr   string
	localName   string
	logLevel    int
	remoteAddr  string
	remoteName  string
}

// resolveAddress implements §6.2's "address/name pairs are mutually
// exclusive on each side": at most one of addrHex/nameHex may be set.
// An address resolves to a plain source address with Name left zero; a
// name resolves to transport.AddrUnset so the kernel's own address-claim
// state decides the wire address.
func resolveAddress(side, addrHex, nameHex string) (transport.Address, error) {
	if addrHex != "" && nameHex != "" {
		return transport.Address{}, fmt.Errorf("--%s-address and --%s-name are mutually exclusive", side, side)
	}
	if addrHex != "" {
		var addr uint8
		if _, err := fmt.Sscanf(addrHex, "%x", &addr); err != nil {
			return transport.Address{}, fmt.Errorf("invalid %s address %q: %w", side, addrHex, err)
		}
		return transport.Address{Addr: addr}, nil
	}
	if nameHex != "" {
		var name uint64
		if _, err := fmt.Sscanf(nameHex, "%x", &name); err != nil {
			return transport.Address{}, fmt.Errorf("invalid %s name %q: %w", side, nameHex, err)
		}
		return transport.Address{Name: name, Addr: transport.AddrUnset}, nil
	}
	return transport.Address{}, fmt.Errorf("one of --%s-address or --%s-name is required", side, side)
}

// level clamps the raw --log-level flag into isolog's 0..4 range
// (spec §6.2: "--log-level <0..4>").
func (f clientFlags) level() isolog.Level {
	switch {
	case f.logLevel <= 0:
		return isolog.LevelError
	case f.logLevel >= 4:
		return isolog.LevelTrace
	default:
		return isolog.Level(f.logLevel)
	}
}
