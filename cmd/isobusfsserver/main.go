// Command isobusfsserver is the ISOBUS file server: it admits clients
// by J1939 source address, maps ISOBUS volume paths onto the host
// filesystem, and answers file-access requests (spec §4.7, §4.8).
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/isobusfs/isobusfs/internal/eventloop"
	"github.com/isobusfs/isobusfs/internal/isolog"
	"github.com/isobusfs/isobusfs/internal/server"
	"github.com/isobusfs/isobusfs/internal/transport"
	"github.com/isobusfs/isobusfs/internal/wire"
)

var version = "dev"

var flags serverFlags

var rootCmd = &cobra.Command{
	Use:     "isobusfsserver",
	Short:   "ISOBUS file server (ISO 11783-13)",
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(flags)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&flags.iface, "interface", "i", "can0", "CAN network interface")
	f.StringVarP(&flags.localAddr, "local-address", "a", "", "local J1939 source address, hex")
	f.StringVarP(&flags.localName, "local-name", "n", "", "local J1939 NAME, hex")
	f.IntVarP(&flags.logLevel, "log-level", "l", int(isolog.LevelInfo), "log level 0 (error) .. 4 (trace)")
	f.StringVarP(&flags.configPath, "config", "c", "isobusfsserver.conf", "volume configuration file (spec §6.3)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(f serverFlags) error {
	log := isolog.New(f.level(), "isobusfsserver")

	local, err := resolveAddress(f.localAddr, f.localName)
	if err != nil {
		return err
	}

	cfg, err := server.LoadConfig(f.configPath)
	if err != nil {
		return fmt.Errorf("isobusfsserver: %w", err)
	}

	bcastSock, err := transport.NewSocketCAN(f.iface)
	if err != nil {
		return fmt.Errorf("isobusfsserver: %w", err)
	}
	if err := bcastSock.Open(transport.RoleServerBroadcast); err != nil {
		return fmt.Errorf("isobusfsserver: open broadcast socket: %w", err)
	}
	if err := bcastSock.Bind(local); err != nil {
		return fmt.Errorf("isobusfsserver: bind broadcast socket: %w", err)
	}
	if err := bcastSock.SetBroadcast(true); err != nil {
		return fmt.Errorf("isobusfsserver: set broadcast: %w", err)
	}
	defer bcastSock.Close()

	recvSock, err := transport.NewSocketCAN(f.iface)
	if err != nil {
		return fmt.Errorf("isobusfsserver: %w", err)
	}
	if err := recvSock.Open(transport.RoleServerReceive); err != nil {
		return fmt.Errorf("isobusfsserver: open receive socket: %w", err)
	}
	if err := recvSock.Bind(local); err != nil {
		return fmt.Errorf("isobusfsserver: bind receive socket: %w", err)
	}
	defer recvSock.Close()

	handles := server.NewHandleTable()
	volumes := server.NewVolumeTable(cfg.Volumes)
	newReply := func() (transport.Transport, error) { return transport.NewSocketCAN(f.iface) }
	sessions := server.NewSessionTable(log, local, newReply, handles, volumes)

	loop := eventloop.New(log, nil)

	beacon := server.NewBeacon(loop, func(status wire.FSStatus) {
		if err := bcastSock.SendTo(transport.Address{Addr: transport.AddrUnset}, status.Encode()); err != nil {
			log.Warnf("isobusfsserver: beacon send failed: %v", err)
		}
	}, func() byte { return byte(handles.OpenCount()) })

	dispatcher := server.NewDispatcher(log, cfg, sessions, handles, volumes, beacon)

	loop.RegisterSocket(recvSock, func(d transport.Datagram) {
		dispatcher.Dispatch(time.Now(), d.Peer, d.Data)
	})
	loop.Every(time.Second, dispatcher.Sweep)
	beacon.Start(time.Now(), 0)

	log.Infof("isobusfsserver: serving %d volume(s) on %s", len(cfg.Volumes), f.iface)
	return loop.Run()
}
