// Package repl implements the client's interactive command surface
// (spec §6.2): help, exit/quit, dmesg, selftest, ls[-l], ll, cd, pwd,
// get. It is a thin collaborator per spec §1 ("CLI parsing, logging
// backend, and interactive REPL ... feeds command strings") — all it
// does is parse a line, drive the matching command pipeline, and print
// the result; line reading itself lives in cmd/isobusfsclient, which
// reads a non-blocking stdin and feeds lines to HandleLine via the
// event loop's registered stdin poll (spec §4.3).
package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/isobusfs/isobusfs/internal/client"
	"github.com/isobusfs/isobusfs/internal/client/pipelines"
	"github.com/isobusfs/isobusfs/internal/isoerrors"
	"github.com/isobusfs/isobusfs/internal/isolog"
	"github.com/isobusfs/isobusfs/internal/selftest"
	"github.com/isobusfs/isobusfs/internal/wire"
)

// REPL parses and runs one interactive command at a time against e.
// Only one command pipeline may be in flight (spec §4.6: "substates are
// strictly serial"); HandleLine rejects a new command while busy rather
// than queuing it.
type REPL struct {
	log     *isolog.Logger
	e       *client.Engine
	out     io.Writer
	stop    func()
	harness func() *selftest.Harness // nil disables the `selftest` command

	busy bool
}

// New builds a REPL. stop is called on exit/quit (typically
// eventloop.Loop.Stop); harness lazily builds a selftest.Harness bound
// to the same engine/loop, or is nil to disable the `selftest` command.
func New(log *isolog.Logger, e *client.Engine, out io.Writer, stop func(), harness func() *selftest.Harness) *REPL {
	if log == nil {
		log = isolog.Nop()
	}
	return &REPL{log: log, e: e, out: out, stop: stop, harness: harness}
}

// Prompt writes the interactive prompt, suppressed while a command is
// in flight.
func (r *REPL) Prompt() {
	if r.busy {
		return
	}
	fmt.Fprint(r.out, "> ")
}

// HandleLine parses and executes one line of interactive input (spec
// §6.2's command grammar).
func (r *REPL) HandleLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		r.Prompt()
		return
	}
	if r.busy {
		fmt.Fprintln(r.out, "busy: a command is still awaiting a response")
		return
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		r.help()
		r.Prompt()
	case "exit", "quit":
		if r.stop != nil {
			r.stop()
		}
	case "dmesg":
		r.dmesg()
		r.Prompt()
	case "selftest":
		r.runSelftest()
		r.Prompt()
	case "cd":
		r.cd(args)
	case "pwd":
		r.pwd()
	case "ls":
		r.ls(args, false)
	case "ll":
		r.ls(args, true)
	case "get":
		r.get(args)
	default:
		fmt.Fprintf(r.out, "unknown command %q (try 'help')\n", cmd)
		r.Prompt()
	}
}

func (r *REPL) help() {
	fmt.Fprint(r.out, `commands:
  help                   this text
  exit | quit            disconnect and exit
  dmesg                  dump the recent transmit/receive log
  selftest               run the built-in self-test suite
  ls [-l] [path]         list a directory (path defaults to .)
  ll [path]              alias for ls -l
  cd [path]              change the current directory
  pwd                    print the current directory
  get <remote> [local]   download a remote file
`)
}

func (r *REPL) dmesg() {
	tx, rx := r.e.TXLog(), r.e.RXLog()
	if len(tx) == 0 && len(rx) == 0 {
		fmt.Fprintln(r.out, "dmesg: log is empty")
		return
	}
	for _, entry := range tx {
		fmt.Fprintf(r.out, "%s  TX  % x\n", entry.At.Format("15:04:05.000"), entry.Data)
	}
	for _, entry := range rx {
		fmt.Fprintf(r.out, "%s  RX  % x\n", entry.At.Format("15:04:05.000"), entry.Data)
	}
}

func (r *REPL) runSelftest() {
	if r.harness == nil {
		fmt.Fprintln(r.out, "selftest: not available on this connection")
		return
	}
	h := r.harness()
	for _, res := range h.Run() {
		status := "PASS"
		if !res.Pass {
			status = "FAIL"
		}
		if res.Err != nil {
			fmt.Fprintf(r.out, "[%s] %-20s %v\n", status, res.Name, res.Err)
		} else {
			fmt.Fprintf(r.out, "[%s] %s\n", status, res.Name)
		}
	}
}

// fail prints the §7 "Error: <what>, error code: <n>" form, with the
// ISO 11783-13 mnemonic appended when known.
func (r *REPL) fail(op string, err error) {
	code := isoerrors.CodeOf(err)
	if m := code.Mnemonic(); m != "" {
		fmt.Fprintf(r.out, "Error: %s, error code: %d (%s)\n", op, code, m)
		return
	}
	fmt.Fprintf(r.out, "Error: %s, error code: %d\n", op, code)
}

func (r *REPL) cd(args []string) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	r.busy = true
	if err := pipelines.ChangeDir(r.e, path, func(err error) {
		r.busy = false
		if err != nil {
			r.fail("cd", err)
		}
		r.Prompt()
	}); err != nil {
		r.busy = false
		r.fail("cd", err)
		r.Prompt()
	}
}

func (r *REPL) pwd() {
	r.busy = true
	if err := pipelines.PrintWorkingDir(r.e, func(path string, err error) {
		r.busy = false
		if err != nil {
			r.fail("pwd", err)
		} else {
			fmt.Fprintln(r.out, path)
		}
		r.Prompt()
	}); err != nil {
		r.busy = false
		r.fail("pwd", err)
		r.Prompt()
	}
}

func (r *REPL) ls(args []string, long bool) {
	path := "."
	for _, a := range args {
		if a == "-l" {
			long = true
			continue
		}
		path = a
	}
	r.busy = true
	if err := pipelines.ListDir(r.e, path, func(entries []wire.DirEntry, err error) {
		r.busy = false
		if err != nil {
			r.fail("ls", err)
			r.Prompt()
			return
		}
		r.printEntries(entries, long)
		r.Prompt()
	}); err != nil {
		r.busy = false
		r.fail("ls", err)
		r.Prompt()
	}
}

func (r *REPL) printEntries(entries []wire.DirEntry, long bool) {
	if !long {
		for _, e := range entries {
			fmt.Fprintln(r.out, e.Name)
		}
		return
	}

	nameWidth := 0
	for _, e := range entries {
		if w := runewidth.StringWidth(e.Name); w > nameWidth {
			nameWidth = w
		}
	}
	for _, e := range entries {
		kind := byte('-')
		if e.IsDir() {
			kind = 'd'
		}
		pad := nameWidth - runewidth.StringWidth(e.Name)
		fmt.Fprintf(r.out, "%c %10d %s %s%s\n",
			kind, e.Size, e.MTime.Format("2006-01-02 15:04:05"), e.Name, strings.Repeat(" ", pad))
	}
}

func (r *REPL) get(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(r.out, "usage: get <remote> [local]")
		r.Prompt()
		return
	}
	remote := args[0]
	local := remote
	if len(args) > 1 {
		local = args[1]
	} else if i := strings.LastIndexByte(remote, '\\'); i >= 0 {
		local = remote[i+1:]
	}

	r.busy = true
	if err := pipelines.Get(r.e, remote, local, func(err error) {
		r.busy = false
		if err != nil {
			r.fail("get", err)
		} else {
			fmt.Fprintf(r.out, "downloaded %s -> %s\n", remote, local)
		}
		r.Prompt()
	}); err != nil {
		r.busy = false
		r.fail("get", err)
		r.Prompt()
	}
}
