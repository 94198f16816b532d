// Package dispatch turns raw terminal lines and UDP datagrams into parsed
// wire.Command work items, tagged with where they came from, for the main
// loop to consume from a single channel (§4.6, §5).
package dispatch

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/ipv4"

	"lifty/internal/wire"
)

// Source identifies which reader produced an Item.
type Source int

const (
	SourceTerminal Source = iota
	SourceUDP
)

func (s Source) String() string {
	switch s {
	case SourceTerminal:
		return "terminal"
	case SourceUDP:
		return "udp"
	default:
		return "unknown"
	}
}

// Item is one unit of work for the main loop: either a successfully parsed
// command, or the raw text and the parse error, so the loop can log and
// discard it as "unrecognized" without crashing the hardware.
type Item struct {
	Source Source
	Raw    string
	Cmd    wire.Command
	Err    error
}

// ReadStdin reads newline-delimited terminal input, uppercases and trims it
// per the original implementation's convention for interactive typing
// (original_source/lifty.rs read_stdin), parses each non-empty line, and
// sends the result to out. It returns when ctx is cancelled or r reaches
// EOF; io.EOF is reported as a nil error, since that is the ordinary way a
// terminal session ends (§4.6 "clean shutdown on stdin EOF").
func ReadStdin(ctx context.Context, r io.Reader, out chan<- Item) error {
	// Scanning runs on its own goroutine so that a cancelled ctx ends
	// ReadStdin even while r is blocked in a read.
	scanner := bufio.NewScanner(r)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case text, ok := <-lines:
			if !ok {
				return scanner.Err()
			}
			line := strings.ToUpper(strings.TrimSpace(text))
			if line == "" {
				continue
			}
			send(ctx, out, SourceTerminal, line)
		}
	}
}

// ListenUDP reads datagrams from the command socket and sends parsed
// commands to out until ctx is cancelled or the connection is closed. UDP
// input is assumed to come from a programmatic control client, so, unlike
// terminal input, it is not uppercased; a payload that is not valid UTF-8
// is reported as unrecognized rather than passed to ParseCommand (§4.3).
//
// conn is wrapped in golang.org/x/net/ipv4 so the control message on each
// read exposes the sender's address even though the socket is bound to a
// single fixed loopback address; a datagram that didn't originate from
// 127.0.0.1 is dropped before it ever reaches ParseCommand, since the
// command port is not meant to be reachable off-host.
func ListenUDP(ctx context.Context, conn net.PacketConn, logger *slog.Logger, out chan<- Item) error {
	pconn := ipv4.NewPacketConn(conn)
	if err := pconn.SetControlMessage(ipv4.FlagSrc, true); err != nil {
		logger.Debug("control message flags unsupported on this platform", "error", err)
	}
	// A cancelled ctx expires the read deadline so a blocked ReadFrom returns.
	stop := context.AfterFunc(ctx, func() { conn.SetReadDeadline(time.Now()) })
	defer stop()

	buf := make([]byte, 512)
	for {
		n, cm, _, err := pconn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if cm != nil && !cm.Src.IsLoopback() {
			logger.Warn("dropping datagram from non-loopback source", "src", cm.Src)
			continue
		}

		payload := buf[:n]
		if !utf8.Valid(payload) {
			logger.Warn("dropping non-utf8 udp datagram")
			send(ctx, out, SourceUDP, "\x00")
			continue
		}
		raw := strings.TrimRight(string(payload), " \r\n\t")
		if raw == "" {
			continue
		}
		send(ctx, out, SourceUDP, raw)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func send(ctx context.Context, out chan<- Item, src Source, raw string) {
	cmd, err := wire.ParseCommand(raw)
	item := Item{Source: src, Raw: raw, Cmd: cmd, Err: err}
	select {
	case out <- item:
	case <-ctx.Done():
	}
}
