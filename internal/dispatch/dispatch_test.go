package dispatch

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"lifty/internal/wire"
)

func TestReadStdinUppercasesAndTrims(t *testing.T) {
	ctx := context.Background()
	out := make(chan Item, 8)
	r := strings.NewReader("  mu\n\ns\nR\n")

	if err := ReadStdin(ctx, r, out); err != nil {
		t.Fatalf("ReadStdin returned %v", err)
	}
	close(out)

	var got []Item
	for item := range out {
		got = append(got, item)
	}

	if len(got) != 3 {
		t.Fatalf("got %d items, want 3: %+v", len(got), got)
	}
	if got[0].Cmd.Kind != wire.CmdMoveUp || got[0].Source != SourceTerminal {
		t.Errorf("item[0] = %+v, want MU/terminal", got[0])
	}
	if got[1].Cmd.Kind != wire.CmdStop {
		t.Errorf("item[1] = %+v, want S", got[1])
	}
	if got[2].Cmd.Kind != wire.CmdReset {
		t.Errorf("item[2] = %+v, want R", got[2])
	}
}

func TestReadStdinReportsUnrecognized(t *testing.T) {
	ctx := context.Background()
	out := make(chan Item, 4)
	r := strings.NewReader("NONSENSE\n")

	if err := ReadStdin(ctx, r, out); err != nil {
		t.Fatalf("ReadStdin returned %v", err)
	}
	close(out)

	item := <-out
	if item.Err == nil {
		t.Fatal("expected a parse error for NONSENSE")
	}
	if item.Raw != "NONSENSE" {
		t.Errorf("raw = %q, want NONSENSE", item.Raw)
	}
}

func TestReadStdinStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan Item)
	pr, pw := io.Pipe()
	defer pw.Close()

	done := make(chan error, 1)
	go func() { done <- ReadStdin(ctx, pr, out) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ReadStdin returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("ReadStdin did not return after context cancellation")
	}
}

func TestListenUDPParsesDatagrams(t *testing.T) {
	serverAddr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	conn, err := net.ListenUDP("udp", serverAddr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	client, err := net.DialUDP("udp", nil, conn.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan Item, 4)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go ListenUDP(ctx, conn, logger, out)

	if _, err := client.Write([]byte("P3")); err != nil {
		t.Fatal(err)
	}

	select {
	case item := <-out:
		if item.Source != SourceUDP || item.Cmd.Kind != wire.CmdPanel || item.Cmd.Floor != 3 {
			t.Errorf("item = %+v, want P3/udp", item)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for udp item")
	}
}

func TestListenUDPRejectsInvalidUTF8(t *testing.T) {
	serverAddr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	conn, err := net.ListenUDP("udp", serverAddr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	client, err := net.DialUDP("udp", nil, conn.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan Item, 4)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go ListenUDP(ctx, conn, logger, out)

	if _, err := client.Write([]byte{0xff, 0xfe, 0xfd}); err != nil {
		t.Fatal(err)
	}

	select {
	case item := <-out:
		if item.Err == nil {
			t.Errorf("item = %+v, want a parse error for invalid utf8", item)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for udp item")
	}
}
