// Command lifty simulates the hardware of a single elevator car: motor,
// door, panel and hall buttons, and indicator lights for a five-floor
// building. It speaks an ASCII command/event protocol over UDP and a
// human-readable status line over the terminal; see internal/wire for the
// grammar and internal/hardware for the state machine it drives.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"

	"golang.org/x/sync/errgroup"

	"lifty/internal/clock"
	"lifty/internal/dispatch"
	"lifty/internal/emit"
	"lifty/internal/hardware"
)

const (
	commandAddr = "127.0.0.1:10000"
	eventAddr   = "127.0.0.1:11000"
)

const banner = `Lifty elevator hardware simulator
floors 1-5. Reset with R before sending any other command.
`

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	fmt.Print(banner)

	cmdAddr, err := net.ResolveUDPAddr("udp", commandAddr)
	if err != nil {
		return fmt.Errorf("resolve command address: %w", err)
	}
	cmdConn, err := net.ListenUDP("udp", cmdAddr)
	if err != nil {
		return fmt.Errorf("bind command socket: %w", err)
	}
	defer cmdConn.Close()

	evtAddr, err := net.ResolveUDPAddr("udp", eventAddr)
	if err != nil {
		return fmt.Errorf("resolve event address: %w", err)
	}
	evtConn, err := net.DialUDP("udp", nil, evtAddr)
	if err != nil {
		return fmt.Errorf("dial event socket: %w", err)
	}
	defer evtConn.Close()

	hub := emit.NewHub(logger.With("component", "diagnostics"))
	go func() {
		if err := emit.ListenDiagnostics(emit.DiagnosticsAddr, hub); err != nil {
			logger.Warn("diagnostics listener stopped", "error", err)
		}
	}()

	emitter := emit.NewEmitter(evtConn, os.Stdout, hub, logger.With("component", "emitter"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	timerCh := make(chan clock.Channel, 4)
	clk := clock.NewReal()
	car := hardware.New(clk, logger.With("component", "hardware"), func(ch clock.Channel) {
		select {
		case timerCh <- ch:
		default:
			logger.Warn("timer channel saturated, dropping fire notification", "channel", ch)
		}
	})

	itemCh := make(chan dispatch.Item, 64)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		// Stdin EOF is the simulator's only clean shutdown signal (§4.6);
		// it cancels ctx itself rather than waiting for mainLoop to notice
		// a closed channel, since the UDP reader has no EOF of its own.
		defer cancel()
		return dispatch.ReadStdin(gctx, os.Stdin, itemCh)
	})
	group.Go(func() error {
		return dispatch.ListenUDP(gctx, cmdConn, logger.With("component", "dispatch"), itemCh)
	})

	mainLoop(gctx, car, emitter, itemCh, timerCh)
	cancel()

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// mainLoop is the single serialized consumer of terminal input, UDP input,
// and timer firings (§4.6). It returns when ctx is cancelled, which the
// stdin reader does on its own EOF.
func mainLoop(ctx context.Context, car *hardware.Car, emitter *emit.Emitter, itemCh <-chan dispatch.Item, timerCh <-chan clock.Channel) {
	wasCrashed := false

	report := func() {
		snap := car.Snapshot()
		if snap.Crashed && !wasCrashed {
			emitter.Crash(snap.CrashReason)
		}
		wasCrashed = snap.Crashed
		emitter.Status(snap)
	}

	drain := func() {
		for {
			select {
			case ev := <-car.Events():
				emitter.Event(ev)
			default:
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case item, ok := <-itemCh:
			if !ok {
				return
			}
			if item.Source == dispatch.SourceUDP {
				emitter.Received(item.Raw)
			}
			if item.Err != nil {
				emitter.Unrecognized(item.Raw)
				continue
			}
			car.Apply(item.Cmd)
			drain()
			report()

		case ch := <-timerCh:
			car.TimerFired(ch)
			drain()
			report()
		}
	}
}
