package emit

import (
	"fmt"
	"io"
	"log/slog"
	"net"

	"lifty/internal/hardware"
	"lifty/internal/wire"
)

// Emitter transmits events as UDP datagrams, writes status lines to the
// terminal, and mirrors both to the diagnostics broadcaster, per §4.4.
// UDP send errors are reported once and otherwise swallowed; the simulator
// never blocks waiting for a consumer on either endpoint.
type Emitter struct {
	eventConn *net.UDPConn
	terminal  io.Writer
	hub       *Hub
	logger    *slog.Logger
	sendFail  bool // a UDP send error has already been reported
}

// NewEmitter constructs an Emitter. eventConn may be nil, in which case
// events are sent nowhere but the diagnostics broadcaster (when hub is
// non-nil); events are never written to the terminal.
func NewEmitter(eventConn *net.UDPConn, terminal io.Writer, hub *Hub, logger *slog.Logger) *Emitter {
	return &Emitter{eventConn: eventConn, terminal: terminal, hub: hub, logger: logger}
}

// Event serializes and transmits a single physical event (§6).
func (e *Emitter) Event(ev wire.Event) {
	payload := ev.Encode()
	if e.eventConn != nil {
		if _, err := e.eventConn.Write([]byte(payload)); err != nil && !e.sendFail {
			e.sendFail = true
			e.logger.Error("udp send failed", "event", payload, "error", err)
		}
	}
	if e.hub != nil {
		e.hub.Broadcast(fmt.Sprintf(`{"type":"event","payload":%q}`, payload))
	}
}

// Status writes the terminal status line for the given snapshot (§4.4,
// §4.6: "after every state-changing command or timer firing").
func (e *Emitter) Status(s hardware.Snapshot) {
	line := RenderStatus(s)
	fmt.Fprintln(e.terminal, line)
	if e.hub != nil {
		e.hub.Broadcast(fmt.Sprintf(`{"type":"status","payload":%q}`, line))
	}
}

// Crash writes the one-time CRASH! line that precedes the next status
// line after a safety-interlock violation (§6, §7).
func (e *Emitter) Crash(reason string) {
	line := RenderCrash(reason)
	fmt.Fprintln(e.terminal, line)
	if e.hub != nil {
		e.hub.Broadcast(fmt.Sprintf(`{"type":"crash","payload":%q}`, reason))
	}
}

// Unrecognized writes the one-line diagnostic for an unparseable command,
// per §7 category 2.
func (e *Emitter) Unrecognized(raw string) {
	fmt.Fprintf(e.terminal, "unknown command: %s\n", raw)
}

// Received echoes a UDP-sourced command on the terminal prefixed with
// "recv: ", per §4.3.
func (e *Emitter) Received(raw string) {
	fmt.Fprintf(e.terminal, "recv: %s\n", raw)
}
