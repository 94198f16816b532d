// Package hardware implements the car's motor and door state machines, the
// button/indicator lamp state, and the safety interlocks that crash the
// simulator on physically unsafe commands. It is the sole mutator of the
// hardware state (§4.1/§4.2 of the specification); everything else in Lifty
// only reads a Snapshot of it.
package hardware

import (
	"log/slog"
	"sync"
	"time"

	"lifty/internal/clock"
	"lifty/internal/wire"
)

// Building constants (§3).
const (
	MinFloor = 1
	MaxFloor = 5

	TFloor = 3 * time.Second
	TOpen  = 2 * time.Second
	TClose = 2 * time.Second
)

// Crash reasons (§4.2.2). Kept as named constants, not inlined strings, so
// tests can assert on them without restating the prose.
const (
	ReasonDoorOpenWhileMoving   = "Moving with the door open"
	ReasonAlreadyMoving         = "Already moving"
	ReasonHitRoof               = "Hit the roof!"
	ReasonHitBasement           = "Hit the basement!"
	ReasonStopWhileIdle         = "Stop while idle"
	ReasonDoorAlreadyOpen       = "door already open"
	ReasonDoorAlreadyClosed     = "door already closed"
	ReasonDoorWhileMoving       = "door command while moving"
	ReasonDoorWhileClosing      = "door command while door is closing"
	ReasonDoorWhileOpening      = "door command while door is opening"
	ReasonNoUpIndicatorTop      = "No up indicator light on top floor"
	ReasonNoDownIndicatorBottom = "No down indicator light on bottom floor"
)

// MotorState is one of the four motor modes in §3.
type MotorState int

const (
	MotorIdle MotorState = iota
	MotorUp
	MotorDown
	MotorStopping
)

func (m MotorState) String() string {
	switch m {
	case MotorIdle:
		return "Idle"
	case MotorUp:
		return "Up"
	case MotorDown:
		return "Down"
	case MotorStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// DoorState is one of the four door modes in §3.
type DoorState int

const (
	DoorClosed DoorState = iota
	DoorOpening
	DoorOpen
	DoorClosing
)

func (d DoorState) String() string {
	switch d {
	case DoorClosed:
		return "Closed"
	case DoorOpening:
		return "Opening"
	case DoorOpen:
		return "Open"
	case DoorClosing:
		return "Closing"
	default:
		return "Unknown"
	}
}

// IndicatorDir is the direction lamp state for a single floor.
type IndicatorDir int

const (
	IndicatorNone IndicatorDir = iota
	IndicatorUp
	IndicatorDown
)

// Car is the authoritative hardware state and the sole place that mutates
// it. All mutating methods (Apply, TimerFired) are meant to be called from
// a single serialized consumer (the main loop, §4.6); the mutex exists so
// that a Snapshot taken from any goroutine never observes a half-applied
// transition.
type Car struct {
	mu     sync.Mutex
	clk    clock.Clock
	logger *slog.Logger

	// notifyTimer is invoked from the clock's own goroutine when a
	// scheduled callback survives cancellation long enough to fire. It is
	// expected to hand the channel off to the main loop's queue rather
	// than call back into Car directly, so that a timer firing can never
	// race a command in flight.
	notifyTimer func(clock.Channel)

	events chan wire.Event

	floor       int
	motor       MotorState
	dir         MotorState // last commanded travel direction (Up/Down); survives the Up/Down->Stopping transition so floorArrived still knows which way to move
	door        DoorState
	panel       map[int]bool
	hallUp      map[int]bool
	hallDown    map[int]bool
	indicator   map[int]IndicatorDir
	crashed     bool
	crashReason string
	initialized bool
}

// New constructs a Car in its pre-reset INIT form (§3 Lifecycles).
func New(clk clock.Clock, logger *slog.Logger, notifyTimer func(clock.Channel)) *Car {
	return &Car{
		clk:         clk,
		logger:      logger,
		notifyTimer: notifyTimer,
		events:      make(chan wire.Event, 64),
		floor:       MinFloor,
		motor:       MotorIdle,
		door:        DoorClosed,
		panel:       make(map[int]bool),
		hallUp:      make(map[int]bool),
		hallDown:    make(map[int]bool),
		indicator:   make(map[int]IndicatorDir),
	}
}

// Events returns the channel physical events are published to. The caller
// is expected to drain it synchronously after each Apply/TimerFired call so
// that events are transmitted before the next work item is processed
// (§5 Ordering guarantees).
func (c *Car) Events() <-chan wire.Event {
	return c.events
}

func (c *Car) publish(ev wire.Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event channel saturated, dropping event", "event", ev.Encode())
	}
}

// Snapshot returns a coherent, independently-owned copy of the hardware
// state for rendering or diagnostics. Safe to call concurrently with Apply.
func (c *Car) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		Floor:       c.floor,
		Motor:       c.motor,
		Door:        c.door,
		Panel:       copySet(c.panel),
		HallUp:      copySet(c.hallUp),
		HallDown:    copySet(c.hallDown),
		Indicator:   copyIndicator(c.indicator),
		Crashed:     c.crashed,
		CrashReason: c.crashReason,
		Initialized: c.initialized,
	}
}

func copySet(m map[int]bool) map[int]bool {
	out := make(map[int]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyIndicator(m map[int]IndicatorDir) map[int]IndicatorDir {
	out := make(map[int]IndicatorDir, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Apply performs the precondition check, mutation, timer scheduling, and
// event emission for a single command (§4.2). It must be called from the
// single serialized work-item consumer.
func (c *Car) Apply(cmd wire.Command) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cmd.Kind == wire.CmdReset {
		c.reset()
		return
	}

	// A crashed car accepts nothing but R; an unreset car accepts nothing
	// at all (original_source/lifty.rs handle_command: status == Initial
	// is a no-op for every command but R).
	if c.crashed || !c.initialized {
		return
	}

	switch cmd.Kind {
	case wire.CmdPanel:
		c.panel[cmd.Floor] = true
		c.publish(wire.Event{Kind: wire.EvtPanel, Floor: cmd.Floor})
	case wire.CmdHallUp:
		c.hallUp[cmd.Floor] = true
		c.publish(wire.Event{Kind: wire.EvtHallUp, Floor: cmd.Floor})
	case wire.CmdHallDown:
		c.hallDown[cmd.Floor] = true
		c.publish(wire.Event{Kind: wire.EvtHallDown, Floor: cmd.Floor})
	case wire.CmdClearPanel:
		delete(c.panel, cmd.Floor)
	case wire.CmdClearHallUp:
		delete(c.hallUp, cmd.Floor)
	case wire.CmdClearHallDown:
		delete(c.hallDown, cmd.Floor)
	case wire.CmdIndicatorUp:
		c.setIndicatorUp(cmd.Floor)
	case wire.CmdIndicatorDown:
		c.setIndicatorDown(cmd.Floor)
	case wire.CmdClearIndicator:
		delete(c.indicator, cmd.Floor)
	case wire.CmdMoveUp:
		c.startMove(MotorUp)
	case wire.CmdMoveDown:
		c.startMove(MotorDown)
	case wire.CmdStop:
		c.requestStop()
	case wire.CmdDoorOpen:
		c.openDoor()
	case wire.CmdDoorClose:
		c.closeDoor()
	}
}

// TimerFired applies the consequences of a floor-travel or door timer
// firing (§4.2.3/§4.2.4). It must be called from the same serialized
// consumer as Apply, only for a channel the clock has confirmed is still
// live (the clock's generation check already filters out stale fires).
func (c *Car) TimerFired(ch clock.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.crashed {
		return
	}

	switch ch {
	case clock.ChannelMotor:
		c.floorArrived()
	case clock.ChannelDoor:
		c.doorTimerFired()
	}
}

func (c *Car) setIndicatorUp(floor int) {
	if floor == MaxFloor {
		c.crash(ReasonNoUpIndicatorTop)
		return
	}
	c.indicator[floor] = IndicatorUp
}

func (c *Car) setIndicatorDown(floor int) {
	if floor == MinFloor {
		c.crash(ReasonNoDownIndicatorBottom)
		return
	}
	c.indicator[floor] = IndicatorDown
}

func (c *Car) startMove(dir MotorState) {
	if c.door != DoorClosed {
		c.crash(ReasonDoorOpenWhileMoving)
		return
	}
	if c.motor != MotorIdle {
		c.crash(ReasonAlreadyMoving)
		return
	}
	if dir == MotorUp && c.floor == MaxFloor {
		c.crash(ReasonHitRoof)
		return
	}
	if dir == MotorDown && c.floor == MinFloor {
		c.crash(ReasonHitBasement)
		return
	}
	c.motor = dir
	c.dir = dir
	c.scheduleFloorTimer()
}

func (c *Car) scheduleFloorTimer() {
	c.clk.Schedule(clock.ChannelMotor, TFloor, func() { c.notifyTimer(clock.ChannelMotor) })
}

func (c *Car) requestStop() {
	switch c.motor {
	case MotorUp, MotorDown:
		c.motor = MotorStopping
	case MotorStopping:
		// Re-entrant stop: a no-op, not a crash (§9 Open question).
	case MotorIdle:
		c.crash(ReasonStopWhileIdle)
	}
}

func (c *Car) openDoor() {
	switch c.door {
	case DoorOpening, DoorOpen:
		c.crash(ReasonDoorAlreadyOpen)
		return
	case DoorClosing:
		c.crash(ReasonDoorWhileClosing)
		return
	}
	if c.motor != MotorIdle {
		c.crash(ReasonDoorWhileMoving)
		return
	}
	c.door = DoorOpening
	c.clk.Schedule(clock.ChannelDoor, TOpen, func() { c.notifyTimer(clock.ChannelDoor) })
}

func (c *Car) closeDoor() {
	switch c.door {
	case DoorClosing, DoorClosed:
		c.crash(ReasonDoorAlreadyClosed)
		return
	case DoorOpening:
		c.crash(ReasonDoorWhileOpening)
		return
	}
	if c.motor != MotorIdle {
		c.crash(ReasonDoorWhileMoving)
		return
	}
	c.door = DoorClosing
	c.clk.Schedule(clock.ChannelDoor, TClose, func() { c.notifyTimer(clock.ChannelDoor) })
}

func (c *Car) floorArrived() {
	var next int
	switch c.dir {
	case MotorUp:
		next = c.floor + 1
	case MotorDown:
		next = c.floor - 1
	default:
		return
	}

	if next > MaxFloor {
		c.crash(ReasonHitRoof)
		return
	}
	if next < MinFloor {
		c.crash(ReasonHitBasement)
		return
	}

	c.floor = next
	c.publish(wire.Event{Kind: wire.EvtFloor, Floor: c.floor})

	if c.motor == MotorStopping {
		c.motor = MotorIdle
		c.publish(wire.Event{Kind: wire.EvtStopped, Floor: c.floor})
		return
	}
	c.scheduleFloorTimer()
}

func (c *Car) doorTimerFired() {
	switch c.door {
	case DoorOpening:
		c.door = DoorOpen
		c.publish(wire.Event{Kind: wire.EvtDoorOpen, Floor: c.floor})
	case DoorClosing:
		c.door = DoorClosed
		c.publish(wire.Event{Kind: wire.EvtDoorClosed, Floor: c.floor})
	}
}

func (c *Car) crash(reason string) {
	c.crashed = true
	c.crashReason = reason
	c.logger.Error("crash", "reason", reason)
}

func (c *Car) reset() {
	c.clk.Cancel(clock.ChannelMotor)
	c.clk.Cancel(clock.ChannelDoor)

	c.floor = MinFloor
	c.motor = MotorIdle
	c.door = DoorClosed
	c.panel = make(map[int]bool)
	c.hallUp = make(map[int]bool)
	c.hallDown = make(map[int]bool)
	c.indicator = make(map[int]IndicatorDir)
	c.crashed = false
	c.crashReason = ""
	c.initialized = true

	c.logger.Info("reset")
}
