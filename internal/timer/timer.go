// Package timer is the monotonic tick source: a polled counter advanced
// by the runtime loop, or an interrupt-driven counter advanced from the
// timer IRQ stub, plus the PIT divisor programming that drives the
// latter. Grounded on the teacher's timer_qemu.go (same
// read-ctl/write-ctl/init/interrupt-handler shape), generalized from the
// ARM generic timer's per-core system registers to the legacy x86 PIT +
// PIC pair spec.md calls for.
package timer

import (
	"sync/atomic"

	"github.com/escobarmartinezsergio7-hub/go-os-core/internal/hal"
)

const (
	pitBaseFrequencyHz = 1193182
	pitCommandByte     = 0x36 // channel 0, mode 3, lobyte/hibyte, binary

	MinHz = 18
	MaxHz = 1000
)

// Mode selects the tick source.
type Mode int

const (
	ModePolling Mode = iota
	ModeInterrupt
)

// Core is the tick state: two atomics, (ticks, tick_microseconds), plus
// the configured mode. Safe for concurrent access from both the runtime
// loop and the timer IRQ stub.
type Core struct {
	ticks           uint64
	tickMicroseconds uint64
	mode            atomic.Int32
}

// New returns a zero Core: polling mode, with no tick cadence set until
// InitPolling or InitInterrupt runs.
func New() *Core {
	return &Core{}
}

// InitPolling configures the core for polling mode with a fixed tick
// cadence in milliseconds; on_tick() is expected to be driven by the
// runtime loop thereafter.
func (c *Core) InitPolling(tickMs uint64) {
	c.mode.Store(int32(ModePolling))
	atomic.StoreUint64(&c.tickMicroseconds, tickMs*1000)
	atomic.StoreUint64(&c.ticks, 0)
}

// InitInterrupt configures the core for interrupt-driven mode and
// programs the PIT to the given rate; the returned value is what
// tick_microseconds is set to, matching snapshot()'s contract.
func (c *Core) InitInterrupt(hz uint32) uint64 {
	c.mode.Store(int32(ModeInterrupt))
	actualHz := ConfigurePIT(hz)
	usec := uint64(1_000_000) / uint64(actualHz)
	atomic.StoreUint64(&c.tickMicroseconds, usec)
	atomic.StoreUint64(&c.ticks, 0)
	return usec
}

// Mode reports the currently configured tick source.
func (c *Core) Mode() Mode { return Mode(c.mode.Load()) }

// OnTick advances the counter by one and returns the new value. Used in
// polling mode from the runtime loop; harmless (but unusual) to call in
// interrupt mode.
func (c *Core) OnTick() uint64 {
	return atomic.AddUint64(&c.ticks, 1)
}

// OnInterruptTick is called from the timer IRQ stub (assembly ->
// asmstub.TimerTickHandler, set by cmd/kernel -> here) to advance the
// counter in interrupt mode.
func (c *Core) OnInterruptTick() {
	atomic.AddUint64(&c.ticks, 1)
}

// Ticks returns the current tick count without advancing it.
func (c *Core) Ticks() uint64 {
	return atomic.LoadUint64(&c.ticks)
}

// Snapshot is a consistent read of both atomics plus the derived uptime.
type Snapshot struct {
	Ticks            uint64
	TickMicroseconds uint64
	UptimeMs         uint64
}

// Snapshot reads both atomics once and computes uptime with saturating
// multiplication, per spec.md §4.3.
func (c *Core) Snapshot() Snapshot {
	ticks := atomic.LoadUint64(&c.ticks)
	usec := atomic.LoadUint64(&c.tickMicroseconds)
	return Snapshot{
		Ticks:            ticks,
		TickMicroseconds: usec,
		UptimeMs:         saturatingMulDiv(ticks, usec, 1000),
	}
}

func saturatingMulDiv(a, b, div uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	// Detect overflow of a*b before it happens; saturate to max uint64.
	if a > (^uint64(0))/b {
		return ^uint64(0)
	}
	return (a * b) / div
}

// ClampHz clamps hz to the PIT's representable range [MinHz, MaxHz].
func ClampHz(hz uint32) uint32 {
	if hz < MinHz {
		return MinHz
	}
	if hz > MaxHz {
		return MaxHz
	}
	return hz
}

// pitDivisor computes the channel-0 reload value for an already-clamped
// rate. Pulled out of ConfigurePIT so the arithmetic is testable without
// touching real I/O ports.
func pitDivisor(hz uint32) uint16 {
	return uint16(pitBaseFrequencyHz / hz)
}

// ConfigurePIT clamps hz to [MinHz, MaxHz], programs the legacy PIT's
// channel 0 for that rate, and returns the clamped rate actually used.
func ConfigurePIT(hz uint32) uint32 {
	hz = ClampHz(hz)
	divisor := pitDivisor(hz)

	hal.Outb(hal.PortPITCommand, pitCommandByte)
	hal.Outb(hal.PortPITChannel0, uint8(divisor&0xFF))
	hal.Outb(hal.PortPITChannel0, uint8(divisor>>8))
	return hz
}
