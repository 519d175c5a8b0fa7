// Package interrupt owns the interrupt descriptor table, its two-phase
// bring-up (skeleton, then timer-enabled), and the legacy 8259 PIC remap.
//
// Grounded on the teacher's gic_qemu.go / exceptions.go, which register
// handlers per-IRQ into a table and install a shared low-level entry
// stub; generalized from the GICv2 distributor model to the x86 256-entry
// IDT + PIC pair spec.md calls for. The gate-encoding logic below is pure
// (no hardware access) so it is fully unit-testable; Load() is the only
// function in this file that reaches real hardware (LIDT), via
// internal/hal. The PIC helpers in pic.go do port I/O.
package interrupt

import (
	"encoding/binary"
	"unsafe"

	"github.com/escobarmartinezsergio7-hub/go-os-core/internal/hal"
)

func tableAddr(t *Table) uintptr    { return uintptr(unsafe.Pointer(&t.gates[0])) }
func bufAddr(b *[10]byte) uintptr   { return uintptr(unsafe.Pointer(&b[0])) }

const (
	NumVectors = 256

	VectorTimer     = 32
	VectorSyscall80 = 0x80
	VectorRetTramp  = 0x81

	// Gate type/attribute bytes. Present, ring 0, 64-bit interrupt gate.
	gateKernelInterrupt = 0x8E
	// Present, ring 3, 64-bit interrupt gate — callable from user mode.
	gateUserInterrupt = 0xEE
)

// Gate is one 16-byte IDT entry, laid out exactly as the CPU expects it
// (offset low/mid/high split around the selector and attribute bytes).
type Gate struct {
	offsetLow  uint16
	selector   uint16
	ist        uint8
	typeAttr   uint8
	offsetMid  uint16
	offsetHigh uint32
	reserved   uint32
}

// NewGate encodes a gate pointing at handlerAddr, using codeSelector and
// the given type-attribute byte.
func NewGate(handlerAddr uint64, codeSelector uint16, typeAttr uint8) Gate {
	return Gate{
		offsetLow:  uint16(handlerAddr & 0xFFFF),
		selector:   codeSelector,
		ist:        0,
		typeAttr:   typeAttr,
		offsetMid:  uint16((handlerAddr >> 16) & 0xFFFF),
		offsetHigh: uint32(handlerAddr >> 32),
	}
}

// HandlerAddr decodes the gate's target address, for tests/diagnostics.
func (g Gate) HandlerAddr() uint64 {
	return uint64(g.offsetLow) | uint64(g.offsetMid)<<16 | uint64(g.offsetHigh)<<32
}

// CallableFromRing3 reports whether the gate's DPL field permits a ring-3
// INT instruction to reach it.
func (g Gate) CallableFromRing3() bool {
	const dplMask = 0x60
	return g.typeAttr&dplMask == dplMask
}

// Table is the 256-entry IDT.
type Table struct {
	gates [NumVectors]Gate
}

// InitSkeleton fills every vector with a halt-forever handler using
// codeSelector, per spec.md §4.4's skeleton phase.
func (t *Table) InitSkeleton(haltHandlerAddr uint64, codeSelector uint16) {
	g := NewGate(haltHandlerAddr, codeSelector, gateKernelInterrupt)
	for i := range t.gates {
		t.gates[i] = g
	}
}

// InstallTimerVector overwrites vector 32 with the timer IRQ stub.
func (t *Table) InstallTimerVector(stubAddr uint64, codeSelector uint16) {
	t.gates[VectorTimer] = NewGate(stubAddr, codeSelector, gateKernelInterrupt)
}

// InstallUserGates installs the two ring-3-callable vectors: 0x80 (the
// software-trap syscall fallback) and 0x81 (the ring-3 smoke test's
// return trampoline).
func (t *Table) InstallUserGates(syscall80Addr, retTrampAddr uint64, codeSelector uint16) {
	t.gates[VectorSyscall80] = NewGate(syscall80Addr, codeSelector, gateUserInterrupt)
	t.gates[VectorRetTramp] = NewGate(retTrampAddr, codeSelector, gateUserInterrupt)
}

// Gate returns a copy of the gate installed at vector, for tests.
func (t *Table) Gate(vector int) Gate { return t.gates[vector] }

// pseudoDescriptor packs the (limit, base) pair LIDT/LGDT expect.
func (t *Table) pseudoDescriptor() [10]byte {
	var buf [10]byte
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(t.gates)*16-1))
	binary.LittleEndian.PutUint64(buf[2:10], uint64(tableAddr(t)))
	return buf
}

// Load installs the table into the CPU via LIDT. The only function in
// this file that touches real hardware.
func (t *Table) Load() {
	buf := t.pseudoDescriptor()
	hal.Lidt(uintptr(bufAddr(&buf)))
}
