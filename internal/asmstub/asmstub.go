// Package asmstub declares the Plan 9 assembly primitives the kernel core
// needs and that cannot be expressed in Go: port I/O, MSR access, descriptor
// table loads, and the privileged instructions used by the privilege core
// and fast-syscall entry. Each declaration here is backed by a TEXT symbol
// in the sibling .s files; internal/hal wraps them by importing this
// package directly, mirroring the teacher's
// split between mazboot/asm and the register-accessor wrappers in
// timer_qemu.go.
package asmstub

// Inb reads one byte from I/O port.
func Inb(port uint16) uint8

// Inb2 issues two back-to-back IN instructions and returns the second
// result. Present because the hardware reference this core is modeled on
// does this for certain legacy ports (keyboard controller status reads);
// whether that is an intentional settle-time quirk or an accidental
// duplication in the original driver is an open question (see
// DESIGN.md / spec.md §9 open question (b)). Preserved rather than
// "fixed" so behavior matches the reference exactly.
func Inb2(port uint16) uint8

// Outb writes one byte to an I/O port.
func Outb(port uint16, value uint8)

// Inw reads one 16-bit word from an I/O port.
func Inw(port uint16) uint16

// Outw writes one 16-bit word to an I/O port.
func Outw(port uint16, value uint16)

// Inl reads one 32-bit dword from an I/O port.
func Inl(port uint16) uint32

// Outl writes one 32-bit dword to an I/O port.
func Outl(port uint16, value uint32)

// Rdmsr reads the model-specific register numbered ecx.
func Rdmsr(ecx uint32) uint64

// Wrmsr writes value to the model-specific register numbered ecx.
func Wrmsr(ecx uint32, value uint64)

// Lidt loads the interrupt descriptor table register from the 10-byte
// pseudo-descriptor at ptr (2-byte limit, 8-byte base).
func Lidt(ptr uintptr)

// Lgdt loads the global descriptor table register from the 10-byte
// pseudo-descriptor at ptr.
func Lgdt(ptr uintptr)

// Ltr loads the task register with the TSS selector sel.
func Ltr(sel uint16)

// ReloadSegments reloads CS/DS/ES/SS/FS/GS with the kernel selectors after
// a GDT reload, via a far-return trampoline.
func ReloadSegments(codeSel, dataSel uint16)

// Cpuid executes CPUID with eax=leaf, ecx=subleaf and returns
// (eax, ebx, ecx, edx).
func Cpuid(leaf, subleaf uint32) (uint32, uint32, uint32, uint32)

// HaltForever executes CLI; HLT in a loop and never returns. Installed as
// the skeleton handler for every IDT vector before real handlers exist.
func HaltForever()

// IretqToUser builds and executes an IRETQ to a ring-3 frame described by
// (rip, cs, rflags, rsp, ss), leaving kernel context. No Go code in this
// module calls it.
func IretqToUser(rip, cs, rflags, rsp, ss uintptr)

// ResumeUserContext restores a previously captured ring-3 register
// snapshot and re-enters via IRETQ. No Go code in this module calls it.
func ResumeUserContext(ctx uintptr)

// WriteFSBase writes the FS-base MSR shadow, used to set a thread-local
// base before entering or resuming a foreign-ABI slice.
func WriteFSBase(base uint64)

// Syscall64 executes the SYSCALL instruction with the given argument
// registers and returns rax. No Go code in this module calls it; ring-3
// code reaches the kernel via the assembled syscall entry stub, not
// through this Go-level wrapper.
func Syscall64(id, a0, a1, a2, a3, a4, a5 uint64) uint64
