package privilege

import "github.com/escobarmartinezsergio7-hub/go-os-core/internal/hal"

// SyscallEntry is the set of values phase 2->3 programs into the
// fast-syscall MSRs: STAR carries the selector pairs SYSCALL/SYSRET use,
// LSTAR is the entry point, FMASK is the RFLAGS bits cleared on entry.
type SyscallEntry struct {
	EntryAddr  uint64
	ClearFlags uint64 // typically just the interrupt-enable flag
}

// starValue packs STAR's selector fields: bits 47:32 hold the kernel CS
// used on entry (kernel SS is implicitly CS+8); bits 63:48 hold the
// selector SYSRET reconstructs user CS/SS from (user SS = that value+8,
// user CS = that value+16, hence SelUserData sitting at user-code-8).
func starValue(kernelCS, userCSBase uint16) uint64 {
	return uint64(kernelCS)<<32 | uint64(userCSBase)<<48
}

// ProgramSyscallMSRs is phase 2->3 of spec.md §4.5: enable SCE in EFER,
// program STAR/LSTAR/FMASK. userCSBase is the selector SYSRET adds +8/+16
// to, i.e. SelUserData-8, per the STAR contract.
func ProgramSyscallMSRs(e SyscallEntry, kernelCS uint16, userCSBase uint16) {
	efer := hal.Rdmsr(hal.MsrEFER)
	hal.Wrmsr(hal.MsrEFER, efer|hal.EferSyscallEnableBit)
	hal.Wrmsr(hal.MsrSTAR, starValue(kernelCS, userCSBase))
	hal.Wrmsr(hal.MsrLSTAR, e.EntryAddr)
	hal.Wrmsr(hal.MsrFMASK, e.ClearFlags)
}

// RflagsInterruptEnable is the RFLAGS.IF bit; FMASK is programmed with
// this set so the CPU clears IF on syscall entry, matching spec.md's
// "set the flags-mask MSR to clear the interrupt-enable flag on entry."
const RflagsInterruptEnable = 1 << 9
