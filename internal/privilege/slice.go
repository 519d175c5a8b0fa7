package privilege

import "sync/atomic"

// SliceContext is the ring-3 register snapshot a slice resumes from:
// RAX, RCX, RDX, RSI, RDI and R8-R10, the IRETQ frame, and the TLS base;
// RBX, RBP and R11-R15 are not captured. Its field order and size are
// load-bearing: internal/asmstub/asmstub_amd64.s's ResumeUserContext
// reads it by offsets that must track this struct exactly. Frozen per
// spec.md §9 — never reorder these fields; add new ones at the end.
type SliceContext struct {
	RAX, RCX, RDX, RSI, RDI, R8, R9, R10 uint64 // offsets 0..56
	RIP, CS, RFlags, RSP, SS             uint64 // offsets 64..96 (IRETQ frame)
	TLSBase                              uint64
}

// Slice is the foreign-ABI execution window's state, per spec.md §3's
// "Foreign-ABI slice context" data model entry.
type Slice struct {
	ctx          SliceContext
	valid        atomic.Bool
	active       atomic.Bool
	forceYield   atomic.Bool
	calls        atomic.Uint64
	budget       uint64
	kernelRetRIP uint64
	kernelRetRSP uint64
}

// Trampoline is the hardware boundary the slice runner crosses through.
// Its methods line up with asmstub.IretqToUser / asmstub.ResumeUserContext
// / asmstub.WriteFSBase, but this module has no implementation backed by
// them; tests back it with a fake that simulates a bounded number of SYSCALLs before yielding, so
// the budget/force-yield bookkeeping below is verifiable without a real
// CPU ring transition.
type Trampoline interface {
	EnterFresh(entry, userStack uint64)
	Resume(ctx *SliceContext)
	WriteTLSBase(base uint64)
}

// Report is RunSlice's result, per spec.md §4.5 step 6.
type Report struct {
	Calls        uint64
	ContextValid bool
	StillActive  bool
}

const (
	minBudget = 1
	maxBudget = 4096
)

func clampBudget(b uint64) uint64 {
	if b < minBudget {
		return minBudget
	}
	if b > maxBudget {
		return maxBudget
	}
	return b
}

// RunSlice is the foreign-ABI slice runner (spec.md §4.5). entry=0 or
// userStack=0 is an unmet precondition: it returns a zeroed report
// without entering ring 3 at all, per spec.md §7's policy for that error
// kind.
func (s *Slice) RunSlice(tr Trampoline, entry, userStack, tlsBase, budget uint64) Report {
	if entry == 0 || userStack == 0 {
		return Report{}
	}

	resuming := s.valid.Load()

	s.active.Store(true)
	s.forceYield.Store(false)
	s.budget = clampBudget(budget)
	s.calls.Store(0)

	if tlsBase != 0 {
		tr.WriteTLSBase(tlsBase)
	}

	if resuming {
		tr.Resume(&s.ctx)
	} else {
		s.ctx = SliceContext{}
		tr.EnterFresh(entry, userStack)
	}

	// Control returns here only once the trampoline's simulated (or, in
	// production, interrupt-driven) re-entry into kernel context has
	// happened; OnSyscallReturn / OnTimerPreemption below drive that.
	return Report{
		Calls:        s.calls.Load(),
		ContextValid: s.valid.Load(),
		StillActive:  s.active.Load(),
	}
}

// OnSyscallReturn is the per-syscall-return bookkeeping for an active
// slice; neither the assembly syscall stub nor cmd/kernel's
// dispatchSyscall calls it. It implements spec.md §4.5 step 5's
// fast-syscall branch:
// increment the call counter, and if it has reached budget or an
// asynchronous force-yield was requested, capture context and signal
// that the trampoline should unwind to the kernel return point instead
// of resuming ring 3.
func (s *Slice) OnSyscallReturn(capture SliceContext) (shouldYield bool) {
	if !s.active.Load() {
		return false
	}
	n := s.calls.Add(1)
	if n >= s.budget || s.forceYield.Load() {
		s.ctx = capture
		s.valid.Store(true)
		s.forceYield.Store(false)
		return true
	}
	return false
}

// OnTimerPreemption handles a slice preempted mid-execution in ring 3
// rather than yielding via a syscall, capturing context the same way.
// The timer interrupt stub does not call it.
func (s *Slice) OnTimerPreemption(capture SliceContext) {
	if !s.active.Load() {
		return
	}
	s.ctx = capture
	s.valid.Store(true)
	s.forceYield.Store(false)
}

// RequestForceYield asks a running slice to yield at its next
// fast-syscall return, without waiting for the budget to exhaust.
func (s *Slice) RequestForceYield() {
	s.forceYield.Store(true)
}

// OnProcessExit is called by the syscall dispatcher when the foreign
// shim reports the guest process has exited: clears active and
// context-valid and sets force-yield, preventing an accidental resume of
// a slice whose process no longer exists (spec.md §4.5 invariants).
func (s *Slice) OnProcessExit() {
	s.active.Store(false)
	s.valid.Store(false)
	s.forceYield.Store(true)
}

// MarkSuspended transitions the slice out of "active" once the runner
// has regained control, leaving ContextValid as the resume decision for
// the next RunSlice call.
func (s *Slice) MarkSuspended() {
	s.active.Store(false)
}
