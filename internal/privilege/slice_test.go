package privilege

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeTrampoline simulates a ring-3 guest that issues exactly wantCalls
// syscalls before the budget (or an injected force-yield) stops it.
type fakeTrampoline struct {
	slice     *Slice
	wantCalls int
	tlsBase   uint64
}

func (f *fakeTrampoline) EnterFresh(entry, userStack uint64) { f.run() }
func (f *fakeTrampoline) Resume(ctx *SliceContext)            { f.run() }
func (f *fakeTrampoline) WriteTLSBase(base uint64)            { f.tlsBase = base }

func (f *fakeTrampoline) run() {
	for i := 0; i < f.wantCalls; i++ {
		if f.slice.OnSyscallReturn(SliceContext{RAX: uint64(i)}) {
			f.slice.MarkSuspended()
			return
		}
	}
	f.slice.MarkSuspended()
}

func TestRunSliceBudgetBoundsCalls(t *testing.T) {
	s := &Slice{}
	tr := &fakeTrampoline{slice: s, wantCalls: 10}

	report := s.RunSlice(tr, 0x400000, 0x7ffff000, 0, 5)

	require.LessOrEqual(t, report.Calls, uint64(5))
	require.EqualValues(t, 5, report.Calls)
	require.True(t, report.ContextValid)
}

func TestRunSlicePreconditionFailureReturnsZeroReport(t *testing.T) {
	s := &Slice{}
	tr := &fakeTrampoline{slice: s, wantCalls: 10}

	report := s.RunSlice(tr, 0, 0x7ffff000, 0, 5)
	require.Equal(t, Report{}, report)

	report = s.RunSlice(tr, 0x400000, 0, 0, 5)
	require.Equal(t, Report{}, report)
}

func TestRunSliceBudgetClamped(t *testing.T) {
	s := &Slice{}
	tr := &fakeTrampoline{slice: s, wantCalls: 10000}

	report := s.RunSlice(tr, 0x400000, 0x7ffff000, 0, 999999)
	require.EqualValues(t, maxBudget, report.Calls)
}

func TestProcessExitPreventsResume(t *testing.T) {
	s := &Slice{}
	tr := &fakeTrampoline{slice: s, wantCalls: 2}
	s.RunSlice(tr, 0x400000, 0x7ffff000, 0, 10)

	s.OnProcessExit()
	require.False(t, s.active.Load())
	require.False(t, s.valid.Load())

	// A subsequent RunSlice must start fresh, not resume, since valid
	// was cleared by the exit.
	tr2 := &fakeTrampoline{slice: s, wantCalls: 1}
	report := s.RunSlice(tr2, 0x400000, 0x7ffff000, 0, 10)
	require.EqualValues(t, 1, report.Calls)
}

func TestWriteTLSBaseCalledWhenProvided(t *testing.T) {
	s := &Slice{}
	tr := &fakeTrampoline{slice: s, wantCalls: 1}
	s.RunSlice(tr, 0x400000, 0x7ffff000, 0xdeadbeef, 1)
	require.EqualValues(t, 0xdeadbeef, tr.tlsBase)
}
