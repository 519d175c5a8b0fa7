package sched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRoundRobinSequence matches spec.md §4.6 scenario 2 literally: tasks
// A/B/C with periods 1/2/3 produce the run sequence A,B,A,B,C,A across
// ticks 1-6 under a cursor that always advances one slot per tick.
func TestRoundRobinSequence(t *testing.T) {
	var s Scheduler
	require.True(t, s.AddTask(Task{Name: "A", PeriodTicks: 1}))
	require.True(t, s.AddTask(Task{Name: "B", PeriodTicks: 2}))
	require.True(t, s.AddTask(Task{Name: "C", PeriodTicks: 3}))

	var got []string
	for tick := uint64(1); tick <= 6; tick++ {
		if name := s.Tick(tick); name != "" {
			got = append(got, name)
		}
	}

	require.Equal(t, []string{"A", "B", "A", "B", "C", "A"}, got)
}

func TestAddTaskRespectsCapacity(t *testing.T) {
	var s Scheduler
	for i := 0; i < MaxTasks; i++ {
		require.True(t, s.AddTask(Task{Name: "x", PeriodTicks: 1}))
	}
	require.False(t, s.AddTask(Task{Name: "overflow", PeriodTicks: 1}))
}

func TestTaskDeactivatesAfterMaxRuns(t *testing.T) {
	var s Scheduler
	s.AddTask(Task{Name: "once", PeriodTicks: 1, MaxRuns: 1})

	require.Equal(t, "once", s.Tick(1))
	require.Equal(t, "", s.Tick(2))
}

func TestCursorAdvancesEvenWhenCandidateSkipped(t *testing.T) {
	var s Scheduler
	s.AddTask(Task{Name: "slow", PeriodTicks: 100})
	s.AddTask(Task{Name: "fast", PeriodTicks: 1})

	require.Equal(t, "", s.Tick(1)) // cursor was on slow, not due
	require.Equal(t, "fast", s.Tick(1))
}

func TestDispatchReturnsRunningThreadsToReady(t *testing.T) {
	var tt ThreadTable
	idx := tt.Spawn(Thread{Name: "worker", Ring: Ring3})
	require.Equal(t, 0, idx)

	tt.Dispatch(1)
	threads := tt.Threads()
	require.Equal(t, ThreadReady, threads[0].State)
	require.EqualValues(t, 1, threads[0].DispatchCount)
}

func TestDispatchSkipsExitedThreads(t *testing.T) {
	var tt ThreadTable
	idx := tt.Spawn(Thread{Name: "worker"})
	tt.Exit(idx)

	tt.Dispatch(1)
	require.EqualValues(t, 0, tt.Threads()[0].DispatchCount)
}

func TestEntryCanExitItself(t *testing.T) {
	var tt ThreadTable
	tt.Spawn(Thread{
		Name: "once",
		Entry: func(idx int, tick uint64) {
			tt.threads[idx].State = ThreadExited
		},
	})

	tt.Dispatch(1)
	require.Equal(t, ThreadExited, tt.Threads()[0].State)

	tt.Dispatch(2) // exited thread must not run again
	require.EqualValues(t, 1, tt.Threads()[0].DispatchCount)
}

func TestSpawnRespectsCapacity(t *testing.T) {
	var tt ThreadTable
	for i := 0; i < MaxThreads; i++ {
		require.NotEqual(t, -1, tt.Spawn(Thread{Name: "x"}))
	}
	require.Equal(t, -1, tt.Spawn(Thread{Name: "overflow"}))
}
