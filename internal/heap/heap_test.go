package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSoftBudgetReservationBounds(t *testing.T) {
	b := NewSoftBudget(1024)

	r1 := b.TryReserve(900, 64)
	require.NotNil(t, r1)
	require.EqualValues(t, 900, b.Reserved())

	r2 := b.TryReserve(100, 64)
	require.Nil(t, r2)

	r1.Release()
	require.EqualValues(t, 0, b.Reserved())

	r3 := b.TryReserve(900, 64)
	require.NotNil(t, r3)
}

func TestSoftBudgetReleaseIsIdempotent(t *testing.T) {
	b := NewSoftBudget(1024)
	r := b.TryReserve(100, 0)
	require.NotNil(t, r)
	r.Release()
	r.Release()
	require.EqualValues(t, 0, b.Reserved())
}

func TestSizePlanClampsAndSteps(t *testing.T) {
	plan := SizePlan(10 << 20) // 10 MiB conventional -> target below floor
	require.EqualValues(t, 64<<20, plan[0])

	plan = SizePlan(500 << 20) // 500 MiB -> ~250 MiB target, snapped to 64 MiB step
	require.EqualValues(t, 192<<20, plan[0])

	plan = SizePlan(1 << 40) // far above ceiling
	require.EqualValues(t, 4<<30, plan[0])

	require.EqualValues(t, []uint64{plan[0], 32 << 20, 16 << 20, 8 << 20}, plan)
}

func TestArenaAllocFreeCoalesces(t *testing.T) {
	buf := make([]byte, 4096)
	a := NewArena(buf)

	x := a.Alloc(100)
	require.Len(t, x, 100)
	y := a.Alloc(200)
	require.Len(t, y, 200)

	a.Free(x)
	a.Free(y)

	// After freeing both, a large allocation should succeed again,
	// proving the segments coalesced back into one free run.
	z := a.Alloc(3000)
	require.Len(t, z, 3000)
}
