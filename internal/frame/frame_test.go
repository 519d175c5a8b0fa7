package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocFrameRegionFanOut(t *testing.T) {
	a := New()
	a.InitFromMemoryMap([]MemoryMapEntry{
		{PhysicalStart: 0x100000, PageCount: 2, Type: TypeConventional},
		{PhysicalStart: 0x200000, PageCount: 1, Type: TypeConventional},
	})

	addr1, ok1 := a.AllocFrame()
	addr2, ok2 := a.AllocFrame()
	addr3, ok3 := a.AllocFrame()
	_, ok4 := a.AllocFrame()

	require.True(t, ok1)
	require.True(t, ok2)
	require.True(t, ok3)
	require.False(t, ok4)
	require.EqualValues(t, 0x100000, addr1)
	require.EqualValues(t, 0x200000, addr2)
	require.EqualValues(t, 0x101000, addr3)
}

func TestAllocFrameExcludesBelowOneMiB(t *testing.T) {
	a := New()
	st := a.InitFromMemoryMap([]MemoryMapEntry{
		{PhysicalStart: 0x1000, PageCount: 10, Type: TypeConventional},
		{PhysicalStart: 0x100000, PageCount: 1, Type: TypeConventional},
	})
	require.Equal(t, 1, st.RegionsCreated)
	require.Equal(t, 2, st.ConventionalSeen)

	addr, ok := a.AllocFrame()
	require.True(t, ok)
	require.GreaterOrEqual(t, addr, uintptr(0x100000))
}

func TestAllocFrameStrictlyAscendingWithinRegion(t *testing.T) {
	a := New()
	a.InitFromMemoryMap([]MemoryMapEntry{
		{PhysicalStart: 0x100000, PageCount: 4, Type: TypeConventional},
	})
	var prev uintptr
	for i := 0; i < 4; i++ {
		addr, ok := a.AllocFrame()
		require.True(t, ok)
		if i > 0 {
			require.Equal(t, prev+PageSize, addr)
		}
		prev = addr
	}
	_, ok := a.AllocFrame()
	require.False(t, ok)
	require.EqualValues(t, 1, a.Failures())
}

func TestAllocFrameBelow4GiB(t *testing.T) {
	a := New()
	a.InitFromMemoryMap([]MemoryMapEntry{
		{PhysicalStart: 0xFFFFFFFF00000000, PageCount: 1, Type: TypeConventional},
		{PhysicalStart: 0x100000, PageCount: 1, Type: TypeConventional},
	})
	addr, ok := a.AllocFrameBelow4GiB()
	require.True(t, ok)
	require.Less(t, addr, uintptr(1<<32))
}

func TestNoRegionsIsLegal(t *testing.T) {
	a := New()
	st := a.InitFromMemoryMap(nil)
	require.Equal(t, 0, st.RegionsCreated)
	_, ok := a.AllocFrame()
	require.False(t, ok)
	require.EqualValues(t, 1, a.Failures())
}
