package memory_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Chamodya-ka/vecmem/memory"
)

func TestContiguousMemoryResourceAlignment(t *testing.T) {
	upstream := memory.NewHostMemoryResource()
	res, err := memory.NewContiguousMemoryResource(upstream, 1024)
	require.NoError(t, err)

	p0, err := res.Allocate(10, 1)
	require.NoError(t, err)

	p1, err := res.Allocate(16, 16)
	require.NoError(t, err)
	require.GreaterOrEqual(t, int(p1), memory.AlignUp(int(p0)+10, 16))
	require.Zero(t, p1%16)

	_, err = res.Allocate(1000, 1)
	require.Error(t, err)
	require.ErrorIs(t, err, memory.ErrOutOfMemory)
}

func TestContiguousMemoryResourceMonotonic(t *testing.T) {
	upstream := memory.NewHostMemoryResource()
	res, err := memory.NewContiguousMemoryResource(upstream, 4096)
	require.NoError(t, err)

	var last uintptr
	for i := 0; i < 10; i++ {
		addr, err := res.Allocate(16, 1)
		require.NoError(t, err)
		require.Greater(t, int(addr), int(last))
		last = addr
	}

	require.NoError(t, res.Validate())
}

func TestContiguousMemoryResourceDeallocateIsNoop(t *testing.T) {
	upstream := memory.NewHostMemoryResource()
	res, err := memory.NewContiguousMemoryResource(upstream, 64)
	require.NoError(t, err)

	addr, err := res.Allocate(8, 1)
	require.NoError(t, err)

	require.NoError(t, res.Deallocate(addr, 8, 1))

	stats := res.Statistics()
	require.Equal(t, 8, stats.AllocationBytes)
}

func TestContiguousMemoryResourceRelease(t *testing.T) {
	upstream := memory.NewHostMemoryResource()
	res, err := memory.NewContiguousMemoryResource(upstream, 64)
	require.NoError(t, err)

	require.NoError(t, res.Release())
}
