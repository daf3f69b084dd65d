package memory_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Chamodya-ka/vecmem/memory"
)

func TestHostMemoryResourceAlignment(t *testing.T) {
	res := memory.NewHostMemoryResource()

	addr, err := res.Allocate(100, 64)
	require.NoError(t, err)
	require.Zero(t, addr%64)

	require.NoError(t, res.Deallocate(addr, 100, 64))
}

func TestHostMemoryResourceDeallocateUnknownAddress(t *testing.T) {
	res := memory.NewHostMemoryResource()

	err := res.Deallocate(0xdeadbeef, 8, 8)
	require.Error(t, err)
	require.ErrorIs(t, err, memory.ErrContractViolation)
}

func TestHostMemoryResourceRejectsNonPow2Alignment(t *testing.T) {
	res := memory.NewHostMemoryResource()

	_, err := res.Allocate(8, 3)
	require.Error(t, err)
	require.ErrorIs(t, err, memory.ErrInvalidArgument)
}

func TestHostMemoryResourceIsEqual(t *testing.T) {
	a := memory.NewHostMemoryResource()
	b := memory.NewHostMemoryResource()

	require.True(t, a.IsEqual(a))
	require.False(t, a.IsEqual(b))
}
