package memory_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Chamodya-ka/vecmem/memory"
)

func TestUniqueAllocReleaseIsIdempotent(t *testing.T) {
	res := memory.NewHostMemoryResource()

	u, err := memory.NewUniqueAlloc(res, 64, 8)
	require.NoError(t, err)
	require.False(t, u.IsNull())

	require.NoError(t, u.Release())
	require.True(t, u.IsNull())
	require.NoError(t, u.Release())
}

func TestUniqueAllocMoveTransfersOwnership(t *testing.T) {
	res := memory.NewHostMemoryResource()

	u, err := memory.NewUniqueAlloc(res, 64, 8)
	require.NoError(t, err)
	addr := u.Addr()

	moved := u.Move()
	require.True(t, u.IsNull())
	require.False(t, moved.IsNull())
	require.Equal(t, addr, moved.Addr())

	require.NoError(t, moved.Release())
}

func TestUniqueAllocForSizesAndAlignsForT(t *testing.T) {
	res := memory.NewHostMemoryResource()

	type record struct {
		A int64
		B byte
	}

	u, err := memory.UniqueAllocFor[record](res, 4)
	require.NoError(t, err)
	require.Equal(t, 4*16, u.Size()) // record is padded to 16 bytes by its int64 field
	require.Zero(t, u.Addr()%uintptr(u.Alignment()))

	require.NoError(t, u.Release())
}
