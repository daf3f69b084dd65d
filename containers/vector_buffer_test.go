package containers_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Chamodya-ka/vecmem/containers"
	"github.com/Chamodya-ka/vecmem/memory"
)

func TestVectorBufferFixedShape(t *testing.T) {
	res := memory.NewHostMemoryResource()

	buf, err := containers.NewVectorBuffer[int32](10, res)
	require.NoError(t, err)
	require.Equal(t, 10, buf.Capacity())
	require.Equal(t, 10, buf.Size())
	require.False(t, buf.IsResizable())

	view := buf.View()
	require.Equal(t, 10, view.Count)

	slice := view.Slice()
	slice[0] = 42
	require.Equal(t, int32(42), view.Slice()[0])

	require.NoError(t, buf.Release())
}

func TestVectorBufferResizableShapeStartsAtInitialSize(t *testing.T) {
	res := memory.NewHostMemoryResource()

	buf, err := containers.NewResizableVectorBuffer[float64](100, 0, res)
	require.NoError(t, err)
	require.Equal(t, 100, buf.Capacity())
	require.Zero(t, buf.Size())

	require.NoError(t, buf.SetSize(42))
	require.Equal(t, 42, buf.Size())

	err = buf.SetSize(1000)
	require.Error(t, err)
	require.ErrorIs(t, err, memory.ErrInvalidArgument)

	require.NoError(t, buf.Release())
}

func TestVectorBufferFixedHasNoSizeHeader(t *testing.T) {
	res := memory.NewHostMemoryResource()

	buf, err := containers.NewVectorBuffer[byte](16, res)
	require.NoError(t, err)

	err = buf.SetSize(8)
	require.Error(t, err)
	require.ErrorIs(t, err, memory.ErrInvalidArgument)
}
