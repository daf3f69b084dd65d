package memory_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Chamodya-ka/vecmem/memory"
)

func TestInstrumentingMemoryResourceLogsOneEventPerCall(t *testing.T) {
	upstream := memory.NewHostMemoryResource()
	res := memory.NewInstrumentingMemoryResource(upstream)

	addr, err := res.Allocate(128, 16)
	require.NoError(t, err)
	require.NoError(t, res.Deallocate(addr, 128, 16))

	events := res.Events()
	require.Len(t, events, 2)
}

func TestInstrumentingMemoryResourceHooksFireInOrder(t *testing.T) {
	upstream := memory.NewHostMemoryResource()

	var order []string
	res := memory.NewInstrumentingMemoryResource(upstream,
		memory.WithPreAllocateHook(func(size int, alignment uint) {
			order = append(order, "pre")
		}),
		memory.WithPostAllocateHook(func(size int, alignment uint, addr uintptr, err error) {
			order = append(order, "post")
		}),
	)

	_, err := res.Allocate(64, 8)
	require.NoError(t, err)
	require.Equal(t, []string{"pre", "post"}, order)
}

func TestInstrumentingMemoryResourceContractViolationOnMismatchedDeallocate(t *testing.T) {
	upstream := memory.NewHostMemoryResource()
	res := memory.NewInstrumentingMemoryResource(upstream)

	addr, err := res.Allocate(64, 8)
	require.NoError(t, err)

	err = res.Deallocate(addr, 128, 8)
	require.Error(t, err)
	require.ErrorIs(t, err, memory.ErrContractViolation)

	// the original allocation must still be considered live
	require.NoError(t, res.Deallocate(addr, 64, 8))
}

func TestInstrumentingMemoryResourceContractViolationOnUnknownAddress(t *testing.T) {
	upstream := memory.NewHostMemoryResource()
	res := memory.NewInstrumentingMemoryResource(upstream)

	err := res.Deallocate(0x1234, 64, 8)
	require.Error(t, err)
	require.ErrorIs(t, err, memory.ErrContractViolation)
}

func TestInstrumentingMemoryResourceEventsJSON(t *testing.T) {
	upstream := memory.NewHostMemoryResource()
	res := memory.NewInstrumentingMemoryResource(upstream)

	_, err := res.Allocate(32, 8)
	require.NoError(t, err)

	data, err := res.EventsJSON()
	require.NoError(t, err)
	require.Contains(t, string(data), "ALLOCATION")
}

func TestInstrumentingMemoryResourceIsEqualDefersToUpstream(t *testing.T) {
	upstream := memory.NewHostMemoryResource()
	res := memory.NewInstrumentingMemoryResource(upstream)

	require.True(t, res.IsEqual(upstream))
}

// alwaysFailResource is an upstream that fails every Allocate call, used to
// exercise the bookkeeping path on a failed allocation.
type alwaysFailResource struct{}

func (alwaysFailResource) Allocate(size int, alignment uint) (uintptr, error) {
	return 0, memory.ErrOutOfMemory
}
func (alwaysFailResource) Deallocate(addr uintptr, size int, alignment uint) error { return nil }
func (alwaysFailResource) IsEqual(other memory.Resource) bool                      { return false }

func TestInstrumentingMemoryResourceLogsEventOnFailedAllocate(t *testing.T) {
	res := memory.NewInstrumentingMemoryResource(alwaysFailResource{})

	var postAddr uintptr
	var postErr error
	res2 := memory.NewInstrumentingMemoryResource(alwaysFailResource{},
		memory.WithPostAllocateHook(func(size int, alignment uint, addr uintptr, err error) {
			postAddr, postErr = addr, err
		}),
	)

	_, err := res.Allocate(64, 8)
	require.Error(t, err)
	require.ErrorIs(t, err, memory.ErrOutOfMemory)
	require.Len(t, res.Events(), 1, "a failed allocate must still append exactly one event")

	_, err = res2.Allocate(64, 8)
	require.Error(t, err)
	require.Zero(t, postAddr, "post-allocate hook must observe a null address on failure")
	require.Error(t, postErr)
}
