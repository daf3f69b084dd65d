package memory

import (
	"unsafe"

	"github.com/cockroachdb/errors"
)

// HostMemoryResource is the upstream adapter over the process heap: the
// root Resource that every composite resource in this package ultimately
// rests on. It has no upstream of its own.
//
// Go's allocator does not hand out raw, independently-freeable addresses
// the way C's malloc does, so HostMemoryResource allocates an
// over-sized []byte per request and retains it in a live-allocation table
// keyed by the aligned address it hands back, keeping the backing storage
// reachable until a matching Deallocate call releases it.
type HostMemoryResource struct {
	live map[uintptr][]byte
}

var _ Resource = &HostMemoryResource{}

// NewHostMemoryResource creates a HostMemoryResource backed by the Go heap.
func NewHostMemoryResource() *HostMemoryResource {
	return &HostMemoryResource{live: make(map[uintptr][]byte)}
}

// Allocate implements Resource.
func (h *HostMemoryResource) Allocate(size int, alignment uint) (uintptr, error) {
	if err := CheckPow2(alignment, "alignment"); err != nil {
		return 0, err
	}
	if size < 0 {
		return 0, errors.Wrapf(ErrInvalidArgument, "size (%d) must not be negative", size)
	}

	buf := make([]byte, size+int(alignment))
	base := uintptr(unsafe.Pointer(&buf[0]))

	rem := base % uintptr(alignment)
	addr := base
	if rem != 0 {
		addr = base + uintptr(alignment) - rem
	}

	h.live[addr] = buf
	return addr, nil
}

// Deallocate implements Resource.
func (h *HostMemoryResource) Deallocate(addr uintptr, size int, alignment uint) error {
	if _, ok := h.live[addr]; !ok {
		return errors.Wrapf(ErrContractViolation, "address 0x%x was not allocated by this HostMemoryResource", addr)
	}
	delete(h.live, addr)
	return nil
}

// IsEqual implements Resource using identity equality.
func (h *HostMemoryResource) IsEqual(other Resource) bool {
	o, ok := other.(*HostMemoryResource)
	return ok && o == h
}
