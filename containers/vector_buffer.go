package containers

import (
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/Chamodya-ka/vecmem/memory"
)

// sizeHeader is the integral type used for a resizable buffer's size
// header slot.
type sizeHeader = uint64

// VectorBuffer owns the backing memory for a flat run of T, in one of two
// shapes. Fixed: exactly Capacity elements, Ptr pointing at the sole
// handle. Resizable: a size-header slot followed by a Capacity-element
// payload region, laid out by the aligned multi-placement scheme and
// carved out of a single handle.
type VectorBuffer[T any] struct {
	resizable bool
	capacity  int

	handle *memory.UniqueAlloc

	headerPtr  uintptr
	payloadPtr uintptr
}

// NewVectorBuffer allocates a fixed-shape buffer of exactly count elements.
func NewVectorBuffer[T any](count int, resource memory.Resource) (*VectorBuffer[T], error) {
	if count < 0 {
		return nil, errors.Wrapf(memory.ErrInvalidArgument, "count (%d) must not be negative", count)
	}

	handle, err := memory.UniqueAllocFor[T](resource, count)
	if err != nil {
		return nil, err
	}

	return &VectorBuffer[T]{
		capacity:   count,
		handle:     handle,
		payloadPtr: handle.Addr(),
	}, nil
}

// NewResizableVectorBuffer allocates a resizable-shape buffer: a size
// header followed by a capacity-element payload, from one aligned
// multi-placement allocation. The header is initialized to initialSize.
func NewResizableVectorBuffer[T any](capacity, initialSize int, resource memory.Resource) (*VectorBuffer[T], error) {
	if capacity < 0 {
		return nil, errors.Wrapf(memory.ErrInvalidArgument, "capacity (%d) must not be negative", capacity)
	}
	if initialSize < 0 || initialSize > capacity {
		return nil, errors.Wrapf(memory.ErrInvalidArgument, "initial size (%d) must be between 0 and capacity (%d)", initialSize, capacity)
	}

	var hdr sizeHeader
	var payload T
	plan := planPlacement(
		int(unsafe.Sizeof(hdr)), uint(unsafe.Alignof(hdr)),
		int(unsafe.Sizeof(payload))*capacity, alignofOrNatural(payload),
	)

	handle, err := memory.NewUniqueAlloc(resource, plan.totalSize, plan.alignment)
	if err != nil {
		return nil, err
	}

	buf := &VectorBuffer[T]{
		resizable:  true,
		capacity:   capacity,
		handle:     handle,
		headerPtr:  handle.Addr() + uintptr(plan.offsetA),
		payloadPtr: handle.Addr() + uintptr(plan.offsetB),
	}
	buf.writeSize(initialSize)
	return buf, nil
}

func alignofOrNatural[T any](zero T) uint {
	a := uint(unsafe.Alignof(zero))
	if a == 0 {
		return memory.NaturalAlignment
	}
	return a
}

func (b *VectorBuffer[T]) writeSize(n int) {
	*(*sizeHeader)(unsafe.Pointer(b.headerPtr)) = sizeHeader(n)
}

// IsResizable reports whether the buffer was constructed with a size
// header.
func (b *VectorBuffer[T]) IsResizable() bool { return b.resizable }

// Capacity returns the number of elements the payload region can hold.
func (b *VectorBuffer[T]) Capacity() int { return b.capacity }

// Size returns the current element count: Capacity for a fixed buffer, or
// the value in the size header for a resizable one.
func (b *VectorBuffer[T]) Size() int {
	if !b.resizable {
		return b.capacity
	}
	return int(*(*sizeHeader)(unsafe.Pointer(b.headerPtr)))
}

// SetSize updates the size header of a resizable buffer. It fails on a
// fixed buffer, which has no header to update.
func (b *VectorBuffer[T]) SetSize(n int) error {
	if !b.resizable {
		return errors.Wrap(memory.ErrInvalidArgument, "fixed vector buffer has no size header to set")
	}
	if n < 0 || n > b.capacity {
		return errors.Wrapf(memory.ErrInvalidArgument, "size (%d) must be between 0 and capacity (%d)", n, b.capacity)
	}
	b.writeSize(n)
	return nil
}

// Ptr returns the address of the payload region.
func (b *VectorBuffer[T]) Ptr() uintptr { return b.payloadPtr }

// View returns a non-owning view over the current contents: Count is Size
// for a resizable buffer (honoring the header that may have been updated
// since construction), Capacity for a fixed one.
func (b *VectorBuffer[T]) View() VectorView[T] {
	return VectorView[T]{Count: b.Size(), Ptr: b.payloadPtr}
}

// Release returns the buffer's backing allocation upstream. The buffer
// must not be used afterward.
func (b *VectorBuffer[T]) Release() error {
	return b.handle.Release()
}
