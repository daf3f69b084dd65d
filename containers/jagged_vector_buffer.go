package containers

import (
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/Chamodya-ka/vecmem/memory"
)

// JaggedVectorBuffer owns an outer array of N view records and one shared
// inner payload arena. If hostAccess was supplied at construction, the
// outer array is duplicated — one copy on the primary resource, one on
// hostAccess — and both describe the same inner arena; otherwise a single
// outer array on the primary resource serves as both.
type JaggedVectorBuffer[T any] struct {
	resizable  bool
	capacities []int

	primaryOuter *memory.UniqueAlloc
	hostOuter    *memory.UniqueAlloc
	inner        *memory.UniqueAlloc
}

// NewJaggedVectorBuffer allocates the fixed shape: capacities equal sizes,
// no size-header array exists, and the inner arena is a flat run of
// Σ sizes[i] elements of T.
func NewJaggedVectorBuffer[T any](sizes []int, resource memory.Resource, hostAccess memory.Resource) (*JaggedVectorBuffer[T], error) {
	for i, s := range sizes {
		if s < 0 {
			return nil, errors.Wrapf(memory.ErrInvalidArgument, "sizes[%d] (%d) must not be negative", i, s)
		}
	}

	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	elemAlign := alignofOrNatural(zero)

	total := 0
	for _, s := range sizes {
		total += s
	}

	inner, err := memory.NewUniqueAlloc(resource, elemSize*total, elemAlign)
	if err != nil {
		return nil, err
	}

	records := make([]JaggedVectorViewRecord[T], len(sizes))
	offset := 0
	for i, s := range sizes {
		records[i] = JaggedVectorViewRecord[T]{
			Capacity:   s,
			PayloadPtr: inner.Addr() + uintptr(offset),
		}
		offset += s * elemSize
	}

	return buildJaggedBuffer(records, append([]int(nil), sizes...), false, inner, resource, hostAccess)
}

// NewResizableJaggedVectorBuffer allocates the resizable shape: the inner
// arena is the aligned multi-placement of an N-entry size-header array and
// a Σ capacities[i]-element T array, and sizes holds the initial value of
// each view's size header.
func NewResizableJaggedVectorBuffer[T any](sizes, capacities []int, resource memory.Resource, hostAccess memory.Resource) (*JaggedVectorBuffer[T], error) {
	if len(sizes) != len(capacities) {
		return nil, errors.Wrapf(memory.ErrInvalidArgument, "sizes has %d entries but capacities has %d", len(sizes), len(capacities))
	}
	for i := range capacities {
		if capacities[i] < 0 {
			return nil, errors.Wrapf(memory.ErrInvalidArgument, "capacities[%d] (%d) must not be negative", i, capacities[i])
		}
		if sizes[i] < 0 || sizes[i] > capacities[i] {
			return nil, errors.Wrapf(memory.ErrInvalidArgument, "sizes[%d] (%d) must be between 0 and capacities[%d] (%d)", i, sizes[i], i, capacities[i])
		}
	}

	var hdr sizeHeader
	headerArraySize := int(unsafe.Sizeof(hdr)) * len(capacities)
	headerAlign := uint(unsafe.Alignof(hdr))

	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	elemAlign := alignofOrNatural(zero)

	totalCap := 0
	for _, c := range capacities {
		totalCap += c
	}

	plan := planPlacement(headerArraySize, headerAlign, elemSize*totalCap, elemAlign)
	inner, err := memory.NewUniqueAlloc(resource, plan.totalSize, plan.alignment)
	if err != nil {
		return nil, err
	}

	headerBase := inner.Addr() + uintptr(plan.offsetA)
	payloadBase := inner.Addr() + uintptr(plan.offsetB)

	records := make([]JaggedVectorViewRecord[T], len(capacities))
	offset := 0
	for i, c := range capacities {
		hp := headerBase + uintptr(i*int(unsafe.Sizeof(hdr)))
		*(*sizeHeader)(unsafe.Pointer(hp)) = sizeHeader(sizes[i])
		records[i] = JaggedVectorViewRecord[T]{
			Capacity:      c,
			SizeHeaderPtr: hp,
			PayloadPtr:    payloadBase + uintptr(offset),
		}
		offset += c * elemSize
	}

	return buildJaggedBuffer(records, append([]int(nil), capacities...), true, inner, resource, hostAccess)
}

func buildJaggedBuffer[T any](records []JaggedVectorViewRecord[T], capacities []int, resizable bool, inner *memory.UniqueAlloc, resource, hostAccess memory.Resource) (*JaggedVectorBuffer[T], error) {
	primaryOuter, err := allocateOuterArray(resource, records)
	if err != nil {
		_ = inner.Release()
		return nil, err
	}

	var hostOuter *memory.UniqueAlloc
	if hostAccess != nil {
		hostOuter, err = allocateOuterArray(hostAccess, records)
		if err != nil {
			_ = primaryOuter.Release()
			_ = inner.Release()
			return nil, err
		}
	}

	return &JaggedVectorBuffer[T]{
		resizable:    resizable,
		capacities:   capacities,
		primaryOuter: primaryOuter,
		hostOuter:    hostOuter,
		inner:        inner,
	}, nil
}

func allocateOuterArray[T any](resource memory.Resource, records []JaggedVectorViewRecord[T]) (*memory.UniqueAlloc, error) {
	var zero JaggedVectorViewRecord[T]
	recSize := int(unsafe.Sizeof(zero))
	recAlign := alignofOrNatural(zero)

	handle, err := memory.NewUniqueAlloc(resource, recSize*len(records), recAlign)
	if err != nil {
		return nil, err
	}

	base := handle.Addr()
	for i, rec := range records {
		*(*JaggedVectorViewRecord[T])(unsafe.Pointer(base + uintptr(i*recSize))) = rec
	}
	return handle, nil
}

// Len returns the number of inner views, N.
func (b *JaggedVectorBuffer[T]) Len() int { return len(b.capacities) }

// IsResizable reports whether each view has a size header distinct from
// its capacity.
func (b *JaggedVectorBuffer[T]) IsResizable() bool { return b.resizable }

// DevicePtr returns the address of the primary resource's outer array.
func (b *JaggedVectorBuffer[T]) DevicePtr() uintptr { return b.primaryOuter.Addr() }

// HostPtr returns the address of the host-visible outer array: the
// dedicated host-access copy if one was requested at construction,
// otherwise the same array DevicePtr returns.
func (b *JaggedVectorBuffer[T]) HostPtr() uintptr {
	if b.hostOuter != nil {
		return b.hostOuter.Addr()
	}
	return b.primaryOuter.Addr()
}

func (b *JaggedVectorBuffer[T]) recordAt(addr uintptr, i int) JaggedVectorViewRecord[T] {
	var zero JaggedVectorViewRecord[T]
	recSize := int(unsafe.Sizeof(zero))
	return *(*JaggedVectorViewRecord[T])(unsafe.Pointer(addr + uintptr(i*recSize)))
}

// View reads the host-visible outer array into a JaggedVectorView.
func (b *JaggedVectorBuffer[T]) View() JaggedVectorView[T] {
	addr := b.HostPtr()
	records := make([]JaggedVectorViewRecord[T], len(b.capacities))
	for i := range records {
		records[i] = b.recordAt(addr, i)
	}
	return JaggedVectorView[T]{Records: records}
}

// SetSize updates the size header of view i. It fails on a fixed buffer,
// which has no header to update.
func (b *JaggedVectorBuffer[T]) SetSize(i, n int) error {
	if !b.resizable {
		return errors.Wrap(memory.ErrInvalidArgument, "fixed jagged buffer has no size header to set")
	}
	if i < 0 || i >= len(b.capacities) {
		return errors.Wrapf(memory.ErrInvalidArgument, "index %d out of range [0, %d)", i, len(b.capacities))
	}
	if n < 0 || n > b.capacities[i] {
		return errors.Wrapf(memory.ErrInvalidArgument, "size (%d) must be between 0 and capacity (%d)", n, b.capacities[i])
	}
	rec := b.recordAt(b.DevicePtr(), i)
	*(*sizeHeader)(unsafe.Pointer(rec.SizeHeaderPtr)) = sizeHeader(n)
	return nil
}

// Release returns every allocation this buffer owns upstream: the host
// outer array (if any), the primary outer array, and the inner arena.
func (b *JaggedVectorBuffer[T]) Release() error {
	var first error
	if b.hostOuter != nil {
		if err := b.hostOuter.Release(); err != nil && first == nil {
			first = err
		}
	}
	if err := b.primaryOuter.Release(); err != nil && first == nil {
		first = err
	}
	if err := b.inner.Release(); err != nil && first == nil {
		first = err
	}
	return first
}
