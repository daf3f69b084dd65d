package memory

import "unsafe"

// UniqueAlloc is an owning (address, size, alignment, resource) tuple. It
// has no destructor — Go has none to give it — so callers must call
// Release (typically via defer) on every control-flow path, including ones
// where a later step in construction fails. A zero-value UniqueAlloc is the
// null state: Release is a no-op and IsNull reports true.
//
// UniqueAlloc is move-only in intent: copying the struct by value produces
// two handles that both believe they own the same allocation, so always
// pass it by pointer, and use Move to explicitly transfer ownership when a
// handle needs to outlive the scope that created it.
type UniqueAlloc struct {
	resource  Resource
	addr      uintptr
	size      int
	alignment uint
	released  bool
}

// NewUniqueAlloc allocates size bytes aligned to alignment from resource
// and wraps the result in an owning handle.
func NewUniqueAlloc(resource Resource, size int, alignment uint) (*UniqueAlloc, error) {
	addr, err := resource.Allocate(size, alignment)
	if err != nil {
		return nil, err
	}
	return &UniqueAlloc{resource: resource, addr: addr, size: size, alignment: alignment}, nil
}

// UniqueAllocFor sizes and aligns an allocation for count elements of T,
// mirroring the spec's unique_alloc<T>(resource, count) helper.
func UniqueAllocFor[T any](resource Resource, count int) (*UniqueAlloc, error) {
	var zero T
	size := int(unsafe.Sizeof(zero)) * count
	alignment := uint(unsafe.Alignof(zero))
	if alignment == 0 {
		alignment = NaturalAlignment
	}
	return NewUniqueAlloc(resource, size, alignment)
}

// Addr returns the owned address. It is only valid while the handle is live.
func (u *UniqueAlloc) Addr() uintptr { return u.addr }

// Size returns the size, in bytes, this handle was allocated with.
func (u *UniqueAlloc) Size() int { return u.size }

// Alignment returns the alignment this handle was allocated with.
func (u *UniqueAlloc) Alignment() uint { return u.alignment }

// Resource returns the resource this handle will deallocate against.
func (u *UniqueAlloc) Resource() Resource { return u.resource }

// IsNull reports whether this handle owns nothing, either because it was
// never initialized, or because it has already been released or moved.
func (u *UniqueAlloc) IsNull() bool {
	return u == nil || u.resource == nil || u.released
}

// Release deallocates the owned tuple, if any, and puts the handle into the
// null state. It is safe to call Release more than once.
func (u *UniqueAlloc) Release() error {
	if u.IsNull() {
		return nil
	}
	u.released = true
	return u.resource.Deallocate(u.addr, u.size, u.alignment)
}

// Move transfers ownership of the allocation to a newly returned handle and
// resets u to the null state, mirroring C++ move-construction.
func (u *UniqueAlloc) Move() *UniqueAlloc {
	if u.IsNull() {
		return &UniqueAlloc{}
	}
	moved := &UniqueAlloc{resource: u.resource, addr: u.addr, size: u.size, alignment: u.alignment}
	u.resource = nil
	u.released = true
	return moved
}
