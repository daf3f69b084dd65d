package memory

// Resource is the abstract memory_resource contract every allocator in this
// package implements. An address returned from Allocate is only meaningful
// to the Resource that produced it; pairing a Deallocate call with the
// exact (addr, size, alignment) tuple a matching Allocate returned is the
// caller's responsibility — a mismatched tuple is a ContractViolation (see
// package errors) that some implementations detect only partly, or not at
// all.
type Resource interface {
	// Allocate returns an address aligned to alignment with room for size
	// bytes, or fails with an error wrapping ErrOutOfMemory. alignment must
	// be a power of two; size may be zero, in which case a well-defined
	// degenerate address is returned that must survive a paired Deallocate.
	Allocate(size int, alignment uint) (uintptr, error)

	// Deallocate releases the exact (addr, size, alignment) tuple a prior
	// Allocate call on this Resource returned. Behavior is undefined if the
	// tuple does not correspond to a live allocation from this Resource.
	Deallocate(addr uintptr, size int, alignment uint) error

	// IsEqual reports whether allocations made on this Resource can be
	// deallocated on other, and vice-versa. Most implementations have
	// identity equality; a Resource wrapping another for pure
	// instrumentation purposes may want value equality with its upstream.
	IsEqual(other Resource) bool
}

// NaturalAlignment is used by callers that have no specific alignment
// requirement; it matches the smallest alignment every Resource in this
// package is guaranteed to honor.
const NaturalAlignment uint = 1
