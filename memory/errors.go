package memory

import "github.com/cockroachdb/errors"

// ErrOutOfMemory is returned when an upstream allocate call fails, or when
// the buddy resource cannot satisfy a request even after growing.
var ErrOutOfMemory error = errors.New("memory: out of memory")

// ErrInvalidArgument is returned at construction or at a public Allocate
// entry point when an alignment is zero or not a power of two, or a size is
// negative.
var ErrInvalidArgument error = errors.New("memory: invalid argument")

// ErrContractViolation is returned when a Deallocate call does not
// correspond to a live allocation that this package can account for.
// InstrumentingMemoryResource checks the full (addr, size, alignment) tuple;
// HostMemoryResource and BinaryPageMemoryResource detect only some
// mismatches (an unknown address, or a block that is not live), and
// ContiguousMemoryResource detects none.
var ErrContractViolation error = errors.New("memory: contract violation")
