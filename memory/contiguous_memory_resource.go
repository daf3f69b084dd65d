package memory

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// ContiguousMemoryResource is the bump (monotonic) resource: it rents a
// single upstream slab at construction and hands out aligned suffixes of it
// with a bare pointer bump. Deallocate is a no-op; the whole slab goes back
// upstream only when Release is called.
type ContiguousMemoryResource struct {
	upstream Resource
	slab     *UniqueAlloc

	begin uintptr
	total int
	next  uintptr

	allocationCount int
	logger          *slog.Logger
}

var _ Resource = &ContiguousMemoryResource{}
var _ Validatable = &ContiguousMemoryResource{}

// ContiguousOption configures a ContiguousMemoryResource at construction.
type ContiguousOption func(*ContiguousMemoryResource)

// WithContiguousLogger overrides the structured logger used for the
// resource's allocate trace.
func WithContiguousLogger(logger *slog.Logger) ContiguousOption {
	return func(r *ContiguousMemoryResource) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewContiguousMemoryResource rents a size-byte slab from upstream and
// returns a resource that hands out aligned suffixes of it.
func NewContiguousMemoryResource(upstream Resource, size int, opts ...ContiguousOption) (*ContiguousMemoryResource, error) {
	if size < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "size (%d) must not be negative", size)
	}

	slab, err := NewUniqueAlloc(upstream, size, NaturalAlignment)
	if err != nil {
		return nil, err
	}

	r := &ContiguousMemoryResource{
		upstream: upstream,
		slab:     slab,
		begin:    slab.Addr(),
		total:    size,
		next:     slab.Addr(),
		logger:   discardLogger,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.logger.Debug("contiguous resource constructed", "size", size, "begin", r.begin)
	return r, nil
}

// Allocate implements Resource. It advances the internal cursor to the
// first address at or after the cursor satisfying alignment, reserves size
// bytes there, and returns that address.
func (r *ContiguousMemoryResource) Allocate(size int, alignment uint) (uintptr, error) {
	if err := CheckPow2(alignment, "alignment"); err != nil {
		return 0, err
	}
	if size < 0 {
		return 0, errors.Wrapf(ErrInvalidArgument, "size (%d) must not be negative", size)
	}

	rem := r.next % uintptr(alignment)
	aligned := r.next
	if rem != 0 {
		aligned = r.next + uintptr(alignment) - rem
	}

	end := r.begin + uintptr(r.total)
	if aligned+uintptr(size) > end || aligned+uintptr(size) < aligned {
		return 0, errors.Wrapf(ErrOutOfMemory, "contiguous resource has %d bytes left, requested %d", int(end-r.next), size)
	}

	r.next = aligned + uintptr(size)
	r.allocationCount++
	r.logger.Debug("contiguous allocate", "size", size, "alignment", alignment, "addr", aligned)
	return aligned, nil
}

// Deallocate implements Resource. It is always a no-op: the bump resource
// only releases memory in bulk, via Release.
func (r *ContiguousMemoryResource) Deallocate(addr uintptr, size int, alignment uint) error {
	return nil
}

// IsEqual implements Resource using identity equality.
func (r *ContiguousMemoryResource) IsEqual(other Resource) bool {
	o, ok := other.(*ContiguousMemoryResource)
	return ok && o == r
}

// Release returns the entire slab to the upstream resource. The
// ContiguousMemoryResource must not be used afterward.
func (r *ContiguousMemoryResource) Release() error {
	return r.slab.Release()
}

// Statistics reports the slab as a single block, with AllocationBytes
// tracking bytes consumed by the cursor so far.
func (r *ContiguousMemoryResource) Statistics() Statistics {
	return Statistics{
		BlockCount:      1,
		AllocationCount: r.allocationCount,
		BlockBytes:      r.total,
		AllocationBytes: int(r.next - r.begin),
	}
}

// Validate checks that the cursor has not escaped the slab it was given.
func (r *ContiguousMemoryResource) Validate() error {
	end := r.begin + uintptr(r.total)
	if r.next < r.begin || r.next > end {
		return errors.Newf("contiguous resource cursor 0x%x is outside slab [0x%x, 0x%x)", r.next, r.begin, end)
	}
	return nil
}
