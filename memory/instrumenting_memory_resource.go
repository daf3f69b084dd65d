package memory

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slog"
)

// eventKind discriminates entries in an InstrumentingMemoryResource's event
// log.
type eventKind int

const (
	eventAllocation eventKind = iota
	eventDeallocation
)

func (k eventKind) String() string {
	if k == eventAllocation {
		return "ALLOCATION"
	}
	return "DEALLOCATION"
}

type memoryEvent struct {
	kind      eventKind
	size      int
	alignment uint
	addr      uintptr
	elapsedNs int64
}

type liveAllocation struct {
	size      int
	alignment uint
}

// PreAllocateHook runs before an Allocate call is forwarded upstream.
type PreAllocateHook func(size int, alignment uint)

// PostAllocateHook runs after an Allocate call returns from upstream.
type PostAllocateHook func(size int, alignment uint, addr uintptr, err error)

// PreDeallocateHook runs before a Deallocate call is forwarded upstream.
type PreDeallocateHook func(addr uintptr, size int, alignment uint)

// PostDeallocateHook runs after a Deallocate call returns from upstream.
type PostDeallocateHook func(addr uintptr, size int, alignment uint, err error)

// InstrumentingMemoryResource wraps an upstream Resource, passing every
// call straight through while recording a timed event log and maintaining
// a registry of currently-outstanding allocations it has forwarded. A
// Deallocate call whose (addr, size, alignment) does not match a live
// entry in that registry is reported as ErrContractViolation instead of
// being silently forwarded — this is purely additive bookkeeping, not a
// change to the underlying contract.
type InstrumentingMemoryResource struct {
	upstream Resource
	logger   *slog.Logger

	events []memoryEvent
	live   *swiss.Map[uintptr, liveAllocation]

	nowFn func() int64

	preAllocate    PreAllocateHook
	postAllocate   PostAllocateHook
	preDeallocate  PreDeallocateHook
	postDeallocate PostDeallocateHook
}

var _ Resource = &InstrumentingMemoryResource{}

// InstrumentingOption configures an InstrumentingMemoryResource at
// construction.
type InstrumentingOption func(*InstrumentingMemoryResource)

// WithInstrumentingLogger overrides the structured logger used for
// allocate/deallocate tracing.
func WithInstrumentingLogger(logger *slog.Logger) InstrumentingOption {
	return func(r *InstrumentingMemoryResource) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithPreAllocateHook registers a hook run immediately before every
// forwarded Allocate call.
func WithPreAllocateHook(hook PreAllocateHook) InstrumentingOption {
	return func(r *InstrumentingMemoryResource) { r.preAllocate = hook }
}

// WithPostAllocateHook registers a hook run immediately after every
// forwarded Allocate call returns.
func WithPostAllocateHook(hook PostAllocateHook) InstrumentingOption {
	return func(r *InstrumentingMemoryResource) { r.postAllocate = hook }
}

// WithPreDeallocateHook registers a hook run immediately before every
// forwarded Deallocate call.
func WithPreDeallocateHook(hook PreDeallocateHook) InstrumentingOption {
	return func(r *InstrumentingMemoryResource) { r.preDeallocate = hook }
}

// WithPostDeallocateHook registers a hook run immediately after every
// forwarded Deallocate call returns.
func WithPostDeallocateHook(hook PostDeallocateHook) InstrumentingOption {
	return func(r *InstrumentingMemoryResource) { r.postDeallocate = hook }
}

// withClock overrides the monotonic clock used to time events, so that
// elapsed_ns values can be made deterministic.
func withClock(nowFn func() int64) InstrumentingOption {
	return func(r *InstrumentingMemoryResource) { r.nowFn = nowFn }
}

// NewInstrumentingMemoryResource wraps upstream with event logging and
// contract-violation detection.
func NewInstrumentingMemoryResource(upstream Resource, opts ...InstrumentingOption) *InstrumentingMemoryResource {
	r := &InstrumentingMemoryResource{
		upstream: upstream,
		logger:   discardLogger,
		live:     swiss.NewMap[uintptr, liveAllocation](16),
		nowFn:    monotonicNanos,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Allocate implements Resource, forwarding to upstream and recording the
// call in the event log and live-allocation registry.
func (r *InstrumentingMemoryResource) Allocate(size int, alignment uint) (uintptr, error) {
	if r.preAllocate != nil {
		r.preAllocate(size, alignment)
	}

	start := r.nowFn()
	addr, err := r.upstream.Allocate(size, alignment)
	elapsed := r.nowFn() - start

	if r.postAllocate != nil {
		r.postAllocate(size, alignment, addr, err)
	}

	r.events = append(r.events, memoryEvent{
		kind:      eventAllocation,
		size:      size,
		alignment: alignment,
		addr:      addr,
		elapsedNs: elapsed,
	})
	r.logger.Debug("instrumented allocate", "size", size, "alignment", alignment, "addr", addr, "elapsed_ns", elapsed)

	if err != nil {
		return 0, err
	}
	r.live.Put(addr, liveAllocation{size: size, alignment: alignment})
	return addr, nil
}

// Deallocate implements Resource. It checks the live-allocation registry
// before forwarding; a mismatched or unknown (addr, size, alignment)
// tuple is reported as ErrContractViolation rather than forwarded, and is
// not recorded in the event log. Every forwarded call appends one event,
// whether or not upstream succeeds.
func (r *InstrumentingMemoryResource) Deallocate(addr uintptr, size int, alignment uint) error {
	live, ok := r.live.Get(addr)
	if !ok {
		return errors.Wrapf(ErrContractViolation, "address 0x%x has no outstanding allocation on this resource", addr)
	}
	if live.size != size || live.alignment != alignment {
		return errors.Wrapf(ErrContractViolation, "address 0x%x was allocated with (size %d, alignment %d), not (size %d, alignment %d)", addr, live.size, live.alignment, size, alignment)
	}

	if r.preDeallocate != nil {
		r.preDeallocate(addr, size, alignment)
	}

	start := r.nowFn()
	err := r.upstream.Deallocate(addr, size, alignment)
	elapsed := r.nowFn() - start

	if r.postDeallocate != nil {
		r.postDeallocate(addr, size, alignment, err)
	}

	r.events = append(r.events, memoryEvent{
		kind:      eventDeallocation,
		size:      size,
		alignment: alignment,
		addr:      addr,
		elapsedNs: elapsed,
	})
	r.logger.Debug("instrumented deallocate", "size", size, "alignment", alignment, "addr", addr, "elapsed_ns", elapsed)

	if err != nil {
		return err
	}
	r.live.Delete(addr)
	return nil
}

// IsEqual implements Resource by deferring to upstream's equality, since
// an InstrumentingMemoryResource is pure passthrough — an allocation it
// forwarded can be deallocated directly against upstream. The reverse is
// not accepted: an allocation made directly on upstream is absent from
// the live-allocation registry, so Deallocate here reports it as
// ErrContractViolation.
func (r *InstrumentingMemoryResource) IsEqual(other Resource) bool {
	if o, ok := other.(*InstrumentingMemoryResource); ok {
		return r.upstream.IsEqual(o.upstream)
	}
	return r.upstream.IsEqual(other)
}

// Events returns a copy of the recorded event log.
func (r *InstrumentingMemoryResource) Events() []memoryEvent {
	out := make([]memoryEvent, len(r.events))
	copy(out, r.events)
	return out
}

// EventsJSON serializes the event log (kind, size, alignment, addr as a
// hex string, elapsed_ns) in the teacher's chained jwriter style.
func (r *InstrumentingMemoryResource) EventsJSON() ([]byte, error) {
	w := jwriter.NewWriter()

	arr := w.Array()
	for _, ev := range r.events {
		obj := arr.Object()
		obj.Name("kind").String(ev.kind.String())
		obj.Name("size").Int(ev.size)
		obj.Name("alignment").Int(int(ev.alignment))
		obj.Name("addr").String(hexAddr(ev.addr))
		obj.Name("elapsed_ns").Int(int(ev.elapsedNs))
		obj.End()
	}
	arr.End()

	return w.Bytes(), w.Error()
}
