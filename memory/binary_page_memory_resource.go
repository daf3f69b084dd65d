package memory

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slog"
)

const (
	defaultMinPageOrder = 8
	defaultNewPageOrder = 20
)

// BinaryPageMemoryResource is the buddy allocator. It grows by renting
// successive superpages from upstream and manages each one as an
// independent binary tree of page states. It never merges freed buddies:
// deallocate only marks a node VACANT, and the allocation search only
// selects VACANT nodes, so a SPLIT node whose subtree is entirely free
// stays SPLIT.
type BinaryPageMemoryResource struct {
	upstream Resource

	minPageOrder int
	newPageOrder int

	superpages []*superpage

	logger *slog.Logger
}

var _ Resource = &BinaryPageMemoryResource{}
var _ Validatable = &BinaryPageMemoryResource{}

// BuddyOption configures a BinaryPageMemoryResource at construction.
type BuddyOption func(*BinaryPageMemoryResource)

// WithMinPageOrder sets the smallest block order the resource will ever
// hand out or split down to. Every superpage's tree depth is order -
// minPageOrder, so raising this shrinks the tree. Default 8 (256 bytes).
func WithMinPageOrder(order int) BuddyOption {
	return func(r *BinaryPageMemoryResource) {
		r.minPageOrder = order
	}
}

// WithNewPageOrder sets the order of superpage the resource rents from
// upstream when it needs to grow because no existing superpage has a VACANT
// node that can serve the request. A request larger than this order grows a superpage sized to
// the request instead. Default 20 (1 MiB).
func WithNewPageOrder(order int) BuddyOption {
	return func(r *BinaryPageMemoryResource) {
		r.newPageOrder = order
	}
}

// WithLogger overrides the structured logger used for allocate/deallocate
// and growth tracing.
func WithLogger(logger *slog.Logger) BuddyOption {
	return func(r *BinaryPageMemoryResource) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewBinaryPageMemoryResource returns a buddy resource that rents
// superpages from upstream on demand. No superpage is rented until the
// first Allocate call.
func NewBinaryPageMemoryResource(upstream Resource, opts ...BuddyOption) *BinaryPageMemoryResource {
	r := &BinaryPageMemoryResource{
		upstream:     upstream,
		minPageOrder: defaultMinPageOrder,
		newPageOrder: defaultNewPageOrder,
		logger:       discardLogger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// orderFor returns the node order a request of the given size and
// alignment must be satisfied at: at least minPageOrder, at least
// CeilLog2(size), and promoted further upward if alignment is stricter
// than the natural alignment of that order's block size.
func (r *BinaryPageMemoryResource) orderFor(size int, alignment uint) int {
	order := r.minPageOrder
	if o := CeilLog2(size); o > order {
		order = o
	}
	for (1 << order) < int(alignment) {
		order++
	}
	return order
}

// Allocate implements Resource.
func (r *BinaryPageMemoryResource) Allocate(size int, alignment uint) (uintptr, error) {
	if err := CheckPow2(alignment, "alignment"); err != nil {
		return 0, err
	}
	if size < 0 {
		return 0, errors.Wrapf(ErrInvalidArgument, "size (%d) must not be negative", size)
	}

	order := r.orderFor(size, alignment)

	cand := r.findFreePage(order)
	if cand == nil {
		if err := r.grow(order); err != nil {
			return 0, err
		}
		cand = r.findFreePage(order)
	}
	if cand == nil {
		return 0, errors.Wrapf(ErrOutOfMemory, "binary page resource could not satisfy a request for order %d", order)
	}

	// findFreePage only ever returns a node whose state is literally
	// VACANT, never SPLIT, so in practice this never fires — a SPLIT node
	// whose subtree happens to be fully vacant is skipped by the search at
	// every order, not merged back together. Kept because a future search
	// strategy might start returning SPLIT candidates, and unsplit is the
	// correct reaction if it ever does.
	if cand.state() == split {
		cand.unsplit()
	}

	for cand.order() > order {
		cand.split()
		next := cand.leftChild()
		cand = &next
	}

	cand.setState(occupied)
	addr := cand.addr()
	r.logger.Debug("buddy allocate", "size", size, "alignment", alignment, "order", order, "addr", addr)
	return addr, nil
}

// findFreePage looks for a VACANT node of exactly order, first-fit across
// superpages in rental order. If none exists at that order, it escalates to
// order+1, order+2, … — this is the only place a request ever reuses a
// block that a previous split carved out and never touched again. The
// escalation stops, returning nil, the moment no superpage is even large
// enough to hold a node of the order currently being searched.
func (r *BinaryPageMemoryResource) findFreePage(order int) *pageRef {
	for o := order; ; o++ {
		capableSuperpageFound := false
		for _, sp := range r.superpages {
			if sp.order < o {
				continue
			}
			capableSuperpageFound = true

			imin, imax := indexRange(sp.order, o)
			for i := imin; i <= imax; i++ {
				if sp.state[i] == vacant {
					return &pageRef{sp: sp, index: i}
				}
			}
		}
		if !capableSuperpageFound {
			return nil
		}
	}
}

// grow rents a new superpage large enough to satisfy order, at least
// newPageOrder, from upstream.
func (r *BinaryPageMemoryResource) grow(order int) error {
	spOrder := r.newPageOrder
	if order > spOrder {
		spOrder = order
	}
	sp, err := newSuperpage(r.upstream, spOrder, r.minPageOrder)
	if err != nil {
		return err
	}
	r.logger.Debug("buddy grow", "order", spOrder)
	r.superpages = append(r.superpages, sp)
	return nil
}

// Deallocate implements Resource. size and alignment must be the exact
// tuple the matching Allocate call was given; the node order is
// recomputed deterministically from them rather than stored anywhere.
func (r *BinaryPageMemoryResource) Deallocate(addr uintptr, size int, alignment uint) error {
	sp := r.superpageContaining(addr)
	if sp == nil {
		return errors.Wrapf(ErrContractViolation, "address 0x%x does not belong to any superpage of this resource", addr)
	}

	order := r.orderFor(size, alignment)
	imin, imax := indexRange(sp.order, order)

	offset := addr - sp.base
	index := imin + int(offset>>uint(order))
	if offset&(uintptr(1)<<uint(order)-1) != 0 || index < imin || index > imax {
		return errors.Wrapf(ErrContractViolation, "address 0x%x is not aligned to order %d within its superpage", addr, order)
	}

	ref := pageRef{sp: sp, index: index}
	if ref.state() != occupied {
		return errors.Wrapf(ErrContractViolation, "address 0x%x (order %d) is not a live allocation", addr, order)
	}
	ref.setState(vacant)

	// No merge happens here. Sibling blocks that are now both vacant stay
	// as two separate VACANT nodes under a SPLIT parent; findFreePage can
	// hand either one out again at its own order, but never selects the
	// SPLIT parent, so they are not merged later either. Deallocate is
	// index arithmetic only.

	r.logger.Debug("buddy deallocate", "size", size, "alignment", alignment, "order", order, "addr", addr)
	return nil
}

func (r *BinaryPageMemoryResource) superpageContaining(addr uintptr) *superpage {
	for _, sp := range r.superpages {
		if sp.contains(addr) {
			return sp
		}
	}
	return nil
}

// IsEqual implements Resource using identity equality.
func (r *BinaryPageMemoryResource) IsEqual(other Resource) bool {
	o, ok := other.(*BinaryPageMemoryResource)
	return ok && o == r
}

// Statistics reports block/allocation counts across every rented
// superpage.
func (r *BinaryPageMemoryResource) Statistics() Statistics {
	var s Statistics
	s.BlockCount = len(r.superpages)
	for _, sp := range r.superpages {
		s.BlockBytes += sp.size()
		for i, st := range sp.state {
			switch st {
			case occupied:
				s.AllocationCount++
				s.AllocationBytes += 1 << orderOfNode(sp.order, i)
			}
		}
	}
	return s
}

// DetailedStatistics additionally tracks the size distribution of free
// regions and live allocations.
func (r *BinaryPageMemoryResource) DetailedStatistics() DetailedStatistics {
	var s DetailedStatistics
	s.Clear()
	s.BlockCount = len(r.superpages)
	for _, sp := range r.superpages {
		s.BlockBytes += sp.size()
		for i, st := range sp.state {
			size := 1 << orderOfNode(sp.order, i)
			switch st {
			case occupied:
				s.AddAllocation(size)
			case vacant:
				s.AddUnusedRange(size)
			}
		}
	}
	return s
}

// Validate checks the tree-shape invariants of every superpage: the root is
// never NON_EXTANT, a SPLIT node's children must both exist and neither may
// be NON_EXTANT, and a VACANT/OCCUPIED/NON_EXTANT node's children (if
// present) are NON_EXTANT. Address disjointness of OCCUPIED blocks is not
// checked separately.
func (r *BinaryPageMemoryResource) Validate() error {
	for spi, sp := range r.superpages {
		if sp.state[0] == nonExtant {
			return errors.Newf("superpage %d: root must never be NON_EXTANT", spi)
		}
		for i, st := range sp.state {
			ref := pageRef{sp: sp, index: i}
			lc, rc := ref.leftChild(), ref.rightChild()
			switch st {
			case split:
				if !lc.exists() || !rc.exists() {
					return errors.Newf("superpage %d node %d: SPLIT node must have both children", spi, i)
				}
				if lc.state() == nonExtant || rc.state() == nonExtant {
					return errors.Newf("superpage %d node %d: SPLIT node cannot have a NON_EXTANT child", spi, i)
				}
			case vacant, occupied, nonExtant:
				if lc.exists() && lc.state() != nonExtant {
					return errors.Newf("superpage %d node %d: non-SPLIT node must have NON_EXTANT children", spi, i)
				}
				if rc.exists() && rc.state() != nonExtant {
					return errors.Newf("superpage %d node %d: non-SPLIT node must have NON_EXTANT children", spi, i)
				}
			}
		}
	}
	return nil
}

// PageMapJSON dumps, per superpage, its order and a run-length-encoded
// list of node states, in the teacher's Name(...).Value(...) chained
// jwriter style.
func (r *BinaryPageMemoryResource) PageMapJSON() ([]byte, error) {
	w := jwriter.NewWriter()

	arr := w.Array()
	for _, sp := range r.superpages {
		obj := arr.Object()
		obj.Name("order").Int(sp.order)
		obj.Name("base").String(hexAddr(sp.base))

		runs := obj.Name("runs").Array()
		var cur pageState
		var count int
		flush := func() {
			if count == 0 {
				return
			}
			run := runs.Object()
			run.Name("state").String(cur.String())
			run.Name("count").Int(count)
			run.End()
		}
		for i, st := range sp.state {
			if i == 0 {
				cur, count = st, 1
				continue
			}
			if st == cur {
				count++
				continue
			}
			flush()
			cur, count = st, 1
		}
		flush()
		runs.End()

		obj.End()
	}
	arr.End()

	return w.Bytes(), w.Error()
}

func hexAddr(addr uintptr) string {
	const hextable = "0123456789abcdef"
	if addr == 0 {
		return "0x0"
	}
	var buf [2 + 16]byte
	i := len(buf)
	for addr > 0 {
		i--
		buf[i] = hextable[addr&0xf]
		addr >>= 4
	}
	i--
	buf[i] = 'x'
	i--
	buf[i] = '0'
	return string(buf[i:])
}
