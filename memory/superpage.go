package memory

import "math/bits"

// pageState is the four-valued state of one node in a superpage's buddy
// tree. There are no per-node pointers and no free list — the state array
// is the entire authoritative structure, by design (see spec notes on the
// buddy resource).
type pageState uint8

const (
	nonExtant pageState = iota
	vacant
	occupied
	split
)

func (s pageState) String() string {
	switch s {
	case nonExtant:
		return "NON_EXTANT"
	case vacant:
		return "VACANT"
	case occupied:
		return "OCCUPIED"
	case split:
		return "SPLIT"
	default:
		return "UNKNOWN"
	}
}

// superpage is one upstream allocation managed as a complete binary buddy
// tree laid out in level order: node 0 is the root and covers the whole
// superpage, nodes 2i+1/2i+2 are the left/right children of node i.
type superpage struct {
	order        int
	minPageOrder int
	state        []pageState
	alloc        *UniqueAlloc
	base         uintptr
}

// newSuperpage rents a 1<<order byte slab from upstream, aligned to its own
// size, and initializes its tree with only the root node VACANT.
func newSuperpage(upstream Resource, order, minPageOrder int) (*superpage, error) {
	size := 1 << order
	alloc, err := NewUniqueAlloc(upstream, size, uint(size))
	if err != nil {
		return nil, err
	}

	numNodes := (1 << (order - minPageOrder + 1)) - 1
	state := make([]pageState, numNodes)
	state[0] = vacant
	// every other node starts NON_EXTANT; the make() zero value already is
	// nonExtant (0), so nothing further to do.

	return &superpage{
		order:        order,
		minPageOrder: minPageOrder,
		state:        state,
		alloc:        alloc,
		base:         alloc.Addr(),
	}, nil
}

func (sp *superpage) size() int { return 1 << sp.order }

func (sp *superpage) contains(addr uintptr) bool {
	return addr >= sp.base && addr < sp.base+uintptr(sp.size())
}

// depthOf returns the tree depth (root = 0) of the node at level-order
// index i, i.e. floor(log2(i+1)).
func depthOf(index int) int {
	return bits.Len(uint(index+1)) - 1
}

// firstIndexAtDepth returns the level-order index of the leftmost node at
// tree depth d.
func firstIndexAtDepth(d int) int {
	return (1 << d) - 1
}

// orderOfNode returns the block-size order (log2 of byte size) of the node
// at index i within a superpage of the given order: every node at depth d
// represents a block of size 1 << (order - d).
func orderOfNode(superpageOrder, index int) int {
	return superpageOrder - depthOf(index)
}

// indexRange returns the inclusive [iMin, iMax] level-order index range of
// every node of the given order within a superpage of the given order.
func indexRange(superpageOrder, order int) (int, int) {
	d := superpageOrder - order
	return firstIndexAtDepth(d), firstIndexAtDepth(d+1) - 1
}

// pageRef is a non-owning (superpage, index) reference, equivalent to the
// spec's page_ref. It never outlives the mutation that produced it across
// superpage growth, since superpages are stored in an append-only slice
// whose existing elements are never relocated.
type pageRef struct {
	sp    *superpage
	index int
}

func (p pageRef) exists() bool {
	return p.index < len(p.sp.state)
}

func (p pageRef) state() pageState {
	if !p.exists() {
		return nonExtant
	}
	return p.sp.state[p.index]
}

func (p pageRef) setState(s pageState) {
	p.sp.state[p.index] = s
}

func (p pageRef) order() int {
	return orderOfNode(p.sp.order, p.index)
}

func (p pageRef) leftChild() pageRef {
	return pageRef{sp: p.sp, index: 2*p.index + 1}
}

func (p pageRef) rightChild() pageRef {
	return pageRef{sp: p.sp, index: 2*p.index + 2}
}

func (p pageRef) parent() pageRef {
	return pageRef{sp: p.sp, index: (p.index - 1) / 2}
}

// addr returns the byte address this node's block starts at, derived
// purely from (superpage.order, index): base + (i - leftmostAtDepth(i)) *
// blockSize(i).
func (p pageRef) addr() uintptr {
	d := depthOf(p.index)
	lmn := firstIndexAtDepth(d)
	return p.sp.base + uintptr(p.index-lmn)*uintptr(1<<p.order())
}

// split transitions p from VACANT to SPLIT and both of its children from
// NON_EXTANT to VACANT.
func (p pageRef) split() {
	p.setState(split)
	p.leftChild().setState(vacant)
	p.rightChild().setState(vacant)
}

// unsplit recursively collapses a SPLIT node whose entire subtree is
// vacant back down to a single VACANT node. Worst-case recursion depth is
// order - minPageOrder.
func (p pageRef) unsplit() {
	if p.leftChild().state() == split {
		p.leftChild().unsplit()
	}
	if p.rightChild().state() == split {
		p.rightChild().unsplit()
	}
	p.setState(vacant)
	p.leftChild().setState(nonExtant)
	p.rightChild().setState(nonExtant)
}
