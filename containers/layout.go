// Package containers implements the flat and jagged buffers that sit on
// top of a memory.Resource: owners of one or more allocations that lay out
// a handle/view pair over contiguous or two-region memory.
package containers

import "github.com/Chamodya-ka/vecmem/memory"

// placement is the result of an aligned multi-placement computation: two
// sub-regions, A followed by B, carved out of one contiguous allocation
// with independent alignment requirements.
type placement struct {
	totalSize int
	alignment uint
	offsetA   int
	offsetB   int
}

// planPlacement places region A at offset 0 and region B at the first
// offset at or after sizeA that satisfies alignB, and reports the total
// size and the alignment the whole allocation must be made with.
func planPlacement(sizeA int, alignA uint, sizeB int, alignB uint) placement {
	offsetB := memory.AlignUp(sizeA, alignB)
	align := alignA
	if alignB > align {
		align = alignB
	}
	return placement{
		totalSize: offsetB + sizeB,
		alignment: align,
		offsetA:   0,
		offsetB:   offsetB,
	}
}
