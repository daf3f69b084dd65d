package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidateRejectsAsymmetricSplitChild exercises a state that the public
// Allocate/Deallocate API never produces on its own: a SPLIT node with one
// child NON_EXTANT and the other VACANT. Validate must reject this even
// though neither child is individually NON_EXTANT on both sides.
func TestValidateRejectsAsymmetricSplitChild(t *testing.T) {
	upstream := NewHostMemoryResource()
	r := NewBinaryPageMemoryResource(upstream, WithMinPageOrder(4))

	// Force a superpage into existence, then corrupt its tree directly.
	addr, err := r.Allocate(16, 1)
	require.NoError(t, err)
	require.NoError(t, r.Deallocate(addr, 16, 1))
	require.NoError(t, r.Validate())

	sp := r.superpages[0]
	root := pageRef{sp: sp, index: 0}
	root.split()
	// split() leaves both children VACANT; corrupt the right child back to
	// NON_EXTANT to produce the asymmetric state.
	root.rightChild().setState(nonExtant)

	err = r.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "SPLIT node cannot have a NON_EXTANT child")
}
