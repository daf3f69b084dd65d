package memory

import cerrors "github.com/cockroachdb/errors"

// Number is satisfied by any integer type CheckPow2 and the alignment
// helpers need to operate on.
type Number interface {
	~int | ~uint | ~uintptr
}

// CheckPow2 returns ErrInvalidArgument if number is not a power of two.
// Zero is rejected, since it has no well-defined alignment.
func CheckPow2[T Number](number T, name string) error {
	if number <= 0 || number&(number-1) != 0 {
		return cerrors.Wrapf(ErrInvalidArgument, "%s (%d) must be a power of two", name, number)
	}
	return nil
}

// AlignUp rounds value up to the nearest multiple of alignment, which must
// be a power of two.
func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

// AlignDown rounds value down to the nearest multiple of alignment, which
// must be a power of two.
func AlignDown(value int, alignment uint) int {
	return value & int(^(alignment - 1))
}

// CeilLog2 returns the smallest n such that 1<<n >= size. CeilLog2(0) and
// CeilLog2(1) both return 0.
func CeilLog2(size int) int {
	n := 0
	for (1 << n) < size {
		n++
	}
	return n
}
