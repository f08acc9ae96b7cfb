package conv

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// ErrOverflow is wrapped by every error returned from this package.
var ErrOverflow = errors.New("integer overflow")

// IntToUint converts int to uint safely.
func IntToUint(v int) (uint, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: %d cannot be converted to uint (negative)", ErrOverflow, v)
	}
	return uint(v), nil
}

// UintToUint32 converts uint to uint32 safely.
func UintToUint32(v uint) (uint32, error) {
	if uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d cannot be converted to uint32 (too large)", ErrOverflow, v)
	}
	return uint32(v), nil
}

// UintptrToInt converts uintptr to int safely.
func UintptrToInt(v uintptr) (int, error) {
	if uint64(v) > uint64(math.MaxInt) {
		return 0, fmt.Errorf("%w: %d cannot be converted to int (too large)", ErrOverflow, v)
	}
	return int(v), nil
}

// Uint64ToUintptr converts uint64 to uintptr safely.
// On 64-bit platforms this never fails.
func Uint64ToUintptr(v uint64) (uintptr, error) {
	if v > uint64(^uintptr(0)) {
		return 0, fmt.Errorf("%w: %d cannot be converted to uintptr (too large)", ErrOverflow, v)
	}
	return uintptr(v), nil
}

// AddUintptr returns a+b, failing instead of wrapping around.
func AddUintptr(a, b uintptr) (uintptr, error) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 || sum > uint64(^uintptr(0)) {
		return 0, fmt.Errorf("%w: %#x + %#x", ErrOverflow, a, b)
	}
	return uintptr(sum), nil
}

// IsPowerOfTwo reports whether v is a non-zero power of two.
func IsPowerOfTwo(v uintptr) bool {
	return v != 0 && v&(v-1) == 0
}

// AlignUp rounds v up to the next multiple of align, which must be a power of two.
func AlignUp(v, align uintptr) (uintptr, error) {
	if !IsPowerOfTwo(align) {
		return 0, fmt.Errorf("conv: alignment %d is not a power of two", align)
	}
	bumped, err := AddUintptr(v, align-1)
	if err != nil {
		return 0, err
	}
	return bumped &^ (align - 1), nil
}
