package takeover

import (
	"fmt"

	"github.com/TomsyPaul/tomsychapel/backing"
)

// SmallClassCount returns the number of small size classes.
func SmallClassCount(a backing.Introspector) (int, error) {
	n, err := a.NumSmallClasses()
	if err != nil {
		return 0, fmt.Errorf("%w: small class count: %w", ErrIntrospection, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative small class count %d", ErrIntrospection, n)
	}
	return n, nil
}

// LargeClassCount returns the number of large size classes.
func LargeClassCount(a backing.Introspector) (int, error) {
	n, err := a.NumLargeClasses()
	if err != nil {
		return 0, fmt.Errorf("%w: large class count: %w", ErrIntrospection, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative large class count %d", ErrIntrospection, n)
	}
	return n, nil
}

// ClassSizes returns the byte size of every small class in ascending order,
// followed by every large class in ascending order. Every large class must be
// bigger than every small class.
func ClassSizes(a backing.Introspector) ([]uintptr, error) {
	small, err := SmallClassCount(a)
	if err != nil {
		return nil, err
	}
	large, err := LargeClassCount(a)
	if err != nil {
		return nil, err
	}

	sizes := make([]uintptr, 0, small+large)
	for i := range small {
		size, err := a.SmallClassSize(i)
		if err != nil {
			return nil, fmt.Errorf("%w: small class %d size: %w", ErrIntrospection, i, err)
		}
		sizes = append(sizes, size)
	}
	for i := range large {
		size, err := a.LargeClassSize(i)
		if err != nil {
			return nil, fmt.Errorf("%w: large class %d size: %w", ErrIntrospection, i, err)
		}
		sizes = append(sizes, size)
	}

	if err := checkAscending(sizes[:small], "small"); err != nil {
		return nil, err
	}
	if err := checkAscending(sizes[small:], "large"); err != nil {
		return nil, err
	}
	if small > 0 && large > 0 && sizes[small] <= sizes[small-1] {
		return nil, fmt.Errorf("%w: first large class %d not above last small class %d",
			ErrIntrospection, sizes[small], sizes[small-1])
	}
	return sizes, nil
}

func checkAscending(sizes []uintptr, group string) error {
	for i, size := range sizes {
		if size == 0 {
			return fmt.Errorf("%w: %s class %d has zero size", ErrIntrospection, group, i)
		}
		if i > 0 && size <= sizes[i-1] {
			return fmt.Errorf("%w: %s classes not ascending at %d (%d <= %d)",
				ErrIntrospection, group, i, size, sizes[i-1])
		}
	}
	return nil
}
