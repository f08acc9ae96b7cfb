package takeover

import (
	"fmt"
	"slices"
)

// Order is the order in which Purify visits size classes.
type Order int

const (
	// Descending drains the largest class first. It is the default.
	Descending Order = iota
	// Ascending drains the smallest class first.
	Ascending
)

func (o Order) String() string {
	switch o {
	case Descending:
		return "descending"
	case Ascending:
		return "ascending"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

// Drainer is the part of the backing allocator Purify needs.
type Drainer interface {
	Malloc(size uintptr) (uintptr, error)
	Free(ptr uintptr) error
}

// PurifyOptions tunes Purify.
type PurifyOptions struct {
	Order Order
	// MaxAttempts bounds the allocations made for one class. 0 means unlimited.
	MaxAttempts int
}

// ClassReport describes the drain of one size class.
type ClassReport struct {
	Size            uintptr
	Sacrificed      int
	SacrificedBytes uintptr
}

// Report describes a whole purification, classes listed in drain order.
type Report struct {
	Classes []ClassReport
}

// Sacrificed returns the total number of allocations left allocated.
func (r Report) Sacrificed() int {
	n := 0
	for _, c := range r.Classes {
		n += c.Sacrificed
	}
	return n
}

// SacrificedBytes returns the total bytes left allocated.
func (r Report) SacrificedBytes() uintptr {
	var n uintptr
	for _, c := range r.Classes {
		n += c.SacrificedBytes
	}
	return n
}

// Purify drains every size class until the allocator returns memory for
// which inHeap is true. Allocations outside the heap are deliberately never
// freed, so the allocator cannot hand them out again; the first allocation
// inside the heap is freed and the next class is drained.
//
// sizes is the ClassSizes result (small ascending, then large ascending).
func Purify(a Drainer, inHeap func(uintptr) bool, sizes []uintptr, opts PurifyOptions) (Report, error) {
	order := drainOrder(sizes, opts.Order)

	report := Report{Classes: make([]ClassReport, 0, len(order))}
	for _, size := range order {
		class := ClassReport{Size: size}
		for attempt := 1; ; attempt++ {
			if opts.MaxAttempts > 0 && attempt > opts.MaxAttempts {
				return report, fmt.Errorf("%w: class %d still outside after %d allocations",
					ErrDrain, size, opts.MaxAttempts)
			}

			p, err := a.Malloc(size)
			if err != nil {
				return report, fmt.Errorf("%w: class %d: %w", ErrDrain, size, err)
			}
			if !inHeap(p) {
				class.Sacrificed++
				class.SacrificedBytes += size
				continue
			}
			if err := a.Free(p); err != nil {
				return report, fmt.Errorf("%w: class %d: free %#x: %w", ErrDrain, size, p, err)
			}
			break
		}
		report.Classes = append(report.Classes, class)
	}
	return report, nil
}

func drainOrder(sizes []uintptr, order Order) []uintptr {
	// Small and large groups are each ascending and every large class is
	// larger than every small class, so reversing the list sorts it descending.
	out := slices.Clone(sizes)
	if order == Descending {
		slices.Reverse(out)
	}
	return out
}
