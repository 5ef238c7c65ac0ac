package sim

import (
	"cmp"
	"slices"
)

// Merge concatenates the worker buffers in worker order and sorts the result.
// The sort is stable, so samples with equal keys keep their relative order
// whatever the thread interleaving was.
func Merge(buffers [][]Sample, order Order) Trajectory {
	total := 0
	for _, b := range buffers {
		total += len(b)
	}

	merged := make(Trajectory, 0, total)
	for _, b := range buffers {
		merged = append(merged, b...)
	}

	switch order {
	case OrderByTime:
		slices.SortStableFunc(merged, func(a, b Sample) int {
			if c := cmp.Compare(a.Time, b.Time); c != 0 {
				return c
			}
			return cmp.Compare(a.Index, b.Index)
		})
	default:
		slices.SortStableFunc(merged, func(a, b Sample) int {
			if c := cmp.Compare(a.Index, b.Index); c != 0 {
				return c
			}
			return cmp.Compare(a.Time, b.Time)
		})
	}
	return merged
}
