package harness

import (
	"sort"

	"github.com/adebench/adebench/pkg/results"
)

// OrderUnits sorts units longest-first using duration hints from a
// previous run, so slow tasks start early and the run's tail stays
// short. Units without a hint are treated pessimistically as the
// longest and come first; ties keep their scan order.
func OrderUnits(units []Unit, hints results.DurationHints) []Unit {
	ordered := append([]Unit(nil), units...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return hintFor(ordered[i], hints) > hintFor(ordered[j], hints)
	})
	return ordered
}

func hintFor(u Unit, hints results.DurationHints) int64 {
	if ms, ok := hints[u.ID()]; ok {
		return ms
	}
	return int64(1<<63 - 1)
}
