// Package availability computes overlap between participants' weekly
// recurring availability. Slots are half-hour offsets into a week
// (0.0 = Sunday 00:00 UTC through 167.5 = Saturday 23:30 UTC).
//
// Team formation depends on two measures: the navigator meeting overlap,
// which is the intersection across the entire team (a meeting requires
// universal attendance, so group overlap is never pairwise), and the
// captain 1:1 overlap with each individual djangonaut.
//
// Everything in this package is pure; persistence and pre-filtering via the
// SQL && operator live in the repositories.
package availability

import "sort"

// SlotIncrement is the duration of one slot in hours.
const SlotIncrement = 0.5

// HoursPerWeek bounds valid slot values: slots live in [0, HoursPerWeek).
const HoursPerWeek = 168.0

// floatTolerance guards float comparisons between slot values.
const floatTolerance = 0.01

// Normalize returns a sorted copy of slots with duplicates removed.
func Normalize(slots []float64) []float64 {
	if len(slots) == 0 {
		return nil
	}
	seen := make(map[float64]struct{}, len(slots))
	out := make([]float64, 0, len(slots))
	for _, s := range slots {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Float64s(out)
	return out
}

// Intersect returns the sorted slots present in both sets.
func Intersect(a, b []float64) []float64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	inA := make(map[float64]struct{}, len(a))
	for _, s := range a {
		inA[s] = struct{}{}
	}
	var out []float64
	seen := make(map[float64]struct{}, len(b))
	for _, s := range b {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if _, ok := inA[s]; ok {
			out = append(out, s)
		}
	}
	sort.Float64s(out)
	return out
}

// IntersectAll returns the sorted slots present in every set. With no sets
// the intersection is empty; with one set it is that set normalized.
func IntersectAll(sets ...[]float64) []float64 {
	if len(sets) == 0 {
		return nil
	}
	out := Normalize(sets[0])
	for _, set := range sets[1:] {
		out = Intersect(out, set)
		if len(out) == 0 {
			return nil
		}
	}
	return out
}

// OverlapHours is the total time both participants are simultaneously
// available: the size of the slot intersection times the slot duration.
// Commutative, and OverlapHours(a, a) equals len(Normalize(a)) * 0.5.
func OverlapHours(a, b []float64) float64 {
	return float64(len(Intersect(a, b))) * SlotIncrement
}

// GroupOverlapHours is OverlapHours generalized to any number of
// participants: the intersection across all sets, not pairwise.
func GroupOverlapHours(sets ...[]float64) float64 {
	return float64(len(IntersectAll(sets...))) * SlotIncrement
}

// HasOverlap reports whether the two sets share at least one slot. This is
// the Go mirror of the Postgres array && predicate used to pre-filter
// candidates before the full intersection check.
func HasOverlap(a, b []float64) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	inA := make(map[float64]struct{}, len(a))
	for _, s := range a {
		inA[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := inA[s]; ok {
			return true
		}
	}
	return false
}

// CountHourBlocks counts complete one-hour blocks in a sorted slot list: a
// block is two consecutive half-hour slots. [2.0, 2.5, 3.0] is one block
// plus a dangling half hour.
func CountHourBlocks(slots []float64) int {
	if len(slots) < 2 {
		return 0
	}
	blocks := 0
	i := 0
	for i < len(slots)-1 {
		if consecutive(slots[i], slots[i+1]) {
			blocks++
			i += 2
		} else {
			i++
		}
	}
	return blocks
}

func consecutive(a, b float64) bool {
	d := b - a - SlotIncrement
	return d > -floatTolerance && d < floatTolerance
}

// groupConsecutive splits sorted slots into [start, end] runs of adjacent
// half-hour slots.
func groupConsecutive(sorted []float64) [][2]float64 {
	if len(sorted) == 0 {
		return nil
	}
	var ranges [][2]float64
	start, end := sorted[0], sorted[0]
	for _, s := range sorted[1:] {
		if consecutive(end, s) {
			end = s
			continue
		}
		ranges = append(ranges, [2]float64{start, end})
		start, end = s, s
	}
	ranges = append(ranges, [2]float64{start, end})
	return ranges
}
