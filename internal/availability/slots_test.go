package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlapHoursCommutative(t *testing.T) {
	a := []float64{10, 10.5, 11, 14}
	b := []float64{10.5, 11, 11.5, 12}

	assert.Equal(t, OverlapHours(a, b), OverlapHours(b, a))
	assert.InDelta(t, 1.0, OverlapHours(a, b), 1e-9)
}

func TestOverlapHoursSelf(t *testing.T) {
	a := []float64{0, 0.5, 1, 23.5, 167.5}
	assert.InDelta(t, float64(len(a))*SlotIncrement, OverlapHours(a, a), 1e-9)

	// Duplicates must not inflate the measure.
	dup := []float64{10, 10, 10.5}
	assert.InDelta(t, 1.0, OverlapHours(dup, dup), 1e-9)
}

func TestOverlapHoursEmpty(t *testing.T) {
	a := []float64{10, 10.5}
	assert.Zero(t, OverlapHours(a, nil))
	assert.Zero(t, OverlapHours(nil, a))
	assert.Zero(t, OverlapHours(nil, nil))
}

func TestIntersectAllIsUniversalNotPairwise(t *testing.T) {
	nav := []float64{10, 10.5, 11, 11.5}
	d1 := []float64{10, 10.5, 11}
	d2 := []float64{10.5, 11, 11.5}

	// Pairwise unions would include 10 and 11.5; universal attendance
	// keeps only slots everyone shares.
	got := IntersectAll(nav, d1, d2)
	assert.Equal(t, []float64{10.5, 11}, got)
	assert.InDelta(t, 1.0, GroupOverlapHours(nav, d1, d2), 1e-9)
}

func TestIntersectAllOrderIndependent(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{2, 3, 4}
	c := []float64{3, 2}

	assert.Equal(t, IntersectAll(a, b, c), IntersectAll(c, a, b))
	assert.Equal(t, IntersectAll(b, c, a), IntersectAll(a, b, c))
}

func TestIntersectAllEmptyMemberKillsOverlap(t *testing.T) {
	assert.Nil(t, IntersectAll([]float64{1, 2}, nil, []float64{1}))
	assert.Zero(t, GroupOverlapHours([]float64{1, 2}, nil))
}

func TestHasOverlap(t *testing.T) {
	assert.True(t, HasOverlap([]float64{1, 2}, []float64{2, 3}))
	assert.False(t, HasOverlap([]float64{1, 2}, []float64{3, 4}))
	assert.False(t, HasOverlap(nil, []float64{1}))
}

func TestCountHourBlocks(t *testing.T) {
	cases := []struct {
		name  string
		slots []float64
		want  int
	}{
		{"empty", nil, 0},
		{"single slot", []float64{1.0}, 0},
		{"one block", []float64{1.0, 1.5}, 1},
		{"block plus dangling half hour", []float64{2.0, 2.5, 3.0}, 1},
		{"two blocks", []float64{2.0, 2.5, 3.0, 3.5}, 2},
		{"gap splits blocks", []float64{1.0, 1.5, 4.0, 4.5}, 2},
		{"non-consecutive", []float64{1.0, 2.0, 3.0}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CountHourBlocks(tc.slots))
		})
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize([]float64{3, 1, 2, 1, 3})
	assert.Equal(t, []float64{1, 2, 3}, got)
	assert.Nil(t, Normalize(nil))
}

func TestConvertSlotWithOffsetWraps(t *testing.T) {
	assert.InDelta(t, 166.0, ConvertSlotWithOffset(1.0, -3), 1e-9)
	assert.InDelta(t, 1.0, ConvertSlotWithOffset(166.0, 3), 1e-9)
	assert.InDelta(t, 15.0, ConvertSlotWithOffset(10.0, 5), 1e-9)
}

func TestFormatSlot(t *testing.T) {
	assert.Equal(t, "Sun 12:00 AM", FormatSlot(0, 0))
	assert.Equal(t, "Mon 2:30 PM", FormatSlot(24+14.5, 0))
	assert.Equal(t, "Sat 11:30 PM", FormatSlot(167.5, 0))
}

func TestFormatSlotRanges(t *testing.T) {
	got := FormatSlotRanges([]float64{38.0, 38.5, 39.0, 42.0}, 0)
	require.Len(t, got, 2)
	assert.Equal(t, "Mon 2:00 PM - 3:30 PM", got[0])
	assert.Equal(t, "Mon 6:00 PM - 6:30 PM", got[1])
}

func TestGroupByDay(t *testing.T) {
	slots := []float64{7.5, 8.0, 8.5, 33.0, 33.5}
	got := GroupByDay(slots, 0)
	require.Contains(t, got, "Sun")
	require.Contains(t, got, "Mon")
	assert.Equal(t, []string{"7:30 AM - 9:00 AM"}, got["Sun"])
	assert.Equal(t, []string{"9:00 AM - 10:00 AM"}, got["Mon"])
}

func TestBestMeetingWindows(t *testing.T) {
	participants := map[string][]float64{
		"u1": {10, 10.5, 11, 11.5},
		"u2": {10, 10.5, 11},
		"u3": {11, 11.5},
	}
	windows := BestMeetingWindows(participants, 3)
	require.NotEmpty(t, windows)

	// The 10:00-11:00 window fits u1 and u2; u3 misses it.
	top := windows[0]
	assert.Len(t, top.Available, 2)
	assert.Contains(t, top.Unavailable, "u3")

	for _, w := range windows {
		assert.GreaterOrEqual(t, len(w.Available), 2)
	}
}

func TestBestMeetingWindowsSkipsSoloAttendance(t *testing.T) {
	participants := map[string][]float64{
		"u1": {10, 10.5},
		"u2": {50, 50.5},
	}
	assert.Empty(t, BestMeetingWindows(participants, 5))
}
