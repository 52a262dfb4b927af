package availability

import (
	"fmt"
	"sort"
	"strings"
)

var dayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// ConvertSlotWithOffset shifts a UTC slot by a timezone offset in hours,
// wrapping around the week boundary.
func ConvertSlotWithOffset(slot, offsetHours float64) float64 {
	converted := slot + offsetHours
	if converted < 0 {
		converted += HoursPerWeek
	} else if converted >= HoursPerWeek {
		converted -= HoursPerWeek
	}
	return converted
}

// FormatSlot renders a slot as "Mon 2:30 PM", optionally shifted into a
// viewer's timezone.
func FormatSlot(slot, offsetHours float64) string {
	if offsetHours != 0 {
		slot = ConvertSlotWithOffset(slot, offsetHours)
	}
	dayIndex := int(slot / 24)
	day := "???"
	if dayIndex >= 0 && dayIndex < len(dayNames) {
		day = dayNames[dayIndex]
	}
	hourInDay := slot - float64(dayIndex)*24
	return fmt.Sprintf("%s %s", day, formatClock(hourInDay))
}

// FormatSlotRanges groups sorted slots into contiguous ranges rendered as
// "Mon 2:00 PM - 3:30 PM" strings.
func FormatSlotRanges(slots []float64, offsetHours float64) []string {
	if len(slots) == 0 {
		return nil
	}
	shifted := make([]float64, len(slots))
	for i, s := range slots {
		shifted[i] = ConvertSlotWithOffset(s, offsetHours)
	}
	sort.Float64s(shifted)

	var out []string
	for _, r := range groupConsecutive(shifted) {
		start := FormatSlot(r[0], 0)
		end := FormatSlot(r[1]+SlotIncrement, 0)
		// Keep the day name only on the range start.
		if idx := strings.IndexByte(end, ' '); idx >= 0 {
			end = end[idx+1:]
		}
		out = append(out, fmt.Sprintf("%s - %s", start, end))
	}
	return out
}

// GroupByDay buckets slots per weekday and renders each day's contiguous
// ranges, e.g. {"Mon": ["9:00 AM - 11:30 AM"]}.
func GroupByDay(slots []float64, offsetHours float64) map[string][]string {
	if len(slots) == 0 {
		return nil
	}
	byDay := make(map[string][]float64)
	for _, s := range slots {
		shifted := ConvertSlotWithOffset(s, offsetHours)
		dayIndex := int(shifted / 24)
		if dayIndex < 0 || dayIndex >= len(dayNames) {
			continue
		}
		byDay[dayNames[dayIndex]] = append(byDay[dayNames[dayIndex]], shifted)
	}

	out := make(map[string][]string, len(byDay))
	for day, daySlots := range byDay {
		sort.Float64s(daySlots)
		var ranges []string
		for _, r := range groupConsecutive(daySlots) {
			startHour := hourWithinDay(r[0])
			endHour := hourWithinDay(r[1] + SlotIncrement)
			ranges = append(ranges, fmt.Sprintf("%s - %s", formatClock(startHour), formatClock(endHour)))
		}
		out[day] = ranges
	}
	return out
}

func hourWithinDay(slot float64) float64 {
	h := slot
	for h >= 24 {
		h -= 24
	}
	return h
}

func formatClock(hourInDay float64) string {
	hours24 := int(hourInDay)
	minutes := int((hourInDay - float64(hours24)) * 60)

	period := "AM"
	if hours24 >= 12 {
		period = "PM"
	}
	hours12 := hours24 % 12
	if hours12 == 0 {
		hours12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", hours12, minutes, period)
}
