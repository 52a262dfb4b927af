package availability

import (
	"sort"
	"strings"
)

// Window is a one-hour meeting window annotated with who can attend.
type Window struct {
	StartSlot   float64  `json:"start_slot"`
	EndSlot     float64  `json:"end_slot"`
	Formatted   string   `json:"formatted"`
	Available   []string `json:"available"`
	Unavailable []string `json:"unavailable"`
}

// BestMeetingWindows scans every possible one-hour window in the week and
// returns the topN windows by attendance. participants maps a participant ID
// to their slots; windows with fewer than two attendees are skipped.
func BestMeetingWindows(participants map[string][]float64, topN int) []Window {
	ids := make([]string, 0, len(participants))
	for id := range participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	slotSets := make(map[string]map[float64]struct{}, len(participants))
	for id, slots := range participants {
		set := make(map[float64]struct{}, len(slots))
		for _, s := range slots {
			set[s] = struct{}{}
		}
		slotSets[id] = set
	}

	totalWindows := int(HoursPerWeek/SlotIncrement) - 1
	windows := make([]Window, 0, 16)
	for i := 0; i < totalWindows; i++ {
		start := float64(i) * SlotIncrement
		end := start + SlotIncrement

		var available, unavailable []string
		for _, id := range ids {
			set := slotSets[id]
			_, hasStart := set[start]
			_, hasEnd := set[end]
			if hasStart && hasEnd {
				available = append(available, id)
			} else {
				unavailable = append(unavailable, id)
			}
		}
		if len(available) < 2 {
			continue
		}

		windows = append(windows, Window{
			StartSlot:   start,
			EndSlot:     end,
			Formatted:   formatWindow(start, end),
			Available:   available,
			Unavailable: unavailable,
		})
	}

	sort.SliceStable(windows, func(i, j int) bool {
		return len(windows[i].Available) > len(windows[j].Available)
	})
	if topN > 0 && len(windows) > topN {
		windows = windows[:topN]
	}
	return windows
}

func formatWindow(start, end float64) string {
	s := FormatSlot(start, 0)
	e := FormatSlot(end+SlotIncrement, 0)
	if idx := strings.IndexByte(e, ' '); idx >= 0 {
		e = e[idx+1:]
	}
	return s + " - " + e
}
