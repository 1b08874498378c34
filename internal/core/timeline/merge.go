package timeline

import "sort"

// Merge unions any number of event feeds into one bounded, ordered slice.
// Events are deduplicated by ID with later feeds winning, ordered newest
// first with ties broken by ascending ID, and truncated to limit when
// limit > 0. Inputs are never mutated
func Merge(limit int, feeds ...[]Event) []Event {
	byID := make(map[string]Event)
	for _, feed := range feeds {
		for _, ev := range feed {
			byID[ev.ID] = ev
		}
	}

	out := make([]Event, 0, len(byID))
	for _, ev := range byID {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.After(out[j].At)
		}
		return out[i].ID < out[j].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
