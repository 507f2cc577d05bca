package monitor

import (
	"github.com/karthikrv/districtwatch/app/database"
)

// Detect compares a fresh per-theatre extraction against the stored
// snapshot and decides whether new availability should be alerted.
//
// A failed extraction is never evidence of "no showtimes": the baseline
// stays untouched and nothing is alerted. A first-ever successful read
// with a non-empty slot set alerts on all of it. After that, only slots
// absent from the previous baseline alert; slot removal silently shrinks
// the baseline so a later re-addition counts as new again.
func Detect(prev *database.Snapshot, result TheatreResult) Decision {
	if !result.OK {
		return Decision{Action: NoAction}
	}

	current := availableSlots(result.Showtimes)
	decision := Decision{Action: NoAction, AllSlots: current}

	if prev == nil {
		if len(current) > 0 {
			decision.Action = Alert
			decision.NewSlots = current
		}
		return decision
	}

	added := difference(current, prev.Slots)
	if len(added) > 0 {
		decision.Action = Alert
		decision.NewSlots = added
	}

	return decision
}

// availableSlots extracts the ordered, de-duplicated set of bookable slot
// times from a successful read.
func availableSlots(showtimes []Showtime) []string {
	seen := make(map[string]bool, len(showtimes))
	slots := make([]string, 0, len(showtimes))
	for _, showtime := range showtimes {
		if !showtime.Available || showtime.Time == "" {
			continue
		}
		if seen[showtime.Time] {
			continue
		}
		seen[showtime.Time] = true
		slots = append(slots, showtime.Time)
	}
	return slots
}

// difference returns the elements of current that are not in previous,
// preserving the order of current.
func difference(current, previous []string) []string {
	prev := make(map[string]bool, len(previous))
	for _, slot := range previous {
		prev[slot] = true
	}

	var added []string
	for _, slot := range current {
		if !prev[slot] {
			added = append(added, slot)
		}
	}
	return added
}
