package grid

import (
	"math"
	"sort"
	"time"
)

// ParticipantAvailability is one respondent's submission as returned by the
// event API.
type ParticipantAvailability struct {
	Name        string      `json:"name"`
	IsOrganizer bool        `json:"is_organizer"`
	Ranges      []TimeRange `json:"availabilities"`
}

// SlotTally is one grid slot's vote count and who cast the votes. Attendees
// keep the participants' submission order.
type SlotTally struct {
	StartAt   time.Time `json:"start_at"`
	Count     int       `json:"count"`
	Attendees []string  `json:"attendees"`
}

// AggregateResult is the heatmap input: every voted slot ranked best-first,
// split into top picks (count equals the maximum) and the rest.
type AggregateResult struct {
	Slots             []SlotTally `json:"slots"`
	TopPicks          []SlotTally `json:"top_picks"`
	OtherOptions      []SlotTally `json:"other_options"`
	MaxCount          int         `json:"max_count"`
	TotalParticipants int         `json:"total_participants"`
	IsOrganizerOnly   bool        `json:"is_organizer_only"`
}

// Aggregate expands every participant's UTC ranges to grid cells and tallies
// per-slot counts. Rebuilt from scratch on each call; at the supported scale
// (≤10 participants, a few weeks of slots) that is cheap.
//
// When more than one participant has responded, slots backed only by the
// organizer are dropped from OtherOptions so the organizer's own calendar
// does not pollute multi-person comparisons. When only the organizer has
// responded the result is instead flagged IsOrganizerOnly and nothing is
// filtered.
func Aggregate(participants []ParticipantAvailability, slotMinutes int, loc *time.Location) AggregateResult {
	res := AggregateResult{TotalParticipants: len(participants)}
	if slotMinutes <= 0 {
		return res
	}

	organizerName := ""
	for _, p := range participants {
		if p.IsOrganizer {
			organizerName = p.Name
			break
		}
	}

	tally := make(map[int64]*SlotTally)
	for _, p := range participants {
		cells := RangesToCells(p.Ranges, slotMinutes, loc)
		for _, key := range cells.Keys() {
			day, err := ParseLocalDate(key.Date)
			if err != nil {
				continue
			}
			instant := time.Date(day.Year(), day.Month(), day.Day(), 0, key.Minute, 0, 0, loc).UTC()
			slot := tally[instant.Unix()]
			if slot == nil {
				slot = &SlotTally{StartAt: instant}
				tally[instant.Unix()] = slot
			}
			slot.Count++
			slot.Attendees = append(slot.Attendees, p.Name)
		}
	}

	slots := make([]SlotTally, 0, len(tally))
	for _, s := range tally {
		slots = append(slots, *s)
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Count != slots[j].Count {
			return slots[i].Count > slots[j].Count
		}
		return slots[i].StartAt.Before(slots[j].StartAt)
	})
	res.Slots = slots

	if len(slots) > 0 {
		res.MaxCount = slots[0].Count
	}
	for _, s := range slots {
		if s.Count == res.MaxCount && res.MaxCount > 0 {
			res.TopPicks = append(res.TopPicks, s)
			continue
		}
		if len(participants) > 1 && organizerName != "" &&
			s.Count == 1 && s.Attendees[0] == organizerName {
			continue
		}
		res.OtherOptions = append(res.OtherOptions, s)
	}

	res.IsOrganizerOnly = len(participants) == 1 && participants[0].IsOrganizer
	return res
}

// Opacity maps a slot's vote count to a heatmap intensity. The sub-linear
// exponent lifts low-count slots above a plain ratio and the floor keeps any
// non-zero vote visible; zero votes render fully transparent.
func Opacity(count, totalParticipants int) float64 {
	if count <= 0 || totalParticipants <= 0 {
		return 0
	}
	ratio := float64(count) / float64(totalParticipants)
	o := math.Pow(ratio, 0.6)
	if o < 0.15 {
		return 0.15
	}
	if o > 1 {
		return 1
	}
	return o
}
