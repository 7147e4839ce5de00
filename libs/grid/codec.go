package grid

import (
	"sort"
	"time"
)

// TimeRange is a half-open [StartAt, EndAt) UTC interval, the wire shape
// exchanged with the event API.
type TimeRange struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

// CellsToRanges encodes a selection into the minimal ordered list of UTC
// ranges covering it. Cells are resolved to absolute instants in loc, sorted,
// and coalesced in one sweep: a cell starting exactly at the running range's
// end extends it by one slot, anything else flushes and starts a new range.
// Output ranges are disjoint, sorted and maximal.
func CellsToRanges(cells CellSet, slotMinutes int, loc *time.Location) []TimeRange {
	if len(cells) == 0 || slotMinutes <= 0 {
		return nil
	}
	slot := time.Duration(slotMinutes) * time.Minute

	starts := make([]time.Time, 0, len(cells))
	for k := range cells {
		day, err := ParseLocalDate(k.Date)
		if err != nil {
			continue
		}
		starts = append(starts, time.Date(day.Year(), day.Month(), day.Day(), 0, k.Minute, 0, 0, loc))
	}
	if len(starts) == 0 {
		return nil
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	var ranges []TimeRange
	curStart := starts[0]
	curEnd := starts[0].Add(slot)
	for _, t := range starts[1:] {
		if t.Equal(curEnd) {
			curEnd = t.Add(slot)
			continue
		}
		if t.Before(curEnd) {
			// Duplicate instant (two wall-clock cells collapsing onto one
			// absolute instant around a DST fold); already covered.
			continue
		}
		ranges = append(ranges, TimeRange{StartAt: curStart.UTC(), EndAt: curEnd.UTC()})
		curStart = t
		curEnd = t.Add(slot)
	}
	return append(ranges, TimeRange{StartAt: curStart.UTC(), EndAt: curEnd.UTC()})
}

// RangesToCells decodes UTC ranges into the local grid cells they cover,
// stepping each half-open range by the slot duration. Cell keys hold wall
// clock only, so during a DST fall-back fold the two occurrences of the
// repeated hour collapse onto one cell; re-encoding resolves that cell to
// the first occurrence.
func RangesToCells(ranges []TimeRange, slotMinutes int, loc *time.Location) CellSet {
	cells := make(CellSet)
	if slotMinutes <= 0 {
		return cells
	}
	slot := time.Duration(slotMinutes) * time.Minute
	for _, r := range ranges {
		for t := r.StartAt; t.Before(r.EndAt); t = t.Add(slot) {
			local := t.In(loc)
			cells.Add(CellKey{
				Date:   FormatLocalDate(local),
				Minute: local.Hour()*60 + local.Minute(),
			})
		}
	}
	return cells
}

// MergeRanges coalesces arbitrary (possibly overlapping or adjacent) ranges
// into a sorted minimal list. Used on every write so stored availabilities
// stay maximal and disjoint.
func MergeRanges(ranges []TimeRange) []TimeRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]TimeRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartAt.Before(sorted[j].StartAt) })

	merged := make([]TimeRange, 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if !next.StartAt.After(cur.EndAt) {
			if next.EndAt.After(cur.EndAt) {
				cur.EndAt = next.EndAt
			}
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	return append(merged, cur)
}
