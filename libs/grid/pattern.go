package grid

// PatternMergeResult reports the outcome of a week-1 pattern copy.
// HasWeek1Pattern false (or Added zero) is not an error; callers decide
// whether to surface a "nothing to copy" notice.
type PatternMergeResult struct {
	Cells           CellSet
	HasWeek1Pattern bool
	Added           int
}

// MergeWeekPattern reads the day-of-week to minute-set pattern from the
// first 7 calendar days of [startDate, endDate] (week 1 is relative to the
// range start, not to Sunday) and stamps it additively onto every later
// week. Existing selections are never removed: the result is always a
// superset of the input.
func MergeWeekPattern(cells CellSet, startDate, endDate string, startMinute, endMinute, slotMinutes int) (PatternMergeResult, error) {
	unchanged := PatternMergeResult{Cells: cells.Clone()}
	if slotMinutes <= 0 || endMinute <= startMinute {
		return unchanged, nil
	}

	start, err := ParseLocalDate(startDate)
	if err != nil {
		return unchanged, err
	}
	totalDays, err := DiffDays(startDate, endDate)
	if err != nil {
		return unchanged, err
	}
	totalDays++ // inclusive range

	pattern := make(map[int][]int, 7)
	for offset := 0; offset < 7 && offset < totalDays; offset++ {
		date := FormatLocalDate(start.AddDate(0, 0, offset))
		for m := startMinute; m < endMinute; m += slotMinutes {
			if cells.Has(CellKey{Date: date, Minute: m}) {
				pattern[offset] = append(pattern[offset], m)
			}
		}
	}
	if len(pattern) == 0 {
		return unchanged, nil
	}

	unchanged.HasWeek1Pattern = true
	if totalDays <= 7 {
		// No following week to merge into.
		return unchanged, nil
	}

	merged := cells.Clone()
	added := 0
	for offset := 7; offset < totalDays; offset++ {
		date := FormatLocalDate(start.AddDate(0, 0, offset))
		for _, m := range pattern[offset%7] {
			key := CellKey{Date: date, Minute: m}
			if !merged.Has(key) {
				merged.Add(key)
				added++
			}
		}
	}
	return PatternMergeResult{Cells: merged, HasWeek1Pattern: true, Added: added}, nil
}
