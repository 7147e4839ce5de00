package grid

import (
	"math/rand"
	"testing"
	"time"
)

var seoul = time.FixedZone("KST", 9*3600)

func TestCellsToRanges_AdjacentCellsCoalesce(t *testing.T) {
	cells := NewCellSet(
		CellKey{Date: "2025-12-08", Minute: 9 * 60},
		CellKey{Date: "2025-12-08", Minute: 10 * 60},
	)

	ranges := CellsToRanges(cells, 60, seoul)
	if len(ranges) != 1 {
		t.Fatalf("expected 1 range, got %d", len(ranges))
	}
	wantStart := time.Date(2025, 12, 8, 0, 0, 0, 0, time.UTC) // 09:00 KST
	wantEnd := time.Date(2025, 12, 8, 2, 0, 0, 0, time.UTC)   // 11:00 KST
	if !ranges[0].StartAt.Equal(wantStart) || !ranges[0].EndAt.Equal(wantEnd) {
		t.Fatalf("got [%s, %s), want [%s, %s)",
			ranges[0].StartAt, ranges[0].EndAt, wantStart, wantEnd)
	}
}

func TestCellsToRanges_GapsSplit(t *testing.T) {
	cells := NewCellSet(
		CellKey{Date: "2025-12-08", Minute: 9 * 60},
		CellKey{Date: "2025-12-08", Minute: 11 * 60}, // 10:00 unselected
		CellKey{Date: "2025-12-09", Minute: 9 * 60},  // different day
	)
	ranges := CellsToRanges(cells, 60, time.UTC)
	if len(ranges) != 3 {
		t.Fatalf("expected 3 ranges, got %d: %v", len(ranges), ranges)
	}
	for i := 1; i < len(ranges); i++ {
		if !ranges[i-1].EndAt.Before(ranges[i].StartAt) {
			t.Errorf("ranges %d and %d are adjacent or overlap", i-1, i)
		}
	}
}

func TestCellsToRanges_SubHourSlots(t *testing.T) {
	cells := NewCellSet(
		CellKey{Date: "2025-12-08", Minute: 9*60 + 30},
		CellKey{Date: "2025-12-08", Minute: 10 * 60},
	)
	ranges := CellsToRanges(cells, 30, time.UTC)
	if len(ranges) != 1 {
		t.Fatalf("expected 1 range, got %d", len(ranges))
	}
	wantStart := time.Date(2025, 12, 8, 9, 30, 0, 0, time.UTC)
	wantEnd := time.Date(2025, 12, 8, 10, 30, 0, 0, time.UTC)
	if !ranges[0].StartAt.Equal(wantStart) || !ranges[0].EndAt.Equal(wantEnd) {
		t.Fatalf("got [%s, %s)", ranges[0].StartAt, ranges[0].EndAt)
	}
}

func TestRangesToCells_HalfOpen(t *testing.T) {
	ranges := []TimeRange{{
		StartAt: time.Date(2025, 12, 8, 9, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2025, 12, 8, 11, 0, 0, 0, time.UTC),
	}}
	cells := RangesToCells(ranges, 60, time.UTC)
	if cells.Len() != 2 {
		t.Fatalf("expected 2 cells, got %d", cells.Len())
	}
	if !cells.Has(CellKey{Date: "2025-12-08", Minute: 540}) ||
		!cells.Has(CellKey{Date: "2025-12-08", Minute: 600}) {
		t.Fatalf("unexpected cells: %v", cells.Keys())
	}
	if cells.Has(CellKey{Date: "2025-12-08", Minute: 660}) {
		t.Fatal("end boundary should be exclusive")
	}
}

func TestRangesToCells_CrossesLocalMidnight(t *testing.T) {
	// 23:00 UTC on the 8th is 08:00 KST on the 9th.
	ranges := []TimeRange{{
		StartAt: time.Date(2025, 12, 8, 23, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2025, 12, 9, 0, 0, 0, 0, time.UTC),
	}}
	cells := RangesToCells(ranges, 60, seoul)
	if !cells.Has(CellKey{Date: "2025-12-09", Minute: 8 * 60}) {
		t.Fatalf("expected cell on local next day, got %v", cells.Keys())
	}
}

// randomMaximalRanges builds sorted, disjoint, non-adjacent slot-aligned
// ranges, the exact shape CellsToRanges guarantees.
func randomMaximalRanges(rng *rand.Rand, slotMinutes int) []TimeRange {
	base := time.Date(2025, 12, 7, 0, 0, 0, 0, time.UTC)
	slot := time.Duration(slotMinutes) * time.Minute

	var ranges []TimeRange
	cursor := 0
	for i := 0; i < 1+rng.Intn(6); i++ {
		cursor += 2 + rng.Intn(20) // at least one empty slot between ranges
		length := 1 + rng.Intn(8)
		start := base.Add(time.Duration(cursor) * slot)
		end := start.Add(time.Duration(length) * slot)
		ranges = append(ranges, TimeRange{StartAt: start, EndAt: end})
		cursor += length
	}
	return ranges
}

func rangesEqual(a, b []TimeRange) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].StartAt.Equal(b[i].StartAt) || !a[i].EndAt.Equal(b[i].EndAt) {
			return false
		}
	}
	return true
}

func TestCodec_RoundTripProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	locations := []*time.Location{time.UTC, seoul, time.FixedZone("EST", -5*3600)}
	durations := []int{15, 30, 60}

	for i := 0; i < 200; i++ {
		slotMinutes := durations[rng.Intn(len(durations))]
		loc := locations[rng.Intn(len(locations))]
		want := randomMaximalRanges(rng, slotMinutes)

		cells := RangesToCells(want, slotMinutes, loc)
		got := CellsToRanges(cells, slotMinutes, loc)
		if !rangesEqual(got, want) {
			t.Fatalf("iteration %d (slot=%dm, loc=%s): round trip mismatch\nwant %v\ngot  %v",
				i, slotMinutes, loc, want, got)
		}
	}
}

func TestCodec_EncodeIsFixedPoint(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		ranges := randomMaximalRanges(rng, 30)
		cells := RangesToCells(ranges, 30, seoul)
		once := CellsToRanges(cells, 30, seoul)
		twice := CellsToRanges(RangesToCells(once, 30, seoul), 30, seoul)
		if !rangesEqual(once, twice) {
			t.Fatalf("iteration %d: coalescing not a fixed point", i)
		}
	}
}

func TestCodec_SpringForwardRoundTrip(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 2026-03-08: 02:00 EST jumps to 03:00 EDT at 07:00 UTC. Both slots sit
	// outside the skipped hour, one on each side of the transition.
	in := []TimeRange{{
		StartAt: time.Date(2026, 3, 8, 6, 30, 0, 0, time.UTC),
		EndAt:   time.Date(2026, 3, 8, 7, 30, 0, 0, time.UTC),
	}}
	cells := RangesToCells(in, 30, ny)
	want := NewCellSet(
		CellKey{Date: "2026-03-08", Minute: 90},  // 01:30 EST
		CellKey{Date: "2026-03-08", Minute: 180}, // 03:00 EDT
	)
	if !cells.Equal(want) {
		t.Fatalf("cells = %v, want %v", cells.Keys(), want.Keys())
	}

	out := CellsToRanges(cells, 30, ny)
	if !rangesEqual(in, out) {
		t.Fatalf("round trip: in %v, out %v", in, out)
	}
}

func TestCodec_FallBackFoldResolvesToFirstOccurrence(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 2026-11-01: 02:00 EDT falls back to 01:00 EST at 06:00 UTC, so the
	// 01:00 wall-clock hour occurs twice. A cell key holds only the wall
	// clock; a range decoded from the second occurrence therefore re-encodes
	// at the first. Wall-clock hours and total duration survive the round
	// trip; the absolute instants shift one hour earlier.
	in := []TimeRange{{
		StartAt: time.Date(2026, 11, 1, 5, 30, 0, 0, time.UTC), // 01:30 EDT
		EndAt:   time.Date(2026, 11, 1, 6, 30, 0, 0, time.UTC), // 01:30 EST
	}}
	cells := RangesToCells(in, 30, ny)
	want := NewCellSet(
		CellKey{Date: "2026-11-01", Minute: 60}, // 01:00 EST (second pass)
		CellKey{Date: "2026-11-01", Minute: 90}, // 01:30 EDT (first pass)
	)
	if !cells.Equal(want) {
		t.Fatalf("cells = %v, want %v", cells.Keys(), want.Keys())
	}

	out := CellsToRanges(cells, 30, ny)
	wantOut := []TimeRange{{
		StartAt: time.Date(2026, 11, 1, 5, 0, 0, 0, time.UTC), // 01:00 EDT
		EndAt:   time.Date(2026, 11, 1, 6, 0, 0, 0, time.UTC), // 01:00 EST
	}}
	if !rangesEqual(out, wantOut) {
		t.Fatalf("fold re-encode: got %v, want %v", out, wantOut)
	}
}

func TestCellsToRanges_Empty(t *testing.T) {
	if got := CellsToRanges(NewCellSet(), 60, time.UTC); got != nil {
		t.Fatalf("expected nil for empty set, got %v", got)
	}
	if got := CellsToRanges(NewCellSet(CellKey{Date: "2025-12-08"}), 0, time.UTC); got != nil {
		t.Fatalf("expected nil for non-positive slot duration, got %v", got)
	}
}

func TestMergeRanges_NoOverlap(t *testing.T) {
	ranges := []TimeRange{
		{StartAt: time.Unix(1000, 0).UTC(), EndAt: time.Unix(2000, 0).UTC()},
		{StartAt: time.Unix(3000, 0).UTC(), EndAt: time.Unix(4000, 0).UTC()},
	}
	merged := MergeRanges(ranges)
	if len(merged) != 2 {
		t.Fatalf("expected 2 ranges, got %d", len(merged))
	}
}

func TestMergeRanges_Overlap(t *testing.T) {
	ranges := []TimeRange{
		{StartAt: time.Unix(1000, 0).UTC(), EndAt: time.Unix(3000, 0).UTC()},
		{StartAt: time.Unix(2000, 0).UTC(), EndAt: time.Unix(4000, 0).UTC()},
	}
	merged := MergeRanges(ranges)
	if len(merged) != 1 {
		t.Fatalf("expected 1 range, got %d", len(merged))
	}
	if !merged[0].StartAt.Equal(time.Unix(1000, 0)) || !merged[0].EndAt.Equal(time.Unix(4000, 0)) {
		t.Fatalf("got [%s, %s)", merged[0].StartAt, merged[0].EndAt)
	}
}

func TestMergeRanges_AdjacentAndContained(t *testing.T) {
	ranges := []TimeRange{
		{StartAt: time.Unix(2000, 0).UTC(), EndAt: time.Unix(3000, 0).UTC()},
		{StartAt: time.Unix(1000, 0).UTC(), EndAt: time.Unix(2000, 0).UTC()}, // touches, unsorted input
		{StartAt: time.Unix(1200, 0).UTC(), EndAt: time.Unix(1400, 0).UTC()}, // fully contained
	}
	merged := MergeRanges(ranges)
	if len(merged) != 1 {
		t.Fatalf("expected 1 range, got %d", len(merged))
	}
	if !merged[0].StartAt.Equal(time.Unix(1000, 0)) || !merged[0].EndAt.Equal(time.Unix(3000, 0)) {
		t.Fatalf("got [%s, %s)", merged[0].StartAt, merged[0].EndAt)
	}
}
