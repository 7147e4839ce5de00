package grid

import "sort"

// CellKey identifies one grid cell: a local calendar date plus a minute of
// day. Minute-of-day (rather than a fractional hour) keeps keys comparable
// without floating-point pitfalls; a cell's width is the slot duration its
// consumers agreed on.
type CellKey struct {
	Date   string // "YYYY-MM-DD" in the participant's local calendar
	Minute int    // 0..1439
}

// Hour returns the key's fractional hour of day (9.5 means 09:30).
func (k CellKey) Hour() float64 {
	return float64(k.Minute) / 60
}

// CellSet is a set of selected grid cells.
type CellSet map[CellKey]struct{}

func NewCellSet(keys ...CellKey) CellSet {
	s := make(CellSet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s CellSet) Has(k CellKey) bool {
	_, ok := s[k]
	return ok
}

func (s CellSet) Add(k CellKey) {
	s[k] = struct{}{}
}

func (s CellSet) Remove(k CellKey) {
	delete(s, k)
}

func (s CellSet) Len() int {
	return len(s)
}

func (s CellSet) Clone() CellSet {
	out := make(CellSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Keys returns the cells ordered by date, then minute.
func (s CellSet) Keys() []CellKey {
	keys := make([]CellKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Date != keys[j].Date {
			return keys[i].Date < keys[j].Date
		}
		return keys[i].Minute < keys[j].Minute
	})
	return keys
}

// Contains reports whether s is a superset of other.
func (s CellSet) Contains(other CellSet) bool {
	for k := range other {
		if !s.Has(k) {
			return false
		}
	}
	return true
}

func (s CellSet) Equal(other CellSet) bool {
	return len(s) == len(other) && s.Contains(other)
}
