package grid

import (
	"math"
	"sync"
	"time"
)

// DragMode is fixed when a gesture starts and never changes mid-drag.
type DragMode int

const (
	DragSelect DragMode = iota
	DragDeselect
)

// CellResolver maps device coordinates to the cell under them. The host UI
// supplies this, keeping the gesture state machine independent of any
// rendering technology.
type CellResolver interface {
	CellAt(x, y float64) (CellKey, bool)
}

const (
	defaultLongPress     = 500 * time.Millisecond
	defaultMoveThreshold = 10.0
)

// SelectionConfig wires the host UI into the gesture controller. All hooks
// are optional except Resolver, which touch input requires.
type SelectionConfig struct {
	// Selectable gates cells; nil means every cell is selectable. Cells
	// outside the active date range report false and ignore pointer-down.
	Selectable func(CellKey) bool

	// OnDragStart receives a snapshot of the selection before the first cell
	// of a gesture is toggled, so a whole drag is one undo unit.
	OnDragStart func(before CellSet)

	// Haptic signals touch-drag start; failures are ignored.
	Haptic func() error

	// Resolver hit-tests touch coordinates.
	Resolver CellResolver

	// LongPress is the touch hold duration before a drag arms (default 500ms).
	LongPress time.Duration

	// MoveThreshold is the touch movement (in host units) that cancels the
	// long press in favour of scrolling (default 10).
	MoveThreshold float64

	// startTimer schedules the long-press callback and returns a cancel
	// func. Tests inject a manual trigger; nil uses time.AfterFunc.
	startTimer func(d time.Duration, fire func()) (cancel func())
}

// Selection owns a CellSet and mutates it through click/drag/long-press
// gestures. States are Idle and Dragging(mode); pressing a selected cell
// starts a deselect drag and vice versa.
type Selection struct {
	mu  sync.Mutex
	cfg SelectionConfig

	cells    CellSet
	dragging bool
	mode     DragMode

	pending     *touchPoint
	cancelTimer func()
}

type touchPoint struct {
	x, y float64
}

func NewSelection(initial CellSet, cfg SelectionConfig) *Selection {
	if cfg.LongPress <= 0 {
		cfg.LongPress = defaultLongPress
	}
	if cfg.MoveThreshold <= 0 {
		cfg.MoveThreshold = defaultMoveThreshold
	}
	if cfg.startTimer == nil {
		cfg.startTimer = func(d time.Duration, fire func()) func() {
			t := time.AfterFunc(d, fire)
			return func() { t.Stop() }
		}
	}
	if initial == nil {
		initial = make(CellSet)
	}
	return &Selection{cfg: cfg, cells: initial.Clone()}
}

// Cells returns a copy of the current selection.
func (s *Selection) Cells() CellSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cells.Clone()
}

// Replace swaps in a new selection, e.g. after undo/redo or a pattern merge.
func (s *Selection) Replace(cells CellSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cells = cells.Clone()
}

func (s *Selection) Dragging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dragging
}

func (s *Selection) Mode() DragMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// PointerDown starts a mouse drag on key. The drag mode is the inverse of
// the cell's current state, applied immediately to that cell.
func (s *Selection) PointerDown(key CellKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginDrag(key)
}

// PointerEnter extends an active drag onto key; outside a drag it is a no-op.
func (s *Selection) PointerEnter(key CellKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dragging || !s.selectable(key) {
		return
	}
	s.apply(key)
}

// PointerUp ends the drag. Without a matching PointerDown it is a no-op.
func (s *Selection) PointerUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dragging = false
}

// TouchStart arms the long-press timer at (x, y).
func (s *Selection) TouchStart(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.pending = &touchPoint{x: x, y: y}
	s.cancelTimer = s.cfg.startTimer(s.cfg.LongPress, s.longPressFired)
}

// TouchMove either cancels a pending long press (movement past the threshold
// means the user is scrolling) or, during an active drag, applies the drag
// mode to the cell under the finger.
func (s *Selection) TouchMove(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		if math.Hypot(x-s.pending.x, y-s.pending.y) > s.cfg.MoveThreshold {
			s.stopTimerLocked()
			s.pending = nil
		}
		return
	}

	if !s.dragging || s.cfg.Resolver == nil {
		return
	}
	key, ok := s.cfg.Resolver.CellAt(x, y)
	if !ok || !s.selectable(key) {
		return
	}
	s.apply(key)
}

// TouchEnd releases the finger, cancelling a pending long press or ending an
// active drag. Partial selections from an interrupted drag are kept.
func (s *Selection) TouchEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.pending = nil
	s.dragging = false
}

func (s *Selection) longPressFired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil || s.cfg.Resolver == nil {
		return
	}
	point := *s.pending
	s.pending = nil
	s.cancelTimer = nil

	key, ok := s.cfg.Resolver.CellAt(point.x, point.y)
	if !ok {
		return
	}
	if s.cfg.Haptic != nil {
		_ = s.cfg.Haptic()
	}
	s.beginDrag(key)
}

func (s *Selection) beginDrag(key CellKey) {
	if !s.selectable(key) {
		return
	}
	if s.cells.Has(key) {
		s.mode = DragDeselect
	} else {
		s.mode = DragSelect
	}
	if s.cfg.OnDragStart != nil {
		s.cfg.OnDragStart(s.cells.Clone())
	}
	s.dragging = true
	s.apply(key)
}

// apply toggles key toward the drag mode, skipping writes that would not
// change membership.
func (s *Selection) apply(key CellKey) {
	switch s.mode {
	case DragSelect:
		if !s.cells.Has(key) {
			s.cells.Add(key)
		}
	case DragDeselect:
		if s.cells.Has(key) {
			s.cells.Remove(key)
		}
	}
}

func (s *Selection) selectable(key CellKey) bool {
	return s.cfg.Selectable == nil || s.cfg.Selectable(key)
}

func (s *Selection) stopTimerLocked() {
	if s.cancelTimer != nil {
		s.cancelTimer()
		s.cancelTimer = nil
	}
}
