// Package undo provides a generic linear undo/redo history: an ordered past,
// a present value and an ordered future. New edits invalidate the future
// (standard linear semantics, not a branching graph).
package undo

// History wraps a value of type T with undo/redo stacks.
type History[T any] struct {
	past    []T
	present T
	future  []T
}

func New[T any](initial T) *History[T] {
	return &History[T]{present: initial}
}

// Present returns the current value.
func (h *History[T]) Present() T {
	return h.present
}

// Set replaces the present in place without touching history. Use it for
// high-frequency intermediate updates (every cell touched mid-drag) so a
// gesture does not flood the undo stack.
func (h *History[T]) Set(update func(T) T) {
	h.present = update(h.present)
}

// Push records the current present in the past, computes the new present
// from it, and clears the future. One Push per discrete user action. The
// updater always receives the freshest present, so a Push after a burst of
// Set calls never acts on a stale value.
func (h *History[T]) Push(update func(T) T) {
	h.past = append(h.past, h.present)
	h.present = update(h.present)
	h.future = nil
}

// Undo moves one step back, returning false (and doing nothing) when the
// past is empty.
func (h *History[T]) Undo() bool {
	if len(h.past) == 0 {
		return false
	}
	prev := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append([]T{h.present}, h.future...)
	h.present = prev
	return true
}

// Redo moves one step forward, returning false when the future is empty.
func (h *History[T]) Redo() bool {
	if len(h.future) == 0 {
		return false
	}
	next := h.future[0]
	h.future = h.future[1:]
	h.past = append(h.past, h.present)
	h.present = next
	return true
}

func (h *History[T]) CanUndo() bool {
	return len(h.past) > 0
}

func (h *History[T]) CanRedo() bool {
	return len(h.future) > 0
}
