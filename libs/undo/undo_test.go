package undo

import "testing"

func TestPushUndoRedo_Symmetry(t *testing.T) {
	h := New(0)
	for i := 1; i <= 3; i++ {
		v := i
		h.Push(func(int) int { return v })
	}
	if h.Present() != 3 || !h.CanUndo() || h.CanRedo() {
		t.Fatalf("unexpected state: present=%d canUndo=%v canRedo=%v",
			h.Present(), h.CanUndo(), h.CanRedo())
	}

	if !h.Undo() || h.Present() != 2 {
		t.Fatalf("after undo present=%d, want 2", h.Present())
	}
	if !h.Redo() || h.Present() != 3 {
		t.Fatalf("undo then redo should restore, got %d", h.Present())
	}
	// And the inverse order is a no-op on present too.
	h.Undo()
	h.Undo()
	h.Redo()
	h.Undo()
	if h.Present() != 1 {
		t.Fatalf("present=%d, want 1", h.Present())
	}
}

func TestUndoRedo_UnderflowIsNoOp(t *testing.T) {
	h := New("initial")
	if h.Undo() {
		t.Fatal("undo with empty past must report false")
	}
	if h.Redo() {
		t.Fatal("redo with empty future must report false")
	}
	if h.Present() != "initial" || h.CanUndo() || h.CanRedo() {
		t.Fatal("underflow must leave state untouched")
	}
}

func TestPush_ClearsFuture(t *testing.T) {
	h := New(0)
	h.Push(func(int) int { return 1 })
	h.Push(func(int) int { return 2 })
	h.Undo()
	if !h.CanRedo() {
		t.Fatal("redo should be available after undo")
	}

	h.Push(func(v int) int { return v + 10 })
	if h.CanRedo() {
		t.Fatal("a new edit must invalidate the redo stack")
	}
	if h.Present() != 11 {
		t.Fatalf("push must compute from the current present, got %d", h.Present())
	}
}

func TestSet_DoesNotTouchHistory(t *testing.T) {
	h := New(0)
	h.Push(func(int) int { return 1 })
	h.Set(func(int) int { return 50 })
	h.Set(func(v int) int { return v + 1 })
	if h.Present() != 51 {
		t.Fatalf("present=%d, want 51", h.Present())
	}

	// A push after live updates sees the freshest present, not a stale one.
	h.Push(func(v int) int { return v * 2 })
	if h.Present() != 102 {
		t.Fatalf("present=%d, want 102", h.Present())
	}

	h.Undo()
	if h.Present() != 51 {
		t.Fatalf("undo lands on the last live value, got %d", h.Present())
	}
	h.Undo()
	if h.Present() != 0 {
		t.Fatalf("live updates must not create extra history entries, got %d", h.Present())
	}
	if h.CanUndo() {
		t.Fatal("only two pushes happened; past should be empty")
	}
}
