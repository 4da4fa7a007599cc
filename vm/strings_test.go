package vm

import (
	"testing"
)

// ---------------------------------------------------------------------------
// Interning tests
// ---------------------------------------------------------------------------

func TestInternSameContentSameHandle(t *testing.T) {
	table := NewStringTable()

	a := table.Intern("hello")
	b := table.Intern("hello")
	c := table.Intern("world")

	if a != b {
		t.Errorf("same content produced different handles: %d vs %d", a, b)
	}
	if a == c {
		t.Errorf("distinct contents share handle %d", a)
	}
	if table.Len() != 2 {
		t.Errorf("Len = %d, want 2", table.Len())
	}
}

func TestInternRefcounts(t *testing.T) {
	table := NewStringTable()

	id := table.Intern("x")
	if got := table.Refs(id); got != 1 {
		t.Fatalf("refs after first intern = %d, want 1", got)
	}

	const n = 5
	for i := 1; i < n; i++ {
		table.Intern("x")
	}
	if got := table.Refs(id); got != n {
		t.Errorf("refs after %d interns = %d, want %d", n, got, n)
	}

	table.Retain(id)
	if got := table.Refs(id); got != n+1 {
		t.Errorf("refs after retain = %d, want %d", got, n+1)
	}

	if err := table.Release(id); err != nil {
		t.Errorf("release failed: %v", err)
	}
	if got := table.Refs(id); got != n {
		t.Errorf("refs after release = %d, want %d", got, n)
	}
}

func TestReleaseUnderflow(t *testing.T) {
	table := NewStringTable()
	id := table.Intern("x")

	if err := table.Release(id); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if err := table.Release(id); err == nil {
		t.Error("release below zero should fail")
	}
	if got := table.Refs(id); got != 0 {
		t.Errorf("refs = %d, want 0", got)
	}
}

func TestReleaseInvalidHandle(t *testing.T) {
	table := NewStringTable()
	if err := table.Release(99); err == nil {
		t.Error("release of unknown handle should fail")
	}
}

// ---------------------------------------------------------------------------
// Removal tests
// ---------------------------------------------------------------------------

func TestRemoveRequiresZeroRefs(t *testing.T) {
	table := NewStringTable()
	id := table.Intern("doomed")

	if err := table.Remove(id); err == nil {
		t.Error("remove with outstanding references should fail")
	}

	if err := table.Release(id); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if err := table.Remove(id); err != nil {
		t.Errorf("remove after full release failed: %v", err)
	}

	if got := table.Contents(id); got != "" {
		t.Errorf("contents of removed handle = %q, want empty", got)
	}
	if got := table.Refs(id); got != -1 {
		t.Errorf("refs of removed handle = %d, want -1", got)
	}
	if table.Len() != 0 {
		t.Errorf("Len after remove = %d, want 0", table.Len())
	}
}

func TestReinternAfterRemoveGetsFreshHandle(t *testing.T) {
	table := NewStringTable()

	old := table.Intern("phoenix")
	table.Release(old)
	if err := table.Remove(old); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	fresh := table.Intern("phoenix")
	if fresh == old {
		t.Error("removed handle was reused")
	}
	if got := table.Contents(fresh); got != "phoenix" {
		t.Errorf("contents = %q, want %q", got, "phoenix")
	}
}

// ---------------------------------------------------------------------------
// Lookup and concat
// ---------------------------------------------------------------------------

func TestLookupDoesNotRetain(t *testing.T) {
	table := NewStringTable()
	id := table.Intern("peek")

	got, ok := table.Lookup("peek")
	if !ok || got != id {
		t.Fatalf("Lookup = (%d, %v), want (%d, true)", got, ok, id)
	}
	if refs := table.Refs(id); refs != 1 {
		t.Errorf("refs after lookup = %d, want 1", refs)
	}

	if _, ok := table.Lookup("absent"); ok {
		t.Error("Lookup of absent content reported found")
	}
}

func TestConcat(t *testing.T) {
	table := NewStringTable()
	a := table.Intern("ab")
	b := table.Intern("cd")

	combined := table.Concat(a, b)
	if got := table.Contents(combined); got != "abcd" {
		t.Errorf("concat contents = %q, want %q", got, "abcd")
	}
	if refs := table.Refs(combined); refs != 1 {
		t.Errorf("concat refs = %d, want 1", refs)
	}

	// Concatenating to already-interned content shares the handle.
	existing := table.Intern("abcd")
	if existing != combined {
		t.Errorf("concat result not shared with interned content: %d vs %d", combined, existing)
	}
}

func TestConcurrentIntern(t *testing.T) {
	table := NewStringTable()
	done := make(chan StringID, 16)

	for i := 0; i < 16; i++ {
		go func() {
			done <- table.Intern("shared")
		}()
	}

	first := <-done
	for i := 1; i < 16; i++ {
		if id := <-done; id != first {
			t.Errorf("concurrent interns disagree: %d vs %d", id, first)
		}
	}
	if got := table.Refs(first); got != 16 {
		t.Errorf("refs = %d, want 16", got)
	}
}
