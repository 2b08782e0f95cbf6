package object

import "testing"

func TestValueEquality(t *testing.T) {
	if !Equal(Int(3), Int(3)) {
		t.Fatal("expected 3 == 3")
	}
	if Equal(Int(3), Float(3)) {
		t.Fatal("float==int must never be permitted")
	}
	a := NewString("hi")
	b := NewString("hi")
	if !Equal(FromObject(a), FromObject(b)) {
		t.Fatal("strings must compare by content")
	}
	l1 := NewList(nil)
	l2 := NewList(nil)
	if Equal(FromObject(l1), FromObject(l2)) {
		t.Fatal("non-string heap objects must compare by identity")
	}
}

func TestStringHashNeverZero(t *testing.T) {
	if HashString("") == 0 {
		t.Fatal("hash of empty string must not be zero")
	}
	if HashString("tantrums") == 0 {
		t.Fatal("hash must not be zero")
	}
}

func TestMutableStringAppend(t *testing.T) {
	s := NewMutableString("abc", 8)
	s.AppendInPlace("def")
	if s.Value() != "abcdef" {
		t.Fatalf("got %q", s.Value())
	}
}

func TestListBoundaryIndexReturnsNull(t *testing.T) {
	l := NewList([]Value{Int(1), Int(2)})
	if !l.At(5).IsNull() {
		t.Fatal("out-of-range list index must yield null, not a panic or error")
	}
}

func TestMapRoundTripAnyKey(t *testing.T) {
	m := NewMap()
	key := FromObject(NewString("k"))
	grew := m.Set(key, Int(42))
	if !grew {
		t.Fatal("first set of a new key should report growth")
	}
	v, ok := m.Get(key)
	if !ok || v.AsInt() != 42 {
		t.Fatal("round trip failed")
	}
	grewAgain := m.Set(key, Int(43))
	if grewAgain {
		t.Fatal("overwrite of existing key must not report growth")
	}
	if m.Len() != 1 {
		t.Fatalf("expected len 1, got %d", m.Len())
	}
}

func TestRangeIteration(t *testing.T) {
	r := NewRange(0, 10, 1)
	if r.Len() != 10 {
		t.Fatalf("expected length 10, got %d", r.Len())
	}
	for i := int64(0); i < r.Len(); i++ {
		v, ok := r.At(i)
		if !ok || v != i {
			t.Fatalf("expected %d, got %d ok=%v", i, v, ok)
		}
	}
}

func TestPointerValidityInvariant(t *testing.T) {
	p := NewPointer(Int(7), 8, 1, "int", "main")
	if !p.IsValid() {
		t.Fatal("fresh pointer must be valid")
	}
	if p.Deref().AsInt() != 7 {
		t.Fatal("deref mismatch")
	}
	p.Free()
	if p.IsValid() {
		t.Fatal("pointer must be invalid after free")
	}
}

func TestHeapTeardownEmptiesAllObjects(t *testing.T) {
	h := NewHeap()
	a := NewString("a")
	b := NewList(nil)
	h.Track(a, 16)
	h.Track(b, 24)
	if h.Count() != 2 {
		t.Fatalf("expected 2 tracked objects, got %d", h.Count())
	}
	released := h.TeardownAll()
	if released != 2 {
		t.Fatalf("expected 2 released, got %d", released)
	}
	if h.Count() != 0 || h.Head() != nil {
		t.Fatal("all_objects must be empty after teardown")
	}
}

func TestReaperPredicate(t *testing.T) {
	p := NewPointer(Int(1), 8, 1, "int", "main")
	p.ScopeDepth = 2
	p.AutoManage = true
	if !ReclaimableByReaper(p, 1) {
		t.Fatal("unescaped auto-managed pointer created deeper than exit depth must be reclaimable")
	}
	MarkEscaped(p)
	if ReclaimableByReaper(p, 1) {
		t.Fatal("escaped objects must never be reclaimed by the reaper")
	}
}
