package object

// MapEntry is one occupied slot of a MapObj.
type MapEntry struct {
	Key   Value
	Val   Value
	used  bool
}

// MapObj is the heap Map variant. Spec.md leaves map ordering
// implementation-defined but requires it be "stable within a single
// process run" (invariant 6) — Go's native map type randomizes
// iteration order across runs of the same program, which would violate
// that invariant for the for-in "nth occupied entry" query. MapObj
// therefore keeps its own insertion-ordered slice of entries (mirroring
// original_source's open-addressed ObjMap) alongside a Go map from hash
// to entry index for O(1) average lookup.
type MapObj struct {
	Header
	entries []MapEntry
	index   map[uint32][]int // hash -> candidate entry indices
}

// NewMap constructs an empty map.
func NewMap() *MapObj {
	obj := &MapObj{index: make(map[uint32][]int)}
	obj.Tag = MapType
	return obj
}

func (m *MapObj) Type() Type { return MapType }

func (m *MapObj) Inspect() string {
	out := "{"
	first := true
	for _, e := range m.entries {
		if !e.used {
			continue
		}
		if !first {
			out += ", "
		}
		first = false
		out += e.Key.Inspect() + ": " + e.Val.Inspect()
	}
	return out + "}"
}

// Len returns the number of occupied entries.
func (m *MapObj) Len() int {
	n := 0
	for _, e := range m.entries {
		if e.used {
			n++
		}
	}
	return n
}

func (m *MapObj) findIndex(key Value) int {
	h := HashValue(key)
	for _, idx := range m.index[h] {
		if idx < len(m.entries) && m.entries[idx].used && Equal(m.entries[idx].Key, key) {
			return idx
		}
	}
	return -1
}

// Get returns (value, true) if key is present, else (Null, false).
func (m *MapObj) Get(key Value) (Value, bool) {
	idx := m.findIndex(key)
	if idx < 0 {
		return Null, false
	}
	return m.entries[idx].Val, true
}

// Set stores val at key, returning true if this created a new entry
// (grew the map's length) and false if it overwrote an existing one —
// satisfying the testable property "len increases iff k was new".
func (m *MapObj) Set(key, val Value) bool {
	if idx := m.findIndex(key); idx >= 0 {
		m.entries[idx].Val = val
		return false
	}
	h := HashValue(key)
	idx := len(m.entries)
	m.entries = append(m.entries, MapEntry{Key: key, Val: val, used: true})
	m.index[h] = append(m.index[h], idx)
	return true
}

// Delete removes key if present, returning true if it was.
func (m *MapObj) Delete(key Value) bool {
	idx := m.findIndex(key)
	if idx < 0 {
		return false
	}
	m.entries[idx].used = false
	return true
}

// NthOccupied returns the n-th (0-based) occupied entry in insertion
// order, used by INDEX_GET's synthetic "nth occupied entry" query that
// backs for-in iteration over maps. ok is false if n is out of range.
func (m *MapObj) NthOccupied(n int) (key, val Value, ok bool) {
	count := 0
	for _, e := range m.entries {
		if !e.used {
			continue
		}
		if count == n {
			return e.Key, e.Val, true
		}
		count++
	}
	return Null, Null, false
}
