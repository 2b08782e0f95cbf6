package object

// ListObj is the heap List variant: a growable array of Values plus the
// escape/scope/auto-manage triplet inherited from Header.
type ListObj struct {
	Header
	items []Value
}

// NewList constructs a list seeded with items (copied, not aliased).
func NewList(items []Value) *ListObj {
	copied := make([]Value, len(items))
	copy(copied, items)
	obj := &ListObj{items: copied}
	obj.Tag = ListType
	return obj
}

func (l *ListObj) Type() Type { return ListType }

func (l *ListObj) Inspect() string {
	out := "["
	for i, v := range l.items {
		if i > 0 {
			out += ", "
		}
		out += v.Inspect()
	}
	return out + "]"
}

func (l *ListObj) Len() int { return len(l.items) }

// At returns the element at i, or Null if i is out of bounds — spec's
// boundary rule: "indexing past the end of a list returns null, not an
// error."
func (l *ListObj) At(i int) Value {
	if i < 0 || i >= len(l.items) {
		return Null
	}
	return l.items[i]
}

// Set writes v at i if in bounds; out-of-range writes are a no-op here,
// the VM raises the runtime error for INDEX_SET since only it knows the
// line/frame context for the diagnostic.
func (l *ListObj) Set(i int, v Value) bool {
	if i < 0 || i >= len(l.items) {
		return false
	}
	l.items[i] = v
	return true
}

// Append grows the list in place (used by the `append` builtin).
func (l *ListObj) Append(v Value) {
	l.items = append(l.items, v)
}

// Items returns the backing slice directly for iteration; callers must
// not retain it across a mutation.
func (l *ListObj) Items() []Value { return l.items }

// Concat returns a new list containing l's elements followed by other's,
// used by ADD's list+list rule (and list+range, range+list and
// range+range via the caller materializing each range first).
func (l *ListObj) Concat(other *ListObj) *ListObj {
	combined := make([]Value, 0, len(l.items)+len(other.items))
	combined = append(combined, l.items...)
	combined = append(combined, other.items...)
	return NewList(combined)
}
