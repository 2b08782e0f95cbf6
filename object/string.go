package object

// StringObj is the heap String variant: a byte buffer with a
// mutability flag and a lazily-computed, cached hash. A plain string
// literal is constructed immutable; the first `+` that consumes it
// produces a mutable clone (see NewMutableString), which may then be
// appended to in place as long as it remains the exclusive owner
// (Refcount == 1) — the guard lives in the VM's ADD handler, not here,
// since only the VM knows the current refcount context at the point of
// concatenation.
type StringObj struct {
	Header
	value     []byte
	mutable   bool
	hashValid bool
	hashed    uint32
}

// NewString constructs an immutable string object from s.
func NewString(s string) *StringObj {
	obj := &StringObj{value: []byte(s)}
	obj.Tag = StringType
	return obj
}

// NewMutableString constructs a mutable string object with the given
// backing capacity hint, used by the ADD fast path when cloning for the
// first append.
func NewMutableString(s string, capHint int) *StringObj {
	buf := make([]byte, len(s), max(capHint, len(s)))
	copy(buf, s)
	obj := &StringObj{value: buf, mutable: true}
	obj.Tag = StringType
	return obj
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (s *StringObj) Type() Type      { return StringType }
func (s *StringObj) Inspect() string { return string(s.value) }
func (s *StringObj) Value() string   { return string(s.value) }
func (s *StringObj) Len() int        { return len(s.value) }
func (s *StringObj) IsMutable() bool { return s.mutable }

// Hash returns the cached Murmur3-style hash, computing it on first
// access.
func (s *StringObj) Hash() uint32 {
	if !s.hashValid {
		s.hashed = HashString(string(s.value))
		s.hashValid = true
	}
	return s.hashed
}

// AppendInPlace mutates s.value by appending extra, invalidating the
// cached hash. Callers MUST have already verified s.mutable &&
// Refcount(s) == 1 (spec invariant 3); this method does not re-check,
// since the VM's ADD handler is the single call site and already holds
// that guarantee.
func (s *StringObj) AppendInPlace(extra string) {
	s.value = append(s.value, extra...)
	s.hashValid = false
}

// CloneMutable returns a new mutable string holding s's bytes plus
// extra, leaving s untouched. Used when the in-place fast path is not
// safe (immutable s, or a shared mutable s with Refcount > 1).
func (s *StringObj) CloneMutable(extra string) *StringObj {
	buf := make([]byte, len(s.value)+len(extra))
	copy(buf, s.value)
	copy(buf[len(s.value):], extra)
	obj := &StringObj{value: buf, mutable: true}
	obj.Tag = StringType
	return obj
}
