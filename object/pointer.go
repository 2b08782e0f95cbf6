package object

// PointerObj is the heap Pointer variant: a typed handle to a single
// heap-allocated Value cell, carrying provenance metadata for
// diagnostics (alloc size, source line, declared type name, owning
// function name) and an IsValid bit cleared on free. Per invariant 2,
// !IsValid implies target == nil.
type PointerObj struct {
	Header
	target    *Value
	valid     bool
	allocSize int
	allocLine int
	allocType string
	allocFunc string
}

// NewPointer allocates a fresh Value cell holding init and wraps it in
// a Pointer with the given provenance.
func NewPointer(init Value, allocSize, allocLine int, allocType, allocFunc string) *PointerObj {
	cell := new(Value)
	*cell = init
	obj := &PointerObj{
		target:    cell,
		valid:     true,
		allocSize: allocSize,
		allocLine: allocLine,
		allocType: allocType,
		allocFunc: allocFunc,
	}
	obj.Tag = PointerType
	return obj
}

func (p *PointerObj) Type() Type { return PointerType }

func (p *PointerObj) Inspect() string {
	if !p.valid {
		return "<" + p.allocType + "* (freed)>"
	}
	return "<" + p.allocType + "* -> " + p.target.Inspect() + ">"
}

func (p *PointerObj) IsValid() bool    { return p.valid }
func (p *PointerObj) AllocSize() int   { return p.allocSize }
func (p *PointerObj) AllocLine() int   { return p.allocLine }
func (p *PointerObj) AllocType() string { return p.allocType }
func (p *PointerObj) AllocFunc() string { return p.allocFunc }

// Deref returns the pointed-to value. Callers must check IsValid first;
// Deref on an invalid pointer returns Null rather than panicking, since
// the VM is responsible for raising the typed runtime error.
func (p *PointerObj) Deref() Value {
	if !p.valid || p.target == nil {
		return Null
	}
	return *p.target
}

// Store writes v into the pointed-to cell. No-op if invalid.
func (p *PointerObj) Store(v Value) {
	if !p.valid || p.target == nil {
		return
	}
	*p.target = v
}

// Free invalidates the pointer and drops its target, maintaining
// invariant 2. Double-free detection (raising on an already-invalid
// pointer) is the VM's responsibility since it owns diagnostics.
func (p *PointerObj) Free() {
	p.valid = false
	p.target = nil
}
