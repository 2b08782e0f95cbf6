// Package object implements the Tantrums value and heap-object model: a
// tagged Value union over int/float/bool/null/heap-pointer, and the
// heap Object variants (String, List, Map, Function, Native, Pointer,
// Range) that share a common Header for reference counting, escape
// tracking, and intrusive-list membership.
package object

import "fmt"

// Type identifies the variant of a Value or Object.
type Type int

const (
	IntType Type = iota
	FloatType
	BoolType
	NullType
	StringType
	ListType
	MapType
	FunctionType
	NativeType
	PointerType
	RangeType
)

func (t Type) String() string {
	switch t {
	case IntType:
		return "int"
	case FloatType:
		return "float"
	case BoolType:
		return "bool"
	case NullType:
		return "null"
	case StringType:
		return "string"
	case ListType:
		return "list"
	case MapType:
		return "map"
	case FunctionType:
		return "function"
	case NativeType:
		return "native"
	case PointerType:
		return "pointer"
	case RangeType:
		return "range"
	default:
		return "unknown"
	}
}

// Object is any heap-allocated entity. Every concrete variant embeds a
// Header, which Object exposes so the VM's scope reaper and bulk
// teardown can walk the intrusive list and flip escape/manual bits
// without a type switch.
type Object interface {
	Type() Type
	Inspect() string
	header() *Header
}

// Header is the common prefix every heap Object carries: its type tag
// (redundant with Type() but cheap to keep alongside refcount for
// reaper scans), reference count, manual-management flag, mark bit
// (reserved for a future GC pass, never set today), escape flag,
// creation scope depth, auto-manage flag, and the intrusive next-link.
type Header struct {
	Tag        Type
	Refcount   int
	Manual     bool
	Marked     bool
	Escaped    bool
	ScopeDepth int
	AutoManage bool
	id         uint64
	next       Object
}

func (h *Header) header() *Header { return h }

// Incref and Decref adjust the advisory reference count. Decref never
// frees; release happens only via explicit Free, the scope reaper, or
// bulk teardown (spec invariant: final release is always one of those
// three paths).
func Incref(o Object) {
	if o == nil {
		return
	}
	o.header().Refcount++
}

func Decref(o Object) {
	if o == nil {
		return
	}
	h := o.header()
	if h.Refcount > 0 {
		h.Refcount--
	}
}

// Refcount returns the advisory reference count of o.
func Refcount(o Object) int {
	if o == nil {
		return 0
	}
	return o.header().Refcount
}

// MarkEscaped monotonically flips the escape bit. Once true it never
// reverts to false.
func MarkEscaped(o Object) {
	if o == nil {
		return
	}
	o.header().Escaped = true
}

// IsEscaped reports the object's current escape state.
func IsEscaped(o Object) bool {
	if o == nil {
		return false
	}
	return o.header().Escaped
}

// IsManual reports whether o is exempt from the scope reaper because it
// is under explicit management. Bulk teardown still releases it.
func IsManual(o Object) bool {
	if o == nil {
		return false
	}
	return o.header().Manual
}

// ScopeDepth returns the scope depth at which o was created.
func ScopeDepth(o Object) int {
	if o == nil {
		return 0
	}
	return o.header().ScopeDepth
}

// AutoManage reports whether o participates in the scope reaper.
func AutoManage(o Object) bool {
	if o == nil {
		return false
	}
	return o.header().AutoManage
}

// SetScopeDepth stamps the lexical scope depth o was created at. Called
// once, at allocation time, by the VM.
func SetScopeDepth(o Object, depth int) {
	if o == nil {
		return
	}
	o.header().ScopeDepth = depth
}

// SetAutoManage flips whether o participates in the scope reaper.
func SetAutoManage(o Object, auto bool) {
	if o == nil {
		return
	}
	o.header().AutoManage = auto
}

// Next returns the intrusive-list successor of o.
func Next(o Object) Object {
	if o == nil {
		return nil
	}
	return o.header().next
}

// SetNext sets the intrusive-list successor of o.
func SetNext(o Object, next Object) {
	if o == nil {
		return
	}
	o.header().next = next
}

// ReclaimableByReaper reports whether o matches the scope reaper's
// release predicate for exiting to scope depth newDepth: its creation
// depth exceeds newDepth, it has not escaped, it is not manual, it is
// under auto-manage, and its type is one the reaper is responsible for
// (Pointer, List, Map).
func ReclaimableByReaper(o Object, newDepth int) bool {
	if o == nil {
		return false
	}
	h := o.header()
	if h.ScopeDepth <= newDepth {
		return false
	}
	if h.Escaped || h.Manual || !h.AutoManage {
		return false
	}
	switch h.Tag {
	case PointerType, ListType, MapType:
		return true
	default:
		return false
	}
}

// errorf is a small convenience used throughout the package for
// building *RuntimeTypeError-free, plain Go error values returned by
// Object construction helpers such as type coercions.
func errorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
