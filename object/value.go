package object

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is the tagged union every Tantrums expression produces. It is
// copied by value; the Obj field is only meaningful when Tag ==
// PointerType's underlying object types (StringType/ListType/MapType/
// FunctionType/NativeType/PointerType/RangeType). Modeled after
// funvibe's Value{Type, Data, Obj} rather than a C-style union, since Go
// has no union types: the numeric payload lives in a single uint64 Bits
// field and is reinterpreted per Tag, while Obj carries the heap
// reference for object-tagged values.
type Value struct {
	Tag  Type
	Bits uint64 // reinterpreted as int64 or float64 bit pattern per Tag
	Obj  Object
}

// Int constructs an integer Value.
func Int(n int64) Value { return Value{Tag: IntType, Bits: uint64(n)} }

// Float constructs a float Value.
func Float(f float64) Value { return Value{Tag: FloatType, Bits: math.Float64bits(f)} }

// Bool constructs a boolean Value.
func Bool(b bool) Value {
	if b {
		return Value{Tag: BoolType, Bits: 1}
	}
	return Value{Tag: BoolType, Bits: 0}
}

// Null is the singleton null Value.
var Null = Value{Tag: NullType}

// FromObject wraps a heap Object in a Value tagged with the object's
// own type.
func FromObject(o Object) Value {
	if o == nil {
		return Null
	}
	return Value{Tag: o.Type(), Obj: o}
}

func (v Value) AsInt() int64     { return int64(v.Bits) }
func (v Value) AsFloat() float64 { return math.Float64frombits(v.Bits) }
func (v Value) AsBool() bool     { return v.Bits != 0 }

func (v Value) IsNull() bool   { return v.Tag == NullType }
func (v Value) IsHeap() bool   { return v.Obj != nil }
func (v Value) IsNumber() bool { return v.Tag == IntType || v.Tag == FloatType }

// AsFloat64 promotes an Int or Float value to float64; other tags
// return 0 and are guarded by the caller via IsNumber.
func (v Value) AsFloat64() float64 {
	if v.Tag == IntType {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

// TypeName returns the dynamic type name used in diagnostics and by the
// `type` builtin.
func (v Value) TypeName() string {
	if v.Obj != nil {
		return v.Tag.String()
	}
	return v.Tag.String()
}

// IsTruthy implements the VM's boolean-coercion rule: only an explicit
// boolean true is truthy; every other type raises at the call site
// (JUMP_IF_FALSE and NOT both require booleans per spec) — this helper
// exists for contexts (like CLI summaries) that want a best-effort
// truthiness rather than a raise.
func (v Value) IsTruthy() bool {
	switch v.Tag {
	case BoolType:
		return v.AsBool()
	case NullType:
		return false
	default:
		return true
	}
}

// Equal implements value equality: numeric equality follows host
// arithmetic (float==int is never permitted, per spec — they must share
// a tag), strings compare by content, other heap objects compare by
// identity.
func Equal(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case IntType:
		return a.AsInt() == b.AsInt()
	case FloatType:
		return a.AsFloat() == b.AsFloat()
	case BoolType:
		return a.AsBool() == b.AsBool()
	case NullType:
		return true
	case StringType:
		as, aok := a.Obj.(*StringObj)
		bs, bok := b.Obj.(*StringObj)
		if !aok || !bok {
			return a.Obj == b.Obj
		}
		return as.Value() == bs.Value()
	default:
		return a.Obj == b.Obj
	}
}

// Inspect renders v the way the `print` builtin and value_print render
// values: ints and floats via Go's numeric formatting (%g for floats,
// resolving spec's open float-format question), booleans/null as their
// literal words, and heap objects via their own Inspect method.
func (v Value) Inspect() string {
	switch v.Tag {
	case IntType:
		return strconv.FormatInt(v.AsInt(), 10)
	case FloatType:
		return formatFloat(v.AsFloat())
	case BoolType:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case NullType:
		return "null"
	default:
		if v.Obj != nil {
			return v.Obj.Inspect()
		}
		return "null"
	}
}

// formatFloat matches the original implementation's value_print: the
// %g verb, which trims trailing zeros and switches to exponential form
// for extreme magnitudes.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// String satisfies fmt.Stringer for debugging convenience (logging,
// %v formatting); production output always goes through Inspect via
// the `print` builtin.
func (v Value) String() string {
	return fmt.Sprintf("%s(%s)", v.Tag, v.Inspect())
}

// Stringify converts v to a string without requiring it already be one,
// used by ADD's auto-convert rule when one side of a `+` is a string and
// the other is not.
func Stringify(v Value) string {
	return v.Inspect()
}

// TrimForBoolCast implements CAST's string->bool rule: the literal
// words "true"/"false" are special-cased (case-sensitive, matching the
// original C++ strcmp checks), and otherwise any string with
// non-whitespace content casts to true; a blank or empty string casts
// to false.
func TrimForBoolCast(s string) bool {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return strings.TrimSpace(s) != ""
}
