package object

// RangeObj is the heap Range variant: an integer start/end/step plus a
// precomputed length, matching spec.md's description. Ranges are
// immutable once constructed.
type RangeObj struct {
	Header
	start, end, step int64
	length           int64
}

// NewRange constructs a range. A step of zero is rejected by the
// `range` builtin before construction per DESIGN.md's Open Question
// resolution; NewRange itself gives a zero-length range for step 0.
func NewRange(start, end, step int64) *RangeObj {
	length := rangeLength(start, end, step)
	obj := &RangeObj{start: start, end: end, step: step, length: length}
	obj.Tag = RangeType
	return obj
}

func rangeLength(start, end, step int64) int64 {
	if step == 0 {
		return 0
	}
	if step > 0 {
		if end <= start {
			return 0
		}
		return (end - start + step - 1) / step
	}
	if end >= start {
		return 0
	}
	return (start - end - step - 1) / (-step)
}

func (r *RangeObj) Type() Type { return RangeType }

func (r *RangeObj) Inspect() string {
	return "<range>"
}

func (r *RangeObj) Len() int64  { return r.length }
func (r *RangeObj) Start() int64 { return r.start }
func (r *RangeObj) Step() int64  { return r.step }
func (r *RangeObj) End() int64   { return r.end }

// At returns the i-th value of the range (0-based), or (0,false) if out
// of bounds, used by FOR_IN_STEP and by INDEX_GET on a range.
func (r *RangeObj) At(i int64) (int64, bool) {
	if i < 0 || i >= r.length {
		return 0, false
	}
	return r.start + i*r.step, true
}

// ToList materializes the range as a list, used by ADD when either
// operand of a list/range concatenation is a range.
func (r *RangeObj) ToList() *ListObj {
	items := make([]Value, 0, r.length)
	for i := int64(0); i < r.length; i++ {
		v, _ := r.At(i)
		items = append(items, Int(v))
	}
	return NewList(items)
}
