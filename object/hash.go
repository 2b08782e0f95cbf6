package object

import "math"

// Murmur3-style finalizer constants, applied exactly as the classic
// MurmurHash3 32-bit avalanche mix. Used both as the string hash and as
// the integer mixer spec.md calls for ("Integer and float values are
// finalized via an integer-Murmur mixer to avoid clustering for
// sequential keys"). This is a deliberate redesign versus
// original_source's FNV-1a: spec.md names the algorithm explicitly, and
// explicit spec text is followed over the original when the two
// disagree (see DESIGN.md).
func murmurFinalize32(h uint32) uint32 {
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}

// HashString computes the cached hash for a String object. The result
// is never zero, so that a caller (e.g. a future open-addressing table)
// may reserve zero for empty slots.
func HashString(s string) uint32 {
	var h uint32 = 2166136261 // FNV-1a offset basis; FNV-1a loop, avalanched below
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 0x1000193
	}
	h = murmurFinalize32(h)
	if h == 0 {
		h = 1
	}
	return h
}

// HashInt mixes an integer key through the same avalanche finalizer.
func HashInt(n int64) uint32 {
	u := uint64(n)
	h := murmurFinalize32(uint32(u)) ^ murmurFinalize32(uint32(u>>32))
	if h == 0 {
		h = 1
	}
	return h
}

// HashFloat mixes a float key by reinterpreting its bits and routing
// through HashInt, so that the same finalizer is used across numeric
// key types.
func HashFloat(f float64) uint32 {
	return HashInt(int64(math.Float64bits(f)))
}

// HashValue dispatches on v's tag: strings hash by content, numbers and
// bools by the integer-Murmur mixer, null to 0, and heap objects other
// than strings by pointer identity shifted right, per spec.md §4.A.
func HashValue(v Value) uint32 {
	switch v.Tag {
	case IntType:
		return HashInt(v.AsInt())
	case FloatType:
		return HashFloat(v.AsFloat())
	case BoolType:
		if v.AsBool() {
			return HashInt(1)
		}
		return HashInt(0)
	case NullType:
		return 0
	case StringType:
		if s, ok := v.Obj.(*StringObj); ok {
			return s.Hash()
		}
		return 0
	default:
		return hashPointerIdentity(v.Obj)
	}
}

// hashPointerIdentity hashes a heap Object by its identity. Go has no
// portable pointer-to-int cast outside unsafe, so identity is derived
// from a monotonically assigned id stamped on the object's header at
// allocation time instead of raw address bits; see Header.id in
// heap.go.
func hashPointerIdentity(o Object) uint32 {
	if o == nil {
		return 0
	}
	return murmurFinalize32(uint32(identityOf(o)) >> 1)
}
