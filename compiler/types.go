package compiler

// Type names used throughout the compiler are plain strings ("int",
// "float", "bool", "string", "void", "unknown", or a pointer spelling
// like "int*"), matching original_source/src/compiler.cpp's use of
// fixed-size char buffers for the same purpose.

const unknownType = "unknown"

func isPointerType(t string) bool {
	return len(t) > 0 && t[len(t)-1] == '*'
}

func pointeeType(t string) string {
	if isPointerType(t) {
		return t[:len(t)-1]
	}
	return t
}

// typesCompatible implements spec.md's promotion lattice: an empty
// expected type (dynamic/unannotated) accepts anything; exact matches
// are always fine; int promotes to float; null is compatible with any
// pointer type and with "unknown".
func typesCompatible(expected, actual string) bool {
	if expected == "" || expected == unknownType {
		return true
	}
	if expected == actual {
		return true
	}
	if expected == "float" && actual == "int" {
		return true
	}
	if actual == "null" && (isPointerType(expected) || expected == unknownType) {
		return true
	}
	return false
}

// promote returns the result type of a binary numeric/string operation
// between a and b per spec.md's promotion rules: comparisons handled
// by the caller (always bool); here we only handle +,-,*,/,%.
func promote(op, a, b string) string {
	if op == "+" && (a == "string" || b == "string") {
		return "string"
	}
	if a == "float" || b == "float" {
		return "float"
	}
	if a == "int" && b == "int" {
		return "int"
	}
	return unknownType
}

func isComparisonOp(op string) bool {
	switch op {
	case "==", "!=", "<", ">", "<=", ">=":
		return true
	default:
		return false
	}
}

func isNumericType(t string) bool {
	return t == "int" || t == "float"
}
