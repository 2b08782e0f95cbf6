// Package op defines the Tantrums bytecode instruction set.
package op

// Code identifies a single bytecode instruction. A Chunk's Code buffer is
// a flat byte stream of Code values interleaved with their operand bytes.
type Code byte

const (
	Nop Code = iota

	// Constants and literals
	Constant
	Null
	True
	False

	// Arithmetic
	Add
	Sub
	Mul
	Div
	Mod
	Negate

	// Comparison and logic
	Equal
	NotEqual
	Less
	Greater
	LessEqual
	GreaterEqual
	Not

	// Stack bookkeeping
	Pop

	// Locals and globals
	GetLocal
	SetLocal
	GetGlobal
	SetGlobal
	DefineGlobal

	// Control flow
	Jump
	JumpIfFalse
	Loop

	// Calls
	Call
	Return

	// Collections
	ListNew
	MapNew
	IndexGet
	IndexSet
	Length

	// Heap pointers
	Alloc
	Free
	PtrRef
	PtrDeref
	PtrSet

	// Casting
	Cast

	// Exceptions
	Throw
	TryBegin
	TryEnd

	// Scopes and iteration
	EnterScope
	ExitScope
	ForInStep

	// Termination
	Halt
)

// CastTag selects the target type of a CAST instruction's single operand
// byte.
type CastTag byte

const (
	CastInt CastTag = iota
	CastFloat
	CastString
	CastBool
)

// OperandWidth describes how many operand bytes follow an opcode, beyond
// the opcode byte itself. A width of -1 means variable (decoded by the
// instruction itself, e.g. ForInStep has three 1-byte slot operands baked
// into a fixed 3-byte tail, so it is not actually variable — kept for
// extensibility only).
type OperandWidth int

// Info describes one opcode: its mnemonic and the byte width of its
// operand(s), used by the disassembler and by the compiler's emitters.
type Info struct {
	Name          string
	OperandWidths []int // byte widths of each operand, in order
}

var infoTable = map[Code]Info{
	Nop:          {"NOP", nil},
	Constant:     {"CONSTANT", []int{2}},
	Null:         {"NULL", nil},
	True:         {"TRUE", nil},
	False:        {"FALSE", nil},
	Add:          {"ADD", nil},
	Sub:          {"SUB", nil},
	Mul:          {"MUL", nil},
	Div:          {"DIV", nil},
	Mod:          {"MOD", nil},
	Negate:       {"NEGATE", nil},
	Equal:        {"EQUAL", nil},
	NotEqual:     {"NOT_EQUAL", nil},
	Less:         {"LESS", nil},
	Greater:      {"GREATER", nil},
	LessEqual:    {"LESS_EQUAL", nil},
	GreaterEqual: {"GREATER_EQUAL", nil},
	Not:          {"NOT", nil},
	Pop:          {"POP", nil},
	GetLocal:     {"GET_LOCAL", []int{1}},
	SetLocal:     {"SET_LOCAL", []int{1}},
	GetGlobal:    {"GET_GLOBAL", []int{2}},
	SetGlobal:    {"SET_GLOBAL", []int{2}},
	DefineGlobal: {"DEFINE_GLOBAL", []int{2}},
	Jump:         {"JUMP", []int{2}},
	JumpIfFalse:  {"JUMP_IF_FALSE", []int{2}},
	Loop:         {"LOOP", []int{2}},
	Call:         {"CALL", []int{1}},
	Return:       {"RETURN", nil},
	ListNew:      {"LIST_NEW", []int{2}},
	MapNew:       {"MAP_NEW", []int{2}},
	IndexGet:     {"INDEX_GET", nil},
	IndexSet:     {"INDEX_SET", nil},
	Length:       {"LENGTH", nil},
	Alloc:        {"ALLOC", []int{2, 1}},
	Free:         {"FREE", nil},
	PtrRef:       {"PTR_REF", []int{1}},
	PtrDeref:     {"PTR_DEREF", nil},
	PtrSet:       {"PTR_SET", nil},
	Cast:         {"CAST", []int{1}},
	Throw:        {"THROW", nil},
	TryBegin:     {"TRY_BEGIN", []int{2}},
	TryEnd:       {"TRY_END", nil},
	EnterScope:   {"ENTER_SCOPE", []int{1}},
	ExitScope:    {"EXIT_SCOPE", nil},
	ForInStep:    {"FOR_IN_STEP", []int{1, 1, 1}},
	Halt:         {"HALT", nil},
}

// GetInfo returns the Info record for op, or a fallback "UNKNOWN" record
// if op is not a recognized instruction.
func GetInfo(code Code) Info {
	if info, ok := infoTable[code]; ok {
		return info
	}
	return Info{Name: "UNKNOWN", OperandWidths: nil}
}

// Width returns the total number of operand bytes for op (not including
// the opcode byte itself).
func Width(code Code) int {
	info := GetInfo(code)
	total := 0
	for _, w := range info.OperandWidths {
		total += w
	}
	return total
}

func (c Code) String() string {
	return GetInfo(c).Name
}
