// Package bytecode implements the Chunk — a linear opcode+operand byte
// buffer with a parallel source-line sidecar and a flat constant pool —
// and the versioned on-disk serialization format for compiled
// functions. Grounded on original_source/include/chunk.h's field
// layout, rendered in the idiomatic Go byte-slice shape shown by
// other_examples/funvibe-funxy__chunk.go.
package bytecode

import (
	"encoding/binary"

	"github.com/tantrums-lang/tantrums/internal/report"
	"github.com/tantrums-lang/tantrums/object"
	"github.com/tantrums-lang/tantrums/op"
)

// ExceptionHandler describes one compiled try/catch region's bytecode
// offsets. Nothing in the toolchain fills or reads it: the compiler
// emits TRY_BEGIN with the absolute catch target as its operand, and
// the VM builds its handler records from that operand at run time.
type ExceptionHandler struct {
	TryStart   int
	CatchStart int
	TryEnd     int
}

// Chunk is the compiled form of one function body (or the top-level
// script). It is mutable during compilation (via the Emit* methods) and
// treated as read-only once handed to the VM.
type Chunk struct {
	Code       []byte
	Lines      []int // one entry per byte in Code
	Constants  []object.Value
	Name       string // for disassembly/trace labeling; "" for top-level
	LocalCount int    // frame slot count needed to run this chunk
	BuildID    string // stamped by the compiler for diagnostic correlation

	// LeaksAllowed and LeakRecords are stamped on the top-level chunk
	// only, by Compile, when --allow-memory-leaks demotes a compile-time
	// leak error to a warning. Not persisted by Save/Load — a loaded
	// bytecode file carries no source positions to re-derive them from.
	LeaksAllowed int
	LeakRecords  []report.Record
}

// NewChunk returns an empty chunk.
func NewChunk(name string) *Chunk {
	return &Chunk{Name: name}
}

// EmitByte appends a single raw byte, tagging it with line for the
// source sidecar.
func (c *Chunk) EmitByte(b byte, line int) int {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
	return len(c.Code) - 1
}

// EmitOp appends an opcode byte with no operands.
func (c *Chunk) EmitOp(code op.Code, line int) int {
	return c.EmitByte(byte(code), line)
}

// EmitOpByte appends an opcode followed by a single 1-byte operand,
// e.g. GET_LOCAL/SET_LOCAL slot indices or CALL's argc.
func (c *Chunk) EmitOpByte(code op.Code, operand byte, line int) int {
	pos := c.EmitOp(code, line)
	c.EmitByte(operand, line)
	return pos
}

// EmitOpUint16 appends an opcode followed by a 16-bit little-endian
// operand, e.g. CONSTANT's pool index or a jump offset.
func (c *Chunk) EmitOpUint16(code op.Code, operand uint16, line int) int {
	pos := c.EmitOp(code, line)
	c.emitUint16(operand, line)
	return pos
}

func (c *Chunk) emitUint16(v uint16, line int) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	c.EmitByte(buf[0], line)
	c.EmitByte(buf[1], line)
}

// PatchUint16 overwrites the 2-byte little-endian operand starting at
// pos, used to back-patch forward jump targets once they're known.
func (c *Chunk) PatchUint16(pos int, v uint16) {
	binary.LittleEndian.PutUint16(c.Code[pos:pos+2], v)
}

// ReadUint16 decodes the 2-byte little-endian operand starting at pos.
func (c *Chunk) ReadUint16(pos int) uint16 {
	return binary.LittleEndian.Uint16(c.Code[pos : pos+2])
}

// Len returns the number of bytes emitted so far; useful for computing
// jump offsets relative to the current tail.
func (c *Chunk) Len() int { return len(c.Code) }

// AddConstant appends v to the constant pool and returns its index.
// Neither Chunk nor the compiler checks the 65,536-constant ceiling
// (spec.md §4.B): past it, the returned index wraps to 16 bits.
func (c *Chunk) AddConstant(v object.Value) uint16 {
	c.Constants = append(c.Constants, v)
	return uint16(len(c.Constants) - 1)
}

// LineAt returns the source line recorded for the instruction byte at
// ip, used by the VM and disassembler to build stack traces.
func (c *Chunk) LineAt(ip int) int {
	if ip < 0 || ip >= len(c.Lines) {
		return 0
	}
	return c.Lines[ip]
}
