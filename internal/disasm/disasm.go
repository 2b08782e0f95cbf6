// Package disasm renders a compiled Chunk as human-readable text, for
// the CLI's --dis flag and for debugging the compiler itself. Built on
// encoding/binary's decode already done by Chunk.ReadUint16, plus
// fmt.Fprintf — a text renderer over a format entirely owned by this
// module has no third-party analogue in the example pack worth
// reaching for, so it stays on the standard library (see DESIGN.md).
package disasm

import (
	"fmt"
	"io"

	"github.com/tantrums-lang/tantrums/bytecode"
	"github.com/tantrums-lang/tantrums/object"
	"github.com/tantrums-lang/tantrums/op"
)

// Chunk writes a disassembly of c to w, labeled with its name.
func Chunk(w io.Writer, c *bytecode.Chunk) {
	fmt.Fprintf(w, "== %s ==\n", displayName(c.Name))
	for ip := 0; ip < len(c.Code); {
		ip = instruction(w, c, ip)
	}
	for i, k := range c.Constants {
		if fn, ok := k.Obj.(*object.FunctionObj); ok {
			if inner, ok := fn.Chunk().(*bytecode.Chunk); ok {
				fmt.Fprintln(w)
				Chunk(w, inner)
				_ = i
			}
		}
	}
}

func displayName(name string) string {
	if name == "" {
		return "script"
	}
	return name
}

func instruction(w io.Writer, c *bytecode.Chunk, ip int) int {
	code := op.Code(c.Code[ip])
	line := c.LineAt(ip)
	fmt.Fprintf(w, "%04d %4d %-14s", ip, line, code.String())

	switch code {
	case op.Constant:
		idx := c.ReadUint16(ip + 1)
		fmt.Fprintf(w, " %5d '%s'\n", idx, c.Constants[idx].Inspect())
		return ip + 3
	case op.GetLocal, op.SetLocal, op.Call, op.PtrRef, op.EnterScope:
		fmt.Fprintf(w, " %5d\n", c.Code[ip+1])
		return ip + 2
	case op.Cast:
		fmt.Fprintf(w, " %5d\n", c.Code[ip+1])
		return ip + 2
	case op.Jump, op.JumpIfFalse, op.Loop, op.TryBegin:
		target := c.ReadUint16(ip + 1)
		fmt.Fprintf(w, " -> %d\n", target)
		return ip + 3
	case op.GetGlobal, op.SetGlobal, op.DefineGlobal:
		idx := c.ReadUint16(ip + 1)
		name := ""
		if s, ok := c.Constants[idx].Obj.(*object.StringObj); ok {
			name = s.Value()
		}
		fmt.Fprintf(w, " %5d '%s'\n", idx, name)
		return ip + 3
	case op.ListNew, op.MapNew:
		fmt.Fprintf(w, " %5d\n", c.ReadUint16(ip+1))
		return ip + 3
	case op.Alloc:
		idx := c.ReadUint16(ip + 1)
		name := ""
		if s, ok := c.Constants[idx].Obj.(*object.StringObj); ok {
			name = s.Value()
		}
		fmt.Fprintf(w, " %5d '%s'\n", idx, name)
		return ip + 4
	case op.ForInStep:
		fmt.Fprintf(w, " iter=%d len=%d ctr=%d\n", c.Code[ip+1], c.Code[ip+2], c.Code[ip+3])
		return ip + 4
	default:
		fmt.Fprintln(w)
		return ip + 1
	}
}
