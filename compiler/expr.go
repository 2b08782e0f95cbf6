package compiler

import (
	"github.com/tantrums-lang/tantrums/ast"
	"github.com/tantrums-lang/tantrums/object"
	"github.com/tantrums-lang/tantrums/op"
)

// compileExpression lowers e, leaving exactly one value on the stack.
func (c *Compiler) compileExpression(e ast.Expression) {
	switch ex := e.(type) {
	case *ast.IntLiteral:
		c.emitConstant(object.Int(ex.Value), ex.Line())
	case *ast.FloatLiteral:
		c.emitConstant(object.Float(ex.Value), ex.Line())
	case *ast.StringLiteral:
		c.emitConstant(object.FromObject(object.NewString(ex.Value)), ex.Line())
	case *ast.BoolLiteral:
		if ex.Value {
			c.emit(op.True, ex.Line())
		} else {
			c.emit(op.False, ex.Line())
		}
	case *ast.NullLiteral:
		c.emit(op.Null, ex.Line())
	case *ast.Identifier:
		c.compileIdentifierRead(ex)
	case *ast.ListLiteral:
		c.compileListLiteral(ex)
	case *ast.MapLiteral:
		c.compileMapLiteral(ex)
	case *ast.BinaryExpr:
		c.compileBinaryExpr(ex)
	case *ast.UnaryExpr:
		c.compileUnaryExpr(ex)
	case *ast.AssignExpr:
		c.compileAssignExpr(ex)
	case *ast.CompoundAssignExpr:
		c.compileCompoundAssignExpr(ex)
	case *ast.CallExpr:
		c.compileCallExpr(ex)
	case *ast.IndexExpr:
		c.compileExpression(ex.Receiver)
		c.compileExpression(ex.Index)
		c.emit(op.IndexGet, ex.Line())
	case *ast.AllocExpr:
		c.compileAllocExpr(ex)
	case *ast.PtrRefExpr:
		c.compilePtrRefExpr(ex)
	case *ast.PtrDerefExpr:
		c.compileExpression(ex.Operand)
		c.emit(op.PtrDeref, ex.Line())
	case *ast.PtrSetExpr:
		c.compileExpression(ex.Target)
		c.compileExpression(ex.Value)
		c.emit(op.PtrSet, ex.Line())
	default:
		c.addError(e.Line(), "internal: unhandled expression %T", e)
	}
}

func (c *Compiler) compileIdentifierRead(id *ast.Identifier) {
	if lc, ok := c.resolveLocal(id.Name); ok {
		c.emitByte(op.GetLocal, byte(lc.slot), id.Line())
		lc.isUsed = true
		return
	}
	if c.cfg.Mode == Static && !c.globals[id.Name] && c.sigs[id.Name] == nil {
		c.addError(id.Line(), "undefined identifier %q", id.Name)
		c.emit(op.Null, id.Line())
		return
	}
	// Outside static mode an unknown name is left to GET_GLOBAL, which
	// reports an undefined global at run time.
	idx := c.addConstant(object.FromObject(object.NewString(id.Name)))
	c.emitUint16(op.GetGlobal, idx, id.Line())
}

func (c *Compiler) compileListLiteral(ex *ast.ListLiteral) {
	for _, el := range ex.Elements {
		c.compileExpression(el)
	}
	c.emitUint16(op.ListNew, uint16(len(ex.Elements)), ex.Line())
}

func (c *Compiler) compileMapLiteral(ex *ast.MapLiteral) {
	for _, entry := range ex.Entries {
		c.compileExpression(entry.Key)
		c.compileExpression(entry.Value)
	}
	c.emitUint16(op.MapNew, uint16(len(ex.Entries)), ex.Line())
}

var binaryOps = map[string]op.Code{
	"+": op.Add, "-": op.Sub, "*": op.Mul, "/": op.Div, "%": op.Mod,
	"==": op.Equal, "!=": op.NotEqual,
	"<": op.Less, ">": op.Greater, "<=": op.LessEqual, ">=": op.GreaterEqual,
}

func (c *Compiler) compileBinaryExpr(ex *ast.BinaryExpr) {
	if ex.Op == "&&" || ex.Op == "||" {
		c.compileShortCircuit(ex)
		return
	}
	leftType := c.inferType(ex.Left)
	rightType := c.inferType(ex.Right)
	if c.cfg.Mode != Dynamic {
		c.checkBinaryTypes(ex, leftType, rightType)
	}
	c.compileExpression(ex.Left)
	c.compileExpression(ex.Right)
	code, ok := binaryOps[ex.Op]
	if !ok {
		c.addError(ex.Line(), "internal: unknown binary operator %q", ex.Op)
		return
	}
	c.emit(code, ex.Line())
}

func (c *Compiler) checkBinaryTypes(ex *ast.BinaryExpr, leftType, rightType string) {
	if isComparisonOp(ex.Op) {
		return
	}
	if ex.Op == "+" && (leftType == "string" || rightType == "string") {
		return
	}
	if leftType == unknownType || rightType == unknownType {
		return
	}
	if !isNumericType(leftType) || !isNumericType(rightType) {
		c.addError(ex.Line(), "operator %q requires numeric operands, got %s and %s", ex.Op, leftType, rightType)
	}
}

// compileShortCircuit lowers && and || via JUMP_IF_FALSE / JUMP so the
// right operand is only evaluated when necessary.
func (c *Compiler) compileShortCircuit(ex *ast.BinaryExpr) {
	c.compileExpression(ex.Left)
	elseJump := c.emitJump(op.JumpIfFalse, ex.Line())
	if ex.Op == "&&" {
		c.compileExpression(ex.Right)
	} else {
		c.emit(op.True, ex.Line())
	}
	end := c.emitJump(op.Jump, ex.Line())
	c.patchJumpToHere(elseJump)
	if ex.Op == "&&" {
		c.emit(op.False, ex.Line())
	} else {
		c.compileExpression(ex.Right)
	}
	c.patchJumpToHere(end)
}

func (c *Compiler) compileUnaryExpr(ex *ast.UnaryExpr) {
	c.compileExpression(ex.Operand)
	switch ex.Op {
	case "-":
		c.emit(op.Negate, ex.Line())
	case "!":
		c.emit(op.Not, ex.Line())
	default:
		c.addError(ex.Line(), "internal: unknown unary operator %q", ex.Op)
	}
}

// compileAssignExpr handles `target = value`, leaving the stored value
// on the stack as the expression's result.
func (c *Compiler) compileAssignExpr(ex *ast.AssignExpr) {
	switch target := ex.Target.(type) {
	case *ast.Identifier:
		c.compileExpression(ex.Value)
		c.storeIdentifier(target, ex.Line())
	case *ast.IndexExpr:
		c.compileExpression(target.Receiver)
		c.compileExpression(target.Index)
		c.compileExpression(ex.Value)
		c.emit(op.IndexSet, ex.Line())
	default:
		c.addError(ex.Line(), "invalid assignment target")
	}
}

func (c *Compiler) storeIdentifier(id *ast.Identifier, line int) {
	if lc, ok := c.resolveLocal(id.Name); ok {
		c.emitByte(op.SetLocal, byte(lc.slot), line)
		return
	}
	if c.globals[id.Name] {
		idx := c.addConstant(object.FromObject(object.NewString(id.Name)))
		c.emitUint16(op.SetGlobal, idx, line)
		return
	}
	c.addError(line, "undefined identifier %q", id.Name)
}

// compileCompoundAssignExpr desugars `target op= value` / `target++` /
// `target--`. Identifier targets re-read cleanly; indexed targets
// (`list[i] += v`) are supported in prefix form only — postfix on an
// indexed target would need a stack swap the bytecode has no opcode
// for, so it is rejected with a compile error instead of silently
// mis-evaluating.
func (c *Compiler) compileCompoundAssignExpr(ex *ast.CompoundAssignExpr) {
	line := ex.Line()
	arith := arithForCompound(ex.Op)

	switch target := ex.Target.(type) {
	case *ast.Identifier:
		if ex.IsPostfix {
			c.compileIdentifierRead(target) // old value: final result
			c.compileIdentifierRead(target)
			c.pushCompoundOperand(ex, line)
			c.emit(arith, line)
			c.storeIdentifier(target, line)
			c.emitByte(op.Pop, 0, line) // discard the duplicate "new"
			return
		}
		c.compileIdentifierRead(target)
		c.pushCompoundOperand(ex, line)
		c.emit(arith, line)
		c.storeIdentifier(target, line)

	case *ast.IndexExpr:
		if ex.IsPostfix {
			c.addError(line, "postfix ++/-- on an indexed target is not supported")
			return
		}
		c.compileExpression(target.Receiver)
		c.compileExpression(target.Index)
		c.compileExpression(target.Receiver)
		c.compileExpression(target.Index)
		c.emit(op.IndexGet, line)
		c.pushCompoundOperand(ex, line)
		c.emit(arith, line)
		c.emit(op.IndexSet, line)

	default:
		c.addError(line, "invalid compound-assignment target")
	}
}

func (c *Compiler) pushCompoundOperand(ex *ast.CompoundAssignExpr, line int) {
	if ex.Value != nil {
		c.compileExpression(ex.Value)
		return
	}
	c.emitConstant(object.Int(1), line)
}

func arithForCompound(opStr string) op.Code {
	switch opStr {
	case "-":
		return op.Sub
	case "*":
		return op.Mul
	case "/":
		return op.Div
	default:
		return op.Add
	}
}

var castFns = map[string]op.CastTag{
	"int": op.CastInt, "float": op.CastFloat, "string": op.CastString, "bool": op.CastBool,
}

func (c *Compiler) compileCallExpr(ex *ast.CallExpr) {
	if id, ok := ex.Callee.(*ast.Identifier); ok {
		if tag, isCast := castFns[id.Name]; isCast && len(ex.Args) == 1 {
			c.compileExpression(ex.Args[0])
			c.emitByte(op.Cast, byte(tag), ex.Line())
			return
		}
		if sig, known := c.sigs[id.Name]; known {
			c.checkCallArity(ex, sig)
		}
	}
	c.compileExpression(ex.Callee)
	for _, arg := range ex.Args {
		c.compileExpression(arg)
	}
	c.emitByte(op.Call, byte(len(ex.Args)), ex.Line())
}

func (c *Compiler) checkCallArity(ex *ast.CallExpr, sig *funcSig) {
	if len(ex.Args) != len(sig.ParamTypes) {
		// Outside static mode the VM's CALL reports the arity mismatch.
		if c.cfg.Mode == Static {
			c.addError(ex.Line(), "function %q expects %d argument(s), got %d", sig.Name, len(sig.ParamTypes), len(ex.Args))
		}
		return
	}
	if c.cfg.Mode == Dynamic {
		return
	}
	for i, arg := range ex.Args {
		want := sig.ParamTypes[i]
		if want == "" {
			continue
		}
		got := c.inferType(arg)
		if !typesCompatible(want, got) {
			c.addError(arg.Line(), "argument %d of %q expects %s, got %s", i+1, sig.Name, want, got)
		}
	}
}

// compileAllocExpr lowers an `alloc T(init)` expression and returns the
// chunk position of ALLOC's auto-manage operand byte, defaulting to 0
// (not auto-managed). A caller that later determines the allocation is
// provably local (e.g. compileLetDecl, once escape analysis runs) can
// patch that byte in place, the same way patchJumpToHere back-patches a
// forward jump target.
func (c *Compiler) compileAllocExpr(ex *ast.AllocExpr) int {
	c.compileExpression(ex.Init)
	nameIdx := c.addConstant(object.FromObject(object.NewString(ex.TypeName)))
	c.emitUint16(op.Alloc, nameIdx, ex.Line())
	return c.cur.chunk.EmitByte(0, ex.Line())
}

// patchAutoManage overwrites the auto-manage byte ALLOC emitted at pos.
func (c *Compiler) patchAutoManage(pos int, autoManage bool) {
	var b byte
	if autoManage {
		b = 1
	}
	c.cur.chunk.Code[pos] = b
}

// compilePtrRefExpr handles `&x` for a plain local variable, producing
// a pointer object that aliases that local's storage slot.
func (c *Compiler) compilePtrRefExpr(ex *ast.PtrRefExpr) {
	id, ok := ex.Operand.(*ast.Identifier)
	if !ok {
		c.addError(ex.Line(), "'&' can only be applied to a variable")
		c.compileExpression(ex.Operand)
		return
	}
	lc, ok := c.resolveLocal(id.Name)
	if !ok {
		c.addError(ex.Line(), "'&' can only be applied to a local variable, %q is not local", id.Name)
		return
	}
	c.emitByte(op.PtrRef, byte(lc.slot), ex.Line())
}

// inferType performs the compiler's lightweight static type inference,
// used for static/both-mode checking; it returns unknownType wherever
// dynamic-mode semantics make the answer meaningless.
func (c *Compiler) inferType(e ast.Expression) string {
	switch ex := e.(type) {
	case *ast.IntLiteral:
		return "int"
	case *ast.FloatLiteral:
		return "float"
	case *ast.StringLiteral:
		return "string"
	case *ast.BoolLiteral:
		return "bool"
	case *ast.NullLiteral:
		return "null"
	case *ast.Identifier:
		if lc, ok := c.resolveLocal(ex.Name); ok {
			return lc.typ
		}
		return unknownType
	case *ast.BinaryExpr:
		if isComparisonOp(ex.Op) || ex.Op == "&&" || ex.Op == "||" {
			return "bool"
		}
		return promote(ex.Op, c.inferType(ex.Left), c.inferType(ex.Right))
	case *ast.UnaryExpr:
		if ex.Op == "!" {
			return "bool"
		}
		return c.inferType(ex.Operand)
	case *ast.CallExpr:
		if id, ok := ex.Callee.(*ast.Identifier); ok {
			if _, isCast := castFns[id.Name]; isCast {
				return id.Name
			}
			if sig, known := c.sigs[id.Name]; known && sig.HasReturnType {
				return sig.ReturnType
			}
		}
		return unknownType
	case *ast.AllocExpr:
		return ex.TypeName + "*"
	case *ast.PtrRefExpr:
		return c.inferType(ex.Operand) + "*"
	case *ast.PtrDerefExpr:
		return pointeeType(c.inferType(ex.Operand))
	case *ast.AssignExpr:
		return c.inferType(ex.Target)
	case *ast.CompoundAssignExpr:
		return c.inferType(ex.Target)
	default:
		return unknownType
	}
}
