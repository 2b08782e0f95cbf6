// Package compiler lowers a Tantrums ast.Program into bytecode, folding
// in mode-gated type checking, a pre-scan pass over function
// signatures, per-local escape analysis, and control-flow validation.
// Grounded on original_source/src/compiler.cpp for the algorithmic
// shape (Local tracking, scope boundary emission, escape analysis) and
// on the teacher's compiler/compiler.go for Go idiom (a Compiler struct
// with a `current` state pointer and a Config for options).
package compiler

import (
	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/tantrums-lang/tantrums/ast"
	"github.com/tantrums-lang/tantrums/bytecode"
	"github.com/tantrums-lang/tantrums/internal/report"
	"github.com/tantrums-lang/tantrums/object"
	"github.com/tantrums-lang/tantrums/op"
)

// Mode selects the compile discipline, per spec.md §4.C.
type Mode int

const (
	Static Mode = iota
	Dynamic
	Both
)

// ParseMode maps a directive/CLI string to a Mode, defaulting to Both
// for anything unrecognized.
func ParseMode(s string) Mode {
	switch s {
	case "static":
		return Static
	case "dynamic":
		return Dynamic
	default:
		return Both
	}
}

// Config bundles the compile-time options that would otherwise be
// scattered across function arguments.
type Config struct {
	Mode             Mode
	AutoFreeDefault  bool
	AllowMemoryLeaks bool
	Filename         string
	Logger           zerolog.Logger
}

type funcSig struct {
	Name          string
	ReturnType    string
	HasReturnType bool
	ParamTypes    []string
}

type local struct {
	name       string
	depth      int
	typ        string
	slot       int
	isUsed     bool
	holdsAlloc bool
	autoFree   bool
	declLine   int
}

type loopRecord struct {
	isForIn        bool
	scopeDepth     int
	loopStart      int
	breaks         []int
	continues      []int
	localsAtEntry  int
}

type funcState struct {
	chunk      *bytecode.Chunk
	locals     []local
	scopeDepth int
	nextSlot   int
	loops      []*loopRecord
	funcName   string
	returnType string
	hasReturnType bool
	bodyStmts  []ast.Statement // scanned forward by escape analysis
}

// Compiler holds the state shared across an entire compile: the
// function-signature table from the pre-scan pass, the set of declared
// global names, the current function being lowered, and the
// accumulated multierror.
type Compiler struct {
	cfg          Config
	sigs         map[string]*funcSig
	globals      map[string]bool
	cur          *funcState
	errs         *multierror.Error
	buildID      string
	leakRecords  []report.Record
}

// Compile lowers prog into a top-level *object.FunctionObj under cfg.
// It returns a non-nil error (a *multierror.Error) iff any compile
// error was recorded; per spec.md §7, compilation returns no script
// when any error was recorded.
func Compile(prog *ast.Program, cfg Config) (*object.FunctionObj, error) {
	id, _ := uuid.NewV4()
	c := &Compiler{
		cfg:     cfg,
		sigs:    map[string]*funcSig{},
		globals: map[string]bool{},
		buildID: id.String(),
	}
	cfg.Logger.Debug().Str("build_id", c.buildID).Str("mode", modeName(cfg.Mode)).Msg("compile starting")

	for _, name := range builtinNames {
		c.globals[name] = true
	}
	c.prescan(prog)
	if c.errs != nil {
		return nil, c.errs
	}

	topChunk := bytecode.NewChunk("script")
	topChunk.BuildID = c.buildID
	c.cur = &funcState{chunk: topChunk, funcName: ""}
	c.cur.nextSlot = 1 // slot 0 reserved for the callee value

	funcDecls, rest := splitTopLevel(prog.Statements)
	c.cur.bodyStmts = rest

	for _, fd := range funcDecls {
		c.compileFunctionDeclAsGlobal(fd)
	}
	for i, stmt := range rest {
		if es, ok := stmt.(*ast.ExprStatement); ok && i == len(rest)-1 {
			// A trailing expression statement is the script's result.
			c.compileExpression(es.Expr)
			c.emit(op.Return, es.Line())
			break
		}
		c.compileStatement(stmt)
	}
	c.emit(op.Null, prog.Line())
	c.emit(op.Return, prog.Line())

	topChunk.LocalCount = c.cur.nextSlot
	topChunk.LeaksAllowed = len(c.leakRecords)
	topChunk.LeakRecords = c.leakRecords

	if c.errs != nil {
		return nil, c.errs
	}
	return object.NewFunction("", nil, "", topChunk), nil
}

// builtinNames lists the natives package builtins installs as globals
// before running any script, so identifier resolution inside the
// compiler treats them as known globals rather than undefined names.
// Kept in sync with package builtins' registration list.
var builtinNames = []string{
	"print", "input", "len", "range", "type", "append",
	"getCurrentTime", "toSeconds", "toMilliseconds", "toMinutes", "toHours",
	"getProcessMemory", "getVmMemory", "getVmPeakMemory",
	"bytesToKB", "bytesToMB", "bytesToGB",
}

func modeName(m Mode) string {
	switch m {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	default:
		return "both"
	}
}

func splitTopLevel(stmts []ast.Statement) (funcs []*ast.FunctionDecl, rest []ast.Statement) {
	for _, s := range stmts {
		if fd, ok := s.(*ast.FunctionDecl); ok {
			funcs = append(funcs, fd)
		} else {
			rest = append(rest, s)
		}
	}
	return
}

// prescan walks top-level function declarations to build the signature
// table consulted at every call site, per spec.md's "Pre-scan" step.
func (c *Compiler) prescan(prog *ast.Program) {
	for _, stmt := range prog.Statements {
		fd, ok := stmt.(*ast.FunctionDecl)
		if !ok {
			continue
		}
		if _, dup := c.sigs[fd.Name]; dup {
			c.addError(fd.Line(), "duplicate function name %q", fd.Name)
			continue
		}
		if c.cfg.Mode == Static && fd.Name != "main" && !fd.HasReturnType {
			c.addError(fd.Line(), "function %q must declare a return type in static mode", fd.Name)
		}
		paramTypes := make([]string, len(fd.Params))
		for i, p := range fd.Params {
			paramTypes[i] = p.Type
			if c.cfg.Mode == Static && p.Type == "" {
				c.addError(fd.Line(), "parameter %q of %q must declare a type in static mode", p.Name, fd.Name)
			}
		}
		c.sigs[fd.Name] = &funcSig{
			Name:          fd.Name,
			ReturnType:    fd.ReturnType,
			HasReturnType: fd.HasReturnType,
			ParamTypes:    paramTypes,
		}
		c.globals[fd.Name] = true
	}
	for _, stmt := range prog.Statements {
		if let, ok := stmt.(*ast.LetDecl); ok {
			c.globals[let.Name] = true
		}
	}
}

func (c *Compiler) addError(line int, format string, args ...any) {
	c.errs = multierror.Append(c.errs, newError(line, format, args...))
}

// emit appends an opcode with no operand to the current chunk.
func (c *Compiler) emit(code op.Code, line int) int {
	return c.cur.chunk.EmitOp(code, line)
}

func (c *Compiler) emitByte(code op.Code, b byte, line int) int {
	return c.cur.chunk.EmitOpByte(code, b, line)
}

func (c *Compiler) emitUint16(code op.Code, v uint16, line int) int {
	return c.cur.chunk.EmitOpUint16(code, v, line)
}

func (c *Compiler) addConstant(v object.Value) uint16 {
	return c.cur.chunk.AddConstant(v)
}

func (c *Compiler) emitConstant(v object.Value, line int) {
	idx := c.addConstant(v)
	c.emitUint16(op.Constant, idx, line)
}

func (c *Compiler) emitJump(code op.Code, line int) int {
	pos := c.emitUint16(code, 0xFFFF, line)
	return pos + 1 // position of the 2-byte operand
}

func (c *Compiler) patchJumpToHere(operandPos int) {
	target := c.cur.chunk.Len()
	c.cur.chunk.PatchUint16(operandPos, uint16(target))
}

func (c *Compiler) emitLoop(startPos int, line int) {
	pos := c.emitUint16(op.Loop, 0xFFFF, line)
	c.cur.chunk.PatchUint16(pos+1, uint16(startPos))
}

// compileFunctionDeclAsGlobal compiles fd's body into its own chunk,
// wraps it as a Function constant of the top-level chunk, and emits the
// CONSTANT + DEFINE_GLOBAL prologue that installs it under its name —
// this is the "embedded function constants" scheme spec.md §2
// describes (nested functions as flat first-class constants, no
// closures/upvalues).
func (c *Compiler) compileFunctionDeclAsGlobal(fd *ast.FunctionDecl) {
	fnObj := c.compileFunctionBody(fd)
	idx := c.addConstant(object.FromObject(fnObj))
	c.emitUint16(op.Constant, idx, fd.Line())
	nameIdx := c.addConstant(object.FromObject(object.NewString(fd.Name)))
	c.emitUint16(op.DefineGlobal, nameIdx, fd.Line())
}

func (c *Compiler) compileFunctionBody(fd *ast.FunctionDecl) *object.FunctionObj {
	parent := c.cur
	chunk := bytecode.NewChunk(fd.Name)
	chunk.BuildID = c.buildID
	fs := &funcState{
		chunk:         chunk,
		funcName:      fd.Name,
		returnType:    fd.ReturnType,
		hasReturnType: fd.HasReturnType,
		bodyStmts:     fd.Body.Statements,
	}
	fs.nextSlot = 1
	c.cur = fs

	params := make([]object.Param, len(fd.Params))
	for i, p := range fd.Params {
		slot := c.declareLocalSlot(p.Name, p.Type, fd.Line())
		params[i] = object.Param{Name: p.Name, Type: p.Type}
		_ = slot
	}

	c.compileBlockNoisyScope(fd.Body)

	if !c.blockAlwaysReturns(fd.Body) {
		if fd.HasReturnType && fd.ReturnType != "" && fd.ReturnType != "void" {
			if c.cfg.Mode == Static {
				c.addError(fd.Line(), "function %q does not return on all paths", fd.Name)
			}
		}
		c.emit(op.Null, fd.Line())
		c.emit(op.Return, fd.Line())
	}

	chunk.LocalCount = fs.nextSlot
	c.cur = parent
	return object.NewFunction(fd.Name, params, fd.ReturnType, chunk)
}

// declareLocalSlot registers a new local at the current scope depth and
// returns its frame slot.
func (c *Compiler) declareLocalSlot(name, typ string, line int) int {
	slot := c.cur.nextSlot
	c.cur.nextSlot++
	c.cur.locals = append(c.cur.locals, local{
		name: name, depth: c.cur.scopeDepth, typ: typ, slot: slot, declLine: line,
	})
	return slot
}

func (c *Compiler) resolveLocal(name string) (*local, bool) {
	for i := len(c.cur.locals) - 1; i >= 0; i-- {
		if c.cur.locals[i].name == name {
			return &c.cur.locals[i], true
		}
	}
	return nil, false
}

// ---- Scopes ----

// compileBlockNoisyScope compiles a block wrapped in ENTER_SCOPE /
// per-local cleanup / EXIT_SCOPE, per spec.md's "Scope boundary" rule.
func (c *Compiler) compileBlockNoisyScope(block *ast.Block) {
	c.beginScope(block.Line())
	for _, stmt := range block.Statements {
		c.compileStatement(stmt)
	}
	c.endScope(block.Line())
}

// beginScope emits ENTER_SCOPE carrying the current lowest free local
// slot as its operand: the boundary between locals this new scope will
// declare and every local belonging to an enclosing scope, consulted at
// runtime by SET_LOCAL to detect an assignment that aliases into an
// outer scope (spec.md §4.D).
func (c *Compiler) beginScope(line int) {
	c.emitByte(op.EnterScope, byte(c.cur.nextSlot), line)
	c.cur.scopeDepth++
}

// endScope emits, for each local declared at the exiting depth: an
// auto-free sequence if auto_free, or a leak error if holds_alloc (and
// not suppressed); then EXIT_SCOPE. Locals live in frame slots reserved
// when the frame is entered, so nothing is popped for them.
func (c *Compiler) endScope(line int) {
	depth := c.cur.scopeDepth
	locals := c.cur.locals
	firstAtDepth := len(locals)
	for firstAtDepth > 0 && locals[firstAtDepth-1].depth == depth {
		firstAtDepth--
	}
	toClose := locals[firstAtDepth:]
	for i := len(toClose) - 1; i >= 0; i-- {
		lc := toClose[i]
		switch {
		case lc.autoFree:
			c.emitByte(op.GetLocal, byte(lc.slot), line)
			c.emit(op.Free, line)
			c.cfg.Logger.Debug().Str("var", lc.name).Int("line", lc.declLine).Msg("auto-freed (provably local)")
		case lc.holdsAlloc:
			if !c.cfg.AllowMemoryLeaks {
				c.addError(lc.declLine, "memory leak: %q holds an allocation that is never freed or escaped", lc.name)
			} else {
				c.leakRecords = append(c.leakRecords, report.Record{
					Line: lc.declLine, Function: c.cur.funcName, Type: lc.typ,
				})
			}
		}
	}
	c.cur.locals = locals[:firstAtDepth]
	c.cur.scopeDepth--
	c.emit(op.ExitScope, line)
}

// ---- Statement dispatch ----

func (c *Compiler) compileStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.FunctionDecl:
		c.addError(s.Line(), "function declarations must appear at the top level")
	case *ast.LetDecl:
		c.compileLetDecl(s)
	case *ast.ExprStatement:
		c.compileExpression(s.Expr)
		c.emitByte(op.Pop, 0, s.Line())
	case *ast.Block:
		c.compileBlockNoisyScope(s)
	case *ast.IfStatement:
		c.compileIfStatement(s)
	case *ast.WhileStatement:
		c.compileWhileStatement(s)
	case *ast.ForInStatement:
		c.compileForInStatement(s)
	case *ast.BreakStatement:
		c.compileBreak(s)
	case *ast.ContinueStatement:
		c.compileContinue(s)
	case *ast.ReturnStatement:
		c.compileReturn(s)
	case *ast.ThrowStatement:
		c.compileExpression(s.Value)
		c.emit(op.Throw, s.Line())
	case *ast.TryStatement:
		c.compileTryStatement(s)
	case *ast.FreeStatement:
		c.compileFreeStatement(s)
	default:
		c.addError(stmt.Line(), "internal: unhandled statement %T", stmt)
	}
}

func (c *Compiler) compileLetDecl(s *ast.LetDecl) {
	valType := c.inferType(s.Value)
	if c.cfg.Mode != Dynamic && s.Type != "" {
		if !typesCompatible(s.Type, valType) {
			c.addError(s.Line(), "cannot assign value of type %s to %s %s", valType, s.Type, s.Name)
		}
	} else if c.cfg.Mode == Static && s.Type == "" {
		c.addError(s.Line(), "variable %q must declare a type in static mode", s.Name)
	}

	allocPos := -1
	if allocEx, ok := s.Value.(*ast.AllocExpr); ok {
		allocPos = c.compileAllocExpr(allocEx)
	} else {
		c.compileExpression(s.Value)
	}
	declType := s.Type
	if declType == "" {
		declType = valType
	}
	slot := c.declareLocalSlot(s.Name, declType, s.Line())
	c.emitByte(op.SetLocal, byte(slot), s.Line())
	c.emitByte(op.Pop, 0, s.Line())

	if isPointerType(declType) {
		lc := &c.cur.locals[len(c.cur.locals)-1]
		disposition := c.analyzeEscape(s.Name, s.Line())
		switch disposition {
		case dispositionAutoLocal:
			lc.autoFree = true
		case dispositionManualFreed, dispositionEscaped, dispositionAmbiguous:
			// Already freed by an explicit `free`, or ownership was
			// handed off (return/call-arg/container-store, or a
			// contradictory mix the analyzer folds into escaped): the
			// scope reaper must leave it alone either way.
		case dispositionUnused:
			lc.holdsAlloc = true
		}
		if allocPos >= 0 {
			c.patchAutoManage(allocPos, disposition == dispositionAutoLocal)
		}
	}
}

func (c *Compiler) compileIfStatement(s *ast.IfStatement) {
	condType := c.inferType(s.Cond)
	if c.cfg.Mode != Dynamic && condType != "bool" && condType != unknownType {
		c.addError(s.Line(), "if condition must be bool, got %s", condType)
	}
	c.compileExpression(s.Cond)
	elseJump := c.emitJump(op.JumpIfFalse, s.Line())
	c.compileBlockNoisyScope(s.Then)
	endJump := c.emitJump(op.Jump, s.Line())
	c.patchJumpToHere(elseJump)
	if s.Else != nil {
		c.compileStatement(s.Else)
	}
	c.patchJumpToHere(endJump)
}

func (c *Compiler) compileWhileStatement(s *ast.WhileStatement) {
	loopStart := c.cur.chunk.Len()
	loop := &loopRecord{scopeDepth: c.cur.scopeDepth, loopStart: loopStart, localsAtEntry: len(c.cur.locals)}
	c.cur.loops = append(c.cur.loops, loop)

	c.compileExpression(s.Cond)
	exitJump := c.emitJump(op.JumpIfFalse, s.Line())
	c.compileBlockNoisyScope(s.Body)
	c.emitLoop(loopStart, s.Line())
	c.patchJumpToHere(exitJump)

	for _, pos := range loop.breaks {
		c.patchJumpToHere(pos)
	}
	c.cur.loops = c.cur.loops[:len(c.cur.loops)-1]
}

// compileForInStatement lowers `for x in iterable { body }` using the
// FOR_IN_STEP fused opcode: it evaluates the iterable once into a local
// slot, a length into another, a counter into a third, then loops via
// FOR_IN_STEP which pushes (value, more) and JUMP_IF_FALSE on `more`.
func (c *Compiler) compileForInStatement(s *ast.ForInStatement) {
	line := s.Line()
	c.beginScope(line)

	c.compileExpression(s.Iterable)
	iterSlot := c.declareLocalSlot("$iter", unknownType, line)
	c.emitByte(op.SetLocal, byte(iterSlot), line)
	c.emitByte(op.Pop, 0, line)

	c.emitConstant(object.Int(0), line)
	counterSlot := c.declareLocalSlot("$counter", "int", line)
	c.emitByte(op.SetLocal, byte(counterSlot), line)
	c.emitByte(op.Pop, 0, line)

	lengthSlot := c.declareLocalSlot("$len", "int", line)
	c.emitByte(op.GetLocal, byte(iterSlot), line)
	c.emit(op.Length, line)
	c.emitByte(op.SetLocal, byte(lengthSlot), line)
	c.emitByte(op.Pop, 0, line)

	loopStart := c.cur.chunk.Len()
	loop := &loopRecord{isForIn: true, scopeDepth: c.cur.scopeDepth, loopStart: loopStart, localsAtEntry: len(c.cur.locals)}
	c.cur.loops = append(c.cur.loops, loop)

	c.emitByte(op.ForInStep, byte(iterSlot), line)
	c.cur.chunk.EmitByte(byte(lengthSlot), line)
	c.cur.chunk.EmitByte(byte(counterSlot), line)
	exitJump := c.emitJump(op.JumpIfFalse, line)

	c.beginScope(line)
	varSlot := c.declareLocalSlot(s.VarName, unknownType, line)
	c.emitByte(op.SetLocal, byte(varSlot), line)
	c.emitByte(op.Pop, 0, line)
	for _, stmt := range s.Body.Statements {
		c.compileStatement(stmt)
	}
	c.endScope(line)

	c.emitByte(op.GetLocal, byte(counterSlot), line)
	c.emitConstant(object.Int(1), line)
	c.emit(op.Add, line)
	c.emitByte(op.SetLocal, byte(counterSlot), line)
	c.emitByte(op.Pop, 0, line)

	c.emitLoop(loopStart, line)
	c.patchJumpToHere(exitJump)

	for _, pos := range loop.breaks {
		c.patchJumpToHere(pos)
	}
	c.cur.loops = c.cur.loops[:len(c.cur.loops)-1]
	c.endScope(line)
}

func (c *Compiler) compileBreak(s *ast.BreakStatement) {
	if len(c.cur.loops) == 0 {
		c.addError(s.Line(), "'break' outside a loop")
		return
	}
	loop := c.cur.loops[len(c.cur.loops)-1]
	pos := c.emitJump(op.Jump, s.Line())
	loop.breaks = append(loop.breaks, pos)
}

func (c *Compiler) compileContinue(s *ast.ContinueStatement) {
	if len(c.cur.loops) == 0 {
		c.addError(s.Line(), "'continue' outside a loop")
		return
	}
	loop := c.cur.loops[len(c.cur.loops)-1]
	c.emitLoop(loop.loopStart, s.Line())
}

func (c *Compiler) compileReturn(s *ast.ReturnStatement) {
	if c.cur.funcName == "" && s.Value == nil {
		c.emit(op.Null, s.Line())
		c.emit(op.Return, s.Line())
		return
	}
	if s.Value == nil {
		if c.cur.hasReturnType && c.cur.returnType != "" && c.cur.returnType != "void" && c.cfg.Mode == Static {
			c.addError(s.Line(), "function %q must return a value of type %s", c.cur.funcName, c.cur.returnType)
		}
		c.emit(op.Null, s.Line())
		c.emit(op.Return, s.Line())
		return
	}
	valType := c.inferType(s.Value)
	if c.cfg.Mode != Dynamic && c.cur.hasReturnType && c.cur.returnType != "" {
		if !typesCompatible(c.cur.returnType, valType) {
			c.addError(s.Line(), "function %q returns %s, expected %s", c.cur.funcName, valType, c.cur.returnType)
		}
	}
	c.compileExpression(s.Value)
	c.emit(op.Return, s.Line())
}

func (c *Compiler) compileTryStatement(s *ast.TryStatement) {
	line := s.Line()
	tryBeginPos := c.emitJump(op.TryBegin, line)
	c.compileBlockNoisyScope(s.TryBody)
	c.emit(op.TryEnd, line)
	pastCatchJump := c.emitJump(op.Jump, line)

	c.patchJumpToHere(tryBeginPos)
	c.beginScope(line)
	if s.CatchName != "" {
		slot := c.declareLocalSlot(s.CatchName, unknownType, line)
		c.emitByte(op.SetLocal, byte(slot), line)
		c.emitByte(op.Pop, 0, line)
	} else {
		c.emitByte(op.Pop, 0, line)
	}
	for _, stmt := range s.CatchBody.Statements {
		c.compileStatement(stmt)
	}
	c.endScope(line)

	c.patchJumpToHere(pastCatchJump)
}

func (c *Compiler) compileFreeStatement(s *ast.FreeStatement) {
	c.compileExpression(s.Target)
	c.emit(op.Free, s.Line())
}

// blockAlwaysReturns implements the all-paths-return control-flow
// check: a block returns if its last statement returns/throws, or is
// an if/else where both branches return, or a try/catch where both
// bodies return.
func (c *Compiler) blockAlwaysReturns(b *ast.Block) bool {
	for _, stmt := range b.Statements {
		if c.stmtAlwaysReturns(stmt) {
			return true
		}
	}
	return false
}

func (c *Compiler) stmtAlwaysReturns(stmt ast.Statement) bool {
	switch s := stmt.(type) {
	case *ast.ReturnStatement, *ast.ThrowStatement:
		return true
	case *ast.Block:
		return c.blockAlwaysReturns(s)
	case *ast.IfStatement:
		if s.Else == nil {
			return false
		}
		elseReturns := false
		switch e := s.Else.(type) {
		case *ast.Block:
			elseReturns = c.blockAlwaysReturns(e)
		default:
			elseReturns = c.stmtAlwaysReturns(e)
		}
		return c.blockAlwaysReturns(s.Then) && elseReturns
	case *ast.TryStatement:
		return c.blockAlwaysReturns(s.TryBody) && c.blockAlwaysReturns(s.CatchBody)
	default:
		return false
	}
}
