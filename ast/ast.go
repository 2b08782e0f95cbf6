// Package ast defines the Tantrums abstract syntax tree, produced by
// package parser and consumed by package compiler. Node shapes follow
// the teacher's ast.Node interface convention (a small interface plus
// one concrete struct per grammar production) generalized to Tantrums'
// typed-local, pointer, and try/catch grammar.
package ast

import "github.com/tantrums-lang/tantrums/token"

// Node is satisfied by every AST node; Line reports the source line
// used throughout compile diagnostics.
type Node interface {
	Line() int
}

// Statement and Expression are marker interfaces distinguishing the two
// grammar classes without requiring extra methods.
type Statement interface {
	Node
	statementNode()
}

type Expression interface {
	Node
	expressionNode()
}

type base struct{ line int }

func (b base) Line() int { return b.line }

// ---- Top level ----

// Program is the root node: an ordered list of top-level statements
// (function declarations and, for script-mode top-level code, ordinary
// statements interleaved with them).
type Program struct {
	base
	Statements []Statement
}

func NewProgram(line int, stmts []Statement) *Program {
	return &Program{base: base{line}, Statements: stmts}
}

// Param is one declared function parameter: name plus optional type
// name ("" means untyped).
type Param struct {
	Name string
	Type string
}

// FunctionDecl is a `tantrum [returnType] name(params) { body }`
// declaration. ReturnType is "" and HasReturnType false when the type is
// omitted; an explicit `void` gives ReturnType "void".
type FunctionDecl struct {
	base
	Name          string
	Params        []Param
	ReturnType    string
	HasReturnType bool
	Body          *Block
}

func (*FunctionDecl) statementNode() {}

// ---- Statements ----

type Block struct {
	base
	Statements []Statement
}

func (*Block) statementNode() {}

// LetDecl is `let name [: type] = expr;` or `type name = expr;`.
type LetDecl struct {
	base
	Name    string
	Type    string // "" if untyped
	Value   Expression
}

func (*LetDecl) statementNode() {}

type ExprStatement struct {
	base
	Expr Expression
}

func (*ExprStatement) statementNode() {}

type IfStatement struct {
	base
	Cond Expression
	Then *Block
	Else Statement // *Block or *IfStatement, or nil
}

func (*IfStatement) statementNode() {}

type WhileStatement struct {
	base
	Cond Expression
	Body *Block
}

func (*WhileStatement) statementNode() {}

// ForInStatement is `for x in iterable { body }`.
type ForInStatement struct {
	base
	VarName  string
	Iterable Expression
	Body     *Block
}

func (*ForInStatement) statementNode() {}

type BreakStatement struct{ base }

func (*BreakStatement) statementNode() {}

type ContinueStatement struct{ base }

func (*ContinueStatement) statementNode() {}

type ReturnStatement struct {
	base
	Value Expression // nil for bare `return;`
}

func (*ReturnStatement) statementNode() {}

type ThrowStatement struct {
	base
	Value Expression
}

func (*ThrowStatement) statementNode() {}

// TryStatement is `try { ... } catch (name) { ... }`.
type TryStatement struct {
	base
	TryBody    *Block
	CatchName  string // "" if no bound variable
	CatchBody  *Block
}

func (*TryStatement) statementNode() {}

// FreeStatement is `free expr;`.
type FreeStatement struct {
	base
	Target Expression
}

func (*FreeStatement) statementNode() {}

// ---- Expressions ----

type IntLiteral struct {
	base
	Value int64
}

func (*IntLiteral) expressionNode() {}

type FloatLiteral struct {
	base
	Value float64
}

func (*FloatLiteral) expressionNode() {}

type StringLiteral struct {
	base
	Value string
}

func (*StringLiteral) expressionNode() {}

type BoolLiteral struct {
	base
	Value bool
}

func (*BoolLiteral) expressionNode() {}

type NullLiteral struct{ base }

func (*NullLiteral) expressionNode() {}

type Identifier struct {
	base
	Name string
}

func (*Identifier) expressionNode() {}

type ListLiteral struct {
	base
	Elements []Expression
}

func (*ListLiteral) expressionNode() {}

type MapEntry struct {
	Key   Expression
	Value Expression
}

type MapLiteral struct {
	base
	Entries []MapEntry
}

func (*MapLiteral) expressionNode() {}

// BinaryExpr covers arithmetic, comparison, and logical binary
// operators; Op holds the operator's token literal ("+", "==", ...).
type BinaryExpr struct {
	base
	Op    string
	Left  Expression
	Right Expression
}

func (*BinaryExpr) expressionNode() {}

type UnaryExpr struct {
	base
	Op      string // "-" or "!"
	Operand Expression
}

func (*UnaryExpr) expressionNode() {}

// AssignExpr is `target = value`. Compound assignment and ++/-- are
// parsed as CompoundAssignExpr instead.
type AssignExpr struct {
	base
	Target Expression
	Value  Expression
}

func (*AssignExpr) expressionNode() {}

// CompoundAssignExpr is `target += value` etc, kept distinct from a
// plain AssignExpr so the compiler can apply the desugaring
// (`target = target <op> value`) exactly once at lowering time while
// preserving postfix semantics for `++`/`--` (IsPostfix).
type CompoundAssignExpr struct {
	base
	Op       string // "+", "-", "*", "/"
	Target   Expression
	Value    Expression // nil for ++ / --, where Op alone implies +1/-1
	IsPostfix bool
}

func (*CompoundAssignExpr) expressionNode() {}

type CallExpr struct {
	base
	Callee Expression
	Args   []Expression
}

func (*CallExpr) expressionNode() {}

type IndexExpr struct {
	base
	Receiver Expression
	Index    Expression
}

func (*IndexExpr) expressionNode() {}

// AllocExpr is `alloc type(initExpr)`.
type AllocExpr struct {
	base
	TypeName string
	Init     Expression
}

func (*AllocExpr) expressionNode() {}

// PtrRefExpr is `&expr` (address-of).
type PtrRefExpr struct {
	base
	Operand Expression
}

func (*PtrRefExpr) expressionNode() {}

// PtrDerefExpr is `*expr` (read-through).
type PtrDerefExpr struct {
	base
	Operand Expression
}

func (*PtrDerefExpr) expressionNode() {}

// PtrSetExpr is `*expr = value` (write-through), kept distinct from a
// plain AssignExpr so the compiler emits PTR_SET instead of SET_LOCAL.
type PtrSetExpr struct {
	base
	Target Expression
	Value  Expression
}

func (*PtrSetExpr) expressionNode() {}

// TokenLine is a small helper used by the parser to read the source
// line off the current token.
func TokenLine(t token.Token) int { return t.Line }

// Constructors. `base` is deliberately unexported (every node's Line()
// comes from the same place), so the parser builds nodes through these
// functions rather than keyed struct literals.

func NewBlock(line int, stmts []Statement) *Block {
	return &Block{base: base{line}, Statements: stmts}
}

func NewFunctionDecl(line int, name string, params []Param, returnType string, hasReturnType bool, body *Block) *FunctionDecl {
	return &FunctionDecl{base: base{line}, Name: name, Params: params, ReturnType: returnType, HasReturnType: hasReturnType, Body: body}
}

func NewLetDecl(line int, name, typ string, value Expression) *LetDecl {
	return &LetDecl{base: base{line}, Name: name, Type: typ, Value: value}
}

func NewExprStatement(line int, expr Expression) *ExprStatement {
	return &ExprStatement{base: base{line}, Expr: expr}
}

func NewIfStatement(line int, cond Expression, then *Block, els Statement) *IfStatement {
	return &IfStatement{base: base{line}, Cond: cond, Then: then, Else: els}
}

func NewWhileStatement(line int, cond Expression, body *Block) *WhileStatement {
	return &WhileStatement{base: base{line}, Cond: cond, Body: body}
}

func NewForInStatement(line int, varName string, iterable Expression, body *Block) *ForInStatement {
	return &ForInStatement{base: base{line}, VarName: varName, Iterable: iterable, Body: body}
}

func NewBreakStatement(line int) *BreakStatement { return &BreakStatement{base{line}} }

func NewContinueStatement(line int) *ContinueStatement { return &ContinueStatement{base{line}} }

func NewReturnStatement(line int, value Expression) *ReturnStatement {
	return &ReturnStatement{base: base{line}, Value: value}
}

func NewThrowStatement(line int, value Expression) *ThrowStatement {
	return &ThrowStatement{base: base{line}, Value: value}
}

func NewTryStatement(line int, tryBody *Block, catchName string, catchBody *Block) *TryStatement {
	return &TryStatement{base: base{line}, TryBody: tryBody, CatchName: catchName, CatchBody: catchBody}
}

func NewFreeStatement(line int, target Expression) *FreeStatement {
	return &FreeStatement{base: base{line}, Target: target}
}

func NewIntLiteral(line int, value int64) *IntLiteral { return &IntLiteral{base{line}, value} }

func NewFloatLiteral(line int, value float64) *FloatLiteral { return &FloatLiteral{base{line}, value} }

func NewStringLiteral(line int, value string) *StringLiteral { return &StringLiteral{base{line}, value} }

func NewBoolLiteral(line int, value bool) *BoolLiteral { return &BoolLiteral{base{line}, value} }

func NewNullLiteral(line int) *NullLiteral { return &NullLiteral{base{line}} }

func NewIdentifier(line int, name string) *Identifier { return &Identifier{base{line}, name} }

func NewListLiteral(line int, elements []Expression) *ListLiteral {
	return &ListLiteral{base: base{line}, Elements: elements}
}

func NewMapLiteral(line int, entries []MapEntry) *MapLiteral {
	return &MapLiteral{base: base{line}, Entries: entries}
}

func NewBinaryExpr(line int, op string, left, right Expression) *BinaryExpr {
	return &BinaryExpr{base: base{line}, Op: op, Left: left, Right: right}
}

func NewUnaryExpr(line int, op string, operand Expression) *UnaryExpr {
	return &UnaryExpr{base: base{line}, Op: op, Operand: operand}
}

func NewAssignExpr(line int, target, value Expression) *AssignExpr {
	return &AssignExpr{base: base{line}, Target: target, Value: value}
}

func NewCompoundAssignExpr(line int, op string, target, value Expression, isPostfix bool) *CompoundAssignExpr {
	return &CompoundAssignExpr{base: base{line}, Op: op, Target: target, Value: value, IsPostfix: isPostfix}
}

func NewCallExpr(line int, callee Expression, args []Expression) *CallExpr {
	return &CallExpr{base: base{line}, Callee: callee, Args: args}
}

func NewIndexExpr(line int, receiver, index Expression) *IndexExpr {
	return &IndexExpr{base: base{line}, Receiver: receiver, Index: index}
}

func NewAllocExpr(line int, typeName string, init Expression) *AllocExpr {
	return &AllocExpr{base: base{line}, TypeName: typeName, Init: init}
}

func NewPtrRefExpr(line int, operand Expression) *PtrRefExpr {
	return &PtrRefExpr{base: base{line}, Operand: operand}
}

func NewPtrDerefExpr(line int, operand Expression) *PtrDerefExpr {
	return &PtrDerefExpr{base: base{line}, Operand: operand}
}

func NewPtrSetExpr(line int, target, value Expression) *PtrSetExpr {
	return &PtrSetExpr{base: base{line}, Target: target, Value: value}
}
