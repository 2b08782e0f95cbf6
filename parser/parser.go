// Package parser implements a recursive-descent statement parser with a
// Pratt/precedence-climbing expression parser over the Tantrums
// grammar, producing the ast.Node tree package compiler consumes.
// Grounded on original_source/src/parser.cpp for the grammar shape,
// rendered in the teacher's ast+parser package idiom.
package parser

import (
	"fmt"

	"github.com/tantrums-lang/tantrums/ast"
	"github.com/tantrums-lang/tantrums/lexer"
	"github.com/tantrums-lang/tantrums/token"
)

// Error is one parse error: an unexpected token in a grammar position,
// reported with line and expected-vs-actual text (spec.md §7.2).
type Error struct {
	Line     int
	Expected string
	Actual   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[Line %d] expected %s, got %s", e.Line, e.Expected, e.Actual)
}

// Precedence levels for the Pratt expression parser, lowest to highest.
const (
	_ int = iota
	precLowest
	precAssign
	precOr
	precAnd
	precEquality
	precComparison
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
	precCall
	precIndex
)

var precedences = map[token.Type]int{
	token.Assign:      precAssign,
	token.PlusAssign:  precAssign,
	token.MinusAssign: precAssign,
	token.StarAssign:  precAssign,
	token.SlashAssign: precAssign,
	token.Eq:          precEquality,
	token.NotEq:        precEquality,
	token.Lt:          precComparison,
	token.Gt:          precComparison,
	token.LtEq:        precComparison,
	token.GtEq:        precComparison,
	token.Plus:        precAdditive,
	token.Minus:       precAdditive,
	token.Star:        precMultiplicative,
	token.Slash:       precMultiplicative,
	token.Percent:     precMultiplicative,
	token.Inc:         precPostfix,
	token.Dec:         precPostfix,
	token.LParen:      precCall,
	token.LBracket:    precIndex,
}

// Parser turns a token stream into an *ast.Program.
type Parser struct {
	l          *lexer.Lexer
	cur, peek  token.Token
	Errors     []*Error
}

// New returns a Parser reading from l. Directive parsing has already
// happened inside lexer.New before this is called.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) curIs(t token.Type) bool  { return p.cur.Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.peek.Type == t }

func (p *Parser) expect(t token.Type) token.Token {
	if !p.curIs(t) {
		p.errorf(t.String(), p.cur)
		return p.cur
	}
	tok := p.cur
	p.advance()
	return tok
}

func (p *Parser) errorf(expected string, actual token.Token) {
	lit := actual.Literal
	if lit == "" {
		lit = actual.Type.String()
	}
	p.Errors = append(p.Errors, &Error{Line: actual.Line, Expected: expected, Actual: lit})
}

// ParseProgram parses the whole token stream into a Program, draining
// both parser and lexer errors into p.Errors (lex errors are surfaced
// as parse errors too, since the compiler only looks at one error
// list coming out of the front end).
func ParseProgram(source string) (*ast.Program, []*Error) {
	prog, _, errs := ParseProgramWithDirectives(source)
	return prog, errs
}

// ParseProgramWithDirectives is ParseProgram plus the source-level
// directives (`#mode`, `#autoFree`, `#allowMemoryLeaks`) the lexer
// strips off the front of the file, so the CLI and compiler can honor
// them without re-scanning the source themselves.
func ParseProgramWithDirectives(source string) (*ast.Program, lexer.Directives, []*Error) {
	l := lexer.New(source)
	p := New(l)
	prog := p.parseProgram()
	for _, lexErr := range l.Errors {
		p.Errors = append(p.Errors, &Error{Line: lexErr.Line, Expected: "valid token", Actual: lexErr.Kind + " " + lexErr.Lexeme})
	}
	return prog, l.Directives, p.Errors
}

func (p *Parser) parseProgram() *ast.Program {
	line := p.cur.Line
	var stmts []ast.Statement
	for !p.curIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return ast.NewProgram(line, stmts)
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.cur.Type {
	case token.Tantrum:
		return p.parseFunctionDecl()
	case token.Let:
		return p.parseLetDecl()
	case token.LBrace:
		return p.parseBlock()
	case token.If:
		return p.parseIfStatement()
	case token.While:
		return p.parseWhileStatement()
	case token.For:
		return p.parseForInStatement()
	case token.Break:
		line := p.cur.Line
		p.advance()
		p.consumeSemicolon()
		return ast.NewBreakStatement(line)
	case token.Continue:
		line := p.cur.Line
		p.advance()
		p.consumeSemicolon()
		return ast.NewContinueStatement(line)
	case token.Return:
		return p.parseReturnStatement()
	case token.Throw:
		return p.parseThrowStatement()
	case token.Try:
		return p.parseTryStatement()
	case token.Free:
		return p.parseFreeStatement()
	case token.TypeInt, token.TypeFloat, token.TypeBool, token.TypeString:
		if p.isTypedLetAhead() {
			return p.parseTypedLetDecl()
		}
		return p.parseExprStatement()
	default:
		return p.parseExprStatement()
	}
}

// isTypedLetAhead distinguishes `int x = ...;` / `int* p = ...;` from a
// bare type keyword used as an expression (which Tantrums' grammar does
// not otherwise allow, but the lookahead keeps the parser resilient).
func (p *Parser) isTypedLetAhead() bool {
	return p.peekIs(token.Ident) || (p.peekIs(token.Star) )
}

func (p *Parser) parseTypedLetDecl() ast.Statement {
	line := p.cur.Line
	typeName := p.cur.Literal
	p.advance()
	if p.curIs(token.Star) {
		typeName += "*"
		p.advance()
	}
	name := p.expect(token.Ident).Literal
	p.expect(token.Assign)
	value := p.parseExpression(precLowest)
	p.consumeSemicolon()
	return ast.NewLetDecl(line, name, typeName, value)
}

func (p *Parser) parseFunctionDecl() *ast.FunctionDecl {
	line := p.cur.Line
	p.advance() // 'tantrum'
	// Optional return-type prefix spellings: `tantrum int* mk(...)` —
	// the return type, if present, precedes the function name.
	returnType := ""
	hasReturnType := false
	if p.curIs(token.TypeInt) || p.curIs(token.TypeFloat) || p.curIs(token.TypeBool) || p.curIs(token.TypeString) || p.curIs(token.TypeVoid) {
		returnType = p.cur.Literal
		hasReturnType = true
		p.advance()
		if p.curIs(token.Star) {
			returnType += "*"
			p.advance()
		}
	}
	name := p.expect(token.Ident).Literal
	p.expect(token.LParen)
	var params []ast.Param
	for !p.curIs(token.RParen) && !p.curIs(token.EOF) {
		params = append(params, p.parseParam())
		if p.curIs(token.Comma) {
			p.advance()
		}
	}
	p.expect(token.RParen)
	body := p.parseBlock()
	return ast.NewFunctionDecl(line, name, params, returnType, hasReturnType, body)
}

func (p *Parser) parseParam() ast.Param {
	typeName := ""
	if isTypeKeyword(p.cur.Type) {
		typeName = p.cur.Literal
		p.advance()
		if p.curIs(token.Star) {
			typeName += "*"
			p.advance()
		}
	}
	name := p.expect(token.Ident).Literal
	return ast.Param{Name: name, Type: typeName}
}

func isTypeKeyword(t token.Type) bool {
	switch t {
	case token.TypeInt, token.TypeFloat, token.TypeBool, token.TypeString, token.TypeVoid:
		return true
	default:
		return false
	}
}

func (p *Parser) parseLetDecl() ast.Statement {
	line := p.cur.Line
	p.advance() // 'let'
	name := p.expect(token.Ident).Literal
	typ := ""
	if p.curIs(token.Colon) {
		p.advance()
		typ = p.cur.Literal
		p.advance()
		if p.curIs(token.Star) {
			typ += "*"
			p.advance()
		}
	}
	p.expect(token.Assign)
	value := p.parseExpression(precLowest)
	p.consumeSemicolon()
	return ast.NewLetDecl(line, name, typ, value)
}

func (p *Parser) parseBlock() *ast.Block {
	line := p.cur.Line
	p.expect(token.LBrace)
	var stmts []ast.Statement
	for !p.curIs(token.RBrace) && !p.curIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	p.expect(token.RBrace)
	return ast.NewBlock(line, stmts)
}

func (p *Parser) parseIfStatement() ast.Statement {
	line := p.cur.Line
	p.advance() // 'if'
	p.expect(token.LParen)
	cond := p.parseExpression(precLowest)
	p.expect(token.RParen)
	then := p.parseBlock()
	var els ast.Statement
	if p.curIs(token.Else) {
		p.advance()
		if p.curIs(token.If) {
			els = p.parseIfStatement()
		} else {
			els = p.parseBlock()
		}
	}
	return ast.NewIfStatement(line, cond, then, els)
}

func (p *Parser) parseWhileStatement() ast.Statement {
	line := p.cur.Line
	p.advance() // 'while'
	p.expect(token.LParen)
	cond := p.parseExpression(precLowest)
	p.expect(token.RParen)
	body := p.parseBlock()
	return ast.NewWhileStatement(line, cond, body)
}

func (p *Parser) parseForInStatement() ast.Statement {
	line := p.cur.Line
	p.advance() // 'for'
	name := p.expect(token.Ident).Literal
	p.expect(token.In)
	iterable := p.parseExpression(precLowest)
	body := p.parseBlock()
	return ast.NewForInStatement(line, name, iterable, body)
}

func (p *Parser) parseReturnStatement() ast.Statement {
	line := p.cur.Line
	p.advance() // 'return'
	var value ast.Expression
	if !p.curIs(token.Semicolon) && !p.curIs(token.RBrace) {
		value = p.parseExpression(precLowest)
	}
	p.consumeSemicolon()
	return ast.NewReturnStatement(line, value)
}

func (p *Parser) parseThrowStatement() ast.Statement {
	line := p.cur.Line
	p.advance() // 'throw'
	value := p.parseExpression(precLowest)
	p.consumeSemicolon()
	return ast.NewThrowStatement(line, value)
}

func (p *Parser) parseTryStatement() ast.Statement {
	line := p.cur.Line
	p.advance() // 'try'
	tryBody := p.parseBlock()
	p.expect(token.Catch)
	p.expect(token.LParen)
	catchName := ""
	if !p.curIs(token.RParen) {
		catchName = p.expect(token.Ident).Literal
	}
	p.expect(token.RParen)
	catchBody := p.parseBlock()
	return ast.NewTryStatement(line, tryBody, catchName, catchBody)
}

func (p *Parser) parseFreeStatement() ast.Statement {
	line := p.cur.Line
	p.advance() // 'free'
	target := p.parseExpression(precLowest)
	p.consumeSemicolon()
	return ast.NewFreeStatement(line, target)
}

func (p *Parser) parseExprStatement() ast.Statement {
	line := p.cur.Line
	expr := p.parseExpression(precLowest)
	p.consumeSemicolon()
	return ast.NewExprStatement(line, expr)
}

func (p *Parser) consumeSemicolon() {
	if p.curIs(token.Semicolon) {
		p.advance()
	}
}

// ---- Expressions (Pratt parser) ----

func (p *Parser) parseExpression(precedence int) ast.Expression {
	left := p.parsePrefix()
	for precedence < p.peekPrecedenceOfCurrentAsInfix() {
		left = p.parseInfix(left)
	}
	return left
}

// peekPrecedenceOfCurrentAsInfix returns the infix binding power of the
// *current* token (called after a prefix/primary has just been parsed,
// so "current" is the operator candidate).
func (p *Parser) peekPrecedenceOfCurrentAsInfix() int {
	if prec, ok := precedences[p.cur.Type]; ok {
		return prec
	}
	return precLowest
}

func (p *Parser) parsePrefix() ast.Expression {
	line := p.cur.Line
	switch p.cur.Type {
	case token.Int:
		return p.parseIntLiteral()
	case token.Float:
		return p.parseFloatLiteral()
	case token.String:
		lit := p.cur.Literal
		p.advance()
		return ast.NewStringLiteral(line, lit)
	case token.True:
		p.advance()
		return ast.NewBoolLiteral(line, true)
	case token.False:
		p.advance()
		return ast.NewBoolLiteral(line, false)
	case token.Null:
		p.advance()
		return ast.NewNullLiteral(line)
	case token.Ident, token.TypeInt, token.TypeFloat, token.TypeBool, token.TypeString:
		// A type keyword in expression position names a cast: `int(x)`.
		name := p.cur.Literal
		p.advance()
		return ast.NewIdentifier(line, name)
	case token.LParen:
		p.advance()
		expr := p.parseExpression(precLowest)
		p.expect(token.RParen)
		return expr
	case token.LBracket:
		return p.parseListLiteral()
	case token.LBrace:
		return p.parseMapLiteral()
	case token.Minus:
		p.advance()
		operand := p.parseExpression(precUnary)
		return ast.NewUnaryExpr(line, "-", operand)
	case token.Bang:
		p.advance()
		operand := p.parseExpression(precUnary)
		return ast.NewUnaryExpr(line, "!", operand)
	case token.Amp:
		p.advance()
		operand := p.parseExpression(precUnary)
		return ast.NewPtrRefExpr(line, operand)
	case token.Star:
		p.advance()
		operand := p.parseExpression(precUnary)
		return p.maybeParsePtrSet(line, operand)
	case token.Inc, token.Dec:
		op := "+"
		if p.cur.Type == token.Dec {
			op = "-"
		}
		p.advance()
		target := p.parseExpression(precUnary)
		return ast.NewCompoundAssignExpr(line, op, target, nil, false)
	case token.Alloc:
		return p.parseAllocExpr()
	default:
		p.errorf("an expression", p.cur)
		p.advance()
		return ast.NewNullLiteral(line)
	}
}

// maybeParsePtrSet handles `*expr = value` (a write-through) versus a
// plain dereference read, by peeking for `=` right after the operand.
func (p *Parser) maybeParsePtrSet(line int, operand ast.Expression) ast.Expression {
	if p.curIs(token.Assign) {
		p.advance()
		value := p.parseExpression(precLowest)
		return ast.NewPtrSetExpr(line, operand, value)
	}
	return ast.NewPtrDerefExpr(line, operand)
}

func (p *Parser) parseIntLiteral() ast.Expression {
	line := p.cur.Line
	lit := p.cur.Literal
	p.advance()
	var n int64
	for _, ch := range lit {
		n = n*10 + int64(ch-'0')
	}
	return ast.NewIntLiteral(line, n)
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	line := p.cur.Line
	lit := p.cur.Literal
	p.advance()
	var f float64
	fmt.Sscanf(lit, "%g", &f)
	return ast.NewFloatLiteral(line, f)
}

func (p *Parser) parseListLiteral() ast.Expression {
	line := p.cur.Line
	p.advance() // '['
	var elems []ast.Expression
	for !p.curIs(token.RBracket) && !p.curIs(token.EOF) {
		elems = append(elems, p.parseExpression(precLowest))
		if p.curIs(token.Comma) {
			p.advance()
		}
	}
	p.expect(token.RBracket)
	return ast.NewListLiteral(line, elems)
}

func (p *Parser) parseMapLiteral() ast.Expression {
	line := p.cur.Line
	p.advance() // '{'
	var entries []ast.MapEntry
	for !p.curIs(token.RBrace) && !p.curIs(token.EOF) {
		key := p.parseExpression(precLowest)
		p.expect(token.Colon)
		val := p.parseExpression(precLowest)
		entries = append(entries, ast.MapEntry{Key: key, Value: val})
		if p.curIs(token.Comma) {
			p.advance()
		}
	}
	p.expect(token.RBrace)
	return ast.NewMapLiteral(line, entries)
}

func (p *Parser) parseAllocExpr() ast.Expression {
	line := p.cur.Line
	p.advance() // 'alloc'
	typeName := p.cur.Literal
	p.advance()
	p.expect(token.LParen)
	init := p.parseExpression(precLowest)
	p.expect(token.RParen)
	return ast.NewAllocExpr(line, typeName, init)
}

func (p *Parser) parseInfix(left ast.Expression) ast.Expression {
	line := p.cur.Line
	switch p.cur.Type {
	case token.LParen:
		return p.parseCallExpr(left)
	case token.LBracket:
		return p.parseIndexExpr(left)
	case token.Assign:
		p.advance()
		value := p.parseExpression(precAssign - 1)
		return ast.NewAssignExpr(line, left, value)
	case token.PlusAssign, token.MinusAssign, token.StarAssign, token.SlashAssign:
		op := map[token.Type]string{
			token.PlusAssign: "+", token.MinusAssign: "-",
			token.StarAssign: "*", token.SlashAssign: "/",
		}[p.cur.Type]
		p.advance()
		value := p.parseExpression(precAssign - 1)
		return ast.NewCompoundAssignExpr(line, op, left, value, false)
	case token.Inc, token.Dec:
		op := "+"
		if p.cur.Type == token.Dec {
			op = "-"
		}
		p.advance()
		return ast.NewCompoundAssignExpr(line, op, left, nil, true)
	default:
		op := p.cur.Literal
		prec := p.peekPrecedenceOfCurrentAsInfix()
		p.advance()
		right := p.parseExpression(prec)
		return ast.NewBinaryExpr(line, op, left, right)
	}
}

func (p *Parser) parseCallExpr(callee ast.Expression) ast.Expression {
	line := p.cur.Line
	p.advance() // '('
	var args []ast.Expression
	for !p.curIs(token.RParen) && !p.curIs(token.EOF) {
		args = append(args, p.parseExpression(precLowest))
		if p.curIs(token.Comma) {
			p.advance()
		}
	}
	p.expect(token.RParen)
	return ast.NewCallExpr(line, callee, args)
}

func (p *Parser) parseIndexExpr(receiver ast.Expression) ast.Expression {
	line := p.cur.Line
	p.advance() // '['
	idx := p.parseExpression(precLowest)
	p.expect(token.RBracket)
	return ast.NewIndexExpr(line, receiver, idx)
}
