package parser

import (
	"testing"

	"github.com/tantrums-lang/tantrums/ast"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, errs := ParseProgram(src)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	return prog
}

func TestParseFunctionDecl(t *testing.T) {
	prog := mustParse(t, `tantrum main() { print(1 + 2 * 3); }`)
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 top-level statement, got %d", len(prog.Statements))
	}
	fn, ok := prog.Statements[0].(*ast.FunctionDecl)
	if !ok {
		t.Fatalf("expected FunctionDecl, got %T", prog.Statements[0])
	}
	if fn.Name != "main" {
		t.Fatalf("expected name main, got %q", fn.Name)
	}
	if len(fn.Body.Statements) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(fn.Body.Statements))
	}
}

func TestParseBinaryPrecedence(t *testing.T) {
	prog := mustParse(t, `tantrum main() { let x = 1 + 2 * 3; }`)
	fn := prog.Statements[0].(*ast.FunctionDecl)
	let := fn.Body.Statements[0].(*ast.LetDecl)
	bin, ok := let.Value.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected top-level BinaryExpr, got %T", let.Value)
	}
	if bin.Op != "+" {
		t.Fatalf("expected '+' at the top (lower precedence), got %q", bin.Op)
	}
	right, ok := bin.Right.(*ast.BinaryExpr)
	if !ok || right.Op != "*" {
		t.Fatalf("expected '*' nested on the right, got %#v", bin.Right)
	}
}

func TestParseTypedLocalAndPointer(t *testing.T) {
	prog := mustParse(t, `tantrum main() { int* p = alloc int(7); print(*p); }`)
	fn := prog.Statements[0].(*ast.FunctionDecl)
	let := fn.Body.Statements[0].(*ast.LetDecl)
	if let.Type != "int*" {
		t.Fatalf("expected type int*, got %q", let.Type)
	}
	if _, ok := let.Value.(*ast.AllocExpr); !ok {
		t.Fatalf("expected AllocExpr, got %T", let.Value)
	}
}

func TestParseTryCatch(t *testing.T) {
	prog := mustParse(t, `tantrum main() { try { throw "boom"; } catch (e) { print(e); } }`)
	fn := prog.Statements[0].(*ast.FunctionDecl)
	try, ok := fn.Body.Statements[0].(*ast.TryStatement)
	if !ok {
		t.Fatalf("expected TryStatement, got %T", fn.Body.Statements[0])
	}
	if try.CatchName != "e" {
		t.Fatalf("expected catch name 'e', got %q", try.CatchName)
	}
}

func TestParseForInAndBreak(t *testing.T) {
	prog := mustParse(t, `tantrum main() { for i in range(10) { if (i == 3) { break; } print(i); } }`)
	fn := prog.Statements[0].(*ast.FunctionDecl)
	forIn, ok := fn.Body.Statements[0].(*ast.ForInStatement)
	if !ok {
		t.Fatalf("expected ForInStatement, got %T", fn.Body.Statements[0])
	}
	if forIn.VarName != "i" {
		t.Fatalf("expected loop var 'i', got %q", forIn.VarName)
	}
}

func TestParseErrorOnUnexpectedToken(t *testing.T) {
	_, errs := ParseProgram(`tantrum main() { let = 5; }`)
	if len(errs) == 0 {
		t.Fatal("expected a parse error for missing identifier after let")
	}
}
