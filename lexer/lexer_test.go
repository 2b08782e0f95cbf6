package lexer

import (
	"testing"

	"github.com/tantrums-lang/tantrums/token"
)

func collect(l *Lexer) []token.Token {
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func TestBasicTokens(t *testing.T) {
	l := New(`tantrum main() { print(1 + 2 * 3); }`)
	toks := collect(l)
	wantTypes := []token.Type{
		token.Tantrum, token.Ident, token.LParen, token.RParen, token.LBrace,
		token.Ident, token.LParen, token.Int, token.Plus, token.Int, token.Star,
		token.Int, token.RParen, token.Semicolon, token.RBrace, token.EOF,
	}
	if len(toks) != len(wantTypes) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(wantTypes))
	}
	for i, want := range wantTypes {
		if toks[i].Type != want {
			t.Fatalf("token %d: got %v, want %v", i, toks[i].Type, want)
		}
	}
}

func TestDirectivesStripped(t *testing.T) {
	l := New("#mode static\n#autoFree true\ntantrum main() {}")
	if l.Directives.Mode != "static" {
		t.Fatalf("expected mode static, got %q", l.Directives.Mode)
	}
	if l.Directives.AutoFree == nil || !*l.Directives.AutoFree {
		t.Fatal("expected autoFree true")
	}
	first := l.NextToken()
	if first.Type != token.Tantrum {
		t.Fatalf("expected first real token to be 'tantrum', got %v", first.Type)
	}
}

func TestUnterminatedStringIsLexError(t *testing.T) {
	l := New(`"unterminated`)
	l.NextToken()
	if len(l.Errors) != 1 || l.Errors[0].Kind != "unterminated string" {
		t.Fatalf("expected one unterminated string error, got %v", l.Errors)
	}
}

func TestStringEscapes(t *testing.T) {
	l := New(`"a\nb"`)
	tok := l.NextToken()
	if tok.Literal != "a\nb" {
		t.Fatalf("got %q", tok.Literal)
	}
}
