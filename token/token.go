// Package token defines the Tantrums token kinds, ported from the
// teacher's internal/token approach (a Type enum with a String method
// and a Token struct carrying source position) and generalized to
// Tantrums' keyword/operator set.
package token

// Type identifies a lexical token kind.
type Type int

const (
	Illegal Type = iota
	EOF

	Ident
	Int
	Float
	String

	// Operators
	Plus
	Minus
	Star
	Slash
	Percent
	Assign
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	Inc
	Dec
	Eq
	NotEq
	Lt
	Gt
	LtEq
	GtEq
	Bang
	Amp // address-of (&), unary

	// Delimiters
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Semicolon
	Colon
	Star2 // pointer-type suffix `*` (reused Star in practice; kept distinct for clarity in the parser's type grammar)

	// Keywords
	Tantrum
	Let
	If
	Else
	While
	For
	In
	Return
	Throw
	Try
	Catch
	Break
	Continue
	True
	False
	Null
	Alloc
	Free

	// Type keywords
	TypeInt
	TypeFloat
	TypeBool
	TypeString
	TypeVoid
)

var names = map[Type]string{
	Illegal:     "ILLEGAL",
	EOF:         "EOF",
	Ident:       "IDENT",
	Int:         "INT",
	Float:       "FLOAT",
	String:      "STRING",
	Plus:        "+",
	Minus:       "-",
	Star:        "*",
	Slash:       "/",
	Percent:     "%",
	Assign:      "=",
	PlusAssign:  "+=",
	MinusAssign: "-=",
	StarAssign:  "*=",
	SlashAssign: "/=",
	Inc:         "++",
	Dec:         "--",
	Eq:          "==",
	NotEq:       "!=",
	Lt:          "<",
	Gt:          ">",
	LtEq:        "<=",
	GtEq:        ">=",
	Bang:        "!",
	Amp:         "&",
	LParen:      "(",
	RParen:      ")",
	LBrace:      "{",
	RBrace:      "}",
	LBracket:    "[",
	RBracket:    "]",
	Comma:       ",",
	Semicolon:   ";",
	Colon:       ":",
	Tantrum:     "tantrum",
	Let:         "let",
	If:          "if",
	Else:        "else",
	While:       "while",
	For:         "for",
	In:          "in",
	Return:      "return",
	Throw:       "throw",
	Try:         "try",
	Catch:       "catch",
	Break:       "break",
	Continue:    "continue",
	True:        "true",
	False:       "false",
	Null:        "null",
	Alloc:       "alloc",
	Free:        "free",
	TypeInt:     "int",
	TypeFloat:   "float",
	TypeBool:    "bool",
	TypeString:  "string",
	TypeVoid:    "void",
}

func (t Type) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return "UNKNOWN"
}

var keywords = map[string]Type{
	"tantrum":  Tantrum,
	"let":      Let,
	"if":       If,
	"else":     Else,
	"while":    While,
	"for":      For,
	"in":       In,
	"return":   Return,
	"throw":    Throw,
	"try":      Try,
	"catch":    Catch,
	"break":    Break,
	"continue": Continue,
	"true":     True,
	"false":    False,
	"null":     Null,
	"alloc":    Alloc,
	"free":     Free,
	"int":      TypeInt,
	"float":    TypeFloat,
	"bool":     TypeBool,
	"string":   TypeString,
	"void":     TypeVoid,
}

// LookupIdent classifies an identifier as a keyword token or a plain
// Ident.
func LookupIdent(lit string) Type {
	if t, ok := keywords[lit]; ok {
		return t
	}
	return Ident
}

// Token is one lexical unit: its kind, literal text, and 1-based source
// line (Tantrums diagnostics are line-granular only, per spec.md §7).
type Token struct {
	Type    Type
	Literal string
	Line    int
}
