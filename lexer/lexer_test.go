package lexer

import (
	"testing"

	"github.com/indlang/indc/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func assertKinds(t *testing.T, toks []token.Token, want ...token.Kind) {
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %s, want %s (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestIndentDedentBalance(t *testing.T) {
	src := "fn main() -> i32:\n    let x: i32 = 1\n    return x\n"
	toks := Tokenize([]byte(src), "t")

	indents, dedents := 0, 0
	for _, tok := range toks {
		switch tok.Kind {
		case token.INDENT:
			indents++
		case token.DEDENT:
			dedents++
		}
	}
	if indents != dedents {
		t.Fatalf("unbalanced INDENT/DEDENT: %d vs %d", indents, dedents)
	}
	if toks[len(toks)-1].Kind != token.EOF {
		t.Fatalf("last token should be EOF, got %s", toks[len(toks)-1].Kind)
	}
}

func TestNestedBlocksDedentToZero(t *testing.T) {
	src := "fn f() -> i32:\n    if true:\n        return 1\n    return 0\n"
	toks := Tokenize([]byte(src), "t")

	depth := 0
	for _, tok := range toks {
		if tok.Kind == token.INDENT {
			depth++
		}
		if tok.Kind == token.DEDENT {
			depth--
		}
	}
	if depth != 0 {
		t.Fatalf("indentation stack not closed, residual depth %d", depth)
	}
}

func TestMaximalMunchArrow(t *testing.T) {
	toks := Tokenize([]byte("->"), "t")
	assertKinds(t, toks, token.ARROW, token.EOF)
}

func TestMaximalMunchComparisonOperators(t *testing.T) {
	toks := Tokenize([]byte("== != <= >= << >> && ||"), "t")
	assertKinds(t, toks,
		token.EQ, token.NEQ, token.LE, token.GE,
		token.SHL, token.SHR, token.ANDAND, token.OROR, token.EOF)
}

func TestKeywordsVsIdentifiers(t *testing.T) {
	toks := Tokenize([]byte("fn pure let mut notakeyword"), "t")
	assertKinds(t, toks, token.FN, token.PURE, token.LET, token.MUT, token.IDENT, token.EOF)
}

func TestIntegerAndFloatLiterals(t *testing.T) {
	toks := Tokenize([]byte("42 3.14 5."), "t")
	// "5." has no digit after the dot, so the dot is not consumed as part
	// of the number.
	assertKinds(t, toks, token.INT, token.FLOAT, token.INT, token.DOT, token.EOF)
}

func TestStringEscapes(t *testing.T) {
	toks := Tokenize([]byte(`"a\nb\tc\\d\"e"`), "t")
	if len(toks) != 2 || toks[0].Kind != token.STRING {
		t.Fatalf("unexpected tokens: %v", toks)
	}
	want := "a\nb\tc\\d\"e"
	if toks[0].Value != want {
		t.Fatalf("got %q, want %q", toks[0].Value, want)
	}
}

func TestUnterminatedStringIsInvalid(t *testing.T) {
	toks := Tokenize([]byte(`"never closed`), "t")
	if toks[0].Kind != token.INVALID {
		t.Fatalf("expected INVALID for unterminated string, got %s", toks[0].Kind)
	}
}

func TestLineComments(t *testing.T) {
	toks := Tokenize([]byte("let x: i32 = 1 # trailing\n// also a comment\nlet y: i32 = 2\n"), "t")
	for _, tok := range toks {
		if tok.Kind == token.INVALID {
			t.Fatalf("comment leaked a token: %v", toks)
		}
	}
}

func TestMismatchedDedentEmitsInvalid(t *testing.T) {
	src := "fn f() -> i32:\n    return 1\n  return 2\n"
	toks := Tokenize([]byte(src), "t")

	found := false
	for _, tok := range toks {
		if tok.Kind == token.INVALID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an INVALID token for a dedent with no matching level, got %v", toks)
	}
}

func TestMismatchedDedentDoesNotCorruptIndentStack(t *testing.T) {
	// leading-space widths 4, 2, 2, 0: the second line's width-2 dedent
	// matches no level on the stack (INVALID), and must not be pushed
	// onto the stack itself, or the following width-2 line would wrongly
	// match it and the final width-0 line would emit an extra DEDENT.
	src := "fn f() -> i32:\n    return 1\n  return 2\n  return 3\nreturn 4\n"
	toks := Tokenize([]byte(src), "t")

	indents, dedents := 0, 0
	for _, tok := range toks {
		switch tok.Kind {
		case token.INDENT:
			indents++
		case token.DEDENT:
			dedents++
		}
	}
	if indents != dedents {
		t.Fatalf("expected equal INDENT/DEDENT counts at EOF, got %d INDENT vs %d DEDENT: %v", indents, dedents, toks)
	}
}
