package parser

import (
	"strings"
	"testing"

	"github.com/indlang/indc/ast"
	"github.com/indlang/indc/lexer"
)

func parseSource(t *testing.T, src string) *ast.Program {
	t.Helper()
	toks := lexer.Tokenize([]byte(src), "test.ind")
	p := New(toks, "test.ind")
	prog := p.Parse()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors for %q: %v", src, p.Errors())
	}
	return prog
}

func TestParsesSimpleFunctionDecl(t *testing.T) {
	prog := parseSource(t, "fn add(a: i32, b: i32) -> i32:\n    return a + b\n")
	if len(prog.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(prog.Functions))
	}
	fn := prog.Functions[0]
	if fn.Name != "add" {
		t.Errorf("Name = %q, want add", fn.Name)
	}
	if len(fn.Params) != 2 || fn.Params[0].Name != "a" || fn.Params[1].Name != "b" {
		t.Errorf("Params = %+v, want [a b]", fn.Params)
	}
	if fn.ReturnType.Kind != ast.I32 {
		t.Errorf("ReturnType = %v, want i32", fn.ReturnType)
	}
	if fn.Pure {
		t.Error("did not expect fn without 'pure' to be marked pure")
	}
	if len(fn.Body) != 1 {
		t.Fatalf("got %d body statements, want 1", len(fn.Body))
	}
	ret, ok := fn.Body[0].(*ast.Return)
	if !ok {
		t.Fatalf("body[0] is %T, want *ast.Return", fn.Body[0])
	}
	bin, ok := ret.Value.(*ast.BinOp)
	if !ok || bin.Op != ast.OpAdd {
		t.Errorf("Return.Value = %#v, want a+b BinOp", ret.Value)
	}
}

func TestParsesPureFunction(t *testing.T) {
	prog := parseSource(t, "pure fn square(x: i32) -> i32:\n    return x * x\n")
	if !prog.Functions[0].Pure {
		t.Error("expected 'pure fn' to set Pure = true")
	}
}

func TestParsesVoidFunctionWithNoArrow(t *testing.T) {
	prog := parseSource(t, "fn greet():\n    print_str(\"hi\")\n")
	if prog.Functions[0].ReturnType.Kind != ast.Void {
		t.Errorf("ReturnType = %v, want void when no -> is given", prog.Functions[0].ReturnType)
	}
}

func TestBinaryOperatorPrecedenceMulBeforeAdd(t *testing.T) {
	prog := parseSource(t, "fn f() -> i32:\n    return 1 + 2 * 3\n")
	ret := prog.Functions[0].Body[0].(*ast.Return)
	top, ok := ret.Value.(*ast.BinOp)
	if !ok || top.Op != ast.OpAdd {
		t.Fatalf("top-level op = %#v, want OpAdd", ret.Value)
	}
	right, ok := top.Right.(*ast.BinOp)
	if !ok || right.Op != ast.OpMul {
		t.Fatalf("right operand = %#v, want a*b nested under +", top.Right)
	}
}

func TestBinaryOperatorsAreLeftAssociative(t *testing.T) {
	prog := parseSource(t, "fn f() -> i32:\n    return 10 - 3 - 2\n")
	ret := prog.Functions[0].Body[0].(*ast.Return)
	top, ok := ret.Value.(*ast.BinOp)
	if !ok || top.Op != ast.OpSub {
		t.Fatalf("top op = %#v, want OpSub", ret.Value)
	}
	left, ok := top.Left.(*ast.BinOp)
	if !ok || left.Op != ast.OpSub {
		t.Fatalf("expected (10 - 3) - 2 grouping, got left = %#v", top.Left)
	}
	if lit, ok := left.Left.(*ast.IntLit); !ok || lit.Value != 10 {
		t.Errorf("innermost left operand = %#v, want IntLit(10)", left.Left)
	}
}

func TestParenthesesOverridePrecedence(t *testing.T) {
	prog := parseSource(t, "fn f() -> i32:\n    return (1 + 2) * 3\n")
	ret := prog.Functions[0].Body[0].(*ast.Return)
	top, ok := ret.Value.(*ast.BinOp)
	if !ok || top.Op != ast.OpMul {
		t.Fatalf("top-level op = %#v, want OpMul", ret.Value)
	}
	left, ok := top.Left.(*ast.BinOp)
	if !ok || left.Op != ast.OpAdd {
		t.Fatalf("left operand = %#v, want a+b nested under *", top.Left)
	}
}

func TestParsesIfElseBlock(t *testing.T) {
	src := "fn f(x: i32) -> i32:\n    if x > 0:\n        return 1\n    else:\n        return 0\n"
	prog := parseSource(t, src)
	ifStmt, ok := prog.Functions[0].Body[0].(*ast.If)
	if !ok {
		t.Fatalf("body[0] = %T, want *ast.If", prog.Functions[0].Body[0])
	}
	if len(ifStmt.Then) != 1 || len(ifStmt.Else) != 1 {
		t.Errorf("Then/Else lengths = %d/%d, want 1/1", len(ifStmt.Then), len(ifStmt.Else))
	}
}

func TestParsesWhileLoop(t *testing.T) {
	src := "fn f():\n    let mut i: i32 = 0\n    while i < 10:\n        i = i + 1\n"
	prog := parseSource(t, src)
	if len(prog.Functions[0].Body) != 2 {
		t.Fatalf("got %d statements, want 2", len(prog.Functions[0].Body))
	}
	wh, ok := prog.Functions[0].Body[1].(*ast.While)
	if !ok {
		t.Fatalf("body[1] = %T, want *ast.While", prog.Functions[0].Body[1])
	}
	if len(wh.Body) != 1 {
		t.Errorf("While.Body len = %d, want 1", len(wh.Body))
	}
}

func TestParsesLetWithMutModifier(t *testing.T) {
	prog := parseSource(t, "fn f():\n    let mut counter: i32 = 0\n")
	decl := prog.Functions[0].Body[0].(*ast.VarDecl)
	if !decl.Mutable {
		t.Error("expected 'let mut' to set Mutable = true")
	}
	if decl.PureLocal {
		t.Error("did not expect Mutable decl to also be PureLocal")
	}
}

func TestParsesLetWithPureLocalModifier(t *testing.T) {
	prog := parseSource(t, "fn f():\n    let pure_local total: i32 = 0\n")
	decl := prog.Functions[0].Body[0].(*ast.VarDecl)
	if !decl.PureLocal {
		t.Error("expected 'let pure_local' to set PureLocal = true")
	}
}

func TestParsesFunctionCallWithArguments(t *testing.T) {
	prog := parseSource(t, "fn f() -> i32:\n    return add(1, 2)\n")
	ret := prog.Functions[0].Body[0].(*ast.Return)
	call, ok := ret.Value.(*ast.Call)
	if !ok {
		t.Fatalf("Return.Value = %#v, want *ast.Call", ret.Value)
	}
	if call.Callee != "add" || len(call.Args) != 2 {
		t.Errorf("Callee/Args = %q/%v, want add/[1 2]", call.Callee, call.Args)
	}
}

func TestParsesGlobalDecl(t *testing.T) {
	prog := parseSource(t, "let max_retries: i32 = 5\n")
	if len(prog.Globals) != 1 {
		t.Fatalf("got %d globals, want 1", len(prog.Globals))
	}
	g := prog.Globals[0]
	if g.Name != "max_retries" || g.Type.Kind != ast.I32 {
		t.Errorf("global = %+v, want max_retries:i32", g)
	}
}

func TestUnexpectedTokenRecordsErrorAndRecovers(t *testing.T) {
	toks := lexer.Tokenize([]byte("fn f() -> i32:\n    return @\nfn g() -> i32:\n    return 1\n"), "test.ind")
	p := New(toks, "test.ind")
	prog := p.Parse()
	if len(p.Errors()) == 0 {
		t.Fatal("expected at least one parse error for an invalid token")
	}
	// The parser should have recovered and still parsed the second function.
	found := false
	for _, fn := range prog.Functions {
		if fn.Name == "g" {
			found = true
		}
	}
	if !found {
		t.Error("expected parser to recover and still parse function 'g' after the error in 'f'")
	}
}

func TestReservedKeywordReportsNotYetSupported(t *testing.T) {
	toks := lexer.Tokenize([]byte("struct Point:\n    x: i32\n"), "test.ind")
	p := New(toks, "test.ind")
	p.Parse()
	if len(p.Errors()) == 0 {
		t.Fatal("expected an error for the reserved 'struct' keyword")
	}
	if !strings.Contains(p.Errors()[0], "'struct' is reserved but not yet supported") {
		t.Errorf("first error = %q, want a not-yet-supported error naming 'struct'", p.Errors()[0])
	}
}

func TestUnaryOperatorsParse(t *testing.T) {
	prog := parseSource(t, "fn f() -> i32:\n    return -5\n")
	ret := prog.Functions[0].Body[0].(*ast.Return)
	u, ok := ret.Value.(*ast.UnaryOp)
	if !ok || u.Op != ast.OpNeg {
		t.Fatalf("Return.Value = %#v, want unary negation", ret.Value)
	}
}
