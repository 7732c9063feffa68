package lower

import (
	"strings"
	"testing"

	"github.com/indlang/indc/diag"
	"github.com/indlang/indc/lexer"
	"github.com/indlang/indc/parser"
	"github.com/indlang/indc/sema"
)

func lowerSource(t *testing.T, src string) string {
	t.Helper()
	toks := lexer.Tokenize([]byte(src), "t")
	p := parser.New(toks, "t")
	prog := p.Parse()
	if len(p.Errors()) != 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	r := diag.NewReporter(src, "t")
	if !sema.NewAnalyzer(r).Analyze(prog) {
		t.Fatalf("semantic errors: %s", r.Render())
	}
	mod, err := NewModule(prog)
	if err != nil {
		t.Fatalf("lower error: %v", err)
	}
	return mod.String()
}

func TestHelloWorldLowersAndCallsPrintStr(t *testing.T) {
	src := "fn main() -> i32:\n" +
		"    print_str(\"hi\")\n" +
		"    return 0\n"
	ir := lowerSource(t, src)
	if !strings.Contains(ir, "indc_print_str") {
		t.Fatalf("expected a call to the print_str runtime shim, got:\n%s", ir)
	}
	if !strings.Contains(ir, "define") {
		t.Fatalf("expected a function definition, got:\n%s", ir)
	}
}

func TestControlFlowLoweringProducesConditionalBranch(t *testing.T) {
	src := "fn larger(a: i32, b: i32) -> i32:\n" +
		"    if a > b:\n" +
		"        return a\n" +
		"    else:\n" +
		"        return b\n"
	ir := lowerSource(t, src)
	if !strings.Contains(ir, "br i1") {
		t.Fatalf("expected a conditional branch in IR, got:\n%s", ir)
	}
	if !strings.Contains(ir, "unreachable") {
		t.Fatalf("expected the merge block to be unreachable since both arms return, got:\n%s", ir)
	}
}

func TestWhileLoopLowersToLoopBlocks(t *testing.T) {
	src := "fn countdown(n: i32) -> i32:\n" +
		"    let mut i: i32 = n\n" +
		"    while i > 0:\n" +
		"        i = i - 1\n" +
		"    return i\n"
	ir := lowerSource(t, src)
	if !strings.Contains(ir, "while.cond") || !strings.Contains(ir, "while.body") {
		t.Fatalf("expected while.cond/while.body blocks, got:\n%s", ir)
	}
}

func TestPureFunctionCallLowersDirectly(t *testing.T) {
	src := "pure fn add(a: i32, b: i32) -> i32:\n" +
		"    return a + b\n" +
		"fn main() -> i32:\n" +
		"    return add(1, 2)\n"
	ir := lowerSource(t, src)
	if !strings.Contains(ir, "@add(") {
		t.Fatalf("expected a direct call to user function add, got:\n%s", ir)
	}
}

func TestFloatMathBuiltinLowersToIntrinsic(t *testing.T) {
	src := "fn main() -> f64:\n" +
		"    return sqrt(2.0)\n"
	ir := lowerSource(t, src)
	if !strings.Contains(ir, "llvm.sqrt.f64") {
		t.Fatalf("expected a call to the sqrt intrinsic, got:\n%s", ir)
	}
}

func TestTanLowersToSinOverCosIntrinsics(t *testing.T) {
	src := "fn main() -> f64:\n" +
		"    return tan(1.0)\n"
	ir := lowerSource(t, src)
	if !strings.Contains(ir, "llvm.sin.f64") || !strings.Contains(ir, "llvm.cos.f64") {
		t.Fatalf("expected calls to both the sin and cos intrinsics, got:\n%s", ir)
	}
	if strings.Contains(ir, "llvm.tan") {
		t.Fatalf("did not expect a tan intrinsic, since none exists; got:\n%s", ir)
	}
	if !strings.Contains(ir, "fdiv") {
		t.Fatalf("expected an fdiv combining sin and cos, got:\n%s", ir)
	}
}

func TestNonVoidFunctionFallingOffTheEndFailsVerification(t *testing.T) {
	src := "fn f(x: i32) -> i32:\n" +
		"    if x > 0:\n" +
		"        return 1\n"
	toks := lexer.Tokenize([]byte(src), "t")
	p := parser.New(toks, "t")
	prog := p.Parse()
	if len(p.Errors()) != 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	r := diag.NewReporter(src, "t")
	if !sema.NewAnalyzer(r).Analyze(prog) {
		t.Fatalf("semantic errors: %s", r.Render())
	}

	_, err := NewModule(prog)
	if err == nil {
		t.Fatal("expected lowering to fail: the else-less if leaves a path that falls off the end without returning")
	}
	if _, ok := err.(*VerificationError); !ok {
		t.Fatalf("expected a *VerificationError, got %v (%T)", err, err)
	}
}
