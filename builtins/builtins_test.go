package builtins

import (
	"testing"

	"github.com/indlang/indc/ast"
)

func TestLookupFindsKnownBuiltin(t *testing.T) {
	sig, ok := Lookup("sqrt")
	if !ok {
		t.Fatal("expected 'sqrt' to be a known builtin")
	}
	if sig.Return.Kind != ast.F64 {
		t.Errorf("sqrt return type = %v, want f64", sig.Return)
	}
	if !sig.Pure {
		t.Error("expected sqrt to be pure")
	}
	if sig.Strategy != StrategyIntrinsic {
		t.Errorf("sqrt strategy = %v, want StrategyIntrinsic", sig.Strategy)
	}
	if sig.Symbol != "llvm.sqrt.f64" {
		t.Errorf("sqrt symbol = %q, want llvm.sqrt.f64", sig.Symbol)
	}
}

func TestLookupMissesUnknownName(t *testing.T) {
	if _, ok := Lookup("definitely_not_a_builtin"); ok {
		t.Error("expected an unregistered name to miss")
	}
}

func TestEveryRuntimeStrategyBuiltinHasASymbol(t *testing.T) {
	for name, sig := range Table {
		if sig.Strategy == StrategyRuntime && sig.Symbol == "" {
			t.Errorf("builtin %q uses StrategyRuntime but has no Symbol", name)
		}
	}
}

func TestSideEffectingBuiltinsAreNotPure(t *testing.T) {
	impure := []string{"print_i32", "read_i32", "exit", "hash_time", "random", "file_read"}
	for _, name := range impure {
		sig, ok := Lookup(name)
		if !ok {
			t.Fatalf("expected %q to be registered", name)
		}
		if sig.Pure {
			t.Errorf("expected %q to be impure", name)
		}
	}
}

func TestMathBuiltinsArePure(t *testing.T) {
	pure := []string{"sqrt", "pow", "floor", "abs_i32", "min_i32", "tan"}
	for _, name := range pure {
		sig, ok := Lookup(name)
		if !ok {
			t.Fatalf("expected %q to be registered", name)
		}
		if !sig.Pure {
			t.Errorf("expected %q to be pure", name)
		}
	}
}

func TestPrintAliasMatchesPrintI32(t *testing.T) {
	alias, ok := Lookup("print")
	if !ok {
		t.Fatal("expected 'print' to be registered")
	}
	canonical, ok := Lookup("print_i32")
	if !ok {
		t.Fatal("expected 'print_i32' to be registered")
	}
	if alias.Symbol != canonical.Symbol {
		t.Errorf("print symbol = %q, want it to match print_i32's %q", alias.Symbol, canonical.Symbol)
	}
}

func TestNamesIncludesEveryTableEntry(t *testing.T) {
	names := Names()
	if len(names) != len(Table) {
		t.Fatalf("Names() returned %d entries, want %d", len(names), len(Table))
	}
	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	for name := range Table {
		if !seen[name] {
			t.Errorf("Names() is missing %q", name)
		}
	}
}

func TestStrBuiltinsOperateOnStrType(t *testing.T) {
	sig, ok := Lookup("str_concat")
	if !ok {
		t.Fatal("expected 'str_concat' to be registered")
	}
	if len(sig.Params) != 2 || sig.Params[0].Kind != ast.Str || sig.Params[1].Kind != ast.Str {
		t.Errorf("str_concat params = %v, want two str", sig.Params)
	}
	if sig.Return.Kind != ast.Str {
		t.Errorf("str_concat return = %v, want str", sig.Return)
	}
}
