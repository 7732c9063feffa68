// Package builtins is the single source of truth for the fixed builtin
// function table: every name the parser can call without a
// user fn declaration, its signature, its purity bit, and how lower
// materializes it. sema consults Table during signature collection; lower
// consults it during call lowering.
package builtins

import "github.com/indlang/indc/ast"

// Strategy tags how lower should emit a call to a builtin.
type Strategy int

const (
	// StrategyLibc lowers to a declared external libc/libm function named
	// by Symbol (e.g. asin -> asin, exit -> exit).
	StrategyLibc Strategy = iota
	// StrategyIntrinsic lowers to an LLVM intrinsic declaration
	// (llvm.sqrt.f64 and friends).
	StrategyIntrinsic
	// StrategyRuntime lowers to a call into the small C runtime shim
	// linked alongside every program (hash_time, random, file_*, str_*).
	StrategyRuntime
)

// Signature is everything sema and lower need to know about a builtin.
type Signature struct {
	Params   []ast.Type
	Return   ast.Type
	Pure     bool
	Strategy Strategy
	// Symbol is the external name lower declares and calls; empty means
	// "same as the builtin's own name".
	Symbol string
}

func sig(params []ast.Type, ret ast.Type, pure bool, strat Strategy, symbol string) Signature {
	return Signature{Params: params, Return: ret, Pure: pure, Strategy: strat, Symbol: symbol}
}

func t(k ast.TypeKind) ast.Type { return ast.Type{Kind: k} }

var (
	i32  = t(ast.I32)
	i64  = t(ast.I64)
	f64  = t(ast.F64)
	bl   = t(ast.Bool)
	str  = t(ast.Str)
	void = t(ast.Void)
)

// Table is the fixed builtin table, grounded on
// original_source/src/semantic.cpp's Program-visitor registration block:
// every function name it seeds into the `functions` map before analyzing
// user declarations, extended with the file-I/O and string builtins it
// also registers.
var Table = map[string]Signature{
	// print family: one overload per ground type, plus a bare println.
	// Each routes through the runtime shim rather than libc's variadic
	// printf, so lower never has to synthesize a format string.
	"print_i32":  sig([]ast.Type{i32}, void, false, StrategyRuntime, "indc_print_i32"),
	"print_i64":  sig([]ast.Type{i64}, void, false, StrategyRuntime, "indc_print_i64"),
	"print_f64":  sig([]ast.Type{f64}, void, false, StrategyRuntime, "indc_print_f64"),
	"print_bool": sig([]ast.Type{bl}, void, false, StrategyRuntime, "indc_print_bool"),
	"print_str":  sig([]ast.Type{str}, void, false, StrategyRuntime, "indc_print_str"),
	"println":    sig(nil, void, false, StrategyRuntime, "indc_println"),
	// print() defaults to the i32 overload (original_source keeps a single
	// "print" alias pointed at print_i32; this keeps that alias).
	"print": sig([]ast.Type{i32}, void, false, StrategyRuntime, "indc_print_i32"),

	// numeric conversions, all pure.
	"i32_to_i64": sig([]ast.Type{i32}, i64, true, StrategyRuntime, "indc_i32_to_i64"),
	"i64_to_i32": sig([]ast.Type{i64}, i32, true, StrategyRuntime, "indc_i64_to_i32"),
	"i32_to_f64": sig([]ast.Type{i32}, f64, true, StrategyRuntime, "indc_i32_to_f64"),
	"f64_to_i32": sig([]ast.Type{f64}, i32, true, StrategyRuntime, "indc_f64_to_i32"),
	"i64_to_f64": sig([]ast.Type{i64}, f64, true, StrategyRuntime, "indc_i64_to_f64"),
	"f64_to_i64": sig([]ast.Type{f64}, i64, true, StrategyRuntime, "indc_f64_to_i64"),
	"int":        sig([]ast.Type{f64}, i32, true, StrategyRuntime, "indc_f64_to_i32"),
	"float":      sig([]ast.Type{i32}, f64, true, StrategyRuntime, "indc_i32_to_f64"),

	// integer math.
	"abs_i32": sig([]ast.Type{i32}, i32, true, StrategyRuntime, "indc_abs_i32"),
	"min_i32": sig([]ast.Type{i32, i32}, i32, true, StrategyRuntime, "indc_min_i32"),
	"max_i32": sig([]ast.Type{i32, i32}, i32, true, StrategyRuntime, "indc_max_i32"),
	"abs":     sig([]ast.Type{i32}, i32, true, StrategyRuntime, "indc_abs_i32"),
	"min":     sig([]ast.Type{i32, i32}, i32, true, StrategyRuntime, "indc_min_i32"),
	"max":     sig([]ast.Type{i32, i32}, i32, true, StrategyRuntime, "indc_max_i32"),

	// transcendental/real math, lowered straight to LLVM intrinsics.
	"sqrt_f64": sig([]ast.Type{f64}, f64, true, StrategyIntrinsic, "llvm.sqrt.f64"),
	"sqrt":     sig([]ast.Type{f64}, f64, true, StrategyIntrinsic, "llvm.sqrt.f64"),
	"pow":      sig([]ast.Type{f64, f64}, f64, true, StrategyIntrinsic, "llvm.pow.f64"),
	"floor":    sig([]ast.Type{f64}, f64, true, StrategyIntrinsic, "llvm.floor.f64"),
	"ceil":     sig([]ast.Type{f64}, f64, true, StrategyIntrinsic, "llvm.ceil.f64"),
	"round":    sig([]ast.Type{f64}, f64, true, StrategyIntrinsic, "llvm.round.f64"),
	"sin":      sig([]ast.Type{f64}, f64, true, StrategyIntrinsic, "llvm.sin.f64"),
	"cos":      sig([]ast.Type{f64}, f64, true, StrategyIntrinsic, "llvm.cos.f64"),
	"exp":      sig([]ast.Type{f64}, f64, true, StrategyIntrinsic, "llvm.exp.f64"),
	"log":      sig([]ast.Type{f64}, f64, true, StrategyIntrinsic, "llvm.log.f64"),
	"log2":     sig([]ast.Type{f64}, f64, true, StrategyIntrinsic, "llvm.log2.f64"),
	"log10":    sig([]ast.Type{f64}, f64, true, StrategyIntrinsic, "llvm.log10.f64"),
	// tan has no llvm intrinsic of its own; lower computes it as
	// sin/cos over the two intrinsics above, so it carries no Symbol.
	"tan": sig([]ast.Type{f64}, f64, true, StrategyIntrinsic, ""),
	// no llvm intrinsics for these three; lowered to libm calls directly.
	"asin": sig([]ast.Type{f64}, f64, true, StrategyLibc, "asin"),
	"acos": sig([]ast.Type{f64}, f64, true, StrategyLibc, "acos"),
	"atan": sig([]ast.Type{f64}, f64, true, StrategyLibc, "atan"),

	// input, all impure (kernel/libc boundary crossing).
	"read_i32": sig(nil, i32, false, StrategyRuntime, "indc_read_i32"),
	"read_f64": sig(nil, f64, false, StrategyRuntime, "indc_read_f64"),

	// system / entropy / time, all impure.
	"exit":         sig([]ast.Type{i32}, void, false, StrategyLibc, "exit"),
	"hash_time":    sig(nil, i64, false, StrategyRuntime, "indc_hash_time"),
	"hash_clock":   sig(nil, f64, false, StrategyRuntime, "indc_hash_clock"),
	"random":       sig(nil, f64, false, StrategyRuntime, "indc_random"),
	"seed_random":  sig([]ast.Type{i32}, void, false, StrategyRuntime, "indc_seed_random"),
	"random_range": sig([]ast.Type{i32, i32}, i32, false, StrategyRuntime, "indc_random_range"),

	// string manipulation: pure, operate on the {len, data} string value.
	"len":        sig([]ast.Type{str}, i32, true, StrategyRuntime, "indc_str_len"),
	"str_concat": sig([]ast.Type{str, str}, str, true, StrategyRuntime, "indc_str_concat"),
	"str_eq":     sig([]ast.Type{str, str}, bl, true, StrategyRuntime, "indc_str_eq"),
	"upper":      sig([]ast.Type{str}, str, true, StrategyRuntime, "indc_str_upper"),
	"lower":      sig([]ast.Type{str}, str, true, StrategyRuntime, "indc_str_lower"),

	// file I/O: impure, each one a thin wrapper over the libc file calls.
	"file_read":   sig([]ast.Type{str}, str, false, StrategyRuntime, "indc_file_read"),
	"file_write":  sig([]ast.Type{str, str}, bl, false, StrategyRuntime, "indc_file_write"),
	"file_exists": sig([]ast.Type{str}, bl, false, StrategyRuntime, "indc_file_exists"),
	"file_delete": sig([]ast.Type{str}, bl, false, StrategyRuntime, "indc_file_delete"),
}

// Lookup returns the signature for a builtin name, or ok=false if name
// does not name a builtin (it may still be a user function).
func Lookup(name string) (Signature, bool) {
	s, ok := Table[name]
	return s, ok
}

// Names returns every builtin name, for diagnostics that want to suggest
// "did you mean" against the fixed table as well as user declarations.
func Names() []string {
	out := make([]string, 0, len(Table))
	for name := range Table {
		out = append(out, name)
	}
	return out
}
