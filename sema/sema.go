// Package sema implements two-pass, behavior-aware semantic analysis:
// signature collection, then scoped type checking, with purity propagated
// to a fixed point over the call graph rather than in declaration order.
package sema

import (
	"fmt"

	"github.com/indlang/indc/ast"
	"github.com/indlang/indc/builtins"
	"github.com/indlang/indc/diag"
)

// Analyzer walks a Program twice: Analyze's first half collects every
// function signature and declares globals, the second half type-checks
// bodies against the now-complete symbol tables. It mirrors the
// single-pass SemanticAnalyzer of original_source/src/semantic.cpp, with
// side-effect propagation pulled out into its own fixed-point pass so a
// function's purity verdict no longer depends on the declaration order of
// the functions it calls.
type Analyzer struct {
	reporter *diag.Reporter
	errors   []string
	warnings []string

	functions map[string]*FunctionInfo
	scopes    scopeStack

	currentFunction    *FunctionInfo
	currentSideEffect  bool
	modifiedInFunction map[string]bool
}

// NewAnalyzer builds an Analyzer reporting into r.
func NewAnalyzer(r *diag.Reporter) *Analyzer {
	return &Analyzer{
		reporter:  r,
		functions: map[string]*FunctionInfo{},
	}
}

func (a *Analyzer) Errors() []string   { return a.errors }
func (a *Analyzer) Warnings() []string { return a.warnings }

func (a *Analyzer) error(msg string, line, col int) {
	a.errors = append(a.errors, fmt.Sprintf("Error at line %d, column %d: %s", line, col, msg))
	a.reporter.Error(msg, line, col)
}

func (a *Analyzer) errorWithSuggestion(msg, suggestion string, line, col int) {
	a.errors = append(a.errors, fmt.Sprintf("Error at line %d, column %d: %s", line, col, msg))
	a.reporter.Add(diag.Diagnostic{Level: diag.Error, Message: msg, Line: line, Column: col, Length: 1, Suggestion: suggestion})
}

func (a *Analyzer) warn(msg string, line, col int) {
	a.warnings = append(a.warnings, fmt.Sprintf("Warning at line %d, column %d: %s", line, col, msg))
	a.reporter.Warning(msg, line, col)
}

// Analyze runs the full pipeline. It returns false if any error was
// reported; Program nodes are annotated in place regardless, so lower can
// still run on a best-effort basis in editor/typeinfo tooling.
func (a *Analyzer) Analyze(prog *ast.Program) bool {
	a.scopes.push() // global scope

	a.collectSignatures(prog)
	a.declareGlobals(prog)
	a.buildCallGraph(prog)
	a.propagateSideEffects()
	a.analyzeFunctionBodies(prog)

	a.scopes.pop()
	return !a.reporter.HasErrors()
}

// collectSignatures is pass 1: every user function's name, parameter
// types, return type and declared purity go into a.functions before any
// body is analyzed, so forward references and mutual recursion resolve.
func (a *Analyzer) collectSignatures(prog *ast.Program) {
	for _, fn := range prog.Functions {
		if _, exists := a.functions[fn.Name]; exists {
			a.error(fmt.Sprintf("Function '%s' already declared", fn.Name), fn.Pos.Line, fn.Pos.Column)
			continue
		}
		if _, isBuiltin := builtins.Lookup(fn.Name); isBuiltin {
			a.error(fmt.Sprintf("Function '%s' shadows a builtin of the same name", fn.Name), fn.Pos.Line, fn.Pos.Column)
			continue
		}
		params := make([]ast.Type, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = p.Type
		}
		a.functions[fn.Name] = &FunctionInfo{
			Name: fn.Name, Params: params, Return: fn.ReturnType, Pure: fn.Pure,
			Callees: map[string]bool{},
		}
	}
}

// declareGlobals declares every global in the outermost scope. The
// question of what happens when a global initializer is
// not a compile-time constant") is decided here: reject outright, rather
// than silently accepting arbitrary expressions evaluated at an
// unspecified time.
func (a *Analyzer) declareGlobals(prog *ast.Program) {
	for _, g := range prog.Globals {
		if a.scopes.declaredInTop(g.Name) {
			a.error(fmt.Sprintf("Global variable '%s' already declared", g.Name), g.Pos.Line, g.Pos.Column)
			continue
		}
		if g.Init != nil && !isConstantExpr(g.Init) {
			a.errorWithSuggestion(
				fmt.Sprintf("Global variable '%s' initializer must be a constant expression", g.Name),
				"Use a literal initializer (an int, float, string, or bool literal), or move this computation into a function body.",
				g.Pos.Line, g.Pos.Column,
			)
		}
		a.scopes.declare(&Symbol{Name: g.Name, Type: g.Type, Mutable: g.Mutable, PureLocal: g.PureLocal})
	}
}

func isConstantExpr(e ast.Expr) bool {
	switch e.(type) {
	case *ast.IntLit, *ast.FloatLit, *ast.StringLit, *ast.BoolLit:
		return true
	}
	return false
}

// --- call graph and purity fixed point -------------------------------------

// buildCallGraph walks every function body once, diagnostic-free, to
// record which functions it calls directly and whether it performs any
// side effect directly (an assignment, or a call to a builtin that is
// not pure). This is the input to propagateSideEffects.
func (a *Analyzer) buildCallGraph(prog *ast.Program) {
	for _, fn := range prog.Functions {
		info := a.functions[fn.Name]
		if info == nil {
			continue
		}
		direct := false
		walkStmts(fn.Body, func(e ast.Expr) {
			if call, ok := e.(*ast.Call); ok {
				info.Callees[call.Callee] = true
				if b, ok := builtins.Lookup(call.Callee); ok && !b.Pure {
					direct = true
				}
			}
		}, func(s ast.Stmt) {
			if _, ok := s.(*ast.Assign); ok {
				direct = true
			}
		})
		info.HasSideEffects = direct
	}
}

// propagateSideEffects runs the fixed point over the call graph built by
// buildCallGraph: a function with no direct side effect still has one if
// it (transitively) calls a function that does. Bounded by len(functions)+1
// iterations, which is always enough to saturate a graph with that many
// nodes.
func (a *Analyzer) propagateSideEffects() {
	for iter := 0; iter < len(a.functions)+1; iter++ {
		changed := false
		for _, info := range a.functions {
			if info.HasSideEffects {
				continue
			}
			for callee := range info.Callees {
				if callee == info.Name {
					continue
				}
				if callee2, ok := a.functions[callee]; ok && callee2.HasSideEffects {
					info.HasSideEffects = true
					changed = true
					break
				}
			}
		}
		if !changed {
			break
		}
	}
}

// walkStmts visits every expression and statement reachable from body,
// calling onExpr/onStmt for each. It does not resolve names or types —
// it is purely structural, used by buildCallGraph before scopes exist.
func walkStmts(body []ast.Stmt, onExpr func(ast.Expr), onStmt func(ast.Stmt)) {
	for _, s := range body {
		onStmt(s)
		switch n := s.(type) {
		case *ast.VarDecl:
			if n.Init != nil {
				walkExpr(n.Init, onExpr)
			}
		case *ast.Assign:
			walkExpr(n.Value, onExpr)
		case *ast.Return:
			if n.Value != nil {
				walkExpr(n.Value, onExpr)
			}
		case *ast.If:
			walkExpr(n.Cond, onExpr)
			walkStmts(n.Then, onExpr, onStmt)
			walkStmts(n.Else, onExpr, onStmt)
		case *ast.While:
			walkExpr(n.Cond, onExpr)
			walkStmts(n.Body, onExpr, onStmt)
		case *ast.ExprStmt:
			walkExpr(n.X, onExpr)
		}
	}
}

func walkExpr(e ast.Expr, onExpr func(ast.Expr)) {
	if e == nil {
		return
	}
	onExpr(e)
	switch n := e.(type) {
	case *ast.BinOp:
		walkExpr(n.Left, onExpr)
		walkExpr(n.Right, onExpr)
	case *ast.UnaryOp:
		walkExpr(n.Operand, onExpr)
	case *ast.Call:
		for _, arg := range n.Args {
			walkExpr(arg, onExpr)
		}
	}
}

// --- pass 2: scoped type checking ------------------------------------------

func (a *Analyzer) analyzeFunctionBodies(prog *ast.Program) {
	for _, fn := range prog.Functions {
		a.analyzeFunction(fn)
	}
}

func (a *Analyzer) analyzeFunction(fn *ast.FuncDecl) {
	info := a.functions[fn.Name]
	a.currentFunction = info
	a.currentSideEffect = false
	a.modifiedInFunction = map[string]bool{}

	a.scopes.push()
	for _, p := range fn.Params {
		a.scopes.declare(&Symbol{Name: p.Name, Type: p.Type, IsParameter: true})
	}

	for _, stmt := range fn.Body {
		a.analyzeStmt(stmt)
	}

	if info != nil && fn.Pure && a.currentSideEffect {
		a.error(fmt.Sprintf("Pure function '%s' has side effects", fn.Name), fn.Pos.Line, fn.Pos.Column)
	}

	a.scopes.pop()
	a.currentFunction = nil
}

func (a *Analyzer) markSideEffect() { a.currentSideEffect = true }

func (a *Analyzer) analyzeStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.VarDecl:
		a.analyzeVarDecl(n)
	case *ast.Assign:
		a.analyzeAssign(n)
	case *ast.Return:
		a.analyzeReturn(n)
	case *ast.If:
		a.analyzeExpr(n.Cond)
		if t, ok := exprType(n.Cond); ok && t.Kind != ast.Bool {
			a.warn("If condition should be of type bool", n.Pos.Line, n.Pos.Column)
		}
		for _, st := range n.Then {
			a.analyzeStmt(st)
		}
		for _, st := range n.Else {
			a.analyzeStmt(st)
		}
	case *ast.While:
		a.analyzeExpr(n.Cond)
		if t, ok := exprType(n.Cond); ok && t.Kind != ast.Bool {
			a.warn("While condition should be of type bool", n.Pos.Line, n.Pos.Column)
		}
		for _, st := range n.Body {
			a.analyzeStmt(st)
		}
	case *ast.ExprStmt:
		a.analyzeExpr(n.X)
	}
}

func exprType(e ast.Expr) (ast.Type, bool) {
	if e == nil {
		return ast.Type{}, false
	}
	return e.ExprType(), true
}

func (a *Analyzer) analyzeVarDecl(n *ast.VarDecl) {
	if a.scopes.declaredInTop(n.Name) {
		a.error(fmt.Sprintf("Variable '%s' already declared in this scope", n.Name), n.Pos.Line, n.Pos.Column)
		return
	}

	if n.Init != nil {
		a.analyzeExpr(n.Init)
		if !typesMatch(n.Annotated, n.Init.ExprType()) {
			initType, wantType := n.Init.ExprType().String(), n.Annotated.String()
			a.errorWithSuggestion(
				fmt.Sprintf("Type mismatch in variable initialization: expected %s, got %s", wantType, initType),
				suggestTypeMismatch(initType, wantType),
				n.Pos.Line, n.Pos.Column,
			)
		}
	}

	a.scopes.declare(&Symbol{Name: n.Name, Type: n.Annotated, Mutable: n.Mutable, PureLocal: n.PureLocal})
}

// suggestTypeMismatch mirrors original_source/src/semantic.cpp's
// VariableDecl suggestion text, including its special-cased i32/i64 pair.
func suggestTypeMismatch(initType, wantType string) string {
	switch {
	case initType == "i32" && wantType == "i64":
		return "Change the variable type to 'i32', or cast the value to i64"
	case initType == "i64" && wantType == "i32":
		return "Change the variable type to 'i64', or ensure the value fits in i32 range"
	default:
		return fmt.Sprintf("Change the variable type to '%s' or provide a value of type '%s'", initType, wantType)
	}
}

func (a *Analyzer) analyzeAssign(n *ast.Assign) {
	sym := a.scopes.lookup(n.Target)
	if sym == nil {
		a.errorWithSuggestion(
			fmt.Sprintf("Undefined variable '%s'", n.Target),
			fmt.Sprintf("Make sure '%s' is declared before use, or check for typos", n.Target),
			n.Pos.Line, n.Pos.Column,
		)
		a.analyzeExpr(n.Value)
		return
	}

	if !sym.Mutable && !sym.IsParameter {
		a.errorWithSuggestion(
			fmt.Sprintf("Cannot assign to immutable variable '%s'", n.Target),
			fmt.Sprintf("Declare the variable as mutable with 'let mut %s: <type>' instead of 'let %s: <type>'", n.Target, n.Target),
			n.Pos.Line, n.Pos.Column,
		)
	}

	if sym.PureLocal && a.currentFunction != nil && !a.currentFunction.Pure {
		a.errorWithSuggestion(
			fmt.Sprintf("Cannot modify pure_local variable '%s' in non-pure function", n.Target),
			"Pure_local variables can only be modified by pure functions. Mark this function as 'pure fn' or use a regular variable",
			n.Pos.Line, n.Pos.Column,
		)
	}

	a.analyzeExpr(n.Value)
	if !typesMatch(sym.Type, n.Value.ExprType()) {
		a.errorWithSuggestion(
			fmt.Sprintf("Type mismatch in assignment to '%s': expected %s, got %s", n.Target, sym.Type, n.Value.ExprType()),
			fmt.Sprintf("Ensure the assigned value matches the variable's type '%s'", sym.Type),
			n.Pos.Line, n.Pos.Column,
		)
	}

	a.markSideEffect()
	a.modifiedInFunction[n.Target] = true
}

func (a *Analyzer) analyzeReturn(n *ast.Return) {
	if a.currentFunction == nil {
		a.errorWithSuggestion("Return statement outside of function",
			"Return statements can only be used inside functions", n.Pos.Line, n.Pos.Column)
		return
	}

	if n.Value != nil {
		a.analyzeExpr(n.Value)
		if !typesMatch(a.currentFunction.Return, n.Value.ExprType()) {
			a.errorWithSuggestion(
				fmt.Sprintf("Return type mismatch: expected %s, got %s", a.currentFunction.Return, n.Value.ExprType()),
				fmt.Sprintf("Change the return value to type '%s', or change the function's return type to '%s'",
					a.currentFunction.Return, n.Value.ExprType()),
				n.Pos.Line, n.Pos.Column,
			)
		}
		return
	}

	if a.currentFunction.Return.Kind != ast.Void {
		a.errorWithSuggestion(
			fmt.Sprintf("Function expects return value of type %s", a.currentFunction.Return),
			"Add a return value: 'return <value>', or change function return type to 'void'",
			n.Pos.Line, n.Pos.Column,
		)
	}
}

func (a *Analyzer) analyzeExpr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.IntLit, *ast.FloatLit, *ast.StringLit, *ast.BoolLit:
		// type already set by the parser.
	case *ast.Ident:
		a.analyzeIdent(n)
	case *ast.BinOp:
		a.analyzeBinOp(n)
	case *ast.UnaryOp:
		a.analyzeUnaryOp(n)
	case *ast.Call:
		a.analyzeCall(n)
	}
}

func (a *Analyzer) analyzeIdent(n *ast.Ident) {
	sym := a.scopes.lookup(n.Name)
	if sym == nil {
		a.errorWithSuggestion(
			fmt.Sprintf("Undefined variable '%s'", n.Name),
			fmt.Sprintf("Make sure '%s' is declared before use, or check for typos in the variable name.", n.Name),
			n.Pos.Line, n.Pos.Column,
		)
		n.SetExprType(ast.Type{Kind: ast.I32})
		return
	}

	if sym.PureLocal && a.currentFunction != nil && !a.currentFunction.Pure {
		a.errorWithSuggestion(
			fmt.Sprintf("Cannot access pure_local variable '%s' in non-pure function", n.Name),
			fmt.Sprintf("Pure_local variables can only be accessed by pure functions. Either make function '%s' pure by adding the 'pure' keyword, or remove 'pure_local' from variable '%s'.",
				a.currentFunction.Name, n.Name),
			n.Pos.Line, n.Pos.Column,
		)
	}

	n.SetExprType(sym.Type)
}

func (a *Analyzer) analyzeBinOp(n *ast.BinOp) {
	a.analyzeExpr(n.Left)
	a.analyzeExpr(n.Right)
	if !n.Left.HasType() || !n.Right.HasType() {
		return
	}

	switch n.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod,
		ast.OpBitAnd, ast.OpBitOr, ast.OpBitXor, ast.OpShl, ast.OpShr:
		n.SetExprType(commonType(n.Left.ExprType(), n.Right.ExprType()))
	case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		n.SetExprType(ast.Type{Kind: ast.Bool})
	case ast.OpAnd, ast.OpOr:
		if n.Left.ExprType().Kind != ast.Bool || n.Right.ExprType().Kind != ast.Bool {
			a.errorWithSuggestion(
				"Logical operators require boolean operands",
				"Use comparison operators (==, !=, <, >, <=, >=) to create boolean expressions, or use bitwise operators (&, |, ^) for integer operations.",
				n.Pos.Line, n.Pos.Column,
			)
		}
		n.SetExprType(ast.Type{Kind: ast.Bool})
	}
}

func (a *Analyzer) analyzeUnaryOp(n *ast.UnaryOp) {
	a.analyzeExpr(n.Operand)
	if !n.Operand.HasType() {
		return
	}

	switch n.Op {
	case ast.OpNeg:
		n.SetExprType(n.Operand.ExprType())
	case ast.OpNot:
		if n.Operand.ExprType().Kind != ast.Bool {
			a.errorWithSuggestion(
				"Logical NOT requires boolean operand",
				"Use a comparison operator to create a boolean expression, or use bitwise NOT (~) for integer values.",
				n.Pos.Line, n.Pos.Column,
			)
		}
		n.SetExprType(ast.Type{Kind: ast.Bool})
	case ast.OpBitNot:
		n.SetExprType(n.Operand.ExprType())
	}
}

// mathFns is the set of transcendental/rounding builtins that get a
// tailored int-literal-to-float suggestion, mirroring the hand-picked
// list in original_source/src/semantic.cpp's CallExpr visitor.
var mathFns = map[string]bool{
	"pow": true, "floor": true, "ceil": true, "round": true, "sqrt": true,
	"sin": true, "cos": true, "tan": true, "asin": true, "acos": true,
	"atan": true, "exp": true, "log": true, "log2": true, "log10": true,
}

func (a *Analyzer) analyzeCall(n *ast.Call) {
	params, ret, ok := a.resolveCallee(n)
	if !ok {
		a.errorWithSuggestion(
			fmt.Sprintf("Undefined function '%s'", n.Callee),
			fmt.Sprintf("Make sure the function '%s' is declared before calling it, or check for typos in the function name.", n.Callee),
			n.Pos.Line, n.Pos.Column,
		)
		n.SetExprType(ast.Type{Kind: ast.Void})
		return
	}

	if len(n.Args) != len(params) {
		plural := "s"
		if len(params) == 1 {
			plural = ""
		}
		a.errorWithSuggestion(
			fmt.Sprintf("Function '%s' expects %d arguments, got %d", n.Callee, len(params), len(n.Args)),
			fmt.Sprintf("Provide exactly %d argument%s when calling '%s'.", len(params), plural, n.Callee),
			n.Pos.Line, n.Pos.Column,
		)
		n.SetExprType(ret)
		return
	}

	for i, arg := range n.Args {
		a.analyzeExpr(arg)
		if !arg.HasType() || typesMatch(params[i], arg.ExprType()) {
			continue
		}
		expected, actual := params[i].String(), arg.ExprType().String()
		msg := fmt.Sprintf("Argument %d type mismatch in call to '%s': expected %s, got %s", i+1, n.Callee, expected, actual)
		a.errorWithSuggestion(msg, suggestArgMismatch(n.Callee, expected, actual), arg.Position().Line, arg.Position().Column)
	}

	a.checkPurityOfCall(n)
	n.SetExprType(ret)
}

func suggestArgMismatch(callee, expected, actual string) string {
	switch {
	case mathFns[callee]:
		if actual == "i32" && expected == "f64" {
			return "Use f64 literal (e.g., 2.0 instead of 2) or convert with float()."
		}
		return fmt.Sprintf("Function '%s' expects %s but got %s.", callee, expected, actual)
	case callee == "int" || callee == "float":
		return fmt.Sprintf("Type conversion function '%s()' expects %s but got %s.", callee, expected, actual)
	default:
		return "Ensure the argument matches the expected parameter type, or add an explicit type conversion."
	}
}

// resolveCallee looks a call target up in the builtin table first, then
// in user functions, mirroring original_source's single unified
// `functions` map (builtins are seeded into it before user functions are
// collected).
func (a *Analyzer) resolveCallee(n *ast.Call) (params []ast.Type, ret ast.Type, ok bool) {
	if b, found := builtins.Lookup(n.Callee); found {
		return b.Params, b.Return, true
	}
	if info, found := a.functions[n.Callee]; found {
		return info.Params, info.Return, true
	}
	return nil, ast.Type{}, false
}

func (a *Analyzer) checkPurityOfCall(n *ast.Call) {
	calleeHasSideEffects := false
	if b, found := builtins.Lookup(n.Callee); found {
		calleeHasSideEffects = !b.Pure
	} else if info, found := a.functions[n.Callee]; found {
		calleeHasSideEffects = info.HasSideEffects
	}

	if a.currentFunction != nil && a.currentFunction.Pure && calleeHasSideEffects {
		a.errorWithSuggestion(
			fmt.Sprintf("Pure function '%s' cannot call function '%s' which has side effects", a.currentFunction.Name, n.Callee),
			fmt.Sprintf("Either remove the 'pure' keyword from function '%s', or only call pure functions from within it.", a.currentFunction.Name),
			n.Pos.Line, n.Pos.Column,
		)
	}

	if calleeHasSideEffects {
		a.markSideEffect()
	}
}

// typesMatch is the nominal equality used throughout: no implicit
// conversions.
func typesMatch(t1, t2 ast.Type) bool { return t1.Equal(t2) }

// commonType is the arithmetic/bitwise/shift promotion rule: same type
// stays, float beats int, f64 beats f32, and any other mix
// of differing types yields i64.
func commonType(t1, t2 ast.Type) ast.Type {
	if t1.Equal(t2) {
		return t1
	}
	if t1.Kind == ast.F64 || t2.Kind == ast.F64 {
		return ast.Type{Kind: ast.F64}
	}
	if t1.Kind == ast.F32 || t2.Kind == ast.F32 {
		return ast.Type{Kind: ast.F32}
	}
	return ast.Type{Kind: ast.I64}
}
