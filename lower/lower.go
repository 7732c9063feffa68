// Package lower translates an analyzed ast.Program into an LLVM module
// via github.com/llir/llvm: a forward-declaration pass over every
// top-level name followed by a body pass, locals kept in alloca slots so
// the AST's mutation semantics fall out of plain load/store.
package lower

import (
	"fmt"

	"github.com/indlang/indc/ast"
	"github.com/indlang/indc/builtins"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// strType is the layout backing the source language's str value: a
// length and a pointer to raw bytes, {i64 len, i8* data}.
var strType = types.NewStruct(types.I64, types.NewPointer(types.I8))

// localVar is one entry of a lowering scope: every local, including
// parameters, lives in an alloca slot so assignment is a plain store.
type localVar struct {
	Ptr value.Value
	Typ types.Type
}

type scope map[string]localVar

// Lowerer carries the module under construction plus the tables built
// during forward declaration.
type Lowerer struct {
	mod       *ir.Module
	funcs     map[string]*ir.Func // user functions, keyed by source name
	externs   map[string]*ir.Func // declared extern/intrinsic functions, keyed by symbol
	globals   map[string]*ir.Global
	scopes    []scope
	strConsts map[string]constant.Constant
	strSeq    int
}

// NewModule lowers a fully analyzed Program to an *ir.Module. The caller
// must have already run sema.Analyzer.Analyze successfully — lower does
// not re-check types or purity.
func NewModule(prog *ast.Program) (*ir.Module, error) {
	l := &Lowerer{
		mod:       ir.NewModule(),
		funcs:     map[string]*ir.Func{},
		externs:   map[string]*ir.Func{},
		globals:   map[string]*ir.Global{},
		strConsts: map[string]constant.Constant{},
	}
	l.mod.NewTypeDef("indc.str", strType)

	if err := l.declareGlobals(prog); err != nil {
		return nil, err
	}
	l.declareFunctionSignatures(prog)

	for _, fn := range prog.Functions {
		if err := l.lowerFunctionBody(fn); err != nil {
			return nil, fmt.Errorf("function %q: %w", fn.Name, err)
		}
		if err := Verify(fn.Name, l.funcs[fn.Name]); err != nil {
			return nil, err
		}
	}

	return l.mod, nil
}

func mapType(t ast.Type) types.Type {
	switch t.Kind {
	case ast.I8, ast.U8:
		return types.I8
	case ast.I16, ast.U16:
		return types.I16
	case ast.I32, ast.U32:
		return types.I32
	case ast.I64, ast.U64:
		return types.I64
	case ast.F32:
		return types.Float
	case ast.F64:
		return types.Double
	case ast.Bool:
		return types.I1
	case ast.Void:
		return types.Void
	case ast.Str:
		return strType
	}
	return types.Void
}

func zeroValue(t types.Type) value.Value {
	switch tt := t.(type) {
	case *types.IntType:
		return constant.NewInt(tt, 0)
	case *types.FloatType:
		return constant.NewFloat(tt, 0)
	case *types.StructType:
		return constant.NewZeroInitializer(tt)
	}
	return constant.NewZeroInitializer(t)
}

func (l *Lowerer) declareGlobals(prog *ast.Program) error {
	for _, g := range prog.Globals {
		t := mapType(g.Type)
		var init constant.Constant
		if g.Init != nil {
			c, err := l.lowerConstExpr(g.Init)
			if err != nil {
				return err
			}
			init = c
		} else {
			init = zeroValue(t).(constant.Constant)
		}
		gv := l.mod.NewGlobalDef(g.Name, init)
		gv.Immutable = !g.Mutable
		l.globals[g.Name] = gv
	}
	return nil
}

// lowerConstExpr lowers the restricted set of expressions sema accepts as
// global initializers: literals only (see sema.isConstantExpr).
func (l *Lowerer) lowerConstExpr(e ast.Expr) (constant.Constant, error) {
	switch n := e.(type) {
	case *ast.IntLit:
		return constant.NewInt(mapType(n.ExprType()).(*types.IntType), n.Value), nil
	case *ast.FloatLit:
		return constant.NewFloat(mapType(n.ExprType()).(*types.FloatType), n.Value), nil
	case *ast.BoolLit:
		v := int64(0)
		if n.Value {
			v = 1
		}
		return constant.NewInt(types.I1, v), nil
	case *ast.StringLit:
		data := l.internString(n.Value)
		return constant.NewStruct(strType, constant.NewInt(types.I64, int64(len(n.Value))), data), nil
	}
	return nil, fmt.Errorf("unsupported constant initializer expression")
}

func (l *Lowerer) declareFunctionSignatures(prog *ast.Program) {
	for _, fn := range prog.Functions {
		params := make([]*ir.Param, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = ir.NewParam(p.Name, mapType(p.Type))
		}
		l.funcs[fn.Name] = l.mod.NewFunc(fn.Name, mapType(fn.ReturnType), params...)
	}
}

// externFor declares (once) and returns the external/intrinsic function
// backing a builtin call, choosing its LLVM signature from the builtin
// table rather than from the call site (so repeated calls share one
// declaration).
func (l *Lowerer) externFor(name string, sig builtins.Signature) *ir.Func {
	if fn, ok := l.externs[name]; ok {
		return fn
	}
	params := make([]*ir.Param, len(sig.Params))
	for i, p := range sig.Params {
		params[i] = ir.NewParam("", mapType(p))
	}
	fn := l.mod.NewFunc(name, mapType(sig.Return), params...)
	l.externs[name] = fn
	return fn
}

func (l *Lowerer) pushScope() { l.scopes = append(l.scopes, scope{}) }
func (l *Lowerer) popScope()  { l.scopes = l.scopes[:len(l.scopes)-1] }

func (l *Lowerer) declare(name string, v localVar) { l.scopes[len(l.scopes)-1][name] = v }

func (l *Lowerer) lookup(name string) (localVar, bool) {
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if v, ok := l.scopes[i][name]; ok {
			return v, true
		}
	}
	return localVar{}, false
}

func (l *Lowerer) lowerFunctionBody(fn *ast.FuncDecl) error {
	irFn := l.funcs[fn.Name]
	entry := irFn.NewBlock("entry")

	l.pushScope()
	defer l.popScope()

	for i, p := range fn.Params {
		pt := mapType(p.Type)
		slot := entry.NewAlloca(pt)
		entry.NewStore(irFn.Params[i], slot)
		l.declare(p.Name, localVar{Ptr: slot, Typ: pt})
	}

	blk, err := l.lowerStmts(fn.Body, irFn, entry)
	if err != nil {
		return err
	}

	// A void function falling off the end of its body is valid control
	// flow and gets an implicit return. A non-void function falling off
	// the end is a locally detectable defect in the source program, not
	// something lower should paper over with a fabricated value; it is
	// left unterminated here and caught by Verify in NewModule.
	if blk.Term == nil && types.IsVoid(mapType(fn.ReturnType)) {
		blk.NewRet(nil)
	}
	return nil
}

// lowerStmts lowers a straight-line statement list into blk, returning
// the block execution falls into after the list (unchanged for
// straight-line code, the merge/after block once an if/while is lowered).
func (l *Lowerer) lowerStmts(stmts []ast.Stmt, fn *ir.Func, blk *ir.Block) (*ir.Block, error) {
	for _, s := range stmts {
		var err error
		blk, err = l.lowerStmt(s, fn, blk)
		if err != nil {
			return nil, err
		}
		if blk.Term != nil {
			// Statement already terminated the block (a return inside a
			// nested branch that both sides returned from); anything
			// after it in this list is unreachable.
			break
		}
	}
	return blk, nil
}

func (l *Lowerer) lowerStmt(s ast.Stmt, fn *ir.Func, blk *ir.Block) (*ir.Block, error) {
	switch n := s.(type) {
	case *ast.VarDecl:
		t := mapType(n.Annotated)
		var v value.Value
		if n.Init != nil {
			var err error
			v, err = l.lowerExpr(n.Init, blk)
			if err != nil {
				return nil, err
			}
		} else {
			v = zeroValue(t)
		}
		slot := blk.NewAlloca(t)
		blk.NewStore(v, slot)
		l.declare(n.Name, localVar{Ptr: slot, Typ: t})
		return blk, nil

	case *ast.Assign:
		v, err := l.lowerExpr(n.Value, blk)
		if err != nil {
			return nil, err
		}
		if sym, ok := l.lookup(n.Target); ok {
			blk.NewStore(v, sym.Ptr)
		} else if g, ok := l.globals[n.Target]; ok {
			blk.NewStore(v, g)
		} else {
			return nil, fmt.Errorf("unresolved assignment target %q", n.Target)
		}
		return blk, nil

	case *ast.Return:
		if n.Value == nil {
			blk.NewRet(nil)
			return blk, nil
		}
		v, err := l.lowerExpr(n.Value, blk)
		if err != nil {
			return nil, err
		}
		blk.NewRet(v)
		return blk, nil

	case *ast.If:
		return l.lowerIf(n, fn, blk)

	case *ast.While:
		return l.lowerWhile(n, fn, blk)

	case *ast.ExprStmt:
		_, err := l.lowerExpr(n.X, blk)
		return blk, err
	}
	return blk, nil
}

func (l *Lowerer) lowerIf(n *ast.If, fn *ir.Func, blk *ir.Block) (*ir.Block, error) {
	cond, err := l.lowerExpr(n.Cond, blk)
	if err != nil {
		return nil, err
	}

	thenBlk := fn.NewBlock("if.then")
	elseBlk := fn.NewBlock("if.else")
	mergeBlk := fn.NewBlock("if.end")
	blk.NewCondBr(cond, thenBlk, elseBlk)

	l.pushScope()
	thenEnd, err := l.lowerStmts(n.Then, fn, thenBlk)
	l.popScope()
	if err != nil {
		return nil, err
	}
	thenFallsThrough := thenEnd.Term == nil
	if thenFallsThrough {
		thenEnd.NewBr(mergeBlk)
	}

	l.pushScope()
	elseEnd, err := l.lowerStmts(n.Else, fn, elseBlk)
	l.popScope()
	if err != nil {
		return nil, err
	}
	elseFallsThrough := elseEnd.Term == nil
	if elseFallsThrough {
		elseEnd.NewBr(mergeBlk)
	}

	// If both arms terminated (e.g. every arm returns), the merge block
	// has no predecessor and is unreachable rather than empty/untermi-
	// nated.
	if !thenFallsThrough && !elseFallsThrough {
		mergeBlk.NewUnreachable()
	}

	return mergeBlk, nil
}

func (l *Lowerer) lowerWhile(n *ast.While, fn *ir.Func, blk *ir.Block) (*ir.Block, error) {
	condBlk := fn.NewBlock("while.cond")
	bodyBlk := fn.NewBlock("while.body")
	afterBlk := fn.NewBlock("while.end")

	blk.NewBr(condBlk)

	cond, err := l.lowerExpr(n.Cond, condBlk)
	if err != nil {
		return nil, err
	}
	condBlk.NewCondBr(cond, bodyBlk, afterBlk)

	l.pushScope()
	bodyEnd, err := l.lowerStmts(n.Body, fn, bodyBlk)
	l.popScope()
	if err != nil {
		return nil, err
	}
	if bodyEnd.Term == nil {
		bodyEnd.NewBr(condBlk)
	}

	return afterBlk, nil
}

func (l *Lowerer) internString(s string) constant.Constant {
	if c, ok := l.strConsts[s]; ok {
		return l.bitcastToBytePtr(c)
	}
	data := constant.NewCharArrayFromString(s + "\x00")
	gv := l.mod.NewGlobalDef(fmt.Sprintf("_indc_str_%d", l.strSeq), data)
	l.strSeq++
	gv.Immutable = true
	l.strConsts[s] = gv
	return l.bitcastToBytePtr(gv)
}

func (l *Lowerer) bitcastToBytePtr(c constant.Constant) constant.Constant {
	return constant.NewBitCast(c, types.NewPointer(types.I8))
}

func (l *Lowerer) lowerExpr(e ast.Expr, blk *ir.Block) (value.Value, error) {
	switch n := e.(type) {
	case *ast.IntLit:
		return constant.NewInt(mapType(n.ExprType()).(*types.IntType), n.Value), nil

	case *ast.FloatLit:
		return constant.NewFloat(mapType(n.ExprType()).(*types.FloatType), n.Value), nil

	case *ast.BoolLit:
		v := int64(0)
		if n.Value {
			v = 1
		}
		return constant.NewInt(types.I1, v), nil

	case *ast.StringLit:
		ptr := l.internString(n.Value)
		return l.buildStringValue(blk, constant.NewInt(types.I64, int64(len(n.Value))), ptr), nil

	case *ast.Ident:
		if sym, ok := l.lookup(n.Name); ok {
			return blk.NewLoad(sym.Typ, sym.Ptr), nil
		}
		if g, ok := l.globals[n.Name]; ok {
			return blk.NewLoad(g.ContentType, g), nil
		}
		return nil, fmt.Errorf("unresolved identifier %q", n.Name)

	case *ast.BinOp:
		return l.lowerBinOp(n, blk)

	case *ast.UnaryOp:
		return l.lowerUnaryOp(n, blk)

	case *ast.Call:
		return l.lowerCall(n, blk)
	}
	return nil, fmt.Errorf("unhandled expression %T", e)
}

// buildStringValue assembles an indc.str struct value from a length and a
// byte pointer via two insertvalue instructions, avoiding an extra
// alloca/store round trip for a value that is always passed by value.
func (l *Lowerer) buildStringValue(blk *ir.Block, length, data value.Value) value.Value {
	undef := constant.NewUndef(strType)
	v1 := blk.NewInsertValue(undef, length, 0)
	v2 := blk.NewInsertValue(v1, data, 1)
	return v2
}

func (l *Lowerer) lowerBinOp(n *ast.BinOp, blk *ir.Block) (value.Value, error) {
	lv, err := l.lowerExpr(n.Left, blk)
	if err != nil {
		return nil, err
	}
	rv, err := l.lowerExpr(n.Right, blk)
	if err != nil {
		return nil, err
	}

	operandType := n.Left.ExprType()
	isFloat := operandType.IsFloat()
	isSigned := operandType.IsSigned()

	switch n.Op {
	case ast.OpAdd:
		if isFloat {
			return blk.NewFAdd(lv, rv), nil
		}
		return blk.NewAdd(lv, rv), nil
	case ast.OpSub:
		if isFloat {
			return blk.NewFSub(lv, rv), nil
		}
		return blk.NewSub(lv, rv), nil
	case ast.OpMul:
		if isFloat {
			return blk.NewFMul(lv, rv), nil
		}
		return blk.NewMul(lv, rv), nil
	case ast.OpDiv:
		if isFloat {
			return blk.NewFDiv(lv, rv), nil
		}
		if isSigned {
			return blk.NewSDiv(lv, rv), nil
		}
		return blk.NewUDiv(lv, rv), nil
	case ast.OpMod:
		if isFloat {
			return blk.NewFRem(lv, rv), nil
		}
		if isSigned {
			return blk.NewSRem(lv, rv), nil
		}
		return blk.NewURem(lv, rv), nil
	case ast.OpShl:
		return blk.NewShl(lv, rv), nil
	case ast.OpShr:
		if isSigned {
			return blk.NewAShr(lv, rv), nil
		}
		return blk.NewLShr(lv, rv), nil
	case ast.OpBitAnd:
		return blk.NewAnd(lv, rv), nil
	case ast.OpBitOr:
		return blk.NewOr(lv, rv), nil
	case ast.OpBitXor:
		return blk.NewXor(lv, rv), nil
	case ast.OpAnd:
		return blk.NewAnd(lv, rv), nil
	case ast.OpOr:
		return blk.NewOr(lv, rv), nil
	case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return l.lowerComparison(n.Op, lv, rv, isFloat, isSigned, blk), nil
	}
	return nil, fmt.Errorf("unhandled binary operator %v", n.Op)
}

func (l *Lowerer) lowerComparison(op ast.BinOpKind, lv, rv value.Value, isFloat, isSigned bool, blk *ir.Block) value.Value {
	if isFloat {
		var pred enum.FPred
		switch op {
		case ast.OpEq:
			pred = enum.FPredOEQ
		case ast.OpNeq:
			pred = enum.FPredONE
		case ast.OpLt:
			pred = enum.FPredOLT
		case ast.OpLe:
			pred = enum.FPredOLE
		case ast.OpGt:
			pred = enum.FPredOGT
		case ast.OpGe:
			pred = enum.FPredOGE
		}
		return blk.NewFCmp(pred, lv, rv)
	}

	var pred enum.IPred
	switch op {
	case ast.OpEq:
		pred = enum.IPredEQ
	case ast.OpNeq:
		pred = enum.IPredNE
	case ast.OpLt:
		if isSigned {
			pred = enum.IPredSLT
		} else {
			pred = enum.IPredULT
		}
	case ast.OpLe:
		if isSigned {
			pred = enum.IPredSLE
		} else {
			pred = enum.IPredULE
		}
	case ast.OpGt:
		if isSigned {
			pred = enum.IPredSGT
		} else {
			pred = enum.IPredUGT
		}
	case ast.OpGe:
		if isSigned {
			pred = enum.IPredSGE
		} else {
			pred = enum.IPredUGE
		}
	}
	return blk.NewICmp(pred, lv, rv)
}

func (l *Lowerer) lowerUnaryOp(n *ast.UnaryOp, blk *ir.Block) (value.Value, error) {
	v, err := l.lowerExpr(n.Operand, blk)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ast.OpNeg:
		if n.Operand.ExprType().IsFloat() {
			return blk.NewFNeg(v), nil
		}
		zero := constant.NewInt(mapType(n.Operand.ExprType()).(*types.IntType), 0)
		return blk.NewSub(zero, v), nil
	case ast.OpNot:
		return blk.NewXor(v, constant.NewInt(types.I1, 1)), nil
	case ast.OpBitNot:
		it := mapType(n.Operand.ExprType()).(*types.IntType)
		allOnes := constant.NewInt(it, -1)
		return blk.NewXor(v, allOnes), nil
	}
	return nil, fmt.Errorf("unhandled unary operator %v", n.Op)
}

func (l *Lowerer) lowerCall(n *ast.Call, blk *ir.Block) (value.Value, error) {
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := l.lowerExpr(a, blk)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if fn, ok := l.funcs[n.Callee]; ok {
		return blk.NewCall(fn, args...), nil
	}

	sig, ok := builtins.Lookup(n.Callee)
	if !ok {
		return nil, fmt.Errorf("call to undeclared function %q", n.Callee)
	}

	switch sig.Strategy {
	case builtins.StrategyIntrinsic:
		return l.lowerIntrinsicCall(n.Callee, sig, args, blk)
	case builtins.StrategyLibc, builtins.StrategyRuntime:
		fn := l.externFor(sig.Symbol, sig)
		return blk.NewCall(fn, args...), nil
	}
	return nil, fmt.Errorf("builtin %q has no recognized lowering strategy", n.Callee)
}

// lowerIntrinsicCall materializes a StrategyIntrinsic builtin. Every such
// builtin lowers to a single call against its Symbol, except tan, which
// has no LLVM intrinsic of its own: original_source/src/codegen.cpp
// computes it as sin(x)/cos(x) over the sin/cos intrinsics, and lower does
// the same here.
func (l *Lowerer) lowerIntrinsicCall(name string, sig builtins.Signature, args []value.Value, blk *ir.Block) (value.Value, error) {
	if name == "tan" {
		f64 := ast.Type{Kind: ast.F64}
		sinSig := builtins.Signature{Params: []ast.Type{f64}, Return: f64, Strategy: builtins.StrategyIntrinsic}
		cosSig := sinSig
		sinFn := l.externFor("llvm.sin.f64", sinSig)
		cosFn := l.externFor("llvm.cos.f64", cosSig)
		s := blk.NewCall(sinFn, args...)
		c := blk.NewCall(cosFn, args...)
		return blk.NewFDiv(s, c), nil
	}
	fn := l.externFor(sig.Symbol, sig)
	return blk.NewCall(fn, args...), nil
}
