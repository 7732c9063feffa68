package sema

import "github.com/indlang/indc/ast"

// Symbol is a declared variable: a parameter or a let-binding, tracked
// with enough state to enforce mutability and the pure_local access rule.
type Symbol struct {
	Name        string
	Type        ast.Type
	Mutable     bool
	PureLocal   bool
	IsParameter bool
}

// FunctionInfo is what sema (and, indirectly, lower) knows about a
// function after signature collection: its shape, its declared purity,
// and — once the fixed point in Analyzer.propagateSideEffects converges —
// whether any reachable call chain performs a side effect.
type FunctionInfo struct {
	Name           string
	Params         []ast.Type
	Return         ast.Type
	Pure           bool
	HasSideEffects bool
	// Callees is the set of function names called directly in the body,
	// used as the call graph for the purity fixed point.
	Callees map[string]bool
}

// scope is one lexical block's symbol table.
type scope map[string]*Symbol

type scopeStack []scope

func (s *scopeStack) push() { *s = append(*s, scope{}) }

func (s *scopeStack) pop() { *s = (*s)[:len(*s)-1] }

func (s scopeStack) declare(sym *Symbol) { s[len(s)-1][sym.Name] = sym }

func (s scopeStack) declaredInTop(name string) bool {
	_, ok := s[len(s)-1][name]
	return ok
}

func (s scopeStack) lookup(name string) *Symbol {
	for i := len(s) - 1; i >= 0; i-- {
		if sym, ok := s[i][name]; ok {
			return sym
		}
	}
	return nil
}
