// Package parser implements a recursive-descent, Pratt-precedence parser.
package parser

import (
	"fmt"
	"strconv"

	"github.com/indlang/indc/ast"
	"github.com/indlang/indc/diag"
	"github.com/indlang/indc/token"
)

// Parser consumes a full token slice (produced by lexer.Tokenize) and
// builds a Program plus accumulated errors. Recursive-descent helpers
// panic on malformed input; Parse recovers at toplevel/statement
// boundaries and calls synchronize, so one bad construct does not abort
// the whole file.
type Parser struct {
	toks     []token.Token
	pos      int
	errors   []string
	diags    []diag.Diagnostic
	filename string
}

func New(toks []token.Token, filename string) *Parser {
	return &Parser{toks: toks, filename: filename}
}

func (p *Parser) Errors() []string          { return p.errors }
func (p *Parser) Diagnostics() []diag.Diagnostic { return p.diags }

func (p *Parser) peek() token.Token  { return p.peekAt(0) }
func (p *Parser) peekAt(n int) token.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[i]
}

func (p *Parser) advance() token.Token {
	t := p.peek()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(kinds ...token.Kind) bool {
	k := p.peek().Kind
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func (p *Parser) expect(kinds ...token.Kind) token.Token {
	if p.check(kinds...) {
		return p.advance()
	}
	tok := p.peek()
	panic(ExpectedOneOfKindGotKind{Expected: kinds, Got: tok.Kind, Line: tok.Line, Column: tok.Column})
}

func (p *Parser) atEnd() bool { return p.peek().Kind == token.EOF }

func (p *Parser) recordError(err error, line, col int) {
	p.errors = append(p.errors, fmt.Sprintf("%d:%d: %s", line, col, err.Error()))
	p.diags = append(p.diags, diag.Diagnostic{Level: diag.Error, Message: err.Error(), Line: line, Column: col, Length: 1})
}

// reservedKeywords are tokenized (token.Keywords) but have no parser
// support; using one is reported explicitly rather than falling through to
// a generic "unexpected token" error (design notes, "Duplicate keyword
// reservation").
var reservedKeywords = map[token.Kind]string{
	token.STRUCT: "struct", token.ENUM: "enum", token.MATCH: "match",
	token.FOR: "for", token.IMPORT: "import", token.SIDE_EFFECT: "side_effect",
}

// synchronize advances to the next statement/declaration boundary after a
// parse error. The grammar has no explicit newline token (indentation
// already encodes line structure), so the practical boundary markers are
// the leading keywords of a statement/decl and the synthetic block tokens.
func (p *Parser) synchronize() {
	for !p.atEnd() {
		switch p.peek().Kind {
		case token.FN, token.PURE, token.LET, token.IF, token.WHILE, token.RETURN,
			token.INDENT, token.DEDENT:
			return
		}
		p.advance()
	}
}

// Parse runs the full program grammar and returns the program built so
// far (never nil); accumulated errors are available from Errors and
// Diagnostics.
func (p *Parser) Parse() *ast.Program {
	prog := &ast.Program{}

	for !p.atEnd() {
		if p.check(token.INDENT, token.DEDENT) {
			p.advance()
			continue
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					err, ok := r.(error)
					if !ok {
						panic(r)
					}
					tok := p.peek()
					p.recordError(err, tok.Line, tok.Column)
					p.synchronize()
				}
			}()

			if name, ok := reservedKeywords[p.peek().Kind]; ok {
				tok := p.advance()
				p.recordError(NotYetSupported{Keyword: name, Line: tok.Line, Column: tok.Column}, tok.Line, tok.Column)
				p.synchronize()
				return
			}

			switch p.peek().Kind {
			case token.PURE, token.FN:
				prog.Functions = append(prog.Functions, p.parseFuncDecl())
			case token.LET:
				prog.Globals = append(prog.Globals, p.parseGlobalDecl())
			default:
				tok := p.advance()
				p.recordError(fmt.Errorf("unexpected token %s at top level", tok.Kind), tok.Line, tok.Column)
				p.synchronize()
			}
		}()
	}

	return prog
}

func (p *Parser) parseFuncDecl() *ast.FuncDecl {
	pure := false
	if p.check(token.PURE) {
		p.advance()
		pure = true
	}
	start := p.expect(token.FN)
	nameTok := p.expect(token.IDENT)

	p.expect(token.LPAREN)
	var params []ast.Param
	if !p.check(token.RPAREN) {
		for {
			pn := p.expect(token.IDENT)
			p.expect(token.COLON)
			pt := p.parseType()
			params = append(params, ast.Param{Name: pn.Value, Type: pt})
			if p.check(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}
	p.expect(token.RPAREN)

	ret := ast.Type{Kind: ast.Void}
	if p.check(token.ARROW) {
		p.advance()
		ret = p.parseType()
	}

	p.expect(token.COLON)
	body := p.parseBlock()

	return &ast.FuncDecl{
		Pos:        ast.Pos{Line: start.Line, Column: start.Column},
		Name:       nameTok.Value,
		Params:     params,
		ReturnType: ret,
		Body:       body,
		Pure:       pure,
	}
}

func (p *Parser) parseGlobalDecl() *ast.GlobalDecl {
	start := p.expect(token.LET)
	mut, pureLocal := p.parseLetModifiers()
	nameTok := p.expect(token.IDENT)
	p.expect(token.COLON)
	typ := p.parseType()

	var init ast.Expr
	if p.check(token.ASSIGN) {
		p.advance()
		init = p.parseExpr()
	}

	return &ast.GlobalDecl{
		Pos:       ast.Pos{Line: start.Line, Column: start.Column},
		Name:      nameTok.Value,
		Type:      typ,
		Mutable:   mut,
		PureLocal: pureLocal,
		Init:      init,
	}
}

func (p *Parser) parseLetModifiers() (mut, pureLocal bool) {
	if p.check(token.MUT) {
		p.advance()
		return true, false
	}
	if p.check(token.PURE_LOCAL) {
		p.advance()
		return false, true
	}
	return false, false
}

func (p *Parser) parseType() ast.Type {
	tok := p.advance()
	if t, ok := ast.TypeFromKeyword(tok.Kind); ok {
		return t
	}
	panic(ExpectedOneOfKindGotKind{
		Expected: []token.Kind{token.I8, token.I16, token.I32, token.I64, token.U8, token.U16,
			token.U32, token.U64, token.F32, token.F64, token.BOOL, token.VOID, token.STR},
		Got: tok.Kind, Line: tok.Line, Column: tok.Column,
	})
}

// parseBlock implements `block := INDENT { stmt } DEDENT | stmt`.
func (p *Parser) parseBlock() []ast.Stmt {
	if p.check(token.INDENT) {
		p.advance()
		var stmts []ast.Stmt
		for !p.check(token.DEDENT) && !p.atEnd() {
			stmts = append(stmts, p.parseStatementRecovering())
		}
		p.expect(token.DEDENT)
		return stmts
	}
	return []ast.Stmt{p.parseStatement()}
}

func (p *Parser) parseStatementRecovering() (s ast.Stmt) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				panic(r)
			}
			tok := p.peek()
			p.recordError(err, tok.Line, tok.Column)
			p.synchronize()
			s = &ast.ExprStmt{X: &ast.IntLit{Value: 0}}
		}
	}()
	return p.parseStatement()
}

func (p *Parser) parseStatement() ast.Stmt {
	if name, ok := reservedKeywords[p.peek().Kind]; ok {
		tok := p.advance()
		panic(NotYetSupported{Keyword: name, Line: tok.Line, Column: tok.Column})
	}

	switch p.peek().Kind {
	case token.LET:
		return p.parseLetStmt()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.RETURN:
		return p.parseReturn()
	case token.IDENT:
		if p.peekAt(1).Kind == token.ASSIGN {
			return p.parseAssign()
		}
	}

	start := p.peek()
	expr := p.parseExpr()
	return &ast.ExprStmt{StmtBase: stmtBaseAt(start), X: expr}
}

func (p *Parser) parseLetStmt() ast.Stmt {
	start := p.expect(token.LET)
	mut, pureLocal := p.parseLetModifiers()
	nameTok := p.expect(token.IDENT)
	p.expect(token.COLON)
	typ := p.parseType()

	var init ast.Expr
	if p.check(token.ASSIGN) {
		p.advance()
		init = p.parseExpr()
	}

	return &ast.VarDecl{
		StmtBase:  stmtBaseAt(start),
		Name:      nameTok.Value,
		Annotated: typ,
		Mutable:   mut,
		PureLocal: pureLocal,
		Init:      init,
	}
}

func (p *Parser) parseAssign() ast.Stmt {
	nameTok := p.expect(token.IDENT)
	p.expect(token.ASSIGN)
	val := p.parseExpr()
	return &ast.Assign{StmtBase: stmtBaseAt(nameTok), Target: nameTok.Value, Value: val}
}

func (p *Parser) parseIf() ast.Stmt {
	start := p.expect(token.IF)
	cond := p.parseExpr()
	p.expect(token.COLON)
	then := p.parseBlock()

	var els []ast.Stmt
	if p.check(token.ELSE) {
		p.advance()
		p.expect(token.COLON)
		els = p.parseBlock()
	}

	return &ast.If{StmtBase: stmtBaseAt(start), Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseWhile() ast.Stmt {
	start := p.expect(token.WHILE)
	cond := p.parseExpr()
	p.expect(token.COLON)
	body := p.parseBlock()
	return &ast.While{StmtBase: stmtBaseAt(start), Cond: cond, Body: body}
}

func (p *Parser) parseReturn() ast.Stmt {
	start := p.expect(token.RETURN)
	var val ast.Expr
	if !p.startsExpr() {
		return &ast.Return{StmtBase: stmtBaseAt(start), Value: nil}
	}
	val = p.parseExpr()
	return &ast.Return{StmtBase: stmtBaseAt(start), Value: val}
}

// startsExpr reports whether the current token could begin an expression;
// used to distinguish a bare `return` from `return <expr>` without a
// dedicated statement terminator token.
func (p *Parser) startsExpr() bool {
	switch p.peek().Kind {
	case token.INT, token.FLOAT, token.STRING, token.IDENT, token.TRUE, token.FALSE,
		token.LPAREN, token.MINUS, token.BANG, token.TILDE:
		return true
	}
	return false
}

// --- Expressions: Pratt / precedence-climbing ------------------------------

type binInfo struct {
	op   ast.BinOpKind
	prec int
}

var binOps = map[token.Kind]binInfo{
	token.OROR:    {ast.OpOr, 1},
	token.ANDAND:  {ast.OpAnd, 2},
	token.PIPE:    {ast.OpBitOr, 3},
	token.CARET:   {ast.OpBitXor, 4},
	token.AMP:     {ast.OpBitAnd, 5},
	token.EQ:      {ast.OpEq, 6},
	token.NEQ:     {ast.OpNeq, 6},
	token.LT:      {ast.OpLt, 7},
	token.LE:      {ast.OpLe, 7},
	token.GT:      {ast.OpGt, 7},
	token.GE:      {ast.OpGe, 7},
	token.SHL:     {ast.OpShl, 8},
	token.SHR:     {ast.OpShr, 8},
	token.PLUS:    {ast.OpAdd, 9},
	token.MINUS:   {ast.OpSub, 9},
	token.STAR:    {ast.OpMul, 10},
	token.SLASH:   {ast.OpDiv, 10},
	token.PERCENT: {ast.OpMod, 10},
}

func (p *Parser) parseExpr() ast.Expr {
	return p.parseBinary(1)
}

func (p *Parser) parseBinary(minPrec int) ast.Expr {
	left := p.parseUnary()

	for {
		info, ok := binOps[p.peek().Kind]
		if !ok || info.prec < minPrec {
			return left
		}
		opTok := p.advance()
		right := p.parseBinary(info.prec + 1) // left-associative
		left = &ast.BinOp{
			ExprBase: exprBaseAt(opTok),
			Op:       info.op,
			Left:     left,
			Right:    right,
		}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.peek().Kind {
	case token.MINUS:
		tok := p.advance()
		return &ast.UnaryOp{ExprBase: exprBaseAt(tok), Op: ast.OpNeg, Operand: p.parseUnary()}
	case token.BANG:
		tok := p.advance()
		return &ast.UnaryOp{ExprBase: exprBaseAt(tok), Op: ast.OpNot, Operand: p.parseUnary()}
	case token.TILDE:
		tok := p.advance()
		return &ast.UnaryOp{ExprBase: exprBaseAt(tok), Op: ast.OpBitNot, Operand: p.parseUnary()}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.peek()
	switch tok.Kind {
	case token.INT:
		p.advance()
		v, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			panic(fmt.Errorf("invalid integer literal %q: %w", tok.Value, err))
		}
		e := &ast.IntLit{ExprBase: exprBaseAt(tok), Value: v}
		e.SetExprType(ast.Type{Kind: ast.I32})
		return e
	case token.FLOAT:
		p.advance()
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			panic(fmt.Errorf("invalid float literal %q: %w", tok.Value, err))
		}
		e := &ast.FloatLit{ExprBase: exprBaseAt(tok), Value: v}
		e.SetExprType(ast.Type{Kind: ast.F64})
		return e
	case token.STRING:
		p.advance()
		e := &ast.StringLit{ExprBase: exprBaseAt(tok), Value: tok.Value}
		e.SetExprType(ast.Type{Kind: ast.Str})
		return e
	case token.TRUE, token.FALSE:
		p.advance()
		e := &ast.BoolLit{ExprBase: exprBaseAt(tok), Value: tok.Kind == token.TRUE}
		e.SetExprType(ast.Type{Kind: ast.Bool})
		return e
	case token.IDENT:
		p.advance()
		if p.check(token.LPAREN) {
			return p.parseCall(tok)
		}
		return &ast.Ident{ExprBase: exprBaseAt(tok), Name: tok.Value}
	case token.LPAREN:
		p.advance()
		inner := p.parseExpr()
		p.expect(token.RPAREN)
		return inner
	}

	panic(ExpectedOneOfKindGotKind{
		Expected: []token.Kind{token.INT, token.FLOAT, token.STRING, token.IDENT, token.TRUE, token.FALSE, token.LPAREN},
		Got:      tok.Kind, Line: tok.Line, Column: tok.Column,
	})
}

func (p *Parser) parseCall(nameTok token.Token) ast.Expr {
	p.expect(token.LPAREN)
	var args []ast.Expr
	if !p.check(token.RPAREN) {
		for {
			args = append(args, p.parseExpr())
			if p.check(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}
	p.expect(token.RPAREN)
	return &ast.Call{ExprBase: exprBaseAt(nameTok), Callee: nameTok.Value, Args: args}
}

func stmtBaseAt(tok token.Token) ast.StmtBase { return ast.StmtAt(tok.Line, tok.Column) }

func exprBaseAt(tok token.Token) ast.ExprBase { return ast.ExprAt(tok.Line, tok.Column) }
