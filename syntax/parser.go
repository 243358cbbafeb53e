// Package syntax turns Sigma source text into an ast.CompilationUnit.
package syntax

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/sigma/ast"
)

// Error is one parse error.
type Error struct {
	Pos ast.Pos
	Msg string
}

func (e Error) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// ErrorList is every error of one parse, in source order.
type ErrorList []Error

func (l ErrorList) Error() string {
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// Parse parses a whole source file. The returned unit is usable even when
// err is non-nil; err is then an ErrorList.
func Parse(name, input string) (*ast.CompilationUnit, error) {
	p := NewParser(input)
	unit := p.ParseUnit(name)
	if errs := p.Errors(); len(errs) > 0 {
		return unit, errs
	}
	return unit, nil
}

// ---------------------------------------------------------------------------
// Parser: recursive descent parser for Sigma
// ---------------------------------------------------------------------------

// Parser parses Sigma source code into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	errors    ErrorList
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
	for p.peekToken.Type == TokenError {
		p.errors = append(p.errors, Error{Pos: p.peekToken.Pos, Msg: p.peekToken.Literal})
		p.peekToken = p.lexer.NextToken()
	}
}

func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.curToken)
	return false
}

func (p *Parser) errorf(format string, args ...any) {
	p.errors = append(p.errors, Error{Pos: p.curToken.Pos, Msg: fmt.Sprintf(format, args...)})
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() ErrorList {
	return p.errors
}

// synchronize skips to just past the next ';' or to the next brace so
// parsing can resume after an error.
func (p *Parser) synchronize() {
	for !p.curTokenIs(TokenEOF) {
		switch p.curToken.Type {
		case TokenSemicolon:
			p.nextToken()
			return
		case TokenRBrace, TokenLBrace:
			return
		}
		p.nextToken()
	}
}

// skipBroken skips past a construct that failed to parse. A brace-delimited
// body that follows is skipped whole.
func (p *Parser) skipBroken() {
	p.synchronize()
	if p.curTokenIs(TokenLBrace) {
		p.parseBlock()
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// ParseUnit parses statements until EOF.
func (p *Parser) ParseUnit(name string) *ast.CompilationUnit {
	unit := &ast.CompilationUnit{Name: name}
	for !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenRBrace) {
			p.errorf("unexpected '}'")
			p.nextToken()
			continue
		}
		if stmt := p.parseStatement(); stmt != nil {
			unit.Stmts = append(unit.Stmts, stmt)
		}
	}
	return unit
}

func (p *Parser) parseStatement() ast.Stmt {
	stmt := p.parseStatementInner()
	if stmt == nil {
		p.skipBroken()
	}
	return stmt
}

func (p *Parser) parseStatementInner() ast.Stmt {
	switch p.curToken.Type {
	case TokenClass:
		return p.parseClass()
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		return p.parseWhile()
	case TokenFor:
		return p.parseFor()
	case TokenReturn:
		return p.parseReturn()
	case TokenLBrace:
		return p.parseBlock()
	case TokenPrint, TokenPrintln:
		if p.peekTokenIs(TokenLParen) {
			return p.parsePrint()
		}
	case TokenIdentifier:
		switch p.peekToken.Type {
		case TokenIdentifier:
			return p.parseDeclaration(false)
		case TokenAssign:
			return p.parseAssign()
		}
	}

	pos := p.curToken.Pos
	expr := p.parseExpression()
	if expr == nil {
		return nil
	}
	p.expect(TokenSemicolon)
	return &ast.ExprStmt{PosVal: pos, Expr: expr}
}

// parseDeclaration parses `type name ...` as a method, or as a variable
// (a field when inClass is set).
func (p *Parser) parseDeclaration(inClass bool) ast.Stmt {
	pos := p.curToken.Pos
	typeName := p.curToken.Literal
	p.nextToken()
	name := p.curToken.Literal
	if !p.expect(TokenIdentifier) {
		return nil
	}

	if p.curTokenIs(TokenLParen) {
		return p.parseMethodRest(pos, typeName, name)
	}

	var init ast.Expr
	if p.curTokenIs(TokenAssign) {
		p.nextToken()
		if init = p.parseExpression(); init == nil {
			return nil
		}
	}
	if !p.expect(TokenSemicolon) {
		return nil
	}
	if inClass {
		return &ast.FieldDecl{PosVal: pos, TypeName: typeName, Name: name, Init: init}
	}
	return &ast.VarDecl{PosVal: pos, TypeName: typeName, Name: name, Init: init}
}

func (p *Parser) parseMethodRest(pos ast.Pos, returnType, name string) ast.Stmt {
	p.nextToken() // (
	var params []ast.Param
	for !p.curTokenIs(TokenRParen) {
		if len(params) > 0 && !p.expect(TokenComma) {
			return nil
		}
		param := ast.Param{PosVal: p.curToken.Pos, TypeName: p.curToken.Literal}
		if !p.expect(TokenIdentifier) {
			return nil
		}
		param.Name = p.curToken.Literal
		if !p.expect(TokenIdentifier) {
			return nil
		}
		params = append(params, param)
	}
	p.nextToken() // )

	if !p.curTokenIs(TokenLBrace) {
		p.errorf("expected method body, got %s", p.curToken)
		return nil
	}
	body := p.parseBlock()
	return &ast.MethodDecl{PosVal: pos, ReturnType: returnType, Name: name, Params: params, Body: body}
}

func (p *Parser) parseClass() ast.Stmt {
	pos := p.curToken.Pos
	p.nextToken()
	name := p.curToken.Literal
	if !p.expect(TokenIdentifier) || !p.expect(TokenLBrace) {
		return nil
	}
	class := &ast.ClassDecl{PosVal: pos, Name: name}
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		if !p.curTokenIs(TokenIdentifier) || !p.peekTokenIs(TokenIdentifier) {
			p.errorf("expected field or method declaration in class %s, got %s", name, p.curToken)
			p.skipBroken()
			continue
		}
		member := p.parseDeclaration(true)
		switch m := member.(type) {
		case *ast.FieldDecl:
			class.Fields = append(class.Fields, m)
		case *ast.MethodDecl:
			class.Methods = append(class.Methods, m)
		default:
			p.skipBroken()
		}
	}
	p.expect(TokenRBrace)
	return class
}

func (p *Parser) parseBlock() *ast.Block {
	block := &ast.Block{PosVal: p.curToken.Pos}
	if !p.expect(TokenLBrace) {
		return block
	}
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		if stmt := p.parseStatement(); stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
	}
	p.expect(TokenRBrace)
	return block
}

// parseCondition parses `( expr )`.
func (p *Parser) parseCondition() ast.Expr {
	if !p.expect(TokenLParen) {
		return nil
	}
	cond := p.parseExpression()
	if cond == nil || !p.expect(TokenRParen) {
		return nil
	}
	return cond
}

func (p *Parser) parseIf() ast.Stmt {
	pos := p.curToken.Pos
	p.nextToken()
	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	stmt := &ast.IfStmt{PosVal: pos, Cond: cond, Then: p.parseBlock()}
	if p.curTokenIs(TokenElse) {
		p.nextToken()
		if p.curTokenIs(TokenIf) {
			stmt.Else = p.parseIf()
		} else {
			stmt.Else = p.parseBlock()
		}
	}
	return stmt
}

func (p *Parser) parseWhile() ast.Stmt {
	pos := p.curToken.Pos
	p.nextToken()
	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	return &ast.WhileStmt{PosVal: pos, Cond: cond, Body: p.parseBlock()}
}

func (p *Parser) parseFor() ast.Stmt {
	pos := p.curToken.Pos
	p.nextToken()
	if !p.expect(TokenLParen) {
		return nil
	}
	typeName := p.curToken.Literal
	if !p.expect(TokenIdentifier) {
		return nil
	}
	name := p.curToken.Literal
	if !p.expect(TokenIdentifier) || !p.expect(TokenColon) {
		return nil
	}
	iterable := p.parseExpression()
	if iterable == nil || !p.expect(TokenRParen) {
		return nil
	}
	return &ast.ForEachStmt{PosVal: pos, TypeName: typeName, Name: name, Iterable: iterable, Body: p.parseBlock()}
}

func (p *Parser) parseReturn() ast.Stmt {
	stmt := &ast.ReturnStmt{PosVal: p.curToken.Pos}
	p.nextToken()
	if !p.curTokenIs(TokenSemicolon) {
		if stmt.Value = p.parseExpression(); stmt.Value == nil {
			return nil
		}
	}
	p.expect(TokenSemicolon)
	return stmt
}

func (p *Parser) parsePrint() ast.Stmt {
	stmt := &ast.PrintStmt{PosVal: p.curToken.Pos}
	p.nextToken() // print
	p.nextToken() // (
	if !p.curTokenIs(TokenRParen) {
		if stmt.Arg = p.parseExpression(); stmt.Arg == nil {
			return nil
		}
	}
	if !p.expect(TokenRParen) {
		return nil
	}
	p.expect(TokenSemicolon)
	return stmt
}

func (p *Parser) parseAssign() ast.Stmt {
	stmt := &ast.AssignStmt{PosVal: p.curToken.Pos, Name: p.curToken.Literal}
	p.nextToken() // name
	p.nextToken() // =
	if stmt.Value = p.parseExpression(); stmt.Value == nil {
		return nil
	}
	p.expect(TokenSemicolon)
	return stmt
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// binaryLevels lists the left-associative operators from loosest to
// tightest binding. ** and the unary operators bind tighter still.
var binaryLevels = []map[TokenType]ast.BinaryOp{
	{TokenOrOr: ast.OpOr},
	{TokenAndAnd: ast.OpAnd},
	{TokenEQ: ast.OpEQ, TokenNE: ast.OpNE},
	{TokenLT: ast.OpLT, TokenLE: ast.OpLE, TokenGT: ast.OpGT, TokenGE: ast.OpGE},
	{TokenPlus: ast.OpAdd, TokenMinus: ast.OpSub},
	{TokenStar: ast.OpMul, TokenSlash: ast.OpDiv, TokenPercent: ast.OpMod},
}

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() ast.Expr {
	return p.parseExpression()
}

func (p *Parser) parseExpression() ast.Expr {
	return p.parseBinary(0)
}

func (p *Parser) parseBinary(level int) ast.Expr {
	if level == len(binaryLevels) {
		return p.parsePower()
	}
	left := p.parseBinary(level + 1)
	for left != nil {
		op, ok := binaryLevels[level][p.curToken.Type]
		if !ok {
			break
		}
		pos := p.curToken.Pos
		p.nextToken()
		right := p.parseBinary(level + 1)
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{PosVal: pos, Op: op, Left: left, Right: right}
	}
	return left
}

// parsePower parses the right-associative ** operator.
func (p *Parser) parsePower() ast.Expr {
	left := p.parseUnary()
	if left == nil || !p.curTokenIs(TokenPower) {
		return left
	}
	pos := p.curToken.Pos
	p.nextToken()
	right := p.parsePower()
	if right == nil {
		return nil
	}
	return &ast.BinaryExpr{PosVal: pos, Op: ast.OpPow, Left: left, Right: right}
}

func (p *Parser) parseUnary() ast.Expr {
	pos := p.curToken.Pos
	var op ast.UnaryOp
	switch p.curToken.Type {
	case TokenBang:
		op = ast.OpNot
	case TokenMinus:
		// A minus directly before a numeric literal folds into it so that
		// the most negative int is expressible.
		if p.peekTokenIs(TokenInt) && p.peekToken.Pos.Column == pos.Column+1 && p.peekToken.Pos.Line == pos.Line {
			p.nextToken()
			lit := "-" + p.curToken.Literal
			p.nextToken()
			return p.parsePostfix(p.parseInt(pos, lit))
		}
		op = ast.OpNeg
	default:
		return p.parsePostfix(p.parsePrimary())
	}
	p.nextToken()
	operand := p.parsePower()
	if operand == nil {
		return nil
	}
	return &ast.UnaryExpr{PosVal: pos, Op: op, Operand: operand}
}

func (p *Parser) parsePostfix(expr ast.Expr) ast.Expr {
	for expr != nil {
		switch p.curToken.Type {
		case TokenLParen:
			call := &ast.CallExpr{PosVal: p.curToken.Pos, Callee: expr}
			p.nextToken()
			for !p.curTokenIs(TokenRParen) {
				if len(call.Args) > 0 && !p.expect(TokenComma) {
					return nil
				}
				arg := p.parseExpression()
				if arg == nil {
					return nil
				}
				call.Args = append(call.Args, arg)
			}
			p.nextToken()
			expr = call
		case TokenPeriod:
			pos := p.curToken.Pos
			p.nextToken()
			name := p.curToken.Literal
			if !p.expect(TokenIdentifier) {
				return nil
			}
			expr = &ast.MemberExpr{PosVal: pos, Object: expr, Name: name}
		default:
			return expr
		}
	}
	return nil
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.curToken
	switch tok.Type {
	case TokenInt:
		p.nextToken()
		return p.parseInt(tok.Pos, tok.Literal)
	case TokenDouble:
		p.nextToken()
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errors = append(p.errors, Error{Pos: tok.Pos, Msg: fmt.Sprintf("invalid double literal %s", tok.Literal)})
			return nil
		}
		return &ast.DoubleLiteral{PosVal: tok.Pos, Value: v}
	case TokenFloat:
		p.nextToken()
		v, err := strconv.ParseFloat(tok.Literal, 32)
		if err != nil {
			p.errors = append(p.errors, Error{Pos: tok.Pos, Msg: fmt.Sprintf("invalid float literal %s", tok.Literal)})
			return nil
		}
		return &ast.FloatLiteral{PosVal: tok.Pos, Value: float32(v)}
	case TokenString:
		p.nextToken()
		return &ast.StringLiteral{PosVal: tok.Pos, Value: tok.Literal}
	case TokenTrue, TokenFalse:
		p.nextToken()
		return &ast.BoolLiteral{PosVal: tok.Pos, Value: tok.Type == TokenTrue}
	case TokenNull:
		p.nextToken()
		return &ast.NullLiteral{PosVal: tok.Pos}
	case TokenIdentifier, TokenPrint, TokenPrintln:
		p.nextToken()
		return &ast.Identifier{PosVal: tok.Pos, Name: tok.Literal}
	case TokenLParen:
		p.nextToken()
		expr := p.parseExpression()
		if expr == nil || !p.expect(TokenRParen) {
			return nil
		}
		return expr
	}
	p.errorf("unexpected %s", tok)
	return nil
}

// parseInt converts an integer literal that was already consumed.
func (p *Parser) parseInt(pos ast.Pos, lit string) ast.Expr {
	v, err := strconv.ParseInt(lit, 10, 64)
	if err != nil || v < math.MinInt32 || v > math.MaxInt32 {
		p.errors = append(p.errors, Error{Pos: pos, Msg: fmt.Sprintf("integer literal %s out of range", lit)})
		return nil
	}
	return &ast.IntLiteral{PosVal: pos, Value: int32(v)}
}
