// Package ast defines the node vocabulary handed to the Sigma semantic
// analyzer and code generator.
package ast

import "fmt"

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for Sigma
// ---------------------------------------------------------------------------

// Pos is a source location. Line and Column are 1-based.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Pos() Pos
	node() // marker method
}

// CompilationUnit is the ordered sequence of top-level statements of one program.
type CompilationUnit struct {
	Name  string // source name, used for the SourceFile attribute
	Stmts []Stmt
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// IntLiteral is a 32-bit integer literal.
type IntLiteral struct {
	PosVal Pos
	Value  int32
}

func (n *IntLiteral) Pos() Pos { return n.PosVal }
func (n *IntLiteral) node()    {}
func (n *IntLiteral) expr()    {}

// DoubleLiteral is a 64-bit floating-point literal (3.5).
type DoubleLiteral struct {
	PosVal Pos
	Value  float64
}

func (n *DoubleLiteral) Pos() Pos { return n.PosVal }
func (n *DoubleLiteral) node()    {}
func (n *DoubleLiteral) expr()    {}

// FloatLiteral is a 32-bit floating-point literal (3.5f).
type FloatLiteral struct {
	PosVal Pos
	Value  float32
}

func (n *FloatLiteral) Pos() Pos { return n.PosVal }
func (n *FloatLiteral) node()    {}
func (n *FloatLiteral) expr()    {}

// StringLiteral is a string literal with escapes already decoded.
type StringLiteral struct {
	PosVal Pos
	Value  string
}

func (n *StringLiteral) Pos() Pos { return n.PosVal }
func (n *StringLiteral) node()    {}
func (n *StringLiteral) expr()    {}

// BoolLiteral is true or false.
type BoolLiteral struct {
	PosVal Pos
	Value  bool
}

func (n *BoolLiteral) Pos() Pos { return n.PosVal }
func (n *BoolLiteral) node()    {}
func (n *BoolLiteral) expr()    {}

// NullLiteral is the null reference.
type NullLiteral struct {
	PosVal Pos
}

func (n *NullLiteral) Pos() Pos { return n.PosVal }
func (n *NullLiteral) node()    {}
func (n *NullLiteral) expr()    {}

// Identifier is a reference to a variable, parameter or method by name.
type Identifier struct {
	PosVal Pos
	Name   string
}

func (n *Identifier) Pos() Pos { return n.PosVal }
func (n *Identifier) node()    {}
func (n *Identifier) expr()    {}

// BinaryExpr is Left Op Right.
type BinaryExpr struct {
	PosVal Pos
	Op     BinaryOp
	Left   Expr
	Right  Expr
}

func (n *BinaryExpr) Pos() Pos { return n.PosVal }
func (n *BinaryExpr) node()    {}
func (n *BinaryExpr) expr()    {}

// UnaryExpr is Op Operand.
type UnaryExpr struct {
	PosVal  Pos
	Op      UnaryOp
	Operand Expr
}

func (n *UnaryExpr) Pos() Pos { return n.PosVal }
func (n *UnaryExpr) node()    {}
func (n *UnaryExpr) expr()    {}

// CallExpr is Callee(Args...). Callee is an *Identifier for direct calls.
type CallExpr struct {
	PosVal Pos
	Callee Expr
	Args   []Expr
}

func (n *CallExpr) Pos() Pos { return n.PosVal }
func (n *CallExpr) node()    {}
func (n *CallExpr) expr()    {}

// MemberExpr is Object.Name.
type MemberExpr struct {
	PosVal Pos
	Object Expr
	Name   string
}

func (n *MemberExpr) Pos() Pos { return n.PosVal }
func (n *MemberExpr) node()    {}
func (n *MemberExpr) expr()    {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// VarDecl declares a local (or top-level) variable.
type VarDecl struct {
	PosVal   Pos
	TypeName string
	Name     string
	Init     Expr // may be nil
}

func (n *VarDecl) Pos() Pos { return n.PosVal }
func (n *VarDecl) node()    {}
func (n *VarDecl) stmt()    {}

// AssignStmt stores Value into the named variable.
type AssignStmt struct {
	PosVal Pos
	Name   string
	Value  Expr
}

func (n *AssignStmt) Pos() Pos { return n.PosVal }
func (n *AssignStmt) node()    {}
func (n *AssignStmt) stmt()    {}

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	PosVal Pos
	Expr   Expr
}

func (n *ExprStmt) Pos() Pos { return n.PosVal }
func (n *ExprStmt) node()    {}
func (n *ExprStmt) stmt()    {}

// PrintStmt is the built-in print/println. Arg is nil for a bare println().
type PrintStmt struct {
	PosVal Pos
	Arg    Expr
}

func (n *PrintStmt) Pos() Pos { return n.PosVal }
func (n *PrintStmt) node()    {}
func (n *PrintStmt) stmt()    {}

// Block is a braced statement list with its own scope.
type Block struct {
	PosVal Pos
	Stmts  []Stmt
}

func (n *Block) Pos() Pos { return n.PosVal }
func (n *Block) node()    {}
func (n *Block) stmt()    {}

// IfStmt is if (Cond) Then else Else. Else is nil, a *Block or an *IfStmt.
type IfStmt struct {
	PosVal Pos
	Cond   Expr
	Then   *Block
	Else   Stmt
}

func (n *IfStmt) Pos() Pos { return n.PosVal }
func (n *IfStmt) node()    {}
func (n *IfStmt) stmt()    {}

// WhileStmt is while (Cond) Body.
type WhileStmt struct {
	PosVal Pos
	Cond   Expr
	Body   *Block
}

func (n *WhileStmt) Pos() Pos { return n.PosVal }
func (n *WhileStmt) node()    {}
func (n *WhileStmt) stmt()    {}

// ForEachStmt is for (TypeName Name : Iterable) Body. With an int
// Iterable it counts Name from 0 up to Iterable-1.
type ForEachStmt struct {
	PosVal   Pos
	TypeName string
	Name     string
	Iterable Expr
	Body     *Block
}

func (n *ForEachStmt) Pos() Pos { return n.PosVal }
func (n *ForEachStmt) node()    {}
func (n *ForEachStmt) stmt()    {}

// ReturnStmt returns from the enclosing method. Value may be nil.
type ReturnStmt struct {
	PosVal Pos
	Value  Expr
}

func (n *ReturnStmt) Pos() Pos { return n.PosVal }
func (n *ReturnStmt) node()    {}
func (n *ReturnStmt) stmt()    {}

// Param is one declared method parameter.
type Param struct {
	PosVal   Pos
	TypeName string
	Name     string
}

// MethodDecl declares a method at top level or inside a class.
type MethodDecl struct {
	PosVal     Pos
	ReturnType string
	Name       string
	Params     []Param
	Body       *Block
}

func (n *MethodDecl) Pos() Pos { return n.PosVal }
func (n *MethodDecl) node()    {}
func (n *MethodDecl) stmt()    {}

// FieldDecl declares a field inside a class body.
type FieldDecl struct {
	PosVal   Pos
	TypeName string
	Name     string
	Init     Expr // may be nil
}

func (n *FieldDecl) Pos() Pos { return n.PosVal }
func (n *FieldDecl) node()    {}
func (n *FieldDecl) stmt()    {}

// ClassDecl declares a class with fields and methods.
type ClassDecl struct {
	PosVal  Pos
	Name    string
	Fields  []*FieldDecl
	Methods []*MethodDecl
}

func (n *ClassDecl) Pos() Pos { return n.PosVal }
func (n *ClassDecl) node()    {}
func (n *ClassDecl) stmt()    {}
