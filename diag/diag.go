// Package diag holds the diagnostics produced by semantic analysis.
package diag

import (
	"fmt"
	"strings"

	"github.com/chazu/sigma/ast"
)

// Kind classifies a diagnostic.
type Kind int

const (
	UndefinedVariable Kind = iota
	UndefinedMethod
	UndefinedClass
	TypeMismatch
	DuplicateDeclaration
	InvalidReturnType
	InvalidBinaryOp
	InvalidUnaryOp
	InvalidCall
	InvalidMemberAccess
	VoidExpression
)

var kindNames = [...]string{
	UndefinedVariable:    "UNDEFINED_VARIABLE",
	UndefinedMethod:      "UNDEFINED_METHOD",
	UndefinedClass:       "UNDEFINED_CLASS",
	TypeMismatch:         "TYPE_MISMATCH",
	DuplicateDeclaration: "DUPLICATE_DECLARATION",
	InvalidReturnType:    "INVALID_RETURN_TYPE",
	InvalidBinaryOp:      "INVALID_BINARY_OP",
	InvalidUnaryOp:       "INVALID_UNARY_OP",
	InvalidCall:          "INVALID_CALL",
	InvalidMemberAccess:  "INVALID_MEMBER_ACCESS",
	VoidExpression:       "VOID_EXPRESSION",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Diagnostic is one semantic error.
type Diagnostic struct {
	Kind    Kind
	Message string
	Pos     ast.Pos
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("line %d, column %d: %s: %s", d.Pos.Line, d.Pos.Column, d.Kind, d.Message)
}

// List accumulates diagnostics in report order.
type List struct {
	items []Diagnostic
}

// Report appends a diagnostic.
func (l *List) Report(kind Kind, pos ast.Pos, format string, args ...any) {
	l.items = append(l.items, Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos})
}

// Items returns the diagnostics in report order.
func (l *List) Items() []Diagnostic {
	return l.items
}

// Len returns the number of diagnostics.
func (l *List) Len() int {
	return len(l.items)
}

// Count returns how many diagnostics have the given kind.
func (l *List) Count(kind Kind) int {
	n := 0
	for _, d := range l.items {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

func (l *List) String() string {
	var sb strings.Builder
	for i, d := range l.items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(d.Error())
	}
	return sb.String()
}
