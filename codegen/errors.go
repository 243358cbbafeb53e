package codegen

import (
	"errors"
	"fmt"

	"github.com/chazu/sigma/ast"
)

// ErrorKind classifies a code generation failure.
type ErrorKind int

const (
	Unsupported ErrorKind = iota
	UndefinedVariable
	ArityMismatch
	MissingReturnValue
	EntryPointConflict
	CannotCoerce
	DuplicateMethod
	Internal
)

var kindNames = [...]string{
	Unsupported:        "unsupported construct",
	UndefinedVariable:  "undefined variable",
	ArityMismatch:      "arity mismatch",
	MissingReturnValue: "missing return value",
	EntryPointConflict: "entry point conflict",
	CannotCoerce:       "cannot coerce",
	DuplicateMethod:    "duplicate method",
	Internal:           "internal",
}

func (k ErrorKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a fatal generation failure. Generation stops at the first one.
type Error struct {
	Kind ErrorKind
	Msg  string
	Pos  ast.Pos
}

func (e *Error) Error() string {
	return fmt.Sprintf("internal compiler error: %s at line %d, column %d: %s", e.Kind, e.Pos.Line, e.Pos.Column, e.Msg)
}

// ErrNotAnalyzed is returned when Generate is given a result with
// diagnostics.
var ErrNotAnalyzed = errors.New("codegen: semantic analysis did not succeed")

func errorf(kind ErrorKind, node ast.Node, format string, args ...any) *Error {
	var pos ast.Pos
	if node != nil {
		pos = node.Pos()
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Pos: pos}
}

// KindOf returns the kind of a generation error, and false for any other
// error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
