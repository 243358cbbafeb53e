package semantic

import (
	"github.com/chazu/sigma/ast"
	"github.com/chazu/sigma/diag"
	"github.com/chazu/sigma/symbols"
	"github.com/chazu/sigma/types"
)

// Result is the output of one analysis. It is read-only once returned.
type Result struct {
	Unit        *ast.CompilationUnit
	Diagnostics []diag.Diagnostic

	// ExprTypes has exactly one entry per expression node, keyed by node
	// identity.
	ExprTypes map[ast.Expr]types.Type

	Symbols  *symbols.Table
	Classes  map[string]*symbols.ClassInfo
	Registry *types.Registry
}

// Successful reports whether analysis produced no diagnostics.
func (r *Result) Successful() bool {
	return len(r.Diagnostics) == 0
}

// TypeOf returns the recorded type of e, or the Error type if e was never
// analyzed.
func (r *Result) TypeOf(e ast.Expr) types.Type {
	if t, ok := r.ExprTypes[e]; ok {
		return t
	}
	return types.ErrorT
}
