package semantic

import (
	"github.com/chazu/sigma/ast"
	"github.com/chazu/sigma/diag"
	"github.com/chazu/sigma/symbols"
	"github.com/chazu/sigma/types"
)

// Builtins are callable without a declaration and are never looked up in
// the symbol table.
var Builtins = map[string]bool{
	"print":   true,
	"println": true,
}

// ---------------------------------------------------------------------------
// Pass 2: expressions
// ---------------------------------------------------------------------------

// checkExpr infers the type of e and records it. Each node is recorded
// once.
func (a *Analyzer) checkExpr(e ast.Expr, ctx checkCtx) types.Type {
	t := a.inferExpr(e, ctx)
	if _, seen := a.exprTypes[e]; !seen {
		a.exprTypes[e] = t
	}
	return t
}

// checkValue is checkExpr for positions that need a value; a void call
// there is reported and treated as Error.
func (a *Analyzer) checkValue(e ast.Expr, ctx checkCtx) types.Type {
	t := a.checkExpr(e, ctx)
	if types.IsVoid(t) {
		a.report(diag.VoidExpression, e, "void expression used as a value")
		return types.ErrorT
	}
	return t
}

func (a *Analyzer) inferExpr(e ast.Expr, ctx checkCtx) types.Type {
	switch e := e.(type) {
	case *ast.IntLiteral:
		return types.Int
	case *ast.DoubleLiteral:
		return types.Double
	case *ast.FloatLiteral:
		return types.Float
	case *ast.StringLiteral:
		return types.String
	case *ast.BoolLiteral:
		return types.Boolean
	case *ast.NullLiteral:
		return types.NullT
	case *ast.Identifier:
		sym, ok := a.table.Lookup(e.Name)
		if !ok {
			a.report(diag.UndefinedVariable, e, "variable '%s' is not defined", e.Name)
			return types.ErrorT
		}
		return sym.Type
	case *ast.BinaryExpr:
		return a.inferBinary(e, ctx)
	case *ast.UnaryExpr:
		return a.inferUnary(e, ctx)
	case *ast.CallExpr:
		return a.inferCall(e, ctx)
	case *ast.MemberExpr:
		a.checkValue(e.Object, ctx)
		a.report(diag.InvalidMemberAccess, e, "member access '.%s' is not supported", e.Name)
		return types.ErrorT
	}
	return types.ErrorT
}

func (a *Analyzer) inferBinary(e *ast.BinaryExpr, ctx checkCtx) types.Type {
	lt := a.checkValue(e.Left, ctx)
	rt := a.checkValue(e.Right, ctx)

	switch {
	case e.Op.IsComparison():
		// Operands of comparisons are not checked.
		return types.Boolean

	case e.Op.IsLogical():
		if types.IsError(lt) || types.IsError(rt) {
			return types.ErrorT
		}
		if !types.IsBoolean(lt) || !types.IsBoolean(rt) {
			a.report(diag.InvalidBinaryOp, e, "operator %s requires boolean operands, got %s and %s", e.Op, lt, rt)
			return types.ErrorT
		}
		return types.Boolean
	}

	if e.Op == ast.OpAdd && (types.IsString(lt) || types.IsString(rt)) {
		return types.String
	}
	if types.IsError(lt) || types.IsError(rt) {
		return types.ErrorT
	}
	if w := types.Widest(lt, rt); w != nil {
		return w
	}
	a.report(diag.InvalidBinaryOp, e, "operator %s cannot be applied to %s and %s", e.Op, lt, rt)
	return types.ErrorT
}

func (a *Analyzer) inferUnary(e *ast.UnaryExpr, ctx checkCtx) types.Type {
	t := a.checkValue(e.Operand, ctx)
	if types.IsError(t) {
		return t
	}
	switch e.Op {
	case ast.OpNot:
		if types.IsBoolean(t) {
			return t
		}
	case ast.OpNeg:
		if types.IsNumeric(t) {
			return t
		}
	}
	a.report(diag.InvalidUnaryOp, e, "operator %s cannot be applied to %s", e.Op, t)
	return types.ErrorT
}

// inferCall resolves a direct call. Argument count and types are not
// checked here; code generation enforces them.
func (a *Analyzer) inferCall(e *ast.CallExpr, ctx checkCtx) types.Type {
	for _, arg := range e.Args {
		a.checkValue(arg, ctx)
	}

	switch callee := e.Callee.(type) {
	case *ast.Identifier:
		if Builtins[callee.Name] {
			a.exprTypes[callee] = types.VoidT
			return types.VoidT
		}
		sym, ok := a.table.Lookup(callee.Name)
		if !ok {
			a.exprTypes[callee] = types.ErrorT
			a.report(diag.UndefinedMethod, callee, "method '%s' is not defined", callee.Name)
			return types.ErrorT
		}
		a.exprTypes[callee] = sym.Type
		if sym.Kind != symbols.Method {
			a.report(diag.InvalidCall, e, "%s '%s' is not a method", sym.Kind, callee.Name)
			return types.ErrorT
		}
		return sym.Type

	case *ast.MemberExpr:
		// Reported as a member access; no second diagnostic for the call.
		a.checkExpr(callee, ctx)
		return types.ErrorT

	default:
		a.checkExpr(callee, ctx)
		a.report(diag.InvalidCall, e, "only methods can be called by name")
		return types.ErrorT
	}
}
