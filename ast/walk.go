package ast

// Inspect calls fn for every expression reachable from stmts, parents
// before children.
func Inspect(stmts []Stmt, fn func(Expr)) {
	for _, s := range stmts {
		inspectStmt(s, fn)
	}
}

func inspectStmt(s Stmt, fn func(Expr)) {
	switch s := s.(type) {
	case *VarDecl:
		inspectExpr(s.Init, fn)
	case *AssignStmt:
		inspectExpr(s.Value, fn)
	case *ExprStmt:
		inspectExpr(s.Expr, fn)
	case *PrintStmt:
		inspectExpr(s.Arg, fn)
	case *Block:
		Inspect(s.Stmts, fn)
	case *IfStmt:
		inspectExpr(s.Cond, fn)
		inspectStmt(s.Then, fn)
		if s.Else != nil {
			inspectStmt(s.Else, fn)
		}
	case *WhileStmt:
		inspectExpr(s.Cond, fn)
		inspectStmt(s.Body, fn)
	case *ForEachStmt:
		inspectExpr(s.Iterable, fn)
		inspectStmt(s.Body, fn)
	case *ReturnStmt:
		inspectExpr(s.Value, fn)
	case *MethodDecl:
		inspectStmt(s.Body, fn)
	case *FieldDecl:
		inspectExpr(s.Init, fn)
	case *ClassDecl:
		for _, f := range s.Fields {
			inspectStmt(f, fn)
		}
		for _, m := range s.Methods {
			inspectStmt(m, fn)
		}
	}
}

func inspectExpr(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch e := e.(type) {
	case *BinaryExpr:
		inspectExpr(e.Left, fn)
		inspectExpr(e.Right, fn)
	case *UnaryExpr:
		inspectExpr(e.Operand, fn)
	case *CallExpr:
		inspectExpr(e.Callee, fn)
		for _, a := range e.Args {
			inspectExpr(a, fn)
		}
	case *MemberExpr:
		inspectExpr(e.Object, fn)
	}
}
