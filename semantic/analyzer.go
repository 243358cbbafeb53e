// Package semantic type-checks Sigma compilation units and resolves names.
package semantic

import (
	"github.com/chazu/sigma/ast"
	"github.com/chazu/sigma/diag"
	"github.com/chazu/sigma/symbols"
	"github.com/chazu/sigma/types"
)

// ---------------------------------------------------------------------------
// Analyzer: declaration collection followed by type checking
// ---------------------------------------------------------------------------

// Analyzer performs the two analysis passes over one compilation unit.
// No diagnostic stops either pass; malformed expressions get the Error
// type so checking can continue.
type Analyzer struct {
	diags     diag.List
	registry  *types.Registry
	table     *symbols.Table
	classes   map[string]*symbols.ClassInfo
	exprTypes map[ast.Expr]types.Type

	// Filled by declaration collection and reused by type checking so
	// type names are resolved (and reported) once.
	sigs       map[*ast.MethodDecl]*symbols.MethodSig
	globalVars map[*ast.VarDecl]types.Type
	fieldTypes map[*ast.FieldDecl]types.Type
	members    map[ast.Node]bool // class members accepted by collection
	classOf    map[*ast.ClassDecl]*symbols.ClassInfo
}

// checkCtx is threaded through the recursive walk. Callers pass a modified
// copy into nested methods, so nothing needs restoring on the way out.
type checkCtx struct {
	returnType types.Type // nil outside any method
}

// NewAnalyzer creates an analyzer with fresh state.
func NewAnalyzer() *Analyzer {
	a := &Analyzer{
		registry:   types.NewRegistry(),
		classes:    make(map[string]*symbols.ClassInfo),
		exprTypes:  make(map[ast.Expr]types.Type),
		sigs:       make(map[*ast.MethodDecl]*symbols.MethodSig),
		globalVars: make(map[*ast.VarDecl]types.Type),
		fieldTypes: make(map[*ast.FieldDecl]types.Type),
		members:    make(map[ast.Node]bool),
		classOf:    make(map[*ast.ClassDecl]*symbols.ClassInfo),
	}
	a.table = symbols.NewTable(&a.diags)
	return a
}

// Analyze runs both passes over unit and always returns a result.
func Analyze(unit *ast.CompilationUnit) *Result {
	return NewAnalyzer().Analyze(unit)
}

// Analyze runs both passes over unit. An Analyzer is single-use.
func (a *Analyzer) Analyze(unit *ast.CompilationUnit) *Result {
	a.collectDeclarations(unit.Stmts)
	for _, stmt := range unit.Stmts {
		a.checkStmt(stmt, checkCtx{})
	}
	return &Result{
		Unit:        unit,
		Diagnostics: a.diags.Items(),
		ExprTypes:   a.exprTypes,
		Symbols:     a.table,
		Classes:     a.classes,
		Registry:    a.registry,
	}
}

func (a *Analyzer) report(kind diag.Kind, node ast.Node, format string, args ...any) {
	a.diags.Report(kind, node.Pos(), format, args...)
}

// resolveType looks up a declared type name, reporting unknown names.
func (a *Analyzer) resolveType(name string, pos ast.Pos) types.Type {
	t := a.registry.Resolve(name)
	if types.IsError(t) {
		a.diags.Report(diag.UndefinedClass, pos, "type '%s' is not defined", name)
	}
	return t
}

// resolveValueType is resolveType for variables, fields and parameters,
// which cannot be void.
func (a *Analyzer) resolveValueType(name string, pos ast.Pos) types.Type {
	t := a.resolveType(name, pos)
	if types.IsVoid(t) {
		a.diags.Report(diag.TypeMismatch, pos, "'void' is not a valid variable type")
		return types.ErrorT
	}
	return t
}

// ---------------------------------------------------------------------------
// Pass 1: declaration collection
// ---------------------------------------------------------------------------

func (a *Analyzer) collectDeclarations(stmts []ast.Stmt) {
	// Class names first, so member and method types may name any class.
	var classDecls []*ast.ClassDecl
	for _, stmt := range stmts {
		c, ok := stmt.(*ast.ClassDecl)
		if !ok {
			continue
		}
		if _, seen := a.classes[c.Name]; !seen && a.registry.IsRegistered(c.Name) {
			a.report(diag.DuplicateDeclaration, c, "'%s' is a built-in type", c.Name)
			continue
		}
		typ := a.registry.RegisterClass(c.Name)
		if !a.table.Define(c.Name, typ, symbols.Class, c.Pos()) {
			continue
		}
		info := symbols.NewClassInfo(c.Name, typ, c.Pos())
		a.classes[c.Name] = info
		a.classOf[c] = info
		classDecls = append(classDecls, c)
	}

	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.MethodDecl:
			sig := a.signature(s)
			a.table.Define(s.Name, sig.ReturnType, symbols.Method, s.Pos())
		case *ast.VarDecl:
			typ := a.resolveValueType(s.TypeName, s.Pos())
			a.globalVars[s] = typ
			a.table.Define(s.Name, typ, symbols.Variable, s.Pos())
		}
	}

	for _, c := range classDecls {
		a.collectClassMembers(c, a.classOf[c])
	}
}

func (a *Analyzer) collectClassMembers(c *ast.ClassDecl, info *symbols.ClassInfo) {
	for _, f := range c.Fields {
		typ := a.resolveValueType(f.TypeName, f.Pos())
		a.fieldTypes[f] = typ
		sym := &symbols.Symbol{Name: f.Name, Type: typ, Kind: symbols.Field, Pos: f.Pos()}
		if !info.AddField(sym) {
			a.reportDuplicateMember(info, f.Name, f)
			continue
		}
		a.members[f] = true
	}
	for _, m := range c.Methods {
		sig := a.signature(m)
		if !info.AddMethod(m.Name, sig) {
			a.reportDuplicateMember(info, m.Name, m)
			continue
		}
		a.members[m] = true
	}
}

func (a *Analyzer) reportDuplicateMember(info *symbols.ClassInfo, name string, node ast.Node) {
	prev := info.Pos
	if f, ok := info.Fields[name]; ok {
		prev = f.Pos
	} else if m, ok := info.Methods[name]; ok {
		prev = m.Pos
	}
	pos := node.Pos()
	a.report(diag.DuplicateDeclaration, node,
		"member '%s' of class %s is already declared at line %d, column %d (redeclared at line %d, column %d)",
		name, info.Name, prev.Line, prev.Column, pos.Line, pos.Column)
}

// signature resolves (once) the declared types of a method.
func (a *Analyzer) signature(m *ast.MethodDecl) *symbols.MethodSig {
	if sig, ok := a.sigs[m]; ok {
		return sig
	}
	sig := &symbols.MethodSig{
		ReturnType: a.resolveType(m.ReturnType, m.Pos()),
		Pos:        m.Pos(),
	}
	for _, p := range m.Params {
		sig.ParamTypes = append(sig.ParamTypes, a.resolveValueType(p.TypeName, p.PosVal))
	}
	a.sigs[m] = sig
	return sig
}

// ---------------------------------------------------------------------------
// Pass 2: statements
// ---------------------------------------------------------------------------

func (a *Analyzer) checkStmts(stmts []ast.Stmt, ctx checkCtx) {
	for _, stmt := range stmts {
		a.checkStmt(stmt, ctx)
	}
}

func (a *Analyzer) checkStmt(stmt ast.Stmt, ctx checkCtx) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		a.checkVarDecl(s, ctx)
	case *ast.AssignStmt:
		a.checkAssign(s, ctx)
	case *ast.ExprStmt:
		a.checkExpr(s.Expr, ctx)
	case *ast.PrintStmt:
		if s.Arg != nil {
			a.checkValue(s.Arg, ctx)
		}
	case *ast.Block:
		a.checkBlock(s, ctx)
	case *ast.IfStmt:
		a.checkCondition(s.Cond, "if", ctx)
		a.checkBlock(s.Then, ctx)
		if s.Else != nil {
			a.checkStmt(s.Else, ctx)
		}
	case *ast.WhileStmt:
		a.checkCondition(s.Cond, "while", ctx)
		a.checkBlock(s.Body, ctx)
	case *ast.ForEachStmt:
		a.checkForEach(s, ctx)
	case *ast.ReturnStmt:
		a.checkReturn(s, ctx)
	case *ast.MethodDecl:
		if _, collected := a.sigs[s]; !collected {
			sig := a.signature(s)
			a.table.Define(s.Name, sig.ReturnType, symbols.Method, s.Pos())
		}
		a.checkMethod(s)
	case *ast.ClassDecl:
		a.checkClass(s)
	case *ast.FieldDecl:
		// Fields only occur inside class bodies.
	}
}

func (a *Analyzer) checkBlock(b *ast.Block, ctx checkCtx) {
	a.table.EnterScope(symbols.ScopeBlock)
	a.checkStmts(b.Stmts, ctx)
	a.table.ExitScope()
}

func (a *Analyzer) checkVarDecl(s *ast.VarDecl, ctx checkCtx) {
	typ, global := a.globalVars[s]
	if !global {
		typ = a.resolveValueType(s.TypeName, s.Pos())
	}
	if s.Init != nil {
		a.checkAssignable(a.checkValue(s.Init, ctx), typ, s.Init, "variable '"+s.Name+"'")
	}
	if !global {
		a.table.Define(s.Name, typ, symbols.Variable, s.Pos())
	}
}

func (a *Analyzer) checkAssign(s *ast.AssignStmt, ctx checkCtx) {
	valueType := a.checkValue(s.Value, ctx)
	sym, ok := a.table.Lookup(s.Name)
	if !ok {
		a.report(diag.UndefinedVariable, s, "variable '%s' is not defined", s.Name)
		return
	}
	switch sym.Kind {
	case symbols.Method, symbols.Class:
		a.report(diag.TypeMismatch, s, "cannot assign to %s '%s'", sym.Kind, s.Name)
		return
	}
	a.checkAssignable(valueType, sym.Type, s.Value, "variable '"+s.Name+"'")
}

func (a *Analyzer) checkAssignable(value, target types.Type, at ast.Node, what string) {
	if !value.IsCompatibleWith(target) {
		a.report(diag.TypeMismatch, at, "cannot assign %s to %s of type %s", value, what, target)
	}
}

func (a *Analyzer) checkCondition(cond ast.Expr, what string, ctx checkCtx) {
	t := a.checkValue(cond, ctx)
	if !types.IsBoolean(t) && !types.IsError(t) {
		a.report(diag.TypeMismatch, cond, "%s condition must be boolean, got %s", what, t)
	}
}

func (a *Analyzer) checkForEach(s *ast.ForEachStmt, ctx checkCtx) {
	a.checkValue(s.Iterable, ctx)
	a.table.EnterScope(symbols.ScopeBlock)
	a.table.Define(s.Name, a.resolveValueType(s.TypeName, s.Pos()), symbols.Variable, s.Pos())
	a.checkStmts(s.Body.Stmts, ctx)
	a.table.ExitScope()
}

func (a *Analyzer) checkReturn(s *ast.ReturnStmt, ctx checkCtx) {
	if s.Value == nil {
		if ctx.returnType != nil && !types.IsVoid(ctx.returnType) && !types.IsError(ctx.returnType) {
			a.report(diag.InvalidReturnType, s, "missing return value, method returns %s", ctx.returnType)
		}
		return
	}
	t := a.checkExpr(s.Value, ctx)
	if ctx.returnType == nil {
		a.report(diag.InvalidReturnType, s, "cannot return a value outside a method")
		return
	}
	if !t.IsCompatibleWith(ctx.returnType) {
		a.report(diag.InvalidReturnType, s.Value, "cannot return %s from a method returning %s", t, ctx.returnType)
	}
}

func (a *Analyzer) checkMethod(m *ast.MethodDecl) {
	sig := a.sigs[m]
	a.table.EnterScope(symbols.ScopeMethod)
	for i, p := range m.Params {
		a.table.Define(p.Name, sig.ParamTypes[i], symbols.Parameter, p.PosVal)
	}
	a.checkStmts(m.Body.Stmts, checkCtx{returnType: sig.ReturnType})
	a.table.ExitScope()
}

func (a *Analyzer) checkClass(c *ast.ClassDecl) {
	info, ok := a.classOf[c]
	if !ok {
		// Rejected during collection; still check method bodies.
		for _, m := range c.Methods {
			a.signature(m)
			a.checkMethod(m)
		}
		return
	}
	a.table.EnterScope(symbols.ScopeClass)
	for _, f := range c.Fields {
		if a.members[f] {
			a.table.Define(f.Name, a.fieldTypes[f], symbols.Field, f.Pos())
		}
	}
	for _, m := range c.Methods {
		if a.members[m] {
			a.table.Define(m.Name, info.Methods[m.Name].ReturnType, symbols.Method, m.Pos())
		}
	}
	for _, f := range c.Fields {
		if f.Init != nil {
			a.checkAssignable(a.checkValue(f.Init, checkCtx{}), a.fieldTypes[f], f.Init, "field '"+f.Name+"'")
		}
	}
	for _, m := range c.Methods {
		a.checkMethod(m)
	}
	a.table.ExitScope()
}
