package codegen

import (
	"github.com/chazu/sigma/ast"
	"github.com/chazu/sigma/classfile"
	"github.com/chazu/sigma/types"
)

// methodCtx is the compilation context of one method body. Nested blocks
// get a copy with a child scope; the code builder and method are shared.
type methodCtx struct {
	g     *Generator
	info  *MethodInfo
	code  *classfile.Code
	scope *LocalScope
}

func (ctx *methodCtx) nested() *methodCtx {
	c := *ctx
	c.scope = ctx.scope.Child()
	return &c
}

func (ctx *methodCtx) typeOf(e ast.Expr) types.Type {
	return ctx.g.res.TypeOf(e)
}

// finishBody appends the implicit end of the method: a return for void
// methods, otherwise a thrown IllegalStateException. Both are appended
// whether or not the body already returned on every path.
func (ctx *methodCtx) finishBody() {
	c := ctx.code
	if types.IsVoid(ctx.info.ReturnType) {
		c.Emit(classfile.OpReturn)
		return
	}
	c.EmitNew(classfile.IllegalStateClass)
	c.Emit(classfile.OpDup)
	c.EmitString("missing return")
	c.EmitInvoke(classfile.OpInvokespecial, classfile.IllegalStateClass, "<init>", "(Ljava/lang/String;)V")
	c.Emit(classfile.OpAthrow)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (ctx *methodCtx) lowerStmts(stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		if err := ctx.lowerStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *methodCtx) lowerStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		return ctx.lowerVarDecl(s)
	case *ast.AssignStmt:
		return ctx.lowerAssign(s)
	case *ast.ExprStmt:
		if err := ctx.lowerExpr(s.Expr); err != nil {
			return err
		}
		ctx.discard(ctx.typeOf(s.Expr))
		return nil
	case *ast.PrintStmt:
		return ctx.lowerPrint(s.Arg)
	case *ast.Block:
		return ctx.nested().lowerStmts(s.Stmts)
	case *ast.IfStmt:
		return ctx.lowerIf(s)
	case *ast.WhileStmt:
		return ctx.lowerWhile(s)
	case *ast.ForEachStmt:
		return ctx.lowerForEach(s)
	case *ast.ReturnStmt:
		return ctx.lowerReturn(s)
	case *ast.MethodDecl:
		return errorf(Unsupported, s, "method '%s' must be declared at top level or in a class", s.Name)
	case *ast.ClassDecl:
		return errorf(Unsupported, s, "class '%s' must be declared at top level", s.Name)
	}
	return errorf(Internal, stmt, "unexpected statement %T", stmt)
}

func (ctx *methodCtx) lowerVarDecl(s *ast.VarDecl) error {
	typ := ctx.g.res.Registry.Resolve(s.TypeName)
	if s.Init != nil {
		// The initializer is lowered before the name is in scope.
		if err := ctx.lowerValue(s.Init, typ); err != nil {
			return err
		}
	} else {
		ctx.pushZero(typ)
	}
	v := ctx.scope.Declare(s.Name, typ)
	ctx.code.EmitLocal(storeOp(typ), v.Slot)
	return nil
}

func (ctx *methodCtx) lowerAssign(s *ast.AssignStmt) error {
	v, ok := ctx.scope.Lookup(s.Name)
	if !ok {
		return errorf(UndefinedVariable, s, "no local variable '%s' in method '%s'", s.Name, ctx.info.Name)
	}
	if err := ctx.lowerValue(s.Value, v.Type); err != nil {
		return err
	}
	ctx.code.EmitLocal(storeOp(v.Type), v.Slot)
	return nil
}

func (ctx *methodCtx) lowerIf(s *ast.IfStmt) error {
	c := ctx.code
	elseL, end := c.NewLabel(), c.NewLabel()
	if err := ctx.lowerExpr(s.Cond); err != nil {
		return err
	}
	c.EmitJump(classfile.OpIfeq, elseL)
	if err := ctx.lowerStmt(s.Then); err != nil {
		return err
	}
	c.EmitJump(classfile.OpGoto, end)
	c.Mark(elseL)
	if s.Else != nil {
		if err := ctx.lowerStmt(s.Else); err != nil {
			return err
		}
	}
	c.Mark(end)
	return nil
}

func (ctx *methodCtx) lowerWhile(s *ast.WhileStmt) error {
	c := ctx.code
	start, end := c.NewLabel(), c.NewLabel()
	c.Mark(start)
	if err := ctx.lowerExpr(s.Cond); err != nil {
		return err
	}
	c.EmitJump(classfile.OpIfeq, end)
	if err := ctx.lowerStmt(s.Body); err != nil {
		return err
	}
	c.EmitJump(classfile.OpGoto, start)
	c.Mark(end)
	return nil
}

// lowerForEach counts the loop variable from 0 up to the int iterable.
// The bound is evaluated once into a hidden slot.
func (ctx *methodCtx) lowerForEach(s *ast.ForEachStmt) error {
	iterType := ctx.typeOf(s.Iterable)
	if !types.Equal(iterType, types.Int) {
		return errorf(Unsupported, s.Iterable, "for-each over %s: only int ranges are supported", iterType)
	}
	varType := ctx.g.res.Registry.Resolve(s.TypeName)
	if !types.Equal(varType, types.Int) {
		return errorf(Unsupported, s, "for-each variable '%s' must be int, not %s", s.Name, varType)
	}

	c := ctx.code
	loop := ctx.nested()
	if err := loop.lowerExpr(s.Iterable); err != nil {
		return err
	}
	bound := loop.scope.Declare(" bound", types.Int)
	c.EmitLocal(classfile.OpIstore, bound.Slot)
	iv := loop.scope.Declare(s.Name, types.Int)
	c.EmitInt(0)
	c.EmitLocal(classfile.OpIstore, iv.Slot)

	start, end := c.NewLabel(), c.NewLabel()
	c.Mark(start)
	c.EmitLocal(classfile.OpIload, iv.Slot)
	c.EmitLocal(classfile.OpIload, bound.Slot)
	c.EmitJump(classfile.OpIfIcmpge, end)
	if err := loop.lowerStmts(s.Body.Stmts); err != nil {
		return err
	}
	c.EmitIinc(iv.Slot, 1)
	c.EmitJump(classfile.OpGoto, start)
	c.Mark(end)
	return nil
}

func (ctx *methodCtx) lowerReturn(s *ast.ReturnStmt) error {
	rt := ctx.info.ReturnType
	if types.IsVoid(rt) {
		if s.Value != nil {
			if err := ctx.lowerExpr(s.Value); err != nil {
				return err
			}
			ctx.discard(ctx.typeOf(s.Value))
		}
		ctx.code.Emit(classfile.OpReturn)
		return nil
	}
	if s.Value == nil {
		return errorf(MissingReturnValue, s, "method '%s' must return a %s value", ctx.info.Name, rt)
	}
	if err := ctx.lowerValue(s.Value, rt); err != nil {
		return err
	}
	ctx.code.Emit(returnOp(rt))
	return nil
}

// lowerPrint writes arg (or just a newline when arg is nil) to System.out,
// choosing the println overload from the argument's static type.
func (ctx *methodCtx) lowerPrint(arg ast.Expr) error {
	c := ctx.code
	c.EmitField(classfile.OpGetstatic, classfile.SystemClass, "out", "Ljava/io/PrintStream;")
	if arg == nil {
		c.EmitInvoke(classfile.OpInvokevirtual, classfile.PrintStreamClass, "println", "()V")
		return nil
	}
	t := ctx.typeOf(arg)
	if types.IsVoid(t) {
		return errorf(Unsupported, arg, "cannot print a void expression")
	}
	if err := ctx.lowerExpr(arg); err != nil {
		return err
	}
	c.EmitInvoke(classfile.OpInvokevirtual, classfile.PrintStreamClass, "println", "("+TypeDescriptor(t)+")V")
	return nil
}

// discard pops a value of type t left by an expression statement.
func (ctx *methodCtx) discard(t types.Type) {
	switch types.SlotWidth(t) {
	case 1:
		ctx.code.Emit(classfile.OpPop)
	case 2:
		ctx.code.Emit(classfile.OpPop2)
	}
}

// pushZero pushes the default value of t.
func (ctx *methodCtx) pushZero(t types.Type) {
	c := ctx.code
	switch {
	case types.Equal(t, types.Double):
		c.EmitDouble(0)
	case types.Equal(t, types.Float):
		c.EmitFloat(0)
	case types.Equal(t, types.Int), types.Equal(t, types.Boolean):
		c.EmitInt(0)
	default:
		c.Emit(classfile.OpAconstNull)
	}
}
