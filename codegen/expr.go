package codegen

import (
	"github.com/chazu/sigma/ast"
	"github.com/chazu/sigma/classfile"
	"github.com/chazu/sigma/semantic"
	"github.com/chazu/sigma/types"
)

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// lowerValue lowers e and converts the result to target.
func (ctx *methodCtx) lowerValue(e ast.Expr, target types.Type) error {
	if err := ctx.lowerExpr(e); err != nil {
		return err
	}
	return ctx.coerce(e, ctx.typeOf(e), target)
}

// lowerExpr leaves the value of e on the operand stack, in the
// representation of its recorded static type.
func (ctx *methodCtx) lowerExpr(e ast.Expr) error {
	c := ctx.code
	switch e := e.(type) {
	case *ast.IntLiteral:
		c.EmitInt(e.Value)
	case *ast.DoubleLiteral:
		c.EmitDouble(e.Value)
	case *ast.FloatLiteral:
		c.EmitFloat(e.Value)
	case *ast.StringLiteral:
		c.EmitString(e.Value)
	case *ast.BoolLiteral:
		if e.Value {
			c.EmitInt(1)
		} else {
			c.EmitInt(0)
		}
	case *ast.NullLiteral:
		c.Emit(classfile.OpAconstNull)
	case *ast.Identifier:
		v, ok := ctx.scope.Lookup(e.Name)
		if !ok {
			return errorf(UndefinedVariable, e, "no local variable '%s' in method '%s'", e.Name, ctx.info.Name)
		}
		c.EmitLocal(loadOp(v.Type), v.Slot)
	case *ast.BinaryExpr:
		return ctx.lowerBinary(e)
	case *ast.UnaryExpr:
		return ctx.lowerUnary(e)
	case *ast.CallExpr:
		return ctx.lowerCall(e)
	case *ast.MemberExpr:
		return errorf(Unsupported, e, "member access '.%s' is not supported", e.Name)
	default:
		return errorf(Internal, e, "unexpected expression %T", e)
	}
	return nil
}

func (ctx *methodCtx) lowerBinary(e *ast.BinaryExpr) error {
	switch {
	case e.Op.IsLogical():
		return ctx.lowerLogical(e)
	case e.Op.IsComparison():
		return ctx.lowerComparison(e)
	case e.Op == ast.OpAdd && types.IsString(ctx.typeOf(e)):
		return ctx.lowerConcat(e)
	case e.Op == ast.OpPow:
		return ctx.lowerPow(e)
	}
	return ctx.lowerArithmetic(e)
}

var arithOps = map[ast.BinaryOp][3]classfile.Opcode{ // int, float, double
	ast.OpAdd: {classfile.OpIadd, classfile.OpFadd, classfile.OpDadd},
	ast.OpSub: {classfile.OpIsub, classfile.OpFsub, classfile.OpDsub},
	ast.OpMul: {classfile.OpImul, classfile.OpFmul, classfile.OpDmul},
	ast.OpDiv: {classfile.OpIdiv, classfile.OpFdiv, classfile.OpDdiv},
	ast.OpMod: {classfile.OpIrem, classfile.OpFrem, classfile.OpDrem},
}

// numericIndex selects the int, float or double column of an opcode row.
func numericIndex(t types.Type) int {
	switch {
	case types.Equal(t, types.Double):
		return 2
	case types.Equal(t, types.Float):
		return 1
	}
	return 0
}

func (ctx *methodCtx) lowerArithmetic(e *ast.BinaryExpr) error {
	t := ctx.typeOf(e)
	ops, ok := arithOps[e.Op]
	if !ok || !types.IsNumeric(t) {
		return errorf(Unsupported, e, "operator %s on %s", e.Op, t)
	}
	if err := ctx.lowerValue(e.Left, t); err != nil {
		return err
	}
	if err := ctx.lowerValue(e.Right, t); err != nil {
		return err
	}
	ctx.code.Emit(ops[numericIndex(t)])
	return nil
}

// lowerPow computes a ** b with Math.pow, narrowing the double result back
// to the expression's type.
func (ctx *methodCtx) lowerPow(e *ast.BinaryExpr) error {
	if err := ctx.lowerValue(e.Left, types.Double); err != nil {
		return err
	}
	if err := ctx.lowerValue(e.Right, types.Double); err != nil {
		return err
	}
	c := ctx.code
	c.EmitInvoke(classfile.OpInvokestatic, classfile.MathClass, "pow", "(DD)D")
	lt, rt := ctx.typeOf(e.Left), ctx.typeOf(e.Right)
	switch {
	case types.Equal(lt, types.Int) && types.Equal(rt, types.Int):
		c.Emit(classfile.OpD2i)
	case types.Equal(ctx.typeOf(e), types.Float):
		c.Emit(classfile.OpD2f)
	}
	return nil
}

// lowerConcat builds a string with one StringBuilder, appending each
// operand of a chain of string additions through the append overload of
// the operand's own type.
func (ctx *methodCtx) lowerConcat(e *ast.BinaryExpr) error {
	c := ctx.code
	c.EmitNew(classfile.StringBuilderName)
	c.Emit(classfile.OpDup)
	c.EmitInvoke(classfile.OpInvokespecial, classfile.StringBuilderName, "<init>", "()V")
	if err := ctx.appendOperand(e); err != nil {
		return err
	}
	c.EmitInvoke(classfile.OpInvokevirtual, classfile.StringBuilderName, "toString", "()Ljava/lang/String;")
	return nil
}

func (ctx *methodCtx) appendOperand(e ast.Expr) error {
	if b, ok := e.(*ast.BinaryExpr); ok && b.Op == ast.OpAdd && types.IsString(ctx.typeOf(b)) {
		if err := ctx.appendOperand(b.Left); err != nil {
			return err
		}
		return ctx.appendOperand(b.Right)
	}
	t := ctx.typeOf(e)
	if types.IsVoid(t) {
		return errorf(Unsupported, e, "cannot concatenate a void expression")
	}
	if err := ctx.lowerExpr(e); err != nil {
		return err
	}
	desc := "(" + TypeDescriptor(t) + ")L" + classfile.StringBuilderName + ";"
	ctx.code.EmitInvoke(classfile.OpInvokevirtual, classfile.StringBuilderName, "append", desc)
	return nil
}

// ---------------------------------------------------------------------------
// Comparisons and logic
// ---------------------------------------------------------------------------

// intCompare maps a comparison to the if_icmp instruction that jumps when
// it holds; zeroCompare to the if instruction testing a cmp result.
var (
	intCompare = map[ast.BinaryOp]classfile.Opcode{
		ast.OpLT: classfile.OpIfIcmplt, ast.OpLE: classfile.OpIfIcmple,
		ast.OpGT: classfile.OpIfIcmpgt, ast.OpGE: classfile.OpIfIcmpge,
		ast.OpEQ: classfile.OpIfIcmpeq, ast.OpNE: classfile.OpIfIcmpne,
	}
	zeroCompare = map[ast.BinaryOp]classfile.Opcode{
		ast.OpLT: classfile.OpIflt, ast.OpLE: classfile.OpIfle,
		ast.OpGT: classfile.OpIfgt, ast.OpGE: classfile.OpIfge,
		ast.OpEQ: classfile.OpIfeq, ast.OpNE: classfile.OpIfne,
	}
)

func intLike(t types.Type) bool {
	return types.Equal(t, types.Int) || types.Equal(t, types.Boolean)
}

func (ctx *methodCtx) lowerComparison(e *ast.BinaryExpr) error {
	lt, rt := ctx.typeOf(e.Left), ctx.typeOf(e.Right)
	equality := e.Op == ast.OpEQ || e.Op == ast.OpNE
	c := ctx.code

	switch {
	case types.IsReference(lt) && types.IsReference(rt):
		if !equality {
			return errorf(Unsupported, e, "operator %s on %s and %s", e.Op, lt, rt)
		}
		if err := ctx.lowerExpr(e.Left); err != nil {
			return err
		}
		if err := ctx.lowerExpr(e.Right); err != nil {
			return err
		}
		c.EmitInvoke(classfile.OpInvokestatic, classfile.ObjectsClass, "equals", "(Ljava/lang/Object;Ljava/lang/Object;)Z")
		if e.Op == ast.OpNE {
			c.EmitInt(1)
			c.Emit(classfile.OpIxor)
		}
		return nil

	case intLike(lt) && intLike(rt):
		if (types.IsBoolean(lt) || types.IsBoolean(rt)) && !equality {
			return errorf(Unsupported, e, "operator %s on %s and %s", e.Op, lt, rt)
		}
		if err := ctx.lowerExpr(e.Left); err != nil {
			return err
		}
		if err := ctx.lowerExpr(e.Right); err != nil {
			return err
		}
		ctx.flag(intCompare[e.Op])
		return nil
	}

	common := types.Widest(lt, rt)
	if common == nil {
		return errorf(Unsupported, e, "cannot compare %s and %s", lt, rt)
	}
	if err := ctx.lowerValue(e.Left, common); err != nil {
		return err
	}
	if err := ctx.lowerValue(e.Right, common); err != nil {
		return err
	}
	// The g variants yield 1 on NaN and the l variants -1, so every
	// ordered comparison with NaN is false.
	double := types.Equal(common, types.Double)
	switch {
	case (e.Op == ast.OpLT || e.Op == ast.OpLE) && double:
		c.Emit(classfile.OpDcmpg)
	case double:
		c.Emit(classfile.OpDcmpl)
	case e.Op == ast.OpLT || e.Op == ast.OpLE:
		c.Emit(classfile.OpFcmpg)
	default:
		c.Emit(classfile.OpFcmpl)
	}
	ctx.flag(zeroCompare[e.Op])
	return nil
}

// flag turns a conditional jump into a 0/1 int on the stack.
func (ctx *methodCtx) flag(jump classfile.Opcode) {
	c := ctx.code
	yes, end := c.NewLabel(), c.NewLabel()
	c.EmitJump(jump, yes)
	c.EmitInt(0)
	c.EmitJump(classfile.OpGoto, end)
	c.Mark(yes)
	c.EmitInt(1)
	c.Mark(end)
}

// lowerLogical short-circuits && and ||.
func (ctx *methodCtx) lowerLogical(e *ast.BinaryExpr) error {
	c := ctx.code
	// For && a zero operand decides the result; for || a nonzero one.
	jump, decided, undecided := classfile.OpIfeq, int32(0), int32(1)
	if e.Op == ast.OpOr {
		jump, decided, undecided = classfile.OpIfne, 1, 0
	}
	short, end := c.NewLabel(), c.NewLabel()
	if err := ctx.lowerExpr(e.Left); err != nil {
		return err
	}
	c.EmitJump(jump, short)
	if err := ctx.lowerExpr(e.Right); err != nil {
		return err
	}
	c.EmitJump(jump, short)
	c.EmitInt(undecided)
	c.EmitJump(classfile.OpGoto, end)
	c.Mark(short)
	c.EmitInt(decided)
	c.Mark(end)
	return nil
}

func (ctx *methodCtx) lowerUnary(e *ast.UnaryExpr) error {
	if err := ctx.lowerExpr(e.Operand); err != nil {
		return err
	}
	c := ctx.code
	t := ctx.typeOf(e.Operand)
	switch e.Op {
	case ast.OpNot:
		c.EmitInt(1)
		c.Emit(classfile.OpIxor)
	case ast.OpNeg:
		if !types.IsNumeric(t) {
			return errorf(Unsupported, e, "cannot negate %s", t)
		}
		c.Emit([3]classfile.Opcode{classfile.OpIneg, classfile.OpFneg, classfile.OpDneg}[numericIndex(t)])
	}
	return nil
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

func (ctx *methodCtx) lowerCall(e *ast.CallExpr) error {
	id, ok := e.Callee.(*ast.Identifier)
	if !ok {
		return errorf(Unsupported, e, "only methods of this program can be called, by name")
	}
	if semantic.Builtins[id.Name] {
		if len(e.Args) > 1 {
			return errorf(ArityMismatch, e, "%s takes at most 1 argument, got %d", id.Name, len(e.Args))
		}
		var arg ast.Expr
		if len(e.Args) == 1 {
			arg = e.Args[0]
		}
		return ctx.lowerPrint(arg)
	}
	m, ok := ctx.g.methods[id.Name]
	if !ok {
		return errorf(Unsupported, e, "'%s' is not a method of this program", id.Name)
	}
	if len(e.Args) != len(m.ParamTypes) {
		return errorf(ArityMismatch, e, "method '%s' takes %d arguments, got %d", m.Name, len(m.ParamTypes), len(e.Args))
	}
	for i, arg := range e.Args {
		if err := ctx.lowerValue(arg, m.ParamTypes[i]); err != nil {
			return err
		}
	}
	ctx.code.EmitInvoke(classfile.OpInvokestatic, ctx.g.opts.ClassName, m.Name, m.Descriptor)
	return nil
}
