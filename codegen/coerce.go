package codegen

import (
	"github.com/chazu/sigma/ast"
	"github.com/chazu/sigma/classfile"
	"github.com/chazu/sigma/types"
)

type conversion struct{ from, to string }

var conversions = map[conversion]classfile.Opcode{
	{"int", "double"}:   classfile.OpI2d,
	{"int", "float"}:    classfile.OpI2f,
	{"double", "int"}:   classfile.OpD2i,
	{"float", "int"}:    classfile.OpF2i,
	{"float", "double"}: classfile.OpF2d,
	{"double", "float"}: classfile.OpD2f,
}

// coerce converts the value of e on top of the stack from type from to
// type to. Nothing converts to String.
func (ctx *methodCtx) coerce(e ast.Expr, from, to types.Type) error {
	if types.Equal(from, to) {
		return nil
	}
	if types.IsBoolean(from) && types.Equal(to, types.Int) {
		return nil
	}
	if _, null := from.(*types.Null); null && types.IsReference(to) {
		return nil
	}
	if op, ok := conversions[conversion{from.Name(), to.Name()}]; ok {
		ctx.code.Emit(op)
		return nil
	}
	return errorf(CannotCoerce, e, "cannot convert %s to %s", from, to)
}
