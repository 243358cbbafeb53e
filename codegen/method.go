package codegen

import (
	"github.com/chazu/sigma/ast"
	"github.com/chazu/sigma/classfile"
	"github.com/chazu/sigma/types"
)

// MethodInfo describes one generated static method. Every MethodInfo is
// built before any body is lowered so calls may refer forward.
type MethodInfo struct {
	Name       string
	Decl       *ast.MethodDecl // nil for the synthesized entry method
	ReturnType types.Type
	ParamTypes []types.Type
	Descriptor string

	// Locals lists every slot the body allocated, filled in once the
	// method is generated.
	Locals []*LocalVariable
}

// Local returns the first local named name, or nil.
func (m *MethodInfo) Local(name string) *LocalVariable {
	for _, v := range m.Locals {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// TypeDescriptor maps a Sigma type to a JVM field descriptor. User classes
// have no runtime representation of their own and travel as Object.
func TypeDescriptor(t types.Type) string {
	switch {
	case types.IsVoid(t):
		return "V"
	case types.Equal(t, types.Int):
		return "I"
	case types.Equal(t, types.Double):
		return "D"
	case types.Equal(t, types.Float):
		return "F"
	case types.Equal(t, types.Boolean):
		return "Z"
	case types.IsString(t):
		return classfile.StringDesc
	}
	return classfile.ObjectDesc
}

func newMethodInfo(decl *ast.MethodDecl, reg *types.Registry) *MethodInfo {
	info := &MethodInfo{
		Name:       decl.Name,
		Decl:       decl,
		ReturnType: reg.Resolve(decl.ReturnType),
	}
	params := make([]string, len(decl.Params))
	for i, p := range decl.Params {
		t := reg.Resolve(p.TypeName)
		info.ParamTypes = append(info.ParamTypes, t)
		params[i] = TypeDescriptor(t)
	}
	info.Descriptor = classfile.MethodDescriptor(params, TypeDescriptor(info.ReturnType))
	return info
}

// typed opcode selection

func loadOp(t types.Type) classfile.Opcode {
	switch {
	case types.Equal(t, types.Double):
		return classfile.OpDload
	case types.Equal(t, types.Float):
		return classfile.OpFload
	case types.Equal(t, types.Int), types.Equal(t, types.Boolean):
		return classfile.OpIload
	}
	return classfile.OpAload
}

func storeOp(t types.Type) classfile.Opcode {
	switch {
	case types.Equal(t, types.Double):
		return classfile.OpDstore
	case types.Equal(t, types.Float):
		return classfile.OpFstore
	case types.Equal(t, types.Int), types.Equal(t, types.Boolean):
		return classfile.OpIstore
	}
	return classfile.OpAstore
}

func returnOp(t types.Type) classfile.Opcode {
	switch {
	case types.IsVoid(t):
		return classfile.OpReturn
	case types.Equal(t, types.Double):
		return classfile.OpDreturn
	case types.Equal(t, types.Float):
		return classfile.OpFreturn
	case types.Equal(t, types.Int), types.Equal(t, types.Boolean):
		return classfile.OpIreturn
	}
	return classfile.OpAreturn
}
