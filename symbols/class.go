package symbols

import (
	"github.com/chazu/sigma/ast"
	"github.com/chazu/sigma/types"
)

// MethodSig is the declared signature of a class method.
type MethodSig struct {
	ReturnType types.Type
	ParamTypes []types.Type
	Pos        ast.Pos
}

// ClassInfo collects a class's members during declaration collection.
// It is read-only once analysis has finished.
type ClassInfo struct {
	Name    string
	Type    *types.Class
	Pos     ast.Pos
	Fields  map[string]*Symbol
	Methods map[string]*MethodSig
}

// NewClassInfo creates an empty ClassInfo.
func NewClassInfo(name string, typ *types.Class, pos ast.Pos) *ClassInfo {
	return &ClassInfo{
		Name:    name,
		Type:    typ,
		Pos:     pos,
		Fields:  make(map[string]*Symbol),
		Methods: make(map[string]*MethodSig),
	}
}

// AddField records a field. It returns false if a field or method of that
// name already exists.
func (c *ClassInfo) AddField(sym *Symbol) bool {
	if c.hasMember(sym.Name) {
		return false
	}
	c.Fields[sym.Name] = sym
	return true
}

// AddMethod records a method signature. It returns false if a field or
// method of that name already exists.
func (c *ClassInfo) AddMethod(name string, sig *MethodSig) bool {
	if c.hasMember(name) {
		return false
	}
	c.Methods[name] = sig
	return true
}

func (c *ClassInfo) hasMember(name string) bool {
	_, isField := c.Fields[name]
	_, isMethod := c.Methods[name]
	return isField || isMethod
}
