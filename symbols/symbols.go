// Package symbols implements Sigma's scoped symbol table.
//
// Scopes live in an arena indexed by ScopeID. Each record stores its
// parent's id; only the path from the global scope to the current scope is
// active, and EnterScope/ExitScope move along it with stack discipline.
package symbols

import (
	"github.com/chazu/sigma/ast"
	"github.com/chazu/sigma/diag"
	"github.com/chazu/sigma/types"
)

// Kind classifies what a symbol names.
type Kind uint8

const (
	Variable Kind = iota
	Parameter
	Method
	Class
	Field
)

func (k Kind) String() string {
	switch k {
	case Variable:
		return "variable"
	case Parameter:
		return "parameter"
	case Method:
		return "method"
	case Class:
		return "class"
	case Field:
		return "field"
	}
	return "invalid"
}

// Symbol is a name binding. Symbols are not modified after Define.
// For methods Type is the declared return type.
type Symbol struct {
	Name string
	Type types.Type
	Kind Kind
	Pos  ast.Pos
}

// ScopeKind enumerates scope categories.
type ScopeKind uint8

const (
	ScopeGlobal ScopeKind = iota
	ScopeClass
	ScopeMethod
	ScopeBlock
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeGlobal:
		return "global"
	case ScopeClass:
		return "class"
	case ScopeMethod:
		return "method"
	case ScopeBlock:
		return "block"
	}
	return "invalid"
}

// ScopeID indexes a scope in the table's arena.
type ScopeID int

// NoScope is the parent of the global scope.
const NoScope ScopeID = -1

// Scope is one lexical region.
type Scope struct {
	ID      ScopeID
	Parent  ScopeID
	Kind    ScopeKind
	Symbols map[string]*Symbol
}

// Table is the scoped symbol table of one analysis.
type Table struct {
	scopes  []*Scope
	current ScopeID
	diags   *diag.List
}

// NewTable creates a table whose current scope is a fresh global scope.
// Duplicate declarations are reported to diags.
func NewTable(diags *diag.List) *Table {
	t := &Table{diags: diags}
	t.current = t.newScope(ScopeGlobal, NoScope)
	return t
}

func (t *Table) newScope(kind ScopeKind, parent ScopeID) ScopeID {
	id := ScopeID(len(t.scopes))
	t.scopes = append(t.scopes, &Scope{
		ID:      id,
		Parent:  parent,
		Kind:    kind,
		Symbols: make(map[string]*Symbol),
	})
	return id
}

// Global returns the root scope.
func (t *Table) Global() *Scope {
	return t.scopes[0]
}

// Current returns the innermost active scope.
func (t *Table) Current() *Scope {
	return t.scopes[t.current]
}

// Scope returns the scope with the given id.
func (t *Table) Scope(id ScopeID) *Scope {
	return t.scopes[id]
}

// Len returns the number of scopes ever created.
func (t *Table) Len() int {
	return len(t.scopes)
}

// EnterScope pushes a new child of the current scope.
func (t *Table) EnterScope(kind ScopeKind) ScopeID {
	t.current = t.newScope(kind, t.current)
	return t.current
}

// ExitScope pops back to the parent scope. Exiting the global scope is a
// programming error.
func (t *Table) ExitScope() {
	parent := t.scopes[t.current].Parent
	if parent == NoScope {
		panic("symbols: cannot exit the global scope")
	}
	t.current = parent
}

// Define binds name in the current scope. If the current scope already
// binds name, a DUPLICATE_DECLARATION is reported, the existing symbol is
// kept and false is returned. Names bound only in enclosing scopes are
// shadowed silently.
func (t *Table) Define(name string, typ types.Type, kind Kind, pos ast.Pos) bool {
	scope := t.scopes[t.current]
	if prev, ok := scope.Symbols[name]; ok {
		if t.diags != nil {
			t.diags.Report(diag.DuplicateDeclaration, pos,
				"%s '%s' is already declared at line %d, column %d (redeclared at line %d, column %d)",
				prev.Kind, name, prev.Pos.Line, prev.Pos.Column, pos.Line, pos.Column)
		}
		return false
	}
	scope.Symbols[name] = &Symbol{Name: name, Type: typ, Kind: kind, Pos: pos}
	return true
}

// Lookup finds name in the current scope or the nearest enclosing one.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	for id := t.current; id != NoScope; id = t.scopes[id].Parent {
		if sym, ok := t.scopes[id].Symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupLocal finds name in the current scope only.
func (t *Table) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := t.scopes[t.current].Symbols[name]
	return sym, ok
}
