package symbols

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/sigma/ast"
	"github.com/chazu/sigma/diag"
	"github.com/chazu/sigma/types"
)

func TestDefineAndLookup(t *testing.T) {
	var diags diag.List
	tab := NewTable(&diags)

	require.True(t, tab.Define("x", types.Int, Variable, ast.Pos{Line: 1, Column: 1}))
	sym, ok := tab.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, types.Int, sym.Type)
	assert.Equal(t, Variable, sym.Kind)

	_, ok = tab.Lookup("y")
	assert.False(t, ok)
	assert.Zero(t, diags.Len())
}

func TestDuplicateInInnermostScope(t *testing.T) {
	var diags diag.List
	tab := NewTable(&diags)

	require.True(t, tab.Define("x", types.Int, Variable, ast.Pos{Line: 1, Column: 5}))
	assert.False(t, tab.Define("x", types.String, Variable, ast.Pos{Line: 2, Column: 7}))

	require.Equal(t, 1, diags.Len())
	d := diags.Items()[0]
	assert.Equal(t, diag.DuplicateDeclaration, d.Kind)
	assert.Equal(t, ast.Pos{Line: 2, Column: 7}, d.Pos)
	assert.True(t, strings.Contains(d.Message, "line 1, column 5"), d.Message)
	assert.True(t, strings.Contains(d.Message, "line 2, column 7"), d.Message)

	// The first binding survives.
	sym, _ := tab.Lookup("x")
	assert.Equal(t, types.Int, sym.Type)
}

func TestShadowingIsSilent(t *testing.T) {
	var diags diag.List
	tab := NewTable(&diags)

	tab.Define("x", types.Int, Variable, ast.Pos{Line: 1, Column: 1})
	tab.EnterScope(ScopeBlock)
	assert.True(t, tab.Define("x", types.String, Variable, ast.Pos{Line: 2, Column: 1}))

	sym, _ := tab.Lookup("x")
	assert.Equal(t, types.String, sym.Type)
	_, ok := tab.LookupLocal("x")
	assert.True(t, ok)

	tab.ExitScope()
	sym, _ = tab.Lookup("x")
	assert.Equal(t, types.Int, sym.Type)
	assert.Zero(t, diags.Len())
}

func TestLookupLocalIgnoresAncestors(t *testing.T) {
	tab := NewTable(nil)
	tab.Define("g", types.Int, Variable, ast.Pos{})
	tab.EnterScope(ScopeMethod)
	_, ok := tab.LookupLocal("g")
	assert.False(t, ok)
	_, ok = tab.Lookup("g")
	assert.True(t, ok)
}

func TestScopeArena(t *testing.T) {
	tab := NewTable(nil)
	m := tab.EnterScope(ScopeMethod)
	b := tab.EnterScope(ScopeBlock)
	assert.Equal(t, m, tab.Scope(b).Parent)
	assert.Equal(t, ScopeID(0), tab.Scope(m).Parent)
	assert.Equal(t, NoScope, tab.Global().Parent)
	tab.ExitScope()
	tab.ExitScope()
	assert.Equal(t, tab.Global(), tab.Current())
	assert.Equal(t, 3, tab.Len())
}

func TestExitRootPanics(t *testing.T) {
	tab := NewTable(nil)
	assert.Panics(t, func() { tab.ExitScope() })
}

func TestClassInfoMembers(t *testing.T) {
	c := NewClassInfo("Point", nil, ast.Pos{})
	assert.True(t, c.AddField(&Symbol{Name: "x", Type: types.Int, Kind: Field}))
	assert.False(t, c.AddMethod("x", &MethodSig{ReturnType: types.Int}))
	assert.True(t, c.AddMethod("norm", &MethodSig{ReturnType: types.Double}))
	assert.False(t, c.AddField(&Symbol{Name: "norm", Kind: Field}))
}
