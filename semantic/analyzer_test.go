package semantic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/sigma/ast"
	"github.com/chazu/sigma/diag"
	"github.com/chazu/sigma/symbols"
	"github.com/chazu/sigma/syntax"
	"github.com/chazu/sigma/types"
)

func analyze(t *testing.T, src string) *Result {
	t.Helper()
	unit, err := syntax.Parse("test", src)
	require.NoError(t, err)
	return Analyze(unit)
}

func kinds(r *Result) []diag.Kind {
	var out []diag.Kind
	for _, d := range r.Diagnostics {
		out = append(out, d.Kind)
	}
	return out
}

func TestWellFormedProgramHasTotalTypeMap(t *testing.T) {
	r := analyze(t, `
int square(int n) { return n * n; }
double half(double d) { return d / 2; }
void greet(String who) { print("hi " + who); }
int x = 2 + 3 * 4;
double y = half(x);
boolean b = x < 10 && !(y >= 3.5);
String s = "n=" + x + b;
greet(s);
if (b) { print(square(x)); } else { println(); }
while (x > 0) { x = x - 1; }
for (int i : 3) { print(i ** 2); }
float f = 1.5f;
f = -f;
`)
	require.True(t, r.Successful(), "%v", r.Diagnostics)

	var count int
	ast.Inspect(r.Unit.Stmts, func(e ast.Expr) {
		count++
		typ, ok := r.ExprTypes[e]
		if assert.True(t, ok, "no type for %T at %v", e, e.Pos()) {
			assert.NotNil(t, typ)
			assert.False(t, types.IsError(typ), "%T at %v is Error", e, e.Pos())
		}
	})
	assert.Equal(t, count, len(r.ExprTypes))
}

func TestInferredTypes(t *testing.T) {
	tests := []struct {
		expr string
		want types.Type
	}{
		{"1 + 2", types.Int},
		{"1 + 2.0", types.Double},
		{"1 * 2.0f", types.Float},
		{"1.0f / 2.0", types.Double},
		{"2 ** 3", types.Int},
		{"7 % 2", types.Int},
		{`"a" + 1`, types.String},
		{`1.5 + "a"`, types.String},
		{"1 < 2", types.Boolean},
		{`"a" == 1`, types.Boolean},
		{"true && false", types.Boolean},
		{"!true", types.Boolean},
		{"-2.5", types.Double},
		{"-x", types.Int},
		{"null", types.NullT},
	}

	for _, tc := range tests {
		r := analyze(t, "int x = 1;\nprint("+tc.expr+");")
		require.True(t, r.Successful(), "%s: %v", tc.expr, r.Diagnostics)
		arg := r.Unit.Stmts[1].(*ast.PrintStmt).Arg
		assert.True(t, types.Equal(tc.want, r.TypeOf(arg)), "%s: got %s, want %s", tc.expr, r.TypeOf(arg), tc.want)
	}
}

func TestDuplicateInInnermostScope(t *testing.T) {
	r := analyze(t, "int x = 1;\nint x = 2;")
	require.Equal(t, []diag.Kind{diag.DuplicateDeclaration}, kinds(r))
	msg := r.Diagnostics[0].Message
	assert.Contains(t, msg, "line 1, column 1")
	assert.Contains(t, msg, "line 2, column 1")
}

func TestShadowingAncestorIsSilent(t *testing.T) {
	r := analyze(t, `
int x = 1;
if (x > 0) { String x = "inner"; print(x); }
void f(int x) { while (x > 0) { double x = 1.0; print(x); } }
`)
	assert.True(t, r.Successful(), "%v", r.Diagnostics)
}

func TestParameterRedeclaredInBody(t *testing.T) {
	r := analyze(t, "void f(int a) { int a = 2; }")
	assert.Equal(t, []diag.Kind{diag.DuplicateDeclaration}, kinds(r))
}

func TestAssignmentCompatibility(t *testing.T) {
	tests := []struct {
		src  string
		want []diag.Kind
	}{
		{`int x = "s";`, []diag.Kind{diag.TypeMismatch}},
		{`int x = 0; x = "s";`, []diag.Kind{diag.TypeMismatch}},
		{"int x = 2.5;", nil},
		{"int x = 0; x = 2.5;", nil},
		{"double d = 1;", nil},
		{"float f = 1.0;", nil},
		{"String s = null;", nil},
		{"int x = null;", []diag.Kind{diag.TypeMismatch}},
		{"boolean b = 1;", []diag.Kind{diag.TypeMismatch}},
		{"class P { } P p = null;", nil},
		{`class P { } P p = "s";`, []diag.Kind{diag.TypeMismatch}},
		{"y = 1;", []diag.Kind{diag.UndefinedVariable}},
		{"void f() { } f = 1;", []diag.Kind{diag.TypeMismatch}},
	}

	for _, tc := range tests {
		r := analyze(t, tc.src)
		assert.Equal(t, tc.want, kinds(r), tc.src)
	}
}

func TestArityIsNotCheckedDuringAnalysis(t *testing.T) {
	r := analyze(t, `
int add(int a, int b) { return a + b; }
print(add(1));
print(add(1, 2, 3));
`)
	assert.True(t, r.Successful(), "%v", r.Diagnostics)
}

func TestDiagnosticKinds(t *testing.T) {
	tests := []struct {
		src  string
		want []diag.Kind
	}{
		{"print(y);", []diag.Kind{diag.UndefinedVariable}},
		{"nope();", []diag.Kind{diag.UndefinedMethod}},
		{"Widget w = null;", []diag.Kind{diag.UndefinedClass}},
		{"int f(Widget w) { return 1; }", []diag.Kind{diag.UndefinedClass}},
		{"int x = 1; x();", []diag.Kind{diag.InvalidCall}},
		{"(1 + 2)();", []diag.Kind{diag.InvalidCall}},
		{"print(true + 1);", []diag.Kind{diag.InvalidBinaryOp}},
		{"print(1 && true);", []diag.Kind{diag.InvalidBinaryOp}},
		{"print(!1);", []diag.Kind{diag.InvalidUnaryOp}},
		{"print(-true);", []diag.Kind{diag.InvalidUnaryOp}},
		{`print(-"s");`, []diag.Kind{diag.InvalidUnaryOp}},
		{`String s = "a"; print(s.length);`, []diag.Kind{diag.InvalidMemberAccess}},
		{`String s = "a"; s.trim();`, []diag.Kind{diag.InvalidMemberAccess}},
		{"if (1) { }", []diag.Kind{diag.TypeMismatch}},
		{"while (1.5) { }", []diag.Kind{diag.TypeMismatch}},
		{`int f() { return "s"; }`, []diag.Kind{diag.InvalidReturnType}},
		{"int f() { return; }", []diag.Kind{diag.InvalidReturnType}},
		{"void g() { } int x = g();", []diag.Kind{diag.VoidExpression}},
		{"void g() { } print(g());", []diag.Kind{diag.VoidExpression}},
		{"int x = print(1);", []diag.Kind{diag.VoidExpression}},
		{"void v = 1;", []diag.Kind{diag.TypeMismatch}},
		{"class int { }", []diag.Kind{diag.DuplicateDeclaration}},
		{"class P { } class P { }", []diag.Kind{diag.DuplicateDeclaration}},
		{"class P { int a; int a; }", []diag.Kind{diag.DuplicateDeclaration}},
		{"class P { int a; void a() { } }", []diag.Kind{diag.DuplicateDeclaration}},
		{"void f() { } void f() { }", []diag.Kind{diag.DuplicateDeclaration}},
	}

	for _, tc := range tests {
		r := analyze(t, tc.src)
		assert.Equal(t, tc.want, kinds(r), tc.src)
	}
}

func TestErrorTypeSuppressesCascades(t *testing.T) {
	r := analyze(t, `
int x = y + 1;
print(-(y * 2) + z);
if (y) { }
boolean b = !y && true;
`)
	for _, k := range kinds(r) {
		assert.Equal(t, diag.UndefinedVariable, k)
	}
	assert.Equal(t, 5, len(r.Diagnostics))
}

func TestAnalysisContinuesAfterErrors(t *testing.T) {
	r := analyze(t, `
int a = "s";
int b = undefinedThing;
void f() { return 1 + true; }
`)
	assert.Equal(t, []diag.Kind{diag.TypeMismatch, diag.UndefinedVariable, diag.InvalidBinaryOp}, kinds(r))
	assert.False(t, r.Successful())
}

func TestForwardReferencesBetweenMethods(t *testing.T) {
	r := analyze(t, `
print(isEven(4));
boolean isEven(int n) { if (n == 0) { return true; } return isOdd(n - 1); }
boolean isOdd(int n) { if (n == 0) { return false; } return isEven(n - 1); }
`)
	assert.True(t, r.Successful(), "%v", r.Diagnostics)
	call := r.Unit.Stmts[0].(*ast.PrintStmt).Arg
	assert.Equal(t, types.Boolean, r.TypeOf(call))
}

func TestClassMetadata(t *testing.T) {
	r := analyze(t, `
class Point {
	int x = 0;
	double y;
	double norm(int scale) { return y * scale; }
}
Point p = null;
`)
	require.True(t, r.Successful(), "%v", r.Diagnostics)

	info := r.Classes["Point"]
	require.NotNil(t, info)
	assert.Equal(t, types.Int, info.Fields["x"].Type)
	assert.Equal(t, symbols.Field, info.Fields["x"].Kind)
	assert.Equal(t, types.Double, info.Methods["norm"].ReturnType)
	assert.Equal(t, []types.Type{types.Int}, info.Methods["norm"].ParamTypes)

	sym, ok := r.Symbols.Global().Symbols["Point"]
	require.True(t, ok)
	assert.Equal(t, symbols.Class, sym.Kind)
	assert.True(t, r.Registry.IsRegistered("Point"))
}

func TestReturnOutsideMethod(t *testing.T) {
	tests := []struct {
		src  string
		want []diag.Kind
	}{
		{"return 1;", []diag.Kind{diag.InvalidReturnType}},
		{"if (true) { return 1 + 2; }", []diag.Kind{diag.InvalidReturnType}},
		{"return;", nil},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			r := analyze(t, tc.src)
			assert.Equal(t, tc.want, kinds(r))
		})
	}
}

func TestBuiltinCalleesAreVoid(t *testing.T) {
	r := analyze(t, "print(1);\nprintln(\"x\");")
	require.True(t, r.Successful())

	stmt := &ast.ExprStmt{Expr: &ast.CallExpr{
		Callee: &ast.Identifier{Name: "println"},
		Args:   []ast.Expr{&ast.IntLiteral{Value: 3}},
	}}
	r = Analyze(&ast.CompilationUnit{Stmts: []ast.Stmt{stmt}})
	require.True(t, r.Successful(), "%v", r.Diagnostics)
	assert.Equal(t, types.VoidT, r.TypeOf(stmt.Expr))
}

func TestDiagnosticString(t *testing.T) {
	r := analyze(t, "\n  print(q);")
	require.Len(t, r.Diagnostics, 1)
	s := r.Diagnostics[0].Error()
	assert.True(t, strings.HasPrefix(s, "line 2, column 9: UNDEFINED_VARIABLE"), s)
}
