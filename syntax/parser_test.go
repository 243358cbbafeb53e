package syntax

import (
	"testing"

	"github.com/chazu/sigma/ast"
)

func mustParse(t *testing.T, src string) *ast.CompilationUnit {
	t.Helper()
	unit, err := Parse("test", src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return unit
}

func TestParserLiterals(t *testing.T) {
	tests := []struct {
		input string
		check func(ast.Expr) bool
		desc  string
	}{
		{"42", func(e ast.Expr) bool { return e.(*ast.IntLiteral).Value == 42 }, "int"},
		{"-5", func(e ast.Expr) bool { return e.(*ast.IntLiteral).Value == -5 }, "negative int"},
		{"-2147483648", func(e ast.Expr) bool { return e.(*ast.IntLiteral).Value == -2147483648 }, "min int"},
		{"3.14", func(e ast.Expr) bool { return e.(*ast.DoubleLiteral).Value == 3.14 }, "double"},
		{"1.5f", func(e ast.Expr) bool { return e.(*ast.FloatLiteral).Value == 1.5 }, "float"},
		{`"hi"`, func(e ast.Expr) bool { return e.(*ast.StringLiteral).Value == "hi" }, "string"},
		{"true", func(e ast.Expr) bool { return e.(*ast.BoolLiteral).Value }, "true"},
		{"null", func(e ast.Expr) bool { _, ok := e.(*ast.NullLiteral); return ok }, "null"},
		{"x", func(e ast.Expr) bool { return e.(*ast.Identifier).Name == "x" }, "identifier"},
	}

	for _, tc := range tests {
		p := NewParser(tc.input)
		expr := p.ParseExpression()
		if len(p.Errors()) > 0 {
			t.Errorf("%s: parse errors: %v", tc.desc, p.Errors())
			continue
		}
		if expr == nil {
			t.Errorf("%s: nil expression", tc.desc)
			continue
		}
		if !tc.check(expr) {
			t.Errorf("%s: check failed for %q", tc.desc, tc.input)
		}
	}
}

func TestParserIntOutOfRange(t *testing.T) {
	p := NewParser("2147483648")
	p.ParseExpression()
	if len(p.Errors()) != 1 {
		t.Fatalf("errors = %v, want one range error", p.Errors())
	}
}

// render prints an expression fully parenthesized.
func render(e ast.Expr) string {
	switch e := e.(type) {
	case *ast.BinaryExpr:
		return "(" + render(e.Left) + " " + e.Op.String() + " " + render(e.Right) + ")"
	case *ast.UnaryExpr:
		return "(" + e.Op.String() + render(e.Operand) + ")"
	case *ast.Identifier:
		return e.Name
	case *ast.IntLiteral:
		return "n"
	case *ast.CallExpr:
		s := render(e.Callee) + "("
		for i, a := range e.Args {
			if i > 0 {
				s += ", "
			}
			s += render(a)
		}
		return s + ")"
	case *ast.MemberExpr:
		return render(e.Object) + "." + e.Name
	}
	return "?"
}

func TestParserPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a + b * c", "(a + (b * c))"},
		{"a - b - c", "((a - b) - c)"},
		{"a ** b ** c", "(a ** (b ** c))"},
		{"-a ** b", "(-(a ** b))"},
		{"a < b == c > d", "((a < b) == (c > d))"},
		{"a || b && c", "(a || (b && c))"},
		{"!a && b", "((!a) && b)"},
		{"(a + b) * c", "((a + b) * c)"},
		{"a % b / c", "((a % b) / c)"},
		{"f(a, b + c)", "f(a, (b + c))"},
		{"o.m(x)", "o.m(x)"},
	}

	for _, tc := range tests {
		p := NewParser(tc.input)
		expr := p.ParseExpression()
		if len(p.Errors()) > 0 {
			t.Errorf("parse %q: %v", tc.input, p.Errors())
			continue
		}
		if got := render(expr); got != tc.want {
			t.Errorf("parse %q = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestParserStatements(t *testing.T) {
	unit := mustParse(t, `
int x = 2 + 3 * 4;
x = x + 1;
print(x);
println();
f(x);
if (x < 2) { print("a"); } else if (x < 3) { print("b"); } else { print("c"); }
while (x > 0) { x = x - 1; }
for (int i : 10) { print(i); }
{ int y; }
`)
	want := []string{"*ast.VarDecl", "*ast.AssignStmt", "*ast.PrintStmt", "*ast.PrintStmt",
		"*ast.ExprStmt", "*ast.IfStmt", "*ast.WhileStmt", "*ast.ForEachStmt", "*ast.Block"}
	if len(unit.Stmts) != len(want) {
		t.Fatalf("got %d statements, want %d", len(unit.Stmts), len(want))
	}
	for i, s := range unit.Stmts {
		if got := typeName(s); got != want[i] {
			t.Errorf("stmt[%d] = %s, want %s", i, got, want[i])
		}
	}

	if p := unit.Stmts[3].(*ast.PrintStmt); p.Arg != nil {
		t.Errorf("println() arg = %v, want nil", p.Arg)
	}
	ifs := unit.Stmts[5].(*ast.IfStmt)
	if _, ok := ifs.Else.(*ast.IfStmt); !ok {
		t.Errorf("else-if parsed as %T", ifs.Else)
	}
	fe := unit.Stmts[7].(*ast.ForEachStmt)
	if fe.TypeName != "int" || fe.Name != "i" {
		t.Errorf("for-each = %+v", fe)
	}
}

func typeName(s ast.Stmt) string {
	switch s.(type) {
	case *ast.VarDecl:
		return "*ast.VarDecl"
	case *ast.AssignStmt:
		return "*ast.AssignStmt"
	case *ast.PrintStmt:
		return "*ast.PrintStmt"
	case *ast.ExprStmt:
		return "*ast.ExprStmt"
	case *ast.IfStmt:
		return "*ast.IfStmt"
	case *ast.WhileStmt:
		return "*ast.WhileStmt"
	case *ast.ForEachStmt:
		return "*ast.ForEachStmt"
	case *ast.Block:
		return "*ast.Block"
	case *ast.ReturnStmt:
		return "*ast.ReturnStmt"
	case *ast.MethodDecl:
		return "*ast.MethodDecl"
	case *ast.ClassDecl:
		return "*ast.ClassDecl"
	}
	return "?"
}

func TestParserMethodsAndClasses(t *testing.T) {
	unit := mustParse(t, `
int add(int a, int b) { return a + b; }
void hello() { print("hi"); return; }
class Point {
	int x = 1;
	double y;
	double norm() { return 0.0; }
}
`)
	if len(unit.Stmts) != 3 {
		t.Fatalf("got %d statements", len(unit.Stmts))
	}
	add := unit.Stmts[0].(*ast.MethodDecl)
	if add.ReturnType != "int" || add.Name != "add" || len(add.Params) != 2 {
		t.Errorf("add = %+v", add)
	}
	if add.Params[1].TypeName != "int" || add.Params[1].Name != "b" {
		t.Errorf("param = %+v", add.Params[1])
	}
	hello := unit.Stmts[1].(*ast.MethodDecl)
	if ret := hello.Body.Stmts[1].(*ast.ReturnStmt); ret.Value != nil {
		t.Errorf("bare return has value %v", ret.Value)
	}

	class := unit.Stmts[2].(*ast.ClassDecl)
	if class.Name != "Point" || len(class.Fields) != 2 || len(class.Methods) != 1 {
		t.Fatalf("class = %+v", class)
	}
	if class.Fields[0].Init == nil || class.Fields[1].Init != nil {
		t.Errorf("field initializers parsed wrong")
	}
}

func TestParserPositions(t *testing.T) {
	unit := mustParse(t, "int x = 1;\n  print(x + 2);")
	decl := unit.Stmts[0].(*ast.VarDecl)
	if decl.Pos() != (ast.Pos{Line: 1, Column: 1}) {
		t.Errorf("decl at %v", decl.Pos())
	}
	pr := unit.Stmts[1].(*ast.PrintStmt)
	if pr.Pos() != (ast.Pos{Line: 2, Column: 3}) {
		t.Errorf("print at %v", pr.Pos())
	}
	bin := pr.Arg.(*ast.BinaryExpr)
	if bin.Pos() != (ast.Pos{Line: 2, Column: 11}) {
		t.Errorf("operator at %v", bin.Pos())
	}
}

func TestParserErrorsAreCollected(t *testing.T) {
	unit, err := Parse("bad", `
int x = ;
print(1);
while x { }
int y = 2;
`)
	if err == nil {
		t.Fatal("expected parse errors")
	}
	errs, ok := err.(ErrorList)
	if !ok {
		t.Fatalf("error type %T", err)
	}
	if len(errs) < 2 {
		t.Errorf("errors = %v, want at least 2", errs)
	}
	if errs[0].Pos.Line != 2 {
		t.Errorf("first error at %v, want line 2", errs[0].Pos)
	}

	// Good statements around the errors still parse.
	var decls int
	for _, s := range unit.Stmts {
		if d, ok := s.(*ast.VarDecl); ok && d.Name == "y" {
			decls++
		}
	}
	if decls != 1 {
		t.Errorf("statement after errors was lost: %d stmts", len(unit.Stmts))
	}
}
