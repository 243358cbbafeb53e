package hash

import (
	"testing"

	"github.com/chazu/sigma/ast"
	"github.com/chazu/sigma/syntax"
)

func mustParse(t *testing.T, src string) *ast.CompilationUnit {
	t.Helper()
	unit, err := syntax.Parse("test.sigma", src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return unit
}

func TestTagsAreUnique(t *testing.T) {
	seen := make(map[byte]bool)
	for _, tag := range allTags {
		if seen[tag] {
			t.Errorf("duplicate tag 0x%02x", tag)
		}
		seen[tag] = true
	}
}

func TestSerializeStartsWithVersion(t *testing.T) {
	data := Serialize(mustParse(t, "int x = 1;"))
	if data[0] != HashVersion || data[1] != TagUnit {
		t.Fatalf("prefix = % x, want %02x %02x", data[:2], HashVersion, TagUnit)
	}
}

func TestHashIgnoresLayout(t *testing.T) {
	a := mustParse(t, "int x = 2 + 3 * 4;\nprint(x);")
	b := mustParse(t, "// comment\nint x =\n    2 + 3*4;   print( x );")
	b.Name = "other.sigma"
	if HashUnit(a) != HashUnit(b) {
		t.Errorf("hashes differ for equivalent layouts")
	}
}

func TestHashDistinguishesPrograms(t *testing.T) {
	sources := []string{
		"int x = 1;",
		"int x = 2;",
		"int y = 1;",
		"double x = 1;",
		"int x;",
		"print(1);",
		"print(1 + 2);",
		"print(1 - 2);",
		"print(-1);",
		`print("1");`,
		"print(1.0);",
		"print(1.0f);",
		"void f() { }",
		"void f(int a) { }",
		"class A { }",
		"class A { int a; }",
		"if (true) { } else { }",
		"if (true) { }",
		"while (true) { }",
		"for (int i : 3) { }",
	}
	seen := make(map[string]string)
	for _, src := range sources {
		h := HashString(mustParse(t, src))
		if len(h) != 64 {
			t.Fatalf("hash %q has length %d", h, len(h))
		}
		if prev, ok := seen[h]; ok {
			t.Errorf("%q and %q hash the same", prev, src)
		}
		seen[h] = src
	}
}
