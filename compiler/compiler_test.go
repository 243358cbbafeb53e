package compiler

import (
	"context"
	"errors"
	"testing"

	"github.com/chazu/sigma/classfile"
	"github.com/chazu/sigma/codegen"
	"github.com/chazu/sigma/diag"
	"github.com/chazu/sigma/syntax"
)

// memCache is an in-memory Cache for tests.
type memCache struct {
	items map[string]*Artifact
	gets  int
	puts  int
}

var errMiss = errors.New("miss")

func newMemCache() *memCache {
	return &memCache{items: make(map[string]*Artifact)}
}

func (c *memCache) Get(_ context.Context, key string) (*Artifact, error) {
	c.gets++
	a, ok := c.items[key]
	if !ok {
		return nil, errMiss
	}
	cp := *a
	return &cp, nil
}

func (c *memCache) Put(_ context.Context, key string, a *Artifact) error {
	c.puts++
	c.items[key] = a
	return nil
}

func (c *memCache) IsMiss(err error) bool {
	return errors.Is(err, errMiss)
}

func TestCompileProducesClass(t *testing.T) {
	d := NewDriver(nil)
	a, err := d.Compile(context.Background(), "dir/hello.sigma", `
int twice(int n) { return n * 2; }
println(twice(21));
`, Options{ClassName: "Hello"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if a.ClassName != "Hello" || a.Entry != "main" {
		t.Errorf("artifact = %s/%s, want Hello/main", a.ClassName, a.Entry)
	}
	if len(a.Methods) != 1 || a.Methods[0] != "twice(I)I" {
		t.Errorf("methods = %v", a.Methods)
	}
	cls, err := classfile.Parse(a.Class)
	if err != nil {
		t.Fatalf("parse class: %v", err)
	}
	if cls.SourceFile != "hello.sigma" {
		t.Errorf("source file = %q", cls.SourceFile)
	}
}

func TestCompileReportsParseErrors(t *testing.T) {
	_, err := NewDriver(nil).Compile(context.Background(), "bad.sigma", "int x = ;", Options{})
	var list syntax.ErrorList
	if !errors.As(err, &list) {
		t.Fatalf("err = %v, want syntax.ErrorList", err)
	}
}

func TestCompileReportsDiagnostics(t *testing.T) {
	_, err := NewDriver(nil).Compile(context.Background(), "bad.sigma", "int x = y;\nString s = 1;", Options{})
	var ae *AnalysisError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want *AnalysisError", err)
	}
	if len(ae.Diagnostics) != 2 {
		t.Fatalf("got %d diagnostics, want 2", len(ae.Diagnostics))
	}
	if ae.Diagnostics[0].Kind != diag.UndefinedVariable || ae.Diagnostics[1].Kind != diag.TypeMismatch {
		t.Errorf("kinds = %s, %s", ae.Diagnostics[0].Kind, ae.Diagnostics[1].Kind)
	}
	if IsInternal(err) {
		t.Errorf("analysis failure classified as internal")
	}
}

func TestCompileReportsInternalErrors(t *testing.T) {
	_, err := NewDriver(nil).Compile(context.Background(), "arity.sigma", `
int add(int a, int b) { return a + b; }
println(add(1));
`, Options{})
	if !IsInternal(err) {
		t.Fatalf("err = %v, want a generation error", err)
	}
	if kind, _ := codegen.KindOf(err); kind != codegen.ArityMismatch {
		t.Errorf("kind = %s, want arity mismatch", kind)
	}
}

func TestCheckAlwaysReturnsResult(t *testing.T) {
	res, err := NewDriver(nil).Check("x.sigma", "int x = true;")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Successful() {
		t.Errorf("expected diagnostics")
	}
}

func TestCompileUsesCache(t *testing.T) {
	cache := newMemCache()
	d := NewDriver(cache)
	ctx := context.Background()

	first, err := d.Compile(ctx, "a.sigma", "println(1);", Options{ClassName: "A"})
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached || cache.puts != 1 {
		t.Fatalf("first compile: cached=%v puts=%d", first.Cached, cache.puts)
	}

	// Same program, different layout: served from the cache.
	second, err := d.Compile(ctx, "a.sigma", "  println( 1 ) ;", Options{ClassName: "A"})
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached || second.Key != first.Key {
		t.Errorf("second compile not served from cache")
	}

	// A different class name is a different key.
	third, err := d.Compile(ctx, "a.sigma", "println(1);", Options{ClassName: "B"})
	if err != nil {
		t.Fatal(err)
	}
	if third.Cached || third.Key == first.Key {
		t.Errorf("options not part of the cache key")
	}
}

func TestKeyIsStable(t *testing.T) {
	unit, err := syntax.Parse("k.sigma", "int x = 1;")
	if err != nil {
		t.Fatal(err)
	}
	k1 := Key(unit, Options{ClassName: "Main", EntryName: "main"})
	k2 := Key(unit, Options{ClassName: "Main", EntryName: "main"})
	if k1 != k2 || len(k1) != 64 {
		t.Errorf("keys %q and %q", k1, k2)
	}
	if k1 == Key(unit, Options{ClassName: "Main", EntryName: "run"}) {
		t.Errorf("entry name not part of the key")
	}

	other, err := syntax.Parse("dir/other.sigma", "int x = 1;")
	if err != nil {
		t.Fatal(err)
	}
	if k1 == Key(other, Options{ClassName: "Main", EntryName: "main"}) {
		t.Errorf("source file name not part of the key")
	}
}
