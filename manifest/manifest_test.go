package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "hello"
version = "0.1.0"

[build]
source = "src/hello.sigma"
class = "Hello"
entry = "run"
out = "classes"

[cache]
enabled = false

[log]
verbosity = 2
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "hello" {
		t.Errorf("project name = %q, want hello", m.Project.Name)
	}
	if m.Build.Class != "Hello" || m.Build.Entry != "run" {
		t.Errorf("build = %+v", m.Build)
	}
	if m.Cache.Enabled {
		t.Errorf("cache enabled, want disabled")
	}
	if m.Cache.Path != filepath.Join(".sigma", "cache.db") {
		t.Errorf("cache path default = %q", m.Cache.Path)
	}
	if m.Log.Verbosity != 2 {
		t.Errorf("verbosity = %d, want 2", m.Log.Verbosity)
	}
	abs, _ := filepath.Abs(dir)
	if m.SourcePath() != filepath.Join(abs, "src", "hello.sigma") {
		t.Errorf("source path = %q", m.SourcePath())
	}
	if m.OutDir() != filepath.Join(abs, "classes") {
		t.Errorf("out dir = %q", m.OutDir())
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[project]\nname = \"bare\"\n")

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Build.Source != "main.sigma" || m.Build.Class != "Main" || m.Build.Entry != "main" || m.Build.Out != "build" {
		t.Errorf("build defaults = %+v", m.Build)
	}
	if !m.Cache.Enabled {
		t.Errorf("cache should default to enabled")
	}
}

func TestDefault(t *testing.T) {
	m := Default("/tmp/x")
	if err := Validate(m); err != nil {
		t.Fatalf("default manifest invalid: %v", err)
	}
	if m.CachePath() != filepath.Join("/tmp/x", ".sigma", "cache.db") {
		t.Errorf("cache path = %q", m.CachePath())
	}
}

func TestInvalidManifests(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", "[project\nname = 1"},
		{"unknown key", "[build]\nclasss = \"Main\"\n"},
		{"class not an identifier", "[build]\nclass = \"9lives\"\n"},
		{"source extension", "[build]\nsource = \"main.java\"\n"},
		{"verbosity out of range", "[log]\nverbosity = 9\n"},
		{"wrong type", "[cache]\nenabled = \"yes\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.content)); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[project]\nname = \"walk\"\n")
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(sub)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil || m.Project.Name != "walk" {
		t.Fatalf("manifest = %+v, want project walk", m)
	}
	abs, _ := filepath.Abs(root)
	if m.Dir != abs {
		t.Errorf("dir = %q, want %q", m.Dir, abs)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != nil {
		t.Errorf("expected nil manifest, got %+v", m)
	}
}

func TestLoadFileRequiresName(t *testing.T) {
	if _, err := LoadFile("/tmp/other.toml"); err == nil {
		t.Errorf("expected error for a misnamed manifest")
	}
}
