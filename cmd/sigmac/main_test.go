package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const project = `
[project]
name = "demo"

[build]
source = "main.sigma"
class = "Demo"
`

const program = `int fib(int n) {
    if (n < 2) { return n; }
    return fib(n - 1) + fib(n - 2);
}
println("fib=" + fib(10));
`

func setupProject(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sigma.toml"), []byte(project), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.sigma"), []byte(src), 0o644))
	return dir
}

func sigmac(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestBuildWritesClass(t *testing.T) {
	dir := setupProject(t, program)

	out, _, err := sigmac(t, "--config", dir, "build")
	require.NoError(t, err)
	target := filepath.Join(dir, "build", "Demo.class")
	assert.Contains(t, out, "wrote "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xCA, 0xFE, 0xBA, 0xBE}, data[:4])

	out, _, err = sigmac(t, "--config", dir, "build")
	require.NoError(t, err)
	assert.Contains(t, out, "cached")
}

func TestBuildOverrides(t *testing.T) {
	dir := setupProject(t, program)
	outDir := filepath.Join(t.TempDir(), "classes")

	_, _, err := sigmac(t, "--config", dir, "--no-cache", "build", "--class", "Other", "-o", outDir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "Other.class"))
	assert.NoFileExists(t, filepath.Join(dir, ".sigma", "cache.db"))
}

func TestRunExecutesProgram(t *testing.T) {
	dir := setupProject(t, program)

	out, _, err := sigmac(t, "--config", dir, "run")
	require.NoError(t, err)
	assert.Equal(t, "fib=55\n", out)
}

func TestRunReportsException(t *testing.T) {
	dir := setupProject(t, "int x = 0;\nprintln(10 / x);\n")

	_, _, err := sigmac(t, "--config", dir, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "java.lang.ArithmeticException: / by zero")
}

func TestCheck(t *testing.T) {
	dir := setupProject(t, program)

	out, _, err := sigmac(t, "--config", dir, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "ok: 1 file(s)")

	bad := filepath.Join(dir, "bad.sigma")
	require.NoError(t, os.WriteFile(bad, []byte("int x = 1;\nboolean b = x;\n"), 0o644))
	out, _, err = sigmac(t, "--config", dir, "check", bad)
	require.Error(t, err)
	assert.Contains(t, out, bad+":2:")
	assert.Contains(t, out, "TYPE_MISMATCH")

	broken := filepath.Join(dir, "broken.sigma")
	require.NoError(t, os.WriteFile(broken, []byte("int x = ;\n"), 0o644))
	out, _, err = sigmac(t, "--config", dir, "check", broken)
	require.Error(t, err)
	assert.Contains(t, out, "syntax error")
}

func TestBuildReportsDiagnostics(t *testing.T) {
	dir := setupProject(t, "println(missing);\n")

	_, stderr, err := sigmac(t, "--config", dir, "build")
	require.Error(t, err)
	assert.Contains(t, stderr, "UNDEFINED_VARIABLE")
	assert.NoFileExists(t, filepath.Join(dir, "build", "Demo.class"))
}

func TestDisasm(t *testing.T) {
	dir := setupProject(t, program)

	out, _, err := sigmac(t, "--config", dir, "disasm")
	require.NoError(t, err)
	assert.Contains(t, out, "class Demo extends java/lang/Object")
	assert.Contains(t, out, "static fib(I)I")

	_, _, err = sigmac(t, "--config", dir, "build")
	require.NoError(t, err)
	fromClass, _, err := sigmac(t, "--config", dir, "disasm", filepath.Join(dir, "build", "Demo.class"))
	require.NoError(t, err)
	assert.Equal(t, out, fromClass)
}

func TestCacheListAndClear(t *testing.T) {
	dir := setupProject(t, program)

	_, _, err := sigmac(t, "--config", dir, "build")
	require.NoError(t, err)

	out, _, err := sigmac(t, "--config", dir, "cache", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Demo")
	assert.Contains(t, out, "1 build(s)")

	out, _, err = sigmac(t, "--config", dir, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 1 build(s)")

	out, _, err = sigmac(t, "--config", dir, "cache", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "0 build(s)")
}

func TestLoadManifestFromFile(t *testing.T) {
	dir := setupProject(t, program)

	m, err := loadManifest(filepath.Join(dir, "sigma.toml"))
	require.NoError(t, err)
	assert.Equal(t, "Demo", m.Build.Class)

	_, err = loadManifest(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
