package integration_test

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/sigma/cache"
	"github.com/chazu/sigma/classfile"
	"github.com/chazu/sigma/compiler"
	"github.com/chazu/sigma/vm"
)

// ---------------------------------------------------------------------------
// Integration test helpers
// ---------------------------------------------------------------------------

// sample is a testdata program and its expected output.
type sample struct {
	name string
	src  string
	want string
}

func samples(t *testing.T) []sample {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join("testdata", "*.sigma"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	var out []sample
	for _, path := range paths {
		src, err := os.ReadFile(path)
		require.NoError(t, err)
		want, err := os.ReadFile(strings.TrimSuffix(path, ".sigma") + ".out")
		require.NoError(t, err)
		out = append(out, sample{
			name: strings.TrimSuffix(filepath.Base(path), ".sigma"),
			src:  string(src),
			want: string(want),
		})
	}
	return out
}

func compile(t *testing.T, d *compiler.Driver, s sample) *compiler.Artifact {
	t.Helper()
	a, err := d.Compile(context.Background(), s.name+".sigma", s.src, compiler.Options{ClassName: "Main"})
	require.NoError(t, err, "compile %s", s.name)
	return a
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestSamplesInInterpreter(t *testing.T) {
	d := compiler.NewDriver(nil)
	for _, s := range samples(t) {
		t.Run(s.name, func(t *testing.T) {
			a := compile(t, d, s)
			var out bytes.Buffer
			m, err := vm.Load(a.Class, &out)
			require.NoError(t, err)
			require.NoError(t, m.Run(context.Background()))
			assert.Equal(t, s.want, out.String())
		})
	}
}

func TestSamplesDisassemble(t *testing.T) {
	d := compiler.NewDriver(nil)
	for _, s := range samples(t) {
		t.Run(s.name, func(t *testing.T) {
			a := compile(t, d, s)
			cls, err := classfile.Parse(a.Class)
			require.NoError(t, err)
			assert.Equal(t, uint16(49), cls.Major)
			assert.Equal(t, s.name+".sigma", cls.SourceFile)
			_, err = classfile.Disassemble(cls)
			assert.NoError(t, err)
		})
	}
}

func TestSamplesThroughBuildCache(t *testing.T) {
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer c.Close()

	d := compiler.NewDriver(c)
	for _, s := range samples(t) {
		first := compile(t, d, s)
		assert.False(t, first.Cached, s.name)

		second := compile(t, d, s)
		assert.True(t, second.Cached, s.name)
		assert.Equal(t, first.Class, second.Class, s.name)
	}

	entries, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, len(samples(t)))
}

// TestSamplesOnJVM runs every sample on a real JVM when one is installed.
func TestSamplesOnJVM(t *testing.T) {
	java, err := exec.LookPath("java")
	if err != nil {
		t.Skip("java not found on PATH")
	}

	d := compiler.NewDriver(nil)
	for _, s := range samples(t) {
		t.Run(s.name, func(t *testing.T) {
			a := compile(t, d, s)
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, a.ClassName+".class"), a.Class, 0o644))

			cmd := exec.Command(java, "-cp", dir, a.ClassName)
			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr
			require.NoError(t, cmd.Run(), "java: %s", stderr.String())
			assert.Equal(t, s.want, stdout.String())
		})
	}
}
