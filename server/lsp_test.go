package server

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/sigma/compiler"
	"github.com/chazu/sigma/semantic"
)

const sample = `int square(int n) {
    return n * n;
}
double total = 1.5;
println(square(3));
println(total);
`

const uri = protocol.DocumentUri("file:///tmp/sample.sigma")

func check(t *testing.T, src string) *semantic.Result {
	t.Helper()
	res, err := compiler.NewDriver(nil).Check("sample.sigma", src)
	require.NoError(t, err)
	return res
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestDiagnosticsForCleanSource(t *testing.T) {
	res := check(t, sample)
	diags := toDiagnostics(res, nil)
	assert.NotNil(t, diags)
	assert.Empty(t, diags)
}

func TestDiagnosticsForSemanticErrors(t *testing.T) {
	res := check(t, "int x = 1;\n\nboolean b = x;\n")
	diags := toDiagnostics(res, nil)
	require.Len(t, diags, 1)

	d := diags[0]
	assert.Equal(t, protocol.UInteger(2), d.Range.Start.Line)
	assert.True(t, strings.HasPrefix(d.Message, "TYPE_MISMATCH: "), d.Message)
	require.NotNil(t, d.Severity)
	assert.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)
	require.NotNil(t, d.Source)
	assert.Equal(t, lspName, *d.Source)
}

func TestDiagnosticsForParseErrors(t *testing.T) {
	res, err := compiler.NewDriver(nil).Check("broken.sigma", "int x = ;\n")
	require.Error(t, err)
	assert.Nil(t, res)

	diags := toDiagnostics(res, err)
	require.NotEmpty(t, diags)
	assert.Equal(t, protocol.UInteger(0), diags[0].Range.Start.Line)
	assert.Equal(t, lspName, *diags[0].Source)
}

func TestToPositionIsZeroBased(t *testing.T) {
	res := check(t, sample)
	locs := definition(res, uri, "square")
	require.Len(t, locs, 1)
	assert.Equal(t, protocol.UInteger(0), locs[0].Range.Start.Line)
}

// ---------------------------------------------------------------------------
// Hover
// ---------------------------------------------------------------------------

func hoverText(t *testing.T, h *protocol.Hover) string {
	t.Helper()
	require.NotNil(t, h)
	mc, ok := h.Contents.(protocol.MarkupContent)
	require.True(t, ok, "contents %T", h.Contents)
	return mc.Value
}

func TestHover(t *testing.T) {
	res := check(t, sample)

	tests := []struct {
		name string
		pos  protocol.Position
		want string
	}{
		{"parameter", protocol.Position{Line: 1, Character: 11}, "int n"},
		{"global", protocol.Position{Line: 5, Character: 10}, "double total"},
		{"method call", protocol.Position{Line: 4, Character: 9}, "int square(int n)"},
		{"method declaration", protocol.Position{Line: 0, Character: 6}, "int square(int n)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Contains(t, hoverText(t, hover(res, sample, tc.pos)), tc.want)
		})
	}
}

func TestHoverOutsideIdentifier(t *testing.T) {
	res := check(t, sample)
	assert.Nil(t, hover(res, sample, protocol.Position{Line: 2, Character: 0}))
	assert.Nil(t, hover(res, sample, protocol.Position{Line: 40, Character: 0}))
}

// ---------------------------------------------------------------------------
// Completion, definition, references
// ---------------------------------------------------------------------------

func labels(items []protocol.CompletionItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

func TestComplete(t *testing.T) {
	res := check(t, sample)

	assert.Equal(t, []string{"square"}, labels(complete(res, "sq")))
	assert.Equal(t, []string{"total", "true"}, labels(complete(res, "t")))
	assert.Contains(t, labels(complete(res, "d")), "double")
	assert.Contains(t, labels(complete(nil, "wh")), "while")
	assert.Empty(t, complete(res, "zzz"))
}

func TestDefinitionOfUnknownName(t *testing.T) {
	res := check(t, sample)
	assert.Empty(t, definition(res, uri, "nothing"))
}

func TestReferences(t *testing.T) {
	res := check(t, sample)

	locs := references(res, uri, "n")
	require.Len(t, locs, 2)
	assert.Equal(t, protocol.Position{Line: 1, Character: 11}, locs[0].Range.Start)
	assert.Equal(t, protocol.Position{Line: 1, Character: 15}, locs[1].Range.Start)
	assert.Equal(t, protocol.Position{Line: 1, Character: 16}, locs[1].Range.End)
	assert.Equal(t, uri, locs[0].URI)
}

// ---------------------------------------------------------------------------
// Document store
// ---------------------------------------------------------------------------

func TestUpdateStoresAnalysis(t *testing.T) {
	s := NewLSP(nil)

	diags := s.update(uri, sample)
	assert.Empty(t, diags)
	doc := s.lookup(uri)
	require.NotNil(t, doc)
	require.NotNil(t, doc.result)
	assert.True(t, doc.result.Successful())

	diags = s.update(uri, "int x = ;")
	assert.NotEmpty(t, diags)
	doc = s.lookup(uri)
	require.NotNil(t, doc)
	assert.Nil(t, doc.result)
	assert.Equal(t, "int x = ;", doc.text)

	assert.Nil(t, s.lookup("file:///other.sigma"))
}

// ---------------------------------------------------------------------------
// LSP text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		text string
		pos  protocol.Position
		want string
	}{
		{"int sq", protocol.Position{Line: 0, Character: 6}, "sq"},
		{"sq", protocol.Position{Line: 0, Character: 1}, "s"},
		{"", protocol.Position{Line: 0, Character: 0}, ""},
		{"first\nsecond\nwhi", protocol.Position{Line: 2, Character: 3}, "whi"},
		{"x = a + ", protocol.Position{Line: 0, Character: 8}, ""},
		{"x", protocol.Position{Line: 3, Character: 0}, ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, extractPrefix(tc.text, tc.pos), "%q at %v", tc.text, tc.pos)
	}
}

func TestExtractWord(t *testing.T) {
	tests := []struct {
		text string
		pos  protocol.Position
		want string
	}{
		{"println(square(3));", protocol.Position{Line: 0, Character: 10}, "square"},
		{"println(square(3));", protocol.Position{Line: 0, Character: 8}, "square"},
		{"int my_var = 1;", protocol.Position{Line: 0, Character: 6}, "my_var"},
		{"a + b", protocol.Position{Line: 0, Character: 99}, "b"},
		{"a +  b", protocol.Position{Line: 0, Character: 4}, ""},
		{"x\r\ny", protocol.Position{Line: 0, Character: 1}, "x"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, extractWord(tc.text, tc.pos), "%q at %v", tc.text, tc.pos)
	}
}
