// Package server exposes Sigma analysis to editors over the Language
// Server Protocol.
package server

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/sigma/ast"
	"github.com/chazu/sigma/compiler"
	"github.com/chazu/sigma/semantic"
	"github.com/chazu/sigma/symbols"
	"github.com/chazu/sigma/syntax"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "sigma-lsp"

var log = commonlog.GetLogger("sigma.lsp")

// document is an open buffer and the analysis of its latest text.
// result is nil when the text did not parse.
type document struct {
	text   string
	result *semantic.Result
}

// LspServer publishes parse errors and semantic diagnostics for open
// documents and answers hover, completion, definition and references
// from the latest analysis.
type LspServer struct {
	driver *compiler.Driver

	mu   sync.Mutex
	docs map[protocol.DocumentUri]*document

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a server that analyzes documents with driver.
func NewLSP(driver *compiler.Driver) *LspServer {
	if driver == nil {
		driver = compiler.NewDriver(nil)
	}
	s := &LspServer{
		driver:  driver,
		docs:    make(map[protocol.DocumentUri]*document),
		version: compiler.Version,
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	diags := s.update(params.TextDocument.URI, params.TextDocument.Text)
	s.publish(ctx, params.TextDocument.URI, diags)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) == 0 {
		return nil
	}
	last := params.ContentChanges[len(params.ContentChanges)-1]
	whole, ok := last.(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return nil
	}
	diags := s.update(params.TextDocument.URI, whole.Text)
	s.publish(ctx, params.TextDocument.URI, diags)
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()

	s.publish(ctx, uri, []protocol.Diagnostic{})
	return nil
}

// update re-analyzes uri with text and returns its diagnostics.
func (s *LspServer) update(uri protocol.DocumentUri, text string) []protocol.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.driver.Check(string(uri), text)
	s.docs[uri] = &document{text: text, result: res}
	diags := toDiagnostics(res, err)
	log.Debugf("%s: %d diagnostics", uri, len(diags))
	return diags
}

func (s *LspServer) publish(ctx *glsp.Context, uri protocol.DocumentUri, diags []protocol.Diagnostic) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}

// lookup returns the open document for uri, or nil.
func (s *LspServer) lookup(uri protocol.DocumentUri) *document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[uri]
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc := s.lookup(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	prefix := extractPrefix(doc.text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return complete(doc.result, prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc := s.lookup(params.TextDocument.URI)
	if doc == nil || doc.result == nil {
		return nil, nil
	}
	return hover(doc.result, doc.text, params.Position), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	doc := s.lookup(params.TextDocument.URI)
	if doc == nil || doc.result == nil {
		return nil, nil
	}
	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}
	return definition(doc.result, params.TextDocument.URI, word), nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	doc := s.lookup(params.TextDocument.URI)
	if doc == nil || doc.result == nil {
		return nil, nil
	}
	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}
	return references(doc.result, params.TextDocument.URI, word), nil
}

// --- Analysis-backed logic ---

// toDiagnostics converts a parse failure or the analysis diagnostics into
// LSP diagnostics. A parse failure hides the semantic diagnostics.
func toDiagnostics(res *semantic.Result, err error) []protocol.Diagnostic {
	out := []protocol.Diagnostic{}
	if err != nil {
		var list syntax.ErrorList
		if errors.As(err, &list) {
			for _, e := range list {
				out = append(out, newDiagnostic(e.Pos, 1, e.Msg))
			}
			return out
		}
		return append(out, newDiagnostic(ast.Pos{Line: 1, Column: 1}, 0, err.Error()))
	}
	if res == nil {
		return out
	}
	for _, d := range res.Diagnostics {
		out = append(out, newDiagnostic(d.Pos, 1, fmt.Sprintf("%s: %s", d.Kind, d.Message)))
	}
	return out
}

func newDiagnostic(pos ast.Pos, width int, msg string) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	source := lspName
	start := toPosition(pos)
	end := start
	end.Character += protocol.UInteger(width)
	return protocol.Diagnostic{
		Range:    protocol.Range{Start: start, End: end},
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	}
}

// toPosition maps a 1-based source position to a 0-based LSP position.
func toPosition(pos ast.Pos) protocol.Position {
	line, col := pos.Line-1, pos.Column-1
	if line < 0 {
		line = 0
	}
	if col < 0 {
		col = 0
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
}

// identifierAt returns the identifier expression covering pos.
func identifierAt(res *semantic.Result, pos protocol.Position) *ast.Identifier {
	line := int(pos.Line) + 1
	col := int(pos.Character) + 1
	for e := range res.ExprTypes {
		id, ok := e.(*ast.Identifier)
		if !ok || id.PosVal.Line != line {
			continue
		}
		if col >= id.PosVal.Column && col <= id.PosVal.Column+len(id.Name) {
			return id
		}
	}
	return nil
}

func hover(res *semantic.Result, text string, pos protocol.Position) *protocol.Hover {
	var value string
	if id := identifierAt(res, pos); id != nil {
		value = fmt.Sprintf("```sigma\n%s %s\n```", res.ExprTypes[id], id.Name)
		if sym, ok := res.Symbols.Global().Symbols[id.Name]; ok && sym.Kind == symbols.Method {
			value = methodHover(res, id.Name)
		}
	} else if word := extractWord(text, pos); word != "" {
		if _, ok := res.Classes[word]; ok {
			value = fmt.Sprintf("```sigma\nclass %s\n```", word)
		} else if sym, ok := res.Symbols.Global().Symbols[word]; ok && sym.Kind == symbols.Method {
			value = methodHover(res, word)
		}
	}
	if value == "" {
		return nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value,
		},
	}
}

// methodHover renders the declaration of the top-level method name.
func methodHover(res *semantic.Result, name string) string {
	for _, st := range res.Unit.Stmts {
		m, ok := st.(*ast.MethodDecl)
		if !ok || m.Name != name {
			continue
		}
		params := make([]string, len(m.Params))
		for i, p := range m.Params {
			params[i] = p.TypeName + " " + p.Name
		}
		return fmt.Sprintf("```sigma\n%s %s(%s)\n```", m.ReturnType, m.Name, strings.Join(params, ", "))
	}
	return ""
}

var keywords = []string{
	"class", "else", "false", "for", "if", "null", "print", "println", "return", "true", "while",
}

func complete(res *semantic.Result, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)
	add := func(label, detail string, kind protocol.CompletionItemKind) {
		if seen[label] || !strings.HasPrefix(label, prefix) {
			return
		}
		seen[label] = true
		labelCopy := label
		detailCopy := detail
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detailCopy,
			InsertText: &labelCopy,
		})
	}

	if res != nil {
		names := make([]string, 0, len(res.Symbols.Global().Symbols))
		for name := range res.Symbols.Global().Symbols {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sym := res.Symbols.Global().Symbols[name]
			switch sym.Kind {
			case symbols.Method:
				add(name, "method returning "+sym.Type.String(), protocol.CompletionItemKindFunction)
			case symbols.Class:
				add(name, "class", protocol.CompletionItemKindClass)
			default:
				add(name, sym.Type.String(), protocol.CompletionItemKindVariable)
			}
		}
		for _, name := range res.Registry.Classes() {
			add(name, "class", protocol.CompletionItemKindClass)
		}
	}
	for _, name := range []string{"boolean", "double", "float", "int", "void"} {
		add(name, "type", protocol.CompletionItemKindKeyword)
	}
	for _, kw := range keywords {
		add(kw, "keyword", protocol.CompletionItemKindKeyword)
	}
	return items
}

// definition resolves word against the global scope and class members.
func definition(res *semantic.Result, uri protocol.DocumentUri, word string) []protocol.Location {
	if sym, ok := res.Symbols.Global().Symbols[word]; ok {
		return []protocol.Location{location(uri, sym.Pos, len(word))}
	}
	var locations []protocol.Location
	for _, name := range sortedClasses(res) {
		cls := res.Classes[name]
		if sig, ok := cls.Methods[word]; ok {
			locations = append(locations, location(uri, sig.Pos, len(word)))
		}
		if f, ok := cls.Fields[word]; ok {
			locations = append(locations, location(uri, f.Pos, len(word)))
		}
	}
	return locations
}

// references lists every identifier expression named word, in source order.
func references(res *semantic.Result, uri protocol.DocumentUri, word string) []protocol.Location {
	var ids []*ast.Identifier
	for e := range res.ExprTypes {
		if id, ok := e.(*ast.Identifier); ok && id.Name == word {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i].PosVal, ids[j].PosVal
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	locations := make([]protocol.Location, len(ids))
	for i, id := range ids {
		locations[i] = location(uri, id.PosVal, len(word))
	}
	return locations
}

func location(uri protocol.DocumentUri, pos ast.Pos, width int) protocol.Location {
	start := toPosition(pos)
	end := start
	end.Character += protocol.UInteger(width)
	return protocol.Location{URI: uri, Range: protocol.Range{Start: start, End: end}}
}

func sortedClasses(res *semantic.Result) []string {
	names := make([]string, 0, len(res.Classes))
	for name := range res.Classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// --- Text extraction helpers ---

func isIdentRune(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// extractPrefix returns the identifier fragment before the cursor.
func extractPrefix(text string, pos protocol.Position) string {
	line, col, ok := lineAt(text, pos)
	if !ok {
		return ""
	}
	start := col
	for start > 0 && isIdentRune(line[start-1]) {
		start--
	}
	return string(line[start:col])
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line, col, ok := lineAt(text, pos)
	if !ok {
		return ""
	}
	start := col
	for start > 0 && isIdentRune(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isIdentRune(line[end]) {
		end++
	}
	return string(line[start:end])
}

// lineAt returns the runes of the cursor's line and the clamped column.
func lineAt(text string, pos protocol.Position) ([]rune, int, bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return nil, 0, false
	}
	line := []rune(strings.TrimSuffix(lines[pos.Line], "\r"))
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}
	return line, col, true
}

func boolPtr(b bool) *bool {
	return &b
}
