// Package compiler drives a Sigma source file through parsing, semantic
// analysis and class generation, consulting an optional build cache.
package compiler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/sigma/ast"
	"github.com/chazu/sigma/codegen"
	"github.com/chazu/sigma/compiler/hash"
	"github.com/chazu/sigma/diag"
	"github.com/chazu/sigma/semantic"
	"github.com/chazu/sigma/syntax"
)

// Version identifies the code generator in cache keys. Bump it whenever
// the emitted bytecode changes for the same input.
const Version = "sigma-1"

var log = commonlog.GetLogger("sigma.compiler")

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Options selects the generated class's shape.
type Options struct {
	ClassName string
	EntryName string
}

// Artifact is a compiled class and what it was built from.
type Artifact struct {
	Key       string // cache key
	ClassName string
	Entry     string
	Class     []byte   // class file bytes
	Methods   []string // name+descriptor of the user methods
	Cached    bool     // served from the cache
}

// Cache stores artifacts by key. Get reports a miss with an error that
// IsMiss recognizes.
type Cache interface {
	Get(ctx context.Context, key string) (*Artifact, error)
	Put(ctx context.Context, key string, a *Artifact) error
	IsMiss(err error) bool
}

// AnalysisError carries the diagnostics of a failed analysis.
type AnalysisError struct {
	Diagnostics []diag.Diagnostic
}

func (e *AnalysisError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = d.Error()
	}
	return strings.Join(msgs, "\n")
}

// ---------------------------------------------------------------------------
// Driver
// ---------------------------------------------------------------------------

// Driver compiles source files. The zero value compiles without a cache.
type Driver struct {
	Cache Cache
}

// NewDriver creates a driver backed by cache, which may be nil.
func NewDriver(cache Cache) *Driver {
	return &Driver{Cache: cache}
}

// Check parses and analyzes src. Parse errors are returned as the
// *syntax.ErrorList; semantic problems are in the result's diagnostics.
func (d *Driver) Check(name, src string) (*semantic.Result, error) {
	unit, err := timed("parse", name, func() (*ast.CompilationUnit, error) {
		return syntax.Parse(name, src)
	})
	if err != nil {
		return nil, err
	}
	res, _ := timed("analyze", name, func() (*semantic.Result, error) {
		return semantic.Analyze(unit), nil
	})
	return res, nil
}

// Compile turns src into a class, using the cache when one is configured.
func (d *Driver) Compile(ctx context.Context, name, src string, opts Options) (*Artifact, error) {
	res, err := d.Check(name, src)
	if err != nil {
		return nil, err
	}
	if !res.Successful() {
		return nil, &AnalysisError{Diagnostics: res.Diagnostics}
	}

	key := Key(res.Unit, opts)
	if d.Cache != nil {
		a, err := d.Cache.Get(ctx, key)
		switch {
		case err == nil:
			log.Infof("cache hit for %s (%s)", name, key[:12])
			a.Cached = true
			return a, nil
		case !d.Cache.IsMiss(err):
			log.Warningf("cache lookup for %s failed: %s", name, err)
		default:
			log.Infof("cache miss for %s (%s)", name, key[:12])
		}
	}

	out, err := timed("generate", name, func() (*codegen.Output, error) {
		return codegen.Generate(res, codegen.Options{
			ClassName:  opts.ClassName,
			EntryName:  opts.EntryName,
			SourceFile: sourceFile(name),
		})
	})
	if err != nil {
		return nil, err
	}
	a := &Artifact{
		Key:       key,
		ClassName: out.ClassName,
		Entry:     out.Entry.Name,
		Class:     out.Bytes,
	}
	for _, m := range out.Methods {
		a.Methods = append(a.Methods, m.Name+m.Descriptor)
	}
	if d.Cache != nil {
		if err := d.Cache.Put(ctx, key, a); err != nil {
			log.Warningf("cache store for %s failed: %s", name, err)
		}
	}
	return a, nil
}

// Key is the cache key of a unit compiled with opts. The source file's
// base name is part of it since it lands in the SourceFile attribute.
func Key(unit *ast.CompilationUnit, opts Options) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%s",
		Version, hash.HashString(unit), sourceFile(unit.Name), opts.ClassName, opts.EntryName)
	return hex.EncodeToString(h.Sum(nil))
}

// IsInternal reports whether err is a code generation failure, which
// indicates a compiler defect rather than a problem in the program.
func IsInternal(err error) bool {
	var e *codegen.Error
	return errors.As(err, &e)
}

func sourceFile(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

func timed[T any](phase, name string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	log.Debugf("%s %s: %s", phase, name, time.Since(start))
	return v, err
}
