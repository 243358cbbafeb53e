// Package codegen lowers an analyzed Sigma program to a single JVM class
// whose methods are all static.
package codegen

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/sigma/ast"
	"github.com/chazu/sigma/classfile"
	"github.com/chazu/sigma/semantic"
	"github.com/chazu/sigma/types"
)

var log = commonlog.GetLogger("sigma.codegen")

// DefaultEntryName is the name of the method that runs a program.
const DefaultEntryName = "main"

// javaMainDesc is the descriptor of the JVM launcher's main method.
const javaMainDesc = "([Ljava/lang/String;)V"

// Options controls class generation.
type Options struct {
	ClassName  string // internal name of the generated class
	EntryName  string // defaults to DefaultEntryName
	SourceFile string // recorded as the SourceFile attribute when set
}

// Output is a generated class.
type Output struct {
	ClassName string
	Entry     *MethodInfo
	Methods   []*MethodInfo // user methods in declaration order
	Bytes     []byte
}

// ---------------------------------------------------------------------------
// Generator: lowers one analyzed unit to a class file
// ---------------------------------------------------------------------------

// Generator holds the per-class state of one generation. Per-method state
// lives in methodCtx.
type Generator struct {
	res     *semantic.Result
	opts    Options
	w       *classfile.Writer
	methods map[string]*MethodInfo
	order   []*MethodInfo
}

// Generate lowers res to a class file. It refuses results that carry
// diagnostics and stops at the first *Error.
func Generate(res *semantic.Result, opts Options) (*Output, error) {
	if res == nil || !res.Successful() {
		return nil, ErrNotAnalyzed
	}
	if opts.ClassName == "" {
		opts.ClassName = "Main"
	}
	if opts.EntryName == "" {
		opts.EntryName = DefaultEntryName
	}
	g := &Generator{
		res:     res,
		opts:    opts,
		w:       classfile.NewWriter(opts.ClassName),
		methods: make(map[string]*MethodInfo),
	}
	if opts.SourceFile != "" {
		g.w.SetSourceFile(opts.SourceFile)
	}
	return g.generate()
}

func (g *Generator) generate() (*Output, error) {
	if err := g.collectMethods(); err != nil {
		return nil, err
	}
	entry, synthesize, err := g.entryPoint()
	if err != nil {
		return nil, err
	}

	if err := g.emitConstructor(); err != nil {
		return nil, err
	}
	if synthesize {
		if err := g.emitMethod(entry, g.topLevelStmts()); err != nil {
			return nil, err
		}
	}
	for _, info := range g.order {
		if err := g.emitMethod(info, info.Decl.Body.Stmts); err != nil {
			return nil, err
		}
	}
	if err := g.emitJavaMain(entry); err != nil {
		return nil, err
	}

	data, err := g.w.Bytes()
	if err != nil {
		return nil, &Error{Kind: Internal, Msg: err.Error()}
	}
	log.Debugf("generated class %s: %d methods, %d bytes", g.opts.ClassName, len(g.order)+2, len(data))
	return &Output{ClassName: g.opts.ClassName, Entry: entry, Methods: g.order, Bytes: data}, nil
}

// collectMethods builds a MethodInfo for every top-level and class method.
// All methods share one flat namespace in the generated class.
func (g *Generator) collectMethods() error {
	add := func(decl *ast.MethodDecl) error {
		if prev, ok := g.methods[decl.Name]; ok {
			return errorf(DuplicateMethod, decl, "method '%s' is already declared at %s", decl.Name, prev.Decl.Pos())
		}
		info := newMethodInfo(decl, g.res.Registry)
		g.methods[decl.Name] = info
		g.order = append(g.order, info)
		return nil
	}
	for _, stmt := range g.res.Unit.Stmts {
		switch s := stmt.(type) {
		case *ast.MethodDecl:
			if err := add(s); err != nil {
				return err
			}
		case *ast.ClassDecl:
			if len(s.Fields) > 0 {
				f := s.Fields[0]
				return errorf(Unsupported, f, "field '%s' of class %s: class fields are not supported", f.Name, s.Name)
			}
			for _, m := range s.Methods {
				if err := add(m); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// entryPoint finds the program entry. A zero-parameter void method named
// EntryName is the entry and excludes top-level statements. Otherwise the
// top-level statements become a synthesized EntryName()V, which may sit
// beside a user method of that name with another descriptor.
func (g *Generator) entryPoint() (*MethodInfo, bool, error) {
	name := g.opts.EntryName
	loose := g.topLevelStmts()
	if info, ok := g.methods[name]; ok && len(info.ParamTypes) == 0 && types.IsVoid(info.ReturnType) {
		if len(loose) > 0 {
			return nil, false, errorf(EntryPointConflict, loose[0],
				"cannot mix top-level statements with an explicit entry method")
		}
		return info, false, nil
	}
	entry := &MethodInfo{
		Name:       name,
		ReturnType: types.VoidT,
		Descriptor: "()V",
	}
	return entry, true, nil
}

// topLevelStmts returns the unit's statements that are not declarations.
func (g *Generator) topLevelStmts() []ast.Stmt {
	var out []ast.Stmt
	for _, stmt := range g.res.Unit.Stmts {
		switch stmt.(type) {
		case *ast.MethodDecl, *ast.ClassDecl:
			continue
		}
		out = append(out, stmt)
	}
	return out
}

// ---------------------------------------------------------------------------
// Method emission
// ---------------------------------------------------------------------------

func (g *Generator) emitConstructor() error {
	code := classfile.NewCode(g.w.Pool())
	code.EmitLocal(classfile.OpAload, 0)
	code.EmitInvoke(classfile.OpInvokespecial, classfile.ObjectClass, "<init>", "()V")
	code.Emit(classfile.OpReturn)
	return g.addMethod(classfile.AccPublic, "<init>", "()V", code, 1)
}

func (g *Generator) emitJavaMain(entry *MethodInfo) error {
	code := classfile.NewCode(g.w.Pool())
	code.EmitInvoke(classfile.OpInvokestatic, g.opts.ClassName, entry.Name, entry.Descriptor)
	code.Emit(classfile.OpReturn)
	return g.addMethod(classfile.AccPublic|classfile.AccStatic, "main", javaMainDesc, code, 1)
}

func (g *Generator) emitMethod(info *MethodInfo, body []ast.Stmt) error {
	ctx := &methodCtx{
		g:     g,
		info:  info,
		code:  classfile.NewCode(g.w.Pool()),
		scope: NewMethodScope(0),
	}
	if info.Decl != nil {
		for i, p := range info.Decl.Params {
			ctx.scope.Declare(p.Name, info.ParamTypes[i])
		}
	}
	if err := ctx.lowerStmts(body); err != nil {
		return err
	}
	ctx.finishBody()
	info.Locals = ctx.scope.All()

	log.Debugf("method %s%s: %d locals", info.Name, info.Descriptor, ctx.scope.MaxLocals())
	return g.addMethod(classfile.AccPublic|classfile.AccStatic, info.Name, info.Descriptor, ctx.code, ctx.scope.MaxLocals())
}

func (g *Generator) addMethod(access uint16, name, desc string, code *classfile.Code, maxLocals int) error {
	attr, err := code.Finish(maxLocals)
	if err != nil {
		return &Error{Kind: Internal, Msg: name + desc + ": " + err.Error()}
	}
	if err := g.w.AddMethod(access, name, desc, attr); err != nil {
		return &Error{Kind: Internal, Msg: err.Error()}
	}
	return nil
}
