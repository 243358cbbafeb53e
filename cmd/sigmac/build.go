package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/sigma/classfile"
	"github.com/chazu/sigma/compiler"
	"github.com/chazu/sigma/syntax"
	"github.com/chazu/sigma/vm"
)

// buildFlags are the class-shape flags shared by build, run and disasm.
type buildFlags struct {
	class string
	entry string
}

func (f *buildFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.class, "class", "", "generated class name (default from sigma.toml)")
	cmd.Flags().StringVar(&f.entry, "entry", "", "entry method name (default from sigma.toml)")
}

// compileSource compiles the file named in args, or the manifest's
// source. Diagnostics are written to w.
func compileSource(cmd *cobra.Command, o *globalOptions, f *buildFlags, args []string, w io.Writer) (*compiler.Artifact, error) {
	m := o.manifest()
	path := m.SourcePath()
	if len(args) > 0 {
		path = args[0]
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	opts := compiler.Options{ClassName: m.Build.Class, EntryName: m.Build.Entry}
	if f.class != "" {
		opts.ClassName = f.class
	}
	if f.entry != "" {
		opts.EntryName = f.entry
	}

	a, err := o.driver().Compile(cmd.Context(), path, string(src), opts)
	if err != nil {
		return nil, report(w, path, err)
	}
	return a, nil
}

// report prints parse errors and diagnostics as path:line:column lines and
// returns a summary error. Other errors are returned unchanged.
func report(w io.Writer, path string, err error) error {
	var (
		list     syntax.ErrorList
		analysis *compiler.AnalysisError
	)
	switch {
	case errors.As(err, &list):
		for _, e := range list {
			fmt.Fprintf(w, "%s:%d:%d: syntax error: %s\n", path, e.Pos.Line, e.Pos.Column, e.Msg)
		}
		return fmt.Errorf("%s: %d syntax error(s)", path, len(list))
	case errors.As(err, &analysis):
		for _, d := range analysis.Diagnostics {
			fmt.Fprintf(w, "%s:%d:%d: %s: %s\n", path, d.Pos.Line, d.Pos.Column, d.Kind, d.Message)
		}
		return fmt.Errorf("%s: %d problem(s)", path, len(analysis.Diagnostics))
	case compiler.IsInternal(err):
		return fmt.Errorf("%s: %w", path, err)
	}
	return err
}

// --- build ---

func newBuildCmd(o *globalOptions) *cobra.Command {
	var (
		f   buildFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "build [file]",
		Short: "Compile a Sigma source file to a class file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := compileSource(cmd, o, &f, args, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			dir := out
			if dir == "" {
				dir = o.manifest().OutDir()
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			target := filepath.Join(dir, a.ClassName+".class")
			if err := os.WriteFile(target, a.Class, 0o644); err != nil {
				return err
			}

			note := ""
			if a.Cached {
				note = ", cached"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes%s)\n", target, len(a.Class), note)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (default from sigma.toml)")
	return cmd
}

// --- check ---

func newCheckCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check [files...]",
		Short: "Parse and analyze without generating code",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				paths = []string{o.manifest().SourcePath()}
			}

			var failed []string
			for _, path := range paths {
				src, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				res, err := o.driver().Check(path, string(src))
				if err == nil && !res.Successful() {
					err = &compiler.AnalysisError{Diagnostics: res.Diagnostics}
				}
				if err != nil {
					failed = append(failed, report(cmd.OutOrStdout(), path, err).Error())
				}
			}
			if len(failed) > 0 {
				return errors.New(strings.Join(failed, "; "))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d file(s)\n", len(paths))
			return nil
		},
	}
}

// --- run ---

func newRunCmd(o *globalOptions) *cobra.Command {
	var (
		f        buildFlags
		maxDepth int
	)
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Compile and execute a program in the bundled interpreter",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := compileSource(cmd, o, &f, args, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var opts []vm.Option
			if maxDepth > 0 {
				opts = append(opts, vm.WithMaxDepth(maxDepth))
			}
			machine, err := vm.Load(a.Class, cmd.OutOrStdout(), opts...)
			if err != nil {
				return fmt.Errorf("loading %s: %w", a.ClassName, err)
			}

			err = machine.Run(cmd.Context())
			var exc *vm.Exception
			if errors.As(err, &exc) {
				return fmt.Errorf("exception in thread \"main\" %s", exc)
			}
			return err
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "call depth limit (default interpreter limit)")
	return cmd
}

// --- disasm ---

func newDisasmCmd(o *globalOptions) *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "disasm [file]",
		Short: "Disassemble a compiled class or a Sigma source file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			if len(args) == 1 && strings.HasSuffix(args[0], ".class") {
				b, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				data = b
			} else {
				a, err := compileSource(cmd, o, &f, args, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				data = a.Class
			}

			cls, err := classfile.Parse(data)
			if err != nil {
				return err
			}
			text, err := classfile.Disassemble(cls)
			fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		},
	}
	f.register(cmd)
	return cmd
}
