// Command sigmac compiles Sigma programs to JVM class files.
//
// Usage:
//
//	sigmac build [file]        # write <out>/<Class>.class
//	sigmac check [files...]    # report diagnostics only
//	sigmac run [file]          # compile and execute in-process
//	sigmac disasm [file]       # disassemble a .sigma or .class file
//	sigmac lsp                 # language server on stdio
//	sigmac cache list|clear    # inspect the build cache
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// execute runs one command line and releases the services it started,
// whether or not the command succeeded.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts := &globalOptions{}
	root := newRootCmd(opts)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if serr := opts.shutdown(); err == nil {
		err = serr
	}
	return err
}
