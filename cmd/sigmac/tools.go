package main

import (
	"fmt"
	"time"

	"github.com/samber/do"
	"github.com/spf13/cobra"

	"github.com/chazu/sigma/cache"
	"github.com/chazu/sigma/server"
)

func newLSPCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the language server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.NewLSP(o.driver()).Run()
		},
	}
}

func newCacheCmd(o *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the build cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cached builds, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := do.Invoke[*cache.Cache](o.injector)
			if err != nil {
				return err
			}
			entries, err := c.List(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(w, "%s  %-16s %6d  %s  %s\n",
					e.Key[:12], e.ClassName, e.Size, e.CreatedAt.Format(time.RFC3339), e.BuildID)
			}
			fmt.Fprintf(w, "%d build(s) in %s\n", len(entries), c.Path())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := do.Invoke[*cache.Cache](o.injector)
			if err != nil {
				return err
			}
			n, err := c.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d build(s)\n", n)
			return nil
		},
	})

	return cmd
}
