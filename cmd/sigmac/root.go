package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/chazu/sigma/cache"
	"github.com/chazu/sigma/compiler"
	"github.com/chazu/sigma/manifest"
)

var log = commonlog.GetLogger("sigma.cli")

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	verbose int
	config  string
	noCache bool

	injector *do.Injector
}

func newRootCmd(opts *globalOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "sigmac",
		Short: "Sigma compiler: semantic analysis and JVM class generation",
		Long: `sigmac compiles Sigma source into a single JVM class file.

Settings come from the nearest sigma.toml, or from --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.CountVarP(&opts.verbose, "verbose", "v", "increase log verbosity (repeatable)")
	flags.StringVar(&opts.config, "config", "", "path to sigma.toml or its directory")
	flags.BoolVar(&opts.noCache, "no-cache", false, "compile without the build cache")

	root.AddCommand(
		newBuildCmd(opts),
		newCheckCmd(opts),
		newRunCmd(opts),
		newDisasmCmd(opts),
		newLSPCmd(opts),
		newCacheCmd(opts),
	)
	return root
}

// setup builds the service container and configures logging from the
// flags and the manifest's [log] section.
func (o *globalOptions) setup() error {
	o.injector = newInjector(o)

	m, err := do.Invoke[*manifest.Manifest](o.injector)
	if err != nil {
		return err
	}

	verbosity := m.Log.Verbosity
	if o.verbose > verbosity {
		verbosity = o.verbose
	}
	var path *string
	if m.Log.File != "" {
		p := m.Log.File
		if !filepath.IsAbs(p) {
			p = filepath.Join(m.Dir, p)
		}
		path = &p
	}
	commonlog.Configure(verbosity, path)
	log.Debugf("project dir %s", m.Dir)
	return nil
}

func (o *globalOptions) shutdown() error {
	if o.injector == nil {
		return nil
	}
	return o.injector.Shutdown()
}

func (o *globalOptions) manifest() *manifest.Manifest {
	return do.MustInvoke[*manifest.Manifest](o.injector)
}

func (o *globalOptions) driver() *compiler.Driver {
	return do.MustInvoke[*compiler.Driver](o.injector)
}

// newInjector registers the manifest, the build cache and the driver.
// Services are constructed lazily on first use.
func newInjector(o *globalOptions) *do.Injector {
	i := do.New()

	do.Provide(i, func(i *do.Injector) (*manifest.Manifest, error) {
		return loadManifest(o.config)
	})

	do.Provide(i, func(i *do.Injector) (*cache.Cache, error) {
		m, err := do.Invoke[*manifest.Manifest](i)
		if err != nil {
			return nil, err
		}
		return cache.Open(m.CachePath())
	})

	do.Provide(i, func(i *do.Injector) (*compiler.Driver, error) {
		m, err := do.Invoke[*manifest.Manifest](i)
		if err != nil {
			return nil, err
		}
		if o.noCache || !m.Cache.Enabled {
			return compiler.NewDriver(nil), nil
		}
		c, err := do.Invoke[*cache.Cache](i)
		if err != nil {
			log.Warningf("build cache disabled: %s", err)
			return compiler.NewDriver(nil), nil
		}
		return compiler.NewDriver(c), nil
	})

	return i
}

// loadManifest reads the manifest named by config, or the nearest one
// above the working directory. Without any, defaults rooted at the
// working directory apply.
func loadManifest(config string) (*manifest.Manifest, error) {
	if config != "" {
		info, err := os.Stat(config)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if info.IsDir() {
			return manifest.Load(config)
		}
		return manifest.LoadFile(config)
	}

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if m != nil {
		return m, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return manifest.Default(wd), nil
}
