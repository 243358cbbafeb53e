// Package manifest handles sigma.toml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest's file name.
const FileName = "sigma.toml"

// Manifest represents a sigma.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project" json:"project"`
	Build   BuildConfig `toml:"build" json:"build"`
	Cache   CacheConfig `toml:"cache" json:"cache"`
	Log     LogConfig   `toml:"log" json:"log"`

	// Dir is the directory containing the sigma.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name" json:"name"`
	Version string `toml:"version" json:"version"`
}

// BuildConfig configures compilation.
type BuildConfig struct {
	Source string `toml:"source" json:"source"` // main source file
	Class  string `toml:"class" json:"class"`   // generated class name
	Entry  string `toml:"entry" json:"entry"`   // entry method name
	Out    string `toml:"out" json:"out"`       // output directory
}

// CacheConfig configures the build cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity" json:"verbosity"`
	File      string `toml:"file" json:"file"`
}

// Default returns the configuration used when no sigma.toml exists.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.Cache.Enabled = true
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Build.Source == "" {
		m.Build.Source = "main.sigma"
	}
	if m.Build.Class == "" {
		m.Build.Class = "Main"
	}
	if m.Build.Entry == "" {
		m.Build.Entry = "main"
	}
	if m.Build.Out == "" {
		m.Build.Out = "build"
	}
	if m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(".sigma", "cache.db")
	}
}

// Parse decodes and validates manifest text. Sections that are absent keep
// their defaults; the cache is enabled unless the file says otherwise.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{Cache: CacheConfig{Enabled: true}}
	md, err := toml.Decode(string(data), m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s", undecoded[0])
	}
	m.applyDefaults()
	if err := Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Load parses a sigma.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// LoadFile loads a manifest from an explicit path.
func LoadFile(path string) (*Manifest, error) {
	if filepath.Base(path) != FileName {
		return nil, fmt.Errorf("%s: manifest must be named %s", path, FileName)
	}
	return Load(filepath.Dir(path))
}

// FindAndLoad walks up from startDir to find a sigma.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// SourcePath returns the absolute path of the main source file.
func (m *Manifest) SourcePath() string {
	return m.resolve(m.Build.Source)
}

// OutDir returns the absolute output directory.
func (m *Manifest) OutDir() string {
	return m.resolve(m.Build.Out)
}

// CachePath returns the absolute path of the cache database.
func (m *Manifest) CachePath() string {
	return m.resolve(m.Cache.Path)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
