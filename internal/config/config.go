// Package config handles taffo.toml configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/roach88/taffo/internal/initializer"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "taffo.toml"

// Config represents a taffo.toml configuration.
type Config struct {
	Scan  Scan  `toml:"scan"`
	Store Store `toml:"store"`

	// Path is the file the configuration was loaded from (set at load time).
	Path string `toml:"-"`
}

// Scan configures annotation discovery.
type Scan struct {
	GlobalAnnotations string `toml:"global_annotations"`
	VarAnnotation     string `toml:"var_annotation"`
	OptNoneAttr       string `toml:"optnone_attr"`
	// FilterRoots drops non floating-point candidates after the scan.
	// Unset means true.
	FilterRoots *bool `toml:"filter_roots"`
}

// Store configures the scan history database.
type Store struct {
	DB string `toml:"db"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{Scan: Scan{
		GlobalAnnotations: initializer.DefaultGlobalAnnotations,
		VarAnnotation:     initializer.DefaultVarAnnotation,
		OptNoneAttr:       initializer.DefaultOptNoneAttr,
	}}
}

// Load parses a configuration file. Unknown keys are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	c.Path = path
	return c, nil
}

// FindAndLoad walks up from startDir to find a taffo.toml file,
// then loads it. Returns Default() if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

func (c *Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.Scan.GlobalAnnotations) == "" {
		errs = append(errs, errors.New("scan.global_annotations must not be empty"))
	}
	if strings.TrimSpace(c.Scan.VarAnnotation) == "" {
		errs = append(errs, errors.New("scan.var_annotation must not be empty"))
	}
	return errors.Join(errs...)
}

// Filter reports whether scan results should be filtered.
func (c *Config) Filter() bool {
	return c.Scan.FilterRoots == nil || *c.Scan.FilterRoots
}

// PassOptions returns the initializer options for the configured symbols.
func (c *Config) PassOptions() []initializer.Option {
	return []initializer.Option{
		initializer.WithGlobalAnnotations(c.Scan.GlobalAnnotations),
		initializer.WithVarAnnotation(c.Scan.VarAnnotation),
		initializer.WithOptNoneAttr(c.Scan.OptNoneAttr),
	}
}
