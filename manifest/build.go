// Package manifest provides functionality to define and build Debian packages using declarative configuration files.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/debroot/deb"
	"github.com/pelletier/go-toml/v2"
	"go.yaml.in/yaml/v3"
)

// NewBuildFile loads and parses a BuildFile configuration from the specified file path.
// It supports JSON, YAML and TOML formats based on the file extension.
func NewBuildFile(path string, opts ...Option) (*BuildFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read buildfile: %w", err)
	}

	var build BuildFile
	if err := unmarshal(path, content, &build); err != nil {
		return nil, fmt.Errorf("failed to parse buildfile: %w", err)
	}

	build.filePath = path
	build.opts = newOptions(opts)
	build.engine = newTemplateEngine(build.Defines)
	build.engine.set(varDistribution, build.Distribution)
	build.engine.set(varPrefix, build.Prefix)

	if len(build.Packages) == 0 {
		return nil, fmt.Errorf("buildfile must specify 'packages'")
	}
	return &build, nil
}

// BuildFile represents the configuration of a set of packages built together.
// It defines the output directory, global variables, and the list of packages to build.
type BuildFile struct {
	// Output is the directory where the packages are written. Defaults to the buildfile directory.
	Output string `json:"output" yaml:"output" toml:"output"`
	// Distribution names the target distribution, available to templates as {{.distribution}}.
	Distribution string `json:"distribution" yaml:"distribution" toml:"distribution"`
	// Prefix is joined before relative permission and conffile paths, available to templates as {{.prefix}}.
	Prefix string `json:"prefix" yaml:"prefix" toml:"prefix"`
	// Defines is a map of global variables available to templates.
	Defines map[string]string `json:"defines" yaml:"defines" toml:"defines"`
	// Packages is a list of paths to package definition files.
	Packages []string `json:"packages" yaml:"packages" toml:"packages"`

	filePath string
	engine   *templateEngine
	opts     *options
}

// OutputDir returns the resolved output directory.
func (b *BuildFile) OutputDir() (string, error) {
	out, err := b.engine.render("output", b.Output)
	if err != nil {
		return "", fmt.Errorf("rendering output: %w", err)
	}
	return b.resolve(out), nil
}

// SetOutput overrides the output directory, relative to the working directory.
func (b *BuildFile) SetOutput(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	b.Output = abs
	return nil
}

// LoadPackages reads and parses all package definition files listed in the configuration.
// It resolves paths relative to the BuildFile and initializes template engines for each package.
func (b *BuildFile) LoadPackages() ([]*Package, error) {
	var pkgs []*Package

	for _, pkgFileRaw := range b.Packages {
		// pkgFile can be
		//  - a relative path to the build file
		//  - an absolute file path on the machine
		pkgFile, err := b.engine.render("package-list", pkgFileRaw)
		if err != nil {
			return nil, fmt.Errorf("rendering package path %q: %w", pkgFileRaw, err)
		}
		pkgPath := b.resolve(pkgFile)

		content, err := os.ReadFile(pkgPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read package definition %s: %w", pkgPath, err)
		}
		pkg, err := parsePackage(pkgPath, content, b.engine, b.opts)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, pkg)
	}

	return pkgs, nil
}

// Compile builds every package of the build file into the output directory.
func (b *BuildFile) Compile(l Listener, opts ...deb.Option) ([]*deb.Result, error) {
	if l == nil {
		l = func(fmt.Stringer) {}
	}

	pkgs, err := b.LoadPackages()
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}
	out, err := b.OutputDir()
	if err != nil {
		return nil, err
	}
	l(EventBuildLoadSuccess{Path: b.filePath, Packages: len(pkgs), Output: out})

	var results []*deb.Result
	for _, pkg := range pkgs {
		info, res, err := pkg.Build(out, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to build package %q: %w", pkg.filePath, err)
		}
		l(newPackageBuilt(pkg.filePath, info, res))
		results = append(results, res)
	}
	return results, nil
}

func (b *BuildFile) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(b.filePath), path)
}

// unmarshal parses JSON, YAML or TOML based on file extension.
func unmarshal(path string, data []byte, v interface{}) error {
	ext := strings.ToLower(filepath.Ext(path))
	r := bytes.NewReader(data)
	switch ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		return dec.Decode(v)
	case ".toml":
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
