package manifest

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/etnz/debroot/deb"
)

// Package represents the definition of a Debian package.
// It contains metadata, permission overrides, scripts, and other build
// instructions loaded from a configuration file. The payload is the content
// of the Destroot directory.
type Package struct {
	// Destroot is the staged directory tree (relative to the package definition file).
	Destroot string `json:"destroot" yaml:"destroot" toml:"destroot"`
	// Filename overrides the standard {name}_{version}_{arch}.deb output filename.
	Filename string `json:"filename" yaml:"filename" toml:"filename"`
	// Prefix overrides the build file prefix for relative paths of this package.
	Prefix string `json:"prefix" yaml:"prefix" toml:"prefix"`
	// Defines is a map of local variables available to templates in this package.
	Defines map[string]string `json:"defines" yaml:"defines" toml:"defines"`
	// Info holds the control fields.
	Info Info `json:"info" yaml:"info" toml:"info"`
	// Depends, Conflicts and Replaces are dependency strings such as "a (>= 1) | b".
	Depends   []string `json:"depends" yaml:"depends" toml:"depends"`
	Conflicts []string `json:"conflicts" yaml:"conflicts" toml:"conflicts"`
	Replaces  []string `json:"replaces" yaml:"replaces" toml:"replaces"`
	// Permissions override the root-owned default of destroot paths.
	Permissions []Permission `json:"permissions" yaml:"permissions" toml:"permissions"`
	// Scripts is a list of maintainer scripts to add to the package.
	Scripts []Script `json:"scripts" yaml:"scripts" toml:"scripts"`
	// Conffiles lists the installed paths to mark as configuration files.
	Conffiles []string `json:"conffiles" yaml:"conffiles" toml:"conffiles"`
	// ControlFiles is a list of auxiliary control files to add.
	ControlFiles []File `json:"control_files" yaml:"control_files" toml:"control_files"`

	filePath string
	engine   *templateEngine
	opts     *options
}

// Info holds the control fields of a package definition.
type Info struct {
	Name     string `json:"name" yaml:"name" toml:"name"`
	Version  string `json:"version" yaml:"version" toml:"version"`
	Revision string `json:"revision" yaml:"revision" toml:"revision"`
	Epoch    int    `json:"epoch" yaml:"epoch" toml:"epoch"`
	Arch     string `json:"arch" yaml:"arch" toml:"arch"`
	// StrictArch rejects architectures unknown to dpkg.
	StrictArch bool       `json:"strict_arch" yaml:"strict_arch" toml:"strict_arch"`
	Maintainer Maintainer `json:"maintainer" yaml:"maintainer" toml:"maintainer"`
	// Summary is the first line of the description.
	Summary string `json:"summary" yaml:"summary" toml:"summary"`
	// Description is the extended description. Lines indented by a space are
	// kept verbatim, other lines are reflowed into paragraphs, blank lines
	// separate paragraphs.
	Description string `json:"description" yaml:"description" toml:"description"`
	Section     string `json:"section" yaml:"section" toml:"section"`
	Priority    string `json:"priority" yaml:"priority" toml:"priority"`
}

// Maintainer is the person responsible for the package.
type Maintainer struct {
	Name  string `json:"name" yaml:"name" toml:"name"`
	Email string `json:"email" yaml:"email" toml:"email"`
}

// Permission overrides the ownership and mode of one or more paths.
type Permission struct {
	// Paths are destroot paths. Relative paths are joined under the prefix.
	Paths []string `json:"paths" yaml:"paths" toml:"paths"`
	User  string   `json:"user" yaml:"user" toml:"user"`
	UID   *int     `json:"uid" yaml:"uid" toml:"uid"`
	Group string   `json:"group" yaml:"group" toml:"group"`
	GID   *int     `json:"gid" yaml:"gid" toml:"gid"`
	// Mode is the file permissions in octal string format (e.g., "0755").
	Mode      string `json:"mode" yaml:"mode" toml:"mode"`
	Recursive bool   `json:"recursive" yaml:"recursive" toml:"recursive"`
}

// Script is a maintainer script given either as a command line or as a
// source file. It is installed for every listed type.
type Script struct {
	Name string `json:"name" yaml:"name" toml:"name"`
	// Types lists the maintainer scripts this script runs as (preinst, postinst, prerm, postrm, config).
	Types   []string `json:"types" yaml:"types" toml:"types"`
	Command string   `json:"command" yaml:"command" toml:"command"`
	// Source is the path to the script (relative to the package definition file) or a URL.
	Source string `json:"source" yaml:"source" toml:"source"`
	// FailOnError aborts the maintainer script when this script fails. Defaults to true.
	FailOnError *bool `json:"fail_on_error" yaml:"fail_on_error" toml:"fail_on_error"`
	// Raw indicates whether the source should be treated as raw content (true) or processed as a template (false).
	Raw bool `json:"raw" yaml:"raw" toml:"raw"`
}

func (s Script) failOnError() bool {
	return s.FailOnError == nil || *s.FailOnError
}

// File represents a file resource added to the control tarball.
type File struct {
	// Src is the path to the source file (relative to the package definition file).
	Src string `json:"src" yaml:"src" toml:"src"`
	// Dst is the name of the control file, such as triggers.
	Dst string `json:"dst" yaml:"dst" toml:"dst"`
	// Raw indicates whether the file should be treated as raw content (true) or processed as a template (false).
	Raw bool `json:"raw" yaml:"raw" toml:"raw"`
}

// LoadPackage reads a standalone package definition. distribution and
// prefix are exposed to its templates like a build file would.
func LoadPackage(filePath, distribution, prefix string, defines map[string]string, opts ...Option) (*Package, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read package definition: %w", err)
	}
	eng := newTemplateEngine(defines)
	eng.set(varDistribution, distribution)
	eng.set(varPrefix, prefix)
	return parsePackage(filePath, content, eng, newOptions(opts))
}

func parsePackage(filePath string, content []byte, parent *templateEngine, o *options) (*Package, error) {
	var pkg Package
	if err := unmarshal(filePath, content, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse package definition %s: %w", filePath, err)
	}
	pkg.filePath = filePath
	pkg.opts = o
	pkg.engine = parent.sub(pkg.Defines)
	if pkg.Prefix != "" {
		prefix, err := pkg.engine.render("prefix", pkg.Prefix)
		if err != nil {
			return nil, fmt.Errorf("rendering prefix: %w", err)
		}
		pkg.engine.set(varPrefix, prefix)
	}
	return &pkg, nil
}

// FilePath returns the path the definition was loaded from.
func (p *Package) FilePath() string {
	return p.filePath
}

func (p *Package) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(p.filePath), path)
}

// installPath joins a relative installed path under the prefix and
// normalizes it. A path climbing above the root is reported.
func (p *Package) installPath(s string) string {
	joined := s
	if !strings.HasPrefix(s, "/") {
		joined = "/" + p.engine.get(varPrefix) + "/" + s
	}
	n, escaped := deb.ResolvePath(joined)
	if escaped {
		p.opts.logger.Warn("path traversal resolved", "file", p.filePath, "path", s, "resolved", n)
	}
	return n
}

func (p *Package) loadResource(path string, raw bool) (string, error) {
	var content []byte
	var err error

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		//TODO: design a permanent cache for http resources (but it depends on the source capability to handle etag)
		resp, err := http.Get(path)
		if err != nil {
			return "", fmt.Errorf("failed to fetch resource %s: %w", path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("failed to fetch resource %s: %s", path, resp.Status)
		}

		content, err = io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read resource body %s: %w", path, err)
		}
	} else {
		resolved := p.resolve(path)
		content, err = os.ReadFile(resolved)
		if err != nil {
			return "", fmt.Errorf("reading resource %s: %w", resolved, err)
		}
	}

	if raw {
		return string(content), nil
	}
	return p.engine.render(path, string(content))
}

// PackageInfo renders the definition and validates it into package metadata.
// Once the name and version are rendered, they are available to the
// remaining templates as {{.package}} and {{.version}}.
func (p *Package) PackageInfo() (*deb.PackageInfo, error) {
	info, err := p.renderInfo()
	if err != nil {
		return nil, err
	}

	name, err := deb.NewName(info.Name)
	if err != nil {
		return nil, err
	}
	var version deb.Version
	if info.Revision == "" && info.Epoch == 0 {
		version, err = deb.ParseVersion(info.Version)
	} else {
		version, err = deb.NewFullVersion(info.Version, info.Revision, info.Epoch)
	}
	if err != nil {
		return nil, err
	}
	p.engine.set(varPackage, name.String())
	p.engine.set(varVersion, version.String())

	arch, err := deb.NewArchitecture(info.Arch, info.StrictArch || p.opts.strictArch)
	if err != nil {
		return nil, err
	}
	if !arch.Known() {
		p.opts.logger.Warn("unknown architecture", "package", name, "arch", arch)
	}
	maintainer, err := deb.NewMaintainer(info.Maintainer.Name, info.Maintainer.Email)
	if err != nil {
		return nil, err
	}
	desc, err := deb.ParseDescriptionBody(info.Summary, info.Description)
	if err != nil {
		return nil, err
	}

	var opts []deb.InfoOption
	if info.Section != "" {
		s, err := deb.NewSection(info.Section)
		if err != nil {
			return nil, err
		}
		opts = append(opts, deb.WithSection(s))
	}
	if info.Priority != "" {
		pr, err := deb.ParsePriority(info.Priority)
		if err != nil {
			return nil, err
		}
		opts = append(opts, deb.WithPriority(pr))
	}

	relations := []struct {
		field string
		items []string
		opt   func(deb.RelationList) deb.InfoOption
	}{
		{"depends", p.Depends, deb.WithDepends},
		{"conflicts", p.Conflicts, deb.WithConflicts},
		{"replaces", p.Replaces, deb.WithReplaces},
	}
	for _, r := range relations {
		l, err := p.relationList(r.field, r.items)
		if err != nil {
			return nil, err
		}
		opts = append(opts, r.opt(l))
	}

	perms, err := p.permissionTable()
	if err != nil {
		return nil, err
	}
	opts = append(opts, deb.WithPermissions(perms))

	scripts, err := p.maintainerScripts()
	if err != nil {
		return nil, err
	}
	opts = append(opts, scripts...)

	conffiles, err := p.engine.renderAll("conffiles", p.Conffiles)
	if err != nil {
		return nil, err
	}
	for i := range conffiles {
		conffiles[i] = p.installPath(conffiles[i])
	}
	opts = append(opts, deb.WithConffiles(conffiles...))

	for i, f := range p.ControlFiles {
		src, err := p.engine.render(fmt.Sprintf("control_files[%d].src", i), f.Src)
		if err != nil {
			return nil, err
		}
		dst, err := p.engine.render(fmt.Sprintf("control_files[%d].dst", i), f.Dst)
		if err != nil {
			return nil, err
		}
		content, err := p.loadResource(src, f.Raw)
		if err != nil {
			return nil, err
		}
		opts = append(opts, deb.WithControlFile(dst, []byte(content)))
	}

	return deb.NewPackageInfo(name, version, arch, maintainer, desc, opts...)
}

// renderInfo renders every templated field of Info.
func (p *Package) renderInfo() (Info, error) {
	info := p.Info
	fields := []struct {
		name string
		v    *string
	}{
		{"info.name", &info.Name},
		{"info.version", &info.Version},
		{"info.revision", &info.Revision},
		{"info.arch", &info.Arch},
		{"info.maintainer.name", &info.Maintainer.Name},
		{"info.maintainer.email", &info.Maintainer.Email},
		{"info.section", &info.Section},
		{"info.priority", &info.Priority},
	}
	for _, f := range fields {
		v, err := p.engine.render(f.name, *f.v)
		if err != nil {
			return Info{}, fmt.Errorf("rendering %s: %w", f.name, err)
		}
		*f.v = v
	}
	// The description may reference the rendered package and version.
	p.engine.set(varPackage, info.Name)
	p.engine.set(varVersion, info.Version)
	for _, f := range []struct {
		name string
		v    *string
	}{{"info.summary", &info.Summary}, {"info.description", &info.Description}} {
		v, err := p.engine.render(f.name, *f.v)
		if err != nil {
			return Info{}, fmt.Errorf("rendering %s: %w", f.name, err)
		}
		*f.v = v
	}
	return info, nil
}

func (p *Package) relationList(field string, items []string) (deb.RelationList, error) {
	rendered, err := p.engine.renderAll(field, items)
	if err != nil {
		return nil, err
	}
	var l deb.RelationList
	for _, it := range rendered {
		a, err := deb.ParseAlternatives(it)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		l = append(l, a)
	}
	return l, nil
}

// permissionTable builds the permission overrides. A path listed twice is
// an error, even with identical permissions.
func (p *Package) permissionTable() (*deb.PermissionTable, error) {
	t := deb.NewPermissionTable()
	for i, perm := range p.Permissions {
		field := fmt.Sprintf("permissions[%d]", i)
		if perm.Mode == "" {
			return nil, fmt.Errorf("%s: mode is required", field)
		}
		modeStr, err := p.engine.render(field+".mode", perm.Mode)
		if err != nil {
			return nil, err
		}
		mode, err := strconv.ParseInt(modeStr, 8, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing mode %s: %w", modeStr, err)
		}
		user, err := p.owner(field+".user", perm.User, perm.UID)
		if err != nil {
			return nil, err
		}
		group, err := p.owner(field+".group", perm.Group, perm.GID)
		if err != nil {
			return nil, err
		}
		dp, err := deb.NewPermission(user, group, mode, perm.Recursive)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		if len(perm.Paths) == 0 {
			return nil, fmt.Errorf("%s: no paths", field)
		}
		paths, err := p.engine.renderAll(field+".paths", perm.Paths)
		if err != nil {
			return nil, err
		}
		for _, ps := range paths {
			ps = p.installPath(ps)
			if _, ok := t.Get(ps); ok {
				return nil, fmt.Errorf("%s: %s already has a permission", field, ps)
			}
			t.Put(ps, dp)
		}
	}
	return t, nil
}

// owner builds an owner from a name and an optional id. Neither means root.
func (p *Package) owner(field, name string, id *int) (deb.Owner, error) {
	name, err := p.engine.render(field, name)
	if err != nil {
		return deb.Owner{}, err
	}
	switch {
	case name != "" && id != nil:
		return deb.Owner{Name: name, ID: *id}, nil
	case name != "":
		return deb.NamedOwner(name), nil
	case id != nil:
		return deb.OwnerID(*id), nil
	}
	return deb.Root, nil
}

// maintainerScripts groups the scripts per type. A type with a single
// source script embeds it verbatim, any other combination goes through a
// ScriptRunner.
func (p *Package) maintainerScripts() ([]deb.InfoOption, error) {
	type loaded struct {
		name   string
		src    []byte
		source bool
		fail   bool
	}
	byType := make(map[deb.ControlFile][]loaded)

	for i, s := range p.Scripts {
		field := fmt.Sprintf("scripts[%d]", i)
		if (s.Command == "") == (s.Source == "") {
			return nil, fmt.Errorf("%s: exactly one of command or source is required", field)
		}
		if len(s.Types) == 0 {
			return nil, fmt.Errorf("%s: no types", field)
		}
		name := s.Name
		var src []byte
		if s.Command != "" {
			cmd, err := p.engine.render(field+".command", s.Command)
			if err != nil {
				return nil, err
			}
			if src, err = commandScript(cmd); err != nil {
				return nil, fmt.Errorf("%s: %w", field, err)
			}
			if name == "" {
				name = cmd
			}
		} else {
			source, err := p.engine.render(field+".source", s.Source)
			if err != nil {
				return nil, err
			}
			content, err := p.loadResource(source, s.Raw)
			if err != nil {
				return nil, err
			}
			src = []byte(content)
			if name == "" {
				name = path.Base(source)
			}
		}
		for _, ts := range s.Types {
			t, err := deb.ParseScriptType(ts)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", field, err)
			}
			byType[t] = append(byType[t], loaded{name: name, src: src, source: s.Source != "", fail: s.failOnError()})
		}
	}

	var opts []deb.InfoOption
	for _, t := range deb.ScriptTypes {
		scripts := byType[t]
		switch {
		case len(scripts) == 0:
			continue
		case len(scripts) == 1 && scripts[0].source:
			opts = append(opts, deb.WithScript(t, deb.ScriptFromBytes(scripts[0].src)))
		default:
			r, err := NewScriptRunner(t)
			if err != nil {
				return nil, err
			}
			for _, s := range scripts {
				r.Add(s.name, s.src, s.fail)
			}
			ms, err := r.Script()
			if err != nil {
				return nil, fmt.Errorf("%s runner: %w", t, err)
			}
			opts = append(opts, deb.WithScript(t, ms))
		}
	}
	return opts, nil
}

// DestrootDir returns the rendered and resolved destroot directory.
func (p *Package) DestrootDir() (string, error) {
	if p.Destroot == "" {
		return "", fmt.Errorf("package definition %s must specify 'destroot'", p.filePath)
	}
	d, err := p.engine.render("destroot", p.Destroot)
	if err != nil {
		return "", fmt.Errorf("rendering destroot: %w", err)
	}
	return p.resolve(d), nil
}

// Build assembles the package into outDir and returns the result.
func (p *Package) Build(outDir string, opts ...deb.Option) (*deb.PackageInfo, *deb.Result, error) {
	info, err := p.PackageInfo()
	if err != nil {
		return nil, nil, err
	}
	destroot, err := p.DestrootDir()
	if err != nil {
		return nil, nil, err
	}
	filename := info.StandardFilename()
	if p.Filename != "" {
		if filename, err = p.engine.render("filename", p.Filename); err != nil {
			return nil, nil, fmt.Errorf("rendering filename: %w", err)
		}
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, nil, err
	}
	res, err := deb.NewAssembler(info, destroot, opts...).WriteFile(filepath.Join(outDir, filename))
	if err != nil {
		return nil, nil, err
	}
	return info, res, nil
}
