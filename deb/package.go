package deb

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// PackageInfo is the validated metadata of a binary package: the control
// fields, the permission overrides of its payload and its maintainer
// scripts. It is immutable once built by NewPackageInfo.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#binary-package-control-files-debian-control
type PackageInfo struct {
	name        Name
	version     Version
	arch        Architecture
	maintainer  Maintainer
	description Description

	section  Section
	priority Priority

	// Reference: https://www.debian.org/doc/debian-policy/ch-relationships.html
	depends   RelationList
	conflicts RelationList
	replaces  RelationList

	permissions  *PermissionTable
	scripts      map[ControlFile]MaintainerScript
	conffiles    []string
	controlFiles map[string][]byte
}

// InfoOption sets an optional part of a PackageInfo.
type InfoOption func(*PackageInfo) error

// NewPackageInfo assembles the mandatory control fields and applies opts.
// Every argument must come from its validating constructor.
func NewPackageInfo(name Name, version Version, arch Architecture, maintainer Maintainer, description Description, opts ...InfoOption) (*PackageInfo, error) {
	switch {
	case name.value == "":
		return nil, invalid(FieldPackage, "", "missing")
	case version.IsZero():
		return nil, invalid(FieldVersion, "", "missing")
	case arch.value == "":
		return nil, invalid(FieldArchitecture, "", "missing")
	case maintainer.email == "":
		return nil, invalid(FieldMaintainer, "", "missing")
	case description.summary == "":
		return nil, invalid(FieldDescription, "", "missing")
	}
	p := &PackageInfo{
		name:         name,
		version:      version,
		arch:         arch,
		maintainer:   maintainer,
		description:  description,
		scripts:      make(map[ControlFile]MaintainerScript),
		controlFiles: make(map[string][]byte),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.permissions == nil {
		p.permissions = NewPermissionTable()
	}
	return p, nil
}

// WithSection sets the Section field.
func WithSection(s Section) InfoOption {
	return func(p *PackageInfo) error {
		p.section = s
		return nil
	}
}

// WithPriority sets the Priority field.
func WithPriority(pr Priority) InfoOption {
	return func(p *PackageInfo) error {
		if pr != "" {
			if _, err := ParsePriority(string(pr)); err != nil {
				return err
			}
		}
		p.priority = pr
		return nil
	}
}

// WithDepends sets the Depends field.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-relationships.html#s-binarydeps
func WithDepends(l RelationList) InfoOption {
	return func(p *PackageInfo) error {
		p.depends = slices.Clone(l)
		return nil
	}
}

// WithConflicts sets the Conflicts field.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-relationships.html#s-conflicts
func WithConflicts(l RelationList) InfoOption {
	return func(p *PackageInfo) error {
		p.conflicts = slices.Clone(l)
		return nil
	}
}

// WithReplaces sets the Replaces field.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-relationships.html#s-replaces
func WithReplaces(l RelationList) InfoOption {
	return func(p *PackageInfo) error {
		p.replaces = slices.Clone(l)
		return nil
	}
}

// WithPermissions sets the permission overrides applied to the destroot.
// The table is copied, later changes to t do not affect the package.
func WithPermissions(t *PermissionTable) InfoOption {
	return func(p *PackageInfo) error {
		if t != nil {
			p.permissions = t.Clone()
		}
		return nil
	}
}

// WithScript sets the maintainer script of type t, one of preinst,
// postinst, prerm, postrm or config.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-maintainerscripts.html
func WithScript(t ControlFile, s MaintainerScript) InfoOption {
	return func(p *PackageInfo) error {
		if !slices.Contains(ScriptTypes, t) {
			return fmt.Errorf("unknown maintainer script type %q", t)
		}
		if s.Open == nil {
			return fmt.Errorf("maintainer script %s has no source", t)
		}
		p.scripts[t] = s
		return nil
	}
}

// WithConffiles marks installed paths as configuration files. Each must be a
// regular file of the destroot.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-files.html#s-config-files
func WithConffiles(paths ...string) InfoOption {
	return func(p *PackageInfo) error {
		for _, c := range paths {
			n := NormalizePath("/" + c)
			if n == "/" {
				return fmt.Errorf("invalid conffile %q", c)
			}
			if !slices.Contains(p.conffiles, n) {
				p.conffiles = append(p.conffiles, n)
			}
		}
		return nil
	}
}

// WithControlFile adds an auxiliary control file such as triggers or shlibs.
// Names handled by the control bundle itself are rejected.
func WithControlFile(name string, data []byte) InfoOption {
	return func(p *PackageInfo) error {
		if name == "" || strings.ContainsAny(name, "/ \t\n") || strings.HasPrefix(name, ".") {
			return fmt.Errorf("invalid control file name %q", name)
		}
		if ControlFile(name).reserved() {
			return fmt.Errorf("control file %q is generated and cannot be supplied", name)
		}
		p.controlFiles[name] = bytes.Clone(data)
		return nil
	}
}

func (p *PackageInfo) Name() Name { return p.name }
func (p *PackageInfo) Version() Version { return p.version }
func (p *PackageInfo) Architecture() Architecture { return p.arch }
func (p *PackageInfo) Maintainer() Maintainer { return p.maintainer }
func (p *PackageInfo) Description() Description { return p.description }
func (p *PackageInfo) Section() Section { return p.section }
func (p *PackageInfo) Priority() Priority { return p.priority }
func (p *PackageInfo) Depends() RelationList { return slices.Clone(p.depends) }
func (p *PackageInfo) Conflicts() RelationList { return slices.Clone(p.conflicts) }
func (p *PackageInfo) Replaces() RelationList { return slices.Clone(p.replaces) }
func (p *PackageInfo) Conffiles() []string { return slices.Clone(p.conffiles) }

// Permissions returns a copy of the permission overrides.
func (p *PackageInfo) Permissions() *PermissionTable { return p.permissions.Clone() }

// Script returns the maintainer script of type t.
func (p *PackageInfo) Script(t ControlFile) (MaintainerScript, bool) {
	s, ok := p.scripts[t]
	return s, ok
}

// ControlFiles returns the names of the auxiliary control files, sorted.
func (p *PackageInfo) ControlFiles() []string {
	names := make([]string, 0, len(p.controlFiles))
	for name := range p.controlFiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// StandardFilename returns the canonical filename for the package.
// Format: {Package}_{Version}_{Architecture}.deb, without the epoch.
//
// Reference: https://www.debian.org/doc/manuals/debian-faq/ch-pkg_basics.en.html#s-pkgname
func (p *PackageInfo) StandardFilename() string {
	return StandardFilename(p.name.String(), p.version.String(), p.arch.String())
}

// StandardFilename formats {name}_{version}_{arch}.deb, dropping a version epoch.
func StandardFilename(name, version, arch string) string {
	if i := strings.IndexByte(version, ':'); i >= 0 {
		version = version[i+1:]
	}
	return fmt.Sprintf("%s_%s_%s.deb", name, version, arch)
}

// ScriptTypes lists the maintainer scripts in the order they are written to
// the control tarball.
var ScriptTypes = []ControlFile{FilePreinst, FilePostinst, FilePrerm, FilePostrm, FileConfig}

// ParseScriptType maps a script file name such as "postinst" to its type.
func ParseScriptType(s string) (ControlFile, error) {
	t := ControlFile(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(ScriptTypes, t) {
		return "", fmt.Errorf("unknown maintainer script type %q", s)
	}
	return t, nil
}

// MaintainerScript is the source of a maintainer script, embedded verbatim.
type MaintainerScript struct {
	// Size is the exact number of bytes Open yields.
	Size int64
	// Open returns a fresh reader on the script content.
	Open func() (io.ReadCloser, error)
}

// ScriptFromBytes returns a script with the given content.
func ScriptFromBytes(b []byte) MaintainerScript {
	b = bytes.Clone(b)
	return MaintainerScript{
		Size: int64(len(b)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		},
	}
}

// ScriptFromFile returns a script read from path when the package is assembled.
func ScriptFromFile(path string) (MaintainerScript, error) {
	info, err := os.Stat(path)
	if err != nil {
		return MaintainerScript{}, err
	}
	if !info.Mode().IsRegular() {
		return MaintainerScript{}, fmt.Errorf("maintainer script %s is not a regular file", path)
	}
	return MaintainerScript{
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}
