package deb

import (
	"regexp"
	"slices"
	"strings"
)

var (
	namePattern    = regexp.MustCompile(`^[a-z0-9][a-z0-9+.-]+$`)
	sectionPattern = regexp.MustCompile(`^([a-z0-9][a-z0-9-]*/)?[a-z0-9][a-z0-9+.-]*$`)
	archPattern    = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
)

// Name is a validated binary package name.
//
// Package names must consist only of lower case letters (a-z), digits
// (0-9), plus (+) and minus (-) signs, and periods (.). They must be at
// least two characters long and must start with an alphanumeric character.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#s-f-package
type Name struct{ value string }

// NewName validates s as a package name.
func NewName(s string) (Name, error) {
	if !namePattern.MatchString(s) {
		return Name{}, invalid(FieldPackage, s, "must be at least two characters of [a-z0-9+.-] starting with a letter or digit")
	}
	return Name{value: s}, nil
}

func (n Name) String() string { return n.value }

// Section classifies the package, optionally under an archive area ("non-free/utils").
//
// Reference: https://www.debian.org/doc/debian-policy/ch-archive.html#s-subsections
type Section struct{ value string }

// NewSection validates s as a section.
func NewSection(s string) (Section, error) {
	if !sectionPattern.MatchString(s) {
		return Section{}, invalid(FieldSection, s, "must be a single lower case token")
	}
	return Section{value: s}, nil
}

func (s Section) String() string { return s.value }

// IsZero reports whether the section is unset.
func (s Section) IsZero() bool { return s.value == "" }

// Priority represents the importance of a package.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-archive.html#s-priorities
type Priority string

const (
	PriorityRequired  Priority = "required"
	PriorityImportant Priority = "important"
	PriorityStandard  Priority = "standard"
	PriorityOptional  Priority = "optional"
	// PriorityExtra is deprecated by policy in favor of optional, but dpkg still accepts it.
	PriorityExtra Priority = "extra"
)

var priorities = []Priority{PriorityRequired, PriorityImportant, PriorityStandard, PriorityOptional, PriorityExtra}

// ParsePriority validates s as a priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(s))
	if !slices.Contains(priorities, p) {
		return "", invalid(FieldPriority, s, "must be one of required, important, standard, optional, extra")
	}
	return p, nil
}

// knownArchitectures lists the special architecture names and the
// architectures reported by dpkg-architecture -L.
var knownArchitectures = []string{
	"any", "all", "source",
	"alpha", "amd64", "arc", "arm", "arm64", "armeb", "armel", "armhf",
	"hppa", "hurd-i386", "hurd-amd64", "i386", "ia64",
	"kfreebsd-amd64", "kfreebsd-i386", "loong64", "m32r", "m68k",
	"mips", "mips64", "mips64el", "mipsel", "mipsr6", "mipsr6el",
	"powerpc", "powerpcspe", "ppc64", "ppc64el", "riscv64",
	"s390", "s390x", "sh3", "sh3eb", "sh4", "sh4eb", "sparc", "sparc64", "x32",
	"darwin-amd64", "darwin-arm64", "darwin-i386", "darwin-powerpc",
}

// Architecture is the hardware architecture the package is built for.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#s-f-architecture
type Architecture struct {
	value string
	known bool
}

// NewArchitecture validates s as an architecture. In strict mode s must be
// a known architecture; otherwise any well formed token is accepted.
func NewArchitecture(s string, strict bool) (Architecture, error) {
	if !archPattern.MatchString(s) {
		return Architecture{}, invalid(FieldArchitecture, s, "must be a lower case token")
	}
	known := slices.Contains(knownArchitectures, s)
	if strict && !known {
		return Architecture{}, invalid(FieldArchitecture, s, "unknown architecture")
	}
	return Architecture{value: s, known: known}, nil
}

func (a Architecture) String() string { return a.value }

// Known reports whether the architecture is in the list of known architectures.
func (a Architecture) Known() bool { return a.known }

// KnownArchitectures returns the architecture names accepted in strict mode.
func KnownArchitectures() []string {
	return slices.Clone(knownArchitectures)
}
