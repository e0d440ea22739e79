package deb

import (
	"regexp"
	"strings"
)

// Relation is the version comparison of a dependency.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-relationships.html#syntax-of-relationship-fields
type Relation string

const (
	RelationEarlier        Relation = "<<"
	RelationEarlierOrEqual Relation = "<="
	RelationEqual          Relation = "="
	RelationLaterOrEqual   Relation = ">="
	RelationLater          Relation = ">>"
)

func (r Relation) valid() bool {
	switch r {
	case RelationEarlier, RelationEarlierOrEqual, RelationEqual, RelationLaterOrEqual, RelationLater:
		return true
	}
	return false
}

// Dependency names are checked more loosely than package names: they may
// carry an architecture qualifier and underscores appear in the wild.
var (
	dependencyNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9+._-]*(:[a-z0-9-]+)?$`)
	dependencyPattern     = regexp.MustCompile(`^([^\s(]+)\s*(?:\(\s*(<<|<=|=|>=|>>)\s*([^\s)]+)\s*\))?$`)
)

// Dependency names a package, optionally constrained to a version range.
type Dependency struct {
	name     string
	relation Relation
	version  Version
}

// NewDependency returns an unversioned dependency on name.
func NewDependency(name string) (Dependency, error) {
	if !dependencyNamePattern.MatchString(name) {
		return Dependency{}, invalid(FieldDepends, name, "invalid package name")
	}
	return Dependency{name: name}, nil
}

// NewVersionedDependency returns a dependency on name restricted by rel and version.
func NewVersionedDependency(name string, rel Relation, version string) (Dependency, error) {
	d, err := NewDependency(name)
	if err != nil {
		return Dependency{}, err
	}
	if !rel.valid() {
		return Dependency{}, invalid(FieldDepends, string(rel), "relation must be one of <<, <=, =, >=, >>")
	}
	v, err := ParseVersion(version)
	if err != nil {
		return Dependency{}, err
	}
	d.relation = rel
	d.version = v
	return d, nil
}

// ParseDependency parses "name" or "name (rel version)".
func ParseDependency(s string) (Dependency, error) {
	m := dependencyPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Dependency{}, invalid(FieldDepends, s, "expected \"name\" or \"name (rel version)\"")
	}
	if m[2] == "" {
		return NewDependency(m[1])
	}
	return NewVersionedDependency(m[1], Relation(m[2]), m[3])
}

// Name returns the package the dependency refers to.
func (d Dependency) Name() string { return d.name }

// Relation returns the version relation, "" for unversioned dependencies.
func (d Dependency) Relation() Relation { return d.relation }

// Version returns the version bound; it is zero for unversioned dependencies.
func (d Dependency) Version() Version { return d.version }

func (d Dependency) String() string {
	if d.relation == "" {
		return d.name
	}
	return d.name + " (" + string(d.relation) + " " + d.version.String() + ")"
}

// Alternatives is a group of dependencies any one of which satisfies the relationship.
type Alternatives struct {
	deps []Dependency
}

// NewAlternatives groups deps. At least one dependency is required.
func NewAlternatives(deps ...Dependency) (Alternatives, error) {
	if len(deps) == 0 {
		return Alternatives{}, invalid(FieldDepends, "", "alternatives must not be empty")
	}
	return Alternatives{deps: append([]Dependency(nil), deps...)}, nil
}

// ParseAlternatives parses "a (>= 1) | b".
func ParseAlternatives(s string) (Alternatives, error) {
	var deps []Dependency
	for _, part := range strings.Split(s, "|") {
		d, err := ParseDependency(part)
		if err != nil {
			return Alternatives{}, err
		}
		deps = append(deps, d)
	}
	return NewAlternatives(deps...)
}

// Dependencies returns a copy of the grouped dependencies.
func (a Alternatives) Dependencies() []Dependency {
	return append([]Dependency(nil), a.deps...)
}

func (a Alternatives) String() string {
	parts := make([]string, len(a.deps))
	for i, d := range a.deps {
		parts[i] = d.String()
	}
	return strings.Join(parts, " | ")
}

// RelationList is the value of a relationship field such as Depends.
type RelationList []Alternatives

// ParseRelationList parses a comma separated relationship field value.
func ParseRelationList(s string) (RelationList, error) {
	var list RelationList
	for _, item := range splitList(s) {
		a, err := ParseAlternatives(item)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, nil
}

func (l RelationList) String() string {
	parts := make([]string, len(l))
	for i, a := range l {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}
