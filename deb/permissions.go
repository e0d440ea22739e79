package deb

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Owner identifies a user or a group in a tar header.
// dpkg looks the name up first and falls back to the numeric id.
type Owner struct {
	Name string
	ID   int
}

// Root is the owner and group of every entry without a permission override.
var Root = Owner{Name: "root", ID: 0}

// NamedOwner returns an owner known by name only. Its numeric id is 0.
func NamedOwner(name string) Owner {
	return Owner{Name: name}
}

// OwnerID returns an owner known by numeric id only.
func OwnerID(id int) Owner {
	return Owner{ID: id}
}

func (o Owner) String() string {
	if o.Name == "" {
		return strconv.Itoa(o.ID)
	}
	return fmt.Sprintf("%s(%d)", o.Name, o.ID)
}

// Permission overrides the ownership and mode of a destroot path. A
// recursive permission also applies to every path below it.
type Permission struct {
	User      Owner
	Group     Owner
	Mode      int64
	Recursive bool
}

// NewPermission validates mode and returns the permission.
func NewPermission(user, group Owner, mode int64, recursive bool) (Permission, error) {
	if mode < 0 || mode > 07777 {
		return Permission{}, fmt.Errorf("%w: %#o", ErrInvalidMode, mode)
	}
	if user.ID < 0 || group.ID < 0 {
		return Permission{}, fmt.Errorf("negative owner id: user %s, group %s", user, group)
	}
	return Permission{User: user, Group: group, Mode: mode, Recursive: recursive}, nil
}

// DefaultPermission is the root-owned permission used when no rule matches.
func DefaultPermission(isDir bool) Permission {
	mode := StandardFileMode
	if isDir {
		mode = StandardDirMode
	}
	return Permission{User: Root, Group: Root, Mode: mode}
}

func (p Permission) String() string {
	s := fmt.Sprintf("%s:%s %04o", p.User, p.Group, p.Mode)
	if p.Recursive {
		s += " recursive"
	}
	return s
}

// PermissionTable maps destroot paths to permission overrides.
//
// Keys are normalized with leading separators stripped, so "//usr/lib//"
// and "/usr/lib" name the same entry. Inserting at an existing key replaces
// the previous permission.
type PermissionTable struct {
	entries    map[string]Permission
	traversals []Traversal
	logger     *log.Logger
}

// Traversal records a stored path whose ".." segments climbed above the root.
type Traversal struct {
	Path     string
	Resolved string
}

// NewPermissionTable returns an empty table. Only WithLogger is consulted.
func NewPermissionTable(opts ...Option) *PermissionTable {
	o := newOptions(opts)
	return &PermissionTable{
		entries: make(map[string]Permission),
		logger:  o.logger,
	}
}

func (t *PermissionTable) key(path string) string {
	return StripLeadingSeparators(NormalizePath(path))
}

// Put stores p for path, replacing any previous entry at the same path.
// A path escaping the root is stored at its resolved form and recorded in
// Traversals.
func (t *PermissionTable) Put(path string, p Permission) {
	n, escaped := ResolvePath(path)
	if escaped {
		t.traversals = append(t.traversals, Traversal{Path: path, Resolved: n})
		t.logger.Warn("path traversal resolved", "path", path, "resolved", n)
	}
	k := StripLeadingSeparators(n)
	if old, ok := t.entries[k]; ok {
		t.logger.Debug("permission replaced", "path", "/"+k, "old", old, "new", p)
	}
	t.entries[k] = p
}

// Get returns the entry stored at exactly path.
func (t *PermissionTable) Get(path string) (Permission, bool) {
	p, ok := t.entries[t.key(path)]
	return p, ok
}

// Len returns the number of entries.
func (t *PermissionTable) Len() int {
	return len(t.entries)
}

// Traversals returns the paths passed to Put that escaped the root, in call order.
func (t *PermissionTable) Traversals() []Traversal {
	return slices.Clone(t.traversals)
}

// Clone returns an independent copy of the table.
func (t *PermissionTable) Clone() *PermissionTable {
	return &PermissionTable{
		entries:    maps.Clone(t.entries),
		traversals: slices.Clone(t.traversals),
		logger:     t.logger,
	}
}

// Paths returns the stored paths, rooted and sorted.
func (t *PermissionTable) Paths() []string {
	paths := make([]string, 0, len(t.entries))
	for k := range t.entries {
		paths = append(paths, "/"+k)
	}
	slices.Sort(paths)
	return paths
}

// Resolve returns the effective permission of path.
//
// The candidates are the entry at exactly path and every recursive entry at
// one of its ancestors, the root included. No candidate yields
// DefaultPermission(isDir). Several candidates are a configuration defect
// and yield a *ConflictError: rules are never ranked by specificity.
func (t *PermissionTable) Resolve(path string, isDir bool) (Permission, error) {
	k := t.key(path)

	var rules []string
	var found Permission
	match := func(at string, p Permission) {
		rules = append(rules, "/"+at)
		found = p
	}

	if p, ok := t.entries[k]; ok {
		match(k, p)
	}
	if k != "" {
		for _, ancestor := range ancestors(k) {
			if p, ok := t.entries[ancestor]; ok && p.Recursive {
				match(ancestor, p)
			}
		}
	}

	switch len(rules) {
	case 0:
		return DefaultPermission(isDir), nil
	case 1:
		return found, nil
	default:
		return Permission{}, &ConflictError{Path: "/" + k, Rules: rules}
	}
}

// ancestors lists the stripped ancestors of a stripped, non-root key,
// nearest first, ending with the root "".
func ancestors(k string) []string {
	var out []string
	for {
		i := strings.LastIndexByte(k, '/')
		if i < 0 {
			return append(out, "")
		}
		k = k[:i]
		out = append(out, k)
	}
}
