package deb

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	upstreamPattern = regexp.MustCompile(`^[0-9][A-Za-z0-9.+~]*$`)
	revisionPattern = regexp.MustCompile(`^[A-Za-z0-9.+~]+$`)
)

// Version is a validated package version: [epoch:]upstream[-revision].
//
// The upstream part must start with a digit. Neither it nor the revision
// may contain ":" or "-", so both separators are unambiguous.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#s-f-version
type Version struct {
	epoch    int
	upstream string
	revision string
}

// NewVersion validates an upstream version without revision or epoch.
func NewVersion(upstream string) (Version, error) {
	return NewFullVersion(upstream, "", 0)
}

// NewFullVersion validates all three parts. An empty revision and a zero
// epoch are omitted from the rendered version.
func NewFullVersion(upstream, revision string, epoch int) (Version, error) {
	full := formatVersion(upstream, revision, epoch)
	if !upstreamPattern.MatchString(upstream) {
		return Version{}, invalid(FieldVersion, full, "upstream version must start with a digit and contain only [A-Za-z0-9.+~]")
	}
	if revision != "" && !revisionPattern.MatchString(revision) {
		return Version{}, invalid(FieldVersion, full, "revision must contain only [A-Za-z0-9.+~]")
	}
	if epoch < 0 {
		return Version{}, invalid(FieldVersion, full, "epoch must not be negative")
	}
	return Version{epoch: epoch, upstream: upstream, revision: revision}, nil
}

// ParseVersion parses a rendered version such as "2:1.1-45~5".
func ParseVersion(s string) (Version, error) {
	rest := s
	epoch := 0
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		e, err := strconv.Atoi(rest[:i])
		if err != nil || rest[:i] == "" || strings.ContainsAny(rest[:i], "+-") {
			return Version{}, invalid(FieldVersion, s, "epoch must be a non-negative integer")
		}
		epoch = e
		rest = rest[i+1:]
	}
	revision := ""
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		revision = rest[i+1:]
		rest = rest[:i]
		if revision == "" {
			return Version{}, invalid(FieldVersion, s, "empty revision")
		}
	}
	return NewFullVersion(rest, revision, epoch)
}

func formatVersion(upstream, revision string, epoch int) string {
	var b strings.Builder
	if epoch != 0 {
		b.WriteString(strconv.Itoa(epoch))
		b.WriteByte(':')
	}
	b.WriteString(upstream)
	if revision != "" {
		b.WriteByte('-')
		b.WriteString(revision)
	}
	return b.String()
}

func (v Version) String() string {
	return formatVersion(v.upstream, v.revision, v.epoch)
}

// Epoch returns the epoch, 0 when unset.
func (v Version) Epoch() int { return v.epoch }

// Upstream returns the upstream part of the version.
func (v Version) Upstream() string { return v.upstream }

// Revision returns the debian revision, "" when unset.
func (v Version) Revision() string { return v.revision }

// IsZero reports whether v is the zero Version.
func (v Version) IsZero() bool { return v.upstream == "" }
