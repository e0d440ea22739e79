package deb

import "strings"

// NormalizePath resolves a destroot or permission path to its canonical form.
//
// It performs the following transformations:
//   - Collapses consecutive slashes: "/test//" → "/test"
//   - Drops "." segments: "./foo/bar.txt" → "foo/bar.txt"
//   - Resolves ".." against the previous segment: "/usr/tmp/../foo" → "/usr/foo"
//   - Clamps ".." above the root to the root: "../../foo" → "/foo"
//   - Strips the trailing slash, except for the root itself: "/" → "/"
//
// Relative inputs stay relative unless a ".." escapes them, in which case
// the result is rooted so the traversal is visible to the caller.
// NormalizePath is idempotent.
func NormalizePath(p string) string {
	n, _ := ResolvePath(p)
	return n
}

// ResolvePath is NormalizePath, also reporting whether a ".." segment
// tried to climb above the root. Callers log such paths: the traversal is
// resolved, not rejected.
func ResolvePath(p string) (string, bool) {
	absolute := strings.HasPrefix(p, "/")
	escaped := false

	segments := strings.Split(p, "/")
	kept := segments[:0]
	for _, s := range segments {
		switch s {
		case "", ".":
		case "..":
			if len(kept) == 0 {
				escaped = true
				continue
			}
			kept = kept[:len(kept)-1]
		default:
			kept = append(kept, s)
		}
	}

	joined := strings.Join(kept, "/")
	if absolute || escaped {
		return "/" + joined, escaped
	}
	return joined, false
}

// StripLeadingSeparators removes every leading "/" from p.
// Archive entry names never begin with a separator.
func StripLeadingSeparators(p string) string {
	return strings.TrimLeft(p, "/")
}

// entryPath is the archive-relative form of p: normalized, then stripped.
func entryPath(p string) string {
	return StripLeadingSeparators(NormalizePath(p))
}
