package deb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"traversal above relative root", "../../foo/bar.txt", "/foo/bar.txt"},
		{"traversal inside absolute", "/usr/tmp/../foo/bar.txt", "/usr/foo/bar.txt"},
		{"trailing double slash", "/test//", "/test"},
		{"leading double slash", "//file", "/file"},
		{"leading dot", "./foo/bar.txt", "foo/bar.txt"},
		{"triple dot is a name", "/usr/.../tmp/", "/usr/.../tmp"},
		{"root", "/", "/"},
		{"only slashes", "///", "/"},
		{"empty", "", ""},
		{"dot", ".", ""},
		{"relative", "usr/bin", "usr/bin"},
		{"traversal above absolute root", "/../etc", "/etc"},
		{"relative climbs to root", "a/../..", "/"},
		{"internal dots", "a/./b/./c", "a/b/c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.input))
		})
	}
}

func TestNormalizePathIdempotent(t *testing.T) {
	inputs := []string{
		"../../foo/bar.txt", "/usr/tmp/../foo/bar.txt", "/test//", "//file",
		"./foo/bar.txt", "/usr/.../tmp/", "/", "", "a/../..", "x/y/../../../z",
		"//root/nonexistent/path//",
	}
	for _, in := range inputs {
		once := NormalizePath(in)
		assert.Equal(t, once, NormalizePath(once), "input %q", in)
	}
}

func TestNormalizePathReportsEscape(t *testing.T) {
	_, escaped := ResolvePath("../../foo")
	assert.True(t, escaped)

	_, escaped = ResolvePath("/usr/tmp/../foo")
	assert.False(t, escaped)
}

func TestStripLeadingSeparators(t *testing.T) {
	assert.Equal(t, "root/dir", StripLeadingSeparators("///root/dir"))
	assert.Equal(t, "root/dir", StripLeadingSeparators("root/dir"))
	assert.Equal(t, "", StripLeadingSeparators("/"))
}
