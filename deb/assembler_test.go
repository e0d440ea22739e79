package deb

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pinned = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sampleDestroot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"directory/file.txt": "hello\n",
		"file.txt":           "x",
	})
	return root
}

func assemble(t *testing.T, info *PackageInfo, root string, opts ...Option) ([]byte, *Result) {
	t.Helper()
	var buf bytes.Buffer
	a := NewAssembler(info, root, opts...)
	res, err := a.Assemble(&buf)
	require.NoError(t, err)
	assert.Equal(t, StateDone, a.State())
	return buf.Bytes(), res
}

func TestAssembleRoundTrip(t *testing.T) {
	root := sampleDestroot(t)
	info := newTestInfo(t, WithScript(FilePostinst, ScriptFromBytes([]byte("#!/bin/sh\n"))))
	data, res := assemble(t, info, root, WithModTime(pinned))

	assert.Equal(t, int64(len(data)), res.Size)
	assert.Equal(t, digest.FromBytes(data), res.Digest)
	assert.Equal(t, int64(1), res.InstalledSize)
	assert.Equal(t, 2, res.Checksums.Len())

	c, err := ReadPackage(bytes.NewReader(data))
	require.NoError(t, err)

	var members []string
	for _, m := range c.Members {
		members = append(members, m.Name)
		assert.True(t, m.ModTime.Equal(pinned), m.Name)
	}
	assert.Equal(t, []string{"debian-binary", "control.tar.gz", "data.tar.gz"}, members)

	bin, ok := c.Member("debian-binary")
	require.True(t, ok)
	assert.Equal(t, "2.0\n", string(bin.Data))

	assert.Equal(t, "testpkg\t1.1\n", c.ShowFormat())
	assert.Equal(t, "1", c.Fields.Get(FieldInstalledSize))
	assert.Equal(t, "otherpkg", c.Fields.Get(FieldDepends))
	assert.Equal(t, "#!/bin/sh\n", string(c.Scripts[FilePostinst]))

	sum, ok := c.Checksums.Lookup("directory/file.txt")
	require.True(t, ok)
	assert.Equal(t, md5Hex("hello\n"), sum)

	assert.Equal(t, []string{"directory/", "directory/file.txt", "file.txt"}, names(c.DataEntries))
	assert.Equal(t, []string{"control", "md5sums", "postinst"}, names(c.ControlEntries))
}

func TestAssembleReproducible(t *testing.T) {
	root := sampleDestroot(t)
	info := newTestInfo(t)

	first, res1 := assemble(t, info, root, WithModTime(pinned))
	second, res2 := assemble(t, info, root, WithModTime(pinned), WithWorkers(4))
	assert.Equal(t, first, second)
	assert.Equal(t, res1.Digest, res2.Digest)
}

func TestAssembleCompression(t *testing.T) {
	root := sampleDestroot(t)
	tests := map[Compression]string{
		CompressionNone: "data.tar",
		CompressionXz:   "data.tar.xz",
		CompressionZstd: "data.tar.zst",
	}
	for c, member := range tests {
		t.Run(c.String(), func(t *testing.T) {
			data, _ := assemble(t, newTestInfo(t), root, WithCompression(c))
			contents, err := ReadPackage(bytes.NewReader(data))
			require.NoError(t, err)
			_, ok := contents.Member(member)
			assert.True(t, ok, "missing %s", member)
			assert.Len(t, contents.DataEntries, 3)
		})
	}
}

func TestAssembleEmptyDestroot(t *testing.T) {
	data, res := assemble(t, newTestInfo(t), t.TempDir())
	assert.Equal(t, int64(0), res.InstalledSize)

	c, err := ReadPackage(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Empty(t, c.DataEntries)
	assert.Equal(t, "0", c.Fields.Get(FieldInstalledSize))
}

func TestAssemblerSingleUse(t *testing.T) {
	a := NewAssembler(newTestInfo(t), sampleDestroot(t))
	assert.Equal(t, StateInit, a.State())

	var buf bytes.Buffer
	_, err := a.Assemble(&buf)
	require.NoError(t, err)

	_, err = a.Assemble(&buf)
	assert.ErrorIs(t, err, ErrAssemblerUsed)
	_, err = a.WriteFile(filepath.Join(t.TempDir(), "out.deb"))
	assert.ErrorIs(t, err, ErrAssemblerUsed)
	assert.Equal(t, StateDone, a.State())
}

func TestAssembleFailureCleansUp(t *testing.T) {
	root := sampleDestroot(t)
	perms := NewPermissionTable()
	p, err := NewPermission(Root, Root, 0755, true)
	require.NoError(t, err)
	perms.Put("/directory", p)
	perms.Put("/", p)

	staging := t.TempDir()
	a := NewAssembler(newTestInfo(t, WithPermissions(perms)), root, WithTempDir(staging))

	var buf bytes.Buffer
	_, err = a.Assemble(&buf)
	require.ErrorIs(t, err, ErrConflictingPermissions)
	assert.Equal(t, StateFailed, a.State())
	assert.Zero(t, buf.Len())

	entries, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging files must be removed")
}

func TestAssembleCleansUpOnSuccess(t *testing.T) {
	staging := t.TempDir()
	assemble(t, newTestInfo(t), sampleDestroot(t), WithTempDir(staging))

	entries, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAssembleMissingDestroot(t *testing.T) {
	a := NewAssembler(newTestInfo(t), filepath.Join(t.TempDir(), "missing"))
	_, err := a.Assemble(&bytes.Buffer{})
	assert.Error(t, err)
	assert.Equal(t, StateFailed, a.State())
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "testpkg_1.1_i386.deb")

	res, err := NewAssembler(newTestInfo(t), sampleDestroot(t)).WriteFile(out)
	require.NoError(t, err)
	assert.Equal(t, out, res.Path)

	st, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, res.Size, st.Size())
	assert.Equal(t, os.FileMode(0644), st.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "broken.deb")

	huge := MaintainerScript{Size: MaxEntrySize + 1, Open: ScriptFromBytes(nil).Open}
	a := NewAssembler(newTestInfo(t, WithScript(FilePreinst, huge)), sampleDestroot(t))
	_, err := a.WriteFile(out)
	require.ErrorIs(t, err, ErrScriptTooLarge)
	assert.Equal(t, StateFailed, a.State())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAssembleLogsPathTraversal(t *testing.T) {
	table := NewPermissionTable()
	p, err := NewPermission(Root, Root, 0600, false)
	require.NoError(t, err)
	table.Put("../../file.txt", p)

	var logs bytes.Buffer
	info := newTestInfo(t, WithPermissions(table))
	data, _ := assemble(t, info, sampleDestroot(t), WithLogger(log.New(&logs)))

	assert.Contains(t, logs.String(), "path traversal resolved")
	assert.Contains(t, logs.String(), "../../file.txt")

	c, err := ReadPackage(bytes.NewReader(data))
	require.NoError(t, err)
	for _, h := range c.DataEntries {
		if h.Name == "file.txt" {
			assert.Equal(t, int64(0600), h.Mode)
		}
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "walking-data", StateWalkingData.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "State(42)", State(42).String())
}
