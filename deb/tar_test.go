package deb

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTarBuilderEntries(t *testing.T) {
	for _, c := range []Compression{CompressionGzip, CompressionNone, CompressionXz, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			tb, err := NewTarBuilder(&buf, c)
			require.NoError(t, err)

			mtime := time.Unix(1600000000, 0)
			require.NoError(t, tb.Add(TarEntry{
				Path:    "/usr/share/app",
				Kind:    KindDirectory,
				User:    NamedOwner("app"),
				Group:   OwnerID(1001),
				Mode:    0750,
				ModTime: mtime,
			}))
			require.NoError(t, tb.Add(TarEntry{
				Path:    "//usr/share/app/readme",
				Kind:    KindFile,
				User:    Root,
				Group:   Root,
				Mode:    0644,
				ModTime: mtime,
				Size:    5,
				Body:    strings.NewReader("hello"),
			}))
			require.NoError(t, tb.AddBuffer("control", []byte("x"), 0644, mtime))
			require.NoError(t, tb.Close())

			var headers []TarHeader
			var bodies []string
			err = readTar(&buf, c, func(h TarHeader, r io.Reader) error {
				b, err := io.ReadAll(r)
				headers = append(headers, h)
				bodies = append(bodies, string(b))
				return err
			})
			require.NoError(t, err)
			require.Len(t, headers, 3)

			assert.Equal(t, "usr/share/app/", headers[0].Name)
			assert.Equal(t, KindDirectory, headers[0].Kind)
			assert.Equal(t, int64(0750), headers[0].Mode)
			assert.Equal(t, "app", headers[0].Uname)
			assert.Equal(t, 0, headers[0].Uid)
			assert.Equal(t, "", headers[0].Gname)
			assert.Equal(t, 1001, headers[0].Gid)
			assert.Equal(t, int64(0), headers[0].Size)
			assert.True(t, mtime.Equal(headers[0].ModTime))

			assert.Equal(t, "usr/share/app/readme", headers[1].Name)
			assert.Equal(t, "root", headers[1].Uname)
			assert.Equal(t, "hello", bodies[1])

			assert.Equal(t, "control", headers[2].Name)
			assert.Equal(t, "x", bodies[2])
		})
	}
}

func TestTarBuilderShortBody(t *testing.T) {
	tb, err := NewTarBuilder(io.Discard, CompressionNone)
	require.NoError(t, err)
	err = tb.Add(TarEntry{Path: "f", Kind: KindFile, Mode: 0644, Size: 10, Body: strings.NewReader("abc")})
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestTarBuilderRejectsRoot(t *testing.T) {
	tb, err := NewTarBuilder(io.Discard, CompressionNone)
	require.NoError(t, err)
	assert.Error(t, tb.Add(TarEntry{Path: "/", Kind: KindDirectory, Mode: 0755}))
}

func TestParseCompression(t *testing.T) {
	tests := map[string]Compression{
		"":     CompressionGzip,
		"gz":   CompressionGzip,
		"GZIP": CompressionGzip,
		"none": CompressionNone,
		"xz":   CompressionXz,
		"zst":  CompressionZstd,
		"zstd": CompressionZstd,
	}
	for in, want := range tests {
		got, err := ParseCompression(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseCompression("bzip2")
	assert.Error(t, err)

	assert.Equal(t, ".gz", CompressionGzip.Extension())
	assert.Equal(t, ".zst", CompressionZstd.Extension())
	assert.Equal(t, "", CompressionNone.Extension())
}
