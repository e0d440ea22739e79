package deb

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression selects the filter applied to the control and data tarballs.
//
// Reference: https://manpages.debian.org/unstable/dpkg-dev/deb.5.en.html
type Compression int

const (
	CompressionGzip Compression = iota
	CompressionNone
	CompressionXz
	CompressionZstd
)

// ParseCompression maps a name ("gzip", "gz", "none", "xz", "zstd", "zst") to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "gzip", "gz":
		return CompressionGzip, nil
	case "none":
		return CompressionNone, nil
	case "xz":
		return CompressionXz, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	}
	return 0, fmt.Errorf("unknown compression %q", s)
}

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionNone:
		return "none"
	case CompressionXz:
		return "xz"
	case CompressionZstd:
		return "zstd"
	}
	return fmt.Sprintf("Compression(%d)", int(c))
}

// Extension returns the file name suffix of the compressed tarball, such as ".gz".
func (c Compression) Extension() string {
	switch c {
	case CompressionGzip:
		return ".gz"
	case CompressionXz:
		return ".xz"
	case CompressionZstd:
		return ".zst"
	}
	return ""
}

// compressionForMember infers the compression from an ar member name such as data.tar.xz.
func compressionForMember(name string) (Compression, error) {
	switch {
	case strings.HasSuffix(name, ".tar"):
		return CompressionNone, nil
	case strings.HasSuffix(name, ".gz"):
		return CompressionGzip, nil
	case strings.HasSuffix(name, ".xz"):
		return CompressionXz, nil
	case strings.HasSuffix(name, ".zst"):
		return CompressionZstd, nil
	}
	return 0, fmt.Errorf("unsupported member compression: %s", name)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewWriter wraps w with the compressor. Closing the result flushes it
// without closing w.
func (c Compression) NewWriter(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CompressionGzip:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionXz:
		return xz.NewWriter(w)
	case CompressionZstd:
		return zstd.NewWriter(w)
	}
	return nil, fmt.Errorf("unsupported compression: %s", c)
}

// NewReader wraps r with the matching decompressor.
func (c Compression) NewReader(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case CompressionGzip:
		return gzip.NewReader(r)
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	}
	return nil, fmt.Errorf("unsupported compression: %s", c)
}
