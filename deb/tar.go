package deb

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// EntryKind distinguishes the tar entries a TarBuilder can emit.
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDirectory
)

func (k EntryKind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// TarEntry is one entry of a control or data tarball.
//
// Ownership, mode and modification time are taken from the entry as given,
// never from the filesystem the content came from.
type TarEntry struct {
	Path    string
	Kind    EntryKind
	User    Owner
	Group   Owner
	Mode    int64
	ModTime time.Time
	Size    int64
	Body    io.Reader
}

// TarBuilder writes a tar stream through an optional compressor.
// It is not safe for concurrent use.
type TarBuilder struct {
	tw     *tar.Writer
	cw     io.WriteCloser
	logger *log.Logger
	closed bool
}

// NewTarBuilder returns a builder writing a tarball compressed with c to w.
func NewTarBuilder(w io.Writer, c Compression, opts ...Option) (*TarBuilder, error) {
	o := newOptions(opts)
	cw, err := c.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("opening %s compressor: %w", c, err)
	}
	return &TarBuilder{tw: tar.NewWriter(cw), cw: cw, logger: o.logger}, nil
}

// tarName returns the entry name: no leading separator, and a trailing one for directories.
func tarName(p string, kind EntryKind) string {
	name := entryPath(p)
	if kind == KindDirectory {
		return name + "/"
	}
	return name
}

// Add writes one entry. Directories are written with size zero; files
// stream exactly e.Size bytes from e.Body.
func (b *TarBuilder) Add(e TarEntry) error {
	if b.closed {
		return fmt.Errorf("tar builder closed")
	}
	name := tarName(e.Path, e.Kind)
	if name == "" || name == "/" {
		return fmt.Errorf("empty tar entry name for %q", e.Path)
	}

	header := &tar.Header{
		Name:    name,
		Mode:    e.Mode,
		ModTime: e.ModTime,
		Uid:     e.User.ID,
		Gid:     e.Group.ID,
		Uname:   e.User.Name,
		Gname:   e.Group.Name,
	}
	switch e.Kind {
	case KindDirectory:
		header.Typeflag = tar.TypeDir
	default:
		header.Typeflag = tar.TypeReg
		header.Size = e.Size
	}

	if err := b.tw.WriteHeader(header); err != nil {
		return fmt.Errorf("writing tar header %s: %w", name, err)
	}
	if e.Kind == KindFile && e.Size > 0 {
		n, err := io.CopyN(b.tw, e.Body, e.Size)
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("writing tar entry %s (%d of %d bytes): %w", name, n, e.Size, err)
		}
	}
	b.logger.Debug("tar entry written", "name", name, "kind", e.Kind, "mode", fmt.Sprintf("%04o", e.Mode), "user", e.User, "group", e.Group, "size", header.Size)
	return nil
}

// AddBuffer writes data as a root-owned regular file.
func (b *TarBuilder) AddBuffer(name string, data []byte, mode int64, modTime time.Time) error {
	return b.Add(TarEntry{
		Path:    name,
		Kind:    KindFile,
		User:    Root,
		Group:   Root,
		Mode:    mode,
		ModTime: modTime,
		Size:    int64(len(data)),
		Body:    bytes.NewReader(data),
	})
}

// Close writes the tar trailer and flushes the compressor. The underlying
// writer is not closed.
func (b *TarBuilder) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.tw.Close(); err != nil {
		b.cw.Close()
		return fmt.Errorf("closing tar: %w", err)
	}
	if err := b.cw.Close(); err != nil {
		return fmt.Errorf("closing compressor: %w", err)
	}
	return nil
}

// TarHeader describes an entry read back from a tarball.
type TarHeader struct {
	Name    string
	Kind    EntryKind
	Mode    int64
	Uname   string
	Gname   string
	Uid     int
	Gid     int
	Size    int64
	ModTime time.Time
}

// readTar walks a tarball compressed with c, calling fn for every entry
// with a reader positioned on its content.
func readTar(r io.Reader, c Compression, fn func(TarHeader, io.Reader) error) error {
	dr, err := c.NewReader(r)
	if err != nil {
		return fmt.Errorf("opening %s stream: %w", c, err)
	}
	defer dr.Close()

	tr := tar.NewReader(dr)
	for {
		th, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar header: %w", err)
		}
		kind := KindFile
		if th.Typeflag == tar.TypeDir || strings.HasSuffix(th.Name, "/") {
			kind = KindDirectory
		}
		h := TarHeader{
			Name:    th.Name,
			Kind:    kind,
			Mode:    th.Mode,
			Uname:   th.Uname,
			Gname:   th.Gname,
			Uid:     th.Uid,
			Gid:     th.Gid,
			Size:    th.Size,
			ModTime: th.ModTime,
		}
		if err := fn(h, tr); err != nil {
			return err
		}
	}
}
