package deb

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/blakesmith/ar"
	"github.com/charmbracelet/log"
)

const (
	arMagic     = "!<arch>\n"
	arNameWidth = 16
	// arMemberMode is the mode dpkg-deb records on its own members.
	arMemberMode int64 = 0100644
)

// ArchiveEntry is a single member of an ar archive.
type ArchiveEntry struct {
	Name    string
	Body    io.Reader
	Size    int64
	ModTime time.Time
	UID     int
	GID     int
	Mode    int64
}

// ArchiveWriter appends members to an ar archive, the outer container of a .deb file.
//
// Members are written strictly in call order. The writer is not safe for
// concurrent use.
//
// Reference: https://manpages.debian.org/unstable/dpkg-dev/deb.5.en.html
type ArchiveWriter struct {
	cw     *countingWriter
	w      *ar.Writer
	closer io.Closer
	logger *log.Logger
}

// NewArchiveWriter writes the global ar header to w and returns a writer for its members.
func NewArchiveWriter(w io.Writer, opts ...Option) (*ArchiveWriter, error) {
	o := newOptions(opts)
	cw := &countingWriter{w: w}
	arW := ar.NewWriter(cw)
	if err := arW.WriteGlobalHeader(); err != nil {
		return nil, fmt.Errorf("writing ar global header: %w", err)
	}
	return &ArchiveWriter{cw: cw, w: arW, logger: o.logger}, nil
}

// OpenArchive opens the ar archive at path for appending.
// A missing or empty file is initialized with the global header; an existing
// file must start with it, or ErrInvalidMagic is returned.
func OpenArchive(path string, opts ...Option) (*ArchiveWriter, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	if info.Size() == 0 {
		aw, err := NewArchiveWriter(f, opts...)
		if err != nil {
			f.Close()
			return nil, err
		}
		aw.closer = f
		return aw, nil
	}

	magic := make([]byte, len(arMagic))
	if _, err := io.ReadFull(f, magic); err != nil || string(magic) != arMagic {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidMagic)
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, err
	}
	o := newOptions(opts)
	cw := &countingWriter{w: f, n: info.Size()}
	return &ArchiveWriter{cw: cw, w: ar.NewWriter(cw), closer: f, logger: o.logger}, nil
}

// validateEntry checks a member name and size against the fixed-width ar header.
func validateEntry(name string, size int64) error {
	if name == "" || len(name) > arNameWidth || strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return &EntryError{Name: name, Size: size, Err: ErrInvalidEntryName}
	}
	if size < 0 || size > MaxEntrySize {
		return &EntryError{Name: name, Size: size, Err: ErrEntryTooLarge}
	}
	return nil
}

// Append writes e as the next member. Exactly e.Size bytes are read from
// e.Body; an odd-sized payload is followed by one padding byte.
func (a *ArchiveWriter) Append(e ArchiveEntry) error {
	if err := validateEntry(e.Name, e.Size); err != nil {
		return err
	}
	mode := e.Mode
	if mode == 0 {
		mode = arMemberMode
	}
	modTime := e.ModTime
	if modTime.IsZero() {
		modTime = time.Unix(0, 0)
	}
	header := &ar.Header{
		Name:    e.Name,
		ModTime: modTime,
		Uid:     e.UID,
		Gid:     e.GID,
		Mode:    mode,
		Size:    e.Size,
	}
	if err := a.w.WriteHeader(header); err != nil {
		return fmt.Errorf("writing ar header %s: %w", e.Name, err)
	}

	aw := &alignedWriter{w: a.w}
	n, err := io.CopyN(aw, e.Body, e.Size)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("writing ar member %s (%d of %d bytes): %w", e.Name, n, e.Size, err)
	}
	if err := aw.Flush(); err != nil {
		return fmt.Errorf("writing ar member %s: %w", e.Name, err)
	}
	a.logger.Debug("ar member written", "name", e.Name, "size", e.Size)
	return nil
}

// AppendBytes writes body as a regular member named name.
func (a *ArchiveWriter) AppendBytes(name string, body []byte, modTime time.Time) error {
	return a.Append(ArchiveEntry{
		Name:    name,
		Body:    bytes.NewReader(body),
		Size:    int64(len(body)),
		ModTime: modTime,
	})
}

// Size returns the number of bytes in the archive so far.
func (a *ArchiveWriter) Size() int64 {
	return a.cw.n
}

// Close releases the underlying file when the writer was created by OpenArchive.
func (a *ArchiveWriter) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// ArchiveMember describes a member read back from an ar archive.
type ArchiveMember struct {
	Name    string
	Size    int64
	ModTime time.Time
	Mode    int64
	Data    []byte
}

// ReadArchive reads every member of the ar archive in r.
func ReadArchive(r io.Reader) ([]ArchiveMember, error) {
	magic := make([]byte, len(arMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != arMagic {
		return nil, ErrInvalidMagic
	}
	// The reader expects the global header to be unread.
	arR := ar.NewReader(io.MultiReader(bytes.NewReader(magic), r))

	var members []ArchiveMember
	for {
		header, err := arR.Next()
		if err == io.EOF {
			return members, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading ar header: %w", err)
		}
		data := make([]byte, header.Size)
		if _, err := io.ReadFull(arR, data); err != nil {
			return nil, fmt.Errorf("reading ar member %s: %w", header.Name, err)
		}
		members = append(members, ArchiveMember{
			Name:    strings.TrimSuffix(strings.TrimSpace(header.Name), "/"),
			Size:    header.Size,
			ModTime: header.ModTime,
			Mode:    header.Mode,
			Data:    data,
		})
	}
}
