package deb

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/opencontainers/go-digest"
)

// State is the progress of an Assembler.
type State int

const (
	StateInit State = iota
	StateWalkingData
	StateBuildingControl
	StateWriting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateWalkingData:
		return "walking-data"
	case StateBuildingControl:
		return "building-control"
	case StateWriting:
		return "writing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result describes an assembled package.
type Result struct {
	// Path is the output file, set by WriteFile only.
	Path string
	// Size is the size of the .deb in bytes.
	Size int64
	// Digest is the SHA256 digest of the .deb.
	Digest digest.Digest
	// InstalledSize is the Installed-Size field, in kilobytes.
	InstalledSize int64
	// Checksums holds the md5sums of the payload, in archive order.
	Checksums *ChecksumTable
}

// Assembler builds one .deb from a PackageInfo and a destroot.
//
// The data tarball is built first because the control tarball needs its
// checksums and installed size; both are staged in temporary files that are
// removed whatever the outcome. An Assembler runs once: a second run
// returns ErrAssemblerUsed. It is not safe for concurrent use.
//
// Reference: https://manpages.debian.org/unstable/dpkg-dev/deb.5.en.html
type Assembler struct {
	info     *PackageInfo
	destroot string
	opts     []Option
	o        *options
	state    State
}

// NewAssembler returns an assembler for info with its payload in destroot.
func NewAssembler(info *PackageInfo, destroot string, opts ...Option) *Assembler {
	return &Assembler{
		info:     info,
		destroot: destroot,
		opts:     opts,
		o:        newOptions(opts),
		state:    StateInit,
	}
}

// State returns the current state.
func (a *Assembler) State() State {
	return a.state
}

func (a *Assembler) transition(s State) {
	a.o.logger.Debug("assembler state", "package", a.info.name, "from", a.state, "to", s)
	a.state = s
}

// Assemble writes the package to w.
func (a *Assembler) Assemble(w io.Writer) (res *Result, err error) {
	if a.state != StateInit {
		return nil, ErrAssemblerUsed
	}
	defer func() {
		if err != nil {
			a.o.logger.Error("assembly failed", "package", a.info.name, "state", a.state, "err", err)
			a.state = StateFailed
		}
	}()

	tmpDir, err := os.MkdirTemp(a.o.tempDir, "debroot-")
	if err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	ext := a.o.compression.Extension()
	dataName := string(PkgDataTar) + ext
	controlName := string(PkgControlTar) + ext

	// 1. Build data tarball
	// We must build this first to calculate MD5 sums of files for the control archive.
	a.transition(StateWalkingData)
	dataFile, err := os.Create(filepath.Join(tmpDir, dataName))
	if err != nil {
		return nil, err
	}
	defer dataFile.Close()
	walk, err := a.buildData(dataFile)
	if err != nil {
		return nil, fmt.Errorf("building data archive: %w", err)
	}

	// 2. Build control tarball
	// Requires metadata and the MD5 sums calculated in step 1.
	a.transition(StateBuildingControl)
	controlFile, err := os.Create(filepath.Join(tmpDir, controlName))
	if err != nil {
		return nil, err
	}
	defer controlFile.Close()
	if err := NewControlBundleBuilder(a.info, a.opts...).Build(controlFile, walk.Checksums, walk.InstalledSize()); err != nil {
		return nil, fmt.Errorf("building control archive: %w", err)
	}

	// 3. Assemble the final ar archive
	a.transition(StateWriting)
	digester := digest.SHA256.Digester()
	aw, err := NewArchiveWriter(io.MultiWriter(w, digester.Hash()), WithLogger(a.o.logger))
	if err != nil {
		return nil, err
	}
	mtime := a.o.now()

	// 3a. debian-binary must be the first member
	if err := aw.AppendBytes(string(PkgDebianBinary), []byte(FormatVersion), mtime); err != nil {
		return nil, fmt.Errorf("writing %s: %w", PkgDebianBinary, err)
	}
	// 3b. control tarball second
	if err := appendFile(aw, controlName, controlFile, mtime); err != nil {
		return nil, fmt.Errorf("writing %s: %w", controlName, err)
	}
	// 3c. data tarball third
	if err := appendFile(aw, dataName, dataFile, mtime); err != nil {
		return nil, fmt.Errorf("writing %s: %w", dataName, err)
	}

	a.transition(StateDone)
	res = &Result{
		Size:          aw.Size(),
		Digest:        digester.Digest(),
		InstalledSize: walk.InstalledSize(),
		Checksums:     walk.Checksums,
	}
	a.o.logger.Info("package assembled", "package", a.info.name, "version", a.info.version, "size", res.Size, "digest", res.Digest)
	return res, nil
}

func (a *Assembler) buildData(w io.Writer) (*WalkResult, error) {
	tb, err := NewTarBuilder(w, a.o.compression, WithLogger(a.o.logger))
	if err != nil {
		return nil, err
	}
	walk, err := NewDestrootWalker(a.destroot, a.info.permissions, a.opts...).Walk(tb)
	if err != nil {
		tb.Close()
		return nil, err
	}
	if err := tb.Close(); err != nil {
		return nil, err
	}
	return walk, nil
}

// appendFile rewinds a staged tarball and appends it as a member.
func appendFile(aw *ArchiveWriter, name string, f *os.File, mtime time.Time) error {
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return aw.Append(ArchiveEntry{Name: name, Body: f, Size: size, ModTime: mtime})
}

// WriteFile writes the package to path. The package is staged next to
// path and renamed into place on success, so a failed run never leaves a
// file at path.
func (a *Assembler) WriteFile(path string) (*Result, error) {
	if a.state != StateInit {
		return nil, ErrAssemblerUsed
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".debroot-*.deb")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	res, err := a.Assemble(tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = cerr
		a.state = StateFailed
	}
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		a.state = StateFailed
		return nil, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		a.state = StateFailed
		return nil, err
	}
	res.Path = path
	return res, nil
}
