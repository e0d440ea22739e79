package deb

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ControlBundleBuilder writes the control tarball of a package: the control
// file, the md5sums of the payload, the maintainer scripts and any
// auxiliary control files.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html
type ControlBundleBuilder struct {
	info *PackageInfo
	opts *options
}

// NewControlBundleBuilder returns a builder for info.
func NewControlBundleBuilder(info *PackageInfo, opts ...Option) *ControlBundleBuilder {
	return &ControlBundleBuilder{info: info, opts: newOptions(opts)}
}

// ControlFile renders the control file. Optional fields are omitted when unset.
func (b *ControlBundleBuilder) ControlFile(installedSizeKB int64) []byte {
	var buf bytes.Buffer
	p := b.info

	writeField := func(field ControlField, value string) {
		if value != "" {
			fmt.Fprintf(&buf, "%s: %s\n", field, value)
		}
	}

	writeField(FieldPackage, p.name.String())
	writeField(FieldVersion, p.version.String())
	writeField(FieldSection, p.section.String())
	writeField(FieldPriority, string(p.priority))
	writeField(FieldArchitecture, p.arch.String())
	writeField(FieldDepends, p.depends.String())
	writeField(FieldConflicts, p.conflicts.String())
	writeField(FieldReplaces, p.replaces.String())
	writeField(FieldMaintainer, p.maintainer.String())
	writeField(FieldDescription, p.description.Render(b.opts.wrapWidth))
	writeField(FieldInstalledSize, strconv.FormatInt(installedSizeKB, 10))

	return buf.Bytes()
}

// validate checks everything that could fail once bytes have been written.
func (b *ControlBundleBuilder) validate(sums *ChecksumTable) error {
	for _, t := range ScriptTypes {
		s, ok := b.info.scripts[t]
		if ok && (s.Size < 0 || s.Size > MaxEntrySize) {
			return &EntryError{Name: string(t), Size: s.Size, Err: ErrScriptTooLarge}
		}
	}
	for _, c := range b.info.conffiles {
		if _, ok := sums.Lookup(StripLeadingSeparators(c)); !ok {
			return fmt.Errorf("conffile %s is not a regular file of the package", c)
		}
	}
	return nil
}

// Build writes the compressed control tarball to w. Members are written in
// the order control, md5sums, preinst, postinst, prerm, postrm, config,
// conffiles, then the auxiliary control files sorted by name.
func (b *ControlBundleBuilder) Build(w io.Writer, sums *ChecksumTable, installedSizeKB int64) error {
	if sums == nil {
		sums = NewChecksumTable()
	}
	if err := b.validate(sums); err != nil {
		return err
	}

	tb, err := NewTarBuilder(w, b.opts.compression, WithLogger(b.opts.logger))
	if err != nil {
		return err
	}
	mtime := b.opts.now()

	// 1. control
	if err := tb.AddBuffer(string(FileControl), b.ControlFile(installedSizeKB), StandardFileMode, mtime); err != nil {
		return fmt.Errorf("writing control: %w", err)
	}

	// 2. md5sums
	var md5sums bytes.Buffer
	if _, err := sums.WriteTo(&md5sums); err != nil {
		return err
	}
	if err := tb.AddBuffer(string(FileMd5sums), md5sums.Bytes(), StandardFileMode, mtime); err != nil {
		return fmt.Errorf("writing md5sums: %w", err)
	}

	// 3. Maintainer scripts
	for _, t := range ScriptTypes {
		s, ok := b.info.scripts[t]
		if !ok {
			continue
		}
		if err := b.addScript(tb, t, s, mtime); err != nil {
			return fmt.Errorf("writing %s: %w", t, err)
		}
	}

	// 4. conffiles
	if len(b.info.conffiles) > 0 {
		content := strings.Join(b.info.conffiles, "\n") + "\n"
		if err := tb.AddBuffer(string(FileConffiles), []byte(content), StandardFileMode, mtime); err != nil {
			return fmt.Errorf("writing conffiles: %w", err)
		}
	}

	// 5. Extra control files
	for _, name := range b.info.ControlFiles() {
		if err := tb.AddBuffer(name, b.info.controlFiles[name], StandardFileMode, mtime); err != nil {
			return fmt.Errorf("writing extra control file %s: %w", name, err)
		}
	}

	return tb.Close()
}

func (b *ControlBundleBuilder) addScript(tb *TarBuilder, t ControlFile, s MaintainerScript, mtime time.Time) error {
	r, err := s.Open()
	if err != nil {
		return err
	}
	defer r.Close()
	return tb.Add(TarEntry{
		Path:    string(t),
		Kind:    KindFile,
		User:    Root,
		Group:   Root,
		Mode:    ExecutableMode,
		ModTime: mtime,
		Size:    s.Size,
		Body:    r,
	})
}
