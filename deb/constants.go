package deb

import "math"

// ControlField represents a standard field in a Debian control file.
type ControlField string

const (
	FieldPackage       ControlField = "Package"
	FieldVersion       ControlField = "Version"
	FieldArchitecture  ControlField = "Architecture"
	FieldMaintainer    ControlField = "Maintainer"
	FieldDescription   ControlField = "Description"
	FieldSection       ControlField = "Section"
	FieldPriority      ControlField = "Priority"
	FieldDepends       ControlField = "Depends"
	FieldConflicts     ControlField = "Conflicts"
	FieldReplaces      ControlField = "Replaces"
	FieldInstalledSize ControlField = "Installed-Size"
)

// ControlFile represents a standard file found in the control tarball.
type ControlFile string

const (
	FileControl   ControlFile = "control"
	FileMd5sums   ControlFile = "md5sums"
	FileConffiles ControlFile = "conffiles"
	FilePreinst   ControlFile = "preinst"
	FilePostinst  ControlFile = "postinst"
	FilePrerm     ControlFile = "prerm"
	FilePostrm    ControlFile = "postrm"
	FileConfig    ControlFile = "config"
	FileTriggers  ControlFile = "triggers"
)

// reserved reports whether name is produced by the control bundle builder
// itself and cannot be supplied as an extra control file.
func (f ControlFile) reserved() bool {
	switch f {
	case FileControl, FileMd5sums, FileConffiles, FilePreinst, FilePostinst, FilePrerm, FilePostrm, FileConfig:
		return true
	}
	return false
}

// PackageFile represents a standard member of the .deb archive (ar format).
type PackageFile string

const (
	PkgDebianBinary PackageFile = "debian-binary"
	PkgControlTar   PackageFile = "control.tar"
	PkgDataTar      PackageFile = "data.tar"
)

// FormatVersion is the content of the debian-binary member.
//
// Reference: https://manpages.debian.org/unstable/dpkg-dev/deb.5.en.html#FORMAT
const FormatVersion = "2.0\n"

const (
	// StandardFileMode is applied to regular files without a permission override.
	StandardFileMode int64 = 0644
	// StandardDirMode is applied to directories without a permission override.
	StandardDirMode int64 = 0755
	// ExecutableMode is applied to maintainer scripts.
	ExecutableMode int64 = 0755

	// MaxEntrySize is the largest payload an ar member or maintainer script may carry.
	MaxEntrySize int64 = math.MaxInt32
)
