// Package deb provides a pure Go library for assembling Debian binary packages.
//
// # Design Philosophy
//
// A package is assembled from a staged directory tree (the destroot) and
// validated metadata, without shelling out to 'dpkg-deb' or 'fakeroot'.
// Ownership and modes of the payload come from a PermissionTable rather
// than from the file system, so packages can be built as an unprivileged
// user and reproduce byte for byte when the modification time is pinned.
//
// Every value that reaches the control file goes through a validating
// constructor (NewName, ParseVersion, NewMaintainer, ...), so a PackageInfo
// that exists is a PackageInfo that dpkg accepts.
//
// # Features
//
// Package Assembly:
//   - Walk a destroot in a deterministic order, applying permission overrides.
//   - Generate the control file, md5sums and conffiles.
//   - Embed maintainer scripts and auxiliary control files.
//   - Compress tarballs with gzip, xz, zstd or not at all.
//   - Stream large payloads through temporary files, never through memory.
//
// Inspection:
//   - Read a .deb back with ReadPackage to check its layout and control data.
//
// Reference: https://manpages.debian.org/unstable/dpkg-dev/deb.5.en.html
package deb
