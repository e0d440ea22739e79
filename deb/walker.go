package deb

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// Checksum is the MD5 digest of one regular file of the data tarball.
type Checksum struct {
	Path string
	MD5  string
}

// ChecksumTable holds checksums in insertion order, one per path.
type ChecksumTable struct {
	records []Checksum
	index   map[string]int
}

// NewChecksumTable returns an empty table.
func NewChecksumTable() *ChecksumTable {
	return &ChecksumTable{index: make(map[string]int)}
}

// Add appends a checksum. Adding a path twice is an error.
func (t *ChecksumTable) Add(p, sum string) error {
	if _, ok := t.index[p]; ok {
		return fmt.Errorf("duplicate checksum for %s", p)
	}
	t.index[p] = len(t.records)
	t.records = append(t.records, Checksum{Path: p, MD5: sum})
	return nil
}

// Lookup returns the checksum recorded for p.
func (t *ChecksumTable) Lookup(p string) (string, bool) {
	i, ok := t.index[p]
	if !ok {
		return "", false
	}
	return t.records[i].MD5, true
}

// Len returns the number of records.
func (t *ChecksumTable) Len() int {
	return len(t.records)
}

// Records returns a copy of the records in insertion order.
func (t *ChecksumTable) Records() []Checksum {
	return append([]Checksum(nil), t.records...)
}

// WriteTo writes the table in md5sums format, one "hash  path" line per record.
// The hash comes first, as md5sum prints it and dpkg reads it.
//
// Reference: https://manpages.debian.org/unstable/dpkg-dev/deb-md5sums.5.en.html
func (t *ChecksumTable) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	for _, r := range t.records {
		if _, err := fmt.Fprintf(cw, "%s  %s\n", r.MD5, r.Path); err != nil {
			return cw.n, err
		}
	}
	return cw.n, nil
}

// InstalledSize converts a byte count to the Installed-Size figure:
// kilobytes, rounded up.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#installed-size
func InstalledSize(totalBytes int64) int64 {
	if totalBytes <= 0 {
		return 0
	}
	return (totalBytes + 1023) / 1024
}

// WalkResult is what a destroot walk hands over to the control bundle.
type WalkResult struct {
	Checksums  *ChecksumTable
	TotalBytes int64
	Entries    int
}

// InstalledSize returns the Installed-Size figure of the walked tree.
func (r *WalkResult) InstalledSize() int64 {
	return InstalledSize(r.TotalBytes)
}

// DestrootWalker turns a staged directory tree into data tarball entries.
type DestrootWalker struct {
	root  string
	perms *PermissionTable
	opts  *options
}

// NewDestrootWalker returns a walker over root. A nil table applies the
// default permissions everywhere.
func NewDestrootWalker(root string, perms *PermissionTable, opts ...Option) *DestrootWalker {
	o := newOptions(opts)
	if perms == nil {
		perms = NewPermissionTable(WithLogger(o.logger))
	}
	return &DestrootWalker{root: root, perms: perms, opts: o}
}

// node is one destroot entry, collected before anything is written.
type node struct {
	abs  string
	rel  string
	info fs.FileInfo
	perm Permission
	sum  string
}

// Walk writes every entry below the root to tb and returns the checksums
// and byte count of the regular files.
//
// Entries are visited in preorder with siblings sorted by name, so the
// output is identical across runs. Symbolic links are followed and stored
// as regular files or directories. Permissions are resolved for the whole
// tree before the first entry is written, so a conflicting rule leaves tb
// untouched.
func (w *DestrootWalker) Walk(tb *TarBuilder) (*WalkResult, error) {
	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("opening destroot: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("destroot %s is not a directory", w.root)
	}

	for _, tr := range w.perms.Traversals() {
		w.opts.logger.Warn("path traversal resolved", "path", tr.Path, "resolved", tr.Resolved)
	}

	var nodes []*node
	if err := w.collect(w.root, "", []fs.FileInfo{info}, &nodes); err != nil {
		return nil, err
	}

	for _, n := range nodes {
		n.perm, err = w.perms.Resolve("/"+n.rel, n.info.IsDir())
		if err != nil {
			return nil, err
		}
	}

	if w.opts.workers > 1 {
		if err := w.hashAll(nodes); err != nil {
			return nil, err
		}
	}

	result := &WalkResult{Checksums: NewChecksumTable()}
	for _, n := range nodes {
		if err := w.write(tb, n, result); err != nil {
			return nil, err
		}
	}
	w.opts.logger.Debug("destroot walked", "root", w.root, "entries", result.Entries, "bytes", result.TotalBytes)
	return result, nil
}

// collect appends the entries below dir in preorder. stack holds the
// directories being descended, to detect symbolic link cycles.
func (w *DestrootWalker) collect(dir, rel string, stack []fs.FileInfo, nodes *[]*node) error {
	// ReadDir returns the entries sorted by file name.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, de := range entries {
		abs := filepath.Join(dir, de.Name())
		childRel := path.Join(rel, de.Name())
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("stat %s: %w", abs, err)
		}

		switch {
		case info.IsDir():
			for _, seen := range stack {
				if os.SameFile(seen, info) {
					return fmt.Errorf("symbolic link cycle at %s", abs)
				}
			}
			*nodes = append(*nodes, &node{abs: abs, rel: childRel, info: info})
			if err := w.collect(abs, childRel, append(stack, info), nodes); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			*nodes = append(*nodes, &node{abs: abs, rel: childRel, info: info})
		default:
			return fmt.Errorf("unsupported file type %s at %s", info.Mode().Type(), abs)
		}
	}
	return nil
}

// hashAll computes the MD5 of every regular file concurrently.
func (w *DestrootWalker) hashAll(nodes []*node) error {
	var g errgroup.Group
	g.SetLimit(w.opts.workers)
	for _, n := range nodes {
		if n.info.IsDir() {
			continue
		}
		n := n
		g.Go(func() error {
			sum, err := md5File(n.abs)
			if err != nil {
				return err
			}
			n.sum = sum
			return nil
		})
	}
	return g.Wait()
}

func (w *DestrootWalker) write(tb *TarBuilder, n *node, result *WalkResult) error {
	entry := TarEntry{
		Path:    n.rel,
		User:    n.perm.User,
		Group:   n.perm.Group,
		Mode:    n.perm.Mode,
		ModTime: w.opts.clamp(n.info.ModTime()),
	}
	result.Entries++

	if n.info.IsDir() {
		entry.Kind = KindDirectory
		return tb.Add(entry)
	}

	f, err := os.Open(n.abs)
	if err != nil {
		return err
	}
	defer f.Close()

	entry.Kind = KindFile
	entry.Size = n.info.Size()
	entry.Body = f

	var h hash.Hash
	if n.sum == "" {
		h = md5.New()
		entry.Body = io.TeeReader(f, h)
	}
	if err := tb.Add(entry); err != nil {
		return err
	}
	if h != nil {
		n.sum = hex.EncodeToString(h.Sum(nil))
	}

	result.TotalBytes += entry.Size
	return result.Checksums.Add(n.rel, n.sum)
}

func md5File(name string) (string, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", name, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
