package deb

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

// Contents is a .deb read back into memory.
type Contents struct {
	// Members lists the ar members in archive order.
	Members []ArchiveMember
	// Control is the raw control file.
	Control []byte
	// Fields holds the parsed control file.
	Fields    Fields
	Checksums *ChecksumTable
	Scripts   map[ControlFile][]byte
	Conffiles []string
	// ControlFiles holds the auxiliary control files, such as triggers.
	ControlFiles map[string][]byte

	ControlEntries []TarHeader
	DataEntries    []TarHeader
}

// Member returns the ar member with the given name.
func (c *Contents) Member(name string) (ArchiveMember, bool) {
	for _, m := range c.Members {
		if m.Name == name {
			return m, true
		}
	}
	return ArchiveMember{}, false
}

// ShowFormat formats the package the way dpkg-deb -W does by default.
func (c *Contents) ShowFormat() string {
	return c.Fields.Get(FieldPackage) + "\t" + c.Fields.Get(FieldVersion) + "\n"
}

// ReadPackage reads a .deb, checking its member layout and parsing its
// control tarball.
func ReadPackage(r io.Reader) (*Contents, error) {
	members, err := ReadArchive(r)
	if err != nil {
		return nil, err
	}
	if len(members) < 3 {
		return nil, fmt.Errorf("%w: %d members, want at least 3", ErrMalformedPackage, len(members))
	}
	if members[0].Name != string(PkgDebianBinary) || !bytes.HasPrefix(members[0].Data, []byte("2.")) {
		return nil, fmt.Errorf("%w: first member must be %s", ErrMalformedPackage, PkgDebianBinary)
	}
	if !strings.HasPrefix(members[1].Name, string(PkgControlTar)) {
		return nil, fmt.Errorf("%w: second member is %s, want %s", ErrMalformedPackage, members[1].Name, PkgControlTar)
	}
	if !strings.HasPrefix(members[2].Name, string(PkgDataTar)) {
		return nil, fmt.Errorf("%w: third member is %s, want %s", ErrMalformedPackage, members[2].Name, PkgDataTar)
	}

	c := &Contents{
		Members:      members,
		Checksums:    NewChecksumTable(),
		Scripts:      make(map[ControlFile][]byte),
		ControlFiles: make(map[string][]byte),
	}
	if err := c.readControl(members[1]); err != nil {
		return nil, err
	}
	if err := c.readData(members[2]); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Contents) readControl(m ArchiveMember) error {
	comp, err := compressionForMember(m.Name)
	if err != nil {
		return err
	}
	return readTar(bytes.NewReader(m.Data), comp, func(h TarHeader, body io.Reader) error {
		c.ControlEntries = append(c.ControlEntries, h)
		if h.Kind == KindDirectory {
			return nil
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, body); err != nil {
			return fmt.Errorf("reading %s: %w", h.Name, err)
		}
		content := buf.Bytes()

		name := path.Base(h.Name)
		switch ControlFile(name) {
		case FileControl:
			c.Control = content
			c.Fields = parseControlFile(string(content))
		case FileMd5sums:
			return parseMd5sums(string(content), c.Checksums)
		case FileConffiles:
			for _, l := range strings.Split(string(content), "\n") {
				if l = strings.TrimSpace(l); l != "" {
					c.Conffiles = append(c.Conffiles, l)
				}
			}
		case FilePreinst, FilePostinst, FilePrerm, FilePostrm, FileConfig:
			c.Scripts[ControlFile(name)] = content
		default:
			if !strings.HasPrefix(name, ".") {
				c.ControlFiles[name] = content
			}
		}
		return nil
	})
}

func (c *Contents) readData(m ArchiveMember) error {
	comp, err := compressionForMember(m.Name)
	if err != nil {
		return err
	}
	return readTar(bytes.NewReader(m.Data), comp, func(h TarHeader, _ io.Reader) error {
		c.DataEntries = append(c.DataEntries, h)
		return nil
	})
}

// parseMd5sums reads lines of the form "<md5>  <path>".
func parseMd5sums(content string, t *ChecksumTable) error {
	for _, l := range strings.Split(content, "\n") {
		if l == "" {
			continue
		}
		sum, p, ok := strings.Cut(l, "  ")
		if !ok || len(sum) != 32 {
			return fmt.Errorf("%w: invalid md5sums line %q", ErrMalformedPackage, l)
		}
		if err := t.Add(p, sum); err != nil {
			return err
		}
	}
	return nil
}
