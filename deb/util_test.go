package deb

import (
	"bytes"
	"strings"
	"testing"
)

func TestCountingWriter(t *testing.T) {
	var buf bytes.Buffer
	cw := &countingWriter{w: &buf}

	data := []byte("hello")
	n, err := cw.Write(data)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 bytes written, got %d", n)
	}
	if cw.n != 5 {
		t.Errorf("expected count 5, got %d", cw.n)
	}
	if buf.String() != "hello" {
		t.Errorf("buffer mismatch")
	}
}

// chunkRecorder records the size of every write it receives.
type chunkRecorder struct {
	bytes.Buffer
	chunks []int
}

func (c *chunkRecorder) Write(p []byte) (int, error) {
	c.chunks = append(c.chunks, len(p))
	return c.Buffer.Write(p)
}

func TestAlignedWriter(t *testing.T) {
	rec := &chunkRecorder{}
	aw := &alignedWriter{w: rec}

	for _, s := range []string{"abc", "d", "efghi", "", "jk"} {
		n, err := aw.Write([]byte(s))
		if err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if n != len(s) {
			t.Errorf("expected %d bytes reported, got %d", len(s), n)
		}
	}
	if err := aw.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if err := aw.Flush(); err != nil {
		t.Fatalf("second Flush failed: %v", err)
	}

	if rec.String() != "abcdefghijk" {
		t.Errorf("expected abcdefghijk, got %q", rec.String())
	}
	for i, c := range rec.chunks {
		if c%2 == 1 && i != len(rec.chunks)-1 {
			t.Errorf("odd chunk %d of size %d before the end: %v", i, c, rec.chunks)
		}
	}
}

func TestParseControlFile(t *testing.T) {
	control := "Package: test\n" +
		"Version: 1:2.0-1\n" +
		"Depends: libc6 (>= 2.36), debconf\n" +
		"Description: Summary line\n" +
		" first line\n" +
		" .\n" +
		"  verbatim\n"

	fields := parseControlFile(control)
	if len(fields) != 4 {
		t.Fatalf("expected 4 fields, got %d: %v", len(fields), fields)
	}
	if fields[0].Key != "Package" || fields.Get(FieldPackage) != "test" {
		t.Errorf("unexpected first field: %+v", fields[0])
	}
	if got := fields.Get(ControlField("version")); got != "1:2.0-1" {
		t.Errorf("expected a case insensitive lookup, got %q", got)
	}
	if got := fields.List(FieldDepends); strings.Join(got, "|") != "libc6 (>= 2.36)|debconf" {
		t.Errorf("unexpected depends: %v", got)
	}
	if got := fields.Get(FieldDescription); got != "Summary line\n first line\n .\n  verbatim" {
		t.Errorf("unexpected description: %q", got)
	}
	if fields.Get(FieldSection) != "" {
		t.Errorf("expected an absent field to be empty")
	}
}

func TestSplitList(t *testing.T) {
	if got := splitList(""); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if got := splitList(" a , b,c "); strings.Join(got, ",") != "a,b,c" {
		t.Errorf("unexpected split: %v", got)
	}
}
