package deb

import (
	"io"
	"strings"
)

// countingWriter wraps an io.Writer and counts the bytes written.
// It is typically used to calculate the size of a file or archive entry
// as it is being written.
type countingWriter struct {
	w io.Writer
	n int64
}

// Write writes p to the underlying io.Writer and increments the byte count.
func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// alignedWriter forwards only even-sized chunks to an ar member writer,
// holding back a trailing odd byte until the next Write or Flush.
//
// The ar writer pads after every odd-sized Write, so a streamed payload must
// reach it in even chunks with at most one odd write at the very end.
type alignedWriter struct {
	w          io.Writer
	pending    byte
	hasPending bool
}

func (a *alignedWriter) Write(p []byte) (int, error) {
	total := len(p)
	if a.hasPending && len(p) > 0 {
		if _, err := a.w.Write([]byte{a.pending, p[0]}); err != nil {
			return 0, err
		}
		a.hasPending = false
		p = p[1:]
	}
	if len(p)%2 == 1 {
		a.pending = p[len(p)-1]
		a.hasPending = true
		p = p[:len(p)-1]
	}
	if len(p) > 0 {
		// The ar writer may report the padding byte in its count, so only
		// its error is meaningful.
		if _, err := a.w.Write(p); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Flush writes the held back byte, if any.
func (a *alignedWriter) Flush() error {
	if !a.hasPending {
		return nil
	}
	a.hasPending = false
	_, err := a.w.Write([]byte{a.pending})
	return err
}

// Field is a single key/value pair of a control file.
type Field struct {
	Key   string
	Value string
}

// Fields holds the fields of a control file in file order.
type Fields []Field

// Get returns the value of key, or "" when absent.
func (f Fields) Get(key ControlField) string {
	for _, field := range f {
		if strings.EqualFold(field.Key, string(key)) {
			return field.Value
		}
	}
	return ""
}

// List returns the comma separated value of key split into trimmed items.
func (f Fields) List(key ControlField) []string {
	return splitList(f.Get(key))
}

// parseControlFile splits a control file into fields. Continuation lines are
// kept in the value with their leading space, joined by newlines.
func parseControlFile(content string) Fields {
	var fields Fields
	var currentKey string
	var currentValue strings.Builder

	flush := func() {
		if currentKey != "" {
			fields = append(fields, Field{Key: currentKey, Value: strings.TrimSpace(currentValue.String())})
		}
	}

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			currentValue.WriteString("\n" + line)
		} else if strings.Contains(line, ":") {
			flush()
			parts := strings.SplitN(line, ":", 2)
			currentKey = parts[0]
			currentValue.Reset()
			currentValue.WriteString(strings.TrimSpace(parts[1]))
		}
	}
	flush()
	return fields
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var res []string
	for _, p := range parts {
		res = append(res, strings.TrimSpace(p))
	}
	return res
}
