package manifest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/etnz/debroot/deb"
	"mvdan.cc/sh/v3/syntax"
)

// Delimiters of an encoded script, as expected by uudecode -m.
const (
	encodedHeader = "begin-base64 644 encoder.buf\n"
	encodedFooter = "\n===="
	// encodedLineLength is the MIME base64 line length.
	encodedLineLength = 76
)

// encodedScript is a script ready to be embedded in a runner.
type encodedScript struct {
	name        string
	failOnError bool
	encoded     string
}

// encodeScript wraps the base64 encoding of src between the uudecode
// header and footer.
func encodeScript(src []byte) string {
	enc := base64.StdEncoding.EncodeToString(src)
	var b strings.Builder
	b.WriteString(encodedHeader)
	for len(enc) > encodedLineLength {
		b.WriteString(enc[:encodedLineLength])
		b.WriteByte('\n')
		enc = enc[encodedLineLength:]
	}
	b.WriteString(enc)
	b.WriteString(encodedFooter)
	return b.String()
}

// ScriptRunner combines several scripts of the same maintainer script type
// into a single /bin/sh script. Each script is embedded base64 encoded,
// decoded into a private directory at run time and executed in
// declaration order with the arguments dpkg passed to the runner.
type ScriptRunner struct {
	typ     deb.ControlFile
	scripts []encodedScript
}

// NewScriptRunner returns an empty runner for the maintainer script type t.
func NewScriptRunner(t deb.ControlFile) (*ScriptRunner, error) {
	if _, err := deb.ParseScriptType(string(t)); err != nil {
		return nil, err
	}
	return &ScriptRunner{typ: t}, nil
}

// Add appends a script. When failOnError is set, a failure of the script
// aborts the runner with a non-zero status, which dpkg reports.
func (r *ScriptRunner) Add(name string, src []byte, failOnError bool) {
	r.scripts = append(r.scripts, encodedScript{
		name:        name,
		failOnError: failOnError,
		encoded:     encodeScript(src),
	})
}

// Len returns the number of scripts added.
func (r *ScriptRunner) Len() int {
	return len(r.scripts)
}

// Render generates the runner and checks that it parses as a shell script.
func (r *ScriptRunner) Render() ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "#!/bin/sh\n")
	fmt.Fprintf(&b, "# %s runner generated by debroot, do not edit.\n", r.typ)
	b.WriteString("set -u\n\n")
	b.WriteString("runner_dir=$(mktemp -d) || exit 1\n")
	b.WriteString("trap 'rm -rf \"$runner_dir\"' EXIT\n")

	for i, s := range r.scripts {
		fmt.Fprintf(&b, "\n# %s\n", sanitizeComment(s.name))
		fmt.Fprintf(&b, "sed '1d;$d' <<'DEBROOT_SCRIPT_%d' | base64 -d > \"$runner_dir/%d\"\n", i, i)
		b.WriteString(s.encoded)
		fmt.Fprintf(&b, "\nDEBROOT_SCRIPT_%d\n", i)
		fmt.Fprintf(&b, "chmod 0700 \"$runner_dir/%d\"\n", i)
		fmt.Fprintf(&b, "if ! \"$runner_dir/%d\" \"$@\"; then\n", i)
		if s.failOnError {
			fmt.Fprintf(&b, "\techo %s >&2\n", shellQuote(fmt.Sprintf("%s: %s failed", r.typ, s.name)))
			b.WriteString("\texit 1\n")
		} else {
			fmt.Fprintf(&b, "\techo %s >&2\n", shellQuote(fmt.Sprintf("%s: %s failed, ignored", r.typ, s.name)))
		}
		b.WriteString("fi\n")
	}
	b.WriteString("\nexit 0\n")

	if err := checkShell(b.Bytes(), string(r.typ)); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Script returns the rendered runner as a maintainer script.
func (r *ScriptRunner) Script() (deb.MaintainerScript, error) {
	out, err := r.Render()
	if err != nil {
		return deb.MaintainerScript{}, err
	}
	return deb.ScriptFromBytes(out), nil
}

// checkShell parses src as a POSIX shell script.
func checkShell(src []byte, name string) error {
	_, err := syntax.NewParser(syntax.Variant(syntax.LangPOSIX)).Parse(bytes.NewReader(src), name)
	if err != nil {
		return fmt.Errorf("script syntax error: %w", err)
	}
	return nil
}

// commandScript wraps a single command line into a script.
func commandScript(command string) ([]byte, error) {
	src := []byte("#!/bin/sh\n" + strings.TrimSpace(command) + "\n")
	if err := checkShell(src, "command"); err != nil {
		return nil, err
	}
	return src, nil
}

func sanitizeComment(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}

// shellQuote single quotes s for the shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
