package manifest

import (
	"bytes"
	"context"
	"encoding/base64"
	"os/exec"
	"strings"
	"testing"

	"github.com/etnz/debroot/deb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

func TestEncodeScript(t *testing.T) {
	src := []byte(strings.Repeat("echo hello world\n", 10))
	enc := encodeScript(src)

	require.True(t, strings.HasPrefix(enc, "begin-base64 644 encoder.buf\n"))
	require.True(t, strings.HasSuffix(enc, "\n===="))

	lines := strings.Split(enc, "\n")
	body := lines[1 : len(lines)-1]
	for _, l := range body {
		assert.LessOrEqual(t, len(l), 76)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.Join(body, ""))
	require.NoError(t, err)
	assert.Equal(t, src, decoded)
}

func TestNewScriptRunnerType(t *testing.T) {
	_, err := NewScriptRunner(deb.FileMd5sums)
	assert.Error(t, err)

	r, err := NewScriptRunner(deb.FilePostinst)
	require.NoError(t, err)
	assert.Zero(t, r.Len())
}

func TestScriptRunnerRender(t *testing.T) {
	r, err := NewScriptRunner(deb.FilePostinst)
	require.NoError(t, err)
	r.Add("first", []byte("#!/bin/sh\necho first\n"), true)
	r.Add("it's second", []byte("#!/bin/sh\necho second\n"), false)

	out, err := r.Render()
	require.NoError(t, err)
	s := string(out)
	assert.True(t, strings.HasPrefix(s, "#!/bin/sh\n"))
	assert.Equal(t, 2, strings.Count(s, "begin-base64 644 encoder.buf"))
	assert.Contains(t, s, "# it's second\n")
	assert.Less(t, strings.Index(s, "# first"), strings.Index(s, "# it's second"))

	_, err = syntax.NewParser().Parse(bytes.NewReader(out), "postinst")
	assert.NoError(t, err)
}

func TestCommandScript(t *testing.T) {
	src, err := commandScript("  systemctl daemon-reload  ")
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\nsystemctl daemon-reload\n", string(src))

	_, err = commandScript("echo 'unterminated")
	assert.Error(t, err)
}

func requireTools(t *testing.T, tools ...string) {
	t.Helper()
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not found, skipping", tool)
		}
	}
}

// runScript interprets src with the given positional parameters.
func runScript(t *testing.T, src []byte, args ...string) (string, error) {
	t.Helper()
	file, err := syntax.NewParser().Parse(bytes.NewReader(src), "runner")
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	runner, err := interp.New(
		interp.StdIO(nil, &stdout, &stderr),
		interp.Params(append([]string{"--"}, args...)...),
	)
	require.NoError(t, err)
	err = runner.Run(context.Background(), file)
	return stdout.String(), err
}

func TestScriptRunnerExecution(t *testing.T) {
	requireTools(t, "sh", "sed", "base64", "mktemp", "chmod", "rm")

	r, err := NewScriptRunner(deb.FilePostinst)
	require.NoError(t, err)
	r.Add("args", []byte("#!/bin/sh\necho \"first $1\"\n"), true)
	r.Add("ignored failure", []byte("#!/bin/sh\nexit 3\n"), false)
	r.Add("last", []byte("#!/bin/sh\necho last\n"), true)
	out, err := r.Render()
	require.NoError(t, err)

	stdout, err := runScript(t, out, "configure", "1.0")
	require.NoError(t, err)
	assert.Equal(t, "first configure\nlast\n", stdout)
}

func TestScriptRunnerFailOnError(t *testing.T) {
	requireTools(t, "sh", "sed", "base64", "mktemp", "chmod", "rm")

	r, err := NewScriptRunner(deb.FilePrerm)
	require.NoError(t, err)
	r.Add("broken", []byte("#!/bin/sh\nexit 2\n"), true)
	r.Add("never", []byte("#!/bin/sh\necho never\n"), true)
	out, err := r.Render()
	require.NoError(t, err)

	stdout, err := runScript(t, out, "remove")
	assert.Error(t, err)
	assert.NotContains(t, stdout, "never")
}
