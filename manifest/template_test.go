package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateEngine(t *testing.T) {
	eng := newTemplateEngine(map[string]string{"owner": "www-data", "root": "/srv"})
	sub := eng.sub(map[string]string{"owner": "nobody"})
	sub.set(varPackage, "webapp")

	got, err := sub.render("t", "{{.owner}} {{join .root .package}} {{upper .package}}")
	require.NoError(t, err)
	assert.Equal(t, "nobody /srv/webapp WEBAPP", got)

	// The parent is unchanged by the child.
	got, err = eng.render("t", "{{.owner}}")
	require.NoError(t, err)
	assert.Equal(t, "www-data", got)

	got, err = eng.render("t", "no template")
	require.NoError(t, err)
	assert.Equal(t, "no template", got)

	_, err = eng.render("t", "{{.missing}}")
	assert.Error(t, err)
}

func TestRenderAll(t *testing.T) {
	eng := newTemplateEngine(map[string]string{"lib": "libfoo"})
	got, err := eng.renderAll("depends", []string{"{{.lib}} (>= 1)", "bar"})
	require.NoError(t, err)
	assert.Equal(t, []string{"libfoo (>= 1)", "bar"}, got)

	_, err = eng.renderAll("depends", []string{"ok", "{{.nope}}"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depends[1]")
}
