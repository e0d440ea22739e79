package manifest

import (
	"fmt"
	"maps"
	"path"
	"strings"
	"text/template"
)

// Names of the values every template can reference, next to the defines.
const (
	varPackage      = "package"
	varVersion      = "version"
	varDistribution = "distribution"
	varPrefix       = "prefix"
)

// templateEngine handles text template rendering with variable substitution.
type templateEngine struct {
	defines map[string]string
	funcs   template.FuncMap
}

// newTemplateEngine creates a new engine with the provided global definitions.
func newTemplateEngine(defines map[string]string) *templateEngine {
	d := make(map[string]string)
	maps.Copy(d, defines)
	return &templateEngine{
		defines: d,
		funcs: template.FuncMap{
			"join":  path.Join,
			"base":  path.Base,
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
		},
	}
}

// sub creates a new templateEngine that inherits the parent's definitions
// and adds (or overrides) them with the provided local definitions.
func (e *templateEngine) sub(locals map[string]string) *templateEngine {
	newDefines := make(map[string]string)
	maps.Copy(newDefines, e.defines)
	maps.Copy(newDefines, locals)
	return &templateEngine{
		defines: newDefines,
		funcs:   e.funcs,
	}
}

// set defines a single value, typically package or version once rendered.
func (e *templateEngine) set(key, value string) {
	e.defines[key] = value
}

func (e *templateEngine) get(key string) string {
	return e.defines[key]
}

// render executes the provided text as a template using the engine's definitions.
// If the text does not contain "{{", it is returned as-is.
func (e *templateEngine) render(name, text string) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	t, err := template.New(name).Funcs(e.funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	if err := t.Execute(&buf, e.defines); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// renderAll renders every item of a list, naming errors after field[i].
func (e *templateEngine) renderAll(field string, items []string) ([]string, error) {
	out := make([]string, 0, len(items))
	for i, it := range items {
		name := fmt.Sprintf("%s[%d]", field, i)
		r, err := e.render(name, it)
		if err != nil {
			return nil, fmt.Errorf("rendering %s: %w", name, err)
		}
		out = append(out, r)
	}
	return out, nil
}
