package prompts

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
)

// Render formats the template with the given variables.
// Sprig functions are available, and a variable referenced by the template
// but missing from vars is an error.
func Render(tmpl string, vars map[string]any) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("prompt").
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		Parse(tmpl)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse prompt template")
	}

	if vars == nil {
		vars = map[string]any{}
	}

	var buf strings.Builder
	if err = t.Execute(&buf, vars); err != nil {
		return "", errors.Wrap(err, "failed to render prompt template")
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// SystemPrompt is a system instruction template with its inputs.
type SystemPrompt struct {
	Template string         `json:"template" yaml:"template"`
	Vars     map[string]any `json:"vars,omitempty" yaml:"vars,omitempty"`
}

// Format renders the system prompt.
func (p SystemPrompt) Format() (string, error) {
	return Render(p.Template, p.Vars)
}
