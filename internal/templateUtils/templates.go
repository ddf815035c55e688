package templateUtils

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// GenerateToString executes the template and returns the result as a string
// returns error if not successful, generated template as a string and nil otherwise
func GenerateToString(tpl *template.Template, d any) (string, error) {
	var buff bytes.Buffer
	if err := tpl.Execute(&buff, d); err != nil {
		return "", fmt.Errorf("failed to execute the template %s : %w", tpl.Name(), err)
	}
	return buff.String(), nil
}

// LoadTemplate creates template instance with the sprig functions from specified template.
func LoadTemplate(name, tplFile string) (*template.Template, error) {
	tpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Parse(tplFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse the template file %s : %w", name, err)
	}
	return tpl, nil
}

// MustLoadTemplate is like LoadTemplate but panics on a parse error.
// Meant for templates embedded in the binary.
func MustLoadTemplate(name, tplFile string) *template.Template {
	tpl, err := LoadTemplate(name, tplFile)
	if err != nil {
		panic(err)
	}
	return tpl
}
