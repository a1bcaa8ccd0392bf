package chain

import (
	"regexp"

	"chainforge/internal/domain/entity"
)

var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

// Render substitutes every {key} in tmpl whose key holds a plain string in
// vars. Placeholders for missing keys or non-string values are left as they
// are. Substituted text is not scanned again.
func Render(tmpl string, vars map[string]any) string {
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := match[1 : len(match)-1]
		if s, ok := vars[key].(string); ok {
			return s
		}
		return match
	})
}

func renderInput(tmpl string, in entity.ChainInput) string {
	return Render(tmpl, in.Variables)
}
