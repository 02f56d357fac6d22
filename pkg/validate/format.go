package validate

import (
	"fmt"
	"regexp"
)

var formatRegexp = regexp.MustCompile(`(%?)%\{([^}]+)\}`)

// Format replaces %{name} placeholders in template with values[name].
// A doubled percent sign (%%{name}) escapes the placeholder.
func Format(template string, values map[string]any) string {
	return formatRegexp.ReplaceAllStringFunc(template, func(match string) string {
		sub := formatRegexp.FindStringSubmatch(match)
		if sub[1] == "%" {
			return "%{" + sub[2] + "}"
		}
		return fmt.Sprint(values[sub[2]])
	})
}
