package domain

import (
	"fmt"
	"regexp"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Interpolate replaces {{key}} placeholders with values from data.
// Unknown keys are left untouched so a missing capture stays visible.
func Interpolate(text string, data map[string]any) string {
	if len(data) == 0 {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		v, ok := data[key]
		if !ok || v == nil {
			return m
		}
		return fmt.Sprint(v)
	})
}
