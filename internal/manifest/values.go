package manifest

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/mozilla/firefox-app-validator-manifest/internal/schema"
)

func truthy(v any) bool {
	return !schema.Falsy(v)
}

func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// stringify renders a scalar the way it would appear in the manifest text
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return "null"
	}
	if text, ok := schema.NumericText(v); ok {
		return text
	}
	return fmt.Sprint(v)
}

// naturalPrefix reports whether s starts with an integer of at least 1 after
// optional leading whitespace and sign. Trailing text is ignored, so "128x128"
// counts as 128.
func naturalPrefix(s string) bool {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	digits := 0
	nonZero := false
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		digits++
		if r != '0' {
			nonZero = true
		}
	}
	return digits > 0 && nonZero && !negative
}
