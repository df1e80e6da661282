package schema

import (
	"regexp"
	"strconv"

	"github.com/goccy/go-json"
)

var numberLike = regexp.MustCompile(`^[\d.]+$`)

// MatchesType reports whether value satisfies the dialect type name.
// "number" is textual: the value's string form must consist of digits and
// dots, so numeric strings pass and negative numbers do not.
func MatchesType(value any, typ string) bool {
	switch typ {
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "number":
		text, ok := NumericText(value)
		return ok && numberLike.MatchString(text)
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	default:
		return false
	}
}

// NumericText returns the textual form used by the "number" type check
func NumericText(value any) (string, bool) {
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	case string:
		return v, true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}

// Falsy reports whether value counts as absent for the required check:
// null, false, zero and the empty string.
func Falsy(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case bool:
		return !v
	case float64:
		return v == 0
	case json.Number:
		f, err := v.Float64()
		return err == nil && f == 0
	case int:
		return v == 0
	case int64:
		return v == 0
	case string:
		return v == ""
	default:
		return false
	}
}
