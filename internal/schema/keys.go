package schema

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var numericSegment = regexp.MustCompile(`^\d+$`)

// CamelCase upper-cases the first character of every underscore-separated
// part and joins the parts: "launch_path" becomes "LaunchPath".
func CamelCase(word string) string {
	parts := strings.Split(word, "_")
	var b strings.Builder
	b.Grow(len(word))
	for _, part := range parts {
		r, size := utf8.DecodeRuneInString(part)
		if size > 0 {
			part = string(unicode.ToUpper(r)) + part[size:]
		}
		b.WriteString(strings.TrimSpace(part))
	}
	return b.String()
}

// GlueKey synthesizes a diagnostic key from a code prefix and the path
// segments that led to the finding. Empty segments are dropped and numeric
// segments (array indexes) collapse to "Item".
func GlueKey(prefix string, parents []string, rest ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, seg := range parents {
		writeKeySegment(&b, seg)
	}
	for _, seg := range rest {
		writeKeySegment(&b, seg)
	}
	return b.String()
}

func writeKeySegment(b *strings.Builder, seg string) {
	if seg == "" {
		return
	}
	if numericSegment.MatchString(seg) {
		b.WriteString("Item")
		return
	}
	b.WriteString(CamelCase(seg))
}

// ObjectPath joins the non-empty segments with dots for use in messages
func ObjectPath(parents []string, rest ...string) string {
	return strings.Join(PathSegments(parents, rest...), ".")
}

// PathSegments returns a fresh slice of the non-empty segments
func PathSegments(parents []string, rest ...string) []string {
	out := make([]string, 0, len(parents)+len(rest))
	for _, seg := range parents {
		if seg != "" {
			out = append(out, seg)
		}
	}
	for _, seg := range rest {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
