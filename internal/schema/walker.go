package schema

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mozilla/firefox-app-validator-manifest/internal/domain"
)

// Walker applies schema nodes to decoded JSON values and records structural
// and constraint diagnostics. A Walker is immutable and safe for concurrent use.
type Walker struct {
	// extraRootRequired is appended to the root node's required list when the
	// app is listed.
	extraRootRequired []string
	opts              domain.Options
}

// NewWalker creates a walker for one set of validation options
func NewWalker(opts domain.Options, listedRootRequired []string) *Walker {
	return &Walker{
		extraRootRequired: slices.Clone(listedRootRequired),
		opts:              opts,
	}
}

// Walk validates value against node. name is the key under which value was
// found and parents the keys above it; the root is walked with an empty name
// and no parents.
func (w *Walker) Walk(report *domain.Report, value any, node *Node, name string, parents []string) {
	if node == nil {
		return
	}

	if node.Type != "" && !MatchesType(value, node.Type) {
		report.Error(domain.CodeInvalidPropertyType,
			GlueKey(domain.CodeInvalidPropertyType, parents, name),
			domain.KindStructural,
			PathSegments(parents, name),
			fmt.Sprintf("`%s` must be of type `%s`", name, node.Type))
		return
	}

	switch v := value.(type) {
	case string:
		w.checkString(report, v, node, name, parents)
	case []any:
		w.checkArray(report, v, node, name, parents)
	case map[string]any:
		w.checkObject(report, v, node, name, parents)
	}
}

func (w *Walker) checkString(report *domain.Report, value string, node *Node, name string, parents []string) {
	path := PathSegments(parents, name)

	switch {
	case len(node.OneOf) > 0:
		if !slices.Contains(node.OneOf, value) {
			report.Error(domain.CodeInvalidStringType,
				GlueKey(domain.CodeInvalidStringType, parents, name),
				domain.KindConstraint, path,
				fmt.Sprintf("`%s` must be one of the following: %s", name, strings.Join(node.OneOf, ",")))
		}
	case len(node.AnyOf) > 0:
		for _, part := range strings.Split(value, ",") {
			if !slices.Contains(node.AnyOf, strings.TrimSpace(part)) {
				report.Error(domain.CodeInvalidStringType,
					GlueKey(domain.CodeInvalidStringType, parents, name),
					domain.KindConstraint, path,
					fmt.Sprintf("`%s` must be any of the following: %s", name, strings.Join(node.AnyOf, ",")))
				break
			}
		}
	}

	length := utf8.RuneCountInString(value)
	if node.MinLength > 0 && length < node.MinLength {
		report.Error(domain.CodeInvalidPropertyLength,
			GlueKey(domain.CodeInvalidPropertyLength, parents, name),
			domain.KindConstraint, path,
			fmt.Sprintf("`%s` must be at least %d in length", name, node.MinLength))
	}
	if node.MaxLength > 0 && length > node.MaxLength {
		report.Error(domain.CodeInvalidPropertyLength,
			GlueKey(domain.CodeInvalidPropertyLength, parents, name),
			domain.KindConstraint, path,
			fmt.Sprintf("`%s` must not exceed length %d", name, node.MaxLength))
	}

	if node.Pattern != "" {
		re := node.patternRegexp()
		if re != nil && !re.MatchString(value) {
			report.Error(domain.CodeInvalidStringPattern,
				GlueKey(domain.CodeInvalidStringPattern, parents, name),
				domain.KindConstraint, path,
				fmt.Sprintf("`%s` must match the pattern /%s/", name, node.Pattern))
		}
	}
}

func (w *Walker) checkArray(report *domain.Report, items []any, node *Node, name string, parents []string) {
	if node.Items == nil {
		return
	}

	childParents := append(slices.Clone(parents), name)
	for i, item := range items {
		if node.Items.Type != "" && !MatchesType(item, node.Items.Type) {
			report.Error(domain.CodeInvalidItemType,
				GlueKey(domain.CodeInvalidItemType, parents, name),
				domain.KindStructural,
				PathSegments(parents, name, strconv.Itoa(i)),
				fmt.Sprintf("items of array `%s` must be of type `%s`", name, node.Items.Type))
			continue
		}
		if _, ok := item.(map[string]any); ok {
			w.Walk(report, item, node.Items, strconv.Itoa(i), childParents)
		}
	}
}

func (w *Walker) checkObject(report *domain.Report, obj map[string]any, node *Node, name string, parents []string) {
	required := node.Required
	if len(parents) == 0 && name == "" && w.opts.Listed && len(w.extraRootRequired) > 0 {
		required = append(slices.Clone(required), w.extraRootRequired...)
	}

	for _, key := range required {
		if Falsy(obj[key]) {
			report.Error(domain.CodeMandatoryField,
				GlueKey(domain.CodeMandatoryField, parents, name, key),
				domain.KindStructural,
				PathSegments(parents, name, key),
				fmt.Sprintf("Mandatory field %s is missing", key))
		}
	}

	count := len(obj)
	if node.MinProperties != nil && count < *node.MinProperties {
		report.Error(domain.CodeInvalidPropertyCount,
			GlueKey(domain.CodeInvalidPropertyCount, parents, name),
			domain.KindConstraint,
			PathSegments(parents, name),
			fmt.Sprintf("`%s` must have at least %d properties.", name, *node.MinProperties))
	}
	if node.MaxProperties != nil && count > *node.MaxProperties {
		report.Error(domain.CodeInvalidPropertyCount,
			GlueKey(domain.CodeInvalidPropertyCount, parents, name),
			domain.KindConstraint,
			PathSegments(parents, name),
			fmt.Sprintf("`%s` must have no more than %d properties.", name, *node.MaxProperties))
	}

	keys := sortedKeys(obj)
	explained := make(map[string]bool, len(keys))
	childParents := append(slices.Clone(parents), name)

	for _, key := range sortedKeys(node.Properties) {
		child, ok := obj[key]
		if !ok {
			continue
		}
		explained[key] = true
		w.Walk(report, child, node.Properties[key], key, childParents)
	}

	if len(node.PatternProperties) > 0 {
		patterns := sortedKeys(node.PatternProperties)
		for _, key := range keys {
			for _, p := range patterns {
				re := node.patternPropertyRegexp(p)
				if re == nil || !re.MatchString(key) {
					continue
				}
				explained[key] = true
				w.Walk(report, obj[key], node.PatternProperties[p], key, childParents)
			}
		}
	}

	switch node.Additional.Mode {
	case AdditionalSchema:
		for _, key := range keys {
			if _, declared := node.Properties[key]; declared {
				continue
			}
			w.Walk(report, obj[key], node.Additional.Schema, key, childParents)
		}
	case AdditionalForbid:
		where := ObjectPath(parents, name)
		if where == "" {
			where = "manifest"
		}
		for _, key := range keys {
			if explained[key] {
				continue
			}
			report.Error(domain.CodeUnexpectedProperty,
				GlueKey(domain.CodeUnexpectedProperty, parents, name),
				domain.KindStructural,
				PathSegments(parents, name, key),
				fmt.Sprintf("Unexpected property `%s` found in `%s`", key, where))
		}
	}
}
