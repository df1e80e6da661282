// Package schema implements the declarative rule dialect used to describe the
// expected shape of a manifest, and the walker that applies it to decoded JSON.
package schema

import (
	"fmt"
	"maps"
	"regexp"
	"slices"

	"github.com/goccy/go-json"
)

// AdditionalMode is the policy applied to keys not declared in properties
type AdditionalMode int

const (
	// AdditionalUnset permits unlisted keys without checking them
	AdditionalUnset AdditionalMode = iota
	// AdditionalAllow is an explicit `true`; behaves like AdditionalUnset
	AdditionalAllow
	// AdditionalForbid is an explicit `false`: unexplained keys are errors
	AdditionalForbid
	// AdditionalSchema applies Additional.Schema to every key not in properties
	AdditionalSchema
)

// Additional is the tagged additionalProperties value
type Additional struct {
	Mode   AdditionalMode
	Schema *Node
}

// Node is one immutable constraint description. Build nodes by decoding rule
// documents or with Compile after constructing them in code.
type Node struct {
	Type              string
	Required          []string
	Properties        map[string]*Node
	PatternProperties map[string]*Node
	Additional        Additional
	MinProperties     *int
	MaxProperties     *int
	MinLength         int
	MaxLength         int
	Pattern           string
	OneOf             []string
	AnyOf             []string
	Items             *Node

	// TupleItems records an array-form items schema, which the walker ignores.
	TupleItems bool

	pattern  *regexp.Regexp
	patterns map[string]*regexp.Regexp
}

type rawNode struct {
	Type                 string           `json:"type,omitempty"`
	Required             []string         `json:"required,omitempty"`
	Properties           map[string]*Node `json:"properties,omitempty"`
	PatternProperties    map[string]*Node `json:"patternProperties,omitempty"`
	AdditionalProperties json.RawMessage  `json:"additionalProperties,omitempty"`
	MinProperties        *int             `json:"minProperties,omitempty"`
	MaxProperties        *int             `json:"maxProperties,omitempty"`
	MinLength            int              `json:"minLength,omitempty"`
	MaxLength            int              `json:"maxLength,omitempty"`
	Pattern              string           `json:"pattern,omitempty"`
	OneOf                []string         `json:"oneOf,omitempty"`
	AnyOf                []string         `json:"anyOf,omitempty"`
	Items                json.RawMessage  `json:"items,omitempty"`
}

// Parse decodes and compiles a schema node from JSON
func Parse(data []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// MustParse is Parse for schemas known at compile time
func MustParse(data string) *Node {
	n, err := Parse([]byte(data))
	if err != nil {
		panic(fmt.Sprintf("schema: %v", err))
	}
	return n
}

// UnmarshalJSON decodes the dialect and compiles its regular expressions
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*n = Node{
		Type:              raw.Type,
		Required:          raw.Required,
		Properties:        raw.Properties,
		PatternProperties: raw.PatternProperties,
		MinProperties:     raw.MinProperties,
		MaxProperties:     raw.MaxProperties,
		MinLength:         raw.MinLength,
		MaxLength:         raw.MaxLength,
		Pattern:           raw.Pattern,
		OneOf:             raw.OneOf,
		AnyOf:             raw.AnyOf,
	}

	additional, err := decodeAdditional(raw.AdditionalProperties)
	if err != nil {
		return err
	}
	n.Additional = additional

	if len(raw.Items) > 0 {
		switch raw.Items[0] {
		case '{':
			var items Node
			if err := json.Unmarshal(raw.Items, &items); err != nil {
				return fmt.Errorf("items: %w", err)
			}
			n.Items = &items
		case '[':
			n.TupleItems = true
		default:
			return fmt.Errorf("items must be an object or an array")
		}
	}

	return n.compileSelf()
}

func decodeAdditional(data json.RawMessage) (Additional, error) {
	if len(data) == 0 || string(data) == "null" {
		return Additional{Mode: AdditionalUnset}, nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			return Additional{Mode: AdditionalAllow}, nil
		}
		return Additional{Mode: AdditionalForbid}, nil
	}

	var s Node
	if err := json.Unmarshal(data, &s); err != nil {
		return Additional{}, fmt.Errorf("additionalProperties: %w", err)
	}
	return Additional{Mode: AdditionalSchema, Schema: &s}, nil
}

// MarshalJSON renders the node back into the dialect
func (n *Node) MarshalJSON() ([]byte, error) {
	raw := rawNode{
		Type:              n.Type,
		Required:          n.Required,
		Properties:        n.Properties,
		PatternProperties: n.PatternProperties,
		MinProperties:     n.MinProperties,
		MaxProperties:     n.MaxProperties,
		MinLength:         n.MinLength,
		MaxLength:         n.MaxLength,
		Pattern:           n.Pattern,
		OneOf:             n.OneOf,
		AnyOf:             n.AnyOf,
	}

	switch n.Additional.Mode {
	case AdditionalAllow:
		raw.AdditionalProperties = json.RawMessage("true")
	case AdditionalForbid:
		raw.AdditionalProperties = json.RawMessage("false")
	case AdditionalSchema:
		data, err := json.Marshal(n.Additional.Schema)
		if err != nil {
			return nil, err
		}
		raw.AdditionalProperties = data
	}

	if n.Items != nil {
		data, err := json.Marshal(n.Items)
		if err != nil {
			return nil, err
		}
		raw.Items = data
	}

	return json.Marshal(raw)
}

// Compile compiles the regular expressions of n and all of its descendants.
// Nodes decoded from JSON are already compiled.
func (n *Node) Compile() error {
	if n == nil {
		return nil
	}
	if err := n.compileSelf(); err != nil {
		return err
	}
	for _, k := range sortedKeys(n.Properties) {
		if err := n.Properties[k].Compile(); err != nil {
			return fmt.Errorf("properties.%s: %w", k, err)
		}
	}
	for _, k := range sortedKeys(n.PatternProperties) {
		if err := n.PatternProperties[k].Compile(); err != nil {
			return fmt.Errorf("patternProperties.%s: %w", k, err)
		}
	}
	if err := n.Additional.Schema.Compile(); err != nil {
		return fmt.Errorf("additionalProperties: %w", err)
	}
	if err := n.Items.Compile(); err != nil {
		return fmt.Errorf("items: %w", err)
	}
	return nil
}

func (n *Node) compileSelf() error {
	if n.Pattern != "" {
		re, err := regexp.Compile(n.Pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", n.Pattern, err)
		}
		n.pattern = re
	}

	if len(n.PatternProperties) > 0 {
		n.patterns = make(map[string]*regexp.Regexp, len(n.PatternProperties))
		for p := range n.PatternProperties {
			re, err := regexp.Compile(p)
			if err != nil {
				return fmt.Errorf("invalid patternProperties key %q: %w", p, err)
			}
			n.patterns[p] = re
		}
	}
	return nil
}

// Clone returns a copy of n whose top-level slices and maps can be modified
// without affecting n. Child nodes are shared.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Required = slices.Clone(n.Required)
	c.Properties = maps.Clone(n.Properties)
	c.PatternProperties = maps.Clone(n.PatternProperties)
	c.OneOf = slices.Clone(n.OneOf)
	c.AnyOf = slices.Clone(n.AnyOf)
	c.patterns = maps.Clone(n.patterns)
	return &c
}

// Property returns the declared child schema for key, if any
func (n *Node) Property(key string) *Node {
	if n == nil {
		return nil
	}
	return n.Properties[key]
}

func (n *Node) patternRegexp() *regexp.Regexp {
	if n.pattern != nil {
		return n.pattern
	}
	re, err := regexp.Compile(n.Pattern)
	if err != nil {
		return nil
	}
	return re
}

func (n *Node) patternPropertyRegexp(p string) *regexp.Regexp {
	if re, ok := n.patterns[p]; ok {
		return re
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil
	}
	return re
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
