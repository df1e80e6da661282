package schema

import (
	"strings"
	"testing"

	"github.com/mozilla/firefox-app-validator-manifest/internal/domain"

	"github.com/goccy/go-json"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, doc string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(doc), &v))
	return v
}

func walk(t *testing.T, schemaDoc, doc string, opts domain.Options, extra ...string) *domain.Result {
	t.Helper()
	node, err := Parse([]byte(schemaDoc))
	require.NoError(t, err)

	report := domain.NewReport()
	NewWalker(opts, extra).Walk(report, decode(t, doc), node, "", nil)
	return report.Result()
}

func TestWalk_TypeMismatchHaltsNode(t *testing.T) {
	res := walk(t, `{"type":"object","properties":{"name":{"type":"string","minLength":5}}}`,
		`{"name": 42}`, domain.Options{})

	assert.Equal(t, map[string]string{
		"InvalidPropertyTypeName": "`name` must be of type `string`",
	}, res.Errors)
}

func TestWalk_RootTypeMismatch(t *testing.T) {
	res := walk(t, `{"type":"object","required":["name"]}`, `[1,2]`, domain.Options{})

	assert.True(t, res.HasError("InvalidPropertyType"))
	assert.Len(t, res.Errors, 1)
}

func TestWalk_NumberAcceptsNumericText(t *testing.T) {
	schemaDoc := `{"type":"object","properties":{"min_width":{"type":"number"}}}`

	assert.True(t, walk(t, schemaDoc, `{"min_width": 320}`, domain.Options{}).Valid())
	assert.True(t, walk(t, schemaDoc, `{"min_width": "320"}`, domain.Options{}).Valid())
	assert.True(t, walk(t, schemaDoc, `{"min_width": 1.5}`, domain.Options{}).Valid())

	res := walk(t, schemaDoc, `{"min_width": "wide"}`, domain.Options{})
	assert.True(t, res.HasError("InvalidPropertyTypeMinWidth"))

	res = walk(t, schemaDoc, `{"min_width": -1}`, domain.Options{})
	assert.True(t, res.HasError("InvalidPropertyTypeMinWidth"))
}

func TestWalk_OneOf(t *testing.T) {
	schemaDoc := `{"type":"object","properties":{"type":{"type":"string","oneOf":["web","privileged","certified"]}}}`

	assert.True(t, walk(t, schemaDoc, `{"type":"web"}`, domain.Options{}).Valid())

	res := walk(t, schemaDoc, `{"type":"system"}`, domain.Options{})
	assert.Equal(t, "`type` must be one of the following: web,privileged,certified", res.Errors["InvalidStringTypeType"])
}

func TestWalk_AnyOfSingleDiagnostic(t *testing.T) {
	schemaDoc := `{"type":"object","properties":{"orientation":{"type":"string","anyOf":["portrait","landscape"]}}}`

	assert.True(t, walk(t, schemaDoc, `{"orientation":"portrait, landscape"}`, domain.Options{}).Valid())

	res := walk(t, schemaDoc, `{"orientation":"up,down,portrait"}`, domain.Options{})
	assert.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "`orientation` must be any of the following: portrait,landscape", res.Errors["InvalidStringTypeOrientation"])
}

func TestWalk_LengthBounds(t *testing.T) {
	schemaDoc := `{"type":"object","properties":{"csp":{"type":"string","minLength":2,"maxLength":4}}}`

	res := walk(t, schemaDoc, `{"csp":"a"}`, domain.Options{})
	assert.Equal(t, "`csp` must be at least 2 in length", res.Errors["InvalidPropertyLengthCsp"])

	res = walk(t, schemaDoc, `{"csp":"abcde"}`, domain.Options{})
	assert.Equal(t, "`csp` must not exceed length 4", res.Errors["InvalidPropertyLengthCsp"])

	// length counts characters, not bytes
	assert.True(t, walk(t, schemaDoc, `{"csp":"ééé"}`, domain.Options{}).Valid())
}

func TestWalk_PatternIsNotAnchored(t *testing.T) {
	schemaDoc := `{"type":"object","properties":{"code":{"type":"string","pattern":"[0-9]"}}}`

	assert.True(t, walk(t, schemaDoc, `{"code":"abc1def"}`, domain.Options{}).Valid())

	res := walk(t, schemaDoc, `{"code":"abc"}`, domain.Options{})
	assert.Equal(t, "`code` must match the pattern /[0-9]/", res.Errors["InvalidStringPatternCode"])
}

func TestWalk_ItemsTypeAndRecursion(t *testing.T) {
	schemaDoc := `{"type":"object","properties":{"redirects":{"type":"array","items":{"type":"object","required":["to","from"],"additionalProperties":false,"properties":{"to":{"type":"string"},"from":{"type":"string"}}}}}}`

	res := walk(t, schemaDoc, `{"redirects":[{"to":"/a","from":"/b"},{"to":"/c"},"oops",{"to":"/d","from":"/e","via":"/f"}]}`, domain.Options{})

	assert.Equal(t, "Mandatory field from is missing", res.Errors["MandatoryFieldRedirectsItemFrom"])
	assert.Equal(t, "items of array `redirects` must be of type `object`", res.Errors["InvalidItemTypeRedirects"])
	assert.Equal(t, "Unexpected property `via` found in `redirects.3`", res.Errors["UnexpectedPropertyRedirectsItem"])
	assert.Len(t, res.Diagnostics, 3)
}

func TestWalk_TupleItemsIgnored(t *testing.T) {
	schemaDoc := `{"type":"object","properties":{"list":{"type":"array","items":[{"type":"string"}]}}}`
	assert.True(t, walk(t, schemaDoc, `{"list":[1,2,3]}`, domain.Options{}).Valid())
}

func TestWalk_RequiredTreatsFalsyAsMissing(t *testing.T) {
	schemaDoc := `{"type":"object","required":["name","description","developer"]}`

	res := walk(t, schemaDoc, `{"name":"","description":"d","developer":0}`, domain.Options{})
	assert.Equal(t, map[string]string{
		"MandatoryFieldName":      "Mandatory field name is missing",
		"MandatoryFieldDeveloper": "Mandatory field developer is missing",
	}, res.Errors)
}

func TestWalk_ListedExtendsRootRequired(t *testing.T) {
	schemaDoc := `{"type":"object","required":["name"],"properties":{"developer":{"type":"object","required":["name"]}}}`

	res := walk(t, schemaDoc, `{"name":"app"}`, domain.Options{Listed: true}, "developer")
	assert.True(t, res.HasError("MandatoryFieldDeveloper"))

	res = walk(t, schemaDoc, `{"name":"app"}`, domain.Options{Listed: false}, "developer")
	assert.True(t, res.Valid())

	// nested objects never pick up the root extension
	res = walk(t, schemaDoc, `{"name":"app","developer":{"name":"dev"}}`, domain.Options{Listed: true}, "developer")
	assert.True(t, res.Valid())
}

func TestWalk_PropertyCount(t *testing.T) {
	schemaDoc := `{"type":"object","properties":{"screen_size":{"type":"object","minProperties":1,"maxProperties":2}}}`

	res := walk(t, schemaDoc, `{"screen_size":{}}`, domain.Options{})
	assert.Equal(t, "`screen_size` must have at least 1 properties.", res.Errors["InvalidPropertyCountScreenSize"])

	res = walk(t, schemaDoc, `{"screen_size":{"a":1,"b":2,"c":3}}`, domain.Options{})
	assert.Equal(t, "`screen_size` must have no more than 2 properties.", res.Errors["InvalidPropertyCountScreenSize"])
}

func TestWalk_AdditionalPropertiesPolicies(t *testing.T) {
	t.Run("forbid", func(t *testing.T) {
		res := walk(t, `{"type":"object","additionalProperties":false,"properties":{"name":{"type":"string"}},"patternProperties":{"^x-":{"type":"string"}}}`,
			`{"name":"a","x-custom":"b","bogus":1}`, domain.Options{})
		assert.Equal(t, map[string]string{
			"UnexpectedProperty": "Unexpected property `bogus` found in `manifest`",
		}, res.Errors)
	})

	t.Run("schema", func(t *testing.T) {
		res := walk(t, `{"type":"object","properties":{"locales":{"type":"object","additionalProperties":{"type":"object"}}}}`,
			`{"locales":{"en":{},"de":"nope"}}`, domain.Options{})
		assert.Equal(t, map[string]string{
			"InvalidPropertyTypeLocalesDe": "`de` must be of type `object`",
		}, res.Errors)
	})

	t.Run("allow", func(t *testing.T) {
		res := walk(t, `{"type":"object","additionalProperties":true}`, `{"anything":1}`, domain.Options{})
		assert.True(t, res.Valid())
	})

	t.Run("pattern properties type", func(t *testing.T) {
		res := walk(t, `{"type":"object","patternProperties":{"^[0-9]+$":{"type":"string"}}}`, `{"16":1,"name":1}`, domain.Options{})
		assert.Equal(t, map[string]string{
			"InvalidPropertyTypeItem": "`16` must be of type `string`",
		}, res.Errors)
	})
}

func TestWalk_NilNodeIsNoop(t *testing.T) {
	report := domain.NewReport()
	NewWalker(domain.Options{}, nil).Walk(report, "x", nil, "v", nil)
	assert.Equal(t, 0, report.Len())
}

func TestWalk_DoesNotMutateInput(t *testing.T) {
	doc := decode(t, `{"name":"a","permissions":{"contacts":{"description":"x"}}}`)
	before, err := json.Marshal(doc)
	require.NoError(t, err)

	node := MustParse(`{"type":"object","additionalProperties":false,"properties":{"name":{"type":"string"}}}`)
	NewWalker(domain.Options{Listed: true}, []string{"developer"}).Walk(domain.NewReport(), doc, node, "", nil)

	after, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(`{"pattern":"("}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"patternProperties":{"[":{}}}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"items":"string"}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"additionalProperties":"no"}`))
	assert.Error(t, err)
}

func TestNode_MarshalRoundTrip(t *testing.T) {
	doc := `{"type":"object","required":["a"],"additionalProperties":false,"properties":{"a":{"type":"array","items":{"type":"string"}},"b":{"type":"object","additionalProperties":{"type":"number"}}}}`
	node := MustParse(doc)

	out, err := json.Marshal(node)
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(out))
}

func TestNode_CloneAndCompile(t *testing.T) {
	base := MustParse(`{"type":"object","required":["description"],"properties":{"description":{"type":"string"}}}`)

	derived := base.Clone()
	derived.Required = append(derived.Required, "access")
	derived.Properties["access"] = &Node{Type: "string", Pattern: "^read"}
	require.NoError(t, derived.Compile())

	assert.Equal(t, []string{"description"}, base.Required)
	assert.Nil(t, base.Property("access"))
	assert.NotNil(t, derived.Property("access"))

	res := domain.NewReport()
	NewWalker(domain.Options{}, nil).Walk(res, map[string]any{"description": "d", "access": "write"}, derived, "contacts", []string{"permissions"})
	assert.True(t, res.Result().HasError("InvalidStringPatternPermissionsContactsAccess"))
}

func TestGlueKey(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		parents []string
		rest    []string
		want    string
	}{
		{"root", "InvalidPropertyType", nil, []string{""}, "InvalidPropertyType"},
		{"snake case", "MandatoryField", []string{"", "screen_size"}, []string{"min_width"}, "MandatoryFieldScreenSizeMinWidth"},
		{"numeric segment", "InvalidPropertyType", []string{"", "redirects"}, []string{"0"}, "InvalidPropertyTypeRedirectsItem"},
		{"hyphen kept", "InvalidPropertyType", []string{"permissions"}, []string{"device-storage:apps"}, "InvalidPropertyTypePermissionsDevice-storage:apps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GlueKey(tt.prefix, tt.parents, tt.rest...))
		})
	}
}

func TestCamelCase(t *testing.T) {
	assert.Equal(t, "LaunchPath", CamelCase("launch_path"))
	assert.Equal(t, "Name", CamelCase("name"))
	assert.Equal(t, "InstallsAllowedFrom", CamelCase("installs_allowed_from"))
	assert.Equal(t, "", CamelCase(""))
}

func TestObjectPath(t *testing.T) {
	assert.Equal(t, "filters.share.type", ObjectPath([]string{"", "filters", "share"}, "type"))
	assert.Equal(t, "", ObjectPath(nil, ""))
}

// Feature: schema walker, Property 1: walking is deterministic and leaves no state behind
func TestProperty_WalkIsDeterministic(t *testing.T) {
	node := MustParse(`{"type":"object","required":["name"],"additionalProperties":false,"properties":{"name":{"type":"string","maxLength":5}}}`)
	walker := NewWalker(domain.Options{}, nil)

	properties := gopter.NewProperties(nil)
	properties.Property("Two walks of the same document produce identical diagnostics", prop.ForAll(
		func(keys []string, name string) bool {
			doc := map[string]any{"name": name}
			for _, k := range keys {
				doc[k] = k
			}

			r1 := domain.NewReport()
			walker.Walk(r1, doc, node, "", nil)
			r2 := domain.NewReport()
			walker.Walk(r2, doc, node, "", nil)

			a, _ := json.Marshal(r1.Result())
			b, _ := json.Marshal(r2.Result())
			return string(a) == string(b)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: schema walker, Property 2: keys never contain numeric segments
func TestProperty_NumericSegmentsCollapse(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("Numeric path segments render as Item", prop.ForAll(
		func(n uint16, field string) bool {
			key := GlueKey("InvalidPropertyType", []string{"", field}, strings.Repeat("1", int(n%5)+1))
			return strings.HasSuffix(key, "Item")
		},
		gen.UInt16(),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
