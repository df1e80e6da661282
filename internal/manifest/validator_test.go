package manifest

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/mozilla/firefox-app-validator-manifest/internal/domain"
	"github.com/mozilla/firefox-app-validator-manifest/internal/ruleset"

	"github.com/goccy/go-json"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRules = ruleset.MustDefault()

func newTestValidator() *Validator {
	return NewValidator(testRules)
}

// baseManifest returns a minimal valid manifest with the given fields merged in
func baseManifest(fields map[string]any) map[string]any {
	m := map[string]any{
		"name":        "My App",
		"description": "An app",
	}
	for k, v := range fields {
		m[k] = v
	}
	return m
}

func validate(t *testing.T, fields map[string]any, opts domain.Options) *domain.Result {
	t.Helper()
	return newTestValidator().Validate(baseManifest(fields), opts)
}

func TestValidate_MinimalManifestIsValid(t *testing.T) {
	res := validate(t, nil, domain.Options{})
	assert.True(t, res.Valid(), "%v", res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.Diagnostics)
}

func TestValidate_AcceptsText(t *testing.T) {
	v := newTestValidator()

	res := v.Validate(`{"name":"My App","description":"An app"}`, domain.Options{})
	assert.True(t, res.Valid())

	res = v.Validate([]byte(`{"name":"My App","description":"An app"}`), domain.Options{})
	assert.True(t, res.Valid())

	res = v.Validate(json.RawMessage(`{"name":"My App"}`), domain.Options{})
	assert.True(t, res.HasError("MandatoryFieldDescription"))
}

func TestValidate_InvalidJSONAborts(t *testing.T) {
	res := newTestValidator().Validate(`{"name": "x",`, domain.Options{Listed: true, Packaged: true})

	assert.Equal(t, map[string]string{domain.CodeInvalidJSON: InvalidJSONMessage}, res.Errors)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, domain.KindStructural, res.Diagnostics[0].Kind)
}

func TestValidate_NonObjectRoot(t *testing.T) {
	res := newTestValidator().Validate(`[1, 2, 3]`, domain.Options{Packaged: true})

	assert.Equal(t, "`` must be of type `object`", res.Errors[domain.CodeInvalidPropertyType])
	// rules run against an empty manifest
	assert.True(t, res.HasError(KeyPackagedRequiresLaunchPath))
}

func TestValidate_NormalizesGoValues(t *testing.T) {
	type developer struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	type app struct {
		Name        string    `json:"name"`
		Description string    `json:"description"`
		Developer   developer `json:"developer"`
	}

	res := newTestValidator().Validate(app{Name: "App", Description: "d", Developer: developer{Name: "Dev", URL: "ftp://x"}}, domain.Options{Listed: true})
	assert.Equal(t, map[string]string{
		KeyInvalidDeveloperURL: "Developer URL must be an absolute HTTP or HTTPS URL",
	}, res.Errors)

	res = newTestValidator().Validate(func() {}, domain.Options{})
	assert.True(t, res.HasError(domain.CodeInvalidJSON))
}

func TestValidate_DoesNotMutateInput(t *testing.T) {
	doc := baseManifest(map[string]any{
		"permissions": map[string]any{"contacts": map[string]any{"description": "x"}},
		"type":        "privileged",
	})
	before, err := json.Marshal(doc)
	require.NoError(t, err)

	newTestValidator().Validate(doc, domain.Options{Listed: true, Packaged: true})

	after, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestValidate_MandatoryFields(t *testing.T) {
	v := newTestValidator()

	res := v.Validate(map[string]any{}, domain.Options{})
	assert.Equal(t, "Mandatory field name is missing", res.Errors["MandatoryFieldName"])
	assert.Equal(t, "Mandatory field description is missing", res.Errors["MandatoryFieldDescription"])
	assert.NotContains(t, res.Errors, "MandatoryFieldDeveloper")

	res = v.Validate(map[string]any{}, domain.Options{Listed: true})
	assert.Equal(t, "Mandatory field developer is missing", res.Errors["MandatoryFieldDeveloper"])

	res = v.Validate(map[string]any{"name": "a"}, domain.Options{})
	assert.NotContains(t, res.Errors, "MandatoryFieldName")
	assert.Contains(t, res.Errors, "MandatoryFieldDescription")

	res = validate(t, map[string]any{"developer": map[string]any{"url": "http://example.com"}}, domain.Options{})
	assert.Equal(t, "Mandatory field name is missing", res.Errors["MandatoryFieldDeveloperName"])
}

func TestValidate_UnexpectedRootProperty(t *testing.T) {
	res := validate(t, map[string]any{"bogus": true}, domain.Options{})
	assert.Equal(t, "Unexpected property `bogus` found in `manifest`", res.Errors[domain.CodeUnexpectedProperty])
}

func TestValidate_NameLength(t *testing.T) {
	res := validate(t, map[string]any{"name": strings.Repeat("x", 13)}, domain.Options{})
	assert.True(t, res.Valid())
	assert.True(t, res.HasWarning(KeyNameTooLong))
	assert.Contains(t, res.Warnings[KeyNameTooLong], "longer than 12 characters")

	res = validate(t, map[string]any{"name": strings.Repeat("x", 12)}, domain.Options{})
	assert.Empty(t, res.Warnings)

	// characters, not bytes
	res = validate(t, map[string]any{"name": strings.Repeat("é", 12)}, domain.Options{})
	assert.Empty(t, res.Warnings)
}

func TestValidate_DeveloperURL(t *testing.T) {
	tests := []struct {
		name    string
		url     any
		invalid bool
	}{
		{"https", "https://example.com", false},
		{"http", "http://example.com/dev", false},
		{"relative", "/about", true},
		{"ftp", "ftp://example.com", true},
		{"protocol relative", "//example.com", true},
		{"empty is ignored", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validate(t, map[string]any{"developer": map[string]any{"name": "Dev", "url": tt.url}}, domain.Options{})
			assert.Equal(t, tt.invalid, res.HasError(KeyInvalidDeveloperURL))
		})
	}
}

func TestValidate_LaunchPath(t *testing.T) {
	res := validate(t, nil, domain.Options{Packaged: true})
	assert.Equal(t, "`launch_path` is required when app is packaged", res.Errors[KeyPackagedRequiresLaunchPath])

	res = validate(t, map[string]any{"launch_path": "/index.html"}, domain.Options{Packaged: true})
	assert.True(t, res.Valid())

	res = validate(t, nil, domain.Options{Packaged: false})
	assert.False(t, res.HasError(KeyPackagedRequiresLaunchPath))
}

func TestValidate_Icons(t *testing.T) {
	res := validate(t, map[string]any{"icons": map[string]any{"128": "/path/to/icon.png"}}, domain.Options{Listed: true, Packaged: true})
	for key := range res.Errors {
		assert.NotContains(t, key, "Icon")
	}
	assert.Empty(t, res.Warnings)

	res = validate(t, map[string]any{"icons": map[string]any{"a": ""}}, domain.Options{})
	assert.Equal(t, "Icon size must be a natural number", res.Errors["InvalidIconSizeA"])
	assert.Equal(t, "Paths to icons must be absolute paths, relative URIs, or data URIs", res.Errors["InvalidIconPathA"])

	res = validate(t, map[string]any{"icons": map[string]any{"0": "/a.png", "-16": "/b.png", "32": 5}}, domain.Options{})
	assert.True(t, res.HasError("InvalidIconSize0"))
	assert.True(t, res.HasError("InvalidIconSize-16"))
	assert.True(t, res.HasError("InvalidIconPath32"))
	assert.False(t, res.HasError("InvalidIconSize32"))

	res = validate(t, map[string]any{"icons": map[string]any{"64": "/a.png"}}, domain.Options{Listed: true})
	assert.Equal(t, "`icons` must include a 128x128 icon when app is listed", res.Errors[KeyListedRequires128Icon])

	res = validate(t, map[string]any{"icons": map[string]any{"64": "/a.png"}}, domain.Options{})
	assert.False(t, res.HasError(KeyListedRequires128Icon))
}

func TestValidate_Version(t *testing.T) {
	for _, version := range []string{"1.0", "1.0.0-beta", "2_0,*", " 1.2 "} {
		res := validate(t, map[string]any{"version": version}, domain.Options{})
		assert.False(t, res.HasError(KeyInvalidVersion), version)
	}

	res := validate(t, map[string]any{"version": "v1.0!!"}, domain.Options{})
	assert.Equal(t, "`version` is in an invalid format.", res.Errors[KeyInvalidVersion])
}

func TestValidate_DefaultLocale(t *testing.T) {
	locales := map[string]any{"en": map[string]any{}, "de": map[string]any{}}

	res := validate(t, map[string]any{"locales": locales}, domain.Options{})
	assert.Equal(t, "`default_locale` must match one of the keys in `locales`", res.Errors[KeyInvalidDefaultLocale])

	res = validate(t, map[string]any{"locales": locales, "default_locale": "fr"}, domain.Options{})
	assert.True(t, res.HasError(KeyInvalidDefaultLocale))

	res = validate(t, map[string]any{"locales": locales, "default_locale": "de"}, domain.Options{})
	assert.True(t, res.Valid())

	res = validate(t, map[string]any{"locales": map[string]any{}}, domain.Options{})
	assert.False(t, res.HasError(KeyInvalidDefaultLocale))
}

func TestValidate_InstallsAllowedFrom(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		opts    domain.Options
		wantKey string
	}{
		{"empty", []any{}, domain.Options{}, KeyEmptyInstallsAllowedFrom},
		{"empty listed packaged", []any{}, domain.Options{Listed: true, Packaged: true}, KeyEmptyInstallsAllowedFrom},
		{"non string entry", []any{"https://a.example.com", 5}, domain.Options{}, KeyArrayOfStringsInstallsAllowedFrom},
		{"not an array", "https://marketplace.firefox.com", domain.Options{}, KeyArrayOfStringsInstallsAllowedFrom},
		{"relative url", []any{"/apps"}, domain.Options{}, KeyURLInstallsAllowedFrom},
		{"insecure marketplace", []any{"http://marketplace.firefox.com"}, domain.Options{}, KeySecureMarketplaceURL},
		{"insecure marketplace listed", []any{"http://marketplace.firefox.com"}, domain.Options{Listed: true}, KeySecureMarketplaceURL},
		{"listed without marketplace", []any{"https://store.example.com"}, domain.Options{Listed: true}, KeyListedRequiresMarketplaceURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validate(t, map[string]any{"installs_allowed_from": tt.value, "developer": map[string]any{"name": "Dev"}}, tt.opts)
			assert.True(t, res.HasError(tt.wantKey), "%v", res.Errors)

			count := 0
			for _, d := range res.Diagnostics {
				if d.Kind == domain.KindSemantic && strings.HasSuffix(d.Key, "InstallsAllowedFrom") {
					count++
				}
			}
			assert.Equal(t, 1, count, "one violation per call: %v", res.Errors)
		})
	}

	res := validate(t, map[string]any{"installs_allowed_from": []any{}}, domain.Options{})
	assert.Equal(t, "`installs_allowed_from` cannot be empty when present", res.Errors[KeyEmptyInstallsAllowedFrom])

	res = validate(t, map[string]any{"installs_allowed_from": []any{"http://marketplace.firefox.com"}}, domain.Options{})
	assert.Equal(t, "`installs_allowed_from` must use https:// when Marketplace URLs are included", res.Errors[KeySecureMarketplaceURL])

	for _, ok := range [][]any{{"*"}, {"https://marketplace.firefox.com"}, {"https://store.example.com", "https://marketplace.allizom.org"}} {
		res = validate(t, map[string]any{"installs_allowed_from": ok, "developer": map[string]any{"name": "Dev"}}, domain.Options{Listed: true})
		assert.True(t, res.Valid(), "%v: %v", ok, res.Errors)
	}
}

func TestValidate_Messages(t *testing.T) {
	res := validate(t, map[string]any{"messages": []any{map[string]any{"alarm": "/a"}, map[string]any{"sms": "/b", "push": "/c"}}}, domain.Options{})
	assert.Equal(t, "objects in array `messages` must each have only one property", res.Errors[KeyInvalidMessagesEntry])

	res = validate(t, map[string]any{"messages": []any{map[string]any{"alarm": "/a"}}}, domain.Options{})
	assert.True(t, res.Valid())
}

func TestValidate_Type(t *testing.T) {
	res := validate(t, map[string]any{"type": "certified", "developer": map[string]any{"name": "Dev"}}, domain.Options{Listed: true})
	assert.Equal(t, "`certified` apps cannot be listed", res.Errors[KeyTypeCertifiedListed])

	res = validate(t, map[string]any{"type": "certified", "launch_path": "/index.html"}, domain.Options{Listed: false, Packaged: true})
	assert.False(t, res.HasError(KeyTypeCertifiedListed))
	assert.True(t, res.Valid(), "%v", res.Errors)

	res = validate(t, map[string]any{"type": "privileged"}, domain.Options{})
	assert.Equal(t, "unpackaged web apps may not have a type of `certified` or `privileged`", res.Errors[KeyTypeWebPrivileged])

	res = validate(t, map[string]any{"type": "web"}, domain.Options{})
	assert.True(t, res.Valid())
}

func TestValidate_AppCachePath(t *testing.T) {
	res := validate(t, map[string]any{"appcache_path": "https://example.com/cache.manifest", "launch_path": "/"}, domain.Options{Packaged: true})
	assert.True(t, res.HasError(KeyAppCachePathType))
	assert.False(t, res.HasError(KeyAppCachePathURL))

	res = validate(t, map[string]any{"appcache_path": "/cache.manifest"}, domain.Options{})
	assert.False(t, res.HasError(KeyAppCachePathType))
	assert.Equal(t, "The `appcache_path` must be a full, absolute URL to the application cache manifest", res.Errors[KeyAppCachePathURL])

	res = validate(t, map[string]any{"appcache_path": "https://example.com/cache.manifest"}, domain.Options{})
	assert.True(t, res.Valid())
}

func TestValidate_Origin(t *testing.T) {
	privileged := func(origin string) map[string]any {
		return map[string]any{"origin": origin, "type": "privileged", "launch_path": "/"}
	}
	packaged := domain.Options{Packaged: true}

	res := validate(t, map[string]any{"origin": "app://example.com"}, domain.Options{})
	assert.Equal(t, "Apps that are not privileged may not use the `origin` field of the manifest", res.Errors[KeyOriginType])
	assert.False(t, res.HasError(KeyOriginFormat))

	res = validate(t, privileged("app://example.com"), packaged)
	assert.True(t, res.Valid(), "%v", res.Errors)

	res = validate(t, privileged("http://example.com"), packaged)
	assert.Equal(t, "Origin format is invalid", res.Errors[KeyOriginFormat])

	res = validate(t, privileged("app://mozilla.org"), packaged)
	assert.Equal(t, "App origins may not reference any of the following: gaiamobile.org,mozilla.com,mozilla.org", res.Errors[KeyOriginReference])
	assert.False(t, res.HasError(KeyOriginFormat))
}

func TestValidate_PrivilegedOnlyFields(t *testing.T) {
	redirects := []any{map[string]any{"from": "/a", "to": "/b"}}

	res := validate(t, map[string]any{"redirects": redirects, "role": "homescreen"}, domain.Options{})
	assert.Equal(t, "Apps that are not privileged may not use the `redirects` field of the manifest", res.Errors[KeyRedirectsType])
	assert.Equal(t, "Apps that are not privileged may not use the `role` field of the manifest", res.Errors[KeyRoleType])

	res = validate(t, map[string]any{"redirects": redirects, "role": "homescreen", "type": "certified", "launch_path": "/"}, domain.Options{Packaged: true})
	assert.True(t, res.Valid(), "%v", res.Errors)
}

func TestValidate_Precompile(t *testing.T) {
	res := validate(t, map[string]any{"precompile": []any{"lib.js"}}, domain.Options{})
	assert.Equal(t, "Apps that are not packaged may not use the `precompile` field of the manifest", res.Errors[KeyPrecompileType])

	res = validate(t, map[string]any{"precompile": []any{"lib.js"}, "launch_path": "/"}, domain.Options{Packaged: true})
	assert.True(t, res.Valid())
}

func TestValidate_Permissions(t *testing.T) {
	packaged := domain.Options{Packaged: true}

	t.Run("allowed web permission", func(t *testing.T) {
		res := validate(t, map[string]any{"permissions": map[string]any{
			"geolocation": map[string]any{"description": "maps"},
		}}, domain.Options{})
		assert.True(t, res.Valid(), "%v", res.Errors)
	})

	t.Run("permission not allowed for type", func(t *testing.T) {
		res := validate(t, map[string]any{"permissions": map[string]any{
			"camera": map[string]any{"description": "photos"},
		}}, domain.Options{})
		assert.Contains(t, res.Errors["InvalidPermissionForTypeWeb"], "Permissions for type `web` must be one of alarms, audio-capture")
	})

	t.Run("missing description", func(t *testing.T) {
		res := validate(t, map[string]any{"permissions": map[string]any{
			"geolocation": map[string]any{},
		}}, domain.Options{})
		assert.Equal(t, "Mandatory field description is missing", res.Errors["MandatoryFieldPermissionsGeolocationDescription"])
	})

	t.Run("unexpected property", func(t *testing.T) {
		res := validate(t, map[string]any{"permissions": map[string]any{
			"geolocation": map[string]any{"description": "maps", "access": "readonly"},
		}}, domain.Options{})
		assert.Equal(t, "Unexpected property `access` found in `permissions.geolocation`", res.Errors["UnexpectedPropertyPermissionsGeolocation"])
	})

	t.Run("access controlled", func(t *testing.T) {
		base := map[string]any{"type": "privileged", "launch_path": "/"}

		fields := baseManifest(base)
		fields["permissions"] = map[string]any{"contacts": map[string]any{"description": "sync"}}
		res := newTestValidator().Validate(fields, packaged)
		assert.Equal(t, "Mandatory field access is missing", res.Errors["MandatoryFieldPermissionsContactsAccess"])

		fields["permissions"] = map[string]any{"contacts": map[string]any{"description": "sync", "access": "readwrite"}}
		res = newTestValidator().Validate(fields, packaged)
		assert.True(t, res.Valid(), "%v", res.Errors)

		fields["permissions"] = map[string]any{"contacts": map[string]any{"description": "sync", "access": "delete"}}
		res = newTestValidator().Validate(fields, packaged)
		assert.Equal(t, "`access` must be one of the following: readonly,readwrite,readcreate,createonly", res.Errors["InvalidStringTypePermissionsContactsAccess"])
	})

	t.Run("settings has restricted modes", func(t *testing.T) {
		fields := baseManifest(map[string]any{"type": "certified", "launch_path": "/"})
		fields["permissions"] = map[string]any{"settings": map[string]any{"description": "d", "access": "readcreate"}}
		res := newTestValidator().Validate(fields, packaged)
		assert.Equal(t, "`access` must be one of the following: readonly,readwrite", res.Errors["InvalidStringTypePermissionsSettingsAccess"])
	})

	t.Run("access schema does not leak between permissions", func(t *testing.T) {
		fields := baseManifest(map[string]any{"type": "privileged", "launch_path": "/"})
		fields["permissions"] = map[string]any{
			"contacts": map[string]any{"description": "sync", "access": "readonly"},
			"camera":   map[string]any{"description": "photos"},
		}
		res := newTestValidator().Validate(fields, packaged)
		assert.True(t, res.Valid(), "%v", res.Errors)
	})

	t.Run("unknown type skips the rule", func(t *testing.T) {
		res := validate(t, map[string]any{"type": "system", "permissions": map[string]any{
			"camera": map[string]any{},
		}}, domain.Options{})
		for key := range res.Errors {
			assert.NotContains(t, key, "Permission")
		}
	})
}

func TestValidate_ActivityFilters(t *testing.T) {
	activity := func(filters map[string]any) map[string]any {
		return map[string]any{"activities": map[string]any{
			"share": map[string]any{"href": "/share.html", "filters": filters},
		}}
	}

	t.Run("valid filters", func(t *testing.T) {
		res := validate(t, activity(map[string]any{
			"type":   []any{"image/png", "image/jpeg"},
			"number": "1",
			"url":    map[string]any{"required": true, "pattern": "https?:.{1,16384}", "patternFlags": "i"},
			"size":   map[string]any{"min": 1, "max": 10, "value": []any{"a", "b"}},
			"name":   map[string]any{"value": "x"},
		}), domain.Options{})
		assert.True(t, res.Valid(), "%v", res.Errors)
	})

	t.Run("scalar filter", func(t *testing.T) {
		res := validate(t, activity(map[string]any{"type": 5.0}), domain.Options{})
		assert.Equal(t, "Activity filters must be of type `array`, `string`, or `object`", res.Errors[KeyActivitiesFilter])
	})

	t.Run("null filter", func(t *testing.T) {
		res := validate(t, activity(map[string]any{"type": nil}), domain.Options{})
		assert.True(t, res.HasError(KeyActivitiesFilter))
	})

	t.Run("object filter schema", func(t *testing.T) {
		res := validate(t, activity(map[string]any{
			"url": map[string]any{"required": "yes", "patternFlags": "igmyx", "extra": 1},
		}), domain.Options{})
		assert.Equal(t, "`required` must be of type `boolean`", res.Errors["InvalidPropertyTypeFiltersShareUrlRequired"])
		assert.Equal(t, "`patternFlags` must not exceed length 4", res.Errors["InvalidPropertyLengthFiltersShareUrlPatternFlags"])
		assert.Equal(t, "`patternFlags` must match the pattern /^[igmy]+$/", res.Errors["InvalidStringPatternFiltersShareUrlPatternFlags"])
		assert.Equal(t, "Unexpected property `extra` found in `filters.share.url`", res.Errors["UnexpectedPropertyFiltersShareUrl"])
	})

	t.Run("filter value", func(t *testing.T) {
		res := validate(t, activity(map[string]any{"type": map[string]any{"value": 5.0}}), domain.Options{})
		assert.Equal(t, "Activity filter value property must be of type `array` or `string`", res.Errors[KeyActivitiesFilterValue])

		res = validate(t, activity(map[string]any{"type": map[string]any{"value": []any{"a", 1.0}}}), domain.Options{})
		assert.Equal(t, "items of array `value` must be of type `string`", res.Errors["InvalidItemTypeFiltersShareValue"])
	})
}

func TestValidate_DiagnosticsListKeepsCollisions(t *testing.T) {
	res := validate(t, map[string]any{"bogus": 1, "other": 2}, domain.Options{})

	assert.Len(t, res.Errors, 1)
	unexpected := 0
	for _, d := range res.Diagnostics {
		if d.Code == domain.CodeUnexpectedProperty {
			unexpected++
		}
	}
	assert.Equal(t, 2, unexpected)
}

func TestValidate_ConcurrentUse(t *testing.T) {
	v := newTestValidator()
	var wg sync.WaitGroup
	results := make([]*domain.Result, 16)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fields := map[string]any{}
			if i%2 == 0 {
				fields["version"] = "bad version!"
			}
			results[i] = v.Validate(baseManifest(fields), domain.Options{})
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		assert.Equal(t, i%2 == 0, res.HasError(KeyInvalidVersion), "call %d", i)
		assert.Equal(t, i%2 != 0, res.Valid(), "call %d", i)
	}
}

func TestValidator_HealthAndStats(t *testing.T) {
	v := newTestValidator()
	v.Validate(`not json`, domain.Options{})
	v.Validate(baseManifest(nil), domain.Options{})
	v.Validate(map[string]any{}, domain.Options{})

	health := v.HealthCheck(context.Background())
	assert.Equal(t, domain.HealthStatusHealthy, health.Status)

	stats := v.GetStats(context.Background())
	assert.Equal(t, int64(3), stats["validations"])
	assert.Equal(t, int64(2), stats["invalid"])
	assert.Equal(t, int64(1), stats["parse_failures"])
	assert.Len(t, stats["semantic_rules"], 16)
}

func TestRules_Order(t *testing.T) {
	names := make([]string, 0, 16)
	for _, r := range Rules() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{
		"name_length", "developer_url", "launch_path", "icons", "version", "default_locale",
		"installs_allowed_from", "messages", "type", "appcache_path", "origin", "redirects",
		"role", "precompile", "permissions", "activities",
	}, names)
}

// Feature: manifest validation, Property 1: validating twice yields identical diagnostics
func TestProperty_ValidateIsIdempotent(t *testing.T) {
	v := newTestValidator()

	properties := gopter.NewProperties(nil)
	properties.Property("Identical input and options give identical results", prop.ForAll(
		func(name, version string, listed, packaged bool, extra []string) bool {
			doc := map[string]any{"name": name, "version": version}
			for _, k := range extra {
				doc[k] = k
			}
			opts := domain.Options{Listed: listed, Packaged: packaged}

			first, _ := json.Marshal(v.Validate(doc, opts))
			second, _ := json.Marshal(v.Validate(doc, opts))
			return string(first) == string(second)
		},
		gen.AlphaString(),
		gen.AnyString(),
		gen.Bool(),
		gen.Bool(),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: manifest validation, Property 2: version format
func TestProperty_VersionPattern(t *testing.T) {
	v := newTestValidator()

	properties := gopter.NewProperties(nil)
	properties.Property("Versions built from the allowed alphabet are accepted", prop.ForAll(
		func(version string) bool {
			res := v.Validate(baseManifest(map[string]any{"version": version}), domain.Options{})
			return !res.HasError(KeyInvalidVersion)
		},
		gen.RegexMatch(`[a-zA-Z0-9_,*\-.]{1,16}`),
	))
	properties.Property("Versions containing a forbidden character are rejected", prop.ForAll(
		func(prefix, bad string) bool {
			res := v.Validate(baseManifest(map[string]any{"version": prefix + bad}), domain.Options{})
			return res.HasError(KeyInvalidVersion)
		},
		gen.AlphaString(),
		gen.OneConstOf("!", "@", "#", "/", "+", "~"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: manifest validation, Property 3: name length warning threshold
func TestProperty_NameLengthWarning(t *testing.T) {
	v := newTestValidator()

	properties := gopter.NewProperties(nil)
	properties.Property("A warning is produced exactly when the name exceeds 12 characters", prop.ForAll(
		func(n int) bool {
			res := v.Validate(baseManifest(map[string]any{"name": strings.Repeat("x", n)}), domain.Options{})
			return res.HasWarning(KeyNameTooLong) == (n > 12) && !res.HasError(KeyNameTooLong)
		},
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
