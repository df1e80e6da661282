package manifest

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mozilla/firefox-app-validator-manifest/internal/domain"
	"github.com/mozilla/firefox-app-validator-manifest/internal/ruleset"
	"github.com/mozilla/firefox-app-validator-manifest/internal/schema"
)

// Diagnostic keys produced by the semantic rules
const (
	KeyNameTooLong                       = "PropertyLengthTooLongName"
	KeyInvalidDeveloperURL               = "InvalidDeveloperUrl"
	KeyPackagedRequiresLaunchPath        = "InvalidPackagedRequiresLaunchPath"
	KeyListedRequires128Icon             = "InvalidListedRequires128Icon"
	KeyInvalidVersion                    = "InvalidVersion"
	KeyInvalidDefaultLocale              = "InvalidDefaultLocale"
	KeyEmptyInstallsAllowedFrom          = "InvalidEmptyInstallsAllowedFrom"
	KeyArrayOfStringsInstallsAllowedFrom = "InvalidArrayOfStringsInstallsAllowedFrom"
	KeyURLInstallsAllowedFrom            = "InvalidUrlInstallsAllowedFrom"
	KeySecureMarketplaceURL              = "InvalidSecureMarketplaceUrlInstallsAllowedFrom"
	KeyListedRequiresMarketplaceURL      = "InvalidListedRequiresMarketplaceUrlInstallsAllowedFrom"
	KeyInvalidMessagesEntry              = "InvalidMessagesEntry"
	KeyTypeCertifiedListed               = "InvalidTypeCertifiedListed"
	KeyTypeWebPrivileged                 = "InvalidTypeWebPrivileged"
	KeyAppCachePathType                  = "InvalidAppCachePathType"
	KeyAppCachePathURL                   = "InvalidAppCachePathURL"
	KeyOriginType                        = "InvalidOriginType"
	KeyOriginFormat                      = "InvalidOriginFormat"
	KeyOriginReference                   = "InvalidOriginReference"
	KeyRedirectsType                     = "InvalidRedirectsType"
	KeyRoleType                          = "InvalidRoleType"
	KeyPrecompileType                    = "InvalidPrecompileType"
	KeyActivitiesFilter                  = "InvalidActivitiesFilter"
	KeyActivitiesFilterValue             = "InvalidActivitiesFilterValue"
)

// Code prefixes of the per-key diagnostics; the key appends the camel-cased
// icon size or app type
const (
	CodeInvalidIconSize          = "InvalidIconSize"
	CodeInvalidIconPath          = "InvalidIconPath"
	CodeInvalidPermissionForType = "InvalidPermissionForType"
)

const (
	installsAllowedFromField       = "installs_allowed_from"
	privilegedOnlyMessage          = "Apps that are not privileged may not use the `%s` field of the manifest"
	installsAllowedFromKeyTemplate = "Invalid%sInstallsAllowedFrom"
	insecureMarketplaceScheme      = "http://"
	secureMarketplaceScheme        = "https://"
	listedIconSize                 = "128"
	originHostSeparator            = "//"
)

// Rule is one named semantic check
type Rule struct {
	Name  string
	check func(*session)
}

// Rules returns the semantic rules in execution order
func Rules() []Rule {
	return slices.Clone(semanticRules)
}

var semanticRules = []Rule{
	{"name_length", (*session).checkNameLength},
	{"developer_url", (*session).checkDeveloperURL},
	{"launch_path", (*session).checkLaunchPath},
	{"icons", (*session).checkIcons},
	{"version", (*session).checkVersion},
	{"default_locale", (*session).checkDefaultLocale},
	{"installs_allowed_from", (*session).checkInstallsAllowedFrom},
	{"messages", (*session).checkMessages},
	{"type", (*session).checkType},
	{"appcache_path", (*session).checkAppCachePath},
	{"origin", (*session).checkOrigin},
	{"redirects", (*session).checkRedirects},
	{"role", (*session).checkRole},
	{"precompile", (*session).checkPrecompile},
	{"permissions", (*session).checkPermissions},
	{"activities", (*session).checkActivities},
}

// session is the state of one validation call
type session struct {
	manifest map[string]any
	opts     domain.Options
	report   *domain.Report
	rules    *ruleset.Ruleset
	walker   *schema.Walker
}

func (s *session) fail(key string, path []string, message string) {
	s.report.Error(key, key, domain.KindSemantic, path, message)
}

func (s *session) appType() any {
	return s.manifest["type"]
}

func (s *session) privileged() bool {
	t, _ := asString(s.appType())
	return t == "certified" || t == "privileged"
}

func (s *session) checkNameLength() {
	name, ok := asString(s.manifest["name"])
	if !ok || name == "" {
		return
	}
	limit := s.rules.NameLengthLimit()
	if len([]rune(name)) > limit {
		s.report.Warn(KeyNameTooLong, KeyNameTooLong, domain.KindAdvisory, []string{"name"},
			fmt.Sprintf("Your app's name is longer than %d characters and may be truncated on Firefox OS devices. "+
				"Consider using a shorter name for your app", limit))
	}
}

func (s *session) checkDeveloperURL() {
	developer, ok := asObject(s.manifest["developer"])
	if !ok || !truthy(developer["url"]) {
		return
	}
	u, isString := asString(developer["url"])
	if !isString || !PathValid(u, PathOptions{CanHaveProtocol: true}) {
		s.fail(KeyInvalidDeveloperURL, []string{"developer", "url"},
			"Developer URL must be an absolute HTTP or HTTPS URL")
	}
}

func (s *session) checkLaunchPath() {
	if s.opts.Packaged && !truthy(s.manifest["launch_path"]) {
		s.fail(KeyPackagedRequiresLaunchPath, []string{"launch_path"},
			"`launch_path` is required when app is packaged")
	}
}

func (s *session) checkIcons() {
	icons, ok := asObject(s.manifest["icons"])
	if !ok {
		return
	}

	if _, has128 := icons[listedIconSize]; s.opts.Listed && !has128 {
		s.fail(KeyListedRequires128Icon, []string{"icons"},
			"`icons` must include a 128x128 icon when app is listed")
	}

	for _, size := range sortedKeys(icons) {
		if !naturalPrefix(size) {
			s.report.Error(CodeInvalidIconSize, CodeInvalidIconSize+schema.CamelCase(size),
				domain.KindSemantic, []string{"icons", size},
				"Icon size must be a natural number")
		}

		if path, isString := asString(icons[size]); !isString || path == "" {
			s.report.Error(CodeInvalidIconPath, CodeInvalidIconPath+schema.CamelCase(size),
				domain.KindSemantic, []string{"icons", size},
				"Paths to icons must be absolute paths, relative URIs, or data URIs")
		}
	}
}

func (s *session) checkVersion() {
	version := s.manifest["version"]
	if !truthy(version) {
		return
	}
	if !s.rules.VersionPattern().MatchString(strings.TrimSpace(stringify(version))) {
		s.fail(KeyInvalidVersion, []string{"version"}, "`version` is in an invalid format.")
	}
}

func (s *session) checkDefaultLocale() {
	locales, ok := asObject(s.manifest["locales"])
	if !ok || len(locales) == 0 {
		return
	}

	defaultLocale, _ := asString(s.manifest["default_locale"])
	if _, found := locales[defaultLocale]; defaultLocale == "" || !found {
		s.fail(KeyInvalidDefaultLocale, []string{"default_locale"},
			"`default_locale` must match one of the keys in `locales`")
	}
}

func (s *session) checkInstallsAllowedFrom() {
	raw := s.manifest[installsAllowedFromField]
	if !truthy(raw) {
		return
	}

	invalid := func(sub, message string) {
		s.fail(fmt.Sprintf(installsAllowedFromKeyTemplate, sub), []string{installsAllowedFromField}, message)
	}

	entries, ok := raw.([]any)
	if !ok {
		invalid("ArrayOfStrings", "`installs_allowed_from` must be an array of strings")
		return
	}
	if len(entries) == 0 {
		invalid("Empty", "`installs_allowed_from` cannot be empty when present")
		return
	}

	marketplaceFound := false
	for _, entry := range entries {
		origin, isString := asString(entry)
		if !isString {
			invalid("ArrayOfStrings", "`installs_allowed_from` must be an array of strings")
			return
		}

		if !PathValid(origin, PathOptions{CanBeAsterisk: true, CanHaveProtocol: true}) {
			invalid("Url", "`installs_allowed_from` must be a list of valid absolute URLs or `*`")
			return
		}

		if origin == "*" || s.rules.IsMarketplaceURL(origin) {
			marketplaceFound = true
			continue
		}

		secured := strings.Replace(origin, insecureMarketplaceScheme, secureMarketplaceScheme, 1)
		if s.rules.IsMarketplaceURL(secured) {
			invalid("SecureMarketplaceUrl", "`installs_allowed_from` must use https:// when Marketplace URLs are included")
			return
		}
	}

	if s.opts.Listed && !marketplaceFound {
		invalid("ListedRequiresMarketplaceUrl", "`installs_allowed_from` must include a Marketplace URL when app is listed")
	}
}

func (s *session) checkMessages() {
	messages, ok := s.manifest["messages"].([]any)
	if !ok {
		return
	}
	for _, item := range messages {
		if entry, isObject := asObject(item); isObject && len(entry) > 1 {
			s.fail(KeyInvalidMessagesEntry, []string{"messages"},
				"objects in array `messages` must each have only one property")
			return
		}
	}
}

func (s *session) checkType() {
	appType := s.appType()
	if !truthy(appType) {
		return
	}

	if s.opts.Listed && appType == "certified" {
		s.fail(KeyTypeCertifiedListed, []string{"type"}, "`certified` apps cannot be listed")
	}
	if !s.opts.Packaged && appType != ruleset.DefaultAppType {
		s.fail(KeyTypeWebPrivileged, []string{"type"},
			"unpackaged web apps may not have a type of `certified` or `privileged`")
	}
}

func (s *session) checkAppCachePath() {
	raw := s.manifest["appcache_path"]
	if !truthy(raw) {
		return
	}

	if s.opts.Packaged {
		s.fail(KeyAppCachePathType, []string{"appcache_path"},
			"packaged apps cannot use Appcache. The `appcache_path` field should not be provided in a packaged app's manifest")
	}

	path, isString := asString(raw)
	if !isString || !PathValid(path, PathOptions{CanHaveProtocol: true}) {
		s.fail(KeyAppCachePathURL, []string{"appcache_path"},
			"The `appcache_path` must be a full, absolute URL to the application cache manifest")
	}
}

func (s *session) checkOrigin() {
	raw := s.manifest["origin"]
	if !truthy(raw) {
		return
	}

	if !s.privileged() {
		s.fail(KeyOriginType, []string{"origin"}, fmt.Sprintf(privilegedOnlyMessage, "origin"))
		return
	}

	origin := stringify(raw)
	if !s.rules.OriginPattern().MatchString(strings.TrimSpace(origin)) {
		s.fail(KeyOriginFormat, []string{"origin"}, "Origin format is invalid")
		return
	}

	if parts := strings.Split(origin, originHostSeparator); len(parts) > 1 && s.rules.IsBannedOrigin(parts[1]) {
		s.fail(KeyOriginReference, []string{"origin"},
			"App origins may not reference any of the following: "+strings.Join(s.rules.BannedOrigins(), ","))
	}
}

func (s *session) checkRedirects() {
	if truthy(s.manifest["redirects"]) && !s.privileged() {
		s.fail(KeyRedirectsType, []string{"redirects"}, fmt.Sprintf(privilegedOnlyMessage, "redirects"))
	}
}

func (s *session) checkRole() {
	if truthy(s.manifest["role"]) && !s.privileged() {
		s.fail(KeyRoleType, []string{"role"}, fmt.Sprintf(privilegedOnlyMessage, "role"))
	}
}

func (s *session) checkPrecompile() {
	if truthy(s.manifest["precompile"]) && !s.opts.Packaged {
		s.fail(KeyPrecompileType, []string{"precompile"},
			"Apps that are not packaged may not use the `precompile` field of the manifest")
	}
}

func (s *session) checkPermissions() {
	permissions, ok := asObject(s.manifest["permissions"])
	if !ok {
		return
	}

	appType := ruleset.DefaultAppType
	if raw := s.appType(); truthy(raw) {
		t, isString := asString(raw)
		if !isString {
			return
		}
		appType = t
	}

	allowed, known := s.rules.AllowedPermissions(appType)
	if !known {
		return
	}

	parents := []string{"permissions"}
	for _, name := range sortedKeys(permissions) {
		if !s.rules.PermissionAllowed(appType, name) {
			s.report.Error(CodeInvalidPermissionForType,
				CodeInvalidPermissionForType+schema.CamelCase(appType),
				domain.KindSemantic, []string{"permissions", name},
				fmt.Sprintf("Permissions for type `%s` must be one of %s", appType, strings.Join(allowed, ", ")))
		}
		s.walker.Walk(s.report, permissions[name], s.rules.PermissionSchema(name), name, parents)
	}
}

func (s *session) checkActivities() {
	activities, ok := asObject(s.manifest["activities"])
	if !ok {
		return
	}

	for _, activityName := range sortedKeys(activities) {
		activity, isObject := asObject(activities[activityName])
		if !isObject {
			continue
		}
		filters, hasFilters := asObject(activity["filters"])
		if !hasFilters {
			continue
		}

		parents := []string{"filters", activityName}
		for _, filterName := range sortedKeys(filters) {
			switch filter := filters[filterName].(type) {
			case []any, string:
			case map[string]any:
				s.walker.Walk(s.report, filter, s.rules.ActivityFilter(), filterName, parents)
				s.checkFilterValue(filter, parents)
			default:
				s.fail(KeyActivitiesFilter, []string{"activities", activityName, "filters", filterName},
					"Activity filters must be of type `array`, `string`, or `object`")
			}
		}
	}
}

func (s *session) checkFilterValue(filter map[string]any, parents []string) {
	value, present := filter["value"]
	if !present {
		return
	}

	switch v := value.(type) {
	case string:
	case []any:
		s.walker.Walk(s.report, v, s.rules.ActivityFilterValue(), "value", parents)
	default:
		s.fail(KeyActivitiesFilterValue, append(slices.Clone(parents), "value"),
			"Activity filter value property must be of type `array` or `string`")
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
