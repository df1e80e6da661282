// Package ruleset loads the rule documents that drive manifest validation: the
// common manifest schema, the marketplace extension, the permission and
// activity filter sub-schemas, and the policy tables.
package ruleset

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"

	"github.com/mozilla/firefox-app-validator-manifest/internal/domain"
	"github.com/mozilla/firefox-app-validator-manifest/internal/schema"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed rules/*.json rules/*.yaml
var embedded embed.FS

// Rule document names, without extension
const (
	DocCommon              = "common"
	DocMarketplace         = "marketplace"
	DocPermission          = "permission"
	DocActivityFilter      = "activity_filter"
	DocActivityFilterValue = "activity_filter_value"
	DocPolicy              = "policy"
)

// Documents lists every rule document in load order
var Documents = []string{
	DocCommon,
	DocMarketplace,
	DocPermission,
	DocActivityFilter,
	DocActivityFilterValue,
	DocPolicy,
}

// documentExtensions is the lookup order for a document in a directory
var documentExtensions = []string{".json", ".yaml", ".yml"}

// SourceEmbedded marks a document loaded from the built-in defaults
const SourceEmbedded = "embedded"

// Fallbacks used when the common schema does not declare the pattern
const (
	DefaultVersionPattern = `^[a-zA-Z0-9_,*\-.]+$`
	DefaultOriginPattern  = `^app://[a-z0-9]+([-.]{1}[a-z0-9]+)*\.[a-z]{2,5}$`
)

// DefaultAppType is the type assumed for manifests without a `type` field
const DefaultAppType = "web"

// Policy holds the static tables the semantic rules consult
type Policy struct {
	NameLengthLimit  int                 `json:"name_length_limit" validate:"gt=0"`
	Permissions      map[string][]string `json:"permissions" validate:"required,dive,keys,required,endkeys,dive,required"`
	PermissionAccess map[string][]string `json:"permission_access" validate:"dive,keys,required,endkeys,min=1,dive,required"`
	MarketplaceURLs  []string            `json:"marketplace_urls" validate:"required,min=1,dive,url"`
	BannedOrigins    []string            `json:"banned_origins" validate:"dive,required"`
}

// Ruleset is the immutable, compiled set of rule documents. It is safe for
// concurrent use.
type Ruleset struct {
	common              *schema.Node
	marketplace         *schema.Node
	permission          *schema.Node
	activityFilter      *schema.Node
	activityFilterValue *schema.Node
	policy              Policy

	permissionSchemas map[string]*schema.Node
	marketplaceURLs   map[string]struct{}
	bannedOrigins     map[string]struct{}
	versionPattern    *regexp.Regexp
	originPattern     *regexp.Regexp
	sources           map[string]string
}

// Default builds the ruleset from the embedded rule documents
func Default() (*Ruleset, error) {
	return Load("")
}

// MustDefault is Default for callers that cannot proceed without rules
func MustDefault() *Ruleset {
	rs, err := Default()
	if err != nil {
		panic(err)
	}
	return rs
}

// Load builds the ruleset, taking each document from dir when a file named
// after it exists there and from the embedded defaults otherwise. An empty dir
// uses the defaults only.
func Load(dir string) (*Ruleset, error) {
	docs := make(map[string][]byte, len(Documents))
	sources := make(map[string]string, len(Documents))

	for _, name := range Documents {
		data, source, err := readDocument(dir, name)
		if err != nil {
			return nil, rulesetError(name, source, err)
		}
		if source != SourceEmbedded {
			log.Info().
				Str("document", name).
				Str("path", source).
				Msg("Using rule document override")
		}
		docs[name] = data
		sources[name] = source
	}

	rs := &Ruleset{sources: sources}

	nodes := []struct {
		name string
		dst  **schema.Node
	}{
		{DocCommon, &rs.common},
		{DocMarketplace, &rs.marketplace},
		{DocPermission, &rs.permission},
		{DocActivityFilter, &rs.activityFilter},
		{DocActivityFilterValue, &rs.activityFilterValue},
	}
	for _, n := range nodes {
		node, err := schema.Parse(docs[n.name])
		if err != nil {
			return nil, rulesetError(n.name, sources[n.name], err)
		}
		*n.dst = node
	}

	if err := json.Unmarshal(docs[DocPolicy], &rs.policy); err != nil {
		return nil, rulesetError(DocPolicy, sources[DocPolicy], err)
	}
	if err := validatePolicy(rs.policy); err != nil {
		return nil, rulesetError(DocPolicy, sources[DocPolicy], err)
	}

	if err := rs.compile(); err != nil {
		return nil, err
	}

	log.Debug().
		Int("permission_types", len(rs.policy.Permissions)).
		Int("access_controlled", len(rs.permissionSchemas)).
		Msg("Ruleset loaded")

	return rs, nil
}

func (rs *Ruleset) compile() error {
	var err error
	rs.versionPattern, err = patternOf(rs.common, "version", DefaultVersionPattern)
	if err != nil {
		return rulesetError(DocCommon, rs.sources[DocCommon], err)
	}
	rs.originPattern, err = patternOf(rs.common, "origin", DefaultOriginPattern)
	if err != nil {
		return rulesetError(DocCommon, rs.sources[DocCommon], err)
	}

	rs.marketplaceURLs = toSet(rs.policy.MarketplaceURLs)
	rs.bannedOrigins = toSet(rs.policy.BannedOrigins)

	// Access-controlled permissions each get their own derived schema so the
	// base permission schema is never modified.
	rs.permissionSchemas = make(map[string]*schema.Node, len(rs.policy.PermissionAccess))
	for name, modes := range rs.policy.PermissionAccess {
		derived := rs.permission.Clone()
		if !slices.Contains(derived.Required, "access") {
			derived.Required = append(derived.Required, "access")
		}
		if derived.Properties == nil {
			derived.Properties = make(map[string]*schema.Node, 1)
		}
		derived.Properties["access"] = &schema.Node{Type: "string", OneOf: slices.Clone(modes)}
		if err := derived.Compile(); err != nil {
			return rulesetError(DocPermission, rs.sources[DocPermission], err)
		}
		rs.permissionSchemas[name] = derived
	}
	return nil
}

func patternOf(node *schema.Node, property, fallback string) (*regexp.Regexp, error) {
	pattern := fallback
	if p := node.Property(property); p != nil && p.Pattern != "" {
		pattern = p.Pattern
	}
	return regexp.Compile(pattern)
}

func validatePolicy(p Policy) error {
	if err := validator.New().Struct(p); err != nil {
		return fmt.Errorf("policy validation failed: %w", err)
	}
	if _, ok := p.Permissions[DefaultAppType]; !ok {
		return fmt.Errorf("policy permissions must list the %q type", DefaultAppType)
	}
	return nil
}

// readDocument returns the JSON form of a rule document and where it came from
func readDocument(dir, name string) ([]byte, string, error) {
	if dir != "" {
		for _, ext := range documentExtensions {
			path := filepath.Join(dir, name+ext)
			data, err := os.ReadFile(path)
			if err == nil {
				converted, err := toJSON(data, ext)
				return converted, path, err
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, path, fmt.Errorf("failed to read file: %w", err)
			}
		}
	}

	for _, ext := range documentExtensions {
		data, err := fs.ReadFile(embedded, "rules/"+name+ext)
		if err == nil {
			converted, err := toJSON(data, ext)
			return converted, SourceEmbedded, err
		}
	}
	return nil, SourceEmbedded, fmt.Errorf("no embedded document named %s", name)
}

// EmbeddedDocuments returns the built-in rule documents keyed by file name,
// in their original encoding
func EmbeddedDocuments() (map[string][]byte, error) {
	entries, err := fs.ReadDir(embedded, "rules")
	if err != nil {
		return nil, err
	}
	docs := make(map[string][]byte, len(entries))
	for _, e := range entries {
		data, err := fs.ReadFile(embedded, "rules/"+e.Name())
		if err != nil {
			return nil, err
		}
		docs[e.Name()] = data
	}
	return docs, nil
}

// toJSON converts YAML documents to JSON so every document decodes the same way
func toJSON(data []byte, ext string) ([]byte, error) {
	if ext == ".json" {
		return data, nil
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	out, err := json.Marshal(normalizeYAML(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to convert YAML: %w", err)
	}
	return out, nil
}

// normalizeYAML rewrites non-string mapping keys so the tree is JSON encodable
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			t[k] = normalizeYAML(child)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[fmt.Sprint(k)] = normalizeYAML(child)
		}
		return out
	case []any:
		for i, child := range t {
			t[i] = normalizeYAML(child)
		}
		return t
	default:
		return v
	}
}

func rulesetError(name, source string, err error) error {
	return domain.NewAppErrorWithCause(
		domain.ErrRulesetInvalid,
		fmt.Sprintf("rule document %s is invalid", name),
		http.StatusUnprocessableEntity,
		err,
		map[string]string{"document": name, "source": source},
	)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// Common returns the root manifest schema
func (rs *Ruleset) Common() *schema.Node {
	return rs.common
}

// MarketplaceRequired returns the extra root fields required for listed apps
func (rs *Ruleset) MarketplaceRequired() []string {
	return slices.Clone(rs.marketplace.Required)
}

// PermissionSchema returns the schema a permission entry is validated against
func (rs *Ruleset) PermissionSchema(name string) *schema.Node {
	if s, ok := rs.permissionSchemas[name]; ok {
		return s
	}
	return rs.permission
}

// AllowedPermissions returns the permission names an app type may request.
// ok is false for unknown types.
func (rs *Ruleset) AllowedPermissions(appType string) (names []string, ok bool) {
	names, ok = rs.policy.Permissions[appType]
	return slices.Clone(names), ok
}

// PermissionAllowed reports whether appType may request permission
func (rs *Ruleset) PermissionAllowed(appType, permission string) bool {
	return slices.Contains(rs.policy.Permissions[appType], permission)
}

// KnownPermission reports whether any app type may request permission
func (rs *Ruleset) KnownPermission(permission string) bool {
	for appType := range rs.policy.Permissions {
		if rs.PermissionAllowed(appType, permission) {
			return true
		}
	}
	return false
}

// AccessModes returns the access modes accepted by an access-controlled
// permission, or nil when the permission takes no access mode.
func (rs *Ruleset) AccessModes(permission string) []string {
	return slices.Clone(rs.policy.PermissionAccess[permission])
}

// ActivityFilter returns the schema for object-shaped activity filters
func (rs *Ruleset) ActivityFilter() *schema.Node {
	return rs.activityFilter
}

// ActivityFilterValue returns the schema for array-shaped filter values
func (rs *Ruleset) ActivityFilterValue() *schema.Node {
	return rs.activityFilterValue
}

// IsMarketplaceURL reports whether u is one of the canonical marketplace URLs
func (rs *Ruleset) IsMarketplaceURL(u string) bool {
	_, ok := rs.marketplaceURLs[u]
	return ok
}

// MarketplaceURLs returns the canonical marketplace URLs
func (rs *Ruleset) MarketplaceURLs() []string {
	return slices.Clone(rs.policy.MarketplaceURLs)
}

// IsBannedOrigin reports whether host may not be referenced by an app origin
func (rs *Ruleset) IsBannedOrigin(host string) bool {
	_, ok := rs.bannedOrigins[host]
	return ok
}

// BannedOrigins returns the hosts app origins may not reference
func (rs *Ruleset) BannedOrigins() []string {
	return slices.Clone(rs.policy.BannedOrigins)
}

// VersionPattern returns the compiled `version` pattern
func (rs *Ruleset) VersionPattern() *regexp.Regexp {
	return rs.versionPattern
}

// OriginPattern returns the compiled `origin` pattern
func (rs *Ruleset) OriginPattern() *regexp.Regexp {
	return rs.originPattern
}

// NameLengthLimit returns the advisory name length threshold
func (rs *Ruleset) NameLengthLimit() int {
	return rs.policy.NameLengthLimit
}

// AppTypes returns the app types that have a permission table, sorted
func (rs *Ruleset) AppTypes() []string {
	types := make([]string, 0, len(rs.policy.Permissions))
	for t := range rs.policy.Permissions {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Sources maps each document name to the path it was loaded from, or
// SourceEmbedded
func (rs *Ruleset) Sources() map[string]string {
	out := make(map[string]string, len(rs.sources))
	for k, v := range rs.sources {
		out[k] = v
	}
	return out
}

// Summary describes the loaded policy tables
// @Description Loaded rule tables
type Summary struct {
	Permissions         map[string][]string `json:"permissions" yaml:"permissions"`
	PermissionAccess    map[string][]string `json:"permission_access" yaml:"permission_access"`
	MarketplaceURLs     []string            `json:"marketplace_urls" yaml:"marketplace_urls"`
	BannedOrigins       []string            `json:"banned_origins" yaml:"banned_origins"`
	NameLengthLimit     int                 `json:"name_length_limit" yaml:"name_length_limit" example:"12"`
	VersionPattern      string              `json:"version_pattern" yaml:"version_pattern"`
	OriginPattern       string              `json:"origin_pattern" yaml:"origin_pattern"`
	MarketplaceRequired []string            `json:"marketplace_required" yaml:"marketplace_required"`
	Sources             map[string]string   `json:"sources" yaml:"sources"`
}

// Summary returns a copy of the policy tables for display
func (rs *Ruleset) Summary() Summary {
	perms := make(map[string][]string, len(rs.policy.Permissions))
	for t, names := range rs.policy.Permissions {
		perms[t] = slices.Clone(names)
	}
	access := make(map[string][]string, len(rs.policy.PermissionAccess))
	for name, modes := range rs.policy.PermissionAccess {
		access[name] = slices.Clone(modes)
	}

	return Summary{
		Permissions:         perms,
		PermissionAccess:    access,
		MarketplaceURLs:     rs.MarketplaceURLs(),
		BannedOrigins:       rs.BannedOrigins(),
		NameLengthLimit:     rs.policy.NameLengthLimit,
		VersionPattern:      rs.versionPattern.String(),
		OriginPattern:       rs.originPattern.String(),
		MarketplaceRequired: rs.MarketplaceRequired(),
		Sources:             rs.Sources(),
	}
}
