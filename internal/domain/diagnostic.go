package domain

import (
	"maps"
	"slices"
)

// Severity distinguishes hard validation failures from advisories
type Severity string

const (
	// SeverityError marks a diagnostic that makes the manifest invalid
	SeverityError Severity = "error"
	// SeverityWarning marks a diagnostic that never blocks acceptance
	SeverityWarning Severity = "warning"
)

// Kind classifies a diagnostic by the failure category it belongs to
type Kind string

const (
	// KindStructural covers invalid JSON, missing/unexpected properties and wrong types
	KindStructural Kind = "structural"
	// KindConstraint covers length, pattern and enumeration violations
	KindConstraint Kind = "constraint"
	// KindSemantic covers cross-field and policy rules
	KindSemantic Kind = "semantic"
	// KindAdvisory covers recommendations such as name length
	KindAdvisory Kind = "advisory"
)

// Diagnostic code prefixes emitted by the schema walker and the session
const (
	CodeInvalidJSON           = "InvalidJSON"
	CodeInvalidPropertyType   = "InvalidPropertyType"
	CodeInvalidItemType       = "InvalidItemType"
	CodeInvalidStringType     = "InvalidStringType"
	CodeInvalidPropertyLength = "InvalidPropertyLength"
	CodeInvalidStringPattern  = "InvalidStringPattern"
	CodeMandatoryField        = "MandatoryField"
	CodeInvalidPropertyCount  = "InvalidPropertyCount"
	CodeUnexpectedProperty    = "UnexpectedProperty"
)

// Options carries the per-call validation flags
// @Description Validation options
type Options struct {
	Listed   bool `json:"listed" example:"false"`   // App is publicly listed on a marketplace
	Packaged bool `json:"packaged" example:"false"` // App is distributed as a package rather than hosted
}

// Diagnostic is a single validation finding. Key is the synthesized identifier
// used in the Errors/Warnings mappings; Path holds the manifest location it was
// derived from.
// @Description A single validation finding
type Diagnostic struct {
	Key      string   `json:"key" example:"MandatoryFieldName"`
	Code     string   `json:"code" example:"MandatoryField"`
	Kind     Kind     `json:"kind" example:"structural"`
	Severity Severity `json:"severity" example:"error"`
	Path     []string `json:"path,omitempty"`
	Message  string   `json:"message" example:"Mandatory field name is missing"`
}

// Report accumulates diagnostics for one validation call. It is not safe for
// concurrent use; every call owns its own Report.
type Report struct {
	diagnostics []Diagnostic
}

// NewReport creates an empty report
func NewReport() *Report {
	return &Report{diagnostics: make([]Diagnostic, 0, 8)}
}

// Add appends a diagnostic, copying its path
func (r *Report) Add(d Diagnostic) {
	if d.Severity == "" {
		d.Severity = SeverityError
	}
	d.Path = slices.Clone(d.Path)
	r.diagnostics = append(r.diagnostics, d)
}

// Error records an error diagnostic
func (r *Report) Error(code, key string, kind Kind, path []string, message string) {
	r.Add(Diagnostic{
		Key:      key,
		Code:     code,
		Kind:     kind,
		Severity: SeverityError,
		Path:     path,
		Message:  message,
	})
}

// Warn records a warning diagnostic
func (r *Report) Warn(code, key string, kind Kind, path []string, message string) {
	r.Add(Diagnostic{
		Key:      key,
		Code:     code,
		Kind:     kind,
		Severity: SeverityWarning,
		Path:     path,
		Message:  message,
	})
}

// Len returns the number of recorded diagnostics
func (r *Report) Len() int {
	return len(r.diagnostics)
}

// Result builds the immutable outcome of the validation call
func (r *Report) Result() *Result {
	res := &Result{
		Errors:      make(map[string]string),
		Warnings:    make(map[string]string),
		Diagnostics: make([]Diagnostic, 0, len(r.diagnostics)),
	}
	for _, d := range r.diagnostics {
		// Keys collide on purpose: the mappings keep the last message per key,
		// the list keeps every record.
		switch d.Severity {
		case SeverityWarning:
			res.Warnings[d.Key] = d.Message
		default:
			res.Errors[d.Key] = d.Message
		}
		d.Path = slices.Clone(d.Path)
		res.Diagnostics = append(res.Diagnostics, d)
	}
	return res
}

// Result is the outcome of validating one manifest
// @Description Validation outcome
type Result struct {
	Errors      map[string]string `json:"errors"`
	Warnings    map[string]string `json:"warnings"`
	Diagnostics []Diagnostic      `json:"diagnostics"`
}

// Valid reports whether the manifest produced no errors; warnings are ignored
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

// HasError reports whether an error with the given key was produced
func (r *Result) HasError(key string) bool {
	_, ok := r.Errors[key]
	return ok
}

// HasWarning reports whether a warning with the given key was produced
func (r *Result) HasWarning(key string) bool {
	_, ok := r.Warnings[key]
	return ok
}

// Clone returns a deep copy so cached results can be shared safely
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := &Result{
		Errors:      maps.Clone(r.Errors),
		Warnings:    maps.Clone(r.Warnings),
		Diagnostics: make([]Diagnostic, len(r.Diagnostics)),
	}
	for i, d := range r.Diagnostics {
		d.Path = slices.Clone(d.Path)
		out.Diagnostics[i] = d
	}
	if out.Errors == nil {
		out.Errors = map[string]string{}
	}
	if out.Warnings == nil {
		out.Warnings = map[string]string{}
	}
	return out
}
