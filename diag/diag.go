// Package diag defines the diagnostic surface of the analysis pipeline.
//
// Every code carries a default severity that external configuration can
// override per code; a global disable switch suppresses the entire surface
// while leaving code emission untouched.
package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Code identifies a diagnostic class. Numbering is stable within a release
// but carries no semantics beyond identity.
type Code string

const (
	// CodeUnresolvedDependency: a non-collection edge resolved to zero or
	// more than one candidate implementation.
	CodeUnresolvedDependency Code = "ODI001"

	// CodeUnregisteredImplementation: a dependency resolves to a type that
	// is never registered (no lifetime, no default).
	CodeUnregisteredImplementation Code = "ODI002"

	// CodeCycleDetected: a back-edge in the non-collection subgraph.
	CodeCycleDetected Code = "ODI003"

	// CodeDuplicateInDeclaration: a target repeated within one bulk
	// declaration.
	CodeDuplicateInDeclaration Code = "ODI004"

	// CodeDuplicateAcrossDeclarations: a target repeated across
	// declarations or fields on the same type; a single edge is kept.
	CodeDuplicateAcrossDeclarations Code = "ODI005"

	// CodeConflictingDeclarationStyles: the same target declared both as a
	// field marker and a bulk entry; the field-level declaration wins.
	CodeConflictingDeclarationStyles Code = "ODI006"

	// CodeLifetimeNarrowerError: a singleton captures a scoped dependency.
	CodeLifetimeNarrowerError Code = "ODI007"

	// CodeLifetimeNarrowerWarning: a singleton captures a transient
	// dependency.
	CodeLifetimeNarrowerWarning Code = "ODI008"

	// CodeInheritanceLifetimeMismatch: a lifetime violation reached through
	// the base chain rather than a direct edge.
	CodeInheritanceLifetimeMismatch Code = "ODI009"

	// CodeSkipTargetNotImplemented: a skip-registration names a contract
	// the type does not implement.
	CodeSkipTargetNotImplemented Code = "ODI010"

	// CodeDuplicateIdentifier: two dependencies of one type resolve to the
	// same generated identifier; never silently deduplicated.
	CodeDuplicateIdentifier Code = "ODI011"

	// CodeSubstitutionFailed: a generic substitution could not be resolved;
	// the edge is skipped and analysis continues.
	CodeSubstitutionFailed Code = "ODI012"

	// CodeMalformedDirective: an odigen directive could not be parsed.
	CodeMalformedDirective Code = "ODI013"
)

// Severity classifies a diagnostic. Off drops it entirely.
type Severity int

const (
	// Off suppresses the diagnostic.
	Off Severity = iota

	// Warning surfaces the diagnostic without blocking emission.
	Warning

	// Error surfaces the diagnostic; emission still proceeds for unrelated
	// types.
	Error
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "off"
	}
}

// ParseSeverity converts configuration text into a Severity.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none", "silent":
		return Off, true
	case "warn", "warning":
		return Warning, true
	case "error":
		return Error, true
	default:
		return Off, false
	}
}

// defaults maps each code to its built-in severity.
var defaults = map[Code]Severity{
	CodeUnresolvedDependency:         Error,
	CodeUnregisteredImplementation:   Warning,
	CodeCycleDetected:                Error,
	CodeDuplicateInDeclaration:       Warning,
	CodeDuplicateAcrossDeclarations:  Warning,
	CodeConflictingDeclarationStyles: Warning,
	CodeLifetimeNarrowerError:        Error,
	CodeLifetimeNarrowerWarning:      Warning,
	CodeInheritanceLifetimeMismatch:  Error,
	CodeSkipTargetNotImplemented:     Error,
	CodeDuplicateIdentifier:          Error,
	CodeSubstitutionFailed:           Warning,
	CodeMalformedDirective:           Error,
}

// KnownCode reports whether code names a defined diagnostic class.
func KnownCode(code Code) bool {
	_, ok := defaults[code]
	return ok
}

// DefaultSeverity returns the built-in severity for a code.
func DefaultSeverity(code Code) Severity {
	if s, ok := defaults[code]; ok {
		return s
	}
	return Warning
}

// Diagnostic is one reported finding.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Message  string

	// Types lists the canonical keys of the affected types, primary first.
	Types []string
}

// String renders "severity CODE: message [types]".
func (d Diagnostic) String() string {
	if len(d.Types) == 0 {
		return fmt.Sprintf("%s %s: %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s %s: %s [%s]", d.Severity, d.Code, d.Message, strings.Join(d.Types, ", "))
}

// Option configures a Collector.
type Option func(*Collector)

// WithOverrides installs per-code severity overrides.
func WithOverrides(overrides map[Code]Severity) Option {
	return func(c *Collector) {
		for code, sev := range overrides {
			c.overrides[code] = sev
		}
	}
}

// Disabled suppresses the entire diagnostic surface. Emission is unaffected.
func Disabled() Option {
	return func(c *Collector) { c.disabled = true }
}

// Collector accumulates diagnostics for one run.
//
// It is not safe for concurrent use; the pipeline runs single-pass and
// synchronous.
type Collector struct {
	overrides map[Code]Severity
	disabled  bool
	diags     []Diagnostic
}

// NewCollector builds a collector with the given options applied.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{overrides: map[Code]Severity{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Report records a diagnostic under the code's effective severity.
func (c *Collector) Report(code Code, types []string, format string, args ...any) {
	c.report(code, DefaultSeverity(code), types, format, args...)
}

// ReportSeverity records a diagnostic with an explicit base severity, still
// subject to per-code overrides and the global disable switch.
func (c *Collector) ReportSeverity(code Code, sev Severity, types []string, format string, args ...any) {
	c.report(code, sev, types, format, args...)
}

func (c *Collector) report(code Code, sev Severity, types []string, format string, args ...any) {
	if c.disabled {
		return
	}
	if override, ok := c.overrides[code]; ok {
		sev = override
	}
	if sev == Off {
		return
	}
	c.diags = append(c.diags, Diagnostic{
		Code:     code,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		Types:    types,
	})
}

// All returns the recorded diagnostics in report order.
func (c *Collector) All() []Diagnostic {
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	return out
}

// Sorted returns the diagnostics ordered by code, then primary type, then
// message, for deterministic presentation.
func (c *Collector) Sorted() []Diagnostic {
	out := c.All()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		ti, tj := "", ""
		if len(out[i].Types) > 0 {
			ti = out[i].Types[0]
		}
		if len(out[j].Types) > 0 {
			tj = out[j].Types[0]
		}
		if ti != tj {
			return ti < tj
		}
		return out[i].Message < out[j].Message
	})
	return out
}

// ByCode returns the diagnostics recorded under one code.
func (c *Collector) ByCode(code Code) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.diags {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (c *Collector) HasErrors() bool {
	for _, d := range c.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Len returns the number of recorded diagnostics.
func (c *Collector) Len() int { return len(c.diags) }
