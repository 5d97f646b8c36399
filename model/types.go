// Package model defines the descriptor types the odigen analysis pipeline
// operates on.
//
// Every run derives descriptors fresh from an immutable Snapshot of the
// declarations under analysis; nothing in this package is mutated after the
// snapshot is sealed. The emitted code is the terminal artifact.
package model

import (
	"sort"
	"strings"

	"github.com/sghaida/odigen/naming"
)

// Lifetime is the scope for which a container caches a constructed instance.
//
// The ordering is Singleton > Scoped > Transient: a wider lifetime must not
// capture a narrower one.
type Lifetime int

const (
	// Unassigned means no lifetime marker was declared and no default applies.
	Unassigned Lifetime = iota

	// Transient constructs a new instance per resolution.
	Transient

	// Scoped constructs one instance per logical unit of work.
	Scoped

	// Singleton constructs one instance per container.
	Singleton
)

// String returns the human-readable name of the lifetime.
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	case Transient:
		return "transient"
	default:
		return "unassigned"
	}
}

// ParseLifetime converts a textual lifetime into a Lifetime.
//
// ok is false for unknown input; callers decide whether that is a
// diagnostic or a hard error.
func ParseLifetime(s string) (Lifetime, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "singleton":
		return Singleton, true
	case "scoped":
		return Scoped, true
	case "transient":
		return Transient, true
	case "", "unassigned":
		return Unassigned, true
	default:
		return Unassigned, false
	}
}

// TypeRef identifies a type by import path, name and type arguments.
//
// A TypeRef with Param=true references a type parameter of its owning
// declaration and carries no package.
type TypeRef struct {
	// Pkg is the import path of the declaring package. Empty for type
	// parameters and for builtins.
	Pkg string

	// Name is the local type name.
	Name string

	// Args holds type arguments when the reference instantiates a generic
	// type.
	Args []TypeRef

	// Param marks a reference to a type parameter of the owning type.
	Param bool

	// Ptr records that the declaration spelled the type as a pointer.
	// Pointer-ness is rendering information only and never part of
	// identity: Key ignores it.
	Ptr bool
}

// Ref is a convenience constructor for a plain (non-generic) reference.
func Ref(pkg, name string) TypeRef { return TypeRef{Pkg: pkg, Name: name} }

// ParamRef constructs a reference to a type parameter.
func ParamRef(name string) TypeRef { return TypeRef{Name: name, Param: true} }

// IsZero reports whether the reference is empty.
func (r TypeRef) IsZero() bool { return r.Name == "" }

// Key returns the canonical identity used for graph and map lookups,
// e.g. "example.com/app.Store[example.com/app.User]".
func (r TypeRef) Key() string {
	var sb strings.Builder
	if r.Pkg != "" {
		sb.WriteString(r.Pkg)
		sb.WriteByte('.')
	}
	sb.WriteString(r.Name)
	if len(r.Args) > 0 {
		sb.WriteByte('[')
		for i, a := range r.Args {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(a.Key())
		}
		sb.WriteByte(']')
	}
	return sb.String()
}

// Equal reports identity equality of two references.
func (r TypeRef) Equal(o TypeRef) bool { return r.Key() == o.Key() }

// Substitute rewrites type-parameter references through bind.
//
// ok is false when any referenced parameter has no binding; the caller is
// expected to diagnose and skip the edge rather than abort the run.
func (r TypeRef) Substitute(bind map[string]TypeRef) (TypeRef, bool) {
	if r.Param {
		b, ok := bind[r.Name]
		if !ok {
			return r, false
		}
		return b, true
	}
	if len(r.Args) == 0 {
		return r, true
	}
	out := r
	out.Args = make([]TypeRef, len(r.Args))
	ok := true
	for i, a := range r.Args {
		sub, aok := a.Substitute(bind)
		if !aok {
			ok = false
		}
		out.Args[i] = sub
	}
	return out, ok
}

// RegistrationMode selects which contracts a type is registered under.
type RegistrationMode int

const (
	// DirectOnly registers the concrete type only.
	DirectOnly RegistrationMode = iota

	// All registers the concrete type plus every implemented interface,
	// minus explicitly skipped contracts.
	All

	// Exclusionary registers every implemented interface minus skipped,
	// without the concrete type unless forwarding requires it.
	Exclusionary
)

// String returns the directive spelling of the mode.
func (m RegistrationMode) String() string {
	switch m {
	case All:
		return "all"
	case Exclusionary:
		return "interfaces"
	default:
		return "direct"
	}
}

// InstanceSharing selects whether interface contracts share one concrete
// instance per scope or resolve independent instances.
type InstanceSharing int

const (
	// Separate gives each contract its own direct registration.
	Separate InstanceSharing = iota

	// Shared registers the concrete type once and forwards every interface
	// contract to it.
	Shared
)

// String returns the directive spelling of the sharing policy.
func (s InstanceSharing) String() string {
	if s == Shared {
		return "shared"
	}
	return "separate"
}

// RegistrationDirective is the parsed registration-mode declaration.
type RegistrationDirective struct {
	Mode    RegistrationMode
	Sharing InstanceSharing
}

// ConditionalRule is a predicate guarding a registration.
//
// A rule has an environment clause, a config clause, or both (AND-combined).
// The zero rule is unconditional.
type ConditionalRule struct {
	// Env compares the host environment name. Empty means no env clause.
	Env string
	// EnvNot negates the environment comparison.
	EnvNot bool

	// ConfigKey compares a configuration value. Empty means no config clause.
	ConfigKey string
	// ConfigValue is the value compared against; a missing key reads as "".
	ConfigValue string
	// ConfigNot negates the config comparison.
	ConfigNot bool
}

// IsZero reports whether the rule is unconditional.
func (c ConditionalRule) IsZero() bool { return c.Env == "" && c.ConfigKey == "" }

// MutuallyExclusive reports whether two rules can never both hold.
//
// Only structurally provable exclusivity counts: equal-vs-different values
// on the same subject, or an equality against its own negation.
func (c ConditionalRule) MutuallyExclusive(o ConditionalRule) bool {
	if c.IsZero() || o.IsZero() {
		return false
	}
	if c.Env != "" && o.Env != "" {
		switch {
		case !c.EnvNot && !o.EnvNot && c.Env != o.Env:
			return true
		case c.EnvNot != o.EnvNot && c.Env == o.Env:
			return true
		}
	}
	if c.ConfigKey != "" && c.ConfigKey == o.ConfigKey {
		switch {
		case !c.ConfigNot && !o.ConfigNot && c.ConfigValue != o.ConfigValue:
			return true
		case c.ConfigNot != o.ConfigNot && c.ConfigValue == o.ConfigValue:
			return true
		}
	}
	return false
}

// DependencySource distinguishes where a dependency declaration came from.
type DependencySource int

const (
	// SourceField is a single-field marker (`inject` struct tag).
	SourceField DependencySource = iota

	// SourceBulk is an entry of a bulk declaration directive.
	SourceBulk
)

// String returns the human-readable source kind.
func (s DependencySource) String() string {
	if s == SourceBulk {
		return "bulk"
	}
	return "field"
}

// DependencyDescriptor is one declared dependency of a type.
type DependencyDescriptor struct {
	// Owner is the declaring type (pre-inheritance; frames rebase this).
	Owner TypeRef

	// Target is the required type, possibly generic or a collection element
	// after unwrapping.
	Target TypeRef

	// Collection marks a dependency on all implementations of Target.
	Collection bool

	// Source is the declaration style.
	Source DependencySource

	// External suppresses diagnostics for this edge.
	External bool

	// Naming is the identifier configuration for the generated field and
	// parameter names.
	Naming naming.Config

	// FieldName is the declared struct field for SourceField dependencies.
	FieldName string

	// Decl indexes the bulk declaration this entry came from; -1 for fields.
	Decl int

	// Order is the declaration order within the owning type.
	Order int
}

// TypeParam is one declared type parameter.
type TypeParam struct {
	// Name is the parameter identifier.
	Name string

	// Constraint is the declared bound. The zero value renders as any.
	Constraint TypeRef
}

// TypeDescriptor is the parsed per-type metadata.
type TypeDescriptor struct {
	// Ref is the qualified identity, including generic arity via TypeParams.
	Ref TypeRef

	// TypeParams are the declared type parameters, in order.
	TypeParams []TypeParam

	// Lifetime is the declared lifetime, Unassigned when absent.
	Lifetime Lifetime

	// LifetimeExplicit records whether the lifetime came from a marker
	// rather than the run-level default.
	LifetimeExplicit bool

	// External removes the type from graph participation entirely.
	External bool

	// Abstract marks a base-only or interface type: it contributes frames
	// and contracts but is never registered.
	Abstract bool

	// Interface marks a contract declaration.
	Interface bool

	// Base is the embedded base type, possibly an instantiated generic.
	Base *TypeRef

	// Implements lists every interface contract the type satisfies,
	// including those satisfied through embedding.
	Implements []TypeRef

	// Registration is the registration-mode declaration, nil when absent.
	Registration *RegistrationDirective

	// Skips are contracts excluded from registration.
	Skips []TypeRef

	// Conditions guard the type's registrations. Multiple rules targeting
	// the same contract form an ordered chain.
	Conditions []ConditionalRule
}

// Implemented reports whether the type implements the given contract.
func (t *TypeDescriptor) Implemented(contract TypeRef) bool {
	for _, c := range t.Implements {
		if c.Equal(contract) {
			return true
		}
	}
	return false
}

// SortRefs orders references by canonical key, for deterministic output.
func SortRefs(refs []TypeRef) {
	sort.Slice(refs, func(i, j int) bool { return refs[i].Key() < refs[j].Key() })
}
