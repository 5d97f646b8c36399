// Package extract turns raw type declarations into analysis descriptors.
//
// Extraction is a pure transformation: one RawType in, one TypeDescriptor
// plus zero or more DependencyDescriptors out. Missing or partial markers
// are valid input; malformed directive lines are diagnosed and skipped
// without aborting the declaring type, let alone the run.
package extract

import (
	"strings"

	"github.com/sghaida/odigen/diag"
	"github.com/sghaida/odigen/model"
	"github.com/sghaida/odigen/naming"
)

// RawField is one struct field of a raw declaration.
type RawField struct {
	// Name is the declared field name.
	Name string

	// Type is the field type with pointers stripped.
	Type model.TypeRef

	// Collection marks a slice-typed field.
	Collection bool

	// HasInject marks the presence of an `inject` tag.
	HasInject bool

	// Tag is the `inject` tag value; "external" flags the edge external.
	Tag string
}

// RawType is one type declaration as produced by the loader (or built
// directly by tests).
type RawType struct {
	// Pkg is the import path of the declaring package.
	Pkg string

	// Name is the declared type name.
	Name string

	// TypeParams are the declared type parameters with their constraints.
	TypeParams []model.TypeParam

	// Directives are the doc-comment marker lines, with or without the
	// leading "//".
	Directives []string

	// Fields are the struct fields, declaration order.
	Fields []RawField

	// Base is the embedded base type, nil when the type embeds nothing.
	Base *model.TypeRef

	// Implements lists the interface contracts the type satisfies.
	Implements []model.TypeRef

	// Interface marks an interface declaration.
	Interface bool

	// Imports maps aliases used in directive targets to import paths.
	Imports map[string]string
}

// Ref returns the declaration's type reference.
func (r *RawType) Ref() model.TypeRef { return model.Ref(r.Pkg, r.Name) }

func (r *RawType) scope() ownerScope {
	names := make([]string, 0, len(r.TypeParams))
	for _, p := range r.TypeParams {
		names = append(names, p.Name)
	}
	return ownerScope{Pkg: r.Pkg, TypeParams: names, Imports: r.Imports}
}

// Extract parses one declaration's markers into descriptors.
//
// The returned dependency list preserves declaration order: field markers
// first (struct order), then bulk declarations in directive order.
func Extract(raw *RawType, col *diag.Collector) (*model.TypeDescriptor, []model.DependencyDescriptor) {
	td := &model.TypeDescriptor{
		Ref:        raw.Ref(),
		TypeParams: append([]model.TypeParam(nil), raw.TypeParams...),
		Base:       raw.Base,
		Implements: append([]model.TypeRef(nil), raw.Implements...),
		Interface:  raw.Interface,
		Abstract:   raw.Interface,
	}
	key := td.Ref.Key()

	var deps []model.DependencyDescriptor
	order := 0

	for _, f := range raw.Fields {
		if !f.HasInject {
			continue
		}
		deps = append(deps, model.DependencyDescriptor{
			Owner:      td.Ref,
			Target:     f.Type,
			Collection: f.Collection,
			Source:     model.SourceField,
			External:   strings.EqualFold(strings.TrimSpace(f.Tag), "external"),
			Naming:     naming.FieldDefaults(),
			FieldName:  f.Name,
			Decl:       -1,
			Order:      order,
		})
		order++
	}

	bulkIndex := 0
	for _, line := range raw.Directives {
		d, ok := parseDirective(line)
		if !ok {
			continue
		}
		switch d.Verb {
		case "service":
			extractLifetime(td, d, key, col)
		case "deps":
			n := extractBulk(raw, td, d, bulkIndex, &deps, &order, key, col)
			if n {
				bulkIndex++
			}
		case "external":
			td.External = true
		case "abstract":
			td.Abstract = true
		case "register":
			extractRegistration(td, d, key, col)
		case "skip":
			extractSkips(raw, td, d, key, col)
		case "when":
			extractCondition(td, d, key, col)
		default:
			col.Report(diag.CodeMalformedDirective, []string{key},
				"unknown directive %q", d.Verb)
		}
	}

	return td, deps
}

func extractLifetime(td *model.TypeDescriptor, d directive, key string, col *diag.Collector) {
	if td.LifetimeExplicit {
		col.Report(diag.CodeMalformedDirective, []string{key},
			"repeated service directive; a type declares at most one lifetime")
		return
	}
	arg := ""
	if len(d.Args) > 0 {
		arg = d.Args[0]
	}
	lt, ok := model.ParseLifetime(arg)
	if !ok {
		col.Report(diag.CodeMalformedDirective, []string{key},
			"unknown lifetime %q; want singleton, scoped or transient", arg)
		return
	}
	td.Lifetime = lt
	// A bare service directive is valid: dependencies and registration may
	// still be inferred from other markers.
	td.LifetimeExplicit = lt != model.Unassigned
}

// extractBulk parses one bulk dependency declaration. It reports whether a
// declaration was recorded (malformed lines do not consume an index).
func extractBulk(raw *RawType, td *model.TypeDescriptor, d directive, declIndex int,
	deps *[]model.DependencyDescriptor, order *int, key string, col *diag.Collector) bool {

	if len(d.Args) == 0 {
		col.Report(diag.CodeMalformedDirective, []string{key},
			"deps directive without targets")
		return false
	}

	cfg := naming.FieldDefaults()
	cfg.StripMarker = false
	external := false
	targetsArg := d.Args[0]

	for _, opt := range d.Args[1:] {
		switch {
		case opt == "external":
			external = true
		case opt == "strip":
			cfg.StripMarker = true
		case strings.HasPrefix(opt, "convention="):
			conv, ok := naming.ParseConvention(strings.TrimPrefix(opt, "convention="))
			if !ok {
				col.Report(diag.CodeMalformedDirective, []string{key},
					"unknown naming convention in %q", opt)
				return false
			}
			cfg.Convention = conv
		case strings.HasPrefix(opt, "prefix="):
			cfg.Prefix = strings.TrimPrefix(opt, "prefix=")
		default:
			col.Report(diag.CodeMalformedDirective, []string{key},
				"unknown deps option %q", opt)
			return false
		}
	}

	recorded := false
	for _, part := range splitTopLevel(targetsArg) {
		target, collection, ok := ParseTypeRefLiteral(part, raw.scope())
		if !ok {
			col.Report(diag.CodeMalformedDirective, []string{key},
				"unparseable dependency target %q", part)
			continue
		}
		*deps = append(*deps, model.DependencyDescriptor{
			Owner:      td.Ref,
			Target:     target,
			Collection: collection,
			Source:     model.SourceBulk,
			External:   external,
			Naming:     cfg,
			Decl:       declIndex,
			Order:      *order,
		})
		*order++
		recorded = true
	}
	return recorded
}

func extractRegistration(td *model.TypeDescriptor, d directive, key string, col *diag.Collector) {
	if td.Registration != nil {
		col.Report(diag.CodeMalformedDirective, []string{key},
			"repeated register directive")
		return
	}
	reg := &model.RegistrationDirective{}
	for _, arg := range d.Args {
		switch strings.ToLower(arg) {
		case "direct", "directonly":
			reg.Mode = model.DirectOnly
		case "all":
			reg.Mode = model.All
		case "interfaces", "exclusionary":
			reg.Mode = model.Exclusionary
		case "separate":
			reg.Sharing = model.Separate
		case "shared":
			reg.Sharing = model.Shared
		default:
			col.Report(diag.CodeMalformedDirective, []string{key},
				"unknown register option %q", arg)
			return
		}
	}
	td.Registration = reg
}

func extractSkips(raw *RawType, td *model.TypeDescriptor, d directive, key string, col *diag.Collector) {
	if len(d.Args) == 0 {
		col.Report(diag.CodeMalformedDirective, []string{key},
			"skip directive without contracts")
		return
	}
	for _, part := range splitTopLevel(strings.Join(d.Args, ",")) {
		ref, collection, ok := ParseTypeRefLiteral(part, raw.scope())
		if !ok || collection {
			col.Report(diag.CodeMalformedDirective, []string{key},
				"unparseable skip contract %q", part)
			continue
		}
		td.Skips = append(td.Skips, ref)
	}
}

// extractCondition parses a `when` directive. Clauses are comma-joined and
// AND-combined; at most one env clause and one config clause are allowed.
func extractCondition(td *model.TypeDescriptor, d directive, key string, col *diag.Collector) {
	if len(d.Args) == 0 {
		col.Report(diag.CodeMalformedDirective, []string{key},
			"when directive without predicate")
		return
	}
	var rule model.ConditionalRule
	for _, clause := range splitTopLevel(strings.Join(d.Args, ",")) {
		neg := strings.Contains(clause, "!=")
		var lhs, rhs string
		if neg {
			lhs, rhs = cut2(clause, "!=")
		} else {
			lhs, rhs = cut2(clause, "=")
		}
		lhs, rhs = strings.TrimSpace(lhs), strings.TrimSpace(rhs)
		switch {
		case lhs == "env" && rhs != "":
			if rule.Env != "" {
				col.Report(diag.CodeMalformedDirective, []string{key},
					"multiple env clauses in one when directive")
				return
			}
			rule.Env, rule.EnvNot = rhs, neg
		case strings.HasPrefix(lhs, "cfg:") && strings.TrimPrefix(lhs, "cfg:") != "":
			if rule.ConfigKey != "" {
				col.Report(diag.CodeMalformedDirective, []string{key},
					"multiple config clauses in one when directive")
				return
			}
			rule.ConfigKey = strings.TrimPrefix(lhs, "cfg:")
			rule.ConfigValue, rule.ConfigNot = rhs, neg
		default:
			col.Report(diag.CodeMalformedDirective, []string{key},
				"unparseable when clause %q", clause)
			return
		}
	}
	if rule.IsZero() {
		col.Report(diag.CodeMalformedDirective, []string{key},
			"when directive resolved to no predicate")
		return
	}
	td.Conditions = append(td.Conditions, rule)
}

func cut2(s, sep string) (string, string) {
	before, after, _ := strings.Cut(s, sep)
	return before, after
}
