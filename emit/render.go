package emit

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/sghaida/odigen/graph"
	"github.com/sghaida/odigen/model"
	"github.com/sghaida/odigen/plan"
)

// importSet accumulates the import lines one generated file needs.
type importSet struct {
	byPath map[string]string // path -> alias actually used
	order  []string
}

func newImportSet() *importSet {
	return &importSet{byPath: map[string]string{}}
}

// add registers an import path and returns the identifier to qualify
// references with. Base-name collisions get a numeric suffix.
func (s *importSet) add(importPath string) string {
	if alias, ok := s.byPath[importPath]; ok {
		return alias
	}
	base := path.Base(importPath)
	alias := base
	for i := 2; s.aliasTaken(alias); i++ {
		alias = base + strconv.Itoa(i)
	}
	s.byPath[importPath] = alias
	s.order = append(s.order, importPath)
	return alias
}

func (s *importSet) aliasTaken(alias string) bool {
	for _, a := range s.byPath {
		if a == alias {
			return true
		}
	}
	return false
}

// lines returns the sorted import block entries. The alias is only spelled
// out when it differs from the path base.
func (s *importSet) lines() []importLine {
	paths := append([]string(nil), s.order...)
	sort.Strings(paths)
	out := make([]importLine, 0, len(paths))
	for _, p := range paths {
		alias := s.byPath[p]
		if alias == path.Base(p) {
			alias = ""
		}
		out = append(out, importLine{Alias: alias, Path: p})
	}
	return out
}

type importLine struct {
	Alias string
	Path  string
}

// renderer turns type references and plan entries into source fragments
// for one target package.
type renderer struct {
	pkg      string
	g        *graph.Graph
	imports  *importSet
	diImport string
}

func newRenderer(pkg string, g *graph.Graph, diImport string) *renderer {
	return &renderer{pkg: pkg, g: g, imports: newImportSet(), diImport: diImport}
}

// dia returns the identifier of the runtime package, importing it on first
// use so files without registrations do not import it at all.
func (r *renderer) dia() string { return r.imports.add(r.diImport) }

// typeName renders a reference as it appears in the target package,
// without pointer decoration.
func (r *renderer) typeName(ref model.TypeRef) string {
	var sb strings.Builder
	switch {
	case ref.Param, ref.Pkg == "", ref.Pkg == r.pkg:
		sb.WriteString(ref.Name)
	default:
		sb.WriteString(r.imports.add(ref.Pkg))
		sb.WriteByte('.')
		sb.WriteString(ref.Name)
	}
	if len(ref.Args) > 0 {
		sb.WriteByte('[')
		for i, a := range ref.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(r.valueType(a))
		}
		sb.WriteByte(']')
	}
	return sb.String()
}

// valueType renders a reference as a value type: concrete struct types are
// passed and registered by pointer, contracts and type parameters bare.
func (r *renderer) valueType(ref model.TypeRef) string {
	if r.concrete(ref) {
		return "*" + r.typeName(ref)
	}
	return r.typeName(ref)
}

// concrete reports whether a reference names a struct type rather than a
// contract. Types outside the snapshot follow the declaration's own
// pointer marker.
func (r *renderer) concrete(ref model.TypeRef) bool {
	if ref.Param {
		return false
	}
	if td := r.g.Snapshot().Lookup(model.Ref(ref.Pkg, ref.Name)); td != nil {
		return !td.Interface
	}
	return ref.Ptr
}

// depType renders the resolvable type of a dependency edge.
func (r *renderer) depType(rd graph.ResolvedDep) string {
	if rd.Dep.Collection {
		return "[]" + r.valueType(rd.Dep.Target)
	}
	return r.valueType(rd.Dep.Target)
}

// resolveArg renders the factory argument resolving one dependency.
func (r *renderer) resolveArg(rd graph.ResolvedDep) string {
	if rd.Dep.Collection {
		return fmt.Sprintf("%s.MustResolveAll[%s](s)", r.dia(), r.valueType(rd.Dep.Target))
	}
	return fmt.Sprintf("%s.MustResolve[%s](s)", r.dia(), r.valueType(rd.Dep.Target))
}

// lifetimeExpr renders the runtime lifetime constant.
func (r *renderer) lifetimeExpr(lt model.Lifetime) string {
	switch lt {
	case model.Singleton:
		return r.dia() + ".Singleton"
	case model.Scoped:
		return r.dia() + ".Scoped"
	default:
		return r.dia() + ".Transient"
	}
}

// condition renders a conditional rule, environment clause first, config
// clause second, AND-joined.
func (r *renderer) condition(c model.ConditionalRule) string {
	var parts []string
	if c.Env != "" {
		if c.EnvNot {
			parts = append(parts, fmt.Sprintf("env.IsNot(%q)", c.Env))
		} else {
			parts = append(parts, fmt.Sprintf("env.Is(%q)", c.Env))
		}
	}
	if c.ConfigKey != "" {
		if c.ConfigNot {
			parts = append(parts, fmt.Sprintf("env.ConfigNotEquals(%q, %q)", c.ConfigKey, c.ConfigValue))
		} else {
			parts = append(parts, fmt.Sprintf("env.ConfigEquals(%q, %q)", c.ConfigKey, c.ConfigValue))
		}
	}
	return strings.Join(parts, " && ")
}

// factoryExpr renders the construction expression for an implementation:
// the generated constructor call when the type has wired dependencies, a
// composite literal otherwise.
func (r *renderer) factoryExpr(impl model.TypeRef) string {
	node := r.g.Node(impl.Key())
	if node == nil {
		return "&" + r.typeName(impl) + "{}"
	}
	var args []string
	for _, rd := range node.Deps {
		if rd.Unresolved {
			continue
		}
		args = append(args, r.resolveArg(rd))
	}
	if len(args) == 0 {
		return "&" + r.typeName(impl) + "{}"
	}
	ctor := ctorName(impl)
	if impl.Pkg != r.pkg {
		ctor = r.imports.add(impl.Pkg) + "." + ctor
	}
	return ctor + "(" + strings.Join(args, ", ") + ")"
}

// registration renders one planned container call.
func (r *renderer) registration(reg plan.Registration) string {
	switch reg.Kind {
	case plan.KindForward:
		return fmt.Sprintf("%s.Forward[%s, %s](r)",
			r.dia(), r.valueType(reg.Contract), r.valueType(reg.Impl))
	case plan.KindContract:
		contract := r.valueType(reg.Contract)
		return fmt.Sprintf("%s.Register[%s](r, %s, func(s *%s.Scope) (%s, error) { return %s, nil })",
			r.dia(), contract, r.lifetimeExpr(reg.Lifetime), r.dia(), contract, r.factoryExpr(reg.Impl))
	default:
		impl := r.valueType(reg.Impl)
		return fmt.Sprintf("%s.Register(r, %s, func(s *%s.Scope) (%s, error) { return %s, nil })",
			r.dia(), r.lifetimeExpr(reg.Lifetime), r.dia(), impl, r.factoryExpr(reg.Impl))
	}
}

// ctorName is the generated constructor identifier for a type.
func ctorName(ref model.TypeRef) string { return "New" + ref.Name }
