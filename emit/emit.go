// Package emit synthesizes constructor and registration source from the
// analyzed graph and registration plan.
//
// Output is rendered through text/template, normalized with go/format and
// written atomically, one generated file per package. Emission is
// attempted per type: a type whose constructor cannot be rendered is
// skipped and diagnosed without suppressing unrelated types.
package emit

import (
	"go/format"
	"sort"
	"strings"
	"text/template"

	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"

	"github.com/sghaida/odigen/graph"
	"github.com/sghaida/odigen/model"
	"github.com/sghaida/odigen/plan"
)

// DefaultDIImportPath is the runtime package emitted registrations target.
const DefaultDIImportPath = "github.com/sghaida/odigen/di"

// DefaultFileName is the per-package output file name.
const DefaultFileName = "odigen_gen.go"

// Options configure emission.
type Options struct {
	// DIImportPath overrides the runtime package import path.
	DIImportPath string

	// FileName overrides the per-package output file name.
	FileName string
}

func (o Options) withDefaults() Options {
	if o.DIImportPath == "" {
		o.DIImportPath = DefaultDIImportPath
	}
	if o.FileName == "" {
		o.FileName = DefaultFileName
	}
	return o
}

// File is one generated source file.
type File struct {
	// Pkg is the import path of the package the file belongs to.
	Pkg string

	// Name is the file name within the package directory.
	Name string

	// Source is the gofmt-normalized content.
	Source []byte
}

type ctorParam struct {
	Name string
	Type string
}

type ctorAssign struct {
	Field string
	Value string
}

type ctorData struct {
	CtorName   string
	TypeParams string
	TypeName   string
	Params     []ctorParam
	HasBase    bool
	BaseField  string
	BaseCall   string
	Assigns    []ctorAssign
}

type chainEntry struct {
	Cond  string
	Lines []string
}

type chainData struct {
	Exclusive bool
	Entries   []chainEntry
}

type fileData struct {
	Package  string
	Imports  []importLine
	Ctors    []ctorData
	HasEntry bool
	DIAlias  string
	Regs     []string
	Chains   []chainData
}

// Emit renders one file per package that has constructors or planned
// registrations. Formatting failures are collected per package and
// returned combined; every other package still emits.
func Emit(g *graph.Graph, p *plan.Plan, opts Options) ([]File, error) {
	opts = opts.withDefaults()

	skipped := skippedImpls(g)
	pkgs := map[string]bool{}
	for _, node := range g.Nodes() {
		if emittableCtor(node) {
			pkgs[node.Desc.Ref.Pkg] = true
		}
	}
	for _, reg := range p.Regs {
		if !skipped[reg.Impl.Key()] {
			pkgs[reg.Impl.Pkg] = true
		}
	}
	for _, ch := range p.Chains {
		if pkg, ok := chainPkg(ch, skipped); ok {
			pkgs[pkg] = true
		}
	}

	keys := make([]string, 0, len(pkgs))
	for k := range pkgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var files []File
	var errs error
	for _, pkg := range keys {
		f, err := emitPackage(pkg, g, p, skipped, opts)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "emit package %s", pkg))
			continue
		}
		if f != nil {
			files = append(files, *f)
		}
	}
	return files, errs
}

// skippedImpls lists implementations excluded from emission: identifier
// clashes make a constructor unrepresentable, so their registrations are
// withheld as well.
func skippedImpls(g *graph.Graph) map[string]bool {
	out := map[string]bool{}
	for _, node := range g.Nodes() {
		if node.IdentifierClash {
			out[node.Desc.Ref.Key()] = true
		}
	}
	return out
}

func emittableCtor(node *graph.Node) bool {
	if node.IdentifierClash || node.Desc.Interface {
		return false
	}
	for _, rd := range node.Deps {
		if !rd.Unresolved {
			return true
		}
	}
	return false
}

func chainPkg(ch plan.Chain, skipped map[string]bool) (string, bool) {
	for _, e := range ch.Entries {
		if !skipped[e.Impl.Key()] {
			return e.Impl.Pkg, true
		}
	}
	return "", false
}

func emitPackage(pkg string, g *graph.Graph, p *plan.Plan, skipped map[string]bool, opts Options) (*File, error) {
	r := newRenderer(pkg, g, opts.DIImportPath)
	data := fileData{Package: pkgIdent(pkg)}

	for _, node := range g.Nodes() {
		if node.Desc.Ref.Pkg != pkg || !emittableCtor(node) {
			continue
		}
		data.Ctors = append(data.Ctors, buildCtor(r, node))
	}

	for _, reg := range p.Regs {
		if reg.Impl.Pkg != pkg || skipped[reg.Impl.Key()] {
			continue
		}
		data.Regs = append(data.Regs, r.registration(reg))
	}
	for _, ch := range p.Chains {
		chPkg, ok := chainPkg(ch, skipped)
		if !ok || chPkg != pkg {
			continue
		}
		cd := chainData{Exclusive: ch.Exclusive}
		for _, e := range ch.Entries {
			if skipped[e.Impl.Key()] {
				continue
			}
			cd.Entries = append(cd.Entries, chainEntry{
				Cond:  r.condition(e.Condition),
				Lines: []string{r.registration(e)},
			})
		}
		if len(cd.Entries) > 0 {
			data.Chains = append(data.Chains, cd)
		}
	}

	data.HasEntry = len(data.Regs) > 0 || len(data.Chains) > 0
	if data.HasEntry {
		data.DIAlias = r.dia()
	}
	if len(data.Ctors) == 0 && !data.HasEntry {
		return nil, nil
	}
	data.Imports = r.imports.lines()

	var sb strings.Builder
	if err := fileTpl.Execute(&sb, data); err != nil {
		return nil, err
	}
	src, err := format.Source([]byte(sb.String()))
	if err != nil {
		return nil, errors.Wrap(err, "gofmt of generated source failed")
	}
	return &File{Pkg: pkg, Name: opts.FileName, Source: src}, nil
}

// buildCtor assembles the constructor rendering data for one node:
// inherited-base parameters first in base declaration order, then own
// parameters; own field assignments; a base call forwarding exactly the
// base's subset when the base itself requires parameters.
func buildCtor(r *renderer, node *graph.Node) ctorData {
	td := node.Desc
	cd := ctorData{
		CtorName:   ctorName(td.Ref),
		TypeName:   localTypeName(td),
		TypeParams: r.typeParamsDecl(td.TypeParams),
	}

	var baseArgs []string
	for _, rd := range node.Inherited() {
		if rd.Unresolved {
			continue
		}
		cd.Params = append(cd.Params, ctorParam{Name: rd.ParamName, Type: r.depType(rd)})
		baseArgs = append(baseArgs, rd.ParamName)
	}
	for _, rd := range node.Own() {
		if rd.Unresolved {
			continue
		}
		cd.Params = append(cd.Params, ctorParam{Name: rd.ParamName, Type: r.depType(rd)})
		cd.Assigns = append(cd.Assigns, ctorAssign{Field: rd.FieldName, Value: rd.ParamName})
	}

	if td.Base != nil && len(baseArgs) > 0 {
		cd.HasBase = true
		cd.BaseField = td.Base.Name
		cd.BaseCall = "*" + r.baseCtorCall(*td.Base, baseArgs)
	}
	return cd
}

// baseCtorCall renders the base constructor invocation, instantiating the
// base's type arguments when it is generic.
func (r *renderer) baseCtorCall(base model.TypeRef, args []string) string {
	name := ctorName(base)
	if base.Pkg != "" && base.Pkg != r.pkg {
		name = r.imports.add(base.Pkg) + "." + name
	}
	if len(base.Args) > 0 {
		rendered := make([]string, 0, len(base.Args))
		for _, a := range base.Args {
			rendered = append(rendered, r.valueType(a))
		}
		name += "[" + strings.Join(rendered, ", ") + "]"
	}
	return name + "(" + strings.Join(args, ", ") + ")"
}

// localTypeName renders the declared type with its own parameters applied,
// e.g. "Repo[T]" for a generic declaration.
func localTypeName(td *model.TypeDescriptor) string {
	if len(td.TypeParams) == 0 {
		return td.Ref.Name
	}
	names := make([]string, 0, len(td.TypeParams))
	for _, p := range td.TypeParams {
		names = append(names, p.Name)
	}
	return td.Ref.Name + "[" + strings.Join(names, ", ") + "]"
}

// typeParamsDecl renders the constructor's type parameter list, carrying
// each declared constraint through so the generated signature satisfies the
// same bounds as the type.
func (r *renderer) typeParamsDecl(params []model.TypeParam) string {
	if len(params) == 0 {
		return ""
	}
	decls := make([]string, 0, len(params))
	for _, p := range params {
		c := "any"
		if p.Constraint.Name != "" {
			c = r.typeName(p.Constraint)
		}
		decls = append(decls, p.Name+" "+c)
	}
	return "[" + strings.Join(decls, ", ") + "]"
}

// pkgIdent derives the package clause identifier from an import path.
func pkgIdent(pkg string) string {
	if i := strings.LastIndexByte(pkg, '/'); i >= 0 {
		return pkg[i+1:]
	}
	return pkg
}

var fileTpl = template.Must(template.New("file").Parse(`// Code generated by odigen; DO NOT EDIT.

package {{.Package}}
{{if .Imports}}
import (
{{- range .Imports}}
	{{if .Alias}}{{.Alias}} {{end}}"{{.Path}}"
{{- end}}
)
{{end}}
{{- range .Ctors}}
// {{.CtorName}} wires the declared dependencies of {{.TypeName}}.
func {{.CtorName}}{{.TypeParams}}({{range $i, $p := .Params}}{{if $i}}, {{end}}{{$p.Name}} {{$p.Type}}{{end}}) *{{.TypeName}} {
	return &{{.TypeName}}{
{{- if .HasBase}}
		{{.BaseField}}: {{.BaseCall}},
{{- end}}
{{- range .Assigns}}
		{{.Field}}: {{.Value}},
{{- end}}
	}
}
{{end}}
{{- if .HasEntry}}
// RegisterServices issues one container call per planned contract of this
// package, conditional registrations grouped by predicate.
func RegisterServices(r *{{.DIAlias}}.Registry, env {{.DIAlias}}.Environment) {
{{- range .Regs}}
	{{.}}
{{- end}}
{{- range .Chains}}
{{- if .Exclusive}}
{{- range $i, $e := .Entries}}
	{{if $i}}} else if {{$e.Cond}} { {{- else}}if {{$e.Cond}} { {{- end}}
{{- range $e.Lines}}
		{{.}}
{{- end}}
{{- end}}
	}
{{- else}}
{{- range $e := .Entries}}
	if {{$e.Cond}} {
{{- range $e.Lines}}
		{{.}}
{{- end}}
	}
{{- end}}
{{- end}}
{{- end}}
}
{{end}}`))
