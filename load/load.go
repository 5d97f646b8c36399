// Package load discovers annotated declarations in Go source.
//
// It drives golang.org/x/tools/go/packages with full type information and
// lowers each participating declaration into an extract.RawType. The loader
// resolves field types through the type checker rather than the syntax
// tree, so aliases, dot-imports and instantiated generics all land on
// canonical references.
package load

import (
	"context"
	"go/ast"
	"go/types"
	"reflect"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"
	"golang.org/x/tools/go/packages"

	"github.com/sghaida/odigen/extract"
	"github.com/sghaida/odigen/model"
)

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedImports |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedModule

// Packages loads the given patterns rooted at dir and returns the raw
// declarations that participate in analysis: every type carrying an odigen
// directive or an inject tag, plus every module-local interface such a type
// implements.
func Packages(ctx context.Context, dir string, patterns []string) ([]*extract.RawType, error) {
	cfg := &packages.Config{Mode: loadMode, Dir: dir, Context: ctx}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, errors.Wrap(err, "load packages")
	}

	var loadErrs error
	for _, p := range pkgs {
		for _, e := range p.Errors {
			loadErrs = multierr.Append(loadErrs, errors.Newf("%s: %s", p.PkgPath, e.Msg))
		}
	}
	if loadErrs != nil {
		return nil, loadErrs
	}

	decls := collectDecls(pkgs)
	ifaces := moduleInterfaces(pkgs)

	var out []*extract.RawType
	included := map[string]bool{}
	for _, d := range decls {
		if !d.participates() {
			continue
		}
		raw := lowerDecl(d, ifaces)
		out = append(out, raw)
		included[raw.Ref().Key()] = true
	}

	// Interfaces implemented by a participant join the snapshot even when
	// they carry no markers of their own; contract resolution needs them.
	needed := map[string]bool{}
	for _, raw := range out {
		for _, c := range raw.Implements {
			needed[c.Key()] = true
		}
	}
	for _, d := range decls {
		if !d.isInterface() {
			continue
		}
		key := model.Ref(d.pkg.PkgPath, d.spec.Name.Name).Key()
		if included[key] || !needed[key] && !d.hasDirectives() {
			continue
		}
		out = append(out, lowerDecl(d, ifaces))
		included[key] = true
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Ref().Key() < out[j].Ref().Key() })
	return out, nil
}

// decl pairs one type declaration with its package and doc comment.
type decl struct {
	pkg        *packages.Package
	file       *ast.File
	spec       *ast.TypeSpec
	directives []string
	named      *types.Named
}

func collectDecls(pkgs []*packages.Package) []decl {
	var out []decl
	for _, p := range pkgs {
		for _, file := range p.Syntax {
			for _, raw := range file.Decls {
				gd, ok := raw.(*ast.GenDecl)
				if !ok {
					continue
				}
				for _, s := range gd.Specs {
					ts, ok := s.(*ast.TypeSpec)
					if !ok {
						continue
					}
					obj := p.Types.Scope().Lookup(ts.Name.Name)
					if obj == nil {
						continue
					}
					named, ok := obj.Type().(*types.Named)
					if !ok {
						continue
					}
					out = append(out, decl{
						pkg:        p,
						file:       file,
						spec:       ts,
						directives: directiveLines(gd, ts),
						named:      named,
					})
				}
			}
		}
	}
	return out
}

// directiveLines gathers the odigen marker lines from both the declaration
// group's doc and the type's own doc.
func directiveLines(gd *ast.GenDecl, ts *ast.TypeSpec) []string {
	var lines []string
	for _, cg := range []*ast.CommentGroup{gd.Doc, ts.Doc} {
		if cg == nil {
			continue
		}
		for _, c := range cg.List {
			text := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
			if strings.HasPrefix(text, extract.DirectivePrefix) {
				lines = append(lines, text)
			}
		}
	}
	return lines
}

func (d decl) hasDirectives() bool { return len(d.directives) > 0 }

func (d decl) isInterface() bool {
	_, ok := d.named.Underlying().(*types.Interface)
	return ok
}

// participates reports whether the declaration enters analysis on its own:
// it carries a directive, or one of its fields carries an inject tag.
func (d decl) participates() bool {
	if d.hasDirectives() {
		return true
	}
	st, ok := d.spec.Type.(*ast.StructType)
	if !ok {
		return false
	}
	for _, f := range st.Fields.List {
		if injectTag(f) != nil {
			return true
		}
	}
	return false
}

// injectTag returns the inject tag value, nil when absent.
func injectTag(f *ast.Field) *string {
	if f.Tag == nil {
		return nil
	}
	tag := reflect.StructTag(strings.Trim(f.Tag.Value, "`"))
	v, ok := tag.Lookup("inject")
	if !ok {
		return nil
	}
	return &v
}

func lowerDecl(d decl, ifaces []*types.Named) *extract.RawType {
	raw := &extract.RawType{
		Pkg:        d.pkg.PkgPath,
		Name:       d.spec.Name.Name,
		Directives: d.directives,
		Interface:  d.isInterface(),
		Imports:    fileImports(d.pkg, d.file),
	}
	if tps := d.named.TypeParams(); tps != nil {
		for i := 0; i < tps.Len(); i++ {
			tp := tps.At(i)
			raw.TypeParams = append(raw.TypeParams, model.TypeParam{
				Name:       tp.Obj().Name(),
				Constraint: constraintRef(d.pkg, tp.Constraint()),
			})
		}
	}

	params := map[string]bool{}
	for _, p := range raw.TypeParams {
		params[p.Name] = true
	}

	if st, ok := d.spec.Type.(*ast.StructType); ok {
		lowerFields(d, st, params, raw)
	}
	if !raw.Interface {
		raw.Implements = implementedContracts(d.named, ifaces)
	}
	return raw
}

// lowerFields records inject-tagged fields and the first embedded struct,
// which acts as the base of the inheritance chain.
func lowerFields(d decl, st *ast.StructType, params map[string]bool, raw *extract.RawType) {
	for _, f := range st.Fields.List {
		t := d.pkg.TypesInfo.TypeOf(f.Type)
		if t == nil {
			continue
		}
		ref, collection, ok := refFromType(t, params)
		if !ok {
			continue
		}

		if len(f.Names) == 0 {
			if raw.Base == nil && !raw.Interface && isStructRef(t) {
				base := ref
				raw.Base = &base
			}
			continue
		}

		tag := injectTag(f)
		for _, name := range f.Names {
			raw.Fields = append(raw.Fields, extract.RawField{
				Name:       name.Name,
				Type:       ref,
				Collection: collection,
				HasInject:  tag != nil,
				Tag:        deref(tag),
			})
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// constraintRef lowers a type parameter's bound. Empty interfaces collapse
// to any; named bounds keep their qualified identity so the emitter can
// import them. Other shapes fall back to their type string relative to the
// declaring package.
func constraintRef(p *packages.Package, t types.Type) model.TypeRef {
	if iface, ok := t.Underlying().(*types.Interface); ok && iface.Empty() {
		return model.TypeRef{Name: "any"}
	}
	if named, ok := t.(*types.Named); ok {
		obj := named.Obj()
		if obj.Pkg() == nil {
			return model.TypeRef{Name: obj.Name()}
		}
		return model.Ref(obj.Pkg().Path(), obj.Name())
	}
	return model.TypeRef{Name: types.TypeString(t, types.RelativeTo(p.Types))}
}

// isStructRef reports whether the (possibly pointered) type names a struct.
func isStructRef(t types.Type) bool {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	n, ok := t.(*types.Named)
	if !ok {
		return false
	}
	_, ok = n.Underlying().(*types.Struct)
	return ok
}

// refFromType lowers a checked type into a reference. Unsupported shapes
// (maps, channels, funcs, anonymous structs) report ok=false and the field
// simply does not participate.
func refFromType(t types.Type, params map[string]bool) (ref model.TypeRef, collection bool, ok bool) {
	if s, isSlice := t.(*types.Slice); isSlice {
		collection = true
		t = s.Elem()
	}
	if p, isPtr := t.(*types.Pointer); isPtr {
		ref.Ptr = true
		t = p.Elem()
	}

	switch v := t.(type) {
	case *types.Named:
		obj := v.Obj()
		ref.Name = obj.Name()
		if obj.Pkg() != nil {
			ref.Pkg = obj.Pkg().Path()
		}
		if args := v.TypeArgs(); args != nil {
			for i := 0; i < args.Len(); i++ {
				arg, argColl, argOK := refFromType(args.At(i), params)
				if !argOK || argColl {
					return model.TypeRef{}, false, false
				}
				ref.Args = append(ref.Args, arg)
			}
		}
		return ref, collection, true
	case *types.TypeParam:
		if !params[v.Obj().Name()] {
			return model.TypeRef{}, false, false
		}
		p := model.ParamRef(v.Obj().Name())
		p.Ptr = ref.Ptr
		return p, collection, true
	default:
		return model.TypeRef{}, false, false
	}
}

// moduleInterfaces lists the named, non-empty, non-generic interfaces
// declared in the loaded module's packages; these are the contract
// candidates for implements resolution.
func moduleInterfaces(pkgs []*packages.Package) []*types.Named {
	var out []*types.Named
	seen := map[string]bool{}
	for _, p := range pkgs {
		scope := p.Types.Scope()
		for _, name := range scope.Names() {
			obj, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || obj.IsAlias() {
				continue
			}
			named, ok := obj.Type().(*types.Named)
			if !ok || named.TypeParams() != nil && named.TypeParams().Len() > 0 {
				continue
			}
			iface, ok := named.Underlying().(*types.Interface)
			if !ok || iface.NumMethods() == 0 {
				continue
			}
			key := p.PkgPath + "." + name
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, named)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return ifaceKey(out[i]) < ifaceKey(out[j])
	})
	return out
}

func ifaceKey(n *types.Named) string {
	return n.Obj().Pkg().Path() + "." + n.Obj().Name()
}

// implementedContracts lists the candidate interfaces t satisfies, by value
// or by pointer receiver.
func implementedContracts(t *types.Named, ifaces []*types.Named) []model.TypeRef {
	var out []model.TypeRef
	ptr := types.NewPointer(t)
	for _, n := range ifaces {
		iface := n.Underlying().(*types.Interface)
		if !types.Implements(t, iface) && !types.Implements(ptr, iface) {
			continue
		}
		out = append(out, model.Ref(n.Obj().Pkg().Path(), n.Obj().Name()))
	}
	return out
}

// fileImports maps the aliases usable in this file's directive targets to
// import paths.
func fileImports(p *packages.Package, file *ast.File) map[string]string {
	out := map[string]string{}
	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		switch {
		case imp.Name != nil:
			if imp.Name.Name != "_" && imp.Name.Name != "." {
				out[imp.Name.Name] = path
			}
		case p.Imports[path] != nil:
			out[p.Imports[path].Name] = path
		default:
			if i := strings.LastIndexByte(path, '/'); i >= 0 {
				out[path[i+1:]] = path
			} else {
				out[path] = path
			}
		}
	}
	return out
}
