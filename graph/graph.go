// Package graph builds the dependency graph the validators, planner and
// emitter traverse.
//
// One adjacency structure serves every pass: edges carry a viaCollection
// tag instead of living in a parallel "soft" graph, so the cycle detector
// and the lifetime validator share a single traversal surface.
package graph

import (
	"sort"

	"github.com/sghaida/odigen/diag"
	"github.com/sghaida/odigen/model"
	"github.com/sghaida/odigen/naming"
)

// ResolvedDep is one dependency of a node after inheritance flattening,
// generic substitution and candidate resolution.
type ResolvedDep struct {
	// Dep is the declaration with Target rewritten into the node's type
	// context.
	Dep model.DependencyDescriptor

	// Inherited marks dependencies contributed by a base frame.
	Inherited bool

	// FrameOwner is the declaring type of the frame, root-most bases first.
	FrameOwner model.TypeRef

	// Candidates are the implementations the target resolves to. Exactly
	// one for a resolvable non-collection edge; any number for a
	// collection; nil for external or unresolved edges.
	Candidates []*model.TypeDescriptor

	// Unresolved marks an edge that failed resolution and must be excluded
	// from traversal and emission.
	Unresolved bool

	// FieldName is the struct field the constructor assigns. For field
	// markers it is the declared name; for bulk entries it is resolved from
	// the naming configuration.
	FieldName string

	// ParamName is the constructor-parameter identifier, always camelCase.
	ParamName string
}

// Node is one analyzed type with its flattened dependency set.
type Node struct {
	// Desc is the type's descriptor.
	Desc *model.TypeDescriptor

	// Deps holds inherited dependencies first (base declaration order,
	// root-most frame first) followed by the type's own dependencies.
	Deps []ResolvedDep

	// OwnStart indexes the first own (non-inherited) dependency.
	OwnStart int

	// Open marks a generic type with unbound parameters; such a node is
	// analyzed but never planned for registration.
	Open bool

	// IdentifierClash marks a node whose generated identifiers collide;
	// emission for the type is skipped, everything else continues.
	IdentifierClash bool
}

// Inherited returns the base portion of the dependency list.
func (n *Node) Inherited() []ResolvedDep { return n.Deps[:n.OwnStart] }

// Own returns the type's own dependencies.
func (n *Node) Own() []ResolvedDep { return n.Deps[n.OwnStart:] }

// Graph is the read-only dependency graph for one snapshot.
type Graph struct {
	snap  *model.Snapshot
	nodes map[string]*Node
	keys  []string
}

// Snapshot returns the snapshot the graph was built from.
func (g *Graph) Snapshot() *model.Snapshot { return g.snap }

// Node returns the node for a canonical key, or nil.
func (g *Graph) Node(key string) *Node { return g.nodes[key] }

// Nodes returns every node ordered by canonical key.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.keys))
	for _, k := range g.keys {
		out = append(out, g.nodes[k])
	}
	return out
}

// Build constructs the graph for a snapshot.
//
// Merge diagnostics are reported once, on the declaring type; inherited
// frames reuse the already-merged per-type lists. External types do not
// become nodes at all.
func Build(snap *model.Snapshot, col *diag.Collector) *Graph {
	g := &Graph{snap: snap, nodes: map[string]*Node{}}

	// Per-type merge happens exactly once, diagnosing on the declaring
	// type, external and interface declarations excluded.
	merged := map[string][]model.DependencyDescriptor{}
	for _, td := range snap.Sorted() {
		if td.Interface || td.External {
			continue
		}
		merged[td.Ref.Key()] = mergeDeclared(td, snap.Deps(td.Ref.Key()), col)
	}

	for _, td := range snap.Sorted() {
		if td.Interface || td.External {
			continue
		}
		g.addNode(td, merged, col)
	}

	sort.Strings(g.keys)
	return g
}

func (g *Graph) addNode(td *model.TypeDescriptor, merged map[string][]model.DependencyDescriptor, col *diag.Collector) {
	key := td.Ref.Key()
	node := &Node{Desc: td, Open: len(td.TypeParams) > 0}

	frames, binds := g.frameChain(td, col)
	for i, frame := range frames {
		// Identity comparison happens on substituted targets: two declared
		// deps of one frame that close over the same argument collapse to a
		// single edge.
		seen := map[string]bool{}
		for _, d := range merged[frame.Ref.Key()] {
			rd := g.resolveDep(td, frame, d, binds[i], node.Open, col)
			tk := rd.Dep.Target.Key()
			if !rd.Unresolved && seen[tk] {
				col.Report(diag.CodeDuplicateAcrossDeclarations, []string{key, tk},
					"target %s duplicated after type-argument substitution; a single edge is kept", tk)
				continue
			}
			seen[tk] = true
			node.Deps = append(node.Deps, rd)
		}
	}
	node.OwnStart = len(node.Deps)
	for _, d := range merged[key] {
		node.Deps = append(node.Deps, g.resolveDep(td, td, d, nil, node.Open, col))
	}

	g.checkIdentifiers(node, col)

	g.nodes[key] = node
	g.keys = append(g.keys, key)
}

// frameChain walks the embedding chain and returns base frames root-most
// first, with the parameter bindings composed down to td's type context.
func (g *Graph) frameChain(td *model.TypeDescriptor, col *diag.Collector) ([]*model.TypeDescriptor, []map[string]model.TypeRef) {
	var frames []*model.TypeDescriptor
	var binds []map[string]model.TypeRef

	seen := map[string]bool{td.Ref.Key(): true}
	cur := td
	var curBind map[string]model.TypeRef

	for cur.Base != nil {
		base := g.snap.Lookup(model.Ref(cur.Base.Pkg, cur.Base.Name))
		if base == nil || base.External {
			// Base resolved outside the snapshot; its dependencies are not
			// ours to analyze.
			break
		}
		baseKey := base.Ref.Key()
		if seen[baseKey] {
			col.Report(diag.CodeMalformedDirective, []string{td.Ref.Key(), baseKey},
				"embedding cycle through %s", baseKey)
			break
		}
		seen[baseKey] = true

		bind := map[string]model.TypeRef{}
		for i, p := range base.TypeParams {
			if i >= len(cur.Base.Args) {
				break
			}
			arg := cur.Base.Args[i]
			if curBind != nil {
				arg, _ = arg.Substitute(curBind)
			}
			bind[p.Name] = arg
		}

		frames = append(frames, base)
		binds = append(binds, bind)
		cur, curBind = base, bind
	}

	// Collected derived-to-root; frames flatten root-most first.
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
		binds[i], binds[j] = binds[j], binds[i]
	}
	return frames, binds
}

// resolveDep substitutes and resolves one dependency into owner's context.
func (g *Graph) resolveDep(owner, frame *model.TypeDescriptor, d model.DependencyDescriptor,
	bind map[string]model.TypeRef, open bool, col *diag.Collector) ResolvedDep {

	rd := ResolvedDep{
		Dep:        d,
		Inherited:  frame != owner,
		FrameOwner: frame.Ref,
	}

	target := d.Target
	if bind != nil {
		sub, ok := target.Substitute(bind)
		if !ok && !open {
			col.Report(diag.CodeSubstitutionFailed, []string{owner.Ref.Key(), frame.Ref.Key()},
				"cannot substitute type arguments for dependency %s declared on %s",
				d.Target.Key(), frame.Ref.Key())
			rd.Unresolved = true
			return rd
		}
		target = sub
	}
	rd.Dep.Target = target

	rd.FieldName, rd.ParamName = identifiers(rd.Dep)

	if containsParam(target) {
		// Open context: closed embedders resolve this edge through their
		// own frames.
		return rd
	}

	if d.External {
		return rd
	}
	if tdesc := g.snap.Lookup(target); tdesc != nil && tdesc.External {
		return rd
	}

	cands := g.snap.Implementations(target)
	if d.Collection {
		rd.Candidates = cands
		return rd
	}
	switch len(cands) {
	case 1:
		rd.Candidates = cands
	case 0:
		col.Report(diag.CodeUnresolvedDependency, []string{owner.Ref.Key(), target.Key()},
			"dependency %s of %s resolves to no implementation", target.Key(), owner.Ref.Key())
		rd.Unresolved = true
	default:
		keys := make([]string, 0, len(cands))
		for _, c := range cands {
			keys = append(keys, c.Ref.Key())
		}
		col.Report(diag.CodeUnresolvedDependency, append([]string{owner.Ref.Key(), target.Key()}, keys...),
			"dependency %s of %s resolves to %d implementations; a non-collection edge needs exactly one",
			target.Key(), owner.Ref.Key(), len(cands))
		rd.Unresolved = true
	}
	return rd
}

// identifiers resolves the generated field and parameter names for a
// dependency. Field markers keep their declared field name; bulk entries
// derive the field from the declaration's naming configuration. Parameters
// always render camelCase.
func identifiers(d model.DependencyDescriptor) (field, param string) {
	if d.Source == model.SourceField {
		return d.FieldName, naming.Param(d.FieldName, d.Naming)
	}
	return naming.Resolve(d.Target.Name, d.Naming), naming.Param(d.Target.Name, d.Naming)
}

// checkIdentifiers diagnoses generated-identifier collisions over the full
// inherited+own dependency set. Collisions are never silently deduplicated;
// the node is marked so emission can skip it.
func (g *Graph) checkIdentifiers(node *Node, col *diag.Collector) {
	seen := map[string]string{}
	for _, rd := range node.Deps {
		if rd.Unresolved || rd.ParamName == "" {
			continue
		}
		if prev, ok := seen[rd.ParamName]; ok {
			col.Report(diag.CodeDuplicateIdentifier,
				[]string{node.Desc.Ref.Key()},
				"dependencies %s and %s both resolve to identifier %q",
				prev, rd.Dep.Target.Key(), rd.ParamName)
			node.IdentifierClash = true
			continue
		}
		seen[rd.ParamName] = rd.Dep.Target.Key()
	}
}

// mergeDeclared applies the per-type merge rules to the declared list:
// duplicate-in-declaration (within one bulk directive), duplicate-across-
// declarations (single edge kept), conflicting-declaration-styles (the
// field-level declaration wins). Collection wrappers unwrap to the element
// type for identity comparison.
func mergeDeclared(td *model.TypeDescriptor, deps []model.DependencyDescriptor, col *diag.Collector) []model.DependencyDescriptor {
	key := td.Ref.Key()
	var kept []model.DependencyDescriptor
	byTarget := map[string]int{}
	declSeen := map[int]map[string]bool{}

	for _, d := range deps {
		tk := d.Target.Key()

		if d.Source == model.SourceBulk {
			if declSeen[d.Decl] == nil {
				declSeen[d.Decl] = map[string]bool{}
			}
			if declSeen[d.Decl][tk] {
				col.Report(diag.CodeDuplicateInDeclaration, []string{key, tk},
					"target %s repeated within one deps declaration", tk)
				continue
			}
			declSeen[d.Decl][tk] = true
		}

		idx, dup := byTarget[tk]
		if !dup {
			byTarget[tk] = len(kept)
			kept = append(kept, d)
			continue
		}

		prev := kept[idx]
		if prev.Source != d.Source {
			col.Report(diag.CodeConflictingDeclarationStyles, []string{key, tk},
				"target %s declared both as a field marker and a bulk entry; the field declaration wins", tk)
			if d.Source == model.SourceField {
				kept[idx] = d
			}
			continue
		}
		col.Report(diag.CodeDuplicateAcrossDeclarations, []string{key, tk},
			"target %s declared more than once; a single edge is kept", tk)
	}
	return kept
}

func containsParam(r model.TypeRef) bool {
	if r.Param {
		return true
	}
	for _, a := range r.Args {
		if containsParam(a) {
			return true
		}
	}
	return false
}
