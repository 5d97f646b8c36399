// Package validate checks lifetime compatibility across every resolved
// edge of the dependency graph.
package validate

import (
	"github.com/sghaida/odigen/diag"
	"github.com/sghaida/odigen/graph"
	"github.com/sghaida/odigen/model"
)

// Lifetimes walks every node and flags edges where a wider lifetime
// captures a narrower one.
//
// Rules: Singleton -> Scoped is an error, Singleton -> Transient a warning,
// every other pairing is silent. Violations reached through a base frame
// report under a distinct code. Collection edges are validated once per
// candidate implementation. External types and fields are fully exempt, as
// are edges whose endpoint lifetimes are unassigned (those raise the
// unregistered-implementation warning instead).
func Lifetimes(g *graph.Graph, col *diag.Collector) {
	for _, node := range g.Nodes() {
		td := node.Desc
		if td.Abstract || td.External {
			continue
		}
		for _, rd := range node.Deps {
			if rd.Unresolved || rd.Dep.External {
				continue
			}
			for _, cand := range rd.Candidates {
				checkEdge(col, td, rd, cand)
			}
		}
	}
}

func checkEdge(col *diag.Collector, td *model.TypeDescriptor, rd graph.ResolvedDep, cand *model.TypeDescriptor) {
	owner := td.Ref.Key()
	target := cand.Ref.Key()

	if cand.Lifetime == model.Unassigned && !cand.Abstract {
		col.Report(diag.CodeUnregisteredImplementation, []string{owner, target},
			"%s depends on %s, which has no lifetime and is never registered", owner, target)
		return
	}

	if td.Lifetime != model.Singleton {
		return
	}

	switch cand.Lifetime {
	case model.Scoped:
		if rd.Inherited {
			col.Report(diag.CodeInheritanceLifetimeMismatch, []string{owner, target, rd.FrameOwner.Key()},
				"singleton %s cannot capture scoped dependency %s declared on base %s",
				owner, target, rd.FrameOwner.Key())
			return
		}
		col.Report(diag.CodeLifetimeNarrowerError, []string{owner, target},
			"singleton %s cannot capture shorter-lived dependency %s (scoped)", owner, target)
	case model.Transient:
		if rd.Inherited {
			col.ReportSeverity(diag.CodeInheritanceLifetimeMismatch, diag.Warning,
				[]string{owner, target, rd.FrameOwner.Key()},
				"singleton %s captures transient %s declared on base %s; consider widening it",
				owner, target, rd.FrameOwner.Key())
			return
		}
		col.Report(diag.CodeLifetimeNarrowerWarning, []string{owner, target},
			"singleton %s captures transient %s; consider widening this transient", owner, target)
	}
}
