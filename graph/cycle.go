package graph

import (
	"sort"
	"strings"

	"github.com/sghaida/odigen/diag"
	"github.com/sghaida/odigen/model"
)

// dfs colors.
const (
	white = iota
	grey
	black
)

// DetectCycles runs a three-color depth-first search over the
// non-collection subgraph and reports one diagnostic per back-edge.
//
// A large true cycle may surface as several overlapping paths; the
// contract is that at least one diagnostic names every node of a real
// cycle, not an exact count. External types never became nodes, so a cycle
// passing through one is silently broken.
func DetectCycles(g *Graph, col *diag.Collector) {
	adj := hardAdjacency(g)

	color := make(map[string]int, len(g.keys))
	var stack []string

	var visit func(key string)
	visit = func(key string) {
		color[key] = grey
		stack = append(stack, key)

		for _, to := range adj[key] {
			switch color[to] {
			case white:
				visit(to)
			case grey:
				reportCycle(col, stack, to)
			}
		}

		stack = stack[:len(stack)-1]
		color[key] = black
	}

	for _, key := range g.keys {
		if color[key] == white {
			visit(key)
		}
	}
}

// hardAdjacency builds the traversal structure: non-collection, resolved,
// non-external edges, targets mapped to their single candidate
// implementation. A type depending on a contract it implements itself
// yields a self-edge here.
func hardAdjacency(g *Graph) map[string][]string {
	adj := map[string][]string{}
	for _, key := range g.keys {
		node := g.nodes[key]
		var out []string
		for _, rd := range node.Deps {
			if rd.Dep.Collection || rd.Unresolved || rd.Dep.External {
				continue
			}
			for _, cand := range rd.Candidates {
				if to := cand.Ref.Key(); g.nodes[to] != nil {
					out = append(out, to)
				}
			}
		}
		sort.Strings(out)
		adj[key] = out
	}
	return adj
}

// reportCycle emits one diagnostic for the stack segment from the grey
// node to the top, closing back on the grey node.
func reportCycle(col *diag.Collector, stack []string, to string) {
	start := 0
	for i, k := range stack {
		if k == to {
			start = i
			break
		}
	}
	path := append(append([]string(nil), stack[start:]...), to)
	col.Report(diag.CodeCycleDetected, stack[start:],
		"dependency cycle: %s", strings.Join(path, " -> "))
}

// Reachable returns the set of node keys reachable from the given root
// over non-collection edges, the root included. A whole-graph recompute
// uses this only for reporting; invalidation itself is always global.
func Reachable(g *Graph, root model.TypeRef) map[string]bool {
	adj := hardAdjacency(g)
	seen := map[string]bool{}
	var walk func(string)
	walk = func(k string) {
		if seen[k] || g.nodes[k] == nil {
			return
		}
		seen[k] = true
		for _, to := range adj[k] {
			walk(to)
		}
	}
	walk(root.Key())
	return seen
}
