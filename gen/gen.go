// Package gen runs the full analysis and emission pipeline.
//
// One Run is a single pass: extract descriptors from raw declarations,
// seal the snapshot, build and validate the graph, plan registrations and
// render the generated files. Diagnostics accumulate across every stage;
// error-severity findings exclude the affected types from output but never
// abort the run.
package gen

import (
	"github.com/sghaida/odigen/config"
	"github.com/sghaida/odigen/diag"
	"github.com/sghaida/odigen/emit"
	"github.com/sghaida/odigen/extract"
	"github.com/sghaida/odigen/graph"
	"github.com/sghaida/odigen/model"
	"github.com/sghaida/odigen/plan"
	"github.com/sghaida/odigen/validate"
)

// Result is the outcome of one pipeline run.
type Result struct {
	// Diagnostics are every finding of the run, deterministically ordered.
	Diagnostics []diag.Diagnostic

	// Files are the rendered per-package outputs.
	Files []emit.File

	// Graph is the analyzed dependency graph, retained for callers that
	// inspect resolution results (tooling, tests).
	Graph *graph.Graph

	// Plan is the registration plan the files were rendered from.
	Plan *plan.Plan
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == diag.Error {
			return true
		}
	}
	return false
}

// Run executes the pipeline over the given raw declarations.
//
// The returned error covers rendering failures only; analysis findings are
// diagnostics, not errors.
func Run(raws []*extract.RawType, cfg config.Config) (*Result, error) {
	col := diag.NewCollector(cfg.CollectorOptions()...)

	snap := model.NewSnapshot()
	for _, raw := range raws {
		td, deps := extract.Extract(raw, col)
		applyDefaultLifetime(td, cfg.Lifetime())
		snap.Add(td, deps)
	}

	g := graph.Build(snap, col)
	graph.DetectCycles(g, col)
	validate.Lifetimes(g, col)
	p := plan.Build(g, col)

	// The disabled switch silences the collector only; emission always runs.
	res := &Result{Graph: g, Plan: p}
	files, err := emit.Emit(g, p, emit.Options{
		DIImportPath: cfg.DIImportPath,
		FileName:     cfg.Output,
	})
	if err != nil {
		return nil, err
	}
	res.Files = files
	res.Diagnostics = col.Sorted()
	return res, nil
}

// applyDefaultLifetime assigns the run-level default to service types that
// declared no lifetime of their own. Contracts and external types never
// take a lifetime.
func applyDefaultLifetime(td *model.TypeDescriptor, def model.Lifetime) {
	if def == model.Unassigned || td.LifetimeExplicit {
		return
	}
	if td.Interface || td.External || td.Abstract {
		return
	}
	if td.Lifetime == model.Unassigned {
		td.Lifetime = def
	}
}
