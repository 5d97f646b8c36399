// Package plan computes, per analyzed type, which contracts are registered
// and how: lifetime, instance sharing, and conditional predicate.
package plan

import (
	"sort"

	"github.com/sghaida/odigen/diag"
	"github.com/sghaida/odigen/graph"
	"github.com/sghaida/odigen/model"
)

// Kind is the shape of one registration entry.
type Kind int

const (
	// KindConcrete registers the concrete type under itself.
	KindConcrete Kind = iota

	// KindContract registers a contract with its own direct factory:
	// independent instances per resolution, subject to the lifetime scope.
	KindContract

	// KindForward registers a contract as a forwarding entry resolving the
	// concrete type, guaranteeing one shared instance per scope.
	KindForward
)

// String names the entry kind.
func (k Kind) String() string {
	switch k {
	case KindContract:
		return "contract"
	case KindForward:
		return "forward"
	default:
		return "concrete"
	}
}

// Registration is one planned container call.
type Registration struct {
	// Impl is the concrete implementation.
	Impl model.TypeRef

	// Contract is the registered identity; equals Impl for KindConcrete.
	Contract model.TypeRef

	// Lifetime is the implementation's resolved lifetime.
	Lifetime model.Lifetime

	// Kind selects the container call shape.
	Kind Kind

	// Condition guards the registration; the zero rule is unconditional.
	Condition model.ConditionalRule
}

// Chain is an ordered group of conditional registrations for one contract.
//
// When every pair of conditions is mutually exclusive the chain renders as
// an if/else-if ladder evaluated once at startup, first true condition
// wins; otherwise each entry renders as an independent guard.
type Chain struct {
	Contract  model.TypeRef
	Entries   []Registration
	Exclusive bool
}

// Plan is the full registration plan for one snapshot.
type Plan struct {
	// Unconditional registrations, deterministic order.
	Regs []Registration

	// Chains groups conditional registrations per contract.
	Chains []Chain
}

// Build computes the plan from the graph.
//
// Only concrete, non-abstract, non-external, closed types with a resolved
// lifetime are planned. Skipping a contract the type does not implement is
// diagnosed, never silently ignored.
func Build(g *graph.Graph, col *diag.Collector) *Plan {
	p := &Plan{}
	conditional := map[string][]Registration{}
	var contractOrder []model.TypeRef

	for _, node := range g.Nodes() {
		td := node.Desc
		if td.Abstract || td.External || node.Open {
			continue
		}
		if td.Lifetime == model.Unassigned {
			continue
		}

		entries := planType(td, col)
		if len(td.Conditions) == 0 {
			p.Regs = append(p.Regs, entries...)
			continue
		}
		// Chain entries accumulate in node key order, one entry per rule in
		// declaration order. That keeps output deterministic; for an
		// exclusive chain the evaluation order between implementations is
		// immaterial since at most one condition holds.
		for _, rule := range td.Conditions {
			for _, e := range entries {
				e.Condition = rule
				key := e.Contract.Key()
				if _, seen := conditional[key]; !seen {
					contractOrder = append(contractOrder, e.Contract)
				}
				conditional[key] = append(conditional[key], e)
			}
		}
	}

	sortRegs(p.Regs)

	sort.Slice(contractOrder, func(i, j int) bool {
		return contractOrder[i].Key() < contractOrder[j].Key()
	})
	for _, contract := range contractOrder {
		entries := conditional[contract.Key()]
		p.Chains = append(p.Chains, Chain{
			Contract:  contract,
			Entries:   entries,
			Exclusive: pairwiseExclusive(entries),
		})
	}
	return p
}

// planType expands one type's registration directive into entries.
func planType(td *model.TypeDescriptor, col *diag.Collector) []Registration {
	reg := td.Registration
	if reg == nil {
		reg = &model.RegistrationDirective{Mode: model.DirectOnly, Sharing: model.Separate}
	}

	skip := map[string]bool{}
	for _, s := range td.Skips {
		if !td.Implemented(s) {
			col.Report(diag.CodeSkipTargetNotImplemented, []string{td.Ref.Key(), s.Key()},
				"%s skips contract %s it does not implement", td.Ref.Key(), s.Key())
			continue
		}
		skip[s.Key()] = true
	}

	contracts := make([]model.TypeRef, 0, len(td.Implements))
	for _, c := range td.Implements {
		if !skip[c.Key()] {
			contracts = append(contracts, c)
		}
	}
	model.SortRefs(contracts)

	concrete := Registration{Impl: td.Ref, Contract: td.Ref, Lifetime: td.Lifetime, Kind: KindConcrete}

	var out []Registration
	switch reg.Mode {
	case model.All:
		out = append(out, concrete)
		out = append(out, contractEntries(td, contracts, reg.Sharing)...)
	case model.Exclusionary:
		// The concrete type stays unregistered unless forwarding contracts
		// must resolve through it.
		if reg.Sharing == model.Shared && len(contracts) > 0 {
			out = append(out, concrete)
		}
		out = append(out, contractEntries(td, contracts, reg.Sharing)...)
	default:
		out = append(out, concrete)
	}
	return out
}

func contractEntries(td *model.TypeDescriptor, contracts []model.TypeRef, sharing model.InstanceSharing) []Registration {
	kind := KindContract
	if sharing == model.Shared {
		kind = KindForward
	}
	out := make([]Registration, 0, len(contracts))
	for _, c := range contracts {
		out = append(out, Registration{
			Impl:     td.Ref,
			Contract: c,
			Lifetime: td.Lifetime,
			Kind:     kind,
		})
	}
	return out
}

func pairwiseExclusive(entries []Registration) bool {
	if len(entries) < 2 {
		return false
	}
	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			if !entries[i].Condition.MutuallyExclusive(entries[j].Condition) {
				return false
			}
		}
	}
	return true
}

func sortRegs(regs []Registration) {
	sort.Slice(regs, func(i, j int) bool {
		a, b := regs[i], regs[j]
		if a.Impl.Key() != b.Impl.Key() {
			return a.Impl.Key() < b.Impl.Key()
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Contract.Key() < b.Contract.Key()
	})
}
