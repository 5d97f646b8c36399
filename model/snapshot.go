package model

import "sort"

// Snapshot is the immutable set of declarations one run analyzes.
//
// Descriptors are added during loading/extraction and the snapshot is then
// treated as read-only by every downstream pass; the pipeline never mutates
// it, so the graph, validators and planner can share it freely.
type Snapshot struct {
	types map[string]*TypeDescriptor
	deps  map[string][]DependencyDescriptor
	order []string
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		types: map[string]*TypeDescriptor{},
		deps:  map[string][]DependencyDescriptor{},
	}
}

// Add records a type descriptor and its declared dependencies.
//
// Re-adding the same identity replaces the previous descriptor; declaration
// order is preserved for deterministic traversal.
func (s *Snapshot) Add(td *TypeDescriptor, deps []DependencyDescriptor) {
	key := td.Ref.Key()
	if _, exists := s.types[key]; !exists {
		s.order = append(s.order, key)
	}
	s.types[key] = td
	s.deps[key] = deps
}

// Type returns the descriptor for a canonical key, or nil.
func (s *Snapshot) Type(key string) *TypeDescriptor { return s.types[key] }

// Lookup returns the descriptor for a reference, or nil.
func (s *Snapshot) Lookup(ref TypeRef) *TypeDescriptor { return s.types[ref.Key()] }

// Deps returns the declared (own, pre-inheritance) dependencies of a type.
func (s *Snapshot) Deps(key string) []DependencyDescriptor { return s.deps[key] }

// Types returns every descriptor in declaration order.
func (s *Snapshot) Types() []*TypeDescriptor {
	out := make([]*TypeDescriptor, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.types[key])
	}
	return out
}

// Sorted returns every descriptor ordered by canonical key.
func (s *Snapshot) Sorted() []*TypeDescriptor {
	out := s.Types()
	sort.Slice(out, func(i, j int) bool { return out[i].Ref.Key() < out[j].Ref.Key() })
	return out
}

// Implementations resolves a target reference to candidate implementations.
//
// A concrete target resolves to itself when present. An interface target
// resolves to every concrete, non-abstract type implementing it. External
// types are excluded: they are resolved outside this graph.
func (s *Snapshot) Implementations(target TypeRef) []*TypeDescriptor {
	if td := s.Lookup(target); td != nil && !td.Interface && !td.Abstract {
		if td.External {
			return nil
		}
		return []*TypeDescriptor{td}
	}
	var out []*TypeDescriptor
	for _, td := range s.Sorted() {
		if td.Interface || td.Abstract || td.External {
			continue
		}
		if td.Implemented(target) {
			out = append(out, td)
		}
	}
	return out
}

// Contracts returns every declared interface descriptor, sorted by key.
func (s *Snapshot) Contracts() []*TypeDescriptor {
	var out []*TypeDescriptor
	for _, td := range s.Sorted() {
		if td.Interface {
			out = append(out, td)
		}
	}
	return out
}
