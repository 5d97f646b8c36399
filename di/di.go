// Package di is the minimal runtime surface odigen-generated code
// registers into and resolves from.
//
// It models a Registry of typed providers plus hierarchical Scopes that
// cache instances per lifetime. Wiring stays explicit: the generated
// registration entry point issues one call per planned contract, and
// forwarding entries guarantee one shared instance per scope when a type
// is registered shared across several contracts.
//
// Design goals:
//   - Lightweight: small API surface, reflection only for type identity.
//   - Safe defaults: typed errors for missing and mistyped registrations.
//   - Test-friendly: scopes are cheap and independent.
package di

import (
	"reflect"
	"strconv"
	"sync"
)

// Lifetime is the scope for which a Scope caches a constructed instance.
type Lifetime int

const (
	// Transient constructs a new instance on every resolution.
	Transient Lifetime = iota

	// Scoped constructs one instance per Scope.
	Scoped

	// Singleton constructs one instance per root scope.
	Singleton
)

// String returns the human-readable name of the lifetime.
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	default:
		return "transient"
	}
}

// NotRegisteredError is returned when a requested type has no provider.
type NotRegisteredError struct{ Type string }

// Error implements the error interface.
func (e NotRegisteredError) Error() string {
	// Example: di: no provider registered for "app.IEmail"
	return "di: no provider registered for " + strconv.Quote(e.Type)
}

// WrongTypeError is returned when a provider produced a value that does not
// satisfy the requested type. It indicates a broken forwarding entry.
type WrongTypeError struct {
	Type    string
	GotType string
}

// Error implements the error interface.
func (e WrongTypeError) Error() string {
	return "di: provider for " + strconv.Quote(e.Type) + " produced " + e.GotType
}

// provider is one registered factory.
type provider struct {
	lifetime Lifetime
	build    func(*Scope) (any, error)
}

// Registry holds every registered provider, keyed by contract type.
//
// Registration is not safe for concurrent use; the generated entry point
// runs once at startup. Resolution through Scopes is safe for concurrent
// use afterwards.
type Registry struct {
	providers map[reflect.Type][]*provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: map[reflect.Type][]*provider{}}
}

func typeOf[T any]() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }

// Register installs a direct provider for T under the given lifetime.
//
// Registering the same type again adds a further provider: single
// resolution uses the latest, collection resolution sees all of them in
// registration order.
func Register[T any](r *Registry, lt Lifetime, build func(*Scope) (T, error)) {
	p := &provider{
		lifetime: lt,
		build:    func(s *Scope) (any, error) { return build(s) },
	}
	t := typeOf[T]()
	r.providers[t] = append(r.providers[t], p)
}

// Forward installs a forwarding provider: resolving Contract resolves Impl
// through the scope, so every contract shares the instance the concrete
// registration caches.
func Forward[Contract any, Impl any](r *Registry) {
	p := &provider{
		lifetime: Transient, // caching happens on the concrete registration
		build: func(s *Scope) (any, error) {
			v, err := Resolve[Impl](s)
			if err != nil {
				return nil, err
			}
			return v, nil
		},
	}
	t := typeOf[Contract]()
	r.providers[t] = append(r.providers[t], p)
}

// NewScope returns a fresh root scope. Singleton instances live here.
func (r *Registry) NewScope() *Scope {
	s := &Scope{reg: r, cache: map[*provider]any{}}
	s.root = s
	return s
}

// Scope resolves and caches instances.
//
// Scoped instances are cached per Scope, singletons on the root the scope
// descends from, transients never.
type Scope struct {
	reg  *Registry
	root *Scope

	mu    sync.Mutex
	cache map[*provider]any
}

// Child returns a scope sharing the registry and singleton cache but with
// its own scoped cache: one logical unit of work.
func (s *Scope) Child() *Scope {
	return &Scope{reg: s.reg, root: s.root, cache: map[*provider]any{}}
}

func (s *Scope) resolveProvider(p *provider) (any, error) {
	switch p.lifetime {
	case Singleton:
		return s.root.cached(p)
	case Scoped:
		return s.cached(p)
	default:
		return p.build(s)
	}
}

// cached builds outside the lock: providers resolve further dependencies
// through the same scope, so holding the mutex across build would
// deadlock. The first stored instance wins on a race.
func (s *Scope) cached(p *provider) (any, error) {
	s.mu.Lock()
	if v, ok := s.cache[p]; ok {
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	v, err := p.build(s)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cache[p]; ok {
		return existing, nil
	}
	s.cache[p] = v
	return v, nil
}

// Resolve returns an instance of T. When several providers exist, the
// latest registration wins.
func Resolve[T any](s *Scope) (T, error) {
	var zero T
	t := typeOf[T]()
	ps := s.reg.providers[t]
	if len(ps) == 0 {
		return zero, NotRegisteredError{Type: t.String()}
	}
	v, err := s.resolveProvider(ps[len(ps)-1])
	if err != nil {
		return zero, err
	}
	tv, ok := v.(T)
	if !ok {
		return zero, WrongTypeError{Type: t.String(), GotType: reflect.TypeOf(v).String()}
	}
	return tv, nil
}

// MustResolve returns an instance of T or panics.
//
// Generated factories use it: a missing registration at startup is a
// programming error, not a recoverable condition.
func MustResolve[T any](s *Scope) T {
	v, err := Resolve[T](s)
	if err != nil {
		panic(err)
	}
	return v
}

// ResolveAll returns one instance per provider of T, registration order.
func ResolveAll[T any](s *Scope) ([]T, error) {
	t := typeOf[T]()
	ps := s.reg.providers[t]
	out := make([]T, 0, len(ps))
	for _, p := range ps {
		v, err := s.resolveProvider(p)
		if err != nil {
			return nil, err
		}
		tv, ok := v.(T)
		if !ok {
			return nil, WrongTypeError{Type: t.String(), GotType: reflect.TypeOf(v).String()}
		}
		out = append(out, tv)
	}
	return out, nil
}

// MustResolveAll returns every instance of T or panics.
func MustResolveAll[T any](s *Scope) []T {
	vs, err := ResolveAll[T](s)
	if err != nil {
		panic(err)
	}
	return vs
}
