// Package sample is a loader fixture.
package sample

// IStore is the storage contract.
type IStore interface {
	Get() string
}

// PgStore is the storage implementation.
//
//odigen:service singleton
//odigen:register all shared
type PgStore struct{}

// Get implements IStore.
func (s *PgStore) Get() string { return "pg" }

// Svc consumes the store through an inject-tagged field.
//
//odigen:service scoped
type Svc struct {
	Store IStore `inject:""`

	ignored int
}

// Base contributes an inherited dependency.
//
//odigen:abstract
type Base struct {
	Store IStore `inject:""`
}

// Derived embeds Base.
//
//odigen:service scoped
type Derived struct {
	Base
}

// Repo is a generic fixture.
//
//odigen:abstract
type Repo[T any] struct {
	Item T `inject:""`
}

// UserRepo closes Repo over the concrete store.
//
//odigen:service scoped
type UserRepo struct {
	Repo[*PgStore]
}

// Keyed constrains cache keys.
type Keyed interface {
	Key() string
}

// Cache is a constrained generic fixture.
//
//odigen:abstract
type Cache[K Keyed] struct {
	Current K `inject:""`
}

// Plain carries no markers and stays out of the snapshot.
type Plain struct {
	N int
}
