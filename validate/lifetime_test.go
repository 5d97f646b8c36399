package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/odigen/diag"
	"github.com/sghaida/odigen/graph"
	"github.com/sghaida/odigen/model"
	"github.com/sghaida/odigen/naming"
	"github.com/sghaida/odigen/validate"
)

const pkg = "example.com/app"

func ref(name string) model.TypeRef { return model.Ref(pkg, name) }

func service(name string, lt model.Lifetime) *model.TypeDescriptor {
	return &model.TypeDescriptor{Ref: ref(name), Lifetime: lt, LifetimeExplicit: lt != model.Unassigned}
}

func dep(owner model.TypeRef, field string, target model.TypeRef) model.DependencyDescriptor {
	return model.DependencyDescriptor{
		Owner:     owner,
		Target:    target,
		Source:    model.SourceField,
		Naming:    naming.FieldDefaults(),
		FieldName: field,
		Decl:      -1,
	}
}

// buildGraph wires Cache (singleton) -> Db, Db -> Helper with the given
// lifetimes, mirroring a typical capture-width scenario.
func buildGraph(t *testing.T, cacheLT, dbLT, helperLT model.Lifetime) (*graph.Graph, *diag.Collector) {
	t.Helper()
	snap := model.NewSnapshot()

	helper := service("Helper", helperLT)
	snap.Add(helper, nil)

	db := service("Db", dbLT)
	snap.Add(db, []model.DependencyDescriptor{dep(db.Ref, "Helper", helper.Ref)})

	cache := service("Cache", cacheLT)
	snap.Add(cache, []model.DependencyDescriptor{dep(cache.Ref, "Db", db.Ref)})

	col := diag.NewCollector()
	g := graph.Build(snap, col)
	require.Zero(t, col.Len())
	return g, col
}

func TestLifetimes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name                  string
		cache, db, helper     model.Lifetime
		wantErrors, wantWarns []diag.Code
	}{
		{
			name:  "singleton capturing scoped is an error",
			cache: model.Singleton, db: model.Scoped, helper: model.Scoped,
			wantErrors: []diag.Code{diag.CodeLifetimeNarrowerError},
		},
		{
			name:  "singleton capturing transient is a warning",
			cache: model.Singleton, db: model.Transient, helper: model.Transient,
			wantWarns: []diag.Code{diag.CodeLifetimeNarrowerWarning},
		},
		{
			name:  "equal widths are silent",
			cache: model.Singleton, db: model.Singleton, helper: model.Singleton,
		},
		{
			name:  "narrower capturing wider is silent",
			cache: model.Transient, db: model.Scoped, helper: model.Singleton,
		},
		{
			name:  "violations on separate edges both report",
			cache: model.Singleton, db: model.Singleton, helper: model.Scoped,
			// Cache -> Db is fine; Db (singleton) -> Helper (scoped) errors.
			wantErrors: []diag.Code{diag.CodeLifetimeNarrowerError},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			g, col := buildGraph(t, tc.cache, tc.db, tc.helper)
			validate.Lifetimes(g, col)

			var errs, warns []diag.Code
			for _, d := range col.All() {
				switch d.Severity {
				case diag.Error:
					errs = append(errs, d.Code)
				case diag.Warning:
					warns = append(warns, d.Code)
				}
			}
			assert.Equal(t, tc.wantErrors, errs)
			assert.Equal(t, tc.wantWarns, warns)
		})
	}
}

func TestLifetimes_UnassignedDependencyWarns(t *testing.T) {
	t.Parallel()

	g, col := buildGraph(t, model.Scoped, model.Unassigned, model.Unassigned)
	validate.Lifetimes(g, col)

	// Cache -> Db and Db -> Helper both hit never-registered targets.
	reports := col.ByCode(diag.CodeUnregisteredImplementation)
	require.Len(t, reports, 2)
	assert.Equal(t, diag.Warning, reports[0].Severity)
}

func TestLifetimes_InheritedViolationUsesDistinctCode(t *testing.T) {
	t.Parallel()

	snap := model.NewSnapshot()

	scopedDep := service("Session", model.Scoped)
	snap.Add(scopedDep, nil)

	base := &model.TypeDescriptor{Ref: ref("Base"), Abstract: true}
	snap.Add(base, []model.DependencyDescriptor{dep(base.Ref, "Session", scopedDep.Ref)})

	baseRef := base.Ref
	derived := service("Derived", model.Singleton)
	derived.Base = &baseRef
	snap.Add(derived, nil)

	col := diag.NewCollector()
	g := graph.Build(snap, col)
	validate.Lifetimes(g, col)

	reports := col.ByCode(diag.CodeInheritanceLifetimeMismatch)
	require.Len(t, reports, 1)
	assert.Equal(t, diag.Error, reports[0].Severity)
	assert.Contains(t, reports[0].Types, base.Ref.Key())
	assert.Empty(t, col.ByCode(diag.CodeLifetimeNarrowerError))
}

func TestLifetimes_InheritedTransientCaptureWarns(t *testing.T) {
	t.Parallel()

	snap := model.NewSnapshot()

	transient := service("Mailer", model.Transient)
	snap.Add(transient, nil)

	base := &model.TypeDescriptor{Ref: ref("Base"), Abstract: true}
	snap.Add(base, []model.DependencyDescriptor{dep(base.Ref, "Mailer", transient.Ref)})

	baseRef := base.Ref
	derived := service("Derived", model.Singleton)
	derived.Base = &baseRef
	snap.Add(derived, nil)

	col := diag.NewCollector()
	g := graph.Build(snap, col)
	validate.Lifetimes(g, col)

	reports := col.ByCode(diag.CodeInheritanceLifetimeMismatch)
	require.Len(t, reports, 1)
	assert.Equal(t, diag.Warning, reports[0].Severity)
}

func TestLifetimes_ExternalEdgeExempt(t *testing.T) {
	t.Parallel()

	snap := model.NewSnapshot()
	scoped := service("Session", model.Scoped)
	snap.Add(scoped, nil)

	owner := service("Cache", model.Singleton)
	d := dep(owner.Ref, "Session", scoped.Ref)
	d.External = true
	snap.Add(owner, []model.DependencyDescriptor{d})

	col := diag.NewCollector()
	g := graph.Build(snap, col)
	validate.Lifetimes(g, col)

	assert.Zero(t, col.Len())
}
