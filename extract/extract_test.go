package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/odigen/diag"
	"github.com/sghaida/odigen/model"
	"github.com/sghaida/odigen/naming"
)

const pkg = "example.com/app"

func TestExtract_LifetimeDirective(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		directives []string
		want       model.Lifetime
		explicit   bool
		wantDiags  int
	}{
		{
			name:       "singleton",
			directives: []string{"odigen:service singleton"},
			want:       model.Singleton,
			explicit:   true,
		},
		{
			name:       "bare service is valid",
			directives: []string{"odigen:service"},
			want:       model.Unassigned,
		},
		{
			name:       "unknown lifetime diagnosed",
			directives: []string{"odigen:service global"},
			want:       model.Unassigned,
			wantDiags:  1,
		},
		{
			name:       "repeated lifetime diagnosed and first wins",
			directives: []string{"odigen:service scoped", "odigen:service singleton"},
			want:       model.Scoped,
			explicit:   true,
			wantDiags:  1,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			col := diag.NewCollector()
			td, _ := Extract(&RawType{Pkg: pkg, Name: "Svc", Directives: tc.directives}, col)

			assert.Equal(t, tc.want, td.Lifetime)
			assert.Equal(t, tc.explicit, td.LifetimeExplicit)
			assert.Len(t, col.ByCode(diag.CodeMalformedDirective), tc.wantDiags)
		})
	}
}

func TestExtract_FieldMarkers(t *testing.T) {
	t.Parallel()

	raw := &RawType{
		Pkg:  pkg,
		Name: "Svc",
		Fields: []RawField{
			{Name: "Db", Type: model.Ref(pkg, "IDb"), HasInject: true},
			{Name: "Skipped", Type: model.Ref(pkg, "Other")},
			{Name: "Vendor", Type: model.Ref("vendor.io/sdk", "Client"), HasInject: true, Tag: "external"},
			{Name: "Handlers", Type: model.Ref(pkg, "IHandler"), Collection: true, HasInject: true},
		},
	}

	col := diag.NewCollector()
	_, deps := Extract(raw, col)
	require.Len(t, deps, 3)

	assert.Equal(t, "Db", deps[0].FieldName)
	assert.Equal(t, model.SourceField, deps[0].Source)
	assert.Equal(t, -1, deps[0].Decl)
	assert.False(t, deps[0].External)

	assert.True(t, deps[1].External)
	assert.True(t, deps[2].Collection)
	assert.Zero(t, col.Len())
}

func TestExtract_BulkDeps(t *testing.T) {
	t.Parallel()

	raw := &RawType{
		Pkg:  pkg,
		Name: "Svc",
		Directives: []string{
			"odigen:deps IDb,ICache strip",
			"odigen:deps Metrics convention=snake prefix=m_",
		},
	}

	col := diag.NewCollector()
	_, deps := Extract(raw, col)
	require.Len(t, deps, 3)

	// First declaration: strip enabled.
	assert.Equal(t, 0, deps[0].Decl)
	assert.True(t, deps[0].Naming.StripMarker)
	assert.Equal(t, pkg+".IDb", deps[0].Target.Key())
	assert.Equal(t, 0, deps[1].Decl)

	// Second declaration: its own configuration, own index.
	assert.Equal(t, 1, deps[2].Decl)
	assert.Equal(t, naming.CaseSnake, deps[2].Naming.Convention)
	assert.Equal(t, "m_", deps[2].Naming.Prefix)
	assert.False(t, deps[2].Naming.StripMarker)
	assert.Zero(t, col.Len())
}

func TestExtract_BulkDeps_Malformed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		directive string
	}{
		{"no targets", "odigen:deps"},
		{"unknown option", "odigen:deps IDb frobnicate"},
		{"unknown convention", "odigen:deps IDb convention=kebab"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			col := diag.NewCollector()
			_, deps := Extract(&RawType{Pkg: pkg, Name: "Svc", Directives: []string{tc.directive}}, col)
			assert.Empty(t, deps)
			assert.Len(t, col.ByCode(diag.CodeMalformedDirective), 1)
		})
	}
}

// A malformed target inside a declaration skips that target only.
func TestExtract_BulkDeps_PartialTargetFailure(t *testing.T) {
	t.Parallel()

	col := diag.NewCollector()
	_, deps := Extract(&RawType{
		Pkg:        pkg,
		Name:       "Svc",
		Directives: []string{"odigen:deps IDb,Broken[,ICache"},
	}, col)

	require.Len(t, deps, 1)
	assert.Equal(t, pkg+".IDb", deps[0].Target.Key())
	assert.NotZero(t, col.Len())
}

func TestExtract_RegistrationDirective(t *testing.T) {
	t.Parallel()

	col := diag.NewCollector()
	td, _ := Extract(&RawType{
		Pkg:        pkg,
		Name:       "Svc",
		Directives: []string{"odigen:register all shared"},
	}, col)

	require.NotNil(t, td.Registration)
	assert.Equal(t, model.All, td.Registration.Mode)
	assert.Equal(t, model.Shared, td.Registration.Sharing)

	col = diag.NewCollector()
	td, _ = Extract(&RawType{
		Pkg:        pkg,
		Name:       "Svc",
		Directives: []string{"odigen:register interfaces"},
	}, col)
	require.NotNil(t, td.Registration)
	assert.Equal(t, model.Exclusionary, td.Registration.Mode)
	assert.Equal(t, model.Separate, td.Registration.Sharing)
}

func TestExtract_SkipDirective(t *testing.T) {
	t.Parallel()

	col := diag.NewCollector()
	td, _ := Extract(&RawType{
		Pkg:        pkg,
		Name:       "Svc",
		Directives: []string{"odigen:skip IAudit, IMetrics"},
	}, col)

	require.Len(t, td.Skips, 2)
	assert.Equal(t, pkg+".IAudit", td.Skips[0].Key())
	assert.Equal(t, pkg+".IMetrics", td.Skips[1].Key())
}

func TestExtract_WhenDirective(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		directive string
		want      model.ConditionalRule
		wantDiag  bool
	}{
		{
			name:      "env equality",
			directive: "odigen:when env=Prod",
			want:      model.ConditionalRule{Env: "Prod"},
		},
		{
			name:      "env negation",
			directive: "odigen:when env!=Prod",
			want:      model.ConditionalRule{Env: "Prod", EnvNot: true},
		},
		{
			name:      "config clause",
			directive: "odigen:when cfg:cache=redis",
			want:      model.ConditionalRule{ConfigKey: "cache", ConfigValue: "redis"},
		},
		{
			name:      "combined clauses AND",
			directive: "odigen:when env=Prod,cfg:cache!=memory",
			want: model.ConditionalRule{
				Env: "Prod", ConfigKey: "cache", ConfigValue: "memory", ConfigNot: true,
			},
		},
		{
			name:      "two env clauses rejected",
			directive: "odigen:when env=Prod,env=Dev",
			wantDiag:  true,
		},
		{
			name:      "unknown subject rejected",
			directive: "odigen:when region=eu",
			wantDiag:  true,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			col := diag.NewCollector()
			td, _ := Extract(&RawType{Pkg: pkg, Name: "Svc", Directives: []string{tc.directive}}, col)

			if tc.wantDiag {
				assert.Empty(t, td.Conditions)
				assert.NotZero(t, col.Len())
				return
			}
			require.Len(t, td.Conditions, 1)
			assert.Equal(t, tc.want, td.Conditions[0])
			assert.Zero(t, col.Len())
		})
	}
}

func TestExtract_ExternalAndAbstract(t *testing.T) {
	t.Parallel()

	col := diag.NewCollector()
	td, _ := Extract(&RawType{Pkg: pkg, Name: "Vendor", Directives: []string{"odigen:external"}}, col)
	assert.True(t, td.External)

	td, _ = Extract(&RawType{Pkg: pkg, Name: "Base", Directives: []string{"odigen:abstract"}}, col)
	assert.True(t, td.Abstract)
	assert.False(t, td.Interface)

	// Interface declarations are abstract regardless of directives.
	td, _ = Extract(&RawType{Pkg: pkg, Name: "IStore", Interface: true}, col)
	assert.True(t, td.Abstract)
	assert.True(t, td.Interface)
}

func TestExtract_UnknownDirective(t *testing.T) {
	t.Parallel()

	col := diag.NewCollector()
	Extract(&RawType{Pkg: pkg, Name: "Svc", Directives: []string{"odigen:lifetime singleton"}}, col)
	require.Len(t, col.ByCode(diag.CodeMalformedDirective), 1)
}

func TestParseTypeRefLiteral(t *testing.T) {
	t.Parallel()

	scope := ownerScope{
		Pkg:        pkg,
		TypeParams: []string{"T"},
		Imports:    map[string]string{"store": "example.com/store"},
	}

	cases := []struct {
		in         string
		wantKey    string
		collection bool
		ptr        bool
		wantOK     bool
	}{
		{in: "IDb", wantKey: pkg + ".IDb", wantOK: true},
		{in: "*Cache", wantKey: pkg + ".Cache", ptr: true, wantOK: true},
		{in: "[]IHandler", wantKey: pkg + ".IHandler", collection: true, wantOK: true},
		{in: "store.Client", wantKey: "example.com/store.Client", wantOK: true},
		{in: "Repo[T]", wantKey: pkg + ".Repo[T]", wantOK: true},
		{in: "Repo[store.Client]", wantKey: pkg + ".Repo[example.com/store.Client]", wantOK: true},
		{in: "Pair[T,store.Client]", wantKey: pkg + ".Pair[T,example.com/store.Client]", wantOK: true},
		{in: "T", wantKey: "T", wantOK: true},
		{in: "", wantOK: false},
		{in: "Repo[", wantOK: false},
		{in: "Repo[]", wantOK: false},
		{in: "*", wantOK: false},
	}

	for _, tc := range cases {
		ref, collection, ok := ParseTypeRefLiteral(tc.in, scope)
		require.Equal(t, tc.wantOK, ok, "input %q", tc.in)
		if !ok {
			continue
		}
		assert.Equal(t, tc.wantKey, ref.Key(), "input %q", tc.in)
		assert.Equal(t, tc.collection, collection, "input %q", tc.in)
		assert.Equal(t, tc.ptr, ref.Ptr, "input %q", tc.in)
	}
}
