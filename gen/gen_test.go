package gen_test

import (
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/odigen/config"
	"github.com/sghaida/odigen/diag"
	"github.com/sghaida/odigen/extract"
	"github.com/sghaida/odigen/gen"
	"github.com/sghaida/odigen/model"
)

const pkg = "example.com/app"

func shopRawTypes() []*extract.RawType {
	return []*extract.RawType{
		{Pkg: pkg, Name: "ILogger", Interface: true},
		{Pkg: pkg, Name: "IOrderStore", Interface: true},
		{
			Pkg:        pkg,
			Name:       "Logger",
			Directives: []string{"odigen:service singleton", "odigen:register all shared"},
			Implements: []model.TypeRef{model.Ref(pkg, "ILogger")},
		},
		{
			Pkg:        pkg,
			Name:       "PgOrderStore",
			Directives: []string{"odigen:service singleton", "odigen:register all shared"},
			Implements: []model.TypeRef{model.Ref(pkg, "IOrderStore")},
			Fields: []extract.RawField{
				{Name: "Log", Type: model.Ref(pkg, "ILogger"), HasInject: true},
			},
		},
		{
			Pkg:        pkg,
			Name:       "OrderService",
			Directives: []string{"odigen:service scoped", "odigen:deps IOrderStore,ILogger strip"},
		},
	}
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	res, err := gen.Run(shopRawTypes(), config.Default())
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Empty(t, res.Diagnostics)
	assert.False(t, res.HasErrors())

	require.Len(t, res.Files, 1)
	f := res.Files[0]
	_, perr := parser.ParseFile(token.NewFileSet(), f.Name, f.Source, 0)
	require.NoError(t, perr, "generated source:\n%s", f.Source)

	src := string(f.Source)
	assert.Contains(t, src, "func NewOrderService(orderStore IOrderStore, logger ILogger) *OrderService")
	assert.Contains(t, src, "_orderStore: orderStore,")
	assert.Contains(t, src, "di.Forward[ILogger, *Logger](r)")
	assert.Contains(t, src, "di.Forward[IOrderStore, *PgOrderStore](r)")
}

func TestRun_DefaultLifetimeApplies(t *testing.T) {
	t.Parallel()

	raws := []*extract.RawType{
		{Pkg: pkg, Name: "Svc", Directives: []string{"odigen:service"}},
	}

	cfg := config.Default()
	cfg.DefaultLifetime = "transient"
	res, err := gen.Run(raws, cfg)
	require.NoError(t, err)

	node := res.Graph.Node(model.Ref(pkg, "Svc").Key())
	require.NotNil(t, node)
	assert.Equal(t, model.Transient, node.Desc.Lifetime)
	require.Len(t, res.Plan.Regs, 1)
}

func TestRun_WithoutDefaultUnassignedStaysUnplanned(t *testing.T) {
	t.Parallel()

	raws := []*extract.RawType{
		{Pkg: pkg, Name: "Svc", Directives: []string{"odigen:service"}},
	}

	res, err := gen.Run(raws, config.Default())
	require.NoError(t, err)
	assert.Empty(t, res.Plan.Regs)
	assert.Empty(t, res.Files)
}

// One broken type neither stops the run nor suppresses sibling output.
func TestRun_PerTypeFailureIsolation(t *testing.T) {
	t.Parallel()

	raws := append(shopRawTypes(), &extract.RawType{
		Pkg:        pkg,
		Name:       "Broken",
		Directives: []string{"odigen:service scoped", "odigen:deps IMissing"},
	})

	res, err := gen.Run(raws, config.Default())
	require.NoError(t, err)
	assert.True(t, res.HasErrors())

	var codes []diag.Code
	for _, d := range res.Diagnostics {
		codes = append(codes, d.Code)
	}
	assert.Contains(t, codes, diag.CodeUnresolvedDependency)

	require.Len(t, res.Files, 1)
	src := string(res.Files[0].Source)
	assert.Contains(t, src, "func NewOrderService")
	// Broken still registers; its unresolved edge simply never wires.
	assert.NotContains(t, src, "IMissing")
}

// Disabling silences diagnostics but never withholds generated code.
func TestRun_DisabledSuppressesDiagnosticsOnly(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Disabled = true

	raws := append(shopRawTypes(), &extract.RawType{
		Pkg:        pkg,
		Name:       "Broken",
		Directives: []string{"odigen:service scoped", "odigen:deps IMissing"},
	})
	res, err := gen.Run(raws, cfg)
	require.NoError(t, err)

	assert.Empty(t, res.Diagnostics)
	assert.False(t, res.HasErrors())

	require.NotEmpty(t, res.Files)
	src := string(res.Files[0].Source)
	assert.Contains(t, src, "func NewOrderService")
	assert.Contains(t, src, "di.Forward[ILogger, *Logger](r)")
}

func TestRun_SeverityOverrideFlowsThrough(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Severities = map[string]string{"ODI001": "warning"}

	raws := []*extract.RawType{
		{Pkg: pkg, Name: "Broken", Directives: []string{"odigen:service scoped", "odigen:deps IMissing"}},
	}
	res, err := gen.Run(raws, cfg)
	require.NoError(t, err)

	require.NotEmpty(t, res.Diagnostics)
	assert.False(t, res.HasErrors())
}
