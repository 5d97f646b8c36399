package naming_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sghaida/odigen/naming"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		cfg  naming.Config
		want string
	}{
		{
			name: "field defaults strip marker and camel",
			raw:  "IEmailSender",
			cfg:  naming.FieldDefaults(),
			want: "_emailSender",
		},
		{
			name: "marker not stripped when next rune lowercase",
			raw:  "Item",
			cfg:  naming.FieldDefaults(),
			want: "_item",
		},
		{
			name: "marker kept when stripping disabled",
			raw:  "IEmailSender",
			cfg:  naming.Config{Convention: naming.CaseCamel},
			want: "iEmailSender",
		},
		{
			name: "pascal",
			raw:  "dbConnection",
			cfg:  naming.Config{Convention: naming.CasePascal},
			want: "DbConnection",
		},
		{
			name: "snake splits on transitions",
			raw:  "DbConnection",
			cfg:  naming.Config{Convention: naming.CaseSnake},
			want: "db_connection",
		},
		{
			name: "snake keeps uppercase runs together",
			raw:  "DBConn",
			cfg:  naming.Config{Convention: naming.CaseSnake},
			want: "db_conn",
		},
		{
			name: "custom prefix",
			raw:  "ICache",
			cfg:  naming.Config{Convention: naming.CaseCamel, StripMarker: true, Prefix: "m_"},
			want: "m_cache",
		},
		{
			name: "empty input yields prefix",
			raw:  "",
			cfg:  naming.FieldDefaults(),
			want: "_",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, naming.Resolve(tc.raw, tc.cfg))
		})
	}
}

// Resolving an already-resolved identifier must return it unchanged.
func TestResolve_Idempotent(t *testing.T) {
	t.Parallel()

	cfgs := []naming.Config{
		naming.FieldDefaults(),
		naming.ParamDefaults(),
		{Convention: naming.CasePascal},
		{Convention: naming.CaseSnake, Prefix: "_"},
	}
	inputs := []string{"IEmailSender", "DbConnection", "cache", "DBConn", "x"}

	for _, cfg := range cfgs {
		for _, in := range inputs {
			once := naming.Resolve(in, cfg)
			assert.Equal(t, once, naming.Resolve(once, cfg),
				"input %q with cfg %+v", in, cfg)
		}
	}
}

func TestParam_IgnoresFieldConventionAndPrefix(t *testing.T) {
	t.Parallel()

	fieldCfg := naming.Config{Convention: naming.CaseSnake, StripMarker: true, Prefix: "m_"}
	assert.Equal(t, "emailSender", naming.Param("IEmailSender", fieldCfg))

	noStrip := naming.Config{Convention: naming.CasePascal}
	assert.Equal(t, "iEmailSender", naming.Param("IEmailSender", noStrip))
}

func TestParseConvention(t *testing.T) {
	t.Parallel()

	got, ok := naming.ParseConvention("Snake_Case")
	assert.True(t, ok)
	assert.Equal(t, naming.CaseSnake, got)

	_, ok = naming.ParseConvention("kebab")
	assert.False(t, ok)
}
