// Package naming maps raw type identifiers to generated Go identifiers.
//
// Resolution is a pure function of the input name and the declaration's
// naming configuration; resolving an already-resolved identifier returns it
// unchanged.
package naming

import (
	"strings"
	"unicode"
)

// Marker is the leading rune stripped from contract-style names when a
// configuration asks for it, e.g. IEmailSender -> EmailSender.
const Marker = 'I'

// Convention is the case convention applied to generated identifiers.
type Convention int

const (
	// CaseCamel lowercases the first letter: DbConnection -> dbConnection.
	CaseCamel Convention = iota

	// CasePascal uppercases the first letter: dbConnection -> DbConnection.
	CasePascal

	// CaseSnake splits on uppercase transitions and joins lowercased words
	// with underscores: DbConnection -> db_connection.
	CaseSnake
)

// String returns the directive spelling of the convention.
func (c Convention) String() string {
	switch c {
	case CasePascal:
		return "pascal"
	case CaseSnake:
		return "snake"
	default:
		return "camel"
	}
}

// ParseConvention converts a directive argument into a Convention.
func ParseConvention(s string) (Convention, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "camel", "camelcase":
		return CaseCamel, true
	case "pascal", "pascalcase":
		return CasePascal, true
	case "snake", "snakecase", "snake_case":
		return CaseSnake, true
	default:
		return CaseCamel, false
	}
}

// Config is the naming configuration carried by a dependency declaration.
type Config struct {
	// Convention is the case convention for generated field identifiers.
	Convention Convention

	// StripMarker strips one leading Marker rune when the following rune is
	// uppercase.
	StripMarker bool

	// Prefix is prepended to the resolved identifier. FieldDefaults uses
	// "_"; parameters use no prefix.
	Prefix string
}

// FieldDefaults is the configuration applied to generated field identifiers
// when a bulk declaration does not override it.
func FieldDefaults() Config {
	return Config{Convention: CaseCamel, StripMarker: true, Prefix: "_"}
}

// ParamDefaults is the configuration for constructor parameters: always
// camelCase, no prefix, regardless of the field configuration.
func ParamDefaults() Config {
	return Config{Convention: CaseCamel, StripMarker: true}
}

// Resolve maps a raw identifier through the configuration.
//
// Steps, in order: strip one leading Marker rune (only when StripMarker is
// set and the next rune is uppercase), apply the case convention, prepend
// the prefix (skipped when already present, which keeps Resolve idempotent).
func Resolve(raw string, cfg Config) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return cfg.Prefix
	}

	if cfg.StripMarker {
		name = stripMarker(name)
	}

	switch cfg.Convention {
	case CasePascal:
		name = changeFirstLetter(name, unicode.ToUpper)
	case CaseSnake:
		name = toSnake(name)
	default:
		name = changeFirstLetter(name, unicode.ToLower)
	}

	if cfg.Prefix != "" && !strings.HasPrefix(name, cfg.Prefix) {
		name = cfg.Prefix + name
	}
	return name
}

// Param resolves a constructor-parameter identifier for a raw name,
// honoring only the strip flag of the field configuration.
func Param(raw string, fieldCfg Config) string {
	cfg := ParamDefaults()
	cfg.StripMarker = fieldCfg.StripMarker
	return Resolve(raw, cfg)
}

func stripMarker(name string) string {
	runes := []rune(name)
	if len(runes) >= 2 && runes[0] == Marker && unicode.IsUpper(runes[1]) {
		return string(runes[1:])
	}
	return name
}

// changeFirstLetter applies f to the first letter rune, leaving any leading
// non-letter runes (e.g. an existing "_" prefix) untouched.
func changeFirstLetter(name string, f func(rune) rune) string {
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsLetter(r) {
			runes[i] = f(r)
			break
		}
	}
	return string(runes)
}

// toSnake splits on lower-to-upper transitions and joins lowercased words.
// Runs of uppercase letters stay one word: "DBConn" -> "db_conn".
func toSnake(name string) string {
	var sb strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			prevUpper := i > 0 && unicode.IsUpper(runes[i-1])
			if prevLower || (prevUpper && nextLower) {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
