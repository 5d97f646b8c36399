package extract

import (
	"strings"

	"github.com/sghaida/odigen/model"
)

// DirectivePrefix introduces an odigen marker inside a doc comment,
// e.g. "//odigen:service singleton".
const DirectivePrefix = "odigen:"

// directive is one parsed marker line.
type directive struct {
	Verb string
	Args []string
	Raw  string
}

// parseDirective splits a trimmed directive line ("odigen:" prefix already
// removed by the loader, or still present) into verb and arguments.
func parseDirective(line string) (directive, bool) {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "//")
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, DirectivePrefix)
	if line == "" {
		return directive{}, false
	}
	fields := strings.Fields(line)
	return directive{Verb: fields[0], Args: fields[1:], Raw: line}, true
}

// ParseTypeRefLiteral parses a directive target such as "Store[User]",
// "pkg.Database", "[]Handler" or "*Cache".
//
// Pointer markers are stripped: pointer-ness is not part of identity.
// ok is false on unbalanced brackets or empty input.
func ParseTypeRefLiteral(s string, owner ownerScope) (ref model.TypeRef, collection bool, ok bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[]") {
		collection = true
		s = strings.TrimSpace(s[2:])
	}
	ptr := strings.HasPrefix(s, "*")
	s = strings.TrimPrefix(s, "*")
	if s == "" {
		return model.TypeRef{}, false, false
	}

	base := s
	var args []model.TypeRef
	if i := strings.IndexByte(s, '['); i >= 0 {
		if !strings.HasSuffix(s, "]") {
			return model.TypeRef{}, false, false
		}
		base = s[:i]
		for _, part := range splitTopLevel(s[i+1 : len(s)-1]) {
			arg, argColl, argOK := ParseTypeRefLiteral(part, owner)
			if !argOK || argColl {
				return model.TypeRef{}, false, false
			}
			args = append(args, arg)
		}
		if len(args) == 0 {
			return model.TypeRef{}, false, false
		}
	}
	if base == "" {
		return model.TypeRef{}, false, false
	}

	pkg := owner.Pkg
	name := base
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		alias := base[:i]
		name = base[i+1:]
		pkg = owner.resolvePkg(alias)
	} else if owner.isTypeParam(name) && len(args) == 0 {
		return model.ParamRef(name), collection, true
	}
	if name == "" {
		return model.TypeRef{}, false, false
	}
	return model.TypeRef{Pkg: pkg, Name: name, Args: args, Ptr: ptr}, collection, true
}

// splitTopLevel splits a comma-joined list, ignoring commas nested inside
// brackets.
func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	for i := range out {
		out[i] = strings.TrimSpace(out[i])
	}
	// drop empties from trailing commas
	filtered := out[:0]
	for _, p := range out {
		if p != "" {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// ownerScope is the naming scope a directive target is parsed in.
type ownerScope struct {
	// Pkg is the import path unqualified names resolve to.
	Pkg string

	// TypeParams are the owning type's parameter names.
	TypeParams []string

	// Imports maps aliases to import paths for qualified targets.
	Imports map[string]string
}

func (o ownerScope) isTypeParam(name string) bool {
	for _, p := range o.TypeParams {
		if p == name {
			return true
		}
	}
	return false
}

func (o ownerScope) resolvePkg(alias string) string {
	if path, ok := o.Imports[alias]; ok {
		return path
	}
	// Unknown alias: keep it as-is so identity comparisons still work
	// within one run; the loader normally supplies full import maps.
	return alias
}
