package symbol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/calsym/calsym/internal/debuginfo"
)

// SymbolInfo is the result of resolving a symbol expression: a concrete
// address, the type at that address, and the disambiguation context of
// the variable the expression started from. Unique reports whether the
// base name had exactly one candidate.
type SymbolInfo struct {
	Name       string
	Address    uint64
	Type       *debuginfo.TypeInfo
	UnitIdx    int
	Function   string
	Namespaces []string
	Unique     bool
}

// querySpec is a parsed disambiguation suffix. A field left unset
// matches any candidate.
type querySpec struct {
	function    string
	functionSet bool
	unit        string
	unitSet     bool
	namespaces  []string
}

// Resolve parses a symbol expression and resolves it against the
// snapshot to an address and type.
//
// When the base component is unknown but matches a demangled C++ name,
// the whole resolution is retried with the mangled name substituted,
// and the result is reported under the mangled display name.
func Resolve(dbg *debuginfo.DebugData, expression string) (SymbolInfo, error) {
	base, spec := parseQuerySpec(expression)
	components := splitComponents(base)

	sym, err := resolveComponents(dbg, components, spec)
	if err == nil {
		sym.Name = base
		return sym, nil
	}

	if mangled, ok := dbg.DemangledNames[components[0]]; ok {
		retry := make([]string, len(components))
		copy(retry, components)
		retry[0] = mangled
		if sym, retryErr := resolveComponents(dbg, retry, spec); retryErr == nil {
			sym.Name = mangled + strings.TrimPrefix(base, components[0])
			return sym, nil
		}
	}

	return SymbolInfo{}, err
}

func resolveComponents(dbg *debuginfo.DebugData, components []string, spec *querySpec) (SymbolInfo, error) {
	varinfos, ok := dbg.Variables[components[0]]
	if !ok || len(varinfos) == 0 {
		return SymbolInfo{}, fmt.Errorf("%w: %q", ErrSymbolNotFound, components[0])
	}

	varinfo := selectVarInfo(dbg, varinfos, spec)
	unique := len(varinfos) == 1

	root, ok := dbg.Types[varinfo.TypeRef]
	if !ok {
		// Extraction guarantees retained typerefs resolve; this is a
		// completeness branch for snapshots assembled by hand.
		if len(components) == 1 {
			return SymbolInfo{
				Address:    varinfo.Address,
				Type:       &debuginfo.TypeInfo{Kind: debuginfo.KindUint8, Size: 1, UnitIdx: -1},
				UnitIdx:    varinfo.UnitIdx,
				Function:   varinfo.Function,
				Namespaces: varinfo.Namespaces,
				Unique:     unique,
			}, nil
		}
		return SymbolInfo{}, trailingError(components, 1)
	}

	address, terminal, err := descend(dbg, root, components, 1, varinfo.Address)
	if err != nil {
		return SymbolInfo{}, err
	}
	return SymbolInfo{
		Address:    address,
		Type:       terminal,
		UnitIdx:    varinfo.UnitIdx,
		Function:   varinfo.Function,
		Namespaces: varinfo.Namespaces,
		Unique:     unique,
	}, nil
}

// selectVarInfo picks among several same-named variables using the
// disambiguation suffix. Function and unit filters apply only when
// their group was given; the namespace list is compared whole whenever
// any suffix is present, so a suffix without namespace groups matches
// only candidates that have none. A suffix that matches no candidate
// degrades to the first candidate in table order rather than failing.
func selectVarInfo(dbg *debuginfo.DebugData, varinfos []debuginfo.VarInfo, spec *querySpec) *debuginfo.VarInfo {
	if spec != nil {
		for i := range varinfos {
			vi := &varinfos[i]
			if spec.functionSet && spec.function != vi.Function {
				continue
			}
			if spec.unitSet && debuginfo.NormalizeUnitName(spec.unit) != dbg.SimpleUnitName(vi.UnitIdx) {
				continue
			}
			if !equalStrings(spec.namespaces, vi.Namespaces) {
				continue
			}
			return vi
		}
	}
	return &varinfos[0]
}

// parseQuerySpec splits an expression of the form
// "var{Function:f}{Namespace:n}{CompileUnit:u}" into the plain base
// path and the parsed suffix. Scanning stops at the first CompileUnit
// group: calibration tools append a final "{Namespace:Global}" after
// it, which carries no information.
func parseQuerySpec(expression string) (string, *querySpec) {
	pos := strings.IndexByte(expression, '{')
	if pos < 0 {
		return expression, nil
	}
	base, suffix := expression[:pos], expression[pos:]

	inner, ok := strings.CutPrefix(suffix, "{")
	if ok {
		inner, ok = strings.CutSuffix(inner, "}")
	}
	if !ok {
		return base, nil
	}

	spec := &querySpec{}
	for _, group := range strings.Split(inner, "}{") {
		if name, ok := strings.CutPrefix(group, "Function:"); ok {
			spec.function = name
			spec.functionSet = true
		} else if name, ok := strings.CutPrefix(group, "Namespace:"); ok {
			spec.namespaces = append(spec.namespaces, name)
		} else if name, ok := strings.CutPrefix(group, "CompileUnit:"); ok {
			spec.unit = name
			spec.unitSet = true
			break
		}
	}
	return base, spec
}

// splitComponents splits a symbol path on '.' and detaches trailing
// index groups, so "my_struct.array_field[5][6]" becomes
// ["my_struct", "array_field", "[5]", "[6]"]. Legacy "_5_" index
// components pass through unchanged as ordinary path elements.
func splitComponents(base string) []string {
	var components []string
	for _, part := range strings.Split(base, ".") {
		idx := strings.IndexByte(part, '[')
		if idx < 0 {
			components = append(components, part)
			continue
		}
		components = append(components, part[:idx])
		rest := part[idx:]
		for rest != "" {
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				components = append(components, rest)
				break
			}
			components = append(components, rest[:end+1])
			rest = rest[end+1:]
		}
	}
	return components
}

// descend walks the type graph consuming path components, accumulating
// member offsets and array strides into the address.
func descend(dbg *debuginfo.DebugData, t *debuginfo.TypeInfo, components []string, idx int, address uint64) (uint64, *debuginfo.TypeInfo, error) {
	t = t.Deref(dbg.Types)
	if idx >= len(components) {
		return address, t, nil
	}

	switch t.Kind {
	case debuginfo.KindStruct, debuginfo.KindUnion:
		member, ok := t.FindMember(components[idx])
		if !ok {
			return 0, nil, memberError(components, idx)
		}
		return descend(dbg, member.Type, components, idx+1, address+member.Offset)

	case debuginfo.KindClass:
		if member, ok := t.FindMember(components[idx]); ok {
			return descend(dbg, member.Type, components, idx+1, address+member.Offset)
		}
		if base, ok := t.FindBase(components[idx]); ok {
			// A literal "_" right after a base-class component picks
			// the base instance itself and stops descending into it.
			skip := 0
			if idx+1 < len(components) && components[idx+1] == "_" {
				skip = 1
			}
			return descend(dbg, base.Type, components, idx+1+skip, address+base.Offset)
		}
		return 0, nil, memberError(components, idx)

	case debuginfo.KindArray:
		var flat uint64
		for dim, extent := range t.Dims {
			component := "_0_" // missing trailing index selects the first element
			if idx+dim < len(components) {
				component = components[idx+dim]
			}
			index, ok := parseIndex(component)
			if !ok {
				return 0, nil, fmt.Errorf("%w: could not interpret %q as an array index in %q",
					ErrUnparsableIndex, component, strings.Join(components, "."))
			}
			if index >= extent {
				return 0, nil, fmt.Errorf("%w: requested index %d in expression %q, but the array only has %d elements",
					ErrIndexOutOfBounds, index, strings.Join(components, "."), extent)
			}
			flat = flat*extent + index
		}
		return descend(dbg, t.Element, components, idx+len(t.Dims), address+flat*t.Stride)

	default:
		// Scalars, enums, bitfields and pointers terminate the path.
		return 0, nil, trailingError(components, idx)
	}
}

// parseIndex reads an array index in either "[5]" or legacy "_5_"
// notation; both forms carry identical meaning.
func parseIndex(s string) (uint64, bool) {
	if len(s) < 3 {
		return 0, false
	}
	bracketed := s[0] == '[' && s[len(s)-1] == ']'
	underscored := s[0] == '_' && s[len(s)-1] == '_'
	if !bracketed && !underscored {
		return 0, false
	}
	value, err := strconv.ParseUint(s[1:len(s)-1], 10, 64)
	return value, err == nil
}

func memberError(components []string, idx int) error {
	return fmt.Errorf("%w: there is no member %q in %q",
		ErrMemberNotFound, components[idx], strings.Join(components[:idx], "."))
}

func trailingError(components []string, idx int) error {
	return fmt.Errorf("%w: remaining portion %q of %q could not be matched",
		ErrTrailingComponents, strings.Join(components[idx:], "."), strings.Join(components, "."))
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
