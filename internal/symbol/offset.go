package symbol

import (
	"fmt"

	"github.com/calsym/calsym/internal/debuginfo"
)

// ResolveByOffset finds the component of an already resolved symbol
// that starts exactly at the given byte offset from its base address:
// a struct member, an array element, or any nested combination. The
// component enumeration is lazy and finite (pointer members are never
// followed), so the search stops at the first match.
func ResolveByOffset(dbg *debuginfo.DebugData, base SymbolInfo, offset int64) (SymbolInfo, error) {
	if base.Type == nil {
		return SymbolInfo{}, fmt.Errorf("%w: symbol %q has no type", ErrOffsetOutOfRange, base.Name)
	}
	if offset < 0 || uint64(offset) > base.Type.Size {
		return SymbolInfo{}, fmt.Errorf("%w: offset %d is out of bounds for symbol %q",
			ErrOffsetOutOfRange, offset, base.Name)
	}

	want := uint64(offset)
	iter := debuginfo.NewComponentIter(dbg.Types, base.Type)
	for component, ok := iter.Next(); ok; component, ok = iter.Next() {
		if component.Offset == want {
			return SymbolInfo{
				Name:       base.Name + component.Suffix,
				Address:    base.Address + want,
				Type:       component.Type,
				UnitIdx:    base.UnitIdx,
				Function:   base.Function,
				Namespaces: base.Namespaces,
				Unique:     base.Unique,
			}, nil
		}
	}

	return SymbolInfo{}, fmt.Errorf("%w: no symbol component at offset %d from %q",
		ErrNoComponentAtOffset, offset, base.Name)
}
