package debuginfo

import (
	"debug/dwarf"
	"debug/elf"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	cleanup "github.com/calsym/calsym/internal/errors"
)

// Load failure causes, matchable with errors.Is.
var (
	// ErrNoDebugInfo indicates the binary has no .debug_info section.
	ErrNoDebugInfo = errors.New("no DWARF debug info")
	// ErrNoCompileUnits indicates the debug info contains zero
	// parseable compile units.
	ErrNoCompileUnits = errors.New("no compile units")
)

// AnalyzeOptions carries the container-level inputs to Analyze.
type AnalyzeOptions struct {
	// AddrSize is the target address size in bytes (4 or 8).
	AddrSize int
	// SymbolTable maps global data-symbol names to their addresses,
	// used as an address fallback for external variables without a
	// usable location attribute.
	SymbolTable map[string]uint64
	// Sections holds named section address ranges, retained verbatim
	// in the snapshot.
	Sections map[string]SectionRange
}

// Load reads the DWARF debug info embedded in the ELF binary at path
// and builds an immutable DebugData snapshot. A missing debug-info
// section, an unreadable container, or debug info with zero parseable
// compile units is a fatal load error carrying the binary's path.
func Load(path string, logger zerolog.Logger) (*DebugData, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer cleanup.DeferClose(logger, f, "closing ELF file")

	if f.Section(".debug_info") == nil && f.Section(".zdebug_info") == nil {
		return nil, fmt.Errorf("%s: %w: the section .debug_info is missing", path, ErrNoDebugInfo)
	}

	data, err := f.DWARF()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrNoDebugInfo, err)
	}

	opts := AnalyzeOptions{
		AddrSize:    4,
		SymbolTable: dataSymbols(f),
		Sections:    sectionRanges(f),
	}
	if f.Class == elf.ELFCLASS64 {
		opts.AddrSize = 8
	}

	dbg, err := Analyze(data, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logger.Info().
		Str("binary", path).
		Int("variables", len(dbg.VarNames)).
		Int("types", len(dbg.Types)).
		Int("units", len(dbg.UnitNames)).
		Msg("loaded debug info")
	return dbg, nil
}

// Analyze runs the extraction and type-building pass over an already
// parsed debug-info tree and finalizes the snapshot. It is the
// container-independent core of Load.
func Analyze(data *dwarf.Data, opts AnalyzeOptions, logger zerolog.Logger) (*DebugData, error) {
	if opts.AddrSize == 0 {
		opts.AddrSize = 8
	}

	ex := newExtractor(data, opts.AddrSize, opts.SymbolTable, logger)
	if err := ex.walk(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCompileUnits, err)
	}

	tr := newTypeReader(data, opts.AddrSize, ex, logger)

	// Build the type graph rooted at each variable's type reference.
	// A variable whose type cannot be built is dropped, so every
	// retained VarInfo.TypeRef is a valid key into Types.
	variables := make(map[string][]VarInfo, len(ex.variables))
	varNames := make([]string, 0, len(ex.varNames))
	for _, name := range ex.varNames {
		var kept []VarInfo
		for _, vi := range ex.variables[name] {
			if _, err := tr.typeAt(vi.TypeRef); err != nil {
				logger.Debug().
					Err(err).
					Str("variable", name).
					Msg("dropping variable with unresolvable type")
				continue
			}
			kept = append(kept, vi)
		}
		if len(kept) > 0 {
			variables[name] = kept
			varNames = append(varNames, name)
		}
	}

	sections := opts.Sections
	if sections == nil {
		sections = make(map[string]SectionRange)
	}

	return &DebugData{
		Variables:      variables,
		VarNames:       varNames,
		Types:          tr.types,
		TypeNames:      tr.typeNames,
		DemangledNames: demangleVarNames(varNames),
		UnitNames:      ex.unitNames,
		Sections:       sections,
	}, nil
}

// dataSymbols collects the defined global data symbols of the binary.
func dataSymbols(f *elf.File) map[string]uint64 {
	symbols, err := f.Symbols()
	if err != nil {
		return nil
	}
	table := make(map[string]uint64)
	for _, sym := range symbols {
		if elf.ST_BIND(sym.Info) != elf.STB_GLOBAL ||
			elf.ST_TYPE(sym.Info) != elf.STT_OBJECT ||
			sym.Section == elf.SHN_UNDEF ||
			sym.Value == 0 ||
			sym.Name == "" {
			continue
		}
		table[sym.Name] = sym.Value
	}
	return table
}

// sectionRanges collects the address range of every allocated section.
func sectionRanges(f *elf.File) map[string]SectionRange {
	ranges := make(map[string]SectionRange)
	for _, s := range f.Sections {
		if s.Addr != 0 && s.Size != 0 && s.Name != "" {
			ranges[s.Name] = SectionRange{Start: s.Addr, End: s.Addr + s.Size}
		}
	}
	return ranges
}
