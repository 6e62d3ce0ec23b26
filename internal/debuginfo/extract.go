package debuginfo

import (
	"debug/dwarf"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// ctxFrame is one ancestor on the extraction context stack: the tag of
// the enclosing entry plus its name, captured only for the tags that
// disambiguation needs. Resolving names unconditionally for every entry
// dominates extraction time, so all other frames stay anonymous.
type ctxFrame struct {
	tag  dwarf.Tag
	name string
}

// classInfo is build-time state describing a class entry. It is
// consumed while the type reader expands class nodes and is not part of
// the final snapshot.
type classInfo struct {
	name      string
	namespace string // enclosing namespaces joined with "::"
}

// extractor accumulates the variable table and per-offset class table
// during one depth-first pass over the debug-info tree. It is local to
// a single load and finalized into a DebugData snapshot.
type extractor struct {
	data     *dwarf.Data
	logger   zerolog.Logger
	addrSize int
	symtab   map[string]uint64 // data-symbol address fallback

	variables map[string][]VarInfo
	varNames  []string
	classes   map[dwarf.Offset]classInfo
	unitNames []string
	cuStarts  []dwarf.Offset
}

func newExtractor(data *dwarf.Data, addrSize int, symtab map[string]uint64, logger zerolog.Logger) *extractor {
	return &extractor{
		data:      data,
		logger:    logger.With().Str("component", "extractor").Logger(),
		addrSize:  addrSize,
		symtab:    symtab,
		variables: make(map[string][]VarInfo),
		classes:   make(map[dwarf.Offset]classInfo),
	}
}

// walk traverses every compile unit in depth-first pre-order, recording
// variables, classes and unit names. The context stack mirrors the
// chain of enclosing entries: the stdlib reader signals descent through
// Entry.Children and backtracking through null entries, so the stack is
// pushed and truncated in step with the reader rather than assuming
// monotonic depth.
func (ex *extractor) walk() error {
	reader := ex.data.Reader()
	context := make([]ctxFrame, 0, 16)
	unitIdx := -1

	for {
		entry, err := reader.Next()
		if err != nil {
			// A decode error is a container-level defect; keep what
			// was extracted so far instead of poisoning the batch.
			ex.logger.Warn().Err(err).Msg("debug info walk aborted early")
			break
		}
		if entry == nil {
			break
		}

		if entry.Tag == 0 {
			if len(context) > 0 {
				context = context[:len(context)-1]
			}
			continue
		}

		switch entry.Tag {
		case dwarf.TagCompileUnit, dwarf.TagPartialUnit:
			unitIdx++
			name, _ := entryName(entry)
			ex.unitNames = append(ex.unitNames, name)
			ex.cuStarts = append(ex.cuStarts, entry.Offset)
			context = context[:0]
			continue
		case dwarf.TagVariable:
			if err := ex.variableEntry(entry, unitIdx, context); err != nil {
				ex.logger.Debug().
					Err(err).
					Uint64("offset", uint64(entry.Offset)).
					Msg("skipping variable entry")
			}
		case dwarf.TagClassType:
			ex.classEntry(entry, context)
		}

		if entry.Children {
			frame := ctxFrame{tag: entry.Tag}
			if entry.Tag == dwarf.TagNamespace || entry.Tag == dwarf.TagSubprogram {
				frame.name, _ = entryName(entry)
			}
			context = append(context, frame)
		}
	}

	if unitIdx < 0 {
		return fmt.Errorf("zero parseable compile units")
	}
	return nil
}

// variableEntry records one VarInfo for a variable entry that has a
// static address. Entries without one are locals and are silently
// skipped; entries whose attributes cannot be resolved are skipped with
// an error so the caller can log them.
func (ex *extractor) variableEntry(entry *dwarf.Entry, unitIdx int, context []ctxFrame) error {
	address, ok := ex.variableAddress(entry)
	if !ok {
		return nil
	}

	name, typeref, err := ex.resolveNameAndType(entry)
	if err != nil {
		return err
	}

	function, namespaces := contextOf(context)
	if _, seen := ex.variables[name]; !seen {
		ex.varNames = append(ex.varNames, name)
	}
	ex.variables[name] = append(ex.variables[name], VarInfo{
		Address:    address,
		TypeRef:    typeref,
		UnitIdx:    unitIdx,
		Function:   function,
		Namespaces: namespaces,
	})
	return nil
}

// variableAddress determines the static address of a variable entry.
// The usual source is a DW_OP_addr location expression. External
// variables that lack a usable location (common symbols, some linker
// relaxations) fall back to the container's data-symbol table.
func (ex *extractor) variableAddress(entry *dwarf.Entry) (uint64, bool) {
	if addr, ok := entryAddress(entry, ex.addrSize); ok {
		return addr, true
	}
	if !entryExternal(entry) {
		return 0, false
	}
	name, ok := entryLinkageName(entry)
	if !ok {
		if name, ok = entryName(entry); !ok {
			return 0, false
		}
	}
	addr, ok := ex.symtab[name]
	return addr, ok
}

// resolveNameAndType resolves the name and type reference of a variable
// entry through the attribute-indirection chain:
//
//   - a DW_AT_specification target supplies both, overriding the entry;
//   - a DW_AT_abstract_origin target supplies whichever of the two the
//     entry itself is missing;
//   - otherwise the entry's own attributes are used.
func (ex *extractor) resolveNameAndType(entry *dwarf.Entry) (string, dwarf.Offset, error) {
	if specOff, ok := entryRef(entry, dwarf.AttrSpecification); ok {
		target, err := entryAt(ex.data, specOff)
		if err != nil {
			return "", 0, fmt.Errorf("specification target: %w", err)
		}
		name, ok := entryName(target)
		if !ok {
			return "", 0, fmt.Errorf("specification target at %#x has no name", specOff)
		}
		typeref, ok := entryTypeRef(target)
		if !ok {
			return "", 0, fmt.Errorf("specification target at %#x has no type", specOff)
		}
		return name, typeref, nil
	}

	if originOff, ok := entryRef(entry, dwarf.AttrAbstractOrigin); ok {
		target, err := entryAt(ex.data, originOff)
		if err != nil {
			return "", 0, fmt.Errorf("abstract origin target: %w", err)
		}
		name, ok := entryName(entry)
		if !ok {
			if name, ok = entryName(target); !ok {
				return "", 0, fmt.Errorf("variable and abstract origin at %#x both unnamed", originOff)
			}
		}
		typeref, ok := entryTypeRef(entry)
		if !ok {
			if typeref, ok = entryTypeRef(target); !ok {
				return "", 0, fmt.Errorf("variable and abstract origin at %#x both untyped", originOff)
			}
		}
		return name, typeref, nil
	}

	name, ok := entryName(entry)
	if !ok {
		return "", 0, fmt.Errorf("variable has no name")
	}
	typeref, ok := entryTypeRef(entry)
	if !ok {
		return "", 0, fmt.Errorf("variable %q has no type", name)
	}
	return name, typeref, nil
}

// classEntry records build-time class metadata keyed by the entry's
// debug-info offset, for later use when expanding inheritance.
func (ex *extractor) classEntry(entry *dwarf.Entry, context []ctxFrame) {
	name, _ := entryName(entry)

	namespace := ""
	for _, frame := range context {
		if frame.tag == dwarf.TagNamespace && frame.name != "" {
			if namespace != "" {
				namespace += "::"
			}
			namespace += frame.name
		}
	}

	ex.classes[entry.Offset] = classInfo{
		name:      name,
		namespace: namespace,
	}
}

// contextOf derives the disambiguation context of a variable from the
// enclosing-entry stack: the innermost named subprogram and the ordered
// list of enclosing namespace names, outermost first.
func contextOf(context []ctxFrame) (string, []string) {
	function := ""
	for i := len(context) - 1; i >= 0; i-- {
		if context[i].tag == dwarf.TagSubprogram {
			function = context[i].name
			break
		}
	}

	var namespaces []string
	for _, frame := range context {
		if frame.tag == dwarf.TagNamespace && frame.name != "" {
			namespaces = append(namespaces, frame.name)
		}
	}
	return function, namespaces
}

// unitOf maps a debug-info offset to the index of the compile unit that
// contains it.
func (ex *extractor) unitOf(off dwarf.Offset) int {
	n := sort.Search(len(ex.cuStarts), func(i int) bool {
		return ex.cuStarts[i] > off
	})
	return n - 1
}
