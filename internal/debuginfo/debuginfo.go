package debuginfo

import (
	"debug/dwarf"
	"fmt"
	"strings"
)

// Kind discriminates the variants of a TypeInfo node.
type Kind int

const (
	KindUint8 Kind = iota
	KindUint16
	KindUint32
	KindUint64
	KindSint8
	KindSint16
	KindSint32
	KindSint64
	KindFloat32
	KindFloat64
	KindBool
	KindPointer
	KindArray
	KindStruct
	KindUnion
	KindClass
	KindEnum
	KindBitfield
	// KindRef is a reference-by-key to a type node with independent
	// identity (a named struct/class/union/enum). Cross-references are
	// stored as keys and dereferenced against DebugData.Types at use
	// time, which keeps self-referential type chains finite.
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindSint8:
		return "sint8"
	case KindSint16:
		return "sint16"
	case KindSint32:
		return "sint32"
	case KindSint64:
		return "sint64"
	case KindFloat32:
		return "float"
	case KindFloat64:
		return "double"
	case KindBool:
		return "bool"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	case KindClass:
		return "class"
	case KindEnum:
		return "enum"
	case KindBitfield:
		return "bitfield"
	case KindRef:
		return "typeref"
	}
	return "unknown"
}

// Member is one named member of a struct, union or class, at a byte
// offset from the start of the aggregate.
type Member struct {
	Name   string
	Type   *TypeInfo
	Offset uint64
}

// BaseClass is one inherited base of a class, located at a fixed byte
// offset within the derived class. Virtual bases, whose placement is not
// a compile-time constant, are not recorded.
type BaseClass struct {
	Name   string
	Type   *TypeInfo
	Offset uint64
}

// Enumerator is one named value of an enum type.
type Enumerator struct {
	Name  string
	Value int64
}

// TypeInfo is one node of the type graph. Nodes are keyed in
// DebugData.Types by the debug-info offset of their defining entry.
//
// A node owns sub-structure that has no independent identity (the array
// element type, the bitfield storage type); members and inheritance
// targets that are themselves named aggregates are held as KindRef nodes
// carrying only the target key.
type TypeInfo struct {
	Kind    Kind
	Name    string       // display name, may be empty
	UnitIdx int          // owning compile unit, -1 if synthetic
	Offset  dwarf.Offset // stable key of the defining entry
	Size    uint64       // total byte size

	// KindArray
	Element *TypeInfo
	Dims    []uint64 // outermost dimension first
	Stride  uint64   // byte distance between innermost elements

	// KindStruct, KindUnion, KindClass
	Members     []Member
	Inheritance []BaseClass // KindClass only

	// KindEnum
	Enumerators []Enumerator

	// KindBitfield
	BitOffset uint32    // LSB-relative offset within the storage unit
	BitSize   uint32    // width in bits
	Storage   *TypeInfo // underlying integer type; also set for KindEnum

	// KindPointer, KindRef: key of the referenced node. A pointer's
	// pointee is never expanded eagerly; it may be absent from the map.
	Ref dwarf.Offset
}

// Deref resolves a KindRef node against the type map. Any other node,
// and dangling references, resolve to themselves.
func (t *TypeInfo) Deref(types map[dwarf.Offset]*TypeInfo) *TypeInfo {
	if t.Kind == KindRef {
		if target, ok := types[t.Ref]; ok {
			return target
		}
	}
	return t
}

// FindMember returns the named member and its byte offset.
func (t *TypeInfo) FindMember(name string) (*Member, bool) {
	for i := range t.Members {
		if t.Members[i].Name == name {
			return &t.Members[i], true
		}
	}
	return nil, false
}

// FindBase returns the named base class of a KindClass node.
func (t *TypeInfo) FindBase(name string) (*BaseClass, bool) {
	for i := range t.Inheritance {
		if t.Inheritance[i].Name == name {
			return &t.Inheritance[i], true
		}
	}
	return nil, false
}

func (t *TypeInfo) String() string {
	switch t.Kind {
	case KindArray:
		var sb strings.Builder
		sb.WriteString(t.Element.String())
		for _, d := range t.Dims {
			fmt.Fprintf(&sb, "[%d]", d)
		}
		return sb.String()
	case KindStruct, KindUnion, KindClass, KindEnum:
		if t.Name != "" {
			return fmt.Sprintf("%s %s", t.Kind, t.Name)
		}
		return t.Kind.String()
	case KindBitfield:
		return fmt.Sprintf("%s:%d", t.Storage, t.BitSize)
	case KindPointer, KindRef:
		if t.Name != "" {
			return t.Name
		}
		return t.Kind.String()
	default:
		// Scalars render under their source-level name ("unsigned
		// int") when the debug info provides one.
		if t.Name != "" {
			return t.Name
		}
		return t.Kind.String()
	}
}

// VarInfo describes one occurrence of a global or static variable.
// Several occurrences may share a name, e.g. file-local statics defined
// in different compile units or functions.
type VarInfo struct {
	Address    uint64
	TypeRef    dwarf.Offset // key into DebugData.Types
	UnitIdx    int
	Function   string   // innermost enclosing function, "" at file scope
	Namespaces []string // enclosing namespaces, outermost first
}

// SectionRange is the address range covered by a loadable section.
type SectionRange struct {
	Start uint64
	End   uint64
}

// DebugData is the immutable snapshot produced by loading one binary.
// It is replaced wholesale when a new binary is loaded; there is no
// mutation path after construction.
type DebugData struct {
	// Variables maps a variable name to all occurrences of that name.
	// VarNames preserves first-seen insertion order of the keys.
	Variables map[string][]VarInfo
	VarNames  []string

	// Types is the shared type graph, keyed by debug-info offset.
	// Every VarInfo.TypeRef resolves here; extraction drops variables
	// whose type cannot be built.
	Types map[dwarf.Offset]*TypeInfo

	// TypeNames maps a type display name to its offset key.
	TypeNames map[string]dwarf.Offset

	// DemangledNames maps a demangled C++ variable name to the mangled
	// name under which the variable appears in Variables.
	DemangledNames map[string]string

	// UnitNames holds the display name of each compile unit, indexed by
	// VarInfo.UnitIdx. An entry is "" when the unit carries no name.
	UnitNames []string

	// Sections maps loadable section names to their address ranges.
	Sections map[string]SectionRange
}

// SimpleUnitName returns the normalized short name of a compile unit:
// the final path element with every non-alphanumeric byte replaced by
// '_', e.g. "src/file2.c" becomes "file2_c". It returns "" when the
// unit index is out of range or the unit has no name.
func (d *DebugData) SimpleUnitName(unitIdx int) string {
	if unitIdx < 0 || unitIdx >= len(d.UnitNames) {
		return ""
	}
	return NormalizeUnitName(d.UnitNames[unitIdx])
}

// NormalizeUnitName applies the compile-unit name normalization used
// when matching a {CompileUnit:...} disambiguator.
func NormalizeUnitName(name string) string {
	if name == "" {
		return ""
	}
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}
	var sb strings.Builder
	sb.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			sb.WriteByte(c)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
