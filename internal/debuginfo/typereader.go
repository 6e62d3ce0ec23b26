package debuginfo

import (
	"debug/dwarf"
	"fmt"

	"github.com/rs/zerolog"
)

// DW_ATE base type encodings.
const (
	encAddress      = 0x01
	encBoolean      = 0x02
	encFloat        = 0x04
	encSigned       = 0x05
	encSignedChar   = 0x06
	encUnsigned     = 0x07
	encUnsignedChar = 0x08
)

// typeReader resolves type-reference offsets into structured TypeInfo
// nodes. Nodes are memoized in the shared type map, so every distinct
// offset is built exactly once and repeat calls are side-effect free.
type typeReader struct {
	data    *dwarf.Data
	logger  zerolog.Logger
	ptrSize int
	unitOf  func(dwarf.Offset) int
	classes map[dwarf.Offset]classInfo

	types     map[dwarf.Offset]*TypeInfo
	typeNames map[string]dwarf.Offset
	building  map[dwarf.Offset]bool
}

func newTypeReader(data *dwarf.Data, ptrSize int, ex *extractor, logger zerolog.Logger) *typeReader {
	return &typeReader{
		data:      data,
		logger:    logger.With().Str("component", "typereader").Logger(),
		ptrSize:   ptrSize,
		unitOf:    ex.unitOf,
		classes:   ex.classes,
		types:     make(map[dwarf.Offset]*TypeInfo),
		typeNames: make(map[string]dwarf.Offset),
		building:  make(map[dwarf.Offset]bool),
	}
}

// typeAt returns the fully structured type node for a type-reference
// offset, building and memoizing it on first use.
func (tr *typeReader) typeAt(off dwarf.Offset) (*TypeInfo, error) {
	if t, ok := tr.types[off]; ok {
		return t, nil
	}
	if tr.building[off] {
		// A cyclic chain that is not broken by a pointer can only come
		// from corrupt input; answer with a by-key reference instead
		// of recursing forever.
		return &TypeInfo{Kind: KindRef, Ref: off, UnitIdx: -1}, nil
	}
	tr.building[off] = true
	defer delete(tr.building, off)

	t, err := tr.readType(off)
	if err != nil {
		return nil, err
	}
	tr.types[off] = t
	if t.Name != "" {
		tr.typeNames[t.Name] = t.Offset
	}
	return t, nil
}

func (tr *typeReader) readType(off dwarf.Offset) (*TypeInfo, error) {
	reader := tr.data.Reader()
	reader.Seek(off)
	entry, err := reader.Next()
	if err != nil || entry == nil {
		return nil, fmt.Errorf("no type entry at offset %#x: %w", off, err)
	}

	switch entry.Tag {
	case dwarf.TagBaseType:
		return tr.readBaseType(entry), nil

	case dwarf.TagTypedef, dwarf.TagConstType, dwarf.TagVolatileType, dwarf.TagRestrictType:
		inner, ok := entryTypeRef(entry)
		if !ok {
			// e.g. "const void"
			return tr.fallbackType(entry), nil
		}
		return tr.typeAt(inner)

	case dwarf.TagPointerType, dwarf.TagReferenceType, dwarf.TagRvalueReferenceType:
		t := &TypeInfo{
			Kind:    KindPointer,
			UnitIdx: tr.unitOf(entry.Offset),
			Offset:  entry.Offset,
			Size:    uint64(tr.ptrSize),
		}
		t.Name, _ = entryName(entry)
		// The pointee is kept as a key and never expanded here; that
		// is what makes self-referential structs finite.
		t.Ref, _ = entryTypeRef(entry)
		return t, nil

	case dwarf.TagStructType:
		return tr.readAggregate(entry, reader, KindStruct)
	case dwarf.TagUnionType:
		return tr.readAggregate(entry, reader, KindUnion)
	case dwarf.TagClassType:
		return tr.readAggregate(entry, reader, KindClass)

	case dwarf.TagArrayType:
		return tr.readArray(entry, reader)

	case dwarf.TagEnumerationType:
		return tr.readEnum(entry, reader)

	default:
		tr.logger.Debug().
			Uint64("offset", uint64(entry.Offset)).
			Str("tag", entry.Tag.String()).
			Msg("unsupported type entry, degrading to integer")
		return tr.fallbackType(entry), nil
	}
}

func (tr *typeReader) readBaseType(entry *dwarf.Entry) *TypeInfo {
	t := &TypeInfo{
		UnitIdx: tr.unitOf(entry.Offset),
		Offset:  entry.Offset,
	}
	t.Name, _ = entryName(entry)
	size, _ := entryConstant(entry, dwarf.AttrByteSize)
	if size > 0 {
		t.Size = uint64(size)
	}

	enc, _ := entryConstant(entry, dwarf.AttrEncoding)
	switch enc {
	case encBoolean:
		t.Kind = KindBool
		if t.Size == 0 {
			t.Size = 1
		}
	case encFloat:
		switch t.Size {
		case 4:
			t.Kind = KindFloat32
		case 8:
			t.Kind = KindFloat64
		default:
			return tr.fallbackType(entry)
		}
	case encSigned, encSignedChar:
		switch t.Size {
		case 1:
			t.Kind = KindSint8
		case 2:
			t.Kind = KindSint16
		case 4:
			t.Kind = KindSint32
		case 8:
			t.Kind = KindSint64
		default:
			return tr.fallbackType(entry)
		}
	case encUnsigned, encUnsignedChar, encAddress:
		switch t.Size {
		case 1:
			t.Kind = KindUint8
		case 2:
			t.Kind = KindUint16
		case 4:
			t.Kind = KindUint32
		case 8:
			t.Kind = KindUint64
		default:
			return tr.fallbackType(entry)
		}
	default:
		return tr.fallbackType(entry)
	}
	return t
}

// fallbackType degrades an unknown or unsupported encoding to an
// unsigned integer of the entry's width, so that one exotic type never
// fails the surrounding aggregate or the whole build.
func (tr *typeReader) fallbackType(entry *dwarf.Entry) *TypeInfo {
	t := &TypeInfo{
		Kind:    KindUint32,
		UnitIdx: tr.unitOf(entry.Offset),
		Offset:  entry.Offset,
		Size:    4,
	}
	t.Name, _ = entryName(entry)
	if size, ok := entryConstant(entry, dwarf.AttrByteSize); ok {
		switch size {
		case 1:
			t.Kind, t.Size = KindUint8, 1
		case 2:
			t.Kind, t.Size = KindUint16, 2
		case 8:
			t.Kind, t.Size = KindUint64, 8
		}
	}
	return t
}

// readAggregate builds a struct, union or class node. The reader is
// positioned just past the aggregate's own entry, on its first child.
func (tr *typeReader) readAggregate(entry *dwarf.Entry, reader *dwarf.Reader, kind Kind) (*TypeInfo, error) {
	t := &TypeInfo{
		Kind:    kind,
		UnitIdx: tr.unitOf(entry.Offset),
		Offset:  entry.Offset,
	}
	t.Name, _ = entryName(entry)
	if size, ok := entryConstant(entry, dwarf.AttrByteSize); ok && size > 0 {
		t.Size = uint64(size)
	}
	if kind == KindClass {
		// Classes recorded during extraction carry their enclosing
		// namespace path; use it to qualify the display name.
		if info, ok := tr.classes[entry.Offset]; ok && info.namespace != "" && t.Name != "" {
			t.Name = info.namespace + "::" + t.Name
		}
	}

	if !entry.Children {
		return t, nil
	}
	for {
		child, err := reader.Next()
		if err != nil {
			return nil, fmt.Errorf("reading members of type at %#x: %w", entry.Offset, err)
		}
		if child == nil || child.Tag == 0 {
			break
		}

		switch child.Tag {
		case dwarf.TagMember:
			if err := tr.appendMember(t, child); err != nil {
				tr.logger.Debug().
					Err(err).
					Uint64("offset", uint64(child.Offset)).
					Msg("skipping member")
			}
		case dwarf.TagInheritance:
			if kind == KindClass {
				if err := tr.appendBase(t, child); err != nil {
					tr.logger.Debug().
						Err(err).
						Uint64("offset", uint64(child.Offset)).
						Msg("skipping base class")
				}
			}
		}
		if child.Children {
			reader.SkipChildren()
		}
	}
	return t, nil
}

func (tr *typeReader) appendMember(t *TypeInfo, child *dwarf.Entry) error {
	name, ok := entryName(child)
	if !ok {
		return fmt.Errorf("member has no name")
	}
	typeOff, ok := entryTypeRef(child)
	if !ok {
		return fmt.Errorf("member %q has no type", name)
	}
	offset, ok := entryMemberOffset(child)
	if !ok {
		return fmt.Errorf("member %q has a runtime-evaluated offset", name)
	}

	memberType, err := tr.typeAt(typeOff)
	if err != nil {
		return err
	}

	if bitSize, isBitfield := entryConstant(child, dwarf.AttrBitSize); isBitfield {
		bf, byteOff, err := tr.bitfield(child, memberType, offset, bitSize)
		if err != nil {
			return fmt.Errorf("member %q: %w", name, err)
		}
		t.Members = append(t.Members, Member{Name: name, Type: bf, Offset: byteOff})
		return nil
	}

	t.Members = append(t.Members, Member{
		Name:   name,
		Type:   tr.memberNode(memberType),
		Offset: offset,
	})
	return nil
}

// memberNode decides how an aggregate holds a member's type: named
// aggregates have independent identity and are referenced by key, while
// everything else is held directly.
func (tr *typeReader) memberNode(t *TypeInfo) *TypeInfo {
	switch t.Kind {
	case KindStruct, KindUnion, KindClass, KindEnum:
		return &TypeInfo{
			Kind:    KindRef,
			Name:    t.Name,
			UnitIdx: t.UnitIdx,
			Offset:  t.Offset,
			Size:    t.Size,
			Ref:     t.Offset,
		}
	default:
		return t
	}
}

func (tr *typeReader) appendBase(t *TypeInfo, child *dwarf.Entry) error {
	typeOff, ok := entryTypeRef(child)
	if !ok {
		return fmt.Errorf("inheritance entry has no type")
	}
	offset, ok := entryMemberOffset(child)
	if !ok {
		// Virtual bases are placed at runtime; the fixed additive
		// offset model cannot represent them.
		return fmt.Errorf("base class at %#x has a runtime-evaluated offset", typeOff)
	}

	baseType, err := tr.typeAt(typeOff)
	if err != nil {
		return err
	}
	name := baseType.Name
	if info, ok := tr.classes[typeOff]; ok && info.name != "" {
		name = info.name
	}
	if name == "" {
		return fmt.Errorf("base class at %#x has no name", typeOff)
	}

	t.Inheritance = append(t.Inheritance, BaseClass{
		Name:   name,
		Type:   tr.memberNode(baseType),
		Offset: offset,
	})
	return nil
}

// bitfield normalizes DWARF4 (MSB-relative bit_offset within a storage
// unit) and DWARF5 (data_bit_offset from the start of the aggregate)
// bitfield descriptions into an LSB-relative bit offset plus the byte
// offset of the containing storage unit. The storage type is owned by
// the bitfield node.
func (tr *typeReader) bitfield(child *dwarf.Entry, storage *TypeInfo, memberOff uint64, bitSize int64) (*TypeInfo, uint64, error) {
	if storage.Size == 0 {
		return nil, 0, fmt.Errorf("bitfield storage type has no size")
	}
	storageBits := storage.Size * 8

	bf := &TypeInfo{
		Kind:    KindBitfield,
		UnitIdx: tr.unitOf(child.Offset),
		Offset:  child.Offset,
		Size:    storage.Size,
		BitSize: uint32(bitSize),
		Storage: storage,
	}

	if dbo, ok := entryConstant(child, dwarf.AttrDataBitOffset); ok {
		// DWARF5: one offset in bits from the start of the aggregate.
		byteOff := (uint64(dbo) / storageBits) * storage.Size
		bf.BitOffset = uint32(uint64(dbo) % storageBits)
		return bf, byteOff, nil
	}

	msbOffset, ok := entryConstant(child, dwarf.AttrBitOffset)
	if !ok {
		return nil, 0, fmt.Errorf("bitfield has neither data_bit_offset nor bit_offset")
	}
	// DWARF4 counts from the most significant bit of the storage unit.
	unitBits := storageBits
	if unitSize, ok := entryConstant(child, dwarf.AttrByteSize); ok && unitSize > 0 {
		unitBits = uint64(unitSize) * 8
	}
	if uint64(msbOffset)+uint64(bitSize) > unitBits {
		return nil, 0, fmt.Errorf("bitfield exceeds its storage unit")
	}
	bf.BitOffset = uint32(unitBits - uint64(msbOffset) - uint64(bitSize))
	return bf, memberOff, nil
}

// readArray builds an array node, flattening DWARF's nested
// single-dimension encoding into one ordered dimension list. Multiple
// subrange children and nested array element types both normalize to
// the same representation: outermost dimension first, stride equal to
// the innermost element size.
func (tr *typeReader) readArray(entry *dwarf.Entry, reader *dwarf.Reader) (*TypeInfo, error) {
	t := &TypeInfo{
		Kind:    KindArray,
		UnitIdx: tr.unitOf(entry.Offset),
		Offset:  entry.Offset,
	}
	t.Name, _ = entryName(entry)

	elemOff, ok := entryTypeRef(entry)
	if !ok {
		return nil, fmt.Errorf("array at %#x has no element type", entry.Offset)
	}

	if entry.Children {
		for {
			child, err := reader.Next()
			if err != nil {
				return nil, fmt.Errorf("reading dimensions of array at %#x: %w", entry.Offset, err)
			}
			if child == nil || child.Tag == 0 {
				break
			}
			if child.Tag == dwarf.TagSubrangeType {
				if count, ok := entryConstant(child, dwarf.AttrCount); ok {
					t.Dims = append(t.Dims, uint64(count))
				} else if upper, ok := entryConstant(child, dwarf.AttrUpperBound); ok {
					t.Dims = append(t.Dims, uint64(upper)+1)
				} else {
					// Flexible array member: zero extent.
					t.Dims = append(t.Dims, 0)
				}
			}
			if child.Children {
				reader.SkipChildren()
			}
		}
	}
	if len(t.Dims) == 0 {
		t.Dims = []uint64{0}
	}

	element, err := tr.typeAt(elemOff)
	if err != nil {
		return nil, err
	}
	if element.Kind == KindArray {
		t.Dims = append(t.Dims, element.Dims...)
		element = element.Element
	}
	t.Element = tr.memberNode(element)
	t.Stride = element.Size

	if size, ok := entryConstant(entry, dwarf.AttrByteSize); ok && size > 0 {
		t.Size = uint64(size)
	} else {
		total := t.Stride
		for _, d := range t.Dims {
			total *= d
		}
		t.Size = total
	}
	return t, nil
}

func (tr *typeReader) readEnum(entry *dwarf.Entry, reader *dwarf.Reader) (*TypeInfo, error) {
	t := &TypeInfo{
		Kind:    KindEnum,
		UnitIdx: tr.unitOf(entry.Offset),
		Offset:  entry.Offset,
	}
	t.Name, _ = entryName(entry)

	if underlyingOff, ok := entryTypeRef(entry); ok {
		underlying, err := tr.typeAt(underlyingOff)
		if err == nil {
			t.Storage = underlying
			t.Size = underlying.Size
		}
	}
	if t.Storage == nil {
		size, _ := entryConstant(entry, dwarf.AttrByteSize)
		t.Storage = syntheticUint(size)
		t.Size = t.Storage.Size
	}

	if !entry.Children {
		return t, nil
	}
	for {
		child, err := reader.Next()
		if err != nil {
			return nil, fmt.Errorf("reading enumerators at %#x: %w", entry.Offset, err)
		}
		if child == nil || child.Tag == 0 {
			break
		}
		if child.Tag == dwarf.TagEnumerator {
			name, ok := entryName(child)
			value, okVal := entryConstant(child, dwarf.AttrConstValue)
			if ok && okVal {
				t.Enumerators = append(t.Enumerators, Enumerator{Name: name, Value: value})
			}
		}
		if child.Children {
			reader.SkipChildren()
		}
	}
	return t, nil
}

// syntheticUint builds an unsigned scalar that does not correspond to
// any debug-info entry, for enum underlying representations that are
// only described by a byte size.
func syntheticUint(size int64) *TypeInfo {
	t := &TypeInfo{UnitIdx: -1}
	switch size {
	case 1:
		t.Kind, t.Size = KindUint8, 1
	case 2:
		t.Kind, t.Size = KindUint16, 2
	case 8:
		t.Kind, t.Size = KindUint64, 8
	default:
		t.Kind, t.Size = KindUint32, 4
	}
	return t
}
