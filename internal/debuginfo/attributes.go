package debuginfo

import (
	"debug/dwarf"
	"encoding/binary"
	"fmt"
)

// DWARF location expression opcodes used for statically placed variables.
const (
	opAddr  = 0x03 // constant address
	opAddrx = 0xa1 // index into .debug_addr
)

// DW_AT_MIPS_linkage_name, the pre-DWARF4 spelling of DW_AT_linkage_name.
// Still emitted by older GCC releases.
const attrMIPSLinkageName dwarf.Attr = 0x2007

// entryName returns the DW_AT_name of an entry.
func entryName(entry *dwarf.Entry) (string, bool) {
	name, ok := entry.Val(dwarf.AttrName).(string)
	return name, ok
}

// entryTypeRef returns the DW_AT_type reference of an entry as a global
// debug-info offset.
func entryTypeRef(entry *dwarf.Entry) (dwarf.Offset, bool) {
	off, ok := entry.Val(dwarf.AttrType).(dwarf.Offset)
	return off, ok
}

// entryLinkageName returns the mangled linkage name of an entry,
// accepting both the DWARF4 and the legacy MIPS attribute.
func entryLinkageName(entry *dwarf.Entry) (string, bool) {
	if name, ok := entry.Val(dwarf.AttrLinkageName).(string); ok {
		return name, true
	}
	name, ok := entry.Val(attrMIPSLinkageName).(string)
	return name, ok
}

// entryExternal reports whether the entry carries DW_AT_external.
func entryExternal(entry *dwarf.Entry) bool {
	ext, ok := entry.Val(dwarf.AttrExternal).(bool)
	return ok && ext
}

// entryRef returns a reference-class attribute (DW_AT_specification,
// DW_AT_abstract_origin, ...) as a global debug-info offset.
func entryRef(entry *dwarf.Entry, attr dwarf.Attr) (dwarf.Offset, bool) {
	off, ok := entry.Val(attr).(dwarf.Offset)
	return off, ok
}

// entryAddress extracts the static address of a variable entry from its
// DW_AT_location expression. Only DW_OP_addr describes a link-time
// address; anything else (register locations, frame-relative locals,
// location lists) means the variable has no static placement.
//
// addrSize is the target address size in bytes, taken from the
// container. A present but malformed or non-static location yields
// ok=false, the same as an absent attribute.
func entryAddress(entry *dwarf.Entry, addrSize int) (uint64, bool) {
	expr, ok := entry.Val(dwarf.AttrLocation).([]byte)
	if !ok || len(expr) == 0 {
		return 0, false
	}
	if expr[0] != opAddr || len(expr) < 1+addrSize {
		return 0, false
	}
	switch addrSize {
	case 8:
		return binary.LittleEndian.Uint64(expr[1:9]), true
	case 4:
		return uint64(binary.LittleEndian.Uint32(expr[1:5])), true
	default:
		return 0, false
	}
}

// entryMemberOffset extracts DW_AT_data_member_location. The attribute
// is either a plain constant or, in DWARF2-era output, a one-operation
// expression DW_OP_plus_uconst <offset>. Offsets that require runtime
// evaluation (virtual bases) report ok=false.
func entryMemberOffset(entry *dwarf.Entry) (uint64, bool) {
	const opPlusUconst = 0x23

	switch v := entry.Val(dwarf.AttrDataMemberLoc).(type) {
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case []byte:
		if len(v) >= 2 && v[0] == opPlusUconst {
			off, n := decodeULEB128(v[1:])
			if n > 0 {
				return off, true
			}
		}
		return 0, false
	case nil:
		// Union members and the first struct member may omit the
		// attribute entirely; that means offset zero.
		return 0, true
	default:
		return 0, false
	}
}

// entryConstant returns an integer constant attribute.
func entryConstant(entry *dwarf.Entry, attr dwarf.Attr) (int64, bool) {
	v, ok := entry.Val(attr).(int64)
	return v, ok
}

// entryAt reads the entry at a global debug-info offset using a fresh
// reader, leaving any walk in progress undisturbed.
func entryAt(data *dwarf.Data, off dwarf.Offset) (*dwarf.Entry, error) {
	r := data.Reader()
	r.Seek(off)
	entry, err := r.Next()
	if err != nil {
		return nil, fmt.Errorf("reading entry at offset %#x: %w", off, err)
	}
	if entry == nil {
		return nil, fmt.Errorf("no entry at offset %#x", off)
	}
	return entry, nil
}

// decodeULEB128 decodes an unsigned LEB128 value, returning the value
// and the number of bytes consumed (0 when truncated or invalid).
func decodeULEB128(data []byte) (uint64, int) {
	var result uint64
	var shift uint

	for i := 0; i < len(data) && i < 10; i++ {
		b := data[i]
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, i + 1
		}
		shift += 7
	}

	return 0, 0
}
