package debuginfo

import (
	"debug/dwarf"
	"fmt"
	"strings"
)

// Component is one addressable part of a type: its path suffix relative
// to the root ("" for the root itself), its type, and its cumulative
// byte offset from the root.
type Component struct {
	Suffix string
	Type   *TypeInfo
	Offset uint64
}

// ComponentIter enumerates the addressable components of a type in
// depth-first pre-order, lazily: aggregates expand into base classes
// and members, arrays into elements. Pointer members are leaves and are
// never followed, which keeps the walk finite for self-referential
// types. Production is demand driven, so a search that stops at the
// first match never visits the remainder.
type ComponentIter struct {
	types   map[dwarf.Offset]*TypeInfo
	root    *TypeInfo
	started bool
	stack   []iterFrame
}

type iterFrame struct {
	typ    *TypeInfo
	prefix string
	base   uint64
	pos    int
}

// NewComponentIter returns an iterator over root and everything
// reachable inside it. Reference nodes are resolved against types.
func NewComponentIter(types map[dwarf.Offset]*TypeInfo, root *TypeInfo) *ComponentIter {
	return &ComponentIter{types: types, root: root.Deref(types)}
}

// Next returns the next component, starting with the root itself.
func (it *ComponentIter) Next() (Component, bool) {
	if !it.started {
		it.started = true
		if expandable(it.root) {
			it.stack = append(it.stack, iterFrame{typ: it.root})
		}
		return Component{Suffix: "", Type: it.root, Offset: 0}, true
	}

	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		child, ok := it.childAt(top)
		if !ok {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		top.pos++

		resolved := child.Type.Deref(it.types)
		child.Type = resolved
		if expandable(resolved) {
			it.stack = append(it.stack, iterFrame{
				typ:    resolved,
				prefix: child.Suffix,
				base:   child.Offset,
			})
		}
		return child, true
	}
	return Component{}, false
}

func (it *ComponentIter) childAt(frame *iterFrame) (Component, bool) {
	t := frame.typ
	switch t.Kind {
	case KindClass:
		if frame.pos < len(t.Inheritance) {
			base := t.Inheritance[frame.pos]
			return Component{
				Suffix: frame.prefix + "." + base.Name,
				Type:   base.Type,
				Offset: frame.base + base.Offset,
			}, true
		}
		return memberAt(frame, t, frame.pos-len(t.Inheritance))
	case KindStruct, KindUnion:
		return memberAt(frame, t, frame.pos)
	case KindArray:
		count := 1
		for _, d := range t.Dims {
			count *= int(d)
		}
		if frame.pos >= count || count == 0 {
			return Component{}, false
		}
		return Component{
			Suffix: frame.prefix + arraySuffix(t.Dims, frame.pos),
			Type:   t.Element,
			Offset: frame.base + uint64(frame.pos)*t.Stride,
		}, true
	}
	return Component{}, false
}

func memberAt(frame *iterFrame, t *TypeInfo, idx int) (Component, bool) {
	if idx >= len(t.Members) {
		return Component{}, false
	}
	m := t.Members[idx]
	return Component{
		Suffix: frame.prefix + "." + m.Name,
		Type:   m.Type,
		Offset: frame.base + m.Offset,
	}, true
}

// arraySuffix renders a row-major flattened element index as one legacy
// index component per dimension, e.g. element 4 of [2][3] is "._1_._1_".
func arraySuffix(dims []uint64, flat int) string {
	idx := make([]int, len(dims))
	rem := flat
	for i := len(dims) - 1; i >= 0; i-- {
		idx[i] = rem % int(dims[i])
		rem /= int(dims[i])
	}
	var sb strings.Builder
	for _, v := range idx {
		fmt.Fprintf(&sb, "._%d_", v)
	}
	return sb.String()
}

func expandable(t *TypeInfo) bool {
	switch t.Kind {
	case KindStruct, KindUnion, KindClass, KindArray:
		return true
	}
	return false
}
