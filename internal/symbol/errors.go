package symbol

import "errors"

// Resolution failure kinds, matchable with errors.Is. Every failure is
// returned as a wrapped error carrying the offending component and the
// full original expression; none of them aborts anything beyond the
// single query.
var (
	// ErrSymbolNotFound: the base component names no known variable
	// and has no demangled equivalent.
	ErrSymbolNotFound = errors.New("symbol does not exist")
	// ErrMemberNotFound: a path component names no member (or base
	// class) of the aggregate reached so far.
	ErrMemberNotFound = errors.New("no such member")
	// ErrUnparsableIndex: an array dimension got a component that is
	// neither "[N]" nor "_N_".
	ErrUnparsableIndex = errors.New("unparsable array index")
	// ErrIndexOutOfBounds: an array index is not below its
	// dimension's extent.
	ErrIndexOutOfBounds = errors.New("array index out of bounds")
	// ErrTrailingComponents: path components remain after reaching a
	// leaf type.
	ErrTrailingComponents = errors.New("trailing components could not be matched")
	// ErrOffsetOutOfRange: a reverse lookup offset is negative or
	// beyond the base symbol's type size.
	ErrOffsetOutOfRange = errors.New("offset out of range")
	// ErrNoComponentAtOffset: no addressable component of the base
	// type starts exactly at the requested offset.
	ErrNoComponentAtOffset = errors.New("no symbol component at offset")
)
