// Package debuginfo extracts the static memory layout of a compiled
// program from its DWARF debug information.
//
// Loading a binary produces an immutable DebugData snapshot: every
// global/static variable with its address and disambiguation context
// (enclosing function, namespaces, compile unit), plus a type graph
// describing the full C/C++ structure of each variable (structs, unions,
// classes with inheritance, arrays, bitfields, enums). The snapshot is
// built in a single pass and never mutated afterwards, so it can be
// queried from any number of goroutines without locking.
package debuginfo
