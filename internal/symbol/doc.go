// Package symbol resolves calibration symbol expressions against a
// debuginfo snapshot.
//
// An expression names a global variable and optionally descends into
// its type: struct/union/class members are selected with ".name",
// array elements with "[5]" or the legacy "_5_" notation, and an
// optional suffix of "{Function:...}{Namespace:...}{CompileUnit:...}"
// groups disambiguates between same-named variables from different
// functions, namespaces or source files.
package symbol
