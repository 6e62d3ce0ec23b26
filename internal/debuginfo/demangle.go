package debuginfo

import (
	"strings"

	"github.com/ianlancetaylor/demangle"
)

// demangleVarNames builds the demangled→mangled name index for C++
// variables. Only names with the Itanium "_Z" prefix are processed:
// the demangler happily "demangles" short plain names ("c" becomes
// "const"), and unprefixed names are never mangled variables anyway.
// Demangled forms containing a space or describing a vtable are not
// useful as symbol expressions and are excluded.
func demangleVarNames(names []string) map[string]string {
	demangled := make(map[string]string)
	for _, name := range names {
		if !strings.HasPrefix(name, "_Z") {
			continue
		}
		plain, err := demangle.ToString(name, demangle.NoParams, demangle.NoTemplateParams)
		if err != nil {
			continue
		}
		if strings.ContainsRune(plain, ' ') || strings.HasPrefix(plain, "{vtable") {
			continue
		}
		demangled[plain] = name
	}
	return demangled
}
