package debuginfo

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUnitName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"file1.c", "file1_c"},
		{"src/nested/file2.c", "file2_c"},
		{`C:\project\file3.cpp`, "file3_cpp"},
		{"name-with.dots.and-dashes", "name_with_dots_and_dashes"},
		{"Already_Simple123", "Already_Simple123"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeUnitName(tt.in))
		})
	}
}

func TestSimpleUnitName_OutOfRange(t *testing.T) {
	dbg := &DebugData{UnitNames: []string{"src/a.c"}}

	assert.Equal(t, "a_c", dbg.SimpleUnitName(0))
	assert.Equal(t, "", dbg.SimpleUnitName(-1))
	assert.Equal(t, "", dbg.SimpleUnitName(1))
}

func TestTypeInfoString(t *testing.T) {
	u16 := &TypeInfo{Kind: KindUint16, Size: 2}

	tests := []struct {
		name string
		typ  *TypeInfo
		want string
	}{
		{"anonymous scalar", u16, "uint16"},
		{"named scalar", &TypeInfo{Kind: KindUint32, Name: "unsigned int", Size: 4}, "unsigned int"},
		{"array of named scalar", &TypeInfo{
			Kind:    KindArray,
			Element: &TypeInfo{Kind: KindUint32, Name: "unsigned int", Size: 4},
			Dims:    []uint64{4},
		}, "unsigned int[4]"},
		{"named struct", &TypeInfo{Kind: KindStruct, Name: "config"}, "struct config"},
		{"anonymous union", &TypeInfo{Kind: KindUnion}, "union"},
		{"array", &TypeInfo{Kind: KindArray, Element: u16, Dims: []uint64{8, 2}}, "uint16[8][2]"},
		{"bitfield", &TypeInfo{Kind: KindBitfield, Storage: u16, BitSize: 3}, "uint16:3"},
		{"named pointer", &TypeInfo{Kind: KindPointer, Name: "node *"}, "node *"},
		{"anonymous pointer", &TypeInfo{Kind: KindPointer}, "pointer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestDemangleVarNames(t *testing.T) {
	names := []string{
		"plain_c_name",
		"c", // must not become "const"
		"_ZN5motor5tableE",
		"_Z_not_really_mangled",
	}

	index := demangleVarNames(names)
	assert.Equal(t, "_ZN5motor5tableE", index["motor::table"])
	assert.NotContains(t, index, "plain_c_name")
	assert.NotContains(t, index, "const")
}

func TestLoad_Errors(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.elf"), logger)
		require.Error(t, err)
	})

	t.Run("not an ELF container", func(t *testing.T) {
		path := writeTempFile(t, "text.elf", "not an object file at all")
		_, err := Load(path, logger)
		require.Error(t, err)
	})
}
