package symbol

import (
	"debug/dwarf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calsym/calsym/internal/debuginfo"
)

// offsetFixture resolves "telemetry", a nested struct at 0x2000:
//
//	struct {
//	    unsigned int rpm;        // offset 0
//	    struct {
//	        unsigned short raw;  // offset 4
//	        unsigned short filt; // offset 6
//	    } temp;                  // offset 4
//	    unsigned short log[2];   // offset 8
//	}
func offsetFixture(t *testing.T) (*debuginfo.DebugData, SymbolInfo) {
	t.Helper()

	inner := &debuginfo.TypeInfo{
		Kind: debuginfo.KindStruct,
		Size: 4,
		Members: []debuginfo.Member{
			{Name: "raw", Type: uint16Type(), Offset: 0},
			{Name: "filt", Type: uint16Type(), Offset: 2},
		},
	}
	logType := &debuginfo.TypeInfo{
		Kind:    debuginfo.KindArray,
		Size:    4,
		Element: uint16Type(),
		Dims:    []uint64{2},
		Stride:  2,
	}
	root := &debuginfo.TypeInfo{
		Kind:   debuginfo.KindStruct,
		Name:   "telemetry_t",
		Offset: 1,
		Size:   12,
		Members: []debuginfo.Member{
			{Name: "rpm", Type: uint32Type(), Offset: 0},
			{Name: "temp", Type: inner, Offset: 4},
			{Name: "log", Type: logType, Offset: 8},
		},
	}
	dbg := &debuginfo.DebugData{
		Variables: map[string][]debuginfo.VarInfo{
			"telemetry": {{Address: 0x2000, TypeRef: 1}},
		},
		Types:     map[dwarf.Offset]*debuginfo.TypeInfo{1: root},
		UnitNames: []string{"telemetry.c"},
	}

	sym, err := Resolve(dbg, "telemetry")
	require.NoError(t, err)
	return dbg, sym
}

func TestResolveByOffset(t *testing.T) {
	dbg, base := offsetFixture(t)

	tests := []struct {
		name     string
		offset   int64
		wantName string
		wantKind debuginfo.Kind
	}{
		{"root itself", 0, "telemetry", debuginfo.KindStruct},
		{"nested member", 6, "telemetry.temp.filt", debuginfo.KindUint16},
		{"array element", 10, "telemetry.log._1_", debuginfo.KindUint16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sym, err := ResolveByOffset(dbg, base, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, sym.Name)
			assert.Equal(t, base.Address+uint64(tt.offset), sym.Address)
			assert.Equal(t, tt.wantKind, sym.Type.Kind)
		})
	}
}

func TestResolveByOffset_Errors(t *testing.T) {
	dbg, base := offsetFixture(t)

	t.Run("out of range", func(t *testing.T) {
		_, err := ResolveByOffset(dbg, base, 100)
		assert.ErrorIs(t, err, ErrOffsetOutOfRange)

		_, err = ResolveByOffset(dbg, base, -1)
		assert.ErrorIs(t, err, ErrOffsetOutOfRange)
	})

	t.Run("no component at offset", func(t *testing.T) {
		// Offset 1 falls inside the rpm member but starts nothing.
		_, err := ResolveByOffset(dbg, base, 1)
		assert.ErrorIs(t, err, ErrNoComponentAtOffset)
	})

	t.Run("untyped base", func(t *testing.T) {
		_, err := ResolveByOffset(dbg, SymbolInfo{Name: "bare"}, 0)
		assert.ErrorIs(t, err, ErrOffsetOutOfRange)
	})
}
