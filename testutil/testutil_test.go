package testutil

import (
	"bytes"
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSnapshotELF(t *testing.T) {
	img := SnapshotImage{
		VMData:              []byte("vm-data"),
		VMInstructions:      []byte{0x90, 0x90, 0xc3},
		IsolateData:         []byte("isolate-data"),
		IsolateInstructions: []byte{0xc3},
	}
	raw, lay := BuildSnapshotELFLayout(img)

	f, err := elf.NewFile(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, elf.ET_DYN, f.Type)
	assert.Equal(t, NativeMachine(), f.Machine)

	var loads []*elf.Prog
	for _, p := range f.Progs {
		if p.Type == elf.PT_LOAD {
			loads = append(loads, p)
		}
	}
	require.Len(t, loads, 2)
	assert.Equal(t, elf.PF_R, loads[0].Flags)
	assert.Equal(t, elf.PF_R|elf.PF_X, loads[1].Flags)
	assert.Equal(t, lay.TextOffset, loads[1].Off)

	syms, err := f.DynamicSymbols()
	require.NoError(t, err)
	byName := map[string]elf.Symbol{}
	for _, s := range syms {
		byName[s.Name] = s
	}
	require.Len(t, byName, 4)
	assert.Equal(t, lay.VMData, byName[SymVMData].Value)
	assert.Equal(t, uint64(len(img.IsolateData)), byName[SymIsolateData].Size)
	assert.Equal(t, lay.IsolateInstructions, byName[SymIsolateInstructions].Value)

	assert.Equal(t, img.VMData, raw[lay.VMData:lay.VMData+uint64(len(img.VMData))])
}

func TestBuildSnapshotELF_OmitSymbol(t *testing.T) {
	raw := BuildSnapshotELF(SnapshotImage{
		VMData:     []byte("x"),
		OmitSymbol: SymIsolateData,
	})

	f, err := elf.NewFile(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	syms, err := f.DynamicSymbols()
	require.NoError(t, err)
	for _, s := range syms {
		assert.NotEqual(t, SymIsolateData, s.Name)
	}
	assert.Len(t, syms, 3)
}
