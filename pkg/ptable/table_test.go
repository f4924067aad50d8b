package ptable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockplan-io/blockplan/pkg/storageconfig"
)

const sectorBytes = 512

// 1 MiB in 512B sectors
const oneMiB = 2048

func part(id string, number int, size, flag string) *storageconfig.Item {
	return &storageconfig.Item{
		ID:     id,
		Type:   storageconfig.Partition,
		Device: "sda",
		Number: number,
		Size:   size,
		Flag:   flag,
	}
}

func TestGPTSequentialPlacement(t *testing.T) {
	table, err := NewGPTTable(sectorBytes)
	require.NoError(t, err)

	a := assert.New(t)
	sizes := []string{"1GiB", "2GiB", "100MiB", "33MiB"}
	var prev *Entry
	for i, size := range sizes {
		entry, err := table.Add(part("p", 0, size, ""))
		require.NoError(t, err)
		a.Equal(i+1, entry.Number)
		a.Zero(entry.Start%oneMiB, "start must be 1MiB aligned")
		if prev == nil {
			a.Equal(uint64(oneMiB), entry.Start)
		} else {
			a.GreaterOrEqual(entry.Start, prev.Start+prev.Size, "no overlap")
			a.Greater(entry.Start, prev.Start)
		}
		prev = entry
	}
}

func TestGPTExplicitOffsetAndUUID(t *testing.T) {
	table, err := NewGPTTable(sectorBytes)
	require.NoError(t, err)

	a := assert.New(t)
	action := part("p1", 0, "1GiB", "boot")
	action.Offset = "4MiB"
	action.UUID = "cafeb0ba-0000-4000-8000-000000000001"

	entry, err := table.Add(action)
	require.NoError(t, err)
	a.Equal(uint64(4*oneMiB), entry.Start)
	a.Equal("cafeb0ba-0000-4000-8000-000000000001", entry.UUID)
	a.Equal("C12A7328-F81F-11D2-BA4B-00A0C93EC93B", entry.Type)

	bad := part("p2", 0, "1GiB", "")
	bad.UUID = "not-a-uuid"
	_, err = table.Add(bad)
	a.Error(err)
}

func TestDOSPrimaryExtendedLogicalChain(t *testing.T) {
	table, err := NewDOSTable(sectorBytes)
	require.NoError(t, err)

	actions := []*storageconfig.Item{
		part("p1", 1, "100MiB", "boot"),
		part("p2", 2, "100MiB", ""),
		part("p3", 3, "100MiB", ""),
		part("p4", 4, "1GiB", "extended"),
		part("p5", 0, "100MiB", "logical"),
		part("p6", 0, "100MiB", "logical"),
	}

	var entries []*Entry
	for _, action := range actions {
		entry, err := table.Add(action)
		require.NoError(t, err)
		entries = append(entries, entry)
	}

	a := assert.New(t)
	for i, e := range entries {
		a.Equal(i+1, e.Number)
	}

	a.True(entries[0].Bootable)
	a.False(entries[1].Bootable)
	a.Equal("05", entries[3].Type)

	extended := entries[3]
	// first logical sits one mebibyte after the extended partition start
	a.Equal(extended.Start+oneMiB, entries[4].Start)
	// next logical sits one mebibyte after the previous logical's end
	a.Equal(entries[4].Start+entries[4].Size+oneMiB, entries[5].Start)
}

func TestDOSLogicalNumberIgnoresAction(t *testing.T) {
	table, err := NewDOSTable(sectorBytes)
	require.NoError(t, err)

	_, err = table.Add(part("p1", 1, "1GiB", "extended"))
	require.NoError(t, err)

	entry, err := table.Add(part("p9", 9, "100MiB", "logical"))
	require.NoError(t, err)
	assert.Equal(t, 5, entry.Number)
}

func TestDOSTooManyPrimaries(t *testing.T) {
	table, err := NewDOSTable(sectorBytes)
	require.NoError(t, err)

	_, err = table.Add(part("p5", 5, "100MiB", ""))
	assert.ErrorIs(t, err, ErrTooManyPrimaries)
}

func TestDOSLogicalRequiresExtended(t *testing.T) {
	table, err := NewDOSTable(sectorBytes)
	require.NoError(t, err)

	_, err = table.Add(part("p1", 1, "100MiB", "logical"))
	assert.ErrorIs(t, err, ErrMissingExtendedPartition)
}

func TestRender(t *testing.T) {
	table, err := NewGPTTable(sectorBytes)
	require.NoError(t, err)

	_, err = table.Add(part("p1", 0, "1MiB", ""))
	require.NoError(t, err)

	script := table.Render()
	a := assert.New(t)
	a.Contains(script, "label: gpt")
	a.Contains(script, "1: ")
	a.Contains(script, "start=2048")
	a.Contains(script, "size=2048")
}

func TestBadSectorSize(t *testing.T) {
	_, err := NewGPTTable(1000)
	assert.ErrorIs(t, err, ErrBadSectorSize)

	_, err = NewDOSTable(0)
	assert.ErrorIs(t, err, ErrBadSectorSize)
}

func TestNewByLabel(t *testing.T) {
	a := assert.New(t)

	table, err := New("gpt", sectorBytes)
	a.NoError(err)
	a.Equal("gpt", table.Label())

	table, err = New("msdos", sectorBytes)
	a.NoError(err)
	a.Equal("dos", table.Label())

	_, err = New("vtoc", sectorBytes)
	a.ErrorIs(err, ErrUnknownLabel)
}

func TestFourKSectorAlignment(t *testing.T) {
	table, err := NewGPTTable(4096)
	require.NoError(t, err)

	entry, err := table.Add(part("p1", 0, "1GiB", ""))
	require.NoError(t, err)
	// 1MiB is 256 sectors of 4096 bytes
	assert.Equal(t, uint64(256), entry.Start)
	assert.Equal(t, uint64(1<<30/4096), entry.Size)
}
