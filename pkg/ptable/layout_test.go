package ptable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockplan-io/blockplan/pkg/storageconfig"
)

func gptDisk() *storageconfig.Item {
	return &storageconfig.Item{ID: "sda", Type: storageconfig.Disk, Ptable: "gpt"}
}

func dosDisk() *storageconfig.Item {
	return &storageconfig.Item{ID: "sda", Type: storageconfig.Disk, Ptable: "msdos"}
}

func TestWipeForAction(t *testing.T) {
	table := []struct {
		name   string
		action *storageconfig.Item
		mode   string
	}{
		{"explicit wipe wins", &storageconfig.Item{Wipe: "zero", Preserve: true}, "zero"},
		{"preserved never wiped", &storageconfig.Item{Preserve: true}, WipeNone},
		{"extended never wiped", &storageconfig.Item{Flag: "extended"}, WipeNone},
		{"new partition superblock", &storageconfig.Item{}, WipeSuperblock},
		{"new logical superblock", &storageconfig.Item{Flag: "logical"}, WipeSuperblock},
	}

	a := assert.New(t)
	for _, e := range table {
		a.Equal(e.mode, WipeForAction(e.action), e.name)
	}
}

func TestPlanDiskLayoutWipePlan(t *testing.T) {
	actions := []*storageconfig.Item{
		part("p1", 1, "100MiB", ""),
		part("p2", 2, "100MiB", ""),
		part("p3", 3, "1GiB", "extended"),
		part("p4", 0, "100MiB", "logical"),
	}

	layout, err := PlanDiskLayout(dosDisk(), actions, sectorBytes, nil, nil)
	require.NoError(t, err)

	entries := layout.Table.Entries()
	require.Len(t, entries, 4)

	a := assert.New(t)
	a.Equal(WipeSuperblock, layout.Wipes[entries[0].Start])
	a.Equal(WipeSuperblock, layout.Wipes[entries[1].Start])
	a.Equal(WipeNone, layout.Wipes[entries[2].Start], "extended keeps its EBR")
	a.Equal(WipeSuperblock, layout.Wipes[entries[3].Start])
	a.Empty(layout.Deleted)
}

func TestPlanDiskLayoutPreserve(t *testing.T) {
	p1 := part("p1", 1, "1GiB", "")
	p1.Preserve = true
	observed := &ObservedTable{
		Label: "gpt",
		Partitions: []ObservedPartition{
			{Node: "/dev/sda1", Number: 1, Start: oneMiB, Size: 1 << 30 / sectorBytes},
		},
	}

	layout, err := PlanDiskLayout(gptDisk(), []*storageconfig.Item{p1}, sectorBytes, observed, nil)
	require.NoError(t, err)
	assert.Equal(t, WipeNone, layout.Wipes[oneMiB])
}

func TestPlanDiskLayoutPreserveMismatch(t *testing.T) {
	p1 := part("p1", 1, "2GiB", "")
	p1.Preserve = true
	observed := &ObservedTable{
		Label: "gpt",
		Partitions: []ObservedPartition{
			{Node: "/dev/sda1", Number: 1, Start: oneMiB, Size: 1 << 30 / sectorBytes},
		},
	}

	_, err := PlanDiskLayout(gptDisk(), []*storageconfig.Item{p1}, sectorBytes, observed, nil)
	assert.ErrorIs(t, err, ErrPreserveMismatch)
}

func TestPlanDiskLayoutPreserveNotFound(t *testing.T) {
	p1 := part("p1", 1, "1GiB", "")
	p1.Preserve = true

	// observed table has nothing at the computed offset
	observed := &ObservedTable{Label: "gpt"}
	_, err := PlanDiskLayout(gptDisk(), []*storageconfig.Item{p1}, sectorBytes, observed, nil)
	assert.ErrorIs(t, err, ErrPartitionNotFound)

	// no probed table at all
	_, err = PlanDiskLayout(gptDisk(), []*storageconfig.Item{p1}, sectorBytes, nil, nil)
	assert.ErrorIs(t, err, ErrPartitionNotFound)
}

func TestPlanDiskLayoutDeletedPartitions(t *testing.T) {
	actions := []*storageconfig.Item{part("p1", 1, "1GiB", "")}
	observed := &ObservedTable{
		Label: "gpt",
		Partitions: []ObservedPartition{
			{Node: "/dev/sda1", Number: 1, Start: oneMiB, Size: 1 << 30 / sectorBytes},
			{Node: "/dev/sda2", Number: 2, Start: 5 << 30 / sectorBytes, Size: 1 << 20 / sectorBytes},
		},
	}

	layout, err := PlanDiskLayout(gptDisk(), actions, sectorBytes, observed, nil)
	require.NoError(t, err)

	// sda2's offset is not among the computed entries, it is going away
	require.Len(t, layout.Deleted, 1)
	assert.Equal(t, "/dev/sda2", layout.Deleted[0].Node)
}

func TestPlanDiskLayoutUnknownLabel(t *testing.T) {
	disk := &storageconfig.Item{ID: "sda", Type: storageconfig.Disk, Ptable: "vtoc"}
	_, err := PlanDiskLayout(disk, nil, sectorBytes, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownLabel)
}

func TestPlanConfigPlansEveryTabledDisk(t *testing.T) {
	items := []*storageconfig.Item{
		gptDisk(),
		{ID: "sdb", Type: storageconfig.Disk, Ptable: "vtoc"},
		part("p1", 1, "100MiB", ""),
		part("p2", 2, "200MiB", ""),
		{ID: "fs1", Type: storageconfig.Format, Volume: "p1", Fstype: "ext4"},
		{ID: "mnt1", Type: storageconfig.Mount, Device: "fs1", Path: "/"},
	}
	cfg := storageconfig.NewConfig(items)

	plans, err := PlanConfig(cfg, sectorBytes, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, plans, 1, "vtoc disk is not planned")

	a := assert.New(t)
	a.Equal("sda", plans[0].Disk.ID)
	entries := plans[0].Layout.Table.Entries()
	require.Len(t, entries, 2, "mount with a device field is not a partition action")
	a.Equal(1, entries[0].Number)
	a.Equal(2, entries[1].Number)
}

func TestPlanConfigPerDiskSectorSize(t *testing.T) {
	items := []*storageconfig.Item{
		gptDisk(),
		{ID: "nvme0", Type: storageconfig.Disk, Ptable: "gpt", Path: "/dev/nvme0n1"},
		part("p1", 1, "100MiB", ""),
		{ID: "q1", Type: storageconfig.Partition, Device: "nvme0", Number: 1, Size: "100MiB"},
	}
	cfg := storageconfig.NewConfig(items)

	plans, err := PlanConfig(cfg, sectorBytes, map[string]uint64{"nvme0": 4096}, nil, nil)
	require.NoError(t, err)
	require.Len(t, plans, 2)

	a := assert.New(t)
	first := plans[0].Layout.Table.Entries()[0]
	a.Equal("sda", plans[0].Disk.ID)
	a.Equal(uint64(oneMiB), first.Start)
	a.Equal(uint64(100*oneMiB), first.Size)

	// one MiB is 256 sectors on a 4096-byte disk
	second := plans[1].Layout.Table.Entries()[0]
	a.Equal("nvme0", plans[1].Disk.ID)
	a.Equal(uint64(256), second.Start)
	a.Equal(uint64(100*256), second.Size)
}

func TestPlanConfigPropagatesLayoutErrors(t *testing.T) {
	items := []*storageconfig.Item{
		dosDisk(),
		part("p1", 1, "100MiB", "logical"),
	}
	cfg := storageconfig.NewConfig(items)

	_, err := PlanConfig(cfg, sectorBytes, nil, nil, nil)
	assert.ErrorIs(t, err, ErrMissingExtendedPartition)
}
