package storageconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildAllTrees(t *testing.T, cfg *Config) []*Tree {
	var trees []*Tree
	for _, it := range cfg.Items() {
		tree, err := BuildConfigTree(it.ID, cfg)
		require.NoError(t, err)
		trees = append(trees, tree)
	}
	return trees
}

// assertDependencyOrder checks that every item appears after its full
// dependency closure, whatever leveling scheme produced the list.
func assertDependencyOrder(t *testing.T, cfg *Config, merged []*Item) {
	pos := make(map[string]int, len(merged))
	for i, it := range merged {
		pos[it.ID] = i
	}
	for _, it := range merged {
		deps, err := FindItemDependencies(it.ID, cfg, false)
		require.NoError(t, err)
		for _, dep := range deps {
			if dep == it.ID {
				continue
			}
			depPos, ok := pos[dep]
			require.True(t, ok, "dependency %s missing from merged output", dep)
			assert.Less(t, depPos, pos[it.ID],
				"%s must come before %s", dep, it.ID)
		}
	}
}

func TestBuildConfigTree(t *testing.T) {
	a := assert.New(t)
	cfg := gptDiskConfig()

	tree, err := BuildConfigTree("sda1", cfg)
	a.NoError(err)
	a.Equal("sda1", tree.Top().ID)
	a.Equal(3, tree.Len())

	items := tree.Items()
	a.Equal("sda1", items[0].ID)

	// leaf-first list puts the disk before its partitions
	list := tree.List()
	a.Equal("sda1", list[len(list)-1].ID)

	_, err = BuildConfigTree("sdz", cfg)
	a.ErrorIs(err, ErrItemNotFound)
}

func TestMergeConfigTreesDiskAndPartitions(t *testing.T) {
	a := assert.New(t)
	cfg := gptDiskConfig()

	merged := MergeConfigTrees(buildAllTrees(t, cfg))
	require.Len(t, merged, 3)
	a.Equal("sda", merged[0].ID)
	a.Equal("sda1", merged[1].ID)
	a.Equal("sda2", merged[2].ID)
	assertDependencyOrder(t, cfg, merged)
}

func TestMergeConfigTreesRaidStack(t *testing.T) {
	cfg := raidConfig()

	merged := MergeConfigTrees(buildAllTrees(t, cfg))
	require.Len(t, merged, 6)

	pos := make(map[string]int)
	for i, it := range merged {
		pos[it.ID] = i
	}
	a := assert.New(t)
	a.Less(pos["sda"], pos["sda1"])
	a.Less(pos["sda"], pos["sda2"])
	a.Less(pos["sda1"], pos["md0"])
	a.Less(pos["sda2"], pos["md0"])
	a.Less(pos["md0"], pos["md0-fs"])
	a.Less(pos["md0-fs"], pos["md0-mnt"])
	assertDependencyOrder(t, cfg, merged)
}

func TestMergeConfigTreesNoDuplicatesNoOmissions(t *testing.T) {
	cfg := raidConfig()

	merged := MergeConfigTrees(buildAllTrees(t, cfg))
	seen := make(map[string]int)
	for _, it := range merged {
		seen[it.ID]++
	}
	a := assert.New(t)
	a.Len(seen, cfg.Len())
	for _, it := range cfg.Items() {
		a.Equal(1, seen[it.ID], it.ID)
	}
}

func TestMergeConfigTreesIdempotent(t *testing.T) {
	cfg := raidConfig()
	trees := buildAllTrees(t, cfg)

	once := MergeConfigTrees(trees)
	twice := MergeConfigTrees(append(trees, trees...))

	require.Equal(t, len(once), len(twice))
	for i := range once {
		assert.Equal(t, once[i].ID, twice[i].ID)
	}
}

func TestMergeConfigTreesBcacheStack(t *testing.T) {
	cfg := NewConfig([]*Item{
		{ID: "sda", Type: Disk, Ptable: "gpt"},
		{ID: "sdb", Type: Disk, Ptable: "gpt"},
		{ID: "sda1", Type: Partition, Device: "sda", Number: 1, Size: "100GiB"},
		{ID: "sdb1", Type: Partition, Device: "sdb", Number: 1, Size: "10GiB"},
		{ID: "bcache0", Type: Bcache, Name: "bcache0", BackingDevice: "sda1", CacheDevice: "sdb1", CacheMode: "writeback"},
		{ID: "bcache0-fs", Type: Format, Volume: "bcache0", Fstype: "ext4"},
		{ID: "bcache0-mnt", Type: Mount, Device: "bcache0-fs", Path: "/"},
	})

	merged := MergeConfigTrees(buildAllTrees(t, cfg))
	require.Len(t, merged, cfg.Len())
	assertDependencyOrder(t, cfg, merged)
}

func TestMergeConfigTreesLvmStack(t *testing.T) {
	cfg := NewConfig([]*Item{
		{ID: "sda", Type: Disk, Ptable: "gpt"},
		{ID: "sda1", Type: Partition, Device: "sda", Number: 1, Size: "50GiB"},
		{ID: "vg0", Type: LvmVolgroup, Name: "vg0", Devices: []string{"sda1"}},
		{ID: "lv-root", Type: LvmPartition, Name: "root", Volgroup: "vg0", Size: "20GiB"},
		{ID: "lv-home", Type: LvmPartition, Name: "home", Volgroup: "vg0", Size: "20GiB"},
		{ID: "root-fs", Type: Format, Volume: "lv-root", Fstype: "ext4"},
		{ID: "root-mnt", Type: Mount, Device: "root-fs", Path: "/"},
	})

	merged := MergeConfigTrees(buildAllTrees(t, cfg))
	require.Len(t, merged, cfg.Len())
	assertDependencyOrder(t, cfg, merged)

	pos := make(map[string]int)
	for i, it := range merged {
		pos[it.ID] = i
	}
	// lvm partitions share a level and sort by name
	assert.Less(t, pos["lv-home"], pos["lv-root"])
}
