package storageconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gptDiskConfig() *Config {
	return NewConfig([]*Item{
		{ID: "sda", Type: Disk, Ptable: "gpt"},
		{ID: "sda1", Type: Partition, Device: "sda", Number: 1, Size: "1GiB"},
		{ID: "sda2", Type: Partition, Device: "sda", Number: 2, Size: "2GiB"},
	})
}

func raidConfig() *Config {
	return NewConfig([]*Item{
		{ID: "sda", Type: Disk, Ptable: "gpt"},
		{ID: "sda1", Type: Partition, Device: "sda", Number: 1, Size: "10GiB"},
		{ID: "sda2", Type: Partition, Device: "sda", Number: 2, Size: "10GiB"},
		{ID: "md0", Type: Raid, Raidlevel: "1", Devices: []string{"sda1", "sda2"}},
		{ID: "md0-fs", Type: Format, Volume: "md0", Fstype: "ext4"},
		{ID: "md0-mnt", Type: Mount, Device: "md0-fs", Path: "/srv"},
	})
}

func TestRegistryLookups(t *testing.T) {
	a := assert.New(t)

	fields, err := DepFields(Raid)
	a.NoError(err)
	a.Equal([]string{"devices", "spare_devices", "container"}, fields)

	key, err := OrderKey(Partition)
	a.NoError(err)
	a.Equal([]string{"number"}, key)

	deps, err := AllowedDeps(Mount)
	a.NoError(err)
	a.Equal([]Type{Format}, deps)

	_, err = DepFields(Type("floppy"))
	a.ErrorIs(err, ErrUnknownType)
	_, err = OrderKey(Type("floppy"))
	a.ErrorIs(err, ErrUnknownType)
	_, err = AllowedDeps(Type("floppy"))
	a.ErrorIs(err, ErrUnknownType)
}

func TestFindItemDependenciesDisk(t *testing.T) {
	a := assert.New(t)
	cfg := gptDiskConfig()

	deps, err := FindItemDependencies("sda", cfg, true)
	a.NoError(err)
	a.Empty(deps)

	deps, err = FindItemDependencies("sda1", cfg, true)
	a.NoError(err)
	// direct value, then siblings sorted by partition number
	a.Equal([]string{"sda", "sda1", "sda2"}, deps)
}

func TestFindItemDependenciesSiblingOrder(t *testing.T) {
	a := assert.New(t)
	// sda2 declared before sda1, the order key puts sda1 first anyway
	cfg := NewConfig([]*Item{
		{ID: "sda", Type: Disk, Ptable: "gpt"},
		{ID: "sda2", Type: Partition, Device: "sda", Number: 2, Size: "2GiB"},
		{ID: "sda1", Type: Partition, Device: "sda", Number: 1, Size: "1GiB"},
	})

	deps, err := FindItemDependencies("sda2", cfg, true)
	a.NoError(err)
	a.Equal([]string{"sda", "sda1", "sda2"}, deps)
}

func TestFindItemDependenciesRaid(t *testing.T) {
	a := assert.New(t)
	cfg := raidConfig()

	deps, err := FindItemDependencies("md0", cfg, true)
	a.NoError(err)
	a.Equal("sda1", deps[0])
	a.Equal("sda2", deps[1])
	a.Contains(deps, "sda")

	deps, err = FindItemDependencies("md0-mnt", cfg, true)
	a.NoError(err)
	a.Equal("md0-fs", deps[0])
	a.Contains(deps, "md0")
	a.Contains(deps, "sda")
}

func TestFindItemDependenciesErrors(t *testing.T) {
	a := assert.New(t)

	_, err := FindItemDependencies("sda", NewConfig(nil), true)
	a.ErrorIs(err, ErrItemNotFound)

	cfg := gptDiskConfig()
	_, err = FindItemDependencies("sdz", cfg, true)
	a.ErrorIs(err, ErrItemNotFound)

	// a dangling reference surfaces only when validating
	cfg = NewConfig([]*Item{
		{ID: "sda1", Type: Partition, Device: "sda", Number: 1, Size: "1GiB"},
	})
	_, err = FindItemDependencies("sda1", cfg, true)
	a.ErrorIs(err, ErrItemNotFound)
	_, err = FindItemDependencies("sda1", cfg, false)
	a.NoError(err)
}

func TestFindItemDependenciesCycle(t *testing.T) {
	a := assert.New(t)

	// two partitions naming each other as device must fail, not recurse
	cfg := NewConfig([]*Item{
		{ID: "sda1", Type: Partition, Device: "sda2", Number: 1, Size: "1GiB"},
		{ID: "sda2", Type: Partition, Device: "sda1", Number: 2, Size: "1GiB"},
	})

	_, err := FindItemDependencies("sda1", cfg, true)
	a.ErrorIs(err, ErrInvalidDependency)
	a.Contains(err.Error(), "dependency cycle")

	// the guard holds with validation off too
	_, err = FindItemDependencies("sda1", cfg, false)
	a.ErrorIs(err, ErrInvalidDependency)

	// a self cycle is the degenerate case
	cfg = NewConfig([]*Item{
		{ID: "md0", Type: Raid, Raidlevel: "1", Devices: []string{"md0"}},
	})
	_, err = FindItemDependencies("md0", cfg, true)
	a.ErrorIs(err, ErrInvalidDependency)

	// a diamond is not a cycle: both partitions reach the same disk
	deps, err := FindItemDependencies("md0", raidConfig(), true)
	a.NoError(err)
	a.Contains(deps, "sda")
}

func TestValidateDependencyTypePair(t *testing.T) {
	a := assert.New(t)
	// a mount may only depend on a format
	cfg := NewConfig([]*Item{
		{ID: "sda", Type: Disk, Ptable: "gpt"},
		{ID: "bad-mnt", Type: Mount, Device: "sda", Path: "/"},
	})

	_, err := FindItemDependencies("bad-mnt", cfg, true)
	a.ErrorIs(err, ErrInvalidDependency)

	// not validated when validation is off
	_, err = FindItemDependencies("bad-mnt", cfg, false)
	a.NoError(err)
}

func TestItemsWithDep(t *testing.T) {
	a := assert.New(t)
	cfg := raidConfig()

	sibs := cfg.ItemsWithDep("device", "sda")
	require.Len(t, sibs, 2)
	a.Equal("sda1", sibs[0].ID)
	a.Equal("sda2", sibs[1].ID)

	// list-valued fields never equal a single id
	a.Empty(cfg.ItemsWithDep("devices", "sda1"))
}

func TestValidateItem(t *testing.T) {
	table := []struct {
		name string
		item *Item
		err  error
	}{
		{"disk ok", &Item{ID: "sda", Type: Disk, Ptable: "gpt"}, nil},
		{"disk bad ptable", &Item{ID: "sda", Type: Disk, Ptable: "mac"}, ErrInvalidItem},
		{"missing id", &Item{Type: Disk}, ErrInvalidItem},
		{"unknown type", &Item{ID: "x", Type: Type("floppy")}, ErrUnknownType},
		{"partition no size", &Item{ID: "p1", Type: Partition, Device: "sda"}, ErrInvalidItem},
		{"format no fstype", &Item{ID: "f1", Type: Format, Volume: "p1"}, ErrInvalidItem},
		{"mount ok", &Item{ID: "m1", Type: Mount, Device: "f1", Path: "/"}, nil},
		{"bad wipe", &Item{ID: "p1", Type: Partition, Device: "sda", Size: "1GiB", Wipe: "everything"}, ErrInvalidItem},
		{"raid no level", &Item{ID: "md0", Type: Raid, Devices: []string{"a", "b"}}, ErrInvalidItem},
		{"zpool ok", &Item{ID: "zp", Type: Zpool, Pool: "rpool", Vdevs: []string{"sda"}}, nil},
	}

	a := assert.New(t)
	for _, e := range table {
		err := ValidateItem(e.item)
		if e.err == nil {
			a.NoError(err, e.name)
		} else {
			a.ErrorIs(err, e.err, e.name)
		}
	}
}

func TestPtableUUIDToFlagEntry(t *testing.T) {
	table := []struct {
		guid string
		flag string
		code string
	}{
		{"0FC63DAF-8483-4772-8E79-3D69D8477DE4", "linux", "8300"},
		{"0fc63daf-8483-4772-8e79-3d69d8477de4", "linux", "8300"},
		{"0x5", "extended", "f"},
		{"f", "extended", "f"},
		{"83", "linux", "83"},
		{"", "", ""},
		{"DEADBEEF-0000-0000-0000-000000000000", "", ""},
	}

	a := assert.New(t)
	for _, e := range table {
		flag, code := PtableUUIDToFlagEntry(e.guid)
		a.Equal(e.flag, flag, e.guid)
		a.Equal(e.code, code, e.guid)
	}
}
