package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDiskString(t *testing.T) {
	a := assert.New(t)

	out := `NAME="/dev/sda" FSTYPE="" MOUNTPOINT="" SIZE="21474836480" STATE="running" TYPE="disk" ROTA="1" RO="0" PKNAME=""
NAME="/dev/sda1" FSTYPE="ext4" MOUNTPOINT="/" SIZE="1073741824" STATE="" TYPE="part" ROTA="1" RO="0" PKNAME="/dev/sda"`

	disks := parseDiskString(out)
	a.Len(disks, 2)

	a.Equal("/dev/sda", disks[0].Name)
	a.Equal("disk", disks[0].Type)
	a.Equal(uint64(21474836480), disks[0].Size)
	a.False(disks[0].Readonly)
	a.Empty(disks[0].ParentName)

	a.Equal("/dev/sda1", disks[1].Name)
	a.Equal("part", disks[1].Type)
	a.Equal("ext4", disks[1].Filesystem)
	a.Equal("/", disks[1].MountPoint)
	a.Equal("/dev/sda", disks[1].ParentName)
}

func TestParseDiskStringEmpty(t *testing.T) {
	assert.Empty(t, parseDiskString(""))
	assert.Empty(t, parseDiskString("\n"))
}

func TestMatchDisks(t *testing.T) {
	a := assert.New(t)

	disks := []*LocalDisk{
		{Name: "/dev/sda", Type: "disk"},
		{Name: "/dev/sdb", Type: "disk"},
		{Name: "/dev/sda1", Type: "part", ParentName: "/dev/sda"},
		{Name: "/dev/nvme0n1", Type: "disk"},
	}

	matched := MatchDisks(disks, []string{"^/dev/sd[a-z]$"})
	a.Len(matched, 2)
	a.Equal("/dev/sda", matched[0].Name)
	a.Equal("/dev/sdb", matched[1].Name)

	matched = MatchDisks(disks, []string{"nvme"})
	a.Len(matched, 1)
	a.Equal("/dev/nvme0n1", matched[0].Name)

	// bad expressions are skipped, not fatal
	matched = MatchDisks(disks, []string{"[", "^/dev/sdb$"})
	a.Len(matched, 1)
}

func TestPartitionNode(t *testing.T) {
	tests := []struct {
		devPath string
		number  int
		want    string
	}{
		{"/dev/sda", 1, "/dev/sda1"},
		{"/dev/sdb", 12, "/dev/sdb12"},
		{"/dev/nvme0n1", 2, "/dev/nvme0n1p2"},
		{"/dev/md0", 1, "/dev/md0p1"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, PartitionNode(tt.devPath, tt.number))
		})
	}
}
