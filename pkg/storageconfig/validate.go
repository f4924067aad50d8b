/*
   Copyright @ 2021 bocloud <fushaosong@beyondcent.com>.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package storageconfig

import (
	"fmt"

	"github.com/blockplan-io/blockplan/utils"
)

// ptables are the partition table labels a disk may carry. "unsupported"
// marks a probed table we can preserve but not create.
var ptables = []string{"dos", "gpt", "msdos", "vtoc", "unsupported"}

// fstypes are the filesystems the format executor can create. Probed
// filesystems outside this set are still representable with preserve set.
var fstypes = []string{
	"btrfs", "ext2", "ext3", "ext4", "f2fs", "fat", "fat12", "fat16",
	"fat32", "iso9660", "vfat", "jfs", "ntfs", "reiserfs", "swap", "xfs",
	"zfsroot",
}

// wipeModes are the supported volume wipe granularities.
var wipeModes = []string{"random", "superblock", "superblock-recursive", "zero"}

// KnownFilesystem reports whether the format executor can create fstype.
func KnownFilesystem(fstype string) bool {
	return utils.ContainsString(fstypes, fstype)
}

// KnownPtable reports whether label is a recognized partition table label.
func KnownPtable(label string) bool {
	return utils.ContainsString(ptables, label)
}

// ValidateItem performs the structural checks the schema layer would:
// identity, registered type, required fields per type. It does not check
// dependency edges; that is the resolver's job.
func ValidateItem(it *Item) error {
	if it == nil {
		return fmt.Errorf("%w: nil item", ErrInvalidItem)
	}
	if it.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidItem)
	}
	if !KnownType(it.Type) {
		return fmt.Errorf("%w: %q in item %q", ErrUnknownType, it.Type, it.ID)
	}
	if it.Wipe != "" && !utils.ContainsString(wipeModes, it.Wipe) {
		return fmt.Errorf("%w: item %q has unknown wipe mode %q", ErrInvalidItem, it.ID, it.Wipe)
	}

	missing := func(field string) error {
		return fmt.Errorf("%w: %s item %q missing %s", ErrInvalidItem, it.Type, it.ID, field)
	}

	switch it.Type {
	case Disk:
		if it.Ptable != "" && !KnownPtable(it.Ptable) {
			return fmt.Errorf("%w: disk %q has unknown ptable %q", ErrInvalidItem, it.ID, it.Ptable)
		}
	case Partition:
		if it.Device == "" {
			return missing("device")
		}
		if it.Size == "" {
			return missing("size")
		}
	case Format:
		if it.Volume == "" {
			return missing("volume")
		}
		if it.Fstype == "" {
			return missing("fstype")
		}
	case Mount:
		if it.Device == "" {
			return missing("device")
		}
		if it.Path == "" {
			return missing("path")
		}
	case Raid:
		if it.Raidlevel == "" {
			return missing("raidlevel")
		}
		if len(it.Devices) == 0 && it.Container == "" {
			return missing("devices")
		}
	case LvmVolgroup:
		if it.Name == "" {
			return missing("name")
		}
		if len(it.Devices) == 0 {
			return missing("devices")
		}
	case LvmPartition:
		if it.Name == "" {
			return missing("name")
		}
		if it.Volgroup == "" {
			return missing("volgroup")
		}
	case DmCrypt:
		if it.Volume == "" {
			return missing("volume")
		}
		if it.DmName == "" {
			return missing("dm_name")
		}
	case Bcache:
		if it.BackingDevice == "" {
			return missing("backing_device")
		}
	case Zpool:
		if it.Pool == "" {
			return missing("pool")
		}
		if len(it.Vdevs) == 0 {
			return missing("vdevs")
		}
	case Zfs:
		if it.Pool == "" {
			return missing("pool")
		}
		if it.Volume == "" {
			return missing("volume")
		}
	case Dasd:
		if it.DeviceID == "" {
			return missing("device_id")
		}
	}

	return nil
}
