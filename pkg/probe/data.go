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

package probe

import (
	"encoding/json"

	"github.com/blockplan-io/blockplan/pkg/ptable"
)

// Blockdev is one probed block device: its udev properties plus sysfs
// attributes and, for disks with a table, the probed partition table.
type Blockdev struct {
	Props          map[string]string
	Attrs          map[string]string
	Partitiontable *ptable.ObservedTable
}

// UnmarshalJSON flattens the probe format, where udev properties sit as
// top-level string keys next to the attrs and partitiontable objects.
func (b *Blockdev) UnmarshalJSON(raw []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	b.Props = make(map[string]string)
	for key, val := range fields {
		switch key {
		case "attrs":
			if err := json.Unmarshal(val, &b.Attrs); err != nil {
				return err
			}
		case "partitiontable":
			if err := json.Unmarshal(val, &b.Partitiontable); err != nil {
				return err
			}
		default:
			var s string
			if err := json.Unmarshal(val, &s); err == nil {
				b.Props[key] = s
			}
		}
	}
	return nil
}

// MarshalJSON is the inverse of UnmarshalJSON.
func (b *Blockdev) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(b.Props)+2)
	for k, v := range b.Props {
		out[k] = v
	}
	if b.Attrs != nil {
		out["attrs"] = b.Attrs
	}
	if b.Partitiontable != nil {
		out["partitiontable"] = b.Partitiontable
	}
	return json.Marshal(out)
}

// Get returns a udev property, empty if absent.
func (b *Blockdev) Get(key string) string {
	return b.Props[key]
}

// DevName returns the kernel device path.
func (b *Blockdev) DevName() string {
	return b.Get("DEVNAME")
}

// DevType returns "disk" or "partition".
func (b *Blockdev) DevType() string {
	return b.Get("DEVTYPE")
}

// BcacheDev describes one bcache backing or caching device.
type BcacheDev struct {
	Blockdev   string            `json:"blockdev"`
	Superblock map[string]string `json:"superblock"`
}

// BcacheData is the probed bcache state.
type BcacheData struct {
	Backing map[string]*BcacheDev `json:"backing"`
	Caching map[string]*BcacheDev `json:"caching"`
}

// LVMVolGroup is one probed volume group.
type LVMVolGroup struct {
	Name    string   `json:"name"`
	Devices []string `json:"devices"`
	Size    string   `json:"size"`
}

// LVMLogicalVolume is one probed logical volume.
type LVMLogicalVolume struct {
	Name     string `json:"name"`
	Volgroup string `json:"volgroup"`
	Size     string `json:"size"`
}

// LVMData is the probed LVM state.
type LVMData struct {
	VolumeGroups   map[string]*LVMVolGroup      `json:"volume_groups"`
	LogicalVolumes map[string]*LVMLogicalVolume `json:"logical_volumes"`
}

// RaidEntry is one probed MD array.
type RaidEntry struct {
	DevName      string   `json:"DEVNAME"`
	Raidlevel    string   `json:"raidlevel"`
	Metadata     string   `json:"MD_METADATA"`
	Container    string   `json:"container"`
	Devices      []string `json:"devices"`
	SpareDevices []string `json:"spare_devices"`
}

// DmcryptEntry is one probed dm-crypt mapping.
type DmcryptEntry struct {
	Name        string `json:"name"`
	BlkdevsUsed string `json:"blkdevs_used"`
}

// FilesystemEntry is one probed filesystem superblock.
type FilesystemEntry struct {
	Usage string `json:"USAGE"`
	Type  string `json:"TYPE"`
	UUID  string `json:"UUID"`
	Label string `json:"LABEL"`
}

// MountEntry is one row of the probed mount tree.
type MountEntry struct {
	Source   string        `json:"source"`
	Target   string        `json:"target"`
	Fstype   string        `json:"fstype"`
	Options  string        `json:"options"`
	Children []*MountEntry `json:"children"`
}

// DasdEntry is one probed DASD device.
type DasdEntry struct {
	Name       string `json:"name"`
	DeviceID   string `json:"device_id"`
	Type       string `json:"type"`
	Blocksize  int    `json:"blocksize"`
	DiskLayout string `json:"disk_layout"`
}

// ZFSDataset holds per-dataset properties with their source.
type ZFSDataset struct {
	Properties map[string]struct {
		Source string `json:"source"`
		Value  string `json:"value"`
	} `json:"properties"`
}

// ZFSPool is one probed zpool with its vdev tree.
type ZFSPool struct {
	Datasets map[string]*ZFSDataset `json:"datasets"`
	Zdb      struct {
		VdevTree map[string]struct {
			Path string `json:"path"`
		} `json:"vdev_tree"`
	} `json:"zdb"`
}

// ZFSData is the probed ZFS state.
type ZFSData struct {
	Zpools map[string]*ZFSPool `json:"zpools"`
}

// Data is one probe snapshot of a running system's storage.
type Data struct {
	Blockdev   map[string]*Blockdev        `json:"blockdev"`
	Bcache     *BcacheData                 `json:"bcache,omitempty"`
	LVM        *LVMData                    `json:"lvm,omitempty"`
	Raid       map[string]*RaidEntry       `json:"raid,omitempty"`
	Dmcrypt    map[string]*DmcryptEntry    `json:"dmcrypt,omitempty"`
	Filesystem map[string]*FilesystemEntry `json:"filesystem,omitempty"`
	Mount      []*MountEntry               `json:"mount,omitempty"`
	Dasd       map[string]*DasdEntry       `json:"dasd,omitempty"`
	ZFS        *ZFSData                    `json:"zfs,omitempty"`
}

// Load decodes a probe snapshot from JSON.
func Load(raw []byte) (*Data, error) {
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
