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

// Type is the storage item type.
type Type string

const (
	Bcache       Type = "bcache"
	Dasd         Type = "dasd"
	Disk         Type = "disk"
	DmCrypt      Type = "dm_crypt"
	Format       Type = "format"
	LvmPartition Type = "lvm_partition"
	LvmVolgroup  Type = "lvm_volgroup"
	Mount        Type = "mount"
	Partition    Type = "partition"
	Raid         Type = "raid"
	Zfs          Type = "zfs"
	Zpool        Type = "zpool"
)

// Item is one declarative storage object. A single struct covers every
// storage type; which fields are meaningful, and which of them reference
// other items, is registry data keyed by Type.
type Item struct {
	ID   string `yaml:"id" json:"id"`
	Type Type   `yaml:"type" json:"type"`

	Name     string `yaml:"name,omitempty" json:"name,omitempty"`
	Path     string `yaml:"path,omitempty" json:"path,omitempty"`
	Preserve bool   `yaml:"preserve,omitempty" json:"preserve,omitempty"`
	Wipe     string `yaml:"wipe,omitempty" json:"wipe,omitempty"`

	// disk
	Ptable    string `yaml:"ptable,omitempty" json:"ptable,omitempty"`
	Serial    string `yaml:"serial,omitempty" json:"serial,omitempty"`
	WWN       string `yaml:"wwn,omitempty" json:"wwn,omitempty"`
	Multipath string `yaml:"multipath,omitempty" json:"multipath,omitempty"`
	GrubDev   bool   `yaml:"grub_device,omitempty" json:"grub_device,omitempty"`

	// partition
	Device string `yaml:"device,omitempty" json:"device,omitempty"`
	Number int    `yaml:"number,omitempty" json:"number,omitempty"`
	Size   string `yaml:"size,omitempty" json:"size,omitempty"`
	Offset string `yaml:"offset,omitempty" json:"offset,omitempty"`
	Flag   string `yaml:"flag,omitempty" json:"flag,omitempty"`
	UUID   string `yaml:"uuid,omitempty" json:"uuid,omitempty"`

	// raid
	Raidlevel    string   `yaml:"raidlevel,omitempty" json:"raidlevel,omitempty"`
	Devices      []string `yaml:"devices,omitempty" json:"devices,omitempty"`
	SpareDevices []string `yaml:"spare_devices,omitempty" json:"spare_devices,omitempty"`
	Container    string   `yaml:"container,omitempty" json:"container,omitempty"`
	Metadata     string   `yaml:"metadata,omitempty" json:"metadata,omitempty"`

	// lvm_partition
	Volgroup string `yaml:"volgroup,omitempty" json:"volgroup,omitempty"`

	// format and dm_crypt reference their backing item; zfs reuses the
	// field as the dataset path relative to its pool.
	Volume string `yaml:"volume,omitempty" json:"volume,omitempty"`
	Fstype string `yaml:"fstype,omitempty" json:"fstype,omitempty"`
	Key    string `yaml:"key,omitempty" json:"key,omitempty"`
	DmName string `yaml:"dm_name,omitempty" json:"dm_name,omitempty"`

	// bcache
	BackingDevice string `yaml:"backing_device,omitempty" json:"backing_device,omitempty"`
	CacheDevice   string `yaml:"cache_device,omitempty" json:"cache_device,omitempty"`
	CacheMode     string `yaml:"cache_mode,omitempty" json:"cache_mode,omitempty"`

	// zpool / zfs
	Pool       string            `yaml:"pool,omitempty" json:"pool,omitempty"`
	Vdevs      []string          `yaml:"vdevs,omitempty" json:"vdevs,omitempty"`
	Properties map[string]string `yaml:"properties,omitempty" json:"properties,omitempty"`

	// dasd
	DeviceID   string `yaml:"device_id,omitempty" json:"device_id,omitempty"`
	Blocksize  int    `yaml:"blocksize,omitempty" json:"blocksize,omitempty"`
	Mode       string `yaml:"mode,omitempty" json:"mode,omitempty"`
	DiskLayout string `yaml:"disk_layout,omitempty" json:"disk_layout,omitempty"`
}

// Config is an ordered collection of storage items indexed by id.
// Insertion order is preserved for stable tie-breaking; the resolver only
// ever reads it.
type Config struct {
	items []*Item
	index map[string]*Item
}

// NewConfig builds a Config from a flat item list. A repeated id replaces
// the earlier payload but keeps its original position.
func NewConfig(items []*Item) *Config {
	c := &Config{index: make(map[string]*Item, len(items))}
	for _, it := range items {
		if _, ok := c.index[it.ID]; !ok {
			c.items = append(c.items, it)
		} else {
			for i, existing := range c.items {
				if existing.ID == it.ID {
					c.items[i] = it
					break
				}
			}
		}
		c.index[it.ID] = it
	}
	return c
}

// Get returns the item with the given id.
func (c *Config) Get(id string) (*Item, bool) {
	it, ok := c.index[id]
	return it, ok
}

// Items returns the items in insertion order.
func (c *Config) Items() []*Item {
	return c.items
}

// Len returns the number of items.
func (c *Config) Len() int {
	return len(c.items)
}

// ItemsWithDep returns every item whose dependency field equals value, in
// insertion order. This is the sibling query: all partitions on one disk,
// all logical volumes in one group. Only scalar fields can equal a single
// id, so list-valued fields never produce siblings.
func (c *Config) ItemsWithDep(field, value string) []*Item {
	var out []*Item
	for _, it := range c.items {
		if v, scalar := scalarDepValue(it, field); scalar && v == value {
			out = append(out, it)
		}
	}
	return out
}
