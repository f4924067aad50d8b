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
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/blockplan-io/blockplan/pkg/storageconfig"
)

// BlockdevParser normalizes probed disks and partitions.
type BlockdevParser struct {
	parserBase
}

func NewBlockdevParser(data *Data) *BlockdevParser {
	return &BlockdevParser{parserBase: newParserBase(data)}
}

func (p *BlockdevParser) Parse() ([]*storageconfig.Item, []error) {
	var items []*storageconfig.Item
	var errors []error

	devnames := make([]string, 0, len(p.blockdev))
	for devname := range p.blockdev {
		devnames = append(devnames, devname)
	}
	sort.Strings(devnames)

	for _, devname := range devnames {
		bd := p.blockdev[devname]
		// skip composed devices here, except partitions and multipath
		if strings.HasPrefix(bd.Get("DEVPATH"), "/devices/virtual/block") &&
			!isMultipathDevice(bd) && !isMultipathPartition(bd) &&
			bd.DevType() != "partition" {
			continue
		}
		// skip disks that are members of multipath devices
		if isMultipathMember(bd) {
			continue
		}
		entry, err := p.asItem(bd)
		if err != nil {
			errors = append(errors, err)
			continue
		}
		if entry != nil {
			items = append(items, entry)
		}
	}

	valid, verrs := collectValid(items)
	return valid, append(errors, verrs...)
}

// validID rejects all-zero hex ids (wwn=0x0...) and blank strings.
func validID(value string) bool {
	if strings.HasPrefix(strings.ToLower(value), "0x") {
		if n, err := strconv.ParseUint(value[2:], 16, 64); err == nil {
			return n > 0
		}
		return true
	}
	return strings.Join(strings.Fields(value), "") != ""
}

// uniqueIDs extracts the preferred wwn and serial values for a blockdev;
// some devices carry duplicates under several ID_ keys.
func uniqueIDs(bd *Blockdev) (wwn, serial string) {
	var wwnKeys, serialKeys []string
	if isMultipathDevice(bd) {
		wwnKeys = []string{"DM_WWN"}
		serialKeys = []string{"DM_SERIAL"} // only present with focal+
	} else {
		wwnKeys = []string{"ID_WWN_WITH_EXTENSION", "ID_WWN"}
		serialKeys = []string{"ID_SERIAL", "ID_SERIAL_SHORT"}
	}
	for _, key := range wwnKeys {
		if v := bd.Get(key); wwn == "" && v != "" && validID(v) {
			wwn = v
		}
	}
	for _, key := range serialKeys {
		if v := bd.Get(key); serial == "" && v != "" && validID(v) {
			serial = v
		}
	}
	return wwn, serial
}

// partitionParentDevname returns the devname of a partition's parent:
// md0p1 -> /dev/md0, nvme0n1p3 -> /dev/nvme0n1.
func partitionParentDevname(bd *Blockdev) (string, error) {
	if bd.DevType() != "partition" {
		return "", fmt.Errorf("invalid blockdev %q, DEVTYPE is not partition", bd.DevName())
	}
	devpath := bd.Get("DEVPATH")
	if devpath == "" {
		return "", fmt.Errorf("blockdev %q missing DEVPATH", bd.DevName())
	}
	return "/dev/" + path.Base(path.Dir(devpath)), nil
}

func (p *BlockdevParser) asItem(bd *Blockdev) (*storageconfig.Item, error) {
	devType := bd.DevType()
	if isMultipathPartition(bd) {
		devType = "partition"
	}
	if bd.DevType() != "disk" && bd.DevType() != "partition" {
		return nil, nil
	}
	if skipMajor(bd) {
		return nil, nil
	}

	id, err := p.blockdevToID(bd)
	if err != nil {
		return nil, err
	}
	entry := &storageconfig.Item{ID: id, Type: storageconfig.Type(devType)}
	if isMultipathDevice(bd) {
		entry.Multipath = bd.Get("DM_NAME")
	} else if isMultipathPartition(bd) {
		entry.Multipath = bd.Get("DM_MPATH")
	}

	if devType == "disk" {
		return p.diskItem(bd, entry)
	}
	return p.partitionItem(bd, entry)
}

func (p *BlockdevParser) diskItem(bd *Blockdev, entry *storageconfig.Item) (*storageconfig.Item, error) {
	// block_meta prefers wwn/serial over path, but path is always set
	entry.WWN, entry.Serial = uniqueIDs(bd)
	entry.Path = bd.DevName()

	// ECKD dasds carry a device_id and, once formatted, a vtoc table
	if dasd, ok := p.data.Dasd[bd.DevName()]; ok && dasd != nil {
		dasdType := dasd.Type
		if dasdType == "" {
			dasdType = "ECKD"
		}
		if dasdType == "ECKD" {
			entry.DeviceID = strings.Replace(bd.Get("ID_PATH"), "ccw-", "", 1)
		}
		if dasdType == "ECKD" || dasdType == "virt" {
			if size := bd.Attrs["size"]; size != "" && size != "0" {
				entry.Ptable = "vtoc"
			}
		}
	}

	if ptype := bd.Get("ID_PART_TABLE_TYPE"); ptype != "" {
		if storageconfig.KnownPtable(ptype) {
			entry.Ptable = ptype
		} else {
			entry.Ptable = "unsupported"
		}
	}
	return entry, nil
}

func (p *BlockdevParser) partitionItem(bd *Blockdev, entry *storageconfig.Item) (*storageconfig.Item, error) {
	devname := bd.DevName()
	if devname != "" {
		entry.Path = devname
	}

	var parentDevname string
	if isMultipathPartition(bd) {
		number, err := strconv.Atoi(bd.Get("DM_PART"))
		if err != nil {
			return nil, fmt.Errorf("partition %q has invalid DM_PART %q", devname, bd.Get("DM_PART"))
		}
		entry.Number = number
		parentDevname = p.lookupDevname("/dev/mapper/" + bd.Get("DM_MPATH"))
		if parentDevname == "" {
			return nil, fmt.Errorf("cannot find parent mpath device %s for %s", bd.Get("DM_MPATH"), devname)
		}
	} else {
		number, err := strconv.Atoi(bd.Attrs["partition"])
		if err != nil {
			return nil, fmt.Errorf("partition %q has invalid partition attr", devname)
		}
		entry.Number = number
		parentDevname, err = partitionParentDevname(bd)
		if err != nil {
			return nil, err
		}
	}

	parent, ok := p.blockdev[parentDevname]
	if !ok {
		return nil, fmt.Errorf("no probe data for parent %q of %q", parentDevname, devname)
	}
	if parent.Get("ID_PART_TABLE_TYPE") == "" {
		// exclude the fake partition the kernel creates for an
		// otherwise unformatted FBA dasd
		if dasd, ok := p.data.Dasd[parentDevname]; ok && dasd != nil {
			dasdType := dasd.Type
			if dasdType == "" {
				dasdType = "ECKD"
			}
			if dasdType == "FBA" {
				return nil, nil
			}
		}
	}

	// prefer the parent's probed table over sysfs attrs; both count in
	// 512 byte sectors
	var start, size uint64
	fromTable := false
	if pt := parent.Partitiontable; pt != nil {
		found := false
		for i := range pt.Partitions {
			if p.lookupDevname(pt.Partitions[i].Node) == devname {
				start = pt.Partitions[i].Start
				size = pt.Partitions[i].Size
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("no partition table entry for %q on %q", devname, parentDevname)
		}
		fromTable = true
	} else {
		var err error
		start, err = strconv.ParseUint(bd.Attrs["start"], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("partition %q has invalid start attr", devname)
		}
		size, err = strconv.ParseUint(bd.Attrs["size"], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("partition %q has invalid size attr", devname)
		}
	}

	if offset := start * 512; offset > 0 {
		entry.Offset = strconv.FormatUint(offset, 10)
	}
	if fromTable {
		size *= 512
	}
	entry.Size = strconv.FormatUint(size, 10)

	flag, _ := storageconfig.PtableUUIDToFlagEntry(bd.Get("ID_PART_ENTRY_TYPE"))
	if pt := parent.Partitiontable; pt != nil && pt.Label == "dos" {
		// the boot attribute wins; logical needs no flag of its own
		// since the number says it all
		if bd.Get("ID_PART_ENTRY_FLAGS") == storageconfig.MBRBootFlag {
			flag = "boot"
		} else if entry.Number > 4 {
			flag = "logical"
		}
	}
	entry.Flag = flag

	if parentID, err := p.blockdevToID(parent); err == nil {
		entry.Device = parentID
	}
	return entry, nil
}
