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
	"sort"

	"github.com/blockplan-io/blockplan/pkg/storageconfig"
)

// LvmParser normalizes probed volume groups and logical volumes.
type LvmParser struct {
	parserBase
	lvm *LVMData
}

func NewLvmParser(data *Data) *LvmParser {
	return &LvmParser{parserBase: newParserBase(data), lvm: data.LVM}
}

func (p *LvmParser) volgroupItem(name string, vg *LVMVolGroup) *storageconfig.Item {
	var devices []string
	for _, pvol := range vg.Devices {
		pvolKey := p.lookupDevname(pvol)
		if pvolKey == "" {
			continue
		}
		if id, err := p.blockdevToID(p.blockdev[pvolKey]); err == nil {
			devices = append(devices, id)
		}
	}
	sort.Strings(devices)
	return &storageconfig.Item{
		ID:      "lvm-volgroup-" + name,
		Type:    storageconfig.LvmVolgroup,
		Name:    name,
		Devices: devices,
	}
}

func (p *LvmParser) partitionItem(lv *LVMLogicalVolume) *storageconfig.Item {
	return &storageconfig.Item{
		ID:       "lvm-partition-" + lv.Name,
		Type:     storageconfig.LvmPartition,
		Name:     lv.Name,
		Size:     lv.Size,
		Volgroup: "lvm-volgroup-" + lv.Volgroup,
	}
}

func (p *LvmParser) Parse() ([]*storageconfig.Item, []error) {
	if p.lvm == nil || p.lvm.VolumeGroups == nil {
		return nil, nil
	}
	var items []*storageconfig.Item

	vgNames := make([]string, 0, len(p.lvm.VolumeGroups))
	for name := range p.lvm.VolumeGroups {
		vgNames = append(vgNames, name)
	}
	sort.Strings(vgNames)
	for _, name := range vgNames {
		items = append(items, p.volgroupItem(name, p.lvm.VolumeGroups[name]))
	}

	lvNames := make([]string, 0, len(p.lvm.LogicalVolumes))
	for name := range p.lvm.LogicalVolumes {
		lvNames = append(lvNames, name)
	}
	sort.Strings(lvNames)
	for _, name := range lvNames {
		items = append(items, p.partitionItem(p.lvm.LogicalVolumes[name]))
	}

	return collectValid(items)
}
