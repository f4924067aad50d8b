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
	"path"
	"sort"

	"github.com/blockplan-io/blockplan/pkg/storageconfig"
)

// RaidParser normalizes probed MD arrays.
type RaidParser struct {
	parserBase
}

func NewRaidParser(data *Data) *RaidParser {
	return &RaidParser{parserBase: newParserBase(data)}
}

func (p *RaidParser) asItem(raid *RaidEntry) *storageconfig.Item {
	devname := raid.DevName
	entry := &storageconfig.Item{
		Type:      storageconfig.Raid,
		Name:      path.Base(devname),
		Raidlevel: raid.Raidlevel,
		Metadata:  raid.Metadata,
	}
	if bd, ok := p.blockdev[devname]; ok {
		if id, err := p.blockdevToID(bd); err == nil {
			entry.ID = id
		}
	}
	if entry.ID == "" {
		entry.ID = "raid-" + entry.Name
	}

	// a container member array references its container only; the
	// member devices belong to the container's entry
	if raid.Container != "" {
		entry.Container = p.devlinkToID(raid.Container)
		return entry
	}
	for _, dev := range raid.Devices {
		if id := p.devlinkToID(dev); id != "" {
			entry.Devices = append(entry.Devices, id)
		}
	}
	for _, dev := range raid.SpareDevices {
		if id := p.devlinkToID(dev); id != "" {
			entry.SpareDevices = append(entry.SpareDevices, id)
		}
	}
	sort.Strings(entry.Devices)
	sort.Strings(entry.SpareDevices)
	return entry
}

func (p *RaidParser) Parse() ([]*storageconfig.Item, []error) {
	var items []*storageconfig.Item

	devnames := make([]string, 0, len(p.data.Raid))
	for devname := range p.data.Raid {
		devnames = append(devnames, devname)
	}
	sort.Strings(devnames)

	for _, devname := range devnames {
		items = append(items, p.asItem(p.data.Raid[devname]))
	}
	return collectValid(items)
}
