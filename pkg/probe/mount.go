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
	"github.com/blockplan-io/blockplan/pkg/storageconfig"
)

// MountParser normalizes the probed mount tree. Filtering for sources
// in the blockdev space drops the sys, proc, dev and cgroup mounts that
// probing also reports.
type MountParser struct {
	parserBase
}

func NewMountParser(data *Data) *MountParser {
	return &MountParser{parserBase: newParserBase(data)}
}

func (p *MountParser) asItem(mnt *MountEntry) *storageconfig.Item {
	// the source value may be a devlink alias
	source := p.lookupDevname(mnt.Source)
	if source == "" {
		return nil
	}
	bd := p.blockdev[source]
	if skipMajor(bd) {
		return nil
	}
	sourceID, err := p.blockdevToID(bd)
	if err != nil {
		return nil
	}
	return &storageconfig.Item{
		ID:     "mount-" + sourceID,
		Type:   storageconfig.Mount,
		Path:   mnt.Target,
		Device: "format-" + sourceID,
	}
}

func (p *MountParser) collect(mnt *MountEntry) []*storageconfig.Item {
	var items []*storageconfig.Item
	if entry := p.asItem(mnt); entry != nil {
		items = append(items, entry)
	}
	for _, child := range mnt.Children {
		items = append(items, p.collect(child)...)
	}
	return items
}

func (p *MountParser) Parse() ([]*storageconfig.Item, []error) {
	var items []*storageconfig.Item
	for _, mnt := range p.data.Mount {
		items = append(items, p.collect(mnt)...)
	}
	return collectValid(items)
}
