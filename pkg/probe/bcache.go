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
	"strings"

	"github.com/blockplan-io/blockplan/pkg/storageconfig"
	"github.com/blockplan-io/blockplan/utils/log"
)

// BcacheParser normalizes probed bcache devices. Backing and caching
// superblocks pair up through their cset uuid.
type BcacheParser struct {
	parserBase
	backing map[string]*BcacheDev
	caching map[string]*BcacheDev
}

func NewBcacheParser(data *Data) *BcacheParser {
	p := &BcacheParser{parserBase: newParserBase(data)}
	if data.Bcache != nil {
		p.backing = data.Bcache.Backing
		p.caching = data.Bcache.Caching
	}
	return p
}

func (p *BcacheParser) Parse() ([]*storageconfig.Item, []error) {
	var items []*storageconfig.Item

	uuids := make([]string, 0, len(p.backing))
	for devUUID := range p.backing {
		uuids = append(uuids, devUUID)
	}
	sort.Strings(uuids)

	for _, devUUID := range uuids {
		if entry := p.asItem(devUUID, p.backing[devUUID]); entry != nil {
			items = append(items, entry)
		}
	}
	return collectValid(items)
}

func sbGet(dev *BcacheDev, attr string) string {
	if dev == nil || dev.Superblock == nil {
		return ""
	}
	return dev.Superblock[attr]
}

// findCacheDevice locates the caching blockdev that shares the backing
// device's cset uuid.
func (p *BcacheParser) findCacheDevice(backing *BcacheDev) string {
	csetUUID := sbGet(backing, "cset.uuid")
	if csetUUID == "" {
		log.Warnf("invalid blockdev value for cache device uuid=%s", csetUUID)
		return ""
	}
	for _, dev := range p.caching {
		if sbGet(dev, "cset.uuid") == csetUUID {
			return dev.Blockdev
		}
	}
	return ""
}

// findBcacheDevname resolves the /dev/bcacheN node exposing this
// backing device, falling back to the superblock label.
func (p *BcacheParser) findBcacheDevname(devUUID string, backing *BcacheDev) string {
	byUUID := "/dev/bcache/by-uuid/" + devUUID
	for devname, bd := range p.blockdev {
		if !strings.HasPrefix(devname, "/dev/bcache") {
			continue
		}
		for _, link := range strings.Fields(bd.Get("DEVLINKS")) {
			if link == byUUID {
				return devname
			}
		}
	}
	if label := sbGet(backing, "dev.label"); label != "" {
		return label
	}
	log.Warnf("failed to find bcache %s", byUUID)
	return ""
}

// cacheMode strips the sysfs cache_mode markup: "1 [writeback]" is
// reported as "writeback".
func cacheMode(backing *BcacheDev) string {
	attr := sbGet(backing, "dev.data.cache_mode")
	fields := strings.Fields(attr)
	if len(fields) < 2 {
		return ""
	}
	return strings.Trim(fields[1], "[]")
}

func (p *BcacheParser) asItem(devUUID string, backing *BcacheDev) *storageconfig.Item {
	if len(p.blockdev) == 0 {
		return nil
	}
	name := path.Base(p.findBcacheDevname(devUUID, backing))
	if name == "" || name == "." {
		return nil
	}
	entry := &storageconfig.Item{
		ID:        "disk-" + name,
		Type:      storageconfig.Bcache,
		Name:      name,
		CacheMode: cacheMode(backing),
	}
	if backing.Blockdev != "" {
		if bd, ok := p.blockdev[backing.Blockdev]; ok {
			if id, err := p.blockdevToID(bd); err == nil {
				entry.BackingDevice = id
			}
		}
	}
	if cacheDev := p.findCacheDevice(backing); cacheDev != "" {
		if bd, ok := p.blockdev[cacheDev]; ok {
			if id, err := p.blockdevToID(bd); err == nil {
				entry.CacheDevice = id
			}
		}
	}
	return entry
}
