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
)

// ZfsParser normalizes probed zpools and their datasets.
type ZfsParser struct {
	parserBase
	zfs *ZFSData
}

func NewZfsParser(data *Data) *ZfsParser {
	return &ZfsParser{parserBase: newParserBase(data), zfs: data.ZFS}
}

// localDatasetProperties filters dataset properties to those with a
// local source, meaning they were set by configuration.
func localDatasetProperties(ds *ZFSDataset) map[string]string {
	if ds == nil || ds.Properties == nil {
		return nil
	}
	props := make(map[string]string)
	for name, setting := range ds.Properties {
		if setting.Source == "local" {
			props[name] = setting.Value
		}
	}
	if len(props) == 0 {
		return nil
	}
	return props
}

func (p *ZfsParser) zpoolItem(name string, pool *ZFSPool) *storageconfig.Item {
	var devnames []string
	for childName, child := range pool.Zdb.VdevTree {
		if !strings.HasPrefix(childName, "children") {
			continue
		}
		if devname := p.lookupDevname(child.Path); devname != "" {
			devnames = append(devnames, devname)
		}
	}
	if len(devnames) == 0 {
		return nil
	}
	sort.Strings(devnames)

	// the pool id carries the first vdev's kernel name, the vdev list
	// references the member items
	var vdevs []string
	for _, devname := range devnames {
		if id, err := p.blockdevToID(p.blockdev[devname]); err == nil {
			vdevs = append(vdevs, id)
		}
	}
	if len(vdevs) == 0 {
		return nil
	}
	sort.Strings(vdevs)
	return &storageconfig.Item{
		ID:    "zpool-" + path.Base(devnames[0]) + "-" + name,
		Type:  storageconfig.Zpool,
		Pool:  name,
		Vdevs: vdevs,
	}
}

func (p *ZfsParser) zfsItem(dsName string, ds *ZFSDataset, zpool *storageconfig.Item) *storageconfig.Item {
	// the bare pool name is the zpool itself, not a dataset
	if !strings.Contains(dsName, "/") || zpool == nil {
		return nil
	}
	return &storageconfig.Item{
		ID:         "zfs-" + strings.ReplaceAll(dsName, "/", "-"),
		Type:       storageconfig.Zfs,
		Pool:       zpool.ID,
		Volume:     strings.TrimPrefix(dsName, zpool.Pool),
		Properties: localDatasetProperties(ds),
	}
}

func (p *ZfsParser) Parse() ([]*storageconfig.Item, []error) {
	if p.zfs == nil || p.zfs.Zpools == nil {
		return nil, nil
	}
	var zpoolItems, zfsItems []*storageconfig.Item
	var errors []error

	poolNames := make([]string, 0, len(p.zfs.Zpools))
	for name := range p.zfs.Zpools {
		poolNames = append(poolNames, name)
	}
	sort.Strings(poolNames)

	for _, poolName := range poolNames {
		pool := p.zfs.Zpools[poolName]
		zpoolEntry := p.zpoolItem(poolName, pool)
		if zpoolEntry != nil {
			if err := storageconfig.ValidateItem(zpoolEntry); err != nil {
				errors = append(errors, err)
				zpoolEntry = nil
			}
		}

		dsNames := make([]string, 0, len(pool.Datasets))
		for name := range pool.Datasets {
			dsNames = append(dsNames, name)
		}
		sort.Strings(dsNames)
		for _, dsName := range dsNames {
			entry := p.zfsItem(dsName, pool.Datasets[dsName], zpoolEntry)
			if entry == nil {
				continue
			}
			if err := storageconfig.ValidateItem(entry); err != nil {
				errors = append(errors, err)
				continue
			}
			zfsItems = append(zfsItems, entry)
		}

		if zpoolEntry != nil {
			zpoolItems = append(zpoolItems, zpoolEntry)
		}
	}

	return append(zpoolItems, zfsItems...), errors
}
