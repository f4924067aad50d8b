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
	"errors"

	"github.com/blockplan-io/blockplan/pkg/storageconfig"
	"github.com/blockplan-io/blockplan/utils/log"
)

// ErrExtract reports that probe data produced entries that do not
// validate. In non-strict mode the bad entries are dropped instead.
var ErrExtract = errors.New("extracted storage config does not validate")

// typeOrder fixes the pre-merge ordering of extracted entries so disks
// come before their partitions, formats before their mounts and so on.
// The merge resolves real dependencies; this only makes the raw
// extraction deterministic.
var typeOrder = []storageconfig.Type{
	storageconfig.Dasd,
	storageconfig.Disk,
	storageconfig.Partition,
	storageconfig.Format,
	storageconfig.LvmVolgroup,
	storageconfig.LvmPartition,
	storageconfig.Raid,
	storageconfig.DmCrypt,
	storageconfig.Mount,
	storageconfig.Bcache,
	storageconfig.Zpool,
	storageconfig.Zfs,
}

func parsers(data *Data) []Parser {
	return []Parser{
		NewBcacheParser(data),
		NewBlockdevParser(data),
		NewDasdParser(data),
		NewDmcryptParser(data),
		NewFilesystemParser(data),
		NewLvmParser(data),
		NewRaidParser(data),
		NewMountParser(data),
		NewZfsParser(data),
	}
}

// Extract examines one probe snapshot and derives the storage
// configuration that would recreate every device present in it. The
// result is dependency ordered. With strict set, any entry that fails
// validation aborts the extraction instead of being dropped.
func Extract(data *Data, strict bool) (*storageconfig.Config, error) {
	var items []*storageconfig.Item
	var errs []error

	log.Debug("extracting storage config from probe data")
	for _, parser := range parsers(data) {
		found, ferrs := parser.Parse()
		items = append(items, found...)
		errs = append(errs, ferrs...)
	}

	ordered := make([]*storageconfig.Item, 0, len(items))
	for _, t := range typeOrder {
		for _, it := range items {
			if it.Type == t {
				ordered = append(ordered, it)
			}
		}
	}

	for _, err := range errs {
		log.Errorf("validation error: %v", err)
	}
	if len(errs) > 0 {
		log.Warn("extracted storage config does not validate")
		if strict {
			return nil, ErrExtract
		}
	}

	// merging per-item dependency trees resolves ordering between the
	// extracted entries
	cfg := storageconfig.NewConfig(ordered)
	log.Debug("generating storage config dependencies")
	var trees []*storageconfig.Tree
	for _, it := range ordered {
		tree, err := storageconfig.BuildConfigTree(it.ID, cfg)
		if err != nil {
			if strict {
				return nil, err
			}
			log.Errorf("dependency error for %s: %v", it.ID, err)
			continue
		}
		trees = append(trees, tree)
	}

	log.Debug("merging storage config dependencies")
	return storageconfig.NewConfig(storageconfig.MergeConfigTrees(trees)), nil
}
