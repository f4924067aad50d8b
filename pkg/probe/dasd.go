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

// DasdParser normalizes probed s390x DASD devices. Only ECKD dasds need
// their own entry; FBA and virt dasds behave like plain disks.
type DasdParser struct {
	parserBase
}

func NewDasdParser(data *Data) *DasdParser {
	return &DasdParser{parserBase: newParserBase(data)}
}

func (p *DasdParser) asItem(dasd *DasdEntry) *storageconfig.Item {
	dasdType := dasd.Type
	if dasdType == "" {
		dasdType = "ECKD"
	}
	if dasdType != "ECKD" {
		return nil
	}
	mode := "quick"
	if dasd.DiskLayout == "not-formatted" {
		mode = "full"
	}
	return &storageconfig.Item{
		ID:         "dasd-" + path.Base(dasd.Name),
		Type:       storageconfig.Dasd,
		DeviceID:   dasd.DeviceID,
		Blocksize:  dasd.Blocksize,
		Mode:       mode,
		DiskLayout: dasd.DiskLayout,
	}
}

func (p *DasdParser) Parse() ([]*storageconfig.Item, []error) {
	var items []*storageconfig.Item

	names := make([]string, 0, len(p.data.Dasd))
	for name := range p.data.Dasd {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if entry := p.asItem(p.data.Dasd[name]); entry != nil {
			items = append(items, entry)
		}
	}
	return collectValid(items)
}
