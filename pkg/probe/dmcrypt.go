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
	"sort"
	"strings"

	"github.com/blockplan-io/blockplan/pkg/storageconfig"
)

// DmcryptParser normalizes probed dm-crypt mappings. The passphrase is
// never probed, so the key field comes back empty.
type DmcryptParser struct {
	parserBase
}

func NewDmcryptParser(data *Data) *DmcryptParser {
	return &DmcryptParser{parserBase: newParserBase(data)}
}

func (p *DmcryptParser) asItem(crypt *DmcryptEntry) (*storageconfig.Item, error) {
	backingDev := crypt.BlkdevsUsed
	if !strings.HasPrefix(backingDev, "/dev/") {
		backingDev = "/dev/" + backingDev
	}
	bdevID := p.devlinkToID(backingDev)
	if bdevID == "" {
		return nil, fmt.Errorf("cannot find blockdev id for %s", backingDev)
	}
	return &storageconfig.Item{
		ID:     "dmcrypt-" + crypt.Name,
		Type:   storageconfig.DmCrypt,
		Volume: bdevID,
		Key:    "",
		DmName: crypt.Name,
	}, nil
}

func (p *DmcryptParser) Parse() ([]*storageconfig.Item, []error) {
	var items []*storageconfig.Item
	var errors []error

	names := make([]string, 0, len(p.data.Dmcrypt))
	for name := range p.data.Dmcrypt {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry, err := p.asItem(p.data.Dmcrypt[name])
		if err != nil {
			errors = append(errors, err)
			continue
		}
		items = append(items, entry)
	}
	valid, verrs := collectValid(items)
	return valid, append(errors, verrs...)
}
