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

	"github.com/google/uuid"

	"github.com/blockplan-io/blockplan/pkg/storageconfig"
)

// FilesystemParser normalizes probed filesystem superblocks into format
// entries.
type FilesystemParser struct {
	parserBase
}

func NewFilesystemParser(data *Data) *FilesystemParser {
	return &FilesystemParser{parserBase: newParserBase(data)}
}

func (p *FilesystemParser) asItem(volumeID string, fs *FilesystemEntry) *storageconfig.Item {
	entry := &storageconfig.Item{
		ID:     "format-" + volumeID,
		Type:   storageconfig.Format,
		Volume: volumeID,
		Fstype: fs.Type,
	}
	if fs.UUID != "" {
		if _, err := uuid.Parse(fs.UUID); err == nil {
			entry.UUID = fs.UUID
		}
	}
	return entry
}

func (p *FilesystemParser) Parse() ([]*storageconfig.Item, []error) {
	var items []*storageconfig.Item
	var errors []error

	devnames := make([]string, 0, len(p.data.Filesystem))
	for devname := range p.data.Filesystem {
		devnames = append(devnames, devname)
	}
	sort.Strings(devnames)

	for _, devname := range devnames {
		fs := p.data.Filesystem[devname]
		bd, ok := p.blockdev[devname]
		if !ok {
			errors = append(errors, fmt.Errorf(
				"no probe data found for blockdev %s for fs type %s", devname, fs.Type))
			continue
		}
		if isMultipathMember(bd) || skipMajor(bd) {
			continue
		}
		// crypto is just a disguised filesystem
		if fs.Usage != "filesystem" && fs.Usage != "crypto" {
			continue
		}
		volumeID, err := p.blockdevToID(bd)
		if err != nil {
			errors = append(errors, err)
			continue
		}
		entry := p.asItem(volumeID, fs)
		// keep types we cannot create, but only preserved
		if !storageconfig.KnownFilesystem(fs.Type) {
			entry.Preserve = true
		}
		items = append(items, entry)
	}
	valid, verrs := collectValid(items)
	return valid, append(errors, verrs...)
}
