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
	"strings"

	"github.com/blockplan-io/blockplan/pkg/storageconfig"
	"github.com/blockplan-io/blockplan/utils/log"
)

// Parser turns one probe data source into normalized storage items.
// Validation errors are collected, not raised, so one malformed device
// does not block extraction of the rest.
type Parser interface {
	Parse() ([]*storageconfig.Item, []error)
}

// parserBase holds the helpers every source parser needs; all of them
// key off the blockdev space.
type parserBase struct {
	data     *Data
	blockdev map[string]*Blockdev
}

func newParserBase(data *Data) parserBase {
	if data.Blockdev == nil {
		log.Warn("probe data missing valid blockdev data")
	}
	return parserBase{data: data, blockdev: data.Blockdev}
}

// lookupDevname searches the blockdev space for devname. The name may be
// a devlink alias, in which case the owning kernel name is returned.
func (p *parserBase) lookupDevname(devname string) string {
	if _, ok := p.blockdev[devname]; ok {
		return devname
	}
	for key, bd := range p.blockdev {
		for _, link := range strings.Fields(bd.Get("DEVLINKS")) {
			if link == devname {
				return key
			}
		}
	}
	return ""
}

func isMultipathDevice(bd *Blockdev) bool {
	return strings.HasPrefix(bd.Get("DM_UUID"), "mpath-")
}

func isMultipathPartition(bd *Blockdev) bool {
	return strings.HasPrefix(bd.DevName(), "/dev/dm-") &&
		bd.Get("DM_PART") != "" && bd.Get("DM_MPATH") != ""
}

func isMultipathMember(bd *Blockdev) bool {
	return bd.Get("ID_FS_TYPE") == "mpath_member" ||
		bd.Get("DM_MULTIPATH_DEVICE_PATH") == "1"
}

func isDmcrypt(bd *Blockdev) bool {
	return strings.HasPrefix(bd.Get("DM_UUID"), "CRYPT-LUKS")
}

// blockdevToID derives the opaque storage item id for a probed device:
// its device type and name joined with a dash. Device mapper nodes are
// composed devices; their udev data decides what they really are.
func (p *parserBase) blockdevToID(bd *Blockdev) (string, error) {
	devtype := bd.DevType()
	devname := bd.DevName()
	name := path.Base(devname)

	switch {
	case strings.HasPrefix(devname, "/dev/dm-"):
		switch {
		case bd.Get("DM_LV_NAME") != "":
			devtype = "lvm-partition"
			name = bd.Get("DM_LV_NAME")
		case isMultipathDevice(bd):
			devtype = "mpath-disk"
			name = bd.Get("DM_NAME")
		case isMultipathPartition(bd):
			devtype = "mpath-partition"
			name = fmt.Sprintf("%s-part%s", bd.Get("DM_MPATH"), bd.Get("DM_PART"))
		case isDmcrypt(bd):
			devtype = "dmcrypt"
			name = bd.Get("DM_NAME")
		}
	case strings.HasPrefix(devname, "/dev/md"):
		devtype = "raid"
	}

	if name == "" || name == "." || devtype == "" {
		return "", fmt.Errorf("failed to extract devtype/name from blockdev %q", devname)
	}
	return fmt.Sprintf("%s-%s", devtype, name), nil
}

// devlinkToID resolves a devlink alias to the storage item id of the
// kernel device behind it.
func (p *parserBase) devlinkToID(link string) string {
	key := p.lookupDevname(link)
	if key == "" {
		return ""
	}
	id, err := p.blockdevToID(p.blockdev[key])
	if err != nil {
		return ""
	}
	return id
}

// collectValid runs structural validation and splits the good entries
// from the errors.
func collectValid(items []*storageconfig.Item) ([]*storageconfig.Item, []error) {
	var configs []*storageconfig.Item
	var errors []error
	for _, it := range items {
		if it == nil {
			continue
		}
		if err := storageconfig.ValidateItem(it); err != nil {
			errors = append(errors, err)
			continue
		}
		configs = append(configs, it)
	}
	return configs, errors
}

// skipMajor reports devices excluded from storage config: floppy (block
// major 2) and cdrom (major 11).
func skipMajor(bd *Blockdev) bool {
	major := bd.Get("MAJOR")
	return major == "2" || major == "11"
}
