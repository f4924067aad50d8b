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

package device

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/blockplan-io/blockplan/utils/log"
)

// SectorSize reports the logical sector size of the block device at
// devPath.
func SectorSize(devPath string) (uint64, error) {
	f, err := os.OpenFile(devPath, os.O_RDONLY, 0)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	size, err := unix.IoctlGetInt(int(f.Fd()), unix.BLKSSZGET)
	if err != nil {
		return 0, err
	}
	return uint64(size), nil
}

// SectorSizeOrDefault falls back to 512 byte sectors when the device
// cannot be queried, for planning against probe data alone.
func SectorSizeOrDefault(devPath string) uint64 {
	size, err := SectorSize(devPath)
	if err != nil {
		log.Warnf("cannot read sector size of %s, assuming 512: %v", devPath, err)
		return 512
	}
	return size
}
