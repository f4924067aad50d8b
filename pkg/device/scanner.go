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
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/anuvu/disko"
	"github.com/anuvu/disko/linux"

	"github.com/blockplan-io/blockplan/pkg/ptable"
	"github.com/blockplan-io/blockplan/utils/exec"
	"github.com/blockplan-io/blockplan/utils/log"
)

var mysys = linux.System()

// LocalDisk is one row of lsblk output.
type LocalDisk struct {
	Name       string `json:"name"`
	MountPoint string `json:"mountPoint"`
	Size       uint64 `json:"size"`
	State      string `json:"state"`
	Type       string `json:"type"`
	Rotational string `json:"rotational"`
	Readonly   bool   `json:"readonly"`
	Filesystem string `json:"filesystem"`
	ParentName string `json:"parentName"`
}

// Scanner inspects the block devices of the local node.
type Scanner interface {
	ScanAllDisks(filter disko.DiskFilter) (disko.DiskSet, error)
	ScanDisk(devPath string) (disko.Disk, error)
	ObservedTable(devPath, label string, sectorBytes uint64) (*ptable.ObservedTable, error)
	TableLabel(devPath string) (string, error)
	ListDevices(device string) ([]*LocalDisk, error)
}

type DiskScanner struct {
	Executor exec.Executor
}

func NewDiskScanner() *DiskScanner {
	return &DiskScanner{Executor: &exec.CommandExecutor{}}
}

func (ds *DiskScanner) ScanAllDisks(filter disko.DiskFilter) (disko.DiskSet, error) {
	diskSet, err := mysys.ScanAllDisks(filter)
	if err != nil {
		log.Errorf("scan node disk resource error %s", err.Error())
		return disko.DiskSet{}, err
	}
	return diskSet, nil
}

func (ds *DiskScanner) ScanDisk(devPath string) (disko.Disk, error) {
	return mysys.ScanDisk(devPath)
}

// ObservedTable converts a scanned disk into the observed partition
// table the layout engine reconciles preserved entries against. Starts
// and sizes come back in sectors, matching what table probing reports.
func (ds *DiskScanner) ObservedTable(devPath, label string, sectorBytes uint64) (*ptable.ObservedTable, error) {
	if sectorBytes == 0 {
		return nil, ptable.ErrBadSectorSize
	}
	disk, err := ds.ScanDisk(devPath)
	if err != nil {
		return nil, err
	}

	numbers := make([]int, 0, len(disk.Partitions))
	for num := range disk.Partitions {
		numbers = append(numbers, int(num))
	}
	sort.Ints(numbers)

	observed := &ptable.ObservedTable{Label: label}
	for _, num := range numbers {
		part := disk.Partitions[uint(num)]
		observed.Partitions = append(observed.Partitions, ptable.ObservedPartition{
			Node:   PartitionNode(devPath, num),
			Number: num,
			Start:  part.Start / sectorBytes,
			Size:   part.Size() / sectorBytes,
		})
	}
	return observed, nil
}

// PartitionNode composes the device node of partition number on devPath:
// /dev/sda 1 -> /dev/sda1, /dev/nvme0n1 2 -> /dev/nvme0n1p2.
func PartitionNode(devPath string, number int) string {
	if len(devPath) > 0 && unicode.IsDigit(rune(devPath[len(devPath)-1])) {
		return fmt.Sprintf("%sp%d", devPath, number)
	}
	return fmt.Sprintf("%s%d", devPath, number)
}

func (ds *DiskScanner) ListDevices(device string) ([]*LocalDisk, error) {
	args := []string{"--pairs", "--paths", "--bytes", "--output", "NAME,FSTYPE,MOUNTPOINT,SIZE,STATE,TYPE,ROTA,RO,PKNAME"}
	if device != "" {
		args = append(args, device)
	}
	devices, err := ds.Executor.ExecuteCommandWithOutput("lsblk", args...)
	if err != nil {
		log.Error("exec lsblk failed " + err.Error())
		return nil, err
	}
	return parseDiskString(devices), nil
}

func parseDiskString(diskString string) []*LocalDisk {
	resp := []*LocalDisk{}
	if strings.TrimSpace(diskString) == "" {
		return resp
	}

	diskString = strings.ReplaceAll(diskString, "\"", "")
	for _, line := range strings.Split(diskString, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		tmp := LocalDisk{}
		for _, field := range strings.Split(line, " ") {
			k := strings.SplitN(field, "=", 2)
			if len(k) != 2 {
				continue
			}
			switch k[0] {
			case "NAME":
				tmp.Name = k[1]
			case "MOUNTPOINT":
				tmp.MountPoint = k[1]
			case "SIZE":
				tmp.Size, _ = strconv.ParseUint(k[1], 10, 64)
			case "STATE":
				tmp.State = k[1]
			case "TYPE":
				tmp.Type = k[1]
			case "ROTA":
				tmp.Rotational = k[1]
			case "RO":
				tmp.Readonly = k[1] == "1"
			case "FSTYPE":
				tmp.Filesystem = k[1]
			case "PKNAME":
				tmp.ParentName = k[1]
			default:
				log.Warnf("undefined field %s-%s", k[0], k[1])
			}
		}
		resp = append(resp, &tmp)
	}
	return resp
}

// parseUdevProperties splits `udevadm info --query=property` output
// into a key/value map.
func parseUdevProperties(output string) map[string]string {
	lines := strings.Split(output, "\n")
	result := make(map[string]string, len(lines))
	for _, v := range lines {
		pairs := strings.SplitN(v, "=", 2)
		if len(pairs) == 2 {
			result[pairs[0]] = pairs[1]
		}
	}
	return result
}

// TableLabel reports the partition table label udev probed on devPath,
// empty for an unpartitioned disk.
func (ds *DiskScanner) TableLabel(devPath string) (string, error) {
	output, err := ds.Executor.ExecuteCommandWithOutput("udevadm", "info", "--query=property", devPath)
	if err != nil {
		return "", err
	}
	return parseUdevProperties(output)["ID_PART_TABLE_TYPE"], nil
}

// MatchDisks filters whole disks whose name matches any of the given
// expressions. Partitions and held devices never match; planning starts
// from bare disks.
func MatchDisks(disks []*LocalDisk, patterns []string) []*LocalDisk {
	var matched []*LocalDisk
	for _, d := range disks {
		if d.Type == "part" || d.ParentName != "" {
			continue
		}
		for _, pattern := range patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				log.Warnf("invalid disk selector %q: %v", pattern, err)
				continue
			}
			if re.MatchString(d.Name) {
				matched = append(matched, d)
				break
			}
		}
	}
	return matched
}
