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

package ptable

import (
	"fmt"

	"github.com/blockplan-io/blockplan/pkg/storageconfig"
)

// Wipe modes for the wipe plan.
const (
	WipeNone       = "none"
	WipeSuperblock = "superblock"
)

// WipeForAction chooses the wipe mode for one computed entry. An explicit
// wipe wins; preserved partitions are never wiped; a new extended
// partition is never wiped because that would destroy the EBR covering
// every logical partition; any other new partition gets a superblock
// wipe.
func WipeForAction(action *storageconfig.Item) string {
	if action.Wipe != "" {
		return action.Wipe
	}
	if action.Preserve {
		return WipeNone
	}
	if action.Flag == "extended" {
		return WipeNone
	}
	return WipeSuperblock
}

// Layout is the computed partition table for one disk plus its wipe plan.
type Layout struct {
	Table Table
	// Wipes maps each computed entry's start sector to its wipe mode.
	Wipes map[uint64]string
	// Deleted holds the on-disk partitions whose start offset is not
	// among the computed entries; the layout change removes them and
	// they get a superblock wipe.
	Deleted []ObservedPartition
}

// PlanDiskLayout walks the partition actions of one disk in configuration
// order and produces the table to write plus the wipe plan. Preserved
// actions are reconciled against the observed table; any mismatch fails
// the whole layout, preserved partitions are never silently
// reinterpreted.
func PlanDiskLayout(disk *storageconfig.Item, actions []*storageconfig.Item,
	sectorBytes uint64, observed *ObservedTable, verifier Verifier) (*Layout, error) {

	table, err := New(disk.Ptable, sectorBytes)
	if err != nil {
		return nil, err
	}
	if verifier == nil {
		verifier = GeometryVerifier{}
	}

	wipes := make(map[uint64]string)
	for _, action := range actions {
		entry, err := table.Add(action)
		if err != nil {
			return nil, err
		}
		if action.Preserve {
			if observed == nil {
				return nil, fmt.Errorf("%w: preserved partition %q with no probed table",
					ErrPartitionNotFound, action.ID)
			}
			part, err := observed.FindPartition(entry.Start)
			if err != nil {
				return nil, err
			}
			if err := verifier.VerifyPartition(action, entry, observed.Label, part); err != nil {
				return nil, err
			}
		}
		wipes[entry.Start] = WipeForAction(action)
	}

	layout := &Layout{Table: table, Wipes: wipes}
	if observed != nil {
		computed := make(map[uint64]bool)
		for _, e := range table.Entries() {
			computed[e.Start] = true
		}
		for _, p := range observed.Partitions {
			if !computed[p.Start] {
				layout.Deleted = append(layout.Deleted, p)
			}
		}
	}

	return layout, nil
}

// DiskPlan pairs one disk item with its computed layout.
type DiskPlan struct {
	Disk   *storageconfig.Item
	Layout *Layout
}

// PlanConfig plans every disk in a dependency-ordered configuration that
// carries a partition table label this engine writes. Observed tables
// are supplied per disk id; disks without one are planned from scratch.
// sectorSizes overrides sectorBytes per disk id, so a mixed set of
// 512-byte and 4096-byte disks plans each with its own geometry.
func PlanConfig(cfg *storageconfig.Config, sectorBytes uint64, sectorSizes map[string]uint64,
	observed map[string]*ObservedTable, verifier Verifier) ([]DiskPlan, error) {

	var plans []DiskPlan
	for _, it := range cfg.Items() {
		if it.Type != storageconfig.Disk {
			continue
		}
		switch it.Ptable {
		case "gpt", "dos", "msdos":
		default:
			continue
		}

		var actions []*storageconfig.Item
		for _, dep := range cfg.ItemsWithDep("device", it.ID) {
			if dep.Type == storageconfig.Partition {
				actions = append(actions, dep)
			}
		}

		diskSectorBytes := sectorBytes
		if v, ok := sectorSizes[it.ID]; ok && v != 0 {
			diskSectorBytes = v
		}
		layout, err := PlanDiskLayout(it, actions, diskSectorBytes, observed[it.ID], verifier)
		if err != nil {
			return nil, fmt.Errorf("disk %s: %w", it.ID, err)
		}
		plans = append(plans, DiskPlan{Disk: it, Layout: layout})
	}
	return plans, nil
}
