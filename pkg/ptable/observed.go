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
	"strings"

	"github.com/blockplan-io/blockplan/pkg/storageconfig"
)

// ObservedPartition is one partition read back from a disk, start and
// size in sectors.
type ObservedPartition struct {
	Node     string `json:"node"`
	Number   int    `json:"number"`
	Start    uint64 `json:"start"`
	Size     uint64 `json:"size"`
	Type     string `json:"type"`
	Bootable bool   `json:"bootable"`
}

// ObservedTable is a disk's current on-disk partition table as reported
// by the probing collaborator.
type ObservedTable struct {
	Label      string              `json:"label"`
	Partitions []ObservedPartition `json:"partitions"`
}

// FindPartition returns the on-disk partition starting at the given
// sector offset.
func (o *ObservedTable) FindPartition(start uint64) (*ObservedPartition, error) {
	for i := range o.Partitions {
		if o.Partitions[i].Start == start {
			return &o.Partitions[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrPartitionNotFound, start)
}

// Verifier compares a preserved action's requested geometry and flags
// against the observed on-disk partition.
type Verifier interface {
	VerifyPartition(action *storageconfig.Item, entry *Entry, label string, observed *ObservedPartition) error
}

// GeometryVerifier is the default Verifier: size must match exactly and
// the flag-derived attributes must agree with the observed partition.
type GeometryVerifier struct{}

func (GeometryVerifier) VerifyPartition(action *storageconfig.Item, entry *Entry, label string, observed *ObservedPartition) error {
	if observed.Size != entry.Size {
		return fmt.Errorf("%w: partition %q size %d sectors, on disk %d",
			ErrPreserveMismatch, action.ID, entry.Size, observed.Size)
	}
	if label == "dos" {
		if entry.Bootable != observed.Bootable {
			return fmt.Errorf("%w: partition %q bootable=%t, on disk %t",
				ErrPreserveMismatch, action.ID, entry.Bootable, observed.Bootable)
		}
	}
	if action.Flag != "" && observed.Type != "" {
		flag, _ := storageconfig.PtableUUIDToFlagEntry(observed.Type)
		if flag != "" && flag != action.Flag && !(action.Flag == "logical" || action.Flag == "boot") {
			return fmt.Errorf("%w: partition %q flag %q, on disk %q",
				ErrPreserveMismatch, action.ID, action.Flag, flag)
		}
	}
	if observed.Type != "" && entry.Type != "" &&
		!strings.EqualFold(observed.Type, entry.Type) && isGUID(observed.Type) {
		return fmt.Errorf("%w: partition %q type %s, on disk %s",
			ErrPreserveMismatch, action.ID, entry.Type, observed.Type)
	}
	return nil
}

func isGUID(s string) bool {
	return strings.Count(s, "-") == 4
}
