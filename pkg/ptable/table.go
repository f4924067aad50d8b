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

	"github.com/dustin/go-humanize"
	guuid "github.com/google/uuid"

	"github.com/blockplan-io/blockplan/pkg/storageconfig"
)

// OneMiB is the alignment granularity for default placement.
const OneMiB = 1 << 20

// flagToGUID and flagToMBRType are derived from the probe-side GUID map;
// the extended partition always gets the fixed extended type code.
var (
	flagToGUID    = map[string]string{}
	flagToMBRType = map[string]string{}
)

func init() {
	for guid, entry := range storageconfig.GPTGUIDMap {
		flagToGUID[entry.Flag] = guid
		if len(entry.Typecode) >= 2 {
			flagToMBRType[entry.Flag] = strings.ToUpper(entry.Typecode[:2])
		}
	}
	flagToMBRType["extended"] = "05"
}

// Entry is one row of a computed partition table. Start and Size are in
// sectors. Immutable once appended; the ordered entry sequence for a disk
// is the partition table.
type Entry struct {
	Number   int
	Start    uint64
	Size     uint64
	Type     string
	UUID     string
	Bootable bool
}

// Render produces the entry's sfdisk input line.
func (e *Entry) Render() string {
	r := fmt.Sprintf("%d: ", e.Number)
	r += fmt.Sprintf(" start=%d", e.Start)
	r += fmt.Sprintf(" size=%d", e.Size)
	if e.Type != "" {
		r += fmt.Sprintf(" type=%s", e.Type)
	}
	if e.UUID != "" {
		r += fmt.Sprintf(" uuid=%s", e.UUID)
	}
	if e.Bootable {
		r += " bootable"
	}
	return r
}

func alignUp(size, blockSize uint64) uint64 {
	return (size + blockSize - 1) &^ (blockSize - 1)
}

func alignDown(size, blockSize uint64) uint64 {
	return size &^ (blockSize - 1)
}

// Table computes partition geometry for one partition table flavor.
type Table interface {
	// Add appends the table entry for one partition action. Actions
	// must be fed in configuration order.
	Add(action *storageconfig.Item) (*Entry, error)
	// Label returns the table flavor ("gpt" or "dos").
	Label() string
	// Entries returns the computed entries in order.
	Entries() []*Entry
	// Render produces the sfdisk script describing the whole table.
	Render() string
	// Sectors converts a byte amount to sectors, Bytes the reverse.
	Sectors(amount uint64) uint64
	Bytes(sectors uint64) uint64
}

// sectorTable carries the geometry shared by both flavors.
type sectorTable struct {
	entries       []*Entry
	sectorBytes   uint64
	oneMiBSectors uint64
}

func newSectorTable(sectorBytes uint64) (sectorTable, error) {
	if sectorBytes == 0 || OneMiB%sectorBytes != 0 {
		return sectorTable{}, fmt.Errorf("%w: %d", ErrBadSectorSize, sectorBytes)
	}
	return sectorTable{
		sectorBytes:   sectorBytes,
		oneMiBSectors: OneMiB / sectorBytes,
	}, nil
}

// sizeToSectors converts a human-readable size ("1GiB", "512MiB", plain
// bytes) into sectors.
func (t *sectorTable) sizeToSectors(size string) (uint64, error) {
	b, err := humanize.ParseBytes(size)
	if err != nil {
		return 0, fmt.Errorf("cannot parse size %q: %v", size, err)
	}
	return b / t.sectorBytes, nil
}

func (t *sectorTable) Sectors(amount uint64) uint64 {
	return amount / t.sectorBytes
}

func (t *sectorTable) Bytes(sectors uint64) uint64 {
	return sectors * t.sectorBytes
}

func (t *sectorTable) Entries() []*Entry {
	return t.entries
}

func (t *sectorTable) render(label string) string {
	r := []string{fmt.Sprintf("label: %s", label), ""}
	for _, e := range t.entries {
		r = append(r, e.Render())
	}
	return strings.Join(r, "\n")
}

// GPTTable computes GUID partition table layouts.
type GPTTable struct {
	sectorTable
}

// NewGPTTable returns a GPT layout engine for the disk's logical sector
// size.
func NewGPTTable(sectorBytes uint64) (*GPTTable, error) {
	st, err := newSectorTable(sectorBytes)
	if err != nil {
		return nil, err
	}
	return &GPTTable{sectorTable: st}, nil
}

func (t *GPTTable) Label() string { return "gpt" }

func (t *GPTTable) Render() string { return t.render(t.Label()) }

func (t *GPTTable) Add(action *storageconfig.Item) (*Entry, error) {
	number := action.Number
	if number == 0 {
		number = len(t.entries) + 1
	}

	var start uint64
	switch {
	case action.Offset != "":
		offset, err := t.sizeToSectors(action.Offset)
		if err != nil {
			return nil, err
		}
		start = offset
	case len(t.entries) > 0:
		prev := t.entries[len(t.entries)-1]
		start = alignUp(prev.Start+prev.Size, t.oneMiBSectors)
	default:
		start = t.oneMiBSectors
	}

	size, err := t.sizeToSectors(action.Size)
	if err != nil {
		return nil, err
	}

	if action.UUID != "" {
		if _, err := guuid.Parse(action.UUID); err != nil {
			return nil, fmt.Errorf("partition %q has invalid uuid %q", action.ID, action.UUID)
		}
	}

	entry := &Entry{
		Number: number,
		Start:  start,
		Size:   size,
		Type:   flagToGUID[action.Flag],
		UUID:   action.UUID,
	}
	t.entries = append(t.entries, entry)
	return entry, nil
}

// DOSTable computes MBR partition table layouts, including the extended
// partition chain holding logical partitions.
type DOSTable struct {
	sectorTable
	extended *Entry
}

// NewDOSTable returns an MBR layout engine for the disk's logical sector
// size.
func NewDOSTable(sectorBytes uint64) (*DOSTable, error) {
	st, err := newSectorTable(sectorBytes)
	if err != nil {
		return nil, err
	}
	return &DOSTable{sectorTable: st}, nil
}

func (t *DOSTable) Label() string { return "dos" }

func (t *DOSTable) Render() string { return t.render(t.Label()) }

func (t *DOSTable) Add(action *storageconfig.Item) (*Entry, error) {
	flag := action.Flag

	var start uint64
	haveStart := false
	if action.Offset != "" {
		offset, err := t.sizeToSectors(action.Offset)
		if err != nil {
			return nil, err
		}
		start = offset
		haveStart = true
	}

	var number int
	if flag == "logical" {
		if t.extended == nil {
			return nil, fmt.Errorf("%w: partition %q", ErrMissingExtendedPartition, action.ID)
		}
		var prev *Entry
		for i := len(t.entries) - 1; i >= 0; i-- {
			if t.entries[i].Number > 4 {
				prev = t.entries[i]
				break
			}
		}
		// Logical partitions are numbered by their position in the
		// chain, never by the caller; the requested number is
		// ignored.
		if prev == nil {
			number = 5
			if !haveStart {
				start = alignUp(t.extended.Start+t.oneMiBSectors, t.oneMiBSectors)
			}
		} else {
			number = prev.Number + 1
			if !haveStart {
				start = alignUp(prev.Start+prev.Size+t.oneMiBSectors, t.oneMiBSectors)
			}
		}
	} else {
		number = action.Number
		if number == 0 {
			number = len(t.entries) + 1
		}
		if number > 4 {
			return nil, fmt.Errorf("%w: partition %q requested number %d", ErrTooManyPrimaries, action.ID, number)
		}
		if !haveStart {
			var prev *Entry
			for _, e := range t.entries {
				if e.Number <= 4 {
					prev = e
				}
			}
			if prev == nil {
				start = t.oneMiBSectors
			} else {
				start = alignUp(prev.Start+prev.Size, t.oneMiBSectors)
			}
		}
	}

	size, err := t.sizeToSectors(action.Size)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		Number:   number,
		Start:    start,
		Size:     size,
		Type:     flagToMBRType[flag],
		Bootable: flag == "boot",
	}
	if flag == "extended" {
		t.extended = entry
	}
	t.entries = append(t.entries, entry)
	return entry, nil
}

// New returns the layout engine for a partition table label.
func New(label string, sectorBytes uint64) (Table, error) {
	switch label {
	case "gpt":
		return NewGPTTable(sectorBytes)
	case "dos", "msdos":
		return NewDOSTable(sectorBytes)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
}
