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

package storageconfig

import (
	"fmt"
)

// depFields lists, per storage type, the fields whose values reference
// other items' ids.
var depFields = map[Type][]string{
	Bcache:       {"backing_device", "cache_device"},
	Dasd:         {},
	Disk:         {},
	DmCrypt:      {"volume"},
	Format:       {"volume"},
	LvmPartition: {"volgroup"},
	LvmVolgroup:  {"devices"},
	Mount:        {"device"},
	Partition:    {"device"},
	Raid:         {"devices", "spare_devices", "container"},
	Zfs:          {"pool"},
	Zpool:        {"vdevs"},
}

// orderKeys defines the stable sort order among items of one type sharing
// a dependency level.
var orderKeys = map[Type][]string{
	Bcache:       {"name"},
	Dasd:         {"id"},
	Disk:         {"id"},
	DmCrypt:      {"id"},
	Format:       {"id"},
	LvmPartition: {"name"},
	LvmVolgroup:  {"name"},
	Mount:        {"path"},
	Partition:    {"number"},
	Raid:         {"id"},
	Zfs:          {"volume"},
	Zpool:        {"id"},
}

// allowedDeps documents what each storage type can be composed from.
var allowedDeps = map[Type][]Type{
	Bcache:       {Bcache, Disk, DmCrypt, LvmPartition, Partition, Raid},
	Dasd:         {},
	Disk:         {Dasd},
	DmCrypt:      {Bcache, Disk, DmCrypt, LvmPartition, Partition, Raid},
	Format:       {Bcache, Disk, DmCrypt, LvmPartition, Partition, Raid},
	LvmPartition: {LvmVolgroup},
	LvmVolgroup:  {Bcache, Disk, DmCrypt, Partition, Raid},
	Mount:        {Format},
	Partition:    {Bcache, Disk, Raid, Partition},
	Raid:         {Bcache, Disk, DmCrypt, LvmPartition, Partition, Raid},
	Zfs:          {Zpool},
	Zpool:        {Disk, Partition},
}

// KnownType reports whether t is a registered storage type.
func KnownType(t Type) bool {
	_, ok := depFields[t]
	return ok
}

// DepFields returns the dependency field names of a storage type.
func DepFields(t Type) ([]string, error) {
	fields, ok := depFields[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return fields, nil
}

// OrderKey returns the field names defining the sort order of a type.
func OrderKey(t Type) ([]string, error) {
	key, ok := orderKeys[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return key, nil
}

// AllowedDeps returns the set of types t is permitted to depend on.
func AllowedDeps(t Type) ([]Type, error) {
	deps, ok := allowedDeps[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return deps, nil
}

// depValues extracts the id(s) a dependency field references. Singular
// fields come back as a one-element list.
func depValues(it *Item, field string) []string {
	switch field {
	case "device":
		if it.Device != "" {
			return []string{it.Device}
		}
	case "devices":
		return it.Devices
	case "spare_devices":
		return it.SpareDevices
	case "container":
		if it.Container != "" {
			return []string{it.Container}
		}
	case "volgroup":
		if it.Volgroup != "" {
			return []string{it.Volgroup}
		}
	case "volume":
		if it.Volume != "" {
			return []string{it.Volume}
		}
	case "pool":
		if it.Pool != "" {
			return []string{it.Pool}
		}
	case "vdevs":
		return it.Vdevs
	case "backing_device":
		if it.BackingDevice != "" {
			return []string{it.BackingDevice}
		}
	case "cache_device":
		if it.CacheDevice != "" {
			return []string{it.CacheDevice}
		}
	}
	return nil
}

// scalarDepValue returns the value of a singular dependency field. The
// second return is false for list-valued or empty fields.
func scalarDepValue(it *Item, field string) (string, bool) {
	switch field {
	case "devices", "spare_devices", "vdevs":
		return "", false
	}
	vals := depValues(it, field)
	if len(vals) != 1 {
		return "", false
	}
	return vals[0], true
}

// sortKey builds the composite order-key string for an item. Numbers are
// zero-padded so the lexicographic order matches the numeric one.
func sortKey(it *Item, fields []string) string {
	key := ""
	for _, f := range fields {
		switch f {
		case "id":
			key += it.ID
		case "name":
			key += it.Name
		case "path":
			key += it.Path
		case "number":
			key += fmt.Sprintf("%010d", it.Number)
		case "volume":
			key += it.Volume
		}
		key += "\x00"
	}
	return key
}
