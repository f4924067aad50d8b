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
	"sort"
)

// validateDepType checks that one dependency edge is an allowed type pair.
func validateDepType(sourceID, depKey, depID string, cfg *Config) error {
	source, ok := cfg.Get(sourceID)
	if !ok {
		return fmt.Errorf("%w: source id %q", ErrItemNotFound, sourceID)
	}
	dep, ok := cfg.Get(depID)
	if !ok {
		return fmt.Errorf("%w: dependency id %q", ErrItemNotFound, depID)
	}

	allowed, err := AllowedDeps(source.Type)
	if err != nil {
		return err
	}
	if !KnownType(dep.Type) {
		return fmt.Errorf("%w: %q", ErrUnknownType, dep.Type)
	}

	for _, t := range allowed {
		if dep.Type == t {
			return nil
		}
	}
	// Partition(id=sda1).device cannot depend upon Mount(id=mnt)
	return fmt.Errorf("%w: %s(id=%s).%s cannot depend upon %s(id=%s)",
		ErrInvalidDependency, source.Type, sourceID, depKey, dep.Type, depID)
}

// FindItemDependencies walks the configuration collecting every item id
// the given item depends on, depth first. For each direct dependency it
// also pulls in the siblings sharing that dependency target, sorted by the
// item's order key, so that a composed device captures all of its members.
// Duplicates are kept here; the config tree drops them on insert.
func FindItemDependencies(itemID string, cfg *Config, validate bool) ([]string, error) {
	return findItemDependencies(itemID, cfg, validate, map[string]bool{})
}

// visiting holds the ids on the current walk path. An id seen twice on
// one path means the configuration contains a dependency cycle, which
// must fail with an error rather than recurse without bound.
func findItemDependencies(itemID string, cfg *Config, validate bool, visiting map[string]bool) ([]string, error) {
	if cfg == nil || cfg.Len() == 0 {
		return nil, fmt.Errorf("%w: empty storage config", ErrItemNotFound)
	}
	it, ok := cfg.Get(itemID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
	}
	if visiting[itemID] {
		return nil, fmt.Errorf("%w: dependency cycle through %q", ErrInvalidDependency, itemID)
	}
	visiting[itemID] = true
	defer delete(visiting, itemID)

	fields, err := DepFields(it.Type)
	if err != nil {
		return nil, err
	}
	orderFields, err := OrderKey(it.Type)
	if err != nil {
		return nil, err
	}

	var deps []string
	for _, field := range fields {
		vals := depValues(it, field)
		if len(vals) == 0 {
			continue
		}
		deps = append(deps, vals...)
		for _, dep := range vals {
			if validate {
				if err := validateDepType(itemID, field, dep, cfg); err != nil {
					return nil, err
				}
			}

			siblings := cfg.ItemsWithDep(field, dep)
			sort.SliceStable(siblings, func(i, j int) bool {
				return sortKey(siblings[i], orderFields) < sortKey(siblings[j], orderFields)
			})
			for _, sib := range siblings {
				deps = append(deps, sib.ID)
			}

			if _, ok := cfg.Get(dep); !ok {
				if validate {
					return nil, fmt.Errorf("%w: %q", ErrItemNotFound, dep)
				}
				continue
			}
			lower, err := findItemDependencies(dep, cfg, validate, visiting)
			if err != nil {
				return nil, err
			}
			deps = append(deps, lower...)
		}
	}

	return deps, nil
}
