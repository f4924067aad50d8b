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

	"github.com/blockplan-io/blockplan/utils/log"
)

// Tree is the dependency closure of one item in discovery order: the root
// first, then each newly found dependency.
type Tree struct {
	ids   []string
	items map[string]*Item
}

// insert adds an item unless its id is already present.
func (t *Tree) insert(it *Item) {
	if _, ok := t.items[it.ID]; ok {
		return
	}
	t.ids = append(t.ids, it.ID)
	t.items[it.ID] = it
}

// Top returns the root item the tree was built for.
func (t *Tree) Top() *Item {
	return t.items[t.ids[0]]
}

// Len returns the number of items in the tree. The merge step uses it as
// the dependency level of the top item.
func (t *Tree) Len() int {
	return len(t.ids)
}

// Items returns the tree's items in discovery order.
func (t *Tree) Items() []*Item {
	out := make([]*Item, 0, len(t.ids))
	for _, id := range t.ids {
		out = append(out, t.items[id])
	}
	return out
}

// List returns the items leaf first, the execution order for this one
// root: every dependency before its dependent.
func (t *Tree) List() []*Item {
	out := make([]*Item, 0, len(t.ids))
	for i := len(t.ids) - 1; i >= 0; i-- {
		out = append(out, t.items[t.ids[i]])
	}
	return out
}

// BuildConfigTree collects the item and its full dependency closure.
func BuildConfigTree(itemID string, cfg *Config) (*Tree, error) {
	root, ok := cfg.Get(itemID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
	}
	tree := &Tree{items: make(map[string]*Item)}
	tree.insert(root)

	deps, err := FindItemDependencies(itemID, cfg, true)
	if err != nil {
		return nil, err
	}
	for _, dep := range deps {
		it, ok := cfg.Get(dep)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrItemNotFound, dep)
		}
		tree.insert(it)
	}
	return tree, nil
}

// MergeConfigTrees flattens many per-item trees into one list ordered so
// that every item appears after all of its dependencies. Each tree's size
// serves as the dependency level of its top item; composed devices have
// strictly larger trees than their members and therefore sort later.
// Within a level items group by type, types sort alphabetically, and items
// of one type sort by that type's order key.
func MergeConfigTrees(trees []*Tree) []*Item {
	type regEntry struct {
		level int
		item  *Item
	}

	var order []string
	reg := make(map[string]*regEntry)
	maxLevel := 0
	for _, tree := range trees {
		top := tree.Top()
		if _, ok := reg[top.ID]; ok {
			log.Warnf("Dropping duplicate id: %s", top.ID)
			continue
		}
		level := tree.Len()
		if level > maxLevel {
			maxLevel = level
		}
		order = append(order, top.ID)
		reg[top.ID] = &regEntry{level: level, item: top}
	}

	sortLevel := func(items []*Item) []*Item {
		byType := make(map[Type][]*Item)
		var types []Type
		for _, it := range items {
			if _, ok := byType[it.Type]; !ok {
				types = append(types, it.Type)
			}
			byType[it.Type] = append(byType[it.Type], it)
		}
		sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

		var result []*Item
		for _, t := range types {
			group := byType[t]
			key, _ := OrderKey(t)
			sort.SliceStable(group, func(i, j int) bool {
				return sortKey(group[i], key) < sortKey(group[j], key)
			})
			result = append(result, group...)
		}
		return result
	}

	var merged []*Item
	for lvl := 0; lvl <= maxLevel; lvl++ {
		var levelItems []*Item
		for _, id := range order {
			if reg[id].level == lvl {
				levelItems = append(levelItems, reg[id].item)
			}
		}
		merged = append(merged, sortLevel(levelItems)...)
	}

	return merged
}
