package promotion

import (
	"slices"

	"github.com/foodworks-dev/counter-pos/internal/domain/catalog"
)

// Match extracts one group of items satisfying the promotion's requirements
// from the given pool.
//
// For each id in ItemsRequired, in order, the pool is scanned from the last
// position backward and the first item with that id is moved into the group.
// The backward scan gives a deterministic tie-break when the pool contains
// duplicate ids, independent of storage ordering.
//
// On success the group and the shrunk pool are returned. If any required id
// cannot be found, the match fails: the group is empty and the pool is
// returned exactly as given, with no partial consumption. An empty
// ItemsRequired never matches.
//
// The input slice is never mutated. Complexity is O(len(items) ×
// len(ItemsRequired)); fine for counter-sized orders, a frequency-map matcher
// would only pay off with a much larger catalog and would have to reproduce
// the same tie-break.
func Match(items []catalog.Item, p Promotion) (matched, remaining []catalog.Item) {
	if len(p.ItemsRequired) == 0 {
		return nil, items
	}

	pool := slices.Clone(items)
	matched = make([]catalog.Item, 0, len(p.ItemsRequired))
	for _, required := range p.ItemsRequired {
		for i := len(pool) - 1; i >= 0; i-- {
			if pool[i].ID == required {
				matched = append(matched, pool[i])
				pool = slices.Delete(pool, i, i+1)
				break
			}
		}
	}

	if len(matched) != len(p.ItemsRequired) {
		return nil, items
	}
	return matched, pool
}
