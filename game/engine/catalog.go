package engine

import (
	"fmt"
	"sort"
)

// Catalog holds the linked ItemType chains of one board configuration
type Catalog struct {
	types map[string]*ItemType
	order []string
}

// BuildCatalog links item type definitions into chains. Unknown next references,
// duplicate IDs and cycles are rejected.
func BuildCatalog(defs []ItemTypeDef) (*Catalog, error) {
	c := &Catalog{types: make(map[string]*ItemType, len(defs))}

	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("%w: item type id is required", ErrInvalidConfig)
		}
		if _, dup := c.types[d.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateItemType, d.ID)
		}
		c.types[d.ID] = &ItemType{
			ID:          d.ID,
			Level:       d.Level,
			DisplayName: d.DisplayName,
			Visual:      d.Visual,
		}
		c.order = append(c.order, d.ID)
	}

	for _, d := range defs {
		if d.Next == "" {
			continue
		}
		next, ok := c.types[d.Next]
		if !ok {
			return nil, fmt.Errorf("%w: %s references next %q", ErrUnknownItemType, d.ID, d.Next)
		}
		c.types[d.ID].Next = next
	}

	for _, id := range c.order {
		if n := chainLength(c.types[id]); n < 0 {
			return nil, fmt.Errorf("%w: starting at %s", ErrCatalogCycle, id)
		} else if n > MaxChainLength {
			return nil, fmt.Errorf("%w: chain from %s has %d steps, max %d", ErrInvalidConfig, id, n, MaxChainLength)
		}
	}

	// Levels default to position in the chain when left unset
	for _, root := range c.Roots() {
		level := 1
		for t := root; t != nil; t = t.Next {
			if t.Level == 0 {
				t.Level = level
			}
			level = t.Level + 1
		}
	}

	return c, nil
}

// chainLength walks Next links and returns -1 on a cycle
func chainLength(t *ItemType) int {
	seen := make(map[*ItemType]bool)
	n := 0
	for ; t != nil; t = t.Next {
		if seen[t] {
			return -1
		}
		seen[t] = true
		n++
	}
	return n
}

// Lookup returns the type with the given ID
func (c *Catalog) Lookup(id string) (*ItemType, error) {
	t, ok := c.types[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItemType, id)
	}
	return t, nil
}

// Types returns all types in definition order
func (c *Catalog) Types() []*ItemType {
	out := make([]*ItemType, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.types[id])
	}
	return out
}

// Roots returns the types that no other type points at, sorted by ID
func (c *Catalog) Roots() []*ItemType {
	pointed := make(map[*ItemType]bool)
	for _, t := range c.types {
		if t.Next != nil {
			pointed[t.Next] = true
		}
	}
	var roots []*ItemType
	for _, t := range c.types {
		if !pointed[t] {
			roots = append(roots, t)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].ID < roots[j].ID })
	return roots
}

// ChainFrom returns t followed by every successor up to the max level
func ChainFrom(t *ItemType) []*ItemType {
	var chain []*ItemType
	for ; t != nil; t = t.Next {
		chain = append(chain, t)
		if len(chain) > MaxChainLength {
			break
		}
	}
	return chain
}
