package engine

import "strconv"

// Host is the entity lifecycle collaborator. Instantiate may return nil to signal that
// the entity could not be created. Implementations must not call back into the Grid.
type Host interface {
	Instantiate(pos Vec2) *Item
	Destroy(item *Item)
}

// Renderer displays items. It is called after an item appears, moves, reverts or is
// destroyed; an item with Visible() == false should be hidden.
type Renderer interface {
	Render(item *Item)
}

// sceneHost is the fallback Host used when none is attached
type sceneHost struct {
	next int
}

func (h *sceneHost) Instantiate(pos Vec2) *Item {
	h.next++
	return NewItem("item-"+strconv.Itoa(h.next), pos)
}

func (h *sceneHost) Destroy(item *Item) {}

type nopRenderer struct{}

func (nopRenderer) Render(*Item) {}
