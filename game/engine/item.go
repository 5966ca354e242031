package engine

import "fmt"

// ItemType is an immutable step in a merge progression chain.
// Two types are the same only if they are the same *ItemType.
type ItemType struct {
	ID          string
	Level       int
	DisplayName string
	Visual      string
	Next        *ItemType
}

// IsMaxLevel reports whether the type has no successor
func (t *ItemType) IsMaxLevel() bool {
	return t == nil || t.Next == nil
}

func (t *ItemType) String() string {
	if t == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s(L%d)", t.ID, t.Level)
}

// Item is a placed entity. Its grid coordinates mirror the slot it occupies and are
// written only by Grid operations.
type Item struct {
	id       string
	itemType *ItemType
	x, y     int

	position         Vec2
	restorePosition  Vec2
	isDragging       bool
	dragAnchorOffset Vec2

	initialized bool
	destroyed   bool
}

// NewItem instantiates an uninitialized item at a world position.
// Hosts call this from Instantiate; Grid.SpawnItem initializes it.
func NewItem(id string, pos Vec2) *Item {
	return &Item{
		id:              id,
		position:        pos,
		restorePosition: pos,
	}
}

// Initialize performs the one-time setup after instantiation
func (it *Item) Initialize(t *ItemType, x, y int) error {
	if it == nil {
		return ErrNilItem
	}
	if it.initialized {
		return fmt.Errorf("%w: %s", ErrItemInitialized, it.id)
	}
	it.itemType = t
	it.x, it.y = x, y
	it.restorePosition = it.position
	it.initialized = true
	return nil
}

// ID returns the item identifier
func (it *Item) ID() string { return it.id }

// Type returns the item type, which may be nil
func (it *Item) Type() *ItemType { return it.itemType }

// Coords returns the recorded grid coordinates
func (it *Item) Coords() Coord { return Coord{X: it.x, Y: it.y} }

// Position returns the displayed world position
func (it *Item) Position() Vec2 { return it.position }

// RestorePosition returns where a failed drop snaps back to
func (it *Item) RestorePosition() Vec2 { return it.restorePosition }

// IsDragging reports whether a drag is in progress
func (it *Item) IsDragging() bool { return it.isDragging }

// DragAnchorOffset is the offset between the item and the pointer at drag start
func (it *Item) DragAnchorOffset() Vec2 { return it.dragAnchorOffset }

// Destroyed reports whether the item was consumed by a merge
func (it *Item) Destroyed() bool { return it.destroyed }

// Visible reports whether a renderer should display the item
func (it *Item) Visible() bool {
	return !it.destroyed && it.itemType != nil
}

// View returns the serializable form of the item
func (it *Item) View() ItemView {
	v := ItemView{
		ID:       it.id,
		X:        it.x,
		Y:        it.y,
		Position: it.position,
		MaxLevel: it.itemType.IsMaxLevel(),
		Dragging: it.isDragging,
	}
	if it.itemType != nil {
		v.TypeID = it.itemType.ID
		v.Level = it.itemType.Level
		v.DisplayName = it.itemType.DisplayName
		v.Visual = it.itemType.Visual
	}
	return v
}

func (it *Item) beginDrag(pointer Vec2) {
	it.isDragging = true
	it.dragAnchorOffset = it.position.Sub(pointer)
}

func (it *Item) dragTo(pointer Vec2) {
	it.position = pointer.Add(it.dragAnchorOffset)
}

func (it *Item) endDrag() {
	it.isDragging = false
	it.dragAnchorOffset = Vec2{}
}

func (it *Item) setCoords(x, y int) {
	it.x, it.y = x, y
}

func (it *Item) placeAt(pos Vec2) {
	it.position = pos
	it.restorePosition = pos
}

func (it *Item) revert() {
	it.position = it.restorePosition
}
