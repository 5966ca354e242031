package engine

import (
	"fmt"
	"log"
	"sync"
)

// GridSlot is one fixed cell of the grid
type GridSlot struct {
	Position Vec2
	occupant *Item
}

// Occupant returns the item in the slot, or nil
func (s *GridSlot) Occupant() *Item {
	return s.occupant
}

// Grid is the authoritative mapping from coordinates to occupying items.
//
// Every exported method runs inside the grid's critical section. Multi-step
// transactions (resolver, generator) take g.mu once and use the *Locked helpers.
type Grid struct {
	mu        sync.Mutex
	transform Transform
	slots     [][]GridSlot // slots[x][y]

	host     Host
	renderer Renderer
	logger   *log.Logger
}

// NewGrid allocates a grid with fixed slot positions
func NewGrid(origin Vec2, cellSize float64, width, height int) (*Grid, error) {
	t, err := NewTransform(origin, cellSize, width, height)
	if err != nil {
		return nil, err
	}

	slots := make([][]GridSlot, width)
	for x := range slots {
		slots[x] = make([]GridSlot, height)
		for y := range slots[x] {
			slots[x][y].Position = t.GridToWorld(x, y)
		}
	}

	return &Grid{
		transform: t,
		slots:     slots,
		host:      &sceneHost{},
		renderer:  nopRenderer{},
		logger:    log.Default(),
	}, nil
}

// SetHost attaches the entity lifecycle host
func (g *Grid) SetHost(h Host) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if h == nil {
		h = &sceneHost{}
	}
	g.host = h
}

// SetRenderer attaches the display collaborator
func (g *Grid) SetRenderer(r Renderer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r == nil {
		r = nopRenderer{}
	}
	g.renderer = r
}

// SetLogger replaces the diagnostic logger
func (g *Grid) SetLogger(l *log.Logger) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l == nil {
		l = log.Default()
	}
	g.logger = l
}

// Logger returns the diagnostic logger shared with the resolver and generators
func (g *Grid) Logger() *log.Logger {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.logger
}

// Transform returns the coordinate transform
func (g *Grid) Transform() Transform { return g.transform }

// Width returns the number of columns
func (g *Grid) Width() int { return g.transform.Width }

// Height returns the number of rows
func (g *Grid) Height() int { return g.transform.Height }

// CellSize returns the world size of a slot
func (g *Grid) CellSize() float64 { return g.transform.CellSize }

// Origin returns the bottom-left world corner
func (g *Grid) Origin() Vec2 { return g.transform.Origin }

// GridToWorld returns the centre of slot (x, y)
func (g *Grid) GridToWorld(x, y int) Vec2 {
	return g.transform.GridToWorld(x, y)
}

// WorldToGrid returns the slot containing p, or NotFound
func (g *Grid) WorldToGrid(p Vec2) CoordResult {
	return g.transform.WorldToGrid(p)
}

// IsValidCoord is a pure bounds check
func (g *Grid) IsValidCoord(x, y int) bool {
	return g.transform.InBounds(x, y)
}

// GetOccupant returns the item at (x, y). Invalid coordinates are reported as empty.
func (g *Grid) GetOccupant(x, y int) *Item {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.occupantLocked(x, y)
}

// SetOccupant places item at (x, y) and records the coordinates on the item.
// Overwriting a different occupant is permitted but logged.
func (g *Grid) SetOccupant(item *Item, x, y int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.setOccupantLocked(item, x, y)
}

// ClearOccupant empties (x, y). Invalid coordinates are ignored.
func (g *Grid) ClearOccupant(x, y int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clearLocked(x, y)
}

// FindEmptySlot scans row-major from (0,0) and returns the first unoccupied slot
func (g *Grid) FindEmptySlot() CoordResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.findEmptySlotLocked()
}

// SpawnItem creates a new item of type t at (x, y). It returns nil without side
// effects when the coordinates are invalid, the slot is occupied, or the host
// fails to instantiate.
func (g *Grid) SpawnItem(t *ItemType, x, y int) *Item {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.spawnLocked(t, x, y)
}

// GetSlotPosition returns the fixed slot position or InvalidPosition
func (g *Grid) GetSlotPosition(x, y int) Vec2 {
	if !g.IsValidCoord(x, y) {
		return InvalidPosition
	}
	return g.slots[x][y].Position
}

// IsFull reports whether every slot is occupied
func (g *Grid) IsFull() bool {
	return !g.FindEmptySlot().IsFound()
}

// EmptyCount returns the number of unoccupied slots
func (g *Grid) EmptyCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for x := range g.slots {
		for y := range g.slots[x] {
			if g.slots[x][y].occupant == nil {
				n++
			}
		}
	}
	return n
}

// Occupants returns all placed items in row-major order
func (g *Grid) Occupants() []*Item {
	g.mu.Lock()
	defer g.mu.Unlock()
	var items []*Item
	for y := 0; y < g.transform.Height; y++ {
		for x := 0; x < g.transform.Width; x++ {
			if it := g.slots[x][y].occupant; it != nil {
				items = append(items, it)
			}
		}
	}
	return items
}

// CheckInvariants verifies that every occupant records its own slot and that no
// item occupies two slots
func (g *Grid) CheckInvariants() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	seen := make(map[*Item]Coord)
	for x := range g.slots {
		for y := range g.slots[x] {
			it := g.slots[x][y].occupant
			if it == nil {
				continue
			}
			if it.x != x || it.y != y {
				return fmt.Errorf("slot (%d,%d) holds %s recorded at (%d,%d)", x, y, it.id, it.x, it.y)
			}
			if prev, dup := seen[it]; dup {
				return fmt.Errorf("item %s occupies (%d,%d) and (%d,%d)", it.id, prev.X, prev.Y, x, y)
			}
			if it.destroyed {
				return fmt.Errorf("slot (%d,%d) holds destroyed item %s", x, y, it.id)
			}
			seen[it] = Coord{X: x, Y: y}
		}
	}
	return nil
}

func (g *Grid) occupantLocked(x, y int) *Item {
	if !g.transform.InBounds(x, y) {
		return nil
	}
	return g.slots[x][y].occupant
}

func (g *Grid) setOccupantLocked(item *Item, x, y int) error {
	if !g.transform.InBounds(x, y) {
		return fmt.Errorf("%w: set occupant at (%d,%d) on %dx%d grid", ErrInvalidCoord, x, y, g.transform.Width, g.transform.Height)
	}
	if item == nil {
		return fmt.Errorf("%w: set occupant at (%d,%d)", ErrNilItem, x, y)
	}

	slot := &g.slots[x][y]
	if prev := slot.occupant; prev != nil && prev != item {
		g.logger.Printf("[GRID] warning: slot (%d,%d) occupied by %s, overwriting with %s", x, y, prev.id, item.id)
	}

	// An item lives in one slot at a time
	if ox, oy := item.x, item.y; (ox != x || oy != y) && g.transform.InBounds(ox, oy) && g.slots[ox][oy].occupant == item {
		g.slots[ox][oy].occupant = nil
	}

	slot.occupant = item
	item.setCoords(x, y)
	return nil
}

func (g *Grid) clearLocked(x, y int) {
	if !g.transform.InBounds(x, y) {
		return
	}
	g.slots[x][y].occupant = nil
}

func (g *Grid) findEmptySlotLocked() CoordResult {
	for y := 0; y < g.transform.Height; y++ {
		for x := 0; x < g.transform.Width; x++ {
			if g.slots[x][y].occupant == nil {
				return Found(Coord{X: x, Y: y})
			}
		}
	}
	return NotFound()
}

func (g *Grid) spawnLocked(t *ItemType, x, y int) *Item {
	if !g.transform.InBounds(x, y) {
		g.logger.Printf("[GRID] warning: spawn %s rejected, (%d,%d) is outside the grid", t, x, y)
		return nil
	}
	if occ := g.slots[x][y].occupant; occ != nil {
		g.logger.Printf("[GRID] warning: spawn %s rejected, (%d,%d) occupied by %s", t, x, y, occ.id)
		return nil
	}

	item := g.host.Instantiate(g.slots[x][y].Position)
	if item == nil {
		g.logger.Printf("[GRID] warning: host returned no entity for %s at (%d,%d)", t, x, y)
		return nil
	}
	if err := item.Initialize(t, x, y); err != nil {
		g.logger.Printf("[GRID] warning: spawn %s at (%d,%d): %v", t, x, y, err)
		g.host.Destroy(item)
		return nil
	}

	g.slots[x][y].occupant = item
	g.renderer.Render(item)
	return item
}

// destroyLocked removes a consumed item from the scene. The caller has already
// cleared its slot.
func (g *Grid) destroyLocked(item *Item) {
	item.destroyed = true
	item.endDrag()
	g.host.Destroy(item)
	g.renderer.Render(item)
}
