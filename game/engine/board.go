package engine

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Engine provides the main interface for board operations
type Engine interface {
	// Board state management
	GetState() *BoardState
	Reset() *BoardState

	// Drag and drop
	DragStart(itemID string, pointer Vec2) error
	DragMove(itemID string, pointer Vec2) error
	Drop(itemID string, drop Vec2) (*DropRecord, error)
	DropOnSlot(itemID string, x, y int) (*DropRecord, error)

	// Generators
	TriggerGenerator(generatorID string) (TriggerResult, error)
	RegenerateEnergy(amount int) []GeneratorView

	// Configuration
	GetConfig() *BoardConfig
	SetConfig(config *BoardConfig) error

	// History
	GetDropHistory() []DropRecord
	GetLastDrop() *DropRecord

	// Scene
	GetItem(itemID string) (*Item, error)
	GetItemAt(x, y int) *Item
	DrainEvents() []BoardEvent
}

// Board owns one grid with its resolver and generators. It acts as the scene
// host and renderer for its grid, so it knows every live item and queues a
// BoardEvent for each visible change.
//
// A Board is not safe for concurrent use; the service layer serializes access.
type Board struct {
	config     *BoardConfig
	catalog    *Catalog
	grid       *Grid
	resolver   *Resolver
	generators []*Generator
	regen      map[string]int
	logger     *log.Logger

	items     map[string]*Item
	announced map[string]Coord // last coords reported per item
	events    []BoardEvent

	history    []DropRecord
	totalDrops int
	merges     int
	moves      int
	reverts    int
	spawns     int
	message    string
}

// NewBoard creates a board with the provided configuration
func NewBoard(config *BoardConfig) (*Board, error) {
	if err := ValidateBoardConfig(config); err != nil {
		return nil, err
	}
	b := &Board{config: config, logger: log.Default()}
	if err := b.build(); err != nil {
		return nil, err
	}
	return b, nil
}

// NewBoardWithDefaults creates a board from DefaultBoardConfig
func NewBoardWithDefaults() *Board {
	b, err := NewBoard(DefaultBoardConfig())
	if err != nil {
		// The built-in config is validated by tests
		panic(err)
	}
	return b
}

// SetLogger replaces the logger used by the board and its grid
func (b *Board) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.Default()
	}
	b.logger = l
	b.grid.SetLogger(l)
}

// boardScene is everything build replaces
type boardScene struct {
	catalog    *Catalog
	grid       *Grid
	resolver   *Resolver
	generators []*Generator
	regen      map[string]int
	items      map[string]*Item
	announced  map[string]Coord
	events     []BoardEvent
	message    string
}

func (b *Board) scene() boardScene {
	return boardScene{b.catalog, b.grid, b.resolver, b.generators, b.regen, b.items, b.announced, b.events, b.message}
}

func (b *Board) restoreScene(s boardScene) {
	b.catalog, b.grid, b.resolver, b.generators, b.regen = s.catalog, s.grid, s.resolver, s.generators, s.regen
	b.items, b.announced, b.events, b.message = s.items, s.announced, s.events, s.message
}

// build creates a fresh grid, resolver and generators from b.config and seeds
// the initial placements. On error the previous scene is left in place.
func (b *Board) build() error {
	prev := b.scene()
	if err := b.buildScene(); err != nil {
		b.restoreScene(prev)
		return err
	}
	return nil
}

func (b *Board) buildScene() error {
	cfg := b.config
	catalog, err := BuildCatalog(cfg.ItemTypes)
	if err != nil {
		return err
	}
	grid, err := NewGrid(cfg.Origin, cfg.CellSize, cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	grid.SetHost(b)
	grid.SetRenderer(b)
	grid.SetLogger(b.logger)

	b.catalog = catalog
	b.grid = grid
	b.resolver = NewResolver(grid)
	b.items = make(map[string]*Item)
	b.announced = make(map[string]Coord)
	b.events = nil
	b.generators = nil
	b.regen = make(map[string]int)

	for _, gc := range cfg.Generators {
		t, err := catalog.Lookup(gc.ItemType)
		if err != nil {
			return err
		}
		gen, err := NewGenerator(gc.ID, grid, t, gc.MaxEnergy, gc.EnergyCost)
		if err != nil {
			return err
		}
		b.generators = append(b.generators, gen)
		b.regen[gc.ID] = gc.RegenPerTick
	}

	for _, p := range cfg.Initial {
		t, err := catalog.Lookup(p.ItemType)
		if err != nil {
			return err
		}
		if grid.SpawnItem(t, p.X, p.Y) == nil {
			return fmt.Errorf("%w: initial %s at (%d,%d) could not be placed", ErrInvalidConfig, p.ItemType, p.X, p.Y)
		}
	}

	b.message = cfg.Messages.Welcome
	return nil
}

// Instantiate creates a scene entity for the grid
func (b *Board) Instantiate(pos Vec2) *Item {
	id := newItemID()
	for b.items[id] != nil {
		id = newItemID()
	}
	item := NewItem(id, pos)
	b.items[id] = item
	return item
}

// Destroy removes a consumed entity from the scene
func (b *Board) Destroy(item *Item) {
	if item == nil {
		return
	}
	if _, ok := b.items[item.id]; !ok {
		return
	}
	delete(b.items, item.id)
	if _, ok := b.announced[item.id]; ok {
		b.queue(EventDestroyed, item)
	}
	delete(b.announced, item.id)
}

// Render turns grid display callbacks into board events. In-drag updates are
// not queued, and an item that settles back into its slot is not a move.
func (b *Board) Render(item *Item) {
	if item == nil || !item.Visible() {
		return
	}
	last, ok := b.announced[item.id]
	if !ok {
		b.announced[item.id] = item.Coords()
		b.queue(EventSpawned, item)
		return
	}
	if item.isDragging || item.Coords() == last {
		return
	}
	b.announced[item.id] = item.Coords()
	b.queue(EventMoved, item)
}

func (b *Board) queue(kind EventKind, item *Item) {
	ev := BoardEvent{
		Kind:      kind,
		ItemID:    item.id,
		Coord:     item.Coords(),
		Position:  item.position,
		Timestamp: time.Now(),
	}
	if item.itemType != nil {
		ev.TypeID = item.itemType.ID
	}
	b.events = append(b.events, ev)
}

// DrainEvents returns and clears the queued board events
func (b *Board) DrainEvents() []BoardEvent {
	ev := b.events
	b.events = nil
	return ev
}

// Grid returns the underlying grid
func (b *Board) Grid() *Grid { return b.grid }

// Catalog returns the item type chains of the board
func (b *Board) Catalog() *Catalog { return b.catalog }

// Resolver returns the drop resolver bound to the grid
func (b *Board) Resolver() *Resolver { return b.resolver }

// Generators returns the board generators in config order
func (b *Board) Generators() []*Generator { return b.generators }

// GetItem returns a live item by ID
func (b *Board) GetItem(itemID string) (*Item, error) {
	item, ok := b.items[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}
	return item, nil
}

// GetItemAt returns the occupant of (x, y) or nil
func (b *Board) GetItemAt(x, y int) *Item {
	return b.grid.GetOccupant(x, y)
}

// GetGenerator returns a generator by ID
func (b *Board) GetGenerator(generatorID string) (*Generator, error) {
	for _, g := range b.generators {
		if strings.EqualFold(g.id, generatorID) {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownGenerator, generatorID)
}

// DragStart begins dragging an item from the given pointer position
func (b *Board) DragStart(itemID string, pointer Vec2) error {
	item, err := b.GetItem(itemID)
	if err != nil {
		return err
	}
	b.resolver.HandleDragStart(item, pointer)
	return nil
}

// DragMove moves a dragged item with the pointer
func (b *Board) DragMove(itemID string, pointer Vec2) error {
	item, err := b.GetItem(itemID)
	if err != nil {
		return err
	}
	if !item.isDragging {
		return fmt.Errorf("%w: %s", ErrNotDragging, itemID)
	}
	b.resolver.HandleDragMove(item, pointer)
	return nil
}

// Drop releases an item at a world position. An item that is not being dragged
// is picked up at its current position first.
func (b *Board) Drop(itemID string, drop Vec2) (*DropRecord, error) {
	item, err := b.GetItem(itemID)
	if err != nil {
		return nil, err
	}
	if !item.isDragging {
		b.resolver.HandleDragStart(item, item.position)
		b.resolver.HandleDragMove(item, drop)
	}

	typeID := ""
	if item.itemType != nil {
		typeID = item.itemType.ID
	}

	res := b.resolver.HandleDragEnd(item, drop)
	return b.record(res, typeID), nil
}

// DropOnSlot releases an item on the centre of slot (x, y). Coordinates outside
// the grid produce a revert.
func (b *Board) DropOnSlot(itemID string, x, y int) (*DropRecord, error) {
	return b.Drop(itemID, b.grid.GridToWorld(x, y))
}

func (b *Board) record(res Resolution, typeID string) *DropRecord {
	b.totalDrops++
	rec := DropRecord{
		Number:    b.totalDrops,
		ItemID:    res.Source.id,
		TypeID:    typeID,
		From:      res.From,
		DropPoint: res.DropPoint,
		Outcome:   res.Outcome,
		Timestamp: time.Now().Unix(),
	}
	if tc, ok := res.Target.Get(); ok {
		rec.Target = &tc
	}
	if res.Result != nil {
		rec.ResultItemID = res.Result.id
		if res.Result.itemType != nil {
			rec.ResultTypeID = res.Result.itemType.ID
		}
	}

	msgs := b.config.Messages
	switch res.Outcome {
	case OutcomeMerge:
		b.merges++
		b.message = fmt.Sprintf(msgs.Merged, res.Result.itemType.DisplayName)
	case OutcomeMove:
		b.moves++
		b.message = msgs.Moved
	default:
		b.reverts++
		b.message = msgs.Reverted
	}

	if res.Fault != "" {
		b.logger.Printf("[DROP] #%d %s %s (fault: %s)", rec.Number, rec.ItemID, rec.Outcome, res.Fault)
	} else {
		b.logger.Printf("[DROP] #%d %s from (%d,%d) -> %s", rec.Number, rec.ItemID, rec.From.X, rec.From.Y, rec.Outcome)
	}

	b.history = append(b.history, rec)
	return &b.history[len(b.history)-1]
}

// TriggerGenerator activates one generator
func (b *Board) TriggerGenerator(generatorID string) (TriggerResult, error) {
	gen, err := b.GetGenerator(generatorID)
	if err != nil {
		return TriggerResult{}, err
	}

	res := gen.Trigger()
	msgs := b.config.Messages
	switch res.Reason {
	case TriggerSpawned:
		b.spawns++
		if strings.Contains(msgs.Spawned, "%s") {
			b.message = fmt.Sprintf(msgs.Spawned, gen.itemType.DisplayName)
		} else {
			b.message = msgs.Spawned
		}
		b.logger.Printf("[SPAWN] %s -> %s at (%d,%d), energy %d/%d", gen.id, res.Item.id, res.Coord.X, res.Coord.Y, res.EnergyAfter, gen.maxEnergy)
	case TriggerBoardFull:
		b.message = msgs.BoardFull
	case TriggerInsufficientEnergy:
		b.message = msgs.OutOfEnergy
	}
	return res, nil
}

// RegenerateEnergy refills every generator. A non-positive amount uses each
// generator's configured regen_per_tick.
func (b *Board) RegenerateEnergy(amount int) []GeneratorView {
	views := make([]GeneratorView, 0, len(b.generators))
	for _, g := range b.generators {
		n := amount
		if n <= 0 {
			n = b.regen[g.id]
		}
		g.Regenerate(n)
		views = append(views, g.View())
	}
	return views
}

// GetState returns a snapshot of the board
func (b *Board) GetState() *BoardState {
	g := b.grid
	state := &BoardState{
		ConfigName: b.config.Name,
		Width:      g.Width(),
		Height:     g.Height(),
		CellSize:   g.CellSize(),
		Origin:     g.Origin(),
		Rows:       make([][]string, g.Height()),
		Items:      []ItemView{},
		Generators: []GeneratorView{},
		Message:    b.message,
		TotalDrops: b.totalDrops,
		Merges:     b.merges,
		Moves:      b.moves,
		Reverts:    b.reverts,
		Spawns:     b.spawns,
		LastDrop:   b.GetLastDrop(),
	}
	for y := range state.Rows {
		state.Rows[y] = make([]string, g.Width())
	}

	occupants := g.Occupants()
	for _, it := range occupants {
		v := it.View()
		state.Items = append(state.Items, v)
		state.Rows[v.Y][v.X] = v.ID
		if v.Level > state.Highest {
			state.Highest = v.Level
		}
	}
	state.EmptySlots = g.Width()*g.Height() - len(occupants)

	for _, gen := range b.generators {
		state.Generators = append(state.Generators, gen.View())
	}
	return state
}

// Reset rebuilds the board from its config. Drop history and the drop counter
// are cumulative across resets.
func (b *Board) Reset() *BoardState {
	history := b.history
	total := b.totalDrops

	if err := b.build(); err != nil {
		b.logger.Printf("[GRID] reset of %s failed, board unchanged: %v", b.config.Name, err)
		return b.GetState()
	}
	b.history = history
	b.totalDrops = total
	b.merges, b.moves, b.reverts, b.spawns = 0, 0, 0, 0
	return b.GetState()
}

// GetConfig returns the current board configuration
func (b *Board) GetConfig() *BoardConfig {
	return b.config
}

// SetConfig sets a new configuration and rebuilds the board from scratch
func (b *Board) SetConfig(config *BoardConfig) error {
	if err := ValidateBoardConfig(config); err != nil {
		return err
	}
	prev := b.config
	b.config = config
	if err := b.build(); err != nil {
		b.config = prev
		return err
	}
	b.history = nil
	b.totalDrops = 0
	b.merges, b.moves, b.reverts, b.spawns = 0, 0, 0, 0
	return nil
}

// GetDropHistory returns the complete drop history
func (b *Board) GetDropHistory() []DropRecord {
	return b.history
}

// GetLastDrop returns the last resolved drop, or nil if none
func (b *Board) GetLastDrop() *DropRecord {
	if len(b.history) == 0 {
		return nil
	}
	return &b.history[len(b.history)-1]
}

func newItemID() string {
	return "itm-" + uuid.NewString()[:8]
}
