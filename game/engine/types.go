package engine

import (
	"math"
	"time"
)

// Outcome is the terminal result of resolving a drag-release
type Outcome string

const (
	OutcomeMerge  Outcome = "merge"
	OutcomeMove   Outcome = "move"
	OutcomeRevert Outcome = "revert"

	// Validation constants
	MinGridSize      = 1
	MaxGridSize      = 32
	MaxChainLength   = 64
	MaxGeneratorPool = 1000
	MaxHistoryPage   = 100

	// MaxOriginCells bounds |origin| in cell units so slot centres stay exact
	// enough for WorldToGrid(GridToWorld(x, y)) to return (x, y)
	MaxOriginCells = 1 << 40
)

// Vec2 is a continuous world-space position
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns v+o
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v-o
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// IsFinite reports whether both components are finite numbers.
// GetSlotPosition returns a non-finite sentinel for invalid coordinates.
func (v Vec2) IsFinite() bool {
	return !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsNaN(v.X) && !math.IsNaN(v.Y)
}

// InvalidPosition is the sentinel returned for positions outside the grid
var InvalidPosition = Vec2{X: math.Inf(1), Y: math.Inf(1)}

// Coord is an integer grid coordinate
type Coord struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// CoordResult is an explicit found/not-found coordinate. The zero value is NotFound.
type CoordResult struct {
	coord Coord
	found bool
}

// Found wraps a coordinate as a found result
func Found(c Coord) CoordResult {
	return CoordResult{coord: c, found: true}
}

// NotFound returns the empty result
func NotFound() CoordResult {
	return CoordResult{}
}

// Get returns the coordinate and whether it was found
func (r CoordResult) Get() (Coord, bool) {
	return r.coord, r.found
}

// IsFound reports whether the result carries a coordinate
func (r CoordResult) IsFound() bool {
	return r.found
}

// ItemView is the serializable view of a placed item
type ItemView struct {
	ID          string `json:"id"`
	TypeID      string `json:"type_id,omitempty"`
	Level       int    `json:"level"`
	DisplayName string `json:"display_name,omitempty"`
	Visual      string `json:"visual,omitempty"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Position    Vec2   `json:"position"`
	MaxLevel    bool   `json:"max_level"`
	Dragging    bool   `json:"dragging,omitempty"`
}

// GeneratorView is the serializable view of a generator
type GeneratorView struct {
	ID         string `json:"id"`
	TypeID     string `json:"type_id"`
	Energy     int    `json:"energy"`
	MaxEnergy  int    `json:"max_energy"`
	EnergyCost int    `json:"energy_cost"`
	Depleted   bool   `json:"depleted"`
}

// BoardState represents the complete observable board state
type BoardState struct {
	ConfigName string          `json:"config_name"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	CellSize   float64         `json:"cell_size"`
	Origin     Vec2            `json:"origin"`
	Rows       [][]string      `json:"rows"` // Rows[y][x] holds the occupant item ID or ""
	Items      []ItemView      `json:"items"`
	Generators []GeneratorView `json:"generators"`
	EmptySlots int             `json:"empty_slots"`
	Highest    int             `json:"highest_level"`
	Message    string          `json:"message"`

	TotalDrops int `json:"total_drops"`
	Merges     int `json:"merges"`
	Moves      int `json:"moves"`
	Reverts    int `json:"reverts"`
	Spawns     int `json:"spawns"`

	LastDrop *DropRecord `json:"last_drop,omitempty"`
}

// DropRecord represents a single resolved drag-release in the board history
type DropRecord struct {
	Number       int     `json:"number"`
	ItemID       string  `json:"item_id"`
	TypeID       string  `json:"type_id,omitempty"`
	From         Coord   `json:"from"`
	DropPoint    Vec2    `json:"drop_point"`
	Target       *Coord  `json:"target,omitempty"`
	Outcome      Outcome `json:"outcome"`
	ResultItemID string  `json:"result_item_id,omitempty"`
	ResultTypeID string  `json:"result_type_id,omitempty"`
	Timestamp    int64   `json:"timestamp"`
}

// EventKind names a board-level change observed by the scene host
type EventKind string

const (
	EventSpawned   EventKind = "spawned"
	EventDestroyed EventKind = "destroyed"
	EventMoved     EventKind = "moved"
)

// BoardEvent is queued by the Board whenever the scene changes
type BoardEvent struct {
	Kind      EventKind `json:"kind"`
	ItemID    string    `json:"item_id"`
	TypeID    string    `json:"type_id,omitempty"`
	Coord     Coord     `json:"coord"`
	Position  Vec2      `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}
