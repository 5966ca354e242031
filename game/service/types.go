package service

import (
	"time"

	"github.com/wricardo/mcp-training/mergegame/game/engine"
)

// Event types emitted by mutating operations
const (
	EventSpawned   = "spawned"
	EventDestroyed = "destroyed"
	EventMoved     = "moved"
	EventMerged    = "merged"
	EventReverted  = "reverted"
	EventEnergy    = "energy"
	EventReset     = "reset"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string              `json:"id"`
	ConfigName     string              `json:"config_name"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	BoardState     *engine.BoardState  `json:"board_state"`
	BoardConfig    *engine.BoardConfig `json:"board_config"`
}

// DragResult reports the dragged item after a drag start or move
type DragResult struct {
	Item engine.ItemView `json:"item"`
}

// DropResult contains the result of a drag-release
type DropResult struct {
	Outcome    engine.Outcome     `json:"outcome"`
	Drop       *engine.DropRecord `json:"drop"`
	BoardState *engine.BoardState `json:"board_state"`
	Message    string             `json:"message"`
	Events     []GameEvent        `json:"events,omitempty"`
}

// SpawnResult contains the result of a generator trigger
type SpawnResult struct {
	Success    bool                 `json:"success"`
	Reason     engine.TriggerReason `json:"reason"`
	Item       *engine.ItemView     `json:"item,omitempty"`
	Generator  engine.GeneratorView `json:"generator"`
	BoardState *engine.BoardState   `json:"board_state"`
	Message    string               `json:"message"`
	Events     []GameEvent          `json:"events,omitempty"`
}

// RegenResult lists the generators of one session whose energy changed
type RegenResult struct {
	SessionID  string                 `json:"session_id"`
	Generators []engine.GeneratorView `json:"generators"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string        `json:"type"` // spawned, destroyed, moved, merged, reverted, energy, reset
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	ItemID    string        `json:"item_id,omitempty"`
	TypeID    string        `json:"type_id,omitempty"`
	Coord     *engine.Coord `json:"coord,omitempty"`
}

// HistoryOptions configures drop history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated drop history
type HistoryResponse struct {
	Drops       []engine.DropRecord `json:"drops"`
	TotalDrops  int                 `json:"total_drops"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
	TotalPages  int                 `json:"total_pages"`
	HasNext     bool                `json:"has_next"`
	HasPrevious bool                `json:"has_previous"`
}

// MergeHints lists the merges currently available on a board
type MergeHints struct {
	Pairs      []engine.MergePair `json:"pairs"`
	EmptySlots int                `json:"empty_slots"`
	CanSpawn   bool               `json:"can_spawn"`
	Stuck      bool               `json:"stuck"`
}

// SlotInfo describes one grid slot
type SlotInfo struct {
	X         int              `json:"x"`
	Y         int              `json:"y"`
	Valid     bool             `json:"valid"`
	Position  *engine.Vec2     `json:"position,omitempty"`
	Occupant  *engine.ItemView `json:"occupant,omitempty"`
	MergeWith []engine.Coord   `json:"merge_with,omitempty"`
}

// ConfigInfo provides information about a board configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ItemTypes   int    `json:"item_types"`
	Generators  int    `json:"generators"`
}
