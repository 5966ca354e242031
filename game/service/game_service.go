package service

import (
	"context"
	"time"

	"github.com/wricardo/mcp-training/mergegame/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Drag and drop
	DragStart(ctx context.Context, sessionID, itemID string, pointer engine.Vec2) (*DragResult, error)
	DragMove(ctx context.Context, sessionID, itemID string, pointer engine.Vec2) (*DragResult, error)
	Drop(ctx context.Context, sessionID, itemID string, drop engine.Vec2) (*DropResult, error)
	DropOnSlot(ctx context.Context, sessionID, itemID string, x, y int) (*DropResult, error)

	// Generators
	TriggerGenerator(ctx context.Context, sessionID, generatorID string) (*SpawnResult, error)
	RegenerateAll(ctx context.Context, amount int) ([]*RegenResult, error)

	// Board
	Reset(ctx context.Context, sessionID string) (*engine.BoardState, error)
	GetBoardState(ctx context.Context, sessionID string) (*engine.BoardState, error)
	GetDropHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	GetMergeHints(ctx context.Context, sessionID string) (*MergeHints, error)
	DescribeSlot(ctx context.Context, sessionID string, x, y int) (*SlotInfo, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.BoardConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.BoardConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.BoardConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.BoardConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles board configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.BoardConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.BoardConfig
	SaveConfig(name string, config *engine.BoardConfig) error
}

// EventSink receives every event produced by a mutating operation
type EventSink interface {
	Record(sessionID string, events []GameEvent) error
}

// Session represents an active game session
type Session struct {
	ID             string
	Board          *engine.Board
	Config         *engine.BoardConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
