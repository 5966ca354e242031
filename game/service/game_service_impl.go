package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/mergegame/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
)

// Option configures the game service
type Option func(*gameServiceImpl)

// WithEventSink records every event batch, e.g. into the drop journal
func WithEventSink(sink EventSink) Option {
	return func(s *gameServiceImpl) {
		s.sink = sink
	}
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	sink     EventSink
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *gameServiceImpl) sessionInfo(sess *Session, configID string) *SessionInfo {
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		BoardState:     sess.Board.GetState(),
		BoardConfig:    sess.Config,
	}
}

// getSession looks up a session and touches its access time
func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%v)", ErrSessionNotFound, sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.BoardConfig
	if configName != "" {
		var err error
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configName, configIDs)
				}
				return nil, fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.record(sess.ID, boardEvents(sess.Board.DrainEvents()))
	return s.sessionInfo(sess, configName), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess, ""), nil
}

// ListSessions returns all active sessions ordered by creation time
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess, ""))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("%w: %s (%v)", ErrSessionNotFound, sessionID, err)
	}
	return nil
}

// DragStart picks up an item
func (s *gameServiceImpl) DragStart(ctx context.Context, sessionID, itemID string, pointer engine.Vec2) (*DragResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Board.DragStart(itemID, pointer); err != nil {
		return nil, err
	}
	item, _ := sess.Board.GetItem(itemID)
	return &DragResult{Item: item.View()}, nil
}

// DragMove moves a picked up item with the pointer
func (s *gameServiceImpl) DragMove(ctx context.Context, sessionID, itemID string, pointer engine.Vec2) (*DragResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Board.DragMove(itemID, pointer); err != nil {
		return nil, err
	}
	item, _ := sess.Board.GetItem(itemID)
	return &DragResult{Item: item.View()}, nil
}

// Drop releases an item at a world position
func (s *gameServiceImpl) Drop(ctx context.Context, sessionID, itemID string, drop engine.Vec2) (*DropResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	rec, err := sess.Board.Drop(itemID, drop)
	if err != nil {
		return nil, err
	}
	return s.dropResult(sess, rec), nil
}

// DropOnSlot releases an item on the centre of a slot
func (s *gameServiceImpl) DropOnSlot(ctx context.Context, sessionID, itemID string, x, y int) (*DropResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	rec, err := sess.Board.DropOnSlot(itemID, x, y)
	if err != nil {
		return nil, err
	}
	return s.dropResult(sess, rec), nil
}

func (s *gameServiceImpl) dropResult(sess *Session, rec *engine.DropRecord) *DropResult {
	state := sess.Board.GetState()
	events := []GameEvent{outcomeEvent(rec, state.Message)}
	events = append(events, boardEvents(sess.Board.DrainEvents())...)
	s.record(sess.ID, events)

	return &DropResult{
		Outcome:    rec.Outcome,
		Drop:       rec,
		BoardState: state,
		Message:    state.Message,
		Events:     events,
	}
}

// TriggerGenerator activates one generator of a session
func (s *gameServiceImpl) TriggerGenerator(ctx context.Context, sessionID, generatorID string) (*SpawnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	res, err := sess.Board.TriggerGenerator(generatorID)
	if err != nil {
		return nil, err
	}
	gen, _ := sess.Board.GetGenerator(generatorID)
	view := gen.View()
	state := sess.Board.GetState()

	events := boardEvents(sess.Board.DrainEvents())
	if res.EnergyAfter != res.EnergyBefore {
		events = append(events, energyEvent(view))
	}
	s.record(sess.ID, events)

	result := &SpawnResult{
		Success:    res.Success,
		Reason:     res.Reason,
		Generator:  view,
		BoardState: state,
		Message:    state.Message,
		Events:     events,
	}
	if res.Item != nil {
		v := res.Item.View()
		result.Item = &v
	}
	return result, nil
}

// RegenerateAll refills the generators of every session. A non-positive amount
// uses each generator's configured regen rate.
func (s *gameServiceImpl) RegenerateAll(ctx context.Context, amount int) ([]*RegenResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []*RegenResult
	for _, sess := range s.sessions.List() {
		before := make(map[string]int)
		for _, g := range sess.Board.Generators() {
			before[g.ID()] = g.Energy()
		}

		var changed []engine.GeneratorView
		var events []GameEvent
		for _, v := range sess.Board.RegenerateEnergy(amount) {
			if v.Energy != before[v.ID] {
				changed = append(changed, v)
				events = append(events, energyEvent(v))
			}
		}
		if len(changed) == 0 {
			continue
		}
		s.record(sess.ID, events)
		results = append(results, &RegenResult{SessionID: sess.ID, Generators: changed})
	}
	return results, nil
}

// Reset rebuilds a session's board from its config
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.BoardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	state := sess.Board.Reset()

	events := []GameEvent{{
		Type:      EventReset,
		Message:   "Board reset to initial state",
		Timestamp: time.Now(),
	}}
	events = append(events, boardEvents(sess.Board.DrainEvents())...)
	s.record(sess.ID, events)

	return state, nil
}

// GetBoardState retrieves the current board state
func (s *gameServiceImpl) GetBoardState(ctx context.Context, sessionID string) (*engine.BoardState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Board.GetState(), nil
}

// GetDropHistory returns paginated drop history
func (s *gameServiceImpl) GetDropHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Board.GetDropHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > engine.MaxHistoryPage {
		opts.Limit = engine.MaxHistoryPage
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	drops := []engine.DropRecord{}
	if start < total {
		if opts.Order == "desc" {
			for i := total - 1 - start; i >= total-end; i-- {
				drops = append(drops, history[i])
			}
		} else {
			drops = append(drops, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Drops:       drops,
		TotalDrops:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// GetMergeHints lists available merges and whether the board is stuck
func (s *gameServiceImpl) GetMergeHints(ctx context.Context, sessionID string) (*MergeHints, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	grid := sess.Board.Grid()
	hints := &MergeHints{
		Pairs:      engine.FindMergeablePairs(grid),
		EmptySlots: grid.EmptyCount(),
	}
	if hints.Pairs == nil {
		hints.Pairs = []engine.MergePair{}
	}
	if hints.EmptySlots > 0 {
		for _, g := range sess.Board.Generators() {
			if g.Energy() >= g.EnergyCost() {
				hints.CanSpawn = true
				break
			}
		}
	}
	hints.Stuck = len(hints.Pairs) == 0 && !hints.CanSpawn
	return hints, nil
}

// DescribeSlot reports the slot geometry, its occupant and merge partners
func (s *gameServiceImpl) DescribeSlot(ctx context.Context, sessionID string, x, y int) (*SlotInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	grid := sess.Board.Grid()
	info := &SlotInfo{X: x, Y: y, Valid: grid.IsValidCoord(x, y)}
	if !info.Valid {
		return info, nil
	}
	pos := grid.GetSlotPosition(x, y)
	info.Position = &pos

	occupant := grid.GetOccupant(x, y)
	if occupant == nil {
		return info, nil
	}
	v := occupant.View()
	info.Occupant = &v
	for _, other := range grid.Occupants() {
		if engine.CanMerge(occupant, other) {
			info.MergeWith = append(info.MergeWith, other.Coords())
		}
	}
	return info, nil
}

// ListConfigs returns available board configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific board configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.BoardConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a board configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.BoardConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// record forwards events to the sink. Sink failures never fail the operation.
func (s *gameServiceImpl) record(sessionID string, events []GameEvent) {
	if s.sink == nil || len(events) == 0 {
		return
	}
	if err := s.sink.Record(sessionID, events); err != nil {
		log.Printf("[JOURNAL] warning: failed to record %d events for session %s: %v", len(events), sessionID, err)
	}
}

func boardEvents(evs []engine.BoardEvent) []GameEvent {
	out := make([]GameEvent, 0, len(evs))
	for _, ev := range evs {
		c := ev.Coord
		ge := GameEvent{
			Type:      string(ev.Kind),
			ItemID:    ev.ItemID,
			TypeID:    ev.TypeID,
			Timestamp: ev.Timestamp,
			Coord:     &c,
		}
		switch ev.Kind {
		case engine.EventSpawned:
			ge.Type = EventSpawned
			ge.Message = fmt.Sprintf("%s appeared at (%d,%d)", ev.TypeID, c.X, c.Y)
		case engine.EventDestroyed:
			ge.Type = EventDestroyed
			ge.Message = fmt.Sprintf("%s at (%d,%d) was consumed", ev.TypeID, c.X, c.Y)
		case engine.EventMoved:
			ge.Type = EventMoved
			ge.Message = fmt.Sprintf("%s settled at (%d,%d)", ev.TypeID, c.X, c.Y)
		}
		out = append(out, ge)
	}
	return out
}

func outcomeEvent(rec *engine.DropRecord, message string) GameEvent {
	ev := GameEvent{
		Message:   message,
		Timestamp: time.Now(),
		ItemID:    rec.ItemID,
		TypeID:    rec.TypeID,
		Coord:     rec.Target,
	}
	switch rec.Outcome {
	case engine.OutcomeMerge:
		ev.Type = EventMerged
		ev.ItemID = rec.ResultItemID
		ev.TypeID = rec.ResultTypeID
	case engine.OutcomeMove:
		ev.Type = EventMoved
	default:
		ev.Type = EventReverted
		from := rec.From
		ev.Coord = &from
	}
	return ev
}

func energyEvent(v engine.GeneratorView) GameEvent {
	return GameEvent{
		Type:      EventEnergy,
		Message:   fmt.Sprintf("Generator %s energy %d/%d", v.ID, v.Energy, v.MaxEnergy),
		Timestamp: time.Now(),
		TypeID:    v.TypeID,
	}
}
