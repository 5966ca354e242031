package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/mergegame/game/engine"
	"github.com/wricardo/mcp-training/mergegame/game/service"
)

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
	created  int
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(id string, config *engine.BoardConfig) (*service.Session, error) {
	// Generate ID if empty (mimics real session manager behavior)
	if id == "" {
		m.created++
		id = fmt.Sprintf("test_%d", m.created)
	}

	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	board, err := engine.NewBoard(config)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &service.Session{
		ID:             id,
		Board:          board,
		Config:         config,
		CreatedAt:      now.Add(time.Duration(m.created) * time.Millisecond),
		LastAccessedAt: now,
	}

	m.sessions[id] = session
	return session, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	session, exists := m.sessions[id]
	if !exists {
		return nil, errors.New("session not found")
	}
	return session, nil
}

func (m *MockSessionManager) GetOrCreate(id string, config *engine.BoardConfig) (*service.Session, error) {
	if session, exists := m.sessions[id]; exists {
		return session, nil
	}
	return m.Create(id, config)
}

func (m *MockSessionManager) List() []*service.Session {
	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return errors.New("session not found")
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	if session, exists := m.sessions[id]; exists {
		session.LastAccessedAt = time.Now()
		return nil
	}
	return errors.New("session not found")
}

// MockConfigManager implements service.ConfigManager for testing
type MockConfigManager struct {
	configs map[string]*engine.BoardConfig
	saved   map[string]*engine.BoardConfig
}

func createTestBoardConfig() *engine.BoardConfig {
	return &engine.BoardConfig{
		Name:        "test",
		Description: "Test board",
		Width:       3,
		Height:      1,
		CellSize:    1,
		ItemTypes: []engine.ItemTypeDef{
			{ID: "egg", DisplayName: "Egg", Next: "chick"},
			{ID: "chick", DisplayName: "Chick", Next: "hen"},
			{ID: "hen", DisplayName: "Hen"},
		},
		Generators: []engine.GeneratorConfig{
			{ID: "coop", ItemType: "egg", MaxEnergy: 4, EnergyCost: 1, RegenPerTick: 1},
		},
		Messages: engine.BoardMessages{
			Welcome:     "Welcome to test!",
			Merged:      "Hatched a %s!",
			Moved:       "Moved.",
			Reverted:    "Reverted.",
			Spawned:     "New %s.",
			BoardFull:   "Full!",
			OutOfEnergy: "Empty!",
		},
	}
}

func NewMockConfigManager() *MockConfigManager {
	defaultConfig := createTestBoardConfig()
	return &MockConfigManager{
		configs: map[string]*engine.BoardConfig{
			"test":    defaultConfig,
			"default": defaultConfig,
		},
		saved: make(map[string]*engine.BoardConfig),
	}
}

func (m *MockConfigManager) LoadConfig(name string) (*engine.BoardConfig, error) {
	config, exists := m.configs[name]
	if !exists {
		return nil, service.ErrConfigNotFound
	}
	return config, nil
}

func (m *MockConfigManager) ListConfigs() ([]*service.ConfigInfo, error) {
	result := make([]*service.ConfigInfo, 0, len(m.configs))
	for name, config := range m.configs {
		result = append(result, &service.ConfigInfo{
			Filename:    name + ".yaml",
			ConfigID:    name,
			Name:        config.Name,
			Description: config.Description,
			Width:       config.Width,
			Height:      config.Height,
		})
	}
	return result, nil
}

func (m *MockConfigManager) GetDefault() *engine.BoardConfig {
	return m.configs["default"]
}

func (m *MockConfigManager) SaveConfig(name string, config *engine.BoardConfig) error {
	if err := engine.ValidateBoardConfig(config); err != nil {
		return err
	}
	m.saved[name] = config
	return nil
}

// MockEventSink captures recorded events
type MockEventSink struct {
	RecordFunc func(sessionID string, events []service.GameEvent) error
	batches    map[string][][]service.GameEvent
}

func (m *MockEventSink) Record(sessionID string, events []service.GameEvent) error {
	if m.batches == nil {
		m.batches = make(map[string][][]service.GameEvent)
	}
	m.batches[sessionID] = append(m.batches[sessionID], events)
	if m.RecordFunc != nil {
		return m.RecordFunc(sessionID, events)
	}
	return nil
}

func newTestService(t *testing.T, opts ...service.Option) (service.GameService, *service.SessionInfo) {
	t.Helper()
	svc := service.NewGameService(NewMockSessionManager(), NewMockConfigManager(), opts...)
	info, err := svc.CreateSession(context.Background(), "test")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	return svc, info
}

// Test cases
func TestGameService_CreateSession(t *testing.T) {
	ctx := context.Background()
	svc := service.NewGameService(NewMockSessionManager(), NewMockConfigManager())

	tests := []struct {
		name       string
		configName string
		wantErr    bool
	}{
		{
			name:       "create with default config",
			configName: "",
			wantErr:    false,
		},
		{
			name:       "create with specific config",
			configName: "test",
			wantErr:    false,
		},
		{
			name:       "create with invalid config",
			configName: "nonexistent",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := svc.CreateSession(ctx, tt.configName)
			if (err != nil) != tt.wantErr {
				t.Errorf("CreateSession() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				if !errors.Is(err, service.ErrConfigNotFound) {
					t.Errorf("Expected ErrConfigNotFound, got %v", err)
				}
				return
			}
			if session == nil || session.BoardState == nil {
				t.Fatal("CreateSession() returned nil session or state")
			}
			if session.ConfigName == "" {
				t.Error("Expected a config identifier")
			}
		})
	}
}

func TestGameService_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, info := newTestService(t)

	got, err := svc.GetSession(ctx, info.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.ID != info.ID || got.ConfigName == "" {
		t.Errorf("Unexpected session %+v", got)
	}

	second, _ := svc.CreateSession(ctx, "")
	list, _ := svc.ListSessions(ctx)
	if len(list) != 2 || list[0].ID != info.ID || list[1].ID != second.ID {
		t.Errorf("Expected sessions in creation order, got %d sessions", len(list))
	}

	if err := svc.DeleteSession(ctx, info.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := svc.GetSession(ctx, info.ID); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after delete, got %v", err)
	}
	if err := svc.DeleteSession(ctx, info.ID); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
}

func TestGameService_TriggerAndMerge(t *testing.T) {
	ctx := context.Background()
	svc, info := newTestService(t)

	first, err := svc.TriggerGenerator(ctx, info.ID, "coop")
	if err != nil {
		t.Fatalf("TriggerGenerator: %v", err)
	}
	if !first.Success || first.Item == nil || first.Item.TypeID != "egg" {
		t.Fatalf("Expected an egg, got %+v", first)
	}
	if first.Generator.Energy != 3 {
		t.Errorf("Expected energy 3, got %d", first.Generator.Energy)
	}
	if !hasEvent(first.Events, service.EventSpawned) || !hasEvent(first.Events, service.EventEnergy) {
		t.Errorf("Expected spawned and energy events, got %+v", first.Events)
	}

	if _, err := svc.TriggerGenerator(ctx, info.ID, "coop"); err != nil {
		t.Fatalf("TriggerGenerator: %v", err)
	}

	res, err := svc.DropOnSlot(ctx, info.ID, first.Item.ID, 1, 0)
	if err != nil {
		t.Fatalf("DropOnSlot: %v", err)
	}
	if res.Outcome != engine.OutcomeMerge {
		t.Fatalf("Expected merge, got %s", res.Outcome)
	}
	if res.Message != "Hatched a Chick!" {
		t.Errorf("Expected merge message, got %q", res.Message)
	}
	if res.Events[0].Type != service.EventMerged || res.Events[0].TypeID != "chick" {
		t.Errorf("Expected merged event first, got %+v", res.Events[0])
	}
	destroyed := 0
	for _, ev := range res.Events {
		if ev.Type == service.EventDestroyed {
			destroyed++
		}
	}
	if destroyed != 2 {
		t.Errorf("Expected 2 destroyed events, got %d", destroyed)
	}
	if res.BoardState.Merges != 1 || len(res.BoardState.Items) != 1 {
		t.Errorf("Expected one merged item on the board, got %+v", res.BoardState)
	}
}

func TestGameService_Errors(t *testing.T) {
	ctx := context.Background()
	svc, info := newTestService(t)

	tests := []struct {
		name   string
		call   func() error
		target error
	}{
		{"drop unknown session", func() error {
			_, err := svc.DropOnSlot(ctx, "nope", "itm", 0, 0)
			return err
		}, service.ErrSessionNotFound},
		{"drop unknown item", func() error {
			_, err := svc.Drop(ctx, info.ID, "itm-missing", engine.Vec2{})
			return err
		}, engine.ErrUnknownItem},
		{"drag unknown item", func() error {
			_, err := svc.DragStart(ctx, info.ID, "itm-missing", engine.Vec2{})
			return err
		}, engine.ErrUnknownItem},
		{"unknown generator", func() error {
			_, err := svc.TriggerGenerator(ctx, info.ID, "barn")
			return err
		}, engine.ErrUnknownGenerator},
		{"state of unknown session", func() error {
			_, err := svc.GetBoardState(ctx, "nope")
			return err
		}, service.ErrSessionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.target) {
				t.Errorf("Expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestGameService_DragSequence(t *testing.T) {
	ctx := context.Background()
	svc, info := newTestService(t)
	spawn, _ := svc.TriggerGenerator(ctx, info.ID, "coop")
	id := spawn.Item.ID

	start, err := svc.DragStart(ctx, info.ID, id, engine.Vec2{X: 0.5, Y: 0.5})
	if err != nil || !start.Item.Dragging {
		t.Fatalf("DragStart: %+v %v", start, err)
	}
	moved, err := svc.DragMove(ctx, info.ID, id, engine.Vec2{X: 2.2, Y: 0.3})
	if err != nil {
		t.Fatalf("DragMove: %v", err)
	}
	if moved.Item.Position != (engine.Vec2{X: 2.2, Y: 0.3}) {
		t.Errorf("Expected item under the pointer, got %+v", moved.Item.Position)
	}
	res, err := svc.Drop(ctx, info.ID, id, engine.Vec2{X: 2.2, Y: 0.3})
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if res.Outcome != engine.OutcomeMove || res.BoardState.Rows[0][2] != id {
		t.Errorf("Expected move to (2,0), got %s", res.Outcome)
	}

	res, _ = svc.Drop(ctx, info.ID, id, engine.Vec2{X: -5, Y: 0})
	if res.Outcome != engine.OutcomeRevert {
		t.Errorf("Expected revert, got %s", res.Outcome)
	}
	if res.Events[0].Type != service.EventReverted || *res.Events[0].Coord != (engine.Coord{X: 2, Y: 0}) {
		t.Errorf("Expected reverted event at (2,0), got %+v", res.Events[0])
	}
	if len(res.Events) != 1 || hasEvent(res.Events, service.EventMoved) {
		t.Errorf("Expected only the reverted event, got %+v", res.Events)
	}
}

func TestGameService_RegenerateAll(t *testing.T) {
	ctx := context.Background()
	svc, info := newTestService(t)
	other, _ := svc.CreateSession(ctx, "test")

	svc.TriggerGenerator(ctx, info.ID, "coop")
	svc.TriggerGenerator(ctx, info.ID, "coop")

	results, err := svc.RegenerateAll(ctx, 0)
	if err != nil {
		t.Fatalf("RegenerateAll: %v", err)
	}
	if len(results) != 1 || results[0].SessionID != info.ID {
		t.Fatalf("Expected only the drained session to change, got %+v", results)
	}
	if results[0].Generators[0].Energy != 3 {
		t.Errorf("Expected energy 3 after one tick, got %d", results[0].Generators[0].Energy)
	}

	state, _ := svc.GetBoardState(ctx, other.ID)
	if state.Generators[0].Energy != 4 {
		t.Errorf("Expected untouched session at full energy, got %d", state.Generators[0].Energy)
	}
}

func TestGameService_ResetKeepsHistory(t *testing.T) {
	ctx := context.Background()
	svc, info := newTestService(t)
	spawn, _ := svc.TriggerGenerator(ctx, info.ID, "coop")
	svc.DropOnSlot(ctx, info.ID, spawn.Item.ID, 2, 0)

	state, err := svc.Reset(ctx, info.ID)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if len(state.Items) != 0 || state.Generators[0].Energy != 4 {
		t.Errorf("Expected a fresh board, got %+v", state)
	}
	if state.TotalDrops != 1 {
		t.Errorf("Expected history to survive reset, got %d drops", state.TotalDrops)
	}
}

func TestGameService_GetDropHistory(t *testing.T) {
	ctx := context.Background()
	svc, info := newTestService(t)
	spawn, _ := svc.TriggerGenerator(ctx, info.ID, "coop")

	// Five drops bouncing the egg between slots
	for i := 0; i < 5; i++ {
		svc.DropOnSlot(ctx, info.ID, spawn.Item.ID, (i+1)%3, 0)
	}

	tests := []struct {
		name      string
		opts      service.HistoryOptions
		wantLen   int
		wantFirst int
		wantNext  bool
		wantPages int
	}{
		{"defaults are newest first", service.HistoryOptions{}, 5, 5, false, 1},
		{"ascending page 1", service.HistoryOptions{Page: 1, Limit: 2, Order: "asc"}, 2, 1, true, 3},
		{"descending page 2", service.HistoryOptions{Page: 2, Limit: 2, Order: "desc"}, 2, 3, true, 3},
		{"last partial page", service.HistoryOptions{Page: 3, Limit: 2, Order: "asc"}, 1, 5, false, 3},
		{"past the end", service.HistoryOptions{Page: 9, Limit: 2, Order: "asc"}, 0, 0, false, 3},
		{"limit clamp", service.HistoryOptions{Limit: 1000}, 5, 5, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := svc.GetDropHistory(ctx, info.ID, tt.opts)
			if err != nil {
				t.Fatalf("GetDropHistory: %v", err)
			}
			if len(h.Drops) != tt.wantLen {
				t.Fatalf("Expected %d drops, got %d", tt.wantLen, len(h.Drops))
			}
			if tt.wantLen > 0 && h.Drops[0].Number != tt.wantFirst {
				t.Errorf("Expected first drop #%d, got #%d", tt.wantFirst, h.Drops[0].Number)
			}
			if h.HasNext != tt.wantNext || h.TotalPages != tt.wantPages || h.TotalDrops != 5 {
				t.Errorf("Unexpected paging %+v", h)
			}
		})
	}
}

func TestGameService_MergeHintsAndSlots(t *testing.T) {
	ctx := context.Background()
	svc, info := newTestService(t)

	hints, _ := svc.GetMergeHints(ctx, info.ID)
	if len(hints.Pairs) != 0 || !hints.CanSpawn || hints.Stuck {
		t.Errorf("Expected empty board that can spawn, got %+v", hints)
	}

	for i := 0; i < 3; i++ {
		svc.TriggerGenerator(ctx, info.ID, "coop")
	}
	hints, _ = svc.GetMergeHints(ctx, info.ID)
	if len(hints.Pairs) != 3 || hints.CanSpawn || hints.Stuck {
		t.Errorf("Expected 3 pairs on a full board, got %+v", hints)
	}

	slot, err := svc.DescribeSlot(ctx, info.ID, 0, 0)
	if err != nil {
		t.Fatalf("DescribeSlot: %v", err)
	}
	if slot.Occupant == nil || slot.Occupant.TypeID != "egg" || len(slot.MergeWith) != 2 {
		t.Errorf("Expected egg with two partners, got %+v", slot)
	}
	if slot.Position == nil || *slot.Position != (engine.Vec2{X: 0.5, Y: 0.5}) {
		t.Errorf("Expected slot centre (0.5,0.5), got %v", slot.Position)
	}

	outside, _ := svc.DescribeSlot(ctx, info.ID, 5, 5)
	if outside.Valid || outside.Position != nil {
		t.Errorf("Expected invalid slot, got %+v", outside)
	}
}

func TestGameService_StuckBoard(t *testing.T) {
	ctx := context.Background()
	svc, info := newTestService(t)

	s1, _ := svc.TriggerGenerator(ctx, info.ID, "coop")
	svc.TriggerGenerator(ctx, info.ID, "coop")
	svc.DropOnSlot(ctx, info.ID, s1.Item.ID, 1, 0)
	svc.TriggerGenerator(ctx, info.ID, "coop")
	svc.TriggerGenerator(ctx, info.ID, "coop")

	// Energy is spent: chick at (1,0), eggs at (0,0) and (2,0)
	hints, _ := svc.GetMergeHints(ctx, info.ID)
	if hints.CanSpawn {
		t.Error("Expected no spawn possible with zero energy")
	}
	if len(hints.Pairs) != 1 || hints.Stuck {
		t.Errorf("Expected the egg pair to keep the board alive, got %+v", hints)
	}
}

func TestGameService_EventSink(t *testing.T) {
	ctx := context.Background()
	sink := &MockEventSink{
		RecordFunc: func(sessionID string, events []service.GameEvent) error {
			return errors.New("disk full")
		},
	}
	svc, info := newTestService(t, service.WithEventSink(sink))

	// Sink failures must not fail the operation
	res, err := svc.TriggerGenerator(ctx, info.ID, "coop")
	if err != nil || !res.Success {
		t.Fatalf("Expected trigger to succeed despite sink error: %v", err)
	}
	if len(sink.batches[info.ID]) != 1 {
		t.Errorf("Expected one recorded batch, got %d", len(sink.batches[info.ID]))
	}
	if _, err := svc.GetBoardState(ctx, info.ID); err != nil {
		t.Fatal(err)
	}
	if len(sink.batches[info.ID]) != 1 {
		t.Error("Expected reads not to be recorded")
	}
}

func TestGameService_Configs(t *testing.T) {
	ctx := context.Background()
	svc := service.NewGameService(NewMockSessionManager(), NewMockConfigManager())

	configs, err := svc.ListConfigs(ctx)
	if err != nil || len(configs) != 2 {
		t.Fatalf("Expected 2 configs, got %d (%v)", len(configs), err)
	}
	cfg, err := svc.LoadConfig(ctx, "test")
	if err != nil || cfg.Width != 3 {
		t.Fatalf("LoadConfig: %+v %v", cfg, err)
	}
	if err := svc.SaveConfig(ctx, "broken", &engine.BoardConfig{}); err == nil {
		t.Error("Expected invalid config to be rejected")
	}
	if err := svc.SaveConfig(ctx, "copy", createTestBoardConfig()); err != nil {
		t.Errorf("SaveConfig: %v", err)
	}
}

func hasEvent(events []service.GameEvent, typ string) bool {
	for _, ev := range events {
		if ev.Type == typ {
			return true
		}
	}
	return false
}
