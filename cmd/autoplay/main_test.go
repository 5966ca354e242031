package main

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/wricardo/mcp-training/mergegame/api"
	"github.com/wricardo/mcp-training/mergegame/game/config"
	"github.com/wricardo/mcp-training/mergegame/game/engine"
	"github.com/wricardo/mcp-training/mergegame/game/service"
	"github.com/wricardo/mcp-training/mergegame/game/session"
)

func miniConfig() *engine.BoardConfig {
	return &engine.BoardConfig{
		Name:        "mini",
		Description: "two slots, three levels",
		Width:       2,
		Height:      1,
		CellSize:    1,
		ItemTypes: []engine.ItemTypeDef{
			{ID: "a", Next: "b"},
			{ID: "b", Next: "c"},
			{ID: "c"},
		},
		Generators: []engine.GeneratorConfig{
			{ID: "gen", ItemType: "a", MaxEnergy: 3, EnergyCost: 1},
		},
		Messages: engine.BoardMessages{
			Welcome:     "hi",
			Merged:      "Merged into %s!",
			BoardFull:   "full",
			OutOfEnergy: "empty",
		},
	}
}

func startServer(t *testing.T) string {
	t.Helper()
	configs, err := config.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("config.NewManager: %v", err)
	}
	if err := configs.SaveConfig("mini", miniConfig()); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	svc := service.NewGameService(session.NewManager(), configs)
	server := httptest.NewServer(api.NewServer(svc, nil))
	t.Cleanup(server.Close)
	return server.URL
}

func TestGreedyStrategy_NextAction(t *testing.T) {
	items := []engine.ItemView{
		{ID: "hi1", Level: 3}, {ID: "hi2", Level: 3},
		{ID: "lo1", Level: 1}, {ID: "lo2", Level: 1},
	}
	gens := []engine.GeneratorView{
		{ID: "weak", Energy: 2, EnergyCost: 1},
		{ID: "strong", Energy: 9, EnergyCost: 1},
		{ID: "pricey", Energy: 50, EnergyCost: 60},
	}

	tests := []struct {
		name     string
		strategy GreedyStrategy
		state    *engine.BoardState
		hints    *service.MergeHints
		wantKind ActionKind
		wantID   string
	}{
		{
			name:     "lowest level merge first",
			state:    &engine.BoardState{Items: items, EmptySlots: 1},
			hints:    &service.MergeHints{Pairs: []engine.MergePair{{SourceID: "hi1", TargetID: "hi2"}, {SourceID: "lo1", TargetID: "lo2"}}},
			wantKind: ActionMerge,
			wantID:   "lo1",
		},
		{
			name:     "spawn from the fullest affordable generator",
			state:    &engine.BoardState{EmptySlots: 2, Generators: gens},
			hints:    &service.MergeHints{},
			wantKind: ActionSpawn,
			wantID:   "strong",
		},
		{
			name:     "stuck board",
			state:    &engine.BoardState{EmptySlots: 0, Generators: gens},
			hints:    &service.MergeHints{},
			wantKind: ActionStop,
		},
		{
			name:     "no affordable generator",
			state:    &engine.BoardState{EmptySlots: 3, Generators: gens[2:]},
			hints:    &service.MergeHints{},
			wantKind: ActionStop,
		},
		{
			name:     "target reached",
			strategy: GreedyStrategy{TargetLevel: 3},
			state:    &engine.BoardState{Highest: 3, EmptySlots: 3, Generators: gens},
			hints:    &service.MergeHints{},
			wantKind: ActionStop,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action := tt.strategy.NextAction(tt.state, tt.hints)
			if action.Kind != tt.wantKind {
				t.Fatalf("Kind = %s, want %s (%+v)", action.Kind, tt.wantKind, action)
			}
			switch action.Kind {
			case ActionMerge:
				if action.Pair.SourceID != tt.wantID {
					t.Errorf("merge source = %s, want %s", action.Pair.SourceID, tt.wantID)
				}
			case ActionSpawn:
				if action.GeneratorID != tt.wantID {
					t.Errorf("generator = %s, want %s", action.GeneratorID, tt.wantID)
				}
			case ActionStop:
				if action.Reason == "" {
					t.Error("stop should carry a reason")
				}
			}
		})
	}
}

func TestPlay_UntilStuck(t *testing.T) {
	ctx := context.Background()
	client := NewClient(startServer(t))
	if _, err := client.CreateSession(ctx, "mini"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// spawn, spawn, merge, spawn fills both slots with a and b
	sum, err := play(ctx, client, &GreedyStrategy{}, playOptions{maxSteps: 50})
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if sum.Spawns != 3 || sum.Merges != 1 || sum.Highest != 2 {
		t.Errorf("Unexpected summary: %+v", sum)
	}
	if sum.Reason != "board full with no merges" {
		t.Errorf("Reason = %q", sum.Reason)
	}

	state, err := client.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if state.EmptySlots != 2 {
		t.Errorf("EmptySlots after reset = %d, want 2", state.EmptySlots)
	}
}

func TestPlay_StepLimitAndTarget(t *testing.T) {
	ctx := context.Background()
	client := NewClient(startServer(t))
	client.CreateSession(ctx, "mini")

	sum, err := play(ctx, client, &GreedyStrategy{}, playOptions{maxSteps: 1})
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if sum.Steps != 1 || sum.Reason != "step limit" {
		t.Errorf("Unexpected summary: %+v", sum)
	}

	sum, _ = play(ctx, client, &GreedyStrategy{TargetLevel: 2}, playOptions{maxSteps: 50})
	if sum.Reason != "target level reached" || sum.Highest != 2 {
		t.Errorf("Unexpected summary: %+v", sum)
	}
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()
	client := NewClient(startServer(t))

	if _, err := client.CreateSession(ctx, "missing"); err == nil {
		t.Error("Expected error for unknown config")
	}

	client.sessionID = "zzzz"
	if _, err := client.GetState(ctx); err == nil {
		t.Error("Expected error for unknown session")
	}
}
