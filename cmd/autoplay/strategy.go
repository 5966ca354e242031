package main

import (
	"github.com/wricardo/mcp-training/mergegame/game/engine"
	"github.com/wricardo/mcp-training/mergegame/game/service"
)

// ActionKind is what the player does next
type ActionKind string

const (
	ActionMerge ActionKind = "merge"
	ActionSpawn ActionKind = "spawn"
	ActionStop  ActionKind = "stop"
)

// Action is one step chosen by the strategy
type Action struct {
	Kind        ActionKind
	Pair        engine.MergePair
	GeneratorID string
	Reason      string
}

// GreedyStrategy merges whenever it can, lowest level first, and otherwise
// spends energy on the generator with the most of it.
type GreedyStrategy struct {
	// TargetLevel stops play once an item of this level exists. Zero plays until stuck.
	TargetLevel int
}

// NextAction picks the next step from a board snapshot and its merge hints
func (s *GreedyStrategy) NextAction(state *engine.BoardState, hints *service.MergeHints) Action {
	if s.TargetLevel > 0 && state.Highest >= s.TargetLevel {
		return Action{Kind: ActionStop, Reason: "target level reached"}
	}

	if len(hints.Pairs) > 0 {
		levels := make(map[string]int, len(state.Items))
		for _, item := range state.Items {
			levels[item.ID] = item.Level
		}
		best := hints.Pairs[0]
		for _, p := range hints.Pairs[1:] {
			if levels[p.SourceID] < levels[best.SourceID] {
				best = p
			}
		}
		return Action{Kind: ActionMerge, Pair: best}
	}

	if state.EmptySlots == 0 {
		return Action{Kind: ActionStop, Reason: "board full with no merges"}
	}

	var pick *engine.GeneratorView
	for i := range state.Generators {
		g := &state.Generators[i]
		if g.Energy < g.EnergyCost {
			continue
		}
		if pick == nil || g.Energy > pick.Energy {
			pick = g
		}
	}
	if pick == nil {
		return Action{Kind: ActionStop, Reason: "out of energy"}
	}
	return Action{Kind: ActionSpawn, GeneratorID: pick.ID}
}
