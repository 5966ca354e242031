package engine

import (
	"fmt"
	"sync"
)

// TriggerReason explains a generator trigger outcome
type TriggerReason string

const (
	TriggerSpawned            TriggerReason = "spawned"
	TriggerInsufficientEnergy TriggerReason = "insufficient_energy"
	TriggerBoardFull          TriggerReason = "board_full"
	TriggerSpawnFailed        TriggerReason = "spawn_failed"
)

// TriggerResult is the outcome of one generator activation
type TriggerResult struct {
	Success      bool          `json:"success"`
	Reason       TriggerReason `json:"reason"`
	Item         *Item         `json:"-"`
	Coord        *Coord        `json:"coord,omitempty"`
	EnergyBefore int           `json:"energy_before"`
	EnergyAfter  int           `json:"energy_after"`
	Depleted     bool          `json:"depleted"`
}

// Generator spawns base items into empty slots, paying energyCost per success
type Generator struct {
	mu         sync.Mutex
	id         string
	itemType   *ItemType
	energy     int
	maxEnergy  int
	energyCost int
	grid       *Grid
}

// NewGenerator creates a generator with full energy
func NewGenerator(id string, grid *Grid, t *ItemType, maxEnergy, energyCost int) (*Generator, error) {
	if grid == nil {
		return nil, ErrNilGrid
	}
	if t == nil {
		return nil, fmt.Errorf("%w: generator %s", ErrNilItemType, id)
	}
	if energyCost <= 0 {
		return nil, fmt.Errorf("%w: energy cost must be positive, got %d", ErrInvalidEnergy, energyCost)
	}
	if maxEnergy < 0 || maxEnergy > MaxGeneratorPool {
		return nil, fmt.Errorf("%w: max energy must be between 0 and %d, got %d", ErrInvalidEnergy, MaxGeneratorPool, maxEnergy)
	}
	return &Generator{
		id:         id,
		itemType:   t,
		energy:     maxEnergy,
		maxEnergy:  maxEnergy,
		energyCost: energyCost,
		grid:       grid,
	}, nil
}

// ID returns the generator identifier
func (g *Generator) ID() string { return g.id }

// ItemType returns the type this generator spawns
func (g *Generator) ItemType() *ItemType { return g.itemType }

// MaxEnergy returns the energy cap
func (g *Generator) MaxEnergy() int { return g.maxEnergy }

// EnergyCost returns the energy charged per successful spawn
func (g *Generator) EnergyCost() int { return g.energyCost }

// Energy returns the current energy
func (g *Generator) Energy() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.energy
}

// Depleted drives the "empty" look and is true once no energy remains
func (g *Generator) Depleted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.energy <= 0
}

// TryTrigger spawns one item if energy and space allow
func (g *Generator) TryTrigger() bool {
	return g.Trigger().Success
}

// HandleClick is the click-sink entry point
func (g *Generator) HandleClick() bool {
	return g.TryTrigger()
}

// Trigger attempts a spawn. Energy is charged only when an item was created.
func (g *Generator) Trigger() TriggerResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	res := TriggerResult{EnergyBefore: g.energy, EnergyAfter: g.energy}

	if g.energy < g.energyCost {
		res.Reason = TriggerInsufficientEnergy
		return g.finish(res)
	}

	grid := g.grid
	grid.mu.Lock()
	defer grid.mu.Unlock()

	c, ok := grid.findEmptySlotLocked().Get()
	if !ok {
		res.Reason = TriggerBoardFull
		return g.finish(res)
	}

	item := grid.spawnLocked(g.itemType, c.X, c.Y)
	if item == nil {
		grid.logger.Printf("[GENERATOR] %s could not spawn %s at (%d,%d)", g.id, g.itemType, c.X, c.Y)
		res.Reason = TriggerSpawnFailed
		return g.finish(res)
	}

	g.energy -= g.energyCost
	res.Success = true
	res.Reason = TriggerSpawned
	res.Item = item
	res.Coord = &c
	res.EnergyAfter = g.energy
	return g.finish(res)
}

func (g *Generator) finish(res TriggerResult) TriggerResult {
	res.Depleted = g.energy <= 0
	return res
}

// Regenerate adds energy up to the cap and returns the new level
func (g *Generator) Regenerate(amount int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if amount <= 0 {
		return g.energy
	}
	g.energy += amount
	if g.energy > g.maxEnergy {
		g.energy = g.maxEnergy
	}
	return g.energy
}

// View returns the serializable form of the generator
func (g *Generator) View() GeneratorView {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GeneratorView{
		ID:         g.id,
		TypeID:     g.itemType.ID,
		Energy:     g.energy,
		MaxEnergy:  g.maxEnergy,
		EnergyCost: g.energyCost,
		Depleted:   g.energy <= 0,
	}
}
