package engine

import (
	"fmt"
	"strings"
)

// ItemTypeDef is the authoring form of an ItemType. Next names the successor ID.
type ItemTypeDef struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Visual      string `json:"visual,omitempty" yaml:"visual,omitempty"`
	Level       int    `json:"level,omitempty" yaml:"level,omitempty"`
	Next        string `json:"next,omitempty" yaml:"next,omitempty"`
}

// GeneratorConfig describes one energy-gated spawner
type GeneratorConfig struct {
	ID           string `json:"id" yaml:"id"`
	ItemType     string `json:"item_type" yaml:"item_type"`
	MaxEnergy    int    `json:"max_energy" yaml:"max_energy"`
	EnergyCost   int    `json:"energy_cost" yaml:"energy_cost"`
	RegenPerTick int    `json:"regen_per_tick,omitempty" yaml:"regen_per_tick,omitempty"`
}

// PlacementConfig seeds an item onto the board at reset
type PlacementConfig struct {
	ItemType string `json:"item_type" yaml:"item_type"`
	X        int    `json:"x" yaml:"x"`
	Y        int    `json:"y" yaml:"y"`
}

// BoardMessages are the player-facing status strings
type BoardMessages struct {
	Welcome     string `json:"welcome" yaml:"welcome"`
	Merged      string `json:"merged" yaml:"merged"`
	Moved       string `json:"moved,omitempty" yaml:"moved,omitempty"`
	Reverted    string `json:"reverted,omitempty" yaml:"reverted,omitempty"`
	Spawned     string `json:"spawned,omitempty" yaml:"spawned,omitempty"`
	BoardFull   string `json:"board_full" yaml:"board_full"`
	OutOfEnergy string `json:"out_of_energy" yaml:"out_of_energy"`
}

// BoardConfig defines a board layout, its item chains and generators
type BoardConfig struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Width       int               `json:"width" yaml:"width"`
	Height      int               `json:"height" yaml:"height"`
	CellSize    float64           `json:"cell_size" yaml:"cell_size"`
	Origin      Vec2              `json:"origin" yaml:"origin"`
	ItemTypes   []ItemTypeDef     `json:"item_types" yaml:"item_types"`
	Generators  []GeneratorConfig `json:"generators" yaml:"generators"`
	Initial     []PlacementConfig `json:"initial,omitempty" yaml:"initial,omitempty"`
	Messages    BoardMessages     `json:"messages" yaml:"messages"`
}

// ValidateBoardConfig validates a board configuration for correctness and playability
func ValidateBoardConfig(config *BoardConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if config.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if config.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidConfig)
	}

	if config.Width < MinGridSize || config.Width > MaxGridSize {
		return fmt.Errorf("%w: width must be between %d and %d, got %d", ErrInvalidConfig, MinGridSize, MaxGridSize, config.Width)
	}
	if config.Height < MinGridSize || config.Height > MaxGridSize {
		return fmt.Errorf("%w: height must be between %d and %d, got %d", ErrInvalidConfig, MinGridSize, MaxGridSize, config.Height)
	}
	if _, err := NewTransform(config.Origin, config.CellSize, config.Width, config.Height); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if len(config.ItemTypes) == 0 {
		return fmt.Errorf("%w: at least one item type is required", ErrInvalidConfig)
	}
	catalog, err := BuildCatalog(config.ItemTypes)
	if err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	if len(config.Generators) == 0 {
		return fmt.Errorf("%w: at least one generator is required", ErrInvalidConfig)
	}
	genIDs := make(map[string]bool)
	for i, g := range config.Generators {
		if g.ID == "" {
			return fmt.Errorf("%w: generators[%d].id is required", ErrInvalidConfig, i)
		}
		if genIDs[g.ID] {
			return fmt.Errorf("%w: duplicate generator %s", ErrInvalidConfig, g.ID)
		}
		genIDs[g.ID] = true
		if _, err := catalog.Lookup(g.ItemType); err != nil {
			return fmt.Errorf("config validation: generator %s: %w", g.ID, err)
		}
		if g.EnergyCost <= 0 {
			return fmt.Errorf("%w: generator %s energy_cost must be positive, got %d", ErrInvalidConfig, g.ID, g.EnergyCost)
		}
		if g.MaxEnergy < 0 || g.MaxEnergy > MaxGeneratorPool {
			return fmt.Errorf("%w: generator %s max_energy must be between 0 and %d, got %d", ErrInvalidConfig, g.ID, MaxGeneratorPool, g.MaxEnergy)
		}
		if g.RegenPerTick < 0 {
			return fmt.Errorf("%w: generator %s regen_per_tick cannot be negative", ErrInvalidConfig, g.ID)
		}
	}

	occupied := make(map[Coord]bool)
	for i, p := range config.Initial {
		if _, err := catalog.Lookup(p.ItemType); err != nil {
			return fmt.Errorf("config validation: initial[%d]: %w", i, err)
		}
		if p.X < 0 || p.X >= config.Width || p.Y < 0 || p.Y >= config.Height {
			return fmt.Errorf("%w: initial[%d] at (%d,%d) is outside the %dx%d grid", ErrInvalidConfig, i, p.X, p.Y, config.Width, config.Height)
		}
		c := Coord{X: p.X, Y: p.Y}
		if occupied[c] {
			return fmt.Errorf("%w: initial[%d] overlaps another placement at (%d,%d)", ErrInvalidConfig, i, p.X, p.Y)
		}
		occupied[c] = true
	}

	if config.Messages.Welcome == "" {
		return fmt.Errorf("%w: messages.welcome is required", ErrInvalidConfig)
	}
	if !strings.Contains(config.Messages.Merged, "%s") {
		return fmt.Errorf("%w: messages.merged must contain %%s for the item name", ErrInvalidConfig)
	}
	if config.Messages.BoardFull == "" {
		return fmt.Errorf("%w: messages.board_full is required", ErrInvalidConfig)
	}
	if config.Messages.OutOfEnergy == "" {
		return fmt.Errorf("%w: messages.out_of_energy is required", ErrInvalidConfig)
	}

	return nil
}

// DefaultBoardConfig returns the built-in classic board used when no config is loaded
func DefaultBoardConfig() *BoardConfig {
	return &BoardConfig{
		Name:        "classic",
		Description: "A 7x9 garden board with one seed generator and a six step plant chain",
		Width:       7,
		Height:      9,
		CellSize:    1,
		ItemTypes: []ItemTypeDef{
			{ID: "seed", DisplayName: "Seed", Visual: ".", Next: "sprout"},
			{ID: "sprout", DisplayName: "Sprout", Visual: ",", Next: "herb"},
			{ID: "herb", DisplayName: "Herb", Visual: "h", Next: "bush"},
			{ID: "bush", DisplayName: "Bush", Visual: "b", Next: "tree"},
			{ID: "tree", DisplayName: "Tree", Visual: "T", Next: "orchard"},
			{ID: "orchard", DisplayName: "Orchard", Visual: "O"},
		},
		Generators: []GeneratorConfig{
			{ID: "seed-bag", ItemType: "seed", MaxEnergy: 100, EnergyCost: 1, RegenPerTick: 1},
		},
		Messages: BoardMessages{
			Welcome:     "Tap the seed bag to plant seeds. Drag matching plants together to grow them.",
			Merged:      "Merged into %s!",
			Moved:       "Moved.",
			Reverted:    "That drop doesn't fit there.",
			Spawned:     "A new %s appeared.",
			BoardFull:   "The board is full. Merge something first.",
			OutOfEnergy: "The generator is out of energy.",
		},
	}
}
