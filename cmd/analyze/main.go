// Command analyze prints quick, human-readable heuristics about the board
// configurations in a configs directory: chain depths, how many spawns each
// level costs, and the highest item each generator can afford from a full
// charge plus a number of regeneration ticks.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/mergegame/game/config"
	"github.com/wricardo/mcp-training/mergegame/game/engine"
)

// ChainSummary describes one item chain from its root
type ChainSummary struct {
	Root   string
	Levels []string
}

// GeneratorSummary is the energy budget of one generator
type GeneratorSummary struct {
	ID       string
	ItemType string
	Budget   int    // spawns affordable over the horizon
	Reach    int    // chain steps reachable from the spawned type, energy only
	Limited  int    // Reach capped by board space
	TopItem  string // type at Limited, empty when nothing is affordable
	SpaceCap bool   // board space, not energy, is the binding limit
}

// Analysis is the report for one configuration
type Analysis struct {
	Name       string
	Width      int
	Height     int
	Slots      int
	Initial    int
	Chains     []ChainSummary
	Generators []GeneratorSummary
}

// spawnBudget is how many spawns a generator affords from a full charge
// plus ticks regeneration steps
func spawnBudget(g engine.GeneratorConfig, ticks int) int {
	energy := g.MaxEnergy
	if ticks > 0 {
		energy += ticks * g.RegenPerTick
	}
	return energy / g.EnergyCost
}

// analyzeConfig computes the report for a validated configuration
func analyzeConfig(cfg *engine.BoardConfig, ticks int) (*Analysis, error) {
	catalog, err := engine.BuildCatalog(cfg.ItemTypes)
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		Name:    cfg.Name,
		Width:   cfg.Width,
		Height:  cfg.Height,
		Slots:   cfg.Width * cfg.Height,
		Initial: len(cfg.Initial),
	}

	for _, root := range catalog.Roots() {
		cs := ChainSummary{Root: root.ID}
		for _, t := range engine.ChainFrom(root) {
			cs.Levels = append(cs.Levels, t.ID)
		}
		a.Chains = append(a.Chains, cs)
	}

	// Building step n of a chain holds at most n items at once, so the
	// number of free slots caps the reachable step.
	free := a.Slots - a.Initial
	for _, g := range cfg.Generators {
		t, err := catalog.Lookup(g.ItemType)
		if err != nil {
			return nil, err
		}
		chain := engine.ChainFrom(t)

		gs := GeneratorSummary{
			ID:       g.ID,
			ItemType: g.ItemType,
			Budget:   spawnBudget(g, ticks),
		}
		gs.Reach = engine.ReachableLevel(gs.Budget, len(chain))
		gs.Limited = gs.Reach
		if gs.Limited > free {
			gs.Limited = free
			gs.SpaceCap = true
		}
		if gs.Limited > 0 {
			gs.TopItem = chain[gs.Limited-1].ID
		}
		a.Generators = append(a.Generators, gs)
	}
	return a, nil
}

func printAnalysis(w io.Writer, a *Analysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Grid: %d x %d (%d slots, %d pre-placed)\n", a.Width, a.Height, a.Slots, a.Initial)

	for _, c := range a.Chains {
		fmt.Fprintf(w, "Chain %s (%d levels): %s\n", c.Root, len(c.Levels), strings.Join(c.Levels, " > "))
		for i, id := range c.Levels {
			fmt.Fprintf(w, "   L%-2d %-12s %6d spawns\n", i+1, id, engine.SpawnsForLevel(i+1))
		}
	}

	for _, g := range a.Generators {
		fmt.Fprintf(w, "Generator %s (%s): %d spawns affordable\n", g.ID, g.ItemType, g.Budget)
		switch {
		case g.TopItem == "":
			fmt.Fprintf(w, "WARNING: %s cannot afford a single spawn\n", g.ID)
		case g.SpaceCap:
			fmt.Fprintf(w, "   best: %s (step %d), limited by board space; energy allows step %d\n", g.TopItem, g.Limited, g.Reach)
		default:
			fmt.Fprintf(w, "   best: %s (step %d)\n", g.TopItem, g.Limited)
		}
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "summarize chain depth and energy budgets of board configs",
		ArgsUsage: "[config ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "configs",
				Usage:   "directory containing board configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.IntFlag{
				Name:  "ticks",
				Value: 0,
				Usage: "regeneration ticks added to each generator's full charge",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			out := cmd.Root().Writer
			if out == nil {
				out = os.Stdout
			}

			manager, err := config.NewManager(cmd.String("dir"))
			if err != nil {
				return err
			}

			names := cmd.Args().Slice()
			if len(names) == 0 {
				infos, err := manager.ListConfigs()
				if err != nil {
					return err
				}
				for _, info := range infos {
					names = append(names, info.ConfigID)
				}
			}

			for _, name := range names {
				fmt.Fprintf(out, "\n=== Analyzing %s ===\n", name)
				cfg, err := manager.LoadConfig(name)
				if err != nil {
					fmt.Fprintf(out, "Error loading config: %v\n", err)
					continue
				}
				a, err := analyzeConfig(cfg, cmd.Int("ticks"))
				if err != nil {
					fmt.Fprintf(out, "Error analyzing config: %v\n", err)
					continue
				}
				printAnalysis(out, a)
			}
			return nil
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
