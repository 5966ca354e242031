// Command autoplay drives a merge board session over the REST API: it taps
// generators and merges greedily until the board is stuck, energy runs out,
// a target level is reached, or the step limit is hit.
package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/mergegame/game/engine"
)

const sessionFile = ".session"

// Summary reports how a run ended
type Summary struct {
	Steps   int
	Spawns  int
	Merges  int
	Highest int
	Reason  string
}

type playOptions struct {
	maxSteps int
	delay    time.Duration
	verbose  bool
}

// play runs the strategy against the client's session
func play(ctx context.Context, client *Client, strategy *GreedyStrategy, opts playOptions) (*Summary, error) {
	sum := &Summary{}
	for sum.Steps < opts.maxSteps {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		state, err := client.GetState(ctx)
		if err != nil {
			return sum, err
		}
		sum.Highest = state.Highest
		hints, err := client.Hints(ctx)
		if err != nil {
			return sum, err
		}

		action := strategy.NextAction(state, hints)
		switch action.Kind {
		case ActionStop:
			sum.Reason = action.Reason
			return sum, nil

		case ActionMerge:
			p := action.Pair
			result, err := client.DropOnSlot(ctx, p.SourceID, p.Target.X, p.Target.Y)
			if err != nil {
				return sum, err
			}
			if result.Outcome != engine.OutcomeMerge {
				return sum, fmt.Errorf("expected merge of %s onto %s, got %s", p.SourceID, p.TargetID, result.Outcome)
			}
			sum.Merges++
			if result.BoardState != nil {
				sum.Highest = result.BoardState.Highest
			}
			if opts.verbose {
				log.Printf("merge %s (%d,%d) -> (%d,%d): %s", p.TypeID, p.Source.X, p.Source.Y, p.Target.X, p.Target.Y, p.NextID)
			}

		case ActionSpawn:
			result, err := client.Trigger(ctx, action.GeneratorID)
			if err != nil {
				return sum, err
			}
			if !result.Success {
				sum.Reason = string(result.Reason)
				return sum, nil
			}
			sum.Spawns++
			if opts.verbose && result.Item != nil {
				log.Printf("spawn %s at (%d,%d), %s energy %d/%d", result.Item.TypeID, result.Item.X, result.Item.Y,
					result.Generator.ID, result.Generator.Energy, result.Generator.MaxEnergy)
			}
		}

		sum.Steps++
		if opts.delay > 0 {
			time.Sleep(opts.delay)
		}
	}
	sum.Reason = "step limit"
	return sum, nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "autoplay",
		Usage: "play a merge board session greedily over the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "game server URL", Sources: cli.EnvVars("MERGEGAME_URL")},
			&cli.StringFlag{Name: "config", Usage: "board config for a new session"},
			&cli.StringFlag{Name: "continue", Usage: "resume an existing session by ID"},
			&cli.IntFlag{Name: "max-steps", Value: 2000, Usage: "maximum actions before giving up"},
			&cli.IntFlag{Name: "target", Usage: "stop once an item of this level exists (0 = play until stuck)"},
			&cli.IntFlag{Name: "delay", Usage: "delay between actions in milliseconds"},
			&cli.BoolFlag{Name: "reset", Usage: "reset the board before playing"},
			&cli.BoolFlag{Name: "v", Usage: "verbose output"},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	log.Printf("Connecting to game server at %s", cmd.String("url"))
	client := NewClient(cmd.String("url"))

	savedID := cmd.String("continue")
	if savedID == "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			savedID = string(bytes.TrimSpace(data))
		}
	}

	var state *engine.BoardState
	if savedID != "" {
		client.sessionID = savedID
		s, err := client.GetState(ctx)
		if err != nil {
			log.Printf("Failed to resume session %s (may be expired): %v", savedID, err)
		} else {
			state = s
			log.Printf("Resumed session %s", client.sessionID)
		}
	}

	if state == nil {
		s, err := client.CreateSession(ctx, cmd.String("config"))
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		state = s
		log.Printf("Session created: %s", client.sessionID)
		if err := os.WriteFile(sessionFile, []byte(client.sessionID), 0o644); err != nil {
			log.Printf("Warning: failed to save session ID: %v", err)
		}
	}

	if cmd.Bool("reset") {
		s, err := client.Reset(ctx)
		if err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		state = s
	}
	log.Printf("Board %s: %dx%d, %d empty slots, highest level %d",
		state.ConfigName, state.Width, state.Height, state.EmptySlots, state.Highest)

	strategy := &GreedyStrategy{TargetLevel: cmd.Int("target")}
	sum, err := play(ctx, client, strategy, playOptions{
		maxSteps: cmd.Int("max-steps"),
		delay:    time.Duration(cmd.Int("delay")) * time.Millisecond,
		verbose:  cmd.Bool("v"),
	})
	if sum != nil {
		log.Printf("Stopped after %d steps (%s): spawns=%d merges=%d highest=%d",
			sum.Steps, sum.Reason, sum.Spawns, sum.Merges, sum.Highest)
	}
	log.Printf("Session: %s", client.sessionID)
	return err
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
