// Command mergeterm is a terminal client for a merge board session. It draws
// the board with tcell, turns mouse drags into drag start/move/drop calls on
// the REST API, and follows the session's websocket feed so changes made by
// other clients show up live.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/mergegame/game/engine"
)

// App owns the screen and the local view of one session
type App struct {
	client *Client
	screen tcell.Screen

	state  *engine.BoardState
	drag   *dragView
	status string
}

func (a *App) draw() {
	render(a.screen, a.state, a.drag, a.status)
}

func (a *App) refresh(ctx context.Context) {
	state, err := a.client.State(ctx)
	if err != nil {
		a.status = err.Error()
		return
	}
	a.state = state
}

func (a *App) itemAt(c engine.Coord) (engine.ItemView, bool) {
	id := a.state.Rows[c.Y][c.X]
	if id == "" {
		return engine.ItemView{}, false
	}
	for _, item := range a.state.Items {
		if item.ID == id {
			return item, true
		}
	}
	return engine.ItemView{}, false
}

func (a *App) handleMouse(ctx context.Context, ev *tcell.EventMouse) {
	if a.state == nil {
		return
	}
	sx, sy := ev.Position()
	pressed := ev.Buttons()&tcell.Button1 != 0
	world := screenToWorld(a.state, sx, sy)

	switch {
	case pressed && a.drag == nil:
		c, ok := slotAt(a.state, sx, sy)
		if !ok {
			return
		}
		item, ok := a.itemAt(c)
		if !ok {
			return
		}
		if err := a.client.DragStart(ctx, item.ID, world); err != nil {
			a.status = err.Error()
			return
		}
		a.drag = &dragView{itemID: item.ID, label: itemLabel(item), sx: sx, sy: sy}
		a.status = ""

	case pressed:
		if sx == a.drag.sx && sy == a.drag.sy {
			return
		}
		a.drag.sx, a.drag.sy = sx, sy
		if err := a.client.DragMove(ctx, a.drag.itemID, world); err != nil {
			a.status = err.Error()
		}

	case a.drag != nil:
		itemID := a.drag.itemID
		a.drag = nil
		result, err := a.client.Drop(ctx, itemID, world)
		if err != nil {
			a.status = err.Error()
			a.refresh(ctx)
			return
		}
		a.status = fmt.Sprintf("%s: %s", result.Outcome, result.Message)
		if result.BoardState != nil {
			a.state = result.BoardState
		}
	}
}

func (a *App) trigger(ctx context.Context, index int) {
	if a.state == nil || index >= len(a.state.Generators) {
		return
	}
	result, err := a.client.Trigger(ctx, a.state.Generators[index].ID)
	if err != nil {
		a.status = err.Error()
		return
	}
	a.status = result.Message
	if result.BoardState != nil {
		a.state = result.BoardState
	}
}

// handleEvent applies one terminal event and reports whether to keep running
func (a *App) handleEvent(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() != tcell.KeyRune {
			return true
		}
		switch r := ev.Rune(); {
		case r == 'q':
			return false
		case r == 'g':
			a.trigger(ctx, 0)
		case r >= '1' && r <= '9':
			a.trigger(ctx, int(r-'1'))
		case r == 'r':
			state, err := a.client.Reset(ctx)
			if err != nil {
				a.status = err.Error()
			} else {
				a.state = state
				a.status = "board reset"
			}
		}

	case *tcell.EventMouse:
		a.handleMouse(ctx, ev)

	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

func (a *App) run(ctx context.Context) error {
	updates, err := a.client.Watch(ctx)
	if err != nil {
		log.Printf("[WS] live updates unavailable: %v", err)
	}

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	a.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if !a.handleEvent(ctx, ev) {
				return nil
			}
		case state, ok := <-updates:
			if !ok {
				updates = nil
				a.status = "live updates disconnected"
				break
			}
			a.state = state
		}
		a.draw()
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "mergeterm",
		Usage: "play a merge board session in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "game server URL", Sources: cli.EnvVars("MERGEGAME_URL")},
			&cli.StringFlag{Name: "session", Usage: "session ID to join (a new one is created when empty)"},
			&cli.StringFlag{Name: "config", Usage: "board config for a new session"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client := NewClient(cmd.String("url"), cmd.String("session"))
			if err := client.EnsureSession(ctx, cmd.String("config")); err != nil {
				return fmt.Errorf("session: %w", err)
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				return err
			}
			if err := screen.Init(); err != nil {
				return err
			}
			screen.EnableMouse()

			app := &App{client: client, screen: screen}
			app.refresh(ctx)

			ctx, cancel := context.WithCancel(ctx)
			err = app.run(ctx)
			cancel()
			screen.Fini()
			fmt.Printf("session %s\n", client.sessionID)
			return err
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
