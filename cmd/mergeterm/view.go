package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/wricardo/mcp-training/mergegame/game/engine"
)

// Screen layout of the board, in terminal cells
const (
	slotW     = 5
	slotH     = 2
	boardLeft = 4
	boardTop  = 3
)

var (
	styleText     = tcell.StyleDefault
	styleDim      = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleItem     = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleMax      = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleDragging = tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true)
	styleEmpty    = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	styleWarn     = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

// dragView is the local picture of an in-flight drag
type dragView struct {
	itemID string
	label  string
	sx, sy int
}

// slotOrigin is the top-left terminal cell of slot (x, y)
func slotOrigin(x, y int) (int, int) {
	return boardLeft + x*slotW, boardTop + y*slotH
}

// slotAt maps a terminal cell to the slot drawn there
func slotAt(state *engine.BoardState, sx, sy int) (engine.Coord, bool) {
	if sx < boardLeft || sy < boardTop {
		return engine.Coord{}, false
	}
	c := engine.Coord{X: (sx - boardLeft) / slotW, Y: (sy - boardTop) / slotH}
	if c.X >= state.Width || c.Y >= state.Height {
		return engine.Coord{}, false
	}
	return c, true
}

// screenToWorld converts a terminal cell to the board's world position.
// Cells outside the drawn board map to points outside the grid.
func screenToWorld(state *engine.BoardState, sx, sy int) engine.Vec2 {
	cell := state.CellSize
	if cell <= 0 {
		cell = 1
	}
	return engine.Vec2{
		X: state.Origin.X + (float64(sx-boardLeft)+0.5)/slotW*cell,
		Y: state.Origin.Y + (float64(sy-boardTop)+0.5)/slotH*cell,
	}
}

func itemLabel(item engine.ItemView) string {
	glyph := item.Visual
	if glyph == "" && item.TypeID != "" {
		glyph = item.TypeID[:1]
	}
	return fmt.Sprintf("%s%d", glyph, item.Level)
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

// render draws the whole frame. drag may be nil.
func render(s tcell.Screen, state *engine.BoardState, drag *dragView, status string) {
	s.Clear()
	if state == nil {
		drawText(s, 0, 0, styleText, "waiting for board...")
		s.Show()
		return
	}

	drawText(s, 0, 0, styleText, fmt.Sprintf("%s  %dx%d  highest L%d  drops %d (merge %d, move %d, revert %d)",
		state.ConfigName, state.Width, state.Height, state.Highest, state.TotalDrops, state.Merges, state.Moves, state.Reverts))
	drawText(s, 0, 1, styleDim, state.Message)

	for x := 0; x < state.Width; x++ {
		sx, _ := slotOrigin(x, 0)
		drawText(s, sx, boardTop-1, styleDim, fmt.Sprintf("%-*d", slotW, x))
	}

	items := make(map[string]engine.ItemView, len(state.Items))
	for _, item := range state.Items {
		items[item.ID] = item
	}

	for y, row := range state.Rows {
		_, sy := slotOrigin(0, y)
		drawText(s, 0, sy, styleDim, fmt.Sprintf("%2d", y))
		for x, id := range row {
			sx, sy := slotOrigin(x, y)
			if id == "" {
				drawText(s, sx, sy, styleEmpty, " .  ")
				continue
			}
			item := items[id]
			style := styleItem
			switch {
			case drag != nil && drag.itemID == id:
				style = styleDragging
			case item.MaxLevel:
				style = styleMax
			}
			drawText(s, sx, sy, style, fmt.Sprintf("[%-3s]", itemLabel(item)))
		}
	}

	line := boardTop + state.Height*slotH
	for i, g := range state.Generators {
		style := styleText
		if g.Energy < g.EnergyCost {
			style = styleWarn
		}
		drawText(s, 0, line+i, style, fmt.Sprintf("%d) %s -> %s  energy %d/%d  cost %d", i+1, g.ID, g.TypeID, g.Energy, g.MaxEnergy, g.EnergyCost))
	}
	line += len(state.Generators) + 1
	drawText(s, 0, line, styleDim, "drag items with the mouse | g/1-9 spawn | r reset | q quit")
	if status != "" {
		drawText(s, 0, line+1, styleWarn, status)
	}

	if drag != nil {
		drawText(s, drag.sx, drag.sy, styleDragging, drag.label)
	}
	s.Show()
}
