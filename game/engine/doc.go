// Package engine provides the core logic of the merge grid game.
//
// The engine package implements:
//   - A world/grid coordinate transform
//   - The authoritative grid store with bidirectional occupancy
//   - Drag-release resolution into merge, move or revert
//   - Energy-gated generators that spawn base items
//   - Board configuration, item type chains and validation
//
// Core Types:
//
// Grid owns the slots and is the only path that creates items (SpawnItem).
// Resolver and Generator receive the Grid by injection and run their multi-step
// mutations inside the grid's critical section. Board ties a Grid to a
// BoardConfig, acts as its Host and Renderer, and keeps the drop history.
//
// Usage:
//
//	board, err := engine.NewBoard(engine.DefaultBoardConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	board.TriggerGenerator("seed-bag")
//	board.TriggerGenerator("seed-bag")
//
//	state := board.GetState()
//	rec, err := board.DropOnSlot(state.Items[0].ID, 1, 0)
//	// rec.Outcome == engine.OutcomeMerge
//
// Merge Rules:
//
// Dropping an item on another item of the same ItemType merges both into one
// item of the successor type at the target slot, provided the type has a
// successor. Dropping on an empty slot moves the item there. Anything else,
// including drops outside the grid, snaps the item back to where it was.
package engine
