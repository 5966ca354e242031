package engine

import (
	"testing"
)

func TestCanMerge(t *testing.T) {
	a := chain("A", 2)
	b := chain("B", 2)

	newPlaced := func(typ *ItemType) *Item {
		it := NewItem("i", Vec2{})
		_ = it.Initialize(typ, 0, 0)
		return it
	}

	src := newPlaced(a[0])
	tests := []struct {
		name   string
		source *Item
		target *Item
		want   bool
	}{
		{"same type with successor", src, newPlaced(a[0]), true},
		{"different chains", src, newPlaced(b[0]), false},
		{"different levels", src, newPlaced(a[1]), false},
		{"max level", newPlaced(a[1]), newPlaced(a[1]), false},
		{"self", src, src, false},
		{"nil target", src, nil, false},
		{"nil source", nil, src, false},
		{"untyped source", NewItem("u", Vec2{}), src, false},
		{"equal but distinct type values", src, newPlaced(&ItemType{ID: "A1", Level: 1, Next: a[1]}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanMerge(tt.source, tt.target); got != tt.want {
				t.Errorf("Expected CanMerge=%v, got %v", tt.want, got)
			}
		})
	}
}

// Scenario: two A items on a 2x1 grid merge into one B at the target
func TestResolver_MergeAdjacent(t *testing.T) {
	g, host, renderer, _ := newTestGrid(t, 2, 1)
	types := chain("A", 2)
	r := NewResolver(g)

	src := mustSpawn(t, g, types[0], 0, 0)
	dst := mustSpawn(t, g, types[0], 1, 0)

	r.HandleDragStart(src, src.Position())
	r.HandleDragMove(src, g.GridToWorld(1, 0))
	res := r.HandleDragEnd(src, g.GridToWorld(1, 0))

	if res.Outcome != OutcomeMerge {
		t.Fatalf("Expected merge, got %s (fault %q)", res.Outcome, res.Fault)
	}
	merged := g.GetOccupant(1, 0)
	if merged == nil || merged != res.Result {
		t.Fatal("Expected the merged item at (1,0)")
	}
	if merged.Type() != types[1] {
		t.Errorf("Expected successor type %s, got %s", types[1], merged.Type())
	}
	if merged == src || merged == dst {
		t.Error("Expected a newly spawned item")
	}
	if g.GetOccupant(0, 0) != nil {
		t.Error("Expected (0,0) to be empty")
	}
	if !src.Destroyed() || !dst.Destroyed() {
		t.Error("Expected both consumed items to be destroyed")
	}
	if len(host.destroyed) != 2 {
		t.Errorf("Expected host to destroy 2 items, got %d", len(host.destroyed))
	}
	if src.IsDragging() {
		t.Error("Expected drag to end")
	}

	// The last two renders hide the consumed items
	calls := renderer.calls
	if len(calls) < 3 {
		t.Fatalf("Expected render calls for spawn and destroy, got %d", len(calls))
	}
	for _, c := range calls[len(calls)-2:] {
		if c.visible {
			t.Errorf("Expected consumed item %s to be rendered hidden", c.item.ID())
		}
	}
	assertInvariants(t, g)
}

// Scenario: moving into an empty slot updates both slots and the restore position
func TestResolver_MoveToEmpty(t *testing.T) {
	g, _, _, _ := newTestGrid(t, 5, 5)
	types := chain("A", 2)
	r := NewResolver(g)

	it := mustSpawn(t, g, types[0], 0, 0)
	target := g.GridToWorld(3, 3)

	r.HandleDragStart(it, it.Position())
	r.HandleDragMove(it, Vec2{X: 2.2, Y: 2.9})
	res := r.HandleDragEnd(it, Vec2{X: 3.1, Y: 3.8})

	if res.Outcome != OutcomeMove {
		t.Fatalf("Expected move, got %s", res.Outcome)
	}
	if g.GetOccupant(0, 0) != nil {
		t.Error("Expected (0,0) to be empty")
	}
	if g.GetOccupant(3, 3) != it {
		t.Error("Expected the same item reference at (3,3)")
	}
	if it.Coords() != (Coord{X: 3, Y: 3}) {
		t.Errorf("Expected coords (3,3), got %+v", it.Coords())
	}
	if it.Position() != target || it.RestorePosition() != target {
		t.Errorf("Expected position and restore position %+v, got %+v and %+v", target, it.Position(), it.RestorePosition())
	}
	assertInvariants(t, g)
}

// Scenario: drops outside the grid leave the grid untouched and snap back
func TestResolver_DropOutsideReverts(t *testing.T) {
	g, _, renderer, _ := newTestGrid(t, 3, 3)
	types := chain("A", 2)
	r := NewResolver(g)

	it := mustSpawn(t, g, types[0], 1, 1)
	home := it.Position()

	r.HandleDragStart(it, Vec2{X: 1.4, Y: 1.6})
	r.HandleDragMove(it, Vec2{X: -50, Y: -50})
	if it.Position() == home {
		t.Fatal("Expected the item to follow the pointer while dragging")
	}
	res := r.HandleDragEnd(it, Vec2{X: -1e6, Y: -1e6})

	if res.Outcome != OutcomeRevert {
		t.Fatalf("Expected revert, got %s", res.Outcome)
	}
	if res.Target.IsFound() {
		t.Error("Expected no target coordinate")
	}
	if g.GetOccupant(1, 1) != it || it.Coords() != (Coord{X: 1, Y: 1}) {
		t.Error("Expected grid to be unchanged")
	}
	if it.Position() != home {
		t.Errorf("Expected position restored to %+v, got %+v", home, it.Position())
	}
	last := renderer.calls[len(renderer.calls)-1]
	if last.item != it || last.dragging || last.position != home {
		t.Errorf("Expected a final render of the reverted item at rest, got %+v", last)
	}
	assertInvariants(t, g)
}

// Scenario: max-level items never merge
func TestResolver_MaxLevelNeverMerges(t *testing.T) {
	types := chain("A", 1)
	maxed := types[0]

	t.Run("onto occupied maxed neighbour reverts", func(t *testing.T) {
		g, _, _, _ := newTestGrid(t, 2, 1)
		r := NewResolver(g)
		src := mustSpawn(t, g, maxed, 0, 0)
		dst := mustSpawn(t, g, maxed, 1, 0)

		if CanMerge(src, dst) {
			t.Fatal("Expected CanMerge to be false for max level")
		}
		res := r.Resolve(src, g.GridToWorld(1, 0))
		if res.Outcome != OutcomeRevert {
			t.Errorf("Expected revert, got %s", res.Outcome)
		}
		if g.GetOccupant(0, 0) != src || g.GetOccupant(1, 0) != dst {
			t.Error("Expected grid to be unchanged")
		}
	})

	t.Run("onto empty slot moves", func(t *testing.T) {
		g, _, _, _ := newTestGrid(t, 2, 1)
		r := NewResolver(g)
		src := mustSpawn(t, g, maxed, 0, 0)

		res := r.Resolve(src, g.GridToWorld(1, 0))
		if res.Outcome != OutcomeMove {
			t.Errorf("Expected move, got %s", res.Outcome)
		}
	})
}

func TestResolver_DropOnOwnSlotReverts(t *testing.T) {
	g, _, _, _ := newTestGrid(t, 2, 2)
	types := chain("A", 2)
	r := NewResolver(g)
	it := mustSpawn(t, g, types[0], 0, 1)

	res := r.Resolve(it, Vec2{X: 0.9, Y: 1.1})
	if res.Outcome != OutcomeRevert {
		t.Errorf("Expected revert on own slot, got %s", res.Outcome)
	}
	if g.GetOccupant(0, 1) != it {
		t.Error("Expected item to keep its slot")
	}
}

func TestResolver_DropOnDifferentTypeReverts(t *testing.T) {
	g, _, _, _ := newTestGrid(t, 2, 1)
	a := chain("A", 2)
	b := chain("B", 2)
	r := NewResolver(g)
	src := mustSpawn(t, g, a[0], 0, 0)
	dst := mustSpawn(t, g, b[0], 1, 0)

	if out, _ := r.Decide(src, g.GridToWorld(1, 0)); out != OutcomeRevert {
		t.Errorf("Expected Decide to report revert, got %s", out)
	}
	res := r.Resolve(src, g.GridToWorld(1, 0))
	if res.Outcome != OutcomeRevert {
		t.Errorf("Expected revert, got %s", res.Outcome)
	}
	if g.GetOccupant(1, 0) != dst {
		t.Error("Expected target untouched")
	}
}

func TestResolver_MergeSpawnFailureRollsBack(t *testing.T) {
	g, host, _, buf := newTestGrid(t, 2, 1)
	types := chain("A", 2)
	r := NewResolver(g)
	src := mustSpawn(t, g, types[0], 0, 0)
	dst := mustSpawn(t, g, types[0], 1, 0)

	host.failNext = true
	res := r.Resolve(src, g.GridToWorld(1, 0))

	if res.Outcome != OutcomeRevert {
		t.Fatalf("Expected revert after failed successor spawn, got %s", res.Outcome)
	}
	if res.Fault == "" {
		t.Error("Expected the resolution to carry a fault")
	}
	assertLogged(t, buf, "[RESOLVER] fault")
	if g.GetOccupant(0, 0) != src || g.GetOccupant(1, 0) != dst {
		t.Error("Expected pre-merge occupancy to be restored")
	}
	if src.Destroyed() || dst.Destroyed() || len(host.destroyed) != 0 {
		t.Error("Expected no item to be destroyed")
	}
	assertInvariants(t, g)
}

func TestResolver_UnplacedSourceFaults(t *testing.T) {
	g, _, _, buf := newTestGrid(t, 2, 1)
	types := chain("A", 2)
	r := NewResolver(g)
	it := mustSpawn(t, g, types[0], 0, 0)
	g.ClearOccupant(0, 0)

	res := r.Resolve(it, g.GridToWorld(1, 0))
	if res.Outcome != OutcomeRevert || res.Fault == "" {
		t.Errorf("Expected faulted revert, got %s (%q)", res.Outcome, res.Fault)
	}
	assertLogged(t, buf, "[RESOLVER] fault")
	if g.GetOccupant(1, 0) != nil {
		t.Error("Expected no mutation")
	}

	if res := r.Resolve(nil, Vec2{}); res.Outcome != OutcomeRevert {
		t.Errorf("Expected nil source to revert, got %s", res.Outcome)
	}
}

func TestResolver_ChainMerges(t *testing.T) {
	g, _, _, _ := newTestGrid(t, 4, 1)
	types := chain("A", 3)
	r := NewResolver(g)

	for x := 0; x < 4; x++ {
		mustSpawn(t, g, types[0], x, 0)
	}
	if res := r.Resolve(g.GetOccupant(0, 0), g.GridToWorld(1, 0)); res.Outcome != OutcomeMerge {
		t.Fatalf("First merge: %s", res.Outcome)
	}
	if res := r.Resolve(g.GetOccupant(2, 0), g.GridToWorld(3, 0)); res.Outcome != OutcomeMerge {
		t.Fatalf("Second merge: %s", res.Outcome)
	}
	res := r.Resolve(g.GetOccupant(1, 0), g.GridToWorld(3, 0))
	if res.Outcome != OutcomeMerge {
		t.Fatalf("Third merge: %s", res.Outcome)
	}
	top := g.GetOccupant(3, 0)
	if top.Type() != types[2] || !top.Type().IsMaxLevel() {
		t.Errorf("Expected max-level %s at (3,0), got %s", types[2], top.Type())
	}
	if n := len(g.Occupants()); n != 1 {
		t.Errorf("Expected 1 item left, got %d", n)
	}
	assertInvariants(t, g)
}
