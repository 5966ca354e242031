package engine

// Resolution is the applied result of one drag-release
type Resolution struct {
	Outcome   Outcome
	Source    *Item
	From      Coord
	DropPoint Vec2
	Target    CoordResult
	// Result is the merged successor for MERGE and the moved item for MOVE
	Result   *Item
	Consumed []*Item
	// Fault is set when an internal inconsistency forced a REVERT
	Fault string
}

// Resolver decides and applies drag-release outcomes against a Grid
type Resolver struct {
	grid *Grid
}

// NewResolver binds a resolver to the authoritative grid
func NewResolver(grid *Grid) *Resolver {
	return &Resolver{grid: grid}
}

// CanMerge reports whether source may be merged into target.
// Type equality is identity of the ItemType definition.
func CanMerge(source, target *Item) bool {
	if source == nil || target == nil || source == target {
		return false
	}
	if source.itemType == nil || source.itemType.Next == nil {
		return false
	}
	return target.itemType == source.itemType
}

// Decide classifies a drop without mutating anything
func (r *Resolver) Decide(source *Item, drop Vec2) (Outcome, CoordResult) {
	r.grid.mu.Lock()
	defer r.grid.mu.Unlock()
	return r.decideLocked(source, drop)
}

func (r *Resolver) decideLocked(source *Item, drop Vec2) (Outcome, CoordResult) {
	if source == nil {
		return OutcomeRevert, NotFound()
	}
	target := r.grid.transform.WorldToGrid(drop)
	tc, ok := target.Get()
	if !ok {
		return OutcomeRevert, target
	}

	occupant := r.grid.occupantLocked(tc.X, tc.Y)
	switch {
	case CanMerge(source, occupant):
		return OutcomeMerge, target
	case occupant == nil && tc != source.Coords():
		return OutcomeMove, target
	default:
		return OutcomeRevert, target
	}
}

// HandleDragStart begins a drag of item under the pointer
func (r *Resolver) HandleDragStart(item *Item, pointer Vec2) {
	if item == nil || item.destroyed {
		return
	}
	r.grid.mu.Lock()
	defer r.grid.mu.Unlock()
	item.beginDrag(pointer)
}

// HandleDragMove follows the pointer while dragging
func (r *Resolver) HandleDragMove(item *Item, pointer Vec2) {
	if item == nil || !item.isDragging {
		return
	}
	r.grid.mu.Lock()
	defer r.grid.mu.Unlock()
	item.dragTo(pointer)
	r.grid.renderer.Render(item)
}

// HandleDragEnd resolves the release of item at drop
func (r *Resolver) HandleDragEnd(item *Item, drop Vec2) Resolution {
	return r.Resolve(item, drop)
}

// Resolve decides the outcome of dropping source at drop and applies it atomically
func (r *Resolver) Resolve(source *Item, drop Vec2) Resolution {
	r.grid.mu.Lock()
	defer r.grid.mu.Unlock()

	res := Resolution{Source: source, DropPoint: drop}
	if source == nil {
		res.Outcome = OutcomeRevert
		res.Fault = "no source item"
		return res
	}
	res.From = source.Coords()
	source.endDrag()

	if source.destroyed || r.grid.occupantLocked(res.From.X, res.From.Y) != source {
		res.Fault = "source item is not placed on the grid"
		r.grid.logger.Printf("[RESOLVER] fault: %s dropped but not placed at (%d,%d)", source.id, res.From.X, res.From.Y)
		r.revertLocked(source, &res)
		return res
	}

	outcome, target := r.decideLocked(source, drop)
	res.Target = target

	switch outcome {
	case OutcomeMerge:
		r.mergeLocked(source, &res)
	case OutcomeMove:
		r.moveLocked(source, &res)
	default:
		r.revertLocked(source, &res)
	}
	return res
}

func (r *Resolver) mergeLocked(source *Item, res *Resolution) {
	g := r.grid
	tc, _ := res.Target.Get()
	target := g.occupantLocked(tc.X, tc.Y)
	next := source.itemType.Next
	if next == nil {
		res.Fault = "merge reached with a max-level type"
		g.logger.Printf("[RESOLVER] fault: merge of %s has no successor, reverting", source.itemType)
		r.revertLocked(source, res)
		return
	}

	// Clear first so the successor spawn sees the target slot empty
	g.clearLocked(res.From.X, res.From.Y)
	g.clearLocked(tc.X, tc.Y)

	merged := g.spawnLocked(next, tc.X, tc.Y)
	if merged == nil {
		g.slots[res.From.X][res.From.Y].occupant = source
		g.slots[tc.X][tc.Y].occupant = target
		res.Fault = "successor spawn failed"
		g.logger.Printf("[RESOLVER] fault: could not spawn %s at (%d,%d), reverting", next, tc.X, tc.Y)
		r.revertLocked(source, res)
		return
	}

	g.destroyLocked(source)
	g.destroyLocked(target)

	res.Outcome = OutcomeMerge
	res.Result = merged
	res.Consumed = []*Item{source, target}
}

func (r *Resolver) moveLocked(source *Item, res *Resolution) {
	g := r.grid
	tc, _ := res.Target.Get()

	g.clearLocked(res.From.X, res.From.Y)
	g.slots[tc.X][tc.Y].occupant = source
	source.setCoords(tc.X, tc.Y)
	source.placeAt(g.transform.GridToWorld(tc.X, tc.Y))
	g.renderer.Render(source)

	res.Outcome = OutcomeMove
	res.Result = source
}

func (r *Resolver) revertLocked(source *Item, res *Resolution) {
	source.revert()
	r.grid.renderer.Render(source)
	res.Outcome = OutcomeRevert
}
