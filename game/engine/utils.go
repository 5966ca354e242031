package engine

// MergePair is a source/target pair that would MERGE if the source were dropped
// on the target
type MergePair struct {
	Source   Coord  `json:"source"`
	Target   Coord  `json:"target"`
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	TypeID   string `json:"type_id"`
	NextID   string `json:"next_id"`
}

// FindMergeablePairs lists every mergeable pair in row-major order of the source,
// then of the target. Each unordered pair is listed once.
func FindMergeablePairs(g *Grid) []MergePair {
	items := g.Occupants()
	var pairs []MergePair
	for i, a := range items {
		for _, b := range items[i+1:] {
			if !CanMerge(a, b) {
				continue
			}
			pairs = append(pairs, MergePair{
				Source:   a.Coords(),
				Target:   b.Coords(),
				SourceID: a.id,
				TargetID: b.id,
				TypeID:   a.itemType.ID,
				NextID:   a.itemType.Next.ID,
			})
		}
	}
	return pairs
}

// CountByLevel counts placed items per level
func CountByLevel(g *Grid) map[int]int {
	counts := make(map[int]int)
	for _, it := range g.Occupants() {
		if it.itemType != nil {
			counts[it.itemType.Level]++
		}
	}
	return counts
}

// HighestLevel returns the highest level on the grid, or 0 when it is empty
func HighestLevel(g *Grid) int {
	highest := 0
	for level := range CountByLevel(g) {
		if level > highest {
			highest = level
		}
	}
	return highest
}

// SpawnsForLevel is the number of base spawns needed to build one item of the
// given level, counting the base as level 1
func SpawnsForLevel(level int) int {
	if level < 1 {
		return 0
	}
	return 1 << (level - 1)
}

// ReachableLevel is the highest level whose SpawnsForLevel fits in budget spawns
func ReachableLevel(budget, chainLength int) int {
	level := 0
	for level < chainLength && SpawnsForLevel(level+1) <= budget {
		level++
	}
	return level
}
