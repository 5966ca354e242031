package engine

import (
	"fmt"
	"math"
)

// Transform maps between integer grid coordinates and world positions.
// Origin is the bottom-left corner of slot (0,0).
type Transform struct {
	Origin   Vec2
	CellSize float64
	Width    int
	Height   int
}

// NewTransform validates the grid geometry
func NewTransform(origin Vec2, cellSize float64, width, height int) (Transform, error) {
	if width < MinGridSize || width > MaxGridSize {
		return Transform{}, fmt.Errorf("%w: width must be between %d and %d, got %d", ErrInvalidGeometry, MinGridSize, MaxGridSize, width)
	}
	if height < MinGridSize || height > MaxGridSize {
		return Transform{}, fmt.Errorf("%w: height must be between %d and %d, got %d", ErrInvalidGeometry, MinGridSize, MaxGridSize, height)
	}
	if !(cellSize > 0) || cellSize > math.MaxFloat64/MaxGridSize {
		return Transform{}, fmt.Errorf("%w: cell size must be positive and finite, got %v", ErrInvalidGeometry, cellSize)
	}
	if !origin.IsFinite() {
		return Transform{}, fmt.Errorf("%w: origin must be finite", ErrInvalidGeometry)
	}
	if limit := cellSize * MaxOriginCells; math.Abs(origin.X) > limit || math.Abs(origin.Y) > limit {
		return Transform{}, fmt.Errorf("%w: origin %v is more than %d cells from zero", ErrInvalidGeometry, origin, int64(MaxOriginCells))
	}
	return Transform{Origin: origin, CellSize: cellSize, Width: width, Height: height}, nil
}

// InBounds reports whether (x, y) addresses a slot
func (t Transform) InBounds(x, y int) bool {
	return x >= 0 && x < t.Width && y >= 0 && y < t.Height
}

// GridToWorld returns the centre of slot (x, y). It does not bounds-check.
func (t Transform) GridToWorld(x, y int) Vec2 {
	half := t.CellSize / 2
	return Vec2{
		X: t.Origin.X + float64(x)*t.CellSize + half,
		Y: t.Origin.Y + float64(y)*t.CellSize + half,
	}
}

// WorldToGrid returns the slot containing p, or NotFound when p lies outside the grid
func (t Transform) WorldToGrid(p Vec2) CoordResult {
	if !p.IsFinite() {
		return NotFound()
	}
	fx := math.Floor((p.X - t.Origin.X) / t.CellSize)
	fy := math.Floor((p.Y - t.Origin.Y) / t.CellSize)
	if fx < 0 || fy < 0 || fx >= float64(t.Width) || fy >= float64(t.Height) {
		return NotFound()
	}
	return Found(Coord{X: int(fx), Y: int(fy)})
}
