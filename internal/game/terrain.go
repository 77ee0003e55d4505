package game

import (
	"fmt"

	"github.com/dhconnelly/rtreego"
)

// Wall is a static axis-aligned rectangle; (X, Y) is the top-left corner
type Wall struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`

	rect rtreego.Rect
}

// Bounds implements rtreego.Spatial
func (w *Wall) Bounds() rtreego.Rect {
	return w.rect
}

// Edges returns the four sides as segments (top, right, bottom, left)
func (w *Wall) Edges() [4][2]Vector {
	tl := Vec(w.X, w.Y)
	tr := Vec(w.X+w.W, w.Y)
	br := Vec(w.X+w.W, w.Y+w.H)
	bl := Vec(w.X, w.Y+w.H)
	return [4][2]Vector{{tl, tr}, {tr, br}, {br, bl}, {bl, tl}}
}

// DefaultWalls is the fixed arena layout: four corner brackets, a centre
// cross and two side bars.
func DefaultWalls() []Wall {
	return []Wall{
		{X: 100, Y: 200, W: 200, H: 20},
		{X: 200, Y: 100, W: 20, H: 200},
		{X: 700, Y: 200, W: 200, H: 20},
		{X: 800, Y: 100, W: 20, H: 200},
		{X: 100, Y: 500, W: 200, H: 20},
		{X: 200, Y: 500, W: 20, H: 200},
		{X: 700, Y: 500, W: 200, H: 20},
		{X: 800, Y: 500, W: 20, H: 200},
		{X: 400, Y: 300, W: 200, H: 20},
		{X: 500, Y: 300, W: 20, H: 200},
		{X: 150, Y: 350, W: 100, H: 20},
		{X: 750, Y: 350, W: 100, H: 20},
	}
}

// Terrain indexes walls in an R-tree for broad-phase segment queries
type Terrain struct {
	walls []*Wall
	tree  *rtreego.Rtree
}

// NewTerrain builds the index. Walls with a non-positive size are rejected.
func NewTerrain(walls []Wall) (*Terrain, error) {
	t := &Terrain{}
	spatials := make([]rtreego.Spatial, 0, len(walls))

	for i := range walls {
		w := walls[i]
		rect, err := rtreego.NewRect(rtreego.Point{w.X, w.Y}, []float64{w.W, w.H})
		if err != nil {
			return nil, fmt.Errorf("wall %d: %w", i, err)
		}
		w.rect = rect
		t.walls = append(t.walls, &w)
		spatials = append(spatials, &w)
	}

	t.tree = rtreego.NewTree(2, 2, 8, spatials...)
	return t, nil
}

// Walls returns the indexed walls
func (t *Terrain) Walls() []*Wall {
	return t.walls
}

// Candidates returns walls whose bounding box overlaps the segment's
func (t *Terrain) Candidates(a, b Vector) []*Wall {
	if t == nil || t.tree == nil || t.tree.Size() == 0 {
		return nil
	}

	minX, maxX := a.X, b.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := a.Y, b.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}

	// rtreego rejects zero-length sides, so pad degenerate segments
	const pad = 0.01
	bb, err := rtreego.NewRect(rtreego.Point{minX - pad, minY - pad}, []float64{maxX - minX + 2*pad, maxY - minY + 2*pad})
	if err != nil {
		return nil
	}

	hits := t.tree.SearchIntersect(bb)
	walls := make([]*Wall, 0, len(hits))
	for _, s := range hits {
		walls = append(walls, s.(*Wall))
	}
	return walls
}

// SegmentBlocked reports whether the segment a→b crosses any wall edge
func (t *Terrain) SegmentBlocked(a, b Vector) bool {
	for _, w := range t.Candidates(a, b) {
		if SegmentHitsRect(a, b, w) {
			return true
		}
	}
	return false
}
