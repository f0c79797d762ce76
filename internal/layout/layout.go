// Package layout packs a composition into a local, origin-relative
// occupancy grid.
package layout

import (
	"math"

	"codeberg.org/anaseto/gruid"
	"codeberg.org/anaseto/gruid/rl"
	"github.com/zyedidia/generic/mapset"

	"github.com/udisondev/outpost/internal/model"
)

// Placement is a structure placed in the local grid.
type Placement struct {
	Template *model.Template
	Pos      gruid.Point // minimum corner, local grid coordinates
	Rot      model.Rotation
}

// Range returns the cells covered by the placement.
func (p Placement) Range() gruid.Range {
	fp := p.Template.Footprint(p.Rot)
	return gruid.NewRange(p.Pos.X, p.Pos.Y, p.Pos.X+fp.X, p.Pos.Y+fp.Y)
}

// UnitPlacement is a unit placed in the local grid.
type UnitPlacement struct {
	Unit *model.UnitTemplate
	Pos  gruid.Point
}

// LocalLayout is the collision-free placement of a composition.
//
// Grid cells hold 1+structure index for structures, -(1+unit index) for
// units and 0 for free cells. The grid covers the base rectangle plus the
// expansion margin on every side.
// Single writer: built by Solver, then read-only.
type LocalLayout struct {
	grid  rl.Grid
	base  gruid.Range
	walls mapset.Set[gruid.Point]

	Structures []Placement
	Units      []UnitPlacement
	Dropped    []*model.Template // structures that could not be placed
	Budget     float64

	// search counters
	Attempts   int // structure placement attempts
	UnitProbes int // cells examined by the ring search for units
}

func newLocalLayout(w, h, margin int) *LocalLayout {
	return &LocalLayout{
		grid:  rl.NewGrid(w+2*margin, h+2*margin),
		base:  gruid.NewRange(margin, margin, margin+w, margin+h),
		walls: mapset.New[gruid.Point](),
	}
}

// Base returns the base rectangle in local grid coordinates.
func (l *LocalLayout) Base() gruid.Range {
	return l.base
}

// GridRange returns the expanded rectangle (whole local grid).
func (l *LocalLayout) GridRange() gruid.Range {
	return l.grid.Range()
}

// Center returns the centre of the base rectangle.
func (l *LocalLayout) Center() gruid.Point {
	sz := l.base.Size()
	return gruid.Point{X: l.base.Min.X + sz.X/2, Y: l.base.Min.Y + sz.Y/2}
}

// Offset converts a local grid cell to an offset relative to Center.
func (l *LocalLayout) Offset(p gruid.Point) gruid.Point {
	return p.Sub(l.Center())
}

// WallZone reports whether p is in the reserved perimeter-wall zone.
func (l *LocalLayout) WallZone(p gruid.Point) bool {
	return l.walls.Has(p)
}

// HasWallZone reports whether a perimeter-wall zone was reserved.
func (l *LocalLayout) HasWallZone() bool {
	return l.walls.Size() > 0
}

// Occupant returns the structure or unit index occupying p.
// kind is model.KindStructure or model.KindUnit; ok is false for free cells.
func (l *LocalLayout) Occupant(p gruid.Point) (idx int, kind model.EntityKind, ok bool) {
	if !l.grid.Contains(p) {
		return 0, 0, false
	}
	c := int(l.grid.At(p))
	switch {
	case c > 0:
		return c - 1, model.KindStructure, true
	case c < 0:
		return -c - 1, model.KindUnit, true
	}
	return 0, 0, false
}

func (l *LocalLayout) free(p gruid.Point) bool {
	return l.grid.Contains(p) && l.grid.At(p) == 0
}

// Cells returns every occupied cell as an offset from Center, row by row.
func (l *LocalLayout) Cells() []gruid.Point {
	var cells []gruid.Point
	rg := l.grid.Range()
	for y := rg.Min.Y; y < rg.Max.Y; y++ {
		for x := rg.Min.X; x < rg.Max.X; x++ {
			p := gruid.Point{X: x, Y: y}
			if l.grid.At(p) != 0 {
				cells = append(cells, l.Offset(p))
			}
		}
	}
	return cells
}

// Bounds returns the smallest range of offsets covering every occupied cell.
// Returns an empty range for an empty layout.
func (l *LocalLayout) Bounds() gruid.Range {
	cells := l.Cells()
	if len(cells) == 0 {
		return gruid.Range{}
	}
	minP, maxP := cells[0], cells[0]
	for _, c := range cells[1:] {
		minP.X, minP.Y = min(minP.X, c.X), min(minP.Y, c.Y)
		maxP.X, maxP.Y = max(maxP.X, c.X), max(maxP.Y, c.Y)
	}
	return gruid.NewRange(minP.X, minP.Y, maxP.X+1, maxP.Y+1)
}

// Diagonal returns the length of the bounding diagonal of occupied cells.
func (l *LocalLayout) Diagonal() float64 {
	sz := l.Bounds().Size()
	return math.Hypot(float64(sz.X), float64(sz.Y))
}

// Empty reports whether nothing was placed.
func (l *LocalLayout) Empty() bool {
	return len(l.Structures) == 0 && len(l.Units) == 0
}

func (l *LocalLayout) putStructure(t *model.Template, pos gruid.Point, rot model.Rotation) {
	pl := Placement{Template: t, Pos: pos, Rot: rot}
	id := rl.Cell(len(l.Structures) + 1)
	l.Structures = append(l.Structures, pl)
	fill(l.grid, pl.Range(), id)
}

func (l *LocalLayout) putUnit(u *model.UnitTemplate, p gruid.Point) {
	l.Units = append(l.Units, UnitPlacement{Unit: u, Pos: p})
	l.grid.Set(p, rl.Cell(-len(l.Units)))
}

func fill(g rl.Grid, rg gruid.Range, c rl.Cell) {
	for y := rg.Min.Y; y < rg.Max.Y; y++ {
		for x := rg.Min.X; x < rg.Max.X; x++ {
			g.Set(gruid.Point{X: x, Y: y}, c)
		}
	}
}
