package layout

import (
	"cmp"
	"log/slog"
	"math"
	"slices"

	"codeberg.org/anaseto/gruid"

	"github.com/udisondev/outpost/internal/config"
	"github.com/udisondev/outpost/internal/data"
	"github.com/udisondev/outpost/internal/model"
	"github.com/udisondev/outpost/internal/rng"
)

// Solver packs compositions into local layouts.
type Solver struct {
	cfg       config.Layout
	wall      *model.Template
	barricade *model.Template
}

// NewSolver creates a solver. Wall and barricade templates are taken from
// catalog by tag; without them walls and barricades are skipped.
func NewSolver(cfg config.Layout, catalog *data.Catalog) *Solver {
	s := &Solver{cfg: cfg}
	s.wall, _ = catalog.First(model.TagWall)
	s.barricade, _ = catalog.First(model.TagBarricade)
	return s
}

// Size returns the jittered rectangle size for budget, clamped to maxRect
// when maxRect is non-zero.
func (s *Solver) Size(r *rng.Source, budget float64, maxRect gruid.Point) gruid.Point {
	side := s.cfg.Size.Evaluate(budget)
	w := int(math.Round(side * r.FloatRange(s.cfg.SizeJitterMin, s.cfg.SizeJitterMax)))
	h := int(math.Round(side * r.FloatRange(s.cfg.SizeJitterMin, s.cfg.SizeJitterMax)))
	w, h = max(w, s.cfg.MinSize, 1), max(h, s.cfg.MinSize, 1)
	if maxRect.X > 0 {
		w = min(w, maxRect.X)
	}
	if maxRect.Y > 0 {
		h = min(h, maxRect.Y)
	}
	return gruid.Point{X: w, Y: h}
}

// Solve packs comp into a new LocalLayout. Structures that cannot be placed
// are dropped with a warning; Solve never fails.
func (s *Solver) Solve(r *rng.Source, comp *model.Composition, maxRect gruid.Point) *LocalLayout {
	size := s.Size(r, comp.Budget, maxRect)
	l := newLocalLayout(size.X, size.Y, max(s.cfg.ExpandMargin, 0))
	l.Budget = comp.Budget

	if s.wall != nil && size.X >= 3 && size.Y >= 3 && r.Chance(s.cfg.WallsChance.Evaluate(comp.Budget)) {
		s.reserveWalls(l)
	}

	// turrets last so support structures don't block their siting
	structures := comp.Templates()
	slices.SortStableFunc(structures, func(a, b *model.Template) int {
		return cmp.Compare(turretRank(a), turretRank(b))
	})

	for _, t := range structures {
		if !s.place(r, l, t) {
			l.Dropped = append(l.Dropped, t)
			slog.Warn("structure dropped from layout",
				"template", t.ID,
				"size", size,
				"placed", len(l.Structures))
		}
	}

	if l.HasWallZone() {
		s.buildWalls(r, l)
	}

	for _, u := range comp.Units {
		if !s.placeUnit(r, l, u) {
			slog.Warn("unit dropped from layout", "unit", u.ID)
		}
	}

	slog.Debug("layout solved",
		"size", size,
		"structures", len(l.Structures),
		"units", len(l.Units),
		"dropped", len(l.Dropped),
		"attempts", l.Attempts)

	return l
}

func turretRank(t *model.Template) int {
	if t.Turret && !t.Mortar {
		return 1
	}
	return 0
}

// place runs the base search and then the expanded search.
func (s *Solver) place(r *rng.Source, l *LocalLayout, t *model.Template) bool {
	if s.search(r, l, t, l.base) {
		return true
	}
	return s.search(r, l, t, l.grid.Range())
}

// search tries up to cfg.Attempts random positions inside region.
func (s *Solver) search(r *rng.Source, l *LocalLayout, t *model.Template, region gruid.Range) bool {
	quadrant, restricted := s.anchorQuadrant(r, l, t)

	for i := range s.cfg.Attempts {
		l.Attempts++

		rot := model.RotNorth
		if t.Rotatable {
			rot = model.Rotation(r.IntN(4))
		}
		fp := t.Footprint(rot)

		area := region
		if restricted && i < s.cfg.Attempts/2 {
			area = region.Intersect(quadrant)
		}
		sz := area.Size()
		if sz.X < fp.X || sz.Y < fp.Y {
			continue
		}

		pos := gruid.Point{
			X: area.Min.X + r.IntN(sz.X-fp.X+1),
			Y: area.Min.Y + r.IntN(sz.Y-fp.Y+1),
		}
		rg := gruid.NewRange(pos.X, pos.Y, pos.X+fp.X, pos.Y+fp.Y)
		if !s.fits(l, t, rg, region) {
			continue
		}

		l.putStructure(t, pos, rot)
		if t.Anchor {
			s.barricade4(l, rg)
		}
		return true
	}
	return false
}

// anchorQuadrant restricts turrets to the quadrant of a random placed anchor.
func (s *Solver) anchorQuadrant(r *rng.Source, l *LocalLayout, t *model.Template) (gruid.Range, bool) {
	if !t.Turret || t.Mortar {
		return gruid.Range{}, false
	}
	var anchors []Placement
	for _, p := range l.Structures {
		if p.Template.Anchor {
			anchors = append(anchors, p)
		}
	}
	a, ok := rng.Pick(r, anchors)
	if !ok {
		return gruid.Range{}, false
	}
	return quadrantOf(l.base, l.Center(), center(a.Range())), true
}

func quadrantOf(base gruid.Range, c, p gruid.Point) gruid.Range {
	q := base
	if p.X < c.X {
		q.Max.X = c.X
	} else {
		q.Min.X = c.X
	}
	if p.Y < c.Y {
		q.Max.Y = c.Y
	} else {
		q.Min.Y = c.Y
	}
	return q
}

// fits checks every placement rule for t at rg.
func (s *Solver) fits(l *LocalLayout, t *model.Template, rg, region gruid.Range) bool {
	if rg.Intersect(region) != rg {
		return false
	}

	if t.Turret && !t.Mortar && overlaps(rg, s.centerZone(l)) {
		return false
	}

	if t.EdgeBiased {
		d := s.cfg.EdgeDepth
		inner := gruid.NewRange(l.base.Min.X+d, l.base.Min.Y+d, l.base.Max.X-d, l.base.Max.Y-d)
		if contains(inner, rg) {
			return false
		}
	}

	for y := rg.Min.Y; y < rg.Max.Y; y++ {
		for x := rg.Min.X; x < rg.Max.X; x++ {
			p := gruid.Point{X: x, Y: y}
			if !l.free(p) || l.walls.Has(p) {
				return false
			}
		}
	}

	if t.MinSeparation > 0 {
		for _, p := range l.Structures {
			if p.Template.ID == t.ID && distance(p.Range(), rg) < t.MinSeparation {
				return false
			}
		}
	}

	if t.RequiresEdgeLOS && !s.edgeLOS(l, rg, region) {
		return false
	}

	return true
}

func (s *Solver) centerZone(l *LocalLayout) gruid.Range {
	sz := l.base.Size()
	w := max(1, int(math.Round(float64(sz.X)*s.cfg.CenterAvoid)))
	h := max(1, int(math.Round(float64(sz.Y)*s.cfg.CenterAvoid)))
	c := l.Center()
	return gruid.NewRange(c.X-w/2, c.Y-h/2, c.X-w/2+w, c.Y-h/2+h)
}

// edgeLOS reports whether a clear straight line runs from the centre of rg
// to the region boundary along at least one cardinal direction.
func (s *Solver) edgeLOS(l *LocalLayout, rg, region gruid.Range) bool {
	from := center(rg)
	dirs := [4]gruid.Point{{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}}
	for _, d := range dirs {
		clear := true
		for p := from.Add(d); p.In(region); p = p.Add(d) {
			if p.In(rg) {
				continue
			}
			if !l.free(p) {
				clear = false
				break
			}
		}
		if clear {
			return true
		}
	}
	return false
}

// barricade4 places cover barricades next to an anchor, on the side facing
// the nearest corner of the base rectangle.
func (s *Solver) barricade4(l *LocalLayout, rg gruid.Range) {
	if s.barricade == nil || s.cfg.BarricadeCount <= 0 {
		return
	}
	c := center(rg)
	corner := nearestCorner(l.base, c)
	v := corner.Sub(c)

	// line of cells just outside rg, one cell longer at each end
	var line []gruid.Point
	if abs(v.X) >= abs(v.Y) {
		x := rg.Min.X - 1
		if v.X > 0 {
			x = rg.Max.X
		}
		for y := rg.Min.Y - 1; y <= rg.Max.Y; y++ {
			line = append(line, gruid.Point{X: x, Y: y})
		}
	} else {
		y := rg.Min.Y - 1
		if v.Y > 0 {
			y = rg.Max.Y
		}
		for x := rg.Min.X - 1; x <= rg.Max.X; x++ {
			line = append(line, gruid.Point{X: x, Y: y})
		}
	}
	// closest to the side midpoint first
	slices.SortStableFunc(line, func(a, b gruid.Point) int {
		return cmp.Compare(manhattan(a, c), manhattan(b, c))
	})

	placed := 0
	for _, p := range line {
		if placed == s.cfg.BarricadeCount {
			break
		}
		if !p.In(l.base) || !l.free(p) || l.walls.Has(p) {
			continue
		}
		l.putStructure(s.barricade, p, model.RotNorth)
		placed++
	}
}

// reserveWalls marks the one-cell border of the base rectangle.
func (s *Solver) reserveWalls(l *LocalLayout) {
	for _, p := range perimeter(l.base) {
		l.walls.Put(p)
	}
}

// buildWalls fills the wall zone with wall templates, leaving one gap per side.
func (s *Solver) buildWalls(r *rng.Source, l *LocalLayout) {
	b := l.base
	sz := b.Size()
	gaps := [4]gruid.Point{
		{X: b.Min.X + 1 + r.IntN(sz.X-2), Y: b.Min.Y},
		{X: b.Min.X + 1 + r.IntN(sz.X-2), Y: b.Max.Y - 1},
		{X: b.Min.X, Y: b.Min.Y + 1 + r.IntN(sz.Y-2)},
		{X: b.Max.X - 1, Y: b.Min.Y + 1 + r.IntN(sz.Y-2)},
	}
	for _, p := range perimeter(b) {
		if slices.Contains(gaps[:], p) || !l.free(p) {
			continue
		}
		l.putStructure(s.wall, p, model.RotNorth)
	}
}

// placeUnit puts u next to a structure when possible, otherwise on rings of
// growing radius around the centre.
func (s *Solver) placeUnit(r *rng.Source, l *LocalLayout, u *model.UnitTemplate) bool {
	if p, ok := rng.Pick(r, s.adjacentFree(l)); ok {
		l.putUnit(u, p)
		return true
	}

	rg := l.grid.Range()
	sz := rg.Size()
	c := l.Center()
	for radius := 0; radius <= max(sz.X, sz.Y); radius++ {
		var ring []gruid.Point
		for y := c.Y - radius; y <= c.Y+radius; y++ {
			for x := c.X - radius; x <= c.X+radius; x++ {
				p := gruid.Point{X: x, Y: y}
				if max(abs(x-c.X), abs(y-c.Y)) != radius || !l.grid.Contains(p) {
					continue
				}
				l.UnitProbes++
				if l.free(p) && !l.walls.Has(p) {
					ring = append(ring, p)
				}
			}
		}
		if p, ok := rng.Pick(r, ring); ok {
			l.putUnit(u, p)
			return true
		}
	}
	return false
}

// adjacentFree lists free cells cardinally adjacent to placed structures,
// in structure order without duplicates.
func (s *Solver) adjacentFree(l *LocalLayout) []gruid.Point {
	seen := make(map[gruid.Point]bool)
	var out []gruid.Point
	for _, pl := range l.Structures {
		if pl.Template.Wall {
			continue
		}
		for _, p := range perimeter(expand(pl.Range(), 1)) {
			if seen[p] || !l.free(p) || l.walls.Has(p) || isCorner(pl.Range(), p) {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// perimeter returns the border cells of rg clockwise from the top-left corner.
func perimeter(rg gruid.Range) []gruid.Point {
	sz := rg.Size()
	if sz.X <= 0 || sz.Y <= 0 {
		return nil
	}
	var out []gruid.Point
	for x := rg.Min.X; x < rg.Max.X; x++ {
		out = append(out, gruid.Point{X: x, Y: rg.Min.Y})
	}
	for y := rg.Min.Y + 1; y < rg.Max.Y; y++ {
		out = append(out, gruid.Point{X: rg.Max.X - 1, Y: y})
	}
	if sz.Y > 1 {
		for x := rg.Max.X - 2; x >= rg.Min.X; x-- {
			out = append(out, gruid.Point{X: x, Y: rg.Max.Y - 1})
		}
	}
	if sz.X > 1 {
		for y := rg.Max.Y - 2; y > rg.Min.Y; y-- {
			out = append(out, gruid.Point{X: rg.Min.X, Y: y})
		}
	}
	return out
}

func expand(rg gruid.Range, n int) gruid.Range {
	return gruid.NewRange(rg.Min.X-n, rg.Min.Y-n, rg.Max.X+n, rg.Max.Y+n)
}

// isCorner reports whether p touches rg only diagonally.
func isCorner(rg gruid.Range, p gruid.Point) bool {
	outX := p.X < rg.Min.X || p.X >= rg.Max.X
	outY := p.Y < rg.Min.Y || p.Y >= rg.Max.Y
	return outX && outY
}

func overlaps(a, b gruid.Range) bool {
	return a.Min.X < b.Max.X && b.Min.X < a.Max.X && a.Min.Y < b.Max.Y && b.Min.Y < a.Max.Y
}

// contains reports whether inner lies entirely in outer. An empty outer contains nothing.
func contains(outer, inner gruid.Range) bool {
	if outer.Max.X <= outer.Min.X || outer.Max.Y <= outer.Min.Y {
		return false
	}
	return inner.Min.X >= outer.Min.X && inner.Min.Y >= outer.Min.Y &&
		inner.Max.X <= outer.Max.X && inner.Max.Y <= outer.Max.Y
}

// distance is the Chebyshev distance between the closest cells of a and b.
// Overlapping ranges are at distance 0.
func distance(a, b gruid.Range) int {
	if overlaps(a, b) {
		return 0
	}
	dx := max(0, b.Min.X-a.Max.X, a.Min.X-b.Max.X)
	dy := max(0, b.Min.Y-a.Max.Y, a.Min.Y-b.Max.Y)
	return max(dx, dy) + 1
}

func center(rg gruid.Range) gruid.Point {
	sz := rg.Size()
	return gruid.Point{X: rg.Min.X + sz.X/2, Y: rg.Min.Y + sz.Y/2}
}

func nearestCorner(rg gruid.Range, p gruid.Point) gruid.Point {
	corners := [4]gruid.Point{
		rg.Min,
		{X: rg.Max.X - 1, Y: rg.Min.Y},
		{X: rg.Min.X, Y: rg.Max.Y - 1},
		{X: rg.Max.X - 1, Y: rg.Max.Y - 1},
	}
	best := corners[0]
	for _, c := range corners[1:] {
		if manhattan(c, p) < manhattan(best, p) {
			best = c
		}
	}
	return best
}

func manhattan(a, b gruid.Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
