// Package site scores candidate world anchors for a local layout and
// searches the world for the best one.
package site

import (
	"log/slog"
	"math"

	"codeberg.org/anaseto/gruid"

	"github.com/udisondev/outpost/internal/config"
	"github.com/udisondev/outpost/internal/layout"
	"github.com/udisondev/outpost/internal/rng"
)

// Score bounds.
const (
	MaxScore = 100.0
	MinScore = -100.0
)

// Snapshot is the read-only world view site scoring needs.
type Snapshot interface {
	Bounds() gruid.Range
	Standable(p gruid.Point) bool
	Fogged(p gruid.Point) bool
	Roofed(p gruid.Point) bool
	Indoors(p gruid.Point) bool
	BlocksLandings(p gruid.Point) bool
	NearPlayer(p gruid.Point, radius int) bool
	InhabitedCells() []gruid.Point
}

// Candidate is a scored anchor cell.
type Candidate struct {
	Anchor gruid.Point
	Score  float64
}

// Score evaluates committing l with its centre at anchor.
//
// Out of bounds cells and landing blockers short-circuit to MinScore.
// Otherwise MaxScore is multiplied by (1 - blocked fraction), (1 - fogged
// fraction), (1 - max(roofed, indoors fraction)) and by 0.5 if any cell is
// within playerRadius of a player entity.
func Score(snap Snapshot, anchor gruid.Point, l *layout.LocalLayout, playerRadius int) float64 {
	return score(snap, anchor, l.Cells(), playerRadius)
}

func score(snap Snapshot, anchor gruid.Point, cells []gruid.Point, playerRadius int) float64 {
	if len(cells) == 0 {
		cells = []gruid.Point{{}}
	}
	bounds := snap.Bounds()

	var blocked, fogged, roofed, indoors int
	nearPlayer := false
	for _, off := range cells {
		p := anchor.Add(off)
		if !p.In(bounds) || snap.BlocksLandings(p) {
			return MinScore
		}
		if !snap.Standable(p) {
			blocked++
		}
		if snap.Fogged(p) {
			fogged++
		}
		if snap.Roofed(p) {
			roofed++
		}
		if snap.Indoors(p) {
			indoors++
		}
		if !nearPlayer && snap.NearPlayer(p, playerRadius) {
			nearPlayer = true
		}
	}

	n := float64(len(cells))
	s := MaxScore
	s *= 1 - float64(blocked)/n
	s *= 1 - float64(fogged)/n
	s *= 1 - math.Max(float64(roofed), float64(indoors))/n
	if nearPlayer {
		s *= 0.5
	}
	return s
}

// Finder searches the world for an anchor.
type Finder struct {
	cfg config.Site
}

// NewFinder creates a site finder.
func NewFinder(cfg config.Site) *Finder {
	return &Finder{cfg: cfg}
}

// Find probes the world for the best anchor for l. region, when non-empty,
// restricts arbitrary probes. Find always returns an in-bounds anchor for a
// non-empty world; the second result is false only for an empty world.
func (f *Finder) Find(r *rng.Source, snap Snapshot, l *layout.LocalLayout, region gruid.Range) (Candidate, bool) {
	bounds := snap.Bounds()
	if empty(bounds) {
		return Candidate{}, false
	}

	cells := l.Cells()
	ext := l.Bounds()
	// in-bounds anchors for which every cell stays in bounds; the layout
	// centre need not be one of its cells
	safe := gruid.Range{
		Min: bounds.Min.Sub(ext.Min),
		Max: bounds.Max.Sub(ext.Max).Add(gruid.Point{X: 1, Y: 1}),
	}
	if !empty(safe) {
		safe = safe.Intersect(bounds)
	}
	if empty(ext) || empty(safe) {
		// empty layout, or a layout larger than the world
		safe = bounds
	}
	area := safe
	if !empty(region) {
		if in := region.Intersect(safe); !empty(in) {
			area = in
		}
	}

	best := Candidate{Score: math.Inf(-1)}
	found := false
	probes := 0

	probe := func(p gruid.Point) bool {
		probes++
		s := score(snap, p, cells, f.cfg.PlayerRadius)
		if s > best.Score {
			best = Candidate{Anchor: p, Score: s}
			found = s > MinScore
		}
		return s >= f.cfg.AcceptScore
	}

	inhabited := snap.InhabitedCells()
	if len(inhabited) > 0 && r.Chance(f.cfg.NearInhabitedChance) {
		for range min(f.cfg.NearInhabitedProbes, f.cfg.Probes) {
			home, _ := rng.Pick(r, inhabited)
			if probe(nearby(r, home, f.cfg.NearInhabitedMin, f.cfg.NearInhabitedMax, safe)) {
				return f.done(best, probes, "near-inhabited"), true
			}
		}
	}

	for probes < f.cfg.Probes {
		if probe(randomIn(r, area)) {
			return f.done(best, probes, "arbitrary"), true
		}
	}

	if found {
		return f.done(best, probes, "best-seen"), true
	}

	// nothing valid: any in-bounds cell
	c := Candidate{Anchor: randomIn(r, area), Score: MinScore}
	slog.Warn("no valid encampment site found, using arbitrary anchor",
		"anchor", c.Anchor,
		"probes", probes,
		"bestScore", best.Score)
	return c, true
}

func (f *Finder) done(c Candidate, probes int, phase string) Candidate {
	slog.Debug("encampment site chosen",
		"anchor", c.Anchor,
		"score", c.Score,
		"probes", probes,
		"phase", phase)
	return c
}

// nearby picks a point at a random Chebyshev distance in [lo, hi] from home,
// clamped into area.
func nearby(r *rng.Source, home gruid.Point, lo, hi int, area gruid.Range) gruid.Point {
	d := r.RangeInclusive(lo, hi)
	var off gruid.Point
	// one coordinate at exactly d, the other anywhere in [-d, d]
	if r.Chance(0.5) {
		off = gruid.Point{X: sign(r) * d, Y: r.RangeInclusive(-d, d)}
	} else {
		off = gruid.Point{X: r.RangeInclusive(-d, d), Y: sign(r) * d}
	}
	p := home.Add(off)
	p.X = min(max(p.X, area.Min.X), area.Max.X-1)
	p.Y = min(max(p.Y, area.Min.Y), area.Max.Y-1)
	return p
}

func sign(r *rng.Source) int {
	if r.Chance(0.5) {
		return 1
	}
	return -1
}

func randomIn(r *rng.Source, rg gruid.Range) gruid.Point {
	sz := rg.Size()
	return gruid.Point{X: rg.Min.X + r.IntN(sz.X), Y: rg.Min.Y + r.IntN(sz.Y)}
}

func empty(rg gruid.Range) bool {
	return rg.Max.X <= rg.Min.X || rg.Max.Y <= rg.Min.Y
}
