package world

import (
	"log/slog"

	"codeberg.org/anaseto/gruid"

	"github.com/udisondev/outpost/internal/config"
	"github.com/udisondev/outpost/internal/model"
	"github.com/udisondev/outpost/internal/rng"
)

// Player-side blueprints used by the demo world.
var (
	ColonyHall = &model.Template{
		ID:    "colony_hall",
		Label: "colony hall",
		Size:  gruid.Point{X: 4, Y: 4},
		Tags:  model.NewTagSet(),
	}
	LandingShield = &model.Template{
		ID:             "landing_shield",
		Label:          "landing shield projector",
		Size:           gruid.Point{X: 2, Y: 2},
		Tags:           model.NewTagSet(),
		BlocksLandings: true,
	}
	Colonist = &model.UnitTemplate{
		ID:          "colonist",
		Label:       "colonist",
		CombatPower: 40,
		Tags:        model.NewTagSet(),
	}
)

// Demo builds a world for the CLI: scattered rock, a pond, a roofed player
// base in the west and fog beyond the revealed radius around the base.
func Demo(cfg config.World, r *rng.Source, player *model.Faction) *World {
	w := New(cfg.Width, cfg.Height)
	bounds := w.Bounds()

	bs := max(cfg.BaseSize, 6)
	base := gruid.NewRange(cfg.Width/6, cfg.Height/2-bs/2, cfg.Width/6+bs, cfg.Height/2-bs/2+bs).Intersect(bounds)
	keepClear := gruid.NewRange(base.Min.X-2, base.Min.Y-2, base.Max.X+2, base.Max.Y+2)
	baseCenter := center(base)

	pond := gruid.Point{X: r.RangeInclusive(cfg.Width/2, cfg.Width-8), Y: r.RangeInclusive(8, cfg.Height-8)}
	const pondRadius = 4

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			p := gruid.Point{X: x, Y: y}
			switch {
			case p.In(keepClear):
			case chebyshev(gruid.NewRange(pond.X, pond.Y, pond.X+1, pond.Y+1), p) <= pondRadius:
				w.SetTerrain(p, Water)
			case r.Chance(cfg.RockDensity):
				w.SetTerrain(p, Rock)
			}

			if p.In(base) {
				w.SetRoof(p, true)
				w.SetIndoors(p, true)
			}
			if chebyshev(base, p) > cfg.RevealRadius {
				w.SetFog(p, true)
			}
		}
	}

	hall := model.NewStructure(w.NextObjectID(model.KindStructure), ColonyHall, model.RotNorth)
	hall.SetFaction(player)
	if err := w.Place(hall, baseCenter.Sub(gruid.Point{X: 2, Y: 2})); err != nil {
		slog.Warn("demo colony hall not placed", "error", err)
	}

	shield := model.NewStructure(w.NextObjectID(model.KindStructure), LandingShield, model.RotNorth)
	shield.SetFaction(player)
	if err := w.Place(shield, base.Min.Add(gruid.Point{X: 1, Y: 1})); err != nil {
		slog.Warn("demo landing shield not placed", "error", err)
	}

	for i := range 3 {
		c := model.NewUnit(w.NextObjectID(model.KindUnit), Colonist)
		c.SetFaction(player)
		c.Wake()
		p := gruid.Point{X: base.Max.X - 2, Y: base.Min.Y + 1 + i*2}
		if err := w.Place(c, p); err != nil {
			slog.Warn("demo colonist not placed", "error", err)
		}
	}

	slog.Info("demo world built",
		"width", cfg.Width,
		"height", cfg.Height,
		"base", base,
		"entities", w.EntityCount())

	return w
}

func center(rg gruid.Range) gruid.Point {
	sz := rg.Size()
	return gruid.Point{X: rg.Min.X + sz.X/2, Y: rg.Min.Y + sz.Y/2}
}
