// Package encampment wires composition, layout, site search and spawning
// into the full generation pipeline.
package encampment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/anaseto/gruid"

	"github.com/udisondev/outpost/internal/composition"
	"github.com/udisondev/outpost/internal/config"
	"github.com/udisondev/outpost/internal/data"
	"github.com/udisondev/outpost/internal/layout"
	"github.com/udisondev/outpost/internal/model"
	"github.com/udisondev/outpost/internal/rng"
	"github.com/udisondev/outpost/internal/site"
	"github.com/udisondev/outpost/internal/spawn"
	"github.com/udisondev/outpost/internal/world"
)

// ErrNoSite is returned when the world has no cell to anchor an encampment.
var ErrNoSite = errors.New("world has no cell for an encampment")

// Ledger persists committed encampments.
type Ledger interface {
	Save(ctx context.Context, rec *model.EncampmentRecord) error
}

// Request describes one encampment to generate.
type Request struct {
	Points  float64
	Faction *model.Faction
	Dormant bool

	UnitsAllowed     bool
	NoProblemCausers bool
	Resonance        bool

	// Seed, when zero, is derived from the world seed and Key.
	Seed uint64
	Key  string

	Region  gruid.Range // optional restriction of arbitrary site probes
	MaxRect gruid.Point // optional cap on the local rectangle
}

// Plan is the uncommitted result of the pipeline.
type Plan struct {
	Seed        uint64
	Composition *model.Composition
	Layout      *layout.LocalLayout
	Site        site.Candidate
}

// Generator runs the full encampment pipeline against one world.
type Generator struct {
	worldSeed string
	selector  *composition.Selector
	solver    *layout.Solver
	finder    *site.Finder
	world     *world.World
	coord     *spawn.Coordinator
	ledger    Ledger
}

// NewGenerator creates a generator. ledger may be nil.
func NewGenerator(cfg config.Generator, catalog *data.Catalog, w *world.World, coord *spawn.Coordinator, ledger Ledger) *Generator {
	return &Generator{
		worldSeed: cfg.WorldSeed,
		selector:  composition.NewSelector(cfg.Composition, catalog),
		solver:    layout.NewSolver(cfg.Layout, catalog),
		finder:    site.NewFinder(cfg.Site),
		world:     w,
		coord:     coord,
		ledger:    ledger,
	}
}

// Seed returns the seed a request resolves to.
func (g *Generator) Seed(req Request) uint64 {
	if req.Seed != 0 {
		return req.Seed
	}
	return rng.Derive(g.worldSeed, req.Key)
}

// Plan selects, lays out and sites an encampment without touching the world.
// The same seed and world state always produce the same plan.
func (g *Generator) Plan(req Request) (*Plan, error) {
	seed := g.Seed(req)
	r := rng.New(seed)

	comp, err := g.selector.Select(r, req.Points, composition.Flags{
		UnitsAllowed:     req.UnitsAllowed,
		Dormant:          req.Dormant,
		NoProblemCausers: req.NoProblemCausers,
		Resonance:        req.Resonance,
	})
	if err != nil {
		return nil, fmt.Errorf("selecting composition for %.0f points: %w", req.Points, err)
	}

	l := g.solver.Solve(r, comp, req.MaxRect)

	cand, ok := g.finder.Find(r, g.world, l, req.Region)
	if !ok {
		return nil, ErrNoSite
	}

	return &Plan{
		Seed:        seed,
		Composition: comp,
		Layout:      l,
		Site:        cand,
	}, nil
}

// Generate plans an encampment, commits it into the world and records it in
// the ledger. A ledger failure is logged; the encampment stays spawned.
func (g *Generator) Generate(ctx context.Context, req Request) (*spawn.Encampment, *Plan, error) {
	plan, err := g.Plan(req)
	if err != nil {
		return nil, nil, err
	}

	// commit draws from a stream derived from the plan seed so that commit-time
	// randomness never shifts the plan
	enc, err := g.coord.Commit(ctx, rng.New(plan.Seed^commitSalt), plan.Layout, plan.Site.Anchor, req.Faction, req.Dormant)
	if err != nil {
		return nil, plan, fmt.Errorf("committing encampment: %w", err)
	}

	if g.ledger != nil {
		rec := enc.Record(plan.Seed, req.Points, plan.Site.Score)
		if err := g.ledger.Save(ctx, rec); err != nil {
			slog.Warn("encampment not recorded", "encampmentID", enc.ID, "error", err)
		}
	}

	slog.Info("encampment generated",
		"encampmentID", enc.ID,
		"seed", plan.Seed,
		"points", req.Points,
		"structures", len(plan.Layout.Structures),
		"units", len(plan.Layout.Units),
		"dropped", len(plan.Layout.Dropped),
		"anchor", plan.Site.Anchor,
		"score", plan.Site.Score)

	return enc, plan, nil
}

const commitSalt = 0x636f6d6d6974
