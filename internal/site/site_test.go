package site

import (
	"testing"

	"codeberg.org/anaseto/gruid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/outpost/internal/config"
	"github.com/udisondev/outpost/internal/curve"
	"github.com/udisondev/outpost/internal/layout"
	"github.com/udisondev/outpost/internal/model"
	"github.com/udisondev/outpost/internal/rng"
	"github.com/udisondev/outpost/internal/testutil"
	"github.com/udisondev/outpost/internal/world"
)

// bunkerLayout solves a layout holding a single 2x2 bunker.
func bunkerLayout(t *testing.T) *layout.LocalLayout {
	t.Helper()

	cat := testutil.SmallCatalog(t)
	bunker, ok := cat.Template("bunker")
	require.True(t, ok)

	cfg := config.DefaultLayout()
	cfg.Size = curve.Constant(5)
	cfg.SizeJitterMin, cfg.SizeJitterMax = 1, 1
	cfg.WallsChance = curve.Constant(0)

	comp := &model.Composition{
		Budget:     bunker.Cost,
		Structures: []model.StructurePick{{Template: bunker, Deducted: true}},
	}
	l := layout.NewSolver(cfg, cat).Solve(rng.New(1), comp, gruid.Point{})
	require.Len(t, l.Structures, 1)
	require.Len(t, l.Cells(), 4)
	return l
}

// cellsAt translates layout cells to world positions around anchor.
func cellsAt(l *layout.LocalLayout, anchor gruid.Point) []gruid.Point {
	var out []gruid.Point
	for _, off := range l.Cells() {
		out = append(out, anchor.Add(off))
	}
	return out
}

func TestScore(t *testing.T) {
	l := bunkerLayout(t)
	anchor := gruid.Point{X: 10, Y: 10}
	const radius = 6

	tests := []struct {
		name    string
		prepare func(w *world.World, cells []gruid.Point)
		anchor  gruid.Point
		want    float64
	}{
		{
			name:   "clean",
			anchor: anchor,
			want:   100,
		},
		{
			name:   "out of bounds",
			anchor: gruid.Point{X: -l.Bounds().Min.X - 1, Y: 10},
			want:   MinScore,
		},
		{
			name: "landing blocker",
			prepare: func(w *world.World, cells []gruid.Point) {
				e := model.NewStructure(w.NextObjectID(model.KindStructure), world.LandingShield, model.RotNorth)
				require.NoError(t, w.Place(e, cells[0]))
			},
			anchor: anchor,
			want:   MinScore,
		},
		{
			name: "one blocked cell",
			prepare: func(w *world.World, cells []gruid.Point) {
				w.SetTerrain(cells[0], world.Rock)
			},
			anchor: anchor,
			want:   75,
		},
		{
			name: "fogged half",
			prepare: func(w *world.World, cells []gruid.Point) {
				w.SetFog(cells[0], true)
				w.SetFog(cells[1], true)
			},
			anchor: anchor,
			want:   50,
		},
		{
			name: "roof and indoors take the larger fraction",
			prepare: func(w *world.World, cells []gruid.Point) {
				w.SetRoof(cells[0], true)
				w.SetRoof(cells[1], true)
				w.SetIndoors(cells[2], true)
			},
			anchor: anchor,
			want:   50,
		},
		{
			name: "near player",
			prepare: func(w *world.World, cells []gruid.Point) {
				c := model.NewUnit(w.NextObjectID(model.KindUnit), world.Colonist)
				c.SetFaction(model.NewFaction(1, "colony", true))
				require.NoError(t, w.Place(c, cells[0].Add(gruid.Point{X: 0, Y: -radius})))
			},
			anchor: anchor,
			want:   50,
		},
		{
			name: "blocked and fogged multiply",
			prepare: func(w *world.World, cells []gruid.Point) {
				w.SetTerrain(cells[0], world.Water)
				w.SetFog(cells[1], true)
			},
			anchor: anchor,
			want:   100 * 0.75 * 0.75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := world.New(30, 30)
			if tt.prepare != nil {
				tt.prepare(w, cellsAt(l, tt.anchor))
			}
			assert.InDelta(t, tt.want, Score(w, tt.anchor, l, radius), 1e-9)
		})
	}
}

func TestScore_Range(t *testing.T) {
	l := bunkerLayout(t)
	w := world.Demo(config.Default().World, rng.New(3), model.NewFaction(1, "colony", true))

	for y := -2; y < 122; y += 7 {
		for x := -2; x < 122; x += 7 {
			s := Score(w, gruid.Point{X: x, Y: y}, l, 6)
			assert.True(t, s == MinScore || (s >= 0 && s <= MaxScore), "score %v at (%d,%d)", s, x, y)
		}
	}
}

func TestFinder_Clean(t *testing.T) {
	l := bunkerLayout(t)
	w := world.New(40, 40)

	cfg := config.DefaultSite()
	got, ok := NewFinder(cfg).Find(rng.New(9), w, l, gruid.Range{})
	require.True(t, ok)
	assert.Equal(t, MaxScore, got.Score)
	for _, p := range cellsAt(l, got.Anchor) {
		assert.True(t, p.In(w.Bounds()))
	}
}

func TestFinder_AlwaysAnAnchor(t *testing.T) {
	l := bunkerLayout(t)
	shield := func(w *world.World) {
		// landing shields everywhere: every candidate scores MinScore
		for y := 0; y < 6; y += 2 {
			for x := 0; x < 6; x += 2 {
				e := model.NewStructure(w.NextObjectID(model.KindStructure), world.LandingShield, model.RotNorth)
				require.NoError(t, w.Place(e, gruid.Point{X: x, Y: y}))
			}
		}
	}

	tests := []struct {
		name  string
		world func() *world.World
	}{
		{"smaller than layout", func() *world.World { return world.New(1, 1) }},
		{"landings blocked", func() *world.World {
			w := world.New(6, 6)
			shield(w)
			return w
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.world()
			for seed := range uint64(20) {
				got, ok := NewFinder(config.DefaultSite()).Find(rng.New(seed), w, l, gruid.Range{})
				require.True(t, ok)
				assert.True(t, got.Anchor.In(w.Bounds()), "anchor %v", got.Anchor)
				assert.Equal(t, MinScore, got.Score)
			}
		})
	}
}

func TestFinder_AnchorInsideSmallWorld(t *testing.T) {
	// the bunker sits off the layout centre, so anchors near the edge
	// can keep every cell in bounds while the anchor itself is outside
	l := bunkerLayout(t)
	w := world.New(6, 6)

	for seed := range uint64(50) {
		got, ok := NewFinder(config.DefaultSite()).Find(rng.New(seed), w, l, gruid.Range{})
		require.True(t, ok)
		assert.True(t, got.Anchor.In(w.Bounds()), "seed %d anchor %v", seed, got.Anchor)
		assert.Equal(t, MaxScore, got.Score, "seed %d", seed)
		for _, p := range cellsAt(l, got.Anchor) {
			assert.True(t, p.In(w.Bounds()), "seed %d cell %v", seed, p)
		}
	}
}

// nowhere is a world without cells.
type nowhere struct{}

func (nowhere) Bounds() gruid.Range { return gruid.Range{} }
func (nowhere) Standable(gruid.Point) bool { return false }
func (nowhere) Fogged(gruid.Point) bool { return false }
func (nowhere) Roofed(gruid.Point) bool { return false }
func (nowhere) Indoors(gruid.Point) bool { return false }
func (nowhere) BlocksLandings(gruid.Point) bool { return false }
func (nowhere) NearPlayer(gruid.Point, int) bool { return false }
func (nowhere) InhabitedCells() []gruid.Point { return nil }

func TestFinder_EmptyWorld(t *testing.T) {
	_, ok := NewFinder(config.DefaultSite()).Find(rng.New(1), nowhere{}, bunkerLayout(t), gruid.Range{})
	assert.False(t, ok)
}

func TestFinder_Region(t *testing.T) {
	l := bunkerLayout(t)
	w := world.New(60, 60)
	region := gruid.NewRange(40, 40, 50, 50)

	cfg := config.DefaultSite()
	cfg.NearInhabitedChance = 0
	for seed := range uint64(10) {
		got, ok := NewFinder(cfg).Find(rng.New(seed), w, l, region)
		require.True(t, ok)
		assert.True(t, got.Anchor.In(region), "anchor %v", got.Anchor)
	}
}

func TestFinder_NearInhabited(t *testing.T) {
	l := bunkerLayout(t)
	w := world.New(100, 100)
	home := gruid.Point{X: 50, Y: 50}
	c := model.NewUnit(w.NextObjectID(model.KindUnit), world.Colonist)
	c.SetFaction(model.NewFaction(1, "colony", true))
	require.NoError(t, w.Place(c, home))

	cfg := config.DefaultSite()
	cfg.NearInhabitedChance = 1
	cfg.NearInhabitedMin, cfg.NearInhabitedMax = 15, 20

	for seed := range uint64(10) {
		got, ok := NewFinder(cfg).Find(rng.New(seed), w, l, gruid.Range{})
		require.True(t, ok)
		assert.Equal(t, MaxScore, got.Score, "first candidate is clean and accepted")
		d := max(abs(got.Anchor.X-home.X), abs(got.Anchor.Y-home.Y))
		assert.GreaterOrEqual(t, d, 15)
		assert.LessOrEqual(t, d, 20)
	}
}

func TestFinder_Deterministic(t *testing.T) {
	l := bunkerLayout(t)
	player := model.NewFaction(1, "colony", true)
	find := func() Candidate {
		w := world.Demo(config.Default().World, rng.New(5), player)
		got, ok := NewFinder(config.DefaultSite()).Find(rng.New(77), w, l, gruid.Range{})
		require.True(t, ok)
		return got
	}
	assert.Equal(t, find(), find())
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
