package encampment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"codeberg.org/anaseto/gruid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/outpost/internal/ai"
	"github.com/udisondev/outpost/internal/config"
	"github.com/udisondev/outpost/internal/data"
	"github.com/udisondev/outpost/internal/db"
	"github.com/udisondev/outpost/internal/model"
	"github.com/udisondev/outpost/internal/rng"
	"github.com/udisondev/outpost/internal/site"
	"github.com/udisondev/outpost/internal/spawn"
	"github.com/udisondev/outpost/internal/testutil"
	"github.com/udisondev/outpost/internal/world"
)

type harness struct {
	gen    *Generator
	world  *world.World
	ticks  *ai.TickManager
	ledger *testutil.MockLedger
}

func newHarness(t *testing.T, catalog *data.Catalog, w *world.World) *harness {
	t.Helper()
	cfg := config.Default()
	ticks := ai.NewTickManager(time.Second)
	ledger := testutil.NewMockLedger()
	coord := spawn.NewCoordinator(w, ticks, cfg.Spawn)
	return &harness{
		gen:    NewGenerator(cfg, catalog, w, coord, ledger),
		world:  w,
		ticks:  ticks,
		ledger: ledger,
	}
}

func request(points float64) Request {
	return Request{
		Points:       points,
		Faction:      testutil.Raiders,
		UnitsAllowed: true,
		Key:          "raid-1",
	}
}

func TestGenerator_Seed(t *testing.T) {
	h := newHarness(t, testutil.SmallCatalog(t), testutil.FlatWorld(t, 40, 40))

	req := request(600)
	assert.Equal(t, rng.Derive(config.Default().WorldSeed, "raid-1"), h.gen.Seed(req))

	req.Seed = 77
	assert.Equal(t, uint64(77), h.gen.Seed(req))
}

func TestGenerator_PlanDeterministic(t *testing.T) {
	cat := testutil.DefaultCatalog(t)
	a := newHarness(t, cat, testutil.FlatWorld(t, 80, 80))
	b := newHarness(t, cat, testutil.FlatWorld(t, 80, 80))

	for _, points := range []float64{300, 1200, 5000} {
		pa, err := a.gen.Plan(request(points))
		require.NoError(t, err)
		pb, err := b.gen.Plan(request(points))
		require.NoError(t, err)

		assert.Equal(t, pa.Seed, pb.Seed)
		assert.Equal(t, pa.Site, pb.Site, "points %v", points)
		assert.Equal(t, templateIDs(pa.Composition), templateIDs(pb.Composition))
		assert.Equal(t, pa.Layout.Cells(), pb.Layout.Cells())
	}
}

func TestGenerator_PlanDoesNotTouchWorld(t *testing.T) {
	h := newHarness(t, testutil.SmallCatalog(t), testutil.FlatWorld(t, 40, 40))

	_, err := h.gen.Plan(request(600))
	require.NoError(t, err)
	assert.Zero(t, h.world.EntityCount())
	assert.Zero(t, h.ticks.Count())
}

func TestGenerator_Generate(t *testing.T) {
	h := newHarness(t, testutil.SmallCatalog(t), testutil.FlatWorld(t, 60, 60))

	enc, plan, err := h.gen.Generate(context.Background(), request(800))
	require.NoError(t, err)
	require.NotNil(t, plan)

	assert.Equal(t, plan.Site.Anchor, enc.Anchor)
	assert.Same(t, testutil.Raiders, enc.Faction)
	assert.NotEmpty(t, enc.Members)
	assert.Equal(t, len(enc.Members), h.world.EntityCount())
	assert.Equal(t, 1, h.ticks.Count())

	hasThreat := false
	for _, m := range enc.Members {
		if m.CombatCapable() {
			hasThreat = true
		}
	}
	assert.True(t, hasThreat, "every encampment carries a combat threat")

	recs := h.ledger.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, plan.Seed, recs[0].Seed)
	assert.Equal(t, 800.0, recs[0].Points)
	assert.Equal(t, plan.Site.Score, recs[0].Score)
	assert.Equal(t, testutil.Raiders.ID, recs[0].FactionID)
	assert.Len(t, recs[0].Members, len(enc.Members))
}

func TestGenerator_LedgerFailure(t *testing.T) {
	h := newHarness(t, testutil.SmallCatalog(t), testutil.FlatWorld(t, 60, 60))
	h.ledger.Fail = true

	enc, _, err := h.gen.Generate(context.Background(), request(800))
	require.NoError(t, err, "ledger failure does not undo the spawn")
	assert.NotEmpty(t, enc.Members)
	assert.Empty(t, h.ledger.Records())
	assert.Equal(t, 1, h.ticks.Count())
}

func TestGenerator_Dormant(t *testing.T) {
	h := newHarness(t, testutil.SmallCatalog(t), testutil.FlatWorld(t, 60, 60))

	req := request(800)
	req.Dormant = true
	enc, _, err := h.gen.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, enc.Controller.Dormant())
	for _, m := range enc.Members {
		assert.True(t, m.Dormant(), m.TemplateID())
	}
	assert.True(t, h.ledger.Records()[0].Dormant)
}

func TestGenerator_AlwaysAnAnchor(t *testing.T) {
	// мир меньше раскладки: якорь всё равно находится
	h := newHarness(t, testutil.SmallCatalog(t), testutil.FlatWorld(t, 3, 3))

	plan, err := h.gen.Plan(request(2000))
	require.NoError(t, err)
	assert.True(t, plan.Site.Anchor.In(h.world.Bounds()))
	assert.GreaterOrEqual(t, plan.Site.Score, float64(site.MinScore))
}

func TestGenerator_Region(t *testing.T) {
	h := newHarness(t, testutil.SmallCatalog(t), testutil.FlatWorld(t, 100, 100))

	req := request(300)
	req.Region = gruid.NewRange(60, 60, 90, 90)
	plan, err := h.gen.Plan(req)
	require.NoError(t, err)
	assert.True(t, plan.Site.Anchor.In(req.Region), "anchor %v", plan.Site.Anchor)
}

func TestGenerator_NearColony(t *testing.T) {
	h := newHarness(t, testutil.SmallCatalog(t), testutil.FlatWorld(t, 80, 80))
	home := gruid.Point{X: 20, Y: 40}
	colonist := testutil.PlaceColonist(t, h.world, home)

	for i := range 5 {
		req := request(600)
		req.Key = fmt.Sprintf("raid-%d", i)
		enc, _, err := h.gen.Generate(context.Background(), req)
		require.NoError(t, err)
		for _, m := range enc.Members {
			assert.NotEqual(t, home, m.Position())
		}
	}

	got, ok := h.world.Occupant(home)
	require.True(t, ok)
	assert.Same(t, colonist, got, "the colonist is never displaced")
}

func TestGenerator_PersistsToDatabase(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ledger := db.NewEncampmentRepository(pool)

	cfg := config.Default()
	w := testutil.FlatWorld(t, 60, 60)
	ticks := ai.NewTickManager(time.Second)
	gen := NewGenerator(cfg, testutil.SmallCatalog(t), w, spawn.NewCoordinator(w, ticks, cfg.Spawn), ledger)

	enc, plan, err := gen.Generate(context.Background(), request(800))
	require.NoError(t, err)

	recs, err := ledger.LoadRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, plan.Seed, recs[0].Seed)
	assert.Equal(t, enc.Anchor, recs[0].Anchor)
	assert.Len(t, recs[0].Members, len(enc.Members))
}

func TestGenerator_Errors(t *testing.T) {
	t.Run("no combat threat", func(t *testing.T) {
		cat := testutil.Catalog(t, `
templates:
  - {id: crate, cost: 40, tags: [good]}
`)
		h := newHarness(t, cat, testutil.FlatWorld(t, 30, 30))

		_, _, err := h.gen.Generate(context.Background(), request(500))
		assert.ErrorIs(t, err, model.ErrNoCombatThreat)
		assert.Zero(t, h.world.EntityCount())
		assert.Empty(t, h.ledger.Records())
	})

	t.Run("no faction", func(t *testing.T) {
		h := newHarness(t, testutil.SmallCatalog(t), testutil.FlatWorld(t, 30, 30))

		req := request(500)
		req.Faction = nil
		_, _, err := h.gen.Generate(context.Background(), req)
		assert.ErrorIs(t, err, spawn.ErrNoFaction)
		assert.Empty(t, h.ledger.Records())
	})
}

func templateIDs(c *model.Composition) []string {
	ids := make([]string, 0, len(c.Structures)+len(c.Units))
	for _, s := range c.Structures {
		ids = append(ids, s.Template.ID)
	}
	for _, u := range c.Units {
		ids = append(ids, u.ID)
	}
	return ids
}
