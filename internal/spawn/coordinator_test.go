package spawn

import (
	"context"
	"math"
	"testing"
	"time"

	"codeberg.org/anaseto/gruid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/outpost/internal/ai"
	"github.com/udisondev/outpost/internal/config"
	"github.com/udisondev/outpost/internal/curve"
	"github.com/udisondev/outpost/internal/layout"
	"github.com/udisondev/outpost/internal/model"
	"github.com/udisondev/outpost/internal/rng"
	"github.com/udisondev/outpost/internal/testutil"
	"github.com/udisondev/outpost/internal/world"
)

var raiders = model.NewFaction(2, "raiders", false)

// solve lays out the given SmallCatalog templates and units in a 9x9 rectangle.
func solve(t *testing.T, ids []string, units ...string) *layout.LocalLayout {
	t.Helper()
	cat := testutil.SmallCatalog(t)

	comp := &model.Composition{Budget: 1000}
	for _, id := range ids {
		tpl, ok := cat.Template(id)
		require.True(t, ok, id)
		comp.Structures = append(comp.Structures, model.StructurePick{Template: tpl, Deducted: true})
	}
	for _, id := range units {
		u, ok := cat.Unit(id)
		require.True(t, ok, id)
		comp.Units = append(comp.Units, u)
	}

	cfg := config.DefaultLayout()
	cfg.Size = curve.Constant(9)
	cfg.SizeJitterMin, cfg.SizeJitterMax = 1, 1
	cfg.WallsChance = curve.Constant(0)

	l := layout.NewSolver(cfg, cat).Solve(rng.New(4), comp, gruid.Point{})
	require.Empty(t, l.Dropped)
	return l
}

func newCoordinator(w *world.World) (*Coordinator, *ai.TickManager) {
	ticks := ai.NewTickManager(time.Second)
	return NewCoordinator(w, ticks, config.Default().Spawn), ticks
}

func TestCommit(t *testing.T) {
	l := solve(t, []string{"bunker", "turret", "crate"}, "grunt", "grunt")
	w := world.New(60, 60)
	coord, ticks := newCoordinator(w)
	anchor := gruid.Point{X: 30, Y: 30}

	enc, err := coord.Commit(context.Background(), rng.New(1), l, anchor, raiders, false)
	require.NoError(t, err)

	require.Len(t, enc.Members, len(l.Structures)+len(l.Units))
	assert.Zero(t, enc.Skipped)
	assert.Equal(t, anchor, enc.Controller.Spot())
	assert.Equal(t, 1, ticks.Count())
	assert.Equal(t, 1, coord.Count())

	got, ok := coord.Encampment(enc.ID)
	require.True(t, ok)
	assert.Same(t, enc, got)

	for i, pl := range l.Structures {
		m := enc.Members[i]
		assert.Equal(t, pl.Template.ID, m.TemplateID())
		assert.Equal(t, anchor.Add(l.Offset(pl.Pos)), m.Position())
		assert.Same(t, raiders, m.Faction())
		assert.Equal(t, model.IntentionActive, m.Intention())
	}
	for i, up := range l.Units {
		m := enc.Members[len(l.Structures)+i]
		assert.Equal(t, model.KindUnit, m.Kind())
		assert.Equal(t, anchor.Add(l.Offset(up.Pos)), m.Position())
	}

	// every layout cell translated by the anchor is occupied by a member
	for _, off := range l.Cells() {
		e, ok := w.Occupant(anchor.Add(off))
		require.True(t, ok, "cell %v", anchor.Add(off))
		assert.Same(t, raiders, e.Faction())
	}

	assert.Len(t, enc.LookTargets(), len(enc.Members))
}

func TestCommit_DefendRadius(t *testing.T) {
	l := solve(t, []string{"bunker", "mortar"})
	coord, _ := newCoordinator(world.New(60, 60))

	enc, err := coord.Commit(context.Background(), rng.New(1), l, gruid.Point{X: 20, Y: 20}, raiders, false)
	require.NoError(t, err)

	want := int(math.Ceil(l.Diagonal()/2)) + config.Default().Spawn.DefendRadiusMargin
	assert.Equal(t, want, enc.Controller.Radius())
}

func TestCommit_Fallback(t *testing.T) {
	l := solve(t, []string{"turret"})
	w := world.New(30, 30)
	anchor := gruid.Point{X: 15, Y: 15}
	target := anchor.Add(l.Offset(l.Structures[0].Pos))
	w.SetTerrain(target, world.Rock)

	coord, _ := newCoordinator(w)
	enc, err := coord.Commit(context.Background(), rng.New(1), l, anchor, raiders, false)
	require.NoError(t, err)

	require.Len(t, enc.Members, 1)
	pos := enc.Members[0].Position()
	assert.NotEqual(t, target, pos)
	d := max(abs(pos.X-target.X), abs(pos.Y-target.Y))
	assert.Equal(t, 1, d, "nearest free cell")
}

func TestCommit_Skip(t *testing.T) {
	l := solve(t, []string{"bunker", "turret"}, "grunt")
	w := world.New(30, 30)
	for y := range 30 {
		for x := range 30 {
			w.SetTerrain(gruid.Point{X: x, Y: y}, world.Water)
		}
	}

	coord, ticks := newCoordinator(w)
	enc, err := coord.Commit(context.Background(), rng.New(1), l, gruid.Point{X: 15, Y: 15}, raiders, false)
	require.NoError(t, err, "placement failures are soft")
	assert.Empty(t, enc.Members)
	assert.Equal(t, len(l.Structures)+len(l.Units), enc.Skipped)
	assert.Zero(t, w.EntityCount())

	// без боевых участников лагерь не регистрируется
	assert.True(t, enc.Controller.Cleared())
	assert.Zero(t, coord.Count())
	assert.Zero(t, ticks.Count())
	_, ok := coord.Encampment(enc.ID)
	assert.False(t, ok)
}

func TestCommit_SpawnerDependency(t *testing.T) {
	l := solve(t, []string{"assembler", "turret"})
	coord, _ := newCoordinator(world.New(60, 60))

	enc, err := coord.Commit(context.Background(), rng.New(1), l, gruid.Point{X: 30, Y: 30}, raiders, false)
	require.NoError(t, err)

	var spawners []uint32
	for _, m := range enc.Members {
		if m.Spawner() {
			spawners = append(spawners, m.ObjectID())
		}
	}
	require.Len(t, spawners, 1)
	assert.Equal(t, spawners, enc.Controller.Dependencies())
}

func TestCommit_Dormant(t *testing.T) {
	l := solve(t, []string{"bunker", "countdown", "sensor"}, "grunt")
	coord, ticks := newCoordinator(world.New(60, 60))

	enc, err := coord.Commit(context.Background(), rng.New(1), l, gruid.Point{X: 30, Y: 30}, raiders, true)
	require.NoError(t, err)

	assert.True(t, enc.Dormant)
	assert.True(t, enc.Controller.Dormant())
	assert.Equal(t, model.IntentionDormant, enc.Controller.CurrentIntention())
	for _, m := range enc.Members {
		assert.True(t, m.Dormant(), m.TemplateID())
	}

	cfg := config.Default().Spawn
	cd := enc.Controller.Countdown()
	assert.GreaterOrEqual(t, cd, cfg.CountdownMinTicks)
	assert.LessOrEqual(t, cd, cfg.CountdownMaxTicks)

	for range cd {
		ticks.TickAll()
	}
	assert.False(t, enc.Controller.Dormant(), "countdown activator woke the camp")
}

func TestCommit_ClearedReleases(t *testing.T) {
	l := solve(t, []string{"bunker", "crate"}, "grunt")
	w := world.New(60, 60)
	coord, ticks := newCoordinator(w)

	enc, err := coord.Commit(context.Background(), rng.New(1), l, gruid.Point{X: 30, Y: 30}, raiders, false)
	require.NoError(t, err)

	for _, m := range enc.Members {
		if m.CombatCapable() {
			w.Destroy(m.ObjectID())
		}
	}

	assert.True(t, enc.Controller.Cleared())
	assert.Zero(t, coord.Count())
	assert.Zero(t, ticks.Count())
	_, ok := coord.Encampment(enc.ID)
	assert.False(t, ok)
	assert.Len(t, enc.LookTargets(), 1, "only the crate stands")
}

func TestCommit_Errors(t *testing.T) {
	l := solve(t, []string{"turret"})
	coord, _ := newCoordinator(world.New(10, 10))

	_, err := coord.Commit(context.Background(), rng.New(1), l, gruid.Point{X: 5, Y: 5}, nil, false)
	assert.ErrorIs(t, err, ErrNoFaction)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = coord.Commit(ctx, rng.New(1), l, gruid.Point{X: 5, Y: 5}, raiders, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncampment_Record(t *testing.T) {
	l := solve(t, []string{"bunker"}, "grunt")
	coord, _ := newCoordinator(world.New(30, 30))

	enc, err := coord.Commit(context.Background(), rng.New(1), l, gruid.Point{X: 10, Y: 10}, raiders, true)
	require.NoError(t, err)

	rec := enc.Record(99, 360, 87.5)
	assert.Equal(t, uint64(99), rec.Seed)
	assert.Equal(t, 360.0, rec.Points)
	assert.Equal(t, 87.5, rec.Score)
	assert.Equal(t, int32(2), rec.FactionID)
	assert.True(t, rec.Dormant)
	require.Len(t, rec.Members, 2)
	assert.Equal(t, "bunker", rec.Members[0].TemplateID)
	assert.Equal(t, model.KindUnit, rec.Members[1].Kind)
	assert.Equal(t, enc.Members[1].Position(), rec.Members[1].Position)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
