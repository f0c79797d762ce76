package data

import (
	"testing"

	"codeberg.org/anaseto/gruid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/outpost/internal/model"
)

func TestLoadCatalogEmbedded(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	sentry, ok := c.Template("sentry_turret")
	require.True(t, ok)
	assert.Equal(t, 100.0, sentry.Cost)
	assert.True(t, sentry.Turret)
	assert.True(t, sentry.HasTag(model.TagCombatThreat))

	wall, ok := c.First(model.TagWall)
	require.True(t, ok)
	assert.True(t, wall.Wall)
	assert.Zero(t, wall.Weight, "explicit zero weight survives decoding")

	cache, ok := c.Template("supply_cache")
	require.True(t, ok)
	assert.Equal(t, gruid.Point{X: 1, Y: 2}, cache.Size)
	assert.Equal(t, 1.0, cache.Weight, "omitted weight defaults to 1")

	_, ok = c.Unit("centipede")
	assert.True(t, ok)
}

func TestByTagKeepsCatalogOrder(t *testing.T) {
	c, err := ParseCatalog([]byte(`
templates:
  - {id: a, cost: 10, tags: [combat-threat, lamp]}
  - {id: b, cost: 10, tags: [lamp]}
  - {id: c, cost: 10, tags: [lamp, good]}
  - {id: d, cost: 10, tags: [lamp]}
`))
	require.NoError(t, err)

	for range 20 {
		lamps := c.ByTag(model.TagLamp)
		require.Len(t, lamps, 4)
		assert.Equal(t, []string{"a", "b", "c", "d"}, ids(lamps))
	}
	assert.Empty(t, c.ByTag(model.TagWall))
	_, ok := c.First(model.TagWall)
	assert.False(t, ok)
}

func TestParseCatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", `templates: []`, model.ErrEmptyCatalog},
		{"duplicate", `
templates:
  - {id: a, cost: 1}
  - {id: a, cost: 2}
`, model.ErrDuplicateTemplate},
		{"unit shadows structure", `
templates:
  - {id: a, cost: 1}
units:
  - {id: a, combat_power: 1}
`, model.ErrDuplicateTemplate},
		{"negative cost", `
templates:
  - {id: a, cost: -1}
`, model.ErrInvalidTemplate},
		{"bad footprint", `
templates:
  - {id: a, cost: 1, size: [0, 2]}
`, model.ErrInvalidTemplate},
		{"bad condition", `
templates:
  - {id: a, cost: 1, condition: "Budget >>> 3"}
`, model.ErrInvalidTemplate},
		{"non bool condition", `
templates:
  - {id: a, cost: 1, condition: "Budget + 1"}
`, model.ErrInvalidTemplate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateRequiresCombatThreat(t *testing.T) {
	c, err := ParseCatalog([]byte(`
templates:
  - {id: lamp, cost: 10, tags: [lamp]}
`))
	require.NoError(t, err)
	assert.ErrorIs(t, c.Validate(), model.ErrNoCombatThreat)
}

func TestEligible(t *testing.T) {
	c, err := ParseCatalog([]byte(`
templates:
  - {id: plain, cost: 10, tags: [combat-threat]}
  - {id: disabled, cost: 10, weight: 0}
  - {id: late, cost: 10, min_budget: 1000}
  - {id: dormant_only, cost: 10, condition: "Dormant"}
  - {id: rich_awake, cost: 10, condition: "Budget > 500 && !Dormant"}
units:
  - {id: grunt, combat_power: 50}
  - {id: boss, combat_power: 50, condition: "UnitsAllowed && Budget >= 2000"}
`))
	require.NoError(t, err)

	tpl := func(id string) *model.Template {
		t.Helper()
		x, ok := c.Template(id)
		require.True(t, ok)
		return x
	}

	poor := Env{Budget: 400}
	rich := Env{Budget: 3000, UnitsAllowed: true}
	sleeping := Env{Budget: 3000, Dormant: true}

	assert.True(t, c.Eligible(tpl("plain"), poor))
	assert.False(t, c.Eligible(tpl("disabled"), rich))
	assert.False(t, c.Eligible(tpl("late"), poor))
	assert.True(t, c.Eligible(tpl("late"), rich))
	assert.False(t, c.Eligible(tpl("dormant_only"), rich))
	assert.True(t, c.Eligible(tpl("dormant_only"), sleeping))
	assert.True(t, c.Eligible(tpl("rich_awake"), rich))
	assert.False(t, c.Eligible(tpl("rich_awake"), sleeping))

	boss, ok := c.Unit("boss")
	require.True(t, ok)
	grunt, ok := c.Unit("grunt")
	require.True(t, ok)
	assert.True(t, c.EligibleUnit(boss, rich))
	assert.False(t, c.EligibleUnit(boss, poor))
	assert.True(t, c.EligibleUnit(grunt, poor))
}

func ids(ts []*model.Template) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}
