package testutil

import (
	"testing"

	"github.com/udisondev/outpost/internal/data"
)

// SmallCatalogYAML: компактный каталог для unit тестов: по одному шаблону
// на каждый проход селектора, стена и баррикада для раскладки.
const SmallCatalogYAML = `
templates:
  - {id: turret, cost: 100, size: [1, 1], tags: [combat-threat], turret: true}
  - {id: bunker, cost: 300, size: [2, 2], tags: [combat-threat], weight: 2}
  - {id: mortar, cost: 250, size: [2, 2], tags: [combat-threat], turret: true, mortar: true, min_separation: 3}
  - {id: assembler, cost: 400, size: [3, 2], tags: [combat-threat], spawner: true, anchor: true, rotatable: true, min_budget: 1000}
  - {id: droner, cost: 150, size: [2, 2], tags: [problem-causer], anchor: true}
  - {id: countdown, cost: 0, tags: [activator-countdown], edge_biased: true}
  - {id: sensor, cost: 0, tags: [activator-proximity], edge_biased: true}
  - {id: crate, cost: 40, size: [1, 2], tags: [good], rotatable: true}
  - {id: lamp, cost: 20, tags: [lamp], min_separation: 2}
  - {id: pylon, cost: 120, tags: [resonance-support]}
  - {id: low_shield, cost: 150, tags: [shield-bullet]}
  - {id: high_shield, cost: 200, size: [2, 2], tags: [shield-mortar]}
  - {id: wall, cost: 0, tags: [wall], wall: true, weight: 0}
  - {id: barricade, cost: 0, tags: [barricade], barricade: true, weight: 0}
units:
  - {id: grunt, combat_power: 60, weight: 3}
  - {id: lancer, combat_power: 150}
`

// ScenarioCatalogYAML has exactly two combat threats costing 400 and 800.
const ScenarioCatalogYAML = `
templates:
  - {id: threat_400, cost: 400, size: [2, 2], tags: [combat-threat]}
  - {id: threat_800, cost: 800, size: [3, 3], tags: [combat-threat]}
  - {id: crate, cost: 40, tags: [good]}
  - {id: lamp, cost: 20, tags: [lamp]}
`

// Catalog парсит YAML каталог и завершает тест при ошибке.
func Catalog(tb testing.TB, raw string) *data.Catalog {
	tb.Helper()

	c, err := data.ParseCatalog([]byte(raw))
	if err != nil {
		tb.Fatalf("parsing test catalog: %v", err)
	}
	return c
}

// SmallCatalog returns the SmallCatalogYAML catalog.
func SmallCatalog(tb testing.TB) *data.Catalog {
	tb.Helper()
	return Catalog(tb, SmallCatalogYAML)
}

// DefaultCatalog загружает встроенный каталог.
func DefaultCatalog(tb testing.TB) *data.Catalog {
	tb.Helper()

	c, err := data.LoadCatalog("")
	if err != nil {
		tb.Fatalf("loading embedded catalog: %v", err)
	}
	return c
}
