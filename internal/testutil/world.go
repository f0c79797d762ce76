package testutil

import (
	"testing"

	"codeberg.org/anaseto/gruid"

	"github.com/udisondev/outpost/internal/model"
	"github.com/udisondev/outpost/internal/world"
)

// Colony is the player faction used by tests.
var Colony = model.NewFaction(1, "colony", true)

// Raiders is the hostile faction used by tests.
var Raiders = model.NewFaction(2, "raiders", false)

// FlatWorld создаёт пустой мир из пола без тумана и крыш.
func FlatWorld(tb testing.TB, w, h int) *world.World {
	tb.Helper()
	if w <= 0 || h <= 0 {
		tb.Fatalf("flat world needs a positive size, got %dx%d", w, h)
	}
	return world.New(w, h)
}

// PlaceColonist ставит юнит игрока в p и завершает тест при ошибке.
func PlaceColonist(tb testing.TB, w *world.World, p gruid.Point) *model.Entity {
	tb.Helper()

	e := model.NewUnit(w.NextObjectID(model.KindUnit), world.Colonist)
	e.SetFaction(Colony)
	if err := w.Place(e, p); err != nil {
		tb.Fatalf("placing colonist at %v: %v", p, err)
	}
	return e
}
