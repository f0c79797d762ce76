package world

import (
	"fmt"
	"slices"
	"sync"

	"codeberg.org/anaseto/gruid"
	"codeberg.org/anaseto/gruid/paths"
	"codeberg.org/anaseto/gruid/rl"

	"github.com/udisondev/outpost/internal/model"
)

// Terrain kinds stored in the terrain grid.
const (
	Floor rl.Cell = iota
	Rock
	Water
)

// cover bits
const (
	fogBit rl.Cell = 1 << iota
	roofBit
	indoorBit
)

// DestroyHook is called after an entity has been removed from the world.
type DestroyHook func(e *model.Entity)

// World is the 2D world grid with its resident entities.
// All methods are safe for concurrent use.
type World struct {
	mu sync.RWMutex

	terrain rl.Grid
	cover   rl.Grid
	occ     rl.Grid // objectID of the occupant, 0 = free
	pr      *paths.PathRange

	entities map[uint32]*model.Entity
	hooks    map[uint32][]DestroyHook
	ids      *ObjectIDGenerator
}

// New creates an empty w×h world of floor cells.
func New(w, h int) *World {
	terrain := rl.NewGrid(w, h)
	return &World{
		terrain:  terrain,
		cover:    rl.NewGrid(w, h),
		occ:      rl.NewGrid(w, h),
		pr:       paths.NewPathRange(terrain.Range()),
		entities: make(map[uint32]*model.Entity),
		hooks:    make(map[uint32][]DestroyHook),
		ids:      NewObjectIDGenerator(),
	}
}

// Bounds returns the world range.
func (w *World) Bounds() gruid.Range {
	return w.terrain.Range()
}

// SetTerrain sets the terrain kind at p. Out of range points are ignored.
func (w *World) SetTerrain(p gruid.Point, t rl.Cell) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.terrain.Set(p, t)
}

// Terrain returns the terrain kind at p.
func (w *World) Terrain(p gruid.Point) rl.Cell {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.terrain.At(p)
}

// SetFog marks p as unknown to observers.
func (w *World) SetFog(p gruid.Point, on bool) {
	w.setCover(p, fogBit, on)
}

// SetRoof marks p as roofed.
func (w *World) SetRoof(p gruid.Point, on bool) {
	w.setCover(p, roofBit, on)
}

// SetIndoors marks p as enclosed indoors.
func (w *World) SetIndoors(p gruid.Point, on bool) {
	w.setCover(p, indoorBit, on)
}

func (w *World) setCover(p gruid.Point, bit rl.Cell, on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.cover.Contains(p) {
		return
	}
	c := w.cover.At(p)
	if on {
		c |= bit
	} else {
		c &^= bit
	}
	w.cover.Set(p, c)
}

func (w *World) hasCover(p gruid.Point, bit rl.Cell) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cover.At(p)&bit != 0
}

// Fogged reports whether p is unknown to observers.
func (w *World) Fogged(p gruid.Point) bool {
	return w.hasCover(p, fogBit)
}

// Roofed reports whether p is under a roof.
func (w *World) Roofed(p gruid.Point) bool {
	return w.hasCover(p, roofBit)
}

// Indoors reports whether p is inside an enclosed room.
func (w *World) Indoors(p gruid.Point) bool {
	return w.hasCover(p, indoorBit)
}

// Standable reports whether p is in bounds, floor and unoccupied.
func (w *World) Standable(p gruid.Point) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.standable(p)
}

func (w *World) standable(p gruid.Point) bool {
	return w.terrain.Contains(p) && w.terrain.At(p) == Floor && w.occ.At(p) == 0
}

// Occupant returns the entity occupying p.
func (w *World) Occupant(p gruid.Point) (*model.Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.occupant(p)
}

func (w *World) occupant(p gruid.Point) (*model.Entity, bool) {
	if !w.occ.Contains(p) {
		return nil, false
	}
	id := uint32(w.occ.At(p))
	if id == 0 {
		return nil, false
	}
	e, ok := w.entities[id]
	return e, ok
}

// BlocksLandings reports whether the occupant of p forbids encampment landings.
func (w *World) BlocksLandings(p gruid.Point) bool {
	e, ok := w.Occupant(p)
	return ok && e.BlocksLandings()
}

// NearPlayer reports whether any player-owned entity lies within radius of p
// (Chebyshev distance to its footprint).
func (w *World) NearPlayer(p gruid.Point, radius int) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, e := range w.entities {
		f := e.Faction()
		if f == nil || !f.Player {
			continue
		}
		if chebyshev(e.Occupied(e.Position()), p) <= radius {
			return true
		}
	}
	return false
}

// InhabitedCells returns the positions of player-owned entities ordered by object ID.
func (w *World) InhabitedCells() []gruid.Point {
	var cells []gruid.Point
	for _, e := range w.Entities() {
		if f := e.Faction(); f != nil && f.Player {
			cells = append(cells, e.Position())
		}
	}
	return cells
}

// HostileUnitsNear returns units hostile to faction within radius of p.
func (w *World) HostileUnitsNear(p gruid.Point, radius int, faction *model.Faction) []*model.Entity {
	var out []*model.Entity
	for _, e := range w.Entities() {
		if e.Kind() != model.KindUnit || !faction.HostileTo(e.Faction()) {
			continue
		}
		if chebyshev(e.Occupied(e.Position()), p) <= radius {
			out = append(out, e)
		}
	}
	return out
}

// NextObjectID allocates an object ID for an entity of the given kind.
func (w *World) NextObjectID(kind model.EntityKind) uint32 {
	if kind == model.KindUnit {
		return w.ids.NextUnitID()
	}
	return w.ids.NextStructureID()
}

// Place puts e into the world with its minimum corner at p.
// Returns model.ErrOutOfBounds or model.ErrCellBlocked if any covered cell
// is unusable.
func (w *World) Place(e *model.Entity, p gruid.Point) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, dup := w.entities[e.ObjectID()]; dup {
		return fmt.Errorf("entity %d already placed", e.ObjectID())
	}
	if err := w.canPlace(e, p); err != nil {
		return err
	}
	w.put(e, p)
	return nil
}

func (w *World) canPlace(e *model.Entity, p gruid.Point) error {
	rg := e.Occupied(p)
	if rg.Intersect(w.terrain.Range()) != rg {
		return fmt.Errorf("%w: %s at %v", model.ErrOutOfBounds, e.TemplateID(), p)
	}
	for y := rg.Min.Y; y < rg.Max.Y; y++ {
		for x := rg.Min.X; x < rg.Max.X; x++ {
			if !w.standable(gruid.Point{X: x, Y: y}) {
				return fmt.Errorf("%w: %s at %v", model.ErrCellBlocked, e.TemplateID(), gruid.Point{X: x, Y: y})
			}
		}
	}
	return nil
}

func (w *World) put(e *model.Entity, p gruid.Point) {
	e.SetPosition(p)
	w.entities[e.ObjectID()] = e
	w.fill(e.Occupied(p), rl.Cell(e.ObjectID()))
}

func (w *World) fill(rg gruid.Range, c rl.Cell) {
	for y := rg.Min.Y; y < rg.Max.Y; y++ {
		for x := rg.Min.X; x < rg.Max.X; x++ {
			w.occ.Set(gruid.Point{X: x, Y: y}, c)
		}
	}
}

// NearestFree finds the closest cell to from (by cardinal walking distance,
// at most radius steps) where e can be placed. An out of bounds from is
// first clamped to the world range.
func (w *World) NearestFree(e *model.Entity, from gruid.Point, radius int) (gruid.Point, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rg := w.terrain.Range()
	if rg.Size().X == 0 || rg.Size().Y == 0 {
		return gruid.Point{}, false
	}
	from.X = min(max(from.X, rg.Min.X), rg.Max.X-1)
	from.Y = min(max(from.Y, rg.Min.Y), rg.Max.Y-1)
	nb := &walker{inMap: w.terrain.Contains}
	nodes := w.pr.BreadthFirstMap(nb, []gruid.Point{from}, radius)
	slices.SortStableFunc(nodes, func(a, b paths.Node) int {
		if a.Cost != b.Cost {
			return a.Cost - b.Cost
		}
		if a.P.Y != b.P.Y {
			return a.P.Y - b.P.Y
		}
		return a.P.X - b.P.X
	})
	for _, n := range nodes {
		if w.canPlace(e, n.P) == nil {
			return n.P, true
		}
	}
	return gruid.Point{}, false
}

// walker implements paths.Pather over every in-bounds cell: the fallback
// search looks for a landing cell, not for a walkable route.
type walker struct {
	inMap func(gruid.Point) bool
	nbs   paths.Neighbors
}

func (wk *walker) Neighbors(p gruid.Point) []gruid.Point {
	return wk.nbs.Cardinal(p, wk.inMap)
}

// MoveUnit moves a unit to p.
func (w *World) MoveUnit(objectID uint32, p gruid.Point) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entities[objectID]
	if !ok {
		return fmt.Errorf("entity %d not found", objectID)
	}
	if e.Kind() != model.KindUnit {
		return fmt.Errorf("entity %d is not a unit", objectID)
	}
	old := e.Position()
	w.occ.Set(old, 0)
	if err := w.canPlace(e, p); err != nil {
		w.occ.Set(old, rl.Cell(objectID))
		return err
	}
	w.put(e, p)
	return nil
}

// OnDestroyed registers a hook fired once when objectID is destroyed.
func (w *World) OnDestroyed(objectID uint32, hook DestroyHook) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hooks[objectID] = append(w.hooks[objectID], hook)
}

// Destroy removes an entity from the world and fires its destruction hooks.
// Returns false if the entity is unknown or already destroyed.
func (w *World) Destroy(objectID uint32) bool {
	w.mu.Lock()
	e, ok := w.entities[objectID]
	if !ok || !e.MarkDestroyed() {
		w.mu.Unlock()
		return false
	}
	delete(w.entities, objectID)
	w.fill(e.Occupied(e.Position()), 0)
	hooks := w.hooks[objectID]
	delete(w.hooks, objectID)
	w.mu.Unlock()

	// hooks run outside the lock: they may query the world
	for _, h := range hooks {
		h(e)
	}
	return true
}

// Entity returns a resident entity by object ID.
func (w *World) Entity(objectID uint32) (*model.Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[objectID]
	return e, ok
}

// Entities returns all resident entities ordered by object ID.
func (w *World) Entities() []*model.Entity {
	w.mu.RLock()
	out := make([]*model.Entity, 0, len(w.entities))
	for _, e := range w.entities {
		out = append(out, e)
	}
	w.mu.RUnlock()

	slices.SortFunc(out, func(a, b *model.Entity) int {
		return int(a.ObjectID()) - int(b.ObjectID())
	})
	return out
}

// EntityCount returns the number of resident entities.
func (w *World) EntityCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entities)
}

// Reset removes all entities and hooks. Terrain and cover are kept.
func (w *World) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entities = make(map[uint32]*model.Entity)
	w.hooks = make(map[uint32][]DestroyHook)
	w.occ.Fill(0)
}

// chebyshev returns the Chebyshev distance from p to the nearest cell of rg.
func chebyshev(rg gruid.Range, p gruid.Point) int {
	dx := max(0, rg.Min.X-p.X, p.X-(rg.Max.X-1))
	dy := max(0, rg.Min.Y-p.Y, p.Y-(rg.Max.Y-1))
	return max(dx, dy)
}
