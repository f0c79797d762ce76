package model

import (
	"sync"

	"codeberg.org/anaseto/gruid"
)

// EntityKind distinguishes fixed structures from mobile units.
type EntityKind uint8

const (
	KindStructure EntityKind = iota
	KindUnit
)

func (k EntityKind) String() string {
	if k == KindUnit {
		return "unit"
	}
	return "struct"
}

// Entity is a world-resident object spawned from a Template or UnitTemplate.
// ObjectID, kind and blueprint are immutable; the rest is guarded by mu
// because the AI tick loop reads members while the world mutates them.
type Entity struct {
	objectID uint32
	kind     EntityKind
	template *Template
	unit     *UnitTemplate

	mu        sync.RWMutex
	pos       gruid.Point
	rot       Rotation
	faction   *Faction
	dormant   bool
	destroyed bool
	intention Intention
}

// NewStructure creates a structure entity (not yet placed in a world).
func NewStructure(objectID uint32, tpl *Template, rot Rotation) *Entity {
	return &Entity{
		objectID:  objectID,
		kind:      KindStructure,
		template:  tpl,
		rot:       rot,
		intention: IntentionIdle,
	}
}

// NewUnit creates a mobile unit entity (not yet placed in a world).
func NewUnit(objectID uint32, ut *UnitTemplate) *Entity {
	return &Entity{
		objectID:  objectID,
		kind:      KindUnit,
		unit:      ut,
		intention: IntentionIdle,
	}
}

// ObjectID returns the unique entity ID (immutable).
func (e *Entity) ObjectID() uint32 {
	return e.objectID
}

// Kind returns whether the entity is a structure or a unit.
func (e *Entity) Kind() EntityKind {
	return e.kind
}

// Template returns the structure blueprint (nil for units).
func (e *Entity) Template() *Template {
	return e.template
}

// Unit returns the unit blueprint (nil for structures).
func (e *Entity) Unit() *UnitTemplate {
	return e.unit
}

// TemplateID returns the blueprint ID.
func (e *Entity) TemplateID() string {
	if e.template != nil {
		return e.template.ID
	}
	return e.unit.ID
}

// Label returns the display name of the blueprint.
func (e *Entity) Label() string {
	if e.template != nil {
		return e.template.Label
	}
	return e.unit.Label
}

// Size returns the footprint for structures (1x1 for units).
func (e *Entity) Size() gruid.Point {
	if e.template == nil {
		return gruid.Point{X: 1, Y: 1}
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.template.Footprint(e.rot)
}

// Position returns the min corner of the occupied rectangle.
func (e *Entity) Position() gruid.Point {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pos
}

// SetPosition moves the entity.
func (e *Entity) SetPosition(p gruid.Point) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pos = p
}

// Rotation returns the structure orientation.
func (e *Entity) Rotation() Rotation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rot
}

// Occupied returns the rectangle of cells the entity occupies at pos.
func (e *Entity) Occupied(pos gruid.Point) gruid.Range {
	sz := e.Size()
	return gruid.NewRange(pos.X, pos.Y, pos.X+sz.X, pos.Y+sz.Y)
}

// Faction returns the owning faction.
func (e *Entity) Faction() *Faction {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.faction
}

// SetFaction assigns the owning faction.
func (e *Entity) SetFaction(f *Faction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.faction = f
}

// Dormant reports whether the entity is asleep.
func (e *Entity) Dormant() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dormant
}

// Sleep puts the entity to sleep.
func (e *Entity) Sleep() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dormant = true
	e.intention = IntentionDormant
}

// Wake activates the entity.
func (e *Entity) Wake() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dormant = false
	if e.intention == IntentionDormant || e.intention == IntentionIdle {
		e.intention = IntentionActive
	}
}

// Destroyed reports whether the entity was removed from the world.
func (e *Entity) Destroyed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.destroyed
}

// MarkDestroyed flags the entity as removed. Returns false if it already was.
func (e *Entity) MarkDestroyed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return false
	}
	e.destroyed = true
	e.intention = IntentionIdle
	return true
}

// Intention returns current behaviour state.
func (e *Entity) Intention() Intention {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.intention
}

// SetIntention sets behaviour state.
func (e *Entity) SetIntention(i Intention) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.intention = i
}

// CombatCapable reports whether the entity counts toward encampment presence.
// Every unit is combat capable; structures depend on their template.
func (e *Entity) CombatCapable() bool {
	if e.kind == KindUnit {
		return true
	}
	return e.template.CombatCapable()
}

// Spawner reports whether the entity can still produce additional threats.
func (e *Entity) Spawner() bool {
	return e.template != nil && e.template.Spawner
}

// BlocksLandings reports whether the entity forbids encampment landings on its cells.
func (e *Entity) BlocksLandings() bool {
	return e.template != nil && e.template.BlocksLandings
}

// HasTag reports whether the entity blueprint carries tag.
func (e *Entity) HasTag(tag Tag) bool {
	if e.template != nil {
		return e.template.HasTag(tag)
	}
	return e.unit.HasTag(tag)
}
