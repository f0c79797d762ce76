package ai

import (
	"log/slog"
	"slices"
	"sync"

	"codeberg.org/anaseto/gruid"
	"github.com/zyedidia/generic/mapset"

	"github.com/udisondev/outpost/internal/model"
)

// HostileScanner finds units hostile to a faction around a point.
// Implemented by world.World.
type HostileScanner interface {
	HostileUnitsNear(p gruid.Point, radius int, faction *model.Faction) []*model.Entity
}

// ClearedFunc is called once when the encampment has no combat presence left.
type ClearedFunc func(c *DefendController)

// DefendController keeps an encampment guarding its spot.
//
// State machine: DORMANT → (countdown | proximity | wake-up) → ACTIVE ↔ ATTACK.
// Members are tracked until destroyed; the encampment is cleared once no
// combat-capable member and no defeat dependency remain.
type DefendController struct {
	id      uint32
	faction *model.Faction
	spot    gruid.Point
	radius  int
	scanner HostileScanner

	mu           sync.Mutex
	members      []*model.Entity
	dependencies mapset.Set[uint32]
	running      bool
	dormant      bool
	intention    model.Intention
	target       *model.Entity
	cleared      bool
	onCleared    ClearedFunc

	countdown       int // ticks until wake-up; 0 = no countdown activator
	proximity       []*model.Entity
	proximityRadius int
}

// NewDefendController creates a controller guarding spot within radius.
func NewDefendController(id uint32, faction *model.Faction, spot gruid.Point, radius int, scanner HostileScanner) *DefendController {
	return &DefendController{
		id:           id,
		faction:      faction,
		spot:         spot,
		radius:       radius,
		scanner:      scanner,
		dependencies: mapset.New[uint32](),
		intention:    model.IntentionIdle,
	}
}

// ID returns the encampment ID.
func (c *DefendController) ID() uint32 { return c.id }

// Spot returns the defend spot.
func (c *DefendController) Spot() gruid.Point { return c.spot }

// Radius returns the defend radius.
func (c *DefendController) Radius() int { return c.radius }

// Faction returns the owning faction.
func (c *DefendController) Faction() *model.Faction { return c.faction }

// AddMember adds an entity to the group.
func (c *DefendController) AddMember(e *model.Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members = append(c.members, e)
}

// AddDependency registers an entity whose survival keeps the encampment undefeated.
func (c *DefendController) AddDependency(objectID uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dependencies.Put(objectID)
}

// SetCountdown arms a countdown activator that wakes the group after ticks.
func (c *DefendController) SetCountdown(ticks int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.countdown = max(ticks, 0)
}

// AddProximityActivator arms a proximity activator: a hostile unit within
// radius of e wakes the group.
func (c *DefendController) AddProximityActivator(e *model.Entity, radius int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.proximity = append(c.proximity, e)
	c.proximityRadius = max(c.proximityRadius, radius)
}

// SetDormant marks the group asleep. Members are put to sleep on Start.
func (c *DefendController) SetDormant(dormant bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dormant = dormant
}

// OnCleared sets the callback fired when the encampment is cleared.
func (c *DefendController) OnCleared(fn ClearedFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCleared = fn
}

// Members returns a snapshot of the live members.
func (c *DefendController) Members() []*model.Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.members)
}

// Dependencies returns the remaining defeat dependencies in ascending order.
func (c *DefendController) Dependencies() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint32, 0, c.dependencies.Size())
	c.dependencies.Each(func(id uint32) { out = append(out, id) })
	slices.Sort(out)
	return out
}

// Dormant reports whether the group is asleep.
func (c *DefendController) Dormant() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dormant
}

// Countdown returns the ticks left on the countdown activator (0 = none).
func (c *DefendController) Countdown() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countdown
}

// Target returns the hostile currently engaged, if any.
func (c *DefendController) Target() (*model.Entity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target, c.target != nil
}

// Start starts the controller.
func (c *DefendController) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.running = true
	if c.dormant {
		for _, m := range c.members {
			m.Sleep()
		}
		c.intention = model.IntentionDormant
	} else {
		c.setIntention(model.IntentionActive)
	}

	if IsDebugEnabled() {
		slog.Debug("defend controller started",
			"encampmentID", c.id,
			"members", len(c.members),
			"dormant", c.dormant)
	}
}

// Stop stops the controller.
func (c *DefendController) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.running = false
	c.target = nil
	c.intention = model.IntentionIdle
}

// SetIntention sets the group intention and propagates it to members.
func (c *DefendController) SetIntention(intention model.Intention) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setIntention(intention)
}

func (c *DefendController) setIntention(intention model.Intention) {
	old := c.intention
	c.intention = intention
	for _, m := range c.members {
		m.SetIntention(intention)
	}

	if old != intention && IsDebugEnabled() {
		slog.Debug("encampment intention changed",
			"encampmentID", c.id,
			"from", old,
			"to", intention)
	}
}

// CurrentIntention returns the group intention.
func (c *DefendController) CurrentIntention() model.Intention {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intention
}

// WakeUp wakes every member. No-op if the group is awake.
func (c *DefendController) WakeUp(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wake(reason)
}

func (c *DefendController) wake(reason string) {
	if !c.dormant {
		return
	}
	c.dormant = false
	c.countdown = 0
	for _, m := range c.members {
		m.Wake()
	}
	c.setIntention(model.IntentionActive)

	slog.Info("encampment woke up",
		"encampmentID", c.id,
		"reason", reason,
		"members", len(c.members))
}

// MemberLost removes a destroyed entity from the group. Losing a member wakes
// a dormant group. Fires the cleared callback when nothing combat-capable is left.
func (c *DefendController) MemberLost(e *model.Entity) {
	c.mu.Lock()

	id := e.ObjectID()
	c.members = slices.DeleteFunc(c.members, func(m *model.Entity) bool { return m.ObjectID() == id })
	c.proximity = slices.DeleteFunc(c.proximity, func(m *model.Entity) bool { return m.ObjectID() == id })
	c.dependencies.Remove(id)
	c.wake("member lost")

	var fire ClearedFunc
	if !c.cleared && c.isCleared() {
		c.cleared = true
		c.target = nil
		c.intention = model.IntentionIdle
		fire = c.onCleared

		slog.Info("encampment cleared", "encampmentID", c.id)
	}
	c.mu.Unlock()

	// callback may unregister the controller
	if fire != nil {
		fire(c)
	}
}

// Cleared reports whether no combat-capable member and no defeat dependency remain.
func (c *DefendController) Cleared() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isCleared()
}

func (c *DefendController) isCleared() bool {
	if c.dependencies.Size() > 0 {
		return false
	}
	for _, m := range c.members {
		if m.CombatCapable() {
			return false
		}
	}
	return true
}

// Tick performs one behaviour step.
func (c *DefendController) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.cleared {
		return
	}

	if c.dormant {
		c.tickActivators()
		if c.dormant {
			return
		}
	}

	hostiles := c.scanner.HostileUnitsNear(c.spot, c.radius, c.faction)
	if len(hostiles) == 0 {
		c.target = nil
		c.setIntention(model.IntentionActive)
		return
	}

	c.target = c.closest(hostiles)
	c.setIntention(model.IntentionAttack)

	if IsDebugEnabled() {
		slog.Debug("encampment engaging",
			"encampmentID", c.id,
			"hostiles", len(hostiles),
			"target", c.target.ObjectID())
	}
}

func (c *DefendController) tickActivators() {
	if c.countdown > 0 {
		c.countdown--
		if c.countdown == 0 {
			c.wake("countdown")
			return
		}
	}

	for _, a := range c.proximity {
		sz := a.Size()
		// scan from the activator centre so large footprints are covered
		p := a.Position().Add(gruid.Point{X: sz.X / 2, Y: sz.Y / 2})
		if len(c.scanner.HostileUnitsNear(p, c.proximityRadius+max(sz.X, sz.Y)/2, c.faction)) > 0 {
			c.wake("proximity")
			return
		}
	}
}

// closest returns the hostile nearest to the defend spot; ties keep scan order.
func (c *DefendController) closest(hostiles []*model.Entity) *model.Entity {
	best, bestD := hostiles[0], -1
	for _, h := range hostiles {
		p := h.Position()
		d := max(abs(p.X-c.spot.X), abs(p.Y-c.spot.Y))
		if bestD < 0 || d < bestD {
			best, bestD = h, d
		}
	}
	return best
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
