// Package spawn commits a solved local layout into the world.
package spawn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/anaseto/gruid"

	"github.com/udisondev/outpost/internal/ai"
	"github.com/udisondev/outpost/internal/config"
	"github.com/udisondev/outpost/internal/layout"
	"github.com/udisondev/outpost/internal/model"
	"github.com/udisondev/outpost/internal/rng"
	"github.com/udisondev/outpost/internal/world"
)

// ErrNoFaction is returned when committing without an owning faction.
var ErrNoFaction = errors.New("encampment faction is required")

// Encampment is a committed encampment: its spawned members and the
// controller guarding them.
type Encampment struct {
	ID         uint32
	Faction    *model.Faction
	Anchor     gruid.Point
	Dormant    bool
	Members    []*model.Entity
	Skipped    int // layout entries that found no free cell
	Controller *ai.DefendController
}

// LookTargets returns the members still standing, for the player notification.
func (e *Encampment) LookTargets() []*model.Entity {
	out := make([]*model.Entity, 0, len(e.Members))
	for _, m := range e.Members {
		if !m.Destroyed() {
			out = append(out, m)
		}
	}
	return out
}

// Record converts the encampment into a ledger entry.
func (e *Encampment) Record(seed uint64, points, score float64) *model.EncampmentRecord {
	rec := &model.EncampmentRecord{
		Seed:      seed,
		Points:    points,
		Anchor:    e.Anchor,
		Score:     score,
		Dormant:   e.Dormant,
		CreatedAt: time.Now().UTC(),
		Members:   make([]model.MemberRecord, 0, len(e.Members)),
	}
	if e.Faction != nil {
		rec.FactionID = e.Faction.ID
	}
	for _, m := range e.Members {
		rec.Members = append(rec.Members, model.MemberRecord{
			ObjectID:   m.ObjectID(),
			TemplateID: m.TemplateID(),
			Kind:       m.Kind(),
			Position:   m.Position(),
			Rotation:   m.Rotation(),
		})
	}
	return rec
}

// Coordinator spawns encampments and tracks them until cleared.
type Coordinator struct {
	world *world.World
	ticks *ai.TickManager
	cfg   config.Spawn

	nextID      atomic.Uint32
	encampments sync.Map // map[uint32]*Encampment
	count       atomic.Int32
}

// NewCoordinator creates a spawn coordinator.
func NewCoordinator(w *world.World, ticks *ai.TickManager, cfg config.Spawn) *Coordinator {
	return &Coordinator{
		world: w,
		ticks: ticks,
		cfg:   cfg,
	}
}

// Commit instantiates every layout entry at anchor+offset and hands the
// spawned set to a new defend controller. Entries colliding at commit time
// fall back to the nearest free cell within cfg.FallbackRadius; entries
// that still fail are skipped with a warning.
func (c *Coordinator) Commit(ctx context.Context, r *rng.Source, l *layout.LocalLayout, anchor gruid.Point, faction *model.Faction, dormant bool) (*Encampment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("committing encampment: %w", err)
	}
	if faction == nil {
		return nil, ErrNoFaction
	}

	id := c.nextID.Add(1)
	radius := int(math.Ceil(l.Diagonal()/2)) + c.cfg.DefendRadiusMargin
	ctrl := ai.NewDefendController(id, faction, anchor, radius, c.world)

	enc := &Encampment{
		ID:         id,
		Faction:    faction,
		Anchor:     anchor,
		Dormant:    dormant,
		Controller: ctrl,
	}

	countdown := false
	for _, pl := range l.Structures {
		e := model.NewStructure(c.world.NextObjectID(model.KindStructure), pl.Template, pl.Rot)
		if !c.spawn(enc, e, anchor.Add(l.Offset(pl.Pos))) {
			continue
		}
		if e.Spawner() {
			ctrl.AddDependency(e.ObjectID())
		}
		if e.HasTag(model.TagActivatorCountdown) {
			countdown = true
		}
		if e.HasTag(model.TagActivatorProximity) {
			ctrl.AddProximityActivator(e, c.cfg.ProximityRadius)
		}
	}
	for _, up := range l.Units {
		e := model.NewUnit(c.world.NextObjectID(model.KindUnit), up.Unit)
		c.spawn(enc, e, anchor.Add(l.Offset(up.Pos)))
	}

	if countdown {
		ctrl.SetCountdown(r.RangeInclusive(c.cfg.CountdownMinTicks, c.cfg.CountdownMaxTicks))
	}
	ctrl.SetDormant(dormant)
	ctrl.OnCleared(func(dc *ai.DefendController) {
		c.release(dc.ID())
	})

	// nothing left to defend: the camp is never tracked
	if ctrl.Cleared() {
		slog.Warn("encampment spawned without combat presence",
			"encampmentID", id,
			"members", len(enc.Members),
			"skipped", enc.Skipped)
		return enc, nil
	}

	c.encampments.Store(id, enc)
	c.count.Add(1)
	c.ticks.Register(id, ctrl)

	slog.Info("encampment spawned",
		"encampmentID", id,
		"faction", faction.Name,
		"anchor", anchor,
		"members", len(enc.Members),
		"skipped", enc.Skipped,
		"defendRadius", radius,
		"dormant", dormant)

	return enc, nil
}

// spawn places e at p (or the nearest free cell) and wires it to the encampment.
func (c *Coordinator) spawn(enc *Encampment, e *model.Entity, p gruid.Point) bool {
	e.SetFaction(enc.Faction)

	err := c.world.Place(e, p)
	if err != nil {
		alt, ok := c.world.NearestFree(e, p, c.cfg.FallbackRadius)
		if ok {
			err = c.world.Place(e, alt)
		}
		if !ok || err != nil {
			enc.Skipped++
			slog.Warn("encampment member not placed",
				"encampmentID", enc.ID,
				"template", e.TemplateID(),
				"pos", p,
				"error", err)
			return false
		}
		slog.Debug("encampment member relocated",
			"template", e.TemplateID(),
			"from", p,
			"to", alt)
	}

	if enc.Dormant {
		e.Sleep()
	}
	enc.Members = append(enc.Members, e)
	enc.Controller.AddMember(e)
	c.world.OnDestroyed(e.ObjectID(), enc.Controller.MemberLost)
	return true
}

func (c *Coordinator) release(id uint32) {
	c.ticks.Unregister(id)
	if _, ok := c.encampments.LoadAndDelete(id); ok {
		c.count.Add(-1)
	}
	slog.Info("encampment released", "encampmentID", id)
}

// Encampment returns a live encampment by ID.
func (c *Coordinator) Encampment(id uint32) (*Encampment, bool) {
	value, ok := c.encampments.Load(id)
	if !ok {
		return nil, false
	}
	return value.(*Encampment), true
}

// Count returns the number of live (not cleared) encampments.
func (c *Coordinator) Count() int {
	return int(c.count.Load())
}
