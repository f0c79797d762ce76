// Package composition chooses which structures and units an encampment is
// made of, given a points budget and a template catalog.
package composition

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/udisondev/outpost/internal/config"
	"github.com/udisondev/outpost/internal/curve"
	"github.com/udisondev/outpost/internal/data"
	"github.com/udisondev/outpost/internal/model"
	"github.com/udisondev/outpost/internal/rng"
)

// Flags switch optional parts of the selection on or off.
type Flags struct {
	UnitsAllowed     bool
	Dormant          bool // dormancy activators are drawn
	NoProblemCausers bool // conditional problem-causer elements excluded
	Resonance        bool // resonance-support elements allowed
}

// Selector is the budget-constrained composition selector.
// Safe for concurrent use as long as each call gets its own *rng.Source.
type Selector struct {
	cfg     config.Composition
	catalog *data.Catalog
}

// NewSelector creates a selector over catalog.
func NewSelector(cfg config.Composition, catalog *data.Catalog) *Selector {
	return &Selector{cfg: cfg, catalog: catalog}
}

// selection is the in-progress state of one Select call.
type selection struct {
	r         *rng.Source
	env       data.Env
	comp      *model.Composition
	remaining float64
}

// Select chooses units and structures for budget.
// Budget <= 0 returns an empty composition without consulting the catalog.
// Returns model.ErrNoCombatThreat if the catalog cannot supply any combat threat
// and model.ErrInvalidBudget for a NaN or infinite budget.
func (s *Selector) Select(r *rng.Source, budget float64, flags Flags) (*model.Composition, error) {
	if math.IsNaN(budget) || math.IsInf(budget, 0) {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidBudget, budget)
	}
	if budget <= 0 {
		return &model.Composition{}, nil
	}

	st := &selection{
		r: r,
		env: data.Env{
			Budget:       budget,
			Dormant:      flags.Dormant,
			UnitsAllowed: flags.UnitsAllowed,
			Resonance:    flags.Resonance,
		},
		comp:      &model.Composition{Budget: budget},
		remaining: budget,
	}

	threats := s.eligible(model.TagCombatThreat, st.env)
	if len(threats) == 0 {
		return nil, model.ErrNoCombatThreat
	}

	if flags.UnitsAllowed && r.Chance(s.cfg.UnitsChance.Evaluate(budget)) {
		s.selectUnits(st)
	}
	st.comp.StructureBudget = st.remaining

	if !flags.NoProblemCausers && r.Chance(s.cfg.ProblemCauserChance.Evaluate(budget)) {
		s.take(st, model.TagProblemCauser, count(s.cfg.ProblemCauserCount, budget), s.cfg.ProblemCauserDeducts)
	}

	if flags.Dormant {
		if r.Chance(s.cfg.CountdownActivatorChance.Evaluate(budget)) {
			s.take(st, model.TagActivatorCountdown, 1, true)
		}
		if r.Chance(s.cfg.ProximityActivatorChance.Evaluate(budget)) {
			s.take(st, model.TagActivatorProximity, count(s.cfg.ProximityActivatorCount, budget), true)
		}
	}

	if maxGood := count(s.cfg.GoodMaxCount, budget); maxGood > 0 && r.Chance(s.cfg.GoodChance.Evaluate(budget)) {
		s.take(st, model.TagGood, r.RangeInclusive(1, maxGood), true)
	}

	if r.Chance(s.cfg.LampChance.Evaluate(budget)) {
		n := r.RangeInclusive(count(s.cfg.LampMinCount, budget), count(s.cfg.LampMaxCount, budget))
		s.take(st, model.TagLamp, n, true)
	}

	if flags.Resonance && r.Chance(s.cfg.ResonanceChance.Evaluate(budget)) {
		s.take(st, model.TagResonanceSupport, count(s.cfg.ResonanceCount, budget), s.cfg.ResonanceDeducts)
	}

	for _, shield := range []model.Tag{model.TagShieldBullet, model.TagShieldMortar} {
		chance := s.cfg.BulletShieldChance
		if shield == model.TagShieldMortar {
			chance = s.cfg.MortarShieldChance
		}
		if !r.Chance(chance.Evaluate(budget)) {
			continue
		}
		if s.take(st, shield, 1, true) > 0 {
			st.remaining *= 1 - s.cfg.ShieldDiscount
		}
	}

	s.selectThreats(st, threats)

	slog.Debug("composition selected",
		"budget", budget,
		"unitBudget", st.comp.UnitBudget,
		"units", len(st.comp.Units),
		"structures", len(st.comp.Structures),
		"structureCost", st.comp.StructureCost(),
		"leftover", st.remaining)

	return st.comp, nil
}

// selectUnits spends a sampled fraction of the budget on units.
// Unspent unit points stay in st.remaining for structures.
func (s *Selector) selectUnits(st *selection) {
	var units []*model.UnitTemplate
	cheapest := math.Inf(1)
	for _, u := range s.catalog.Units() {
		if u.CombatPower <= 0 || !s.catalog.EligibleUnit(u, st.env) {
			continue
		}
		units = append(units, u)
		cheapest = min(cheapest, u.CombatPower)
	}
	if len(units) == 0 || cheapest > st.remaining {
		return
	}

	fraction := s.cfg.UnitFraction.Sample(st.r)
	unitBudget := max(cheapest, min(fraction*st.remaining, st.remaining))
	st.comp.UnitBudget = unitBudget

	left := unitBudget
	for left > 0 {
		u, ok := rng.WeightedPick(st.r, units, func(u *model.UnitTemplate) float64 {
			if u.CombatPower > left {
				return 0
			}
			return u.Weight
		})
		if !ok {
			break
		}
		st.comp.Units = append(st.comp.Units, u)
		left -= u.CombatPower
	}

	st.remaining -= unitBudget - left
}

// take draws up to n templates tagged tag that fit the remaining budget.
// Returns the number actually taken.
func (s *Selector) take(st *selection, tag model.Tag, n int, deduct bool) int {
	pool := s.eligible(tag, st.env)
	taken := 0
	for range n {
		t, ok := rng.WeightedPick(st.r, pool, func(t *model.Template) float64 {
			if t.Cost > st.remaining {
				return 0
			}
			return t.Weight
		})
		if !ok {
			break
		}
		st.comp.Structures = append(st.comp.Structures, model.StructurePick{Template: t, Deducted: deduct})
		if deduct {
			st.remaining -= t.Cost
		}
		taken++
	}
	return taken
}

// selectThreats spends what is left on combat threats.
func (s *Selector) selectThreats(st *selection, threats []*model.Template) {
	for {
		t, ok := rng.WeightedPick(st.r, threats, func(t *model.Template) float64 {
			if t.Cost <= 0 || t.Cost > st.remaining {
				return 0
			}
			return t.Weight
		})
		if !ok {
			return
		}
		st.comp.Structures = append(st.comp.Structures, model.StructurePick{Template: t, Deducted: true})
		st.remaining -= t.Cost
	}
}

func (s *Selector) eligible(tag model.Tag, env data.Env) []*model.Template {
	var out []*model.Template
	for _, t := range s.catalog.ByTag(tag) {
		if s.catalog.Eligible(t, env) {
			out = append(out, t)
		}
	}
	return out
}

// count rounds a count curve at budget; never negative.
func count(c curve.Curve, budget float64) int {
	return max(0, int(math.Round(c.Evaluate(budget))))
}
