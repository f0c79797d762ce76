package model

import (
	"fmt"

	"codeberg.org/anaseto/gruid"
)

// Template is an immutable catalog blueprint for a fixed structure.
// Created once by the catalog loader and shared read-only afterwards.
type Template struct {
	ID     string
	Label  string
	Cost   float64
	Size   gruid.Point
	Tags   TagSet
	Weight float64

	// MinSeparation is the minimum cell distance to another structure of the
	// same template (0 = no restriction).
	MinSeparation int
	// MinBudget is the points budget required before the template unlocks.
	MinBudget float64
	// Condition is an optional boolean expression evaluated by the catalog.
	Condition string

	RequiresEdgeLOS bool // needs a clear line to the layout boundary
	Turret          bool
	Mortar          bool
	Anchor          bool // static defenses cluster around it; gets barricades
	EdgeBiased      bool // placed near the layout border
	Wall            bool
	Barricade       bool
	Spawner         bool // can still produce additional threats
	BlocksLandings  bool // forbids encampment landing on its cells
	Rotatable       bool
}

// HasTag reports whether the template carries tag.
func (t *Template) HasTag(tag Tag) bool {
	return t.Tags.Has(tag)
}

// Footprint returns the occupied size for the given rotation.
func (t *Template) Footprint(rot Rotation) gruid.Point {
	return rot.Footprint(t.Size)
}

// CombatCapable reports whether the structure counts toward encampment presence.
func (t *Template) CombatCapable() bool {
	return t.Spawner || t.HasTag(TagCombatThreat)
}

// Validate checks that template fields are sensible.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidTemplate)
	}
	if t.Cost < 0 {
		return fmt.Errorf("%w: %s has negative cost", ErrInvalidTemplate, t.ID)
	}
	if t.Size.X <= 0 || t.Size.Y <= 0 {
		return fmt.Errorf("%w: %s has footprint %v", ErrInvalidTemplate, t.ID, t.Size)
	}
	if t.Weight < 0 {
		return fmt.Errorf("%w: %s has negative weight", ErrInvalidTemplate, t.ID)
	}
	if t.MinSeparation < 0 {
		return fmt.Errorf("%w: %s has negative separation", ErrInvalidTemplate, t.ID)
	}
	return nil
}

// UnitTemplate is an immutable catalog blueprint for a mobile unit.
// It has no footprint; its cost is its combat power.
type UnitTemplate struct {
	ID          string
	Label       string
	CombatPower float64
	Tags        TagSet
	Weight      float64
	MinBudget   float64
	Condition   string
}

// HasTag reports whether the unit template carries tag.
func (u *UnitTemplate) HasTag(tag Tag) bool {
	return u.Tags.Has(tag)
}

// Validate checks that unit template fields are sensible.
func (u *UnitTemplate) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("%w: empty unit id", ErrInvalidTemplate)
	}
	if u.CombatPower < 0 {
		return fmt.Errorf("%w: unit %s has negative combat power", ErrInvalidTemplate, u.ID)
	}
	if u.Weight < 0 {
		return fmt.Errorf("%w: unit %s has negative weight", ErrInvalidTemplate, u.ID)
	}
	return nil
}
