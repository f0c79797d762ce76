package model

// StructurePick is a structure chosen for an encampment, not yet placed.
type StructurePick struct {
	Template *Template
	// Deducted is false for "bonus" picks whose cost was not charged to the budget.
	Deducted bool
}

// Composition is the unplaced set of templates chosen to fit a budget.
// Owned by a single pipeline stage at a time; not safe for concurrent use.
type Composition struct {
	Budget          float64 // total points budget
	UnitBudget      float64 // points allotted to units
	StructureBudget float64 // points allotted to structures (includes unspent unit points)

	Structures []StructurePick
	Units      []*UnitTemplate
}

// StructureCost returns the summed cost of deducted structure picks.
func (c *Composition) StructureCost() float64 {
	var sum float64
	for _, p := range c.Structures {
		if p.Deducted {
			sum += p.Template.Cost
		}
	}
	return sum
}

// UnitCost returns the summed combat power of chosen units.
func (c *Composition) UnitCost() float64 {
	var sum float64
	for _, u := range c.Units {
		sum += u.CombatPower
	}
	return sum
}

// Templates returns the chosen structure templates in pick order.
func (c *Composition) Templates() []*Template {
	out := make([]*Template, 0, len(c.Structures))
	for _, p := range c.Structures {
		out = append(out, p.Template)
	}
	return out
}

// CountTag returns how many structure picks carry tag.
func (c *Composition) CountTag(tag Tag) int {
	n := 0
	for _, p := range c.Structures {
		if p.Template.HasTag(tag) {
			n++
		}
	}
	return n
}

// Empty reports whether nothing was chosen.
func (c *Composition) Empty() bool {
	return len(c.Structures) == 0 && len(c.Units) == 0
}
