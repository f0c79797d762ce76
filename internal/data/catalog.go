package data

import (
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/udisondev/outpost/internal/model"
)

// Env is the environment template conditions are evaluated against.
type Env struct {
	Budget       float64
	Dormant      bool
	UnitsAllowed bool
	Resonance    bool
}

// Catalog is the read-only template registry, indexed by ID and by tag once at load.
type Catalog struct {
	templates []*model.Template
	units     []*model.UnitTemplate

	byID      map[string]*model.Template
	unitsByID map[string]*model.UnitTemplate
	byTag     map[model.Tag][]*model.Template

	// compiled conditions, keyed by template or unit ID
	conditions map[string]*vm.Program
}

// NewCatalog validates the templates, builds the tag index and compiles conditions.
func NewCatalog(templates []*model.Template, units []*model.UnitTemplate) (*Catalog, error) {
	if len(templates) == 0 {
		return nil, model.ErrEmptyCatalog
	}

	c := &Catalog{
		templates:  templates,
		units:      units,
		byID:       make(map[string]*model.Template, len(templates)),
		unitsByID:  make(map[string]*model.UnitTemplate, len(units)),
		byTag:      make(map[model.Tag][]*model.Template),
		conditions: make(map[string]*vm.Program),
	}

	for _, t := range templates {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("%w: %s", model.ErrDuplicateTemplate, t.ID)
		}
		c.byID[t.ID] = t
		t.Tags.Each(func(tag model.Tag) {
			c.byTag[tag] = append(c.byTag[tag], t)
		})
		if err := c.compile(t.ID, t.Condition); err != nil {
			return nil, err
		}
	}

	for _, u := range units {
		if err := u.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.unitsByID[u.ID]; dup {
			return nil, fmt.Errorf("%w: unit %s", model.ErrDuplicateTemplate, u.ID)
		}
		if _, dup := c.byID[u.ID]; dup {
			return nil, fmt.Errorf("%w: unit %s shadows a structure", model.ErrDuplicateTemplate, u.ID)
		}
		c.unitsByID[u.ID] = u
		if err := c.compile(u.ID, u.Condition); err != nil {
			return nil, err
		}
	}

	// Each() walks a map; keep per-tag lists in catalog order.
	for tag, list := range c.byTag {
		c.byTag[tag] = c.inCatalogOrder(list)
	}

	return c, nil
}

func (c *Catalog) compile(id, src string) error {
	if src == "" {
		return nil
	}
	prog, err := expr.Compile(src, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return fmt.Errorf("%w: %s condition %q: %v", model.ErrInvalidTemplate, id, src, err)
	}
	c.conditions[id] = prog
	return nil
}

func (c *Catalog) inCatalogOrder(list []*model.Template) []*model.Template {
	member := make(map[*model.Template]bool, len(list))
	for _, t := range list {
		member[t] = true
	}
	out := make([]*model.Template, 0, len(list))
	for _, t := range c.templates {
		if member[t] {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks catalog-wide preconditions of generation.
func (c *Catalog) Validate() error {
	if len(c.byTag[model.TagCombatThreat]) == 0 {
		return model.ErrNoCombatThreat
	}
	return nil
}

// Templates returns all structure templates in catalog order.
func (c *Catalog) Templates() []*model.Template {
	return c.templates
}

// Units returns all unit templates in catalog order.
func (c *Catalog) Units() []*model.UnitTemplate {
	return c.units
}

// Template returns a structure template by ID.
func (c *Catalog) Template(id string) (*model.Template, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// Unit returns a unit template by ID.
func (c *Catalog) Unit(id string) (*model.UnitTemplate, bool) {
	u, ok := c.unitsByID[id]
	return u, ok
}

// ByTag returns structure templates carrying tag, in catalog order.
// The returned slice is shared; callers must not modify it.
func (c *Catalog) ByTag(tag model.Tag) []*model.Template {
	return c.byTag[tag]
}

// First returns the first template carrying tag.
func (c *Catalog) First(tag model.Tag) (*model.Template, bool) {
	list := c.byTag[tag]
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

// Eligible reports whether t may be drawn under env.
func (c *Catalog) Eligible(t *model.Template, env Env) bool {
	if t.Weight <= 0 || env.Budget < t.MinBudget {
		return false
	}
	return c.allowed(t.ID, env)
}

// EligibleUnit reports whether u may be drawn under env.
func (c *Catalog) EligibleUnit(u *model.UnitTemplate, env Env) bool {
	if u.Weight <= 0 || env.Budget < u.MinBudget {
		return false
	}
	return c.allowed(u.ID, env)
}

func (c *Catalog) allowed(id string, env Env) bool {
	prog, ok := c.conditions[id]
	if !ok {
		return true
	}
	out, err := expr.Run(prog, env)
	if err != nil {
		slog.Warn("template condition failed", "template", id, "error", err)
		return false
	}
	allowed, _ := out.(bool)
	return allowed
}
