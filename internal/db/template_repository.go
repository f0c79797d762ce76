package db

import (
	"context"
	"fmt"

	"codeberg.org/anaseto/gruid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/outpost/internal/data"
	"github.com/udisondev/outpost/internal/model"
)

// TemplateRepository stores structure and unit templates.
type TemplateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// LoadTemplates loads all structure templates in insertion order.
func (r *TemplateRepository) LoadTemplates(ctx context.Context) ([]*model.Template, error) {
	query := `
		SELECT template_id, label, cost, width, height, tags, weight,
		       min_separation, min_budget, condition,
		       requires_edge_los, turret, mortar, anchor, edge_biased,
		       wall, barricade, spawner, blocks_landings, rotatable
		FROM structure_templates
		ORDER BY sort_order
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("loading structure templates: %w", err)
	}
	defer rows.Close()

	templates := make([]*model.Template, 0, 32)
	for rows.Next() {
		var (
			t    model.Template
			w, h int
			tags []string
		)
		if err := rows.Scan(
			&t.ID, &t.Label, &t.Cost, &w, &h, &tags, &t.Weight,
			&t.MinSeparation, &t.MinBudget, &t.Condition,
			&t.RequiresEdgeLOS, &t.Turret, &t.Mortar, &t.Anchor, &t.EdgeBiased,
			&t.Wall, &t.Barricade, &t.Spawner, &t.BlocksLandings, &t.Rotatable,
		); err != nil {
			return nil, fmt.Errorf("scanning structure template row: %w", err)
		}
		t.Size = gruid.Point{X: w, Y: h}
		t.Tags = tagSet(tags)
		templates = append(templates, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating structure template rows: %w", err)
	}

	return templates, nil
}

// LoadUnits loads all unit templates in insertion order.
func (r *TemplateRepository) LoadUnits(ctx context.Context) ([]*model.UnitTemplate, error) {
	query := `
		SELECT template_id, label, combat_power, tags, weight, min_budget, condition
		FROM unit_templates
		ORDER BY sort_order
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("loading unit templates: %w", err)
	}
	defer rows.Close()

	var units []*model.UnitTemplate
	for rows.Next() {
		var (
			u    model.UnitTemplate
			tags []string
		)
		if err := rows.Scan(&u.ID, &u.Label, &u.CombatPower, &tags, &u.Weight, &u.MinBudget, &u.Condition); err != nil {
			return nil, fmt.Errorf("scanning unit template row: %w", err)
		}
		u.Tags = tagSet(tags)
		units = append(units, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating unit template rows: %w", err)
	}

	return units, nil
}

// LoadCatalog loads every template and builds an indexed catalog.
func (r *TemplateRepository) LoadCatalog(ctx context.Context) (*data.Catalog, error) {
	templates, err := r.LoadTemplates(ctx)
	if err != nil {
		return nil, err
	}
	units, err := r.LoadUnits(ctx)
	if err != nil {
		return nil, err
	}

	c, err := data.NewCatalog(templates, units)
	if err != nil {
		return nil, fmt.Errorf("building catalog from database: %w", err)
	}
	return c, nil
}

// Create inserts a structure template.
func (r *TemplateRepository) Create(ctx context.Context, t *model.Template) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO structure_templates (
			template_id, label, cost, width, height, tags, weight,
			min_separation, min_budget, condition,
			requires_edge_los, turret, mortar, anchor, edge_biased,
			wall, barricade, spawner, blocks_landings, rotatable
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		t.ID, t.Label, t.Cost, t.Size.X, t.Size.Y, tagList(t.Tags), t.Weight,
		t.MinSeparation, t.MinBudget, t.Condition,
		t.RequiresEdgeLOS, t.Turret, t.Mortar, t.Anchor, t.EdgeBiased,
		t.Wall, t.Barricade, t.Spawner, t.BlocksLandings, t.Rotatable,
	)
	if err != nil {
		return fmt.Errorf("creating structure template %q: %w", t.ID, err)
	}
	return nil
}

// CreateUnit inserts a unit template.
func (r *TemplateRepository) CreateUnit(ctx context.Context, u *model.UnitTemplate) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO unit_templates (template_id, label, combat_power, tags, weight, min_budget, condition)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Label, u.CombatPower, tagList(u.Tags), u.Weight, u.MinBudget, u.Condition,
	)
	if err != nil {
		return fmt.Errorf("creating unit template %q: %w", u.ID, err)
	}
	return nil
}

// Import stores every template of catalog (used to seed the database from YAML).
func (r *TemplateRepository) Import(ctx context.Context, catalog *data.Catalog) error {
	for _, t := range catalog.Templates() {
		if err := r.Create(ctx, t); err != nil {
			return err
		}
	}
	for _, u := range catalog.Units() {
		if err := r.CreateUnit(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

func tagSet(tags []string) model.TagSet {
	s := model.NewTagSet()
	for _, t := range tags {
		s.Put(model.Tag(t))
	}
	return s
}

// tagList flattens a tag set; order is irrelevant for a TEXT[] column.
func tagList(s model.TagSet) []string {
	out := make([]string, 0, s.Size())
	s.Each(func(t model.Tag) { out = append(out, string(t)) })
	return out
}
