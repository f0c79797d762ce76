package data

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"codeberg.org/anaseto/gruid"
	"gopkg.in/yaml.v3"

	"github.com/udisondev/outpost/internal/model"
)

//go:embed catalog/default.yaml
var defaultCatalogYAML []byte

// catalogFile is the on-disk catalog layout.
type catalogFile struct {
	Templates []templateDef `yaml:"templates"`
	Units     []unitDef     `yaml:"units"`
}

// templateDef mirrors model.Template for YAML decoding.
type templateDef struct {
	ID            string      `yaml:"id"`
	Label         string      `yaml:"label"`
	Cost          float64     `yaml:"cost"`
	Size          []int       `yaml:"size"`
	Tags          []model.Tag `yaml:"tags"`
	Weight        *float64    `yaml:"weight"`
	MinSeparation int         `yaml:"min_separation"`
	MinBudget     float64     `yaml:"min_budget"`
	Condition     string      `yaml:"condition"`

	RequiresEdgeLOS bool `yaml:"requires_edge_los"`
	Turret          bool `yaml:"turret"`
	Mortar          bool `yaml:"mortar"`
	Anchor          bool `yaml:"anchor"`
	EdgeBiased      bool `yaml:"edge_biased"`
	Wall            bool `yaml:"wall"`
	Barricade       bool `yaml:"barricade"`
	Spawner         bool `yaml:"spawner"`
	BlocksLandings  bool `yaml:"blocks_landings"`
	Rotatable       bool `yaml:"rotatable"`
}

// unitDef mirrors model.UnitTemplate for YAML decoding.
type unitDef struct {
	ID          string      `yaml:"id"`
	Label       string      `yaml:"label"`
	CombatPower float64     `yaml:"combat_power"`
	Tags        []model.Tag `yaml:"tags"`
	Weight      *float64    `yaml:"weight"`
	MinBudget   float64     `yaml:"min_budget"`
	Condition   string      `yaml:"condition"`
}

func (d templateDef) template() *model.Template {
	size := gruid.Point{X: 1, Y: 1}
	if len(d.Size) == 2 {
		size = gruid.Point{X: d.Size[0], Y: d.Size[1]}
	}
	return &model.Template{
		ID:              d.ID,
		Label:           d.Label,
		Cost:            d.Cost,
		Size:            size,
		Tags:            model.NewTagSet(d.Tags...),
		Weight:          weightOrDefault(d.Weight),
		MinSeparation:   d.MinSeparation,
		MinBudget:       d.MinBudget,
		Condition:       d.Condition,
		RequiresEdgeLOS: d.RequiresEdgeLOS,
		Turret:          d.Turret,
		Mortar:          d.Mortar,
		Anchor:          d.Anchor,
		EdgeBiased:      d.EdgeBiased,
		Wall:            d.Wall,
		Barricade:       d.Barricade,
		Spawner:         d.Spawner,
		BlocksLandings:  d.BlocksLandings,
		Rotatable:       d.Rotatable,
	}
}

func (d unitDef) unit() *model.UnitTemplate {
	return &model.UnitTemplate{
		ID:          d.ID,
		Label:       d.Label,
		CombatPower: d.CombatPower,
		Tags:        model.NewTagSet(d.Tags...),
		Weight:      weightOrDefault(d.Weight),
		MinBudget:   d.MinBudget,
		Condition:   d.Condition,
	}
}

// weight defaults to 1 when omitted; an explicit 0 disables the template
func weightOrDefault(w *float64) float64 {
	if w == nil {
		return 1
	}
	return *w
}

// ParseCatalog decodes a YAML catalog and builds the indexed Catalog.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	templates := make([]*model.Template, 0, len(f.Templates))
	for _, d := range f.Templates {
		templates = append(templates, d.template())
	}
	units := make([]*model.UnitTemplate, 0, len(f.Units))
	for _, d := range f.Units {
		units = append(units, d.unit())
	}

	c, err := NewCatalog(templates, units)
	if err != nil {
		return nil, fmt.Errorf("building catalog: %w", err)
	}
	return c, nil
}

// LoadCatalog reads a catalog file. An empty path loads the embedded default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	raw := defaultCatalogYAML
	source := "embedded"
	if path != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading catalog %s: %w", path, err)
		}
		source = path
	}

	c, err := ParseCatalog(raw)
	if err != nil {
		return nil, err
	}

	slog.Info("loaded template catalog",
		"source", source,
		"templates", len(c.Templates()),
		"units", len(c.Units()))
	return c, nil
}
