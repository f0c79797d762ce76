package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/outpost/internal/curve"
)

// Generator holds all configuration for encampment generation.
type Generator struct {
	LogLevel  string `yaml:"log_level"`
	WorldSeed string `yaml:"world_seed"`

	Composition Composition `yaml:"composition"`
	Layout      Layout      `yaml:"layout"`
	Site        Site        `yaml:"site"`
	Spawn       Spawn       `yaml:"spawn"`
	AI          AI          `yaml:"ai"`
	World       World       `yaml:"world"`

	// Database (optional generation ledger and catalog source)
	Database DatabaseConfig `yaml:"database"`
}

// Composition tunes budget allocation and template selection.
type Composition struct {
	UnitsChance  curve.Curve `yaml:"units_chance"`  // budget → chance units are included
	UnitFraction curve.Curve `yaml:"unit_fraction"` // density over budget fraction spent on units

	ProblemCauserChance  curve.Curve `yaml:"problem_causer_chance"`
	ProblemCauserCount   curve.Curve `yaml:"problem_causer_count"`
	ProblemCauserDeducts bool        `yaml:"problem_causer_deducts"`

	CountdownActivatorChance curve.Curve `yaml:"countdown_activator_chance"`
	ProximityActivatorChance curve.Curve `yaml:"proximity_activator_chance"`
	ProximityActivatorCount  curve.Curve `yaml:"proximity_activator_count"`

	GoodChance   curve.Curve `yaml:"good_chance"`
	GoodMaxCount curve.Curve `yaml:"good_max_count"`

	LampChance   curve.Curve `yaml:"lamp_chance"`
	LampMinCount curve.Curve `yaml:"lamp_min_count"`
	LampMaxCount curve.Curve `yaml:"lamp_max_count"`

	ResonanceChance  curve.Curve `yaml:"resonance_chance"`
	ResonanceCount   curve.Curve `yaml:"resonance_count"`
	ResonanceDeducts bool        `yaml:"resonance_deducts"`

	BulletShieldChance curve.Curve `yaml:"bullet_shield_chance"`
	MortarShieldChance curve.Curve `yaml:"mortar_shield_chance"`
	ShieldDiscount     float64     `yaml:"shield_discount"` // fraction of remaining budget removed per shield
}

// Layout tunes the local placement search.
type Layout struct {
	Size           curve.Curve `yaml:"size"` // budget → rectangle side
	SizeJitterMin  float64     `yaml:"size_jitter_min"`
	SizeJitterMax  float64     `yaml:"size_jitter_max"`
	MinSize        int         `yaml:"min_size"`
	WallsChance    curve.Curve `yaml:"walls_chance"`
	Attempts       int         `yaml:"attempts"`      // placement attempts per structure per rectangle
	ExpandMargin   int         `yaml:"expand_margin"` // cells added on every side for the second search
	CenterAvoid    float64     `yaml:"center_avoid"`  // fraction of the rectangle turrets keep out of
	EdgeDepth      int         `yaml:"edge_depth"`    // depth of the edge zone for edge-biased templates
	BarricadeCount int         `yaml:"barricade_count"`
}

// Site tunes the world anchor search.
type Site struct {
	Probes              int     `yaml:"probes"`
	NearInhabitedChance float64 `yaml:"near_inhabited_chance"`
	NearInhabitedProbes int     `yaml:"near_inhabited_probes"`
	NearInhabitedMin    int     `yaml:"near_inhabited_min"`
	NearInhabitedMax    int     `yaml:"near_inhabited_max"`
	AcceptScore         float64 `yaml:"accept_score"`  // probes scoring at least this are accepted immediately
	PlayerRadius        int     `yaml:"player_radius"` // proximity to player structures that halves the score
}

// Spawn tunes committing a layout into the world.
type Spawn struct {
	FallbackRadius     int `yaml:"fallback_radius"`
	CountdownMinTicks  int `yaml:"countdown_min_ticks"`
	CountdownMaxTicks  int `yaml:"countdown_max_ticks"`
	ProximityRadius    int `yaml:"proximity_radius"`
	DefendRadiusMargin int `yaml:"defend_radius_margin"`
}

// AI tunes the behaviour tick loop.
type AI struct {
	TickInterval time.Duration `yaml:"tick_interval"`
}

// World describes the demo world used by the CLI.
type World struct {
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	RockDensity  float64 `yaml:"rock_density"`
	RevealRadius int     `yaml:"reveal_radius"`
	BaseSize     int     `yaml:"base_size"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Enabled       bool   `yaml:"enabled"`
	CatalogFromDB bool   `yaml:"catalog_from_db"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	DBName        string `yaml:"dbname"`
	SSLMode       string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultComposition returns selection tuning with sensible defaults.
// Every optional pass has zero chance at or below 500 points.
func DefaultComposition() Composition {
	return Composition{
		UnitsChance:  curve.New(curve.Point{X: 0, Y: 0}, curve.Point{X: 500, Y: 0}, curve.Point{X: 1000, Y: 0.4}, curve.Point{X: 3000, Y: 0.7}, curve.Point{X: 8000, Y: 0.85}),
		UnitFraction: curve.New(curve.Point{X: 0.2, Y: 0}, curve.Point{X: 0.5, Y: 1}, curve.Point{X: 0.8, Y: 0}),

		ProblemCauserChance:  curve.New(curve.Point{X: 500, Y: 0}, curve.Point{X: 1500, Y: 0.4}, curve.Point{X: 4000, Y: 0.7}),
		ProblemCauserCount:   curve.New(curve.Point{X: 1500, Y: 1}, curve.Point{X: 6000, Y: 2}),
		ProblemCauserDeducts: true,

		CountdownActivatorChance: curve.Constant(0.5),
		ProximityActivatorChance: curve.Constant(0.6),
		ProximityActivatorCount:  curve.New(curve.Point{X: 0, Y: 1}, curve.Point{X: 3000, Y: 2}, curve.Point{X: 8000, Y: 3}),

		GoodChance:   curve.New(curve.Point{X: 600, Y: 0}, curve.Point{X: 1500, Y: 0.5}, curve.Point{X: 4000, Y: 0.8}),
		GoodMaxCount: curve.New(curve.Point{X: 600, Y: 1}, curve.Point{X: 4000, Y: 3}),

		LampChance:   curve.New(curve.Point{X: 500, Y: 0}, curve.Point{X: 1000, Y: 0.5}, curve.Point{X: 3000, Y: 0.8}),
		LampMinCount: curve.New(curve.Point{X: 1000, Y: 1}, curve.Point{X: 4000, Y: 2}),
		LampMaxCount: curve.New(curve.Point{X: 1000, Y: 2}, curve.Point{X: 4000, Y: 4}),

		ResonanceChance:  curve.New(curve.Point{X: 2000, Y: 0}, curve.Point{X: 4000, Y: 0.3}, curve.Point{X: 8000, Y: 0.6}),
		ResonanceCount:   curve.New(curve.Point{X: 2000, Y: 1}, curve.Point{X: 8000, Y: 2}),
		ResonanceDeducts: true,

		BulletShieldChance: curve.New(curve.Point{X: 1000, Y: 0}, curve.Point{X: 2500, Y: 0.4}, curve.Point{X: 6000, Y: 0.6}),
		MortarShieldChance: curve.New(curve.Point{X: 2000, Y: 0}, curve.Point{X: 4000, Y: 0.3}, curve.Point{X: 8000, Y: 0.5}),
		ShieldDiscount:     0.15,
	}
}

// DefaultLayout returns placement tuning with sensible defaults.
func DefaultLayout() Layout {
	return Layout{
		Size:           curve.New(curve.Point{X: 0, Y: 7}, curve.Point{X: 1000, Y: 11}, curve.Point{X: 3000, Y: 15}, curve.Point{X: 8000, Y: 22}),
		SizeJitterMin:  0.85,
		SizeJitterMax:  1.15,
		MinSize:        5,
		WallsChance:    curve.New(curve.Point{X: 0, Y: 0.2}, curve.Point{X: 3000, Y: 0.5}, curve.Point{X: 8000, Y: 0.7}),
		Attempts:       200,
		ExpandMargin:   3,
		CenterAvoid:    0.25,
		EdgeDepth:      3,
		BarricadeCount: 4,
	}
}

// DefaultSite returns anchor search tuning with sensible defaults.
func DefaultSite() Site {
	return Site{
		Probes:              100,
		NearInhabitedChance: 0.5,
		NearInhabitedProbes: 30,
		NearInhabitedMin:    15,
		NearInhabitedMax:    40,
		AcceptScore:         99,
		PlayerRadius:        6,
	}
}

// Default returns Generator config with sensible defaults.
func Default() Generator {
	return Generator{
		LogLevel:    "info",
		WorldSeed:   "outpost",
		Composition: DefaultComposition(),
		Layout:      DefaultLayout(),
		Site:        DefaultSite(),
		Spawn: Spawn{
			FallbackRadius:     4,
			CountdownMinTicks:  30,
			CountdownMaxTicks:  120,
			ProximityRadius:    8,
			DefendRadiusMargin: 2,
		},
		AI: AI{
			TickInterval: time.Second,
		},
		World: World{
			Width:        120,
			Height:       120,
			RockDensity:  0.08,
			RevealRadius: 45,
			BaseSize:     14,
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "outpost",
			Password: "outpost",
			DBName:   "outpost",
			SSLMode:  "disable",
		},
	}
}

// Load loads generator config from a YAML file.
// If the file doesn't exist, returns defaults.
func Load(path string) (Generator, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
