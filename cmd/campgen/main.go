// campgen generates hostile encampments into a demo world.
//
// Usage:
//
//	go run ./cmd/campgen -points 1500 -count 3
//	go run ./cmd/campgen -points 800 -dormant -simulate 30s
//	go run ./cmd/campgen -import-catalog internal/data/catalog/default.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/outpost/internal/ai"
	"github.com/udisondev/outpost/internal/config"
	"github.com/udisondev/outpost/internal/data"
	"github.com/udisondev/outpost/internal/db"
	"github.com/udisondev/outpost/internal/encampment"
	"github.com/udisondev/outpost/internal/model"
	"github.com/udisondev/outpost/internal/rng"
	"github.com/udisondev/outpost/internal/spawn"
	"github.com/udisondev/outpost/internal/world"
)

const ConfigPath = "config/outpost.yaml"

var (
	colony  = model.NewFaction(1, "colony", true)
	raiders = model.NewFaction(2, "raiders", false)
)

type options struct {
	configPath    string
	catalogPath   string
	importCatalog string
	points        float64
	count         int
	seed          uint64
	dormant       bool
	units         bool
	simulate      time.Duration
	persist       bool
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, parseFlags()); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options

	cfgPath := ConfigPath
	if p := os.Getenv("OUTPOST_CONFIG"); p != "" {
		cfgPath = p
	}

	flag.StringVar(&opts.configPath, "config", cfgPath, "generator config file (env OUTPOST_CONFIG)")
	flag.StringVar(&opts.catalogPath, "catalog", "", "template catalog YAML (embedded default when empty)")
	flag.StringVar(&opts.importCatalog, "import-catalog", "", "store the catalog YAML into the database and exit")
	flag.Float64Var(&opts.points, "points", 1000, "threat points per encampment")
	flag.IntVar(&opts.count, "count", 1, "number of encampments to generate")
	flag.Uint64Var(&opts.seed, "seed", 0, "explicit seed of the first encampment (derived from the world seed when 0)")
	flag.BoolVar(&opts.dormant, "dormant", false, "generate dormant encampments")
	flag.BoolVar(&opts.units, "units", true, "allow mobile units")
	flag.DurationVar(&opts.simulate, "simulate", 0, "keep ticking encampment AI for this long after generation")
	flag.BoolVar(&opts.persist, "persist", false, "record encampments in the database ledger")
	flag.Parse()

	return opts
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	ai.EnableDebugLogging(logLevel == slog.LevelDebug)

	slog.Info("campgen starting", "log_level", cfg.LogLevel, "world_seed", cfg.WorldSeed)

	var (
		database *db.DB
		ledger   encampment.Ledger
	)
	if cfg.Database.Enabled || opts.persist || opts.importCatalog != "" {
		database, err = db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected")

		if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		ledger = database.Encampments()
	}

	if opts.importCatalog != "" {
		return importCatalog(ctx, database, opts.importCatalog)
	}

	catalog, err := loadCatalog(ctx, cfg, database, opts.catalogPath)
	if err != nil {
		return err
	}

	w := world.Demo(cfg.World, rng.New(rng.Derive(cfg.WorldSeed, "world")), colony)

	ticks := ai.NewTickManager(cfg.AI.TickInterval)
	coord := spawn.NewCoordinator(w, ticks, cfg.Spawn)
	gen := encampment.NewGenerator(cfg, catalog, w, coord, ledger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting AI tick loop", "interval", cfg.AI.TickInterval)
		if err := ticks.Start(gctx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("tick loop: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		defer ticks.Stop()

		if err := generate(gctx, gen, opts); err != nil {
			return err
		}
		if opts.simulate <= 0 {
			return nil
		}

		slog.Info("simulating", "duration", opts.simulate, "encampments", coord.Count())
		select {
		case <-time.After(opts.simulate):
		case <-gctx.Done():
		}
		slog.Info("simulation finished",
			"ticks", ticks.Ticks(),
			"live", coord.Count())
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("campgen: %w", err)
	}
	return nil
}

func generate(ctx context.Context, gen *encampment.Generator, opts options) error {
	for i := range max(opts.count, 1) {
		req := encampment.Request{
			Points:       opts.points,
			Faction:      raiders,
			Dormant:      opts.dormant,
			UnitsAllowed: opts.units,
			Key:          fmt.Sprintf("campgen-%d", i),
		}
		if opts.seed != 0 {
			req.Seed = opts.seed + uint64(i)
		}

		enc, plan, err := gen.Generate(ctx, req)
		if err != nil {
			return fmt.Errorf("generating encampment %d: %w", i, err)
		}
		printEncampment(enc, plan)
	}
	return nil
}

func printEncampment(enc *spawn.Encampment, plan *encampment.Plan) {
	fmt.Printf("encampment %d seed=%d anchor=%v score=%.1f budget=%.0f structures=%d units=%d dropped=%d skipped=%d\n",
		enc.ID, plan.Seed, enc.Anchor, plan.Site.Score, plan.Composition.Budget,
		len(plan.Layout.Structures), len(plan.Layout.Units), len(plan.Layout.Dropped), enc.Skipped)
	for _, m := range enc.LookTargets() {
		fmt.Printf("  %-6s %-16s %v %s\n", m.Kind(), m.TemplateID(), m.Position(), m.Rotation())
	}
}

func loadCatalog(ctx context.Context, cfg config.Generator, database *db.DB, path string) (*data.Catalog, error) {
	var (
		catalog *data.Catalog
		err     error
	)
	if cfg.Database.CatalogFromDB && database != nil {
		catalog, err = database.Templates().LoadCatalog(ctx)
	} else {
		catalog, err = data.LoadCatalog(path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}

	slog.Info("catalog loaded",
		"templates", len(catalog.Templates()),
		"units", len(catalog.Units()))
	return catalog, nil
}

func importCatalog(ctx context.Context, database *db.DB, path string) error {
	catalog, err := data.LoadCatalog(path)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	if err := database.Templates().Import(ctx, catalog); err != nil {
		return fmt.Errorf("importing catalog: %w", err)
	}
	slog.Info("catalog imported",
		"path", path,
		"templates", len(catalog.Templates()),
		"units", len(catalog.Units()))
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
