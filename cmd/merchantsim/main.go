// Command merchantsim runs the merchant trade network model.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/merchant-network/internal/api"
	"github.com/talgya/merchant-network/internal/config"
	"github.com/talgya/merchant-network/internal/engine"
	"github.com/talgya/merchant-network/internal/persistence"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML configuration file (defaults when empty)")
		steps      = flag.Int("steps", 0, "steps to run, overriding the configuration; 0 keeps it")
		seed       = flag.Int64("seed", 0, "random seed, overriding the configuration")
		dbPath     = flag.String("db", "", "SQLite file for run history; empty disables it")
		saveEvery  = flag.Int("save-every", 10, "steps between history saves")
		exportPath = flag.String("export", "", "write every snapshot to a zstd JSONL file")
		port       = flag.Int("port", 0, "serve the HTTP API on this port; 0 disables it")
		interval   = flag.Duration("interval", 0, "minimum wall time per step")
		hold       = flag.Bool("hold", false, "keep serving the API after the run completes")
		logLevel   = flag.String("log-level", "info", "debug, info, warn or error")
		inspect    = flag.String("inspect", "", "summarise an existing export file and exit")
	)
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q\n", *logLevel)
		os.Exit(2)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if *inspect != "" {
		if err := inspectExport(*inspect); err != nil {
			slog.Error("inspect failed", "path", *inspect, "error", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Seed = *seed
		case "steps":
			if *steps > 0 {
				cfg.Steps = *steps
			}
		}
	})

	if err := run(cfg, options{
		dbPath:     *dbPath,
		saveEvery:  *saveEvery,
		exportPath: *exportPath,
		port:       *port,
		interval:   *interval,
		hold:       *hold,
	}); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	dbPath     string
	saveEvery  int
	exportPath string
	port       int
	interval   time.Duration
	hold       bool
}

func run(cfg config.Config, opts options) error {
	started := time.Now()

	model, err := engine.Build(cfg)
	if err != nil {
		return err
	}

	// ── History ───────────────────────────────────────────────────────
	var db *persistence.DB
	var runID string
	if opts.dbPath != "" {
		if db, err = persistence.Open(opts.dbPath); err != nil {
			return err
		}
		defer db.Close()
		if prev, err := db.GetMeta("last_run"); err == nil {
			slog.Info("previous run", "run", prev)
		} else if !errors.Is(err, persistence.ErrNotFound) {
			return err
		}
		if runID, err = db.BeginRun(cfg); err != nil {
			return err
		}
		if err := db.SaveMeta("last_run", runID); err != nil {
			return err
		}
		if err := db.SaveSnapshot(runID, model.Snapshot()); err != nil {
			return err
		}
		slog.Info("database opened", "path", opts.dbPath, "run", runID)
	}

	var export *persistence.ExportWriter
	if opts.exportPath != "" {
		if export, err = persistence.CreateExport(opts.exportPath); err != nil {
			return err
		}
		defer export.Close()
		if err := export.Write(model.Snapshot()); err != nil {
			return err
		}
	}

	// ── Runner ────────────────────────────────────────────────────────
	runner := engine.NewRunner(model)
	runner.Interval = opts.interval

	var trades, offers, moves int
	runner.OnStep = func(snap *engine.Snapshot) error {
		trades += snap.Stats.Trades
		offers += snap.Stats.Offers
		moves += snap.Stats.Moves
		if export != nil {
			if err := export.Write(snap); err != nil {
				return fmt.Errorf("export step %d: %w", snap.Step, err)
			}
		}
		if db != nil && (snap.Step%max(opts.saveEvery, 1) == 0 || snap.Step == cfg.Steps) {
			if err := db.SaveSnapshot(runID, snap); err != nil {
				return fmt.Errorf("save step %d: %w", snap.Step, err)
			}
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	// Without -hold the API shuts down with the run.
	serveCtx, endServe := context.WithCancel(gctx)
	defer endServe()

	g.Go(func() error {
		defer func() {
			if !opts.hold {
				endServe()
			}
		}()
		err := runner.Run(gctx, cfg.Steps)
		if errors.Is(err, context.Canceled) {
			slog.Info("run interrupted", "step", model.StepCount())
			return nil
		}
		return err
	})

	if opts.port > 0 {
		adminKey := os.Getenv("MERCHANTSIM_ADMIN_KEY")
		if adminKey == "" {
			slog.Warn("MERCHANTSIM_ADMIN_KEY not set; admin POST endpoints are disabled")
		}
		srv := &api.Server{
			Model:    model,
			Runner:   runner,
			DB:       db,
			RunID:    runID,
			Port:     opts.port,
			AdminKey: adminKey,
		}
		g.Go(func() error { return srv.ListenAndServe(serveCtx) })
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", opts.port)
	}

	if err := g.Wait(); err != nil {
		return err
	}

	// ── Summary ───────────────────────────────────────────────────────
	snap := model.Snapshot()
	lines := []string{
		fmt.Sprintf("Ran %s steps with %s merchants across %s locations in %s.",
			humanize.Comma(int64(snap.Step)),
			humanize.Comma(int64(len(snap.Merchants()))),
			humanize.Comma(int64(len(snap.Locations()))),
			time.Since(started).Round(time.Millisecond)),
		fmt.Sprintf("Offers %s, trades %s, moves %s; %s units held across all sites.",
			humanize.Comma(int64(offers)), humanize.Comma(int64(trades)),
			humanize.Comma(int64(moves)), humanize.Comma(int64(snap.Stats.SumProductAllSites))),
	}
	if export != nil {
		n := export.Count()
		if err := export.Close(); err != nil {
			return err
		}
		if fi, err := os.Stat(opts.exportPath); err == nil {
			lines = append(lines, fmt.Sprintf("Exported %d snapshots to %s (%s).",
				n, opts.exportPath, humanize.Bytes(uint64(fi.Size()))))
		}
	}
	if runID != "" {
		lines = append(lines, fmt.Sprintf("History saved as run %s.", runID))
	}
	fmt.Println(strings.Join(lines, "\n"))
	return nil
}

// inspectExport prints one line per stored snapshot of an export file.
func inspectExport(path string) error {
	snaps, err := persistence.ReadExportFile(path)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		return fmt.Errorf("%s holds no snapshots", path)
	}
	trades := 0
	for _, snap := range snaps {
		trades += snap.Stats.Trades
		fmt.Printf("step %s: offers %s, trades %s, moves %s, %s units held\n",
			humanize.Comma(int64(snap.Step)),
			humanize.Comma(int64(snap.Stats.Offers)), humanize.Comma(int64(snap.Stats.Trades)),
			humanize.Comma(int64(snap.Stats.Moves)), humanize.Comma(int64(snap.Stats.SumProductAllSites)))
	}
	last := snaps[len(snaps)-1]
	fmt.Printf("%d snapshots, last step %s, %s merchants, %s trades in total.\n",
		len(snaps), humanize.Comma(int64(last.Step)),
		humanize.Comma(int64(len(last.Merchants()))), humanize.Comma(int64(trades)))
	return nil
}
