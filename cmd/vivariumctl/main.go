package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "vivarium/internal/bitstr"
	"vivarium/internal/config"
	"vivarium/internal/evo"
	"vivarium/internal/logging"
	"vivarium/internal/metrics"
	"vivarium/internal/model"
	"vivarium/internal/platform"
	"vivarium/internal/storage"
)

var stdout io.Writer = os.Stdout

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "snapshot":
		return runSnapshot(ctx, args[1:])
	case "ops":
		return runOps(args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func openStore(ctx context.Context, kind, path string) (storage.Store, error) {
	store, err := storage.NewStore(kind, path)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}
	return store, nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "run configuration (JSON)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "vivarium.db", "sqlite database path")
	gens := fs.Int("gens", -1, "override the configured generation count")
	seed := fs.Uint64("seed", 0, "override the configured seed (0 keeps it)")
	workers := fs.Int("workers", -1, "override the configured worker count")
	logLevel := fs.String("log-level", "", "debug|info|warn|error (overrides the config)")
	logJSON := fs.Bool("log-json", false, "emit JSON log lines")
	logFile := fs.String("log-file", "", "also append JSON log lines to this file")
	resume := fs.Bool("resume", false, "continue the configured run_id from its latest milestone")
	metricsAddr := fs.String("metrics-addr", "", "serve prometheus metrics on this address while running")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return errors.New("run requires --config")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *gens >= 0 {
		cfg.Generations = *gens
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *workers >= 0 {
		cfg.Workers = *workers
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logOpts := logging.Options{Level: level, JSON: *logJSON}
	if *logFile != "" {
		handler, closer, err := logging.OpenFile(*logFile, level)
		if err != nil {
			return err
		}
		defer func() {
			_ = closer.Close()
		}()
		logOpts.Extra = append(logOpts.Extra, handler)
	}
	logger := logging.New(os.Stderr, logOpts)

	store, err := openStore(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	rec := metrics.NewRecorder()
	if *metricsAddr != "" {
		shutdown := serveMetrics(*metricsAddr, rec, logger)
		defer shutdown()
	}

	p := platform.New(platform.Config{Store: store, Logger: logger, Metrics: rec})
	var result platform.EvolutionResult
	if *resume {
		result, err = resumeRun(ctx, p, store, cfg)
	} else {
		result, err = p.RunEvolution(ctx, cfg)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "run completed run_id=%s generations=%d best=%.6f mean=%.6f history_records=%d stop=%s store=%s\n",
		result.RunID,
		result.Generations,
		result.BestFinalFitness,
		result.FinalStats.Mean,
		result.HistoryRecords,
		result.StopReason,
		*storeKind,
	)
	return nil
}

func resumeRun(ctx context.Context, p *platform.Platform, store storage.Store, cfg config.Run) (platform.EvolutionResult, error) {
	if cfg.RunID == "" {
		return platform.EvolutionResult{}, errors.New("run --resume requires run_id in the config")
	}
	snap, ok, err := store.LatestSnapshot(ctx, cfg.RunID)
	if err != nil {
		return platform.EvolutionResult{}, err
	}
	if !ok {
		return platform.EvolutionResult{}, fmt.Errorf("no milestone stored for run %s", cfg.RunID)
	}
	return p.ResumeEvolution(ctx, cfg, snap)
}

func serveMetrics(addr string, rec *metrics.Recorder, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(rec.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "vivarium.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	runs, err := store.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "no runs")
		return nil
	}
	for _, id := range runs {
		fmt.Fprintln(stdout, id)
	}
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	limit := fs.Int("limit", 50, "max records to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit records as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "vivarium.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("history requires --run-id")
	}

	store, err := openStore(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	records, ok, err := store.GetHistory(ctx, *runID)
	if err != nil {
		return err
	}
	if !ok || len(records) == 0 {
		fmt.Fprintln(stdout, "no history records")
		return nil
	}
	if *limit > 0 && len(records) > *limit {
		records = records[len(records)-*limit:]
	}
	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	for _, rec := range records {
		fitness := "-"
		if rec.Fitness != nil {
			fitness = fmt.Sprintf("%.6f", *rec.Fitness)
		}
		fmt.Fprintf(stdout, "gen=%d deme=%d id=%s parents=%v kind=%s op=%s fitness=%s\n",
			rec.Generation,
			rec.Deme,
			rec.ID,
			rec.Parents,
			rec.Kind,
			rec.Operation,
			fitness,
		)
	}
	return nil
}

func runSnapshot(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	generation := fs.Int("generation", -1, "milestone generation (-1 for the latest)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "vivarium.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("snapshot requires --run-id")
	}

	store, err := openStore(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	var (
		snap model.VivariumSnapshot
		ok   bool
	)
	if *generation < 0 {
		snap, ok, err = store.LatestSnapshot(ctx, *runID)
	} else {
		snap, ok, err = store.GetSnapshot(ctx, *runID, *generation)
	}
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(stdout, "no milestone")
		return nil
	}

	fmt.Fprintf(stdout, "run_id=%s generation=%d saved_at=%s size=%d best=%.6f mean=%.6f\n",
		snap.RunID, snap.Generation, snap.SavedAt.Format(time.RFC3339),
		snap.Stats.Size, snap.Stats.Max, snap.Stats.Mean)
	for i, d := range snap.Demes {
		fmt.Fprintf(stdout, "deme=%d size=%d best=%.6f mean=%.6f std_dev=%.6f\n",
			i, d.Stats.Size, d.Stats.Max, d.Stats.Mean, d.Stats.StdDev)
	}
	return nil
}

func runOps(args []string) error {
	fs := flag.NewFlagSet("ops", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, name := range evo.ListOps() {
		fmt.Fprintln(stdout, name)
	}
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: vivariumctl <run|runs|history|snapshot|ops> [flags]", msg)
}
