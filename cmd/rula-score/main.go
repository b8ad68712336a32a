package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/banshee-data/rula.report/internal/api"
	"github.com/banshee-data/rula.report/internal/batch"
	"github.com/banshee-data/rula.report/internal/config"
	"github.com/banshee-data/rula.report/internal/db"
	"github.com/banshee-data/rula.report/internal/fsutil"
	"github.com/banshee-data/rula.report/internal/monitoring"
	"github.com/banshee-data/rula.report/internal/report"
	"github.com/banshee-data/rula.report/internal/rula"
	"github.com/banshee-data/rula.report/internal/summary"
	"github.com/banshee-data/rula.report/internal/version"
)

type options struct {
	configPath  string
	dbPath      string
	outDir      string
	workers     int
	timeout     time.Duration
	listen      string
	verbose     bool
	showVersion bool
	trials      []string
}

func parseFlags(args []string) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("rula-score", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "Scoring config JSON (default "+config.DefaultConfigPath+" if present)")
	fs.StringVar(&o.dbPath, "db", "", "SQLite results database (optional)")
	fs.StringVar(&o.outDir, "out", "", "Directory for summary.csv and plots (CSV goes to stdout when empty)")
	fs.IntVar(&o.workers, "workers", 0, "Concurrent trials (overrides config)")
	fs.DurationVar(&o.timeout, "timeout", 0, "Per-trial timeout (overrides config)")
	fs.StringVar(&o.listen, "listen", "", "Serve the results API on this address after scoring (requires -db)")
	fs.BoolVar(&o.verbose, "v", false, "Log per-trial diagnostics")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	o.trials = fs.Args()

	if o.showVersion {
		return o, nil
	}
	if o.workers < 0 {
		return nil, fmt.Errorf("-workers must not be negative")
	}
	if o.listen != "" && o.dbPath == "" {
		return nil, fmt.Errorf("-listen requires -db")
	}
	if len(o.trials) == 0 && o.listen == "" {
		return nil, fmt.Errorf("no trial files given")
	}
	return o, nil
}

// loadConfig reads -config, falling back to the defaults file and then to
// built-in defaults.
func loadConfig(o *options) (*config.ScoringConfig, error) {
	path := o.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err != nil {
			return config.EmptyScoringConfig(), nil
		}
		path = config.DefaultConfigPath
	}
	return config.LoadScoringConfig(path)
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("rula-score: %v", err)
	}
	if o.showVersion {
		fmt.Println(version.String())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, os.Stdout, os.Stderr); err != nil {
		log.Fatalf("rula-score: %v", err)
	}
}

func run(ctx context.Context, o *options, stdout, stderr io.Writer) error {
	var diag io.Writer
	if o.verbose {
		diag = stderr
	}
	rula.SetLogWriters(stderr, diag, nil)
	batch.SetLogWriters(stderr, diag, nil)
	monitoring.SetWriter(stderr)

	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	opts := batch.Options{
		Params:       cfg.Params(),
		Workers:      cfg.GetWorkers(),
		TrialTimeout: cfg.GetTrialTimeout(),
	}
	if o.workers > 0 {
		opts.Workers = o.workers
	}
	if o.timeout > 0 {
		opts.TrialTimeout = o.timeout
	}

	if o.dbPath != "" {
		store, err := db.NewDB(o.dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
		opts.Store = store
	}
	if o.outDir != "" {
		opts.Reports = report.NewWriter(fsutil.OSFileSystem{}, o.outDir)
	}

	if len(o.trials) > 0 {
		jobs := make([]batch.Job, len(o.trials))
		for i, path := range o.trials {
			jobs[i] = batch.FileJob(path)
		}
		res, err := batch.Run(ctx, jobs, opts)
		if err != nil {
			return err
		}
		if err := writeSummaryCSV(o.outDir, res.Summaries, stdout); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "scored %d trials (%d failed) in %s\n", len(res.Summaries), res.Failed, res.Elapsed.Round(time.Millisecond))
	}

	if o.listen != "" {
		return serve(ctx, o.listen, opts.Store)
	}
	return nil
}

func writeSummaryCSV(outDir string, sums []*summary.TrialSummary, stdout io.Writer) error {
	if outDir == "" {
		return summary.WriteCSV(stdout, sums)
	}
	fs := fsutil.OSFileSystem{}
	if err := fs.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	f, err := fs.Create(filepath.Join(outDir, "summary.csv"))
	if err != nil {
		return err
	}
	if err := summary.WriteCSV(f, sums); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func serve(ctx context.Context, addr string, store *db.DB) error {
	mux := http.NewServeMux()
	if err := store.AttachAdminRoutes(mux); err != nil {
		return err
	}
	mux.Handle("/api/", api.NewServer(store).ServeMux())

	server := &http.Server{
		Addr:    addr,
		Handler: api.LoggingMiddleware(mux),
	}

	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("serving results on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
