package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/classifier"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/config"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/metrics"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/probe"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/records"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/report"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/runner"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/search"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/storage"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/version"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	checkInputs      []string
	checkFresh       bool
	checkMetricsAddr string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Classify every company in the input files",
	Long: `Loads companies from CSV or Excel exports, probes each website and writes
the verdicts to the results files. Verdicts are checkpointed to SQLite, so an
interrupted run resumes where it stopped unless --fresh is given.

Press Ctrl+C once to stop after the current company, twice to exit at once.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringArrayVarP(&checkInputs, "input", "i", nil, "Input CSV/XLSX file (repeatable, overrides input_files)")
	checkCmd.Flags().BoolVar(&checkFresh, "fresh", false, "Ignore stored verdicts and classify every company again")
	checkCmd.Flags().StringVar(&checkMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	logrus.Infof("mastatus v%s starting...", version.Version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(checkInputs) > 0 {
		cfg.InputFiles = checkInputs
	}
	if len(cfg.InputFiles) == 0 {
		return errors.New("no input files: pass --input or set input_files")
	}

	logrus.Infof("Configuration loaded: inputs=%v, delay=%dms, search API enabled=%t",
		cfg.InputFiles, cfg.DelayMs, cfg.Search.APIEnabled())

	companies := records.LoadAll(cfg.InputFiles)
	if len(companies) == 0 {
		return errors.New("no companies loaded from input files")
	}
	logrus.Infof("Loaded %d unique companies", len(companies))

	// Initialize storage
	store, err := storage.NewStorage(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	logrus.Infof("Database initialized: %s", cfg.DBPath)

	runID := uuid.NewString()
	reg := prometheus.NewRegistry()
	tracker := metrics.NewTracker(runID, reg)

	stopMetrics := serveMetrics(checkMetricsAddr, reg)
	defer stopMetrics()

	prober := probe.NewProber(probe.Options{
		Timeout:      cfg.RequestTimeout(),
		Attempts:     cfg.RetryAttempts,
		RetryDelay:   cfg.RetryDelay(),
		MaxRedirects: cfg.MaxRedirects,
		UserAgent:    cfg.UserAgent,
	})
	cls := classifier.New(cfg.Tables,
		runner.TrackProber(prober, tracker),
		runner.TrackCorroborator(search.FromConfig(cfg), tracker),
	)
	r := runner.New(cfg, store, cls, tracker, search.NewStateFromConfig(cfg), runID)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Setup signal handler: first signal stops the loop, second one exits
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		sig := <-sigChan
		logrus.Infof("Received signal: %v, finishing current company...", sig)
		cancel()

		sig = <-sigChan
		logrus.Warnf("Received second signal (%v) - forcing immediate exit!", sig)
		if err := tracker.WriteToFile(cfg.MetricsPath, "forced_exit"); err != nil {
			logrus.Errorf("Emergency metrics save failed: %v", err)
		}
		os.Exit(1)
	}()

	// Start progress logger
	var wg sync.WaitGroup
	stopProgress := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				logrus.Info(tracker.LogProgress())
			case <-stopProgress:
				return
			}
		}
	}()

	res, runErr := r.Run(ctx, companies, checkFresh)

	close(stopProgress)
	wg.Wait()

	if res == nil {
		return runErr
	}

	logrus.Info("Step 1/3: Writing results...")
	summary, err := writeOutputs(cfg, res.Verdicts)
	if err != nil {
		logrus.Errorf("Failed to write results: %v", err)
	}

	logrus.Info("Step 2/3: Writing final metrics...")
	logrus.Info("Final stats: " + tracker.LogProgress())
	if err := tracker.WriteToFile(cfg.MetricsPath, res.TerminationReason); err != nil {
		logrus.Errorf("Failed to write metrics: %v", err)
	} else {
		logrus.Infof("Metrics written to %s", cfg.MetricsPath)
	}

	logrus.Info("Step 3/3: Closing database connection...")

	fmt.Fprint(cmd.OutOrStdout(), summary.Render())

	if runErr != nil {
		return runErr
	}
	return err
}

// writeOutputs writes the results table, the optional workbook and the
// summary JSON, and returns the summary.
func writeOutputs(cfg *config.Config, verdicts []classifier.Verdict) (metrics.Summary, error) {
	summary := metrics.Summarize(verdicts, cfg.Tables.ReliableDomains)

	if err := report.WriteCSV(cfg.ResultsPath, verdicts); err != nil {
		return summary, err
	}
	logrus.Infof("Results written to %s", cfg.ResultsPath)

	if cfg.XLSXPath != "" {
		if err := report.WriteXLSX(cfg.XLSXPath, verdicts, summary); err != nil {
			return summary, err
		}
		logrus.Infof("Workbook written to %s", cfg.XLSXPath)
	}

	if err := report.WriteSummaryJSON(cfg.SummaryPath, summary); err != nil {
		return summary, err
	}
	logrus.Infof("Summary written to %s", cfg.SummaryPath)

	return summary, nil
}

// serveMetrics exposes reg over HTTP when addr is set and returns a stop func.
func serveMetrics(addr string, reg *prometheus.Registry) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logrus.Infof("Serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("Metrics server failed: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logrus.Warnf("Metrics server shutdown: %v", err)
		}
	}
}
