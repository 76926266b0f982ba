package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"playstv-recovery/pkg/browse"
	"playstv-recovery/pkg/cache"
	"playstv-recovery/pkg/config"
	"playstv-recovery/pkg/download"
	"playstv-recovery/pkg/fetch"
	"playstv-recovery/pkg/pipeline"
	"playstv-recovery/pkg/report"
	"playstv-recovery/pkg/scrape"
	"playstv-recovery/pkg/stats"
	"playstv-recovery/pkg/utils"
)

const version = "1.0.0"

func main() {
	fs := flag.NewFlagSet("playstv-recovery", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to YAML config file (optional)")
	showBrowser := fs.Bool("show-browser", false, "Show the browser window (for debugging)")
	logLevel := fs.String("loglevel", "warn", "Log level (debug, info, warn, error, fatal)")
	saveDir := fs.String("save-dir", "", "Override save directory")
	noLive := fs.Bool("no-live", false, "Disable the live progress panel")
	showVersion := fs.Bool("version", false, "Show version info")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `playstv-recovery - recover plays.tv videos from the Wayback Machine

Usage:
  playstv-recovery [options] <username>

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  playstv-recovery alice\n")
		fmt.Fprintf(os.Stderr, "  playstv-recovery -show-browser -loglevel debug alice\n")
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}
	if *showVersion {
		fmt.Printf("playstv-recovery %s\n", version)
		return
	}
	profile := fs.Arg(0)
	if profile == "" {
		fs.Usage()
		os.Exit(1)
	}

	// --- Logger Setup ---
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level %q: %v\n", *logLevel, err)
		os.Exit(1)
	}
	log.SetLevel(level)
	runLog := log.WithField("run_id", uuid.NewString()[:8])

	// --- Config ---
	cfg, err := loadConfig(*configFile)
	if err != nil {
		runLog.Errorf("Failed to load config: %v", err)
		os.Exit(1)
	}
	warnings, err := cfg.Validate()
	if err != nil {
		runLog.Errorf("Invalid config: %v", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		runLog.Debugf("Config: %s", w)
	}
	if *saveDir != "" {
		cfg.SaveDir = *saveDir
	}

	report.Banner(os.Stdout, version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, profile, !*showBrowser, !*noLive, log, runLog); err != nil {
		if errors.Is(err, context.Canceled) {
			runLog.Warn("Run interrupted")
		} else {
			runLog.Errorf("Run failed: %v (category: %s)", err, utils.CategorizeError(err))
		}
		os.Exit(1)
	}
}

// loadConfig reads the YAML config file, or returns an empty config (all
// defaults) when no path is given.
func loadConfig(path string) (*config.AppConfig, error) {
	var cfg config.AppConfig
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// run wires the pipeline together and executes it. Per-item download
// failures do not produce an error here; only fatal conditions do.
func run(ctx context.Context, cfg *config.AppConfig, profile string, headless, live bool, log *logrus.Logger, runLog *logrus.Entry) error {
	profileDir := filepath.Join(cfg.SaveDir, utils.SanitizeFilename(profile))
	if err := os.MkdirAll(profileDir, 0755); err != nil {
		return fmt.Errorf("creating save directory %s: %w", profileDir, err)
	}
	runLog.Infof("Saving videos to %s", profileDir)

	cachePath := cfg.CacheFilename
	if !filepath.IsAbs(cachePath) {
		cachePath = filepath.Join(cfg.SaveDir, cachePath)
	}
	dedup, err := cache.New(cachePath, runLog.WithField("component", "cache"))
	if err != nil {
		return err
	}
	defer dedup.Close()

	httpClient := fetch.NewClient(cfg.HTTPClientSettings, log)
	fetcher := fetch.NewFetcher(httpClient, cfg, log)
	limiter := fetch.NewLimiter(cfg.RequestsPerMinute, cfg.RateBurst, runLog.WithField("component", "limiter"))
	gate := fetch.NewGate(cfg.MaxConcurrent, cfg.GateAcquireTimeout, runLog.WithField("component", "gate"))

	downloader := download.NewClient(fetcher, limiter, gate, profileDir, cfg.Resolution, cfg.UserAgent,
		runLog.WithField("component", "download"))

	session := browse.NewChromeSession(ctx, cfg.UserAgent, headless, runLog.WithField("component", "browser"))
	defer session.Close()
	scraper := scrape.NewScraper(session, cfg, runLog.WithField("component", "scrape"))

	tracker := stats.NewTracker()
	reporter := report.NewReporter(os.Stdout, live)
	tracker.SetNotify(reporter.Update)

	coordinator := pipeline.NewCoordinator(scraper, downloader, dedup, tracker, cfg.NumWorkers,
		runLog.WithField("component", "pipeline"))

	runErr := coordinator.Run(ctx, profile)
	reporter.Final(tracker.Snapshot())
	return runErr
}
