package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dchernopolskiy/Flare-sub001/internal/ai"
	"github.com/dchernopolskiy/Flare-sub001/internal/config"
	"github.com/dchernopolskiy/Flare-sub001/internal/detect"
	"github.com/dchernopolskiy/Flare-sub001/internal/model"
	"github.com/dchernopolskiy/Flare-sub001/internal/monitor"
	"github.com/dchernopolskiy/Flare-sub001/internal/notifier"
	"github.com/dchernopolskiy/Flare-sub001/internal/ratelimit"
	"github.com/dchernopolskiy/Flare-sub001/internal/store"
	"github.com/dchernopolskiy/Flare-sub001/internal/view"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "flare",
	Short: "Job discovery engine — any careers page, one feed",
	Long: "Flare watches job boards — known ATS APIs or arbitrary careers pages via\n" +
		"cascading auto-detection — and aggregates new postings into one deduplicated feed.",
	// Default to `start` so that `flare` with no args runs the daemon.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: FLARE_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > FLARE_CONFIG env var > "./config.yaml".
// A missing default file means "run with defaults"; an explicit path must exist.
func loadConfig(path string) (*config.Config, error) {
	explicit := path != ""
	if path == "" {
		if env := os.Getenv("FLARE_CONFIG"); env != "" {
			path = env
			explicit = true
		} else {
			path = "config.yaml"
		}
	}

	cfg, err := config.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

func setupExtractor(cfg *config.Config, logger *slog.Logger) model.Extractor {
	if !cfg.AI.Enabled {
		return nil
	}
	aiClient := &http.Client{Timeout: cfg.AI.Timeout}
	provider := ai.NewOpenAIProvider(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, aiClient)
	logger.Info("ai extraction enabled", "model", cfg.AI.Model)
	return ai.NewLLMExtractor(provider, aiClient, ai.JobExtractionTemplate, logger)
}

// engine bundles the wired-up core components shared by the subcommands.
type engine struct {
	cfg      *config.Config
	store    model.Store
	view     *view.View
	detector *detect.Detector
	monitor  *monitor.Monitor
	logger   *slog.Logger
	close    func()
}

// buildEngine wires store, view, caches, detector, and monitor from config.
// dryRun swaps the SQLite store for an in-memory one.
func buildEngine(logger *slog.Logger, dryRun bool) (*engine, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	var st model.Store
	closeFn := func() {}
	if dryRun {
		logger.Info("dry-run mode, nothing will be persisted")
		st = store.NewMemoryStore()
	} else {
		sqlStore, err := store.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		st = sqlStore
		closeFn = func() { sqlStore.Close() }
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	caches := detect.NewCaches()
	extractor := setupExtractor(cfg, logger)
	detector := detect.NewDetector(httpClient, caches, extractor, cfg.AI.Enabled, logger)
	limiter := ratelimit.NewSourceRateLimiter(cfg.RateLimitMinDelay)
	var n model.Notifier
	if !dryRun {
		n = setupNotifier(cfg, httpClient, logger)
	}
	v := view.New()

	m := monitor.New(st, v, detector, caches, limiter, n, httpClient, logger, monitor.Config{
		Params: model.FetchParams{
			Title:    cfg.Filters.Title,
			Location: cfg.Filters.Location,
		},
		Concurrency:       cfg.Concurrency,
		TrackingRetention: cfg.TrackingRetention,
		CleanupRetention:  cfg.CleanupRetention,
		NotifyWindow:      cfg.NotifyWindow,
	})
	m.Load()

	return &engine{
		cfg:      cfg,
		store:    st,
		view:     v,
		detector: detector,
		monitor:  m,
		logger:   logger,
		close:    closeFn,
	}, nil
}
