package app

import (
	"context"
	"fmt"
	"time"

	"github.com/five82/cityguide/internal/cityapi"
	"github.com/five82/cityguide/internal/config"
	"github.com/five82/cityguide/internal/loader"
	"github.com/five82/cityguide/internal/logging"
	"github.com/five82/cityguide/internal/metrics"
	"github.com/five82/cityguide/internal/prefs"
	"github.com/five82/cityguide/internal/state"
	"github.com/five82/cityguide/internal/ui"
)

// Options configure the cityguide application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/cityguide/prefs.toml
	ProbeEvery int    // seconds; zero uses the config value
}

// Run boots the cityguide TUI until the context is cancelled or the user
// quits. Only startup problems are returned.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, closeLog, err := logging.New(logging.Options{Path: cfg.LogPath, Level: cfg.LogLevel})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = closeLog() }()
	log := logging.Component(logger, "app")

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		log.WithError(err).Warn("load prefs failed, using defaults")
		userPrefs = prefs.Defaults()
	}

	client, err := cityapi.NewClient(cityapi.Options{
		Endpoint:          cfg.APIURL,
		AuthToken:         cfg.AuthToken,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logging.Component(logger, "cityapi"),
	})
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	loaderMetrics := metrics.NewLoader()
	ld, err := loader.New(loader.Options{
		Cache:   state.NewCityCache(),
		API:     client,
		Logger:  logging.Component(logger, "loader"),
		Metrics: loaderMetrics,
	})
	if err != nil {
		return fmt.Errorf("init loader: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interval := cfg.ProbeInterval
	if opts.ProbeEvery > 0 {
		interval = time.Duration(opts.ProbeEvery) * time.Second
	}
	conn := &state.Connectivity{}
	StartProber(ctx, conn, client, interval, logging.Component(logger, "prober"))

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, loaderMetrics); err != nil {
				log.WithError(err).Warn("metrics server stopped")
			}
		}()
	}

	log.WithField("api_url", cfg.APIURL).Info("starting")
	defer log.Info("stopped")

	return ui.Run(ui.Options{
		Context:      ctx,
		Loader:       ld,
		Connectivity: conn,
		Logger:       logging.Component(logger, "ui"),
		LogPath:      cfg.LogPath,
		Prefs:        userPrefs,
		PrefsPath:    opts.PrefsPath,
	})
}
