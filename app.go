package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"service-dashboard/catalog"
	"service-dashboard/config"
	"service-dashboard/dashboard"
	"service-dashboard/db"
	"service-dashboard/filter"
	"service-dashboard/icons"
	"service-dashboard/metrics"
	"service-dashboard/models"
	"service-dashboard/notify"
	"service-dashboard/scheduler"
	"service-dashboard/server"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// app holds everything the commands share
type app struct {
	cfg      *config.Config
	source   icons.Source
	services []models.Service
	database *db.DB
	resolver icons.Resolver
	injector *icons.Injector
	metrics  *metrics.DashboardMetrics
	// statuses overrides the database as status source while serving
	statuses server.StatusLister
	closers  []func() error
}

func newApp() (*app, error) {
	cfg := loadConfig(cfgFile)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &app{
		cfg:     cfg,
		metrics: metrics.InitMetrics(metrics.Registry),
	}

	src, err := iconSource(cfg.Icons)
	if err != nil {
		return nil, err
	}
	a.source = src

	services, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	a.services = filter.NewFilter(cfg.Filters).ApplyFilters(services)
	log.Info().
		Str("catalog", cfg.Catalog.Path).
		Int("services", len(services)).
		Int("after_filters", len(a.services)).
		Msg("Catalog loaded")

	if cfg.Database.Driver != "" {
		database, err := db.NewDB(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.database = database
		a.closers = append(a.closers, database.Close)
	}

	if err := a.setupResolver(); err != nil {
		a.Close()
		return nil, err
	}

	opts := icons.Options{
		Source:        src,
		MarkerClass:   cfg.Icons.MarkerClass,
		FallbackIcon:  cfg.Icons.FallbackIcon,
		Width:         cfg.Icons.Width,
		MarginRight:   cfg.Icons.MarginRight,
		ProbeTimeout:  cfg.Icons.ProbeTimeout,
		Concurrency:   cfg.Icons.Concurrency,
		SkipDecorated: cfg.Icons.SkipDecorated,
	}
	a.injector, err = icons.NewInjector(opts, a.resolver)
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// loadConfig reads the config file, or falls back to defaults when it is
// missing or broken
func loadConfig(configPath string) *config.Config {
	if _, err := os.Stat(configPath); err == nil {
		cfg, err := config.LoadConfig(configPath)
		if err == nil {
			return cfg
		}
		log.Warn().Err(err).Msg("Failed to load config file. Using defaults")
	} else {
		log.Info().Str("path", configPath).Msg("Config file not found. Using default configuration")
	}

	cfg := config.GetDefaultConfig()
	if err := config.ApplyEnv(cfg); err != nil {
		log.Warn().Err(err).Msg("Ignoring environment overrides")
	}
	return cfg
}

// iconSource picks a built-in source, optionally rebased onto base_url
func iconSource(cfg config.IconsConfig) (icons.Source, error) {
	var src icons.Source
	if cfg.Source != "" {
		known, err := icons.LookupSource(cfg.Source)
		if err != nil {
			return icons.Source{}, err
		}
		src = known
	} else {
		src = icons.Source{Name: "custom", Suffix: ".svg"}
	}

	if cfg.BaseURL != "" {
		src.BaseURL = cfg.BaseURL
		if !strings.HasSuffix(src.BaseURL, "/") {
			src.BaseURL += "/"
		}
	}
	src.Escape = cfg.EscapeNames
	return src, nil
}

func (a *app) setupResolver() error {
	var r icons.Resolver
	switch a.cfg.Icons.Resolver {
	case "browser":
		br, err := icons.NewBrowserResolver()
		if err != nil {
			return err
		}
		a.closers = append(a.closers, br.Close)
		r = br
	default:
		r = icons.NewHTTPResolver(a.cfg.Icons.ProbeTimeout, a.cfg.Icons.Concurrency)
	}

	if a.database != nil && a.cfg.Icons.CacheTTL > 0 {
		r = icons.NewCachingResolver(r, a.database, a.cfg.Icons.CacheTTL)
	}
	a.resolver = r
	return nil
}

// statusStore returns the database as scheduler store, or nil without one
func (a *app) statusStore() scheduler.StatusStore {
	if a.database == nil {
		return nil
	}
	return a.database
}

func (a *app) notifier() (notify.Notifier, error) {
	if a.cfg.Telegram.Token == "" {
		return notify.Nop{}, nil
	}
	return notify.NewTelegramNotifier(a.cfg.Telegram.Token, a.cfg.Telegram.ChatID)
}

// lastStatuses returns the freshest statuses known, keyed by service name
func (a *app) lastStatuses(ctx context.Context) map[string]models.Status {
	var lister server.StatusLister
	switch {
	case a.statuses != nil:
		lister = a.statuses
	case a.database != nil:
		lister = a.database
	default:
		return nil
	}

	statuses, err := lister.ListStatuses(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load statuses for the dashboard")
		return nil
	}
	byName := make(map[string]models.Status, len(statuses))
	for _, st := range statuses {
		byName[st.Name] = st
	}
	return byName
}

// buildPage renders and decorates the dashboard. live pages poll the status API.
func (a *app) buildPage(ctx context.Context, live bool) ([]byte, icons.Report, error) {
	page := dashboard.NewPage(a.services, a.cfg.Icons.MarkerClass)
	page.Statuses = a.lastStatuses(ctx)
	if live {
		page.StatusEndpoint = "/api/status"
		page.PollInterval = a.cfg.Status.Interval
	}

	out, report, err := dashboard.Build(ctx, page, a.injector)
	if err != nil {
		return nil, report, err
	}
	a.metrics.RecordInjection(a.source.Name, report)
	return out, report, nil
}

// iconURLs resolves the icon each service gets on the dashboard
func (a *app) iconURLs(ctx context.Context) map[string]string {
	var mu sync.Mutex
	urls := make(map[string]string, len(a.services))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Icons.Concurrency)
	for _, svc := range a.services {
		g.Go(func() error {
			candidate := a.source.CandidateURL(svc.Name)
			icon := a.cfg.Icons.FallbackIcon

			probeCtx := gctx
			if a.cfg.Icons.ProbeTimeout > 0 {
				var cancel context.CancelFunc
				probeCtx, cancel = context.WithTimeout(gctx, a.cfg.Icons.ProbeTimeout)
				defer cancel()
			}
			if err := a.resolver.Resolve(probeCtx, candidate); err == nil {
				icon = candidate
			}

			mu.Lock()
			urls[svc.Name] = icon
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return urls
}

// Close releases the database and browser
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("Failed to close resource")
		}
	}
}
