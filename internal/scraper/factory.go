package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
	"canales-taurinos/internal/scraper/captcha"
	"canales-taurinos/internal/scraper/engines/firecrawl"
	"canales-taurinos/internal/scraper/engines/headless"
	"canales-taurinos/internal/scraper/engines/httpfetch"
)

// fetchHandle wraps a stateless fetch; Release is a no-op
type fetchHandle struct {
	fetch func(ctx context.Context) (string, error)
}

func (h fetchHandle) HTML(ctx context.Context) (string, error) { return h.fetch(ctx) }
func (h fetchHandle) Release() error                           { return nil }

// sessionHandle runs a navigation plan on a browser session
type sessionHandle struct {
	session *headless.Session
	plan    headless.Plan
}

func (h sessionHandle) HTML(ctx context.Context) (string, error) { return h.session.Run(ctx, h.plan) }
func (h sessionHandle) Release() error                           { return h.session.Release() }
func (h sessionHandle) Screenshot() ([]byte, error)              { return h.session.Screenshot() }

// Factory builds per-source acquirers on top of shared engines. Engines are
// created lazily so a deployment without headless sources never starts a
// browser.
type Factory struct {
	cfg     *config.Config
	logger  logging.Logger
	fetcher *httpfetch.Fetcher

	mu        sync.Mutex
	managers  map[headless.Mode]*headless.Manager
	firecrawl *firecrawl.Client
}

func NewFactory(cfg *config.Config, logger logging.Logger) *Factory {
	return &Factory{
		cfg:      cfg,
		logger:   logger,
		fetcher:  httpfetch.New(cfg.Scraper, logger),
		managers: make(map[headless.Mode]*headless.Manager),
	}
}

// Acquirer returns the acquirer matching the engine configured for sc
func (f *Factory) Acquirer(sc config.SourceConfig) (Acquirer, error) {
	switch sc.Engine {
	case config.EngineHTTP, "":
		url := sc.URL
		return AcquirerFunc(func(context.Context) (Handle, error) {
			return fetchHandle{fetch: func(ctx context.Context) (string, error) {
				return f.fetcher.Fetch(ctx, url, httpfetch.Options{})
			}}, nil
		}), nil

	case config.EngineFirecrawl:
		client, err := f.firecrawlClient()
		if err != nil {
			return nil, err
		}
		url := sc.URL
		return AcquirerFunc(func(context.Context) (Handle, error) {
			return fetchHandle{fetch: func(ctx context.Context) (string, error) {
				return client.Fetch(ctx, url)
			}}, nil
		}), nil

	case config.EngineHeadless:
		manager := f.manager(headless.ParseMode(sc.Browser.Mode))
		plan := headless.PlanFor(sc)
		return AcquirerFunc(func(ctx context.Context) (Handle, error) {
			session, err := manager.Acquire(ctx)
			if err != nil {
				return nil, err
			}
			return sessionHandle{session: session, plan: plan}, nil
		}), nil

	default:
		return nil, fmt.Errorf("unsupported scraping engine: %s", sc.Engine)
	}
}

// SupportedEngines lists the engine names Acquirer accepts
func (f *Factory) SupportedEngines() []string {
	return []string{config.EngineHTTP, config.EngineHeadless, config.EngineFirecrawl}
}

func (f *Factory) manager(mode headless.Mode) *headless.Manager {
	f.mu.Lock()
	defer f.mu.Unlock()

	if m, ok := f.managers[mode]; ok {
		return m
	}
	m := headless.NewManager(headless.Options{
		Mode:           mode,
		Browser:        f.cfg.Browser,
		UserAgent:      f.cfg.Scraper.UserAgent,
		AcceptLanguage: f.cfg.Scraper.AcceptLanguage,
		Solver:         f.solver(),
	}, f.logger)
	f.managers[mode] = m
	return m
}

// solver returns nil, not a typed nil, when no API key is configured
func (f *Factory) solver() captcha.Solver {
	if f.cfg.Scraper.Captcha.APIKey == "" {
		return nil
	}
	return captcha.NewTwoCaptcha(f.cfg.Scraper.Captcha, f.logger)
}

func (f *Factory) firecrawlClient() (*firecrawl.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.firecrawl != nil {
		return f.firecrawl, nil
	}
	client, err := firecrawl.New(f.cfg.Firecrawl, f.logger)
	if err != nil {
		return nil, err
	}
	f.firecrawl = client
	return client, nil
}

// ActiveSessions counts unreleased browser sessions across managers
func (f *Factory) ActiveSessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, m := range f.managers {
		n += m.Active()
	}
	return n
}

// Shutdown stops every browser started by the factory
func (f *Factory) Shutdown() error {
	f.mu.Lock()
	managers := make([]*headless.Manager, 0, len(f.managers))
	for _, m := range f.managers {
		managers = append(managers, m)
	}
	f.mu.Unlock()

	var errs []error
	for _, m := range managers {
		if err := m.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
