package source

import (
	"fmt"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/extractors"
	"canales-taurinos/internal/logging"
	"canales-taurinos/internal/refresh"
	"canales-taurinos/internal/scraper"
	"canales-taurinos/internal/scraper/diagnostics"
	"canales-taurinos/internal/snapshot"
	"canales-taurinos/pkg/models"
)

// AcquirerProvider returns the acquirer for a configured source;
// *scraper.Factory implements it
type AcquirerProvider interface {
	Acquirer(sc config.SourceConfig) (scraper.Acquirer, error)
}

// Deps are the shared collaborators of every built-in source
type Deps struct {
	Acquirers AcquirerProvider
	Store     snapshot.Store
	Recorder  *diagnostics.Recorder
	Logger    logging.Logger
}

func build[T any](name string, sc config.SourceConfig, ext refresh.Extractor[T], deps Deps) (Handle, error) {
	acq, err := deps.Acquirers.Acquirer(sc)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", name, err)
	}
	orch := refresh.New[T](refresh.OptionsFor(name, sc), acq, ext, deps.Store, deps.Recorder, deps.Logger)
	return Erase(New[T](name, sc, orch, deps.Store, deps.Logger)), nil
}

// NewBuiltin registers every enabled built-in source. Configured names
// without an extractor are skipped with a warning.
func NewBuiltin(cfg *config.Config, deps Deps) (*Registry, error) {
	reg := NewRegistry()

	for _, name := range cfg.EnabledSources() {
		sc := cfg.Sources[name]

		var (
			h   Handle
			err error
		)
		switch name {
		case config.SourceTransmisiones:
			h, err = build[models.Broadcast](name, sc, extractors.NewBroadcasts(sc.URL), deps)
		case config.SourceServitoro:
			h, err = build[models.CalendarEvent](name, sc, extractors.NewCalendar(sc.URL), deps)
		case config.SourceEscalafon:
			h, err = build[models.RankingEntry](name, sc, extractors.NewRanking(), deps)
		case config.SourceCronicas:
			h, err = build[models.Chronicle](name, sc, extractors.NewChronicles(sc.URL), deps)
		default:
			deps.Logger.Warn("No extractor for configured source, skipping", map[string]interface{}{"source": name})
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := reg.Register(h); err != nil {
			return nil, err
		}
	}

	deps.Logger.Info("Sources registered", map[string]interface{}{"sources": reg.Names()})
	return reg, nil
}
