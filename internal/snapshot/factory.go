package snapshot

import (
	"fmt"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
)

// New returns the store selected by storage.backend
func New(cfg *config.Config, logger logging.Logger) (Store, error) {
	switch cfg.Storage.Backend {
	case "", "file":
		store, err := NewFileStore(cfg.Storage.DataDir, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		store, err := NewRedisStore(cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}
