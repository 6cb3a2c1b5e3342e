package logging

import (
	"fmt"
	"sync"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging/adapters"
)

// Manager owns the root logger and its adapters
type Manager struct {
	factory *AdapterFactory
	logger  *MultiLogger
}

func NewManager() *Manager {
	return &Manager{
		factory: NewAdapterFactory(),
		logger:  NewMultiLogger(),
	}
}

// Initialize sets the level and registers the configured adapters. With no
// adapters configured a single stdout adapter in the configured format is used.
func (m *Manager) Initialize(cfg config.LoggingConfig) error {
	m.logger.SetLevel(ParseLogLevel(cfg.Level))

	enabled := 0
	for _, adapterConfig := range cfg.Adapters {
		if !adapterConfig.Enabled {
			continue
		}
		adapter, err := m.factory.CreateAdapter(adapterConfig)
		if err != nil {
			return fmt.Errorf("failed to create adapter %s: %w", adapterConfig.Name, err)
		}
		if err := m.logger.AddAdapter(adapter); err != nil {
			return fmt.Errorf("failed to add adapter %s: %w", adapterConfig.Name, err)
		}
		enabled++
	}

	if enabled == 0 {
		return m.logger.AddAdapter(adapters.NewStdoutAdapter("stdout", adapters.StdoutConfig{
			Format: cfg.Format,
		}))
	}
	return nil
}

func (m *Manager) GetLogger() Logger {
	return m.logger
}

func (m *Manager) Close() error {
	return m.logger.Close()
}

var (
	globalMu      sync.Mutex
	globalManager *Manager
)

// InitializeLogging replaces the process-wide logger
func InitializeLogging(cfg config.LoggingConfig) error {
	manager := NewManager()
	if err := manager.Initialize(cfg); err != nil {
		return err
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	globalManager = manager
	return nil
}

// GetGlobalLogger returns the process-wide logger, falling back to json on
// stdout when InitializeLogging has not run.
func GetGlobalLogger() Logger {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		manager := NewManager()
		_ = manager.logger.AddAdapter(adapters.NewStdoutAdapter("fallback_stdout", adapters.StdoutConfig{Format: "json"}))
		globalManager = manager
	}
	return globalManager.GetLogger()
}

func CloseLogging() error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalManager != nil {
		return globalManager.Close()
	}
	return nil
}
