package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "file", cfg.Storage.Backend)
	require.Len(t, cfg.Sources, 4)

	esc := cfg.Sources[SourceEscalafon]
	require.Equal(t, EngineHeadless, esc.Engine)
	require.Equal(t, 15*24*time.Hour, esc.MinScheduledInterval)
	require.Equal(t, PolicyEmpty, esc.FailurePolicy)
	require.True(t, esc.Scheduled)

	srv := cfg.Sources[SourceServitoro]
	require.NotNil(t, srv.LoadMore())
	require.Equal(t, "Ver más", srv.LoadMore().ButtonText)

	require.Empty(t, cfg.Scraper.Captcha.APIKey)
	require.Equal(t, 120*time.Second, cfg.Scraper.Captcha.Timeout)
}

func TestLoadConfigPartialSourceOverride(t *testing.T) {
	path := writeConfig(t, `
sources:
  transmisiones:
    ttl: 5m
  servitoro:
    browser:
      mode: fresh
      load_more:
        max_clicks: 3
  toros-extra:
    url: https://example.com/agenda
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	tx := cfg.Sources[SourceTransmisiones]
	require.Equal(t, 5*time.Minute, tx.TTL)
	require.Equal(t, "https://elmuletazo.com/agenda-de-toros-en-television/", tx.URL)

	srv := cfg.Sources[SourceServitoro]
	require.Equal(t, "fresh", srv.Browser.Mode)
	require.Equal(t, ".card.evento", srv.Browser.WaitSelector)
	require.Equal(t, 3, srv.LoadMore().MaxClicks)
	require.Equal(t, "Ver más", srv.LoadMore().ButtonText)

	// the default table must not be mutated through the shared pointer
	require.Equal(t, 60, DefaultSources()[SourceServitoro].LoadMore().MaxClicks)

	extra := cfg.Sources["toros-extra"]
	require.Equal(t, EngineHTTP, extra.Engine)
	require.Equal(t, time.Hour, extra.TTL)
	require.Equal(t, PolicyPreserve, extra.FailurePolicy)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_DIR", "/var/lib/taurino")
	t.Setenv("SCRAPER_DEBUG_FILES", "1")
	t.Setenv("STORAGE_BACKEND", "REDIS")
	t.Setenv("CAPTCHA_API_KEY", "2c-key")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "/var/lib/taurino", cfg.Storage.DataDir)
	require.True(t, cfg.Scraper.DebugArtifacts)
	require.Equal(t, "redis", cfg.Storage.Backend)
	require.Equal(t, "2c-key", cfg.Scraper.Captcha.APIKey)
}

func TestLoadConfigExpandsEnvVars(t *testing.T) {
	t.Setenv("TAURINO_HOST", "127.0.0.1")
	path := writeConfig(t, "server:\n  host: ${TAURINO_HOST}\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestLoadConfigRejectsInvalidSource(t *testing.T) {
	path := writeConfig(t, `
sources:
  cronicas:
    engine: telnet
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestValidateFirecrawlNeedsKey(t *testing.T) {
	cfg := defaultConfig()
	sc := cfg.Sources[SourceCronicas]
	sc.Engine = EngineFirecrawl
	cfg.Sources[SourceCronicas] = sc

	require.ErrorContains(t, cfg.Validate(), "firecrawl")

	cfg.Firecrawl.APIKey = "fc-test"
	require.NoError(t, cfg.Validate())
}
