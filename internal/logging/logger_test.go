package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging/adapters"
	"canales-taurinos/internal/logging/types"
)

func newBufferLogger(t *testing.T, format string) (*MultiLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := NewMultiLogger()
	l.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, l.AddAdapter(adapters.NewStdoutAdapter("buf", adapters.StdoutConfig{Format: format, Writer: &buf})))
	return l, &buf
}

func TestMultiLoggerJSONFields(t *testing.T) {
	l, buf := newBufferLogger(t, "json")

	l.WithField("source", "escalafon").Info("refresh finished", map[string]interface{}{
		"records": 12,
		"error":   errors.New("boom"),
	})

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, "info", got["level"])
	require.Equal(t, "refresh finished", got["message"])
	require.Equal(t, "escalafon", got["source"])
	require.Equal(t, float64(12), got["records"])
	require.Equal(t, "boom", got["error"])
	require.Equal(t, "2025-03-01T12:00:00Z", got["time"])
}

func TestMultiLoggerLevelFilter(t *testing.T) {
	l, buf := newBufferLogger(t, "text")
	l.SetLevel(WarnLevel)

	l.Info("hidden")
	l.Warn("shown", map[string]interface{}{"b": 2, "a": 1})

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "[WARN] shown a=1 b=2")
}

func TestChildLoggerSharesAdapters(t *testing.T) {
	l, _ := newBufferLogger(t, "json")
	child := l.WithFields(map[string]interface{}{"component": "cache"})

	var late bytes.Buffer
	require.NoError(t, l.AddAdapter(adapters.NewStdoutAdapter("late", adapters.StdoutConfig{Writer: &late})))

	child.Info("hello")
	require.Contains(t, late.String(), `"component":"cache"`)
	require.Error(t, l.AddAdapter(adapters.NewStdoutAdapter("late", adapters.StdoutConfig{})))
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, DebugLevel, ParseLogLevel("DEBUG"))
	require.Equal(t, WarnLevel, ParseLogLevel("warning"))
	require.Equal(t, InfoLevel, ParseLogLevel("nonsense"))
	require.Equal(t, SilentLevel, ParseLogLevel(" off "))
}

func TestManagerFileAdapter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	m := NewManager()
	err := m.Initialize(config.LoggingConfig{
		Level: "debug",
		Adapters: []types.AdapterConfig{{
			Name:    "file",
			Type:    "file",
			Enabled: true,
			Options: map[string]interface{}{"file_path": path, "format": "text"},
		}},
	})
	require.NoError(t, err)

	m.GetLogger().Debug("written to disk")
	require.NoError(t, m.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "[DEBUG] written to disk"))
}

func TestManagerRejectsUnknownAdapter(t *testing.T) {
	m := NewManager()
	err := m.Initialize(config.LoggingConfig{
		Adapters: []types.AdapterConfig{{Name: "x", Type: "carrier-pigeon", Enabled: true}},
	})
	require.Error(t, err)
}

func TestNopLoggerIsSilent(t *testing.T) {
	l := NewNopLogger()
	require.NotPanics(t, func() { l.Error("nothing") })
}
