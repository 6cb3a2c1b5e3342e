package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"canales-taurinos/pkg/models"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "data"), nil)
	require.NoError(t, err)
	return s
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	entries := []models.RankingEntry{
		{Position: "1", Name: "Morante de la Puebla", Feats: "40", Ears: "52", Tails: "3"},
		{Position: "2", Name: "Roca Rey", Feats: "38", Ears: "45", Tails: "1"},
	}
	require.NoError(t, s.Save(ctx, "escalafon", entries))

	got, err := LoadSlice[models.RankingEntry](ctx, s, "escalafon")
	require.NoError(t, err)
	require.Equal(t, entries, got)

	raw, err := os.ReadFile(filepath.Join(s.Dir(), "escalafon.json"))
	require.NoError(t, err)
	require.Contains(t, string(raw), `"lidiador": "Roca Rey"`)
}

func TestFileStoreSaveReplacesWholeValue(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Save(ctx, "cronicas", []models.Chronicle{{Title: "a"}, {Title: "b"}}))
	require.NoError(t, s.Save(ctx, "cronicas", []models.Chronicle{}))

	got, err := LoadSlice[models.Chronicle](ctx, s, "cronicas")
	require.NoError(t, err)
	require.Empty(t, got)

	// no temp files left behind
	leftovers, err := filepath.Glob(filepath.Join(s.Dir(), ".*tmp-*"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestFileStoreMissingAndCorrupt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Load(ctx, "servitoro")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "servitoro.json"), []byte(`[{"fecha": `), 0o644))
	_, err = s.Load(ctx, "servitoro")
	require.ErrorIs(t, err, ErrNotFound)

	// valid JSON of the wrong shape
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "servitoro.json"), []byte(`{"fecha": "x"}`), 0o644))
	_, err = LoadSlice[models.CalendarEvent](ctx, s, "servitoro")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.Load(ctx, "../etc/passwd")
	require.ErrorIs(t, err, ErrNotFound)
	require.Error(t, s.Save(ctx, "../escape", []int{1}))
}

func TestFileStoreScheduleMarker(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, ok := s.LastScheduledRun(ctx, "escalafon")
	require.False(t, ok)

	at := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkScheduledRun(ctx, "escalafon", at))

	got, ok := s.LastScheduledRun(ctx, "escalafon")
	require.True(t, ok)
	require.True(t, at.Equal(got))

	raw, err := os.ReadFile(filepath.Join(s.Dir(), "last_escalafon_update.txt"))
	require.NoError(t, err)
	require.Equal(t, "2025-06-01T03:00:00.000Z", string(raw))
}

func TestParseMarker(t *testing.T) {
	got, ok := parseMarker("2025-01-05T03:00:00.123Z\n")
	require.True(t, ok)
	require.Equal(t, 123*time.Millisecond, time.Duration(got.Nanosecond()))

	got, ok = parseMarker("1735959600000")
	require.True(t, ok)
	require.Equal(t, int64(1735959600000), got.UnixMilli())

	_, ok = parseMarker("not a date")
	require.False(t, ok)
	_, ok = parseMarker("   ")
	require.False(t, ok)
}

func TestFileStorePing(t *testing.T) {
	require.NoError(t, newTestStore(t).Ping(context.Background()))
}
