package refresh

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
	"canales-taurinos/internal/retry"
	"canales-taurinos/internal/scraper"
	"canales-taurinos/internal/scraper/diagnostics"
	"canales-taurinos/internal/snapshot"
	"canales-taurinos/pkg/utils"
)

type fakeHandle struct {
	html     string
	err      error
	released *atomic.Int32
	shot     []byte
}

func (h *fakeHandle) HTML(context.Context) (string, error) { return h.html, h.err }
func (h *fakeHandle) Release() error {
	h.released.Add(1)
	return nil
}

type shotHandle struct{ *fakeHandle }

func (h shotHandle) Screenshot() ([]byte, error) { return h.shot, nil }

type fakeAcquirer struct {
	pages    []*fakeHandle
	err      error
	calls    atomic.Int32
	released atomic.Int32
	shots    bool
}

func (a *fakeAcquirer) Acquire(context.Context) (scraper.Handle, error) {
	n := int(a.calls.Add(1)) - 1
	if a.err != nil {
		return nil, a.err
	}
	page := a.pages[min(n, len(a.pages)-1)]
	page.released = &a.released
	if a.shots {
		return shotHandle{page}, nil
	}
	return page, nil
}

// lineExtractor yields one record per non-empty html, "" yields nothing
type lineExtractor struct{ err error }

func (e lineExtractor) Extract(html string) ([]string, error) {
	if e.err != nil {
		return nil, e.err
	}
	if html == "" || html == "<html></html>" || html == "<title>Just a moment...</title>" {
		return nil, nil
	}
	return []string{html}, nil
}

func newStore(t *testing.T) *snapshot.FileStore {
	t.Helper()
	s, err := snapshot.NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func newOrchestrator(acq scraper.Acquirer, ext Extractor[string], store snapshot.Store, policy string, attempts int, rec *diagnostics.Recorder) *Orchestrator[string] {
	return New[string](Options{
		Source:        "cronicas",
		FailurePolicy: policy,
		Retry:         retry.Policy{MaxAttempts: attempts},
	}, acq, ext, store, rec, logging.NewNopLogger())
}

func TestRefreshSuccessPersists(t *testing.T) {
	store := newStore(t)
	acq := &fakeAcquirer{pages: []*fakeHandle{{html: "corrida"}}}

	res := newOrchestrator(acq, lineExtractor{}, store, config.PolicyPreserve, 1, nil).Refresh(context.Background())

	require.Equal(t, OutcomeOK, res.Outcome)
	require.True(t, res.OK())
	require.Equal(t, []string{"corrida"}, res.Records)
	require.NoError(t, res.Err)
	require.Equal(t, 1, res.Attempts)
	require.Contains(t, res.RunID, "cronicas-")
	require.EqualValues(t, 1, acq.released.Load())

	saved, err := snapshot.LoadSlice[string](context.Background(), store, "cronicas")
	require.NoError(t, err)
	require.Equal(t, []string{"corrida"}, saved)
}

func TestRefreshEmptyPreservesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Save(ctx, "cronicas", []string{"previous"}))

	acq := &fakeAcquirer{pages: []*fakeHandle{{html: "<html></html>"}}}
	res := newOrchestrator(acq, lineExtractor{}, store, config.PolicyPreserve, 1, nil).Refresh(ctx)

	require.Equal(t, OutcomeEmpty, res.Outcome)
	require.NotNil(t, res.Records)
	require.Empty(t, res.Records)
	require.ErrorIs(t, res.Err, utils.ErrEmptyResult)
	require.EqualValues(t, 1, acq.released.Load())

	saved, err := snapshot.LoadSlice[string](ctx, store, "cronicas")
	require.NoError(t, err)
	require.Equal(t, []string{"previous"}, saved)
}

func TestRefreshEmptyPolicyWritesEmptySnapshot(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Save(ctx, "cronicas", []string{"previous"}))

	acq := &fakeAcquirer{err: &utils.SessionError{Op: "launch", Err: errors.New("no chrome")}}
	res := newOrchestrator(acq, lineExtractor{}, store, config.PolicyEmpty, 1, nil).Refresh(ctx)

	require.Equal(t, OutcomeFailed, res.Outcome)
	require.Equal(t, "session", utils.ErrorKind(res.Err))

	saved, err := snapshot.LoadSlice[string](ctx, store, "cronicas")
	require.NoError(t, err)
	require.Empty(t, saved)
}

func TestRefreshDetectsBlockedPage(t *testing.T) {
	acq := &fakeAcquirer{pages: []*fakeHandle{{html: "<title>Just a moment...</title>"}}}
	res := newOrchestrator(acq, lineExtractor{}, newStore(t), config.PolicyPreserve, 1, nil).Refresh(context.Background())

	require.Equal(t, OutcomeBlocked, res.Outcome)
	require.NotEmpty(t, res.BlockReason)
}

func TestRefreshFetchErrorIsFailed(t *testing.T) {
	acq := &fakeAcquirer{pages: []*fakeHandle{{err: &utils.FetchError{URL: "https://x", StatusCode: 503}}}}
	res := newOrchestrator(acq, lineExtractor{}, newStore(t), config.PolicyPreserve, 1, nil).Refresh(context.Background())

	require.Equal(t, OutcomeFailed, res.Outcome)
	require.Equal(t, "fetch", utils.ErrorKind(res.Err))
	require.EqualValues(t, 1, acq.released.Load())
}

func TestRefreshRetriesThenSucceeds(t *testing.T) {
	acq := &fakeAcquirer{pages: []*fakeHandle{
		{err: &utils.FetchError{URL: "https://x", StatusCode: 502}},
		{html: "festival"},
	}}
	res := newOrchestrator(acq, lineExtractor{}, newStore(t), config.PolicyPreserve, 3, nil).Refresh(context.Background())

	require.Equal(t, OutcomeOK, res.Outcome)
	require.Equal(t, 2, res.Attempts)
	require.EqualValues(t, 2, acq.released.Load())
}

func TestRefreshParseErrorIsNotRetried(t *testing.T) {
	acq := &fakeAcquirer{pages: []*fakeHandle{{html: "\x00\x00"}}}
	ext := lineExtractor{err: &utils.ParseError{Source: "cronicas", Err: errors.New("binary")}}
	res := newOrchestrator(acq, ext, newStore(t), config.PolicyPreserve, 3, nil).Refresh(context.Background())

	require.Equal(t, OutcomeFailed, res.Outcome)
	require.Equal(t, 1, res.Attempts)
	require.Equal(t, "parse", utils.ErrorKind(res.Err))
}

func TestRefreshCapturesDiagnostics(t *testing.T) {
	dir := t.TempDir()
	rec := diagnostics.NewRecorder(dir, nil, logging.NewNopLogger())
	acq := &fakeAcquirer{
		pages: []*fakeHandle{{html: "<html></html>", shot: []byte("png")}},
		shots: true,
	}

	res := newOrchestrator(acq, lineExtractor{}, newStore(t), config.PolicyPreserve, 1, rec).Refresh(context.Background())
	require.Equal(t, OutcomeEmpty, res.Outcome)

	require.FileExists(t, filepath.Join(dir, "cronicas-"+res.RunID+".html"))
	shot, err := os.ReadFile(filepath.Join(dir, "cronicas-"+res.RunID+".png"))
	require.NoError(t, err)
	require.Equal(t, "png", string(shot))
	// captured before the page was released
	require.EqualValues(t, 1, acq.released.Load())
}

func TestOptionsFor(t *testing.T) {
	opts := OptionsFor(config.SourceEscalafon, config.DefaultSources()[config.SourceEscalafon])
	require.Equal(t, config.PolicyEmpty, opts.FailurePolicy)
	require.Equal(t, 1, opts.Retry.MaxAttempts)

	opts = OptionsFor("x", config.SourceConfig{})
	require.Equal(t, config.PolicyPreserve, opts.FailurePolicy)
}
