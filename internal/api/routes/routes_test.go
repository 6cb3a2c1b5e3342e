package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"canales-taurinos/internal/catalog"
	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
	"canales-taurinos/internal/snapshot"
	"canales-taurinos/internal/source"
	"canales-taurinos/pkg/models"
)

type fakeSource struct {
	name      string
	scheduled bool
	resp      models.SourceResponse

	forced  atomic.Int32
	cleared atomic.Int32
}

func (f *fakeSource) Name() string    { return f.name }
func (f *fakeSource) Scheduled() bool { return f.scheduled }

func (f *fakeSource) Read(context.Context) models.SourceResponse {
	return f.resp
}

func (f *fakeSource) ForceRefresh(context.Context) models.SourceResponse {
	f.forced.Add(1)
	return f.resp
}

func (f *fakeSource) ClearCache() { f.cleared.Add(1) }

func (f *fakeSource) RunScheduled(context.Context) models.ScheduleResponse {
	return models.ScheduleResponse{Source: f.name, Reason: "minimum interval not elapsed"}
}

func (f *fakeSource) Status(context.Context) models.SourceStatus {
	return models.SourceStatus{Source: f.name, Scheduled: f.scheduled}
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type server struct {
	e       *echo.Echo
	tv      *fakeSource
	ranking *fakeSource
}

func newServer(t *testing.T, storeErr error) *server {
	t.Helper()

	tv := &fakeSource{name: "transmisiones", resp: models.SourceResponse{
		Source:  "transmisiones",
		Records: []models.Broadcast{},
		State:   "empty",
		Origin:  "none",
		Outcome: "failed",
	}}
	ranking := &fakeSource{name: "escalafon", scheduled: true, resp: models.SourceResponse{
		Source:  "escalafon",
		Records: []models.RankingEntry{{Position: "1", Name: "Morante de la Puebla"}},
		Count:   1,
		State:   "fresh",
		Origin:  "cache",
	}}
	reg := source.NewRegistry()
	require.NoError(t, reg.Register(tv))
	require.NoError(t, reg.Register(ranking))

	files, err := snapshot.NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, files.Save(context.Background(), "sevilla-events", []models.RegionalEvent{
		{Date: "Por confirmar", Description: "Corrida de la Prensa"},
	}))
	require.NoError(t, files.Save(context.Background(), "america-events", map[string][]models.RegionalEvent{
		"Bogotá": {{Date: "1 de febrero de 2026"}},
	}))
	keys := config.RegionalConfig{AmericaKey: "america-events", SevillaKey: "sevilla-events"}

	cfg := &config.Config{}
	cfg.Server.AdminToken = "s3cret"
	cfg.Server.RequestTimeout = 5 * time.Second

	e := echo.New()
	SetupRoutes(e, cfg, Deps{
		Registry: reg,
		Catalog:  catalog.New(files, keys, nil),
		Store:    pinger{err: storeErr},
		Logger:   logging.NewNopLogger(),
		Version:  "test",
	})
	return &server{e: e, tv: tv, ranking: ranking}
}

func (s *server) do(method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthRoutes(t *testing.T) {
	s := newServer(t, nil)

	rec := s.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "healthy", decode[models.HealthResponse](t, rec).Status)

	rec = s.do(http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode[models.HealthResponse](t, rec).Checks["storage"])
}

func TestReadinessFailsWhenStoreDown(t *testing.T) {
	s := newServer(t, errors.New("connection refused"))

	rec := s.do(http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "not_ready", decode[models.HealthResponse](t, rec).Status)
}

func TestReadSource(t *testing.T) {
	s := newServer(t, nil)

	rec := s.do(http.MethodGet, "/api/v1/sources/escalafon", map[string]string{echo.HeaderXRequestID: "req-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "req-1", rec.Header().Get(echo.HeaderXRequestID))

	resp := decode[models.SourceResponse](t, rec)
	require.Equal(t, 1, resp.Count)
	require.Equal(t, "cache", resp.Origin)
	require.Equal(t, "req-1", resp.RequestID)
}

func TestFailedScrapeIsNot5xx(t *testing.T) {
	s := newServer(t, nil)

	rec := s.do(http.MethodGet, "/api/v1/sources/transmisiones", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.SourceResponse](t, rec)
	require.Equal(t, "failed", resp.Outcome)
	require.Zero(t, resp.Count)
	require.Equal(t, []interface{}{}, resp.Records)
	require.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestUnknownSource(t *testing.T) {
	s := newServer(t, nil)

	rec := s.do(http.MethodGet, "/api/v1/sources/toros-tv", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "source_not_found", decode[models.ErrorResponse](t, rec).Error)
}

func TestListSources(t *testing.T) {
	s := newServer(t, nil)

	rec := s.do(http.MethodGet, "/api/v1/sources", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.SourcesResponse](t, rec)
	require.Len(t, resp.Sources, 2)
	require.Equal(t, "escalafon", resp.Sources[0].Source)
	require.Equal(t, "transmisiones", resp.Sources[1].Source)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newServer(t, nil)

	rec := s.do(http.MethodPost, "/api/v1/sources/transmisiones/refresh", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, s.tv.forced.Load())

	rec = s.do(http.MethodPost, "/api/v1/sources/transmisiones/refresh", map[string]string{"X-Admin-Token": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	token := map[string]string{"X-Admin-Token": "s3cret"}
	rec = s.do(http.MethodPost, "/api/v1/sources/transmisiones/refresh", token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, s.tv.forced.Load())

	rec = s.do(http.MethodDelete, "/api/v1/sources/escalafon/cache", token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, s.ranking.cleared.Load())
}

func TestScheduledRoute(t *testing.T) {
	s := newServer(t, nil)
	token := map[string]string{"X-Admin-Token": "s3cret"}

	rec := s.do(http.MethodPost, "/api/v1/sources/escalafon/scheduled", token)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.ScheduleResponse](t, rec)
	require.False(t, resp.Ran)
	require.Equal(t, "minimum interval not elapsed", resp.Reason)

	rec = s.do(http.MethodPost, "/api/v1/sources/transmisiones/scheduled", token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegionalRoutes(t *testing.T) {
	s := newServer(t, nil)

	rec := s.do(http.MethodGet, "/api/v1/regional/america", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"Bogotá"}, decode[models.RegionalResponse](t, rec).Cities)

	rec = s.do(http.MethodGet, "/api/v1/regional/america/bogo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.RegionalResponse](t, rec)
	require.Equal(t, "Bogotá", resp.City)
	require.Equal(t, 1, resp.Count)

	rec = s.do(http.MethodGet, "/api/v1/regional/america/lima", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/regional/sevilla?upcoming=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, decode[models.RegionalResponse](t, rec).Count)
}
