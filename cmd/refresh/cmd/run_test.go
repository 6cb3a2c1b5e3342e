package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"canales-taurinos/internal/source"
	"canales-taurinos/pkg/models"
)

type stubSource struct {
	name      string
	scheduled bool
	resp      models.SourceResponse
}

func (s stubSource) Name() string                                       { return s.name }
func (s stubSource) Scheduled() bool                                    { return s.scheduled }
func (s stubSource) Read(context.Context) models.SourceResponse         { return s.resp }
func (s stubSource) ForceRefresh(context.Context) models.SourceResponse { return s.resp }
func (s stubSource) ClearCache()                                        {}
func (s stubSource) Status(context.Context) models.SourceStatus {
	return models.SourceStatus{Source: s.name, Scheduled: s.scheduled}
}
func (s stubSource) RunScheduled(context.Context) models.ScheduleResponse {
	return models.ScheduleResponse{Source: s.name, Ran: true, Outcome: "ok", Records: 1250}
}

func registry(t *testing.T) *source.Registry {
	t.Helper()
	reg := source.NewRegistry()
	require.NoError(t, reg.Register(stubSource{name: "transmisiones", resp: models.SourceResponse{Source: "transmisiones", Outcome: "ok", Count: 12}}))
	require.NoError(t, reg.Register(stubSource{name: "escalafon", scheduled: true, resp: models.SourceResponse{Source: "escalafon", Outcome: "blocked"}}))
	return reg
}

func TestSelectHandles(t *testing.T) {
	reg := registry(t)

	all, err := selectHandles(reg, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "escalafon", all[0].Name())

	some, err := selectHandles(reg, []string{"transmisiones"})
	require.NoError(t, err)
	require.Len(t, some, 1)

	_, err = selectHandles(reg, []string{"toros-tv"})
	require.ErrorContains(t, err, `unknown source "toros-tv"`)
}

func TestRunRefreshCountsFailures(t *testing.T) {
	handles, err := selectHandles(registry(t), nil)
	require.NoError(t, err)

	results := runRefresh(context.Background(), handles)
	require.Len(t, results, 2)
	require.Equal(t, 1, countFailed(results))

	var out bytes.Buffer
	renderRefresh(&out, results)
	require.Contains(t, out.String(), "blocked")
	require.Contains(t, out.String(), "Source")
	require.Contains(t, out.String(), "Total")
	require.NotContains(t, out.String(), "TOTAL")
}

func TestRunScheduledSkipsUnscheduled(t *testing.T) {
	handles, err := selectHandles(registry(t), nil)
	require.NoError(t, err)

	results := runScheduled(context.Background(), handles)
	require.True(t, results[0].Ran)
	require.False(t, results[1].Ran)
	require.Equal(t, "source is not scheduled", results[1].Reason)

	var out bytes.Buffer
	renderScheduled(&out, results)
	require.Contains(t, out.String(), "1,250")
}

func TestRenderStatus(t *testing.T) {
	last := time.Now().Add(-48 * time.Hour)
	var out bytes.Buffer
	renderStatus(&out, []models.SourceStatus{
		{Source: "escalafon", Engine: "headless", TTL: 6 * time.Hour, Scheduled: true, LastScheduledRun: &last},
		{Source: "cronicas", Engine: "http", TTL: 30 * time.Minute},
	})
	require.Contains(t, out.String(), "2 days ago")
	require.Contains(t, out.String(), "6h0m0s")
}
