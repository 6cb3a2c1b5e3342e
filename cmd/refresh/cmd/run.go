package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"canales-taurinos/internal/refresh"
	"canales-taurinos/internal/source"
	"canales-taurinos/pkg/models"
	"canales-taurinos/pkg/utils"
)

type refreshResult struct {
	resp     models.SourceResponse
	duration time.Duration
}

// selectHandles resolves names in the given order; no names means all
func selectHandles(reg *source.Registry, names []string) ([]source.Handle, error) {
	if len(names) == 0 {
		return reg.All(), nil
	}

	out := make([]source.Handle, 0, len(names))
	for _, name := range names {
		h, ok := reg.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown source %q (known: %v)", name, reg.Names())
		}
		out = append(out, h)
	}
	return out, nil
}

// runRefresh refreshes sources one after another so at most one browser
// runs at a time
func runRefresh(ctx context.Context, handles []source.Handle) []refreshResult {
	results := make([]refreshResult, 0, len(handles))
	for _, h := range handles {
		start := time.Now()
		resp := h.ForceRefresh(ctx)
		results = append(results, refreshResult{resp: resp, duration: time.Since(start)})
	}
	return results
}

func runScheduled(ctx context.Context, handles []source.Handle) []models.ScheduleResponse {
	results := make([]models.ScheduleResponse, 0, len(handles))
	for _, h := range handles {
		if !h.Scheduled() {
			results = append(results, models.ScheduleResponse{Source: h.Name(), Reason: "source is not scheduled"})
			continue
		}
		results = append(results, h.RunScheduled(ctx))
	}
	return results
}

func countFailed(results []refreshResult) int {
	failed := 0
	for _, r := range results {
		if r.resp.Outcome != string(refresh.OutcomeOK) {
			failed++
		}
	}
	return failed
}

func newTable(w io.Writer) table.Writer {
	style := table.StyleRounded
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault

	t := table.NewWriter()
	t.SetStyle(style)
	t.SetOutputMirror(w)
	return t
}

func renderRefresh(w io.Writer, results []refreshResult) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Source", "Outcome", "Records", "Run", "Took"})

	total := 0
	for _, r := range results {
		total += r.resp.Count
		t.AppendRow(table.Row{
			r.resp.Source,
			utils.GetStringOrDefault(r.resp.Outcome, "-"),
			humanize.Comma(int64(r.resp.Count)),
			utils.GetStringOrDefault(r.resp.RunID, "-"),
			utils.FormatDuration(r.duration),
		})
	}
	t.AppendFooter(table.Row{"", "Total", humanize.Comma(int64(total)), "", ""})
	t.Render()
}

func renderScheduled(w io.Writer, results []models.ScheduleResponse) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Source", "Ran", "Outcome", "Records", "Reason", "Next due"})

	for _, r := range results {
		next := "-"
		if r.NextDueAt != nil {
			next = fmt.Sprintf("%s (%s)", r.NextDueAt.Format("2006-01-02"), humanize.Time(*r.NextDueAt))
		}
		t.AppendRow(table.Row{
			r.Source,
			r.Ran,
			utils.GetStringOrDefault(r.Outcome, "-"),
			humanize.Comma(int64(r.Records)),
			utils.GetStringOrDefault(r.Reason, "-"),
			next,
		})
	}
	t.Render()
}
