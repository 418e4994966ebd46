package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/shopspring/decimal"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/journal"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

type runResponse struct {
	RunID         string    `json:"run_id"`
	Created       time.Time `json:"created"`
	Start         string    `json:"start"`
	End           string    `json:"end"`
	DateColumn    string    `json:"date_column"`
	Features      []string  `json:"features"`
	Tickers       []string  `json:"tickers"`
	Failed        []string  `json:"failed"`
	CrossSections []string  `json:"cross_sections,omitempty"`
}

func newRunResponse(r journal.Run) runResponse {
	return runResponse{
		RunID:      r.RunID,
		Created:    r.Created,
		Start:      table.FormatTime(r.Start),
		End:        table.FormatTime(r.End),
		DateColumn: r.DateColumn,
		Features:   nonNil(r.Features),
		Tickers:    nonNil(r.Tickers),
		Failed:     nonNil(r.Failed),
	}
}

type tableResponse struct {
	RunID   string   `json:"run_id"`
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

type weightsResponse struct {
	RunID   string              `json:"run_id"`
	Tickers []string            `json:"tickers"`
	Dates   []string            `json:"dates"`
	Weights [][]decimal.Decimal `json:"weights"`
}

type errorResponse struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.ListRuns(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]runResponse, len(runs))
	for i, run := range runs {
		out[i] = newRunResponse(run)
	}
	render.JSON(w, r, out)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run, err := h.store.GetRun(r.Context(), runID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	names, err := h.store.CrossSections(r.Context(), runID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := newRunResponse(run)
	out.CrossSections = names
	render.JSON(w, r, out)
}

// GetCrossSection serves one stored table as JSON, or as CSV with ?format=csv.
func (h *Handler) GetCrossSection(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	name := chi.URLParam(r, "feature")
	t, err := h.store.LoadCrossSection(r.Context(), runID, name)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if err := journal.WriteTableCSV(w, t); err != nil {
			h.logger.Warn("csv response interrupted", "run_id", runID, "name", name, "error", err)
		}
		return
	}

	rows := make([][]any, t.Nrow())
	for i := range rows {
		row := t.Row(i)
		rows[i] = make([]any, len(row))
		for j, v := range row {
			if tm, ok := v.Time(); ok {
				rows[i][j] = table.FormatTime(tm)
				continue
			}
			rows[i][j] = v.Any()
		}
	}
	render.JSON(w, r, tableResponse{RunID: runID, Name: name, Columns: t.Names(), Rows: rows})
}

func (h *Handler) GetWeights(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	wts, err := h.store.LoadWeights(r.Context(), runID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dates := make([]string, len(wts.Dates))
	for i, d := range wts.Dates {
		dates[i] = table.FormatTime(d)
	}
	render.JSON(w, r, weightsResponse{
		RunID:   runID,
		Tickers: nonNil(wts.Tickers),
		Dates:   dates,
		Weights: wts.Values,
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, journal.ErrNotFound) {
		status = http.StatusNotFound
	} else {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Status: status, Error: err.Error()})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
