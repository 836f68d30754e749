package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"retail-analytics/internal/cube"
	"retail-analytics/internal/errors"
	"retail-analytics/internal/observability"
	"retail-analytics/internal/report"
	"retail-analytics/internal/services"
)

// OLAPHandlers serves the cube operations over the current fact table.
// Cubes are cheap views over the shared transaction slice, so each request
// builds its own against whatever data the last refresh produced.
type OLAPHandlers struct {
	analytics *services.Analytics
	reports   *report.Generator
	logger    *slog.Logger
}

func NewOLAPHandlers(analytics *services.Analytics, reports *report.Generator, logger *slog.Logger) *OLAPHandlers {
	return &OLAPHandlers{
		analytics: analytics,
		reports:   reports,
		logger:    logger,
	}
}

func (h *OLAPHandlers) cube() *cube.Cube {
	return cube.New(h.analytics.Transactions())
}

func (h *OLAPHandlers) HandleRollUp(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	dimension := r.URL.Query().Get("dimension")
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	cells, err := h.cube().RollUp(dimension, from, to)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	errors.WriteSuccess(w, map[string]any{
		"dimension": dimension,
		"from":      from,
		"to":        to,
		"cells":     cells,
	})
}

func (h *OLAPHandlers) HandleDrillDown(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	dimension := r.URL.Query().Get("dimension")
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	cells, err := h.cube().DrillDown(dimension, from, to)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	errors.WriteSuccess(w, map[string]any{
		"dimension": dimension,
		"from":      from,
		"to":        to,
		"cells":     cells,
	})
}

func (h *OLAPHandlers) HandleSlice(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	field := r.URL.Query().Get("field")
	value := r.URL.Query().Get("value")

	sel, err := h.cube().Slice(field, value)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	errors.WriteSuccess(w, sel)
}

type diceRequest struct {
	Predicates []cube.Predicate `json:"predicates"`
}

func (h *OLAPHandlers) HandleDice(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	var req diceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "invalid JSON body"), requestID)
		return
	}

	sel, err := h.cube().Dice(req.Predicates)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	errors.WriteSuccess(w, sel)
}

func (h *OLAPHandlers) HandlePivot(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	q := r.URL.Query()
	rows := q.Get("rows")
	columns := q.Get("columns")
	measure := q.Get("measure")
	if measure == "" {
		measure = cube.MeasureAmount
	}
	agg := cube.Aggregation(q.Get("agg"))
	if agg == "" {
		agg = cube.AggSum
	}

	table, err := h.cube().Pivot(rows, columns, measure, agg)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	errors.WriteSuccess(w, table)
}

func (h *OLAPHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	facts := h.analytics.Transactions()
	summary := h.reports.ExecutiveSummary(facts)

	olap, err := h.reports.OLAPSummary(cube.New(facts))
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(summary))
	w.Write([]byte("\n"))
	w.Write([]byte(olap))
}
