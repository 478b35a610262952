package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/tropicaldog17/folio/internal/engine"
	"github.com/tropicaldog17/folio/internal/models"
	"github.com/tropicaldog17/folio/internal/services"
)

// PortfolioHandler serves derived positions, history and stats, and queues
// rebuilds of them.
type PortfolioHandler struct {
	reporting services.ReportingService
	rebuild   services.RebuildService
	tasks     services.TaskRunner
}

func NewPortfolioHandler(reporting services.ReportingService, rebuild services.RebuildService, tasks services.TaskRunner) *PortfolioHandler {
	return &PortfolioHandler{reporting: reporting, rebuild: rebuild, tasks: tasks}
}

// HandlePositions lists position rows.
// @Summary List positions
// @Tags portfolio
// @Produce json
// @Param ticker query string false "Ticker"
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {array} engine.PositionRow
// @Failure 400 {string} string "Invalid request"
// @Router /positions [get]
func (h *PortfolioHandler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	filter := &models.PositionFilter{Ticker: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker")))}
	var err error
	if filter.StartDate, err = queryDate(r, "start_date"); err != nil {
		writeError(w, err)
		return
	}
	if filter.EndDate, err = queryDate(r, "end_date"); err != nil {
		writeError(w, err)
		return
	}
	rows, err := h.reporting.GetPositions(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []engine.PositionRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleSnapshot returns each ticker's latest position on or before as_of.
// @Summary Positions snapshot
// @Tags portfolio
// @Produce json
// @Param as_of query string false "As-of date (YYYY-MM-DD), default today"
// @Success 200 {array} engine.PositionRow
// @Router /positions/snapshot [get]
func (h *PortfolioHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	asOf, err := asOfDate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := h.reporting.GetSnapshot(r.Context(), asOf)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleRebuildPositions queues a positions rebuild.
// @Summary Rebuild positions
// @Tags portfolio
// @Produce json
// @Param wait query bool false "Block until the task finishes"
// @Success 202 {object} TaskAccepted
// @Failure 422 {string} string "Missing or stale FX rate"
// @Router /positions/rebuild [post]
func (h *PortfolioHandler) HandleRebuildPositions(w http.ResponseWriter, r *http.Request) {
	submit(w, r, h.tasks, "rebuild_positions", func(ctx context.Context) (interface{}, error) {
		return h.rebuild.RebuildPositions(ctx)
	})
}

// HandleHistory lists portfolio history rows.
// @Summary Portfolio history
// @Tags portfolio
// @Produce json
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {array} engine.HistoryRow
// @Router /portfolio/history [get]
func (h *PortfolioHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	start, err := queryDate(r, "start_date")
	if err != nil {
		writeError(w, err)
		return
	}
	end, err := queryDate(r, "end_date")
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := h.reporting.GetHistory(r.Context(), start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []engine.HistoryRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleRebuildHistory queues a history rebuild, optionally in another base
// currency.
// @Summary Rebuild portfolio history
// @Tags portfolio
// @Produce json
// @Param base query string false "Base currency, default from configuration"
// @Param wait query bool false "Block until the task finishes"
// @Success 202 {object} TaskAccepted
// @Failure 400 {string} string "Invalid base currency"
// @Failure 422 {string} string "Missing or stale FX rate"
// @Router /portfolio/history/rebuild [post]
func (h *PortfolioHandler) HandleRebuildHistory(w http.ResponseWriter, r *http.Request) {
	base := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("base")))
	if base != "" && !models.ValidCurrency(base) {
		http.Error(w, "base must be an ISO 4217 code", http.StatusBadRequest)
		return
	}
	submit(w, r, h.tasks, "rebuild_history", func(ctx context.Context) (interface{}, error) {
		return h.rebuild.RebuildHistory(ctx, base)
	})
}

// HandleWeights returns each ticker's share of the portfolio value.
// @Summary Portfolio weights
// @Tags portfolio
// @Produce json
// @Param as_of query string false "As-of date (YYYY-MM-DD), default today"
// @Success 200 {array} engine.Weight
// @Router /portfolio/weights [get]
func (h *PortfolioHandler) HandleWeights(w http.ResponseWriter, r *http.Request) {
	asOf, err := asOfDate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	weights, err := h.reporting.GetWeights(r.Context(), asOf)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weights)
}

// HandleStats returns per-ticker and portfolio stats.
// @Summary Portfolio stats
// @Tags portfolio
// @Produce json
// @Param as_of query string false "As-of date (YYYY-MM-DD), default today"
// @Param ticker query string false "Only this ticker, or PORTFOLIO"
// @Success 200 {object} services.StatsReport
// @Router /portfolio/stats [get]
func (h *PortfolioHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	asOf, err := asOfDate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := h.reporting.GetStats(r.Context(), asOf, r.URL.Query().Get("ticker"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
