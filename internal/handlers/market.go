package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	apperrors "github.com/tropicaldog17/folio/internal/errors"
	"github.com/tropicaldog17/folio/internal/models"
	"github.com/tropicaldog17/folio/internal/services"
)

// MarketHandler serves reference data and prices and queues refreshes.
type MarketHandler struct {
	refresh services.RefreshService
	tasks   services.TaskRunner
}

func NewMarketHandler(refresh services.RefreshService, tasks services.TaskRunner) *MarketHandler {
	return &MarketHandler{refresh: refresh, tasks: tasks}
}

type refreshTickersRequest struct {
	Tickers []string `json:"tickers"`
}

// HandleTickers lists stored instrument reference data.
// @Summary List tickers
// @Tags market
// @Produce json
// @Success 200 {array} models.TickerInfo
// @Router /tickers [get]
func (h *MarketHandler) HandleTickers(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.refresh.ListTickers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if tickers == nil {
		tickers = []*models.TickerInfo{}
	}
	writeJSON(w, http.StatusOK, tickers)
}

// HandleRefreshTickers queues a reference data refresh for the given tickers.
// @Summary Refresh ticker reference data
// @Tags market
// @Accept json
// @Produce json
// @Param wait query bool false "Block until the task finishes"
// @Success 202 {object} TaskAccepted
// @Failure 400 {string} string "Invalid request"
// @Router /tickers/refresh [post]
func (h *MarketHandler) HandleRefreshTickers(w http.ResponseWriter, r *http.Request) {
	var req refreshTickersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	var tickers []string
	for _, t := range req.Tickers {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			tickers = append(tickers, t)
		}
	}
	if len(tickers) == 0 {
		writeError(w, &apperrors.ErrValidation{Field: "tickers", Message: "at least one ticker is required"})
		return
	}
	submit(w, r, h.tasks, "refresh_tickers", func(ctx context.Context) (interface{}, error) {
		n, err := h.refresh.RefreshTickerInfo(ctx, tickers)
		return map[string]int{"tickers": n}, err
	})
}

// HandlePrices lists stored daily prices, FX pairs included.
// @Summary List prices
// @Tags market
// @Produce json
// @Param tickers query string false "Comma-separated tickers"
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {array} models.Price
// @Failure 400 {string} string "Invalid request"
// @Router /prices [get]
func (h *MarketHandler) HandlePrices(w http.ResponseWriter, r *http.Request) {
	filter := &models.PriceFilter{Tickers: queryList(r, "tickers")}
	var err error
	if filter.StartDate, err = queryDate(r, "start_date"); err != nil {
		writeError(w, err)
		return
	}
	if filter.EndDate, err = queryDate(r, "end_date"); err != nil {
		writeError(w, err)
		return
	}
	prices, err := h.refresh.ListPrices(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if prices == nil {
		prices = []*models.Price{}
	}
	writeJSON(w, http.StatusOK, prices)
}

// HandleRefreshPrices queues a market data refresh of every known ticker.
// @Summary Refresh prices
// @Tags market
// @Produce json
// @Param wait query bool false "Block until the task finishes"
// @Success 202 {object} TaskAccepted
// @Router /prices/refresh [post]
func (h *MarketHandler) HandleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	submit(w, r, h.tasks, "refresh_prices", func(ctx context.Context) (interface{}, error) {
		return h.refresh.RefreshAll(ctx)
	})
}
