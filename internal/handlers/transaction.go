package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	apperrors "github.com/tropicaldog17/folio/internal/errors"
	"github.com/tropicaldog17/folio/internal/models"
	"github.com/tropicaldog17/folio/internal/services"
)

type TransactionHandler struct {
	service services.TransactionService
}

func NewTransactionHandler(service services.TransactionService) *TransactionHandler {
	return &TransactionHandler{service: service}
}

// HandleTransactions handles collection-level operations for transactions.
// @Summary List or create transactions
// @Description Get a filtered list of ledger entries, or record one entry or an array of entries
// @Tags transactions
// @Accept json
// @Produce json
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Param types query string false "Comma-separated transaction types"
// @Param tickers query string false "Comma-separated tickers"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Transaction
// @Success 201 {array} models.Transaction
// @Failure 400 {string} string "Invalid request"
// @Failure 500 {string} string "Internal server error"
// @Router /transactions [get]
// @Router /transactions [post]
func (h *TransactionHandler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTransactions(w, r)
	case http.MethodPost:
		h.createTransactions(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleTransaction handles item-level operations for a transaction.
// @Summary Get or delete a transaction
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Success 204
// @Failure 404 {string} string "Not found"
// @Router /transactions/{id} [get]
// @Router /transactions/{id} [delete]
func (h *TransactionHandler) HandleTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	switch r.Method {
	case http.MethodGet:
		tx, err := h.service.GetTransaction(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	case http.MethodDelete:
		if err := h.service.DeleteTransaction(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TransactionHandler) listTransactions(w http.ResponseWriter, r *http.Request) {
	filter := &models.TransactionFilter{Tickers: queryList(r, "tickers")}
	var err error
	if filter.StartDate, err = queryDate(r, "start_date"); err != nil {
		writeError(w, err)
		return
	}
	if filter.EndDate, err = queryDate(r, "end_date"); err != nil {
		writeError(w, err)
		return
	}
	for _, t := range queryList(r, "types") {
		filter.Types = append(filter.Types, models.TransactionType(t))
	}
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		writeError(w, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset"); err != nil {
		writeError(w, err)
		return
	}

	txs, err := h.service.ListTransactions(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if txs == nil {
		txs = []*models.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// createTransactions accepts a single object or an array.
func (h *TransactionHandler) createTransactions(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	body = bytes.TrimSpace(body)

	if len(body) > 0 && body[0] == '[' {
		var txs []*models.Transaction
		if err := json.Unmarshal(body, &txs); err != nil {
			http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if len(txs) == 0 {
			writeError(w, &apperrors.ErrValidation{Field: "transactions", Message: "at least one entry is required"})
			return
		}
		created, err := h.service.CreateTransactionsBatch(r.Context(), txs)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
		return
	}

	var tx models.Transaction
	if err := json.Unmarshal(body, &tx); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.service.CreateTransaction(r.Context(), &tx); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &tx)
}
