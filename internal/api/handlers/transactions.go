package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"stock-lot-tracker/internal/api/request"
	"stock-lot-tracker/internal/api/response"
	"stock-lot-tracker/internal/service"
	"stock-lot-tracker/internal/validation"
)

// TransactionHandler handles lot-ledger HTTP requests.
type TransactionHandler struct {
	ledgerService *service.LedgerService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(ledgerService *service.LedgerService) *TransactionHandler {
	return &TransactionHandler{
		ledgerService: ledgerService,
	}
}

// Create records a BUY or SELL transaction. A SELL carrying a
// parent_buy_id closes that lot in the same operation.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateTransactionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateTransaction(req); err != nil {
		respondServiceError(w, err, "validation failed")
		return
	}

	created, err := h.ledgerService.Record(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "Failed to record transaction")
		return
	}

	response.RespondJSON(w, http.StatusCreated, created)
}

// BulkSell records one SELL against several open BUY lots whose quantities
// sum exactly to the sold quantity.
func (h *TransactionHandler) BulkSell(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.BulkSellRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateBulkSell(req); err != nil {
		respondServiceError(w, err, "validation failed")
		return
	}

	created, err := h.ledgerService.BulkSell(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "Failed to record bulk sell")
		return
	}

	response.RespondJSON(w, http.StatusCreated, created)
}

// Get returns a single transaction by ID.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	transaction, err := h.ledgerService.Get(id)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve transaction")
		return
	}

	response.RespondJSON(w, http.StatusOK, transaction)
}

// Ledger returns a page of the transaction ledger, newest first.
// Supports ?page=, ?limit= and ?ticker= query parameters.
func (h *TransactionHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ticker := r.URL.Query().Get("ticker")

	result, err := h.ledgerService.Ledger(page, limit, ticker)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve ledger")
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// Update replaces the mutable fields of a transaction. Changing a SELL's
// parent_buy_id reopens the old lot and closes the new one.
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.UpdateTransactionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateUpdateTransaction(req); err != nil {
		respondServiceError(w, err, "validation failed")
		return
	}

	updated, err := h.ledgerService.Update(r.Context(), id, req)
	if err != nil {
		respondServiceError(w, err, "Failed to update transaction")
		return
	}

	response.RespondJSON(w, http.StatusOK, updated)
}

// Delete removes a transaction. Deleting a SELL reopens the BUY lots it
// had closed; deleting a BUY still referenced by a SELL is refused.
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	if err := h.ledgerService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err, "Failed to delete transaction")
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]string{"message": "Transaction deleted successfully"})
}
