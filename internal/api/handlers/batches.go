package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"stock-lot-tracker/internal/api/request"
	"stock-lot-tracker/internal/api/response"
	"stock-lot-tracker/internal/service"
	"stock-lot-tracker/internal/validation"
)

// BatchHandler handles batch-grouping HTTP requests.
type BatchHandler struct {
	batchService *service.BatchService
}

// NewBatchHandler creates a new BatchHandler
func NewBatchHandler(batchService *service.BatchService) *BatchHandler {
	return &BatchHandler{
		batchService: batchService,
	}
}

// List returns every batch with its closed pairs and aggregate realized P&L.
func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	batches, err := h.batchService.List()
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve batches")
		return
	}

	response.RespondJSON(w, http.StatusOK, batches)
}

// Unbatched returns the closed SELL/BUY pairs not yet assigned to a batch.
func (h *BatchHandler) Unbatched(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.batchService.UnbatchedPairs()
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve unbatched pairs")
		return
	}

	response.RespondJSON(w, http.StatusOK, pairs)
}

// Create groups the given transactions into a new named batch.
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateBatchRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateBatch(req); err != nil {
		respondServiceError(w, err, "validation failed")
		return
	}

	batch, err := h.batchService.Create(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "Failed to create batch")
		return
	}

	response.RespondJSON(w, http.StatusCreated, batch)
}

// Get returns one batch with its pairs and realized P&L.
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	batch, err := h.batchService.Get(id)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve batch")
		return
	}

	response.RespondJSON(w, http.StatusOK, batch)
}

// Update renames a batch and replaces its membership. Transactions absent
// from the new membership are released back to unbatched.
func (h *BatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.UpdateBatchRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateUpdateBatch(req); err != nil {
		respondServiceError(w, err, "validation failed")
		return
	}

	batch, err := h.batchService.Update(r.Context(), id, req)
	if err != nil {
		respondServiceError(w, err, "Failed to update batch")
		return
	}

	response.RespondJSON(w, http.StatusOK, batch)
}
