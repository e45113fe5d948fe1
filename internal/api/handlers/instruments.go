package handlers

import (
	"net/http"

	"stock-lot-tracker/internal/api/response"
	"stock-lot-tracker/internal/repository"
)

// InstrumentHandler handles instrument lookup HTTP requests.
type InstrumentHandler struct {
	instrumentRepo *repository.InstrumentRepository
}

// NewInstrumentHandler creates a new InstrumentHandler
func NewInstrumentHandler(instrumentRepo *repository.InstrumentRepository) *InstrumentHandler {
	return &InstrumentHandler{
		instrumentRepo: instrumentRepo,
	}
}

// List returns every instrument the ledger has seen, sorted by ticker.
func (h *InstrumentHandler) List(w http.ResponseWriter, r *http.Request) {
	instruments, err := h.instrumentRepo.List()
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve instruments")
		return
	}

	response.RespondJSON(w, http.StatusOK, instruments)
}
