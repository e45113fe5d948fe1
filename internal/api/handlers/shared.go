package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"stock-lot-tracker/internal/api/response"
	"stock-lot-tracker/internal/apperrors"
	"stock-lot-tracker/internal/validation"
)

// parseJSON decodes a request body into the given type.
func parseJSON[T any](r *http.Request) (T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return v, fmt.Errorf("invalid JSON body: %w", err)
	}
	return v, nil
}

// respondServiceError maps service-layer errors onto HTTP statuses:
// validation failures to 400, missing entities to 404, lot-state conflicts
// to 409, broker failures to 401/502, everything else to 500.
func respondServiceError(w http.ResponseWriter, err error, fallback string) {
	var validationErr *validation.Error
	switch {
	case errors.As(err, &validationErr):
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())

	case errors.Is(err, apperrors.ErrTransactionNotFound),
		errors.Is(err, apperrors.ErrInstrumentNotFound),
		errors.Is(err, apperrors.ErrParentLotNotFound),
		errors.Is(err, apperrors.ErrBatchNotFound):
		response.RespondError(w, http.StatusNotFound, err.Error(), nil)

	case errors.Is(err, apperrors.ErrLotAlreadyClosed),
		errors.Is(err, apperrors.ErrLotInUse),
		errors.Is(err, apperrors.ErrDuplicateOrder):
		response.RespondError(w, http.StatusConflict, err.Error(), nil)

	case errors.Is(err, apperrors.ErrLotNotBuy),
		errors.Is(err, apperrors.ErrInstrumentMismatch),
		errors.Is(err, apperrors.ErrQuantityMismatch):
		response.RespondError(w, http.StatusBadRequest, err.Error(), nil)

	case errors.Is(err, apperrors.ErrBrokerDisconnected):
		response.RespondError(w, http.StatusUnauthorized, "Zerodha Disconnected",
			"Please login to Zerodha to resume live tracking.")

	case errors.Is(err, apperrors.ErrBrokerUnavailable):
		response.RespondError(w, http.StatusBadGateway, "Kite API Error", err.Error())

	default:
		response.RespondError(w, http.StatusInternalServerError, fallback, err.Error())
	}
}
