package handlers

import (
	"net/http"
	"strings"

	"stock-lot-tracker/internal/api/response"
	"stock-lot-tracker/internal/service"
)

// MarketHandler serves live quotes and broker order views.
type MarketHandler struct {
	marketService *service.MarketService
}

// NewMarketHandler creates a new MarketHandler
func NewMarketHandler(marketService *service.MarketService) *MarketHandler {
	return &MarketHandler{
		marketService: marketService,
	}
}

// Quotes returns live quotes for ?symbols=A,B,C. Without the parameter it
// quotes every ticker that has open lots.
func (h *MarketHandler) Quotes(w http.ResponseWriter, r *http.Request) {
	var tickers []string
	if raw := r.URL.Query().Get("symbols"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				tickers = append(tickers, s)
			}
		}
	} else {
		active, err := h.marketService.ActiveTickers()
		if err != nil {
			respondServiceError(w, err, "Failed to retrieve active tickers")
			return
		}
		tickers = active
	}

	if len(tickers) == 0 {
		response.RespondJSON(w, http.StatusOK, map[string]interface{}{})
		return
	}

	quotes, err := h.marketService.Quotes(r.Context(), tickers)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve quotes")
		return
	}

	response.RespondJSON(w, http.StatusOK, quotes)
}

// ActiveTickers returns the tickers that currently have open lots.
func (h *MarketHandler) ActiveTickers(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.marketService.ActiveTickers()
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve active tickers")
		return
	}

	response.RespondJSON(w, http.StatusOK, tickers)
}

// TodaysOrders returns today's broker orders, each flagged with whether a
// ledger transaction already records it.
func (h *MarketHandler) TodaysOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.marketService.TodaysOrders(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve orders")
		return
	}

	response.RespondJSON(w, http.StatusOK, orders)
}

// Status reports broker connectivity and the quote cache age.
func (h *MarketHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.RespondJSON(w, http.StatusOK, h.marketService.Status(r.Context()))
}
