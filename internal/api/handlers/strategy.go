package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"stock-lot-tracker/internal/api/response"
	"stock-lot-tracker/internal/service"
)

// StrategyHandler serves open-inventory views and sell-threshold
// evaluations for single instruments and the whole portfolio.
type StrategyHandler struct {
	ledgerService    *service.LedgerService
	portfolioService *service.PortfolioService
	marketService    *service.MarketService
}

// NewStrategyHandler creates a new StrategyHandler
func NewStrategyHandler(
	ledgerService *service.LedgerService,
	portfolioService *service.PortfolioService,
	marketService *service.MarketService,
) *StrategyHandler {
	return &StrategyHandler{
		ledgerService:    ledgerService,
		portfolioService: portfolioService,
		marketService:    marketService,
	}
}

// OpenInventory returns the open BUY lots for a ticker, oldest first,
// with the position summary.
func (h *StrategyHandler) OpenInventory(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	lots, err := h.ledgerService.OpenLots(ticker)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve open lots")
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"lots":    lots,
		"summary": service.SummarizeLots(ticker, lots),
	})
}

// Overview returns per-instrument holdings across the portfolio: units
// held, average buy price, capital deployed and realized P&L.
func (h *StrategyHandler) Overview(w http.ResponseWriter, r *http.Request) {
	rows, err := h.portfolioService.Overview()
	if err != nil {
		respondServiceError(w, err, "Failed to build portfolio overview")
		return
	}

	response.RespondJSON(w, http.StatusOK, rows)
}

// Evaluate runs the sell-threshold rule over a ticker's open lots at its
// live price. ?price= overrides the quote, ?target= overrides the default
// profit threshold.
func (h *StrategyHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	lots, err := h.ledgerService.OpenLots(ticker)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve open lots")
		return
	}

	var price decimal.Decimal
	if raw := r.URL.Query().Get("price"); raw != "" {
		price, err = decimal.NewFromString(raw)
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid price", raw)
			return
		}
	} else {
		price, err = h.livePrice(r, ticker)
		if err != nil {
			respondServiceError(w, err, "Failed to resolve current price")
			return
		}
	}

	targetPct := decimal.Zero
	if raw := r.URL.Query().Get("target"); raw != "" {
		targetPct, err = decimal.NewFromString(raw)
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid target percentage", raw)
			return
		}
	}

	response.RespondJSON(w, http.StatusOK, service.EvaluateLots(ticker, lots, price, targetPct))
}

// Status is the live snapshot for a ticker: open lots evaluated at the
// broker's current price with the default threshold.
func (h *StrategyHandler) Status(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	lots, err := h.ledgerService.OpenLots(ticker)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve open lots")
		return
	}

	price, err := h.livePrice(r, ticker)
	if err != nil {
		respondServiceError(w, err, "Failed to resolve current price")
		return
	}

	response.RespondJSON(w, http.StatusOK, service.EvaluateLots(ticker, lots, price, decimal.Zero))
}

// livePrice asks the broker for the ticker's last traded price.
func (h *StrategyHandler) livePrice(r *http.Request, ticker string) (decimal.Decimal, error) {
	quotes, err := h.marketService.Quotes(r.Context(), []string{ticker})
	if err != nil {
		return decimal.Zero, err
	}

	quote, ok := quotes[strings.ToUpper(strings.TrimSpace(ticker))]
	if !ok {
		return decimal.Zero, nil
	}
	return decimal.NewFromFloat(quote.LastPrice), nil
}
