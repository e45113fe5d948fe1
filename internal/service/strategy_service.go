package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"stock-lot-tracker/internal/model"
)

// DefaultMinProfitPct is the sell threshold applied when the caller does
// not supply a target percentage.
var DefaultMinProfitPct = decimal.NewFromInt(3)

// LotDecision is the strategy verdict for one open lot at a given price.
type LotDecision struct {
	Lot           model.OpenLot   `json:"lot"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	ProfitPct     decimal.Decimal `json:"profit_pct"`
	ShouldSell    bool            `json:"should_sell"`
	Rationale     string          `json:"rationale"`
}

// Evaluation is the strategy view of an instrument's open inventory at a
// given price: a decision per lot plus the summary metrics.
type Evaluation struct {
	Ticker        string               `json:"ticker"`
	CurrentPrice  decimal.Decimal      `json:"current_price"`
	TargetPct     decimal.Decimal      `json:"target_pct"`
	Lots          []LotDecision        `json:"lots"`
	SellableUnits decimal.Decimal      `json:"sellable_units"`
	Summary       model.OpenLotSummary `json:"summary"`
}

// EvaluateLots is the single source of truth for the sell-threshold rule:
// a lot qualifies for sale when its profit percentage at the current price
// meets the target. Pure function of its inputs, so every presentation
// surface computes identical decisions.
func EvaluateLots(ticker string, lots []model.OpenLot, currentPrice, targetPct decimal.Decimal) Evaluation {
	if targetPct.Sign() <= 0 {
		targetPct = DefaultMinProfitPct
	}

	eval := Evaluation{
		Ticker:        ticker,
		CurrentPrice:  currentPrice,
		TargetPct:     targetPct,
		Lots:          make([]LotDecision, 0, len(lots)),
		SellableUnits: decimal.Zero,
		Summary:       SummarizeLots(ticker, lots),
	}

	for _, lot := range lots {
		decision := LotDecision{Lot: lot}

		if currentPrice.Sign() > 0 {
			decision.UnrealizedPnL = currentPrice.Sub(lot.Price).Mul(lot.Quantity)
			decision.ProfitPct = currentPrice.Sub(lot.Price).DivRound(lot.Price, 8).Mul(decimal.NewFromInt(100))
		}

		decision.ShouldSell = decision.ProfitPct.GreaterThanOrEqual(targetPct)
		if decision.ShouldSell {
			decision.Rationale = fmt.Sprintf("profit %s%% meets %s%% target", decision.ProfitPct.Round(2), targetPct)
			eval.SellableUnits = eval.SellableUnits.Add(lot.Quantity)
		} else {
			decision.Rationale = fmt.Sprintf("profit %s%% below %s%% target", decision.ProfitPct.Round(2), targetPct)
		}

		eval.Lots = append(eval.Lots, decision)
	}

	return eval
}
