package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Batch is a named grouping of closed (buy, sell) pairs for reporting.
// Membership lives on the transaction rows (batch_id); a batch never owns
// open lots and is never created automatically.
type Batch struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	TargetProfitPct decimal.Decimal `json:"target_profit_pct"`
	IsClosed        bool            `json:"is_closed"`
	BatchDate       *string         `json:"batch_date,omitempty"`
	CreatedAt       time.Time       `json:"-"`
}

// ClosedPair is a SELL joined to one BUY lot it closed, with the realized
// profit for that pairing. QuantityClosed is the portion of the lot the
// sale consumed (the full lot quantity in this design).
type ClosedPair struct {
	SellID         string          `json:"sell_id"`
	BuyID          string          `json:"buy_id"`
	Ticker         string          `json:"ticker"`
	SellDate       string          `json:"sell_date"`
	BuyDate        string          `json:"buy_date"`
	QuantityClosed decimal.Decimal `json:"quantity_closed"`
	SellPrice      decimal.Decimal `json:"sell_price"`
	BuyPrice       decimal.Decimal `json:"buy_price"`
	RealizedPnL    decimal.Decimal `json:"realized_pnl"`
}

// BatchSummary is a batch with its member pairs and aggregate realized P&L.
type BatchSummary struct {
	Batch
	Pairs       []ClosedPair    `json:"pairs"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
}
