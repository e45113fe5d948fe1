package model

import "github.com/shopspring/decimal"

// OHLC is the day's open/high/low/close for an instrument.
type OHLC struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Quote is the latest broker quote for one instrument key.
type Quote struct {
	InstrumentKey string  `json:"instrument_key"`
	LastPrice     float64 `json:"last_price"`
	OHLC          OHLC    `json:"ohlc"`
}

// BrokerOrder is an order fetched from the broker's order book, annotated
// with whether a local transaction already records it. Recorded orders are
// skipped by the client to prevent duplicate entry.
type BrokerOrder struct {
	OrderID         string  `json:"order_id"`
	Ticker          string  `json:"ticker"`
	TransactionType string  `json:"transaction_type"`
	Quantity        float64 `json:"quantity"`
	AveragePrice    float64 `json:"average_price"`
	Status          string  `json:"status"`
	OrderTimestamp  string  `json:"order_timestamp"`
	Recorded        bool    `json:"recorded"`
}

// OpenLotSummary holds the derived metrics over an instrument's open lots.
// AverageBuyPrice is zero, not an error, when no lots are open.
type OpenLotSummary struct {
	Ticker          string          `json:"ticker"`
	UnitsHeld       decimal.Decimal `json:"units_held"`
	AverageBuyPrice decimal.Decimal `json:"average_buy_price"`
	CapitalDeployed decimal.Decimal `json:"capital_deployed"`
}

// OverviewRow is one instrument in the portfolio overview. Only instruments
// with positive net quantity (BUY minus SELL) are included.
type OverviewRow struct {
	Ticker          string          `json:"ticker"`
	UnitsHeld       decimal.Decimal `json:"units_held"`
	AverageBuyPrice decimal.Decimal `json:"average_buy_price"`
	CapitalDeployed decimal.Decimal `json:"capital_deployed"`
	RealizedPnL     decimal.Decimal `json:"realized_pnl"`
}
