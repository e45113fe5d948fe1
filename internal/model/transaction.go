package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types. A BUY row is a lot; a SELL row closes one or more lots.
const (
	TypeBuy  = "BUY"
	TypeSell = "SELL"
)

// Transaction represents a single BUY or SELL row in the ledger.
// IsOpen is meaningful for BUY rows only: true means the lot has not yet
// been allocated to a sale. ParentBuyID is set on SELL rows that close a
// single lot; bulk sales carry their lot linkage in Allocation rows instead.
type Transaction struct {
	ID              string          `json:"id"`
	PortfolioID     string          `json:"portfolio_id"`
	InstrumentID    string          `json:"instrument_id"`
	Type            string          `json:"type"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	Date            time.Time       `json:"-"`
	IsOpen          bool            `json:"is_open"`
	ParentBuyID     *string         `json:"parent_buy_id,omitempty"`
	BatchID         *string         `json:"batch_id,omitempty"`
	ExternalOrderID *string         `json:"external_order_id,omitempty"`
	CreatedAt       time.Time       `json:"-"`
}

// TransactionResponse is a ledger row enriched with the instrument ticker
// for API responses. The date is rendered as YYYY-MM-DD.
type TransactionResponse struct {
	ID              string          `json:"id"`
	Ticker          string          `json:"ticker"`
	Type            string          `json:"type"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	Date            string          `json:"date"`
	IsOpen          bool            `json:"is_open"`
	ParentBuyID     *string         `json:"parent_buy_id,omitempty"`
	BatchID         *string         `json:"batch_id,omitempty"`
	ExternalOrderID *string         `json:"external_order_id,omitempty"`
}

// Allocation links a SELL transaction to a BUY lot it closed and records
// how much of the lot's quantity that sale consumed.
type Allocation struct {
	SellID         string          `json:"sell_id"`
	BuyID          string          `json:"buy_id"`
	QuantityClosed decimal.Decimal `json:"quantity_closed"`
}

// OpenLot is a BUY transaction that has not been allocated to a sale,
// as returned by the open-inventory endpoint.
type OpenLot struct {
	ID       string          `json:"id"`
	Date     string          `json:"date"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Pagination describes the page window of a ledger listing.
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalRecords int `json:"totalRecords"`
	Limit        int `json:"limit"`
}

// LedgerPage is one page of the transaction ledger.
type LedgerPage struct {
	Data       []TransactionResponse `json:"data"`
	Pagination Pagination            `json:"pagination"`
}
