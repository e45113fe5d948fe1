// Package request defines the JSON request bodies accepted by the API.
package request

import "github.com/shopspring/decimal"

// CreateTransactionRequest is the body for POST /api/transactions.
// ParentBuyID is set on SELL requests that close a single open lot.
// ExternalOrderID correlates the row with a broker order to prevent
// duplicate entry.
type CreateTransactionRequest struct {
	Ticker          string          `json:"instrument_ticker"`
	Type            string          `json:"kind"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	Date            string          `json:"date"`
	ParentBuyID     *string         `json:"parent_buy_id,omitempty"`
	ExternalOrderID *string         `json:"external_id,omitempty"`
}

// UpdateTransactionRequest is the body for PUT /api/transactions/{uuid}.
// It is a full replacement of the mutable fields; a changed ParentBuyID
// reopens the old lot and closes the new one.
type UpdateTransactionRequest struct {
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Date        string          `json:"date"`
	ParentBuyID *string         `json:"parent_buy_id,omitempty"`
}

// BulkSellRequest is the body for POST /api/transactions/bulk-sell.
// Quantity must equal the sum of the selected lots' quantities.
type BulkSellRequest struct {
	Ticker         string          `json:"instrument_ticker"`
	Quantity       decimal.Decimal `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	Date           string          `json:"date"`
	SelectedBuyIDs []string        `json:"selected_buy_ids"`
}
