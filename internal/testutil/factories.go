package testutil

import (
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"

	"stock-lot-tracker/internal/model"
)

// PortfolioID is the portfolio every test trade belongs to. SetupPortfolio
// inserts it; the builders reference it by default.
const PortfolioID = "00000000-0000-0000-0000-000000000001"

// SetupPortfolio inserts the default test portfolio.
func SetupPortfolio(t *testing.T, db *sql.DB) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO portfolio (id, name) VALUES (?, ?)`, PortfolioID, "Test Portfolio")
	if err != nil {
		t.Fatalf("Failed to create test portfolio: %v", err)
	}
}

// InstrumentBuilder provides a fluent interface for creating test instruments.
//
// Example usage:
//
//	instrument := testutil.NewInstrument().WithTicker("INFY").Build(t, db)
type InstrumentBuilder struct {
	ID     string
	Ticker string
}

// NewInstrument creates an InstrumentBuilder with sensible defaults.
func NewInstrument() *InstrumentBuilder {
	return &InstrumentBuilder{
		ID:     MakeID(),
		Ticker: MakeTicker("TEST"),
	}
}

// WithTicker sets a custom ticker.
func (b *InstrumentBuilder) WithTicker(ticker string) *InstrumentBuilder {
	b.Ticker = ticker
	return b
}

// Build creates the instrument in the database and returns it.
func (b *InstrumentBuilder) Build(t *testing.T, db *sql.DB) model.Instrument {
	t.Helper()

	_, err := db.Exec(`INSERT INTO instrument (id, ticker, display) VALUES (?, ?, TRUE)`, b.ID, b.Ticker)
	if err != nil {
		t.Fatalf("Failed to create test instrument: %v", err)
	}

	return model.Instrument{ID: b.ID, Ticker: b.Ticker, Display: true}
}

// TradeBuilder provides a fluent interface for creating test trades.
//
// Example usage:
//
//	buy := testutil.NewBuyLot(instrument).WithQuantity("10").WithPrice("100").Build(t, db)
//	sell := testutil.NewSellTrade(instrument).ClosingLot(buy.ID).Build(t, db)
type TradeBuilder struct {
	ID              string
	PortfolioID     string
	InstrumentID    string
	Type            string
	Quantity        string
	Price           string
	Date            string
	IsOpen          bool
	ParentBuyID     *string
	BatchID         *string
	ExternalOrderID *string
}

// NewBuyLot creates a TradeBuilder for an open BUY lot with defaults.
func NewBuyLot(instrument model.Instrument) *TradeBuilder {
	return &TradeBuilder{
		ID:           MakeID(),
		PortfolioID:  PortfolioID,
		InstrumentID: instrument.ID,
		Type:         model.TypeBuy,
		Quantity:     "10",
		Price:        "100",
		Date:         "2025-01-02",
		IsOpen:       true,
	}
}

// NewSellTrade creates a TradeBuilder for a SELL with defaults.
func NewSellTrade(instrument model.Instrument) *TradeBuilder {
	return &TradeBuilder{
		ID:           MakeID(),
		PortfolioID:  PortfolioID,
		InstrumentID: instrument.ID,
		Type:         model.TypeSell,
		Quantity:     "10",
		Price:        "110",
		Date:         "2025-02-02",
		IsOpen:       false,
	}
}

// WithQuantity sets a custom quantity.
func (b *TradeBuilder) WithQuantity(quantity string) *TradeBuilder {
	b.Quantity = quantity
	return b
}

// WithPrice sets a custom price.
func (b *TradeBuilder) WithPrice(price string) *TradeBuilder {
	b.Price = price
	return b
}

// WithDate sets a custom trade date (YYYY-MM-DD).
func (b *TradeBuilder) WithDate(date string) *TradeBuilder {
	b.Date = date
	return b
}

// WithExternalOrderID sets the broker order ID that recorded this trade.
func (b *TradeBuilder) WithExternalOrderID(orderID string) *TradeBuilder {
	b.ExternalOrderID = &orderID
	return b
}

// Closed marks a BUY lot as already closed.
func (b *TradeBuilder) Closed() *TradeBuilder {
	b.IsOpen = false
	return b
}

// ClosingLot links a SELL to the BUY lot it closes, marks that lot closed
// and records the allocation, mirroring what the ledger does on record.
func (b *TradeBuilder) ClosingLot(buyID string) *TradeBuilder {
	b.ParentBuyID = &buyID
	return b
}

// InBatch assigns the trade to a batch.
func (b *TradeBuilder) InBatch(batchID string) *TradeBuilder {
	b.BatchID = &batchID
	return b
}

// Build creates the trade in the database and returns it. A SELL built
// with ClosingLot also closes the parent and writes the allocation row.
func (b *TradeBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO trade (id, portfolio_id, instrument_id, type, quantity, price, trade_date,
			is_open, parent_buy_id, batch_id, external_order_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.PortfolioID, b.InstrumentID, b.Type, b.Quantity, b.Price, b.Date,
		b.IsOpen, b.ParentBuyID, b.BatchID, b.ExternalOrderID)
	if err != nil {
		t.Fatalf("Failed to create test trade: %v", err)
	}

	if b.Type == model.TypeSell && b.ParentBuyID != nil {
		if _, err := db.Exec(`UPDATE trade SET is_open = FALSE WHERE id = ?`, *b.ParentBuyID); err != nil {
			t.Fatalf("Failed to close parent lot: %v", err)
		}
		if _, err := db.Exec(`
			INSERT INTO trade_allocation (sell_id, buy_id, quantity_closed) VALUES (?, ?, ?)
		`, b.ID, *b.ParentBuyID, b.Quantity); err != nil {
			t.Fatalf("Failed to create test allocation: %v", err)
		}
	}

	return model.Transaction{
		ID:              b.ID,
		PortfolioID:     b.PortfolioID,
		InstrumentID:    b.InstrumentID,
		Type:            b.Type,
		Quantity:        decimal.RequireFromString(b.Quantity),
		Price:           decimal.RequireFromString(b.Price),
		IsOpen:          b.IsOpen,
		ParentBuyID:     b.ParentBuyID,
		BatchID:         b.BatchID,
		ExternalOrderID: b.ExternalOrderID,
	}
}

// BatchBuilder provides a fluent interface for creating test batches.
type BatchBuilder struct {
	ID              string
	Name            string
	TargetProfitPct string
}

// NewBatch creates a BatchBuilder with sensible defaults.
func NewBatch() *BatchBuilder {
	return &BatchBuilder{
		ID:              MakeID(),
		Name:            "Test Batch",
		TargetProfitPct: "10",
	}
}

// WithName sets a custom name.
func (b *BatchBuilder) WithName(name string) *BatchBuilder {
	b.Name = name
	return b
}

// Build creates the batch in the database and returns it.
func (b *BatchBuilder) Build(t *testing.T, db *sql.DB) model.Batch {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO batch (id, name, target_profit_pct) VALUES (?, ?, ?)
	`, b.ID, b.Name, b.TargetProfitPct)
	if err != nil {
		t.Fatalf("Failed to create test batch: %v", err)
	}

	return model.Batch{
		ID:              b.ID,
		Name:            b.Name,
		TargetProfitPct: decimal.RequireFromString(b.TargetProfitPct),
	}
}
