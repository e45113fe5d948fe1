package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stock-lot-tracker/internal/apperrors"
	"stock-lot-tracker/internal/model"
	"stock-lot-tracker/internal/repository"
	"stock-lot-tracker/internal/testutil"
)

func newSellRow(instrumentID string) *model.Transaction {
	return &model.Transaction{
		ID:           testutil.MakeID(),
		PortfolioID:  testutil.PortfolioID,
		InstrumentID: instrumentID,
		Type:         model.TypeSell,
		Quantity:     decimal.NewFromInt(10),
		Price:        decimal.NewFromInt(110),
		Date:         time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:    time.Now(),
	}
}

// TestTransactionRepository_InsertSellWithParent tests the close guard.
//
// WHY: The lot close is a compare-and-swap on is_open. Two sales racing for
// the same lot must resolve to exactly one winner; the loser sees a
// conflict and nothing it wrote survives.
func TestTransactionRepository_InsertSellWithParent(t *testing.T) {
	t.Run("second close of the same lot loses the swap", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		repo := repository.NewTransactionRepository(db)
		instrument := testutil.NewInstrument().WithTicker("INFY").Build(t, db)
		buy := testutil.NewBuyLot(instrument).Build(t, db)

		// Execute
		first := repo.InsertSellWithParent(context.Background(), newSellRow(instrument.ID), buy.ID)
		second := repo.InsertSellWithParent(context.Background(), newSellRow(instrument.ID), buy.ID)

		// Assert
		if first != nil {
			t.Fatalf("First close returned unexpected error: %v", first)
		}
		if !errors.Is(second, apperrors.ErrLotAlreadyClosed) {
			t.Fatalf("Expected ErrLotAlreadyClosed on second close, got %v", second)
		}

		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM trade WHERE type = 'SELL'`).Scan(&count); err != nil {
			t.Fatalf("Failed to count sells: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected the losing sell to be rolled back, found %d sell rows", count)
		}
	})

	t.Run("closing a SELL row as a parent is rejected", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		repo := repository.NewTransactionRepository(db)
		instrument := testutil.NewInstrument().WithTicker("INFY").Build(t, db)
		buy := testutil.NewBuyLot(instrument).Build(t, db)
		sell := testutil.NewSellTrade(instrument).ClosingLot(buy.ID).Build(t, db)

		// Execute
		err := repo.InsertSellWithParent(context.Background(), newSellRow(instrument.ID), sell.ID)

		// Assert
		if !errors.Is(err, apperrors.ErrLotNotBuy) {
			t.Fatalf("Expected ErrLotNotBuy, got %v", err)
		}
	})

	t.Run("missing parent is rejected", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		repo := repository.NewTransactionRepository(db)
		instrument := testutil.NewInstrument().WithTicker("INFY").Build(t, db)

		// Execute
		err := repo.InsertSellWithParent(context.Background(), newSellRow(instrument.ID), testutil.MakeID())

		// Assert
		if !errors.Is(err, apperrors.ErrParentLotNotFound) {
			t.Fatalf("Expected ErrParentLotNotFound, got %v", err)
		}
	})
}

// TestTransactionRepository_ActiveTickers tests the open-lot ticker set.
func TestTransactionRepository_ActiveTickers(t *testing.T) {
	t.Run("returns only tickers with open lots", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		repo := repository.NewTransactionRepository(db)

		held := testutil.NewInstrument().WithTicker("INFY").Build(t, db)
		testutil.NewBuyLot(held).Build(t, db)

		exited := testutil.NewInstrument().WithTicker("TCS").Build(t, db)
		closed := testutil.NewBuyLot(exited).Build(t, db)
		testutil.NewSellTrade(exited).ClosingLot(closed.ID).Build(t, db)

		// Execute
		tickers, err := repo.ActiveTickers()

		// Assert
		if err != nil {
			t.Fatalf("ActiveTickers() returned unexpected error: %v", err)
		}
		if len(tickers) != 1 || tickers[0] != "INFY" {
			t.Errorf("Expected [INFY], got %v", tickers)
		}
	})
}

// TestTransactionRepository_RecordedOrderIDs tests broker order matching.
func TestTransactionRepository_RecordedOrderIDs(t *testing.T) {
	t.Run("reports which order IDs already have ledger rows", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		repo := repository.NewTransactionRepository(db)
		instrument := testutil.NewInstrument().WithTicker("INFY").Build(t, db)
		testutil.NewBuyLot(instrument).WithExternalOrderID("ORD-1").Build(t, db)

		// Execute
		recorded, err := repo.RecordedOrderIDs([]string{"ORD-1", "ORD-2"})

		// Assert
		if err != nil {
			t.Fatalf("RecordedOrderIDs() returned unexpected error: %v", err)
		}
		if !recorded["ORD-1"] {
			t.Error("Expected ORD-1 to be recorded")
		}
		if recorded["ORD-2"] {
			t.Error("Expected ORD-2 to not be recorded")
		}
	})
}
