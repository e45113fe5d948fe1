package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"stock-lot-tracker/internal/api/request"
	"stock-lot-tracker/internal/apperrors"
	"stock-lot-tracker/internal/model"
	"stock-lot-tracker/internal/testutil"
)

// TestLedgerService_Record tests recording BUY and SELL transactions.
//
// WHY: The ledger's core invariant lives here: a BUY starts life as an open
// lot, and a SELL that references a parent lot closes it in the same
// operation. If this breaks, every downstream view (inventory, overview,
// batches) reports wrong holdings.
func TestLedgerService_Record(t *testing.T) {
	t.Run("BUY is recorded as an open lot", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		svc := testutil.NewTestLedgerService(t, db)

		// Execute
		created, err := svc.Record(context.Background(), request.CreateTransactionRequest{
			Ticker:   "infy",
			Type:     model.TypeBuy,
			Quantity: decimal.NewFromInt(10),
			Price:    decimal.NewFromInt(1500),
			Date:     "2025-01-15",
		})

		// Assert
		if err != nil {
			t.Fatalf("Record() returned unexpected error: %v", err)
		}
		if !created.IsOpen {
			t.Error("Expected new BUY to be an open lot")
		}
		if created.Ticker != "INFY" {
			t.Errorf("Expected ticker to be upper-cased to INFY, got %s", created.Ticker)
		}
		if created.Date != "2025-01-15" {
			t.Errorf("Expected date 2025-01-15, got %s", created.Date)
		}
	})

	t.Run("SELL with parent closes the lot in the same operation", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		svc := testutil.NewTestLedgerService(t, db)
		instrument := testutil.NewInstrument().WithTicker("TCS").Build(t, db)
		buy := testutil.NewBuyLot(instrument).Build(t, db)

		// Execute
		sell, err := svc.Record(context.Background(), request.CreateTransactionRequest{
			Ticker:      "TCS",
			Type:        model.TypeSell,
			Quantity:    decimal.NewFromInt(10),
			Price:       decimal.NewFromInt(110),
			Date:        "2025-03-01",
			ParentBuyID: &buy.ID,
		})

		// Assert
		if err != nil {
			t.Fatalf("Record() returned unexpected error: %v", err)
		}
		if sell.IsOpen {
			t.Error("Expected SELL row to not be an open lot")
		}

		parent, err := svc.Get(buy.ID)
		if err != nil {
			t.Fatalf("Get() returned unexpected error: %v", err)
		}
		if parent.IsOpen {
			t.Error("Expected parent BUY lot to be closed after the sale")
		}
	})

	t.Run("SELL against an already closed lot is rejected", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		svc := testutil.NewTestLedgerService(t, db)
		instrument := testutil.NewInstrument().WithTicker("WIPRO").Build(t, db)
		buy := testutil.NewBuyLot(instrument).Build(t, db)
		testutil.NewSellTrade(instrument).ClosingLot(buy.ID).Build(t, db)

		// Execute
		_, err := svc.Record(context.Background(), request.CreateTransactionRequest{
			Ticker:      "WIPRO",
			Type:        model.TypeSell,
			Quantity:    decimal.NewFromInt(10),
			Price:       decimal.NewFromInt(120),
			Date:        "2025-03-02",
			ParentBuyID: &buy.ID,
		})

		// Assert
		if !errors.Is(err, apperrors.ErrLotAlreadyClosed) {
			t.Fatalf("Expected ErrLotAlreadyClosed, got %v", err)
		}
	})

	t.Run("SELL against a lot of another instrument is rejected", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		svc := testutil.NewTestLedgerService(t, db)
		held := testutil.NewInstrument().WithTicker("HDFC").Build(t, db)
		buy := testutil.NewBuyLot(held).Build(t, db)
		testutil.NewInstrument().WithTicker("SBIN").Build(t, db)

		// Execute
		_, err := svc.Record(context.Background(), request.CreateTransactionRequest{
			Ticker:      "SBIN",
			Type:        model.TypeSell,
			Quantity:    decimal.NewFromInt(10),
			Price:       decimal.NewFromInt(110),
			Date:        "2025-03-02",
			ParentBuyID: &buy.ID,
		})

		// Assert
		if !errors.Is(err, apperrors.ErrInstrumentMismatch) {
			t.Fatalf("Expected ErrInstrumentMismatch, got %v", err)
		}
	})

	t.Run("duplicate external order ID is rejected", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		svc := testutil.NewTestLedgerService(t, db)
		instrument := testutil.NewInstrument().WithTicker("INFY").Build(t, db)
		testutil.NewBuyLot(instrument).WithExternalOrderID("ORD-1001").Build(t, db)

		orderID := "ORD-1001"

		// Execute
		_, err := svc.Record(context.Background(), request.CreateTransactionRequest{
			Ticker:          "INFY",
			Type:            model.TypeBuy,
			Quantity:        decimal.NewFromInt(5),
			Price:           decimal.NewFromInt(1490),
			Date:            "2025-01-16",
			ExternalOrderID: &orderID,
		})

		// Assert
		if !errors.Is(err, apperrors.ErrDuplicateOrder) {
			t.Fatalf("Expected ErrDuplicateOrder, got %v", err)
		}
	})
}

// TestLedgerService_BulkSell tests selling several lots with one SELL row.
//
// WHY: Bulk sales fan one SELL out over many lots; a quantity mismatch or a
// stale lot must abort the whole operation or holdings silently drift.
func TestLedgerService_BulkSell(t *testing.T) {
	t.Run("closes all selected lots when quantities match", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		svc := testutil.NewTestLedgerService(t, db)
		instrument := testutil.NewInstrument().WithTicker("RELIANCE").Build(t, db)
		lot1 := testutil.NewBuyLot(instrument).WithQuantity("10").WithDate("2025-01-02").Build(t, db)
		lot2 := testutil.NewBuyLot(instrument).WithQuantity("5").WithDate("2025-01-10").Build(t, db)

		// Execute
		sell, err := svc.BulkSell(context.Background(), request.BulkSellRequest{
			Ticker:         "RELIANCE",
			Quantity:       decimal.NewFromInt(15),
			Price:          decimal.NewFromInt(130),
			Date:           "2025-04-01",
			SelectedBuyIDs: []string{lot1.ID, lot2.ID},
		})

		// Assert
		if err != nil {
			t.Fatalf("BulkSell() returned unexpected error: %v", err)
		}
		if sell.IsOpen {
			t.Error("Expected SELL row to not be an open lot")
		}

		open, err := svc.OpenLots("RELIANCE")
		if err != nil {
			t.Fatalf("OpenLots() returned unexpected error: %v", err)
		}
		if len(open) != 0 {
			t.Errorf("Expected no open lots after bulk sell, got %d", len(open))
		}
	})

	t.Run("rejects quantity mismatch without closing anything", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		svc := testutil.NewTestLedgerService(t, db)
		instrument := testutil.NewInstrument().WithTicker("RELIANCE").Build(t, db)
		lot1 := testutil.NewBuyLot(instrument).WithQuantity("10").Build(t, db)
		lot2 := testutil.NewBuyLot(instrument).WithQuantity("5").Build(t, db)

		// Execute
		_, err := svc.BulkSell(context.Background(), request.BulkSellRequest{
			Ticker:         "RELIANCE",
			Quantity:       decimal.NewFromInt(12),
			Price:          decimal.NewFromInt(130),
			Date:           "2025-04-01",
			SelectedBuyIDs: []string{lot1.ID, lot2.ID},
		})

		// Assert
		if !errors.Is(err, apperrors.ErrQuantityMismatch) {
			t.Fatalf("Expected ErrQuantityMismatch, got %v", err)
		}

		open, err := svc.OpenLots("RELIANCE")
		if err != nil {
			t.Fatalf("OpenLots() returned unexpected error: %v", err)
		}
		if len(open) != 2 {
			t.Errorf("Expected both lots to remain open, got %d", len(open))
		}
	})
}

// TestLedgerService_Update tests transaction edits, including reparenting.
//
// WHY: Moving a SELL to a different parent lot must reopen the old lot and
// close the new one atomically, or the same shares end up sold twice.
func TestLedgerService_Update(t *testing.T) {
	t.Run("reparenting a SELL reopens the old lot and closes the new one", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		svc := testutil.NewTestLedgerService(t, db)
		instrument := testutil.NewInstrument().WithTicker("ITC").Build(t, db)
		oldLot := testutil.NewBuyLot(instrument).WithDate("2025-01-02").Build(t, db)
		newLot := testutil.NewBuyLot(instrument).WithDate("2025-01-10").Build(t, db)
		sell := testutil.NewSellTrade(instrument).ClosingLot(oldLot.ID).Build(t, db)

		// Execute
		_, err := svc.Update(context.Background(), sell.ID, request.UpdateTransactionRequest{
			Quantity:    decimal.NewFromInt(10),
			Price:       decimal.NewFromInt(110),
			Date:        "2025-02-02",
			ParentBuyID: &newLot.ID,
		})

		// Assert
		if err != nil {
			t.Fatalf("Update() returned unexpected error: %v", err)
		}

		old, _ := svc.Get(oldLot.ID)
		if !old.IsOpen {
			t.Error("Expected old parent lot to be reopened")
		}
		replacement, _ := svc.Get(newLot.ID)
		if replacement.IsOpen {
			t.Error("Expected new parent lot to be closed")
		}
	})
}

// TestLedgerService_Delete tests deletion and its lot side effects.
//
// WHY: Deleting a SELL must return the lots it closed to open inventory,
// and a BUY still referenced by a sale must refuse to go away.
func TestLedgerService_Delete(t *testing.T) {
	t.Run("deleting a SELL reopens the lots it closed", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		svc := testutil.NewTestLedgerService(t, db)
		instrument := testutil.NewInstrument().WithTicker("INFY").Build(t, db)
		buy := testutil.NewBuyLot(instrument).Build(t, db)
		sell := testutil.NewSellTrade(instrument).ClosingLot(buy.ID).Build(t, db)

		// Execute
		if err := svc.Delete(context.Background(), sell.ID); err != nil {
			t.Fatalf("Delete() returned unexpected error: %v", err)
		}

		// Assert
		parent, err := svc.Get(buy.ID)
		if err != nil {
			t.Fatalf("Get() returned unexpected error: %v", err)
		}
		if !parent.IsOpen {
			t.Error("Expected BUY lot to be reopened after its SELL was deleted")
		}
	})

	t.Run("deleting a BUY referenced by a SELL is refused", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		svc := testutil.NewTestLedgerService(t, db)
		instrument := testutil.NewInstrument().WithTicker("INFY").Build(t, db)
		buy := testutil.NewBuyLot(instrument).Build(t, db)
		testutil.NewSellTrade(instrument).ClosingLot(buy.ID).Build(t, db)

		// Execute
		err := svc.Delete(context.Background(), buy.ID)

		// Assert
		if !errors.Is(err, apperrors.ErrLotInUse) {
			t.Fatalf("Expected ErrLotInUse, got %v", err)
		}
	})

	t.Run("deleting an unreferenced BUY succeeds", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		svc := testutil.NewTestLedgerService(t, db)
		instrument := testutil.NewInstrument().WithTicker("INFY").Build(t, db)
		buy := testutil.NewBuyLot(instrument).Build(t, db)

		// Execute
		if err := svc.Delete(context.Background(), buy.ID); err != nil {
			t.Fatalf("Delete() returned unexpected error: %v", err)
		}

		// Assert
		if _, err := svc.Get(buy.ID); !errors.Is(err, apperrors.ErrTransactionNotFound) {
			t.Fatalf("Expected ErrTransactionNotFound after delete, got %v", err)
		}
	})
}

// TestLedgerService_Ledger tests pagination of the transaction listing.
func TestLedgerService_Ledger(t *testing.T) {
	t.Run("pages newest first with correct totals", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		svc := testutil.NewTestLedgerService(t, db)
		instrument := testutil.NewInstrument().WithTicker("INFY").Build(t, db)
		for _, date := range []string{"2025-01-02", "2025-01-03", "2025-01-04"} {
			testutil.NewBuyLot(instrument).WithDate(date).Build(t, db)
		}

		// Execute
		page, err := svc.Ledger(1, 2, "")

		// Assert
		if err != nil {
			t.Fatalf("Ledger() returned unexpected error: %v", err)
		}
		if page.Pagination.TotalRecords != 3 {
			t.Errorf("Expected 3 total records, got %d", page.Pagination.TotalRecords)
		}
		if page.Pagination.TotalPages != 2 {
			t.Errorf("Expected 2 total pages, got %d", page.Pagination.TotalPages)
		}
		if len(page.Data) != 2 {
			t.Fatalf("Expected 2 rows on page 1, got %d", len(page.Data))
		}
		if page.Data[0].Date != "2025-01-04" {
			t.Errorf("Expected newest trade first, got %s", page.Data[0].Date)
		}
	})

	t.Run("filters by ticker", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		svc := testutil.NewTestLedgerService(t, db)
		infy := testutil.NewInstrument().WithTicker("INFY").Build(t, db)
		tcs := testutil.NewInstrument().WithTicker("TCS").Build(t, db)
		testutil.NewBuyLot(infy).Build(t, db)
		testutil.NewBuyLot(tcs).Build(t, db)

		// Execute
		page, err := svc.Ledger(1, 20, "INFY")

		// Assert
		if err != nil {
			t.Fatalf("Ledger() returned unexpected error: %v", err)
		}
		if len(page.Data) != 1 {
			t.Fatalf("Expected 1 row for INFY, got %d", len(page.Data))
		}
		if page.Data[0].Ticker != "INFY" {
			t.Errorf("Expected INFY row, got %s", page.Data[0].Ticker)
		}
	})
}

// TestLedgerService_OpenLots tests open-inventory ordering.
func TestLedgerService_OpenLots(t *testing.T) {
	t.Run("returns only open lots oldest first", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		svc := testutil.NewTestLedgerService(t, db)
		instrument := testutil.NewInstrument().WithTicker("INFY").Build(t, db)
		newer := testutil.NewBuyLot(instrument).WithDate("2025-02-01").Build(t, db)
		older := testutil.NewBuyLot(instrument).WithDate("2025-01-01").Build(t, db)
		closed := testutil.NewBuyLot(instrument).WithDate("2025-01-15").Build(t, db)
		testutil.NewSellTrade(instrument).ClosingLot(closed.ID).Build(t, db)

		// Execute
		lots, err := svc.OpenLots("INFY")

		// Assert
		if err != nil {
			t.Fatalf("OpenLots() returned unexpected error: %v", err)
		}
		if len(lots) != 2 {
			t.Fatalf("Expected 2 open lots, got %d", len(lots))
		}
		if lots[0].ID != older.ID || lots[1].ID != newer.ID {
			t.Error("Expected open lots ordered oldest first")
		}
	})
}
