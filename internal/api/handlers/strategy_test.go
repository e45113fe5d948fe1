package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"stock-lot-tracker/internal/api/handlers"
	"stock-lot-tracker/internal/model"
	"stock-lot-tracker/internal/repository"
	"stock-lot-tracker/internal/service"
	"stock-lot-tracker/internal/testutil"
)

// TestStrategyHandler_OpenInventory tests GET /api/strategy/open-inventory/{ticker}.
func TestStrategyHandler_OpenInventory(t *testing.T) {
	t.Run("returns open lots with the position summary", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		broker := testutil.NewFakeBroker()
		session := testutil.NewTestSessionManager(t, db, broker)
		market := service.NewMarketService(broker, session, repository.NewTransactionRepository(db), "NSE")
		handler := handlers.NewStrategyHandler(
			testutil.NewTestLedgerService(t, db),
			testutil.NewTestPortfolioService(t, db),
			market,
		)

		instrument := testutil.NewInstrument().WithTicker("INFY").Build(t, db)
		testutil.NewBuyLot(instrument).WithQuantity("10").WithPrice("100").Build(t, db)
		testutil.NewBuyLot(instrument).WithQuantity("20").WithPrice("130").Build(t, db)

		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/strategy/open-inventory/INFY",
			map[string]string{"ticker": "INFY"})
		rec := httptest.NewRecorder()

		// Execute
		handler.OpenInventory(rec, req)

		// Assert
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			Lots    []model.OpenLot      `json:"lots"`
			Summary model.OpenLotSummary `json:"summary"`
		}
		testutil.DecodeJSON(t, rec, &body)
		if len(body.Lots) != 2 {
			t.Errorf("Expected 2 open lots, got %d", len(body.Lots))
		}
		if body.Summary.UnitsHeld.String() != "30" {
			t.Errorf("Expected 30 units held, got %s", body.Summary.UnitsHeld)
		}
		if body.Summary.CapitalDeployed.String() != "3600" {
			t.Errorf("Expected capital deployed 3600, got %s", body.Summary.CapitalDeployed)
		}
	})
}

// TestStrategyHandler_Evaluate tests GET /api/strategy/recommendations/{ticker}.
//
// WHY: The price override lets the user ask what-if questions without a
// broker session; the endpoint must work fully offline with ?price=.
func TestStrategyHandler_Evaluate(t *testing.T) {
	t.Run("evaluates lots at the supplied price and target", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		broker := testutil.NewFakeBroker()
		session := testutil.NewTestSessionManager(t, db, broker)
		market := service.NewMarketService(broker, session, repository.NewTransactionRepository(db), "NSE")
		handler := handlers.NewStrategyHandler(
			testutil.NewTestLedgerService(t, db),
			testutil.NewTestPortfolioService(t, db),
			market,
		)

		instrument := testutil.NewInstrument().WithTicker("INFY").Build(t, db)
		testutil.NewBuyLot(instrument).WithQuantity("10").WithPrice("100").Build(t, db)

		req := testutil.NewRequestWithURLParams(http.MethodGet,
			"/api/strategy/recommendations/INFY?price=110&target=5",
			map[string]string{"ticker": "INFY"})
		rec := httptest.NewRecorder()

		// Execute
		handler.Evaluate(rec, req)

		// Assert
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var eval service.Evaluation
		testutil.DecodeJSON(t, rec, &eval)
		if len(eval.Lots) != 1 {
			t.Fatalf("Expected 1 decision, got %d", len(eval.Lots))
		}
		if !eval.Lots[0].ShouldSell {
			t.Error("Expected a +10% lot to clear a 5% target")
		}
		if eval.SellableUnits.String() != "10" {
			t.Errorf("Expected 10 sellable units, got %s", eval.SellableUnits)
		}
	})

	t.Run("rejects a malformed price override", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		broker := testutil.NewFakeBroker()
		session := testutil.NewTestSessionManager(t, db, broker)
		market := service.NewMarketService(broker, session, repository.NewTransactionRepository(db), "NSE")
		handler := handlers.NewStrategyHandler(
			testutil.NewTestLedgerService(t, db),
			testutil.NewTestPortfolioService(t, db),
			market,
		)
		testutil.NewInstrument().WithTicker("INFY").Build(t, db)

		req := testutil.NewRequestWithURLParams(http.MethodGet,
			"/api/strategy/recommendations/INFY?price=abc",
			map[string]string{"ticker": "INFY"})
		rec := httptest.NewRecorder()

		// Execute
		handler.Evaluate(rec, req)

		// Assert
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("Expected status 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

// TestStrategyHandler_Overview tests GET /api/strategy/portfolio-overview.
func TestStrategyHandler_Overview(t *testing.T) {
	t.Run("returns per-instrument holdings", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		testutil.SetupPortfolio(t, db)
		broker := testutil.NewFakeBroker()
		session := testutil.NewTestSessionManager(t, db, broker)
		market := service.NewMarketService(broker, session, repository.NewTransactionRepository(db), "NSE")
		handler := handlers.NewStrategyHandler(
			testutil.NewTestLedgerService(t, db),
			testutil.NewTestPortfolioService(t, db),
			market,
		)

		instrument := testutil.NewInstrument().WithTicker("INFY").Build(t, db)
		testutil.NewBuyLot(instrument).WithQuantity("10").WithPrice("100").Build(t, db)

		req := httptest.NewRequest(http.MethodGet, "/api/strategy/portfolio-overview", nil)
		rec := httptest.NewRecorder()

		// Execute
		handler.Overview(rec, req)

		// Assert
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var rows []model.OverviewRow
		testutil.DecodeJSON(t, rec, &rows)
		if len(rows) != 1 {
			t.Fatalf("Expected 1 overview row, got %d", len(rows))
		}
		if rows[0].Ticker != "INFY" {
			t.Errorf("Expected INFY, got %s", rows[0].Ticker)
		}
	})
}
