package service_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"stock-lot-tracker/internal/model"
	"stock-lot-tracker/internal/service"
)

// TestEvaluateLots tests the sell-threshold rule.
//
// WHY: This single function decides which lots every surface recommends
// selling. Threshold boundaries (exactly at target, just below) and loss
// positions must all produce the expected verdicts.
func TestEvaluateLots(t *testing.T) {
	lots := []model.OpenLot{
		{ID: "cheap", Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(100)},
		{ID: "dear", Quantity: decimal.NewFromInt(5), Price: decimal.NewFromInt(200)},
	}

	t.Run("flags lots at or above the target", func(t *testing.T) {
		// 110 is +10% on the cheap lot, -45% on the dear one
		eval := service.EvaluateLots("INFY", lots, decimal.NewFromInt(110), decimal.NewFromInt(5))

		if len(eval.Lots) != 2 {
			t.Fatalf("Expected 2 decisions, got %d", len(eval.Lots))
		}
		if !eval.Lots[0].ShouldSell {
			t.Error("Expected the profitable lot to be flagged for sale")
		}
		if eval.Lots[1].ShouldSell {
			t.Error("Expected the losing lot to be held")
		}
		if !eval.SellableUnits.Equal(decimal.NewFromInt(10)) {
			t.Errorf("Expected 10 sellable units, got %s", eval.SellableUnits)
		}
		if !eval.Lots[0].UnrealizedPnL.Equal(decimal.NewFromInt(100)) {
			t.Errorf("Expected unrealized P&L 100, got %s", eval.Lots[0].UnrealizedPnL)
		}
	})

	t.Run("profit exactly at the target qualifies", func(t *testing.T) {
		eval := service.EvaluateLots("INFY", lots[:1], decimal.NewFromInt(105), decimal.NewFromInt(5))

		if !eval.Lots[0].ShouldSell {
			t.Error("Expected a lot exactly at the target to qualify")
		}
	})

	t.Run("profit just below the target does not qualify", func(t *testing.T) {
		eval := service.EvaluateLots("INFY", lots[:1], decimal.RequireFromString("104.99"), decimal.NewFromInt(5))

		if eval.Lots[0].ShouldSell {
			t.Error("Expected a lot below the target to be held")
		}
	})

	t.Run("zero target falls back to the default threshold", func(t *testing.T) {
		eval := service.EvaluateLots("INFY", lots[:1], decimal.NewFromInt(104), decimal.Zero)

		if !eval.TargetPct.Equal(service.DefaultMinProfitPct) {
			t.Errorf("Expected default target %s, got %s", service.DefaultMinProfitPct, eval.TargetPct)
		}
		// +4% clears the 3% default
		if !eval.Lots[0].ShouldSell {
			t.Error("Expected lot above the default threshold to qualify")
		}
	})

	t.Run("zero price yields hold decisions without division errors", func(t *testing.T) {
		eval := service.EvaluateLots("INFY", lots, decimal.Zero, decimal.NewFromInt(5))

		for _, decision := range eval.Lots {
			if decision.ShouldSell {
				t.Errorf("Expected lot %s to be held at zero price", decision.Lot.ID)
			}
		}
		if eval.SellableUnits.Sign() != 0 {
			t.Errorf("Expected no sellable units, got %s", eval.SellableUnits)
		}
	})
}
