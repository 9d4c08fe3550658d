package processors

import (
	"math"
	"testing"

	"github.com/JavierChicano/inversiones-app/src/models"
)

func TestOpenLotFeeAmortization(t *testing.T) {
	// BUY 10 with a $10 fee, SELL 5: half the fee is realized with the
	// sale, the other half stays on the open lot.
	summary := compute([]models.Transaction{
		tx("AAPL", models.SideBuy, 10, 10, 10, 0),
		tx("AAPL", models.SideSell, 5, 20, 0, 10),
	}, map[string]float64{"AAPL": 20})

	pos := summary.Instruments[0]
	// Realized cost: 5*10 + 10*(5/10) = 55.
	if !almostEqual(pos.TotalGainLoss, 100-55) {
		t.Errorf("realized gainLoss = %v, want 45", pos.TotalGainLoss)
	}

	open := summary.OpenPositions[0]
	if !almostEqual(open.CostBasis, 55) {
		t.Errorf("open costBasis = %v, want 55 (remaining fee share included)", open.CostBasis)
	}
	if !almostEqual(summary.CurrentInvested, 55) {
		t.Errorf("currentInvested = %v, want 55", summary.CurrentInvested)
	}
}

func TestMissingPriceValuesPositionAtZero(t *testing.T) {
	summary := compute([]models.Transaction{
		tx("OBSCURE", models.SideBuy, 4, 25, 0, 0),
	}, map[string]float64{})

	if len(summary.OpenPositions) != 1 {
		t.Fatalf("expected 1 open position, got %d", len(summary.OpenPositions))
	}
	open := summary.OpenPositions[0]
	if open.CurrentPrice != 0 || open.CurrentValue != 0 {
		t.Errorf("missing price must value at 0, got price=%v value=%v", open.CurrentPrice, open.CurrentValue)
	}
	if !almostEqual(open.GainLoss, -100) {
		t.Errorf("unrealized gainLoss = %v, want -100", open.GainLoss)
	}
	if math.IsNaN(open.Percentage) {
		t.Errorf("percentage must not be NaN when portfolio value is 0")
	}
}

func TestDistributionPercentages(t *testing.T) {
	summary := compute([]models.Transaction{
		tx("AAPL", models.SideBuy, 1, 100, 0, 0),
		tx("BTC", models.SideBuy, 3, 100, 0, 0),
	}, map[string]float64{"AAPL": 100, "BTC": 100})

	if len(summary.OpenPositions) != 2 {
		t.Fatalf("expected 2 open positions, got %d", len(summary.OpenPositions))
	}
	// Sorted by share of the portfolio, largest first.
	if summary.OpenPositions[0].Ticker != "BTC" {
		t.Errorf("largest position should sort first, got %s", summary.OpenPositions[0].Ticker)
	}
	total := summary.OpenPositions[0].Percentage + summary.OpenPositions[1].Percentage
	if !almostEqual(total, 100) {
		t.Errorf("percentages sum to %v, want 100", total)
	}
	if !almostEqual(summary.PortfolioValue, 400) {
		t.Errorf("portfolioValue = %v, want 400", summary.PortfolioValue)
	}
}

func TestOpenPositionHoldingDays(t *testing.T) {
	summary := compute([]models.Transaction{
		tx("AAPL", models.SideBuy, 1, 100, 0, 0),
		tx("AAPL", models.SideBuy, 1, 110, 0, 40),
	}, map[string]float64{"AAPL": 120})

	open := summary.OpenPositions[0]
	if !open.FirstBuyDate.Equal(onDay(0)) {
		t.Errorf("firstBuyDate = %v, want day 0 (oldest open lot)", open.FirstBuyDate)
	}
	// Valuation instant in these tests is day 60.
	if open.HoldingDays != 60 {
		t.Errorf("holdingDays = %d, want 60", open.HoldingDays)
	}
}

func TestEurUsdRateEchoedOnSummary(t *testing.T) {
	p := NewPerformanceProcessor()
	summary := p.ComputeAt(nil, nil, 1.25, onDay(0))
	if summary.EurUsdRate != 1.25 {
		t.Errorf("eurUsdRate = %v, want 1.25", summary.EurUsdRate)
	}
}
